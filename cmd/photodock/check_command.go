package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"photodock/internal/config"
	"photodock/internal/preflight"
)

type checkView struct {
	Name   string `json:"name"`
	Passed bool   `json:"passed"`
	Detail string `json:"detail"`
}

func newCheckCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Verify directories, stores, and remote services are reachable",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			results := preflight.RunAll(cmd.Context(), cfg)
			failed := preflight.Failed(results)

			views := make([]checkView, 0, len(results))
			for _, r := range results {
				views = append(views, checkView{Name: r.Name, Passed: r.Passed, Detail: r.Detail})
			}
			err = ctx.emit(cmd, views, func(out io.Writer) {
				colorize := isTerminal(out)
				lines := renderSectionHeader("Configuration", colorize)
				lines = append(lines,
					renderStatusLine("Config file", statusInfo, ctx.configPath, colorize),
					renderStatusLine("Record store", statusInfo, recordsLabel(cfg), colorize),
					renderStatusLine("Asset store", statusInfo, assetsLabel(cfg), colorize),
					renderStatusLine("Detection", detectionKind(cfg), detectionLabel(cfg), colorize),
					"",
				)
				lines = append(lines, renderSectionHeader("Dependencies", colorize)...)
				for _, r := range results {
					kind := statusOK
					if !r.Passed {
						kind = statusError
					}
					lines = append(lines, renderStatusLine(r.Name, kind, r.Detail, colorize))
				}
				fmt.Fprintln(out, strings.Join(lines, "\n"))
			})
			if err != nil {
				return err
			}
			if len(failed) > 0 {
				return fmt.Errorf("%d of %d checks failed", len(failed), len(results))
			}
			return nil
		},
	}
}

func recordsLabel(cfg *config.Config) string {
	if cfg.Records.Driver == config.RecordsDriverPostgres {
		return fmt.Sprintf("postgres table %s", cfg.Records.Table)
	}
	return fmt.Sprintf("sqlite %s", cfg.DatabasePath())
}

func assetsLabel(cfg *config.Config) string {
	if cfg.Assets.Driver == config.AssetDriverS3 {
		return fmt.Sprintf("s3 %s/%s", strings.TrimRight(cfg.Assets.Endpoint, "/"), cfg.Assets.Bucket)
	}
	return fmt.Sprintf("local %s", cfg.Assets.LocalDir)
}

func detectionKind(cfg *config.Config) statusKind {
	if cfg.Detection.Enabled {
		return statusInfo
	}
	return statusWarn
}

func detectionLabel(cfg *config.Config) string {
	if !cfg.Detection.Enabled {
		return "Disabled (crops use the centered fallback)"
	}
	return cfg.Detection.URL
}

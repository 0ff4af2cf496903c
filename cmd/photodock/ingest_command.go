package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"photodock/internal/assets"
	"photodock/internal/config"
	"photodock/internal/crop"
	"photodock/internal/detection"
	"photodock/internal/ingest"
	"photodock/internal/logging"
	"photodock/internal/preflight"
	"photodock/internal/progress"
	"photodock/internal/records"
	"photodock/internal/store"
)

type ingestFlags struct {
	files            bool
	fast             bool
	autoCrop         bool
	removeBackground bool
	width            int
	height           int
	gravity          string
	profile          string
	destination      string
	metricsAddr      string
	skipChecks       bool
}

func newIngestCommand(ctx *commandContext) *cobra.Command {
	var flags ingestFlags

	cmd := &cobra.Command{
		Use:   "ingest ARCHIVE.zip | --files PHOTO...",
		Short: "Match photos to records, upload them, and link the results",
		Args: func(cmd *cobra.Command, args []string) error {
			if flags.files {
				if len(args) == 0 {
					return errors.New("--files requires at least one photo path")
				}
				return nil
			}
			return cobra.ExactArgs(1)(cmd, args)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runIngest(cmd, ctx, flags, args)
		},
	}

	f := cmd.Flags()
	f.BoolVar(&flags.files, "files", false, "Treat arguments as individual photo files instead of one ZIP archive")
	f.BoolVar(&flags.fast, "fast", false, "Skip matching: upload every photo unmatched and link no records")
	f.BoolVar(&flags.autoCrop, "auto-crop", false, "Crop each photo around the detected subject before upload")
	f.BoolVar(&flags.removeBackground, "remove-bg", false, "Remove photo backgrounds before upload")
	f.IntVar(&flags.width, "width", 0, "Crop output width (default from config)")
	f.IntVar(&flags.height, "height", 0, "Crop output height (default from config)")
	f.StringVar(&flags.gravity, "gravity", "", "Crop gravity: face or center (default from config)")
	f.StringVar(&flags.profile, "profile", "", "Crop profile: passport or square (default from config)")
	f.StringVar(&flags.destination, "destination", "", "Asset folder prefix (default from config)")
	f.StringVar(&flags.metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address during the run")
	f.BoolVar(&flags.skipChecks, "skip-checks", false, "Skip dependency preflight checks")
	return cmd
}

func runIngest(cmd *cobra.Command, cmdCtx *commandContext, flags ingestFlags, args []string) error {
	cfg, err := cmdCtx.ensureConfig()
	if err != nil {
		return err
	}
	logger, err := cmdCtx.logger(cmd)
	if err != nil {
		return err
	}
	opts, err := ingestOptions(cfg, cmd, flags)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	lock, err := acquireStateLock(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = lock.Unlock() }()

	if !flags.skipChecks {
		if failed := preflight.Failed(preflight.RunAll(ctx, cfg)); len(failed) > 0 {
			parts := make([]string, 0, len(failed))
			for _, r := range failed {
				parts = append(parts, fmt.Sprintf("%s: %s", r.Name, r.Detail))
			}
			return fmt.Errorf("preflight failed (%s); run `photodock check` for details", strings.Join(parts, "; "))
		}
	}

	b, err := cmdCtx.openBackends(ctx)
	if err != nil {
		return err
	}
	defer b.Close()

	recs, err := b.records.List(ctx, records.Filter{})
	if err != nil {
		return fmt.Errorf("list records: %w", err)
	}

	assetStore, err := assets.NewFromConfig(ctx, cfg)
	if err != nil {
		return err
	}

	metrics := progress.DefaultMetrics()
	addr := strings.TrimSpace(flags.metricsAddr)
	if addr == "" {
		addr = cfg.Metrics.Bind
	}
	if addr != "" {
		srv, err := startMetricsServer(addr, logger)
		if err != nil {
			return fmt.Errorf("start metrics server: %w", err)
		}
		defer srv.Shutdown()
	}

	var observers []progress.Observer
	errOut := cmd.ErrOrStderr()
	if isTerminal(errOut) && !cmdCtx.jsonOutput() {
		line := startProgressLine(errOut)
		defer line.Stop()
		observers = append(observers, line.Observer())
	} else {
		observers = append(observers, progress.NewLogObserver(logger, 10))
	}

	deps := ingest.Deps{
		Assets:           assetStore,
		Records:          b.records,
		Cropper:          crop.NewFromConfig(cfg.Crop, detection.NewFromConfig(cfg), logger),
		Background:       assets.NewTransformerFromConfig(cfg),
		Metrics:          metrics,
		Observers:        observers,
		Logger:           logger,
		CandidateFields:  cfg.Ingest.CandidateFields,
		ExtractBatchSize: cfg.Ingest.ExtractBatchSize,
		YieldEvery:       cfg.Ingest.YieldEvery,
		UploadBatchSize:  cfg.Ingest.UploadBatchSize,
		Crop:             cfg.Crop,
	}

	source := ingest.ArchiveFile(args[0])
	if flags.files {
		source = ingest.Files(args...)
	}

	report, runErr := ingest.Run(ctx, deps, source, recs, opts)
	if report != nil {
		if err := b.history.SaveRun(context.WithoutCancel(ctx), runFromReport(report)); err != nil {
			logging.WarnWithContext(logger, "failed to save run history", "run_history_save_failed",
				logging.String(logging.FieldRunID, report.RunID),
				logging.Error(err),
				logging.String(logging.FieldImpact, "run will not appear in `photodock runs`"),
			)
		}
		if err := cmdCtx.emit(cmd, report, func(out io.Writer) { printReport(out, report) }); err != nil {
			return err
		}
	}
	return runErr
}

// ingestOptions layers explicitly set flags over configuration defaults.
func ingestOptions(cfg *config.Config, cmd *cobra.Command, flags ingestFlags) (ingest.Options, error) {
	opts := ingest.OptionsFromConfig(cfg)
	changed := cmd.Flags().Changed
	if changed("fast") {
		opts.FastMode = flags.fast
	}
	opts.AutoCrop = flags.autoCrop
	opts.RemoveBackground = flags.removeBackground
	if flags.width > 0 {
		opts.CropWidth = flags.width
	}
	if flags.height > 0 {
		opts.CropHeight = flags.height
	}
	if g := strings.ToLower(strings.TrimSpace(flags.gravity)); g != "" {
		if g != config.GravityFace && g != config.GravityCenter {
			return opts, fmt.Errorf("invalid --gravity %q (want face or center)", flags.gravity)
		}
		opts.CropGravity = g
	}
	if p := strings.ToLower(strings.TrimSpace(flags.profile)); p != "" {
		if p != config.ProfilePassport && p != config.ProfileSquare {
			return opts, fmt.Errorf("invalid --profile %q (want passport or square)", flags.profile)
		}
		opts.CropProfile = p
	}
	if changed("destination") {
		opts.Destination = strings.TrimSpace(flags.destination)
	}
	if opts.RemoveBackground && strings.TrimSpace(cfg.Background.URL) == "" {
		return opts, errors.New("--remove-bg requires background.url in the configuration")
	}
	return opts, nil
}

func runFromReport(r *ingest.Report) store.Run {
	run := store.Run{
		ID:            r.RunID,
		Source:        r.Source,
		Destination:   r.Destination,
		FastMode:      r.FastMode,
		Total:         r.Total,
		Matched:       r.Matched,
		Unmatched:     r.Unmatched,
		Uploaded:      r.Uploaded,
		Failed:        r.Failed,
		Linked:        r.Linked,
		LinkFailed:    r.LinkFailed,
		CropFallbacks: r.CropFallbacks,
		Elapsed:       r.Elapsed,
		ErrorMessage:  r.Error,
		StartedAt:     r.StartedAt,
		FinishedAt:    r.FinishedAt,
	}
	for _, f := range r.Failures {
		run.Failures = append(run.Failures, store.Failure{
			RunID:         r.RunID,
			Filename:      f.Filename,
			RecordID:      f.RecordID,
			Kind:          f.Kind,
			Message:       f.Message,
			AssetURL:      f.URL,
			AssetPublicID: f.PublicID,
		})
	}
	return run
}

func printReport(out io.Writer, r *ingest.Report) {
	pairs := [][2]string{
		{"Run", r.RunID},
		{"Status", r.Status()},
		{"Source", r.Source},
		{"Photos", strconv.Itoa(r.Total)},
		{"Matched", strconv.Itoa(r.Matched)},
		{"Unmatched", strconv.Itoa(r.Unmatched)},
		{"Uploaded", strconv.Itoa(r.Uploaded)},
		{"Failed", strconv.Itoa(r.Failed)},
		{"Linked", strconv.Itoa(r.Linked)},
	}
	if r.LinkFailed > 0 {
		pairs = append(pairs, [2]string{"Link failures", strconv.Itoa(r.LinkFailed)})
	}
	if r.CropFallbacks > 0 {
		pairs = append(pairs, [2]string{"Crop fallbacks", strconv.Itoa(r.CropFallbacks)})
	}
	if r.FastMode {
		pairs = append(pairs, [2]string{"Fast mode", yesNo(r.FastMode)})
	}
	if n := len(r.IndexShadowed); n > 0 {
		pairs = append(pairs, [2]string{"Duplicate keys", fmt.Sprintf("%d record(s): %s", n, truncate(strings.Join(r.IndexShadowed, ", "), 60))})
	}
	pairs = append(pairs,
		[2]string{"Elapsed", formatElapsed(r.Elapsed)},
		[2]string{"Throughput", fmt.Sprintf("%.1f items/s", r.Throughput)},
	)
	if r.Error != "" {
		pairs = append(pairs, [2]string{"Error", r.Error})
	}
	fmt.Fprintln(out, renderKeyValues(pairs))

	if len(r.Failures) > 0 {
		fmt.Fprintln(out)
		fmt.Fprintln(out, renderFailures(r.Failures))
	}
	if unlinked := len(r.Unlinked()); unlinked > 0 {
		fmt.Fprintf(out, "\n%d uploaded photo(s) were not linked; run `photodock runs cleanup %s` to delete them\n", unlinked, shortID(r.RunID))
	}
}

func renderFailures(failures []ingest.Failure) string {
	rows := make([][]string, 0, len(failures))
	for _, f := range failures {
		rows = append(rows, []string{f.Filename, dashIfEmpty(f.RecordID), f.Kind, f.Message})
	}
	return renderTable([]column{left("File"), left("Record"), left("Kind"), left("Error")}, rows)
}

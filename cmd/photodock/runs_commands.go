package main

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"photodock/internal/assets"
	"photodock/internal/logging"
	"photodock/internal/store"
)

type runSummaryView struct {
	ID         string    `json:"id"`
	Status     string    `json:"status"`
	Source     string    `json:"source"`
	Total      int       `json:"total"`
	Matched    int       `json:"matched"`
	Unmatched  int       `json:"unmatched"`
	Uploaded   int       `json:"uploaded"`
	Failed     int       `json:"failed"`
	Linked     int       `json:"linked"`
	LinkFailed int       `json:"link_failed"`
	ElapsedMS  int64     `json:"elapsed_ms"`
	Error      string    `json:"error,omitempty"`
	StartedAt  time.Time `json:"started_at"`
}

type runFailureView struct {
	Filename      string     `json:"filename"`
	RecordID      string     `json:"record_id,omitempty"`
	Kind          string     `json:"kind"`
	Message       string     `json:"message"`
	AssetURL      string     `json:"asset_url,omitempty"`
	AssetPublicID string     `json:"asset_public_id,omitempty"`
	CleanedAt     *time.Time `json:"cleaned_at,omitempty"`
}

type runDetailView struct {
	runSummaryView
	Destination   string           `json:"destination,omitempty"`
	FastMode      bool             `json:"fast_mode"`
	CropFallbacks int              `json:"crop_fallbacks"`
	FinishedAt    time.Time        `json:"finished_at"`
	Failures      []runFailureView `json:"failures"`
}

// runStatus mirrors the ingest report status for persisted runs.
func runStatus(r store.Run) string {
	switch {
	case r.ErrorMessage != "":
		return "failed"
	case r.Failed > 0 || r.LinkFailed > 0:
		return "partial"
	default:
		return "ok"
	}
}

func summaryView(r store.Run) runSummaryView {
	return runSummaryView{
		ID:         r.ID,
		Status:     runStatus(r),
		Source:     r.Source,
		Total:      r.Total,
		Matched:    r.Matched,
		Unmatched:  r.Unmatched,
		Uploaded:   r.Uploaded,
		Failed:     r.Failed,
		Linked:     r.Linked,
		LinkFailed: r.LinkFailed,
		ElapsedMS:  r.Elapsed.Milliseconds(),
		Error:      r.ErrorMessage,
		StartedAt:  r.StartedAt,
	}
}

func detailView(r store.Run) runDetailView {
	view := runDetailView{
		runSummaryView: summaryView(r),
		Destination:    r.Destination,
		FastMode:       r.FastMode,
		CropFallbacks:  r.CropFallbacks,
		FinishedAt:     r.FinishedAt,
		Failures:       make([]runFailureView, 0, len(r.Failures)),
	}
	for _, f := range r.Failures {
		fv := runFailureView{
			Filename:      f.Filename,
			RecordID:      f.RecordID,
			Kind:          f.Kind,
			Message:       f.Message,
			AssetURL:      f.AssetURL,
			AssetPublicID: f.AssetPublicID,
		}
		if !f.CleanedAt.IsZero() {
			at := f.CleanedAt
			fv.CleanedAt = &at
		}
		view.Failures = append(view.Failures, fv)
	}
	return view
}

func newRunsCommand(ctx *commandContext) *cobra.Command {
	runsCmd := &cobra.Command{
		Use:   "runs",
		Short: "Inspect ingest run history",
	}
	runsCmd.AddCommand(newRunsListCommand(ctx))
	runsCmd.AddCommand(newRunsShowCommand(ctx))
	runsCmd.AddCommand(newRunsCleanupCommand(ctx))
	return runsCmd
}

func newRunsListCommand(ctx *commandContext) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recent ingest runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := ctx.openBackends(cmd.Context())
			if err != nil {
				return err
			}
			defer b.Close()

			runs, err := b.history.ListRuns(cmd.Context(), limit)
			if err != nil {
				return err
			}
			views := make([]runSummaryView, 0, len(runs))
			for _, r := range runs {
				views = append(views, summaryView(r))
			}
			return ctx.emit(cmd, views, func(out io.Writer) { printRuns(out, runs) })
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum number of runs to list (0 for all)")
	return cmd
}

func printRuns(out io.Writer, runs []store.Run) {
	if len(runs) == 0 {
		fmt.Fprintln(out, "No runs recorded")
		return
	}
	rows := make([][]string, 0, len(runs))
	for _, r := range runs {
		rows = append(rows, []string{
			shortID(r.ID),
			formatTime(r.StartedAt),
			runStatus(r),
			truncate(r.Source, 40),
			strconv.Itoa(r.Total),
			strconv.Itoa(r.Matched),
			strconv.Itoa(r.Uploaded),
			strconv.Itoa(r.Failed),
			formatElapsed(r.Elapsed),
		})
	}
	fmt.Fprintln(out, renderTable([]column{
		left("Run"), left("Started"), left("Status"), left("Source"),
		right("Photos"), right("Matched"), right("Uploaded"), right("Failed"), right("Elapsed"),
	}, rows))
}

func newRunsShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show RUN_ID",
		Short: "Show one run and its failures",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := ctx.openBackends(cmd.Context())
			if err != nil {
				return err
			}
			defer b.Close()

			run, err := b.history.GetRun(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return ctx.emit(cmd, detailView(run), func(out io.Writer) { printRun(out, run) })
		},
	}
}

func printRun(out io.Writer, r store.Run) {
	pairs := [][2]string{
		{"Run", r.ID},
		{"Status", runStatus(r)},
		{"Source", r.Source},
		{"Destination", dashIfEmpty(r.Destination)},
		{"Fast mode", yesNo(r.FastMode)},
		{"Started", formatTime(r.StartedAt)},
		{"Elapsed", formatElapsed(r.Elapsed)},
		{"Photos", strconv.Itoa(r.Total)},
		{"Matched", strconv.Itoa(r.Matched)},
		{"Unmatched", strconv.Itoa(r.Unmatched)},
		{"Uploaded", strconv.Itoa(r.Uploaded)},
		{"Failed", strconv.Itoa(r.Failed)},
		{"Linked", strconv.Itoa(r.Linked)},
		{"Link failures", strconv.Itoa(r.LinkFailed)},
		{"Crop fallbacks", strconv.Itoa(r.CropFallbacks)},
	}
	if r.ErrorMessage != "" {
		pairs = append(pairs, [2]string{"Error", r.ErrorMessage})
	}
	fmt.Fprintln(out, renderKeyValues(pairs))
	if len(r.Failures) == 0 {
		return
	}
	rows := make([][]string, 0, len(r.Failures))
	for _, f := range r.Failures {
		asset := "-"
		switch {
		case f.AssetPublicID != "" && !f.CleanedAt.IsZero():
			asset = "deleted"
		case f.AssetPublicID != "":
			asset = f.AssetPublicID
		}
		rows = append(rows, []string{f.Filename, dashIfEmpty(f.RecordID), f.Kind, truncate(f.Message, 60), asset})
	}
	fmt.Fprintln(out)
	fmt.Fprintln(out, renderTable([]column{left("File"), left("Record"), left("Kind"), left("Error"), left("Unlinked asset")}, rows))
}

func newRunsCleanupCommand(ctx *commandContext) *cobra.Command {
	var dryRun bool
	cmd := &cobra.Command{
		Use:   "cleanup RUN_ID",
		Short: "Delete uploaded photos of a run that were never linked to a record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.logger(cmd)
			if err != nil {
				return err
			}
			logger = logging.NewComponentLogger(logger, "cleanup")

			lock, err := acquireStateLock(cfg)
			if err != nil {
				return err
			}
			defer func() { _ = lock.Unlock() }()

			b, err := ctx.openBackends(cmd.Context())
			if err != nil {
				return err
			}
			defer b.Close()

			run, err := b.history.GetRun(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			pending, err := b.history.UnlinkedAssets(cmd.Context(), run.ID)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(pending) == 0 {
				fmt.Fprintf(out, "Run %s has no unlinked uploads\n", shortID(run.ID))
				return nil
			}
			if dryRun {
				for _, f := range pending {
					fmt.Fprintf(out, "would delete %s (%s)\n", f.AssetPublicID, f.Filename)
				}
				return nil
			}

			assetStore, err := assets.NewFromConfig(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			var errs []error
			deleted := 0
			for _, f := range pending {
				if err := assetStore.Delete(cmd.Context(), f.AssetPublicID); err != nil {
					logging.WarnWithContext(logger, "asset delete failed", "asset_delete_failed",
						logging.String(logging.FieldRunID, run.ID),
						logging.String(logging.FieldFilename, f.Filename),
						logging.String("public_id", f.AssetPublicID),
						logging.Error(err),
					)
					errs = append(errs, fmt.Errorf("%s: %w", f.AssetPublicID, err))
					continue
				}
				if err := b.history.MarkCleaned(cmd.Context(), f.ID, time.Now()); err != nil {
					errs = append(errs, err)
					continue
				}
				deleted++
			}
			fmt.Fprintf(out, "Deleted %d of %d unlinked uploads for run %s\n", deleted, len(pending), shortID(run.ID))
			return errors.Join(errs...)
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "List the uploads that would be deleted")
	return cmd
}

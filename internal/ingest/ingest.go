package ingest

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"photodock/internal/archive"
	"photodock/internal/assets"
	"photodock/internal/config"
	"photodock/internal/crop"
	"photodock/internal/logging"
	"photodock/internal/lookup"
	"photodock/internal/matcher"
	"photodock/internal/media"
	"photodock/internal/progress"
	"photodock/internal/records"
	"photodock/internal/services"
	"photodock/internal/upload"
)

// Options is the immutable per-run configuration threaded through matching,
// cropping and upload.
type Options struct {
	// RunID identifies the run; a random id is generated when empty.
	RunID            string
	FastMode         bool
	RemoveBackground bool
	AutoCrop         bool
	CropWidth        int
	CropHeight       int
	CropGravity      string
	CropProfile      string
	Destination      string
}

// OptionsFromConfig returns run options seeded from configuration defaults.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		FastMode:    cfg.Ingest.FastMode,
		CropWidth:   cfg.Crop.Width,
		CropHeight:  cfg.Crop.Height,
		CropGravity: cfg.Crop.Gravity,
		CropProfile: cfg.Crop.Profile,
		Destination: cfg.Ingest.Destination,
	}
}

// Deps are the collaborators and tuning knobs for a run.
type Deps struct {
	Assets     assets.Store
	Records    records.Writer
	Cropper    *crop.Cropper
	Background assets.Transformer
	Metrics    *progress.Metrics
	Observers  []progress.Observer
	Logger     *slog.Logger

	// CandidateFields are the record fields tried, in order, when indexing.
	CandidateFields  []string
	ExtractBatchSize int
	YieldEvery       int
	UploadBatchSize  int
	// Crop supplies head-ratio thresholds for the crop profile.
	Crop config.Crop
}

// Run ingests source against recs. The returned Report is never nil. The
// error is non-nil only for run-level failures: an unreadable source (before
// any upload) or cancellation.
func Run(ctx context.Context, deps Deps, source Source, recs []records.Record, opts Options) (*Report, error) {
	runID := opts.RunID
	if runID == "" {
		runID = uuid.NewString()
	}
	ctx = services.WithRunID(ctx, runID)
	logger := logging.NewComponentLogger(deps.Logger, "ingest")

	report := &Report{
		RunID:       runID,
		Source:      source.Describe(),
		Destination: opts.Destination,
		FastMode:    opts.FastMode,
		StartedAt:   time.Now(),
	}

	observers := append([]progress.Observer(nil), deps.Observers...)
	if deps.Metrics != nil {
		observers = append(observers, deps.Metrics)
	}
	reporter := progress.NewReporter(runID, observers...)

	fail := func(err error) (*Report, error) {
		report.finish(reporter.Snapshot(), err)
		reporter.SetPhase(progress.PhaseDone)
		deps.Metrics.RunFinished(report.Status(), report.Elapsed)
		logging.ErrorWithContext(logging.WithContext(ctx, logger), "ingest aborted", "ingest_aborted",
			logging.Error(err),
			logging.String(logging.FieldErrorKind, services.Kind(err)),
			logging.String(logging.FieldErrorHint, hintFor(err)),
		)
		return report, err
	}

	if !source.isArchive() && len(source.Files) == 0 {
		return fail(services.Wrap(services.ErrValidation, "ingest", "source", "no archive or files given", nil))
	}

	index := lookup.Build(recs, deps.CandidateFields)
	report.IndexSize = index.Len()
	report.IndexOmitted = index.Omitted()
	report.IndexShadowed = index.Shadowed()
	m := matcher.New(index, opts.FastMode)

	logger.Info("ingest started",
		logging.String(logging.FieldRunID, runID),
		logging.String("source", report.Source),
		logging.Int("records", len(recs)),
		logging.Int("index_keys", index.Len()),
		logging.Int("records_without_key", index.Omitted()),
		logging.Bool("fast_mode", opts.FastMode),
	)
	if shadowed := index.Shadowed(); len(shadowed) > 0 {
		logging.WarnWithContext(logger, "records share a lookup key", "lookup_collision",
			logging.String(logging.FieldRunID, runID),
			logging.Int("records", len(shadowed)),
			logging.String("record_ids", strings.Join(shadowed, ",")),
			logging.String(logging.FieldImpact, "these records cannot be matched by filename"),
			logging.String(logging.FieldErrorHint, "make the candidate field values unique"),
		)
	}

	extractCtx := services.WithPhase(ctx, string(progress.PhaseExtract))
	src, err := source.openReader(
		archive.WithBatchSize(deps.ExtractBatchSize),
		archive.WithYieldEvery(deps.YieldEvery),
		archive.WithLogger(deps.Logger),
	)
	if err != nil {
		return fail(err)
	}
	defer src.Close()
	reporter.AddTotal(src.Len())

	// Verifying pass: decode and match every batch, keeping only counters.
	err = src.each(extractCtx, func(items []media.Item) error {
		reporter.AddBatch(matcher.Count(m.MatchAll(items)))
		return nil
	})
	if err != nil {
		return fail(err)
	}

	snap := reporter.Snapshot()
	logging.WithContext(extractCtx, logger).Info("extraction complete",
		logging.Int64("items", snap.Processed),
		logging.Int64("matched", snap.Matched),
		logging.Int64("unmatched", snap.Unmatched),
	)

	reporter.SetPhase(progress.PhaseUpload)
	coord := &upload.Coordinator{
		Assets:     deps.Assets,
		Records:    deps.Records,
		Cropper:    deps.Cropper,
		Background: deps.Background,
		BatchSize:  deps.UploadBatchSize,
		Reporter:   reporter,
		Metrics:    deps.Metrics,
		Logger:     deps.Logger,
	}
	// Upload pass: one extraction batch of content is live at a time.
	src.rewind()
	feed := func(ctx context.Context) ([]matcher.Match, error) {
		items, err := src.next(ctx)
		if err != nil {
			return nil, err
		}
		return m.MatchAll(items), nil
	}
	res, upErr := coord.Stream(ctx, runID, src.Len(), feed, upload.Options{
		Destination:      opts.Destination,
		RemoveBackground: opts.RemoveBackground,
		AutoCrop:         opts.AutoCrop,
		Profile:          crop.ProfileFromConfig(deps.Crop, opts.CropProfile, opts.CropWidth, opts.CropHeight),
		Gravity:          opts.CropGravity,
	})
	report.addUpload(res)
	if upErr != nil {
		return fail(upErr)
	}

	report.finish(reporter.Snapshot(), nil)
	reporter.SetPhase(progress.PhaseDone)
	deps.Metrics.RunFinished(report.Status(), report.Elapsed)

	done := logger.Info
	if len(report.Failures) > 0 {
		done = logger.Warn
	}
	done("ingest finished",
		logging.String(logging.FieldRunID, runID),
		logging.Int("total", report.Total),
		logging.Int("matched", report.Matched),
		logging.Int("unmatched", report.Unmatched),
		logging.Int("uploaded", report.Uploaded),
		logging.Int("failed", report.Failed),
		logging.Int("link_failed", report.LinkFailed),
		logging.Duration("elapsed", report.Elapsed),
		logging.Float64("items_per_second", report.Throughput),
	)
	return report, nil
}

func hintFor(err error) string {
	switch services.Kind(err) {
	case "archive":
		return "check that the upload is a valid ZIP file"
	case "image_load":
		return "check that every selected file is readable"
	case "canceled":
		return "re-run the ingest; linked records are kept"
	default:
		return "check logs for details"
	}
}

package upload

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"photodock/internal/assets"
	"photodock/internal/crop"
	"photodock/internal/logging"
	"photodock/internal/matcher"
	"photodock/internal/media"
	"photodock/internal/progress"
	"photodock/internal/records"
	"photodock/internal/services"
	"photodock/internal/textutil"
)

// DefaultBatchSize bounds concurrent uploads when BatchSize is unset.
const DefaultBatchSize = 10

// Options are the per-run transformation settings.
type Options struct {
	// Destination is the folder hint passed to the asset store.
	Destination string
	// RemoveBackground asks the Background transformer to cut out the
	// subject before upload. Failures keep the original content.
	RemoveBackground bool
	// AutoCrop crops locally with Profile and Gravity before upload.
	AutoCrop bool
	Profile  crop.Profile
	Gravity  string
}

func (o Options) transform() assets.TransformOptions {
	t := assets.TransformOptions{RemoveBackground: o.RemoveBackground, AutoCrop: o.AutoCrop}
	if o.AutoCrop {
		t.CropWidth = o.Profile.Width
		t.CropHeight = o.Profile.Height
		t.CropGravity = o.Gravity
		t.CropProfile = string(o.Profile.Kind)
	}
	return t
}

// Outcome is the per-item result. Success means the asset was uploaded; a
// successful upload whose write-back failed has Success set, Linked unset and
// Err wrapping services.ErrRecordWrite.
type Outcome struct {
	Filename     string
	RecordID     string
	Success      bool
	URL          string
	PublicID     string
	Linked       bool
	CropFallback bool
	CropReason   string
	Duration     time.Duration
	Err          error
}

// Kind returns the error taxonomy label, or "" for clean outcomes.
func (o Outcome) Kind() string {
	return services.Kind(o.Err)
}

// Result summarizes a Run.
type Result struct {
	Outcomes   []Outcome
	Uploaded   int
	Failed     int
	Linked     int
	LinkFailed int
	Batches    int
	Elapsed    time.Duration
	// Throughput is finished items per second.
	Throughput float64
}

// Coordinator uploads items and writes references back to records.
type Coordinator struct {
	Assets     assets.Store
	Records    records.Writer
	Cropper    *crop.Cropper
	Background assets.Transformer
	BatchSize  int
	Reporter   *progress.Reporter
	Metrics    *progress.Metrics
	Logger     *slog.Logger
}

// Feed yields the next chunk of matches, in order. It returns io.EOF once
// every chunk has been produced.
type Feed func(ctx context.Context) ([]matcher.Match, error)

// SliceFeed returns a Feed producing matches as a single chunk.
func SliceFeed(matches []matcher.Match) Feed {
	sent := false
	return func(context.Context) ([]matcher.Match, error) {
		if sent || len(matches) == 0 {
			return nil, io.EOF
		}
		sent = true
		return matches, nil
	}
}

// Run uploads every match. Outcomes keep the input order. The returned error
// is non-nil only when ctx ended before all batches started; Result then
// covers the batches that ran.
func (c *Coordinator) Run(ctx context.Context, runID string, matches []matcher.Match, opts Options) (Result, error) {
	return c.Stream(ctx, runID, len(matches), SliceFeed(matches), opts)
}

// Stream uploads the matches produced by feed, pulling the next chunk only
// after every batch of the previous one has joined. Only one chunk of
// content is referenced at a time. total seeds the upload progress counter.
// A feed error other than io.EOF stops the run and is returned.
func (c *Coordinator) Stream(ctx context.Context, runID string, total int, feed Feed, opts Options) (Result, error) {
	started := time.Now()
	size := c.batchSize()
	ctx = services.WithPhase(services.WithRunID(ctx, runID), string(progress.PhaseUpload))
	logger := logging.NewComponentLogger(c.Logger, "upload")

	c.Reporter.AddUploadTotal(total)
	var (
		outcomes []Outcome
		runErr   error
		batchNo  int
	)

feeding:
	for {
		if err := ctx.Err(); err != nil {
			runErr = err
			break
		}
		chunk, err := feed(ctx)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			runErr = err
			break
		}
		for start := 0; start < len(chunk); start += size {
			if err := ctx.Err(); err != nil {
				runErr = err
				break feeding
			}
			end := min(start+size, len(chunk))
			batchNo++
			outcomes = append(outcomes, c.runBatch(ctx, logger, runID, batchNo, chunk[start:end], opts)...)
		}
	}

	res := summarize(outcomes, time.Since(started))
	res.Batches = batchNo
	if runErr != nil && ctx.Err() != nil {
		logging.WarnWithContext(logging.WithContext(ctx, logger), "upload canceled between batches", "upload_canceled",
			logging.Int("completed", len(outcomes)),
			logging.Int("remaining", max(total-len(outcomes), 0)),
			logging.String(logging.FieldErrorHint, "re-run the remaining items"),
			logging.String(logging.FieldImpact, "items after the last finished batch were not uploaded"),
		)
	}
	return res, runErr
}

// runBatch fans batch out and joins it. The batch runs on a context detached
// from cancellation so a started batch always finishes.
func (c *Coordinator) runBatch(ctx context.Context, logger *slog.Logger, runID string, batchNo int, batch []matcher.Match, opts Options) []Outcome {
	batchCtx := services.WithBatch(context.WithoutCancel(ctx), batchNo)
	outcomes := make([]Outcome, len(batch))

	var g errgroup.Group
	g.SetLimit(len(batch))
	for i := range batch {
		g.Go(func() error {
			outcomes[i] = c.process(batchCtx, runID, batch[i], opts)
			return nil
		})
	}
	_ = g.Wait()

	uploaded, failed := 0, 0
	for _, o := range outcomes {
		if o.Success {
			uploaded++
		} else {
			failed++
		}
	}
	logging.WithContext(batchCtx, logger).Info("upload batch complete",
		logging.Int("items", len(batch)),
		logging.Int("uploaded", uploaded),
		logging.Int("failed", failed),
	)
	return outcomes
}

func summarize(outcomes []Outcome, elapsed time.Duration) Result {
	res := Result{Outcomes: outcomes, Elapsed: elapsed}
	for _, o := range outcomes {
		switch {
		case !o.Success:
			res.Failed++
		default:
			res.Uploaded++
			if o.Linked {
				res.Linked++
			} else if o.RecordID != "" && o.Err != nil {
				res.LinkFailed++
			}
		}
	}
	if secs := elapsed.Seconds(); secs > 0 {
		res.Throughput = float64(len(outcomes)) / secs
	}
	return res
}

func (c *Coordinator) process(ctx context.Context, runID string, m matcher.Match, opts Options) Outcome {
	started := time.Now()
	item := m.Item
	item.ContentType = media.ContentType(item.Filename)
	ctx = services.WithFilename(ctx, item.Filename)
	logger := logging.WithContext(ctx, logging.NewComponentLogger(c.Logger, "upload"))

	out := Outcome{Filename: m.Item.Filename, RecordID: m.RecordID}
	finish := func() Outcome {
		out.Duration = time.Since(started)
		status := "ok"
		switch {
		case !out.Success:
			status = "failed"
			c.Reporter.Failed()
		case out.Err != nil:
			status = "unlinked"
		}
		c.Metrics.ObserveUpload(status, out.Duration)
		c.Reporter.Publish()
		return out
	}

	if opts.AutoCrop {
		res, err := c.cropper().Crop(ctx, item, opts.Profile, opts.Gravity)
		if err != nil {
			out.Err = err
			logging.WarnWithContext(logger, "crop failed", "crop_failed",
				logging.Error(err),
				logging.String(logging.FieldErrorKind, services.Kind(err)),
				logging.String(logging.FieldErrorHint, "check that the file is a valid image"),
				logging.String(logging.FieldImpact, "item was not uploaded"),
			)
			return finish()
		}
		item.Content = res.Content
		item.ContentType = res.ContentType
		item.Filename = res.Filename
		out.CropFallback = res.Fallback
		out.CropReason = res.Reason
		if res.Fallback {
			c.Reporter.CropFallback()
		}
	}

	if opts.RemoveBackground && c.Background != nil {
		content, contentType, err := c.Background.RemoveBackground(ctx, item.Content, item.ContentType)
		if err != nil {
			logging.WarnWithContext(logger, "background removal failed; uploading original", "background_removal_failed",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check the background service"),
				logging.String(logging.FieldImpact, "photo keeps its original background"),
			)
		} else {
			item.Content = content
			item.ContentType = contentType
			item.Filename = swapExtension(item.Filename, contentType)
		}
	}

	asset, err := c.Assets.Upload(ctx, assets.UploadRequest{
		Content:     item.Content,
		ContentType: item.ContentType,
		Filename:    item.Filename,
		Destination: opts.Destination,
		RecordID:    m.RecordID,
		RunID:       runID,
		Transform:   opts.transform(),
	})
	if err != nil {
		out.Err = services.Wrap(services.ErrUpload, "upload", "put", item.Filename, err)
		logging.WarnWithContext(logger, "upload failed", "upload_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorKind, services.Kind(out.Err)),
			logging.String(logging.FieldErrorHint, "re-submit this file after checking the asset store"),
			logging.String(logging.FieldImpact, "item was not uploaded"),
		)
		return finish()
	}
	out.Success = true
	out.URL = asset.URL
	out.PublicID = asset.PublicID
	c.Reporter.Uploaded()

	if m.RecordID == "" || c.Records == nil {
		return finish()
	}
	if err := c.Records.UpdatePhotoReference(ctx, m.RecordID, asset.URL, asset.PublicID); err != nil {
		out.Err = services.Wrap(services.ErrRecordWrite, "upload", "write back", m.RecordID, err)
		c.Reporter.LinkFailed()
		logging.WarnWithContext(logger, "record write-back failed", "record_write_failed",
			logging.Error(err),
			logging.String(logging.FieldRecordID, m.RecordID),
			logging.String("public_id", asset.PublicID),
			logging.String(logging.FieldErrorHint, "link the asset manually or run `photodock runs cleanup`"),
			logging.String(logging.FieldImpact, "asset uploaded but not linked to its record"),
		)
		return finish()
	}
	out.Linked = true
	c.Reporter.Linked()
	logger.Debug("item linked",
		logging.String(logging.FieldRecordID, m.RecordID),
		logging.String("public_id", asset.PublicID),
	)
	return finish()
}

func (c *Coordinator) cropper() *crop.Cropper {
	if c.Cropper != nil {
		return c.Cropper
	}
	return &crop.Cropper{Logger: c.Logger}
}

func (c *Coordinator) batchSize() int {
	if c.BatchSize > 0 {
		return c.BatchSize
	}
	return DefaultBatchSize
}

func swapExtension(name, contentType string) string {
	want := media.ExtensionFor(contentType)
	if strings.EqualFold("."+textutil.Extension(name), want) {
		return name
	}
	return textutil.StripExtension(name) + want
}

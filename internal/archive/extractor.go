package archive

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"runtime"
	"strings"

	"photodock/internal/logging"
	"photodock/internal/media"
	"photodock/internal/services"
)

const (
	// DefaultBatchSize bounds how many decoded entries are held at once.
	DefaultBatchSize = 500
	// DefaultYieldEvery yields after every batch.
	DefaultYieldEvery = 1

	metadataPrefix = "__MACOSX/"
)

// Option customizes an Extractor.
type Option func(*Extractor)

// WithBatchSize overrides the number of entries materialized per batch.
func WithBatchSize(n int) Option {
	return func(e *Extractor) {
		if n > 0 {
			e.batchSize = n
		}
	}
}

// WithYieldEvery yields after every n batches in Each.
func WithYieldEvery(n int) Option {
	return func(e *Extractor) {
		if n > 0 {
			e.yieldEvery = n
		}
	}
}

// WithYield replaces the yield hook (runtime.Gosched by default).
func WithYield(fn func()) Option {
	return func(e *Extractor) {
		if fn != nil {
			e.yield = fn
		}
	}
}

// WithLogger attaches a logger for per-batch debug output.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Extractor) {
		e.logger = logger
	}
}

// Extractor yields media items from a ZIP container in batches. It is not
// safe for concurrent use.
type Extractor struct {
	entries    []*zip.File
	closer     io.Closer
	pos        int
	batches    int
	err        error
	batchSize  int
	yieldEvery int
	yield      func()
	logger     *slog.Logger
}

// Open parses the ZIP central directory from r. A corrupt container yields an
// error wrapping services.ErrArchive and no items.
func Open(r io.ReaderAt, size int64, opts ...Option) (*Extractor, error) {
	zr, err := zip.NewReader(r, size)
	if err != nil {
		return nil, services.Wrap(services.ErrArchive, "extract", "open archive", "unreadable zip container", err)
	}
	return newExtractor(zr, nil, opts), nil
}

// OpenBytes is Open over an in-memory archive.
func OpenBytes(data []byte, opts ...Option) (*Extractor, error) {
	return Open(bytes.NewReader(data), int64(len(data)), opts...)
}

// OpenFile opens the archive at path. Callers must Close the extractor.
func OpenFile(path string, opts ...Option) (*Extractor, error) {
	rc, err := zip.OpenReader(path)
	if err != nil {
		return nil, services.Wrap(services.ErrArchive, "extract", "open archive", path, err)
	}
	return newExtractor(&rc.Reader, rc, opts), nil
}

func newExtractor(zr *zip.Reader, closer io.Closer, opts []Option) *Extractor {
	e := &Extractor{
		closer:     closer,
		batchSize:  DefaultBatchSize,
		yieldEvery: DefaultYieldEvery,
		yield:      runtime.Gosched,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.logger == nil {
		e.logger = logging.NewNop()
	}
	e.entries = make([]*zip.File, 0, len(zr.File))
	for _, file := range zr.File {
		if Accept(file.Name, file.FileInfo().IsDir()) {
			e.entries = append(e.entries, file)
		}
	}
	return e
}

// Accept reports whether an archive entry should become a media item.
func Accept(name string, isDir bool) bool {
	if isDir || strings.HasSuffix(name, "/") {
		return false
	}
	clean := strings.TrimPrefix(strings.ReplaceAll(name, `\`, "/"), "./")
	if strings.HasPrefix(clean, metadataPrefix) {
		return false
	}
	return media.IsSupported(clean)
}

// Len reports the number of accepted entries in the archive.
func (e *Extractor) Len() int { return len(e.entries) }

// Close releases the underlying file when the extractor was opened from disk.
func (e *Extractor) Close() error {
	if e.closer == nil {
		return nil
	}
	err := e.closer.Close()
	e.closer = nil
	return err
}

// Reset restarts extraction from the first entry.
func (e *Extractor) Reset() {
	e.pos = 0
	e.batches = 0
	e.err = nil
}

// Next decodes the next batch. It returns io.EOF once all entries have been
// produced. After a decompression failure every call returns the same error
// until Reset.
func (e *Extractor) Next(ctx context.Context) ([]media.Item, error) {
	if e.err != nil {
		return nil, e.err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if e.pos >= len(e.entries) {
		return nil, io.EOF
	}

	end := min(e.pos+e.batchSize, len(e.entries))
	items := make([]media.Item, 0, end-e.pos)
	for _, file := range e.entries[e.pos:end] {
		content, err := readEntry(file)
		if err != nil {
			e.err = services.Wrap(services.ErrArchive, "extract", "decompress entry", file.Name, err)
			return nil, e.err
		}
		items = append(items, media.NewItem(file.Name, content))
	}
	e.pos = end
	e.batches++
	e.logger.Debug("archive batch decoded",
		logging.Int(logging.FieldBatch, e.batches),
		logging.Int("items", len(items)),
		logging.Int("remaining", len(e.entries)-e.pos),
	)
	return items, nil
}

// Each drives every remaining batch through fn, yielding after every
// configured number of batches. Context cancellation is observed between
// batches.
func (e *Extractor) Each(ctx context.Context, fn func([]media.Item) error) error {
	for {
		items, err := e.Next(ctx)
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		if err := fn(items); err != nil {
			return err
		}
		if e.batches%e.yieldEvery == 0 {
			e.yield()
		}
	}
}

// All drains the extractor into a single slice.
func (e *Extractor) All(ctx context.Context) ([]media.Item, error) {
	out := make([]media.Item, 0, len(e.entries))
	err := e.Each(ctx, func(items []media.Item) error {
		out = append(out, items...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func readEntry(file *zip.File) ([]byte, error) {
	rc, err := file.Open()
	if err != nil {
		return nil, fmt.Errorf("open entry: %w", err)
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("read entry: %w", err)
	}
	return data, nil
}

package ingest

import (
	"context"
	"io"
	"path/filepath"

	"photodock/internal/archive"
	"photodock/internal/media"
)

// Source is either a ZIP archive (on disk or in memory) or a list of files.
type Source struct {
	ArchivePath string
	Archive     io.ReaderAt
	ArchiveSize int64
	Files       []string
}

// ArchiveFile returns a Source reading the ZIP at path.
func ArchiveFile(path string) Source { return Source{ArchivePath: path} }

// ArchiveReader returns a Source reading an in-memory or remote ZIP.
func ArchiveReader(r io.ReaderAt, size int64) Source {
	return Source{Archive: r, ArchiveSize: size}
}

// Files returns a Source reading the given image paths directly.
func Files(paths ...string) Source { return Source{Files: paths} }

// Describe returns a short label for logs and run history.
func (s Source) Describe() string {
	switch {
	case s.ArchivePath != "":
		return filepath.Base(s.ArchivePath)
	case s.Archive != nil:
		return "archive"
	case len(s.Files) == 1:
		return filepath.Base(s.Files[0])
	case len(s.Files) > 1:
		return filepath.Base(s.Files[0]) + " (+more)"
	default:
		return ""
	}
}

func (s Source) isArchive() bool {
	return s.ArchivePath != "" || s.Archive != nil
}

func (s Source) open(opts ...archive.Option) (*archive.Extractor, error) {
	if s.ArchivePath != "" {
		return archive.OpenFile(s.ArchivePath, opts...)
	}
	return archive.Open(s.Archive, s.ArchiveSize, opts...)
}

// reader walks a source twice: a verifying pass that counts and matches
// every entry, then an upload pass that decodes the entries again one batch
// at a time. File selections are read once and kept as a single batch.
type reader struct {
	ex    *archive.Extractor
	files []media.Item
	sent  bool
}

func (s Source) openReader(opts ...archive.Option) (*reader, error) {
	if !s.isArchive() {
		items, err := archive.FromFiles(s.Files)
		if err != nil {
			return nil, err
		}
		return &reader{files: items}, nil
	}
	ex, err := s.open(opts...)
	if err != nil {
		return nil, err
	}
	return &reader{ex: ex}, nil
}

func (r *reader) Len() int {
	if r.ex != nil {
		return r.ex.Len()
	}
	return len(r.files)
}

func (r *reader) Close() error {
	if r.ex != nil {
		return r.ex.Close()
	}
	return nil
}

// each drives fn over every batch of the verifying pass. Batches are not
// retained, so a decompression failure surfaces here before any upload.
func (r *reader) each(ctx context.Context, fn func([]media.Item) error) error {
	if r.ex != nil {
		return r.ex.Each(ctx, fn)
	}
	if len(r.files) == 0 {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return fn(r.files)
}

// rewind restarts the source for the upload pass.
func (r *reader) rewind() {
	if r.ex != nil {
		r.ex.Reset()
	}
	r.sent = false
}

// next returns the next batch of the upload pass, or io.EOF.
func (r *reader) next(ctx context.Context) ([]media.Item, error) {
	if r.ex != nil {
		return r.ex.Next(ctx)
	}
	if r.sent || len(r.files) == 0 {
		return nil, io.EOF
	}
	r.sent = true
	return r.files, nil
}

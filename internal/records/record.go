package records

import (
	"context"
	"slices"
	"strings"
)

// Record is one data-entry unit (for example one student) that may receive a
// photo.
type Record struct {
	ID            string
	Fields        map[string]string
	PhotoURL      string
	PhotoPublicID string
}

// Field returns the trimmed value of name, or "" when absent.
func (r Record) Field(name string) string {
	return strings.TrimSpace(r.Fields[name])
}

// HasPhoto reports whether a photo reference has been written back.
func (r Record) HasPhoto() bool {
	return r.PhotoURL != "" || r.PhotoPublicID != ""
}

// FieldNames returns the record's field names in sorted order.
func (r Record) FieldNames() []string {
	names := make([]string, 0, len(r.Fields))
	for k := range r.Fields {
		names = append(names, k)
	}
	slices.Sort(names)
	return names
}

// Filter narrows List results. Zero value lists everything.
type Filter struct {
	// IDs restricts results to the given identifiers.
	IDs []string
	// MissingPhoto restricts results to records without a photo reference.
	MissingPhoto bool
	// Limit caps the number of results when positive.
	Limit int
}

// Lister lists records for indexing.
type Lister interface {
	List(ctx context.Context, filter Filter) ([]Record, error)
}

// Writer stores a photo reference against a record.
type Writer interface {
	UpdatePhotoReference(ctx context.Context, id, url, publicID string) error
}

// Store is the full record store contract consumed by the pipeline.
type Store interface {
	Lister
	Writer
}

// Importer upserts records; used by ImportCSV.
type Importer interface {
	Upsert(ctx context.Context, recs []Record) (int, error)
}

package testsupport

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"photodock/internal/assets"
	"photodock/internal/records"
	"photodock/internal/services"
)

// ErrInjected is returned by fakes configured to fail.
var ErrInjected = errors.New("injected failure")

// FakeAssetStore records uploads in memory and tracks peak concurrency.
type FakeAssetStore struct {
	// FailEvery fails every Nth Upload call (1-based) when positive.
	FailEvery int
	// Delay holds each Upload so concurrent calls overlap.
	Delay time.Duration

	mu          sync.Mutex
	calls       int
	inFlight    int
	maxInFlight int
	uploads     []assets.UploadRequest
	deleted     []string
}

// Upload implements assets.Store.
func (f *FakeAssetStore) Upload(ctx context.Context, req assets.UploadRequest) (assets.Asset, error) {
	f.mu.Lock()
	f.calls++
	call := f.calls
	f.inFlight++
	if f.inFlight > f.maxInFlight {
		f.maxInFlight = f.inFlight
	}
	f.mu.Unlock()

	defer func() {
		f.mu.Lock()
		f.inFlight--
		f.mu.Unlock()
	}()

	if f.Delay > 0 {
		select {
		case <-time.After(f.Delay):
		case <-ctx.Done():
			return assets.Asset{}, ctx.Err()
		}
	}
	if f.FailEvery > 0 && call%f.FailEvery == 0 {
		return assets.Asset{}, fmt.Errorf("upload call %d: %w", call, ErrInjected)
	}

	key := assets.ObjectKey(req)
	f.mu.Lock()
	f.uploads = append(f.uploads, req)
	f.mu.Unlock()
	return assets.Asset{URL: "https://assets.test/" + key, PublicID: key, Size: int64(len(req.Content))}, nil
}

// Delete implements assets.Store.
func (f *FakeAssetStore) Delete(_ context.Context, publicID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, publicID)
	return nil
}

// Calls returns the number of Upload invocations.
func (f *FakeAssetStore) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// MaxInFlight returns the peak number of concurrent Upload calls.
func (f *FakeAssetStore) MaxInFlight() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.maxInFlight
}

// Uploads returns the successful upload requests.
func (f *FakeAssetStore) Uploads() []assets.UploadRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]assets.UploadRequest(nil), f.uploads...)
}

// Deleted returns the public ids passed to Delete.
func (f *FakeAssetStore) Deleted() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.deleted...)
}

// FakeRecords is an in-memory records.Store.
type FakeRecords struct {
	// FailIDs makes UpdatePhotoReference fail for the listed ids.
	FailIDs map[string]bool

	mu      sync.Mutex
	records []records.Record
	writes  int
}

// NewFakeRecords seeds the store with recs.
func NewFakeRecords(recs ...records.Record) *FakeRecords {
	return &FakeRecords{records: append([]records.Record(nil), recs...)}
}

// List implements records.Lister. Only Filter.IDs and Limit are honored.
func (f *FakeRecords) List(_ context.Context, filter records.Filter) ([]records.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	want := map[string]bool{}
	for _, id := range filter.IDs {
		want[id] = true
	}
	var out []records.Record
	for _, rec := range f.records {
		if len(want) > 0 && !want[rec.ID] {
			continue
		}
		if filter.MissingPhoto && rec.HasPhoto() {
			continue
		}
		out = append(out, rec)
		if filter.Limit > 0 && len(out) == filter.Limit {
			break
		}
	}
	return out, nil
}

// UpdatePhotoReference implements records.Writer.
func (f *FakeRecords) UpdatePhotoReference(_ context.Context, id, url, publicID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.writes++
	if f.FailIDs[id] {
		return fmt.Errorf("write %s: %w", id, ErrInjected)
	}
	for i := range f.records {
		if f.records[i].ID == id {
			f.records[i].PhotoURL = url
			f.records[i].PhotoPublicID = publicID
			return nil
		}
	}
	return services.Wrap(services.ErrNotFound, "records", "update photo", id, nil)
}

// Writes returns the number of UpdatePhotoReference calls.
func (f *FakeRecords) Writes() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.writes
}

// Get returns the stored record with id.
func (f *FakeRecords) Get(id string) (records.Record, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, rec := range f.records {
		if rec.ID == id {
			return rec, true
		}
	}
	return records.Record{}, false
}

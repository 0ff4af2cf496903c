package ingest_test

import (
	"bytes"
	"context"
	"fmt"
	"runtime"
	"sync"
	"testing"

	"photodock/internal/assets"
	"photodock/internal/config"
	"photodock/internal/ingest"
	"photodock/internal/testsupport"
)

// heapSamplingStore discards uploads and records the live heap every few
// calls, after a forced GC.
type heapSamplingStore struct {
	every int

	mu    sync.Mutex
	calls int
	peak  uint64
}

func (s *heapSamplingStore) Upload(_ context.Context, req assets.UploadRequest) (assets.Asset, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.calls == 1 || s.calls%s.every == 0 {
		runtime.GC()
		var ms runtime.MemStats
		runtime.ReadMemStats(&ms)
		s.peak = max(s.peak, ms.HeapAlloc)
	}
	id := fmt.Sprintf("asset-%d", s.calls)
	return assets.Asset{URL: "mem://" + id, PublicID: id, Size: int64(len(req.Content))}, nil
}

func (s *heapSamplingStore) Delete(context.Context, string) error { return nil }

func TestUploadPassHoldsOneExtractionBatch(t *testing.T) {
	if testing.Short() {
		t.Skip("writes a 40 MiB archive")
	}
	const (
		entries   = 160
		entrySize = 256 << 10
		batch     = 10
	)
	payload := bytes.Repeat([]byte{0xAB}, entrySize)
	zipEntries := make([]testsupport.ZipEntry, 0, entries)
	for i := range entries {
		zipEntries = append(zipEntries, testsupport.ZipEntry{Name: fmt.Sprintf("%03d.jpg", i), Content: payload})
	}
	path := testsupport.WriteZip(t, t.TempDir(), "cohort.zip", zipEntries...)

	store := &heapSamplingStore{every: 10}
	deps := ingest.Deps{
		Assets:           store,
		CandidateFields:  []string{"roll_no"},
		ExtractBatchSize: batch,
		UploadBatchSize:  5,
		Crop:             config.Default().Crop,
	}

	runtime.GC()
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	baseline := ms.HeapAlloc

	report, err := ingest.Run(context.Background(), deps, ingest.ArchiveFile(path), nil, ingest.Options{})
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if report.Uploaded != entries {
		t.Fatalf("expected %d uploads, got %d", entries, report.Uploaded)
	}

	var grown uint64
	if store.peak > baseline {
		grown = store.peak - baseline
	}
	const limit = 12 << 20 // one batch is 2.5 MiB; the archive is 40 MiB
	if grown > limit {
		t.Fatalf("heap grew %.1f MiB during upload, want under %d MiB", float64(grown)/(1<<20), limit>>20)
	}
}

package ingest_test

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"testing"

	"photodock/internal/config"
	"photodock/internal/ingest"
	"photodock/internal/progress"
	"photodock/internal/records"
	"photodock/internal/services"
	"photodock/internal/testsupport"
)

func scenarioRecords() []records.Record {
	return []records.Record{
		{ID: "A", Fields: map[string]string{"roll_no": "101"}},
		{ID: "B", Fields: map[string]string{"roll_no": "102"}},
	}
}

func scenarioArchive(t *testing.T) ingest.Source {
	t.Helper()
	data := testsupport.Zip(t,
		testsupport.ZipEntry{Name: "101.jpg", Content: []byte("a")},
		testsupport.ZipEntry{Name: "batch/102.JPG", Content: []byte("b")},
		testsupport.ZipEntry{Name: "unknown.png", Content: []byte("c")},
		testsupport.ZipEntry{Name: "__MACOSX/._101.jpg", Content: []byte("junk")},
		testsupport.ZipEntry{Name: "notes.txt", Content: []byte("skip")},
	)
	return ingest.ArchiveReader(bytes.NewReader(data), int64(len(data)))
}

func newDeps(store *testsupport.FakeAssetStore, recs *testsupport.FakeRecords, observers ...progress.Observer) ingest.Deps {
	cfg := config.Default()
	return ingest.Deps{
		Assets:          store,
		Records:         recs,
		Observers:       observers,
		CandidateFields: []string{"photo", "roll_no"},
		UploadBatchSize: 2,
		Crop:            cfg.Crop,
	}
}

func TestRunMatchesUploadsAndLinks(t *testing.T) {
	recs := scenarioRecords()
	writer := testsupport.NewFakeRecords(recs...)
	store := &testsupport.FakeAssetStore{}

	report, err := ingest.Run(context.Background(), newDeps(store, writer), scenarioArchive(t), recs, ingest.Options{RunID: "run-1", Destination: "cards"})
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if report.Total != 3 || report.Matched != 2 || report.Unmatched != 1 {
		t.Fatalf("unexpected match counters: %+v", report)
	}
	if report.Uploaded != 3 || report.Linked != 2 || report.Failed != 0 {
		t.Fatalf("unexpected upload counters: %+v", report)
	}
	if report.Status() != ingest.StatusOK || len(report.Failures) != 0 {
		t.Fatalf("expected clean run, got %s %+v", report.Status(), report.Failures)
	}

	byName := map[string]string{}
	for _, o := range report.Outcomes {
		byName[o.Filename] = o.RecordID
	}
	if byName["101.jpg"] != "A" || byName["batch/102.JPG"] != "B" || byName["unknown.png"] != "" {
		t.Fatalf("unexpected matches: %v", byName)
	}
	for _, id := range []string{"A", "B"} {
		if rec, _ := writer.Get(id); !rec.HasPhoto() {
			t.Fatalf("expected record %s to be linked", id)
		}
	}
	if report.IndexSize != 2 || report.RunID != "run-1" {
		t.Fatalf("unexpected report header: %+v", report)
	}
}

func TestFastModeSkipsMatching(t *testing.T) {
	recs := scenarioRecords()
	writer := testsupport.NewFakeRecords(recs...)
	store := &testsupport.FakeAssetStore{}

	report, err := ingest.Run(context.Background(), newDeps(store, writer), scenarioArchive(t), recs, ingest.Options{FastMode: true})
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if report.Matched != 0 || report.Unmatched != 3 || report.Uploaded != 3 {
		t.Fatalf("unexpected counters in fast mode: %+v", report)
	}
	if writer.Writes() != 0 {
		t.Fatalf("expected no write-backs in fast mode, got %d", writer.Writes())
	}
	if report.RunID == "" {
		t.Fatal("expected generated run id")
	}
}

func TestCorruptArchiveAbortsBeforeUpload(t *testing.T) {
	store := &testsupport.FakeAssetStore{}
	data := []byte("definitely not a zip")
	src := ingest.ArchiveReader(bytes.NewReader(data), int64(len(data)))

	report, err := ingest.Run(context.Background(), newDeps(store, testsupport.NewFakeRecords()), src, nil, ingest.Options{})
	if !errors.Is(err, services.ErrArchive) {
		t.Fatalf("expected ErrArchive, got %v", err)
	}
	if store.Calls() != 0 {
		t.Fatalf("expected no uploads, got %d", store.Calls())
	}
	if report == nil || report.Status() != ingest.StatusFailed || report.Error == "" {
		t.Fatalf("expected failed report, got %+v", report)
	}
}

func TestEmptySourceRejected(t *testing.T) {
	_, err := ingest.Run(context.Background(), newDeps(&testsupport.FakeAssetStore{}, testsupport.NewFakeRecords()), ingest.Source{}, nil, ingest.Options{})
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestProgressSnapshotsPerExtractionBatch(t *testing.T) {
	recs := scenarioRecords()
	var snaps []progress.Snapshot
	obs := progress.ObserverFunc(func(s progress.Snapshot) { snaps = append(snaps, s) })
	deps := newDeps(&testsupport.FakeAssetStore{}, testsupport.NewFakeRecords(recs...), obs)
	deps.ExtractBatchSize = 1
	deps.UploadBatchSize = 1

	if _, err := ingest.Run(context.Background(), deps, scenarioArchive(t), recs, ingest.Options{}); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	var extract []int64
	for _, s := range snaps {
		if s.Phase == progress.PhaseExtract {
			extract = append(extract, s.Processed)
		}
	}
	if len(extract) != 3 || extract[0] != 1 || extract[2] != 3 {
		t.Fatalf("expected one snapshot per extraction batch, got %v", extract)
	}
	last := snaps[len(snaps)-1]
	if last.Phase != progress.PhaseDone || last.Uploaded != 3 || last.Percent != 100 {
		t.Fatalf("unexpected final snapshot: %+v", last)
	}
}

func TestFailuresReportedPerItem(t *testing.T) {
	recs := scenarioRecords()
	writer := testsupport.NewFakeRecords(recs...)
	writer.FailIDs = map[string]bool{"B": true}
	store := &testsupport.FakeAssetStore{FailEvery: 3}
	deps := newDeps(store, writer)
	deps.UploadBatchSize = 1

	report, err := ingest.Run(context.Background(), deps, scenarioArchive(t), recs, ingest.Options{})
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if report.Status() != ingest.StatusPartial {
		t.Fatalf("expected partial status, got %s", report.Status())
	}
	kinds := map[string]string{}
	for _, f := range report.Failures {
		kinds[f.Filename] = f.Kind
	}
	if kinds["unknown.png"] != "upload" || kinds["batch/102.JPG"] != "record_write" || len(kinds) != 2 {
		t.Fatalf("unexpected failures: %+v", report.Failures)
	}
	unlinked := report.Unlinked()
	if len(unlinked) != 1 || unlinked[0].RecordID != "B" || unlinked[0].PublicID == "" {
		t.Fatalf("expected one unlinked asset for B, got %+v", unlinked)
	}
}

func TestFileSelectionWithAutoCrop(t *testing.T) {
	dir := t.TempDir()
	jpg := filepath.Join(dir, "101.jpg")
	png := filepath.Join(dir, "102.png")
	testsupport.WriteFile(t, jpg, testsupport.JPEG(t, 600, 800))
	testsupport.WriteFile(t, png, testsupport.PNG(t, 500, 500))

	recs := scenarioRecords()
	writer := testsupport.NewFakeRecords(recs...)
	store := &testsupport.FakeAssetStore{}

	opts := ingest.Options{AutoCrop: true, CropWidth: 300, CropHeight: 400, CropGravity: config.GravityFace, CropProfile: config.ProfilePassport}
	report, err := ingest.Run(context.Background(), newDeps(store, writer), ingest.Files(jpg, png, filepath.Join(dir, "skip.gif")), recs, opts)
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if report.Total != 2 || report.Linked != 2 || report.CropFallbacks != 2 {
		t.Fatalf("unexpected counters: %+v", report)
	}

	_, err = ingest.Run(context.Background(), newDeps(store, writer), ingest.Files(filepath.Join(dir, "missing.jpg")), recs, opts)
	if !errors.Is(err, services.ErrImageLoad) {
		t.Fatalf("expected ErrImageLoad for unreadable file, got %v", err)
	}
}

func TestCanceledContextStopsBeforeUpload(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	store := &testsupport.FakeAssetStore{}

	report, err := ingest.Run(ctx, newDeps(store, testsupport.NewFakeRecords()), scenarioArchive(t), nil, ingest.Options{})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if store.Calls() != 0 || report.Status() != ingest.StatusFailed {
		t.Fatalf("expected no uploads and failed status, calls=%d status=%s", store.Calls(), report.Status())
	}
}

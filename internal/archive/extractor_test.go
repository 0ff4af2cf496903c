package archive_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"testing"

	"photodock/internal/archive"
	"photodock/internal/media"
	"photodock/internal/services"
	"photodock/internal/testsupport"
)

func TestExtractorFiltersEntries(t *testing.T) {
	data := testsupport.Zip(t,
		testsupport.ZipEntry{Name: "class/"},
		testsupport.ZipEntry{Name: "class/101.jpg", Content: []byte("a")},
		testsupport.ZipEntry{Name: "class/102.JPG", Content: []byte("b")},
		testsupport.ZipEntry{Name: "__MACOSX/class/._101.jpg", Content: []byte("x")},
		testsupport.ZipEntry{Name: "class/readme.txt", Content: []byte("x")},
		testsupport.ZipEntry{Name: "unknown.png", Content: []byte("c")},
		testsupport.ZipEntry{Name: "photo.webp", Content: []byte("d")},
	)

	ext, err := archive.OpenBytes(data)
	if err != nil {
		t.Fatalf("OpenBytes: %v", err)
	}
	if ext.Len() != 4 {
		t.Fatalf("expected 4 accepted entries, got %d", ext.Len())
	}

	items, err := ext.All(context.Background())
	if err != nil {
		t.Fatalf("All: %v", err)
	}
	got := make([]string, 0, len(items))
	for _, item := range items {
		got = append(got, item.Filename)
	}
	want := []string{"class/101.jpg", "class/102.JPG", "unknown.png", "photo.webp"}
	if fmt.Sprint(got) != fmt.Sprint(want) {
		t.Fatalf("unexpected entries: got %v want %v", got, want)
	}
	if items[2].ContentType != media.ContentTypePNG || string(items[1].Content) != "b" {
		t.Fatalf("unexpected item contents: %+v", items)
	}
}

func TestExtractorBatchesAndResets(t *testing.T) {
	entries := make([]testsupport.ZipEntry, 0, 7)
	for i := range 7 {
		entries = append(entries, testsupport.ZipEntry{Name: fmt.Sprintf("%03d.jpg", i), Content: []byte{byte(i)}})
	}
	ext, err := archive.OpenBytes(testsupport.Zip(t, entries...), archive.WithBatchSize(3))
	if err != nil {
		t.Fatalf("OpenBytes: %v", err)
	}

	ctx := context.Background()
	var sizes []int
	for {
		batch, err := ext.Next(ctx)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			t.Fatalf("Next: %v", err)
		}
		sizes = append(sizes, len(batch))
	}
	if fmt.Sprint(sizes) != "[3 3 1]" {
		t.Fatalf("unexpected batch sizes %v", sizes)
	}
	if _, err := ext.Next(ctx); !errors.Is(err, io.EOF) {
		t.Fatalf("expected io.EOF after exhaustion, got %v", err)
	}

	ext.Reset()
	batch, err := ext.Next(ctx)
	if err != nil || len(batch) != 3 || batch[0].Filename != "000.jpg" {
		t.Fatalf("expected restart from first entry, got %v %v", batch, err)
	}
}

func TestEachYieldsBetweenBatches(t *testing.T) {
	entries := make([]testsupport.ZipEntry, 0, 10)
	for i := range 10 {
		entries = append(entries, testsupport.ZipEntry{Name: fmt.Sprintf("%d.png", i), Content: []byte{1}})
	}
	yields := 0
	ext, err := archive.OpenBytes(testsupport.Zip(t, entries...),
		archive.WithBatchSize(2),
		archive.WithYieldEvery(2),
		archive.WithYield(func() { yields++ }),
	)
	if err != nil {
		t.Fatalf("OpenBytes: %v", err)
	}

	batches := 0
	if err := ext.Each(context.Background(), func(items []media.Item) error {
		batches++
		return nil
	}); err != nil {
		t.Fatalf("Each: %v", err)
	}
	if batches != 5 {
		t.Fatalf("expected 5 batches, got %d", batches)
	}
	if yields != 2 {
		t.Fatalf("expected 2 yields (after batches 2 and 4), got %d", yields)
	}
}

func TestEachStopsOnCancellation(t *testing.T) {
	data := testsupport.Zip(t,
		testsupport.ZipEntry{Name: "a.jpg", Content: []byte{1}},
		testsupport.ZipEntry{Name: "b.jpg", Content: []byte{1}},
	)
	ext, err := archive.OpenBytes(data, archive.WithBatchSize(1))
	if err != nil {
		t.Fatalf("OpenBytes: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	seen := 0
	err = ext.Each(ctx, func(items []media.Item) error {
		seen++
		cancel()
		return nil
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if seen != 1 {
		t.Fatalf("expected cancellation between batches after 1 batch, got %d", seen)
	}
}

func TestOpenCorruptArchive(t *testing.T) {
	_, err := archive.OpenBytes([]byte("definitely not a zip"))
	if !errors.Is(err, services.ErrArchive) {
		t.Fatalf("expected ErrArchive, got %v", err)
	}
}

func TestCorruptEntryFailsWholeExtraction(t *testing.T) {
	data := testsupport.Zip(t,
		testsupport.ZipEntry{Name: "a.jpg", Content: []byte("first photo payload")},
		testsupport.ZipEntry{Name: "b.jpg", Content: []byte("second photo payload")},
	)
	// Flip a byte inside the first entry's stored data so its CRC no longer matches.
	idx := indexOf(data, []byte("first photo payload"))
	if idx < 0 {
		t.Fatal("fixture payload not found")
	}
	data[idx] ^= 0xFF

	ext, err := archive.OpenBytes(data)
	if err != nil {
		t.Fatalf("OpenBytes: %v", err)
	}
	items, err := ext.Next(context.Background())
	if !errors.Is(err, services.ErrArchive) {
		t.Fatalf("expected ErrArchive, got %v", err)
	}
	if items != nil {
		t.Fatalf("expected no partial items, got %d", len(items))
	}
	if _, err := ext.Next(context.Background()); !errors.Is(err, services.ErrArchive) {
		t.Fatalf("expected sticky ErrArchive, got %v", err)
	}
}

func TestOpenFileAndFromFiles(t *testing.T) {
	dir := t.TempDir()
	path := testsupport.WriteZip(t, dir, "photos.zip", testsupport.ZipEntry{Name: "x.jpeg", Content: []byte{1}})
	ext, err := archive.OpenFile(path)
	if err != nil {
		t.Fatalf("OpenFile: %v", err)
	}
	if ext.Len() != 1 {
		t.Fatalf("expected 1 entry, got %d", ext.Len())
	}
	if err := ext.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	photo := filepath.Join(dir, "101.JPG")
	if err := os.WriteFile(photo, []byte("jpg"), 0o644); err != nil {
		t.Fatalf("write photo: %v", err)
	}
	notes := filepath.Join(dir, "notes.txt")
	if err := os.WriteFile(notes, []byte("x"), 0o644); err != nil {
		t.Fatalf("write notes: %v", err)
	}
	items, err := archive.FromFiles([]string{photo, notes})
	if err != nil {
		t.Fatalf("FromFiles: %v", err)
	}
	if len(items) != 1 || items[0].Filename != photo || items[0].ContentType != media.ContentTypeJPEG {
		t.Fatalf("unexpected items %+v", items)
	}

	if _, err := archive.FromFiles([]string{filepath.Join(dir, "missing.png")}); !errors.Is(err, services.ErrImageLoad) {
		t.Fatalf("expected ErrImageLoad for missing file, got %v", err)
	}
}

func indexOf(haystack, needle []byte) int {
	for i := 0; i+len(needle) <= len(haystack); i++ {
		if string(haystack[i:i+len(needle)]) == string(needle) {
			return i
		}
	}
	return -1
}

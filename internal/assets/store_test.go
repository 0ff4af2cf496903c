package assets_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"photodock/internal/assets"
	"photodock/internal/config"
	"photodock/internal/media"
	"photodock/internal/services"
	"photodock/internal/testsupport"
)

func TestObjectKeyLayout(t *testing.T) {
	matched := assets.ObjectKey(assets.UploadRequest{
		Filename:    "Class 5/Alice Smith.webp",
		ContentType: media.ContentTypePNG,
		Destination: "/cards//2026 batch/",
		RecordID:    "A-1",
	})
	if !regexp.MustCompile(`^cards/2026 batch/a-1/alice_smith-[0-9a-f]{8}\.png$`).MatchString(matched) {
		t.Fatalf("unexpected matched key %q", matched)
	}

	unmatched := assets.ObjectKey(assets.UploadRequest{Filename: "x.jpg", RunID: "run-7"})
	if !strings.HasPrefix(unmatched, "photos/unmatched/run-7/x-") || !strings.HasSuffix(unmatched, ".jpg") {
		t.Fatalf("unexpected unmatched key %q", unmatched)
	}

	if a, b := assets.ObjectKey(assets.UploadRequest{Filename: "x.jpg"}), assets.ObjectKey(assets.UploadRequest{Filename: "x.jpg"}); a == b {
		t.Fatalf("expected unique keys, got %q twice", a)
	}
}

func TestUploadRequestMetadata(t *testing.T) {
	req := assets.UploadRequest{
		Filename: "dir/Zoë.jpg",
		RecordID: "A",
		RunID:    "r1",
		Transform: assets.TransformOptions{
			RemoveBackground: true,
			AutoCrop:         true,
			CropWidth:        413,
			CropHeight:       531,
			CropGravity:      "face",
		},
	}
	meta := req.Metadata()
	want := map[string]string{
		"remove-background": "true",
		"auto-crop":         "true",
		"crop-width":        "413",
		"crop-height":       "531",
		"crop-gravity":      "face",
		"record-id":         "A",
		"run-id":            "r1",
		"original-filename": "Zo%C3%AB.jpg",
	}
	for k, v := range want {
		if meta[k] != v {
			t.Fatalf("metadata %q = %q, want %q (all: %v)", k, meta[k], v, meta)
		}
	}
	if _, ok := (assets.TransformOptions{}).Metadata()["crop-width"]; ok {
		t.Fatal("crop dimensions should be omitted when auto-crop is off")
	}
}

func TestLocalStoreUploadAndDelete(t *testing.T) {
	store, err := assets.NewLocalStore(filepath.Join(t.TempDir(), "assets"), "")
	if err != nil {
		t.Fatalf("NewLocalStore: %v", err)
	}
	content := testsupport.JPEG(t, 16, 16)
	asset, err := store.Upload(context.Background(), assets.UploadRequest{
		Content:     content,
		ContentType: media.ContentTypeJPEG,
		Filename:    "101.jpg",
		RecordID:    "A",
	})
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if !strings.HasPrefix(asset.URL, "file://") || asset.Size != int64(len(content)) {
		t.Fatalf("unexpected asset %+v", asset)
	}
	path := filepath.Join(store.Root(), filepath.FromSlash(asset.PublicID))
	data, err := os.ReadFile(path)
	if err != nil || len(data) != len(content) {
		t.Fatalf("expected stored file at %s: %v", path, err)
	}

	if err := store.Delete(context.Background(), asset.PublicID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := store.Delete(context.Background(), asset.PublicID); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected ErrNotFound on second delete, got %v", err)
	}
	if err := store.Delete(context.Background(), "../../etc/passwd"); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected traversal rejection, got %v", err)
	}
}

func TestLocalStorePublicBaseURL(t *testing.T) {
	store, err := assets.NewLocalStore(t.TempDir(), "https://cdn.example.test/photos/")
	if err != nil {
		t.Fatalf("NewLocalStore: %v", err)
	}
	asset, err := store.Upload(context.Background(), assets.UploadRequest{Content: []byte{1}, Filename: "a.png", ContentType: media.ContentTypePNG})
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if asset.URL != "https://cdn.example.test/photos/"+asset.PublicID {
		t.Fatalf("unexpected url %q", asset.URL)
	}
	if _, err := store.Upload(context.Background(), assets.UploadRequest{Filename: "empty.png"}); !errors.Is(err, services.ErrUpload) {
		t.Fatalf("expected ErrUpload for empty content, got %v", err)
	}
}

func TestNewFromConfigLocal(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store, err := assets.NewFromConfig(context.Background(), cfg)
	if err != nil {
		t.Fatalf("NewFromConfig: %v", err)
	}
	if _, ok := store.(*assets.LocalStore); !ok {
		t.Fatalf("expected local store, got %T", store)
	}

	cfg.Assets.Driver = "ftp"
	if _, err := assets.NewFromConfig(context.Background(), cfg); err == nil {
		t.Fatal("expected error for unsupported driver")
	}
	cfg.Assets.Driver = config.AssetDriverS3
	cfg.Assets.Endpoint = ""
	if _, err := assets.NewFromConfig(context.Background(), cfg); !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

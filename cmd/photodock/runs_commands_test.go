package main

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"photodock/internal/assets"
	"photodock/internal/store"
	"photodock/internal/testsupport"
)

func seedUnlinkedRun(t *testing.T, env *cliTestEnv) (store.Run, string) {
	t.Helper()
	ctx := context.Background()

	local, err := assets.NewLocalStore(env.cfg.Assets.LocalDir, "")
	if err != nil {
		t.Fatalf("NewLocalStore: %v", err)
	}
	asset, err := local.Upload(ctx, assets.UploadRequest{
		Content:     testsupport.JPEG(t, 10, 10),
		ContentType: "image/jpeg",
		Filename:    "101.jpg",
		RecordID:    "A",
		RunID:       "run-cleanup-1",
	})
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}

	st := testsupport.MustOpenStore(t, env.cfg)
	now := time.Now()
	run := store.Run{
		ID:         "run-cleanup-1",
		Source:     "photos.zip",
		Total:      2,
		Matched:    2,
		Uploaded:   2,
		Linked:     1,
		LinkFailed: 1,
		Elapsed:    1500 * time.Millisecond,
		StartedAt:  now.Add(-2 * time.Second),
		FinishedAt: now,
		Failures: []store.Failure{
			{Filename: "101.jpg", RecordID: "A", Kind: "record_write", Message: "write photo reference", AssetURL: asset.URL, AssetPublicID: asset.PublicID},
			{Filename: "103.jpg", Kind: "upload", Message: "upload failed"},
		},
	}
	if err := st.SaveRun(ctx, run); err != nil {
		t.Fatalf("SaveRun: %v", err)
	}
	if err := st.Close(); err != nil {
		t.Fatalf("close store: %v", err)
	}
	return run, asset.PublicID
}

func TestRunsShowAndCleanup(t *testing.T) {
	env := setupCLITestEnv(t)
	run, publicID := seedUnlinkedRun(t, env)

	out, _, err := runCLI(t, env, "runs", "show", "run-cleanup")
	if err != nil {
		t.Fatalf("runs show: %v", err)
	}
	requireContains(t, out, "partial")
	requireContains(t, out, publicID)

	out, _, err = runCLI(t, env, "runs", "cleanup", run.ID, "--dry-run")
	if err != nil {
		t.Fatalf("runs cleanup --dry-run: %v", err)
	}
	requireContains(t, out, "would delete "+publicID)

	out, _, err = runCLI(t, env, "runs", "cleanup", run.ID)
	if err != nil {
		t.Fatalf("runs cleanup: %v", err)
	}
	requireContains(t, out, "Deleted 1 of 1")

	out, _, err = runCLI(t, env, "runs", "cleanup", run.ID)
	if err != nil {
		t.Fatalf("second cleanup: %v", err)
	}
	requireContains(t, out, "no unlinked uploads")

	out, _, err = runCLI(t, env, "--json", "runs", "show", run.ID)
	if err != nil {
		t.Fatalf("runs show --json: %v", err)
	}
	var detail runDetailView
	if err := json.Unmarshal([]byte(out), &detail); err != nil {
		t.Fatalf("decode run: %v\n%s", err, out)
	}
	if detail.Status != "partial" || len(detail.Failures) != 2 {
		t.Fatalf("unexpected run detail: %+v", detail)
	}
	if detail.Failures[0].CleanedAt == nil {
		t.Fatalf("expected cleaned asset to carry cleaned_at: %+v", detail.Failures[0])
	}
	if detail.Failures[1].CleanedAt != nil {
		t.Fatalf("upload failure has no asset to clean: %+v", detail.Failures[1])
	}
}

func TestRunsShowUnknownID(t *testing.T) {
	env := setupCLITestEnv(t)
	_, _, err := runCLI(t, env, "runs", "show", "missing")
	if err == nil || !strings.Contains(err.Error(), "missing") {
		t.Fatalf("expected not found error, got %v", err)
	}
}

func TestRunsListEmpty(t *testing.T) {
	env := setupCLITestEnv(t)
	out, _, err := runCLI(t, env, "runs", "list")
	if err != nil {
		t.Fatalf("runs list: %v", err)
	}
	requireContains(t, out, "No runs recorded")

	out, _, err = runCLI(t, env, "--json", "runs", "list")
	if err != nil {
		t.Fatalf("runs list --json: %v", err)
	}
	if strings.TrimSpace(out) != "[]" {
		t.Fatalf("expected empty JSON array, got %q", out)
	}
}

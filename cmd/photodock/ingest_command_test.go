package main

import (
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gofrs/flock"

	"photodock/internal/testsupport"
)

type ingestJSON struct {
	RunID     string `json:"run_id"`
	Total     int    `json:"total"`
	Matched   int    `json:"matched"`
	Unmatched int    `json:"unmatched"`
	Uploaded  int    `json:"uploaded"`
	Linked    int    `json:"linked"`
	Failed    int    `json:"failed"`
	Failures  []struct {
		Filename string `json:"filename"`
		Kind     string `json:"kind"`
	} `json:"failures"`
}

func importScenarioRecords(t *testing.T, env *cliTestEnv) {
	t.Helper()
	csvPath := filepath.Join(env.baseDir, "records.csv")
	testsupport.WriteFile(t, csvPath, []byte("id,roll_no,name\nA,101,Ada\nB,102,Bo\n"))
	out, _, err := runCLI(t, env, "records", "import", csvPath)
	if err != nil {
		t.Fatalf("records import: %v", err)
	}
	requireContains(t, out, "Imported 2 records")
}

func scenarioZip(t *testing.T, env *cliTestEnv) string {
	t.Helper()
	return testsupport.WriteZip(t, env.baseDir, "photos.zip",
		testsupport.ZipEntry{Name: "101.jpg", Content: testsupport.JPEG(t, 40, 50)},
		testsupport.ZipEntry{Name: "batch/102.JPG", Content: testsupport.JPEG(t, 40, 50)},
		testsupport.ZipEntry{Name: "unknown.png", Content: testsupport.PNG(t, 20, 20)},
		testsupport.ZipEntry{Name: "__MACOSX/._101.jpg", Content: []byte("junk")},
	)
}

func TestIngestArchiveLinksRecordsAndRecordsRun(t *testing.T) {
	env := setupCLITestEnv(t)
	importScenarioRecords(t, env)

	out, _, err := runCLI(t, env, "--json", "ingest", scenarioZip(t, env), "--destination", "cards")
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}
	var report ingestJSON
	if err := json.Unmarshal([]byte(out), &report); err != nil {
		t.Fatalf("decode report: %v\n%s", err, out)
	}
	if report.Total != 3 || report.Matched != 2 || report.Unmatched != 1 {
		t.Fatalf("unexpected match counters: %+v", report)
	}
	if report.Uploaded != 3 || report.Linked != 2 || report.Failed != 0 || len(report.Failures) != 0 {
		t.Fatalf("unexpected upload counters: %+v", report)
	}

	out, _, err = runCLI(t, env, "records", "list", "--missing-photo")
	if err != nil {
		t.Fatalf("records list: %v", err)
	}
	requireContains(t, out, "No records found")

	out, _, err = runCLI(t, env, "records", "list")
	if err != nil {
		t.Fatalf("records list: %v", err)
	}
	requireContains(t, out, "file://")
	requireContains(t, out, "2 record(s)")

	out, _, err = runCLI(t, env, "runs", "list")
	if err != nil {
		t.Fatalf("runs list: %v", err)
	}
	requireContains(t, out, shortID(report.RunID))
	requireContains(t, out, "ok")

	out, _, err = runCLI(t, env, "runs", "show", shortID(report.RunID))
	if err != nil {
		t.Fatalf("runs show: %v", err)
	}
	requireContains(t, out, report.RunID)
	requireContains(t, out, "photos.zip")
}

func TestIngestTableOutputAndFastMode(t *testing.T) {
	env := setupCLITestEnv(t)
	importScenarioRecords(t, env)

	out, stderr, err := runCLI(t, env, "ingest", "--fast", scenarioZip(t, env))
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}
	requireContains(t, out, "Fast mode")
	requireContains(t, out, "Unmatched")
	requireContains(t, stderr, "ingest finished")
	requireContains(t, out, "Linked")

	help, _, err := runCLI(t, env, "ingest", "--help")
	if err != nil {
		t.Fatalf("ingest --help: %v", err)
	}
	requireContains(t, help, "Skip matching: upload every photo unmatched and link no records")
}

func TestIngestFilesSelection(t *testing.T) {
	env := setupCLITestEnv(t)
	importScenarioRecords(t, env)

	dir := t.TempDir()
	first := filepath.Join(dir, "101.jpg")
	testsupport.WriteFile(t, first, testsupport.JPEG(t, 300, 400))

	out, _, err := runCLI(t, env, "--json", "ingest", "--files", first, "--auto-crop", "--profile", "square", "--width", "64", "--height", "64")
	if err != nil {
		t.Fatalf("ingest --files: %v", err)
	}
	var report ingestJSON
	if err := json.Unmarshal([]byte(out), &report); err != nil {
		t.Fatalf("decode report: %v\n%s", err, out)
	}
	if report.Total != 1 || report.Matched != 1 || report.Linked != 1 {
		t.Fatalf("unexpected counters: %+v", report)
	}
}

func TestIngestRejectsCorruptArchive(t *testing.T) {
	env := setupCLITestEnv(t)
	path := filepath.Join(env.baseDir, "broken.zip")
	testsupport.WriteFile(t, path, []byte("not a zip"))

	_, _, err := runCLI(t, env, "ingest", path)
	if err == nil {
		t.Fatal("expected corrupt archive error")
	}

	out, _, err := runCLI(t, env, "runs", "list")
	if err != nil {
		t.Fatalf("runs list: %v", err)
	}
	requireContains(t, out, "failed")
}

func TestIngestRefusesWhenLocked(t *testing.T) {
	env := setupCLITestEnv(t)
	lock := flock.New(env.cfg.LockPath())
	ok, err := lock.TryLock()
	if err != nil || !ok {
		t.Fatalf("take lock: ok=%v err=%v", ok, err)
	}
	defer lock.Unlock()

	_, _, err = runCLI(t, env, "ingest", scenarioZip(t, env))
	if err == nil || !strings.Contains(err.Error(), "another photodock run") {
		t.Fatalf("expected lock error, got %v", err)
	}
}

func TestIngestFlagValidation(t *testing.T) {
	env := setupCLITestEnv(t)
	cases := []struct {
		name string
		args []string
		want string
	}{
		{"no archive", []string{"ingest"}, "accepts 1 arg"},
		{"files without paths", []string{"ingest", "--files"}, "--files requires"},
		{"bad gravity", []string{"ingest", "x.zip", "--gravity", "north"}, "--gravity"},
		{"bad profile", []string{"ingest", "x.zip", "--profile", "oval"}, "--profile"},
		{"remove bg without service", []string{"ingest", "x.zip", "--remove-bg"}, "background.url"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, _, err := runCLI(t, env, tc.args...)
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected error containing %q, got %v", tc.want, err)
			}
		})
	}
}

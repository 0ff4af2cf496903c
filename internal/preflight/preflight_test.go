package preflight_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"photodock/internal/config"
	"photodock/internal/preflight"
	"photodock/internal/testsupport"
)

func TestCheckDirectoryAccess_OK(t *testing.T) {
	dir := t.TempDir()
	result := preflight.CheckDirectoryAccess("test", dir)
	if !result.Passed {
		t.Fatalf("expected pass for temp dir, got: %s", result.Detail)
	}
}

func TestCheckDirectoryAccess_NotExist(t *testing.T) {
	result := preflight.CheckDirectoryAccess("test", filepath.Join(t.TempDir(), "nope"))
	if result.Passed {
		t.Fatal("expected failure for missing dir")
	}
	if result.Detail == "" {
		t.Fatal("expected non-empty detail")
	}
}

func TestCheckDirectoryAccess_NotDir(t *testing.T) {
	f := filepath.Join(t.TempDir(), "file.txt")
	if err := os.WriteFile(f, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	result := preflight.CheckDirectoryAccess("test", f)
	if result.Passed {
		t.Fatal("expected failure for file path")
	}
}

func TestCheckDetection(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/health" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	ok := preflight.CheckDetection(context.Background(), config.Detection{Enabled: true, URL: srv.URL})
	if !ok.Passed {
		t.Fatalf("expected pass, got: %s", ok.Detail)
	}

	missing := preflight.CheckDetection(context.Background(), config.Detection{Enabled: true})
	if missing.Passed || missing.Detail != "missing url" {
		t.Fatalf("expected missing url failure, got %+v", missing)
	}
}

func TestCheckDetection_Unhealthy(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	result := preflight.CheckDetection(context.Background(), config.Detection{Enabled: true, URL: srv.URL})
	if result.Passed || !strings.Contains(result.Detail, "503") {
		t.Fatalf("expected 503 failure, got %+v", result)
	}
}

func TestCheckEndpoint(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	if r := preflight.CheckEndpoint(context.Background(), "bg", srv.URL+"/remove"); !r.Passed {
		t.Fatalf("expected reachable endpoint, got %s", r.Detail)
	}
	if r := preflight.CheckEndpoint(context.Background(), "bg", "::not a url"); r.Passed {
		t.Fatal("expected invalid url to fail")
	}
}

func TestRunAll_NilConfig(t *testing.T) {
	if results := preflight.RunAll(context.Background(), nil); results != nil {
		t.Fatal("expected nil results for nil config")
	}
}

func TestRunAll_LocalConfig(t *testing.T) {
	cfg := testsupport.NewConfig(t)

	results := preflight.RunAll(context.Background(), cfg)
	// state dir + asset store + record store
	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}
	if failed := preflight.Failed(results); len(failed) != 0 {
		t.Fatalf("unexpected failures: %+v", failed)
	}
	if !strings.Contains(results[2].Detail, "0 records") {
		t.Fatalf("expected record count detail, got %q", results[2].Detail)
	}
}

func TestRunAll_IncludesDetectionWhenEnabled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	cfg := testsupport.NewConfig(t, testsupport.WithDetectionURL(srv.URL))
	cfg.Assets.LocalDir = filepath.Join(testsupport.BaseDir(cfg), "missing")

	results := preflight.RunAll(context.Background(), cfg)
	var names []string
	for _, r := range results {
		names = append(names, r.Name)
	}
	if len(results) != 4 || results[3].Name != "Detection service" || !results[3].Passed {
		t.Fatalf("expected passing detection check, got %v", results)
	}
	failed := preflight.Failed(results)
	if len(failed) != 1 || failed[0].Name != "Asset store" {
		t.Fatalf("expected only the asset store to fail, got %+v (%v)", failed, names)
	}
}

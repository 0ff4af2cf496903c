package testsupport

import (
	"path/filepath"
	"testing"

	"photodock/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.StateDir = filepath.Join(base, "state")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Assets.LocalDir = filepath.Join(base, "assets")
	cfgVal.Assets.PublicBaseURL = ""
	cfgVal.Detection.Enabled = false
	cfgVal.Metrics.Bind = ""

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	if err := builder.cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}
	return builder.cfg
}

// WithDetectionURL enables the detection service at url.
func WithDetectionURL(url string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Detection.Enabled = true
		b.cfg.Detection.URL = url
		b.cfg.Detection.RateLimit = 0
	}
}

// WithUploadBatchSize overrides the upload concurrency.
func WithUploadBatchSize(n int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Ingest.UploadBatchSize = n
	}
}

// WithCandidateFields overrides the ordered match fields.
func WithCandidateFields(fields ...string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Ingest.CandidateFields = fields
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.StateDir)
}

package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	StateDir string `toml:"state_dir"`
	LogDir   string `toml:"log_dir"`
}

// Ingest contains batch sizing and matching configuration.
type Ingest struct {
	ExtractBatchSize int      `toml:"extract_batch_size"`
	YieldEvery       int      `toml:"yield_every"`
	UploadBatchSize  int      `toml:"upload_batch_size"`
	CandidateFields  []string `toml:"candidate_fields"`
	FastMode         bool     `toml:"fast_mode"`
	Destination      string   `toml:"destination"`
}

// Crop contains the face-aware crop geometry.
type Crop struct {
	// Profile is "passport" (fixed aspect) or "square" (generous margin).
	Profile string `toml:"profile"`
	Width   int    `toml:"width"`
	Height  int    `toml:"height"`
	// Gravity is "face" (detect the subject) or "center" (skip detection).
	Gravity         string  `toml:"gravity"`
	MaxDetectionDim int     `toml:"max_detection_dim"`
	MinConfidence   float64 `toml:"min_confidence"`
	DetectionLabel  string  `toml:"detection_label"`
	TargetHeadRatio float64 `toml:"target_head_ratio"`
	MinHeadRatio    float64 `toml:"min_head_ratio"`
	MaxHeadRatio    float64 `toml:"max_head_ratio"`
	FallbackFill    float64 `toml:"fallback_fill"`
	SquareMargin    float64 `toml:"square_margin"`
	JPEGQuality     int     `toml:"jpeg_quality"`
}

// Detection contains the object-detection service settings.
type Detection struct {
	Enabled        bool    `toml:"enabled"`
	URL            string  `toml:"url"`
	APIKey         string  `toml:"api_key"`
	TimeoutSeconds int     `toml:"timeout_seconds"`
	RateLimit      float64 `toml:"rate_limit"`
	RateBurst      int     `toml:"rate_burst"`
}

// Assets contains the remote asset store settings.
type Assets struct {
	// Driver is "local" (filesystem) or "s3" (MinIO/S3 compatible).
	Driver        string `toml:"driver"`
	LocalDir      string `toml:"local_dir"`
	PublicBaseURL string `toml:"public_base_url"`
	Endpoint      string `toml:"endpoint"`
	AccessKey     string `toml:"access_key"`
	SecretKey     string `toml:"secret_key"`
	Bucket        string `toml:"bucket"`
	Region        string `toml:"region"`
	UseSSL        bool   `toml:"use_ssl"`
}

// Background contains the remote background-removal service settings.
type Background struct {
	URL            string `toml:"url"`
	APIKey         string `toml:"api_key"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Records contains the record store settings.
type Records struct {
	// Driver is "sqlite" (local store under paths.state_dir) or "postgres".
	Driver              string `toml:"driver"`
	DSN                 string `toml:"dsn"`
	Table               string `toml:"table"`
	IDColumn            string `toml:"id_column"`
	FieldsColumn        string `toml:"fields_column"`
	PhotoURLColumn      string `toml:"photo_url_column"`
	PhotoPublicIDColumn string `toml:"photo_public_id_column"`
}

// Metrics contains the optional Prometheus listener.
type Metrics struct {
	Bind string `toml:"bind"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for photodock.
//
// Configuration sections by subsystem:
//   - Paths: state (database, lock) and log directories
//   - Ingest: extraction/upload batch sizes and candidate match fields
//   - Crop: output geometry and face-aware crop thresholds
//   - Detection: object-detection service used by the cropper
//   - Assets: where uploaded photos are stored
//   - Background: remote background-removal service
//   - Records: record store driver and schema mapping
//   - Metrics: Prometheus listener for long runs
//   - Logging: log format and level
type Config struct {
	Paths      Paths      `toml:"paths"`
	Ingest     Ingest     `toml:"ingest"`
	Crop       Crop       `toml:"crop"`
	Detection  Detection  `toml:"detection"`
	Assets     Assets     `toml:"assets"`
	Background Background `toml:"background"`
	Records    Records    `toml:"records"`
	Metrics    Metrics    `toml:"metrics"`
	Logging    Logging    `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("photodock.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the state and log directories, plus the local
// asset directory when the local asset driver is selected.
func (c *Config) EnsureDirectories() error {
	dirs := []string{c.Paths.StateDir, c.Paths.LogDir}
	if c.Assets.Driver == AssetDriverLocal {
		dirs = append(dirs, c.Assets.LocalDir)
	}
	for _, dir := range dirs {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// DatabasePath returns the SQLite database used for the local record store and run history.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.Paths.StateDir, "photodock.db")
}

// LockPath returns the lock file guarding concurrent ingest runs.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.StateDir, "photodock.lock")
}

// DetectionTimeout returns the per-request timeout for the detection service.
func (c *Config) DetectionTimeout() time.Duration {
	return time.Duration(c.Detection.TimeoutSeconds) * time.Second
}

// BackgroundTimeout returns the per-request timeout for background removal.
func (c *Config) BackgroundTimeout() time.Duration {
	return time.Duration(c.Background.TimeoutSeconds) * time.Second
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// Sample returns the annotated sample configuration.
func Sample() string {
	return sampleConfig
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}

package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeIngest()
	c.normalizeCrop()
	c.normalizeDetection()
	if err := c.normalizeAssets(); err != nil {
		return err
	}
	c.normalizeBackground()
	c.normalizeRecords()
	c.Metrics.Bind = strings.TrimSpace(c.Metrics.Bind)
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		c.Paths.StateDir = defaultStateDir
	}
	if c.Paths.StateDir, err = expandPath(c.Paths.StateDir); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeIngest() {
	if c.Ingest.ExtractBatchSize <= 0 {
		c.Ingest.ExtractBatchSize = defaultExtractBatchSize
	}
	if c.Ingest.YieldEvery <= 0 {
		c.Ingest.YieldEvery = defaultYieldEvery
	}
	if c.Ingest.UploadBatchSize <= 0 {
		c.Ingest.UploadBatchSize = defaultUploadBatchSize
	}
	fields := make([]string, 0, len(c.Ingest.CandidateFields))
	seen := make(map[string]struct{}, len(c.Ingest.CandidateFields))
	for _, field := range c.Ingest.CandidateFields {
		field = strings.TrimSpace(field)
		if field == "" {
			continue
		}
		if _, exists := seen[field]; exists {
			continue
		}
		seen[field] = struct{}{}
		fields = append(fields, field)
	}
	c.Ingest.CandidateFields = fields
	c.Ingest.Destination = strings.Trim(strings.TrimSpace(c.Ingest.Destination), "/")
	if c.Ingest.Destination == "" {
		c.Ingest.Destination = defaultDestination
	}
}

func (c *Config) normalizeCrop() {
	c.Crop.Profile = strings.ToLower(strings.TrimSpace(c.Crop.Profile))
	if c.Crop.Profile == "" {
		c.Crop.Profile = ProfilePassport
	}
	c.Crop.Gravity = strings.ToLower(strings.TrimSpace(c.Crop.Gravity))
	if c.Crop.Gravity == "" {
		c.Crop.Gravity = GravityFace
	}
	if c.Crop.MaxDetectionDim <= 0 {
		c.Crop.MaxDetectionDim = defaultMaxDetectionDim
	}
	if c.Crop.MinConfidence <= 0 {
		c.Crop.MinConfidence = defaultMinConfidence
	}
	c.Crop.DetectionLabel = strings.ToLower(strings.TrimSpace(c.Crop.DetectionLabel))
	if c.Crop.DetectionLabel == "" {
		c.Crop.DetectionLabel = defaultDetectionLabel
	}
	if c.Crop.TargetHeadRatio <= 0 {
		c.Crop.TargetHeadRatio = defaultTargetHeadRatio
	}
	if c.Crop.MinHeadRatio <= 0 {
		c.Crop.MinHeadRatio = defaultMinHeadRatio
	}
	if c.Crop.MaxHeadRatio <= 0 {
		c.Crop.MaxHeadRatio = defaultMaxHeadRatio
	}
	if c.Crop.FallbackFill <= 0 {
		c.Crop.FallbackFill = defaultFallbackFill
	}
	if c.Crop.SquareMargin <= 0 {
		c.Crop.SquareMargin = defaultSquareMargin
	}
	if c.Crop.JPEGQuality <= 0 {
		c.Crop.JPEGQuality = defaultJPEGQuality
	}
}

func (c *Config) normalizeDetection() {
	c.Detection.URL = strings.TrimRight(strings.TrimSpace(c.Detection.URL), "/")
	c.Detection.APIKey = strings.TrimSpace(c.Detection.APIKey)
	if c.Detection.APIKey == "" {
		if value, ok := os.LookupEnv("PHOTODOCK_DETECTION_API_KEY"); ok {
			c.Detection.APIKey = strings.TrimSpace(value)
		}
	}
	if c.Detection.TimeoutSeconds <= 0 {
		c.Detection.TimeoutSeconds = defaultDetectionTimeout
	}
	if c.Detection.RateLimit <= 0 {
		c.Detection.RateLimit = defaultDetectionRateLimit
	}
	if c.Detection.RateBurst <= 0 {
		c.Detection.RateBurst = defaultDetectionRateBurst
	}
}

func (c *Config) normalizeAssets() error {
	c.Assets.Driver = strings.ToLower(strings.TrimSpace(c.Assets.Driver))
	if c.Assets.Driver == "" {
		c.Assets.Driver = AssetDriverLocal
	}
	if strings.TrimSpace(c.Assets.LocalDir) == "" {
		c.Assets.LocalDir = defaultLocalAssetDir
	}
	var err error
	if c.Assets.LocalDir, err = expandPath(c.Assets.LocalDir); err != nil {
		return fmt.Errorf("assets.local_dir: %w", err)
	}
	c.Assets.PublicBaseURL = strings.TrimRight(strings.TrimSpace(c.Assets.PublicBaseURL), "/")
	c.Assets.Endpoint = strings.TrimSpace(c.Assets.Endpoint)
	c.Assets.Bucket = strings.TrimSpace(c.Assets.Bucket)
	c.Assets.Region = strings.TrimSpace(c.Assets.Region)
	if c.Assets.Region == "" {
		c.Assets.Region = defaultS3Region
	}
	c.Assets.AccessKey = strings.TrimSpace(c.Assets.AccessKey)
	if c.Assets.AccessKey == "" {
		if value, ok := os.LookupEnv("PHOTODOCK_S3_ACCESS_KEY"); ok {
			c.Assets.AccessKey = strings.TrimSpace(value)
		}
	}
	c.Assets.SecretKey = strings.TrimSpace(c.Assets.SecretKey)
	if c.Assets.SecretKey == "" {
		if value, ok := os.LookupEnv("PHOTODOCK_S3_SECRET_KEY"); ok {
			c.Assets.SecretKey = strings.TrimSpace(value)
		}
	}
	return nil
}

func (c *Config) normalizeBackground() {
	c.Background.URL = strings.TrimRight(strings.TrimSpace(c.Background.URL), "/")
	c.Background.APIKey = strings.TrimSpace(c.Background.APIKey)
	if c.Background.APIKey == "" {
		if value, ok := os.LookupEnv("PHOTODOCK_BACKGROUND_API_KEY"); ok {
			c.Background.APIKey = strings.TrimSpace(value)
		}
	}
	if c.Background.TimeoutSeconds <= 0 {
		c.Background.TimeoutSeconds = defaultBackgroundTimeout
	}
}

func (c *Config) normalizeRecords() {
	c.Records.Driver = strings.ToLower(strings.TrimSpace(c.Records.Driver))
	if c.Records.Driver == "" {
		c.Records.Driver = RecordsDriverSQLite
	}
	c.Records.DSN = strings.TrimSpace(c.Records.DSN)
	if c.Records.DSN == "" {
		if value, ok := os.LookupEnv("PHOTODOCK_RECORDS_DSN"); ok {
			c.Records.DSN = strings.TrimSpace(value)
		}
	}
	defaults := Default().Records
	fill := func(value *string, fallback string) {
		*value = strings.TrimSpace(*value)
		if *value == "" {
			*value = fallback
		}
	}
	fill(&c.Records.Table, defaults.Table)
	fill(&c.Records.IDColumn, defaults.IDColumn)
	fill(&c.Records.FieldsColumn, defaults.FieldsColumn)
	fill(&c.Records.PhotoURLColumn, defaults.PhotoURLColumn)
	fill(&c.Records.PhotoPublicIDColumn, defaults.PhotoPublicIDColumn)
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}

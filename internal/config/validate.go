package config

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

var sqlIdentifier = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)?$`)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateIngest(); err != nil {
		return err
	}
	if err := c.validateCrop(); err != nil {
		return err
	}
	if err := c.validateDetection(); err != nil {
		return err
	}
	if err := c.validateAssets(); err != nil {
		return err
	}
	if err := c.validateRecords(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateIngest() error {
	if len(c.Ingest.CandidateFields) == 0 {
		return errors.New("ingest.candidate_fields must list at least one record field")
	}
	if c.Ingest.UploadBatchSize > c.Ingest.ExtractBatchSize {
		return fmt.Errorf("ingest.upload_batch_size (%d) must not exceed ingest.extract_batch_size (%d)",
			c.Ingest.UploadBatchSize, c.Ingest.ExtractBatchSize)
	}
	return nil
}

func (c *Config) validateCrop() error {
	switch c.Crop.Profile {
	case ProfilePassport, ProfileSquare:
	default:
		return fmt.Errorf("crop.profile: unsupported value %q (want passport or square)", c.Crop.Profile)
	}
	switch c.Crop.Gravity {
	case GravityFace, GravityCenter:
	default:
		return fmt.Errorf("crop.gravity: unsupported value %q (want face or center)", c.Crop.Gravity)
	}
	if c.Crop.Width <= 0 || c.Crop.Height <= 0 {
		return fmt.Errorf("crop.width and crop.height must be positive, got %dx%d", c.Crop.Width, c.Crop.Height)
	}
	if c.Crop.MinHeadRatio > c.Crop.TargetHeadRatio || c.Crop.TargetHeadRatio > c.Crop.MaxHeadRatio {
		return fmt.Errorf("crop head ratios must satisfy min <= target <= max (got %.3f, %.3f, %.3f)",
			c.Crop.MinHeadRatio, c.Crop.TargetHeadRatio, c.Crop.MaxHeadRatio)
	}
	if c.Crop.MaxHeadRatio > 1 {
		return fmt.Errorf("crop.max_head_ratio must be <= 1, got %.3f", c.Crop.MaxHeadRatio)
	}
	if c.Crop.FallbackFill > 1 {
		return fmt.Errorf("crop.fallback_fill must be <= 1, got %.3f", c.Crop.FallbackFill)
	}
	if c.Crop.MinConfidence >= 1 {
		return fmt.Errorf("crop.min_confidence must be < 1, got %.3f", c.Crop.MinConfidence)
	}
	if c.Crop.JPEGQuality > 100 {
		return fmt.Errorf("crop.jpeg_quality must be <= 100, got %d", c.Crop.JPEGQuality)
	}
	return nil
}

func (c *Config) validateDetection() error {
	if c.Detection.Enabled && c.Detection.URL == "" {
		return errors.New("detection.url is required when detection is enabled")
	}
	return nil
}

func (c *Config) validateAssets() error {
	switch c.Assets.Driver {
	case AssetDriverLocal:
		return nil
	case AssetDriverS3:
		if c.Assets.Endpoint == "" {
			return errors.New("assets.endpoint is required for the s3 driver")
		}
		if c.Assets.Bucket == "" {
			return errors.New("assets.bucket is required for the s3 driver")
		}
		if c.Assets.AccessKey == "" || c.Assets.SecretKey == "" {
			return errors.New("assets.access_key and assets.secret_key are required for the s3 driver (or set PHOTODOCK_S3_ACCESS_KEY / PHOTODOCK_S3_SECRET_KEY)")
		}
		return nil
	default:
		return fmt.Errorf("assets.driver: unsupported value %q (want local or s3)", c.Assets.Driver)
	}
}

func (c *Config) validateRecords() error {
	switch c.Records.Driver {
	case RecordsDriverSQLite:
		return nil
	case RecordsDriverPostgres:
		if c.Records.DSN == "" {
			return errors.New("records.dsn is required for the postgres driver (or set PHOTODOCK_RECORDS_DSN)")
		}
	default:
		return fmt.Errorf("records.driver: unsupported value %q (want sqlite or postgres)", c.Records.Driver)
	}
	identifiers := map[string]string{
		"records.table":                  c.Records.Table,
		"records.id_column":              c.Records.IDColumn,
		"records.fields_column":          c.Records.FieldsColumn,
		"records.photo_url_column":       c.Records.PhotoURLColumn,
		"records.photo_public_id_column": c.Records.PhotoPublicIDColumn,
	}
	for key, value := range identifiers {
		if !sqlIdentifier.MatchString(strings.TrimSpace(value)) {
			return fmt.Errorf("%s: %q is not a valid SQL identifier", key, value)
		}
	}
	return nil
}

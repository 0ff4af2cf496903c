package config

const (
	defaultConfigPath           = "~/.config/photodock/config.toml"
	defaultStateDir             = "~/.local/share/photodock"
	defaultLogDir               = "~/.local/share/photodock/logs"
	defaultLocalAssetDir        = "~/.local/share/photodock/assets"
	defaultExtractBatchSize     = 500
	defaultYieldEvery           = 1
	defaultUploadBatchSize      = 10
	defaultDestination          = "photos"
	defaultCropWidth            = 413
	defaultCropHeight           = 531
	defaultMaxDetectionDim      = 1024
	defaultMinConfidence        = 0.5
	defaultDetectionLabel       = "person"
	defaultTargetHeadRatio      = 0.75
	defaultMinHeadRatio         = 0.711
	defaultMaxHeadRatio         = 0.8
	defaultFallbackFill         = 0.9
	defaultSquareMargin         = 1.4
	defaultJPEGQuality          = 92
	defaultDetectionTimeout     = 20
	defaultDetectionRateLimit   = 8.0
	defaultDetectionRateBurst   = 4
	defaultBackgroundTimeout    = 60
	defaultS3Region             = "us-east-1"
	defaultRecordsTable         = "records"
	defaultRecordsIDColumn      = "id"
	defaultRecordsFieldsColumn  = "fields"
	defaultRecordsPhotoURLCol   = "photo_url"
	defaultRecordsPhotoIDColumn = "photo_public_id"
	defaultLogFormat            = "console"
	defaultLogLevel             = "info"
)

// Supported enum values.
const (
	ProfilePassport = "passport"
	ProfileSquare   = "square"

	GravityFace   = "face"
	GravityCenter = "center"

	AssetDriverLocal = "local"
	AssetDriverS3    = "s3"

	RecordsDriverSQLite   = "sqlite"
	RecordsDriverPostgres = "postgres"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			StateDir: defaultStateDir,
			LogDir:   defaultLogDir,
		},
		Ingest: Ingest{
			ExtractBatchSize: defaultExtractBatchSize,
			YieldEvery:       defaultYieldEvery,
			UploadBatchSize:  defaultUploadBatchSize,
			CandidateFields:  []string{"photo", "roll_no"},
			Destination:      defaultDestination,
		},
		Crop: Crop{
			Profile:         ProfilePassport,
			Width:           defaultCropWidth,
			Height:          defaultCropHeight,
			Gravity:         GravityFace,
			MaxDetectionDim: defaultMaxDetectionDim,
			MinConfidence:   defaultMinConfidence,
			DetectionLabel:  defaultDetectionLabel,
			TargetHeadRatio: defaultTargetHeadRatio,
			MinHeadRatio:    defaultMinHeadRatio,
			MaxHeadRatio:    defaultMaxHeadRatio,
			FallbackFill:    defaultFallbackFill,
			SquareMargin:    defaultSquareMargin,
			JPEGQuality:     defaultJPEGQuality,
		},
		Detection: Detection{
			TimeoutSeconds: defaultDetectionTimeout,
			RateLimit:      defaultDetectionRateLimit,
			RateBurst:      defaultDetectionRateBurst,
		},
		Assets: Assets{
			Driver:   AssetDriverLocal,
			LocalDir: defaultLocalAssetDir,
			Region:   defaultS3Region,
		},
		Background: Background{
			TimeoutSeconds: defaultBackgroundTimeout,
		},
		Records: Records{
			Driver:              RecordsDriverSQLite,
			Table:               defaultRecordsTable,
			IDColumn:            defaultRecordsIDColumn,
			FieldsColumn:        defaultRecordsFieldsColumn,
			PhotoURLColumn:      defaultRecordsPhotoURLCol,
			PhotoPublicIDColumn: defaultRecordsPhotoIDColumn,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}

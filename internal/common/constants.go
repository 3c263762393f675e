package common

// Environment variable keys
const (
	EnvConfigFile         = "CONFIG_FILE"
	EnvEnvFile            = "ENV_FILE"
	EnvInputPath          = "INPUT_PATH"
	EnvOutputPath         = "OUTPUT_PATH"
	EnvOutputFormat       = "OUTPUT_FORMAT"
	EnvParquetCompression = "PARQUET_COMPRESSION"
	EnvCategoryColumn     = "CATEGORY_COLUMN"
	EnvTargetColumn       = "TARGET_COLUMN"
	EnvEncodedSuffix      = "ENCODED_SUFFIX"
	EnvStrategy           = "STRATEGY"
	EnvUseSmoothing       = "USE_SMOOTHING"
	EnvUseHoldout         = "USE_HOLDOUT"
	EnvMinSamplesLeaf     = "MIN_SAMPLES_LEAF"
	EnvSmoothing          = "SMOOTHING"
	EnvNSplits            = "N_SPLITS"
	EnvRandomSeed         = "RANDOM_SEED"
	EnvDataPath           = "DATA_PATH"
	EnvMetricsFile        = "METRICS_FILE"
	EnvLogLevel           = "LOG_LEVEL"
	EnvLogFormat          = "LOG_FORMAT"
)

// Configuration defaults
const (
	DefaultEnvFile            = ".env"
	DefaultOutputFormat       = FormatCSV
	DefaultParquetCompression = "snappy"
	DefaultEncodedSuffix      = "_encoded"
	DefaultStrategy           = "smoothed"
	DefaultMinSamplesLeaf     = 1
	DefaultSmoothing          = 1.0
	DefaultNSplits            = 5
	DefaultRandomSeed         = 42
	DefaultLogLevel           = "info"
	DefaultLogFormat          = "console"
)

// Output formats
const (
	FormatCSV     = "csv"
	FormatParquet = "parquet"
)

// Storage
const (
	ReportsDBFile = "target-encoder.db"
	ReportsBucket = "reports"
)

// Common error messages
const (
	ErrMsgInputRequired          = "input path is required"
	ErrMsgCategoryColumnRequired = "categorical column is required"
	ErrMsgTargetColumnRequired   = "target column is required"
)

// Validation constants
const (
	MinNSplits = 2
	MaxNSplits = 100
)

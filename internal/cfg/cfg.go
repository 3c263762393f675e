package cfg

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"target-encoder/internal/common"
	"target-encoder/internal/encoding"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Settings struct {
	InputPath          string
	OutputPath         string
	OutputFormat       string
	ParquetCompression string
	CategoryColumn     string
	TargetColumn       string
	EncodedSuffix      string
	Strategy           encoding.Strategy
	MinSamplesLeaf     int
	Smoothing          float64
	NSplits            int
	RandomSeed         int64
	DataPath           string
	MetricsFile        string
	LogLevel           string
	LogFormat          string
}

type ConfigFile struct {
	Data struct {
		Input          string `yaml:"input"`
		Output         string `yaml:"output"`
		Format         string `yaml:"format"`
		Compression    string `yaml:"compression"`
		CategoryColumn string `yaml:"categoryColumn"`
		TargetColumn   string `yaml:"targetColumn"`
		Suffix         string `yaml:"suffix"`
	} `yaml:"data"`

	Encoder struct {
		Strategy       string   `yaml:"strategy"`
		UseSmoothing   *bool    `yaml:"useSmoothing"`
		UseHoldout     *bool    `yaml:"useHoldout"`
		MinSamplesLeaf *int     `yaml:"minSamplesLeaf"`
		Smoothing      *float64 `yaml:"smoothing"`
		NSplits        *int     `yaml:"nSplits"`
		RandomSeed     *int64   `yaml:"randomSeed"`
	} `yaml:"encoder"`

	System struct {
		DataPath    string `yaml:"dataPath"`
		MetricsFile string `yaml:"metricsFile"`
		LogLevel    string `yaml:"logLevel"`
		LogFormat   string `yaml:"logFormat"`
	} `yaml:"system"`
}

func Load() (Settings, error) {
	if err := loadDotEnv(getEnvOrDefault(common.EnvEnvFile, common.DefaultEnvFile)); err != nil {
		return Settings{}, err
	}

	// Try to load from YAML file first
	if configPath := os.Getenv(common.EnvConfigFile); configPath != "" {
		return loadFromYAML(configPath)
	}

	// Fallback to environment variables
	return loadFromEnv()
}

// loadDotEnv exports the variables of a .env file that are not already set.
// A missing file is not an error.
func loadDotEnv(path string) error {
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to load env file %s: %w", path, err)
	}
	return nil
}

func loadFromYAML(path string) (Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Settings{}, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var config ConfigFile
	if err := yaml.Unmarshal(data, &config); err != nil {
		return Settings{}, fmt.Errorf("failed to parse config file: %w", err)
	}

	strategyName := config.Encoder.Strategy
	if strategyName == "" && (config.Encoder.UseSmoothing != nil || config.Encoder.UseHoldout != nil) {
		strategyName = encoding.StrategyFromFlags(
			derefOr(config.Encoder.UseSmoothing, true),
			derefOr(config.Encoder.UseHoldout, false),
		).String()
	}
	strategy, err := strategyFromEnvOrConfig(strategyName)
	if err != nil {
		return Settings{}, err
	}

	settings := Settings{
		InputPath:          getEnvOrDefault(common.EnvInputPath, config.Data.Input),
		OutputPath:         getEnvOrDefault(common.EnvOutputPath, config.Data.Output),
		OutputFormat:       getEnvOrDefault(common.EnvOutputFormat, orDefault(config.Data.Format, common.DefaultOutputFormat)),
		ParquetCompression: getEnvOrDefault(common.EnvParquetCompression, orDefault(config.Data.Compression, common.DefaultParquetCompression)),
		CategoryColumn:     getEnvOrDefault(common.EnvCategoryColumn, config.Data.CategoryColumn),
		TargetColumn:       getEnvOrDefault(common.EnvTargetColumn, config.Data.TargetColumn),
		EncodedSuffix:      getEnvOrDefault(common.EnvEncodedSuffix, orDefault(config.Data.Suffix, common.DefaultEncodedSuffix)),
		Strategy:           strategy,
		MinSamplesLeaf:     getIntOrDefault(common.EnvMinSamplesLeaf, derefOr(config.Encoder.MinSamplesLeaf, common.DefaultMinSamplesLeaf)),
		Smoothing:          getFloatOrDefault(common.EnvSmoothing, derefOr(config.Encoder.Smoothing, common.DefaultSmoothing)),
		NSplits:            getIntOrDefault(common.EnvNSplits, derefOr(config.Encoder.NSplits, common.DefaultNSplits)),
		RandomSeed:         getInt64OrDefault(common.EnvRandomSeed, derefOr(config.Encoder.RandomSeed, common.DefaultRandomSeed)),
		DataPath:           getEnvOrDefault(common.EnvDataPath, config.System.DataPath),
		MetricsFile:        getEnvOrDefault(common.EnvMetricsFile, config.System.MetricsFile),
		LogLevel:           getEnvOrDefault(common.EnvLogLevel, orDefault(config.System.LogLevel, common.DefaultLogLevel)),
		LogFormat:          getEnvOrDefault(common.EnvLogFormat, orDefault(config.System.LogFormat, common.DefaultLogFormat)),
	}

	// Validate configuration
	if err := validateSettings(&settings); err != nil {
		return Settings{}, fmt.Errorf("configuration validation failed: %w", err)
	}

	return settings, nil
}

func loadFromEnv() (Settings, error) {
	strategy, err := strategyFromEnvOrConfig("")
	if err != nil {
		return Settings{}, err
	}

	settings := Settings{
		InputPath:          os.Getenv(common.EnvInputPath),
		OutputPath:         os.Getenv(common.EnvOutputPath),
		OutputFormat:       getEnvOrDefault(common.EnvOutputFormat, common.DefaultOutputFormat),
		ParquetCompression: getEnvOrDefault(common.EnvParquetCompression, common.DefaultParquetCompression),
		CategoryColumn:     os.Getenv(common.EnvCategoryColumn),
		TargetColumn:       os.Getenv(common.EnvTargetColumn),
		EncodedSuffix:      getEnvOrDefault(common.EnvEncodedSuffix, common.DefaultEncodedSuffix),
		Strategy:           strategy,
		MinSamplesLeaf:     getIntOrDefault(common.EnvMinSamplesLeaf, common.DefaultMinSamplesLeaf),
		Smoothing:          getFloatOrDefault(common.EnvSmoothing, common.DefaultSmoothing),
		NSplits:            getIntOrDefault(common.EnvNSplits, common.DefaultNSplits),
		RandomSeed:         getInt64OrDefault(common.EnvRandomSeed, common.DefaultRandomSeed),
		DataPath:           os.Getenv(common.EnvDataPath), // optional
		MetricsFile:        os.Getenv(common.EnvMetricsFile),
		LogLevel:           getEnvOrDefault(common.EnvLogLevel, common.DefaultLogLevel),
		LogFormat:          getEnvOrDefault(common.EnvLogFormat, common.DefaultLogFormat),
	}

	// Validate configuration
	if err := validateSettings(&settings); err != nil {
		return Settings{}, fmt.Errorf("configuration validation failed: %w", err)
	}

	return settings, nil
}

// EncoderOptions returns the encoder parameters of the settings.
func (s *Settings) EncoderOptions() encoding.Options {
	opts := encoding.DefaultOptions()
	opts.Strategy = s.Strategy
	opts.MinSamplesLeaf = s.MinSamplesLeaf
	opts.Smoothing = s.Smoothing
	opts.NSplits = s.NSplits
	opts.Seed = s.RandomSeed
	return opts
}

// strategyFromEnvOrConfig resolves the strategy. STRATEGY wins; otherwise the
// legacy USE_SMOOTHING/USE_HOLDOUT pair is honoured, then the config value.
func strategyFromEnvOrConfig(configValue string) (encoding.Strategy, error) {
	if v := os.Getenv(common.EnvStrategy); v != "" {
		return encoding.ParseStrategy(v)
	}
	_, hasSmoothing := os.LookupEnv(common.EnvUseSmoothing)
	_, hasHoldout := os.LookupEnv(common.EnvUseHoldout)
	if hasSmoothing || hasHoldout {
		return encoding.StrategyFromFlags(
			getBoolOrDefault(common.EnvUseSmoothing, true),
			getBoolOrDefault(common.EnvUseHoldout, false),
		), nil
	}
	return encoding.ParseStrategy(orDefault(configValue, common.DefaultStrategy))
}

func getEnvOrDefault(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

func getIntOrDefault(key string, defaultValue int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultValue
}

func getInt64OrDefault(key string, defaultValue int64) int64 {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.ParseInt(v, 10, 64); err == nil {
			return i
		}
	}
	return defaultValue
}

func getFloatOrDefault(key string, defaultValue float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getBoolOrDefault(key string, defaultValue bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return defaultValue
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

func derefOr[T any](p *T, def T) T {
	if p == nil {
		return def
	}
	return *p
}

// validateSettings performs comprehensive validation of configuration values
func validateSettings(settings *Settings) error {
	// Validate data selection
	if settings.InputPath == "" {
		return errors.New(common.ErrMsgInputRequired)
	}
	if settings.CategoryColumn == "" {
		return errors.New(common.ErrMsgCategoryColumnRequired)
	}
	if settings.TargetColumn == "" {
		return errors.New(common.ErrMsgTargetColumnRequired)
	}
	if settings.CategoryColumn == settings.TargetColumn {
		return fmt.Errorf("categorical and target column must differ, both are %q", settings.CategoryColumn)
	}
	if settings.EncodedSuffix == "" {
		return fmt.Errorf("encoded column suffix cannot be empty")
	}

	// Validate output
	switch settings.OutputFormat {
	case common.FormatCSV, common.FormatParquet:
	default:
		return fmt.Errorf("output format must be %s or %s, got %q", common.FormatCSV, common.FormatParquet, settings.OutputFormat)
	}
	switch strings.ToLower(settings.ParquetCompression) {
	case "snappy", "gzip", "lz4", "zstd", "none", "uncompressed":
	default:
		return fmt.Errorf("unsupported parquet compression %q", settings.ParquetCompression)
	}

	// Validate encoder parameters
	if settings.MinSamplesLeaf < 0 {
		return fmt.Errorf("min samples leaf must not be negative, got %d", settings.MinSamplesLeaf)
	}
	if settings.Smoothing <= 0 {
		return fmt.Errorf("smoothing must be greater than 0, got %f", settings.Smoothing)
	}
	if settings.NSplits < common.MinNSplits || settings.NSplits > common.MaxNSplits {
		return fmt.Errorf("n splits must be between %d and %d, got %d", common.MinNSplits, common.MaxNSplits, settings.NSplits)
	}

	// Validate logging
	switch settings.LogFormat {
	case "console", "json":
	default:
		return fmt.Errorf("log format must be console or json, got %q", settings.LogFormat)
	}

	return nil
}

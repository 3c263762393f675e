package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"target-encoder/internal/cfg"
	"target-encoder/internal/common"
	"target-encoder/internal/dataset"
	"target-encoder/internal/encoding"
	"target-encoder/internal/metrics"
	"target-encoder/internal/storage"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// flagEnv maps command line flags to the environment keys they override.
var flagEnv = map[string]string{
	"input":       common.EnvInputPath,
	"output":      common.EnvOutputPath,
	"format":      common.EnvOutputFormat,
	"compression": common.EnvParquetCompression,
	"column":      common.EnvCategoryColumn,
	"target":      common.EnvTargetColumn,
	"suffix":      common.EnvEncodedSuffix,
	"strategy":    common.EnvStrategy,
	"min-leaf":    common.EnvMinSamplesLeaf,
	"smoothing":   common.EnvSmoothing,
	"splits":      common.EnvNSplits,
	"seed":        common.EnvRandomSeed,
	"data":        common.EnvDataPath,
	"metrics":     common.EnvMetricsFile,
	"log-level":   common.EnvLogLevel,
	"log-format":  common.EnvLogFormat,
}

func main() {
	// Parse command line arguments
	flag.String("input", "", "Input CSV file")
	flag.String("output", "", "Output file (CSV to stdout when empty)")
	flag.String("format", common.DefaultOutputFormat, "Output format: csv, parquet")
	flag.String("compression", common.DefaultParquetCompression, "Parquet compression: snappy, gzip, lz4, zstd, none")
	flag.String("column", "", "Categorical column to encode")
	flag.String("target", "", "Numeric target column")
	flag.String("suffix", common.DefaultEncodedSuffix, "Suffix of the encoded column name")
	flag.String("strategy", common.DefaultStrategy, "Encoding strategy: plain, smoothed, holdout")
	flag.Int("min-leaf", common.DefaultMinSamplesLeaf, "Smoothing midpoint (min samples leaf)")
	flag.Float64("smoothing", common.DefaultSmoothing, "Smoothing steepness, must be > 0")
	flag.Int("splits", common.DefaultNSplits, "Number of stratified folds for holdout")
	flag.Int64("seed", common.DefaultRandomSeed, "Fold shuffling seed")
	flag.String("data", "", "Directory of the fit report database (disabled when empty)")
	flag.String("metrics", "", "Prometheus textfile to write metrics to (disabled when empty)")
	flag.String("log-level", common.DefaultLogLevel, "Log level: debug, info, warn, error")
	flag.String("log-format", common.DefaultLogFormat, "Log format: console, json")
	flag.Parse()

	// Flags given explicitly win over the environment and the config file
	flag.Visit(func(f *flag.Flag) {
		if key, ok := flagEnv[f.Name]; ok {
			if err := os.Setenv(key, f.Value.String()); err != nil {
				log.Fatal().Err(err).Str("flag", f.Name).Msg("flag override failed")
			}
		}
	})

	settings, err := cfg.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("config load failed")
	}

	logger := newLogger(settings, os.Stderr)

	if err := run(settings, logger, os.Stdout); err != nil {
		logger.Fatal().Err(err).Str("kind", encoding.Kind(err)).Msg("target encoding failed")
	}
}

// newLogger builds the process logger from the log settings.
func newLogger(settings cfg.Settings, w io.Writer) zerolog.Logger {
	level, err := zerolog.ParseLevel(settings.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}

	out := w
	if settings.LogFormat != "json" {
		out = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}
	return zerolog.New(out).Level(level).With().Timestamp().Logger()
}

// run encodes the configured column of the input table and writes the
// result, the fit report and the metrics as configured.
func run(settings cfg.Settings, logger zerolog.Logger, stdout io.Writer) error {
	start := time.Now()

	table, err := dataset.LoadCSV(settings.InputPath)
	if err != nil {
		return err
	}
	logger.Info().
		Str("input", settings.InputPath).
		Int("rows", table.Len()).
		Strs("columns", table.Names()).
		Msg("input loaded")

	registry := prometheus.NewRegistry()
	m := metrics.NewWithRegistry(registry)

	encoded, fingerprint, enc, err := encode(settings, table, logger, metrics.NewWrapper(m))
	if err != nil {
		writeMetrics(settings, m, logger)
		return err
	}

	if err := writeOutput(settings, encoded, stdout); err != nil {
		return err
	}

	report, err := enc.Report()
	if err != nil {
		return err
	}

	if settings.DataPath != "" {
		if err := saveReport(settings, fingerprint, report); err != nil {
			return err
		}
		logger.Info().Str("data", settings.DataPath).Uint64("fingerprint", fingerprint).Msg("fit report stored")
	}

	writeMetrics(settings, m, logger)

	logger.Info().
		Str("strategy", enc.Options().Strategy.String()).
		Str("column", settings.CategoryColumn+settings.EncodedSuffix).
		Str("output", outputName(settings)).
		Dur("elapsed", time.Since(start)).
		Msg("target encoding completed")
	return nil
}

// encode fits on a copy of table and returns the copy with the encoded
// column appended, together with the fingerprint of the fitted columns.
func encode(settings cfg.Settings, table *dataset.Table, logger zerolog.Logger, tracker encoding.MetricsTracker) (*dataset.Table, uint64, *encoding.Encoder[string], error) {
	for _, col := range []string{settings.CategoryColumn, settings.TargetColumn} {
		if !table.Has(col) {
			return nil, 0, nil, &encoding.ValidationError{Field: col, Reason: "column not found in input"}
		}
	}

	fingerprint, err := table.Fingerprint(settings.CategoryColumn, settings.TargetColumn)
	if err != nil {
		return nil, 0, nil, err
	}

	opts := settings.EncoderOptions()
	opts.Logger = &logger
	opts.Metrics = tracker

	encoded, enc, err := encoding.EncodeTable(table.Clone(), settings.CategoryColumn, settings.TargetColumn, settings.EncodedSuffix, opts)
	if err != nil {
		return nil, 0, nil, err
	}
	return encoded, fingerprint, enc, nil
}

func writeOutput(settings cfg.Settings, table *dataset.Table, stdout io.Writer) error {
	switch settings.OutputFormat {
	case common.FormatParquet:
		if settings.OutputPath == "" {
			return fmt.Errorf("parquet output needs an output path")
		}
		records, err := table.EncodedRecords(settings.CategoryColumn, settings.TargetColumn, settings.CategoryColumn+settings.EncodedSuffix)
		if err != nil {
			return err
		}
		return dataset.WriteEncodedParquet(settings.OutputPath, records, settings.ParquetCompression)
	default:
		if settings.OutputPath == "" {
			return table.WriteCSV(stdout)
		}
		return table.SaveCSV(settings.OutputPath)
	}
}

func saveReport(settings cfg.Settings, fingerprint uint64, report encoding.Report[string]) error {
	store, err := storage.New(settings.DataPath)
	if err != nil {
		return err
	}
	defer store.Close()

	return store.SaveReport(storage.ReportRecord{
		Column:      settings.CategoryColumn,
		Target:      settings.TargetColumn,
		Timestamp:   time.Now(),
		Fingerprint: fingerprint,
		Report:      report,
	})
}

// writeMetrics dumps the metrics when a textfile is configured. A failed
// dump is logged and does not fail the run.
func writeMetrics(settings cfg.Settings, m *metrics.Metrics, logger zerolog.Logger) {
	if settings.MetricsFile == "" {
		return
	}
	if err := m.WriteTextfile(settings.MetricsFile); err != nil {
		logger.Warn().Err(err).Msg("failed to write metrics")
	}
}

func outputName(settings cfg.Settings) string {
	if settings.OutputPath == "" {
		return "stdout"
	}
	return settings.OutputPath
}

package cfg

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"target-encoder/internal/encoding"
)

func TestLoadFromEnv(t *testing.T) {
	tests := []struct {
		name     string
		envVars  map[string]string
		wantErr  bool
		validate func(t *testing.T, settings Settings)
	}{
		{
			name: "valid config with required fields",
			envVars: map[string]string{
				"INPUT_PATH":      "train.csv",
				"CATEGORY_COLUMN": "city",
				"TARGET_COLUMN":   "label",
			},
			wantErr: false,
			validate: func(t *testing.T, settings Settings) {
				if settings.InputPath != "train.csv" {
					t.Errorf("expected InputPath 'train.csv', got %s", settings.InputPath)
				}
				// Test defaults
				if settings.Strategy != encoding.Smoothed {
					t.Errorf("expected default strategy smoothed, got %s", settings.Strategy)
				}
				if settings.MinSamplesLeaf != 1 {
					t.Errorf("expected default MinSamplesLeaf 1, got %d", settings.MinSamplesLeaf)
				}
				if settings.Smoothing != 1.0 {
					t.Errorf("expected default Smoothing 1.0, got %f", settings.Smoothing)
				}
				if settings.NSplits != 5 {
					t.Errorf("expected default NSplits 5, got %d", settings.NSplits)
				}
				if settings.RandomSeed != 42 {
					t.Errorf("expected default RandomSeed 42, got %d", settings.RandomSeed)
				}
				if settings.EncodedSuffix != "_encoded" {
					t.Errorf("expected default suffix _encoded, got %s", settings.EncodedSuffix)
				}
				if settings.OutputFormat != "csv" {
					t.Errorf("expected default output format csv, got %s", settings.OutputFormat)
				}
			},
		},
		{
			name: "custom encoder settings",
			envVars: map[string]string{
				"INPUT_PATH":       "train.csv",
				"CATEGORY_COLUMN":  "city",
				"TARGET_COLUMN":    "label",
				"STRATEGY":         "holdout",
				"MIN_SAMPLES_LEAF": "0",
				"SMOOTHING":        "2.5",
				"N_SPLITS":         "3",
				"RANDOM_SEED":      "7",
				"OUTPUT_FORMAT":    "parquet",
			},
			wantErr: false,
			validate: func(t *testing.T, settings Settings) {
				if settings.Strategy != encoding.Holdout {
					t.Errorf("expected strategy holdout, got %s", settings.Strategy)
				}
				if settings.MinSamplesLeaf != 0 {
					t.Errorf("expected MinSamplesLeaf 0, got %d", settings.MinSamplesLeaf)
				}
				if settings.Smoothing != 2.5 {
					t.Errorf("expected Smoothing 2.5, got %f", settings.Smoothing)
				}
				if settings.NSplits != 3 || settings.RandomSeed != 7 {
					t.Errorf("expected 3 splits and seed 7, got %d and %d", settings.NSplits, settings.RandomSeed)
				}
				opts := settings.EncoderOptions()
				if opts.Strategy != encoding.Holdout || opts.NSplits != 3 || opts.Seed != 7 || opts.Smoothing != 2.5 {
					t.Errorf("encoder options do not reflect settings: %+v", opts)
				}
			},
		},
		{
			name: "legacy flags prefer holdout",
			envVars: map[string]string{
				"INPUT_PATH":      "train.csv",
				"CATEGORY_COLUMN": "city",
				"TARGET_COLUMN":   "label",
				"USE_SMOOTHING":   "true",
				"USE_HOLDOUT":     "true",
			},
			validate: func(t *testing.T, settings Settings) {
				if settings.Strategy != encoding.Holdout {
					t.Errorf("expected holdout to win over smoothing, got %s", settings.Strategy)
				}
			},
		},
		{
			name: "legacy flags both off",
			envVars: map[string]string{
				"INPUT_PATH":      "train.csv",
				"CATEGORY_COLUMN": "city",
				"TARGET_COLUMN":   "label",
				"USE_SMOOTHING":   "false",
			},
			validate: func(t *testing.T, settings Settings) {
				if settings.Strategy != encoding.Plain {
					t.Errorf("expected plain, got %s", settings.Strategy)
				}
			},
		},
		{
			name: "unknown strategy",
			envVars: map[string]string{
				"INPUT_PATH":      "train.csv",
				"CATEGORY_COLUMN": "city",
				"TARGET_COLUMN":   "label",
				"STRATEGY":        "median",
			},
			wantErr: true,
		},
		{
			name: "missing input",
			envVars: map[string]string{
				"CATEGORY_COLUMN": "city",
				"TARGET_COLUMN":   "label",
			},
			wantErr: true,
		},
		{
			name: "missing target column",
			envVars: map[string]string{
				"INPUT_PATH":      "train.csv",
				"CATEGORY_COLUMN": "city",
			},
			wantErr: true,
		},
		{
			name:    "missing everything",
			envVars: map[string]string{},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Clear all environment variables first
			clearTestEnv(t)

			// Set test environment variables
			for key, value := range tt.envVars {
				t.Setenv(key, value)
			}

			settings, err := loadFromEnv()

			if tt.wantErr && err == nil {
				t.Error("expected error but got none")
			}
			if !tt.wantErr && err != nil {
				t.Errorf("unexpected error: %v", err)
			}

			if !tt.wantErr && tt.validate != nil {
				tt.validate(t, settings)
			}
		})
	}
}

func TestLoadFromYAML(t *testing.T) {
	tests := []struct {
		name         string
		yamlContent  string
		envOverrides map[string]string
		wantErr      bool
		validate     func(t *testing.T, settings Settings)
	}{
		{
			name: "valid YAML config",
			yamlContent: `
data:
  input: "data/train.csv"
  output: "data/train_encoded.parquet"
  format: "parquet"
  compression: "zstd"
  categoryColumn: "city"
  targetColumn: "label"
  suffix: "_te"

encoder:
  strategy: "plain"
  minSamplesLeaf: 0
  smoothing: 3.0
  nSplits: 4
  randomSeed: 11

system:
  dataPath: "/var/lib/target-encoder"
  metricsFile: "/var/lib/node_exporter/target_encoder.prom"
  logLevel: "debug"
  logFormat: "json"
`,
			wantErr: false,
			validate: func(t *testing.T, settings Settings) {
				if settings.InputPath != "data/train.csv" {
					t.Errorf("expected InputPath 'data/train.csv', got %s", settings.InputPath)
				}
				if settings.OutputFormat != "parquet" || settings.ParquetCompression != "zstd" {
					t.Errorf("expected parquet/zstd, got %s/%s", settings.OutputFormat, settings.ParquetCompression)
				}
				if settings.EncodedSuffix != "_te" {
					t.Errorf("expected suffix _te, got %s", settings.EncodedSuffix)
				}
				if settings.Strategy != encoding.Plain {
					t.Errorf("expected plain, got %s", settings.Strategy)
				}
				if settings.MinSamplesLeaf != 0 {
					t.Errorf("expected explicit MinSamplesLeaf 0 to survive, got %d", settings.MinSamplesLeaf)
				}
				if settings.Smoothing != 3.0 || settings.NSplits != 4 || settings.RandomSeed != 11 {
					t.Errorf("unexpected encoder params: %+v", settings)
				}
				if settings.DataPath != "/var/lib/target-encoder" {
					t.Errorf("expected DataPath, got %s", settings.DataPath)
				}
				if settings.LogLevel != "debug" || settings.LogFormat != "json" {
					t.Errorf("expected debug/json, got %s/%s", settings.LogLevel, settings.LogFormat)
				}
			},
		},
		{
			name: "YAML legacy flags",
			yamlContent: `
data:
  input: "train.csv"
  categoryColumn: "city"
  targetColumn: "label"
encoder:
  useSmoothing: false
  useHoldout: true
`,
			validate: func(t *testing.T, settings Settings) {
				if settings.Strategy != encoding.Holdout {
					t.Errorf("expected holdout, got %s", settings.Strategy)
				}
				if settings.MinSamplesLeaf != 1 {
					t.Errorf("expected default MinSamplesLeaf 1, got %d", settings.MinSamplesLeaf)
				}
			},
		},
		{
			name: "YAML with env overrides",
			yamlContent: `
data:
  input: "train.csv"
  categoryColumn: "city"
  targetColumn: "label"
encoder:
  strategy: "plain"
  smoothing: 2.0
`,
			envOverrides: map[string]string{
				"TARGET_COLUMN": "clicked",
				"SMOOTHING":     "5",
				"STRATEGY":      "smoothed",
			},
			wantErr: false,
			validate: func(t *testing.T, settings Settings) {
				if settings.TargetColumn != "clicked" {
					t.Errorf("expected env override TargetColumn 'clicked', got %s", settings.TargetColumn)
				}
				if settings.CategoryColumn != "city" {
					t.Errorf("expected YAML CategoryColumn 'city', got %s", settings.CategoryColumn)
				}
				if settings.Smoothing != 5 {
					t.Errorf("expected env override Smoothing 5, got %f", settings.Smoothing)
				}
				if settings.Strategy != encoding.Smoothed {
					t.Errorf("expected env override strategy smoothed, got %s", settings.Strategy)
				}
			},
		},
		{
			name: "YAML missing required keys",
			yamlContent: `
encoder:
  strategy: "plain"
`,
			wantErr: true,
		},
		{
			name: "YAML invalid smoothing",
			yamlContent: `
data:
  input: "train.csv"
  categoryColumn: "city"
  targetColumn: "label"
encoder:
  smoothing: 0
`,
			wantErr: true,
		},
		{
			name:        "invalid YAML",
			yamlContent: `invalid: yaml: content: [`,
			wantErr:     true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Clear environment
			clearTestEnv(t)

			// Set environment overrides
			for key, value := range tt.envOverrides {
				t.Setenv(key, value)
			}

			// Create temporary YAML file
			tmpDir := t.TempDir()
			configPath := filepath.Join(tmpDir, "config.yaml")
			err := os.WriteFile(configPath, []byte(tt.yamlContent), 0o644)
			if err != nil {
				t.Fatalf("failed to write test config file: %v", err)
			}

			settings, err := loadFromYAML(configPath)

			if tt.wantErr && err == nil {
				t.Error("expected error but got none")
			}
			if !tt.wantErr && err != nil {
				t.Errorf("unexpected error: %v", err)
			}

			if !tt.wantErr && tt.validate != nil {
				tt.validate(t, settings)
			}
		})
	}
}

func TestLoad(t *testing.T) {
	t.Run("load from YAML when CONFIG_FILE is set", func(t *testing.T) {
		clearTestEnv(t)

		tmpDir := t.TempDir()
		configPath := filepath.Join(tmpDir, "config.yaml")
		yamlContent := `
data:
  input: "from-yaml.csv"
  categoryColumn: "city"
  targetColumn: "label"
`
		if err := os.WriteFile(configPath, []byte(yamlContent), 0o644); err != nil {
			t.Fatalf("failed to write config file: %v", err)
		}
		t.Setenv("CONFIG_FILE", configPath)
		t.Setenv("ENV_FILE", filepath.Join(tmpDir, "absent.env"))

		settings, err := Load()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if settings.InputPath != "from-yaml.csv" {
			t.Errorf("expected InputPath from YAML, got %s", settings.InputPath)
		}
	})

	t.Run("load from env file", func(t *testing.T) {
		clearTestEnv(t)

		tmpDir := t.TempDir()
		envPath := filepath.Join(tmpDir, "test.env")
		envContent := strings.Join([]string{
			"INPUT_PATH=from-dotenv.csv",
			"CATEGORY_COLUMN=city",
			"TARGET_COLUMN=label",
			"STRATEGY=plain",
		}, "\n")
		if err := os.WriteFile(envPath, []byte(envContent), 0o644); err != nil {
			t.Fatalf("failed to write env file: %v", err)
		}
		t.Setenv("ENV_FILE", envPath)
		// godotenv exports into the process environment; register the keys so
		// t.Setenv restores them when the test ends.
		for _, key := range []string{"INPUT_PATH", "CATEGORY_COLUMN", "TARGET_COLUMN", "STRATEGY"} {
			t.Setenv(key, "")
			os.Unsetenv(key)
		}

		settings, err := Load()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if settings.InputPath != "from-dotenv.csv" {
			t.Errorf("expected InputPath from env file, got %s", settings.InputPath)
		}
		if settings.Strategy != encoding.Plain {
			t.Errorf("expected plain strategy from env file, got %s", settings.Strategy)
		}
	})

	t.Run("missing env file is ignored", func(t *testing.T) {
		clearTestEnv(t)
		t.Setenv("ENV_FILE", filepath.Join(t.TempDir(), "missing.env"))
		t.Setenv("INPUT_PATH", "x.csv")
		t.Setenv("CATEGORY_COLUMN", "c")
		t.Setenv("TARGET_COLUMN", "y")

		if _, err := Load(); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	})

	t.Run("missing config file", func(t *testing.T) {
		clearTestEnv(t)
		t.Setenv("ENV_FILE", filepath.Join(t.TempDir(), "missing.env"))
		t.Setenv("CONFIG_FILE", filepath.Join(t.TempDir(), "nope.yaml"))

		if _, err := Load(); err == nil {
			t.Error("expected error for missing config file")
		}
	})
}

func clearTestEnv(t *testing.T) {
	envVars := []string{
		"CONFIG_FILE", "ENV_FILE", "INPUT_PATH", "OUTPUT_PATH", "OUTPUT_FORMAT",
		"PARQUET_COMPRESSION", "CATEGORY_COLUMN", "TARGET_COLUMN", "ENCODED_SUFFIX",
		"STRATEGY", "USE_SMOOTHING", "USE_HOLDOUT", "MIN_SAMPLES_LEAF", "SMOOTHING",
		"N_SPLITS", "RANDOM_SEED", "DATA_PATH", "METRICS_FILE", "LOG_LEVEL", "LOG_FORMAT",
	}

	for _, env := range envVars {
		if _, ok := os.LookupEnv(env); ok {
			t.Setenv(env, "")
			os.Unsetenv(env)
		}
	}
}

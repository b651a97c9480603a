package config

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	BackendNative = "native"
	BackendRemote = "remote"
)

type Config struct {
	Port      string
	GinMode   string
	LogLevel  string
	LogFormat string
	Artifacts ArtifactPaths
	Inference InferenceConfig
}

// ArtifactPaths are resolved against ArtifactDir when relative.
type ArtifactPaths struct {
	Dir          string
	Model        string
	Scaler       string
	DiagEncoder  string
	StageEncoder string
	SchemaCSV    string
	FeatureSlots string
}

type InferenceConfig struct {
	Backend string
	URL     string
	Timeout time.Duration
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("PORT", "3000")
	v.SetDefault("GIN_MODE", "release")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")
	v.SetDefault("ARTIFACT_DIR", ".")
	v.SetDefault("MODEL_PATH", "model.json")
	v.SetDefault("SCALER_PATH", "scaler.json")
	v.SetDefault("DIAG_ENCODER_PATH", "label_encoder_diag.json")
	v.SetDefault("STAGE_ENCODER_PATH", "label_encoder_stage.json")
	v.SetDefault("SCHEMA_CSV_PATH", "last_data1.csv")
	v.SetDefault("FEATURE_SLOTS_PATH", "feature_slots.yaml")
	v.SetDefault("INFERENCE_BACKEND", BackendNative)
	v.SetDefault("INFERENCE_URL", "")
	v.SetDefault("INFERENCE_TIMEOUT", "10s")
}

// Load reads configuration from the environment, after pulling in a .env
// file when one is present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()

	dir := v.GetString("ARTIFACT_DIR")
	cfg := &Config{
		Port:      v.GetString("PORT"),
		GinMode:   v.GetString("GIN_MODE"),
		LogLevel:  strings.ToLower(v.GetString("LOG_LEVEL")),
		LogFormat: strings.ToLower(v.GetString("LOG_FORMAT")),
		Artifacts: ArtifactPaths{
			Dir:          dir,
			Model:        resolve(dir, v.GetString("MODEL_PATH")),
			Scaler:       resolve(dir, v.GetString("SCALER_PATH")),
			DiagEncoder:  resolve(dir, v.GetString("DIAG_ENCODER_PATH")),
			StageEncoder: resolve(dir, v.GetString("STAGE_ENCODER_PATH")),
			SchemaCSV:    resolve(dir, v.GetString("SCHEMA_CSV_PATH")),
			FeatureSlots: resolve(dir, v.GetString("FEATURE_SLOTS_PATH")),
		},
		Inference: InferenceConfig{
			Backend: strings.ToLower(v.GetString("INFERENCE_BACKEND")),
			URL:     v.GetString("INFERENCE_URL"),
			Timeout: v.GetDuration("INFERENCE_TIMEOUT"),
		},
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func validate(cfg *Config) error {
	if cfg.Port == "" {
		return fmt.Errorf("PORT must not be empty")
	}
	switch cfg.Inference.Backend {
	case BackendNative:
	case BackendRemote:
		if cfg.Inference.URL == "" {
			return fmt.Errorf("INFERENCE_URL is required when INFERENCE_BACKEND=remote")
		}
	default:
		return fmt.Errorf("unknown INFERENCE_BACKEND %q", cfg.Inference.Backend)
	}
	if cfg.Inference.Timeout <= 0 {
		return fmt.Errorf("INFERENCE_TIMEOUT must be positive")
	}
	return nil
}

func resolve(dir, path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(dir, path)
}

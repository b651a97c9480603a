package config

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadUsesDefaults(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("ARTIFACT_DIR", "")
	t.Setenv("INFERENCE_BACKEND", "")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "3000", cfg.Port)
	assert.Equal(t, BackendNative, cfg.Inference.Backend)
	assert.Equal(t, 10*time.Second, cfg.Inference.Timeout)
	assert.Equal(t, "model.json", cfg.Artifacts.Model)
	assert.Equal(t, "last_data1.csv", cfg.Artifacts.SchemaCSV)
}

func TestLoadResolvesArtifactDir(t *testing.T) {
	t.Setenv("ARTIFACT_DIR", "/srv/artifacts")
	t.Setenv("SCALER_PATH", "/etc/scaler.json")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("/srv/artifacts", "model.json"), cfg.Artifacts.Model)
	assert.Equal(t, "/etc/scaler.json", cfg.Artifacts.Scaler)
}

func TestLoadRemoteRequiresURL(t *testing.T) {
	t.Setenv("INFERENCE_BACKEND", "remote")
	t.Setenv("INFERENCE_URL", "")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "INFERENCE_URL")
}

func TestLoadRejectsUnknownBackend(t *testing.T) {
	t.Setenv("INFERENCE_BACKEND", "onnx")

	_, err := Load()
	require.Error(t, err)
}

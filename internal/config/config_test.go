package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("", nil)
	require.NoError(t, err)

	assert.Equal(t, "models", cfg.Deploy.TritonModelRepoPath)
	assert.Equal(t, "overloaded_config.pbtxt", cfg.Deploy.OutputConfigPath)
	assert.Equal(t, 4, cfg.Deploy.UploadConcurrency)
	assert.Equal(t, 5*time.Minute, cfg.Deploy.HTTPTimeout)
	assert.Empty(t, cfg.Deploy.TritonModelConfigOverrides)
	assert.Equal(t, "https://api.wandb.ai", cfg.Wandb.BaseURL)
	assert.False(t, cfg.Database.Enabled)
	assert.Equal(t, "model-serving", cfg.Kubernetes.DefaultNS)
	assert.Equal(t, 8080, cfg.Server.Port)
}

func TestLoad_ConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "deploy.yaml")
	content := `
artifact: wandb-artifact://megatruong/ptl-testing2/my_model:v0
framework: pytorch
triton_url: localhost:8000
triton_bucket: andrew-triton-bucket
triton_model_config_overrides:
  max_batch_size: 32
  input:
    - name: conv1
      data_type: TYPE_FP32
      dims: [3, 28, 28]
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := Load(path, nil)
	require.NoError(t, err)

	assert.Equal(t, "pytorch", cfg.Deploy.Framework)
	assert.Equal(t, "localhost:8000", cfg.Deploy.TritonURL)
	assert.Equal(t, "andrew-triton-bucket", cfg.Deploy.TritonBucket)
	assert.Equal(t, 32, cfg.Deploy.TritonModelConfigOverrides["max_batch_size"])
	assert.Len(t, cfg.Deploy.TritonModelConfigOverrides["input"], 1)
}

func TestLoad_EnvOverridesAsJSON(t *testing.T) {
	t.Setenv("TRITON_BUCKET", "env-bucket")
	t.Setenv("TRITON_MODEL_CONFIG_OVERRIDES", `{"max_batch_size": 8}`)

	cfg, err := Load("", nil)
	require.NoError(t, err)

	assert.Equal(t, "env-bucket", cfg.Deploy.TritonBucket)
	assert.Equal(t, float64(8), cfg.Deploy.TritonModelConfigOverrides["max_batch_size"])
}

func TestLoad_InvalidOverrides(t *testing.T) {
	t.Setenv("TRITON_MODEL_CONFIG_OVERRIDES", `not-json`)

	_, err := Load("", nil)
	assert.Error(t, err)
}

func TestLoad_FlagsWinOverEnv(t *testing.T) {
	t.Setenv("TRITON_URL", "env:8000")

	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	fs.String("triton-url", "", "")
	fs.Int("upload-concurrency", 0, "")
	require.NoError(t, fs.Parse([]string{"--triton-url", "flag:8000"}))

	cfg, err := Load("", fs)
	require.NoError(t, err)

	assert.Equal(t, "flag:8000", cfg.Deploy.TritonURL)
	// unset flag leaves the default in place
	assert.Equal(t, 4, cfg.Deploy.UploadConcurrency)
}

func TestLoad_MissingConfigFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"), nil)
	assert.Error(t, err)
}

func TestDatabaseConfig_DSN(t *testing.T) {
	d := DatabaseConfig{User: "u", Password: "p", Host: "db", Port: 5432, Name: "n", SSLMode: "disable"}
	assert.Equal(t, "postgres://u:p@db:5432/n?sslmode=disable", d.DSN())
}

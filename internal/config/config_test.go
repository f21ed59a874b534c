package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// isolate points DATA_DIR at a temp dir and clears every key Load reads.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("DATA_DIR", dir)
	for _, key := range []string{
		"SERVER_PORT", "IMAGES_DIR", "PUBLIC_BASE_URL", "DELIVERY_MODE", "STORAGE_BACKEND",
		"DATABASE_URL", "MONGO_DATABASE", "PROVIDER_ENDPOINT", "PROVIDER_AUTH", "PROVIDER_TIMEOUT",
		"PROVIDER_RESPONSE_MODALITIES", "PROVIDER_MAX_RESPONSE_BYTES", "REFERENCE_TIMEOUT",
		"REFERENCE_MAX_BYTES", "EXTRACT_MIN_RUN", "REQUEST_LOG", "ADMIN_TOKEN", "LOG_LEVEL",
		"LOG_FORMAT", "CACHE_MAX_BYTES",
	} {
		t.Setenv(key, "")
	}
	return dir
}

func TestLoadDefaults(t *testing.T) {
	dir := isolate(t)

	cfg := Load()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, DefaultServerPort, cfg.ServerPort)
	assert.Equal(t, dir, cfg.DataDir)
	assert.Equal(t, filepath.Join(dir, "images"), cfg.ImagesDir)
	assert.Equal(t, "url", cfg.DeliveryMode)
	assert.Equal(t, "sqlite", cfg.StorageBackend)
	assert.Equal(t, "header", cfg.ProviderAuth)
	assert.Equal(t, 60*time.Second, cfg.ProviderTimeout)
	assert.Equal(t, 20*time.Second, cfg.ReferenceTimeout)
	assert.Equal(t, int64(20<<20), cfg.ReferenceMaxBytes)
	assert.Equal(t, 200, cfg.ExtractMinRun)
	assert.True(t, cfg.RequestLog)
	assert.Empty(t, cfg.ProviderResponseModalities)
}

func TestLoadFileThenEnv(t *testing.T) {
	dir := isolate(t)
	toml := `
server_port = ":9090"
delivery_mode = "key"
provider_timeout = "45s"
extract_min_run = 300
request_log = false
provider_response_modalities = ["image", "text"]
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.toml"), []byte(toml), 0o644))

	cfg := Load()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, ":9090", cfg.ServerPort)
	assert.Equal(t, "key", cfg.DeliveryMode)
	assert.Equal(t, 45*time.Second, cfg.ProviderTimeout)
	assert.Equal(t, 300, cfg.ExtractMinRun)
	assert.False(t, cfg.RequestLog)
	assert.Equal(t, []string{"IMAGE", "TEXT"}, cfg.ProviderResponseModalities)

	t.Setenv("SERVER_PORT", ":7070")
	t.Setenv("DELIVERY_MODE", "RAW")
	t.Setenv("EXTRACT_MIN_RUN", "250")
	t.Setenv("PROVIDER_RESPONSE_MODALITIES", "IMAGE")

	cfg = Load()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, ":7070", cfg.ServerPort)
	assert.Equal(t, "raw", cfg.DeliveryMode)
	assert.Equal(t, 250, cfg.ExtractMinRun)
	assert.Equal(t, []string{"IMAGE"}, cfg.ProviderResponseModalities)
}

func TestValidate(t *testing.T) {
	testCases := []struct {
		name string
		env  map[string]string
	}{
		{name: "unknown delivery mode", env: map[string]string{"DELIVERY_MODE": "ftp"}},
		{name: "unknown backend", env: map[string]string{"STORAGE_BACKEND": "redis"}},
		{name: "postgres without url", env: map[string]string{"STORAGE_BACKEND": "postgres"}},
		{name: "bad auth", env: map[string]string{"PROVIDER_AUTH": "both"}},
		{name: "relative endpoint", env: map[string]string{"PROVIDER_ENDPOINT": "/v1/generate"}},
		{name: "bad duration", env: map[string]string{"PROVIDER_TIMEOUT": "soon"}},
		{name: "zero timeout", env: map[string]string{"REFERENCE_TIMEOUT": "0s"}},
		{name: "bad int", env: map[string]string{"EXTRACT_MIN_RUN": "lots"}},
		{name: "negative threshold", env: map[string]string{"EXTRACT_MIN_RUN": "-1"}},
		{name: "bad log format", env: map[string]string{"LOG_FORMAT": "xml"}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			isolate(t)
			for k, v := range tc.env {
				t.Setenv(k, v)
			}
			assert.Error(t, Load().Validate())
		})
	}
}

func TestLoadDotEnv(t *testing.T) {
	const key = "DRAWGATE_TEST_DOTENV"
	t.Setenv(key, "")
	require.NoError(t, os.Unsetenv(key))

	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte(key+"=from-file\n"), 0o600))

	require.NoError(t, LoadDotEnv(path))
	assert.Equal(t, "from-file", os.Getenv(key))

	assert.NoError(t, LoadDotEnv(filepath.Join(t.TempDir(), "missing.env")))
}

func TestEnsureConfigFile(t *testing.T) {
	dir := isolate(t)

	require.NoError(t, EnsureConfigFile())
	_, err := os.Stat(filepath.Join(dir, "config.toml"))
	require.NoError(t, err)

	// The generated file is all comments, so it must load cleanly.
	fc, err := LoadFile()
	require.NoError(t, err)
	assert.Empty(t, fc.ServerPort)
}

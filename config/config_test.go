package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	t.Setenv(FileEnv, "")
	t.Setenv("CORPUS_PATH", "")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "events.json", cfg.CorpusPath)
	assert.Equal(t, 512, cfg.QRSize)
	assert.Equal(t, 10*time.Second, cfg.LinkCheckTimeout)
	assert.Equal(t, "specimenpro-events", cfg.PubNubChannel)
	assert.True(t, cfg.EnableMetrics)
	assert.False(t, cfg.PubNubEnabled())
}

func TestLoadConfig_FileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "specimenpro.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
corpus_path: /data/events.json
asset_base_url: https://cdn.example.com
qr_size: 256
link_check_timeout: 3s
enable_metrics: false
`), 0o644))
	t.Setenv(FileEnv, path)
	t.Setenv("QR_SIZE", "1024")
	t.Setenv("LINK_CHECK_RETRIES", "not a number")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "/data/events.json", cfg.CorpusPath)
	assert.Equal(t, "https://cdn.example.com", cfg.AssetBaseURL)
	assert.Equal(t, 1024, cfg.QRSize)
	assert.Equal(t, 3*time.Second, cfg.LinkCheckTimeout)
	assert.Equal(t, 2, cfg.LinkCheckRetries)
	assert.False(t, cfg.EnableMetrics)
}

func TestLoadConfig_BadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("qr_size: [1, 2"), 0o644))
	t.Setenv(FileEnv, path)

	_, err := LoadConfig()
	assert.Error(t, err)

	t.Setenv(FileEnv, filepath.Join(t.TempDir(), "missing.yaml"))
	_, err = LoadConfig()
	assert.Error(t, err)
}

func TestGetEnvAsDuration(t *testing.T) {
	t.Setenv("SOME_TIMEOUT", "250ms")
	assert.Equal(t, 250*time.Millisecond, getEnvAsDuration("SOME_TIMEOUT", time.Second))

	t.Setenv("SOME_TIMEOUT", "soon")
	assert.Equal(t, time.Second, getEnvAsDuration("SOME_TIMEOUT", time.Second))
}

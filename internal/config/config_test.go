package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseOverridesDefaults(t *testing.T) {
	cfg, err := Parse([]byte(`
[server]
name = "test-world"

[tick]
rate = "100ms"
retry_delay = 5

[logging]
format = "json"
`))
	require.NoError(t, err)
	assert.Equal(t, "test-world", cfg.Server.Name)
	assert.Equal(t, 100*time.Millisecond, cfg.Tick.Rate)
	assert.Equal(t, int64(5), cfg.Tick.RetryDelay)
	assert.True(t, cfg.Tick.OwnerCheck, "default kept")
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "data/temporal.yaml", cfg.Temporal.CategoriesFile)
	assert.Equal(t, "overworld", cfg.Server.Dimension)
	assert.NotZero(t, cfg.Server.StartTime)
}

func TestParseRejectsBadInput(t *testing.T) {
	_, err := Parse([]byte(`[tick]
rate = "0s"`))
	assert.Error(t, err)

	_, err = Parse([]byte(`[tick`))
	assert.Error(t, err)
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "server.toml")
	require.NoError(t, os.WriteFile(path, []byte("[metrics]\nenabled = true\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.True(t, cfg.Metrics.Enabled)
	assert.Equal(t, 50*time.Millisecond, cfg.Tick.Rate)

	_, err = Load(filepath.Join(t.TempDir(), "missing.toml"))
	assert.Error(t, err)
}

func TestShippedConfig(t *testing.T) {
	cfg, err := Load("../../config/server.toml")
	require.NoError(t, err)
	assert.Equal(t, 50*time.Millisecond, cfg.Tick.Rate)
	assert.Equal(t, "data/temporal.yaml", cfg.Temporal.CategoriesFile)
}

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupEnv sets up environment variables for testing
func setupEnv(t *testing.T, envVars map[string]string) {
	t.Helper()
	for name, value := range envVars {
		t.Setenv(name, value)
	}
}

// TestLoadDefaults verifies the default values when no environment variables are set.
func TestLoadDefaults(t *testing.T) {
	setupEnv(t, map[string]string{
		"TICKERWATCH_API_BASE_URL":           "",
		"TICKERWATCH_STREAM_RECONNECT_DELAY": "",
		"TICKERWATCH_LOG_LEVEL":              "",
	})

	cfg, err := Load()

	require.NoError(t, err, "Load() should not return an error with default values")
	require.NotNil(t, cfg, "Load() should return a non-nil config")
	assert.Equal(t, "http://localhost:8000", cfg.API.BaseURL)
	assert.Equal(t, 30*time.Second, cfg.API.Timeout)
	assert.True(t, cfg.Stream.Enabled)
	assert.True(t, cfg.Stream.AutoReconnect)
	assert.Equal(t, 3*time.Second, cfg.Stream.ReconnectDelay, "Default reconnect delay should be 3s")
	assert.True(t, cfg.Stream.ReconcileOnConnect)
	assert.Equal(t, "info", cfg.Log.Level, "Default log level should be 'info'")
	assert.Equal(t, "json", cfg.Log.Format)
}

// TestLoadFromEnv verifies that Load reads values from environment variables.
func TestLoadFromEnv(t *testing.T) {
	setupEnv(t, map[string]string{
		"TICKERWATCH_API_BASE_URL":           "https://analysis.example.com",
		"TICKERWATCH_API_TIMEOUT":            "5s",
		"TICKERWATCH_STREAM_AUTO_RECONNECT":  "false",
		"TICKERWATCH_STREAM_RECONNECT_DELAY": "750ms",
		"TICKERWATCH_LOG_LEVEL":              "debug",
		"TICKERWATCH_LOG_FORMAT":             "text",
	})

	cfg, err := Load()

	require.NoError(t, err)
	require.NotNil(t, cfg)
	assert.Equal(t, "https://analysis.example.com", cfg.API.BaseURL)
	assert.Equal(t, 5*time.Second, cfg.API.Timeout)
	assert.False(t, cfg.Stream.AutoReconnect, "auto reconnect should be read from the environment")
	assert.Equal(t, 750*time.Millisecond, cfg.Stream.ReconnectDelay)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "text", cfg.Log.Format)
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tickerwatch.yaml")
	content := `
api:
  base_url: http://10.0.0.5:8000
stream:
  reconnect_delay: 10s
  reconcile_on_connect: false
log:
  level: warn
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	t.Run("file values", func(t *testing.T) {
		cfg, err := LoadFile(path)
		require.NoError(t, err)
		assert.Equal(t, "http://10.0.0.5:8000", cfg.API.BaseURL)
		assert.Equal(t, 10*time.Second, cfg.Stream.ReconnectDelay)
		assert.False(t, cfg.Stream.ReconcileOnConnect)
		assert.Equal(t, "warn", cfg.Log.Level)
		// untouched keys keep their defaults
		assert.True(t, cfg.Stream.Enabled)
	})

	t.Run("env overrides file", func(t *testing.T) {
		setupEnv(t, map[string]string{"TICKERWATCH_LOG_LEVEL": "error"})
		cfg, err := LoadFile(path)
		require.NoError(t, err)
		assert.Equal(t, "error", cfg.Log.Level)
	})

	t.Run("missing file", func(t *testing.T) {
		cfg, err := LoadFile(filepath.Join(dir, "nope.yaml"))
		assert.Error(t, err)
		assert.Nil(t, cfg)
	})
}

// TestLoadValidationErrors verifies that Load rejects invalid configuration.
func TestLoadValidationErrors(t *testing.T) {
	testCases := []struct {
		name    string
		envVars map[string]string
	}{
		{
			name:    "Invalid base URL",
			envVars: map[string]string{"TICKERWATCH_API_BASE_URL": "not a url"},
		},
		{
			name:    "Non-positive reconnect delay",
			envVars: map[string]string{"TICKERWATCH_STREAM_RECONNECT_DELAY": "0s"},
		},
		{
			name:    "Invalid log level",
			envVars: map[string]string{"TICKERWATCH_LOG_LEVEL": "invalid-level"},
		},
		{
			name:    "Invalid log format",
			envVars: map[string]string{"TICKERWATCH_LOG_FORMAT": "xml"},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			setupEnv(t, tc.envVars)

			cfg, err := Load()

			require.Error(t, err, "Load() should return an error with invalid configuration")
			assert.Contains(t, err.Error(), "validation failed")
			assert.Nil(t, cfg, "Config should be nil when an error occurs")
		})
	}
}

package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.Equal(t, ":8080", cfg.ListenAddr)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.True(t, cfg.Session.PauseOnStart)
	assert.True(t, cfg.Session.PauseOnError)
	assert.False(t, cfg.Session.PauseOnCaughtError)
	assert.Equal(t, 100, cfg.Session.MaxCallStackDepth)
	assert.Equal(t, 50, cfg.Session.StepDelayMS)
}

func TestLoadFromFileKeepsDefaultsForAbsentFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
listen_addr: ":9090"
session:
  pause_on_start: false
  step_delay_ms: 10
`), 0o644))

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, ":9090", cfg.ListenAddr)
	assert.False(t, cfg.Session.PauseOnStart)
	assert.Equal(t, 10, cfg.Session.StepDelayMS)
	// Untouched fields keep their defaults.
	assert.Equal(t, "info", cfg.LogLevel)
	assert.True(t, cfg.Session.PauseOnError)
	assert.Equal(t, 100, cfg.Session.MaxCallStackDepth)
}

func TestLoadFromFileErrors(t *testing.T) {
	_, err := LoadFromFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	bad := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("listen_addr: [unclosed"), 0o644))
	_, err = LoadFromFile(bad)
	assert.Error(t, err)
}

func TestSlogLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"info":    slog.LevelInfo,
		"warn":    slog.LevelWarn,
		"error":   slog.LevelError,
		"unknown": slog.LevelInfo,
	}
	for level, want := range tests {
		cfg := &Config{LogLevel: level}
		assert.Equal(t, want, cfg.SlogLevel(), level)
	}
}

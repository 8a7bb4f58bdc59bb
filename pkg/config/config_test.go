package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaultsWithNoPath(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "./data", cfg.DataDir)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestLoadParsesYAMLFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "waitmate.yaml")
	content := "dataDir: /var/lib/waitmate\nlogLevel: debug\nlogJSON: true\nzmqListen: \"tcp://*:5555\"\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/var/lib/waitmate", cfg.DataDir)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.True(t, cfg.LogJSON)
	assert.Equal(t, "tcp://*:5555", cfg.ZMQListen)
}

func TestLoadFailsOnMissingFile(t *testing.T) {
	_, err := Load("/nonexistent/path/waitmate.yaml")
	assert.Error(t, err)
}

func TestEnvOverlayOverridesFileValue(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "waitmate.yaml")
	require.NoError(t, os.WriteFile(path, []byte("logLevel: info\n"), 0o644))

	t.Setenv("WAITMATE_LOGLEVEL", "warn")
	t.Setenv("WAITMATE_EPHEMERAL", "true")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "warn", cfg.LogLevel)
	assert.True(t, cfg.Ephemeral)
}

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_AppliesDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, "debug: true\n"))
	require.NoError(t, err)

	assert.True(t, cfg.Debug)
	assert.Equal(t, "127.0.0.1", cfg.Server.Host)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 100, cfg.Pipeline.ChunkSize)
	assert.Equal(t, 20, cfg.Session.BatchSize)
	assert.Equal(t, 72, cfg.Session.CooldownHoursOrDefault())
}

func TestLoad_ExplicitZeroCooldown(t *testing.T) {
	cfg, err := Load(writeConfig(t, "session:\n  cooldown_hours: 0\n"))
	require.NoError(t, err)

	assert.Equal(t, 0, cfg.Session.CooldownHoursOrDefault())
}

func TestLoad_OverridesDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, `
server:
  host: 0.0.0.0
  port: 9000
pipeline:
  concurrency: 8
ocr:
  base_url: http://ocr.internal:5000
`))
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, 8, cfg.Pipeline.Concurrency)
	assert.Equal(t, "http://ocr.internal:5000", cfg.OCR.BaseURL)
}

func TestLoad_ExpandsRelativePaths(t *testing.T) {
	path := writeConfig(t, "storage:\n  database_path: ./quiz.db\n")
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.True(t, filepath.IsAbs(cfg.Storage.DatabasePath))
	assert.Equal(t, filepath.Dir(path), filepath.Dir(cfg.Storage.DatabasePath))
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestLoad_InvalidYAML(t *testing.T) {
	_, err := Load(writeConfig(t, "server: [not a map\n"))
	assert.Error(t, err)
}

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.EqualValues(t, 200*1024*1024, cfg.Cache.MaxTotalBytes)
	assert.EqualValues(t, 10*1024*1024, cfg.Cache.MaxEntryBytes)
	assert.True(t, cfg.RateLimit.Enabled)
}

func TestLoadFromFile_MissingFileFallsBackToDefaults(t *testing.T) {
	cfg, err := loadFromFile(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoadFromFile_ParsesYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	contents := `
server:
  port: 9001
cache:
  maxTotalBytes: 1048576
  maxEntryBytes: 65536
rateLimit:
  enabled: false
`
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))

	cfg, err := loadFromFile(path)
	require.NoError(t, err)

	assert.Equal(t, 9001, cfg.Server.Port)
	assert.EqualValues(t, 1048576, cfg.Cache.MaxTotalBytes)
	assert.EqualValues(t, 65536, cfg.Cache.MaxEntryBytes)
	assert.False(t, cfg.RateLimit.Enabled)
}

func TestLoadFromFile_MalformedYAMLErrors(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("not: valid: yaml: ["), 0o644))

	_, err := loadFromFile(path)
	assert.Error(t, err)
}

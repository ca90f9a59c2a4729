package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, 100, cfg.Index.CompactionThreshold)
	assert.Equal(t, ModeAsynchronous, cfg.Index.Mode)
	assert.Equal(t, ".examine/index", cfg.Store.Path)
	assert.Equal(t, 1024, cfg.Store.CacheSize)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".examine.yaml")
	data := `
index:
  compaction_threshold: 25
  mode: synchronous
store:
  path: /tmp/idx
logging:
  level: debug
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 25, cfg.Index.CompactionThreshold)
	assert.Equal(t, ModeSynchronous, cfg.Index.Mode)
	assert.Equal(t, "/tmp/idx", cfg.Store.Path)
	assert.Equal(t, "debug", cfg.Logging.Level)
	// Unset keys keep their defaults.
	assert.Equal(t, 1024, cfg.Store.CacheSize)
}

func TestLoadInvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".examine.yaml")
	require.NoError(t, os.WriteFile(path, []byte("index: [broken"), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("EXAMINE_COMPACTION_THRESHOLD", "7")
	t.Setenv("EXAMINE_MODE", "SYNCHRONOUS")
	t.Setenv("EXAMINE_STORE_PATH", "/var/examine")
	t.Setenv("EXAMINE_LOG_LEVEL", "warn")

	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)

	assert.Equal(t, 7, cfg.Index.CompactionThreshold)
	assert.Equal(t, ModeSynchronous, cfg.Index.Mode)
	assert.Equal(t, "/var/examine", cfg.Store.Path)
	assert.Equal(t, "warn", cfg.Logging.Level)
}

func TestValidate(t *testing.T) {
	cfg := Default()
	cfg.Index.CompactionThreshold = -1
	assert.Error(t, cfg.Validate())

	cfg = Default()
	cfg.Index.Mode = "sometimes"
	assert.Error(t, cfg.Validate())

	cfg = Default()
	cfg.Store.Path = ""
	assert.Error(t, cfg.Validate())

	cfg = Default()
	cfg.Store.CacheSize = 0
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 1024, cfg.Store.CacheSize)
}

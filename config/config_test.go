package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	assert.Equal(t, 8, cfg.VM.MaxCallDepth)
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
[storage]
backend = "leveldb"
path = "/tmp/vmstore"

[vm]
max_call_depth = 4

[log]
level = "debug"
format = "json"

[metrics]
enabled = true
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "leveldb", cfg.Storage.Backend)
	assert.Equal(t, map[string]any{"path": "/tmp/vmstore"}, cfg.Storage.BackendParams())
	assert.Equal(t, 4, cfg.VM.MaxCallDepth)
	assert.Equal(t, uint64(1024*1024), cfg.VM.MaxContractSize)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.True(t, cfg.Metrics.Enabled)
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	path := writeConfig(t, `
[vm]
max_depth = 4
`)
	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "vm.max_depth")
}

func TestValidate(t *testing.T) {
	cases := map[string]func(c *Config){
		"backend":    func(c *Config) { c.Storage.Backend = "redis" },
		"path":       func(c *Config) { c.Storage.Backend = "db" },
		"depth":      func(c *Config) { c.VM.MaxCallDepth = 0 },
		"size":       func(c *Config) { c.VM.MaxContractSize = 0 },
		"level":      func(c *Config) { c.Log.Level = "loud" },
		"log format": func(c *Config) { c.Log.Format = "xml" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := Default()
			mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
	assert.NoError(t, Default().Validate())
}

func TestParseLevel(t *testing.T) {
	level, err := ParseLevel("WARN")
	require.NoError(t, err)
	assert.Equal(t, slog.LevelWarn, level)

	level, err = ParseLevel("")
	require.NoError(t, err)
	assert.Equal(t, slog.LevelInfo, level)
}

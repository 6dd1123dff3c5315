// Package config loads the engine configuration from TOML.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/govm-net/vmstore/api"
)

// Config is the configuration of the vm-cli and the engine it opens.
type Config struct {
	Storage StorageConfig `toml:"storage"`
	VM      VMConfig      `toml:"vm"`
	Log     LogConfig     `toml:"log"`
	Metrics MetricsConfig `toml:"metrics"`
}

// StorageConfig selects the storage backend.
type StorageConfig struct {
	Backend string `toml:"backend"` // memory, leveldb or db
	Path    string `toml:"path"`    // leveldb directory or sqlite file
}

type VMConfig struct {
	MaxCallDepth    int    `toml:"max_call_depth"`
	MaxContractSize uint64 `toml:"max_contract_size"`
}

// LogConfig controls the slog handler. An empty File logs to stderr.
type LogConfig struct {
	Level      string `toml:"level"`
	Format     string `toml:"format"` // text or json
	File       string `toml:"file"`
	MaxSizeMB  int    `toml:"max_size_mb"`
	MaxBackups int    `toml:"max_backups"`
}

type MetricsConfig struct {
	Enabled bool `toml:"enabled"`
}

// Default returns the in-memory configuration.
func Default() *Config {
	cc := api.DefaultContractConfig()
	return &Config{
		Storage: StorageConfig{Backend: "memory"},
		VM: VMConfig{
			MaxCallDepth:    int(cc.MaxCallDepth),
			MaxContractSize: cc.MaxCodeSize,
		},
		Log: LogConfig{
			Level:      "info",
			Format:     "text",
			MaxSizeMB:  100,
			MaxBackups: 3,
		},
	}
}

// Load loads the configuration from the given path. A missing file yields
// the defaults; unknown keys are rejected.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}

	meta, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to decode config %s: %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return nil, fmt.Errorf("config file %s has unknown keys: %s", path, strings.Join(keys, ", "))
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks the configuration values.
func (c *Config) Validate() error {
	switch c.Storage.Backend {
	case "memory":
	case "leveldb", "db":
		if strings.TrimSpace(c.Storage.Path) == "" {
			return fmt.Errorf("storage backend %s requires a path", c.Storage.Backend)
		}
	default:
		return fmt.Errorf("unknown storage backend %q", c.Storage.Backend)
	}
	if c.VM.MaxCallDepth <= 0 || c.VM.MaxCallDepth > 255 {
		return fmt.Errorf("max_call_depth must be in [1, 255], got %d", c.VM.MaxCallDepth)
	}
	if c.VM.MaxContractSize == 0 {
		return fmt.Errorf("max_contract_size must be positive")
	}
	if _, err := ParseLevel(c.Log.Level); err != nil {
		return err
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("unknown log format %q", c.Log.Format)
	}
	return nil
}

// BackendParams returns the parameters for storage.Open.
func (s StorageConfig) BackendParams() map[string]any {
	switch s.Backend {
	case "leveldb":
		return map[string]any{"path": s.Path}
	case "db":
		return map[string]any{"db_path": s.Path}
	}
	return nil
}

// ParseLevel parses a log level name.
func ParseLevel(level string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("unknown log level %q", level)
}

// Package config loads and validates Examine configuration.
//
// Precedence, lowest to highest:
//  1. Built-in defaults
//  2. YAML config file (.examine.yaml)
//  3. Environment variables (EXAMINE_*)
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/zhhbo/Examine/internal/errors"
)

// Mode selects how submissions are drained.
type Mode string

const (
	// ModeSynchronous drains inline on the submitting call.
	ModeSynchronous Mode = "synchronous"
	// ModeAsynchronous drains on a single background worker.
	ModeAsynchronous Mode = "asynchronous"
)

// DefaultCompactionThreshold is the number of applied operations after
// which a full compaction is triggered.
const DefaultCompactionThreshold = 100

// Config represents the complete Examine configuration.
type Config struct {
	Index   IndexConfig   `yaml:"index" json:"index"`
	Store   StoreConfig   `yaml:"store" json:"store"`
	Logging LoggingConfig `yaml:"logging" json:"logging"`
}

// IndexConfig configures the indexing pipeline.
type IndexConfig struct {
	// CompactionThreshold is the applied-operation count that triggers a
	// full store compaction. Zero disables threshold compaction.
	CompactionThreshold int `yaml:"compaction_threshold" json:"compaction_threshold"`

	// Mode is the synchronization mode: synchronous or asynchronous.
	Mode Mode `yaml:"mode" json:"mode"`
}

// StoreConfig configures the bleve store.
type StoreConfig struct {
	// Path is the directory holding the persistent index.
	Path string `yaml:"path" json:"path"`

	// CacheSize is the key-lookup LRU size (default 1024).
	CacheSize int `yaml:"cache_size" json:"cache_size"`
}

// LoggingConfig configures structured logging.
type LoggingConfig struct {
	Level string `yaml:"level" json:"level"`
}

// Default returns the built-in configuration defaults.
func Default() *Config {
	return &Config{
		Index: IndexConfig{
			CompactionThreshold: DefaultCompactionThreshold,
			Mode:                ModeAsynchronous,
		},
		Store: StoreConfig{
			Path:      ".examine/index",
			CacheSize: 1024,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load reads configuration from path, layering it over defaults and then
// applying environment overrides. A missing file is not an error; the
// defaults are used.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
		// Fall through to env overrides.
	case err != nil:
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, errors.Newf(errors.ErrCodeConfigInvalid, err,
				"failed to parse config %s", path)
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv overlays EXAMINE_* environment variables.
func (c *Config) applyEnv() {
	if v := os.Getenv("EXAMINE_COMPACTION_THRESHOLD"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Index.CompactionThreshold = n
		}
	}
	if v := os.Getenv("EXAMINE_MODE"); v != "" {
		c.Index.Mode = Mode(strings.ToLower(v))
	}
	if v := os.Getenv("EXAMINE_STORE_PATH"); v != "" {
		c.Store.Path = v
	}
	if v := os.Getenv("EXAMINE_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
}

// Validate checks configuration invariants.
func (c *Config) Validate() error {
	if c.Index.CompactionThreshold < 0 {
		return errors.Newf(errors.ErrCodeConfigInvalid, nil,
			"compaction_threshold must be >= 0, got %d", c.Index.CompactionThreshold)
	}
	switch c.Index.Mode {
	case ModeSynchronous, ModeAsynchronous:
	default:
		return errors.Newf(errors.ErrCodeConfigInvalid, nil,
			"mode must be synchronous or asynchronous, got %q", c.Index.Mode)
	}
	if c.Store.Path == "" {
		return errors.New(errors.ErrCodeConfigInvalid, "store path must not be empty", nil)
	}
	if c.Store.CacheSize <= 0 {
		c.Store.CacheSize = Default().Store.CacheSize
	}
	return nil
}

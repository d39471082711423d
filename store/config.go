package store

import (
	"fmt"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/maxxboehme/BlockStorage/block"
	"github.com/maxxboehme/BlockStorage/region"
	"github.com/maxxboehme/BlockStorage/region/dirty"
)

// Config describes where a store lives and how it is laid out.
//
// Example YAML:
//
//	path: /var/lib/app/records.blk
//	block_size: 4096
//	file_mode: 0o600
//	flush: full
//	log:
//	  enabled: true
//	  level: debug
type Config struct {
	// Path of the backing file. Empty keeps the store in memory.
	Path string `yaml:"path"`

	// BlockSize is fixed when the store is first formatted.
	BlockSize int `yaml:"block_size"`

	// FileMode is used when the file is created.
	FileMode os.FileMode `yaml:"file_mode"`

	// Flush is "auto", "data" or "full"; see dirty.ParseFlushMode.
	Flush string `yaml:"flush"`

	Log LogConfig `yaml:"log"`
}

// LogConfig enables the package logger.
type LogConfig struct {
	Enabled bool   `yaml:"enabled"`
	Level   string `yaml:"level"` // debug, info, warn or error
	File    string `yaml:"file"`  // JSON lines here instead of stderr
}

// DefaultConfig returns an in-memory configuration with the default block size.
func DefaultConfig() *Config {
	return &Config{
		BlockSize: block.DefaultConfig.BlockSize,
		FileMode:  region.DefaultFileOptions.Mode,
		Flush:     dirty.FlushAuto.String(),
	}
}

// LoadConfig reads a YAML config file. Fields it omits keep their defaults.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("store: read config: %w", err)
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("store: parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks every field.
func (c *Config) Validate() error {
	if err := (block.Config{BlockSize: c.BlockSize}).Validate(); err != nil {
		return fmt.Errorf("store: %w", err)
	}
	if _, err := c.flushMode(); err != nil {
		return err
	}
	if _, err := c.Log.level(); err != nil {
		return err
	}
	return nil
}

func (c *Config) flushMode() (dirty.FlushMode, error) {
	m, err := dirty.ParseFlushMode(c.Flush)
	if err != nil {
		return m, fmt.Errorf("store: %w", err)
	}
	return m, nil
}

func (l LogConfig) level() (slog.Level, error) {
	var lvl slog.Level
	if l.Level == "" {
		return slog.LevelInfo, nil
	}
	if err := lvl.UnmarshalText([]byte(l.Level)); err != nil {
		return lvl, fmt.Errorf("store: log level: %w", err)
	}
	return lvl, nil
}

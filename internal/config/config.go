// Package config loads heretek's on-disk configuration: a small YAML file
// that seeds the defaults command-line flags then override.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config is the full set of knobs that can come from either the config
// file or a flag. Flags always win: callers load a Config from file, then
// apply any flags the user actually passed.
type Config struct {
	// Remote is a "host:port" MI endpoint to connect to instead of
	// spawning a local gdb.
	Remote string `yaml:"remote"`
	// ThirtyTwoBit selects 4-byte pointer width (ARM/x86) instead of the
	// default 64-bit.
	ThirtyTwoBit bool `yaml:"thirty_two_bit"`
	// LogFile is where structured logs are written; empty disables
	// file logging.
	LogFile string `yaml:"log_file"`
	// Debug enables verbose (development-mode) logging.
	Debug bool `yaml:"debug"`
}

// DefaultPath returns ~/.config/heretek/config.yaml, the conventional
// location searched when --config isn't given.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("resolve user config dir: %w", err)
	}
	return filepath.Join(dir, "heretek", "config.yaml"), nil
}

// Load reads and parses the YAML file at path. A missing file is not an
// error — it yields a zero-value Config, since every field has a sane
// default.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &Config{}, nil
		}
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return &cfg, nil
}

// PointerWidthBits returns 32 or 64 per ThirtyTwoBit.
func (c *Config) PointerWidthBits() int {
	if c.ThirtyTwoBit {
		return 32
	}
	return 64
}

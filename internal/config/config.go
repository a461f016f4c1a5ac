// Package config reads the global $MOON_HOME/config.toml file: every
// backend/job-limit flag the CLI defines has an obvious "don't make me
// type this every time" default worth persisting outside any one project
// tree.
package config

import (
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml"
	"github.com/pkg/errors"
)

// FileName is the config file's name within $MOON_HOME.
const FileName = "config.toml"

// Config mirrors config.toml's recognized top-level keys.
type Config struct {
	DefaultBackend     string   `toml:"default-backend"`
	DefaultJobLimit    int      `toml:"default-job-limit"`
	UnstableFeatures   []string `toml:"unstable-features"`
	ToolchainOverrides map[string]string `toml:"toolchain-overrides"`
}

// Default returns the configuration used when no config.toml exists.
func Default() Config {
	return Config{DefaultBackend: "wasm-gc", DefaultJobLimit: 0}
}

// Load reads and parses the config file at path, returning Default() if it
// does not exist.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return Config{}, errors.Wrapf(err, "reading %s", path)
	}
	cfg := Default()
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return Config{}, errors.Wrapf(err, "parsing %s", path)
	}
	return cfg, nil
}

// Save writes cfg to path as TOML, creating parent directories as needed.
func Save(path string, cfg Config) error {
	data, err := toml.Marshal(cfg)
	if err != nil {
		return errors.Wrap(err, "encoding config")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.Wrapf(err, "creating %s", filepath.Dir(path))
	}
	return os.WriteFile(path, data, 0o644)
}

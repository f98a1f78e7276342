// Package config loads the loader's YAML configuration: search-path
// additions beyond DT_RPATH/DT_RUNPATH, default log verbosity, and
// diagnostic toggles. None of this is spec-mandated loader behavior; it is
// the ambient configuration layer a real CLI needs on top of the core.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the on-disk shape of a loader configuration file.
type Config struct {
	// SearchPath lists extra directories to search for DT_NEEDED objects,
	// tried after DT_RPATH/DT_RUNPATH and before the default
	// /usr/lib/x86_64-linux-gnu.
	SearchPath []string `yaml:"search_path"`
	// Debug enables development-mode (human-readable, colorized) logging.
	Debug bool `yaml:"debug"`
	// PauseBeforeJump waits for a newline on stdin before trampolining to
	// the resolved entry point, for interactive inspection.
	PauseBeforeJump bool `yaml:"pause_before_jump"`
}

// Default returns the zero-value configuration (no extra search path,
// production logging, no pause).
func Default() *Config {
	return &Config{}
}

// Load reads and parses a YAML config file. A missing file is not an
// error: it returns Default().
func Load(path string) (*Config, error) {
	if path == "" {
		return Default(), nil
	}
	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return Default(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	cfg := Default()
	if err := yaml.Unmarshal(raw, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

package config

import (
	"fmt"
	"os"
	"time"

	"github.com/acm19/pdfsqueeze/internal/squeeze"
	"gopkg.in/yaml.v3"
)

// Environment variables that override file values.
const (
	EnvGhostscript = "PDFSQUEEZE_GS"
	EnvScratchDir  = "PDFSQUEEZE_SCRATCH_DIR"
)

// Config holds the settings shared by every pdfsqueeze command.
type Config struct {
	GhostscriptPath  string        `yaml:"ghostscript_path"`  // Binary name or path for gs
	ExiftoolPath     string        `yaml:"exiftool_path"`     // Empty means exiftool on PATH
	DefaultPreset    string        `yaml:"default_preset"`    // screen, ebook or printer
	ScratchDir       string        `yaml:"scratch_dir"`       // Parent of per-job workspaces, empty for system temp
	MaxConcurrency   int           `yaml:"max_concurrency"`   // Worker count for batch runs
	Timeout          time.Duration `yaml:"timeout"`           // Per-job limit, 0 for none
	StrictValidation bool          `yaml:"strict_validation"` // Structural validation before compressing
	OverwriteRemote  bool          `yaml:"overwrite_remote"`  // Replace differing S3 objects
}

// DefaultConfig is used for any field a config file leaves unset.
func DefaultConfig() *Config {
	return &Config{
		GhostscriptPath: squeeze.DefaultGhostscriptBinary,
		DefaultPreset:   string(squeeze.DefaultPreset),
		MaxConcurrency:  squeeze.DefaultBatchOptions().MaxConcurrency,
		Timeout:         5 * time.Minute,
	}
}

// Load reads filename over the defaults and applies environment overrides.
// An empty filename skips the file.
func Load(filename string) (*Config, error) {
	config := DefaultConfig()

	if filename != "" {
		data, err := os.ReadFile(filename)
		if err != nil {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		if err := yaml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("error parsing config file: %w", err)
		}
	}

	if v := os.Getenv(EnvGhostscript); v != "" {
		config.GhostscriptPath = v
	}
	if v := os.Getenv(EnvScratchDir); v != "" {
		config.ScratchDir = v
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return config, nil
}

// Validate checks field ranges.
func (c *Config) Validate() error {
	if c.GhostscriptPath == "" {
		return fmt.Errorf("ghostscript_path is required")
	}
	if _, err := squeeze.ParsePreset(c.DefaultPreset); err != nil {
		return fmt.Errorf("default_preset: %w", err)
	}
	if c.MaxConcurrency < 1 {
		return fmt.Errorf("max_concurrency must be greater than 0")
	}
	if c.Timeout < 0 {
		return fmt.Errorf("timeout must not be negative")
	}
	if c.ScratchDir != "" {
		if info, err := os.Stat(c.ScratchDir); err != nil || !info.IsDir() {
			return fmt.Errorf("scratch_dir is not a directory: %s", c.ScratchDir)
		}
	}
	return nil
}

// Preset returns the parsed default preset. Validate guarantees it parses.
func (c *Config) Preset() squeeze.Preset {
	p, err := squeeze.ParsePreset(c.DefaultPreset)
	if err != nil {
		return squeeze.DefaultPreset
	}
	return p
}

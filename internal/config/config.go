package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"vmgr/internal/archive"
)

// Progress display modes.
const (
	ProgressAuto  = "auto"
	ProgressBar   = "bar"
	ProgressPlain = "plain"
	ProgressNone  = "none"
)

// Config captures user settings for vmgr.
type Config struct {
	Version    int          `yaml:"version"`
	StorageDir string       `yaml:"storage_dir,omitempty"`
	LogDir     string       `yaml:"log_dir,omitempty"`
	LogLevel   string       `yaml:"log_level"`
	Progress   string       `yaml:"progress"`
	Layout     LayoutConfig `yaml:"layout"`
	Tar        TarConfig    `yaml:"tar"`
}

// LayoutConfig describes the installed tree conventions.
type LayoutConfig struct {
	archive.Layout `yaml:",inline"`
	// PlatformName overrides the detected binary-root directory name.
	PlatformName string `yaml:"platform_name,omitempty"`
}

// TarConfig tunes the gzip-tar extractor.
type TarConfig struct {
	EstimatedEntries int   `yaml:"estimated_entries"`
	PreScan          *bool `yaml:"prescan,omitempty"`
}

// PreScanEnabled returns the effective prescan flag applying defaults.
func (t TarConfig) PreScanEnabled() bool {
	if t.PreScan == nil {
		return false
	}
	return *t.PreScan
}

// Default returns the baseline configuration.
func Default() Config {
	return Config{
		Version:  1,
		LogLevel: "info",
		Progress: ProgressAuto,
		Layout: LayoutConfig{
			Layout: archive.DefaultLayout(),
		},
		Tar: TarConfig{
			EstimatedEntries: archive.DefaultEstimatedEntries,
			PreScan:          boolPtr(false),
		},
	}
}

// Load reads the YAML configuration from disk if it exists, otherwise returns
// the default configuration.
func Load(path string) (Config, error) {
	contents, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			cfg := Default()
			cfg.ApplyDefaults()
			return cfg, nil
		}
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(contents, &cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	cfg.ApplyDefaults()
	return cfg, nil
}

// ApplyDefaults ensures fields fall back to sensible defaults when the YAML
// omits or blanks them.
func (c *Config) ApplyDefaults() {
	defaults := Default()

	if c.Version == 0 {
		c.Version = defaults.Version
	}
	if c.LogLevel == "" {
		c.LogLevel = defaults.LogLevel
	}
	if c.Progress == "" {
		c.Progress = defaults.Progress
	}
	if c.Layout.BinaryName == "" {
		c.Layout.BinaryName = defaults.Layout.BinaryName
	}
	if c.Layout.ExtractDir == "" {
		c.Layout.ExtractDir = defaults.Layout.ExtractDir
	}
	if c.Layout.Artifacts == nil {
		c.Layout.Artifacts = append([]string(nil), defaults.Layout.Artifacts...)
	}
	if c.Layout.PayloadDir == "" {
		c.Layout.PayloadDir = defaults.Layout.PayloadDir
	}
	if c.Layout.LegacyDir == "" {
		c.Layout.LegacyDir = defaults.Layout.LegacyDir
	}
	if c.Tar.EstimatedEntries == 0 {
		c.Tar.EstimatedEntries = defaults.Tar.EstimatedEntries
	}
	if c.Tar.PreScan == nil {
		c.Tar.PreScan = boolPtr(false)
	}
}

// Save writes the configuration to path, creating parent directories.
func (c Config) Save(path string) error {
	buf, err := c.Marshal()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("prepare config dir: %w", err)
	}
	if err := os.WriteFile(path, buf, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// Marshal returns the YAML encoding of the configuration.
func (c Config) Marshal() ([]byte, error) {
	buf, err := yaml.Marshal(&c)
	if err != nil {
		return nil, fmt.Errorf("marshal config: %w", err)
	}
	return buf, nil
}

func boolPtr(v bool) *bool {
	return &v
}

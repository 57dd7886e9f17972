package config

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/log"
)

// ValidationResult captures a single validation finding.
type ValidationResult struct {
	Level   string `json:"level"` // "error" or "warning"
	Message string `json:"message"`
}

// Validate checks the configuration and returns structured findings.
func (c Config) Validate() []ValidationResult {
	var results []ValidationResult
	results = append(results, c.validateProgress()...)
	results = append(results, c.validateLogLevel()...)
	results = append(results, c.validateLayout()...)
	results = append(results, c.validateTar()...)
	return results
}

// HasErrors reports whether any finding is an error.
func HasErrors(results []ValidationResult) bool {
	for _, r := range results {
		if r.Level == "error" {
			return true
		}
	}
	return false
}

func (c Config) validateProgress() []ValidationResult {
	switch c.Progress {
	case ProgressAuto, ProgressBar, ProgressPlain, ProgressNone:
		return nil
	}
	return []ValidationResult{{
		Level:   "error",
		Message: fmt.Sprintf("progress %q must be one of auto, bar, plain, none", c.Progress),
	}}
}

func (c Config) validateLogLevel() []ValidationResult {
	if _, err := log.ParseLevel(c.LogLevel); err != nil {
		return []ValidationResult{{
			Level:   "error",
			Message: fmt.Sprintf("log_level %q is not a valid level", c.LogLevel),
		}}
	}
	return nil
}

func (c Config) validateLayout() []ValidationResult {
	var results []ValidationResult
	names := map[string]string{
		"binary_name":   c.Layout.BinaryName,
		"extract_dir":   c.Layout.ExtractDir,
		"payload_dir":   c.Layout.PayloadDir,
		"legacy_dir":    c.Layout.LegacyDir,
		"platform_name": c.Layout.PlatformName,
	}
	for _, key := range []string{"binary_name", "extract_dir", "payload_dir", "legacy_dir", "platform_name"} {
		if !isPlainName(names[key]) {
			results = append(results, ValidationResult{
				Level:   "error",
				Message: fmt.Sprintf("layout.%s %q must be a single path element", key, names[key]),
			})
		}
	}
	for _, artifact := range c.Layout.Artifacts {
		if artifact == "" || !isPlainName(artifact) {
			results = append(results, ValidationResult{
				Level:   "error",
				Message: fmt.Sprintf("layout.artifacts entry %q must be a single path element", artifact),
			})
		}
	}
	if len(c.Layout.Artifacts) == 0 {
		results = append(results, ValidationResult{
			Level:   "warning",
			Message: "layout.artifacts is empty; self-extracted desktop files will be kept",
		})
	}
	return results
}

func (c Config) validateTar() []ValidationResult {
	if c.Tar.EstimatedEntries < 0 {
		return []ValidationResult{{
			Level:   "error",
			Message: fmt.Sprintf("tar.estimated_entries must not be negative (got %d)", c.Tar.EstimatedEntries),
		}}
	}
	return nil
}

// isPlainName accepts empty values and single path elements.
func isPlainName(value string) bool {
	if value == "" {
		return true
	}
	if value == "." || value == ".." {
		return false
	}
	return !strings.ContainsAny(value, `/\`)
}

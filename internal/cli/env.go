package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"vmgr/internal/archive"
	"vmgr/internal/config"
	"vmgr/internal/logx"
	"vmgr/internal/paths"
	"vmgr/internal/platform"
)

// Seams replaced by tests.
var (
	extractorFor = archive.ForPlatform
	detector     = platform.NewDetector()
)

// environment bundles the resolved locations and configuration every command
// starts from.
type environment struct {
	paths paths.Paths
	cfg   config.Config
}

func loadEnvironment() (environment, error) {
	pp, err := paths.Resolve(homeDir)
	if err != nil {
		return environment{}, err
	}
	cfg, err := config.Load(pp.ConfigFile)
	if err != nil {
		return environment{}, err
	}
	pp, err = paths.ApplyConfig(pp, cfg)
	if err != nil {
		return environment{}, err
	}
	return environment{paths: pp, cfg: cfg}, nil
}

// validateConfig turns error-level validation results into a single error.
func (e environment) validateConfig() error {
	var errs []error
	for _, r := range e.cfg.Validate() {
		if r.Level == "error" {
			errs = append(errs, errors.New(r.Message))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid config %s: %w", e.paths.ConfigFile, errors.Join(errs...))
	}
	return nil
}

func (e environment) logger(stderr io.Writer) (*log.Logger, io.Closer, error) {
	level, err := log.ParseLevel(strings.TrimSpace(e.cfg.LogLevel))
	if err != nil {
		level = log.InfoLevel
	}
	var echo io.Writer
	if verbose {
		level = log.DebugLevel
		echo = stderr
	}
	return logx.New(e.paths.LogsDir, level, echo)
}

// detectPlatform runs host detection and applies the configured override.
func (e environment) detectPlatform(ctx context.Context) (platform.Info, error) {
	info, err := detector.Detect(ctx)
	if err != nil {
		return platform.Info{}, fmt.Errorf("detect platform: %w", err)
	}
	info.Override = strings.TrimSpace(e.cfg.Layout.PlatformName)
	return info, nil
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

func nonEmptyOrDash(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return "-"
	}
	return value
}

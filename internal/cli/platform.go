package cli

import (
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"vmgr/internal/archive"
	"vmgr/internal/platform"
)

type platformReport struct {
	platform.Info
	PlatformName string `json:"platform_name"`
	Format       string `json:"format"`
	StorageDir   string `json:"storage_dir"`
	Executable   string `json:"executable"`
}

func newPlatformCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "platform [version]",
		Short: "Show the detected platform and where installs place the executable",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runPlatform,
	}
}

func runPlatform(cmd *cobra.Command, args []string) error {
	env, err := loadEnvironment()
	if err != nil {
		return err
	}
	info, err := env.detectPlatform(commandContext(cmd))
	if err != nil {
		return err
	}

	version := "<version>"
	if len(args) == 1 {
		version = args[0]
	}

	report := platformReport{
		Info:         info,
		PlatformName: info.PlatformName(),
		Format:       "unsupported",
		StorageDir:   env.paths.StorageDir,
		Executable: filepath.Join(env.paths.StorageDir, version, info.PlatformName(),
			"bin", env.cfg.Layout.BinaryName),
	}
	if extractor, err := extractorFor(archive.Options{Layout: env.cfg.Layout.Layout, Namer: info}); err == nil {
		report.Format = extractor.Format()
	}

	if outputJSON {
		data, err := json.MarshalIndent(report, "", "  ")
		if err != nil {
			return fmt.Errorf("encode json: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(data))
		return nil
	}

	bold := lipgloss.NewStyle().Bold(true).Inline(true)
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, bold.Render("PLATFORM"))
	fmt.Fprintf(out, "  %-12s %s/%s\n", "os/arch:", report.OS, report.Arch)
	fmt.Fprintf(out, "  %-12s %s %s\n", "distro:", nonEmptyOrDash(report.Distro), report.Version)
	fmt.Fprintf(out, "  %-12s %s\n", "kernel:", nonEmptyOrDash(report.Kernel))
	fmt.Fprintf(out, "  %-12s %s\n", "name:", nonEmptyOrDash(report.PlatformName))
	fmt.Fprintf(out, "  %-12s %s\n", "format:", report.Format)
	fmt.Fprintf(out, "  %-12s %s\n", "storage:", report.StorageDir)
	fmt.Fprintf(out, "  %-12s %s\n", "executable:", report.Executable)
	return nil
}

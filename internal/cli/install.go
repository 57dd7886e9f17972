package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"vmgr/internal/archive"
	"vmgr/internal/install"
	"vmgr/internal/paths"
	"vmgr/internal/tui"
)

var (
	installNoProgress bool
	installPreScan    bool
)

type installResult struct {
	Archive        string `json:"archive"`
	Root           string `json:"root"`
	Executable     string `json:"executable"`
	ArchiveRemoved bool   `json:"archive_removed"`
	Warning        string `json:"warning,omitempty"`
}

func newInstallCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "install <archive>",
		Short: "Extract a downloaded archive into an installed tree",
		Long: "Extract a downloaded archive into a directory named after it and remove the archive.\n" +
			"A bare file name is looked up in the storage directory when it is not found locally.",
		Args: cobra.ExactArgs(1),
		RunE: runInstall,
	}

	cmd.Flags().BoolVar(&installNoProgress, "no-progress", false, "Disable progress output")
	cmd.Flags().BoolVar(&installPreScan, "prescan", false, "Count gzip-tar entries before extracting for exact progress")

	return cmd
}

func runInstall(cmd *cobra.Command, args []string) error {
	ctx := commandContext(cmd)

	env, err := loadEnvironment()
	if err != nil {
		return err
	}
	if err := env.validateConfig(); err != nil {
		return err
	}

	archivePath, err := resolveArchive(args[0], env.paths.StorageDir)
	if err != nil {
		return err
	}
	desc, err := archive.ParseDescriptor(archivePath)
	if err != nil {
		return err
	}

	logger, closer, err := env.logger(cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer closer.Close()

	info, err := env.detectPlatform(ctx)
	if err != nil {
		return err
	}
	logger.Debug("platform detected", "os", info.OS, "arch", info.Arch, "name", info.PlatformName())

	release, err := install.AcquireLock(ctx, env.paths.LocksDir, desc.Name)
	if err != nil {
		return err
	}
	defer release()

	opts := archive.Options{
		Layout:           env.cfg.Layout.Layout,
		Namer:            info,
		Logger:           logger,
		EstimatedEntries: env.cfg.Tar.EstimatedEntries,
		PreScan:          installPreScan || env.cfg.Tar.PreScanEnabled(),
	}

	var (
		tree       archive.InstalledTree
		cleanupErr *install.CleanupError
	)
	runOnce := func(progress archive.Progress) error {
		opts.Progress = progress
		extractor, err := extractorFor(opts)
		if err != nil {
			return err
		}
		installer := install.New(extractor, install.WithLogger(logger))
		tree, err = installer.Install(ctx, desc)
		if errors.As(err, &cleanupErr) {
			return nil
		}
		return err
	}

	stderr := cmd.ErrOrStderr()
	mode := tui.DetectMode(stderr, env.cfg.Progress, installNoProgress || outputJSON)
	if mode == tui.ModeBar && verbose {
		// Echoed log records share stderr with the bar.
		mode = tui.ModePlain
	}
	switch mode {
	case tui.ModeBar:
		model := tui.NewBarModel("Installing " + desc.Name)
		err = tui.RunWithWork(stderr, model, func(send func(tea.Msg)) error {
			return runOnce(tui.NewBarReporter(send))
		})
	case tui.ModePlain:
		err = runOnce(tui.NewLineReporter(stderr, "Installing "+desc.Name))
	default:
		err = runOnce(archive.NopProgress{})
	}
	if err != nil {
		return err
	}

	result := installResult{
		Archive:        desc.ArchivePath(),
		Root:           tree.Root,
		Executable:     tree.Executable,
		ArchiveRemoved: cleanupErr == nil,
	}
	if cleanupErr != nil {
		result.Warning = cleanupErr.Error()
		logger.Warn("archive left behind", "archive", cleanupErr.Archive, "err", cleanupErr.Err)
	}
	return writeInstallResult(cmd, result, logger)
}

// resolveArchive accepts a path, or a bare file name stored in storageDir.
func resolveArchive(arg, storageDir string) (string, error) {
	arg = strings.TrimSpace(arg)
	if arg == "" {
		return "", errors.New("archive path is required")
	}
	ok, err := paths.FileExists(arg)
	if err != nil {
		return "", fmt.Errorf("stat archive: %w", err)
	}
	if ok {
		return arg, nil
	}
	if !strings.ContainsAny(arg, `/\`) {
		candidate := filepath.Join(storageDir, arg)
		if ok, err := paths.FileExists(candidate); err == nil && ok {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("%w: %s", archive.ErrArchiveNotFound, arg)
}

func writeInstallResult(cmd *cobra.Command, result installResult, logger *log.Logger) error {
	out := cmd.OutOrStdout()
	if outputJSON {
		data, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return fmt.Errorf("encode json: %w", err)
		}
		fmt.Fprintln(out, string(data))
		return nil
	}

	fmt.Fprintln(out, tui.SuccessStyle.Render("Installed "+filepath.Base(result.Root)))
	fmt.Fprintf(out, "  tree:       %s\n", result.Root)
	fmt.Fprintf(out, "  executable: %s\n", result.Executable)
	if result.Warning != "" {
		fmt.Fprintln(cmd.ErrOrStderr(), tui.ErrorStyle.Render("warning: "+result.Warning))
	}
	if _, err := os.Stat(result.Executable); err != nil {
		logger.Warn("executable missing after install", "path", result.Executable, "err", err)
	}
	return nil
}

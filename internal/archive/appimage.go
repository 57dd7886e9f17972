package archive

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
)

// appImageExtractFlag asks a self-mounting image to unpack itself into
// ./squashfs-root instead of running.
const appImageExtractFlag = "--appimage-extract"

// AppImageExtractor installs self-extracting images. The image is executed
// with its working directory set to the storage directory; the process-wide
// working directory is never changed.
type AppImageExtractor struct {
	layout     Layout
	binaryRoot string
	logger     *log.Logger
	sink       Progress
}

// NewAppImageExtractor builds the self-extracting image variant.
func NewAppImageExtractor(opts Options) *AppImageExtractor {
	return &AppImageExtractor{
		layout:     opts.Layout,
		binaryRoot: opts.platformName(),
		logger:     opts.logger(),
		sink:       opts.progress(),
	}
}

// Format implements Extractor.
func (e *AppImageExtractor) Format() string {
	return FormatAppImage
}

// Extract implements Extractor.
func (e *AppImageExtractor) Extract(d Descriptor) (InstalledTree, error) {
	// The image runs with cmd.Dir set to d.Dir, so a relative path would be
	// resolved against it a second time.
	dir, err := filepath.Abs(d.Dir)
	if err != nil {
		return InstalledTree{}, fmt.Errorf("resolve storage directory: %w", err)
	}
	d.Dir = dir

	tree := d.TreePath()
	archivePath := d.ArchivePath()
	binaryRoot := e.binaryRoot
	if binaryRoot == "" {
		binaryRoot = e.layout.PayloadDir
	}

	if err := resetTree(tree); err != nil {
		return InstalledTree{}, err
	}

	if _, err := os.Stat(archivePath); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return InstalledTree{}, fmt.Errorf("%w: %s", ErrArchiveNotFound, archivePath)
		}
		return InstalledTree{}, fmt.Errorf("stat archive: %w", err)
	}
	if err := setExecutable(archivePath); err != nil {
		return InstalledTree{}, err
	}

	extracted := filepath.Join(d.Dir, e.layout.ExtractDir)
	// Clear leftovers from an interrupted run.
	if err := os.RemoveAll(extracted); err != nil {
		return InstalledTree{}, fmt.Errorf("remove stale %s: %w", extracted, err)
	}

	e.logger.Debug("running self-extraction", "archive", archivePath)
	if err := runSelfExtract(d.Dir, archivePath); err != nil {
		return InstalledTree{}, err
	}

	if err := os.Rename(extracted, tree); err != nil {
		return InstalledTree{}, fmt.Errorf("rename %s: %w", extracted, err)
	}

	for _, name := range e.layout.Artifacts {
		if err := os.Remove(filepath.Join(tree, name)); err != nil {
			return InstalledTree{}, fmt.Errorf("remove artifact %s: %w", name, err)
		}
	}

	if binaryRoot != e.layout.PayloadDir {
		from := filepath.Join(tree, e.layout.PayloadDir)
		to := filepath.Join(tree, binaryRoot)
		if err := os.Rename(from, to); err != nil {
			return InstalledTree{}, fmt.Errorf("rename payload %s: %w", e.layout.PayloadDir, err)
		}
	}

	e.sink.Finish(fmt.Sprintf("Finished extracting to %s", tree))
	return InstalledTree{
		Root:       tree,
		Executable: executablePath(tree, binaryRoot, e.layout.BinaryName),
	}, nil
}

func runSelfExtract(dir, archivePath string) error {
	cmd := exec.Command(archivePath, appImageExtractFlag)
	cmd.Dir = dir
	output, err := cmd.CombinedOutput()
	if err == nil {
		return nil
	}
	cmdErr := &CommandError{
		Path:     archivePath,
		Args:     []string{appImageExtractFlag},
		ExitCode: -1,
		Output:   lastLine(string(output)),
		Err:      err,
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		cmdErr.ExitCode = exitErr.ExitCode()
	}
	return cmdErr
}

// lastLine keeps error messages short; self-extraction prints one line per
// unpacked file.
func lastLine(text string) string {
	text = strings.TrimSpace(text)
	if idx := strings.LastIndexByte(text, '\n'); idx >= 0 {
		return text[idx+1:]
	}
	return text
}

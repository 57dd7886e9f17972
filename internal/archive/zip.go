package archive

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/charmbracelet/log"
	"github.com/klauspost/compress/zip"
)

// ZipExtractor installs zip releases. Any entry failure aborts the install.
type ZipExtractor struct {
	layout     Layout
	binaryRoot string
	logger     *log.Logger
	sink       Progress
}

// NewZipExtractor builds the zip variant.
func NewZipExtractor(opts Options) *ZipExtractor {
	return &ZipExtractor{
		layout:     opts.Layout,
		binaryRoot: opts.platformName(),
		logger:     opts.logger(),
		sink:       opts.progress(),
	}
}

// Format implements Extractor.
func (e *ZipExtractor) Format() string {
	return FormatZip
}

// Extract implements Extractor.
func (e *ZipExtractor) Extract(d Descriptor) (InstalledTree, error) {
	tree := d.TreePath()
	if err := resetTree(tree); err != nil {
		return InstalledTree{}, err
	}

	reader, err := zip.OpenReader(d.ArchivePath())
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return InstalledTree{}, fmt.Errorf("%w: %s", ErrArchiveNotFound, d.ArchivePath())
		}
		return InstalledTree{}, fmt.Errorf("open zip: %w", err)
	}
	defer reader.Close()

	if err := os.Mkdir(tree, 0o755); err != nil {
		return InstalledTree{}, fmt.Errorf("create install dir: %w", err)
	}

	progress := newCounter(e.sink, len(reader.File))
	for _, file := range reader.File {
		if err := e.extractEntry(tree, file); err != nil {
			return InstalledTree{}, err
		}
		progress.step()
	}
	progress.finish(fmt.Sprintf("Finished unzipping to %s", tree))
	e.logger.Debug("zip extracted", "entries", len(reader.File), "dest", tree)

	return InstalledTree{
		Root:       tree,
		Executable: executablePath(tree, e.binaryRoot, e.layout.BinaryName),
	}, nil
}

func (e *ZipExtractor) extractEntry(tree string, file *zip.File) error {
	target, err := entryTarget(tree, file.Name)
	if err != nil {
		return err
	}
	if file.FileInfo().IsDir() {
		if err := os.MkdirAll(target, 0o755); err != nil {
			return fmt.Errorf("create dir %s: %w", target, err)
		}
		return nil
	}

	rc, err := file.Open()
	if err != nil {
		return fmt.Errorf("open zip entry %s: %w", file.Name, err)
	}
	defer rc.Close()
	return writeFile(target, rc, entryMode(file.Mode()))
}

// entryMode keeps the permission bits recorded by the archiver, falling back
// to 0644 for archivers that record none. Zip releases target Windows, where
// executability does not come from mode bits, so the fallback is not
// executable.
func entryMode(mode fs.FileMode) fs.FileMode {
	if perm := mode.Perm(); perm != 0 {
		return perm
	}
	return 0o644
}

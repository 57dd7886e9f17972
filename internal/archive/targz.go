package archive

import (
	"archive/tar"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/klauspost/compress/gzip"
)

// GzipTarExtractor installs gzip-compressed tar releases.
//
// Unlike ZipExtractor it is lenient: a failing entry is logged and skipped so
// the rest of the archive still lands on disk. Directories are recognised by
// a trailing slash in the entry name; the tar type flag written by the
// upstream archiver is not reliable.
type GzipTarExtractor struct {
	layout     Layout
	binaryRoot string
	logger     *log.Logger
	sink       Progress
	estimated  int
	preScan    bool
}

// NewGzipTarExtractor builds the gzip-tar variant.
func NewGzipTarExtractor(opts Options) *GzipTarExtractor {
	estimated := opts.EstimatedEntries
	if estimated <= 0 {
		estimated = DefaultEstimatedEntries
	}
	return &GzipTarExtractor{
		layout:     opts.Layout,
		binaryRoot: opts.platformName(),
		logger:     opts.logger(),
		sink:       opts.progress(),
		estimated:  estimated,
		preScan:    opts.PreScan,
	}
}

// Format implements Extractor.
func (e *GzipTarExtractor) Format() string {
	return FormatTarGz
}

// Extract implements Extractor.
func (e *GzipTarExtractor) Extract(d Descriptor) (InstalledTree, error) {
	tree := d.TreePath()
	if err := resetTree(tree); err != nil {
		return InstalledTree{}, err
	}

	total := e.estimated
	if e.preScan {
		n, err := e.countEntries(d)
		if err != nil {
			return InstalledTree{}, err
		}
		total = n
	}

	if err := e.expand(d, tree, total); err != nil {
		return InstalledTree{}, err
	}

	if e.layout.LegacyDir != "" && e.binaryRoot != "" && e.layout.LegacyDir != e.binaryRoot {
		legacy := filepath.Join(tree, e.layout.LegacyDir)
		found, err := exists(legacy)
		if err != nil {
			return InstalledTree{}, fmt.Errorf("stat %s: %w", legacy, err)
		}
		if found {
			if err := os.Rename(legacy, filepath.Join(tree, e.binaryRoot)); err != nil {
				return InstalledTree{}, fmt.Errorf("rename %s: %w", e.layout.LegacyDir, err)
			}
		}
	}

	binary := executablePath(tree, e.binaryRoot, e.layout.BinaryName)
	if err := setExecutable(binary); err != nil {
		return InstalledTree{}, err
	}
	return InstalledTree{Root: tree, Executable: binary}, nil
}

func (e *GzipTarExtractor) open(d Descriptor) (*os.File, *gzip.Reader, error) {
	file, err := os.Open(d.ArchivePath())
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil, fmt.Errorf("failed to open file %s, file doesn't exist: %w", d.ArchiveFile(), ErrArchiveNotFound)
		}
		return nil, nil, fmt.Errorf("failed to open file %s: %w", d.ArchiveFile(), err)
	}
	gz, err := gzip.NewReader(file)
	if err != nil {
		file.Close()
		return nil, nil, fmt.Errorf("gzip reader: %w", err)
	}
	return file, gz, nil
}

func (e *GzipTarExtractor) expand(d Descriptor, tree string, total int) error {
	file, gz, err := e.open(d)
	if err != nil {
		return err
	}
	defer file.Close()
	defer gz.Close()

	progress := newCounter(e.sink, total)
	tr := tar.NewReader(gz)
	for {
		header, err := tr.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			// archive/tar keeps returning the same error once the stream is
			// damaged, so nothing after this point can be read.
			e.logger.Warn("unreadable tar entry, stopping", "archive", d.ArchiveFile(), "err", err)
			break
		}
		if err := e.extractEntry(tree, header, tr); err != nil {
			e.logger.Warn("skipping tar entry", "entry", header.Name, "err", err)
		}
		progress.step()
	}
	progress.finish(fmt.Sprintf("Finished expanding to %s", tree))
	return nil
}

func (e *GzipTarExtractor) extractEntry(tree string, header *tar.Header, r io.Reader) error {
	target, err := entryTarget(tree, header.Name)
	if err != nil {
		return err
	}
	switch {
	case strings.HasSuffix(header.Name, "/"):
		if err := os.MkdirAll(target, 0o755); err != nil {
			return fmt.Errorf("create dir %s: %w", target, err)
		}
		return nil
	case header.Typeflag == tar.TypeSymlink:
		if err := checkLinkTarget(tree, target, header.Linkname); err != nil {
			return err
		}
		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return fmt.Errorf("prepare symlink %s: %w", target, err)
		}
		if err := os.Symlink(header.Linkname, target); err != nil {
			return fmt.Errorf("create symlink %s: %w", target, err)
		}
		return nil
	case header.Typeflag == tar.TypeLink:
		// Hard link names are relative to the archive root.
		source, err := safeJoin(tree, header.Linkname)
		if err != nil {
			return err
		}
		if err := checkParents(tree, source); err != nil {
			return err
		}
		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return fmt.Errorf("prepare link %s: %w", target, err)
		}
		if err := os.Remove(target); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("replace %s: %w", target, err)
		}
		if err := os.Link(source, target); err != nil {
			return fmt.Errorf("create link %s: %w", target, err)
		}
		return nil
	default:
		return writeFile(target, r, entryMode(os.FileMode(header.Mode)))
	}
}

// countEntries reads the whole stream once to size the progress total.
func (e *GzipTarExtractor) countEntries(d Descriptor) (int, error) {
	file, gz, err := e.open(d)
	if err != nil {
		return 0, err
	}
	defer file.Close()
	defer gz.Close()

	tr := tar.NewReader(gz)
	count := 0
	for {
		_, err := tr.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			e.logger.Warn("pre-scan stopped early", "archive", d.ArchiveFile(), "entries", count, "err", err)
			break
		}
		count++
	}
	return count, nil
}

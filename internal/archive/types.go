package archive

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// Known archive formats, used as the descriptor's Format.
const (
	FormatAppImage = "appimage"
	FormatZip      = "zip"
	FormatTarGz    = "tar.gz"
)

// knownFormats is ordered longest suffix first so "tar.gz" wins over a bare
// "gz" should one ever be added.
var knownFormats = []string{FormatAppImage, FormatTarGz, FormatZip}

// Descriptor identifies a downloaded archive and the tree it installs into.
// It is built once by the download stage and consumed by a single install.
type Descriptor struct {
	// Dir contains the archive and receives the installed tree.
	Dir string `json:"dir"`
	// Name is the version-derived stem of the archive and the tree directory.
	Name string `json:"name"`
	// Format is the archive suffix without the leading dot.
	Format string `json:"format"`
}

// ParseDescriptor derives a descriptor from the path of an archive on disk.
func ParseDescriptor(path string) (Descriptor, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return Descriptor{}, fmt.Errorf("resolve archive path: %w", err)
	}
	base := filepath.Base(abs)
	lower := strings.ToLower(base)
	for _, format := range knownFormats {
		suffix := "." + format
		if strings.HasSuffix(lower, suffix) && len(base) > len(suffix) {
			d := Descriptor{
				Dir:    filepath.Dir(abs),
				Name:   base[:len(base)-len(suffix)],
				Format: base[len(base)-len(format):],
			}
			return d, d.Validate()
		}
	}
	return Descriptor{}, fmt.Errorf("unrecognised archive format: %s", base)
}

// Validate reports whether the descriptor can address an archive safely.
func (d Descriptor) Validate() error {
	var errs []error
	if strings.TrimSpace(d.Dir) == "" {
		errs = append(errs, errors.New("storage directory is required"))
	}
	if strings.TrimSpace(d.Name) == "" {
		errs = append(errs, errors.New("name is required"))
	} else if d.Name == "." || d.Name == ".." || strings.ContainsAny(d.Name, `/\`) {
		errs = append(errs, fmt.Errorf("invalid name %q", d.Name))
	}
	if strings.TrimSpace(d.Format) == "" {
		errs = append(errs, errors.New("format is required"))
	}
	return errors.Join(errs...)
}

// ArchiveFile returns the archive's file name, e.g. "v0.9.0.zip".
func (d Descriptor) ArchiveFile() string {
	return d.Name + "." + d.Format
}

// ArchivePath returns the location of the downloaded archive.
func (d Descriptor) ArchivePath() string {
	return filepath.Join(d.Dir, d.ArchiveFile())
}

// TreePath returns the location of the installed tree.
func (d Descriptor) TreePath() string {
	return filepath.Join(d.Dir, d.Name)
}

// InstalledTree is the normalised directory produced by an Extractor.
type InstalledTree struct {
	Root       string `json:"root"`
	Executable string `json:"executable"`
}

// Extractor converts a downloaded archive into an installed tree. Exactly one
// implementation is selected per build target, see ForPlatform.
type Extractor interface {
	// Format is the archive suffix the extractor understands.
	Format() string
	Extract(d Descriptor) (InstalledTree, error)
}

// PlatformNamer maps the running platform to the canonical directory name
// that holds the binary inside an installed tree.
type PlatformNamer interface {
	PlatformName() string
}

// Layout captures the naming conventions extractors normalise towards.
type Layout struct {
	BinaryName string   `yaml:"binary_name"`
	ExtractDir string   `yaml:"extract_dir"`
	Artifacts  []string `yaml:"artifacts"`
	PayloadDir string   `yaml:"payload_dir"`
	LegacyDir  string   `yaml:"legacy_dir"`
}

// DefaultLayout returns the conventions of the upstream release artefacts.
func DefaultLayout() Layout {
	return Layout{
		BinaryName: executableName("nvim"),
		ExtractDir: "squashfs-root",
		Artifacts:  []string{"AppRun", "nvim.desktop", "nvim.png"},
		PayloadDir: "usr",
		LegacyDir:  "nvim-osx64",
	}
}

// executablePath composes root/binaryRoot/bin/name; an empty binaryRoot puts
// bin directly under root.
func executablePath(root, binaryRoot, name string) string {
	if binaryRoot == "" {
		return filepath.Join(root, "bin", name)
	}
	return filepath.Join(root, binaryRoot, "bin", name)
}

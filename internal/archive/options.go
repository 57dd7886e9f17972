package archive

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/charmbracelet/log"

	"vmgr/internal/logx"
)

// executableMode is applied to self-extracting archives and to the final
// binary: read and execute for owner and group, execute for others.
const executableMode os.FileMode = 0o551

// DefaultEstimatedEntries approximates the number of entries in an upstream
// gzip-tar release. The format carries no entry count, so progress is scaled
// against this value unless a pre-scan is requested.
const DefaultEstimatedEntries = 1692

// Options configures extractor construction.
type Options struct {
	Layout   Layout
	Namer    PlatformNamer
	Logger   *log.Logger
	Progress Progress
	// EstimatedEntries scales gzip-tar progress; zero selects the default.
	EstimatedEntries int
	// PreScan counts gzip-tar entries with an extra pass before extracting.
	PreScan bool
}

func (o Options) logger() *log.Logger {
	if o.Logger == nil {
		return logx.Discard()
	}
	return o.Logger
}

func (o Options) progress() Progress {
	if o.Progress == nil {
		return NopProgress{}
	}
	return o.Progress
}

func (o Options) platformName() string {
	if o.Namer == nil {
		return ""
	}
	return o.Namer.PlatformName()
}

// resetTree destroys any previous install so the new tree fully replaces it.
func resetTree(path string) error {
	if err := os.RemoveAll(path); err != nil {
		return fmt.Errorf("remove previous install %s: %w", path, err)
	}
	return nil
}

// safeJoin resolves an archive entry name under root, rejecting names that
// would land outside it.
func safeJoin(root, name string) (string, error) {
	target := filepath.Join(root, filepath.FromSlash(name))
	if !within(root, target) {
		return "", fmt.Errorf("%w: %s", ErrUnsafePath, name)
	}
	return target, nil
}

func within(root, path string) bool {
	cleanRoot := filepath.Clean(root)
	path = filepath.Clean(path)
	return path == cleanRoot || strings.HasPrefix(path, cleanRoot+string(os.PathSeparator))
}

// entryTarget resolves name under root and makes sure nothing written there
// can be redirected outside root: no existing parent may be a symlink, and a
// symlink already occupying the target is removed so it is replaced rather
// than followed.
func entryTarget(root, name string) (string, error) {
	target, err := safeJoin(root, name)
	if err != nil {
		return "", err
	}
	if err := checkParents(root, target); err != nil {
		return "", err
	}
	info, err := os.Lstat(target)
	if err == nil && info.Mode()&os.ModeSymlink != 0 {
		if err := os.Remove(target); err != nil {
			return "", fmt.Errorf("replace symlink %s: %w", target, err)
		}
	}
	return target, nil
}

// checkParents walks the directories between root and target and rejects
// any that is a symlink.
func checkParents(root, target string) error {
	rel, err := filepath.Rel(filepath.Clean(root), filepath.Dir(target))
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(os.PathSeparator)) {
		return fmt.Errorf("%w: %s", ErrUnsafePath, target)
	}
	if rel == "." {
		return nil
	}
	current := filepath.Clean(root)
	for _, part := range strings.Split(rel, string(os.PathSeparator)) {
		current = filepath.Join(current, part)
		info, err := os.Lstat(current)
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("stat %s: %w", current, err)
		}
		if info.Mode()&os.ModeSymlink != 0 {
			return fmt.Errorf("%w: %s passes through symlink %s", ErrUnsafePath, target, current)
		}
	}
	return nil
}

// checkLinkTarget rejects symlink targets that are absolute or resolve
// outside root when read from the directory holding the link.
func checkLinkTarget(root, link, linkname string) error {
	dest := filepath.FromSlash(linkname)
	if linkname == "" || filepath.IsAbs(dest) || strings.HasPrefix(linkname, "/") {
		return fmt.Errorf("%w: link %s -> %q", ErrUnsafePath, link, linkname)
	}
	if !within(root, filepath.Join(filepath.Dir(link), dest)) {
		return fmt.Errorf("%w: link %s -> %q", ErrUnsafePath, link, linkname)
	}
	return nil
}

// writeFile streams r into a new file at target, creating missing parents.
func writeFile(target string, r io.Reader, mode os.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return fmt.Errorf("prepare file %s: %w", target, err)
	}
	out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode)
	if err != nil {
		return fmt.Errorf("create file %s: %w", target, err)
	}
	if _, err := io.Copy(out, r); err != nil {
		out.Close()
		return fmt.Errorf("write file %s: %w", target, err)
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("close file %s: %w", target, err)
	}
	return nil
}

func setExecutable(path string) error {
	if err := os.Chmod(path, executableMode); err != nil {
		return fmt.Errorf("set executable %s: %w", path, err)
	}
	return nil
}

func exists(path string) (bool, error) {
	_, err := os.Lstat(path)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	return false, err
}

func executableName(base string) string {
	if runtime.GOOS == "windows" {
		return base + ".exe"
	}
	return base
}

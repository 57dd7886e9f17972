package paths

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/mitchellh/go-homedir"

	"vmgr/internal/config"
)

// HomeEnv overrides the vmgr home directory.
const HomeEnv = "VMGR_HOME"

// Paths captures canonical locations used by vmgr.
type Paths struct {
	Home       string
	ConfigFile string
	StorageDir string
	LogsDir    string
	LocksDir   string
}

// Resolve determines the vmgr home using the optional --home flag, then the
// VMGR_HOME environment variable, then the per-user platform default.
func Resolve(homeFlag string) (Paths, error) {
	root := strings.TrimSpace(homeFlag)
	if root == "" {
		root = strings.TrimSpace(os.Getenv(HomeEnv))
	}

	var err error
	if root != "" {
		root, err = expand(root)
	} else {
		root, err = defaultHome()
	}
	if err != nil {
		return Paths{}, err
	}
	return newPaths(root), nil
}

func newPaths(root string) Paths {
	return Paths{
		Home:       root,
		ConfigFile: filepath.Join(root, "vmgr.yaml"),
		StorageDir: filepath.Join(root, "versions"),
		LogsDir:    filepath.Join(root, "logs"),
		LocksDir:   filepath.Join(root, "locks"),
	}
}

func defaultHome() (string, error) {
	home, err := homedir.Dir()
	if err != nil {
		return "", fmt.Errorf("detect user home: %w", err)
	}

	switch runtime.GOOS {
	case "darwin":
		return filepath.Join(home, "Library", "Application Support", "vmgr"), nil
	case "windows":
		if localAppData := os.Getenv("LOCALAPPDATA"); localAppData != "" {
			return filepath.Join(localAppData, "vmgr"), nil
		}
		return filepath.Join(home, "AppData", "Local", "vmgr"), nil
	default:
		return filepath.Join(home, ".local", "share", "vmgr"), nil
	}
}

// ApplyConfig overlays directories configured in cfg. Relative values are
// resolved against the vmgr home; a leading ~ expands to the user's home.
func ApplyConfig(p Paths, cfg config.Config) (Paths, error) {
	if dir := strings.TrimSpace(cfg.StorageDir); dir != "" {
		resolved, err := resolvePath(p.Home, dir)
		if err != nil {
			return Paths{}, fmt.Errorf("resolve storage_dir: %w", err)
		}
		p.StorageDir = resolved
	}
	if dir := strings.TrimSpace(cfg.LogDir); dir != "" {
		resolved, err := resolvePath(p.Home, dir)
		if err != nil {
			return Paths{}, fmt.Errorf("resolve log_dir: %w", err)
		}
		p.LogsDir = resolved
	}
	return p, nil
}

func resolvePath(root, value string) (string, error) {
	expanded, err := homedir.Expand(value)
	if err != nil {
		return "", err
	}
	if filepath.IsAbs(expanded) {
		return filepath.Clean(expanded), nil
	}
	return filepath.Join(root, expanded), nil
}

func expand(value string) (string, error) {
	expanded, err := homedir.Expand(value)
	if err != nil {
		return "", fmt.Errorf("expand %s: %w", value, err)
	}
	abs, err := filepath.Abs(expanded)
	if err != nil {
		return "", fmt.Errorf("resolve %s: %w", value, err)
	}
	return abs, nil
}

// EnsureDirs creates the storage, logs and locks directories.
func (p Paths) EnsureDirs() error {
	for _, dir := range []string{p.StorageDir, p.LogsDir, p.LocksDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %s: %w", dir, err)
		}
	}
	return nil
}

// FileExists reports whether a path exists and is a regular file.
func FileExists(path string) (bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	return info.Mode().IsRegular(), nil
}

// DirExists reports whether a path exists and is a directory.
func DirExists(path string) (bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	return info.IsDir(), nil
}

// Package platform detects the host platform and maps it to the directory
// names used inside installed trees.
package platform

import (
	"context"
	"fmt"
	"runtime"
	"strings"

	"github.com/shirou/gopsutil/v4/host"
)

// Canonical binary-root names per operating system.
const (
	NameLinux   = "nvim-linux64"
	NameMacOS   = "nvim-macos"
	NameWindows = "nvim-win64"
)

// Info contains platform detection information.
type Info struct {
	OS      string `json:"os"`
	Arch    string `json:"arch"`
	Distro  string `json:"distro,omitempty"`
	Family  string `json:"family,omitempty"`
	Version string `json:"version,omitempty"`
	Kernel  string `json:"kernel,omitempty"`
	// Override replaces the derived platform name when set.
	Override string `json:"override,omitempty"`
}

// PlatformName returns the directory that holds bin/ inside an installed
// tree on this platform.
func (i Info) PlatformName() string {
	if i.Override != "" {
		return i.Override
	}
	name, _ := NameFor(i.OS)
	return name
}

// NameFor maps a GOOS value to its canonical platform name.
func NameFor(goos string) (string, error) {
	switch goos {
	case "linux":
		return NameLinux, nil
	case "darwin":
		return NameMacOS, nil
	case "windows":
		return NameWindows, nil
	default:
		return "", fmt.Errorf("unsupported OS: %s", goos)
	}
}

// Detector is the interface for platform detection.
type Detector interface {
	Detect(ctx context.Context) (Info, error)
}

// HostDetector implements Detector using the runtime and gopsutil.
type HostDetector struct{}

// NewDetector creates a host platform detector.
func NewDetector() Detector {
	return HostDetector{}
}

// Detect fills OS and architecture from the runtime and adds distribution
// and kernel details from gopsutil when available. Host lookups that fail
// are left empty; only a cancelled context is an error.
func (HostDetector) Detect(ctx context.Context) (Info, error) {
	info := Info{
		OS:   runtime.GOOS,
		Arch: runtime.GOARCH,
	}

	distro, family, version, err := host.PlatformInformationWithContext(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return Info{}, fmt.Errorf("platform detection cancelled: %w", ctx.Err())
		}
	} else {
		info.Distro = normalize(distro)
		info.Family = normalize(family)
		info.Version = normalize(version)
	}

	if kernel, err := host.KernelVersionWithContext(ctx); err == nil {
		info.Kernel = normalize(kernel)
	}
	return info, nil
}

func normalize(value string) string {
	return strings.ToLower(strings.TrimSpace(value))
}

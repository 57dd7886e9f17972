//go:build !linux && !windows && !darwin

package archive

import (
	"fmt"
	"runtime"
)

// ForPlatform reports that no release artefact exists for this target.
func ForPlatform(Options) (Extractor, error) {
	return nil, fmt.Errorf("%w: %s", ErrUnsupportedPlatform, runtime.GOOS)
}

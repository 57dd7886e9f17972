//go:build linux

package archive

// ForPlatform returns the self-extracting image extractor used on Linux.
func ForPlatform(opts Options) (Extractor, error) {
	return NewAppImageExtractor(opts), nil
}

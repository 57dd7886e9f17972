//go:build darwin

package archive

// ForPlatform returns the gzip-tar extractor used on macOS.
func ForPlatform(opts Options) (Extractor, error) {
	return NewGzipTarExtractor(opts), nil
}

//go:build windows

package archive

// ForPlatform returns the zip extractor used on Windows.
func ForPlatform(opts Options) (Extractor, error) {
	return NewZipExtractor(opts), nil
}

package archive

import (
	"archive/tar"
	"bytes"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zip"
	"github.com/stretchr/testify/require"
)

type staticName string

func (n staticName) PlatformName() string { return string(n) }

type update struct {
	current int
	total   int
}

// recordingProgress captures every update for assertions.
type recordingProgress struct {
	mu       sync.Mutex
	updates  []update
	finished []string
}

func (p *recordingProgress) Update(current, total int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.updates = append(p.updates, update{current, total})
}

func (p *recordingProgress) Finish(message string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.finished = append(p.finished, message)
}

type zipEntry struct {
	name    string
	content string
	mode    os.FileMode
	store   bool
}

// writeZip builds a zip at dir/name.zip and returns its descriptor.
func writeZip(t *testing.T, dir, name string, entries []zipEntry) Descriptor {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, e := range entries {
		header := &zip.FileHeader{Name: e.name, Method: zip.Deflate}
		if e.store {
			header.Method = zip.Store
		}
		if e.mode != 0 {
			header.SetMode(e.mode)
		}
		w, err := zw.CreateHeader(header)
		require.NoError(t, err)
		if e.content != "" {
			_, err = w.Write([]byte(e.content))
			require.NoError(t, err)
		}
	}
	require.NoError(t, zw.Close())

	d := Descriptor{Dir: dir, Name: name, Format: FormatZip}
	require.NoError(t, os.WriteFile(d.ArchivePath(), buf.Bytes(), 0o644))
	return d
}

type tarEntry struct {
	name     string
	content  string
	typeflag byte
	mode     int64
	linkname string
}

// writeTarGz builds a gzip-tar at dir/name.tar.gz and returns its descriptor.
func writeTarGz(t *testing.T, dir, name string, entries []tarEntry) Descriptor {
	t.Helper()
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gz)
	for _, e := range entries {
		mode := e.mode
		if mode == 0 {
			mode = 0o644
		}
		typeflag := e.typeflag
		if typeflag == 0 {
			typeflag = tar.TypeReg
		}
		header := &tar.Header{
			Name:     e.name,
			Mode:     mode,
			Size:     int64(len(e.content)),
			Typeflag: typeflag,
			Linkname: e.linkname,
		}
		if typeflag == tar.TypeDir || typeflag == tar.TypeSymlink {
			header.Size = 0
		}
		require.NoError(t, tw.WriteHeader(header))
		if header.Size > 0 {
			_, err := tw.Write([]byte(e.content))
			require.NoError(t, err)
		}
	}
	require.NoError(t, tw.Close())
	require.NoError(t, gz.Close())

	d := Descriptor{Dir: dir, Name: name, Format: FormatTarGz}
	require.NoError(t, os.WriteFile(d.ArchivePath(), buf.Bytes(), 0o644))
	return d
}

func bufferLogger(buf *bytes.Buffer) *log.Logger {
	return log.NewWithOptions(buf, log.Options{Level: log.DebugLevel, Formatter: log.LogfmtFormatter})
}

// plantStale creates an old install with a file that must not survive.
func plantStale(t *testing.T, d Descriptor) string {
	t.Helper()
	stale := filepath.Join(d.TreePath(), "old", "stale.txt")
	require.NoError(t, os.MkdirAll(filepath.Dir(stale), 0o755))
	require.NoError(t, os.WriteFile(stale, []byte("old"), 0o644))
	return stale
}

func gzipBytes(t *testing.T, data []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	_, err := gz.Write(data)
	require.NoError(t, err)
	require.NoError(t, gz.Close())
	return buf.Bytes()
}

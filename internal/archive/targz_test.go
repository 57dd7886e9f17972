package archive

import (
	"archive/tar"
	"bytes"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func macLayout() Layout {
	layout := DefaultLayout()
	layout.BinaryName = "nvim"
	return layout
}

func macOptions(sink Progress) Options {
	return Options{Layout: macLayout(), Namer: staticName("nvim-macos"), Progress: sink}
}

func TestGzipTarExtractInstallsTree(t *testing.T) {
	dir := t.TempDir()
	d := writeTarGz(t, dir, "v0.9.0", []tarEntry{
		{name: "nvim-macos/", typeflag: tar.TypeDir, mode: 0o755},
		{name: "nvim-macos/bin/", typeflag: tar.TypeDir, mode: 0o755},
		{name: "nvim-macos/bin/nvim", content: "binary", mode: 0o644},
		{name: "nvim-macos/share/nvim/runtime/init.vim", content: "set nocp"},
	})
	sink := &recordingProgress{}

	tree, err := NewGzipTarExtractor(macOptions(sink)).Extract(d)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, "v0.9.0", "nvim-macos", "bin", "nvim"), tree.Executable)
	info, err := os.Stat(tree.Executable)
	require.NoError(t, err)
	if runtime.GOOS != "windows" {
		assert.Equal(t, os.FileMode(0o551), info.Mode().Perm())
	}
	assert.FileExists(t, filepath.Join(tree.Root, "nvim-macos", "share", "nvim", "runtime", "init.vim"))
	require.Len(t, sink.finished, 1)
	assert.Equal(t, "Finished expanding to "+tree.Root, sink.finished[0])
}

func TestGzipTarTrailingSlashIsDirectory(t *testing.T) {
	d := writeTarGz(t, t.TempDir(), "v1", []tarEntry{
		// Regular-file type flag, but the name marks it as a directory.
		{name: "nvim-macos/share/", typeflag: tar.TypeReg},
		{name: "nvim-macos/bin/nvim", content: "binary"},
	})

	tree, err := NewGzipTarExtractor(macOptions(nil)).Extract(d)
	require.NoError(t, err)

	info, err := os.Stat(filepath.Join(tree.Root, "nvim-macos", "share"))
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestGzipTarSkipsBadEntries(t *testing.T) {
	dir := t.TempDir()
	d := writeTarGz(t, dir, "v1", []tarEntry{
		{name: "../escape.txt", content: "nope"},
		{name: "blocker", content: "i am a file"},
		{name: "blocker/child", content: "cannot live under a file"},
		{name: "nvim-macos/bin/nvim", content: "binary"},
	})
	var logs bytes.Buffer
	opts := macOptions(nil)
	opts.Logger = bufferLogger(&logs)

	tree, err := NewGzipTarExtractor(opts).Extract(d)
	require.NoError(t, err)

	assert.FileExists(t, tree.Executable)
	assert.NoFileExists(t, filepath.Join(dir, "escape.txt"))
	assert.NoFileExists(t, filepath.Join(tree.Root, "blocker", "child"))
	assert.Contains(t, logs.String(), "skipping tar entry")
	assert.Contains(t, logs.String(), "../escape.txt")
}

func TestGzipTarStopsAtDamagedHeader(t *testing.T) {
	var raw bytes.Buffer
	tw := tar.NewWriter(&raw)
	require.NoError(t, tw.WriteHeader(&tar.Header{Name: "nvim-macos/bin/nvim", Mode: 0o644, Size: 6, Typeflag: tar.TypeReg}))
	_, err := tw.Write([]byte("binary"))
	require.NoError(t, err)
	require.NoError(t, tw.Flush())
	// A header block that fails its checksum.
	raw.Write(bytes.Repeat([]byte{'x'}, 512))

	d := Descriptor{Dir: t.TempDir(), Name: "v1", Format: FormatTarGz}
	require.NoError(t, os.WriteFile(d.ArchivePath(), gzipBytes(t, raw.Bytes()), 0o644))

	var logs bytes.Buffer
	opts := macOptions(nil)
	opts.Logger = bufferLogger(&logs)

	tree, err := NewGzipTarExtractor(opts).Extract(d)
	require.NoError(t, err)
	assert.FileExists(t, tree.Executable)
	assert.Contains(t, logs.String(), "unreadable tar entry")
}

func TestGzipTarRenamesLegacyDirectory(t *testing.T) {
	d := writeTarGz(t, t.TempDir(), "v0.7.0", []tarEntry{
		{name: "nvim-osx64/", typeflag: tar.TypeDir, mode: 0o755},
		{name: "nvim-osx64/bin/nvim", content: "binary"},
	})

	tree, err := NewGzipTarExtractor(macOptions(nil)).Extract(d)
	require.NoError(t, err)

	assert.NoDirExists(t, filepath.Join(tree.Root, "nvim-osx64"))
	assert.FileExists(t, filepath.Join(tree.Root, "nvim-macos", "bin", "nvim"))
}

func TestGzipTarRecreatesSymlinks(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("symlinks need elevated privileges on windows")
	}
	d := writeTarGz(t, t.TempDir(), "v1", []tarEntry{
		{name: "nvim-macos/bin/nvim", content: "binary"},
		{name: "nvim-macos/bin/vi", typeflag: tar.TypeSymlink, linkname: "nvim"},
	})

	tree, err := NewGzipTarExtractor(macOptions(nil)).Extract(d)
	require.NoError(t, err)

	link, err := os.Readlink(filepath.Join(tree.Root, "nvim-macos", "bin", "vi"))
	require.NoError(t, err)
	assert.Equal(t, "nvim", link)
}

func TestGzipTarRejectsSymlinkEscape(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("symlinks need elevated privileges on windows")
	}
	outside := t.TempDir()
	d := writeTarGz(t, t.TempDir(), "v1", []tarEntry{
		{name: "esc", typeflag: tar.TypeSymlink, linkname: outside},
		{name: "esc/pwned.txt", content: "escaped"},
		{name: "up", typeflag: tar.TypeSymlink, linkname: "../.."},
		{name: "up/pwned.txt", content: "escaped"},
		{name: "nvim-macos/bin/nvim", content: "binary"},
	})
	var logs bytes.Buffer
	opts := macOptions(nil)
	opts.Logger = bufferLogger(&logs)

	tree, err := NewGzipTarExtractor(opts).Extract(d)
	require.NoError(t, err)

	assert.NoFileExists(t, filepath.Join(outside, "pwned.txt"))
	assert.NoFileExists(t, filepath.Join(filepath.Dir(d.Dir), "pwned.txt"))
	for _, name := range []string{"esc", "up"} {
		info, err := os.Lstat(filepath.Join(tree.Root, name))
		if err == nil {
			assert.Zero(t, info.Mode()&os.ModeSymlink, "%s must not be a symlink", name)
		}
	}
	assert.FileExists(t, tree.Executable)
	assert.Contains(t, logs.String(), "skipping tar entry")
}

func TestGzipTarRefusesWritesThroughSymlink(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("symlinks need elevated privileges on windows")
	}
	d := writeTarGz(t, t.TempDir(), "v1", []tarEntry{
		{name: "nvim-macos/bin/nvim", content: "binary"},
		{name: "nvim-macos/alias", typeflag: tar.TypeSymlink, linkname: "bin"},
		{name: "nvim-macos/alias/extra", content: "through link"},
	})

	tree, err := NewGzipTarExtractor(macOptions(nil)).Extract(d)
	require.NoError(t, err)

	link, err := os.Readlink(filepath.Join(tree.Root, "nvim-macos", "alias"))
	require.NoError(t, err)
	assert.Equal(t, "bin", link)
	assert.NoFileExists(t, filepath.Join(tree.Root, "nvim-macos", "bin", "extra"))
}

func TestGzipTarReplacesSymlinkWithFile(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("symlinks need elevated privileges on windows")
	}
	d := writeTarGz(t, t.TempDir(), "v1", []tarEntry{
		{name: "nvim-macos/bin/nvim", content: "binary"},
		{name: "nvim-macos/bin/vi", typeflag: tar.TypeSymlink, linkname: "nvim"},
		{name: "nvim-macos/bin/vi", content: "replacement"},
	})

	tree, err := NewGzipTarExtractor(macOptions(nil)).Extract(d)
	require.NoError(t, err)

	vi := filepath.Join(tree.Root, "nvim-macos", "bin", "vi")
	info, err := os.Lstat(vi)
	require.NoError(t, err)
	assert.True(t, info.Mode().IsRegular())
	data, err := os.ReadFile(tree.Executable)
	require.NoError(t, err)
	assert.Equal(t, "binary", string(data), "write followed the old symlink")
}

func TestGzipTarRecreatesHardLinks(t *testing.T) {
	d := writeTarGz(t, t.TempDir(), "v1", []tarEntry{
		{name: "nvim-macos/bin/nvim", content: "binary"},
		{name: "nvim-macos/bin/vim", typeflag: tar.TypeLink, linkname: "nvim-macos/bin/nvim"},
		{name: "nvim-macos/bin/escape", typeflag: tar.TypeLink, linkname: "../../outside"},
	})
	var logs bytes.Buffer
	opts := macOptions(nil)
	opts.Logger = bufferLogger(&logs)

	tree, err := NewGzipTarExtractor(opts).Extract(d)
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(tree.Root, "nvim-macos", "bin", "vim"))
	require.NoError(t, err)
	assert.Equal(t, "binary", string(data))
	assert.NoFileExists(t, filepath.Join(tree.Root, "nvim-macos", "bin", "escape"))
	assert.Contains(t, logs.String(), "nvim-macos/bin/escape")
}

func TestGzipTarMissingBinaryFails(t *testing.T) {
	d := writeTarGz(t, t.TempDir(), "v1", []tarEntry{
		{name: "nvim-macos/share/readme", content: "no binary here"},
	})

	_, err := NewGzipTarExtractor(macOptions(nil)).Extract(d)
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestGzipTarMissingArchive(t *testing.T) {
	d := Descriptor{Dir: t.TempDir(), Name: "v1", Format: FormatTarGz}

	_, err := NewGzipTarExtractor(macOptions(nil)).Extract(d)
	require.ErrorIs(t, err, ErrArchiveNotFound)
	assert.Contains(t, err.Error(), "failed to open file v1.tar.gz, file doesn't exist")
}

func TestGzipTarReplacesPreviousTree(t *testing.T) {
	d := writeTarGz(t, t.TempDir(), "v1", []tarEntry{
		{name: "nvim-macos/bin/nvim", content: "binary"},
	})
	stale := plantStale(t, d)

	_, err := NewGzipTarExtractor(macOptions(nil)).Extract(d)
	require.NoError(t, err)
	assert.NoFileExists(t, stale)
}

func TestGzipTarProgressUsesEstimate(t *testing.T) {
	d := writeTarGz(t, t.TempDir(), "v1", []tarEntry{
		{name: "nvim-macos/", typeflag: tar.TypeDir},
		{name: "nvim-macos/bin/nvim", content: "binary"},
	})
	sink := &recordingProgress{}

	_, err := NewGzipTarExtractor(macOptions(sink)).Extract(d)
	require.NoError(t, err)

	require.Len(t, sink.updates, 2)
	for _, u := range sink.updates {
		assert.Equal(t, DefaultEstimatedEntries, u.total)
		assert.LessOrEqual(t, u.current, u.total)
	}
	assert.Equal(t, 2, sink.updates[1].current)
}

func TestGzipTarProgressWithPreScan(t *testing.T) {
	d := writeTarGz(t, t.TempDir(), "v1", []tarEntry{
		{name: "nvim-macos/", typeflag: tar.TypeDir},
		{name: "nvim-macos/bin/", typeflag: tar.TypeDir},
		{name: "nvim-macos/bin/nvim", content: "binary"},
	})
	sink := &recordingProgress{}
	opts := macOptions(sink)
	opts.PreScan = true

	_, err := NewGzipTarExtractor(opts).Extract(d)
	require.NoError(t, err)

	require.Len(t, sink.updates, 3)
	last := sink.updates[len(sink.updates)-1]
	assert.Equal(t, update{3, 3}, last)
}

func TestGzipTarEstimateOverride(t *testing.T) {
	d := writeTarGz(t, t.TempDir(), "v1", []tarEntry{
		{name: "a/", typeflag: tar.TypeDir},
		{name: "b/", typeflag: tar.TypeDir},
		{name: "nvim-macos/bin/nvim", content: "binary"},
	})
	sink := &recordingProgress{}
	opts := macOptions(sink)
	opts.EstimatedEntries = 2

	_, err := NewGzipTarExtractor(opts).Extract(d)
	require.NoError(t, err)

	require.Len(t, sink.updates, 3)
	assert.Equal(t, update{2, 2}, sink.updates[2])
}

// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

//go:build !windows

package extract

import (
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.amzn.com/bootloader/launcher/archive"
	"go.amzn.com/bootloader/launcher/cleanup"
	"go.amzn.com/bootloader/launcher/fatalerror"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type entry struct {
	name string
	typ  archive.EntryType
	comp archive.Compression
	data string
}

func buildArchive(t *testing.T, path string, entries ...entry) {
	t.Helper()

	var buf bytes.Buffer
	w := archive.NewWriter(&buf)
	for _, e := range entries {
		require.NoError(t, w.Add(e.name, e.typ, e.comp, []byte(e.data)))
	}
	require.NoError(t, w.Close())
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o755))
}

func openList(t *testing.T, path string) *archive.List {
	t.Helper()

	s, err := archive.Open(path)
	require.NoError(t, err)
	list := archive.NewList(s)
	t.Cleanup(func() { list.Close() })
	return list
}

var appEntries = []entry{
	{"libloader.so", archive.TypeBinary, archive.Stored, "loader"},
	{"lib/libapp.so", archive.TypeBinary, archive.Zlib, strings.Repeat("app library ", 200)},
	{"ext/_speedups.so", archive.TypeExtension, archive.LZ4, "extension"},
	{"share/data.txt", archive.TypeData, archive.S2, "some data"},
	{"main", archive.TypeScript, archive.Zlib, "in memory only"},
	{"pkg", archive.TypeModule, archive.Stored, "bytecode"},
}

func TestNeedsExtraction(t *testing.T) {
	dir := t.TempDir()

	buildArchive(t, filepath.Join(dir, "packed"), appEntries...)
	need, err := NeedsExtraction(openList(t, filepath.Join(dir, "packed")))
	require.NoError(t, err)
	assert.True(t, need)

	buildArchive(t, filepath.Join(dir, "memory"),
		entry{"main", archive.TypeScript, archive.Zlib, "script"},
		entry{"pkg", archive.TypeModule, archive.Stored, "bytecode"},
		entry{"keep-workdir", archive.TypeRuntimeOption, archive.Stored, ""})
	need, err = NeedsExtraction(openList(t, filepath.Join(dir, "memory")))
	require.NoError(t, err)
	assert.False(t, need)
}

func TestExtractAllWritesEntriesInPrivateDir(t *testing.T) {
	dir := t.TempDir()
	buildArchive(t, filepath.Join(dir, "app"), appEntries...)
	list := openList(t, filepath.Join(dir, "app"))

	root := filepath.Join(dir, "tmproot", "nested")
	x := New(WithTempRoot(root))
	work, err := x.ExtractAll(list)
	require.NoError(t, err)

	assert.Equal(t, work, x.WorkDir())
	assert.Equal(t, work, list.Main().WorkPath)
	assert.True(t, strings.HasPrefix(filepath.Base(work), WorkDirPrefix))
	assert.Len(t, filepath.Base(work), len(WorkDirPrefix)+16)

	info, err := os.Stat(work)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o700), info.Mode().Perm())

	for _, e := range appEntries {
		path := filepath.Join(work, e.name)
		if !e.typ.OnDisk() {
			assert.NoFileExists(t, path)
			continue
		}
		content, err := os.ReadFile(path)
		require.NoError(t, err, e.name)
		assert.Equal(t, e.data, string(content), e.name)
	}

	info, err = os.Stat(filepath.Join(work, "lib/libapp.so"))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o700), info.Mode().Perm())
	info, err = os.Stat(filepath.Join(work, "share/data.txt"))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestExtractAllOnlyOnce(t *testing.T) {
	dir := t.TempDir()
	buildArchive(t, filepath.Join(dir, "app"), appEntries...)
	list := openList(t, filepath.Join(dir, "app"))

	x := New(WithTempRoot(dir))
	first, err := x.ExtractAll(list)
	require.NoError(t, err)

	again, err := x.ExtractAll(list)
	assert.ErrorIs(t, err, ErrAlreadyExtracted)
	assert.Equal(t, first, again)
}

func TestUniqueWorkDirs(t *testing.T) {
	dir := t.TempDir()
	buildArchive(t, filepath.Join(dir, "app"), appEntries[0])

	a, err := New(WithTempRoot(dir)).ExtractAll(openList(t, filepath.Join(dir, "app")))
	require.NoError(t, err)
	b, err := New(WithTempRoot(dir)).ExtractAll(openList(t, filepath.Join(dir, "app")))
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestUnsafeNamesAreRejected(t *testing.T) {
	for _, name := range []string{"../escape.so", "lib/../../escape.so", "/etc/passwd", `..\escape.dll`} {
		t.Run(name, func(t *testing.T) {
			dir := t.TempDir()
			buildArchive(t, filepath.Join(dir, "app"), entry{name, archive.TypeBinary, archive.Stored, "x"})

			work, err := New(WithTempRoot(dir)).ExtractAll(openList(t, filepath.Join(dir, "app")))
			assert.ErrorIs(t, err, ErrUnsafeName)
			assert.Equal(t, fatalerror.ArchiveError, fatalerror.TypeOf(err))
			assert.NotEmpty(t, work)
			assert.NoFileExists(t, filepath.Join(dir, "escape.so"))
		})
	}
}

func TestSymlinks(t *testing.T) {
	dir := t.TempDir()
	buildArchive(t, filepath.Join(dir, "app"),
		entry{"lib/libssl.so.3", archive.TypeBinary, archive.Stored, "ssl"},
		entry{"lib/libssl.so", archive.TypeSymlink, archive.Stored, "libssl.so.3"},
		entry{"bin/ssl", archive.TypeSymlink, archive.Stored, "../lib/libssl.so"})

	work, err := New(WithTempRoot(dir)).ExtractAll(openList(t, filepath.Join(dir, "app")))
	require.NoError(t, err)

	target, err := os.Readlink(filepath.Join(work, "lib/libssl.so"))
	require.NoError(t, err)
	assert.Equal(t, "libssl.so.3", target)

	content, err := os.ReadFile(filepath.Join(work, "bin/ssl"))
	require.NoError(t, err)
	assert.Equal(t, "ssl", string(content))
}

func TestEscapingSymlinkIsRejected(t *testing.T) {
	for _, target := range []string{"../../etc/passwd", "/etc/passwd", "a/../../.."} {
		t.Run(target, func(t *testing.T) {
			dir := t.TempDir()
			buildArchive(t, filepath.Join(dir, "app"),
				entry{"lib/link", archive.TypeSymlink, archive.Stored, target})

			_, err := New(WithTempRoot(dir)).ExtractAll(openList(t, filepath.Join(dir, "app")))
			assert.ErrorIs(t, err, ErrUnsafeName)
		})
	}
}

func TestChainedSymlinksCannotLeaveWorkDir(t *testing.T) {
	outer := t.TempDir()
	root := filepath.Join(outer, "root")
	buildArchive(t, filepath.Join(outer, "app"),
		entry{"d/up", archive.TypeSymlink, archive.Stored, ".."},
		entry{"d/up/esc", archive.TypeSymlink, archive.Stored, "../.."},
		entry{"d/up/esc/pwned", archive.TypeData, archive.Stored, "owned"})

	work, err := New(WithTempRoot(root)).ExtractAll(openList(t, filepath.Join(outer, "app")))
	assert.ErrorIs(t, err, ErrUnsafeName)
	assert.Equal(t, fatalerror.ArchiveError, fatalerror.TypeOf(err))

	assert.NoFileExists(t, filepath.Join(outer, "pwned"))
	assert.NoFileExists(t, filepath.Join(root, "pwned"))
	assert.NoFileExists(t, filepath.Join(work, "esc"))
}

func TestEntryBelowExtractedSymlinkIsRejected(t *testing.T) {
	dir := t.TempDir()
	buildArchive(t, filepath.Join(dir, "app"),
		entry{"lib/real/libz.so", archive.TypeBinary, archive.Stored, "z"},
		entry{"lib/alias", archive.TypeSymlink, archive.Stored, "real"},
		entry{"lib/alias/libextra.so", archive.TypeBinary, archive.Stored, "extra"})

	_, err := New(WithTempRoot(dir)).ExtractAll(openList(t, filepath.Join(dir, "app")))
	assert.ErrorIs(t, err, ErrUnsafeName)
	assert.NoFileExists(t, filepath.Join(dir, "lib/real/libextra.so"))
}

func TestDependencyIsResolvedFromSiblingArchive(t *testing.T) {
	dir := t.TempDir()
	buildArchive(t, filepath.Join(dir, "app"),
		entry{"shared.pkg:lib/libshared.so", archive.TypeDependency, archive.Stored, ""})
	buildArchive(t, filepath.Join(dir, "shared.pkg"),
		entry{"lib/libshared.so", archive.TypeBinary, archive.LZ4, "shared code"})

	list := openList(t, filepath.Join(dir, "app"))
	work, err := New(WithTempRoot(dir)).ExtractAll(list)
	require.NoError(t, err)

	content, err := os.ReadFile(filepath.Join(work, "lib/libshared.so"))
	require.NoError(t, err)
	assert.Equal(t, "shared code", string(content))
	assert.Len(t, list.All(), 2)
}

func TestMissingDependencyArchive(t *testing.T) {
	dir := t.TempDir()
	buildArchive(t, filepath.Join(dir, "app"),
		entry{"absent.pkg:libx.so", archive.TypeDependency, archive.Stored, ""})

	_, err := New(WithTempRoot(dir)).ExtractAll(openList(t, filepath.Join(dir, "app")))
	assert.ErrorIs(t, err, os.ErrNotExist)
	assert.Equal(t, fatalerror.ArchiveError, fatalerror.TypeOf(err))
}

func TestDependencyOnInMemoryEntry(t *testing.T) {
	dir := t.TempDir()
	buildArchive(t, filepath.Join(dir, "app"),
		entry{"shared.pkg:pkg", archive.TypeDependency, archive.Stored, ""})
	buildArchive(t, filepath.Join(dir, "shared.pkg"),
		entry{"pkg", archive.TypeModule, archive.Stored, "bytecode"})

	_, err := New(WithTempRoot(dir)).ExtractAll(openList(t, filepath.Join(dir, "app")))
	assert.ErrorIs(t, err, ErrUnsupportedOnDisk)
	assert.Equal(t, fatalerror.ArchiveError, fatalerror.TypeOf(err))
}

func TestCorruptEntryIsArchiveError(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "app")
	buildArchive(t, path, entry{"lib/libapp.so", archive.TypeBinary, archive.Zlib, strings.Repeat("abcdefgh", 512)})

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	for i := 4; i < 12; i++ {
		raw[i] ^= 0xff
	}
	require.NoError(t, os.WriteFile(path, raw, 0o755))

	work, err := New(WithTempRoot(dir)).ExtractAll(openList(t, path))
	require.Error(t, err)
	assert.Equal(t, fatalerror.ArchiveError, fatalerror.TypeOf(err))
	assert.NoFileExists(t, filepath.Join(work, "lib/libapp.so"))
}

// failingFS fails the k-th file creation, or writes to it after limit bytes.
type failingFS struct {
	OSFileSystem
	failOn  int
	limit   int
	opened  int
	removed []string
}

var errDiskFull = errors.New("no space left on device")

func (f *failingFS) OpenFile(name string, flag int, perm os.FileMode) (io.WriteCloser, error) {
	f.opened++
	if f.opened != f.failOn {
		return f.OSFileSystem.OpenFile(name, flag, perm)
	}
	if f.limit < 0 {
		return nil, errDiskFull
	}
	w, err := f.OSFileSystem.OpenFile(name, flag, perm)
	if err != nil {
		return nil, err
	}
	return &limitedWriter{WriteCloser: w, left: f.limit}, nil
}

func (f *failingFS) Remove(name string) error {
	f.removed = append(f.removed, name)
	return f.OSFileSystem.Remove(name)
}

type limitedWriter struct {
	io.WriteCloser
	left int
}

func (w *limitedWriter) Write(p []byte) (int, error) {
	if len(p) <= w.left {
		w.left -= len(p)
		return w.WriteCloser.Write(p)
	}
	n, _ := w.WriteCloser.Write(p[:w.left])
	w.left = 0
	return n, errDiskFull
}

func TestFailureOnEntryLeavesNoWorkDirAfterCleanup(t *testing.T) {
	for k := 1; k <= 4; k++ {
		dir := t.TempDir()
		buildArchive(t, filepath.Join(dir, "app"), appEntries...)

		fs := &failingFS{failOn: k, limit: -1}
		session := cleanup.New()
		work, err := New(WithTempRoot(dir), WithFileSystem(fs)).ExtractAll(openList(t, filepath.Join(dir, "app")))
		session.Track(work)

		assert.ErrorIs(t, err, errDiskFull)
		assert.Equal(t, fatalerror.ExtractionError, fatalerror.TypeOf(err))
		require.DirExists(t, work)

		require.NoError(t, session.Cleanup())
		assert.NoDirExists(t, work)
	}
}

func TestPartialWriteIsRemoved(t *testing.T) {
	dir := t.TempDir()
	buildArchive(t, filepath.Join(dir, "app"), appEntries...)

	fs := &failingFS{failOn: 2, limit: 10}
	work, err := New(WithTempRoot(dir), WithFileSystem(fs)).ExtractAll(openList(t, filepath.Join(dir, "app")))
	assert.ErrorIs(t, err, errDiskFull)
	assert.Equal(t, fatalerror.ExtractionError, fatalerror.TypeOf(err))

	partial := filepath.Join(work, "lib/libapp.so")
	assert.Equal(t, []string{partial}, fs.removed)
	assert.NoFileExists(t, partial)
	assert.FileExists(t, filepath.Join(work, "libloader.so"))
}

func TestWorkDirCreationFailure(t *testing.T) {
	dir := t.TempDir()
	buildArchive(t, filepath.Join(dir, "app"), appEntries...)

	readOnly := filepath.Join(dir, "ro")
	require.NoError(t, os.Mkdir(readOnly, 0o500))
	if os.Geteuid() == 0 {
		t.Skip("root ignores directory permissions")
	}

	work, err := New(WithTempRoot(readOnly)).ExtractAll(openList(t, filepath.Join(dir, "app")))
	assert.Error(t, err)
	assert.Empty(t, work)
	assert.Equal(t, fatalerror.ExtractionError, fatalerror.TypeOf(err))
}

func TestCheckLinkTarget(t *testing.T) {
	assert.NoError(t, checkLinkTarget("a/b/link", "../c"))
	assert.NoError(t, checkLinkTarget("a/link", "./b/../c"))
	assert.Error(t, checkLinkTarget("link", "../x"))
	assert.Error(t, checkLinkTarget("a/link", ""))
}

package workdir

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// TestDir_Lifecycle creates and removes the directory, twice-safe.
func TestDir_Lifecycle(t *testing.T) {
	t.Parallel()

	d, err := New()
	require.NoError(t, err)

	path := d.Path()
	require.DirExists(t, path)
	require.Equal(t, filepath.Join(path, "dependencies"), d.Join("dependencies"))

	require.NoError(t, d.Close())
	require.NoDirExists(t, path)
	require.NoError(t, d.Close())
}

func sampleTree(t *testing.T) string {
	t.Helper()

	src := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(src, "bin"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(src, "VERSION"), []byte("1.2.3\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(src, "bin", "compile"), []byte("#!/bin/sh\n"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(src, ".gitignore"), []byte("*.zip\n"), 0o644))
	require.NoError(t, os.Symlink("compile", filepath.Join(src, "bin", "release")))

	return src
}

func requireCopied(t *testing.T, dst string) {
	t.Helper()

	got, err := os.ReadFile(filepath.Join(dst, "VERSION"))
	require.NoError(t, err)
	require.Equal(t, "1.2.3\n", string(got))

	info, err := os.Stat(filepath.Join(dst, "bin", "compile"))
	require.NoError(t, err)
	require.Equal(t, os.FileMode(0o755), info.Mode().Perm())

	require.FileExists(t, filepath.Join(dst, ".gitignore"))

	link, err := os.Readlink(filepath.Join(dst, "bin", "release"))
	require.NoError(t, err)
	require.Equal(t, "compile", link)
}

// TestCopyTree copies files, modes, nested dirs and symlinks.
func TestCopyTree(t *testing.T) {
	t.Parallel()

	src := sampleTree(t)
	dst := t.TempDir()

	require.NoError(t, CopyTree(src, dst))
	requireCopied(t, dst)
}

// TestCopyTree_SymlinkedRoot follows a root that is itself a link.
func TestCopyTree_SymlinkedRoot(t *testing.T) {
	t.Parallel()

	src := sampleTree(t)
	link := filepath.Join(t.TempDir(), "buildpack")
	require.NoError(t, os.Symlink(src, link))

	dst := t.TempDir()

	require.NoError(t, CopyTree(link, dst))
	requireCopied(t, dst)

	info, err := os.Lstat(dst)
	require.NoError(t, err)
	require.True(t, info.IsDir())
}

// TestCopyFile keeps the source permission bits.
func TestCopyFile(t *testing.T) {
	t.Parallel()

	src := filepath.Join(t.TempDir(), "dep.tgz")
	require.NoError(t, os.WriteFile(src, []byte("bytes"), 0o644))

	dst := filepath.Join(t.TempDir(), "dependencies", "dep.tgz")
	require.NoError(t, CopyFile(src, dst))

	got, err := os.ReadFile(dst)
	require.NoError(t, err)
	require.Equal(t, "bytes", string(got))

	info, err := os.Stat(dst)
	require.NoError(t, err)
	require.Equal(t, os.FileMode(0o644), info.Mode().Perm())
}

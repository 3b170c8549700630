package localfs

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/Geenz/entropycore/vfs"
	"github.com/stretchr/testify/require"
)

func TestCreateDirectoryAlwaysCreatesParentsRegardlessOfFlag(t *testing.T) {
	dir := t.TempDir()
	nested := filepath.Join(dir, "a", "b", "c")

	b := NewBackend(Config{})
	require.NoError(t, b.CreateDirectory(nested, false))

	info, err := os.Stat(nested)
	require.NoError(t, err)
	require.True(t, info.IsDir())
}

func TestRemoveDirectoryNonRecursiveFailsWhenNotEmpty(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "f.txt"), []byte("x"), 0o644))

	b := NewBackend(Config{})
	err := b.RemoveDirectory(dir, false)
	require.Error(t, err)
}

func TestRemoveDirectoryRecursiveRemovesContents(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "f.txt"), []byte("x"), 0o644))

	b := NewBackend(Config{})
	require.NoError(t, b.RemoveDirectory(dir, true))

	_, err := os.Stat(dir)
	require.True(t, os.IsNotExist(err))
}

func TestListDirectoryHiddenFilesExcludedByDefault(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "visible.txt"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".hidden"), []byte("x"), 0o644))

	b := NewBackend(Config{})
	entries, err := b.ListDirectory(dir, vfs.ListOptions{})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, "visible.txt", entries[0].Name)

	entries, err = b.ListDirectory(dir, vfs.ListOptions{IncludeHidden: true})
	require.NoError(t, err)
	require.Len(t, entries, 2)
}

func TestListDirectoryGlobFilter(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.txt"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.log"), []byte("x"), 0o644))

	b := NewBackend(Config{})
	entries, err := b.ListDirectory(dir, vfs.ListOptions{GlobPattern: "*.txt"})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, "a.txt", entries[0].Name)
}

func TestListDirectoryRecursiveUnlimitedDepthIncludesNested(t *testing.T) {
	dir := t.TempDir()
	nested := filepath.Join(dir, "sub")
	require.NoError(t, os.Mkdir(nested, 0o777))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "top.txt"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(nested, "deep.txt"), []byte("x"), 0o644))

	b := NewBackend(Config{})
	entries, err := b.ListDirectory(dir, vfs.ListOptions{Recursive: true, MaxDepth: 0})
	require.NoError(t, err)
	names := make(map[string]bool)
	for _, e := range entries {
		names[e.Name] = true
	}
	require.True(t, names["top.txt"])
	require.True(t, names["sub"])
	require.True(t, names["deep.txt"])
}

func TestListDirectoryCustomFilter(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.txt"), make([]byte, 5), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.txt"), make([]byte, 50), 0o644))

	b := NewBackend(Config{})
	entries, err := b.ListDirectory(dir, vfs.ListOptions{
		Filter: func(e vfs.DirEntry) bool { return e.Metadata.Size > 10 },
	})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, "b.txt", entries[0].Name)
}

func TestMatchGlobQuestionMark(t *testing.T) {
	require.True(t, matchGlob("a.txt", "?.txt"))
	require.False(t, matchGlob("ab.txt", "?.txt"))
}

package localfs

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/Geenz/entropycore/vfs"
	"github.com/stretchr/testify/require"
)

func TestCopyFileCopiesContent(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src.txt")
	dst := filepath.Join(dir, "dst.txt")
	require.NoError(t, os.WriteFile(src, []byte("hello"), 0o644))

	b := NewBackend(Config{})
	require.NoError(t, b.CopyFile(src, dst, vfs.CopyOptions{}))

	data, err := os.ReadFile(dst)
	require.NoError(t, err)
	require.Equal(t, "hello", string(data))
}

func TestCopyFileRefusesExistingDestinationWithoutOverwrite(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src.txt")
	dst := filepath.Join(dir, "dst.txt")
	require.NoError(t, os.WriteFile(src, []byte("new"), 0o644))
	require.NoError(t, os.WriteFile(dst, []byte("old"), 0o644))

	b := NewBackend(Config{})
	err := b.CopyFile(src, dst, vfs.CopyOptions{})
	require.Error(t, err)

	data, err := os.ReadFile(dst)
	require.NoError(t, err)
	require.Equal(t, "old", string(data))
}

func TestCopyFileWithProgressCallbackCancelsAndRemovesPartial(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src.txt")
	dst := filepath.Join(dir, "dst.txt")
	payload := make([]byte, copyChunkSize*3)
	require.NoError(t, os.WriteFile(src, payload, 0o644))

	b := NewBackend(Config{})
	calls := 0
	err := b.CopyFile(src, dst, vfs.CopyOptions{
		ProgressCallback: func(copied, total int64) bool {
			calls++
			return false
		},
	})
	require.Error(t, err)
	require.Equal(t, 1, calls)
	_, statErr := os.Stat(dst)
	require.True(t, os.IsNotExist(statErr))
}

func TestCopyFilePreservesAttributesWhenRequested(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src.txt")
	dst := filepath.Join(dir, "dst.txt")
	require.NoError(t, os.WriteFile(src, []byte("x"), 0o640))

	b := NewBackend(Config{})
	require.NoError(t, b.CopyFile(src, dst, vfs.CopyOptions{PreserveAttributes: true}))

	srcInfo, err := os.Stat(src)
	require.NoError(t, err)
	dstInfo, err := os.Stat(dst)
	require.NoError(t, err)
	require.Equal(t, srcInfo.Mode().Perm(), dstInfo.Mode().Perm())
}

func TestMoveFileSameFilesystemRename(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src.txt")
	dst := filepath.Join(dir, "dst.txt")
	require.NoError(t, os.WriteFile(src, []byte("hi"), 0o644))

	b := NewBackend(Config{})
	partial, err := b.MoveFile(src, dst, false)
	require.NoError(t, err)
	require.False(t, partial)

	_, err = os.Stat(src)
	require.True(t, os.IsNotExist(err))
	data, err := os.ReadFile(dst)
	require.NoError(t, err)
	require.Equal(t, "hi", string(data))
}

func TestMoveFileRefusesExistingDestinationWithoutOverwrite(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src.txt")
	dst := filepath.Join(dir, "dst.txt")
	require.NoError(t, os.WriteFile(src, []byte("new"), 0o644))
	require.NoError(t, os.WriteFile(dst, []byte("old"), 0o644))

	b := NewBackend(Config{})
	_, err := b.MoveFile(src, dst, false)
	require.Error(t, err)
}

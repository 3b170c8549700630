package localfs

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/Geenz/entropycore/vfs"
	"github.com/stretchr/testify/require"
)

func TestMapErrToKindFileNotFound(t *testing.T) {
	dir := t.TempDir()
	_, err := os.Open(filepath.Join(dir, "missing.txt"))
	require.Error(t, err)
	require.Equal(t, vfs.FileNotFound, mapErrToKind(err))
}

func TestMapErrToKindNilIsNone(t *testing.T) {
	require.Equal(t, vfs.None, mapErrToKind(nil))
}

func TestWrapErrBuildsVfsError(t *testing.T) {
	dir := t.TempDir()
	_, err := os.Open(filepath.Join(dir, "missing.txt"))
	wrapped := wrapErr(err, "missing.txt", "cannot open")
	require.Equal(t, vfs.FileNotFound, vfs.KindOf(wrapped))
}

func TestIsSpecialFileFalseForRegularFile(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "f.txt")
	require.NoError(t, os.WriteFile(target, []byte("x"), 0o644))
	require.False(t, isSpecialFile(target))
}

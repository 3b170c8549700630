package localfs

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/Geenz/entropycore/vfs"
	"github.com/stretchr/testify/require"
)

func TestNormalizeKeyIsAbsoluteAndClean(t *testing.T) {
	b := NewBackend(Config{})
	wd, err := os.Getwd()
	require.NoError(t, err)

	key := b.NormalizeKey("rel/../rel/file.txt")
	require.Equal(t, filepath.Join(wd, "rel", "file.txt"), key)
}

func TestExistsReflectsFilesystemState(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "f.txt")
	b := NewBackend(Config{})
	require.False(t, b.Exists(target))

	require.NoError(t, os.WriteFile(target, []byte("x"), 0o644))
	require.True(t, b.Exists(target))
}

func TestAcquireWriteScopeAlwaysNotSupported(t *testing.T) {
	b := NewBackend(Config{})
	result := b.AcquireWriteScope("/any/path", vfs.AcquireScopeOptions{})
	require.Equal(t, vfs.ScopeNotSupported, result.Status)
}

func TestCapabilitiesAdvertisesLocalDefaults(t *testing.T) {
	b := NewBackend(Config{})
	caps := b.Capabilities()
	require.True(t, caps.SupportsStreaming)
	require.True(t, caps.SupportsAtomicWrites)
	require.False(t, caps.IsRemote)
}

func TestNewBackendDefaultsMetadataBatchConcurrency(t *testing.T) {
	b := NewBackend(Config{})
	require.Equal(t, 8, b.cfg.MetadataBatchConcurrency)

	b2 := NewBackend(Config{MetadataBatchConcurrency: 3})
	require.Equal(t, 3, b2.cfg.MetadataBatchConcurrency)
}

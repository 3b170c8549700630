package localfs

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/Geenz/entropycore/vfs"
)

// Config configures a Backend. The zero value is usable: no forced parent
// directory creation.
type Config struct {
	// CreateParentDirsDefault is used by WriteFile/CreateFile/WriteLine/
	// CommitLineOps when their own WriteOptions.CreateParentDirs is nil.
	CreateParentDirsDefault bool
	// MetadataBatchConcurrency bounds how many GetMetadataBatch stats run
	// concurrently. 0 picks a small default.
	MetadataBatchConcurrency int
}

// Backend implements vfs.Backend and vfs.StreamingBackend for the local
// filesystem (spec.md §4.I), grounded on LocalFileSystemBackend.cpp.
type Backend struct {
	cfg Config
}

// NewBackend builds a Backend rooted at the process's normal filesystem
// view (paths are used as-is, not jailed to a root directory).
func NewBackend(cfg Config) *Backend {
	if cfg.MetadataBatchConcurrency <= 0 {
		cfg.MetadataBatchConcurrency = 8
	}
	return &Backend{cfg: cfg}
}

func (b *Backend) createParentDirs(override *bool) bool {
	if override != nil {
		return *override
	}
	return b.cfg.CreateParentDirsDefault
}

func ensureParentDirs(path string) error {
	parent := filepath.Dir(path)
	if parent == "" || parent == "." {
		return nil
	}
	return os.MkdirAll(parent, 0o777)
}

// BackendType identifies the backend for diagnostics.
func (b *Backend) BackendType() string { return "LocalFileSystem" }

// Capabilities advertises what the local backend supports.
func (b *Backend) Capabilities() vfs.Capabilities {
	return vfs.Capabilities{
		SupportsStreaming:    true,
		SupportsRandomAccess: true,
		SupportsDirectories:  true,
		SupportsMetadata:     true,
		SupportsAtomicWrites: true,
		IsRemote:             false,
		MaxFileSize:          1<<63 - 1,
	}
}

// NormalizeKey canonicalizes path for both handle identity and the
// per-path lock cache key: an absolute, cleaned path, lowercased on Windows
// where the filesystem itself is case-insensitive.
func (b *Backend) NormalizeKey(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = filepath.Clean(path)
	}
	if runtime.GOOS == "windows" {
		abs = strings.ToLower(abs)
	}
	return abs
}

// Exists reports whether path exists, following symlinks.
func (b *Backend) Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// AcquireWriteScope always reports NotSupported: writes go through a
// temp-file-plus-rename dance (doWriteLine, CommitLineOps), and flock()
// locks the original inode -- rename() then points the path at a different
// inode, breaking the lock. Serialization is left entirely to the facade's
// in-process advisory lock.
func (b *Backend) AcquireWriteScope(path string, opts vfs.AcquireScopeOptions) vfs.AcquireScopeResult {
	return vfs.AcquireScopeResult{
		Status:  vfs.ScopeNotSupported,
		Message: "local backend does not support write scopes; atomic rename would invalidate an flock on the old inode",
	}
}

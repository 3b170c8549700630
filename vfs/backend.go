package vfs

import (
	"io"
	"time"
)

// Capabilities is what a backend advertises about itself; the facade
// currently only surfaces it for diagnostics, but a future backend (S3,
// Azure) can use it to steer VFS-level fallback behavior.
type Capabilities struct {
	SupportsStreaming    bool
	SupportsRandomAccess bool
	SupportsDirectories  bool
	SupportsMetadata     bool
	SupportsAtomicWrites bool
	IsRemote             bool
	MaxFileSize          int64
}

// WriteScopeStatus is the result of Backend.AcquireWriteScope.
type WriteScopeStatus int

const (
	ScopeAcquired WriteScopeStatus = iota
	ScopeBusy
	ScopeTimedOut
	ScopeNotSupported
	ScopeError
)

// WriteScope is the RAII-style token returned by a successful
// AcquireWriteScope; callers must call Release exactly once.
type WriteScope interface {
	Release()
}

// AcquireScopeResult is the backend's answer to a write-scope request, one
// input to the submit_serialized policy table VirtualFileSystem.cpp
// implements.
type AcquireScopeResult struct {
	Status           WriteScopeStatus
	Token            WriteScope
	Err              error
	Message          string
	SuggestedBackoff time.Duration
}

// AcquireScopeOptions parameterizes Backend.AcquireWriteScope.
type AcquireScopeOptions struct {
	// Timeout is zero for "use the backend's own default".
	Timeout     time.Duration
	NonBlocking bool
}

// Backend implements concrete file operations for one mounted prefix,
// grounded on IFileSystemBackend. Every method runs synchronously on
// whatever goroutine the facade's contract wrapper schedules it on; Backend
// implementations must
// not block indefinitely on anything the facade doesn't already know about.
//
// Methods mirroring an optional IFileSystemBackend virtual in the original
// (CreateDirectory, ListDirectory, CopyFile, ...) that a minimal backend
// doesn't support should return a *vfs.Error with Kind Unknown and a message
// naming the operation, rather than panicking.
type Backend interface {
	ReadFile(path string, opts ReadOptions) ([]byte, bool /*partial*/, error)
	WriteFile(path string, data []byte, opts WriteOptions) (int64 /*written*/, error)
	DeleteFile(path string) error
	CreateFile(path string) error

	GetMetadata(path string) (Metadata, error)
	Exists(path string) bool
	GetMetadataBatch(paths []string) ([]Metadata, error)

	CreateDirectory(path string, createParents bool) error
	RemoveDirectory(path string, recursive bool) error
	ListDirectory(path string, opts ListOptions) ([]DirEntry, error)

	ReadLine(path string, lineNumber int) (string, error)
	WriteLine(path string, lineNumber int, content string, opts WriteOptions) error
	CommitLineOps(path string, ops []LineOp, opts WriteOptions) error
	// PreviewLineOps returns the content ops would produce against path's
	// current contents, without writing anything.
	PreviewLineOps(path string, ops []LineOp, opts WriteOptions) (string, error)

	CopyFile(src, dst string, opts CopyOptions) error
	// MoveFile reports partial=true if the source copy succeeded but the
	// source could not be removed afterward.
	MoveFile(src, dst string, overwrite bool) (partial bool, err error)

	Capabilities() Capabilities
	BackendType() string

	// NormalizeKey must be a pure function of path: used both for handle
	// identity and as the per-path lock cache key.
	NormalizeKey(path string) string

	AcquireWriteScope(path string, opts AcquireScopeOptions) AcquireScopeResult
}

// StreamMode picks the access mode for StreamingBackend.OpenStream.
type StreamMode int

const (
	StreamRead StreamMode = iota
	StreamWrite
	StreamReadWrite
)

// Stream is a backend-provided file stream. Reading/writing/seeking follow
// the usual io semantics; Flush pushes any backend-side buffering to the
// underlying storage without closing.
type Stream interface {
	io.Reader
	io.Writer
	io.Seeker
	io.Closer
	Flush() error
}

// StreamingBackend is an optional capability: a Backend implements it to
// support FileHandle's stream openers. Backends that don't (e.g. a future
// object-store backend) leave FileHandle's stream methods returning
// ErrNotSupported.
type StreamingBackend interface {
	OpenStream(path string, mode StreamMode) (Stream, error)
}

package vfs

import "time"

// ReadOptions controls FileHandle reads.
type ReadOptions struct {
	Offset uint64
	// Length, if non-nil, caps the read; fewer bytes available yields a
	// Partial result instead of an error.
	Length *uint64
	Binary bool
}

// WriteOptions controls FileHandle writes.
type WriteOptions struct {
	Offset uint64
	Append bool
	// CreateIfMissing defaults to true; Go's zero value for bool is false, so
	// callers using the zero-value WriteOptions{} get CreateIfMissing=false.
	// Use DefaultWriteOptions() for the documented defaults.
	CreateIfMissing bool
	Truncate        bool
	// CreateParentDirs overrides the facade's default when non-nil.
	CreateParentDirs *bool
	// EnsureFinalNewline overrides "preserve prior" when non-nil, for
	// whole-file rewrites only.
	EnsureFinalNewline *bool
	Fsync              bool
}

// DefaultWriteOptions returns the documented defaults: create-if-missing
// on, everything else off/unset.
func DefaultWriteOptions() WriteOptions {
	return WriteOptions{CreateIfMissing: true}
}

// SortOrder picks how ListDirectory orders its results.
type SortOrder int

const (
	SortNone SortOrder = iota
	SortByName
	SortBySize
	SortByModifiedTime
)

// ListOptions controls DirectoryHandle.List.
type ListOptions struct {
	Recursive      bool
	FollowSymlinks bool
	MaxDepth       int // 0 means unlimited
	GlobPattern    string
	Filter         func(DirEntry) bool
	IncludeHidden  bool
	SortBy         SortOrder
	MaxResults     int // 0 means unlimited
}

// CopyOptions controls Backend.CopyFile.
type CopyOptions struct {
	OverwriteExisting  bool
	PreserveAttributes bool
	UseReflink         bool
	// ProgressCallback, if set, is invoked as bytes are copied; returning
	// false cancels the copy and removes the partial destination.
	ProgressCallback func(copied, total int64) bool
}

// Metadata is the result of GetMetadata/GetMetadataBatch.
type Metadata struct {
	Exists       bool
	IsDirectory  bool
	IsRegular    bool
	IsSymlink    bool
	Size         int64
	CanRead      bool
	CanWrite     bool
	CanExecute   bool
	ModifiedTime time.Time
}

// DirEntry is one result of a directory listing.
type DirEntry struct {
	Name          string
	Path          string
	Metadata      Metadata
	SymlinkTarget string
}

// LineOpKind tags a WriteBatch operation.
type LineOpKind int

const (
	LineWrite LineOpKind = iota
	LineInsert
	LineDelete
	LineAppend
	LineClear
	LineReplaceAll
)

// LineOp is one queued operation in a WriteBatch, applied in the fixed
// order WriteBatch.cpp enforces: Clear, ReplaceAll, Delete (highest index
// first), Insert (highest index first), Write (sparse, later overrides),
// Append.
type LineOp struct {
	Kind  LineOpKind
	Index int      // meaningful for Write/Insert/Delete
	Lines []string // single-line ops use Lines[0]; ReplaceAll/Insert use the whole slice
}

// Package vfs implements the facade, handles, and write-batch builder of a
// concurrent virtual filesystem core, grounded on VirtualFileSystem.cpp and
// WriteBatch.cpp: backend routing by longest mounted-prefix match, per-path
// write serialization backed by an
// LRU-cached mutex pool, and every operation submitted as a contract so
// callers get back a FileOperationHandle instead of blocking the calling
// goroutine.
//
// vfs itself knows nothing about any concrete filesystem; see vfs/localfs
// for the backend that talks to local disks.
package vfs

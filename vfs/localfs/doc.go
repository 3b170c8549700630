// Package localfs implements vfs.Backend and vfs.StreamingBackend against
// the local disk. It knows nothing about mount points or handles -- those
// live in vfs itself; this package only turns paths into real file I/O.
package localfs

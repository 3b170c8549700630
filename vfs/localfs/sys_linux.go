//go:build linux

package localfs

import (
	"os"

	"golang.org/x/sys/unix"
)

// fsyncFile durably syncs f's contents via fdatasync, which skips the
// metadata flush a full fsync would also do.
func fsyncFile(f *os.File) error {
	return unix.Fdatasync(int(f.Fd()))
}

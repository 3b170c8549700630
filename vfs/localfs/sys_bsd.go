//go:build unix && !linux && !darwin

package localfs

import (
	"os"

	"golang.org/x/sys/unix"
)

// fsyncFile uses a plain fsync(2) on the BSDs, which lack the fdatasync/
// F_FULLFSYNC refinements Linux and Darwin have.
func fsyncFile(f *os.File) error {
	return unix.Fsync(int(f.Fd()))
}

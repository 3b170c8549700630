//go:build darwin

package localfs

import (
	"os"

	"golang.org/x/sys/unix"
)

// fsyncFile uses F_FULLFSYNC, which actually flushes the drive's write
// cache on Apple filesystems; a plain fsync(2) does not guarantee that.
func fsyncFile(f *os.File) error {
	_, err := unix.FcntlInt(f.Fd(), unix.F_FULLFSYNC, 0)
	if err != nil {
		return unix.Fsync(int(f.Fd()))
	}
	return nil
}

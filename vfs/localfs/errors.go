package localfs

import (
	"errors"
	"io/fs"
	"os"
	"syscall"

	"github.com/Geenz/entropycore/vfs"
)

// mapErrToKind maps a raw OS error to the vfs error taxonomy, following
// LocalFileSystemBackend.cpp's mapErrnoToFileError switch.
func mapErrToKind(err error) vfs.ErrorKind {
	if err == nil {
		return vfs.None
	}
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return vfs.FileNotFound
	case errors.Is(err, fs.ErrPermission):
		return vfs.AccessDenied
	}
	var errno syscall.Errno
	if errors.As(err, &errno) {
		switch errno {
		case syscall.ENOSPC:
			return vfs.DiskFull
		case syscall.EACCES, syscall.EPERM:
			return vfs.AccessDenied
		case syscall.ENOENT:
			return vfs.FileNotFound
		case syscall.EINVAL, syscall.ENAMETOOLONG, syscall.EISDIR:
			return vfs.InvalidPath
		}
	}
	return vfs.IOError
}

func wrapErr(err error, path, message string) error {
	if err == nil {
		return nil
	}
	return vfs.NewError(mapErrToKind(err), message, path, err)
}

// isSpecialFile reports whether path names a FIFO, device, or socket --
// file operations on these should fail rather than silently doing something
// the caller didn't intend (LocalFileSystemBackend.cpp's isSpecialFile).
func isSpecialFile(path string) bool {
	info, err := os.Lstat(path)
	if err != nil {
		return false
	}
	mode := info.Mode()
	return mode&(fs.ModeDevice|fs.ModeCharDevice|fs.ModeNamedPipe|fs.ModeSocket) != 0
}

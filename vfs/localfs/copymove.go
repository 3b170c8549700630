package localfs

import (
	"io"
	"os"

	"github.com/Geenz/entropycore/vfs"
)

const copyChunkSize = 1 << 20 // 1MB, matching LocalFileSystemBackend.cpp's chunked copy.

// CopyFile copies src to dst. A progress callback drives a chunked copy
// that can be cancelled mid-flight (returning false removes the partial
// destination); without one, it copies straight through.
func (b *Backend) CopyFile(src, dst string, opts vfs.CopyOptions) error {
	if b.createParentDirs(nil) {
		if err := ensureParentDirs(dst); err != nil {
			return wrapErr(err, dst, "failed to create destination parent directories")
		}
	}

	srcInfo, err := os.Stat(src)
	if err != nil {
		return vfs.NewError(vfs.FileNotFound, "source file not found", src, err)
	}

	if _, err := os.Stat(dst); err == nil && !opts.OverwriteExisting {
		return vfs.NewError(vfs.AccessDenied, "destination already exists", dst, nil)
	}

	in, err := os.Open(src)
	if err != nil {
		return wrapErr(err, src, "cannot open source for copying")
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, srcInfo.Mode().Perm())
	if err != nil {
		return wrapErr(err, dst, "cannot open destination for copying")
	}

	if opts.ProgressCallback != nil && srcInfo.Size() > 0 {
		buf := make([]byte, copyChunkSize)
		var copied int64
		for {
			n, rerr := in.Read(buf)
			if n > 0 {
				if _, werr := out.Write(buf[:n]); werr != nil {
					out.Close()
					os.Remove(dst)
					return wrapErr(werr, dst, "write error during copy")
				}
				copied += int64(n)
				if !opts.ProgressCallback(copied, srcInfo.Size()) {
					out.Close()
					os.Remove(dst)
					return vfs.NewError(vfs.Unknown, "copy cancelled by caller", src, nil)
				}
			}
			if rerr == io.EOF {
				break
			}
			if rerr != nil {
				out.Close()
				os.Remove(dst)
				return wrapErr(rerr, src, "read error during copy")
			}
		}
	} else {
		if _, err := io.Copy(out, in); err != nil {
			out.Close()
			os.Remove(dst)
			return wrapErr(err, dst, "copy failed")
		}
	}

	if err := out.Close(); err != nil {
		return wrapErr(err, dst, "copy failed")
	}

	if opts.PreserveAttributes {
		_ = os.Chtimes(dst, srcInfo.ModTime(), srcInfo.ModTime())
		_ = os.Chmod(dst, srcInfo.Mode().Perm())
	}

	return nil
}

// MoveFile tries a same-filesystem rename first (atomic); if that fails
// (typically EXDEV, a cross-filesystem move), it falls back to copy+delete
// and reports partial=true if the copy succeeded but deleting src did not.
func (b *Backend) MoveFile(src, dst string, overwrite bool) (bool, error) {
	if b.createParentDirs(nil) {
		if err := ensureParentDirs(dst); err != nil {
			return false, wrapErr(err, dst, "failed to create destination parent directories")
		}
	}

	if _, err := os.Stat(src); err != nil {
		return false, vfs.NewError(vfs.FileNotFound, "source file not found", src, err)
	}
	if _, err := os.Stat(dst); err == nil {
		if !overwrite {
			return false, vfs.NewError(vfs.AccessDenied, "destination already exists", dst, nil)
		}
		_ = os.Remove(dst)
	}

	if err := os.Rename(src, dst); err == nil {
		return false, nil
	}

	if err := b.CopyFile(src, dst, vfs.CopyOptions{OverwriteExisting: overwrite}); err != nil {
		return false, vfs.NewError(vfs.IOError, "copy failed during move", src, err)
	}
	if err := os.Remove(src); err != nil {
		return true, wrapErr(err, src, "source deletion failed after copy")
	}
	return false, nil
}

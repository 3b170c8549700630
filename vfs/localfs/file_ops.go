package localfs

import (
	"context"
	"io"
	"os"
	"sync"

	"golang.org/x/sync/semaphore"

	"github.com/Geenz/entropycore/vfs"
)

// ReadFile reads data starting at opts.Offset, up to opts.Length bytes or to
// EOF if Length is nil. A short read against an explicit Length is reported
// via the partial return rather than an error.
func (b *Backend) ReadFile(path string, opts vfs.ReadOptions) ([]byte, bool, error) {
	if isSpecialFile(path) {
		return nil, false, vfs.NewError(vfs.InvalidPath, "cannot perform file operations on special files (FIFO, device, socket)", path, nil)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, false, wrapErr(err, path, "cannot open file for reading")
	}
	defer f.Close()

	if opts.Offset > 0 {
		if _, err := f.Seek(int64(opts.Offset), io.SeekStart); err != nil {
			return nil, false, wrapErr(err, path, "seek failed")
		}
	}

	if opts.Length != nil {
		buf := make([]byte, *opts.Length)
		n, err := io.ReadFull(f, buf)
		if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
			return nil, false, wrapErr(err, path, "read failed")
		}
		partial := uint64(n) < *opts.Length
		return buf[:n], partial, nil
	}

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, false, wrapErr(err, path, "read failed")
	}
	return data, false, nil
}

// WriteFile writes data per opts: offset/append/truncate/create-if-missing,
// optionally ensuring a final newline and fsyncing (spec.md §4.I).
func (b *Backend) WriteFile(path string, data []byte, opts vfs.WriteOptions) (int64, error) {
	if isSpecialFile(path) {
		return 0, vfs.NewError(vfs.InvalidPath, "cannot perform file operations on special files (FIFO, device, socket)", path, nil)
	}

	if b.createParentDirs(opts.CreateParentDirs) {
		if err := ensureParentDirs(path); err != nil {
			return 0, wrapErr(err, path, "failed to create parent directories")
		}
	}

	flags := os.O_WRONLY
	switch {
	case opts.Append:
		flags |= os.O_APPEND
	case opts.Truncate || opts.Offset == 0:
		flags |= os.O_TRUNC
	}
	if opts.CreateIfMissing {
		flags |= os.O_CREATE
	}

	f, err := os.OpenFile(path, flags, 0o666)
	if err != nil {
		return 0, wrapErr(err, path, "cannot open file for writing")
	}
	defer f.Close()

	if opts.Offset > 0 && !opts.Append {
		if _, err := f.Seek(int64(opts.Offset), io.SeekStart); err != nil {
			return 0, wrapErr(err, path, "seek failed")
		}
	}

	n, err := f.Write(data)
	wrote := int64(n)
	if err != nil {
		return wrote, wrapErr(err, path, "write operation failed")
	}

	wholeFileRewrite := !opts.Append && (opts.Truncate || opts.Offset == 0)
	if wholeFileRewrite && boolValue(opts.EnsureFinalNewline) && (len(data) == 0 || data[len(data)-1] != '\n') {
		eolN, err := f.Write([]byte(platformEOL))
		wrote += int64(eolN)
		if err != nil {
			return wrote, wrapErr(err, path, "write operation failed")
		}
	}

	if opts.Fsync {
		if err := fsyncFile(f); err != nil {
			return wrote, wrapErr(err, path, "fsync failed")
		}
	}

	return wrote, nil
}

func boolValue(p *bool) bool { return p != nil && *p }

// DeleteFile removes path, reporting success if it's already gone.
func (b *Backend) DeleteFile(path string) error {
	err := os.Remove(path)
	if err != nil && !os.IsNotExist(err) {
		return wrapErr(err, path, "failed to delete file")
	}
	return nil
}

// CreateFile creates an empty file at path, truncating it if it exists.
func (b *Backend) CreateFile(path string) error {
	if b.createParentDirs(nil) {
		if err := ensureParentDirs(path); err != nil {
			return wrapErr(err, path, "failed to create parent directories")
		}
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o666)
	if err != nil {
		return wrapErr(err, path, "cannot create file")
	}
	return f.Close()
}

func statMetadata(path string) vfs.Metadata {
	var meta vfs.Metadata

	info, err := os.Lstat(path)
	if err != nil {
		meta.Exists = false
		return meta
	}
	meta.Exists = true
	meta.IsSymlink = info.Mode()&os.ModeSymlink != 0

	followed := info
	if meta.IsSymlink {
		if fi, err := os.Stat(path); err == nil {
			followed = fi
		}
	}
	meta.IsDirectory = followed.Mode().IsDir()
	meta.IsRegular = followed.Mode().IsRegular()
	if meta.IsRegular {
		meta.Size = followed.Size()
	}
	meta.CanRead, meta.CanWrite, meta.CanExecute = checkCurrentProcessPermissions(path)
	meta.ModifiedTime = followed.ModTime()
	return meta
}

// GetMetadata stats path; a non-existent path is reported as
// Metadata{Exists: false}, not an error, matching the original's behavior.
func (b *Backend) GetMetadata(path string) (vfs.Metadata, error) {
	return statMetadata(path), nil
}

// GetMetadataBatch stats every path concurrently, bounded by
// cfg.MetadataBatchConcurrency, preserving input order in the result.
func (b *Backend) GetMetadataBatch(paths []string) ([]vfs.Metadata, error) {
	results := make([]vfs.Metadata, len(paths))
	sem := semaphore.NewWeighted(int64(b.cfg.MetadataBatchConcurrency))

	var wg sync.WaitGroup
	for i, p := range paths {
		i, p := i, p
		wg.Add(1)
		_ = sem.Acquire(context.Background(), 1)
		go func() {
			defer wg.Done()
			defer sem.Release(1)
			results[i] = statMetadata(p)
		}()
	}
	wg.Wait()

	return results, nil
}

package localfs

import (
	"io"
	"os"

	"github.com/Geenz/entropycore/vfs"
)

// fileStream adapts *os.File to vfs.Stream.
type fileStream struct {
	f *os.File
}

func (s *fileStream) Read(p []byte) (int, error)               { return s.f.Read(p) }
func (s *fileStream) Write(p []byte) (int, error)               { return s.f.Write(p) }
func (s *fileStream) Seek(offset int64, whence int) (int64, error) { return s.f.Seek(offset, whence) }
func (s *fileStream) Close() error                               { return s.f.Close() }
func (s *fileStream) Flush() error                               { return s.f.Sync() }

var _ io.ReadWriteSeeker = (*fileStream)(nil)

// OpenStream opens path for streaming access, implementing
// vfs.StreamingBackend.
func (b *Backend) OpenStream(path string, mode vfs.StreamMode) (vfs.Stream, error) {
	var flags int
	switch mode {
	case vfs.StreamRead:
		flags = os.O_RDONLY
	case vfs.StreamWrite:
		flags = os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	case vfs.StreamReadWrite:
		flags = os.O_RDWR | os.O_CREATE
	}

	f, err := os.OpenFile(path, flags, 0o666)
	if err != nil {
		return nil, wrapErr(err, path, "cannot open stream")
	}
	return &fileStream{f: f}, nil
}

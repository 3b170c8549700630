package vfs

import (
	"bufio"
	"errors"
)

// ErrNotSupported is returned by a stream opener when the handle's backend
// doesn't implement StreamingBackend.
var ErrNotSupported = errors.New("vfs: backend does not support streaming")

// FileHandle is a copyable reference to one file, scoped to the backend its
// path resolved to at construction (spec.md §4.H). It never probes the
// filesystem itself -- every method forwards to the backend through the
// owning Facade.
type FileHandle struct {
	facade  *Facade
	backend Backend
	path    string
}

// Path returns the handle's path as given to CreateFileHandle.
func (h FileHandle) Path() string { return h.path }

// ReadAll reads the whole file.
func (h FileHandle) ReadAll() FileOperationHandle {
	return h.ReadRange(0, nil)
}

// ReadRange reads length bytes starting at offset, or to EOF if length is nil.
func (h FileHandle) ReadRange(offset uint64, length *uint64) FileOperationHandle {
	return h.facade.submit(func(s *opState) {
		data, partial, err := h.backend.ReadFile(h.path, ReadOptions{Offset: offset, Length: length, Binary: true})
		if err != nil {
			s.err = err
			return
		}
		s.bytes = data
		s.text = string(data)
		if partial {
			s.status = Partial
		}
	})
}

// ReadLine reads a single 0-indexed line. A line number past the end of the
// file is reported as a Partial result, not an error, matching the
// original backend's behavior.
func (h FileHandle) ReadLine(lineNumber int) FileOperationHandle {
	return h.facade.submit(func(s *opState) {
		line, err := h.backend.ReadLine(h.path, lineNumber)
		if err != nil {
			if err == ErrLineNotFound {
				s.status = Partial
				return
			}
			s.err = err
			return
		}
		s.text = line
		s.bytes = []byte(line)
	})
}

// WriteAll writes data as the whole file, subject to opts.
func (h FileHandle) WriteAll(data []byte, opts WriteOptions) FileOperationHandle {
	return h.facade.submit(func(s *opState) {
		n, err := h.backend.WriteFile(h.path, data, opts)
		if err != nil {
			s.err = err
			return
		}
		s.wrote = n
	})
}

// WriteText is WriteAll for a string payload.
func (h FileHandle) WriteText(text string, opts WriteOptions) FileOperationHandle {
	return h.WriteAll([]byte(text), opts)
}

// WriteRange writes bytes at offset.
func (h FileHandle) WriteRange(offset uint64, data []byte, opts WriteOptions) FileOperationHandle {
	opts.Offset = offset
	return h.WriteAll(data, opts)
}

// WriteLine replaces a single 0-indexed line, serialized per-path through
// the facade's submit_serialized policy.
func (h FileHandle) WriteLine(lineNumber int, content string, opts WriteOptions) FileOperationHandle {
	return h.facade.submitSerialized(h.backend, h.path, func() error {
		return h.backend.WriteLine(h.path, lineNumber, content, opts)
	})
}

// CreateEmpty creates an empty file through the backend's CreateFile. What
// happens to an existing file is up to the backend; vfs/localfs truncates it.
func (h FileHandle) CreateEmpty() FileOperationHandle {
	return h.facade.submit(func(s *opState) {
		if err := h.backend.CreateFile(h.path); err != nil {
			s.err = err
		}
	})
}

// Remove deletes the file.
func (h FileHandle) Remove() FileOperationHandle {
	return h.facade.submit(func(s *opState) {
		if err := h.backend.DeleteFile(h.path); err != nil {
			s.err = err
		}
	})
}

// GetMetadata retrieves file metadata.
func (h FileHandle) GetMetadata() FileOperationHandle {
	return h.facade.submit(func(s *opState) {
		md, err := h.backend.GetMetadata(h.path)
		if err != nil {
			s.err = err
			return
		}
		s.metadata = &md
	})
}

func (h FileHandle) streamingBackend() (StreamingBackend, error) {
	sb, ok := h.backend.(StreamingBackend)
	if !ok {
		return nil, ErrNotSupported
	}
	return sb, nil
}

// OpenReadStream opens the file for streaming reads.
func (h FileHandle) OpenReadStream() (Stream, error) {
	sb, err := h.streamingBackend()
	if err != nil {
		return nil, err
	}
	return sb.OpenStream(h.path, StreamRead)
}

// OpenWriteStream opens the file for streaming writes, truncating unless append is set.
func (h FileHandle) OpenWriteStream(append bool) (Stream, error) {
	sb, err := h.streamingBackend()
	if err != nil {
		return nil, err
	}
	mode := StreamWrite
	if append {
		// StreamWrite truncates; read-write mode keeps the existing contents.
		mode = StreamReadWrite
	}
	s, err := sb.OpenStream(h.path, mode)
	if err != nil {
		return nil, err
	}
	if append {
		_, _ = s.Seek(0, 2) // io.SeekEnd
	}
	return s, nil
}

// OpenReadWriteStream opens the file for both reading and writing.
func (h FileHandle) OpenReadWriteStream() (Stream, error) {
	sb, err := h.streamingBackend()
	if err != nil {
		return nil, err
	}
	return sb.OpenStream(h.path, StreamReadWrite)
}

// bufferedStream wraps a Stream with bufio buffering. Go's bufio already
// solves exactly what a hand-rolled BufferedFileStream would (a read buffer
// plus a write buffer flushed on Close/Flush), so it's used directly instead
// of reimplementing one.
type bufferedStream struct {
	Stream
	r *bufio.Reader
	w *bufio.Writer
}

func (b *bufferedStream) Read(p []byte) (int, error)  { return b.r.Read(p) }
func (b *bufferedStream) Write(p []byte) (int, error) { return b.w.Write(p) }
func (b *bufferedStream) Flush() error                { return b.w.Flush() }
func (b *bufferedStream) Close() error {
	if err := b.w.Flush(); err != nil {
		b.Stream.Close()
		return err
	}
	return b.Stream.Close()
}

// OpenBufferedStream opens the file for read-write streaming with bufio
// buffering on top of the backend's raw stream.
func (h FileHandle) OpenBufferedStream(bufSize int) (Stream, error) {
	sb, err := h.streamingBackend()
	if err != nil {
		return nil, err
	}
	inner, err := sb.OpenStream(h.path, StreamReadWrite)
	if err != nil {
		return nil, err
	}
	if bufSize <= 0 {
		bufSize = 65536
	}
	return &bufferedStream{
		Stream: inner,
		r:      bufio.NewReaderSize(inner, bufSize),
		w:      bufio.NewWriterSize(inner, bufSize),
	}, nil
}

package vfs

import "sync"

// OpStatus is a FileOperationHandle's lifecycle state.
type OpStatus int

const (
	Pending OpStatus = iota
	Running
	Partial
	Complete
	Failed
)

func (s OpStatus) String() string {
	switch s {
	case Pending:
		return "Pending"
	case Running:
		return "Running"
	case Partial:
		return "Partial"
	case Complete:
		return "Complete"
	case Failed:
		return "Failed"
	default:
		return "Unknown"
	}
}

// opState is the shared result slot behind a FileOperationHandle. A handle
// is a thin, copyable wrapper around a pointer to this struct so waiting on
// one copy observes completion set through any other.
type opState struct {
	mu       sync.Mutex
	cond     *sync.Cond
	status   OpStatus
	complete bool

	bytes            []byte
	wrote            int64
	text             string
	metadata         *Metadata
	directoryEntries []DirEntry
	metadataBatch    []Metadata
	err              error

	// progress is polled by Wait between checks so a goroutine that is
	// itself a worker, and that issued this very operation, doesn't
	// deadlock waiting for a contract that can only run on a worker thread
	// it's occupying. It reports whether it ran any work; Wait keeps
	// pumping until it reports false before parking on the condvar.
	progress func() bool
}

func newOpState() *opState {
	s := &opState{status: Pending}
	s.cond = sync.NewCond(&s.mu)
	return s
}

func (s *opState) finish(status OpStatus) {
	s.mu.Lock()
	s.status = status
	s.complete = true
	s.mu.Unlock()
	s.cond.Broadcast()
}

// FileOperationHandle represents one in-flight or completed VFS operation,
// grounded on FileOperationHandle.h. The zero value is an already-Pending-
// forever handle with no backing state; use Facade.submit or Immediate to
// build a real one.
type FileOperationHandle struct {
	s *opState
}

// Immediate returns a handle already in a terminal state, for backends or
// call paths that can answer synchronously without a contract round-trip.
func Immediate(status OpStatus) FileOperationHandle {
	s := newOpState()
	s.status = status
	s.complete = true
	return FileOperationHandle{s: s}
}

// Wait blocks until the operation reaches a terminal state, cooperatively
// running the optional progress hook between checks so a worker goroutine
// that is itself waiting on work it enqueued doesn't self-deadlock.
func (h FileOperationHandle) Wait() {
	if h.s == nil {
		return
	}
	h.s.mu.Lock()
	defer h.s.mu.Unlock()
	for !h.s.complete {
		if h.s.progress != nil {
			progress := h.s.progress
			h.s.mu.Unlock()
			ranWork := progress()
			h.s.mu.Lock()
			if h.s.complete {
				break
			}
			if ranWork {
				continue
			}
		}
		h.s.cond.Wait()
	}
}

// Status returns the operation's current status.
func (h FileOperationHandle) Status() OpStatus {
	if h.s == nil {
		return Pending
	}
	h.s.mu.Lock()
	defer h.s.mu.Unlock()
	return h.s.status
}

// ContentsBytes returns the read result. Only meaningful after Wait.
func (h FileOperationHandle) ContentsBytes() []byte {
	if h.s == nil {
		return nil
	}
	h.s.mu.Lock()
	defer h.s.mu.Unlock()
	return h.s.bytes
}

// ContentsText returns the read result decoded as text. Only meaningful
// after Wait.
func (h FileOperationHandle) ContentsText() string {
	if h.s == nil {
		return ""
	}
	h.s.mu.Lock()
	defer h.s.mu.Unlock()
	if h.s.text != "" {
		return h.s.text
	}
	return string(h.s.bytes)
}

// BytesWritten returns the write result. Only meaningful after Wait.
func (h FileOperationHandle) BytesWritten() int64 {
	if h.s == nil {
		return 0
	}
	h.s.mu.Lock()
	defer h.s.mu.Unlock()
	return h.s.wrote
}

// Metadata returns the metadata result, or nil if this wasn't a metadata
// operation. Only meaningful after Wait.
func (h FileOperationHandle) Metadata() *Metadata {
	if h.s == nil {
		return nil
	}
	h.s.mu.Lock()
	defer h.s.mu.Unlock()
	return h.s.metadata
}

// DirectoryEntries returns the listing result. Only meaningful after Wait.
func (h FileOperationHandle) DirectoryEntries() []DirEntry {
	if h.s == nil {
		return nil
	}
	h.s.mu.Lock()
	defer h.s.mu.Unlock()
	return h.s.directoryEntries
}

// MetadataBatch returns the batch-metadata result. Only meaningful after Wait.
func (h FileOperationHandle) MetadataBatch() []Metadata {
	if h.s == nil {
		return nil
	}
	h.s.mu.Lock()
	defer h.s.mu.Unlock()
	return h.s.metadataBatch
}

// Err returns the operation's error, or nil if it didn't fail. Only
// meaningful after Wait; callers must check this (or Status) before
// touching result fields.
func (h FileOperationHandle) Err() error {
	if h.s == nil {
		return nil
	}
	h.s.mu.Lock()
	defer h.s.mu.Unlock()
	return h.s.err
}

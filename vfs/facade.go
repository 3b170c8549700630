package vfs

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/Geenz/entropycore/contract"
	"github.com/Geenz/entropycore/internal/entlog"
)

// AdvisoryFallback picks what submit_serialized does when a backend can't
// grant a write scope (spec.md §4.H).
type AdvisoryFallback int

const (
	// FallbackNone fails fast instead of falling back to the in-process lock.
	FallbackNone AdvisoryFallback = iota
	// FallbackWithTimeout waits on the in-process per-path mutex up to
	// AdvisoryAcquireTimeout before failing with Timeout.
	FallbackWithTimeout
	// FallbackThenWait blocks on the in-process per-path mutex with no timeout.
	FallbackThenWait
)

// Config configures a Facade. The zero value is mostly usable: it lacks a
// default-backend factory, so paths with no mounted prefix fail to resolve
// until one is set or a backend is mounted at "/". Its AdvisoryFallback is
// FallbackNone, so serialized writes against a backend whose
// AcquireWriteScope reports ScopeNotSupported (such as vfs/localfs) fail
// with Conflict.
type Config struct {
	MaxWriteLocksCached     int
	WriteLockTimeout        time.Duration
	AdvisoryAcquireTimeout  time.Duration
	AdvisoryFallback        AdvisoryFallback
	CreateParentDirsDefault bool
	// DefaultBackendFactory lazily builds the backend used when no mounted
	// prefix matches a path and no explicit default has been set. Callers
	// typically pass something that builds a vfs/localfs.Backend rooted at
	// the filesystem root, avoiding an import cycle between vfs and its own
	// backend implementations.
	DefaultBackendFactory func() Backend
	// Logger receives write-scope contention events. Defaults to
	// entlog.Default().
	Logger entlog.Logger
}

func (c Config) withDefaults() Config {
	if c.MaxWriteLocksCached <= 0 {
		c.MaxWriteLocksCached = 256
	}
	if c.WriteLockTimeout <= 0 {
		c.WriteLockTimeout = 5 * time.Minute
	}
	if c.AdvisoryAcquireTimeout <= 0 {
		c.AdvisoryAcquireTimeout = 10 * time.Second
	}
	return c
}

type mountEntry struct {
	prefix  string
	backend Backend
}

// Facade is the concurrent virtual filesystem core (spec.md §4.H): backend
// routing by longest mounted-prefix match, handle construction, and the
// submit/submit_serialized operation primitives every FileHandle,
// DirectoryHandle, and WriteBatch ultimately calls into.
type Facade struct {
	group  *contract.Group
	cfg    Config
	logger entlog.Logger

	mountsMu       sync.RWMutex
	mounts         []mountEntry
	defaultBackend Backend
	defaultOnce    sync.Once

	locks *lockCache
}

// NewFacade builds a Facade submitting operations onto group.
func NewFacade(group *contract.Group, cfg Config) *Facade {
	cfg = cfg.withDefaults()
	return &Facade{
		group:  group,
		cfg:    cfg,
		logger: entlog.OrDefault(cfg.Logger),
		locks:  newLockCache(cfg.MaxWriteLocksCached, cfg.WriteLockTimeout),
	}
}

// MountBackend mounts backend at prefix. Longer prefixes take priority
// during routing regardless of mount order.
func (f *Facade) MountBackend(prefix string, backend Backend) {
	f.mountsMu.Lock()
	defer f.mountsMu.Unlock()
	f.mounts = append(f.mounts, mountEntry{prefix: prefix, backend: backend})
	sort.SliceStable(f.mounts, func(i, j int) bool {
		return len(f.mounts[i].prefix) > len(f.mounts[j].prefix)
	})
}

// SetDefaultBackend installs backend as the fallback used when no mounted
// prefix matches, overriding DefaultBackendFactory.
func (f *Facade) SetDefaultBackend(backend Backend) {
	f.mountsMu.Lock()
	defer f.mountsMu.Unlock()
	f.defaultBackend = backend
}

// findBackend picks the backend for path: longest matching mounted prefix,
// else the default backend (built lazily from DefaultBackendFactory on first
// use if one hasn't been set explicitly).
func (f *Facade) findBackend(path string) Backend {
	f.mountsMu.RLock()
	for _, m := range f.mounts {
		if strings.HasPrefix(path, m.prefix) {
			f.mountsMu.RUnlock()
			return m.backend
		}
	}
	def := f.defaultBackend
	f.mountsMu.RUnlock()
	if def != nil {
		return def
	}

	f.defaultOnce.Do(func() {
		if f.cfg.DefaultBackendFactory == nil {
			return
		}
		backend := f.cfg.DefaultBackendFactory()
		f.mountsMu.Lock()
		if f.defaultBackend == nil {
			f.defaultBackend = backend
		}
		f.mountsMu.Unlock()
	})

	f.mountsMu.RLock()
	defer f.mountsMu.RUnlock()
	return f.defaultBackend
}

// CreateFileHandle resolves path's backend and returns a copyable handle
// for file operations. Handles are dumb: every call forwards to the backend
// via the facade.
func (f *Facade) CreateFileHandle(path string) FileHandle {
	backend := f.findBackend(path)
	return FileHandle{facade: f, backend: backend, path: path}
}

// CreateDirectoryHandle resolves path's backend and returns a copyable
// handle for directory operations.
func (f *Facade) CreateDirectoryHandle(path string) DirectoryHandle {
	backend := f.findBackend(path)
	return DirectoryHandle{facade: f, backend: backend, path: path}
}

// CreateWriteBatch builds a WriteBatch targeting path.
func (f *Facade) CreateWriteBatch(path string) *WriteBatch {
	return newWriteBatch(f, path)
}

// submit is the base operation primitive (spec.md §4.H): body runs on a
// worker thread via a contract; what it records on the opState (an error, a
// Partial status) and any panic drive the returned handle's terminal state.
func (f *Facade) submit(body func(*opState)) FileOperationHandle {
	s := newOpState()
	s.progress = func() bool { return f.group.ExecuteBackgroundWork(1) > 0 }
	h := FileOperationHandle{s: s}

	work := func() {
		s.mu.Lock()
		s.status = Running
		s.mu.Unlock()

		final := Complete
		func() {
			defer func() {
				if r := recover(); r != nil {
					s.mu.Lock()
					if s.err == nil {
						s.err = NewError(Unknown, "unhandled panic in operation body", "", nil)
					}
					s.mu.Unlock()
					final = Failed
				}
			}()
			body(s)
		}()

		s.mu.Lock()
		if final != Failed {
			if s.status == Partial {
				// A body that explicitly declared a partial result keeps
				// it, error attached or not (a cross-device move whose
				// source deletion failed, a short read).
				final = Partial
			} else if s.err != nil {
				final = Failed
			}
		}
		s.mu.Unlock()
		s.finish(final)
	}

	handle := f.group.CreateContract(work, contract.AnyThread)
	if !handle.Valid() {
		s.err = NewError(Unknown, "contract group at capacity", "", nil)
		s.finish(Failed)
		return h
	}
	handle.Schedule()
	return h
}

// submitSerialized runs op under an exclusive scope for path, per
// submit_serialized's policy table (spec.md §4.H): prefer the backend's own
// write scope, falling back to the facade's in-process per-path mutex
// according to cfg.AdvisoryFallback.
func (f *Facade) submitSerialized(backend Backend, path string, op func() error) FileOperationHandle {
	return f.submitSerializedState(backend, path, func(s *opState) {
		if err := op(); err != nil {
			s.err = err
		}
	})
}

// submitSerializedState is submitSerialized for bodies that need to record
// more than an error on the operation state (a Partial status, say).
func (f *Facade) submitSerializedState(backend Backend, path string, op func(*opState)) FileOperationHandle {
	return f.submit(func(s *opState) {
		key := backend.NormalizeKey(path)

		scope := backend.AcquireWriteScope(key, AcquireScopeOptions{Timeout: f.cfg.AdvisoryAcquireTimeout})
		switch scope.Status {
		case ScopeAcquired:
			if scope.Token == nil {
				f.logger.Warnf("vfs: backend %s reported an acquired write scope with no token for %s", backend.BackendType(), key)
				s.err = NewError(Conflict, "backend reported an acquired write scope with no token", key, nil)
				return
			}
			defer scope.Token.Release()
			op(s)
			return
		case ScopeBusy, ScopeTimedOut:
			if f.cfg.AdvisoryFallback == FallbackNone {
				kind := Conflict
				if scope.Status == ScopeTimedOut {
					kind = Timeout
				}
				s.err = NewError(kind, "backend write scope unavailable", key, scope.Err)
				return
			}
		case ScopeError:
			s.err = NewError(IOError, scope.Message, key, scope.Err)
			return
		case ScopeNotSupported:
			// Falls through to the in-process advisory lock below.
		}

		if f.cfg.AdvisoryFallback == FallbackNone {
			s.err = NewError(Conflict, "no write scope available and advisory fallback disabled", key, nil)
			return
		}

		mu, release := f.locks.Acquire(key)
		defer release()

		if f.cfg.AdvisoryFallback == FallbackThenWait {
			mu.Lock()
			defer mu.Unlock()
		} else {
			locked := tryLockTimeout(mu, f.cfg.AdvisoryAcquireTimeout)
			if !locked {
				f.logger.Warnf("vfs: timed out acquiring advisory lock for %s after %s", key, f.cfg.AdvisoryAcquireTimeout)
				s.err = NewError(Timeout, "timed out acquiring advisory lock for "+key, key, nil)
				return
			}
			defer mu.Unlock()
		}

		op(s)
	})
}

// GetMetadataBatch retrieves metadata for every path, preserving input
// order and reporting non-existent paths as Exists=false entries rather
// than errors. Paths are routed to their backends individually, so a batch
// may span mounts; each backend sees one GetMetadataBatch call covering
// its share of the input.
func (f *Facade) GetMetadataBatch(paths []string) FileOperationHandle {
	return f.submit(func(s *opState) {
		results := make([]Metadata, len(paths))
		byBackend := make(map[Backend][]int)
		order := make([]Backend, 0, 1)
		for i, p := range paths {
			backend := f.findBackend(p)
			if backend == nil {
				s.err = NewError(InvalidPath, "no backend resolves path", p, nil)
				return
			}
			if _, seen := byBackend[backend]; !seen {
				order = append(order, backend)
			}
			byBackend[backend] = append(byBackend[backend], i)
		}
		for _, backend := range order {
			indices := byBackend[backend]
			batch := make([]string, len(indices))
			for j, i := range indices {
				batch[j] = paths[i]
			}
			metas, err := backend.GetMetadataBatch(batch)
			if err != nil {
				s.err = err
				return
			}
			for j, i := range indices {
				results[i] = metas[j]
			}
		}
		s.metadataBatch = results
	})
}

// CopyFile copies src to dst asynchronously, serialized on dst's
// normalized key so a concurrent writer to the destination can't interleave.
// Both paths must resolve to the same backend.
func (f *Facade) CopyFile(src, dst string, opts CopyOptions) FileOperationHandle {
	backend := f.findBackend(src)
	if backend == nil || f.findBackend(dst) != backend {
		s := newOpState()
		s.err = NewError(InvalidPath, "copy source and destination must resolve to the same backend", src, nil)
		s.finish(Failed)
		return FileOperationHandle{s: s}
	}
	return f.submitSerialized(backend, dst, func() error {
		return backend.CopyFile(src, dst, opts)
	})
}

// MoveFile moves src to dst asynchronously, serialized on dst's normalized
// key. A cross-device move that copied successfully but failed to delete
// the source completes Partial with the backend's error attached. Both
// paths must resolve to the same backend.
func (f *Facade) MoveFile(src, dst string, overwrite bool) FileOperationHandle {
	backend := f.findBackend(src)
	if backend == nil || f.findBackend(dst) != backend {
		s := newOpState()
		s.err = NewError(InvalidPath, "move source and destination must resolve to the same backend", src, nil)
		s.finish(Failed)
		return FileOperationHandle{s: s}
	}
	return f.submitSerializedState(backend, dst, func(s *opState) {
		partial, err := backend.MoveFile(src, dst, overwrite)
		if partial {
			s.status = Partial
			s.err = err
			return
		}
		if err != nil {
			s.err = err
		}
	})
}

// tryLockTimeout attempts mu.Lock(), giving up after timeout. sync.Mutex has
// no native TryLock-with-timeout, so this polls TryLock, which is adequate
// for advisory contention that's expected to be rare and short-lived.
func tryLockTimeout(mu sync.Locker, timeout time.Duration) bool {
	type tryLocker interface {
		TryLock() bool
	}
	tl, ok := mu.(tryLocker)
	if !ok {
		mu.Lock()
		return true
	}
	deadline := time.Now().Add(timeout)
	for {
		if tl.TryLock() {
			return true
		}
		if time.Now().After(deadline) {
			return false
		}
		time.Sleep(time.Millisecond)
	}
}

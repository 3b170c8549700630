package vfs

// DirectoryHandle is a copyable reference to one directory, scoped to the
// backend its path resolved to at construction (spec.md §4.H).
type DirectoryHandle struct {
	facade  *Facade
	backend Backend
	path    string
}

// Path returns the handle's path as given to CreateDirectoryHandle.
func (h DirectoryHandle) Path() string { return h.path }

// Create creates the directory. createParents is currently ignored by the
// local backend, which always creates parent directories regardless of this
// flag (spec.md §9 open question, preserved as-is).
func (h DirectoryHandle) Create(createParents bool) FileOperationHandle {
	return h.facade.submit(func(s *opState) {
		if err := h.backend.CreateDirectory(h.path, createParents); err != nil {
			s.err = err
		}
	})
}

// Remove removes the directory, recursively if requested.
func (h DirectoryHandle) Remove(recursive bool) FileOperationHandle {
	return h.facade.submit(func(s *opState) {
		if err := h.backend.RemoveDirectory(h.path, recursive); err != nil {
			s.err = err
		}
	})
}

// List lists the directory's entries per opts.
func (h DirectoryHandle) List(opts ListOptions) FileOperationHandle {
	return h.facade.submit(func(s *opState) {
		entries, err := h.backend.ListDirectory(h.path, opts)
		if err != nil {
			s.err = err
			return
		}
		s.directoryEntries = entries
	})
}

// GetMetadata retrieves metadata for the directory path itself.
func (h DirectoryHandle) GetMetadata() FileOperationHandle {
	return h.facade.submit(func(s *opState) {
		md, err := h.backend.GetMetadata(h.path)
		if err != nil {
			s.err = err
			return
		}
		s.metadata = &md
	})
}

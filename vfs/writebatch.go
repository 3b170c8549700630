package vfs

import "sync"

// WriteBatch accumulates line-level edits against one path and applies them
// together as a single serialized operation (spec.md §4.J). Queued
// operations are immutable once enqueued: committing the same batch twice
// applies them twice. This is specified behavior, not a bug.
type WriteBatch struct {
	facade  *Facade
	backend Backend
	path    string

	mu  sync.Mutex
	ops []LineOp
}

func newWriteBatch(f *Facade, path string) *WriteBatch {
	backend := f.findBackend(path)
	return &WriteBatch{facade: f, backend: backend, path: path}
}

// GetPath returns the path this batch targets.
func (b *WriteBatch) GetPath() string { return b.path }

func (b *WriteBatch) push(op LineOp) *WriteBatch {
	b.mu.Lock()
	b.ops = append(b.ops, op)
	b.mu.Unlock()
	return b
}

// WriteLine queues overwriting a single 0-indexed line.
func (b *WriteBatch) WriteLine(index int, content string) *WriteBatch {
	return b.push(LineOp{Kind: LineWrite, Index: index, Lines: []string{content}})
}

// InsertLine queues inserting a single line before index.
func (b *WriteBatch) InsertLine(index int, content string) *WriteBatch {
	return b.push(LineOp{Kind: LineInsert, Index: index, Lines: []string{content}})
}

// InsertLines queues inserting multiple lines before index, in order.
func (b *WriteBatch) InsertLines(index int, lines []string) *WriteBatch {
	return b.push(LineOp{Kind: LineInsert, Index: index, Lines: append([]string(nil), lines...)})
}

// DeleteLine queues deleting a single 0-indexed line.
func (b *WriteBatch) DeleteLine(index int) *WriteBatch {
	return b.push(LineOp{Kind: LineDelete, Index: index})
}

// DeleteRange queues deleting lines [start, end], both inclusive, matching
// WriteBatch.cpp's deleteRange.
func (b *WriteBatch) DeleteRange(start, end int) *WriteBatch {
	b.mu.Lock()
	for i := end; i >= start; i-- {
		b.ops = append(b.ops, LineOp{Kind: LineDelete, Index: i})
	}
	b.mu.Unlock()
	return b
}

// AppendLine queues appending a single line after the file's current end.
func (b *WriteBatch) AppendLine(content string) *WriteBatch {
	return b.push(LineOp{Kind: LineAppend, Lines: []string{content}})
}

// WriteLines queues appending multiple lines, in order.
func (b *WriteBatch) WriteLines(lines []string) *WriteBatch {
	b.mu.Lock()
	for _, l := range lines {
		b.ops = append(b.ops, LineOp{Kind: LineAppend, Lines: []string{l}})
	}
	b.mu.Unlock()
	return b
}

// ReplaceAll queues replacing the entire file's lines.
func (b *WriteBatch) ReplaceAll(lines []string) *WriteBatch {
	return b.push(LineOp{Kind: LineReplaceAll, Lines: append([]string(nil), lines...)})
}

// Clear queues truncating the file to zero lines.
func (b *WriteBatch) Clear() *WriteBatch {
	return b.push(LineOp{Kind: LineClear})
}

// PendingOperations reports how many operations are currently queued.
func (b *WriteBatch) PendingOperations() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.ops)
}

// Empty reports whether the batch has no queued operations.
func (b *WriteBatch) Empty() bool {
	return b.PendingOperations() == 0
}

// Reset discards all queued operations without committing them.
func (b *WriteBatch) Reset() {
	b.mu.Lock()
	b.ops = nil
	b.mu.Unlock()
}

func (b *WriteBatch) snapshot() []LineOp {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]LineOp(nil), b.ops...)
}

// Commit applies the queued operations to the file as one serialized
// operation, using DefaultWriteOptions. Committing the same batch a second
// time re-applies the same operations; the batch itself is not cleared.
func (b *WriteBatch) Commit() FileOperationHandle {
	return b.CommitWithOptions(DefaultWriteOptions())
}

// CommitWithOptions is Commit with explicit WriteOptions.
func (b *WriteBatch) CommitWithOptions(opts WriteOptions) FileOperationHandle {
	ops := b.snapshot()
	return b.facade.submitSerialized(b.backend, b.path, func() error {
		return b.backend.CommitLineOps(b.path, ops, opts)
	})
}

// Preview computes what the file would contain if the queued operations were
// committed now, without writing anything. Unlike Commit, it runs as a plain
// (unserialized) operation and takes no write scope or per-path lock.
func (b *WriteBatch) Preview() FileOperationHandle {
	return b.PreviewWithOptions(DefaultWriteOptions())
}

// PreviewWithOptions is Preview with explicit WriteOptions.
func (b *WriteBatch) PreviewWithOptions(opts WriteOptions) FileOperationHandle {
	ops := b.snapshot()
	return b.facade.submit(func(s *opState) {
		text, err := b.backend.PreviewLineOps(b.path, ops, opts)
		if err != nil {
			s.err = err
			return
		}
		s.text = text
		s.bytes = []byte(text)
	})
}

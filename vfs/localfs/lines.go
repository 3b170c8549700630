package localfs

import (
	"bufio"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/Geenz/entropycore/vfs"
)

// platformEOL is the line ending used when a file's own dominant ending is
// unknown (empty or ambiguous content) and when ensuring a final newline:
// CRLF on Windows, LF elsewhere.
var platformEOL = func() string {
	if runtime.GOOS == "windows" {
		return "\r\n"
	}
	return "\n"
}()

// splitLines parses data into lines with their EOLs stripped, detecting the
// dominant line ending (CRLF vs LF) and whether the file ends with one, so a
// rewrite can reproduce both (LocalFileSystemBackend.cpp's doWriteLine).
func splitLines(data []byte) (lines []string, eol string, finalNewline bool) {
	if len(data) == 0 {
		return nil, platformEOL, true
	}

	crlf, lf := 0, 0
	cur := make([]byte, 0, 64)
	for i := 0; i < len(data); i++ {
		c := data[i]
		if c == '\n' {
			if i > 0 && data[i-1] == '\r' {
				crlf++
				cur = cur[:len(cur)-1]
			} else {
				lf++
			}
			lines = append(lines, string(cur))
			cur = cur[:0]
		} else {
			cur = append(cur, c)
		}
	}

	finalNewline = data[len(data)-1] == '\n'
	if !finalNewline {
		lines = append(lines, string(cur))
	}

	switch {
	case crlf > lf:
		eol = "\r\n"
	case lf > crlf:
		eol = "\n"
	default:
		eol = platformEOL
	}
	return lines, eol, finalNewline
}

// joinLines re-assembles lines using eol, adding a trailing eol only when
// finalNewline is set, matching the writer side of doWriteLine/CommitLineOps.
func joinLines(lines []string, eol string, finalNewline bool) string {
	var b strings.Builder
	for i, l := range lines {
		b.WriteString(l)
		if i < len(lines)-1 || finalNewline {
			b.WriteString(eol)
		}
	}
	if len(lines) == 0 && finalNewline {
		b.WriteString(eol)
	}
	return b.String()
}

func readExistingLines(path string) (lines []string, eol string, finalNewline, existed bool) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, platformEOL, true, false
	}
	lines, eol, finalNewline = splitLines(data)
	return lines, eol, finalNewline, true
}

// atomicReplace writes content to a freshly-named sibling temp file and
// renames it over target, so readers never observe a partial write
// (spec.md §4.I's atomic-write requirement).
func atomicReplace(target string, content []byte, preserveModeFrom string) error {
	dir := filepath.Dir(target)
	base := filepath.Base(target)
	tempPath := filepath.Join(dir, base+".tmp-"+uuid.NewString())

	f, err := os.OpenFile(tempPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o666)
	if err != nil {
		return wrapErr(err, tempPath, "failed to create temp file")
	}
	if _, err := f.Write(content); err != nil {
		f.Close()
		os.Remove(tempPath)
		return wrapErr(err, tempPath, "failed to write temp file")
	}
	if err := f.Close(); err != nil {
		os.Remove(tempPath)
		return wrapErr(err, tempPath, "failed to write temp file")
	}

	if preserveModeFrom != "" {
		if info, err := os.Stat(preserveModeFrom); err == nil {
			_ = os.Chmod(tempPath, info.Mode().Perm())
		}
	}

	if err := os.Rename(tempPath, target); err != nil {
		os.Remove(tempPath)
		return wrapErr(err, target, "failed to replace file with temp file")
	}
	return nil
}

// ReadLine reads a single 0-indexed line, stripping CRLF. A line past EOF
// reports Partial, not an error -- callers distinguish via the handle's
// status rather than an error value here, so the Backend method itself just
// returns ErrLineNotFound to let the caller decide; vfs.FileHandle.ReadLine
// maps this to a Partial status.
func (b *Backend) ReadLine(path string, lineNumber int) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", vfs.NewError(vfs.FileNotFound, "file not found or cannot be opened", path, err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024*16)
	current := 0
	for scanner.Scan() {
		if current == lineNumber {
			return scanner.Text(), nil
		}
		current++
	}
	return "", vfs.ErrLineNotFound
}

// WriteLine replaces (or appends, padding with blank lines) a single
// 0-indexed line, via temp-file-plus-rename for atomicity.
func (b *Backend) WriteLine(path string, lineNumber int, content string, opts vfs.WriteOptions) error {
	if b.createParentDirs(opts.CreateParentDirs) {
		if err := ensureParentDirs(path); err != nil {
			return wrapErr(err, path, "failed to create parent directories")
		}
	}

	lines, eol, finalNewline, existed := readExistingLines(path)
	if lineNumber < len(lines) {
		lines[lineNumber] = content
	} else {
		for len(lines) < lineNumber {
			lines = append(lines, "")
		}
		lines = append(lines, content)
	}
	if !existed {
		finalNewline = true
	}

	final := joinLines(lines, eol, finalNewline)
	if err := atomicReplace(path, []byte(final), path); err != nil {
		return err
	}
	return nil
}

// applyLineOps builds the final line slice from queued operations, in the
// fixed order spec.md §4.I documents: Clear, Replace, Delete (highest index
// first), Insert (highest index first), Write (sparse, later overrides),
// Append. Grounded on WriteBatch.cpp's applyOperations.
func applyLineOps(original []string, ops []vfs.LineOp) []string {
	result := append([]string(nil), original...)

	var (
		shouldClear bool
		replaceWith []string
		hasReplace  bool
		writes      = map[int]string{}
		inserts     []vfs.LineOp
		deletes     []vfs.LineOp
		appends     []string
	)

	for _, op := range ops {
		switch op.Kind {
		case vfs.LineClear:
			shouldClear = true
		case vfs.LineReplaceAll:
			replaceWith = op.Lines
			hasReplace = true
		case vfs.LineWrite:
			writes[op.Index] = op.Lines[0]
		case vfs.LineInsert:
			inserts = append(inserts, op)
		case vfs.LineDelete:
			deletes = append(deletes, op)
		case vfs.LineAppend:
			appends = append(appends, op.Lines[0])
		}
	}

	if shouldClear {
		result = result[:0]
	}
	if hasReplace {
		result = append([]string(nil), replaceWith...)
	}

	sort.Slice(deletes, func(i, j int) bool { return deletes[i].Index > deletes[j].Index })
	for _, op := range deletes {
		if op.Index < len(result) {
			result = append(result[:op.Index], result[op.Index+1:]...)
		}
	}

	sort.Slice(inserts, func(i, j int) bool { return inserts[i].Index > inserts[j].Index })
	for _, op := range inserts {
		idx := op.Index
		if idx > len(result) {
			result = append(result, make([]string, idx-len(result))...)
		}
		tail := append([]string(nil), result[idx:]...)
		result = append(append(result[:idx], op.Lines...), tail...)
	}

	if len(writes) > 0 {
		maxLine := 0
		for idx := range writes {
			if idx > maxLine {
				maxLine = idx
			}
		}
		if maxLine >= len(result) {
			result = append(result, make([]string, maxLine+1-len(result))...)
		}
		idxs := make([]int, 0, len(writes))
		for idx := range writes {
			idxs = append(idxs, idx)
		}
		sort.Ints(idxs)
		for _, idx := range idxs {
			result[idx] = writes[idx]
		}
	}

	result = append(result, appends...)
	return result
}

// CommitLineOps applies ops to path's current contents and replaces it
// atomically via temp-file-plus-rename.
func (b *Backend) CommitLineOps(path string, ops []vfs.LineOp, opts vfs.WriteOptions) error {
	if len(ops) == 0 {
		return nil
	}
	if b.createParentDirs(opts.CreateParentDirs) {
		if err := ensureParentDirs(path); err != nil {
			return wrapErr(err, path, "failed to create parent directories")
		}
	}

	original, eol, finalNewline, existed := readExistingLines(path)
	finalLines := applyLineOps(original, ops)

	if opts.EnsureFinalNewline != nil {
		finalNewline = *opts.EnsureFinalNewline
	} else if !existed {
		finalNewline = true
	}

	content := joinLines(finalLines, eol, finalNewline)
	return atomicReplace(path, []byte(content), path)
}

// PreviewLineOps computes what CommitLineOps would write, without touching
// the file.
func (b *Backend) PreviewLineOps(path string, ops []vfs.LineOp, opts vfs.WriteOptions) (string, error) {
	original, eol, finalNewline, existed := readExistingLines(path)
	finalLines := applyLineOps(original, ops)
	if opts.EnsureFinalNewline != nil {
		finalNewline = *opts.EnsureFinalNewline
	} else if !existed {
		finalNewline = true
	}
	return joinLines(finalLines, eol, finalNewline), nil
}

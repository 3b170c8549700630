package localfs

import (
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/Geenz/entropycore/vfs"
)

// CreateDirectory always creates missing parents, regardless of
// createParents -- the local backend's documented quirk (spec.md §9 open
// question, preserved as-is rather than fixed).
func (b *Backend) CreateDirectory(path string, createParents bool) error {
	if err := os.MkdirAll(path, 0o777); err != nil {
		return wrapErr(err, path, "cannot create directory")
	}
	return nil
}

// RemoveDirectory removes path. recursive removes its contents too;
// non-recursive fails if the directory isn't empty.
func (b *Backend) RemoveDirectory(path string, recursive bool) error {
	var err error
	if recursive {
		err = os.RemoveAll(path)
	} else {
		err = os.Remove(path)
	}
	if err != nil {
		return wrapErr(err, path, "cannot remove directory")
	}
	return nil
}

// matchGlob supports the same two wildcards the original supports: '*' for
// any sequence, '?' for a single character.
func matchGlob(name, pattern string) bool {
	ok, err := filepath.Match(pattern, name)
	return err == nil && ok
}

func isHidden(name string) bool {
	return strings.HasPrefix(name, ".")
}

// ListDirectory lists path's entries per opts: recursive walk with a depth
// cap, glob/hidden/custom filtering, sort, then pagination -- applied in
// that order so MaxResults always takes the top-N of the requested sort
// (LocalFileSystemBackend.cpp's listDirectory).
func (b *Backend) ListDirectory(path string, opts vfs.ListOptions) ([]vfs.DirEntry, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, wrapErr(err, path, "directory not found")
	}

	var entries []vfs.DirEntry

	visit := func(fullPath string, depth int) error {
		name := filepath.Base(fullPath)
		if depth > opts.MaxDepth && opts.MaxDepth > 0 {
			return nil
		}

		entry := vfs.DirEntry{Name: name, Path: fullPath}
		entry.Metadata = statMetadata(fullPath)
		if !entry.Metadata.Exists {
			return nil // vanished mid-walk
		}
		if entry.Metadata.IsSymlink {
			if target, err := os.Readlink(fullPath); err == nil {
				entry.SymlinkTarget = target
			}
		}

		if !opts.IncludeHidden && isHidden(name) {
			return nil
		}
		if opts.GlobPattern != "" && !matchGlob(name, opts.GlobPattern) {
			return nil
		}
		if opts.Filter != nil && !opts.Filter(entry) {
			return nil
		}

		entries = append(entries, entry)
		return nil
	}

	if opts.Recursive {
		root := filepath.Clean(path)
		err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
			if err != nil {
				return nil
			}
			if p == root {
				return nil
			}
			if d.IsDir() && d.Type()&fs.ModeSymlink != 0 && !opts.FollowSymlinks {
				return filepath.SkipDir
			}
			rel, relErr := filepath.Rel(root, p)
			depth := 0
			if relErr == nil {
				depth = strings.Count(rel, string(filepath.Separator))
			}
			return visit(p, depth)
		})
		if err != nil {
			return nil, wrapErr(err, path, "cannot iterate directory")
		}
	} else {
		dirEntries, err := os.ReadDir(path)
		if err != nil {
			return nil, wrapErr(err, path, "cannot iterate directory")
		}
		for _, d := range dirEntries {
			if err := visit(filepath.Join(path, d.Name()), 0); err != nil {
				return nil, err
			}
		}
	}

	switch opts.SortBy {
	case vfs.SortByName:
		sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })
	case vfs.SortBySize:
		sort.Slice(entries, func(i, j int) bool { return entries[i].Metadata.Size < entries[j].Metadata.Size })
	case vfs.SortByModifiedTime:
		sort.Slice(entries, func(i, j int) bool {
			return entries[i].Metadata.ModifiedTime.Before(entries[j].Metadata.ModifiedTime)
		})
	}

	if opts.MaxResults > 0 && len(entries) > opts.MaxResults {
		entries = entries[:opts.MaxResults]
	}

	return entries, nil
}

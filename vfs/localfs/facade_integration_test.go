package localfs

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/Geenz/entropycore/contract"
	"github.com/Geenz/entropycore/vfs"
	"github.com/stretchr/testify/require"
)

func newTestFacade(t *testing.T) (*vfs.Facade, *contract.Group) {
	t.Helper()
	group := contract.New(16, nil)
	f := vfs.NewFacade(group, vfs.Config{AdvisoryFallback: vfs.FallbackThenWait})
	f.SetDefaultBackend(NewBackend(Config{}))
	return f, group
}

func drain(g *contract.Group) {
	for i := 0; i < 1000 && g.ExecuteAllBackgroundWork() > 0; i++ {
	}
}

// TestFacadeSerializesWriteLinePerPath is spec.md's S6 driven through the
// facade, not the raw backend: two concurrent write_line(0, ...) calls must
// serialize, leaving exactly one line and no leftover temp files.
func TestFacadeSerializesWriteLinePerPath(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "f.txt")
	require.NoError(t, os.WriteFile(target, []byte("orig\n"), 0o644))

	f, group := newTestFacade(t)
	h1 := f.CreateFileHandle(target)
	h2 := f.CreateFileHandle(target)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() { defer wg.Done(); h1.WriteLine(0, "A", vfs.DefaultWriteOptions()).Wait() }()
	go func() { defer wg.Done(); h2.WriteLine(0, "B", vfs.DefaultWriteOptions()).Wait() }()

	for i := 0; i < 200; i++ {
		drain(group)
	}
	wg.Wait()

	data, err := os.ReadFile(target)
	require.NoError(t, err)
	require.Contains(t, []string{"A\n", "B\n"}, string(data))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
}

// TestGetMetadataBatchS7 is spec.md's S7: three existing files plus one
// missing path, in input order, with exists/size populated correctly.
func TestGetMetadataBatchS7(t *testing.T) {
	dir := t.TempDir()
	paths := make([]string, 4)
	for i, size := range []int{1, 2, 3} {
		p := filepath.Join(dir, string(rune('a'+i))+".txt")
		require.NoError(t, os.WriteFile(p, make([]byte, size), 0o644))
		paths[i] = p
	}
	paths[3] = filepath.Join(dir, "missing.txt")

	b := NewBackend(Config{})
	results, err := b.GetMetadataBatch(paths)
	require.NoError(t, err)
	require.Len(t, results, 4)

	for i := 0; i < 3; i++ {
		require.True(t, results[i].Exists, "entry %d should exist", i)
		require.Equal(t, int64(i+1), results[i].Size)
	}
	require.False(t, results[3].Exists)
}

// TestListDirectorySortAndPaginateS8 is spec.md's S8.
func TestListDirectorySortAndPaginateS8(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.txt"), make([]byte, 1), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.txt"), make([]byte, 2), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "c.txt"), make([]byte, 3), 0o644))

	b := NewBackend(Config{})

	byName, err := b.ListDirectory(dir, vfs.ListOptions{SortBy: vfs.SortByName, MaxResults: 2})
	require.NoError(t, err)
	require.Equal(t, []string{"a.txt", "b.txt"}, names(byName))

	bySizeTop2, err := b.ListDirectory(dir, vfs.ListOptions{SortBy: vfs.SortBySize, MaxResults: 2})
	require.NoError(t, err)
	require.Equal(t, []string{"a.txt", "b.txt"}, names(bySizeTop2))

	bySizeAll, err := b.ListDirectory(dir, vfs.ListOptions{SortBy: vfs.SortBySize})
	require.NoError(t, err)
	require.Equal(t, []string{"a.txt", "b.txt", "c.txt"}, names(bySizeAll))
}

func names(entries []vfs.DirEntry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.Name
	}
	return out
}

// TestFacadeGetMetadataBatch drives S7's batch through the facade's async
// surface rather than the raw backend.
func TestFacadeGetMetadataBatch(t *testing.T) {
	dir := t.TempDir()
	existing := filepath.Join(dir, "x.txt")
	require.NoError(t, os.WriteFile(existing, []byte("x"), 0o644))

	f, _ := newTestFacade(t)
	h := f.GetMetadataBatch([]string{existing, filepath.Join(dir, "missing.txt")})
	h.Wait()
	require.Equal(t, vfs.Complete, h.Status())

	batch := h.MetadataBatch()
	require.Len(t, batch, 2)
	require.True(t, batch[0].Exists)
	require.Equal(t, int64(1), batch[0].Size)
	require.False(t, batch[1].Exists)
}

func TestFacadeCopyAndMoveFile(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src.txt")
	require.NoError(t, os.WriteFile(src, []byte("payload"), 0o644))

	f, _ := newTestFacade(t)

	copyDst := filepath.Join(dir, "copy.txt")
	ch := f.CopyFile(src, copyDst, vfs.CopyOptions{})
	ch.Wait()
	require.Equal(t, vfs.Complete, ch.Status())
	data, err := os.ReadFile(copyDst)
	require.NoError(t, err)
	require.Equal(t, "payload", string(data))

	moveDst := filepath.Join(dir, "moved.txt")
	mh := f.MoveFile(src, moveDst, false)
	mh.Wait()
	require.Equal(t, vfs.Complete, mh.Status())
	require.NoFileExists(t, src)
	data, err = os.ReadFile(moveDst)
	require.NoError(t, err)
	require.Equal(t, "payload", string(data))
}

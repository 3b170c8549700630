package signaltree

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSetClearSelect(t *testing.T) {
	tr := New(10)
	require.Equal(t, uint32(10), tr.Capacity())

	_, ok := tr.Select(0)
	require.False(t, ok, "empty tree must not select")

	tr.Set(3)
	tr.Set(7)
	require.True(t, tr.IsSet(3))
	require.True(t, tr.IsSet(7))

	seen := map[uint32]bool{}
	for i := 0; i < 2; i++ {
		idx, ok := tr.Select(uint64(i))
		require.True(t, ok)
		seen[idx] = true
	}
	require.Equal(t, map[uint32]bool{3: true, 7: true}, seen)

	_, ok = tr.Select(0)
	require.False(t, ok, "tree must be empty after draining all set bits")
}

func TestClearIdempotent(t *testing.T) {
	tr := New(128)
	tr.Set(64)
	require.True(t, tr.Clear(64))
	require.False(t, tr.Clear(64), "clearing an already-clear bit returns false")
	require.False(t, tr.IsSet(64))
}

func TestSetIdempotent(t *testing.T) {
	tr := New(10)
	tr.Set(1)
	tr.Set(1) // must not double-count
	idx, ok := tr.Select(0)
	require.True(t, ok)
	require.Equal(t, uint32(1), idx)
	_, ok = tr.Select(0)
	require.False(t, ok)
}

func TestTailBitsNeverSelected(t *testing.T) {
	// Capacity not a multiple of 64: bits >= capacity in the last leaf word
	// must never be observed as set, even though the word has spare bits.
	tr := New(70)
	for i := uint32(0); i < 70; i++ {
		tr.Set(i)
	}
	for i := 0; i < 70; i++ {
		_, ok := tr.Select(0)
		require.True(t, ok)
	}
	_, ok := tr.Select(0)
	require.False(t, ok)
}

func TestConcurrentSelectIsExclusive(t *testing.T) {
	const n = 2000
	tr := New(n)
	for i := uint32(0); i < n; i++ {
		tr.Set(i)
	}

	var mu sync.Mutex
	seen := make(map[uint32]int, n)
	var wg sync.WaitGroup
	for w := 0; w < 16; w++ {
		wg.Add(1)
		go func(bias uint64) {
			defer wg.Done()
			for {
				idx, ok := tr.Select(bias)
				if !ok {
					return
				}
				mu.Lock()
				seen[idx]++
				mu.Unlock()
				bias = mixBias(bias)
			}
		}(uint64(w) * 0x1234567)
	}
	wg.Wait()

	require.Len(t, seen, n)
	for idx, count := range seen {
		require.Equalf(t, 1, count, "slot %d selected %d times, want exactly once", idx, count)
	}
}

func TestPopcountInvariant(t *testing.T) {
	tr := New(200)
	for i := uint32(0); i < 200; i += 3 {
		tr.Set(i)
	}
	// Root popcount must equal the number of set bits across all leaves.
	var want int64
	for i := uint32(0); i < 200; i++ {
		if tr.IsSet(i) {
			want++
		}
	}
	require.Equal(t, want, tr.internal[0].Load())
}

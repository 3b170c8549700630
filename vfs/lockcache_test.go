package vfs

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLockCacheReusesSameMutexForSameKey(t *testing.T) {
	c := newLockCache(8, time.Minute)
	mu1, release1 := c.Acquire("/a")
	release1()
	mu2, release2 := c.Acquire("/a")
	defer release2()
	require.Same(t, mu1, mu2)
}

func TestLockCacheNeverEvictsAnInUseEntry(t *testing.T) {
	c := newLockCache(2, time.Minute)
	muA, releaseA := c.Acquire("/a") // refs=1, stays held across the rest of this test
	_, releaseB := c.Acquire("/b")
	releaseB()

	// /a is pinned (still held) and /b is the only evictable entry; /c's
	// insertion must skip over /a and evict /b instead, even though /a is
	// the older of the two.
	_, releaseC := c.Acquire("/c")
	releaseC()
	require.Equal(t, 2, c.Len())

	muA2, releaseA2 := c.Acquire("/a")
	releaseA2()
	releaseA()
	require.Same(t, muA, muA2)
}

func TestLockCacheEvictsLeastRecentlyUsedWhenFull(t *testing.T) {
	c := newLockCache(2, time.Minute)
	_, r1 := c.Acquire("/a")
	r1()
	_, r2 := c.Acquire("/b")
	r2()
	require.Equal(t, 2, c.Len())

	_, r3 := c.Acquire("/c")
	r3()
	require.Equal(t, 2, c.Len())
}

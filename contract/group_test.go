package contract

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// TestContractBasics covers basic contract creation, scheduling, and
// execution.
func TestContractBasics(t *testing.T) {
	g := New(4, nil)
	var counter atomic.Int64

	handles := make([]Handle, 4)
	for i := range handles {
		handles[i] = g.CreateContract(func() { counter.Add(1) }, AnyThread)
		require.True(t, handles[i].Valid())
	}

	for _, h := range handles {
		require.Equal(t, ScheduleResultScheduled, h.Schedule())
	}

	g.ExecuteAllBackgroundWork()
	g.Wait()

	require.Equal(t, int64(4), counter.Load())
	for _, h := range handles {
		require.False(t, h.Valid())
	}
}

// TestCancellationBeforeSelection and TestCancellationDuringExecution cover
// unscheduling a contract before and during execution.
func TestCancellationBeforeSelection(t *testing.T) {
	g := New(4, nil)
	var counter atomic.Int64
	h := g.CreateContract(func() {
		time.Sleep(100 * time.Millisecond)
		counter.Add(1)
	}, AnyThread)
	require.Equal(t, ScheduleResultScheduled, h.Schedule())

	require.Equal(t, UnscheduleResultNotScheduled, h.Unschedule())
	require.Equal(t, int64(0), counter.Load())
	require.Equal(t, State(Allocated), State(g.slots[h.index].state.Load()))
}

func TestCancellationDuringExecution(t *testing.T) {
	g := New(4, nil)
	started := make(chan struct{})
	release := make(chan struct{})
	h := g.CreateContract(func() {
		close(started)
		<-release
	}, AnyThread)
	require.Equal(t, ScheduleResultScheduled, h.Schedule())

	done := make(chan struct{})
	go func() {
		defer close(done)
		sel := g.selectForExecution(0)
		if sel.Valid() {
			g.ExecuteContract(sel)
		}
	}()

	<-started
	require.Equal(t, UnscheduleResultExecuting, h.Unschedule())
	close(release)
	<-done
}

func TestCreateContractFullPool(t *testing.T) {
	g := New(2, nil)
	h1 := g.CreateContract(func() {}, AnyThread)
	h2 := g.CreateContract(func() {}, AnyThread)
	require.True(t, h1.Valid())
	require.True(t, h2.Valid())

	h3 := g.CreateContract(func() {}, AnyThread)
	require.False(t, h3.Valid())
	require.Equal(t, ScheduleResultInvalid, h3.Schedule())
}

func TestGenerationBumpInvalidatesHandleAtExecutionStart(t *testing.T) {
	g := New(1, nil)
	var observedValidDuringRun bool
	h := g.CreateContract(func() {}, AnyThread)
	require.Equal(t, ScheduleResultScheduled, h.Schedule())

	sel := g.selectForExecution(0)
	require.True(t, sel.Valid(), "handle stamped by select must still be valid before execute begins")

	// The handle returned by selectForExecution remains valid until
	// ExecuteContract actually begins.
	g.ExecuteContract(sel)
	observedValidDuringRun = sel.Valid()
	require.False(t, observedValidDuringRun, "handle must be invalid once execution has begun")
}

func TestReentrantContractReusesSameSlot(t *testing.T) {
	// A closure that creates and schedules a new contract may observe a
	// different generation on the very same slot index.
	g := New(1, nil)
	var ran atomic.Bool
	var secondHandle Handle

	first := g.CreateContract(func() {
		secondHandle = g.CreateContract(func() { ran.Store(true) }, AnyThread)
		secondHandle.Schedule()
	}, AnyThread)
	require.Equal(t, ScheduleResultScheduled, first.Schedule())

	g.ExecuteAllBackgroundWork()
	require.True(t, ran.Load())
	require.Equal(t, uint32(0), secondHandle.index)
}

func TestReleaseOnAllocatedAndScheduled(t *testing.T) {
	g := New(2, nil)
	h1 := g.CreateContract(func() {}, AnyThread)
	h1.Release()
	require.False(t, h1.Valid())

	h2 := g.CreateContract(func() {}, AnyThread)
	h2.Schedule()
	h2.Release()
	require.False(t, h2.Valid())
	require.Equal(t, int64(0), g.scheduled.Load())
}

func TestConcurrentScheduleAndExecute(t *testing.T) {
	const n = 500
	g := New(32, nil)
	var counter atomic.Int64
	var wg sync.WaitGroup

	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				h := g.CreateContract(func() { counter.Add(1) }, AnyThread)
				if h.Valid() {
					h.Schedule()
					return
				}
			}
		}()
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		var bias uint64
		for counter.Load() < n {
			h := g.selectForExecution(bias)
			if h.Valid() {
				g.ExecuteContract(h)
			}
			bias++
		}
	}()

	wg.Wait()
	<-done
	require.Equal(t, int64(n), counter.Load())
}

func TestStopPreventsSelectionAndResumeAllows(t *testing.T) {
	g := New(2, nil)
	h := g.CreateContract(func() {}, AnyThread)
	h.Schedule()

	g.Stop()
	sel := g.selectForExecution(0)
	require.False(t, sel.Valid())

	g.Resume()
	sel = g.selectForExecution(0)
	require.True(t, sel.Valid())
	g.ExecuteContract(sel)
}

func TestCapacityAvailableCallback(t *testing.T) {
	g := New(1, nil)
	var fired atomic.Bool
	g.AddOnCapacityAvailable(func() { fired.Store(true) })

	h := g.CreateContract(func() {}, AnyThread)
	h.Schedule()
	g.ExecuteAllBackgroundWork()
	require.True(t, fired.Load())
}

func TestCloseReleasesAllocatedAndUnschedulesScheduled(t *testing.T) {
	g := New(3, nil)
	allocated := g.CreateContract(func() {}, AnyThread)
	scheduled := g.CreateContract(func() {}, AnyThread)
	scheduled.Schedule()

	g.Close()
	require.False(t, allocated.Valid())
	require.False(t, scheduled.Valid())
	require.True(t, g.Stopping())
}

package workgraph

import (
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Geenz/entropycore/contract"
	"github.com/stretchr/testify/require"
)

func drain(g *contract.Group) {
	for g.ExecuteAllBackgroundWork() > 0 {
	}
}

func TestDiamondDependencyRunsInOrder(t *testing.T) {
	group := contract.New(8, nil)
	graph := NewGraph(group, SchedulerConfig{}, Callbacks{})

	var order []string
	record := func(name string) func() error {
		return func() error {
			order = append(order, name)
			return nil
		}
	}

	a := graph.AddNode(record("a"), "a", contract.AnyThread)
	b := graph.AddNode(record("b"), "b", contract.AnyThread)
	c := graph.AddNode(record("c"), "c", contract.AnyThread)
	d := graph.AddNode(record("d"), "d", contract.AnyThread)

	require.NoError(t, graph.AddDependency(a, b))
	require.NoError(t, graph.AddDependency(a, c))
	require.NoError(t, graph.AddDependency(b, d))
	require.NoError(t, graph.AddDependency(c, d))

	require.NoError(t, graph.Execute())
	for i := 0; i < 10 && len(order) < 4; i++ {
		drain(group)
	}

	require.Len(t, order, 4)
	require.Equal(t, "a", order[0])
	require.Equal(t, "d", order[3])
	require.ElementsMatch(t, []string{"b", "c"}, order[1:3])
}

func TestAddDependencyRejectsCycle(t *testing.T) {
	group := contract.New(4, nil)
	graph := NewGraph(group, SchedulerConfig{}, Callbacks{})

	a := graph.AddNode(func() error { return nil }, "a", contract.AnyThread)
	b := graph.AddNode(func() error { return nil }, "b", contract.AnyThread)

	require.NoError(t, graph.AddDependency(a, b))
	require.ErrorIs(t, graph.AddDependency(b, a), ErrCycleDetected)
}

func TestFailureCascadesCancellationToDependents(t *testing.T) {
	group := contract.New(8, nil)
	var cancelled []NodeHandle
	graph := NewGraph(group, SchedulerConfig{}, Callbacks{
		OnNodeCancelled: func(h NodeHandle) { cancelled = append(cancelled, h) },
	})

	boom := errors.New("boom")
	root := graph.AddNode(func() error { return boom }, "root", contract.AnyThread)
	mid := graph.AddNode(func() error { return nil }, "mid", contract.AnyThread)
	leaf := graph.AddNode(func() error { return nil }, "leaf", contract.AnyThread)

	require.NoError(t, graph.AddDependency(root, mid))
	require.NoError(t, graph.AddDependency(mid, leaf))

	require.NoError(t, graph.Execute())
	drain(group)

	require.Equal(t, Failed, root.State())
	require.Equal(t, Cancelled, mid.State())
	require.Equal(t, Cancelled, leaf.State())
	require.Len(t, cancelled, 2)
}

func TestYieldReschedulesUntilComplete(t *testing.T) {
	group := contract.New(4, nil)
	graph := NewGraph(group, SchedulerConfig{}, Callbacks{})

	var calls atomic.Int32
	node := graph.AddYieldableNode(func() WorkResultContext {
		n := calls.Add(1)
		if n < 3 {
			return WorkResultContext{Result: Yield}
		}
		return WorkResultContext{Result: Complete}
	}, "yielder", contract.AnyThread, 0)

	require.NoError(t, graph.Execute())
	for i := 0; i < 10 && node.State() != Completed; i++ {
		drain(group)
	}

	require.Equal(t, Completed, node.State())
	require.Equal(t, int32(3), calls.Load())
}

func TestYieldUntilDefersToTimedQueueAndCheckTimedDeferrals(t *testing.T) {
	group := contract.New(4, nil)
	graph := NewGraph(group, SchedulerConfig{}, Callbacks{})

	var ran atomic.Bool
	wake := time.Now().Add(20 * time.Millisecond)
	node := graph.AddYieldableNode(func() WorkResultContext {
		if ran.Load() {
			return WorkResultContext{Result: Complete}
		}
		ran.Store(true)
		return WorkResultContext{Result: YieldUntil, WakeTime: wake}
	}, "timed", contract.AnyThread, 0)

	require.NoError(t, graph.Execute())
	drain(group)
	require.True(t, ran.Load())
	require.Equal(t, Yielded, node.State())

	// Before the wake time, pumping the timed queue does nothing.
	require.Equal(t, 0, graph.CheckTimedDeferrals())

	time.Sleep(30 * time.Millisecond)
	require.Equal(t, 1, graph.CheckTimedDeferrals())
	drain(group)
	require.Equal(t, Completed, node.State())
}

func TestMaxReschedulesExceededFailsNode(t *testing.T) {
	group := contract.New(4, nil)
	var failErr error
	graph := NewGraph(group, SchedulerConfig{}, Callbacks{
		OnNodeFailed: func(_ NodeHandle, err error) { failErr = err },
	})

	node := graph.AddYieldableNode(func() WorkResultContext {
		return WorkResultContext{Result: Yield}
	}, "stubborn", contract.AnyThread, 2)

	require.NoError(t, graph.Execute())
	for i := 0; i < 10 && node.State() != Failed; i++ {
		drain(group)
	}

	require.Equal(t, Failed, node.State())
	require.ErrorIs(t, failErr, ErrMaxReschedulesExceeded)
}

func TestDeferredQueueDropsBeyondCapacityAndFiresCallback(t *testing.T) {
	group := contract.New(1, nil)
	var dropped []NodeHandle
	graph := NewGraph(group, SchedulerConfig{MaxDeferredNodes: 1}, Callbacks{
		OnNodeDropped: func(h NodeHandle) { dropped = append(dropped, h) },
	})

	block := make(chan struct{})
	blocker := graph.AddNode(func() error { <-block; return nil }, "blocker", contract.AnyThread)
	require.NoError(t, graph.Execute())

	go func() {
		h := group.SelectForExecution(0)
		if h.Valid() {
			group.ExecuteContract(h)
		}
	}()
	require.Eventually(t, func() bool { return blocker.State() == Running }, time.Second, time.Millisecond)

	// Added after Execute, so these are scheduled explicitly rather than
	// picked up by Execute's own ready-node scan.
	n1 := graph.AddNode(func() error { return nil }, "n1", contract.AnyThread)
	n2 := graph.AddNode(func() error { return nil }, "n2", contract.AnyThread)
	graph.Scheduler().ScheduleReadyNodes([]NodeHandle{n1, n2})

	close(block)
	for i := 0; i < 10; i++ {
		drain(group)
	}

	require.Equal(t, []NodeHandle{n2}, dropped)
}

func TestGraphWaitBlocksUntilAllTerminal(t *testing.T) {
	group := contract.New(4, nil)
	graph := NewGraph(group, SchedulerConfig{}, Callbacks{})

	var ran atomic.Bool
	graph.AddNode(func() error { ran.Store(true); return nil }, "only", contract.AnyThread)
	require.NoError(t, graph.Execute())

	done := make(chan struct{})
	go func() {
		graph.Wait()
		close(done)
	}()

	for i := 0; i < 10; i++ {
		drain(group)
		select {
		case <-done:
			require.True(t, ran.Load())
			return
		default:
			time.Sleep(time.Millisecond)
		}
	}
	t.Fatal("graph.Wait() never returned")
}

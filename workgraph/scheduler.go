package workgraph

import (
	"container/heap"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Geenz/entropycore/contract"
	"github.com/Geenz/entropycore/internal/entlog"
)

// NodeScheduler mediates between a Graph and a single contract.Group,
// respecting group capacity, deferring and re-deferring nodes, and honoring
// yield semantics, grounded on src/Concurrency/NodeScheduler.cpp. Built
// internally by NewGraph; accessed via Graph.Scheduler for stats and manual
// pumping.
type NodeScheduler struct {
	group  *contract.Group
	graph  *Graph
	cfg    SchedulerConfig
	logger entlog.Logger

	deferredMu    sync.RWMutex
	deferredQueue []NodeHandle

	timedMu    sync.Mutex
	timedQueue timedHeap

	statsMu sync.Mutex
	stats   Stats

	destroyed atomic.Bool
}

func newNodeScheduler(group *contract.Group, graph *Graph, cfg SchedulerConfig) *NodeScheduler {
	return &NodeScheduler{group: group, graph: graph, cfg: cfg, logger: entlog.OrDefault(cfg.Logger)}
}

// Stats returns a snapshot of the scheduler's counters.
func (s *NodeScheduler) Stats() Stats {
	s.statsMu.Lock()
	defer s.statsMu.Unlock()
	return s.stats
}

// Close marks the scheduler destroyed: any work wrapper still in flight for
// a node it owns becomes a no-op on completion, so late callbacks after
// teardown never fire. Mirrors the original's single atomic "destroyed"
// flag guarding every callback path.
func (s *NodeScheduler) Close() {
	s.destroyed.Store(true)
}

func (s *NodeScheduler) hasCapacity() bool {
	st := s.group.Stats()
	return st.Active < int64(s.group.Capacity())
}

func (s *NodeScheduler) availableCapacity() int {
	st := s.group.Stats()
	avail := int64(s.group.Capacity()) - st.Active
	if avail < 0 {
		return 0
	}
	return int(avail)
}

// scheduleNode attempts to schedule h. It returns true if h ended up either
// truly Scheduled or successfully pushed to the deferred queue; false only
// if the deferred queue was full and h was dropped, or h is no longer valid.
func (s *NodeScheduler) scheduleNode(h NodeHandle) bool {
	n := s.graph.nodeAt(h)
	if n == nil {
		return false
	}

	if s.graph.suspended.Load() || !s.hasCapacity() {
		return s.deferNode(h)
	}

	work := s.createWorkWrapper(h, n)
	handle := s.group.CreateContract(work, n.execType)
	if !handle.Valid() {
		return s.deferNode(h)
	}

	n.mu.Lock()
	n.handle = handle
	n.mu.Unlock()

	result := handle.Schedule()
	if result != contract.ScheduleResultScheduled {
		n.mu.Lock()
		n.handle = contract.Handle{}
		n.mu.Unlock()
		return s.deferNode(h)
	}

	n.state.Store(uint32(Scheduled))
	s.statsMu.Lock()
	s.stats.NodesScheduled++
	s.statsMu.Unlock()

	if s.graph.callbacks.OnNodeScheduled != nil {
		s.graph.callbacks.OnNodeScheduled(h)
	}
	return true
}

// deferNode pushes h onto the deferred queue, or drops it if the queue is
// already at MaxDeferredNodes capacity.
func (s *NodeScheduler) deferNode(h NodeHandle) bool {
	s.deferredMu.Lock()
	if s.cfg.MaxDeferredNodes > 0 && len(s.deferredQueue) >= s.cfg.MaxDeferredNodes {
		s.deferredMu.Unlock()
		s.statsMu.Lock()
		s.stats.NodesDropped++
		s.statsMu.Unlock()
		s.logger.Warnf("workgraph: deferred queue full (%d), dropping node", s.cfg.MaxDeferredNodes)
		if s.graph.callbacks.OnNodeDropped != nil {
			s.graph.callbacks.OnNodeDropped(h)
		}
		return false
	}
	s.deferredQueue = append(s.deferredQueue, h)
	qlen := int64(len(s.deferredQueue))
	s.deferredMu.Unlock()

	if n := s.graph.nodeAt(h); n != nil {
		n.state.Store(uint32(Deferred))
	}

	s.statsMu.Lock()
	s.stats.NodesDeferred++
	if qlen > s.stats.PeakDeferred {
		s.stats.PeakDeferred = qlen
	}
	s.statsMu.Unlock()

	if s.graph.callbacks.OnNodeDeferred != nil {
		s.graph.callbacks.OnNodeDeferred(h)
	}
	return true
}

// ProcessDeferredNodes is called when group capacity becomes available. It
// pops up to maxToSchedule nodes (or, if maxToSchedule <= 0, up to the
// group's currently available capacity) from the deferred queue and
// attempts to schedule each; it stops at the first node that gets dropped.
func (s *NodeScheduler) ProcessDeferredNodes(maxToSchedule int) int {
	toProcess := maxToSchedule
	if toProcess <= 0 {
		toProcess = s.availableCapacity()
	}
	if toProcess <= 0 {
		return 0
	}

	s.deferredMu.Lock()
	n := toProcess
	if n > len(s.deferredQueue) {
		n = len(s.deferredQueue)
	}
	batch := append([]NodeHandle(nil), s.deferredQueue[:n]...)
	s.deferredQueue = s.deferredQueue[n:]
	s.deferredMu.Unlock()

	scheduled := 0
	for _, h := range batch {
		if s.scheduleNode(h) {
			scheduled++
		} else {
			break
		}
	}
	return scheduled
}

// ScheduleReadyNodes schedules each of nodes in order, stopping at the first
// one that gets dropped outright.
func (s *NodeScheduler) ScheduleReadyNodes(nodes []NodeHandle) int {
	scheduled := 0
	for _, h := range nodes {
		if s.scheduleNode(h) {
			scheduled++
		} else {
			break
		}
	}
	return scheduled
}

// deferNodeUntil pushes h onto the timed-deferred min-heap, to be retried by
// ProcessTimedDeferredNodes once wakeTime has passed.
func (s *NodeScheduler) deferNodeUntil(h NodeHandle, wakeTime time.Time) {
	s.timedMu.Lock()
	heap.Push(&s.timedQueue, timedNode{handle: h, wakeTime: wakeTime})
	s.timedMu.Unlock()
}

// ProcessTimedDeferredNodes pops every timed-deferred node whose wake time
// has passed (up to maxToSchedule, or unbounded if <= 0) and attempts to
// schedule each. If scheduling one is dropped outright, it and every node
// still pending from this batch are pushed back onto the heap with their
// original wake times preserved, matching the original implementation's
// retry-on-backpressure behavior.
func (s *NodeScheduler) ProcessTimedDeferredNodes(maxToSchedule int) int {
	now := time.Now()

	var ready []timedNode
	s.timedMu.Lock()
	for s.timedQueue.Len() > 0 && !s.timedQueue[0].wakeTime.After(now) {
		tn := heap.Pop(&s.timedQueue).(timedNode)
		ready = append(ready, tn)
		if maxToSchedule > 0 && len(ready) >= maxToSchedule {
			break
		}
	}
	s.timedMu.Unlock()

	scheduled := 0
	for i, tn := range ready {
		if s.scheduleNode(tn.handle) {
			scheduled++
			continue
		}
		s.timedMu.Lock()
		for j := i; j < len(ready); j++ {
			heap.Push(&s.timedQueue, ready[j])
		}
		s.timedMu.Unlock()
		break
	}
	return scheduled
}

// createWorkWrapper builds the contract closure for node n, dispatching on
// its result and driving the graph's completion/failure/yield bookkeeping.
func (s *NodeScheduler) createWorkWrapper(h NodeHandle, n *node) func() {
	return func() {
		if s.destroyed.Load() {
			return
		}
		if s.graph.callbacks.OnNodeExecuting != nil {
			s.graph.callbacks.OnNodeExecuting(h)
		}
		n.state.Store(uint32(Running))

		var failErr error
		var yielded, yieldedUntil bool
		var wakeTime time.Time

		func() {
			defer func() {
				if r := recover(); r != nil {
					failErr = fmt.Errorf("workgraph: node panic: %v", r)
				}
			}()
			if n.isYieldable {
				result := n.yieldableWork()
				switch result.Result {
				case Yield:
					yielded = true
				case YieldUntil:
					if !result.WakeTime.After(time.Now()) {
						yielded = true
					} else {
						yieldedUntil = true
						wakeTime = result.WakeTime
					}
				}
			} else {
				failErr = n.plainWork()
			}
		}()

		if s.destroyed.Load() {
			return
		}

		switch {
		case failErr != nil:
			s.logger.Warnf("workgraph: node %q failed: %v", n.name, failErr)
			if s.graph.callbacks.OnNodeFailed != nil {
				s.graph.callbacks.OnNodeFailed(h, failErr)
			}
			s.graph.onNodeTerminal(n, Failed)
		case yieldedUntil:
			n.state.Store(uint32(Yielded))
			if s.graph.callbacks.OnNodeYieldedUntil != nil {
				s.graph.callbacks.OnNodeYieldedUntil(h, wakeTime)
			}
			s.deferNodeUntil(h, wakeTime)
		case yielded:
			n.state.Store(uint32(Yielded))
			if s.graph.callbacks.OnNodeYielded != nil {
				s.graph.callbacks.OnNodeYielded(h)
			}
			s.rescheduleYielded(h, n)
		default:
			if s.graph.callbacks.OnNodeCompleted != nil {
				s.graph.callbacks.OnNodeCompleted(h)
			}
			s.graph.onNodeTerminal(n, Completed)
		}
	}
}

// rescheduleYielded re-queues a node that yielded immediately (as opposed to
// YieldUntil, which goes through the timed queue instead). The contract
// executing this closure has already freed its slot (contract.Group frees
// before running), so calling back into scheduleNode here is safe even if it
// reuses the very slot this closure is running from.
func (s *NodeScheduler) rescheduleYielded(h NodeHandle, n *node) {
	n.mu.Lock()
	n.rescheduleCount++
	count := n.rescheduleCount
	max := n.maxReschedules
	n.mu.Unlock()

	if max > 0 && count > max {
		if s.graph.callbacks.OnNodeFailed != nil {
			s.graph.callbacks.OnNodeFailed(h, ErrMaxReschedulesExceeded)
		}
		s.graph.onNodeTerminal(n, Failed)
		return
	}
	s.scheduleNode(h)
}

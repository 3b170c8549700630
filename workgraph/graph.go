package workgraph

import (
	"sync"
	"sync/atomic"

	"github.com/Geenz/entropycore/contract"
)

// Graph is a directed acyclic graph of work nodes scheduled onto a single
// contract.Group, grounded on entropy_work_graph.h. The zero value is not
// usable; build one with NewGraph.
type Graph struct {
	group     *contract.Group
	scheduler *NodeScheduler
	callbacks Callbacks

	mu    sync.RWMutex
	nodes []*node

	running   atomic.Bool
	suspended atomic.Bool

	total    atomic.Int64
	terminal atomic.Int64

	waitMu   sync.Mutex
	waitCond *sync.Cond
}

// NewGraph builds a Graph that schedules its nodes onto group. callbacks may
// be the zero value if no hooks are needed.
func NewGraph(group *contract.Group, cfg SchedulerConfig, callbacks Callbacks) *Graph {
	g := &Graph{group: group, callbacks: callbacks}
	g.waitCond = sync.NewCond(&g.waitMu)
	g.scheduler = newNodeScheduler(group, g, cfg)

	// Capacity freeing up is exactly when deferred nodes deserve another try.
	group.AddOnCapacityAvailable(func() {
		g.scheduler.ProcessDeferredNodes(0)
	})
	return g
}

// Scheduler returns the graph's NodeScheduler, mainly for stats and for a
// timerservice.Service to drive ProcessTimedDeferredNodes itself.
func (g *Graph) Scheduler() *NodeScheduler { return g.scheduler }

func (g *Graph) nodeAt(h NodeHandle) *node {
	if h.owner != g {
		return nil
	}
	g.mu.RLock()
	defer g.mu.RUnlock()
	if int(h.index) >= len(g.nodes) {
		return nil
	}
	n := g.nodes[h.index]
	if n.generation != h.generation {
		return nil
	}
	return n
}

func (g *Graph) handleFor(n *node) NodeHandle {
	return NodeHandle{owner: g, index: n.index, generation: n.generation}
}

// AddNode adds a plain (non-yieldable) work node. name is optional,
// used only for diagnostics.
func (g *Graph) AddNode(work func() error, name string, execType contract.ExecutionType) NodeHandle {
	return g.addNode(name, execType, false, work, nil, 0)
}

// AddYieldableNode adds a node whose closure can ask to be rescheduled
// instead of running to completion in one shot. maxReschedules caps how many
// times it may yield before being failed with ErrMaxReschedulesExceeded; 0
// means unlimited.
func (g *Graph) AddYieldableNode(work YieldableWorkFunc, name string, execType contract.ExecutionType, maxReschedules int) NodeHandle {
	return g.addNode(name, execType, true, nil, work, maxReschedules)
}

func (g *Graph) addNode(name string, execType contract.ExecutionType, isYieldable bool, plainWork func() error, yieldableWork YieldableWorkFunc, maxReschedules int) NodeHandle {
	g.mu.Lock()
	defer g.mu.Unlock()

	n := &node{
		index:          uint32(len(g.nodes)),
		generation:     1,
		name:           name,
		execType:       execType,
		isYieldable:    isYieldable,
		plainWork:      plainWork,
		yieldableWork:  yieldableWork,
		maxReschedules: maxReschedules,
	}
	n.state.Store(uint32(Pending))
	g.nodes = append(g.nodes, n)
	g.total.Add(1)
	return g.handleFor(n)
}

// AddDependency adds the edge from -> to ("to depends on from"). Fails with
// ErrCycleDetected if the edge would create a cycle, detected by a DFS over
// existing dependent edges before the new one is installed.
func (g *Graph) AddDependency(from, to NodeHandle) error {
	fromNode := g.nodeAt(from)
	toNode := g.nodeAt(to)
	if fromNode == nil || toNode == nil {
		return ErrInvalidNode
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if g.pathExistsLocked(to.index, from.index) {
		return ErrCycleDetected
	}

	fromNode.mu.Lock()
	fromNode.dependents = append(fromNode.dependents, to.index)
	fromNode.mu.Unlock()

	toNode.mu.Lock()
	toNode.pendingDeps++
	toNode.mu.Unlock()
	return nil
}

// pathExistsLocked reports whether a path exists from start to target
// following dependent edges. Callers must hold g.mu.
func (g *Graph) pathExistsLocked(start, target uint32) bool {
	if start == target {
		return true
	}
	visited := make(map[uint32]bool)
	stack := []uint32{start}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if visited[cur] {
			continue
		}
		visited[cur] = true
		if cur == target {
			return true
		}
		n := g.nodes[cur]
		n.mu.Lock()
		deps := append([]uint32(nil), n.dependents...)
		n.mu.Unlock()
		stack = append(stack, deps...)
	}
	return false
}

// Execute transitions the graph into the running state and schedules every
// node whose pending-dependency count is already zero.
func (g *Graph) Execute() error {
	if !g.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	g.suspended.Store(false)

	g.mu.RLock()
	ready := make([]NodeHandle, 0, len(g.nodes))
	for _, n := range g.nodes {
		n.mu.Lock()
		pd := n.pendingDeps
		n.mu.Unlock()
		if pd == 0 && NodeState(n.state.Load()) == Pending {
			ready = append(ready, g.handleFor(n))
		}
	}
	g.mu.RUnlock()

	g.scheduler.ScheduleReadyNodes(ready)
	return nil
}

// Suspend pauses new scheduling: nodes that become ready are pushed to the
// deferred queue instead of being given a contract, but in-flight work is
// left untouched. Reversible via Resume.
func (g *Graph) Suspend() { g.suspended.Store(true) }

// Resume clears Suspend and immediately attempts to schedule whatever the
// deferred queue is holding.
func (g *Graph) Resume() {
	g.suspended.Store(false)
	g.scheduler.ProcessDeferredNodes(0)
}

// Suspended reports whether Suspend has been called without a subsequent Resume.
func (g *Graph) Suspended() bool { return g.suspended.Load() }

// CheckTimedDeferrals pumps the timed-deferred queue once, scheduling every
// node whose wake time has passed. Returns the number of nodes handled. This
// lets a graph be driven without a timerservice.Service, e.g. in tests.
func (g *Graph) CheckTimedDeferrals() int {
	return g.scheduler.ProcessTimedDeferredNodes(0)
}

// Wait blocks until every node added to the graph has reached a terminal
// state (Completed, Failed, or Cancelled).
func (g *Graph) Wait() {
	g.waitMu.Lock()
	defer g.waitMu.Unlock()
	for g.terminal.Load() < g.total.Load() {
		g.waitCond.Wait()
	}
}

func (g *Graph) broadcastWait() {
	g.waitMu.Lock()
	g.waitCond.Broadcast()
	g.waitMu.Unlock()
}

// onNodeTerminal records n's terminal state and fans out the corresponding
// dependency-graph effect: Completed unblocks dependents whose pending-dep
// count reaches zero, Failed/Cancelled cascades Cancelled to every
// transitive dependent.
func (g *Graph) onNodeTerminal(n *node, state NodeState) {
	n.state.Store(uint32(state))
	g.terminal.Add(1)
	defer g.broadcastWait()

	switch state {
	case Completed:
		g.advanceDependents(n)
	case Failed, Cancelled:
		g.cancelDependents(n)
	}
}

func (g *Graph) advanceDependents(n *node) {
	n.mu.Lock()
	deps := append([]uint32(nil), n.dependents...)
	n.mu.Unlock()

	g.mu.RLock()
	var ready []NodeHandle
	for _, idx := range deps {
		d := g.nodes[idx]
		d.mu.Lock()
		d.pendingDeps--
		isReady := d.pendingDeps == 0
		d.mu.Unlock()
		if isReady && NodeState(d.state.Load()) == Pending {
			ready = append(ready, g.handleFor(d))
		}
	}
	g.mu.RUnlock()

	// scheduleNode is called with g.mu released: it re-acquires the lock
	// itself via nodeAt, and may (for a yieldable node that immediately
	// re-yields) recurse back into scheduling from within this same call.
	for _, h := range ready {
		g.scheduler.scheduleNode(h)
	}
}

// cancelDependents cascades Cancelled to every transitive dependent of n
// that has not already reached a terminal state.
func (g *Graph) cancelDependents(n *node) {
	n.mu.Lock()
	stack := append([]uint32(nil), n.dependents...)
	n.mu.Unlock()

	// Node pointers are stable once appended (nodes are never removed), so a
	// single snapshot of the slice lets the traversal below run without
	// holding g.mu across callback invocations.
	g.mu.RLock()
	nodes := g.nodes
	g.mu.RUnlock()

	visited := make(map[uint32]bool)
	for len(stack) > 0 {
		idx := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if visited[idx] {
			continue
		}
		visited[idx] = true

		d := nodes[idx]
		if NodeState(d.state.Load()).terminal() {
			continue
		}
		d.state.Store(uint32(Cancelled))
		g.terminal.Add(1)
		if g.callbacks.OnNodeCancelled != nil {
			g.callbacks.OnNodeCancelled(g.handleFor(d))
		}

		d.mu.Lock()
		deps := append([]uint32(nil), d.dependents...)
		d.mu.Unlock()
		stack = append(stack, deps...)
	}
}

package workgraph

import (
	"sync"
	"sync/atomic"

	"github.com/Geenz/entropycore/contract"
)

// node is one element of a Graph's node slice. Structural fields
// (dependents, pendingDeps, the stored handle) are protected by mu; state is
// a separate atomic so a fast Valid()/State() check never blocks on the
// graph doing dependency bookkeeping elsewhere.
type node struct {
	index      uint32
	generation uint32
	name       string
	execType   contract.ExecutionType

	isYieldable     bool
	plainWork       func() error
	yieldableWork   YieldableWorkFunc
	maxReschedules  int
	rescheduleCount int

	mu          sync.Mutex
	dependents  []uint32
	pendingDeps int32
	handle      contract.Handle

	state atomic.Uint32
}

// NodeHandle is a stamped (owner, index, generation) reference to a node in
// a Graph, with the same discipline as contract.Handle: a copy is a cheap
// value, and it silently becomes invalid once its generation is stale.
type NodeHandle struct {
	owner      *Graph
	index      uint32
	generation uint32
}

// Valid reports whether the handle still refers to a live node.
func (h NodeHandle) Valid() bool {
	return h.owner != nil && h.owner.nodeAt(h) != nil
}

// Index returns the handle's slot index, stable for the node's lifetime even
// across generations. Used by callers (e.g. timerservice) that need a cheap
// map key for per-node side data without holding onto the handle itself.
func (h NodeHandle) Index() uint32 { return h.index }

// Name returns the node's diagnostic name, possibly empty, or "" if the
// handle is no longer valid.
func (h NodeHandle) Name() string {
	n := h.ownerNode()
	if n == nil {
		return ""
	}
	return n.name
}

// State returns the node's current lifecycle state, or Cancelled's zero
// sibling Pending if the handle is invalid (callers should check Valid first
// for anything that matters).
func (h NodeHandle) State() NodeState {
	n := h.ownerNode()
	if n == nil {
		return Pending
	}
	return NodeState(n.state.Load())
}

func (h NodeHandle) ownerNode() *node {
	if h.owner == nil {
		return nil
	}
	return h.owner.nodeAt(h)
}

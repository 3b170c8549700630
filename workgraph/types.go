package workgraph

import (
	"time"

	"github.com/Geenz/entropycore/internal/entlog"
)

// WorkResult is what a yieldable node's closure reports back to the
// scheduler about its own progress.
type WorkResult int

const (
	// Complete means the node is done; its dependents may now become ready.
	Complete WorkResult = iota
	// Yield means the node wants to run again as soon as capacity allows.
	Yield
	// YieldUntil means the node wants to run again no earlier than WakeTime.
	YieldUntil
)

// WorkResultContext is the return value of a YieldableWorkFunc.
type WorkResultContext struct {
	Result WorkResult
	// WakeTime is only consulted when Result == YieldUntil.
	WakeTime time.Time
}

// YieldableWorkFunc is a node body that can ask to be rescheduled instead of
// running to completion in one shot.
type YieldableWorkFunc func() WorkResultContext

// NodeState is a node's lifecycle state, mirroring the states a work wrapper
// can drive it through (entropy_work_graph.h's node lifecycle).
type NodeState uint32

const (
	// Pending means the node is waiting on one or more dependencies.
	Pending NodeState = iota
	// Deferred means the node is ready but the scheduler could not create or
	// schedule a contract for it yet (capacity, suspension, or group refusal).
	Deferred
	// Scheduled means a contract has been created and scheduled for the node.
	Scheduled
	// Running means the node's contract is currently executing.
	Running
	// Yielded means the node's closure returned Yield or YieldUntil and is
	// awaiting rescheduling.
	Yielded
	// Completed is terminal: the node ran to completion.
	Completed
	// Failed is terminal: the node's closure returned or panicked with an error.
	Failed
	// Cancelled is terminal: an ancestor failed, cascading cancellation down.
	Cancelled
)

func (s NodeState) String() string {
	switch s {
	case Pending:
		return "Pending"
	case Deferred:
		return "Deferred"
	case Scheduled:
		return "Scheduled"
	case Running:
		return "Running"
	case Yielded:
		return "Yielded"
	case Completed:
		return "Completed"
	case Failed:
		return "Failed"
	case Cancelled:
		return "Cancelled"
	default:
		return "Unknown"
	}
}

func (s NodeState) terminal() bool {
	return s == Completed || s == Failed || s == Cancelled
}

// Callbacks are optional hooks fired as nodes move through their lifecycle.
// Any of them may be nil. Hooks are called synchronously from whichever
// goroutine drove the transition (a worker executing a contract, or the
// goroutine calling Execute, CheckTimedDeferrals or the NodeScheduler's
// methods). No hook is invoked while the graph's own lock is held.
type Callbacks struct {
	OnNodeScheduled    func(NodeHandle)
	OnNodeDeferred     func(NodeHandle)
	OnNodeDropped      func(NodeHandle)
	OnNodeExecuting    func(NodeHandle)
	OnNodeYielded      func(NodeHandle)
	OnNodeYieldedUntil func(NodeHandle, time.Time)
	OnNodeCompleted    func(NodeHandle)
	OnNodeFailed       func(NodeHandle, error)
	OnNodeCancelled    func(NodeHandle)
}

// Stats is a point-in-time snapshot of the node scheduler's counters.
type Stats struct {
	NodesScheduled int64
	NodesDeferred  int64
	NodesDropped   int64
	PeakDeferred   int64
}

// SchedulerConfig configures a NodeScheduler. The zero value is valid:
// MaxDeferredNodes of 0 means unlimited, Logger defaults to entlog.Default().
type SchedulerConfig struct {
	// MaxDeferredNodes caps the deferred queue; 0 means unlimited.
	MaxDeferredNodes int
	// Logger receives drop and node-failure events.
	Logger entlog.Logger
}

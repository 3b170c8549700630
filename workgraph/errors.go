package workgraph

import "errors"

var (
	// ErrInvalidNode is returned when a NodeHandle no longer refers to a live node.
	ErrInvalidNode = errors.New("workgraph: invalid node handle")
	// ErrCycleDetected is returned by AddDependency when the edge would create a cycle.
	ErrCycleDetected = errors.New("workgraph: dependency would create a cycle")
	// ErrAlreadyRunning is returned by Execute if the graph is already running.
	ErrAlreadyRunning = errors.New("workgraph: graph already running")
	// ErrMaxReschedulesExceeded is recorded as a node's failure reason when a
	// yieldable node yields more times than its configured budget allows.
	ErrMaxReschedulesExceeded = errors.New("workgraph: yieldable node exceeded max reschedules")
)

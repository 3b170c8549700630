package workgraph

import "time"

// timedNode pairs a deferred node with the wake time it was deferred until.
type timedNode struct {
	handle   NodeHandle
	wakeTime time.Time
}

// timedHeap is a container/heap min-heap ordered by wakeTime, backing the
// timed-deferred reschedule queue a yieldable node falls into when it asks
// to be woken at a later time.
type timedHeap []timedNode

func (h timedHeap) Len() int            { return len(h) }
func (h timedHeap) Less(i, j int) bool  { return h[i].wakeTime.Before(h[j].wakeTime) }
func (h timedHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *timedHeap) Push(x interface{}) { *h = append(*h, x.(timedNode)) }
func (h *timedHeap) Pop() interface{} {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}

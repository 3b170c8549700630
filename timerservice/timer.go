package timerservice

import (
	"sync/atomic"
	"time"

	"github.com/Geenz/entropycore/workgraph"
)

// WorkFunction is the user body a Timer runs when it fires.
type WorkFunction func()

// Timer is a handle to a scheduled one-shot or repeating task. The zero
// value is an already-invalidated no-op timer; active timers come from
// Service.ScheduleTimer.
type Timer struct {
	service   *Service
	node      workgraph.NodeHandle
	interval  time.Duration
	repeating bool
	valid     atomic.Bool
}

func newTimer(service *Service, node workgraph.NodeHandle, interval time.Duration, repeating bool) *Timer {
	t := &Timer{service: service, node: node, interval: interval, repeating: repeating}
	t.valid.Store(true)
	return t
}

// Invalidate cancels the timer, preventing any future execution. Safe to
// call multiple times and from any goroutine; only the first call has an
// effect.
func (t *Timer) Invalidate() {
	if t.valid.CompareAndSwap(true, false) {
		t.service.cancelTimer(t.node)
	}
}

// Valid reports whether Invalidate has not yet been called on the timer. A
// one-shot timer that has fired, or a timer whose Service was stopped, still
// reports true.
func (t *Timer) Valid() bool {
	return t.valid.Load()
}

// Interval returns the interval the timer was scheduled with, for one-shot
// and repeating timers alike.
func (t *Timer) Interval() time.Duration { return t.interval }

// Repeating reports whether the timer re-arms itself after firing.
func (t *Timer) Repeating() bool { return t.repeating }

// timerData is the per-timer state referenced by the node's yieldable
// closure. fireTime/rescheduling all happen on whatever goroutine is
// currently executing the node's contract, which contract.Group guarantees
// is never more than one at a time.
type timerData struct {
	fireTime  time.Time
	interval  time.Duration
	work      WorkFunction
	repeating bool
	cancelled atomic.Bool
}

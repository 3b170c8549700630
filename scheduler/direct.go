package scheduler

import (
	"sync/atomic"

	"github.com/Geenz/entropycore/contract"
)

// Direct is a single-group optimization: it skips the bookkeeping every
// multi-group strategy pays for, always returning the one group it was
// built around (or none, once that group has been removed). Intended for a
// workservice.Service dedicated to exactly one contract.Group.
type Direct struct {
	group atomic.Pointer[contract.Group]
}

// NewDirect pins a Direct strategy to g. g may be nil, in which case the
// strategy starts with no group until NotifyGroupAdded supplies one.
func NewDirect(g *contract.Group) *Direct {
	d := &Direct{}
	if g != nil {
		d.group.Store(g)
	}
	return d
}

func (d *Direct) NotifyGroupAdded(g *contract.Group) { d.group.Store(g) }

func (d *Direct) NotifyGroupRemoved(g *contract.Group) {
	d.group.CompareAndSwap(g, nil)
}

func (d *Direct) NotifyWorkAvailable(*contract.Group) {}
func (d *Direct) NotifyEmpty(*contract.Group)         {}

func (d *Direct) SelectNextGroup() (*contract.Group, bool) {
	g := d.group.Load()
	return g, g != nil
}

// SpinningDirect is Direct's counterpart for a worker loop that never parks:
// it is meant to be paired with a dedicated busy-spinning worker rather than
// one that waits on the service's condvar between misses, trading a core's
// worth of CPU for the lowest possible latency from schedule to execution.
// Selection itself is identical to Direct; the spin/park choice belongs to
// the worker loop consuming this strategy, not to the strategy itself.
type SpinningDirect struct {
	Direct
}

// NewSpinningDirect pins a SpinningDirect strategy to g, with the same
// semantics as NewDirect.
func NewSpinningDirect(g *contract.Group) *SpinningDirect {
	return &SpinningDirect{Direct: *NewDirect(g)}
}

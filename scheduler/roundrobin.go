package scheduler

import (
	"sync"
	"sync/atomic"

	"github.com/Geenz/entropycore/contract"
)

// RoundRobin cycles through registered groups with an atomic index. Added
// and removed groups take effect on the next selection.
type RoundRobin struct {
	mu     sync.RWMutex
	groups []*contract.Group
	cursor atomic.Uint64
}

// NewRoundRobin builds an empty RoundRobin strategy.
func NewRoundRobin() *RoundRobin {
	return &RoundRobin{}
}

func (r *RoundRobin) NotifyGroupAdded(g *contract.Group) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.groups {
		if existing == g {
			return
		}
	}
	r.groups = append(r.groups, g)
}

func (r *RoundRobin) NotifyGroupRemoved(g *contract.Group) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, existing := range r.groups {
		if existing == g {
			r.groups = append(r.groups[:i], r.groups[i+1:]...)
			return
		}
	}
}

func (r *RoundRobin) NotifyWorkAvailable(*contract.Group) {}
func (r *RoundRobin) NotifyEmpty(*contract.Group)         {}

func (r *RoundRobin) SelectNextGroup() (*contract.Group, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n := len(r.groups)
	if n == 0 {
		return nil, false
	}
	i := r.cursor.Add(1) - 1
	return r.groups[int(i%uint64(n))], true
}

package scheduler

import (
	"math/rand/v2"
	"sync"

	"github.com/Geenz/entropycore/contract"
)

// Random picks uniformly among groups currently reporting at least one
// scheduled contract (either execution type). Falls back to a uniform pick
// across all registered groups if none report scheduled work, so a group
// whose only ready work is about to be scheduled still gets a turn.
type Random struct {
	mu     sync.RWMutex
	groups []*contract.Group
}

// NewRandom builds an empty Random strategy.
func NewRandom() *Random {
	return &Random{}
}

func (r *Random) NotifyGroupAdded(g *contract.Group) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.groups {
		if existing == g {
			return
		}
	}
	r.groups = append(r.groups, g)
}

func (r *Random) NotifyGroupRemoved(g *contract.Group) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, existing := range r.groups {
		if existing == g {
			r.groups = append(r.groups[:i], r.groups[i+1:]...)
			return
		}
	}
}

func (r *Random) NotifyWorkAvailable(*contract.Group) {}
func (r *Random) NotifyEmpty(*contract.Group)         {}

func (r *Random) SelectNextGroup() (*contract.Group, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if len(r.groups) == 0 {
		return nil, false
	}

	var candidates []*contract.Group
	for _, g := range r.groups {
		st := g.Stats()
		if st.Scheduled > 0 || st.MainScheduled > 0 {
			candidates = append(candidates, g)
		}
	}
	if len(candidates) == 0 {
		candidates = r.groups
	}
	return candidates[rand.IntN(len(candidates))], true
}

package scheduler

import (
	"sync"

	"github.com/Geenz/entropycore/contract"
)

const (
	adaptiveBaseWeight = 10
	adaptiveMinWeight  = 1
	adaptiveMaxWeight  = 100
)

type adaptiveEntry struct {
	group         *contract.Group
	weight        int64 // effective weight, adjusted by hit/miss feedback
	currentWeight int64 // smooth weighted round-robin accumulator
}

// AdaptiveRanking is the default scheduler strategy. It runs a
// smooth weighted round-robin over registered groups: each group carries a
// weight that rises when work becomes available on it and falls when a
// worker selects it and finds nothing ready, so groups that repeatedly come
// up empty get visited less often without ever starving completely.
type AdaptiveRanking struct {
	mu      sync.Mutex
	entries []*adaptiveEntry
}

// NewAdaptiveRanking builds an empty AdaptiveRanking strategy.
func NewAdaptiveRanking() *AdaptiveRanking {
	return &AdaptiveRanking{}
}

func (a *AdaptiveRanking) NotifyGroupAdded(g *contract.Group) {
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, e := range a.entries {
		if e.group == g {
			return
		}
	}
	a.entries = append(a.entries, &adaptiveEntry{group: g, weight: adaptiveBaseWeight})
}

func (a *AdaptiveRanking) NotifyGroupRemoved(g *contract.Group) {
	a.mu.Lock()
	defer a.mu.Unlock()
	for i, e := range a.entries {
		if e.group == g {
			a.entries = append(a.entries[:i], a.entries[i+1:]...)
			return
		}
	}
}

func (a *AdaptiveRanking) NotifyWorkAvailable(g *contract.Group) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if e := a.find(g); e != nil && e.weight < adaptiveMaxWeight {
		e.weight++
	}
}

func (a *AdaptiveRanking) NotifyEmpty(g *contract.Group) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if e := a.find(g); e != nil && e.weight > adaptiveMinWeight {
		e.weight--
	}
}

func (a *AdaptiveRanking) find(g *contract.Group) *adaptiveEntry {
	for _, e := range a.entries {
		if e.group == g {
			return e
		}
	}
	return nil
}

// SelectNextGroup implements Nginx-style smooth weighted round-robin: every
// entry's accumulator advances by its own weight, the entry with the
// largest accumulator is chosen and reduced by the total weight, so
// selection frequency tracks relative weight while still visiting every
// group periodically.
func (a *AdaptiveRanking) SelectNextGroup() (*contract.Group, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if len(a.entries) == 0 {
		return nil, false
	}

	var total int64
	var best *adaptiveEntry
	for _, e := range a.entries {
		e.currentWeight += e.weight
		total += e.weight
		if best == nil || e.currentWeight > best.currentWeight {
			best = e
		}
	}
	best.currentWeight -= total
	return best.group, true
}

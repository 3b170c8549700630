package contract

// Close is the destructor-equivalent teardown WorkContractGroup.cpp performs:
// it marks the group stopping, unschedules everything still Scheduled,
// releases everything still Allocated, waits for both executing and
// selecting counters (any-thread and main-thread) to reach zero, and then
// detaches the concurrency provider, notifying it of destruction. A group
// must never be torn down while a goroutine is inside a select call, which
// is exactly what waiting on the selecting counters guarantees.
func (g *Group) Close() {
	g.Stop()

	for i := range g.slots {
		s := &g.slots[i]
		switch State(s.state.Load()) {
		case Scheduled:
			execType := ExecutionType(s.execType.Load())
			if atomicCAS(&s.state, uint32(Scheduled), uint32(Allocated)) {
				g.readyTree(execType).Clear(uint32(i))
				if execType == MainThread {
					g.mainScheduled.Add(-1)
				} else {
					g.scheduled.Add(-1)
				}
			}
		}
	}
	g.broadcastWait()

	for i := range g.slots {
		s := &g.slots[i]
		if State(s.state.Load()) == Allocated {
			h := Handle{owner: g, index: uint32(i), generation: s.generation.Load()}
			g.release(h)
		}
	}

	g.waitMu.Lock()
	for !(g.executing.Load() == 0 && g.selecting.Load() == 0 &&
		g.mainExecuting.Load() == 0 && g.mainSelecting.Load() == 0) {
		g.waitCond.Wait()
	}
	g.waitMu.Unlock()

	g.providerMu.Lock()
	p := g.provider
	g.provider = nil
	g.providerMu.Unlock()
	if p != nil {
		p.NotifyGroupDestroyed(g)
	}
}

package contract

// Handle is a stamped (owner, index, generation) reference to a slot. It is
// a cheap value type: copying it copies the stamp only, never the closure or
// slot ownership. There is no destructor-based cleanup -- a Handle going out
// of scope does nothing; Release must be called explicitly if the holder
// wants to cancel an unscheduled or still-scheduled contract.
type Handle struct {
	owner      *Group
	index      uint32
	generation uint32
}

// Valid reports whether the handle still refers to a live slot: the owning
// group matches, the index is in range, and the stamped generation matches
// the slot's current generation.
func (h Handle) Valid() bool {
	return h.owner != nil && h.owner.validate(h)
}

// IsScheduled reports whether the handle's slot is currently Scheduled.
func (h Handle) IsScheduled() bool {
	if h.owner == nil || !h.owner.validate(h) {
		return false
	}
	return State(h.owner.slots[h.index].state.Load()) == Scheduled
}

// IsExecuting reports whether the handle's slot is currently Executing. It
// checks the slot's state only, not the generation. A slot is Executing only
// between a selector's successful CAS and the start of ExecuteContract, which
// bumps the generation and stores Free before running the closure; from then
// on Valid() is false, and IsExecuting reports true again only if the slot
// has been reused by another contract that is in that same window.
func (h Handle) IsExecuting() bool {
	if h.owner == nil || h.index >= h.owner.capacity {
		return false
	}
	return State(h.owner.slots[h.index].state.Load()) == Executing
}

// Schedule transitions the handle's slot from Allocated to Scheduled.
func (h Handle) Schedule() ScheduleResult {
	if h.owner == nil {
		return ScheduleResultInvalid
	}
	return h.owner.schedule(h)
}

// Unschedule transitions the handle's slot from Scheduled back to Allocated,
// canceling a not-yet-executing contract.
func (h Handle) Unschedule() UnscheduleResult {
	if h.owner == nil {
		return UnscheduleResultInvalid
	}
	return h.owner.unschedule(h)
}

// Release cancels and frees the handle's slot if it is Allocated or
// Scheduled. A no-op if the slot is Executing (the execution path frees it)
// or already Free.
func (h Handle) Release() {
	if h.owner == nil {
		return
	}
	h.owner.release(h)
}

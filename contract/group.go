package contract

import (
	"sync"
	"sync/atomic"

	"github.com/Geenz/entropycore/internal/entlog"
	"github.com/Geenz/entropycore/signaltree"
)

// ConcurrencyProvider receives notifications from a Group about work
// becoming available and about the group's own destruction. workservice.Service
// implements this to wake parked workers and to drop groups from its
// scheduler strategy.
type ConcurrencyProvider interface {
	NotifyWorkAvailable(g *Group)
	NotifyGroupDestroyed(g *Group)
}

// Config configures a Group. The zero value is valid; Logger defaults to
// entlog.Default() if nil.
type Config struct {
	Name   string
	Logger entlog.Logger
}

// Group is a fixed-capacity, lock-free pool of schedulable work slots,
// grounded on WorkContractGroup.cpp/.h.
type Group struct {
	name     string
	capacity uint32
	slots    []slot

	anyReady  *signaltree.Tree
	mainReady *signaltree.Tree

	freeHead freeListHead

	active        atomic.Int64
	scheduled     atomic.Int64
	executing     atomic.Int64
	selecting     atomic.Int64
	mainScheduled atomic.Int64
	mainExecuting atomic.Int64
	mainSelecting atomic.Int64

	stopping atomic.Bool

	waitMu   sync.Mutex
	waitCond *sync.Cond

	providerMu sync.RWMutex
	provider   ConcurrencyProvider

	capMu        sync.Mutex
	capCallbacks map[int]func()
	capNextID    int

	logger entlog.Logger
}

// New builds a Group with the given fixed capacity. Panics if capacity is 0.
func New(capacity uint32, cfg *Config) *Group {
	if capacity == 0 {
		panic(ErrCapacityZero)
	}
	g := &Group{
		capacity:     capacity,
		slots:        make([]slot, capacity),
		anyReady:     signaltree.New(capacity),
		mainReady:    signaltree.New(capacity),
		capCallbacks: make(map[int]func()),
		logger:       entlog.Default(),
	}
	if cfg != nil {
		g.name = cfg.Name
		g.logger = entlog.OrDefault(cfg.Logger)
	}
	g.waitCond = sync.NewCond(&g.waitMu)

	// Build the initial free list: slot i links to slot i+1, tail is invalid.
	for i := range g.slots {
		g.slots[i].init()
		if uint32(i) == capacity-1 {
			g.slots[i].nextFree.Store(invalidIndex)
		} else {
			g.slots[i].nextFree.Store(uint32(i) + 1)
		}
	}
	g.freeHead.Store(packHead(0, 0))
	return g
}

// Name returns the group's diagnostic name, possibly empty.
func (g *Group) Name() string { return g.name }

// Capacity returns the fixed number of slots in the group.
func (g *Group) Capacity() uint32 { return g.capacity }

// SetConcurrencyProvider attaches (or detaches, with nil) the provider
// notified of work-available and group-destroyed events.
func (g *Group) SetConcurrencyProvider(p ConcurrencyProvider) {
	g.providerMu.Lock()
	g.provider = p
	g.providerMu.Unlock()
}

func (g *Group) notifyWorkAvailable() {
	g.providerMu.RLock()
	p := g.provider
	g.providerMu.RUnlock()
	if p != nil {
		p.NotifyWorkAvailable(g)
	}
}

// popFree pops a slot index off the free-list head with an ABA-tagged CAS
// loop. Returns (invalidIndex, false) if the pool is exhausted.
func (g *Group) popFree() (uint32, bool) {
	for {
		head := g.freeHead.Load()
		idx, tag := unpackHead(head)
		if idx == invalidIndex {
			return invalidIndex, false
		}
		next := g.slots[idx].nextFree.Load()
		newHead := packHead(next, tag+1)
		if g.freeHead.CompareAndSwap(head, newHead) {
			return idx, true
		}
	}
}

// pushFree pushes slot index back onto the free-list head.
func (g *Group) pushFree(index uint32) {
	for {
		head := g.freeHead.Load()
		oldIdx, tag := unpackHead(head)
		g.slots[index].nextFree.Store(oldIdx)
		newHead := packHead(index, tag+1)
		if g.freeHead.CompareAndSwap(head, newHead) {
			return
		}
	}
}

// CreateContract installs work into a free slot and returns a stamped
// Handle. Returns an invalid Handle if the pool is full. Panics if work is nil.
func (g *Group) CreateContract(work func(), execType ExecutionType) Handle {
	if work == nil {
		panic(ErrNilWork)
	}
	index, ok := g.popFree()
	if !ok {
		return Handle{}
	}
	s := &g.slots[index]
	generation := s.generation.Load()

	fn := work
	s.work.Store(&fn)
	s.execType.Store(uint32(execType))

	// Increment active before publishing Allocated, so any acquire-observer
	// of the new state also observes the bumped active count.
	g.active.Add(1)
	s.state.Store(uint32(Allocated))

	return Handle{owner: g, index: index, generation: generation}
}

func (g *Group) readyTree(execType ExecutionType) *signaltree.Tree {
	if execType == MainThread {
		return g.mainReady
	}
	return g.anyReady
}

func (g *Group) validate(h Handle) bool {
	if h.owner != g {
		return false
	}
	if h.index >= g.capacity {
		return false
	}
	return g.slots[h.index].generation.Load() == h.generation
}

// schedule is Handle.Schedule's implementation.
func (g *Group) schedule(h Handle) ScheduleResult {
	if !g.validate(h) {
		return ScheduleResultInvalid
	}
	s := &g.slots[h.index]
	if !atomicCAS(&s.state, uint32(Allocated), uint32(Scheduled)) {
		switch State(s.state.Load()) {
		case Scheduled:
			return ScheduleResultAlreadyScheduled
		case Executing:
			return ScheduleResultExecuting
		default:
			return ScheduleResultInvalid
		}
	}

	execType := ExecutionType(s.execType.Load())
	g.readyTree(execType).Set(h.index)
	if execType == MainThread {
		g.mainScheduled.Add(1)
	} else {
		g.scheduled.Add(1)
	}

	g.notifyWorkAvailable()
	return ScheduleResultScheduled
}

// unschedule is Handle.Unschedule's implementation. Validation is relaxed
// relative to Group.validate: a generation mismatch caused by execution
// having already started is reported as Executing rather than Invalid,
// matching WorkContractGroup.cpp's unschedule behavior.
func (g *Group) unschedule(h Handle) UnscheduleResult {
	if h.owner != g || h.index >= g.capacity {
		return UnscheduleResultInvalid
	}
	s := &g.slots[h.index]

	if s.generation.Load() != h.generation {
		switch State(s.state.Load()) {
		case Executing:
			return UnscheduleResultExecuting
		case Free:
			if g.executing.Load()+g.mainExecuting.Load() > 0 {
				return UnscheduleResultExecuting
			}
		}
		return UnscheduleResultInvalid
	}

	switch State(s.state.Load()) {
	case Scheduled:
		if !atomicCAS(&s.state, uint32(Scheduled), uint32(Allocated)) {
			return UnscheduleResultExecuting
		}
		execType := ExecutionType(s.execType.Load())
		g.readyTree(execType).Clear(h.index)
		var remaining int64
		if execType == MainThread {
			remaining = g.mainScheduled.Add(-1)
		} else {
			remaining = g.scheduled.Add(-1)
		}
		if remaining == 0 {
			g.broadcastWait()
		}
		return UnscheduleResultNotScheduled
	case Executing:
		return UnscheduleResultExecuting
	case Allocated:
		return UnscheduleResultNotScheduled
	default:
		return UnscheduleResultInvalid
	}
}

// release is Handle.Release's implementation.
func (g *Group) release(h Handle) {
	if !g.validate(h) {
		return
	}
	s := &g.slots[h.index]

	for {
		cur := State(s.state.Load())
		switch cur {
		case Allocated:
			if atomicCAS(&s.state, uint32(Allocated), uint32(Free)) {
				g.returnToFreeList(h.index, Allocated)
				return
			}
		case Scheduled:
			if atomicCAS(&s.state, uint32(Scheduled), uint32(Free)) {
				g.returnToFreeList(h.index, Scheduled)
				return
			}
		default:
			return
		}
	}
}

// returnToFreeList performs the shared slot-return routine used by Release:
// bump generation, drop the closure, defensively clear the ready bit if the
// slot was Scheduled, adjust counters for the previous state, decrement
// active, push to the free list, and fire capacity callbacks.
func (g *Group) returnToFreeList(index uint32, prevState State) {
	s := &g.slots[index]
	s.generation.Add(1)
	s.work.Store(nil)

	execType := ExecutionType(s.execType.Load())

	if prevState == Scheduled {
		g.readyTree(execType).Clear(index)
		var remaining int64
		if execType == MainThread {
			remaining = g.mainScheduled.Add(-1)
		} else {
			remaining = g.scheduled.Add(-1)
		}
		if remaining == 0 {
			g.broadcastWait()
		}
	}

	newActive := g.active.Add(-1)
	g.pushFree(index)

	if newActive < int64(g.capacity) {
		g.fireCapacityCallbacks()
	}
}

// selectForExecution picks a ready AnyThread contract and transitions it to
// Executing. The returned Handle is stamped with the generation observed
// before execution begins; ExecuteContract bumps the generation once
// it actually starts running the closure, leaving a brief window where the
// stamped handle refers to a slot that is about to change identity.
func (g *Group) selectForExecution(bias uint64) Handle {
	return g.selectFor(bias, AnyThread, &g.selecting, &g.scheduled, &g.executing)
}

// selectForMainThreadExecution is the MainThread analog of selectForExecution.
func (g *Group) selectForMainThreadExecution(bias uint64) Handle {
	return g.selectFor(bias, MainThread, &g.mainSelecting, &g.mainScheduled, &g.mainExecuting)
}

// SelectForExecution is the exported form of selectForExecution, for use by
// a workservice.Service's worker loop. bias should be rotated by the
// caller between calls (the worker loop rotates it one bit after each
// contract it executes) so repeated calls from the same worker
// fan out across the tree instead of always racing the same leaf.
func (g *Group) SelectForExecution(bias uint64) Handle {
	return g.selectForExecution(bias)
}

// SelectForMainThreadExecution is the exported form of
// selectForMainThreadExecution, for use by a main-thread pump.
func (g *Group) SelectForMainThreadExecution(bias uint64) Handle {
	return g.selectForMainThreadExecution(bias)
}

func (g *Group) selectFor(bias uint64, execType ExecutionType, selecting, scheduled, executing *atomic.Int64) Handle {
	selecting.Add(1)
	defer func() {
		if selecting.Add(-1) == 0 {
			g.broadcastWait()
		}
	}()

	if g.stopping.Load() {
		return Handle{}
	}

	index, ok := g.readyTree(execType).Select(bias)
	if !ok {
		return Handle{}
	}

	s := &g.slots[index]
	if !atomicCAS(&s.state, uint32(Scheduled), uint32(Executing)) {
		return Handle{}
	}

	// Layer 1 of three-layer ready-bit clearing.
	g.readyTree(execType).Clear(index)

	generation := s.generation.Load()
	scheduled.Add(-1)
	executing.Add(1)

	return Handle{owner: g, index: index, generation: generation}
}

// ExecuteContract is the point of no return for a selected contract: it
// moves the closure out, frees the slot (bumping its generation so the
// handle the issuer and any selector held become invalid the instant this
// call begins), and only then runs the closure -- outside of any slot
// ownership, so the closure may safely create and schedule new contracts,
// including ones that reuse this very slot.
func (g *Group) ExecuteContract(h Handle) {
	if h.owner != g || h.index >= g.capacity {
		return
	}
	index := h.index
	s := &g.slots[index]
	execType := ExecutionType(s.execType.Load())

	workPtr := s.work.Swap(nil)

	s.generation.Add(1)
	s.state.Store(uint32(Free))

	// Layer 3: defensive clear, closing the window where a selector was
	// preempted between its CAS and its own Layer-1 clear.
	g.readyTree(execType).Clear(index)

	g.pushFree(index)

	if workPtr != nil && *workPtr != nil {
		g.runContract(*workPtr)
	}

	var executing *atomic.Int64
	if execType == MainThread {
		executing = &g.mainExecuting
	} else {
		executing = &g.executing
	}
	if executing.Add(-1) == 0 {
		g.broadcastWait()
	}

	if g.active.Add(-1) < int64(g.capacity) {
		g.fireCapacityCallbacks()
	}
}

// runContract invokes work, converting a panic into a logged, swallowed
// error: an exception/panic escaping a contract closure must never be
// exposed to the selector, matching WorkContractGroup.cpp's exception
// boundary around executing a contract.
func (g *Group) runContract(work func()) {
	defer func() {
		if r := recover(); r != nil {
			g.logger.Errorf("contract: recovered panic in closure: %v", r)
		}
	}()
	work()
}

func (g *Group) fireCapacityCallbacks() {
	g.capMu.Lock()
	cbs := make([]func(), 0, len(g.capCallbacks))
	for _, cb := range g.capCallbacks {
		cbs = append(cbs, cb)
	}
	g.capMu.Unlock()
	for _, cb := range cbs {
		cb()
	}
}

// AddOnCapacityAvailable registers a callback fired whenever active contracts
// drop below capacity. Returns a cookie for RemoveOnCapacityAvailable.
func (g *Group) AddOnCapacityAvailable(cb func()) int {
	g.capMu.Lock()
	defer g.capMu.Unlock()
	id := g.capNextID
	g.capNextID++
	g.capCallbacks[id] = cb
	return id
}

// RemoveOnCapacityAvailable unregisters a callback added via AddOnCapacityAvailable.
func (g *Group) RemoveOnCapacityAvailable(cookie int) {
	g.capMu.Lock()
	defer g.capMu.Unlock()
	delete(g.capCallbacks, cookie)
}

func (g *Group) broadcastWait() {
	g.waitMu.Lock()
	g.waitCond.Broadcast()
	g.waitMu.Unlock()
}

// Stop marks the group as stopping: no further selection will succeed, and
// Wait's predicate additionally requires the selecting counters to reach
// zero (so a destructor-equivalent teardown can safely run). Reversible via Resume.
func (g *Group) Stop() {
	g.stopping.Store(true)
	g.broadcastWait()
}

// Resume clears the stopping flag set by Stop. WorkContractGroup.cpp's
// resume does not re-notify the concurrency provider; a caller resuming a
// group is expected to re-trigger work-available notifications itself if
// needed.
func (g *Group) Resume() {
	g.stopping.Store(false)
}

// Stopping reports whether Stop has been called without a subsequent Resume.
func (g *Group) Stopping() bool { return g.stopping.Load() }

// Wait blocks until the group reaches quiescence: no scheduled or executing
// contracts remain (of either execution type), and -- if stopping -- no
// thread is inside a select call either.
func (g *Group) Wait() {
	g.waitMu.Lock()
	defer g.waitMu.Unlock()
	for !g.quiescent() {
		g.waitCond.Wait()
	}
}

func (g *Group) quiescent() bool {
	if g.stopping.Load() {
		return g.scheduled.Load() == 0 && g.executing.Load() == 0 && g.selecting.Load() == 0 &&
			g.mainScheduled.Load() == 0 && g.mainExecuting.Load() == 0 && g.mainSelecting.Load() == 0
	}
	return g.scheduled.Load() == 0 && g.executing.Load() == 0 &&
		g.mainScheduled.Load() == 0 && g.mainExecuting.Load() == 0
}

// ExecuteMainThreadWork drains up to max ready MainThread contracts,
// executing each in the calling goroutine. Returns the number executed.
// Pass a negative max to drain until empty.
func (g *Group) ExecuteMainThreadWork(max int) int {
	var bias uint64
	n := 0
	for max < 0 || n < max {
		h := g.selectForMainThreadExecution(bias)
		if !h.Valid() {
			break
		}
		g.ExecuteContract(h)
		bias = bias<<1 | bias>>63
		n++
	}
	return n
}

// ExecuteAllMainThreadWork drains the MainThread ready tree until empty.
func (g *Group) ExecuteAllMainThreadWork() int {
	return g.ExecuteMainThreadWork(-1)
}

// ExecuteBackgroundWork runs up to max ready AnyThread contracts on the
// calling goroutine (max < 0 means until the ready tree is empty) and
// returns how many ran.
func (g *Group) ExecuteBackgroundWork(max int) int {
	var bias uint64
	n := 0
	for max < 0 || n < max {
		h := g.selectForExecution(bias)
		if !h.Valid() {
			break
		}
		g.ExecuteContract(h)
		bias = bias<<1 | bias>>63
		n++
	}
	return n
}

// ExecuteAllBackgroundWork drains the AnyThread ready tree until empty,
// running each contract on the calling goroutine. Mirrors the original's
// executeAllBackgroundWork, mainly useful for tests and single-threaded
// embedding without a workservice.Service.
func (g *Group) ExecuteAllBackgroundWork() int {
	return g.ExecuteBackgroundWork(-1)
}

// Stats is a point-in-time snapshot of group counters, for diagnostics.
type Stats struct {
	Active, Scheduled, Executing, Selecting     int64
	MainScheduled, MainExecuting, MainSelecting int64
}

// Stats returns a snapshot of the group's atomic counters.
func (g *Group) Stats() Stats {
	return Stats{
		Active:        g.active.Load(),
		Scheduled:     g.scheduled.Load(),
		Executing:     g.executing.Load(),
		Selecting:     g.selecting.Load(),
		MainScheduled: g.mainScheduled.Load(),
		MainExecuting: g.mainExecuting.Load(),
		MainSelecting: g.mainSelecting.Load(),
	}
}

func atomicCAS(a *atomic.Uint32, old, new uint32) bool {
	return a.CompareAndSwap(old, new)
}

package workservice

import (
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Geenz/entropycore/contract"
	"github.com/Geenz/entropycore/internal/entlog"
	"github.com/Geenz/entropycore/scheduler"
)

// defaultParkTimeout bounds how long an idle worker waits on the wake
// channel before re-checking the strategy, so a missed wake (e.g. a group
// added between a worker's last check and the park call) is never fatal.
const defaultParkTimeout = 5 * time.Millisecond

// Config configures a Service. The zero value is valid: ThreadCount defaults
// to runtime.GOMAXPROCS(0), Strategy to scheduler.NewAdaptiveRanking(), and
// ParkTimeout to 5ms.
type Config struct {
	// ThreadCount is the number of worker goroutines. 0 means auto (hardware
	// concurrency), per spec.md §4.E.
	ThreadCount int
	// Strategy picks which group each worker draws from next.
	Strategy scheduler.Strategy
	// ParkTimeout bounds how long an idle worker parks between strategy polls.
	ParkTimeout time.Duration
	// Logger receives service lifecycle events. Defaults to entlog.Default().
	Logger entlog.Logger
}

// Service owns a pool of worker goroutines plus main-thread pumping across
// any number of contract.Group instances (spec.md §4.E).
type Service struct {
	threadCount int
	strategy    scheduler.Strategy
	parkTimeout time.Duration
	logger      entlog.Logger

	groupsMu sync.Mutex
	groups   map[*contract.Group]struct{}

	started  atomic.Bool
	stopping atomic.Bool
	stopCh   chan struct{}
	wake     chan struct{}
	wg       sync.WaitGroup
}

// New builds a Service from cfg.
func New(cfg Config) *Service {
	threadCount := cfg.ThreadCount
	if threadCount <= 0 {
		threadCount = runtime.GOMAXPROCS(0)
	}
	strat := cfg.Strategy
	if strat == nil {
		strat = scheduler.NewAdaptiveRanking()
	}
	parkTimeout := cfg.ParkTimeout
	if parkTimeout <= 0 {
		parkTimeout = defaultParkTimeout
	}
	return &Service{
		threadCount: threadCount,
		strategy:    strat,
		parkTimeout: parkTimeout,
		logger:      entlog.OrDefault(cfg.Logger),
		groups:      make(map[*contract.Group]struct{}),
		wake:        make(chan struct{}, 1),
	}
}

// Start launches the worker pool. Returns ErrAlreadyStarted if already running.
func (s *Service) Start() error {
	if !s.started.CompareAndSwap(false, true) {
		return ErrAlreadyStarted
	}
	s.stopping.Store(false)
	s.stopCh = make(chan struct{})

	s.wg.Add(s.threadCount)
	for i := 0; i < s.threadCount; i++ {
		// Stagger each worker's starting bias so two workers racing the same
		// signal tree on their very first selection don't probe identically.
		initialBias := uint64(i)*0x9E3779B97F4A7C15 + 1
		go s.workerLoop(initialBias)
	}
	s.logger.Debugf("workservice: started %d workers", s.threadCount)
	return nil
}

// Stop signals every worker to exit and waits for them to drain. Safe to
// call on a Service that was never started, or is already stopped.
func (s *Service) Stop() {
	if !s.started.CompareAndSwap(true, false) {
		return
	}
	s.stopping.Store(true)
	close(s.stopCh)
	s.wg.Wait()
	s.logger.Debugf("workservice: stopped")
}

// Stopping reports whether Stop has been called and workers are (or were)
// draining.
func (s *Service) Stopping() bool { return s.stopping.Load() }

// workerLoop is the per-worker loop from spec.md §4.E.
func (s *Service) workerLoop(bias uint64) {
	defer s.wg.Done()
	for {
		select {
		case <-s.stopCh:
			return
		default:
		}

		g, ok := s.strategy.SelectNextGroup()
		if !ok {
			s.park()
			continue
		}

		h := g.SelectForExecution(bias)
		if h.Valid() {
			g.ExecuteContract(h)
			bias = bias<<1 | bias>>63
		} else {
			s.strategy.NotifyEmpty(g)
		}
	}
}

// park blocks the calling worker until woken by a notification, the park
// timeout elapses, or the service is stopping. A worker must not hold any
// group's selecting counter while parked (spec.md §4.E).
func (s *Service) park() {
	timer := time.NewTimer(s.parkTimeout)
	defer timer.Stop()
	select {
	case <-s.wake:
	case <-timer.C:
	case <-s.stopCh:
	}
}

func (s *Service) signalWake() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// AddWorkContractGroup registers g with the service: the group's provider
// pointer is set to this service (under the group's own provider mutex) and
// the strategy is notified.
func (s *Service) AddWorkContractGroup(g *contract.Group) {
	s.groupsMu.Lock()
	s.groups[g] = struct{}{}
	s.groupsMu.Unlock()

	g.SetConcurrencyProvider(s)
	s.strategy.NotifyGroupAdded(g)
	s.signalWake()
}

// RemoveWorkContractGroup unregisters g, clearing its provider pointer and
// waiting for any worker currently inside a select call on g to finish
// before dropping it from the strategy.
func (s *Service) RemoveWorkContractGroup(g *contract.Group) {
	s.groupsMu.Lock()
	delete(s.groups, g)
	s.groupsMu.Unlock()

	g.SetConcurrencyProvider(nil)
	s.drainAndForget(g)
}

// NotifyWorkAvailable implements contract.ConcurrencyProvider.
func (s *Service) NotifyWorkAvailable(g *contract.Group) {
	s.strategy.NotifyWorkAvailable(g)
	s.signalWake()
}

// NotifyGroupDestroyed implements contract.ConcurrencyProvider.
func (s *Service) NotifyGroupDestroyed(g *contract.Group) {
	s.groupsMu.Lock()
	delete(s.groups, g)
	s.groupsMu.Unlock()
	s.drainAndForget(g)
}

// drainAndForget waits until no worker holds a pointer to g inside a select
// call (selecting == 0 for both execution types), then removes it from the
// strategy -- the lock-and-drain discipline spec.md §4.E requires before a
// group can be safely destroyed or reused.
func (s *Service) drainAndForget(g *contract.Group) {
	for {
		st := g.Stats()
		if st.Selecting == 0 && st.MainSelecting == 0 {
			break
		}
		time.Sleep(time.Millisecond)
	}
	s.strategy.NotifyGroupRemoved(g)
}

// ExecuteMainThreadWork drains up to max ready MainThread contracts across
// every registered group, for applications pumping from their own event
// loop. Pass a negative max to drain everything.
func (s *Service) ExecuteMainThreadWork(max int) int {
	s.groupsMu.Lock()
	groups := make([]*contract.Group, 0, len(s.groups))
	for g := range s.groups {
		groups = append(groups, g)
	}
	s.groupsMu.Unlock()

	n := 0
	for _, g := range groups {
		if max >= 0 && n >= max {
			break
		}
		budget := -1
		if max >= 0 {
			budget = max - n
		}
		n += g.ExecuteMainThreadWork(budget)
	}
	return n
}

// ExecuteAllMainThreadWork drains every registered group's main-thread ready
// tree until empty.
func (s *Service) ExecuteAllMainThreadWork() int {
	return s.ExecuteMainThreadWork(-1)
}

package timerservice

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/Geenz/entropycore/contract"
	"github.com/Geenz/entropycore/internal/entlog"
	"github.com/Geenz/entropycore/workgraph"
	"github.com/Geenz/entropycore/workservice"
)

const defaultGroupCapacity = 1024

// Config configures a Service. The zero value is valid: GroupCapacity
// defaults to 1024, Logger to entlog.Default().
type Config struct {
	// GroupCapacity sizes the internal contract.Group backing all timer nodes.
	GroupCapacity int
	// Logger receives pump scheduling failures.
	Logger entlog.Logger
}

// Service schedules one-shot and repeating timers as workgraph yieldable
// nodes, grounded on TimerService.cpp. Build with NewService, register with a
// workservice.Service via Start, and schedule timers with ScheduleTimer.
type Service struct {
	group  *contract.Group
	graph  *workgraph.Graph
	logger entlog.Logger

	workService *workservice.Service

	timersMu sync.Mutex
	timers   map[uint32]*timerData

	started        atomic.Bool
	pumpShouldStop atomic.Bool

	pumpMu     sync.Mutex
	pumpExecMu sync.Mutex
	pumpHandle contract.Handle
	pumpLive   bool
}

// NewService builds a Service from cfg. The service's internal group and
// graph are created immediately, but nothing executes until Start.
func NewService(cfg Config) *Service {
	capacity := cfg.GroupCapacity
	if capacity <= 0 {
		capacity = defaultGroupCapacity
	}
	group := contract.New(uint32(capacity), nil)
	logger := entlog.OrDefault(cfg.Logger)
	s := &Service{
		group:  group,
		logger: logger,
		timers: make(map[uint32]*timerData),
	}
	s.graph = workgraph.NewGraph(group, workgraph.SchedulerConfig{Logger: logger}, workgraph.Callbacks{})
	return s
}

// Start registers the service's group with ws, begins executing the
// service's graph, and launches the self-rescheduling pump contract that
// drives timed-deferred nodes forward. Returns ErrAlreadyStarted if called
// twice.
func (s *Service) Start(ws *workservice.Service) error {
	if !s.started.CompareAndSwap(false, true) {
		return ErrAlreadyStarted
	}
	s.workService = ws
	ws.AddWorkContractGroup(s.group)

	if err := s.graph.Execute(); err != nil {
		return err
	}
	s.restartPumpContract()
	return nil
}

// Stop halts the pump, cancels every outstanding timer, suspends the graph
// against further scheduling, and unregisters the group from its
// workservice.Service. Safe to call on a Service that was never started.
func (s *Service) Stop() {
	if !s.started.CompareAndSwap(true, false) {
		return
	}
	s.pumpShouldStop.Store(true)

	s.pumpMu.Lock()
	if s.pumpHandle.Valid() {
		s.pumpHandle.Release()
	}
	s.pumpLive = false
	s.pumpMu.Unlock()

	// Blocks until any in-flight pump execution (which holds this mutex for
	// its entire body) has finished, mirroring the original's synchronous
	// shutdown handshake.
	s.pumpExecMu.Lock()
	s.pumpExecMu.Unlock()

	s.timersMu.Lock()
	for _, td := range s.timers {
		td.cancelled.Store(true)
	}
	s.timersMu.Unlock()

	s.graph.Suspend()

	if s.workService != nil {
		s.workService.RemoveWorkContractGroup(s.group)
	}
}

// ScheduleTimer schedules work to run after interval elapses. If repeating
// is true, work continues firing every interval until the returned Timer is
// invalidated; otherwise it fires once. executionType picks whether the
// node runs on a worker thread or must be drained by a main-thread pump.
func (s *Service) ScheduleTimer(interval time.Duration, work WorkFunction, repeating bool, executionType contract.ExecutionType) (*Timer, error) {
	if !s.started.Load() {
		return nil, ErrNotStarted
	}

	td := &timerData{
		fireTime:  time.Now().Add(interval),
		interval:  interval,
		work:      work,
		repeating: repeating,
	}

	node := s.graph.AddYieldableNode(func() workgraph.WorkResultContext {
		if td.cancelled.Load() {
			return workgraph.WorkResultContext{Result: workgraph.Complete}
		}

		now := time.Now()
		if now.Before(td.fireTime) {
			return workgraph.WorkResultContext{Result: workgraph.YieldUntil, WakeTime: td.fireTime}
		}

		if td.work != nil {
			td.work()
		}

		if td.repeating && !td.cancelled.Load() {
			// Skip missed intervals instead of bursting to catch up, matching
			// NSTimer-style coalescing.
			for {
				td.fireTime = td.fireTime.Add(td.interval)
				if td.fireTime.After(now) {
					break
				}
			}
			return workgraph.WorkResultContext{Result: workgraph.YieldUntil, WakeTime: td.fireTime}
		}
		return workgraph.WorkResultContext{Result: workgraph.Complete}
	}, "Timer", executionType, 0)

	s.timersMu.Lock()
	s.timers[node.Index()] = td
	s.timersMu.Unlock()

	// The graph was already executed in Start, so a node added afterwards
	// has to be handed to the scheduler explicitly for its first run.
	s.graph.Scheduler().ScheduleReadyNodes([]workgraph.NodeHandle{node})

	s.restartPumpContract()

	return newTimer(s, node, interval, repeating), nil
}

func (s *Service) cancelTimer(node workgraph.NodeHandle) {
	s.timersMu.Lock()
	defer s.timersMu.Unlock()
	if td, ok := s.timers[node.Index()]; ok {
		td.cancelled.Store(true)
	}
}

// ActiveTimerCount returns the number of scheduled timers that haven't been
// cancelled yet (completed one-shots still count until their cancellation or
// process cleanup, matching the original's index-keyed map semantics).
func (s *Service) ActiveTimerCount() int {
	s.timersMu.Lock()
	defer s.timersMu.Unlock()
	n := 0
	for _, td := range s.timers {
		if !td.cancelled.Load() {
			n++
		}
	}
	return n
}

// ProcessReadyTimers pumps the timed-deferred queue once, scheduling every
// timer node whose fire time has passed. Returns the number handled. Called
// periodically by the service's own pump contract; exposed so a caller
// driving timers from its own loop (without a workservice.Service pump) can
// call it directly.
func (s *Service) ProcessReadyTimers() int {
	return s.graph.CheckTimedDeferrals()
}

// restartPumpContract ensures the self-rescheduling pump is running. A no-op
// if the pump is already scheduled or the service is stopping.
func (s *Service) restartPumpContract() {
	s.pumpMu.Lock()
	defer s.pumpMu.Unlock()

	if s.pumpLive || s.pumpShouldStop.Load() {
		return
	}

	s.pumpHandle = s.group.CreateContract(s.pump, contract.AnyThread)
	if !s.pumpHandle.Valid() {
		s.logger.Warnf("timerservice: pump contract creation failed, timer group at capacity")
		return
	}
	s.pumpHandle.Schedule()
	s.pumpLive = true
}

// pump is the self-rescheduling background contract that drives the timed
// queue and then re-arms itself, so there's never a dedicated timer thread
// and never more than one pump contract alive at once.
func (s *Service) pump() {
	s.pumpExecMu.Lock()
	defer s.pumpExecMu.Unlock()

	if s.pumpShouldStop.Load() {
		return
	}

	s.ProcessReadyTimers()

	if s.pumpShouldStop.Load() {
		return
	}

	s.pumpMu.Lock()
	s.pumpLive = false
	if !s.pumpShouldStop.Load() {
		s.pumpHandle = s.group.CreateContract(s.pump, contract.AnyThread)
		if s.pumpHandle.Valid() {
			s.pumpHandle.Schedule()
			s.pumpLive = true
		} else {
			s.logger.Warnf("timerservice: pump re-arm failed, timer group at capacity")
		}
	}
	s.pumpMu.Unlock()
}

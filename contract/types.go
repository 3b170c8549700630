package contract

// ExecutionType selects which ready signal tree (and therefore which class
// of selector -- worker thread vs. main-thread pump) a contract belongs to.
type ExecutionType uint8

const (
	// AnyThread contracts may be selected by any worker thread.
	AnyThread ExecutionType = iota
	// MainThread contracts are only drained by the application's main-thread pump.
	MainThread
)

func (e ExecutionType) String() string {
	if e == MainThread {
		return "MainThread"
	}
	return "AnyThread"
}

// State is a slot's lifecycle state, mirroring WorkContractGroup.cpp's slot
// state machine.
type State uint32

const (
	// Free means the slot is on the free list, available for CreateContract.
	Free State = iota
	// Allocated means a closure has been installed but not scheduled.
	Allocated
	// Scheduled means the slot's ready bit is set, awaiting selection.
	Scheduled
	// Executing means a selector has claimed the slot and is running its closure.
	Executing
)

func (s State) String() string {
	switch s {
	case Free:
		return "Free"
	case Allocated:
		return "Allocated"
	case Scheduled:
		return "Scheduled"
	case Executing:
		return "Executing"
	default:
		return "Unknown"
	}
}

// ScheduleResult is the outcome of Handle.Schedule.
type ScheduleResult int

const (
	// ScheduleResultScheduled means the contract is now scheduled and ready for selection.
	ScheduleResultScheduled ScheduleResult = iota
	// ScheduleResultAlreadyScheduled means the contract was already scheduled.
	ScheduleResultAlreadyScheduled
	// ScheduleResultExecuting means the contract is already being executed.
	ScheduleResultExecuting
	// ScheduleResultInvalid means the handle no longer refers to a live contract.
	ScheduleResultInvalid
)

func (r ScheduleResult) String() string {
	switch r {
	case ScheduleResultScheduled:
		return "Scheduled"
	case ScheduleResultAlreadyScheduled:
		return "AlreadyScheduled"
	case ScheduleResultExecuting:
		return "Executing"
	default:
		return "Invalid"
	}
}

// UnscheduleResult is the outcome of Handle.Unschedule.
type UnscheduleResult int

const (
	// UnscheduleResultNotScheduled means the contract is no longer scheduled
	// (it may now be Allocated, or was already Allocated).
	UnscheduleResultNotScheduled UnscheduleResult = iota
	// UnscheduleResultExecuting means the contract had already begun executing
	// and could not be unscheduled.
	UnscheduleResultExecuting
	// UnscheduleResultInvalid means the handle no longer refers to a live contract.
	UnscheduleResultInvalid
)

func (r UnscheduleResult) String() string {
	switch r {
	case UnscheduleResultNotScheduled:
		return "NotScheduled"
	case UnscheduleResultExecuting:
		return "Executing"
	default:
		return "Invalid"
	}
}

const invalidIndex = ^uint32(0)

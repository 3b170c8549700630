package timerservice

import "errors"

var (
	// ErrNotStarted is returned by ScheduleTimer before Start has run.
	ErrNotStarted = errors.New("timerservice: service not started")
	// ErrAlreadyStarted is returned by Start when called twice.
	ErrAlreadyStarted = errors.New("timerservice: already started")
)

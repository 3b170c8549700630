package workservice

import "errors"

// ErrAlreadyStarted is returned by Start if the service is already running.
var ErrAlreadyStarted = errors.New("workservice: already started")

// ErrNotStarted names the not-started condition. No Service method returns
// it: Stop on a Service that was never started is a no-op.
var ErrNotStarted = errors.New("workservice: not started")

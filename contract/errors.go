package contract

import "errors"

// ErrCapacityZero is the value New panics with when asked to build a
// zero-capacity group.
var ErrCapacityZero = errors.New("contract: capacity must be > 0")

// ErrNilWork is the value Group.CreateContract panics with when the supplied
// closure is nil.
var ErrNilWork = errors.New("contract: work closure must not be nil")

package mdlog

import "time"

// Clock is the global clock, injected rather than linked to as
// process-wide state so tests can drive deadlines deterministically.
type Clock interface {
	Now() time.Time
}

// systemClock is the production Clock backed by time.Now.
type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// SystemClock is the default Clock used when none is supplied.
var SystemClock Clock = systemClock{}

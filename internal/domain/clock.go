package domain

import (
	"time"

	"github.com/jonboulle/clockwork"
)

// clock stamps CodedAt on every generated code. Tests freeze it with SetClock.
var clock = clockwork.NewRealClock()

// SetClock replaces the time source. Pass nil to restore the real clock.
func SetClock(c clockwork.Clock) {
	if c == nil {
		clock = clockwork.NewRealClock()
		return
	}
	clock = c
}

// Now returns the current time of the package clock.
func Now() time.Time {
	return clock.Now()
}

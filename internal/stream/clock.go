package stream

import "time"

// Timer is a scheduled callback that can be cancelled.
type Timer interface {
	// Stop prevents the callback from running. It reports whether the call
	// stopped the timer before it fired.
	Stop() bool
}

// Clock schedules the reconnect callback. Tests substitute a fake to
// advance time without sleeping.
type Clock interface {
	AfterFunc(d time.Duration, f func()) Timer
}

type realClock struct{}

func (realClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// RealClock returns a Clock backed by time.AfterFunc.
func RealClock() Clock {
	return realClock{}
}

package engine

import "time"

// Timer is a pending one-shot callback.
type Timer interface {
	Stop() bool
}

// Clock supplies wall-clock time and one-shot timers.
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) Timer
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

func (systemClock) AfterFunc(d time.Duration, f func()) Timer { return time.AfterFunc(d, f) }

// SystemClock is the real clock.
var SystemClock Clock = systemClock{}

// UntilNextMidnight returns the time left until the next local midnight in loc.
func UntilNextMidnight(now time.Time, loc *time.Location) time.Duration {
	if loc == nil {
		loc = time.Local
	}
	local := now.In(loc)
	next := time.Date(local.Year(), local.Month(), local.Day()+1, 0, 0, 0, 0, loc)
	return next.Sub(now)
}

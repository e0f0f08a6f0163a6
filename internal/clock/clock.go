// Package clock supplies "today" to request handlers so tests can pin it.
package clock

import (
	"time"

	"eventcal/internal/caldate"
)

type Clock interface {
	Now() time.Time
}

type SystemClock struct{}

func (SystemClock) Now() time.Time {
	return time.Now()
}

// FixedClock always reports the same instant.
type FixedClock struct {
	FixedNow time.Time
}

func (f *FixedClock) Now() time.Time {
	return f.FixedNow
}

func (f *FixedClock) SetNow(now time.Time) {
	f.FixedNow = now
}

// Today is the calendar day of c.Now() in loc. A nil loc means time.Local.
func Today(c Clock, loc *time.Location) caldate.Date {
	if loc == nil {
		loc = time.Local
	}
	return caldate.FromTime(c.Now().In(loc))
}

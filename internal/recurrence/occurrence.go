package recurrence

import (
	"fmt"
	"time"

	"eventcal/internal/caldate"
)

// IsCanceled reports whether day is one of the canceled dates.
func IsCanceled(day caldate.Date, canceled caldate.Set) bool {
	return canceled.Has(day)
}

// IsMissed reports whether day is one of the missed dates.
func IsMissed(day caldate.Date, missed caldate.Set) bool {
	return missed.Has(day)
}

// Project moves the interval [start, end] onto day. Both ends shift by the
// same number of calendar days, so the result keeps start's time of day and
// the original length.
func Project(day caldate.Date, start, end time.Time) (time.Time, time.Time) {
	n := caldate.DaysBetween(caldate.FromTime(start), day)
	return start.AddDate(0, 0, n), end.AddDate(0, 0, n)
}

// Scheduled is anything that can be evaluated by the engine.
type Scheduled interface {
	Schedule() Schedule
}

// Occurrence is one concrete instance of an event on Day.
type Occurrence[E Scheduled] struct {
	Event    E
	Day      caldate.Date
	Start    time.Time
	End      time.Time
	Canceled bool
	Missed   bool
}

// Visible reports whether the occurrence should be shown in calendars.
func (o Occurrence[E]) Visible() bool {
	return !o.Canceled && !o.Missed
}

// Enumerate returns the visible occurrences of events within r, ordered by
// day and then by position in events.
func Enumerate[E Scheduled](m *Matcher, r caldate.Range, events []E) ([]Occurrence[E], error) {
	return enumerate(m, r, events, false)
}

// EnumerateAll is Enumerate including canceled and missed occurrences, which
// carry their flags.
func EnumerateAll[E Scheduled](m *Matcher, r caldate.Range, events []E) ([]Occurrence[E], error) {
	return enumerate(m, r, events, true)
}

func enumerate[E Scheduled](m *Matcher, r caldate.Range, events []E, withExceptions bool) ([]Occurrence[E], error) {
	schedules := make([]Schedule, len(events))
	for i, ev := range events {
		schedules[i] = ev.Schedule()
	}

	var out []Occurrence[E]
	for day := r.From; !day.After(r.To); day = day.AddDays(1) {
		for i, s := range schedules {
			occ, ok, err := occurrenceOn[E](m, day, s)
			if err != nil {
				return nil, fmt.Errorf("event %d: %w", i, err)
			}
			if !ok || (!withExceptions && !occ.Visible()) {
				continue
			}
			occ.Event = events[i]
			out = append(out, occ)
		}
	}
	return out, nil
}

// OccurrenceOn evaluates a single (day, event) pair. ok is false when the day
// does not match; a matched but canceled or missed day is returned with its
// flags set.
func OccurrenceOn[E Scheduled](m *Matcher, day caldate.Date, event E) (Occurrence[E], bool, error) {
	occ, ok, err := occurrenceOn[E](m, day, event.Schedule())
	if ok {
		occ.Event = event
	}
	return occ, ok, err
}

func occurrenceOn[E Scheduled](m *Matcher, day caldate.Date, s Schedule) (Occurrence[E], bool, error) {
	ok, err := m.Matches(day, s)
	if err != nil || !ok {
		return Occurrence[E]{}, false, err
	}
	start, end := Project(day, s.Start, s.End)
	occ := Occurrence[E]{Day: day, Start: start, End: end}
	if s.Series != nil {
		occ.Canceled = IsCanceled(day, s.Series.Canceled)
		occ.Missed = IsMissed(day, s.Series.Missed)
	}
	return occ, true, nil
}

// NextVisible returns the first day in [from, from+lookahead) hosting a
// visible occurrence of s.
func NextVisible(m *Matcher, from caldate.Date, lookahead int, s Schedule) (caldate.Date, bool, error) {
	for i := 0; i < lookahead; i++ {
		day := from.AddDays(i)
		ok, err := m.Matches(day, s)
		if err != nil {
			return caldate.Date{}, false, err
		}
		if !ok {
			continue
		}
		if s.Series != nil && (IsCanceled(day, s.Series.Canceled) || IsMissed(day, s.Series.Missed)) {
			continue
		}
		return day, true, nil
	}
	return caldate.Date{}, false, nil
}

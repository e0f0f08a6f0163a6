// Package recurrence decides which calendar days host an occurrence of an
// event and where each occurrence sits in time.
//
// An event is described by a Schedule: an anchor interval (Start/End) and an
// optional Series. The anchor day always hosts an occurrence; the Series
// pattern, count, end date and exception dates govern every other day.
package recurrence

import (
	"time"

	"github.com/samber/mo"

	"eventcal/internal/caldate"
)

// Pattern is one recurrence rule variant. The set of variants is closed:
// Daily, Weekly, MonthlyByDay, MonthlyByWeekday and Yearly. Matcher
// dispatches on the concrete type and reports any other value as
// ErrInvalidPattern.
type Pattern interface {
	pattern()
}

// Daily repeats every Interval days from the anchor.
type Daily struct {
	Interval int
}

// Weekly repeats every Interval ISO weeks on each of Days. Empty Days means
// the anchor's weekday.
type Weekly struct {
	Interval int
	Days     []time.Weekday
}

// MonthlyByDay repeats every Interval months on the listed day-of-month
// numbers. Empty Days means the anchor's day of month.
type MonthlyByDay struct {
	Interval int
	Days     []int
}

// WeekdaySelection names the Nth weekday of a month. Week is 1-based (1..5);
// -1 selects the last such weekday. Unset fields fall back to the anchor's
// weekday and week of month.
type WeekdaySelection struct {
	Weekday mo.Option[time.Weekday]
	Week    mo.Option[int]
}

// MonthlyByWeekday repeats every Interval months on the selected weekdays.
// An empty list behaves as a single selection with both fields unset.
type MonthlyByWeekday struct {
	Interval   int
	Selections []WeekdaySelection
}

// Yearly repeats every Interval years on the anchor's month and day.
type Yearly struct {
	Interval int
}

func (Daily) pattern()            {}
func (Weekly) pattern()           {}
func (MonthlyByDay) pattern()     {}
func (MonthlyByWeekday) pattern() {}
func (Yearly) pattern()           {}

// LastWeek selects the last occurrence of a weekday in its month.
const LastWeek = -1

// Series is the recurrence configuration of an event.
type Series struct {
	Pattern Pattern
	// Count bounds the number of occurrences.
	Count mo.Option[int]
	// End is the last day an occurrence may fall on.
	End mo.Option[caldate.Date]
	// Canceled occurrences were skipped on purpose.
	Canceled caldate.Set
	// Missed occurrences were skipped by accident; they still use up Count.
	Missed caldate.Set
}

// Schedule is the part of an event the engine evaluates. End is not before
// Start; the duration and Start's time of day carry over to every
// occurrence. A nil Series means the event happens once.
type Schedule struct {
	Start  time.Time
	End    time.Time
	Series *Series
}

// AnchorDay is the calendar day of Start.
func (s Schedule) AnchorDay() caldate.Date {
	return caldate.FromTime(s.Start)
}

func normalizeInterval(n int) int {
	if n <= 0 {
		return 1
	}
	return n
}

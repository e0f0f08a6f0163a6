package recurrence

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"eventcal/internal/caldate"
)

// ErrInvalidPattern reports a series whose pattern is missing or of an
// unknown type. It is a configuration defect, not a non-match.
var ErrInvalidPattern = errors.New("recurrence: invalid pattern")

// Overflow decides what happens to a day-of-month number the month does not
// have, such as the 31st in April.
type Overflow int

const (
	// OverflowSkip drops the occurrence for that month.
	OverflowSkip Overflow = iota
	// OverflowClamp moves it to the month's last day.
	OverflowClamp
)

// Options tune the matcher's counting rules.
type Options struct {
	// CanceledDatesExtendCount makes canceled occurrences not use up the
	// series count. When false, every canceled date before the candidate day
	// is subtracted from the count instead.
	CanceledDatesExtendCount bool
	MonthDayOverflow         Overflow
}

// Matcher decides whether a day hosts an occurrence of a schedule. It holds
// no mutable state and is safe for concurrent use.
type Matcher struct {
	opts Options
}

func NewMatcher(opts Options) *Matcher {
	return &Matcher{opts: opts}
}

func (m *Matcher) Options() Options {
	return m.opts
}

// limit is an optional upper bound on an occurrence's 1-based ordinal.
type limit struct {
	max int
	set bool
}

func (l limit) exceeded(ordinal int) bool {
	return l.set && ordinal > l.max
}

// Matches reports whether day hosts an occurrence of s. Exception dates are
// not consulted here beyond count accounting; see IsCanceled and IsMissed.
func (m *Matcher) Matches(day caldate.Date, s Schedule) (bool, error) {
	anchor := s.AnchorDay()
	if day == anchor {
		return true, nil
	}
	if s.Series == nil {
		return false, nil
	}
	series := s.Series
	if end, ok := series.End.Get(); ok && day.After(end) {
		return false, nil
	}

	var lim limit
	if count, ok := series.Count.Get(); ok {
		effective, err := m.effectiveCount(day, anchor, count, series)
		if err != nil {
			return false, err
		}
		lim = limit{max: effective, set: true}
	}

	return m.match(day, anchor, series.Pattern, lim)
}

func (m *Matcher) effectiveCount(day, anchor caldate.Date, count int, series *Series) (int, error) {
	if !m.opts.CanceledDatesExtendCount {
		return count - series.Canceled.CountBefore(day), nil
	}

	// Only canceled dates that the pattern actually produces hand their slot
	// back to the series.
	extra := 0
	for canceled := range series.Canceled {
		if !canceled.Before(day) || canceled.Before(anchor) {
			continue
		}
		if canceled == anchor {
			extra++
			continue
		}
		hit, err := m.match(canceled, anchor, series.Pattern, limit{})
		if err != nil {
			return 0, err
		}
		if hit {
			extra++
		}
	}
	return count + extra, nil
}

func (m *Matcher) match(day, anchor caldate.Date, p Pattern, lim limit) (bool, error) {
	switch p := p.(type) {
	case Daily:
		return matchDaily(day, anchor, p, lim), nil
	case Weekly:
		return matchWeekly(day, anchor, p, lim), nil
	case MonthlyByDay:
		return m.matchMonthDays(day, anchor, p, lim), nil
	case MonthlyByWeekday:
		return matchMonthWeekdays(day, anchor, p, lim), nil
	case Yearly:
		return matchYearly(day, anchor, p, lim), nil
	case nil:
		return false, fmt.Errorf("%w: series has no pattern", ErrInvalidPattern)
	default:
		return false, fmt.Errorf("%w: unsupported pattern type %T", ErrInvalidPattern, p)
	}
}

func matchDaily(day, anchor caldate.Date, p Daily, lim limit) bool {
	interval := normalizeInterval(p.Interval)
	elapsed := floorDiv(caldate.DaysBetween(anchor, day), interval)
	if lim.exceeded(elapsed + 1) {
		return false
	}
	return day == anchor.AddDays(max(elapsed, 0)*interval)
}

func matchYearly(day, anchor caldate.Date, p Yearly, lim limit) bool {
	interval := normalizeInterval(p.Interval)
	elapsed := floorDiv(caldate.YearsBetween(anchor, day), interval)
	if lim.exceeded(elapsed + 1) {
		return false
	}
	return day == anchor.AddYears(max(elapsed, 0)*interval)
}

func matchWeekly(day, anchor caldate.Date, p Weekly, lim limit) bool {
	interval := normalizeInterval(p.Interval)

	positions := make([]int, 0, len(p.Days))
	for _, wd := range p.Days {
		positions = append(positions, isoWeekday(wd))
	}
	if len(positions) == 0 {
		positions = append(positions, anchor.ISOWeekday())
	}
	positions = sortedUnique(positions)

	weeks := caldate.WeeksBetween(anchor.StartOfWeek(), day.StartOfWeek())
	if weeks < 0 || weeks%interval != 0 {
		return false
	}
	k := weeks / interval

	ordinal := k*len(positions) +
		countAtMost(positions, day.ISOWeekday()) -
		countBelow(positions, anchor.ISOWeekday())
	if lim.exceeded(ordinal) {
		return false
	}
	return contains(positions, day.ISOWeekday()) && day.After(anchor)
}

func (m *Matcher) matchMonthDays(day, anchor caldate.Date, p MonthlyByDay, lim limit) bool {
	days := p.Days
	if len(days) == 0 {
		days = []int{anchor.Day}
	}
	resolve := func(month caldate.Date) []int {
		return m.resolveMonthDays(days, month)
	}
	return matchMonthly(day, anchor, normalizeInterval(p.Interval), resolve, lim)
}

func matchMonthWeekdays(day, anchor caldate.Date, p MonthlyByWeekday, lim limit) bool {
	selections := p.Selections
	if len(selections) == 0 {
		selections = []WeekdaySelection{{}}
	}
	resolve := func(month caldate.Date) []int {
		return resolveWeekdays(selections, anchor, month)
	}
	return matchMonthly(day, anchor, normalizeInterval(p.Interval), resolve, lim)
}

// matchMonthly is shared by both monthly variants. resolve lists the
// selected days of month for the month starting at its argument.
func matchMonthly(day, anchor caldate.Date, interval int, resolve func(caldate.Date) []int, lim limit) bool {
	months := caldate.MonthsBetween(anchor, day)
	if months < 0 || months%interval != 0 {
		return false
	}
	k := months / interval

	startMonth := anchor.StartOfMonth()
	current := resolve(day.StartOfMonth())

	if lim.set {
		ordinal := countAtMost(current, day.Day) - countBelow(resolve(startMonth), anchor.Day)
		// Months differ in length, so each full interval is counted rather
		// than multiplied.
		for i := 0; i < k && !lim.exceeded(ordinal); i++ {
			ordinal += len(resolve(startMonth.AddMonths(i * interval)))
		}
		if lim.exceeded(ordinal) {
			return false
		}
	}
	return contains(current, day.Day) && day.After(anchor)
}

func (m *Matcher) resolveMonthDays(days []int, month caldate.Date) []int {
	last := month.DaysInMonth()
	out := make([]int, 0, len(days))
	for _, d := range days {
		switch {
		case d < 1:
			continue
		case d <= last:
			out = append(out, d)
		case m.opts.MonthDayOverflow == OverflowClamp:
			out = append(out, last)
		}
	}
	return sortedUnique(out)
}

func resolveWeekdays(selections []WeekdaySelection, anchor, month caldate.Date) []int {
	first := month.StartOfMonth()
	last := first.DaysInMonth()
	out := make([]int, 0, len(selections))
	for _, sel := range selections {
		wd := sel.Weekday.OrElse(anchor.Weekday())
		week := sel.Week.OrElse(anchor.WeekOfMonth())

		var d int
		if week == LastWeek {
			back := (int(first.EndOfMonth().Weekday()) - int(wd) + 7) % 7
			d = last - back
		} else {
			d = 1 + (int(wd)-int(first.Weekday())+7)%7 + 7*(week-1)
		}
		if d >= 1 && d <= last {
			out = append(out, d)
		}
	}
	return sortedUnique(out)
}

func isoWeekday(wd time.Weekday) int {
	if wd == time.Sunday {
		return 7
	}
	return int(wd)
}

func sortedUnique(values []int) []int {
	sort.Ints(values)
	out := values[:0]
	for i, v := range values {
		if i == 0 || v != values[i-1] {
			out = append(out, v)
		}
	}
	return out
}

func countAtMost(sorted []int, v int) int {
	return sort.SearchInts(sorted, v+1)
}

func countBelow(sorted []int, v int) int {
	return sort.SearchInts(sorted, v)
}

func contains(sorted []int, v int) bool {
	i := sort.SearchInts(sorted, v)
	return i < len(sorted) && sorted[i] == v
}

func floorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

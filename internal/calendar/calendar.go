// Package calendar builds the month grid, feed windows and single
// occurrence lookups on top of the recurrence engine.
package calendar

import (
	"errors"
	"fmt"
	"time"

	"eventcal/internal/caldate"
	"eventcal/internal/model"
	"eventcal/internal/recurrence"
)

var (
	ErrUnknownEvent = errors.New("calendar: unknown event")
	ErrNoOccurrence = errors.New("calendar: event does not occur on that day")
)

// ParseDayOr parses a YYYY-MM-DD token. Empty or malformed tokens yield
// fallback.
func ParseDayOr(token string, fallback caldate.Date) caldate.Date {
	if token == "" {
		return fallback
	}
	d, err := caldate.Parse(token)
	if err != nil {
		return fallback
	}
	return d
}

// InitialMonth picks the month a calendar opens on: the month of the first
// visible occurrence on or after referenceDay within lookahead days, else
// referenceDay's month.
func InitialMonth(m *recurrence.Matcher, referenceDay caldate.Date, lookahead int, events []model.Event) (caldate.Date, error) {
	var (
		first caldate.Date
		found bool
	)
	for _, ev := range events {
		window := lookahead
		if found {
			window = caldate.DaysBetween(referenceDay, first)
		}
		day, ok, err := recurrence.NextVisible(m, referenceDay, window, ev.Schedule())
		if err != nil {
			return caldate.Date{}, fmt.Errorf("event %q: %w", ev.Slug, err)
		}
		if ok && (!found || day.Before(first)) {
			first, found = day, true
		}
	}
	if !found {
		return referenceDay.StartOfMonth(), nil
	}
	return first.StartOfMonth(), nil
}

// Tile is one cell of the month grid.
type Tile struct {
	Day         caldate.Date
	InMonth     bool
	Today       bool
	Occurrences []model.Occurrence
}

// Month is a grid of whole weeks covering one calendar month.
type Month struct {
	Month    caldate.Date
	Previous caldate.Date
	Next     caldate.Date
	Weeks    [][]Tile
}

// GridRange is the span of whole weeks, starting on weekStart, that covers
// target's month.
func GridRange(target caldate.Date, weekStart time.Weekday) caldate.Range {
	first := target.StartOfMonth()
	from := first.StartOfWeekOn(weekStart)
	to := first.EndOfMonth().StartOfWeekOn(weekStart).AddDays(6)
	return caldate.Range{From: from, To: to}
}

// BuildMonth lays out target's month with the visible occurrences of events
// grouped by day.
func BuildMonth(m *recurrence.Matcher, target caldate.Date, weekStart time.Weekday, events []model.Event) (Month, error) {
	grid := GridRange(target, weekStart)
	occs, err := recurrence.Enumerate(m, grid, events)
	if err != nil {
		return Month{}, err
	}

	byDay := make(map[caldate.Date][]model.Occurrence)
	for _, o := range occs {
		byDay[o.Day] = append(byDay[o.Day], o)
	}

	first := target.StartOfMonth()
	out := Month{
		Month:    first,
		Previous: first.AddMonths(-1),
		Next:     first.AddMonths(1),
	}
	var week []Tile
	for _, day := range grid.Days() {
		week = append(week, Tile{
			Day:         day,
			InMonth:     day.Year == first.Year && day.Month == first.Month,
			Occurrences: byDay[day],
		})
		if len(week) == 7 {
			out.Weeks = append(out.Weeks, week)
			week = nil
		}
	}
	return out, nil
}

// MarkToday flags the tile for today, if the grid shows it.
func (mon *Month) MarkToday(today caldate.Date) {
	for i := range mon.Weeks {
		for j := range mon.Weeks[i] {
			mon.Weeks[i][j].Today = mon.Weeks[i][j].Day == today
		}
	}
}

// FeedWindow spans from the month of the earliest event start through
// referenceDay plus years.
func FeedWindow(referenceDay caldate.Date, years int, events []model.Event) caldate.Range {
	to := referenceDay.AddYears(years)
	from := referenceDay.StartOfMonth()
	for _, ev := range events {
		if d := caldate.FromTime(ev.Start).StartOfMonth(); d.Before(from) {
			from = d
		}
	}
	return caldate.Range{From: from, To: to}
}

// Detail evaluates one event on one day, including canceled and missed
// days, which come back flagged.
func Detail(m *recurrence.Matcher, slug string, day caldate.Date, events []model.Event) (model.Occurrence, error) {
	for _, ev := range events {
		if ev.Slug != slug {
			continue
		}
		occ, ok, err := recurrence.OccurrenceOn(m, day, ev)
		if err != nil {
			return model.Occurrence{}, fmt.Errorf("event %q: %w", slug, err)
		}
		if !ok {
			return model.Occurrence{}, fmt.Errorf("%w: %s on %s", ErrNoOccurrence, slug, day)
		}
		return occ, nil
	}
	return model.Occurrence{}, fmt.Errorf("%w: %s", ErrUnknownEvent, slug)
}

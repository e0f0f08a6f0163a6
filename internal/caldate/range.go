package caldate

import (
	"fmt"
	"sort"
)

// Range is an inclusive span of days.
type Range struct {
	From Date
	To   Date
}

// NewRange validates that from is not after to.
func NewRange(from, to Date) (Range, error) {
	if to.Before(from) {
		return Range{}, fmt.Errorf("caldate: range end %s is before start %s", to, from)
	}
	return Range{From: from, To: to}, nil
}

func (r Range) Contains(d Date) bool {
	return !d.Before(r.From) && !d.After(r.To)
}

// Len is the number of days in r; an inverted range is empty.
func (r Range) Len() int {
	n := DaysBetween(r.From, r.To) + 1
	if n < 0 {
		return 0
	}
	return n
}

// Days lists every day of r in order.
func (r Range) Days() []Date {
	days := make([]Date, 0, r.Len())
	for d := r.From; !d.After(r.To); d = d.AddDays(1) {
		days = append(days, d)
	}
	return days
}

// Set is a set of days. A nil Set is empty and safe to query.
type Set map[Date]struct{}

func NewSet(dates ...Date) Set {
	s := make(Set, len(dates))
	for _, d := range dates {
		s[d] = struct{}{}
	}
	return s
}

func (s Set) Has(d Date) bool {
	_, ok := s[d]
	return ok
}

// CountBefore returns how many members fall strictly before d.
func (s Set) CountBefore(d Date) int {
	n := 0
	for member := range s {
		if member.Before(d) {
			n++
		}
	}
	return n
}

// Sorted returns the members in ascending order.
func (s Set) Sorted() []Date {
	out := make([]Date, 0, len(s))
	for d := range s {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	return out
}

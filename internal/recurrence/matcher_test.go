package recurrence

import (
	"testing"
	"time"

	"github.com/samber/mo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"eventcal/internal/caldate"
)

func day(y int, m time.Month, d int) caldate.Date {
	return caldate.New(y, m, d)
}

// evening is an 18:00-20:00 schedule anchored on anchor.
func evening(anchor caldate.Date, series *Series) Schedule {
	start := anchor.Time().Add(18 * time.Hour)
	return Schedule{Start: start, End: start.Add(2 * time.Hour), Series: series}
}

func matchingDays(t *testing.T, m *Matcher, s Schedule, from, to caldate.Date) []caldate.Date {
	t.Helper()
	var out []caldate.Date
	for d := from; !d.After(to); d = d.AddDays(1) {
		ok, err := m.Matches(d, s)
		require.NoError(t, err)
		if ok {
			out = append(out, d)
		}
	}
	return out
}

func TestAnchorAlwaysMatches(t *testing.T) {
	m := NewMatcher(Options{})
	anchor := day(2024, time.January, 1) // Monday

	tests := []struct {
		name   string
		series *Series
	}{
		{"single", nil},
		{"weekday not selected", &Series{Pattern: Weekly{Days: []time.Weekday{time.Tuesday}}}},
		{"zero count", &Series{Pattern: Daily{}, Count: mo.Some(0)}},
		{"end before anchor", &Series{Pattern: Daily{}, End: mo.Some(day(2023, time.December, 1))}},
		{"canceled anchor", &Series{Pattern: Daily{}, Canceled: caldate.NewSet(anchor)}},
		{"missing pattern", &Series{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ok, err := m.Matches(anchor, evening(anchor, tt.series))
			require.NoError(t, err)
			assert.True(t, ok)
		})
	}
}

func TestSingleEventMatchesOnlyAnchor(t *testing.T) {
	m := NewMatcher(Options{})
	anchor := day(2024, time.March, 10)
	got := matchingDays(t, m, evening(anchor, nil), day(2024, time.March, 1), day(2024, time.March, 31))
	assert.Equal(t, []caldate.Date{anchor}, got)
}

func TestDaily(t *testing.T) {
	m := NewMatcher(Options{})
	anchor := day(2024, time.January, 1)

	t.Run("count", func(t *testing.T) {
		s := evening(anchor, &Series{Pattern: Daily{Interval: 1}, Count: mo.Some(3)})
		got := matchingDays(t, m, s, day(2023, time.December, 25), day(2024, time.January, 10))
		assert.Equal(t, []caldate.Date{anchor, day(2024, time.January, 2), day(2024, time.January, 3)}, got)
	})

	t.Run("interval and end", func(t *testing.T) {
		s := evening(anchor, &Series{Pattern: Daily{Interval: 2}, End: mo.Some(day(2024, time.January, 9))})
		got := matchingDays(t, m, s, day(2023, time.December, 25), day(2024, time.January, 20))
		assert.Equal(t, []caldate.Date{
			anchor,
			day(2024, time.January, 3),
			day(2024, time.January, 5),
			day(2024, time.January, 7),
			day(2024, time.January, 9),
		}, got)
	})

	t.Run("zero interval means every day", func(t *testing.T) {
		s := evening(anchor, &Series{Pattern: Daily{}, Count: mo.Some(2)})
		got := matchingDays(t, m, s, anchor, day(2024, time.January, 5))
		assert.Equal(t, []caldate.Date{anchor, day(2024, time.January, 2)}, got)
	})
}

func TestWeekly(t *testing.T) {
	m := NewMatcher(Options{})
	anchor := day(2024, time.January, 1) // Monday

	t.Run("selected days with count", func(t *testing.T) {
		s := evening(anchor, &Series{
			Pattern: Weekly{Interval: 1, Days: []time.Weekday{time.Wednesday, time.Monday}},
			Count:   mo.Some(4),
		})
		got := matchingDays(t, m, s, anchor, day(2024, time.January, 31))
		assert.Equal(t, []caldate.Date{
			anchor,
			day(2024, time.January, 3),
			day(2024, time.January, 8),
			day(2024, time.January, 10),
		}, got)
	})

	t.Run("every other week", func(t *testing.T) {
		s := evening(anchor, &Series{Pattern: Weekly{Interval: 2}})
		got := matchingDays(t, m, s, day(2023, time.December, 1), day(2024, time.February, 4))
		assert.Equal(t, []caldate.Date{
			anchor,
			day(2024, time.January, 15),
			day(2024, time.January, 29),
		}, got)
	})

	t.Run("sunday closes the iso week", func(t *testing.T) {
		s := evening(anchor, &Series{Pattern: Weekly{Interval: 2, Days: []time.Weekday{time.Sunday}}})
		got := matchingDays(t, m, s, anchor, day(2024, time.January, 31))
		assert.Equal(t, []caldate.Date{anchor, day(2024, time.January, 7), day(2024, time.January, 21)}, got)
	})

	t.Run("days before the anchor in its week", func(t *testing.T) {
		wed := day(2024, time.January, 3)
		s := evening(wed, &Series{Pattern: Weekly{Days: []time.Weekday{time.Monday, time.Friday}}, Count: mo.Some(3)})
		got := matchingDays(t, m, s, anchor, day(2024, time.January, 31))
		// The anchor is not a selected weekday, so it does not use up the count.
		assert.Equal(t, []caldate.Date{
			wed,
			day(2024, time.January, 5),
			day(2024, time.January, 8),
			day(2024, time.January, 12),
		}, got)
	})
}

func TestIntervalsFarFromAnchor(t *testing.T) {
	m := NewMatcher(Options{})
	anchor := day(2024, time.January, 1) // Monday
	from, to := day(2400, time.January, 1), day(2400, time.January, 31)

	biweekly := evening(anchor, &Series{Pattern: Weekly{Interval: 2}})
	assert.Equal(t, []caldate.Date{
		day(2400, time.January, 10),
		day(2400, time.January, 24),
	}, matchingDays(t, m, biweekly, from, to))

	daily := evening(anchor, &Series{Pattern: Daily{}})
	assert.Len(t, matchingDays(t, m, daily, from, to), 31)
}

func TestMonthlyByDay(t *testing.T) {
	anchor := day(2024, time.January, 31)
	s := evening(anchor, &Series{Pattern: MonthlyByDay{Interval: 1, Days: []int{31}}})

	t.Run("skip", func(t *testing.T) {
		got := matchingDays(t, NewMatcher(Options{}), s, anchor, day(2024, time.May, 31))
		assert.Equal(t, []caldate.Date{
			anchor,
			day(2024, time.March, 31),
			day(2024, time.May, 31),
		}, got)
	})

	t.Run("clamp", func(t *testing.T) {
		got := matchingDays(t, NewMatcher(Options{MonthDayOverflow: OverflowClamp}), s, anchor, day(2024, time.May, 31))
		assert.Equal(t, []caldate.Date{
			anchor,
			day(2024, time.February, 29),
			day(2024, time.March, 31),
			day(2024, time.April, 30),
			day(2024, time.May, 31),
		}, got)
	})

	t.Run("several days with count", func(t *testing.T) {
		first := day(2024, time.January, 1)
		s := evening(first, &Series{Pattern: MonthlyByDay{Interval: 2, Days: []int{15, 1}}, Count: mo.Some(5)})
		got := matchingDays(t, NewMatcher(Options{}), s, first, day(2024, time.December, 31))
		assert.Equal(t, []caldate.Date{
			first,
			day(2024, time.January, 15),
			day(2024, time.March, 1),
			day(2024, time.March, 15),
			day(2024, time.May, 1),
		}, got)
	})

	t.Run("defaults to anchor day", func(t *testing.T) {
		tenth := day(2024, time.January, 10)
		s := evening(tenth, &Series{Pattern: MonthlyByDay{}, Count: mo.Some(3)})
		got := matchingDays(t, NewMatcher(Options{}), s, tenth, day(2024, time.December, 31))
		assert.Equal(t, []caldate.Date{tenth, day(2024, time.February, 10), day(2024, time.March, 10)}, got)
	})
}

func TestMonthlyByWeekday(t *testing.T) {
	m := NewMatcher(Options{})
	anchor := day(2024, time.January, 9) // second Tuesday

	selections := []WeekdaySelection{
		{Weekday: mo.Some(time.Tuesday), Week: mo.Some(2)},
		{Weekday: mo.Some(time.Friday), Week: mo.Some(LastWeek)},
	}

	t.Run("nth and last", func(t *testing.T) {
		s := evening(anchor, &Series{Pattern: MonthlyByWeekday{Interval: 1, Selections: selections}})
		got := matchingDays(t, m, s, day(2024, time.January, 1), day(2024, time.March, 31))
		assert.Equal(t, []caldate.Date{
			anchor,
			day(2024, time.January, 26),
			day(2024, time.February, 13),
			day(2024, time.February, 23),
			day(2024, time.March, 12),
			day(2024, time.March, 29),
		}, got)
	})

	t.Run("count spans months", func(t *testing.T) {
		s := evening(anchor, &Series{Pattern: MonthlyByWeekday{Selections: selections}, Count: mo.Some(3)})
		got := matchingDays(t, m, s, day(2024, time.January, 1), day(2024, time.June, 30))
		assert.Equal(t, []caldate.Date{anchor, day(2024, time.January, 26), day(2024, time.February, 13)}, got)
	})

	t.Run("defaults to anchor weekday and week", func(t *testing.T) {
		s := evening(anchor, &Series{Pattern: MonthlyByWeekday{}})
		got := matchingDays(t, m, s, day(2024, time.January, 1), day(2024, time.April, 30))
		assert.Equal(t, []caldate.Date{
			anchor,
			day(2024, time.February, 13),
			day(2024, time.March, 12),
			day(2024, time.April, 9),
		}, got)
	})

	t.Run("fifth week only in long months", func(t *testing.T) {
		fifth := day(2024, time.January, 29) // fifth Monday
		s := evening(fifth, &Series{Pattern: MonthlyByWeekday{Selections: []WeekdaySelection{{Week: mo.Some(5)}}}})
		got := matchingDays(t, m, s, fifth, day(2024, time.June, 30))
		assert.Equal(t, []caldate.Date{fifth, day(2024, time.April, 29)}, got)
	})
}

func TestYearly(t *testing.T) {
	m := NewMatcher(Options{})

	t.Run("leap day anchor", func(t *testing.T) {
		leap := day(2024, time.February, 29)
		s := evening(leap, &Series{Pattern: Yearly{Interval: 1}})

		for _, tt := range []struct {
			day  caldate.Date
			want bool
		}{
			{day(2025, time.February, 28), true},
			{day(2025, time.March, 1), false},
			{day(2027, time.February, 28), true},
			{day(2028, time.February, 28), false},
			{day(2028, time.February, 29), true},
		} {
			ok, err := m.Matches(tt.day, s)
			require.NoError(t, err)
			assert.Equal(t, tt.want, ok, tt.day.String())
		}
	})

	t.Run("interval and count", func(t *testing.T) {
		anchor := day(2020, time.July, 4)
		s := evening(anchor, &Series{Pattern: Yearly{Interval: 2}, Count: mo.Some(3)})
		got := matchingDays(t, m, s, anchor, day(2030, time.December, 31))
		assert.Equal(t, []caldate.Date{anchor, day(2022, time.July, 4), day(2024, time.July, 4)}, got)
	})
}

func TestSeriesEndIsInclusive(t *testing.T) {
	m := NewMatcher(Options{})
	anchor := day(2024, time.January, 1)
	s := evening(anchor, &Series{Pattern: Daily{}, End: mo.Some(day(2024, time.January, 5))})

	ok, err := m.Matches(day(2024, time.January, 5), s)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = m.Matches(day(2024, time.January, 6), s)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCountPolicy(t *testing.T) {
	anchor := day(2024, time.January, 1)
	canceled := day(2024, time.January, 3)
	window, err := caldate.NewRange(anchor, day(2024, time.January, 31))
	require.NoError(t, err)

	visibleDays := func(t *testing.T, m *Matcher, series *Series) []caldate.Date {
		t.Helper()
		occs, err := Enumerate(m, window, []testEvent{{schedule: evening(anchor, series)}})
		require.NoError(t, err)
		days := make([]caldate.Date, 0, len(occs))
		for _, o := range occs {
			days = append(days, o.Day)
		}
		return days
	}
	daysExcept := func(from, to int, skip int) []caldate.Date {
		var out []caldate.Date
		for d := from; d <= to; d++ {
			if d != skip {
				out = append(out, day(2024, time.January, d))
			}
		}
		return out
	}

	t.Run("canceled dates reduce the count", func(t *testing.T) {
		series := &Series{Pattern: Daily{}, Count: mo.Some(10), Canceled: caldate.NewSet(canceled)}
		got := visibleDays(t, NewMatcher(Options{}), series)
		assert.Len(t, got, 8)
		assert.Equal(t, daysExcept(1, 9, 3), got)
	})

	t.Run("canceled dates extend the series", func(t *testing.T) {
		series := &Series{Pattern: Daily{}, Count: mo.Some(10), Canceled: caldate.NewSet(canceled)}
		got := visibleDays(t, NewMatcher(Options{CanceledDatesExtendCount: true}), series)
		assert.Len(t, got, 10)
		assert.Equal(t, daysExcept(1, 11, 3), got)
	})

	t.Run("canceled dates off the pattern do not extend", func(t *testing.T) {
		series := &Series{Pattern: Daily{Interval: 2}, Count: mo.Some(3), Canceled: caldate.NewSet(day(2024, time.January, 2))}
		got := visibleDays(t, NewMatcher(Options{CanceledDatesExtendCount: true}), series)
		assert.Equal(t, []caldate.Date{anchor, day(2024, time.January, 3), day(2024, time.January, 5)}, got)
	})

	t.Run("missed dates use up the count", func(t *testing.T) {
		series := &Series{Pattern: Daily{}, Count: mo.Some(10), Missed: caldate.NewSet(canceled)}
		for _, opts := range []Options{{}, {CanceledDatesExtendCount: true}} {
			got := visibleDays(t, NewMatcher(opts), series)
			assert.Len(t, got, 9)
			assert.Equal(t, daysExcept(1, 10, 3), got)
		}
	})
}

type bogusPattern struct{}

func (bogusPattern) pattern() {}

func TestInvalidPattern(t *testing.T) {
	m := NewMatcher(Options{})
	anchor := day(2024, time.January, 1)

	for name, series := range map[string]*Series{
		"missing": {},
		"unknown": {Pattern: bogusPattern{}},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := m.Matches(day(2024, time.January, 2), evening(anchor, series))
			assert.ErrorIs(t, err, ErrInvalidPattern)
		})
	}

	t.Run("reported by extend mode too", func(t *testing.T) {
		m := NewMatcher(Options{CanceledDatesExtendCount: true})
		series := &Series{Count: mo.Some(2), Canceled: caldate.NewSet(day(2024, time.January, 2))}
		_, err := m.Matches(day(2024, time.January, 5), evening(anchor, series))
		assert.ErrorIs(t, err, ErrInvalidPattern)
	})
}

func TestMatcherIsConcurrencySafe(t *testing.T) {
	m := NewMatcher(Options{MonthDayOverflow: OverflowClamp})
	anchor := day(2024, time.January, 31)
	s := evening(anchor, &Series{Pattern: MonthlyByDay{Days: []int{31}}, Count: mo.Some(6)})
	want := matchingDays(t, m, s, anchor, day(2024, time.December, 31))

	results := make(chan []caldate.Date, 8)
	for i := 0; i < cap(results); i++ {
		go func() {
			var out []caldate.Date
			for d := anchor; !d.After(day(2024, time.December, 31)); d = d.AddDays(1) {
				if ok, _ := m.Matches(d, s); ok {
					out = append(out, d)
				}
			}
			results <- out
		}()
	}
	for i := 0; i < cap(results); i++ {
		assert.Equal(t, want, <-results)
	}
}

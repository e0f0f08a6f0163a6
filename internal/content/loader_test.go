package content

import (
	"testing"
	"testing/fstest"
	"time"

	"github.com/samber/mo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"eventcal/internal/caldate"
	"eventcal/internal/recurrence"
)

const jamFile = `---
title: Bluegrass jam
description: Bring an instrument
headerImage: /images/jam.jpg
location:
  name: The Porch
  address: 2700 Colfax Ave
  website: https://porch.example
  latitude: 39.74
  longitude: -104.96
start: 2024-01-09T18:30:00
end: 2024-01-09T21:00
series:
  frequency:
    monthly:
      weekdays:
        - weekday: tuesday
          week: 2
        - weekday: Friday
          week: -1
  count: 12
  end: 2024-12-31
  canceledDates: [2024-02-13]
  missedDates:
    - "2024-03-29"
---

Pickers of every level welcome.
`

func TestParseFullDocument(t *testing.T) {
	ev, err := Parse("jam", []byte(jamFile))
	require.NoError(t, err)

	assert.Equal(t, "jam", ev.Slug)
	assert.Equal(t, "Bluegrass jam", ev.Title)
	assert.Equal(t, "Bring an instrument", ev.Description)
	assert.Equal(t, "/images/jam.jpg", ev.HeaderImage)
	assert.Equal(t, "Pickers of every level welcome.\n", ev.Body)

	assert.Equal(t, "2700 Colfax Ave", ev.Place.ICSLocation())
	assert.Equal(t, mo.Some(39.74), ev.Place.Latitude)
	assert.Equal(t, time.Date(2024, time.January, 9, 18, 30, 0, 0, time.UTC), ev.Start)
	assert.Equal(t, time.Date(2024, time.January, 9, 21, 0, 0, 0, time.UTC), ev.End)

	require.NotNil(t, ev.Series)
	assert.Equal(t, recurrence.MonthlyByWeekday{Interval: 1, Selections: []recurrence.WeekdaySelection{
		{Weekday: mo.Some(time.Tuesday), Week: mo.Some(2)},
		{Weekday: mo.Some(time.Friday), Week: mo.Some(recurrence.LastWeek)},
	}}, ev.Series.Pattern)
	assert.Equal(t, mo.Some(12), ev.Series.Count)
	assert.Equal(t, mo.Some(caldate.New(2024, time.December, 31)), ev.Series.End)
	assert.True(t, ev.Series.Canceled.Has(caldate.New(2024, time.February, 13)))
	assert.True(t, ev.Series.Missed.Has(caldate.New(2024, time.March, 29)))
}

func TestParsePatterns(t *testing.T) {
	tests := []struct {
		name      string
		frequency string
		want      recurrence.Pattern
	}{
		{"daily", "days: 2", recurrence.Daily{Interval: 2}},
		{"weekly", "weekly: {days: [monday, wednesday], weeks: 1}", recurrence.Weekly{
			Interval: 1, Days: []time.Weekday{time.Monday, time.Wednesday},
		}},
		{"weekly default day", "weekly: {}", recurrence.Weekly{Interval: 1}},
		{"monthly days", "monthly: {months: 1, days: [31]}", recurrence.MonthlyByDay{Interval: 1, Days: []int{31}}},
		{"monthly default", "monthly: {months: 3}", recurrence.MonthlyByDay{Interval: 3}},
		{"yearly", "years: 1", recurrence.Yearly{Interval: 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := "---\ntitle: T\nstart: 2024-01-01T10:00\nend: 2024-01-01T11:00\nseries:\n  frequency:\n    " + tt.frequency + "\n---\n"
			ev, err := Parse("t", []byte(doc))
			require.NoError(t, err)
			assert.Equal(t, tt.want, ev.Series.Pattern)
		})
	}
}

func TestParseRejects(t *testing.T) {
	base := "title: T\nstart: 2024-01-01T10:00\nend: 2024-01-01T11:00\n"
	tests := map[string]string{
		"no front matter":   "title: T\n",
		"unterminated":      "---\n" + base,
		"missing title":     "---\nstart: 2024-01-01T10:00\nend: 2024-01-01T11:00\n---\n",
		"missing end":       "---\ntitle: T\nstart: 2024-01-01T10:00\n---\n",
		"end before start":  "---\ntitle: T\nstart: 2024-01-01T10:00\nend: 2024-01-01T09:00\n---\n",
		"bad instant":       "---\ntitle: T\nstart: next tuesday\nend: 2024-01-01T09:00\n---\n",
		"no frequency":      "---\n" + base + "series: {count: 2}\n---\n",
		"two variants":      "---\n" + base + "series:\n  frequency: {days: 1, years: 1}\n---\n",
		"empty frequency":   "---\n" + base + "series:\n  frequency: {}\n---\n",
		"unknown weekday":   "---\n" + base + "series:\n  frequency:\n    weekly: {days: [funday]}\n---\n",
		"zero interval":     "---\n" + base + "series:\n  frequency: {days: 0}\n---\n",
		"week out of range": "---\n" + base + "series:\n  frequency:\n    monthly: {weekdays: [{week: 6}]}\n---\n",
		"day out of range":  "---\n" + base + "series:\n  frequency:\n    monthly: {days: [32]}\n---\n",
		"days and weekdays": "---\n" + base + "series:\n  frequency:\n    monthly: {days: [1], weekdays: [{week: 1}]}\n---\n",
		"bad canceled date": "---\n" + base + "series:\n  frequency: {days: 1}\n  canceledDates: [soon]\n---\n",
		"negative count":    "---\n" + base + "series:\n  frequency: {days: 1}\n  count: -1\n---\n",
		"malformed yaml":    "---\ntitle: [\n---\n",
	}
	for name, doc := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Parse("t", []byte(doc))
			assert.ErrorIs(t, err, ErrInvalidEvent)
		})
	}
}

func TestParseInstant(t *testing.T) {
	want := time.Date(2024, time.May, 4, 19, 0, 0, 0, time.UTC)
	for _, s := range []string{"2024-05-04T19:00:00", "2024-05-04T19:00", "2024-05-04 19:00", "2024-05-04T19:00:00-06:00"} {
		got, err := ParseInstant(s)
		require.NoError(t, err, s)
		assert.Equal(t, want, got, s)
	}

	got, err := ParseInstant("2024-05-04")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, time.May, 4, 0, 0, 0, 0, time.UTC), got)
}

func TestLoadFS(t *testing.T) {
	fsys := fstest.MapFS{
		"b-jam.md":    {Data: []byte(jamFile)},
		"a-once.md":   {Data: []byte("---\ntitle: Once\nstart: 2024-02-01T10:00\nend: 2024-02-01T12:00\nlocationAddress: 1 Main St\n---\n")},
		"broken.md":   {Data: []byte("---\ntitle: Broken\n---\n")},
		"notes.txt":   {Data: []byte("ignored")},
		"drafts/x.md": {Data: []byte("ignored")},
	}

	events, err := LoadFS(fsys)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidEvent)
	assert.Contains(t, err.Error(), "broken.md")

	require.Len(t, events, 2)
	assert.Equal(t, "a-once", events[0].Slug)
	assert.Nil(t, events[0].Series)
	assert.Equal(t, "1 Main St", events[0].Place.Address)
	assert.Equal(t, "b-jam", events[1].Slug)
}

func TestRenderBody(t *testing.T) {
	html, err := RenderBody("Hello **world**\n\n<script>alert(1)</script>\n")
	require.NoError(t, err)
	assert.Contains(t, html, "<strong>world</strong>")
	assert.NotContains(t, html, "<script>")
}

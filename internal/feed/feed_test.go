package feed

import (
	"bytes"
	"strings"
	"testing"
	"time"

	ical "github.com/arran4/golang-ical"
	"github.com/beevik/etree"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"eventcal/internal/caldate"
	"eventcal/internal/model"
)

func occurrences() []model.Occurrence {
	jam := model.Event{
		Slug:        "jam",
		Title:       "Tuesday jam",
		Description: "Bring an instrument",
		Place:       model.Place{Address: "2700 Colfax Ave"},
	}
	at := func(d int, hour int) time.Time {
		return time.Date(2024, time.January, d, hour, 0, 0, 0, time.UTC)
	}
	return []model.Occurrence{
		{Event: jam, Day: caldate.New(2024, time.January, 9), Start: at(9, 19), End: at(9, 21)},
		{Event: jam, Day: caldate.New(2024, time.January, 16), Start: at(16, 19), End: at(16, 21), Canceled: true},
		{Event: jam, Day: caldate.New(2024, time.January, 23), Start: at(23, 19), End: at(23, 21), Missed: true},
		{Event: jam, Day: caldate.New(2024, time.January, 30), Start: at(30, 19), End: at(30, 21)},
	}
}

func TestWriteICS(t *testing.T) {
	var buf bytes.Buffer
	stamp := time.Date(2024, time.January, 1, 12, 0, 0, 0, time.UTC)
	err := WriteICS(&buf, Calendar{Name: "Jams", BaseURL: "https://jams.example/"}, occurrences(), stamp)
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "METHOD:REQUEST")
	assert.Contains(t, out, "X-WR-CALNAME:Jams")

	cal, err := ical.ParseCalendar(strings.NewReader(out))
	require.NoError(t, err)
	events := cal.Events()
	require.Len(t, events, 2, "canceled and missed occurrences are left out")

	first := events[0]
	assert.Equal(t, "20240109T190000", first.GetProperty(ical.ComponentPropertyDtStart).Value)
	assert.Equal(t, "20240109T210000", first.GetProperty(ical.ComponentPropertyDtEnd).Value)
	assert.Equal(t, "Tuesday jam", first.GetProperty(ical.ComponentPropertySummary).Value)
	assert.Equal(t, "2700 Colfax Ave", first.GetProperty(ical.ComponentPropertyLocation).Value)
	assert.Equal(t, "https://jams.example/event/2024-01-09/jam", first.GetProperty(ical.ComponentPropertyUrl).Value)
	assert.Equal(t, OccurrenceUID(occurrences()[0]), first.Id())
	assert.NotEqual(t, first.Id(), events[1].Id())
}

func TestOccurrenceUIDIsStable(t *testing.T) {
	a := occurrences()[0]
	b := a
	b.Start = b.Start.Add(time.Hour)
	assert.Equal(t, OccurrenceUID(a), OccurrenceUID(b))
	assert.NotEqual(t, OccurrenceUID(a), OccurrenceUID(occurrences()[3]))
}

func TestWriteRSS(t *testing.T) {
	var buf bytes.Buffer
	err := WriteRSS(&buf, Channel{Title: "Jams", Description: "Upcoming jams", Link: "https://jams.example"}, occurrences())
	require.NoError(t, err)

	doc := etree.NewDocument()
	require.NoError(t, doc.ReadFromBytes(buf.Bytes()))

	rss := doc.SelectElement("rss")
	require.NotNil(t, rss)
	assert.Equal(t, "2.0", rss.SelectAttrValue("version", ""))

	channel := rss.SelectElement("channel")
	require.NotNil(t, channel)
	assert.Equal(t, "Jams", channel.SelectElement("title").Text())

	items := channel.SelectElements("item")
	require.Len(t, items, 4)
	assert.Equal(t, "Tuesday jam", items[0].SelectElement("title").Text())
	assert.Equal(t, "https://jams.example/event/2024-01-09/jam", items[0].SelectElement("link").Text())
	assert.Equal(t, "Tue, 09 Jan 2024 00:00:00 +0000", items[0].SelectElement("pubDate").Text())
	assert.Equal(t, "Bring an instrument", items[0].SelectElement("description").Text())
	assert.Equal(t, "Canceled: Tuesday jam", items[1].SelectElement("title").Text())
	assert.Equal(t, "Missed: Tuesday jam", items[2].SelectElement("title").Text())
}

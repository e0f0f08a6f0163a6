package ics

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"

	appLog "eventcal/internal/log"
)

// ParsedEvent is the normalized representation of a VEVENT. Times are
// wall-clock values in the event's own zone, re-expressed in UTC.
type ParsedEvent struct {
	Source Source

	UID string

	Summary     string
	Description string
	Location    string
	URL         string

	Start  time.Time
	End    time.Time
	AllDay bool

	RawRRule   string
	ExDates    []time.Time
	IsOverride bool // true if the VEVENT carries a RECURRENCE-ID
}

// ParseICS parses a single ICS payload. VEVENTs that cannot be read are
// logged and skipped.
func ParseICS(src Source, body []byte) ([]ParsedEvent, error) {
	if len(body) == 0 {
		return nil, errors.New("empty ICS body")
	}

	cal, err := ical.ParseCalendar(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("ics %s: %w", src.ID, err)
	}

	events := make([]ParsedEvent, 0)
	for _, comp := range cal.Events() {
		ev, perr := parseVEvent(src, comp)
		if perr != nil {
			appLog.Error("ics vevent parse failed", perr, "id", src.ID, "url", redactURL(src.URL))
			continue
		}
		events = append(events, ev)
	}

	appLog.Debug("ics parse completed", "id", src.ID, "event_count", len(events))
	return events, nil
}

func parseVEvent(src Source, ve *ical.VEvent) (ParsedEvent, error) {
	out := ParsedEvent{Source: src}

	uidProp := ve.GetProperty(ical.ComponentPropertyUniqueId)
	if uidProp == nil || uidProp.Value == "" {
		return out, errors.New("missing UID")
	}
	out.UID = uidProp.Value

	out.Summary = propertyValue(ve, ical.ComponentPropertySummary)
	out.Description = propertyValue(ve, ical.ComponentPropertyDescription)
	out.Location = propertyValue(ve, ical.ComponentPropertyLocation)
	out.URL = propertyValue(ve, ical.ComponentPropertyUrl)

	dtStart := ve.GetProperty(ical.ComponentPropertyDtStart)
	if dtStart == nil {
		return out, fmt.Errorf("%s: missing DTSTART", out.UID)
	}
	start, err := ve.GetStartAt()
	if err != nil {
		return out, fmt.Errorf("%s: DTSTART: %w", out.UID, err)
	}
	out.Start = wallClock(start)
	out.AllDay = isDateValue(dtStart)

	if end, err := ve.GetEndAt(); err == nil {
		out.End = wallClock(end)
	} else if out.AllDay {
		out.End = out.Start.AddDate(0, 0, 1)
	} else {
		out.End = out.Start
	}
	if out.End.Before(out.Start) {
		out.End = out.Start
	}

	out.RawRRule = propertyValue(ve, ical.ComponentPropertyRrule)

	zone := zoneOf(dtStart)
	for _, p := range ve.GetProperties(ical.ComponentPropertyExdate) {
		for _, part := range strings.Split(p.Value, ",") {
			if t, err := parseICSTime(part, zoneOf(p), zone); err == nil {
				out.ExDates = append(out.ExDates, t)
			}
		}
	}

	out.IsOverride = ve.GetProperty(ical.ComponentProperty("RECURRENCE-ID")) != nil
	return out, nil
}

func propertyValue(ve *ical.VEvent, prop ical.ComponentProperty) string {
	if p := ve.GetProperty(prop); p != nil {
		return p.Value
	}
	return ""
}

func isDateValue(p *ical.IANAProperty) bool {
	if vs, ok := p.ICalParameters["VALUE"]; ok && len(vs) > 0 && strings.EqualFold(vs[0], "DATE") {
		return true
	}
	return !strings.Contains(p.Value, "T")
}

// wallClock drops the zone of t but keeps its date and time of day.
func wallClock(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), 0, time.UTC)
}

// zoneOf returns the zone named by the TZID parameter of p, or UTC.
func zoneOf(p *ical.IANAProperty) *time.Location {
	if vs, ok := p.ICalParameters["TZID"]; ok && len(vs) > 0 {
		if loc, err := time.LoadLocation(vs[0]); err == nil {
			return loc
		}
	}
	return time.UTC
}

// parseICSTime reads a DATE or DATE-TIME value written in zone from and
// returns its wall clock in zone to. UTC values ignore from. DATE values are
// returned as is.
func parseICSTime(v string, from, to *time.Location) (time.Time, error) {
	v = strings.TrimSpace(v)
	if t, err := time.Parse("20060102T150405Z", v); err == nil {
		return wallClock(t.In(to)), nil
	}
	if t, err := time.ParseInLocation("20060102T150405", v, from); err == nil {
		return wallClock(t.In(to)), nil
	}
	if t, err := time.Parse("20060102", v); err == nil {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("unrecognized ICS time %q", v)
}

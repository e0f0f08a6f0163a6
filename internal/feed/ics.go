// Package feed renders occurrences as iCalendar and RSS documents.
package feed

import (
	"io"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"
	"github.com/google/uuid"

	"eventcal/internal/model"
)

const (
	productID    = "-//eventcal//calendar//EN"
	floatingTime = "20060102T150405"
)

// uidNamespace scopes the UIDs of exported occurrences.
var uidNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("eventcal:occurrence"))

// OccurrenceUID is stable for a given slug and day across exports.
func OccurrenceUID(o model.Occurrence) string {
	return uuid.NewSHA1(uidNamespace, []byte(o.Event.Slug+"/"+o.Day.Format())).String()
}

// Calendar describes the exported VCALENDAR.
type Calendar struct {
	Name string
	// BaseURL prefixes occurrence paths in the URL property. Optional.
	BaseURL string
}

// WriteICS writes one VEVENT per visible occurrence. Start and end are
// floating times, since events carry no zone. stamp fills DTSTAMP.
func WriteICS(w io.Writer, c Calendar, occs []model.Occurrence, stamp time.Time) error {
	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodRequest)
	cal.SetProductId(productID)
	if c.Name != "" {
		cal.SetXWRCalName(c.Name)
	}

	for _, o := range occs {
		if !o.Visible() {
			continue
		}
		ev := cal.AddEvent(OccurrenceUID(o))
		ev.SetDtStampTime(stamp)
		ev.SetProperty(ical.ComponentPropertyDtStart, o.Start.Format(floatingTime))
		ev.SetProperty(ical.ComponentPropertyDtEnd, o.End.Format(floatingTime))
		ev.SetSummary(o.Event.Title)
		if o.Event.Description != "" {
			ev.SetDescription(o.Event.Description)
		}
		if loc := o.Event.Place.ICSLocation(); loc != "" {
			ev.SetLocation(loc)
		}
		if c.BaseURL != "" {
			ev.SetURL(strings.TrimRight(c.BaseURL, "/") + model.OccurrencePath(o.Day, o.Event.Slug))
		}
	}

	return cal.SerializeTo(w)
}

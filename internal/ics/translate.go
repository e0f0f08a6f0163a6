package ics

import (
	"strings"

	"github.com/google/uuid"

	"eventcal/internal/caldate"
	appLog "eventcal/internal/log"
	"eventcal/internal/model"
	"eventcal/internal/recurrence"
)

// uidNamespace scopes the UUIDs derived from subscription UIDs.
var uidNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("eventcal:ics-subscription"))

// Slug derives a stable, URL-safe slug for a subscribed event.
func Slug(sourceID, uid string) string {
	id := uuid.NewSHA1(uidNamespace, []byte(uid))
	return sourceID + "-" + strings.ReplaceAll(id.String(), "-", "")[:12]
}

// ToEvents converts parsed VEVENTs into catalog events. Overridden
// instances (RECURRENCE-ID) and rules the recurrence engine cannot express
// are logged and skipped; a second VEVENT with an already seen UID is
// dropped.
func ToEvents(parsed []ParsedEvent) []model.Event {
	events := make([]model.Event, 0, len(parsed))
	seen := make(map[string]struct{}, len(parsed))

	for _, p := range parsed {
		if p.IsOverride {
			appLog.Warn("ics: skipping overridden instance", "id", p.Source.ID, "uid", p.UID)
			continue
		}
		slug := Slug(p.Source.ID, p.UID)
		if _, dup := seen[slug]; dup {
			appLog.Warn("ics: duplicate UID", "id", p.Source.ID, "uid", p.UID)
			continue
		}

		ev := model.Event{
			Slug:        slug,
			Title:       p.Summary,
			Description: p.Description,
			Place:       model.Place{Address: p.Location, Website: p.URL},
			Start:       p.Start,
			End:         p.End,
			SourceID:    p.Source.ID,
		}
		if ev.Title == "" {
			ev.Title = "(untitled)"
		}

		if p.RawRRule != "" {
			series, err := recurrence.FromRRule(p.RawRRule, caldate.FromTime(p.Start))
			if err != nil {
				appLog.Error("ics: skipping event with unsupported rule", err, "id", p.Source.ID, "uid", p.UID, "rrule", p.RawRRule)
				continue
			}
			// EXDATE removes an instance without returning it to COUNT,
			// which is how missed dates behave.
			if len(p.ExDates) > 0 {
				series.Missed = make(caldate.Set, len(p.ExDates))
				for _, ex := range p.ExDates {
					series.Missed[caldate.FromTime(ex)] = struct{}{}
				}
			}
			ev.Series = series
		}

		if err := ev.Validate(); err != nil {
			appLog.Error("ics: skipping invalid event", err, "id", p.Source.ID, "uid", p.UID)
			continue
		}
		seen[slug] = struct{}{}
		events = append(events, ev)
	}
	return events
}

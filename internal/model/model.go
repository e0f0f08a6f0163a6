package model

import (
	"fmt"
	"strconv"
	"time"

	"github.com/samber/mo"

	"eventcal/internal/caldate"
	"eventcal/internal/recurrence"
)

// LocalLayout renders zone-naive instants.
const LocalLayout = "2006-01-02T15:04:05"

// Place is where an event happens. Every field is optional.
type Place struct {
	Name      string
	Address   string
	Map       string
	Link      string
	Website   string
	Latitude  mo.Option[float64]
	Longitude mo.Option[float64]
}

// ICSLocation picks the LOCATION text for calendar exports: the address,
// else the map link, else a geo: URI, else "".
func (p Place) ICSLocation() string {
	switch {
	case p.Address != "":
		return p.Address
	case p.Map != "":
		return p.Map
	}
	lat, okLat := p.Latitude.Get()
	lon, okLon := p.Longitude.Get()
	if okLat && okLon {
		return "geo:" + strconv.FormatFloat(lat, 'f', -1, 64) + "," + strconv.FormatFloat(lon, 'f', -1, 64)
	}
	return ""
}

// Event is one entry of the catalog, either authored as a content file or
// imported from an ICS subscription.
type Event struct {
	// Slug identifies the event in URLs. Unique within a catalog.
	Slug        string
	Title       string
	Description string
	// Body is the Markdown below the front matter.
	Body        string
	HeaderImage string
	Place       Place

	// Start and End are wall-clock times stored in UTC; the zone carries no
	// meaning.
	Start time.Time
	End   time.Time

	// Series is nil for one-off events.
	Series *recurrence.Series

	// SourceID names the ICS subscription the event came from; empty for
	// content files.
	SourceID string
}

func (e Event) Schedule() recurrence.Schedule {
	return recurrence.Schedule{Start: e.Start, End: e.End, Series: e.Series}
}

// Validate checks the invariants every event in a catalog must hold.
func (e Event) Validate() error {
	switch {
	case e.Slug == "":
		return fmt.Errorf("event has no slug")
	case e.Title == "":
		return fmt.Errorf("event %q has no title", e.Slug)
	case e.Start.IsZero() || e.End.IsZero():
		return fmt.Errorf("event %q needs both start and end", e.Slug)
	case e.End.Before(e.Start):
		return fmt.Errorf("event %q ends before it starts", e.Slug)
	}
	return nil
}

// Occurrence is one concrete instance of an Event.
type Occurrence = recurrence.Occurrence[Event]

// OccurrenceView is the JSON shape of an occurrence served by the API.
type OccurrenceView struct {
	Slug        string       `json:"slug"`
	Title       string       `json:"title"`
	Description string       `json:"description,omitempty"`
	HeaderImage string       `json:"header_image,omitempty"`
	Location    string       `json:"location,omitempty"`
	Website     string       `json:"website,omitempty"`
	Day         caldate.Date `json:"date"`
	Start       string       `json:"start"`
	End         string       `json:"end"`
	Canceled    bool         `json:"canceled,omitempty"`
	Missed      bool         `json:"missed,omitempty"`
	// Path is the per-occurrence page, /event/<date>/<slug>.
	Path string `json:"path"`
}

func NewOccurrenceView(o Occurrence) OccurrenceView {
	return OccurrenceView{
		Slug:        o.Event.Slug,
		Title:       o.Event.Title,
		Description: o.Event.Description,
		HeaderImage: o.Event.HeaderImage,
		Location:    o.Event.Place.ICSLocation(),
		Website:     o.Event.Place.Website,
		Day:         o.Day,
		Start:       o.Start.Format(LocalLayout),
		End:         o.End.Format(LocalLayout),
		Canceled:    o.Canceled,
		Missed:      o.Missed,
		Path:        OccurrencePath(o.Day, o.Event.Slug),
	}
}

// OccurrencePath is the site-relative link of one occurrence.
func OccurrencePath(day caldate.Date, slug string) string {
	return "/event/" + day.Format() + "/" + slug
}

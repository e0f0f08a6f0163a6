package web

import (
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"eventcal/internal/caldate"
	"eventcal/internal/calendar"
	"eventcal/internal/content"
	appLog "eventcal/internal/log"
	"eventcal/internal/model"
	"eventcal/internal/recurrence"
)

// defaultRangeDays is the span of /api/occurrences when "to" is omitted.
const defaultRangeDays = 31

// month resolves the ?date= token of calendar views: a valid day selects
// its month, anything else the initial month.
func (s *Server) month(r *http.Request, events []model.Event) (calendar.Month, error) {
	today := s.today()
	target, err := caldate.Parse(r.URL.Query().Get("date"))
	if err != nil {
		target, err = calendar.InitialMonth(s.matcher, today, s.cfg.InitialLookaheadDays, events)
		if err != nil {
			return calendar.Month{}, err
		}
	}
	m, err := calendar.BuildMonth(s.matcher, target, s.cfg.WeekStartDay(), events)
	if err != nil {
		return calendar.Month{}, err
	}
	m.MarkToday(today)
	return m, nil
}

// handleCalendar returns the month grid.
//
// GET /api/calendar?date=YYYY-MM-DD
func (s *Server) handleCalendar(w http.ResponseWriter, r *http.Request) {
	m, err := s.month(r, s.store.Current().Events)
	if err != nil {
		appLog.Error("api calendar: build failed", err)
		writeError(w, http.StatusInternalServerError, "failed to build calendar")
		return
	}
	writeJSON(w, http.StatusOK, m.View())
}

type occurrencesResponse struct {
	From        caldate.Date           `json:"from"`
	To          caldate.Date           `json:"to"`
	Truncated   bool                   `json:"truncated,omitempty"`
	Occurrences []model.OccurrenceView `json:"occurrences"`
}

// handleOccurrences lists occurrences in a day range.
//
// GET /api/occurrences?from=YYYY-MM-DD&to=YYYY-MM-DD[&all=1]
//   - from: defaults to today
//   - to:   defaults to from + 30 days; spans longer than max_range_days
//     are cut short
//   - all:  include canceled and missed occurrences
//
// Malformed tokens fall back to their defaults. Only an end before the start
// is rejected.
func (s *Server) handleOccurrences(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	from := calendar.ParseDayOr(q.Get("from"), s.today())
	to := calendar.ParseDayOr(q.Get("to"), from.AddDays(defaultRangeDays-1))
	rng, err := caldate.NewRange(from, to)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	resp := occurrencesResponse{}
	if rng.Len() > s.cfg.MaxRangeDays {
		rng.To = rng.From.AddDays(s.cfg.MaxRangeDays - 1)
		resp.Truncated = true
	}
	resp.From, resp.To = rng.From, rng.To

	events := s.store.Current().Events
	enumerate := recurrence.Enumerate[model.Event]
	if q.Get("all") == "1" {
		enumerate = recurrence.EnumerateAll[model.Event]
	}
	occs, err := enumerate(s.matcher, rng, events)
	if err != nil {
		appLog.Error("api occurrences: enumerate failed", err)
		writeError(w, http.StatusInternalServerError, "failed to enumerate occurrences")
		return
	}

	resp.Occurrences = make([]model.OccurrenceView, len(occs))
	for i, o := range occs {
		resp.Occurrences[i] = model.NewOccurrenceView(o)
	}
	writeJSON(w, http.StatusOK, resp)
}

type placeView struct {
	Name      string   `json:"name,omitempty"`
	Address   string   `json:"address,omitempty"`
	Map       string   `json:"map,omitempty"`
	Link      string   `json:"link,omitempty"`
	Website   string   `json:"website,omitempty"`
	Latitude  *float64 `json:"latitude,omitempty"`
	Longitude *float64 `json:"longitude,omitempty"`
}

type eventDetailResponse struct {
	Occurrence model.OccurrenceView `json:"occurrence"`
	Place      placeView            `json:"place"`
	BodyHTML   string               `json:"body_html,omitempty"`
	RRule      string               `json:"rrule,omitempty"`
	Source     string               `json:"source,omitempty"`
}

// occurrence resolves the {slug} and day of a detail request. An empty or
// malformed token picks the next visible occurrence from today.
func (s *Server) occurrence(slug, token string) (model.Occurrence, int, error) {
	snap := s.store.Current()
	ev, ok := snap.Event(slug)
	if !ok {
		return model.Occurrence{}, http.StatusNotFound, calendar.ErrUnknownEvent
	}

	day, err := caldate.Parse(token)
	if err != nil {
		next, found, err := recurrence.NextVisible(s.matcher, s.today(), s.cfg.InitialLookaheadDays, ev.Schedule())
		if err != nil {
			return model.Occurrence{}, http.StatusInternalServerError, err
		}
		if !found {
			return model.Occurrence{}, http.StatusNotFound, calendar.ErrNoOccurrence
		}
		day = next
	}

	occ, err := calendar.Detail(s.matcher, slug, day, []model.Event{ev})
	switch {
	case errors.Is(err, calendar.ErrNoOccurrence), errors.Is(err, calendar.ErrUnknownEvent):
		return model.Occurrence{}, http.StatusNotFound, err
	case err != nil:
		return model.Occurrence{}, http.StatusInternalServerError, err
	}
	return occ, http.StatusOK, nil
}

// handleEventDetail returns one occurrence of an event.
//
// GET /api/events/{slug}?date=YYYY-MM-DD
func (s *Server) handleEventDetail(w http.ResponseWriter, r *http.Request) {
	slug := mux.Vars(r)["slug"]
	occ, status, err := s.occurrence(slug, r.URL.Query().Get("date"))
	if err != nil {
		if status == http.StatusInternalServerError {
			appLog.Error("api event detail failed", err, "slug", slug)
		}
		writeError(w, status, err.Error())
		return
	}

	ev := occ.Event
	resp := eventDetailResponse{
		Occurrence: model.NewOccurrenceView(occ),
		Place: placeView{
			Name:      ev.Place.Name,
			Address:   ev.Place.Address,
			Map:       ev.Place.Map,
			Link:      ev.Place.Link,
			Website:   ev.Place.Website,
			Latitude:  ev.Place.Latitude.ToPointer(),
			Longitude: ev.Place.Longitude.ToPointer(),
		},
		Source: ev.SourceID,
	}
	if ev.Series != nil {
		if rule, err := recurrence.RRuleText(ev.Schedule()); err == nil {
			resp.RRule = rule
		} else {
			appLog.Warn("api event detail: no rrule", "slug", slug, "err", err)
		}
	}
	if ev.Body != "" {
		body, err := content.RenderBody(ev.Body)
		if err != nil {
			appLog.Error("api event detail: render failed", err, "slug", slug)
		}
		resp.BodyHTML = body
	}
	writeJSON(w, http.StatusOK, resp)
}

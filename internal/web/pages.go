package web

import (
	"bytes"
	"html/template"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"eventcal/internal/calendar"
	"eventcal/internal/content"
	appLog "eventcal/internal/log"
	"eventcal/internal/model"
)

var templateFuncs = template.FuncMap{
	"clock": func(t time.Time) string { return t.Format("15:04") },
	"monthTitle": func(m calendar.Month) string {
		return m.Month.Time().Format("January 2006")
	},
	"weekdays": func(m calendar.Month) []string {
		if len(m.Weeks) == 0 {
			return nil
		}
		names := make([]string, 0, 7)
		for _, t := range m.Weeks[0] {
			names = append(names, t.Day.Weekday().String()[:3])
		}
		return names
	},
	"path": model.OccurrencePath,
}

type calendarPage struct {
	Site  string
	Month calendar.Month
}

type eventPage struct {
	Site       string
	Occurrence model.Occurrence
	Location   string
	Body       template.HTML
}

// handleCalendarPage renders the month grid as HTML. The root element
// carries data-ready="true" once the grid is complete, which snapshot
// capture waits for.
//
// GET /calendar?date=YYYY-MM-DD
func (s *Server) handleCalendarPage(w http.ResponseWriter, r *http.Request) {
	m, err := s.month(r, s.store.Current().Events)
	if err != nil {
		appLog.Error("calendar page: build failed", err)
		http.Error(w, "failed to build calendar", http.StatusInternalServerError)
		return
	}
	s.render(w, "calendar.html", calendarPage{Site: s.cfg.Site.Title, Month: m})
}

// handleEventPage renders one occurrence.
//
// GET /event/{date}/{slug}
func (s *Server) handleEventPage(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	occ, status, err := s.occurrence(vars["slug"], vars["date"])
	if err != nil {
		http.Error(w, err.Error(), status)
		return
	}

	page := eventPage{
		Site:       s.cfg.Site.Title,
		Occurrence: occ,
		Location:   occ.Event.Place.ICSLocation(),
	}
	if occ.Event.Body != "" {
		body, err := content.RenderBody(occ.Event.Body)
		if err != nil {
			appLog.Error("event page: render failed", err, "slug", occ.Event.Slug)
		}
		// goldmark drops raw HTML from the source, so its output is safe.
		page.Body = template.HTML(body)
	}
	s.render(w, "event.html", page)
}

func (s *Server) render(w http.ResponseWriter, name string, data any) {
	var buf bytes.Buffer
	if err := s.pages.ExecuteTemplate(&buf, name, data); err != nil {
		appLog.Error("template render failed", err, "template", name)
		http.Error(w, "failed to render page", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(buf.Bytes())
}

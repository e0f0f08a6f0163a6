package web

import (
	"bytes"
	"net/http"

	"github.com/gorilla/mux"

	"eventcal/internal/calendar"
	"eventcal/internal/feed"
	appLog "eventcal/internal/log"
	"eventcal/internal/model"
	"eventcal/internal/recurrence"
)

func (s *Server) feedOccurrences(withExceptions bool) ([]model.Occurrence, error) {
	events := s.store.Current().Events
	window := calendar.FeedWindow(s.today(), s.cfg.FeedHorizonYears, events)
	if withExceptions {
		return recurrence.EnumerateAll(s.matcher, window, events)
	}
	return recurrence.Enumerate(s.matcher, window, events)
}

func (s *Server) icsCalendar() feed.Calendar {
	return feed.Calendar{Name: s.cfg.Site.Title, BaseURL: s.cfg.Site.URL}
}

// handleCalendarFeed serves every visible occurrence of the feed window.
//
// GET /events.ics
func (s *Server) handleCalendarFeed(w http.ResponseWriter, _ *http.Request) {
	occs, err := s.feedOccurrences(false)
	if err != nil {
		appLog.Error("ics feed: enumerate failed", err)
		writeError(w, http.StatusInternalServerError, "failed to build calendar feed")
		return
	}
	s.writeICS(w, "events.ics", occs)
}

// handleOccurrenceICS serves a single occurrence as an ICS download.
//
// GET /event/{date}/{slug}.ics
func (s *Server) handleOccurrenceICS(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	occ, status, err := s.occurrence(vars["slug"], vars["date"])
	if err != nil {
		writeError(w, status, err.Error())
		return
	}
	if !occ.Visible() {
		writeError(w, http.StatusNotFound, "occurrence is canceled or missed")
		return
	}
	s.writeICS(w, occ.Event.Slug+"-"+occ.Day.Format()+".ics", []model.Occurrence{occ})
}

func (s *Server) writeICS(w http.ResponseWriter, filename string, occs []model.Occurrence) {
	var buf bytes.Buffer
	if err := feed.WriteICS(&buf, s.icsCalendar(), occs, s.clock.Now()); err != nil {
		appLog.Error("ics feed: serialize failed", err)
		writeError(w, http.StatusInternalServerError, "failed to build calendar feed")
		return
	}
	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	_, _ = w.Write(buf.Bytes())
}

// handleRSS serves the occurrence feed, canceled and missed ones included.
//
// GET /rss.xml
func (s *Server) handleRSS(w http.ResponseWriter, _ *http.Request) {
	occs, err := s.feedOccurrences(true)
	if err != nil {
		appLog.Error("rss feed: enumerate failed", err)
		writeError(w, http.StatusInternalServerError, "failed to build rss feed")
		return
	}

	var buf bytes.Buffer
	ch := feed.Channel{Title: s.cfg.Site.Title, Description: s.cfg.Site.Description, Link: s.cfg.Site.URL}
	if err := feed.WriteRSS(&buf, ch, occs); err != nil {
		appLog.Error("rss feed: serialize failed", err)
		writeError(w, http.StatusInternalServerError, "failed to build rss feed")
		return
	}
	w.Header().Set("Content-Type", "application/rss+xml; charset=utf-8")
	_, _ = w.Write(buf.Bytes())
}

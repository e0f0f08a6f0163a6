// Package web serves the calendar API, feeds and HTML pages.
package web

import (
	"context"
	"crypto/subtle"
	"embed"
	"encoding/json"
	"html/template"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"eventcal/internal/caldate"
	"eventcal/internal/catalog"
	"eventcal/internal/clock"
	"eventcal/internal/config"
	appLog "eventcal/internal/log"
	"eventcal/internal/recurrence"
)

//go:embed templates/*.html
var templateFS embed.FS

// Server exposes the catalog over HTTP. Every request reads the snapshot
// current at the time it arrives.
type Server struct {
	cfg     *config.Config
	store   *catalog.Store
	matcher *recurrence.Matcher
	clock   clock.Clock
	loc     *time.Location

	router *mux.Router
	pages  *template.Template
}

// NewServer constructs a new Server. A nil clk uses the system clock.
func NewServer(cfg *config.Config, store *catalog.Store, clk clock.Clock) (*Server, error) {
	if clk == nil {
		clk = clock.SystemClock{}
	}
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}
	pages, err := template.New("pages").Funcs(templateFuncs).ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, err
	}

	s := &Server{
		cfg:     cfg,
		store:   store,
		matcher: recurrence.NewMatcher(cfg.MatcherOptions()),
		clock:   clk,
		loc:     loc,
		router:  mux.NewRouter(),
		pages:   pages,
	}
	s.registerRoutes()
	return s, nil
}

// Handler returns the underlying http.Handler for this server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) registerRoutes() {
	r := s.router
	r.Use(requestLogger)
	if s.cfg.BasicAuth.Enabled() {
		appLog.Info("HTTP basic auth enabled", "listen", "http://"+s.cfg.Listen)
		r.Use(s.basicAuthMiddleware)
	}

	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)

	r.HandleFunc("/api/calendar", s.handleCalendar).Methods(http.MethodGet)
	r.HandleFunc("/api/occurrences", s.handleOccurrences).Methods(http.MethodGet)
	r.HandleFunc("/api/events/{slug}", s.handleEventDetail).Methods(http.MethodGet)

	r.HandleFunc("/events.ics", s.handleCalendarFeed).Methods(http.MethodGet)
	r.HandleFunc("/event/{date}/{slug}.ics", s.handleOccurrenceICS).Methods(http.MethodGet)
	r.HandleFunc("/rss.xml", s.handleRSS).Methods(http.MethodGet)

	r.HandleFunc("/calendar", s.handleCalendarPage).Methods(http.MethodGet)
	r.HandleFunc("/event/{date}/{slug}", s.handleEventPage).Methods(http.MethodGet)
	r.Handle("/", http.RedirectHandler("/calendar", http.StatusFound)).Methods(http.MethodGet)
}

// StartServer serves until ctx is done, then shuts down gracefully.
func (s *Server) StartServer(ctx context.Context) error {
	srv := &http.Server{
		Addr:         s.cfg.Listen,
		Handler:      s.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		appLog.Info("starting HTTP server", "listen", "http://"+s.cfg.Listen)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	appLog.Info("shutting down HTTP server")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// today is the reference day for requests that do not name one.
func (s *Server) today() caldate.Date {
	return clock.Today(s.clock, s.loc)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// basicAuthMiddleware guards every route except /health.
func (s *Server) basicAuthMiddleware(next http.Handler) http.Handler {
	username := s.cfg.BasicAuth.Username
	password := s.cfg.BasicAuth.Password

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			next.ServeHTTP(w, r)
			return
		}

		u, p, ok := r.BasicAuth()
		if !ok || !secureCompare(u, username) || !secureCompare(p, password) {
			w.Header().Set("WWW-Authenticate", `Basic realm="eventcal", charset="UTF-8"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// secureCompare compares two strings in constant time.
func secureCompare(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		appLog.Debug("http request", "method", r.Method, "path", r.URL.Path, "took", time.Since(start))
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		appLog.Error("failed to write JSON response", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	type errResp struct {
		Error string `json:"error"`
	}
	writeJSON(w, status, errResp{Error: msg})
}

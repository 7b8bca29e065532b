package web

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"sync"
	"time"

	"vakit/internal/config"
	"vakit/internal/ics"
	"vakit/internal/indicator"
	appLog "vakit/internal/log"
	"vakit/internal/model"
	"vakit/internal/resolve"
	"vakit/internal/source"
	"vakit/internal/tick"
)

// Backend is the part of the tick pipeline the API reads through.
type Backend interface {
	Table(ctx context.Context) (model.Location, model.TimeTable, error)
	Refresh(ctx context.Context) (model.TimeTable, error)
}

// IndicatorSource returns the last indicator a tick produced.
type IndicatorSource interface {
	Current() (indicator.Indicator, time.Time)
}

// Trigger enqueues an out-of-band tick.
type Trigger interface {
	Trigger(reason string) <-chan struct{}
}

// Options configures a Server.
type Options struct {
	Listen    string
	BasicAuth config.BasicAuthConfig
	// Zone is the wall-clock zone of the tables.
	Zone *time.Location
	// Now defaults to time.Now.
	Now func() time.Time
}

// Server exposes today's table, the live indicator, a forced refresh and
// an iCalendar export.
type Server struct {
	opts      Options
	backend   Backend
	indicator IndicatorSource
	trigger   Trigger
	mux       *http.ServeMux

	// In-memory cache for /calendar.ics so calendar clients polling often
	// do not re-render the whole period every time.
	icsMu    sync.RWMutex
	icsCache *icsCache
}

type icsCache struct {
	key       string
	body      string
	updatedAt time.Time
}

const icsCacheTTL = 30 * time.Second

// NewServer constructs a Server. trigger may be nil.
func NewServer(opts Options, backend Backend, ind IndicatorSource, trigger Trigger) *Server {
	if opts.Zone == nil {
		opts.Zone = time.Local
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	s := &Server{
		opts:      opts,
		backend:   backend,
		indicator: ind,
		trigger:   trigger,
		mux:       http.NewServeMux(),
	}
	s.registerRoutes()
	return s
}

// Handler returns the underlying http.Handler for this server.
func (s *Server) Handler() http.Handler {
	h := http.Handler(s.mux)
	if s.basicAuthEnabled() {
		appLog.Info("HTTP basic auth enabled", "listen", "http://"+s.opts.Listen)
		return s.basicAuthMiddleware(h)
	}
	return h
}

// basicAuthEnabled reports whether HTTP Basic Auth is configured. An empty
// username or password counts as disabled.
func (s *Server) basicAuthEnabled() bool {
	return s.opts.BasicAuth.Username != "" && s.opts.BasicAuth.Password != ""
}

// basicAuthMiddleware wraps all handlers except /health with HTTP Basic Auth.
func (s *Server) basicAuthMiddleware(next http.Handler) http.Handler {
	username := s.opts.BasicAuth.Username
	password := s.opts.BasicAuth.Password

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			next.ServeHTTP(w, r)
			return
		}

		u, p, ok := r.BasicAuth()
		if !ok || !secureCompare(u, username) || !secureCompare(p, password) {
			w.Header().Set("WWW-Authenticate", `Basic realm="vakit", charset="UTF-8"`)
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

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.opts.Listen,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		appLog.Info("starting HTTP server", "listen", "http://"+s.opts.Listen)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		appLog.Info("HTTP server stopped")
		return nil
	}
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("/health", s.handleHealth)
	s.mux.HandleFunc("/api/today", s.handleToday)
	s.mux.HandleFunc("/api/indicator", s.handleIndicator)
	s.mux.HandleFunc("/api/refresh", s.handleRefresh)
	s.mux.HandleFunc("/calendar.ics", s.handleCalendar)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

type eventDTO struct {
	Key   model.EventKey `json:"key"`
	Label string         `json:"label"`
	Time  string         `json:"time"`
}

type nextDTO struct {
	eventDTO
	Date      string    `json:"date"`
	Target    time.Time `json:"target"`
	Remaining string    `json:"remaining"`
}

// todayResponse is the JSON response shape for /api/today.
type todayResponse struct {
	Location model.Location `json:"location"`
	Date     string         `json:"date"`
	Hijri    string         `json:"hijri,omitempty"`
	Events   []eventDTO     `json:"events"`
	Next     *nextDTO       `json:"next,omitempty"`
}

// handleToday returns one day of the configured location's table in event
// order, plus the next upcoming event when the day is today.
//
// GET /api/today?date=2024-06-01
//   - date: defaults to today in the configured zone
func (s *Server) handleToday(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	ctx := r.Context()
	now := s.opts.Now().In(s.opts.Zone)

	date := r.URL.Query().Get("date")
	if date == "" {
		date = model.DateKey(now)
	}
	if _, err := model.ParseDate(date, s.opts.Zone); err != nil {
		writeError(w, http.StatusBadRequest, "date must be YYYY-MM-DD")
		return
	}

	loc, table, err := s.backend.Table(ctx)
	if err != nil {
		s.writeBackendError(w, "api today", err)
		return
	}

	day, ok := table.Day(date)
	if !ok {
		writeError(w, http.StatusNotFound, "no times for "+date)
		return
	}

	resp := todayResponse{
		Location: loc,
		Date:     date,
		Hijri:    day.Hijri,
		Events:   make([]eventDTO, 0, len(model.EventOrder)),
	}
	for _, key := range model.EventOrder {
		if t, ok := day.Time(key); ok {
			resp.Events = append(resp.Events, eventDTO{Key: key, Label: key.Label(), Time: t})
		}
	}

	if date == model.DateKey(now) {
		if next, ok := resolve.FromTable(now, table); ok {
			resp.Next = &nextDTO{
				eventDTO:  eventDTO{Key: next.Key, Label: next.Key.Label(), Time: next.Time},
				Date:      next.Date,
				Target:    next.Target,
				Remaining: indicator.RenderLong(next.Remaining(now)),
			}
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// indicatorResponse is the JSON response shape for /api/indicator. Text is
// empty when there is no data.
type indicatorResponse struct {
	indicator.Indicator
	Tooltip   string    `json:"tooltip"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (s *Server) handleIndicator(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if s.indicator == nil {
		writeError(w, http.StatusServiceUnavailable, "indicator not available")
		return
	}
	ind, updated := s.indicator.Current()
	writeJSON(w, http.StatusOK, indicatorResponse{Indicator: ind, Tooltip: ind.Tooltip(), UpdatedAt: updated})
}

type refreshResponse struct {
	Location model.Location `json:"location"`
	Period   string         `json:"period"`
	Days     int            `json:"days"`
}

// handleRefresh refetches the current period, bypassing cache freshness,
// and then enqueues a tick so the indicator picks up the new table.
//
// POST /api/refresh
func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	table, err := s.backend.Refresh(r.Context())
	if err != nil {
		s.writeBackendError(w, "api refresh", err)
		return
	}
	s.invalidateICS()
	if s.trigger != nil {
		s.trigger.Trigger("refresh")
	}
	writeJSON(w, http.StatusOK, refreshResponse{Location: table.Location, Period: table.Period.Key(), Days: table.Len()})
}

// handleCalendar exports the current period as an iCalendar feed.
//
// GET /calendar.ics?days=7
//   - days: only export this many days starting today (0 = whole period)
func (s *Server) handleCalendar(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	days := parseIntDefault(r.URL.Query().Get("days"), 0)
	if days < 0 {
		days = 0
	}
	loc, table, err := s.backend.Table(r.Context())
	if err != nil {
		s.writeBackendError(w, "api calendar", err)
		return
	}

	now := s.opts.Now()
	if days > 0 {
		table = window(table, model.DateKey(now.In(s.opts.Zone)), days)
	}
	key := loc.ID + "/" + table.Period.Key() + "/" + strconv.Itoa(days)

	s.icsMu.RLock()
	c := s.icsCache
	s.icsMu.RUnlock()

	body := ""
	if c != nil && c.key == key && now.Sub(c.updatedAt) < icsCacheTTL {
		body = c.body
	} else {
		body = ics.Export(table, s.opts.Zone, now)
		s.icsMu.Lock()
		s.icsCache = &icsCache{key: key, body: body, updatedAt: now}
		s.icsMu.Unlock()
	}

	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", `inline; filename="`+model.Slug(loc.ID)+`.ics"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(body))
}

// window returns the first n days of t on or after from.
func window(t model.TimeTable, from string, n int) model.TimeTable {
	out := model.NewTimeTable(t.Location, t.Period)
	for _, date := range t.Dates() {
		if date < from {
			continue
		}
		if out.Len() == n {
			break
		}
		d, _ := t.Day(date)
		out.Put(d)
	}
	return out
}

func (s *Server) invalidateICS() {
	s.icsMu.Lock()
	s.icsCache = nil
	s.icsMu.Unlock()
}

func (s *Server) writeBackendError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, tick.ErrNoLocation):
		writeError(w, http.StatusConflict, "no location configured")
	case errors.Is(err, source.ErrSourceUnavailable):
		appLog.Error(op+": source unavailable", err)
		writeError(w, http.StatusBadGateway, "time-table source unavailable")
	default:
		appLog.Error(op+" failed", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func parseIntDefault(s string, def int) int {
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
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

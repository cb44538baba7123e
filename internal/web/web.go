package web

import (
	"bytes"
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"borkacal/internal/calendar"
	"borkacal/internal/config"
	"borkacal/internal/errdef"
	"borkacal/internal/ics"
	"borkacal/internal/links"
	appLog "borkacal/internal/log"
	"borkacal/internal/metrics"
	"borkacal/internal/model"
	"borkacal/internal/state"
)

// Server exposes the month grid, calendar links and ICS export over HTTP.
type Server struct {
	cfg     *config.Config
	store   *state.Store
	metrics *metrics.Metrics
	loc     *time.Location
	mux     *http.ServeMux

	// now is overridable for tests.
	now func() time.Time
}

// NewServer constructs a new Server.
func NewServer(cfg *config.Config, store *state.Store, m *metrics.Metrics) *Server {
	s := &Server{
		cfg:     cfg,
		store:   store,
		metrics: m,
		loc:     cfg.Location(),
		mux:     http.NewServeMux(),
		now:     time.Now,
	}
	s.registerRoutes()
	return s
}

// Handler returns the underlying http.Handler for this server.
func (s *Server) Handler() http.Handler {
	h := http.Handler(s.mux)
	if s.basicAuthEnabled() {
		appLog.Info("HTTP basic auth enabled", "listen", "http://"+s.cfg.Listen)
		return s.basicAuthMiddleware(h)
	}
	return h
}

// Run serves on cfg.Listen until ctx is canceled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Listen,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
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
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) basicAuthEnabled() bool {
	if s.cfg == nil || s.cfg.BasicAuth == nil {
		return false
	}
	// An empty username or password disables auth.
	return s.cfg.BasicAuth.Username != "" && s.cfg.BasicAuth.Password != ""
}

// basicAuthMiddleware wraps all handlers except /health with HTTP Basic Auth.
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
			w.Header().Set("WWW-Authenticate", `Basic realm="borkacal", charset="UTF-8"`)
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

func (s *Server) registerRoutes() {
	s.handle("GET /health", s.handleHealth)
	s.handle("GET /api/status", s.handleStatus)
	s.handle("GET /api/month", s.handleMonth)
	s.handle("GET /api/links", s.handleLinks)
	s.handle("GET /api/events/{id}/links", s.handleEventLinks)
	s.handle("GET /api/export.ics", s.handleExport)
	if s.metrics != nil {
		s.mux.Handle("GET /metrics", s.metrics.Handler())
	}
}

// handle registers fn under pattern and counts responses per route.
func (s *Server) handle(pattern string, fn http.HandlerFunc) {
	if s.metrics == nil {
		s.mux.HandleFunc(pattern, fn)
		return
	}
	s.mux.HandleFunc(pattern, func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		fn(rec, r)
		s.metrics.Requests.WithLabelValues(pattern, strconv.Itoa(rec.status)).Inc()
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

type statusResponse struct {
	Events      int        `json:"events"`
	Categories  int        `json:"categories"`
	News        int        `json:"news"`
	Source      string     `json:"source"`
	RefreshedAt *time.Time `json:"refreshed_at,omitempty"`
	LastError   string     `json:"last_error,omitempty"`
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	snap := s.store.Snapshot()
	resp := statusResponse{
		Events:     len(snap.Events),
		Categories: len(snap.Categories),
		News:       len(snap.News),
		Source:     s.cfg.Source,
	}
	if !snap.RefreshedAt.IsZero() {
		resp.RefreshedAt = &snap.RefreshedAt
	}
	if snap.LastError != nil {
		resp.LastError = snap.LastError.Error()
	}
	writeJSON(w, http.StatusOK, resp)
}

// monthResponse is the JSON response shape for /api/month.
type monthResponse struct {
	Month         string   `json:"month"`
	Title         string   `json:"title"`
	Prev          string   `json:"prev"`
	Next          string   `json:"next"`
	LeadingBlanks int      `json:"leading_blanks"`
	Days          []dayDTO `json:"days"`
	Dropped       int      `json:"dropped"`
}

type dayDTO struct {
	Date       string         `json:"date"`
	Today      bool           `json:"today"`
	EventCount int            `json:"event_count"`
	Events     []eventChipDTO `json:"events"`
	Remainder  int            `json:"remainder"`
}

type eventChipDTO struct {
	ID           string `json:"id"`
	Title        string `json:"title"`
	Category     string `json:"category"`
	CategoryName string `json:"category_name"`
	Color        string `json:"color,omitempty"`
	StartTime    string `json:"start_time"`
}

// handleMonth returns the Monday-first grid for a month.
//
// GET /api/month?month=2025-03&delta=1&category=tournament&max=2
//   - month:    YYYY-MM (default: current month)
//   - delta:    months to move from month (default 0)
//   - category: category slug or "all"
//   - max:      events shown per day before "+N" (default from config)
func (s *Server) handleMonth(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	ref, err := s.referenceMonth(q.Get("month"), q.Get("delta"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	limit := parseIntDefault(q.Get("max"), s.cfg.MaxEventsPerDay)
	if limit < 0 {
		limit = s.cfg.MaxEventsPerDay
	}

	grid, err := calendar.ProjectMonth(ref, s.store.Events(q.Get("category")))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if grid.Dropped > 0 && s.metrics != nil {
		s.metrics.DroppedEntries.Add(float64(grid.Dropped))
	}

	now := s.now()
	resp := monthResponse{
		Month:         grid.Month.Format("2006-01"),
		Title:         calendar.MonthTitle(grid.Month),
		Prev:          calendar.AdvanceMonth(grid.Month, -1).Format("2006-01"),
		Next:          calendar.AdvanceMonth(grid.Month, 1).Format("2006-01"),
		LeadingBlanks: grid.LeadingBlanks,
		Days:          make([]dayDTO, 0, len(grid.Days)),
		Dropped:       grid.Dropped,
	}
	for _, day := range grid.Days {
		dto := dayDTO{
			Date:       day.Date.Format(time.DateOnly),
			Today:      day.IsToday(now),
			EventCount: len(day.Events),
			Events:     make([]eventChipDTO, 0, min(limit, len(day.Events))),
			Remainder:  day.Remainder(limit),
		}
		for _, ev := range day.Visible(limit) {
			dto.Events = append(dto.Events, chipFor(ev))
		}
		resp.Days = append(resp.Days, dto)
	}

	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) referenceMonth(month, delta string) (time.Time, error) {
	ref := s.now().In(s.loc)
	if month != "" {
		m, err := calendar.ParseMonth(month, s.loc)
		if err != nil {
			return time.Time{}, err
		}
		ref = m
	}
	if delta != "" {
		n, err := strconv.Atoi(delta)
		if err != nil {
			return time.Time{}, errdef.NewInvalidInput("invalid delta %q", delta)
		}
		ref = calendar.AdvanceMonth(ref, n)
	}
	return ref, nil
}

func chipFor(ev model.Event) eventChipDTO {
	chip := eventChipDTO{
		ID:           ev.ID,
		Title:        ev.Title,
		Category:     ev.Category,
		CategoryName: ev.Category,
		StartTime:    ev.StartTime,
	}
	if kind, err := ev.Kind(); err == nil {
		chip.CategoryName = kind.DisplayName()
		chip.Color = kind.Color()
	}
	return chip
}

type linksResponse struct {
	Webcal         string `json:"webcal"`
	GoogleCalendar string `json:"google_calendar"`
	Feed           string `json:"feed"`
}

func (s *Server) handleLinks(w http.ResponseWriter, _ *http.Request) {
	origin := s.cfg.APIURL
	writeJSON(w, http.StatusOK, linksResponse{
		Webcal:         links.SubscriptionWebcalURL(origin),
		GoogleCalendar: links.SubscriptionGoogleCalendarURL(origin),
		Feed:           links.FeedURL(origin),
	})
}

type eventLinksResponse struct {
	ICS      string `json:"ics"`
	QuickAdd string `json:"quick_add"`
	Maps     string `json:"maps"`
}

func (s *Server) handleEventLinks(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	ev, ok := s.store.Event(id)
	if !ok {
		writeError(w, http.StatusNotFound, "event not found")
		return
	}

	quickAdd, err := links.QuickAddGoogleCalendarURL(ev, s.loc)
	if err != nil {
		appLog.Error("quick-add link failed", err, "id", id)
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, eventLinksResponse{
		ICS:      links.EventICSURL(s.cfg.APIURL, ev.ID),
		QuickAdd: quickAdd,
		Maps:     links.MapsSearchURL(ev.Location),
	})
}

// handleExport serves the month's events as a locally generated ICS file.
//
// GET /api/export.ics?month=2025-03&category=tournament
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	ref, err := s.referenceMonth(q.Get("month"), q.Get("delta"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	grid, err := calendar.ProjectMonth(ref, s.store.Events(q.Get("category")))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	var events []model.Event
	for _, day := range grid.Days {
		events = append(events, day.Events...)
	}

	var buf bytes.Buffer
	if err := ics.WriteEvents(&buf, events, s.loc, s.now()); err != nil {
		appLog.Error("ics export failed", err)
		writeError(w, http.StatusInternalServerError, "failed to export calendar")
		return
	}

	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", "attachment; filename=borka-"+grid.Month.Format("2006-01")+".ics")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
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

package web

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"borkacal/internal/config"
	"borkacal/internal/metrics"
	"borkacal/internal/model"
	"borkacal/internal/state"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticEvents []model.Event

func (s staticEvents) Events(context.Context, string) ([]model.Event, error) {
	return s, nil
}

var fixture = staticEvents{
	{ID: "a", Title: "Öppen spelkväll", StartTime: "2025-03-05T18:00:00", EndTime: "2025-03-05T22:00:00", Category: "open_game_night"},
	{ID: "b", Title: "Medlemskväll", StartTime: "2025-03-05T19:00:00", EndTime: "2025-03-05T23:00:00", Category: "member_night"},
	{ID: "c", Title: "Cup", StartTime: "2025-03-05T20:00:00", EndTime: "2025-03-05T23:00:00", Category: "tournament"},
	{ID: "d", Title: "Lördagsspel", StartTime: "2025-03-06T10:00:00", EndTime: "2025-03-06T16:00:00", Category: "legacy_slug", Location: "Stadsbiblioteket"},
	{ID: "e", Title: "Trasig", StartTime: "Invalid Date", EndTime: "Invalid Date", Category: "special_event"},
	{ID: "f", Title: "April", StartTime: "2025-04-02T18:00:00", EndTime: "2025-04-02T21:00:00", Category: "special_event"},
}

func newTestServer(t *testing.T, mutate func(*config.Config)) (*Server, *metrics.Metrics) {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.APIURL = "https://api.example.com"
	if mutate != nil {
		mutate(cfg)
	}

	store := state.New(fixture, nil)
	require.NoError(t, store.Refresh(context.Background()))

	m := metrics.New()
	s := NewServer(cfg, store, m)
	s.now = func() time.Time { return time.Date(2025, 3, 5, 12, 0, 0, 0, s.loc) }
	return s, m
}

func get(t *testing.T, h http.Handler, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func TestHealth(t *testing.T) {
	s, _ := newTestServer(t, nil)
	rec := get(t, s.Handler(), "/health")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK", rec.Body.String())
}

func TestMonth(t *testing.T) {
	s, m := newTestServer(t, nil)

	rec := get(t, s.Handler(), "/api/month?month=2025-03")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp monthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))

	assert.Equal(t, "2025-03", resp.Month)
	assert.Equal(t, "mars 2025", resp.Title)
	assert.Equal(t, "2025-02", resp.Prev)
	assert.Equal(t, "2025-04", resp.Next)
	assert.Equal(t, 5, resp.LeadingBlanks)
	assert.Equal(t, 1, resp.Dropped)
	require.Len(t, resp.Days, 31)

	day5 := resp.Days[4]
	assert.Equal(t, "2025-03-05", day5.Date)
	assert.True(t, day5.Today)
	assert.Equal(t, 3, day5.EventCount)
	require.Len(t, day5.Events, 2)
	assert.Equal(t, "a", day5.Events[0].ID)
	assert.Equal(t, "#E63946", day5.Events[0].Color)
	assert.Equal(t, "Öppen spelkväll", day5.Events[0].CategoryName)
	assert.Equal(t, 1, day5.Remainder)

	day6 := resp.Days[5]
	require.Len(t, day6.Events, 1)
	assert.Empty(t, day6.Events[0].Color)
	assert.Equal(t, "legacy_slug", day6.Events[0].CategoryName)

	assert.Empty(t, resp.Days[0].Events)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.DroppedEntries))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Requests.WithLabelValues("GET /api/month", "200")))
}

func TestMonthDeltaCategoryAndMax(t *testing.T) {
	s, _ := newTestServer(t, nil)

	rec := get(t, s.Handler(), "/api/month?delta=1")
	require.Equal(t, http.StatusOK, rec.Code)
	var resp monthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "2025-04", resp.Month)
	assert.Equal(t, 1, resp.Days[1].EventCount)

	rec = get(t, s.Handler(), "/api/month?month=2025-03&category=tournament&max=5")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.Days[4].EventCount)
	assert.Zero(t, resp.Days[4].Remainder)
	assert.Zero(t, resp.Days[5].EventCount)
}

func TestMonthOversizedMax(t *testing.T) {
	s, _ := newTestServer(t, nil)

	for _, limit := range []string{"2000000000", "9223372036854775807"} {
		rec := get(t, s.Handler(), "/api/month?month=2025-03&max="+limit)
		require.Equal(t, http.StatusOK, rec.Code, limit)

		var resp monthResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Len(t, resp.Days[4].Events, 3, limit)
		assert.Zero(t, resp.Days[4].Remainder, limit)
	}
}

func TestMonthBadInput(t *testing.T) {
	s, _ := newTestServer(t, nil)
	assert.Equal(t, http.StatusBadRequest, get(t, s.Handler(), "/api/month?month=mars").Code)
	assert.Equal(t, http.StatusBadRequest, get(t, s.Handler(), "/api/month?delta=x").Code)
}

func TestLinks(t *testing.T) {
	s, _ := newTestServer(t, nil)

	rec := get(t, s.Handler(), "/api/links")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp linksResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "webcal://api.example.com/api/calendar/ics", resp.Webcal)
	assert.Equal(t, "https://calendar.google.com/calendar/r?cid=https%3A%2F%2Fapi.example.com%2Fapi%2Fcalendar%2Fics", resp.GoogleCalendar)
	assert.Equal(t, "https://api.example.com/api/calendar/ics", resp.Feed)
}

func TestEventLinks(t *testing.T) {
	s, _ := newTestServer(t, nil)

	rec := get(t, s.Handler(), "/api/events/d/links")
	require.Equal(t, http.StatusOK, rec.Code)
	var resp eventLinksResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "https://api.example.com/api/calendar/event/d/ics", resp.ICS)
	assert.Contains(t, resp.QuickAdd, "&dates=20250306T100000/20250306T160000&")
	assert.Equal(t, "https://www.google.com/maps/search/?api=1&query=Stadsbiblioteket", resp.Maps)

	assert.Equal(t, http.StatusNotFound, get(t, s.Handler(), "/api/events/zzz/links").Code)
	assert.Equal(t, http.StatusUnprocessableEntity, get(t, s.Handler(), "/api/events/e/links").Code)
}

func TestExport(t *testing.T) {
	s, _ := newTestServer(t, nil)

	rec := get(t, s.Handler(), "/api/export.ics?month=2025-03")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/calendar; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "borka-2025-03.ics")

	body := rec.Body.String()
	assert.Equal(t, 4, strings.Count(body, "BEGIN:VEVENT"))
	assert.NotContains(t, body, "UID:f@")
	// 18:00 Stockholm wall clock, as shown in the grid and quick-add link.
	assert.Contains(t, body, "DTSTART:20250305T170000Z")
	assert.Contains(t, body, "DTEND:20250305T210000Z")
	assert.Contains(t, body, "LOCATION:Stadsbiblioteket")
}

func TestStatus(t *testing.T) {
	s, _ := newTestServer(t, nil)

	rec := get(t, s.Handler(), "/api/status")
	require.Equal(t, http.StatusOK, rec.Code)
	var resp statusResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, len(fixture), resp.Events)
	assert.Equal(t, config.SourceJSON, resp.Source)
	assert.NotNil(t, resp.RefreshedAt)
	assert.Empty(t, resp.LastError)
}

func TestBasicAuth(t *testing.T) {
	s, _ := newTestServer(t, func(c *config.Config) {
		c.BasicAuth = &config.BasicAuthConfig{Username: "admin", Password: "hemligt"}
	})
	h := s.Handler()

	assert.Equal(t, http.StatusOK, get(t, h, "/health").Code)
	assert.Equal(t, http.StatusUnauthorized, get(t, h, "/api/links").Code)

	req := httptest.NewRequest(http.MethodGet, "/api/links", nil)
	req.SetBasicAuth("admin", "hemligt")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	s, _ := newTestServer(t, nil)
	get(t, s.Handler(), "/health")

	rec := get(t, s.Handler(), "/metrics")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `borkacal_http_requests_total{code="200",route="GET /health"} 1`)
}

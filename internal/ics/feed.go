package ics

import (
	"context"
	"fmt"
	"time"

	"borkacal/internal/model"
)

// FeedFetcher returns the raw subscription feed body.
type FeedFetcher interface {
	Feed(ctx context.Context) ([]byte, error)
}

// FeedSource serves events from the ICS subscription feed instead of the
// JSON listing. Recurring entries are expanded over a window around Now.
type FeedSource struct {
	Fetcher  FeedFetcher
	Location *time.Location

	// MonthsBack / MonthsAhead bound the expansion window.
	MonthsBack  int
	MonthsAhead int

	// Now is overridable for tests.
	Now func() time.Time
}

// Events fetches, parses and expands the feed. category filters like the
// JSON endpoint's ?category= parameter.
func (s *FeedSource) Events(ctx context.Context, category string) ([]model.Event, error) {
	body, err := s.Fetcher.Feed(ctx)
	if err != nil {
		return nil, fmt.Errorf("ics feed: %w", err)
	}

	parsed, err := ParseFeed(body)
	if err != nil {
		return nil, fmt.Errorf("ics feed: parse: %w", err)
	}

	loc := s.Location
	if loc == nil {
		loc = time.Local
	}
	now := time.Now
	if s.Now != nil {
		now = s.Now
	}
	today := now().In(loc)
	first := time.Date(today.Year(), today.Month(), 1, 0, 0, 0, 0, loc)

	res, err := Expand(parsed, ExpandConfig{
		DisplayLocation: loc,
		RangeStart:      first.AddDate(0, -s.MonthsBack, 0),
		RangeEnd:        first.AddDate(0, s.MonthsAhead+1, 0),
	})
	if err != nil {
		return nil, fmt.Errorf("ics feed: expand: %w", err)
	}

	return model.FilterEvents(ToEvents(res.Occurrences), category), nil
}

// Package state holds the client's session copy of backend data. A Store is
// created explicitly, refreshed on demand and closed at shutdown; every
// refresh replaces its contents wholesale.
package state

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	appLog "borkacal/internal/log"
	"borkacal/internal/model"
)

// ErrClosed is returned by Refresh after Close.
var ErrClosed = errors.New("state: store closed")

// EventSource lists events, optionally filtered by category slug.
type EventSource interface {
	Events(ctx context.Context, category string) ([]model.Event, error)
}

// InfoSource supplies the non-event listings.
type InfoSource interface {
	Categories(ctx context.Context) ([]model.CategoryInfo, error)
	News(ctx context.Context) ([]model.News, error)
}

// Snapshot is a copy of the store contents at one point in time.
type Snapshot struct {
	Events      []model.Event
	Categories  []model.CategoryInfo
	News        []model.News
	RefreshedAt time.Time
	LastError   error
}

type Store struct {
	events EventSource
	info   InfoSource
	now    func() time.Time

	mu          sync.RWMutex
	closed      bool
	snap        Snapshot
	refreshLock sync.Mutex
}

// New builds a Store. info may be nil when only events are needed.
func New(events EventSource, info InfoSource) *Store {
	return &Store{
		events: events,
		info:   info,
		now:    time.Now,
	}
}

// Refresh pulls all listings. Events are required: when they fail the
// previous events are kept and the error is returned. Category and news
// failures are logged and keep their previous values.
func (s *Store) Refresh(ctx context.Context) error {
	s.refreshLock.Lock()
	defer s.refreshLock.Unlock()

	s.mu.RLock()
	closed := s.closed
	prev := s.snap
	s.mu.RUnlock()
	if closed {
		return ErrClosed
	}

	next := prev
	next.LastError = nil

	events, err := s.events.Events(ctx, "")
	if err != nil {
		next.LastError = fmt.Errorf("refresh events: %w", err)
	} else {
		next.Events = events
	}

	if s.info != nil {
		if categories, err := s.info.Categories(ctx); err != nil {
			appLog.Error("state: refresh categories failed", err)
		} else {
			next.Categories = categories
		}
		if news, err := s.info.News(ctx); err != nil {
			appLog.Error("state: refresh news failed", err)
		} else {
			next.News = news
		}
	}

	if next.LastError == nil {
		next.RefreshedAt = s.now()
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	s.snap = next
	s.mu.Unlock()

	if next.LastError != nil {
		return next.LastError
	}
	appLog.Info("state refreshed",
		"events", len(next.Events),
		"categories", len(next.Categories),
		"news", len(next.News),
	)
	return nil
}

// Snapshot returns copies of the current listings.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := s.snap
	out.Events = append([]model.Event(nil), s.snap.Events...)
	out.Categories = append([]model.CategoryInfo(nil), s.snap.Categories...)
	out.News = append([]model.News(nil), s.snap.News...)
	return out
}

// Events returns the cached events filtered by category ("" or "all" for every category).
func (s *Store) Events(category string) []model.Event {
	return model.FilterEvents(s.Snapshot().Events, category)
}

// Event looks up a cached event by ID.
func (s *Store) Event(id string) (model.Event, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, ev := range s.snap.Events {
		if ev.ID == id {
			return ev, true
		}
	}
	return model.Event{}, false
}

// Close drops the cached data. Further refreshes fail with ErrClosed.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.snap = Snapshot{}
	return nil
}

package model

import (
	"encoding/json"
	"time"
)

// DefaultLocation is the club venue, used when an event record has no
// location key at all.
const DefaultLocation = "Odengatan 31, Sandviken"

// Event is a club event as served by the backend's /api/events endpoints.
// Timestamps stay in their wire form; use StartIn/EndIn to interpret them.
type Event struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Location    string `json:"location"`
	StartTime   string `json:"start_time"`
	EndTime     string `json:"end_time"`
	Category    string `json:"category"`

	CreatedBy string `json:"created_by,omitempty"`
	CreatedAt string `json:"created_at,omitempty"`
	UpdatedAt string `json:"updated_at,omitempty"`
}

// StartIn parses the start timestamp and expresses it in loc.
func (e Event) StartIn(loc *time.Location) (time.Time, error) {
	return ParseTimestamp(e.StartTime, loc)
}

// EndIn parses the end timestamp and expresses it in loc.
func (e Event) EndIn(loc *time.Location) (time.Time, error) {
	return ParseTimestamp(e.EndTime, loc)
}

// Kind resolves the event's category slug into the closed Category set.
func (e Event) Kind() (Category, error) {
	return ParseCategory(e.Category)
}

// UnmarshalJSON fills Location with DefaultLocation when the key is missing.
// An explicit empty location stays empty.
func (e *Event) UnmarshalJSON(data []byte) error {
	type plain Event
	p := plain{Location: DefaultLocation}
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*e = Event(p)
	return nil
}

// CategoryInfo is a row of the backend's /api/categories listing.
type CategoryInfo struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Slug  string `json:"slug"`
	Color string `json:"color"`
}

// News is a club news post.
type News struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Body        string `json:"body"`
	Image       string `json:"image,omitempty"` // base64
	PublishDate string `json:"publish_date"`
	CreatedBy   string `json:"created_by,omitempty"`
	CreatedAt   string `json:"created_at,omitempty"`
}

// NotificationPreferences mirrors the member's push settings.
type NotificationPreferences struct {
	Enabled       bool            `json:"enabled"`
	Categories    map[string]bool `json:"categories"`
	ReminderTimes []string        `json:"reminder_times"`
}

// User is the authenticated member returned by /api/auth/me.
type User struct {
	UserID                  string                  `json:"user_id"`
	Email                   string                  `json:"email"`
	Name                    string                  `json:"name"`
	Picture                 string                  `json:"picture,omitempty"`
	Role                    string                  `json:"role"`
	Phone                   string                  `json:"phone,omitempty"`
	NotificationPreferences NotificationPreferences `json:"notification_preferences"`
}

// FilterAll is the filter value that disables category filtering.
const FilterAll = "all"

// FilterEvents keeps the events whose category equals filter. An empty filter
// or FilterAll returns events unchanged. Input order is preserved.
func FilterEvents(events []Event, filter string) []Event {
	if filter == "" || filter == FilterAll {
		return events
	}
	out := make([]Event, 0, len(events))
	for _, ev := range events {
		if ev.Category == filter {
			out = append(out, ev)
		}
	}
	return out
}

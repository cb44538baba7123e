package model

import (
	"strings"
	"time"

	"borkacal/internal/errdef"
)

// Layouts for timestamps that carry no zone; these are read in the caller's
// location. Values with an offset or "Z" are parsed as RFC 3339 first.
var localLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04",
	"2006-01-02",
}

// ParseTimestamp parses a backend date-time string and returns it in loc
// (time.Local when loc is nil).
func ParseTimestamp(s string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.Local
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, errdef.NewInvalidInput("model: empty timestamp")
	}

	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t.In(loc), nil
	}
	for _, layout := range localLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, errdef.NewInvalidInput("model: unparseable timestamp %q", s)
}

// Package links derives the external URLs handed to calendar, maps and
// browser apps: the subscription feed links, per-event ICS downloads and the
// Google Calendar quick-add template.
package links

import (
	"net/url"
	"strings"
	"time"

	"borkacal/internal/errdef"
	"borkacal/internal/model"
)

// Backend paths. These bytes are part of the backend contract.
const (
	FeedPath        = "/api/calendar/ics"
	eventICSPrefix  = "/api/calendar/event/"
	eventICSSuffix  = "/ics"
	googleSubscribe = "https://calendar.google.com/calendar/r?cid="
	googleTemplate  = "https://calendar.google.com/calendar/render?action=TEMPLATE"
	mapsSearch      = "https://www.google.com/maps/search/?api=1&query="

	// quickAddLayout is yyyyMMdd'T'HHmmss.
	quickAddLayout = "20060102T150405"
)

// FeedURL is the ICS subscription feed served by the backend at origin.
func FeedURL(origin string) string {
	return origin + FeedPath
}

// SubscriptionWebcalURL rewrites the feed URL's http(s) scheme to webcal.
// Only a leading, case-sensitive "https://" or "http://" is replaced; any
// other origin is returned as-is.
func SubscriptionWebcalURL(origin string) string {
	feed := FeedURL(origin)
	for _, scheme := range []string{"https://", "http://"} {
		if rest, ok := strings.CutPrefix(feed, scheme); ok {
			return "webcal://" + rest
		}
	}
	return feed
}

// SubscriptionGoogleCalendarURL opens Google Calendar's "add by URL" flow for the feed.
func SubscriptionGoogleCalendarURL(origin string) string {
	return googleSubscribe + EncodeURIComponent(FeedURL(origin))
}

// EventICSURL is the single-event ICS download for eventID.
func EventICSURL(origin, eventID string) string {
	return origin + eventICSPrefix + url.PathEscape(eventID) + eventICSSuffix
}

// QuickAddGoogleCalendarURL builds a Google Calendar event template from ev.
//
// The dates parameter holds the start and end wall-clock times in loc
// (time.Local when nil) without a zone suffix or ctz parameter. Google reads
// such values in the viewer's calendar zone, so members in another zone see
// shifted times.
func QuickAddGoogleCalendarURL(ev model.Event, loc *time.Location) (string, error) {
	if loc == nil {
		loc = time.Local
	}
	start, err := ev.StartIn(loc)
	if err != nil {
		return "", errdef.NewInvalidInput("links: event %q start_time: %w", ev.ID, err)
	}
	end, err := ev.EndIn(loc)
	if err != nil {
		return "", errdef.NewInvalidInput("links: event %q end_time: %w", ev.ID, err)
	}

	var b strings.Builder
	b.WriteString(googleTemplate)
	b.WriteString("&text=")
	b.WriteString(EncodeURIComponent(ev.Title))
	b.WriteString("&dates=")
	b.WriteString(start.Format(quickAddLayout))
	b.WriteString("/")
	b.WriteString(end.Format(quickAddLayout))
	b.WriteString("&details=")
	b.WriteString(EncodeURIComponent(ev.Description))
	b.WriteString("&location=")
	b.WriteString(EncodeURIComponent(ev.Location))
	return b.String(), nil
}

// MapsSearchURL opens a map search for a free-text location.
func MapsSearchURL(location string) string {
	return mapsSearch + EncodeURIComponent(location)
}

// EncodeURIComponent percent-encodes s as a single URL component, keeping
// only A-Z a-z 0-9 and - _ . ! ~ * ' ( ) literal. Spaces become %20.
func EncodeURIComponent(s string) string {
	const hex = "0123456789ABCDEF"

	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if isUnreserved(c) {
			b.WriteByte(c)
			continue
		}
		b.WriteByte('%')
		b.WriteByte(hex[c>>4])
		b.WriteByte(hex[c&0x0f])
	}
	return b.String()
}

func isUnreserved(c byte) bool {
	switch {
	case 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z', '0' <= c && c <= '9':
		return true
	}
	switch c {
	case '-', '_', '.', '!', '~', '*', '\'', '(', ')':
		return true
	}
	return false
}

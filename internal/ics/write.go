package ics

import (
	"io"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"

	appLog "borkacal/internal/log"
	"borkacal/internal/model"
)

const (
	productID    = "-//BORKA//Brädspel och Rollspel//SV"
	calendarName = "BORKA Kalender"
	calendarZone = "Europe/Stockholm"
)

// WriteEvents serializes events as a VCALENDAR matching the backend's feed:
// UTC DTSTART/DTEND and single-line DESCRIPTION. Zone-less timestamps are
// read in loc (time.Local when nil). Events whose timestamps cannot be parsed
// are skipped.
func WriteEvents(w io.Writer, events []model.Event, loc *time.Location, stamp time.Time) error {
	if loc == nil {
		loc = time.Local
	}

	cal := ical.NewCalendar()
	cal.SetProductId(productID)
	cal.SetCalscale("GREGORIAN")
	cal.SetMethod(ical.MethodPublish)
	cal.SetXWRCalName(calendarName)
	cal.SetXWRTimezone(calendarZone)

	for _, ev := range events {
		start, err := ev.StartIn(loc)
		if err != nil {
			appLog.Debug("ics export: skipping event with bad start", "id", ev.ID, "start_time", ev.StartTime)
			continue
		}
		end, err := ev.EndIn(loc)
		if err != nil {
			appLog.Debug("ics export: skipping event with bad end", "id", ev.ID, "end_time", ev.EndTime)
			continue
		}

		vev := cal.AddEvent(ev.ID + UIDDomain)
		vev.SetStartAt(start.UTC())
		vev.SetEndAt(end.UTC())
		vev.SetSummary(ev.Title)
		vev.SetDescription(strings.ReplaceAll(ev.Description, "\n", " "))
		vev.SetLocation(ev.Location)
		vev.SetDtStampTime(stamp)
		if ev.Category != "" {
			vev.SetProperty(ical.ComponentPropertyCategories, ev.Category)
		}
	}

	return cal.SerializeTo(w)
}

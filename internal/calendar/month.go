package calendar

import (
	"strings"
	"time"

	"borkacal/internal/errdef"
	appLog "borkacal/internal/log"
	"borkacal/internal/model"
)

// DefaultMaxVisible is how many events a day cell shows before collapsing
// the rest into a "+N" remainder.
const DefaultMaxVisible = 2

// DayCell is one calendar day of a MonthGrid together with every event that
// starts on it, in input order.
type DayCell struct {
	// Date is local midnight of the day, in the grid's location.
	Date   time.Time
	Events []model.Event
}

// Visible returns at most limit events for display. The full bucket is kept
// on the cell so Remainder stays accurate.
func (d DayCell) Visible(limit int) []model.Event {
	if limit < 0 {
		limit = 0
	}
	if len(d.Events) <= limit {
		return d.Events
	}
	return d.Events[:limit]
}

// Remainder is the number of events hidden by Visible(limit).
func (d DayCell) Remainder(limit int) int {
	if limit < 0 {
		limit = 0
	}
	if n := len(d.Events) - limit; n > 0 {
		return n
	}
	return 0
}

// IsToday reports whether now falls on this cell's date in the cell's location.
func (d DayCell) IsToday(now time.Time) bool {
	return sameDay(d.Date, now.In(d.Date.Location()))
}

// MonthGrid is the 7-column Monday-first layout of one month: LeadingBlanks
// empty cells followed by one DayCell per day.
type MonthGrid struct {
	// Month is the first day of the projected month at local midnight.
	Month         time.Time
	LeadingBlanks int
	Days          []DayCell

	// Dropped counts events skipped because their start could not be parsed.
	Dropped int
}

// Cells is the total number of grid cells, blanks included.
func (g MonthGrid) Cells() int {
	return g.LeadingBlanks + len(g.Days)
}

// Day returns the cell for day-of-month n (1-based).
func (g MonthGrid) Day(n int) (DayCell, bool) {
	if n < 1 || n > len(g.Days) {
		return DayCell{}, false
	}
	return g.Days[n-1], true
}

// ProjectMonth buckets events into the days of the month containing
// referenceMonth. Only the year and month of referenceMonth are used; its
// Location decides which local calendar day an event start falls on.
//
// Events outside the month are left out. Events whose start cannot be parsed
// are dropped and counted in MonthGrid.Dropped.
func ProjectMonth(referenceMonth time.Time, events []model.Event) (MonthGrid, error) {
	if referenceMonth.IsZero() {
		return MonthGrid{}, errdef.NewInvalidInput("calendar: reference month is not set")
	}

	loc := referenceMonth.Location()
	first := StartOfMonth(referenceMonth)
	n := DaysInMonth(first)

	grid := MonthGrid{
		Month:         first,
		LeadingBlanks: LeadingBlanks(first),
		Days:          make([]DayCell, n),
	}
	for i := range grid.Days {
		grid.Days[i].Date = time.Date(first.Year(), first.Month(), i+1, 0, 0, 0, 0, loc)
	}

	for _, ev := range events {
		start, err := ev.StartIn(loc)
		if err != nil {
			grid.Dropped++
			appLog.Debug("calendar: dropped event with unparseable start",
				"id", ev.ID,
				"start_time", ev.StartTime,
			)
			continue
		}
		if start.Year() != first.Year() || start.Month() != first.Month() {
			continue
		}
		cell := &grid.Days[start.Day()-1]
		cell.Events = append(cell.Events, ev)
	}

	return grid, nil
}

// LeadingBlanks is the number of empty cells before day 1 in a Monday-first
// week: Go's Weekday counts Sunday as 0, so shift it by six.
func LeadingBlanks(firstOfMonth time.Time) int {
	return (int(firstOfMonth.Weekday()) + 6) % 7
}

// StartOfMonth returns local midnight on the first day of t's month.
func StartOfMonth(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
}

// EndOfMonth returns local midnight on the last day of t's month.
func EndOfMonth(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), DaysInMonth(t), 0, 0, 0, 0, t.Location())
}

// DaysInMonth returns the number of days in t's month.
func DaysInMonth(t time.Time) int {
	// Day 0 of the next month normalizes to the last day of this one.
	return time.Date(t.Year(), t.Month()+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// AdvanceMonth shifts referenceMonth by delta whole months, keeping the
// day-of-month and time of day where possible and clamping the day to the
// target month's last day otherwise.
func AdvanceMonth(referenceMonth time.Time, delta int) time.Time {
	y, m, d := referenceMonth.Date()
	hh, mm, ss := referenceMonth.Clock()
	loc := referenceMonth.Location()

	target := time.Date(y, m+time.Month(delta), 1, 0, 0, 0, 0, loc)
	if last := DaysInMonth(target); d > last {
		d = last
	}
	return time.Date(target.Year(), target.Month(), d, hh, mm, ss, referenceMonth.Nanosecond(), loc)
}

var monthLayouts = []string{"2006-01", "2006-01-02"}

// ParseMonth reads "YYYY-MM" or "YYYY-MM-DD" in loc.
func ParseMonth(s string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.Local
	}
	s = strings.TrimSpace(s)
	for _, layout := range monthLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, errdef.NewInvalidInput("calendar: invalid month %q, want YYYY-MM", s)
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

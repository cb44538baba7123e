package calendar

import (
	"fmt"
	"io"
	"strings"
	"time"
)

var weekdayHeaders = [7]string{"Mån", "Tis", "Ons", "Tor", "Fre", "Lör", "Sön"}

var monthNames = [12]string{
	"januari", "februari", "mars", "april", "maj", "juni",
	"juli", "augusti", "september", "oktober", "november", "december",
}

// MonthTitle formats the grid month the way the app header does, e.g. "mars 2025".
func MonthTitle(month time.Time) string {
	return fmt.Sprintf("%s %d", monthNames[month.Month()-1], month.Year())
}

// WriteText renders grid as a fixed-width 7-column month followed by the
// visible events of each day. Days showing more than limit events get a
// "+N" line. A day matching now is marked with '*'.
func WriteText(w io.Writer, grid MonthGrid, now time.Time, limit int) error {
	var b strings.Builder

	b.WriteString(MonthTitle(grid.Month))
	b.WriteString("\n")
	for _, h := range weekdayHeaders {
		fmt.Fprintf(&b, "%5s", h)
	}
	b.WriteString("\n")

	col := 0
	for i := 0; i < grid.LeadingBlanks; i++ {
		b.WriteString("     ")
		col++
	}
	for _, day := range grid.Days {
		mark := " "
		if day.IsToday(now) {
			mark = "*"
		}
		fmt.Fprintf(&b, "%3d%s ", day.Date.Day(), mark)
		col++
		if col == 7 {
			b.WriteString("\n")
			col = 0
		}
	}
	if col != 0 {
		b.WriteString("\n")
	}

	for _, day := range grid.Days {
		if len(day.Events) == 0 {
			continue
		}
		b.WriteString("\n")
		fmt.Fprintf(&b, "%s %d\n", weekdayHeaders[(int(day.Date.Weekday())+6)%7], day.Date.Day())
		for _, ev := range day.Visible(limit) {
			label := ev.Category
			if kind, err := ev.Kind(); err == nil {
				label = kind.DisplayName()
			}
			clock := "--:--"
			if start, err := ev.StartIn(day.Date.Location()); err == nil {
				clock = start.Format("15:04")
			}
			fmt.Fprintf(&b, "  %s %s [%s]\n", clock, ev.Title, label)
		}
		if rest := day.Remainder(limit); rest > 0 {
			fmt.Fprintf(&b, "  +%d\n", rest)
		}
	}

	_, err := io.WriteString(w, b.String())
	return err
}

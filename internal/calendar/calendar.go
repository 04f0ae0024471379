// Package calendar maps a month of appointments and tracking entries onto a
// day grid for presentation. Pure date math; no scheduling rules live here.
package calendar

import (
	"time"

	"github.com/careloop/clinic-scheduling/internal/scheduling"
)

// TrackingEntry is a symptom-tracking record surfaced as a colored dot on
// the calendar.
type TrackingEntry struct {
	Date     time.Time
	Category string
}

// indicatorColors maps tracking categories to their calendar dot color.
var indicatorColors = map[string]string{
	"symptom":    "#e5484d",
	"medication": "#46a758",
	"vitals":     "#0090ff",
	"mood":       "#8e4ec6",
}

const defaultIndicatorColor = "#8d8d8d"

// DayCell is one renderable day of the month grid.
type DayCell struct {
	Date           time.Time
	Day            int
	HasAppointment bool
	Indicators     []string
	IsPast         bool
}

// MonthGrid builds one cell per day of the month. A day is past when it is
// strictly before today's local midnight. Cancelled appointments produce no
// indicator.
func MonthGrid(year int, month time.Month, appts []scheduling.Appointment, entries []TrackingEntry, today time.Time) []DayCell {
	todayMidnight := time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, today.Location())

	apptDays := make(map[int]bool)
	for _, a := range appts {
		if a.Status == scheduling.StatusCancelled {
			continue
		}
		if a.Date.Year() == year && a.Date.Month() == month {
			apptDays[a.Date.Day()] = true
		}
	}

	colorDays := make(map[int][]string)
	seen := make(map[int]map[string]bool)
	for _, e := range entries {
		if e.Date.Year() != year || e.Date.Month() != month {
			continue
		}
		day := e.Date.Day()
		color, ok := indicatorColors[e.Category]
		if !ok {
			color = defaultIndicatorColor
		}
		if seen[day] == nil {
			seen[day] = make(map[string]bool)
		}
		if seen[day][color] {
			continue
		}
		seen[day][color] = true
		colorDays[day] = append(colorDays[day], color)
	}

	first := time.Date(year, month, 1, 0, 0, 0, 0, today.Location())
	daysInMonth := first.AddDate(0, 1, -1).Day()

	cells := make([]DayCell, 0, daysInMonth)
	for d := 1; d <= daysInMonth; d++ {
		date := time.Date(year, month, d, 0, 0, 0, 0, today.Location())
		cells = append(cells, DayCell{
			Date:           date,
			Day:            d,
			HasAppointment: apptDays[d],
			Indicators:     colorDays[d],
			IsPast:         date.Before(todayMidnight),
		})
	}
	return cells
}

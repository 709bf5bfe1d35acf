// Package calendar groups events by date for presentation: the month
// grid the home view renders and the date-sorted sidebar list. The sort
// here is a display concern; stores keep creation order.
package calendar

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/example/ridematch/internal/models"
)

var MonthNames = []string{
	"January", "February", "March", "April", "May", "June",
	"July", "August", "September", "October", "November", "December",
}

var DayNames = []string{"Sun", "Mon", "Tue", "Wed", "Thu", "Fri", "Sat"}

// Day is one cell of the month grid. Cells padding the first and last
// week have no date and no events.
type Day struct {
	DateStr        string         `json:"date,omitempty"`
	DayNum         int            `json:"day,omitempty"`
	InCurrentMonth bool           `json:"in_current_month"`
	Events         []models.Event `json:"events,omitempty"`
}

// EventsForDate returns the events whose trimmed date equals dateStr.
func EventsForDate(events []models.Event, dateStr string) []models.Event {
	want := strings.TrimSpace(dateStr)
	var out []models.Event
	for _, e := range events {
		if strings.TrimSpace(e.Date) == want {
			out = append(out, e)
		}
	}
	return out
}

// Weeks lays the month out as rows of seven cells, Sunday first, with
// blank cells before the 1st and after the last day.
func Weeks(year, month int, events []models.Event) [][]Day {
	first := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	daysInMonth := first.AddDate(0, 1, -1).Day()
	startDay := int(first.Weekday())

	var weeks [][]Day
	week := make([]Day, 0, 7)
	for i := 0; i < startDay; i++ {
		week = append(week, Day{})
	}
	for d := 1; d <= daysInMonth; d++ {
		dateStr := fmt.Sprintf("%04d-%02d-%02d", year, month, d)
		week = append(week, Day{
			DateStr:        dateStr,
			DayNum:         d,
			InCurrentMonth: true,
			Events:         EventsForDate(events, dateStr),
		})
		if len(week) == 7 {
			weeks = append(weeks, week)
			week = make([]Day, 0, 7)
		}
	}
	if len(week) > 0 {
		for len(week) < 7 {
			week = append(week, Day{})
		}
		weeks = append(weeks, week)
	}
	return weeks
}

// SortByDate returns a copy of events in ascending date order. Ties
// keep their relative creation order.
func SortByDate(events []models.Event) []models.Event {
	out := make([]models.Event, len(events))
	copy(out, events)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out
}

// TimeOptions is the canonical dropdown list for time inputs: every
// whole hour from 12:00 AM around the clock.
func TimeOptions() []string {
	opts := make([]string, 0, 24)
	for _, period := range []string{"AM", "PM"} {
		for _, h := range []int{12, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11} {
			opts = append(opts, fmt.Sprintf("%d:00 %s", h, period))
		}
	}
	return opts
}

// FilterTimeOptions narrows TimeOptions to entries matching what the
// user has typed so far. An empty prefix shows the first eight options.
func FilterTimeOptions(prefix string) []string {
	opts := TimeOptions()
	p := strings.Join(strings.Fields(strings.ToLower(prefix)), " ")
	if p == "" {
		return opts[:8]
	}
	var out []string
	for _, opt := range opts {
		norm := strings.ToLower(opt)
		if strings.HasPrefix(norm, p) || strings.HasPrefix(strings.Replace(norm, ":00 ", "", 1), p) {
			out = append(out, opt)
		}
	}
	return out
}

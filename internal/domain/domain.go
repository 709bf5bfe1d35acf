// Package domain holds the pure invariant helpers for the ride-matching
// core: seat accounting, event date gates, duplicate-event detection and
// free-text normalizers. No I/O, no store access.
package domain

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/example/ridematch/internal/models"
)

const dateLayout = "2006-01-02"

// AvailableSeats returns the driver's declared capacity minus the
// non-cancelled matches referencing it for its event. Never negative.
func AvailableSeats(d models.Driver, matches []models.Match) int {
	used := 0
	for _, m := range matches {
		if m.DriverID == d.ID && m.EventID == d.EventID && m.Status != models.MatchCancelled {
			used++
		}
	}
	if left := d.Seats - used; left > 0 {
		return left
	}
	return 0
}

// EventDateEligible reports whether dateStr parses as a calendar date at
// least two days after today. Rejects past dates, today and tomorrow;
// both sides are compared at midnight.
func EventDateEligible(dateStr string, today time.Time) bool {
	d, err := parseDate(dateStr)
	if err != nil {
		return false
	}
	min := midnight(today).AddDate(0, 0, 2)
	return !d.Before(min)
}

// EventTomorrow reports whether the event's date is exactly one day
// after today. Used to gate the auto-assign offer.
func EventTomorrow(e models.Event, today time.Time) bool {
	d, err := parseDate(e.Date)
	if err != nil {
		return false
	}
	return d.Equal(midnight(today).AddDate(0, 0, 1))
}

func parseDate(s string) (time.Time, error) {
	return time.Parse(dateLayout, strings.TrimSpace(s))
}

func midnight(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// NormalizeForCompare lowercases, trims and collapses inner whitespace
// so that slightly different phrasings compare equal.
func NormalizeForCompare(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

// FindSimilarEvent runs the duplicate-detection heuristic over existing
// events and returns the first hit in list order, or nil. Two events are
// similar only when their dates match exactly and either the normalized
// names are equal or contain each other, or the start time, end time and
// location all match with empty values treated as wildcards.
func FindSimilarEvent(candidate models.Event, existing []models.Event) *models.Event {
	date := strings.TrimSpace(candidate.Date)
	if date == "" {
		return nil
	}
	name := NormalizeForCompare(candidate.Name)
	start := NormalizeForCompare(candidate.StartTime)
	end := NormalizeForCompare(candidate.EndTime)
	loc := NormalizeForCompare(candidate.Location)

	for i := range existing {
		e := &existing[i]
		if strings.TrimSpace(e.Date) != date {
			continue
		}
		eName := NormalizeForCompare(e.Name)
		eStart := NormalizeForCompare(e.StartTime)
		eEnd := NormalizeForCompare(e.EndTime)
		eLoc := NormalizeForCompare(e.Location)

		nameSimilar := name != "" && eName != "" &&
			(eName == name || strings.Contains(eName, name) || strings.Contains(name, eName))
		startSimilar := (start == "" && eStart == "") || start == eStart
		endSimilar := (end == "" && eEnd == "") || end == eEnd
		locSimilar := (loc == "" && eLoc == "") || eLoc == loc ||
			(eLoc != "" && loc != "" && (strings.Contains(eLoc, loc) || strings.Contains(loc, eLoc)))

		if nameSimilar || (startSimilar && (endSimilar || end == "") && (locSimilar || loc == "")) {
			return e
		}
	}
	return nil
}

var (
	re12Hour  = regexp.MustCompile(`(?i)^(\d{1,2})(?::(\d{1,2}))?\s*(am|pm)$`)
	re24Hour  = regexp.MustCompile(`^(\d{1,2}):(\d{2})$`)
	rePartial = regexp.MustCompile(`(?i)^(\d{1,2})(?::(\d{1,2}))?\s*(am|pm)?$`)
)

// NormalizeTimeString canonicalizes free-text time input to "h:mm AM/PM"
// (no leading zero on the hour, zero-padded minutes). Accepted forms:
// "6pm", "6:30 pm", "9:5 am", 24-hour "18:30". Anything unparseable is
// returned unchanged rather than erroring.
func NormalizeTimeString(raw string) string {
	s := strings.Join(strings.Fields(raw), " ")
	if s == "" {
		return ""
	}
	var hour int
	var min, period string

	if m := re12Hour.FindStringSubmatch(s); m != nil {
		hour, _ = strconv.Atoi(m[1])
		min = m[2]
		period = strings.ToUpper(m[3])
	} else if m := re24Hour.FindStringSubmatch(s); m != nil {
		h24, _ := strconv.Atoi(m[1])
		if h24 < 0 || h24 > 23 {
			return s
		}
		min = m[2]
		if h24 >= 12 {
			period = "PM"
		} else {
			period = "AM"
		}
		switch {
		case h24 == 0:
			hour = 12
		case h24 > 12:
			hour = h24 - 12
		default:
			hour = h24
		}
	} else if m := rePartial.FindStringSubmatch(s); m != nil {
		hour, _ = strconv.Atoi(m[1])
		min = m[2]
		period = strings.ToUpper(m[3])
		if period != "AM" && period != "PM" {
			return s
		}
	} else {
		return s
	}

	if min == "" {
		min = "00"
	} else if len(min) == 1 {
		min = "0" + min
	}
	if hour > 12 {
		hour = hour % 12
	} else if hour == 0 {
		hour = 12
	}
	return fmt.Sprintf("%d:%s %s", hour, min, period)
}

// FormatPhone renders up to ten digits of raw input as a US phone number
// "(555) 123-4567", formatting progressively as digits accumulate.
func FormatPhone(raw string) string {
	var digits []byte
	for i := 0; i < len(raw) && len(digits) < 10; i++ {
		if raw[i] >= '0' && raw[i] <= '9' {
			digits = append(digits, raw[i])
		}
	}
	d := string(digits)
	switch {
	case len(d) == 0:
		return ""
	case len(d) <= 3:
		return "(" + d
	case len(d) <= 6:
		return "(" + d[:3] + ") " + d[3:]
	default:
		return "(" + d[:3] + ") " + d[3:6] + "-" + d[6:]
	}
}

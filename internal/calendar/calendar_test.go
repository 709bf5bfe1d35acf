package calendar

import (
	"testing"

	"github.com/example/ridematch/internal/models"
)

func TestWeeksShape(t *testing.T) {
	// March 2025 starts on a Saturday and has 31 days: 6 rows.
	weeks := Weeks(2025, 3, nil)
	if len(weeks) != 6 {
		t.Fatalf("expected 6 weeks, got %d", len(weeks))
	}
	for i, w := range weeks {
		if len(w) != 7 {
			t.Fatalf("week %d has %d cells", i, len(w))
		}
	}
	if weeks[0][5].InCurrentMonth {
		t.Fatal("leading pad cell marked as current month")
	}
	if weeks[0][6].DayNum != 1 || weeks[0][6].DateStr != "2025-03-01" {
		t.Fatalf("first day misplaced: %+v", weeks[0][6])
	}
	last := weeks[5]
	if last[1].DayNum != 31 {
		t.Fatalf("expected the 31st in the last week, got %+v", last[1])
	}
	if last[2].InCurrentMonth {
		t.Fatal("trailing pad cell marked as current month")
	}
}

func TestWeeksAttachEvents(t *testing.T) {
	events := []models.Event{
		{ID: "e2", Name: "Science Fair", Date: "2025-03-22"},
		{ID: "e9", Name: "Other Month", Date: "2025-04-22"},
	}
	weeks := Weeks(2025, 3, events)
	var found bool
	for _, w := range weeks {
		for _, d := range w {
			if d.DateStr == "2025-03-22" {
				found = true
				if len(d.Events) != 1 || d.Events[0].ID != "e2" {
					t.Fatalf("wrong events on the 22nd: %v", d.Events)
				}
			} else if len(d.Events) != 0 {
				t.Fatalf("unexpected events on %s", d.DateStr)
			}
		}
	}
	if !found {
		t.Fatal("2025-03-22 missing from grid")
	}
}

func TestEventsForDateTrimsInput(t *testing.T) {
	events := []models.Event{{ID: "e1", Date: " 2025-03-15"}}
	if got := EventsForDate(events, "2025-03-15 "); len(got) != 1 {
		t.Fatalf("expected trimmed match, got %v", got)
	}
}

func TestSortByDateIsStableCopy(t *testing.T) {
	events := []models.Event{
		{ID: "b", Date: "2025-04-12"},
		{ID: "a", Date: "2025-03-15"},
		{ID: "c", Date: "2025-04-12"},
	}
	sorted := SortByDate(events)
	if sorted[0].ID != "a" || sorted[1].ID != "b" || sorted[2].ID != "c" {
		t.Fatalf("bad order: %v", sorted)
	}
	if events[0].ID != "b" {
		t.Fatal("input slice mutated")
	}
}

func TestFilterTimeOptions(t *testing.T) {
	if got := FilterTimeOptions(""); len(got) != 8 {
		t.Fatalf("empty prefix should show 8 options, got %d", len(got))
	}
	got := FilterTimeOptions("6")
	// matches 6:00 AM and 6:00 PM via the hour-only form
	if len(got) != 2 || got[0] != "6:00 AM" || got[1] != "6:00 PM" {
		t.Fatalf("prefix 6: %v", got)
	}
	if got := FilterTimeOptions("12:00 a"); len(got) != 1 || got[0] != "12:00 AM" {
		t.Fatalf("prefix 12:00 a: %v", got)
	}
}

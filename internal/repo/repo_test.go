package repo

import (
	"errors"
	"testing"
	"time"

	"github.com/example/ridematch/internal/models"
	"github.com/example/ridematch/internal/storage"
)

func fixedRepo() *Repository {
	r := New(storage.NewMemoryStore())
	r.now = func() time.Time { return time.Date(2025, 3, 20, 10, 0, 0, 0, time.UTC) }
	return r
}

func TestCreateEventRejectsNearDates(t *testing.T) {
	r := fixedRepo()
	for _, date := range []string{"2025-03-20", "2025-03-21", "2025-03-01", "garbage"} {
		if _, err := r.CreateEvent(models.Event{Name: "X", Date: date}); !errors.Is(err, ErrDateTooSoon) {
			t.Fatalf("date %q: expected ErrDateTooSoon, got %v", date, err)
		}
	}
	if _, err := r.CreateEvent(models.Event{Name: "X", Date: "2025-03-22"}); err != nil {
		t.Fatalf("today+2 should be accepted: %v", err)
	}
}

func TestCreateEventNormalizesInput(t *testing.T) {
	r := fixedRepo()
	e, err := r.CreateEvent(models.Event{
		Name:      "  Spring Concert  ",
		Date:      "2025-03-25",
		StartTime: "6pm",
		EndTime:   "20:00",
		Location:  " Main Auditorium ",
	})
	if err != nil {
		t.Fatal(err)
	}
	if e.Name != "Spring Concert" || e.Location != "Main Auditorium" {
		t.Fatalf("whitespace not trimmed: %q %q", e.Name, e.Location)
	}
	if e.StartTime != "6:00 PM" || e.EndTime != "8:00 PM" {
		t.Fatalf("times not normalized: %q %q", e.StartTime, e.EndTime)
	}
}

func TestCreateDriverClampsSeats(t *testing.T) {
	r := fixedRepo()
	d, err := r.CreateDriver(models.Driver{EventID: "e1", Name: "Jane", Seats: 0})
	if err != nil {
		t.Fatal(err)
	}
	if d.Seats != 1 {
		t.Fatalf("seats must clamp to 1, got %d", d.Seats)
	}
}

func TestFindSimilarEventSurfacesChoice(t *testing.T) {
	r := fixedRepo()
	stored, err := r.CreateEvent(models.Event{Name: "Science Fair", Date: "2025-03-22", StartTime: "2:00 PM", Location: "Gym"})
	if err != nil {
		t.Fatal(err)
	}
	hit, err := r.FindSimilarEvent(models.Event{Name: "science fair", Date: "2025-03-22"})
	if err != nil {
		t.Fatal(err)
	}
	if hit == nil || hit.ID != stored.ID {
		t.Fatalf("expected similar event %s, got %v", stored.ID, hit)
	}
	miss, err := r.FindSimilarEvent(models.Event{Name: "science fair", Date: "2025-03-23"})
	if err != nil {
		t.Fatal(err)
	}
	if miss != nil {
		t.Fatalf("different date must not match, got %v", miss)
	}
}

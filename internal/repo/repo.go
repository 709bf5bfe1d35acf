// Package repo is the validated create/read façade over an injected
// EntityStore. It owns the creation-side invariants (event date gate,
// seat clamping, input normalization); everything below it is plain
// persistence and everything above it is presentation.
package repo

import (
	"errors"
	"strings"
	"time"

	"github.com/example/ridematch/internal/domain"
	"github.com/example/ridematch/internal/models"
	"github.com/example/ridematch/internal/storage"
)

// ErrDateTooSoon rejects events dated earlier than two days out. The UI
// re-presents the form with this message; it is never fatal.
var ErrDateTooSoon = errors.New("event date must be at least 2 days from today")

type Repository struct {
	store storage.EntityStore
	now   func() time.Time
}

func New(store storage.EntityStore) *Repository {
	return &Repository{store: store, now: time.Now}
}

// NewWithClock injects the clock the date gate reads. Tests pin it.
func NewWithClock(store storage.EntityStore, clock func() time.Time) *Repository {
	return &Repository{store: store, now: clock}
}

// CreateEvent normalizes the submission, gates on the date eligibility
// rule and stores the event. Times are canonicalized for display;
// unparseable times pass through as typed.
func (r *Repository) CreateEvent(e models.Event) (models.Event, error) {
	if !domain.EventDateEligible(e.Date, r.now()) {
		return models.Event{}, ErrDateTooSoon
	}
	e.Name = strings.TrimSpace(e.Name)
	e.Location = strings.TrimSpace(e.Location)
	e.StartTime = domain.NormalizeTimeString(e.StartTime)
	e.EndTime = domain.NormalizeTimeString(e.EndTime)
	return r.store.CreateEvent(e)
}

// FindSimilarEvent surfaces the duplicate-detection heuristic for the
// "did you mean this one?" prompt. A hit is a user choice, not an
// error; callers decide whether to reuse the existing event.
func (r *Repository) FindSimilarEvent(candidate models.Event) (*models.Event, error) {
	events, err := r.store.ListEvents()
	if err != nil {
		return nil, err
	}
	return domain.FindSimilarEvent(candidate, events), nil
}

func (r *Repository) CreateDriver(d models.Driver) (models.Driver, error) {
	if d.Seats < 1 {
		d.Seats = 1
	}
	return r.store.CreateDriver(d)
}

func (r *Repository) CreateStudent(s models.Student) (models.Student, error) {
	return r.store.CreateStudent(s)
}

// CreateMatch appends a pending match, or returns (nil, nil) when the
// exact triple already exists.
func (r *Repository) CreateMatch(driverID, studentID, eventID string) (*models.Match, error) {
	return r.store.CreateMatch(driverID, studentID, eventID)
}

func (r *Repository) ConfirmMatch(driverID, studentID, eventID string) error {
	return r.store.ConfirmMatch(driverID, studentID, eventID)
}

func (r *Repository) ListEvents() ([]models.Event, error) { return r.store.ListEvents() }

func (r *Repository) GetEvent(id string) (models.Event, bool) { return r.store.GetEvent(id) }

func (r *Repository) DriversByEvent(eventID string) ([]models.Driver, error) {
	return r.store.DriversByEvent(eventID)
}

func (r *Repository) StudentsByEvent(eventID string) ([]models.Student, error) {
	return r.store.StudentsByEvent(eventID)
}

func (r *Repository) MatchesByEvent(eventID string) ([]models.Match, error) {
	return r.store.MatchesByEvent(eventID)
}

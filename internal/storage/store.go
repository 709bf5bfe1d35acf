package storage

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/example/ridematch/internal/models"
)

// ErrSchemaMissing marks a remote store whose tables have not been set
// up yet. Callers use errors.Is to emit a one-time setup warning instead
// of a generic failure.
var ErrSchemaMissing = errors.New("storage: schema missing")

// EntityStore is the persistence contract shared by the in-memory store
// and the Postgres-backed store. Create operations assign identity and
// creation timestamps; list operations preserve creation order.
type EntityStore interface {
	CreateEvent(e models.Event) (models.Event, error)
	ListEvents() ([]models.Event, error)
	GetEvent(id string) (models.Event, bool)

	CreateDriver(d models.Driver) (models.Driver, error)
	DriversByEvent(eventID string) ([]models.Driver, error)

	CreateStudent(s models.Student) (models.Student, error)
	StudentsByEvent(eventID string) ([]models.Student, error)

	// CreateMatch returns (nil, nil) when the exact triple already
	// exists; duplicate creation is a no-op, not an error.
	CreateMatch(driverID, studentID, eventID string) (*models.Match, error)
	// ConfirmMatch is a no-op when the triple is absent and idempotent
	// when the match is already confirmed.
	ConfirmMatch(driverID, studentID, eventID string) error
	MatchesByEvent(eventID string) ([]models.Match, error)
}

// MemoryStore keeps all entities in insertion-ordered slices guarded by
// one mutex. Ids are per-kind counters with the entity's letter prefix,
// matching what the UI shows for locally created records.
type MemoryStore struct {
	mu          sync.RWMutex
	events      []models.Event
	drivers     []models.Driver
	students    []models.Student
	matches     []models.Match
	nextEvent   int
	nextDriver  int
	nextStudent int
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{nextEvent: 1, nextDriver: 1, nextStudent: 1}
}

// SeedEvents is the demo fixture used when no remote store is
// configured.
func SeedEvents() []models.Event {
	return []models.Event{
		{ID: "e1", Name: "Spring Band Concert", Date: "2025-03-15", StartTime: "6:00 PM", Location: "Main Auditorium"},
		{ID: "e2", Name: "Science Fair", Date: "2025-03-22", StartTime: "2:00 PM", Location: "Gym & Cafeteria"},
		{ID: "e3", Name: "Field Day", Date: "2025-04-05", StartTime: "9:00 AM", Location: "Sports Field"},
		{ID: "e4", Name: "Parent-Teacher Night", Date: "2025-04-12", StartTime: "5:30 PM", Location: "Classrooms"},
	}
}

// Seed loads pre-existing events and bumps the id counter past them.
func (m *MemoryStore) Seed(events []models.Event) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, events...)
	for _, e := range events {
		var n int
		if _, err := fmt.Sscanf(e.ID, "e%d", &n); err == nil && n >= m.nextEvent {
			m.nextEvent = n + 1
		}
	}
}

func (m *MemoryStore) CreateEvent(e models.Event) (models.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e.ID = fmt.Sprintf("e%d", m.nextEvent)
	m.nextEvent++
	m.events = append(m.events, e)
	return e, nil
}

func (m *MemoryStore) ListEvents() ([]models.Event, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]models.Event, len(m.events))
	copy(out, m.events)
	return out, nil
}

func (m *MemoryStore) GetEvent(id string) (models.Event, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, e := range m.events {
		if e.ID == id {
			return e, true
		}
	}
	return models.Event{}, false
}

func (m *MemoryStore) CreateDriver(d models.Driver) (models.Driver, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d.ID = fmt.Sprintf("d%d", m.nextDriver)
	m.nextDriver++
	d.CreatedAt = time.Now()
	m.drivers = append(m.drivers, d)
	return d, nil
}

func (m *MemoryStore) DriversByEvent(eventID string) ([]models.Driver, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []models.Driver
	for _, d := range m.drivers {
		if d.EventID == eventID {
			out = append(out, d)
		}
	}
	return out, nil
}

func (m *MemoryStore) CreateStudent(s models.Student) (models.Student, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s.ID = fmt.Sprintf("s%d", m.nextStudent)
	m.nextStudent++
	s.CreatedAt = time.Now()
	m.students = append(m.students, s)
	return s, nil
}

func (m *MemoryStore) StudentsByEvent(eventID string) ([]models.Student, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []models.Student
	for _, s := range m.students {
		if s.EventID == eventID {
			out = append(out, s)
		}
	}
	return out, nil
}

func (m *MemoryStore) CreateMatch(driverID, studentID, eventID string) (*models.Match, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, x := range m.matches {
		if x.DriverID == driverID && x.StudentID == studentID && x.EventID == eventID {
			return nil, nil
		}
	}
	match := models.Match{
		DriverID:  driverID,
		StudentID: studentID,
		EventID:   eventID,
		Status:    models.MatchPending,
		CreatedAt: time.Now(),
	}
	m.matches = append(m.matches, match)
	return &match, nil
}

func (m *MemoryStore) ConfirmMatch(driverID, studentID, eventID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.matches {
		x := &m.matches[i]
		if x.DriverID == driverID && x.StudentID == studentID && x.EventID == eventID {
			x.Status = models.MatchConfirmed
			return nil
		}
	}
	return nil
}

func (m *MemoryStore) MatchesByEvent(eventID string) ([]models.Match, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []models.Match
	for _, x := range m.matches {
		if x.EventID == eventID {
			out = append(out, x)
		}
	}
	return out, nil
}

package matcher

import (
	"context"
	"log/slog"
	"time"

	"github.com/example/ridematch/internal/domain"
	"github.com/example/ridematch/internal/models"
	"github.com/example/ridematch/internal/observability"
	"github.com/example/ridematch/internal/repo"
	"github.com/example/ridematch/internal/suggest"
)

// Suggester proposes driver/student pairs for an event. Implemented by
// suggest.Client; nil means the feature is disabled, not an error.
type Suggester interface {
	Suggest(ctx context.Context, eventName string, drivers []suggest.DriverCandidate, students []suggest.StudentCandidate) ([]models.Assignment, error)
}

// Publisher emits match lifecycle records to an external stream.
type Publisher interface {
	PublishMatch(m models.Match) error
}

// Notifier pushes a match to a signed-in owner's live session.
type Notifier interface {
	NotifyMatch(userID string, m models.Match) error
}

// Engine drives the match state machine: matches are created pending,
// move one-way to confirmed, and count against driver capacity until
// cancelled. Capacity is advisory at creation time; only candidate
// listing filters by available seats.
type Engine struct {
	Repo     *repo.Repository
	Suggest  Suggester // optional
	Events   Publisher // optional
	Sessions Notifier  // optional
	Logger   *slog.Logger
	Now      func() time.Time
}

// AutoAssignResult is the tagged outcome of RunAutoAssign. Reason is
// set only when OK is false.
type AutoAssignResult struct {
	OK      bool   `json:"ok"`
	Created int    `json:"created"`
	Reason  string `json:"reason,omitempty"`
}

func (e *Engine) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}

// CandidateDriversFor lists the event's drivers that still have seats.
// It does not consider whether the student asking is already matched;
// suppressing the list for matched students is the caller's concern.
func (e *Engine) CandidateDriversFor(eventID string) ([]models.Driver, error) {
	drivers, err := e.Repo.DriversByEvent(eventID)
	if err != nil {
		return nil, err
	}
	matches, err := e.Repo.MatchesByEvent(eventID)
	if err != nil {
		return nil, err
	}
	var out []models.Driver
	for _, d := range drivers {
		if domain.AvailableSeats(d, matches) > 0 {
			out = append(out, d)
		}
	}
	return out, nil
}

// CandidateStudentsFor lists the event's students that appear in no
// non-cancelled match yet.
func (e *Engine) CandidateStudentsFor(eventID string) ([]models.Student, error) {
	students, err := e.Repo.StudentsByEvent(eventID)
	if err != nil {
		return nil, err
	}
	matches, err := e.Repo.MatchesByEvent(eventID)
	if err != nil {
		return nil, err
	}
	matched := make(map[string]bool, len(matches))
	for _, m := range matches {
		if m.Status != models.MatchCancelled {
			matched[m.StudentID] = true
		}
	}
	var out []models.Student
	for _, s := range students {
		if !matched[s.ID] {
			out = append(out, s)
		}
	}
	return out, nil
}

// RequestMatch creates a pending match for the triple, returning nil
// when it already exists. Stream publication and session notification
// are best-effort and never fail the request.
func (e *Engine) RequestMatch(driverID, studentID, eventID string) (*models.Match, error) {
	m, err := e.Repo.CreateMatch(driverID, studentID, eventID)
	if err != nil || m == nil {
		return m, err
	}
	observability.MatchesTotal.Inc()
	if e.Events != nil {
		if perr := e.Events.PublishMatch(*m); perr != nil && e.Logger != nil {
			e.Logger.Warn("match publish failed", "driver", driverID, "student", studentID, "error", perr)
		}
	}
	e.notifyOwners(*m)
	return m, nil
}

// ConfirmMatch moves the triple to confirmed. Absent triples and
// already-confirmed matches are silent no-ops.
func (e *Engine) ConfirmMatch(driverID, studentID, eventID string) error {
	return e.Repo.ConfirmMatch(driverID, studentID, eventID)
}

// RunAutoAssign asks the external suggestion service to pair the
// event's remaining students with drivers that have seats. It only runs
// the day before the event. The external result is trusted as-is: each
// proposed pair goes through RequestMatch, so duplicate triples are
// dropped, but an over-committing response is not re-validated against
// capacity here.
func (e *Engine) RunAutoAssign(ctx context.Context, eventID string) AutoAssignResult {
	if e.Suggest == nil {
		return AutoAssignResult{OK: false, Reason: "suggestion service not configured"}
	}
	event, ok := e.Repo.GetEvent(eventID)
	if !ok {
		return AutoAssignResult{OK: false, Reason: "event not found"}
	}
	if !domain.EventTomorrow(event, e.now()) {
		return AutoAssignResult{OK: false, Reason: "auto-assign only runs the day before the event"}
	}

	drivers, err := e.CandidateDriversFor(eventID)
	if err != nil {
		return AutoAssignResult{OK: false, Reason: err.Error()}
	}
	students, err := e.CandidateStudentsFor(eventID)
	if err != nil {
		return AutoAssignResult{OK: false, Reason: err.Error()}
	}
	if len(drivers) == 0 || len(students) == 0 {
		return AutoAssignResult{OK: true, Created: 0}
	}

	matches, err := e.Repo.MatchesByEvent(eventID)
	if err != nil {
		return AutoAssignResult{OK: false, Reason: err.Error()}
	}
	dc := make([]suggest.DriverCandidate, 0, len(drivers))
	for _, d := range drivers {
		loc := d.Notes
		if loc == "" {
			loc = "(no location)"
		}
		dc = append(dc, suggest.DriverCandidate{
			ID:       d.ID,
			Name:     d.Name,
			Seats:    domain.AvailableSeats(d, matches),
			Location: loc,
		})
	}
	sc := make([]suggest.StudentCandidate, 0, len(students))
	for _, s := range students {
		pickup := s.Pickup
		if pickup == "" {
			pickup = "(no pickup)"
		}
		sc = append(sc, suggest.StudentCandidate{ID: s.ID, Name: s.Name, Pickup: pickup, Notes: s.Notes})
	}

	observability.AutoAssignRuns.Inc()
	assignments, err := e.Suggest.Suggest(ctx, event.Name, dc, sc)
	if err != nil {
		if e.Logger != nil {
			e.Logger.Error("auto-assign suggestion failed", "event", eventID, "error", err)
		}
		return AutoAssignResult{OK: false, Reason: err.Error()}
	}

	created := 0
	for _, a := range assignments {
		if a.DriverID == "" || a.StudentID == "" {
			continue
		}
		m, err := e.RequestMatch(a.DriverID, a.StudentID, eventID)
		if err != nil {
			return AutoAssignResult{OK: false, Reason: err.Error()}
		}
		if m != nil {
			created++
		}
	}
	observability.AutoAssignCreated.Add(float64(created))
	return AutoAssignResult{OK: true, Created: created}
}

// notifyOwners pushes the new match to the driver's and student's
// owners when they are signed-in sessions. Anonymous records have no
// owner to notify.
func (e *Engine) notifyOwners(m models.Match) {
	if e.Sessions == nil {
		return
	}
	drivers, err := e.Repo.DriversByEvent(m.EventID)
	if err == nil {
		for _, d := range drivers {
			if d.ID == m.DriverID && d.OwnerUserID != "" {
				_ = e.Sessions.NotifyMatch(d.OwnerUserID, m)
			}
		}
	}
	students, err := e.Repo.StudentsByEvent(m.EventID)
	if err == nil {
		for _, s := range students {
			if s.ID == m.StudentID && s.OwnerUserID != "" {
				_ = e.Sessions.NotifyMatch(s.OwnerUserID, m)
			}
		}
	}
}

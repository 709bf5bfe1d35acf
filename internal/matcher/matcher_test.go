package matcher

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/example/ridematch/internal/models"
	"github.com/example/ridematch/internal/repo"
	"github.com/example/ridematch/internal/storage"
	"github.com/example/ridematch/internal/suggest"
)

type fakeSuggester struct {
	calls       int
	assignments []models.Assignment
	err         error

	gotDrivers  []suggest.DriverCandidate
	gotStudents []suggest.StudentCandidate
}

func (f *fakeSuggester) Suggest(_ context.Context, _ string, drivers []suggest.DriverCandidate, students []suggest.StudentCandidate) ([]models.Assignment, error) {
	f.calls++
	f.gotDrivers = drivers
	f.gotStudents = students
	return f.assignments, f.err
}

type fakePublisher struct {
	published []models.Match
	err       error
}

func (f *fakePublisher) PublishMatch(m models.Match) error {
	f.published = append(f.published, m)
	return f.err
}

type fakeNotifier struct {
	notified map[string]int
}

func (f *fakeNotifier) NotifyMatch(userID string, _ models.Match) error {
	if f.notified == nil {
		f.notified = map[string]int{}
	}
	f.notified[userID]++
	return nil
}

// testEngine builds an engine over a fresh in-memory store with one
// event dated the day after the fixed clock. The event goes straight
// into the store: it was created in the past and its eve has arrived,
// which the create-side date gate would never allow in one step.
func testEngine(t *testing.T) (*Engine, models.Event) {
	t.Helper()
	clock := func() time.Time { return time.Date(2025, 5, 9, 10, 0, 0, 0, time.UTC) }
	store := storage.NewMemoryStore()
	e := &Engine{Repo: repo.NewWithClock(store, clock), Now: clock}
	event, err := store.CreateEvent(models.Event{Name: "Track Meet", Date: "2025-05-10", StartTime: "8:00 AM"})
	if err != nil {
		t.Fatalf("create event: %v", err)
	}
	return e, event
}

func addDriver(t *testing.T, e *Engine, eventID, name string, seats int, owner string) models.Driver {
	t.Helper()
	d, err := e.Repo.CreateDriver(models.Driver{EventID: eventID, Name: name, Phone: "555-0100", Seats: seats, OwnerUserID: owner})
	if err != nil {
		t.Fatalf("create driver: %v", err)
	}
	return d
}

func addStudent(t *testing.T, e *Engine, eventID, name string) models.Student {
	t.Helper()
	s, err := e.Repo.CreateStudent(models.Student{EventID: eventID, Name: name, Phone: "555-0101"})
	if err != nil {
		t.Fatalf("create student: %v", err)
	}
	return s
}

func TestRequestMatchDuplicateIsNoOp(t *testing.T) {
	e, event := testEngine(t)
	d := addDriver(t, e, event.ID, "Dana", 3, "")
	s := addStudent(t, e, event.ID, "Sam")

	m, err := e.RequestMatch(d.ID, s.ID, event.ID)
	if err != nil || m == nil {
		t.Fatalf("first match: m=%v err=%v", m, err)
	}
	if m.Status != models.MatchPending {
		t.Fatalf("status = %q, want pending", m.Status)
	}

	again, err := e.RequestMatch(d.ID, s.ID, event.ID)
	if err != nil {
		t.Fatalf("repeat match: %v", err)
	}
	if again != nil {
		t.Fatalf("repeat match created %+v, want nil", again)
	}
	matches, _ := e.Repo.MatchesByEvent(event.ID)
	if len(matches) != 1 {
		t.Fatalf("got %d matches, want 1", len(matches))
	}
}

// A driver with two seats can still be matched a third time by hand;
// capacity only filters the candidate list.
func TestCapacityIsAdvisory(t *testing.T) {
	e, event := testEngine(t)
	d := addDriver(t, e, event.ID, "Alex", 2, "")
	s1 := addStudent(t, e, event.ID, "S1")
	s2 := addStudent(t, e, event.ID, "S2")
	s3 := addStudent(t, e, event.ID, "S3")

	for _, s := range []models.Student{s1, s2} {
		if m, err := e.RequestMatch(d.ID, s.ID, event.ID); err != nil || m == nil {
			t.Fatalf("match %s: m=%v err=%v", s.ID, m, err)
		}
	}

	drivers, err := e.CandidateDriversFor(event.ID)
	if err != nil {
		t.Fatalf("candidate drivers: %v", err)
	}
	if len(drivers) != 0 {
		t.Fatalf("full driver still listed as candidate: %+v", drivers)
	}

	m, err := e.RequestMatch(d.ID, s3.ID, event.ID)
	if err != nil || m == nil {
		t.Fatalf("over-capacity match refused: m=%v err=%v", m, err)
	}
}

func TestCandidateStudentsSkipMatched(t *testing.T) {
	e, event := testEngine(t)
	d := addDriver(t, e, event.ID, "Dana", 4, "")
	s1 := addStudent(t, e, event.ID, "S1")
	s2 := addStudent(t, e, event.ID, "S2")

	if _, err := e.RequestMatch(d.ID, s1.ID, event.ID); err != nil {
		t.Fatalf("match: %v", err)
	}
	students, err := e.CandidateStudentsFor(event.ID)
	if err != nil {
		t.Fatalf("candidate students: %v", err)
	}
	if len(students) != 1 || students[0].ID != s2.ID {
		t.Fatalf("candidates = %+v, want only %s", students, s2.ID)
	}
}

func TestConfirmMatchIdempotent(t *testing.T) {
	e, event := testEngine(t)
	d := addDriver(t, e, event.ID, "Dana", 3, "")
	s := addStudent(t, e, event.ID, "Sam")
	if _, err := e.RequestMatch(d.ID, s.ID, event.ID); err != nil {
		t.Fatalf("match: %v", err)
	}

	for i := 0; i < 2; i++ {
		if err := e.ConfirmMatch(d.ID, s.ID, event.ID); err != nil {
			t.Fatalf("confirm #%d: %v", i+1, err)
		}
	}
	matches, _ := e.Repo.MatchesByEvent(event.ID)
	if matches[0].Status != models.MatchConfirmed {
		t.Fatalf("status = %q, want confirmed", matches[0].Status)
	}
}

func TestRequestMatchNotifiesAndPublishes(t *testing.T) {
	e, event := testEngine(t)
	pub := &fakePublisher{}
	not := &fakeNotifier{}
	e.Events = pub
	e.Sessions = not

	d := addDriver(t, e, event.ID, "Dana", 3, "u1")
	s := addStudent(t, e, event.ID, "Sam")
	if _, err := e.RequestMatch(d.ID, s.ID, event.ID); err != nil {
		t.Fatalf("match: %v", err)
	}
	if len(pub.published) != 1 {
		t.Fatalf("published %d events, want 1", len(pub.published))
	}
	if not.notified["u1"] != 1 {
		t.Fatalf("owner notifications = %v, want u1 once", not.notified)
	}
}

func TestAutoAssignOnlyDayBefore(t *testing.T) {
	e, _ := testEngine(t)
	sg := &fakeSuggester{}
	e.Suggest = sg

	// Event four days out; the window has not opened.
	far, err := e.Repo.CreateEvent(models.Event{Name: "Chess Finals", Date: "2025-05-13"})
	if err != nil {
		t.Fatalf("create event: %v", err)
	}
	addDriver(t, e, far.ID, "Dana", 3, "")
	addStudent(t, e, far.ID, "Sam")

	res := e.RunAutoAssign(context.Background(), far.ID)
	if res.OK {
		t.Fatalf("auto-assign ran early: %+v", res)
	}
	if sg.calls != 0 {
		t.Fatalf("suggester called %d times, want 0", sg.calls)
	}
}

func TestAutoAssignSkipsWhenNoCandidates(t *testing.T) {
	e, event := testEngine(t)
	sg := &fakeSuggester{}
	e.Suggest = sg

	addDriver(t, e, event.ID, "Dana", 3, "")
	// no students

	res := e.RunAutoAssign(context.Background(), event.ID)
	if !res.OK || res.Created != 0 {
		t.Fatalf("result = %+v, want ok with zero created", res)
	}
	if sg.calls != 0 {
		t.Fatalf("suggester called with an empty side")
	}
}

func TestAutoAssignCreatesPendingMatches(t *testing.T) {
	e, event := testEngine(t)
	d := addDriver(t, e, event.ID, "Dana", 2, "")
	s1 := addStudent(t, e, event.ID, "S1")
	s2 := addStudent(t, e, event.ID, "S2")

	sg := &fakeSuggester{assignments: []models.Assignment{
		{DriverID: d.ID, StudentID: s1.ID},
		{DriverID: d.ID, StudentID: s2.ID},
		{DriverID: "", StudentID: s2.ID}, // malformed entry is skipped
	}}
	e.Suggest = sg

	res := e.RunAutoAssign(context.Background(), event.ID)
	if !res.OK || res.Created != 2 {
		t.Fatalf("result = %+v, want ok with 2 created", res)
	}
	if len(sg.gotDrivers) != 1 || sg.gotDrivers[0].Seats != 2 {
		t.Fatalf("driver candidates = %+v", sg.gotDrivers)
	}
	if len(sg.gotStudents) != 2 {
		t.Fatalf("student candidates = %+v", sg.gotStudents)
	}
	matches, _ := e.Repo.MatchesByEvent(event.ID)
	for _, m := range matches {
		if m.Status != models.MatchPending {
			t.Fatalf("auto-assigned match status = %q, want pending", m.Status)
		}
	}
}

func TestAutoAssignSuggestionFailure(t *testing.T) {
	e, event := testEngine(t)
	addDriver(t, e, event.ID, "Dana", 2, "")
	addStudent(t, e, event.ID, "Sam")
	e.Suggest = &fakeSuggester{err: errors.New("upstream 500")}

	res := e.RunAutoAssign(context.Background(), event.ID)
	if res.OK {
		t.Fatalf("result = %+v, want failure", res)
	}
	matches, _ := e.Repo.MatchesByEvent(event.ID)
	if len(matches) != 0 {
		t.Fatalf("matches created on failure: %+v", matches)
	}
}

func TestAutoAssignUnconfigured(t *testing.T) {
	e, event := testEngine(t)
	res := e.RunAutoAssign(context.Background(), event.ID)
	if res.OK || res.Reason == "" {
		t.Fatalf("result = %+v, want reason for disabled feature", res)
	}
}

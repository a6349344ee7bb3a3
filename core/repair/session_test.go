package repair

import (
	"testing"
	"time"

	"github.com/kilianp07/rosterd/core/model"
)

func sessionPlan() *model.PlanVersion {
	return &model.PlanVersion{
		ID:    "plan-1",
		State: model.PlanPublished,
		Assignments: []model.Assignment{
			{DriverID: "d1", Day: "2026-03-02", BlockID: "b1", TourIDs: []string{"t1"}},
			{DriverID: "d2", Day: "2026-03-02", BlockID: "b2", TourIDs: []string{"t2"}},
		},
	}
}

func reassigned(p *model.PlanVersion, blockID, driverID string) []model.Assignment {
	next := model.CloneAssignments(p.Assignments)
	for i := range next {
		if next[i].BlockID == blockID {
			next[i].DriverID = driverID
		}
	}
	return next
}

func TestSessionStageAndUndo(t *testing.T) {
	m := NewSessionManager(time.Minute)
	p := sessionPlan()
	s, err := m.Open(p, model.IncidentSpec{Type: model.IncidentSick, DriverID: "d1"})
	if err != nil {
		t.Fatalf("open: %v", err)
	}

	if err := s.Stage("swap b1 to d3", reassigned(p, "b1", "d3")); err != nil {
		t.Fatalf("stage: %v", err)
	}
	if err := s.Stage("swap b2 to d4", reassigned(p, "b2", "d4")); err != nil {
		t.Fatalf("stage: %v", err)
	}
	if s.Depth() != 2 {
		t.Fatalf("undo depth = %d, want 2", s.Depth())
	}

	if err := s.Undo(); err != nil {
		t.Fatalf("undo: %v", err)
	}
	working := s.Working()
	if working[0].DriverID != "d3" {
		t.Fatalf("first undo should keep the b1 swap, got driver %s", working[0].DriverID)
	}
	if err := s.Undo(); err != nil {
		t.Fatalf("undo: %v", err)
	}
	if got := s.Working()[0].DriverID; got != "d1" {
		t.Fatalf("second undo should restore the original plan, got driver %s", got)
	}

	err = s.Undo()
	if !model.IsCode(err, model.CodeNothingToUndo) {
		t.Fatalf("expected NOTHING_TO_UNDO, got %v", err)
	}
}

func TestSessionUndoReopensPreview(t *testing.T) {
	m := NewSessionManager(time.Minute)
	p := sessionPlan()
	s, _ := m.Open(p, model.IncidentSpec{DriverID: "d1"})

	if err := s.Stage("swap", reassigned(p, "b1", "d3")); err != nil {
		t.Fatalf("stage: %v", err)
	}
	if err := s.Freeze(Preview{Assignments: s.Working()}); err != nil {
		t.Fatalf("freeze: %v", err)
	}
	if s.Status() != SessionPreviewing {
		t.Fatalf("status = %s, want PREVIEWING", s.Status())
	}
	if err := s.Stage("late edit", nil); !model.IsCode(err, model.CodeSessionState) {
		t.Fatalf("frozen session accepted a mutation: %v", err)
	}

	if err := s.Undo(); err != nil {
		t.Fatalf("undo from preview: %v", err)
	}
	if s.Status() != SessionActive {
		t.Fatalf("undo should reopen the session, status = %s", s.Status())
	}
	if _, err := s.PreviewResult(); err == nil {
		t.Fatal("preview should be discarded after undo")
	}
}

func TestSessionExpiry(t *testing.T) {
	m := NewSessionManager(time.Minute)
	p := sessionPlan()
	s, _ := m.Open(p, model.IncidentSpec{DriverID: "d1"})

	s.now = func() time.Time { return time.Now().Add(2 * time.Minute) }
	if s.Status() != SessionExpired {
		t.Fatalf("status = %s, want EXPIRED", s.Status())
	}
	if err := s.Stage("too late", nil); !model.IsCode(err, model.CodeSessionExpired) {
		t.Fatalf("expected SESSION_EXPIRED, got %v", err)
	}
	if err := s.Undo(); !model.IsCode(err, model.CodeSessionExpired) {
		t.Fatalf("expected SESSION_EXPIRED on undo, got %v", err)
	}

	// An expired session no longer blocks a new one for the same plan.
	if _, err := m.Open(p, model.IncidentSpec{DriverID: "d2"}); err != nil {
		t.Fatalf("open after expiry: %v", err)
	}
}

func TestSessionAppliedIsImmutable(t *testing.T) {
	m := NewSessionManager(time.Minute)
	p := sessionPlan()
	s, _ := m.Open(p, model.IncidentSpec{DriverID: "d1"})

	if err := s.Stage("swap", reassigned(p, "b1", "d3")); err != nil {
		t.Fatalf("stage: %v", err)
	}
	if err := s.Freeze(Preview{Assignments: s.Working()}); err != nil {
		t.Fatalf("freeze: %v", err)
	}
	if err := s.markApplied(); err != nil {
		t.Fatalf("markApplied: %v", err)
	}

	if err := s.Undo(); !model.IsCode(err, model.CodeSnapshotPublished) {
		t.Fatalf("expected SNAPSHOT_ALREADY_PUBLISHED, got %v", err)
	}
	if err := s.Abort(); !model.IsCode(err, model.CodeSessionState) {
		t.Fatalf("applied session accepted abort: %v", err)
	}
}

func TestSessionManagerAdmitsOnePerPlan(t *testing.T) {
	m := NewSessionManager(time.Minute)
	p := sessionPlan()

	first, err := m.Open(p, model.IncidentSpec{DriverID: "d1"})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	_, err = m.Open(p, model.IncidentSpec{DriverID: "d2"})
	if !model.IsCode(err, model.CodeSessionActive) {
		t.Fatalf("expected SESSION_ALREADY_ACTIVE, got %v", err)
	}

	if err := first.Abort(); err != nil {
		t.Fatalf("abort: %v", err)
	}
	second, err := m.Open(p, model.IncidentSpec{DriverID: "d2"})
	if err != nil {
		t.Fatalf("open after abort: %v", err)
	}

	got, err := m.Get(second.ID)
	if err != nil || got != second {
		t.Fatalf("get %s: %v", second.ID, err)
	}
	if _, err := m.Get("missing"); !model.IsCode(err, model.CodeNotFound) {
		t.Fatalf("expected NOT_FOUND, got %v", err)
	}
}

func TestSessionWorkingIsIsolatedCopy(t *testing.T) {
	m := NewSessionManager(time.Minute)
	p := sessionPlan()
	s, _ := m.Open(p, model.IncidentSpec{DriverID: "d1"})

	w := s.Working()
	w[0].DriverID = "tampered"
	w[0].TourIDs[0] = "tampered"
	if got := s.Working()[0]; got.DriverID == "tampered" || got.TourIDs[0] == "tampered" {
		t.Fatal("Working leaked a mutable reference into the session")
	}
	if p.Assignments[0].DriverID != "d1" {
		t.Fatal("session mutated the source plan")
	}
}

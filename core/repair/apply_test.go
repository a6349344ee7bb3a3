package repair

import (
	"testing"
	"time"

	"github.com/kilianp07/rosterd/core/canonical"
	"github.com/kilianp07/rosterd/core/model"
	"github.com/kilianp07/rosterd/core/plan"
)

func newApplier() *Applier {
	return NewApplier(plan.NewLifecycle(nil, plan.NewFreezeWindow(12*time.Hour)), nil, nil)
}

func previewedSession(t *testing.T, ctx Context, next []model.Assignment) *Session {
	t.Helper()
	m := NewSessionManager(time.Minute)
	s, err := m.Open(ctx.Plan, sickAllDay("d1", "2026-03-02"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := s.Stage("swap", next); err != nil {
		t.Fatalf("stage: %v", err)
	}
	if err := s.Freeze(Preview{Assignments: s.Working()}); err != nil {
		t.Fatalf("freeze: %v", err)
	}
	return s
}

func TestApplyCommitsNewPlanVersion(t *testing.T) {
	ctx := repairContext()
	next := model.CloneAssignments(ctx.Plan.Assignments)
	next[0].DriverID = "d3" // b1 moves off the sick driver
	s := previewedSession(t, ctx, next)

	res, err := newApplier().Apply(s, ctx.Plan, ctx.Tours, ctx.Limits)
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if res.Plan.ID == ctx.Plan.ID {
		t.Fatal("apply must mint a new plan version, not mutate the current one")
	}
	if res.Plan.State != model.PlanPublished {
		t.Fatalf("applied plan state = %s, want PUBLISHED", res.Plan.State)
	}
	if res.Snapshot == nil || res.Snapshot.PlanVersionID != res.Plan.ID {
		t.Fatalf("snapshot not bound to the new plan: %+v", res.Snapshot)
	}
	wantHash, err := canonical.OutputHash(next)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if res.Plan.OutputHash != wantHash || res.Snapshot.OutputHash != wantHash {
		t.Fatal("output hash not carried onto plan and snapshot")
	}
	if s.Status() != SessionApplied {
		t.Fatalf("session status = %s, want APPLIED", s.Status())
	}
	if ctx.Plan.Assignments[0].DriverID != "d1" {
		t.Fatal("apply mutated the superseded plan")
	}
}

func slotByID(t *testing.T, slots []model.DailySlot, id string) model.DailySlot {
	t.Helper()
	for _, s := range slots {
		if s.ID == id {
			return s
		}
	}
	t.Fatalf("no slot %s in %v", id, slots)
	return model.DailySlot{}
}

func TestApplyMovesSlotsThroughMachine(t *testing.T) {
	ctx := repairContext()
	machine := plan.NewSlotMachine(nil, nil)
	slots, err := plan.ExpandSlots(machine, ctx.Plan.Assignments, ctx.Tours, false)
	if err != nil {
		t.Fatalf("expand: %v", err)
	}
	ctx.Plan.Slots = slots

	next := model.CloneAssignments(ctx.Plan.Assignments)
	next[0].DriverID = "d3"
	m := NewSessionManager(time.Minute)
	s, err := m.Open(ctx.Plan, sickAllDay("d1", "2026-03-02"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := s.Stage("swap", next); err != nil {
		t.Fatalf("stage: %v", err)
	}
	delta := Delta{Changed: 1, Reassigned: []Change{{BlockID: "b1", Day: "2026-03-02", FromDriver: "d1", ToDriver: "d3"}}}
	if err := s.Freeze(Preview{Delta: delta, Assignments: s.Working()}); err != nil {
		t.Fatalf("freeze: %v", err)
	}

	res, err := newApplier().Apply(s, ctx.Plan, ctx.Tours, ctx.Limits)
	if err != nil {
		t.Fatalf("apply: %v", err)
	}

	got := slotByID(t, res.Plan.Slots, "b1")
	if got.Status != model.SlotAssigned || got.AssignedDriverID != "d3" {
		t.Fatalf("new slot b1 = %+v, want ASSIGNED to d3", got)
	}
	if err := plan.CheckSlotInvariants(got); err != nil {
		t.Fatalf("new slot invariants: %v", err)
	}

	old := slotByID(t, ctx.Plan.Slots, "b1")
	if old.Status != model.SlotAborted || old.AbortReason != model.AbortSick {
		t.Fatalf("superseded slot b1 = %+v, want ABORTED/SICK", old)
	}
	if s := slotByID(t, ctx.Plan.Slots, "b2"); s.Status != model.SlotAssigned {
		t.Fatalf("untouched slot b2 = %+v, want ASSIGNED", s)
	}
}

func TestApplyHoldsBlockWithCancelledTour(t *testing.T) {
	ctx := repairContext()
	machine := plan.NewSlotMachine(nil, nil)
	slots, err := plan.ExpandSlots(machine, ctx.Plan.Assignments, ctx.Tours, false)
	if err != nil {
		t.Fatalf("expand: %v", err)
	}
	ctx.Plan.Slots = slots

	// t1 is cancelled alongside the incident: the working set drops b1 and
	// the tour set no longer carries its tour, so coverage stays clean.
	delete(ctx.Tours, "t1")
	next := []model.Assignment{ctx.Plan.Assignments[1].Clone()}
	m := NewSessionManager(time.Minute)
	s, err := m.Open(ctx.Plan, sickAllDay("d1", "2026-03-02"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := s.Stage("drop", next); err != nil {
		t.Fatalf("stage: %v", err)
	}
	delta := Delta{Changed: 1, Held: []string{"b1"}}
	if err := s.Freeze(Preview{Delta: delta, Assignments: s.Working()}); err != nil {
		t.Fatalf("freeze: %v", err)
	}

	res, err := newApplier().Apply(s, ctx.Plan, ctx.Tours, ctx.Limits)
	if err != nil {
		t.Fatalf("apply: %v", err)
	}

	held := slotByID(t, res.Plan.Slots, "b1")
	if held.Status != model.SlotHold || held.AssignedDriverID != "" {
		t.Fatalf("held slot b1 = %+v, want HOLD with no driver", held)
	}
	if held.Day != "2026-03-02" {
		t.Fatalf("held slot day = %s", held.Day)
	}
	old := slotByID(t, ctx.Plan.Slots, "b1")
	if old.Status != model.SlotAborted || old.AbortReason != model.AbortSick {
		t.Fatalf("superseded slot b1 = %+v, want ABORTED/SICK", old)
	}
}

func TestApplyBlockedByViolations(t *testing.T) {
	ctx := repairContext()
	// Dropping b1 entirely leaves t1 uncovered.
	next := []model.Assignment{ctx.Plan.Assignments[1].Clone()}
	s := previewedSession(t, ctx, next)

	_, err := newApplier().Apply(s, ctx.Plan, ctx.Tours, ctx.Limits)
	if !model.IsCode(err, model.CodeViolationsBlock) {
		t.Fatalf("expected VIOLATIONS_BLOCK_PUBLISH, got %v", err)
	}
	if s.Status() != SessionPreviewing {
		t.Fatalf("blocked apply should leave the session previewing, got %s", s.Status())
	}
}

func TestApplyRequiresPreview(t *testing.T) {
	ctx := repairContext()
	m := NewSessionManager(time.Minute)
	s, _ := m.Open(ctx.Plan, sickAllDay("d1", "2026-03-02"))

	_, err := newApplier().Apply(s, ctx.Plan, ctx.Tours, ctx.Limits)
	if !model.IsCode(err, model.CodeSessionState) {
		t.Fatalf("expected SESSION_INVALID_STATE, got %v", err)
	}
}

func TestApplyRefusesLockedPlan(t *testing.T) {
	ctx := repairContext()
	next := model.CloneAssignments(ctx.Plan.Assignments)
	next[0].DriverID = "d3"
	s := previewedSession(t, ctx, next)

	ctx.Plan.State = model.PlanLocked
	_, err := newApplier().Apply(s, ctx.Plan, ctx.Tours, ctx.Limits)
	if !model.IsCode(err, model.CodeInvalidTransition) {
		t.Fatalf("expected INVALID_TRANSITION, got %v", err)
	}
}

func TestUndoRefusedOnLockedPlan(t *testing.T) {
	ctx := repairContext()
	m := NewSessionManager(time.Minute)
	s, _ := m.Open(ctx.Plan, sickAllDay("d1", "2026-03-02"))
	if err := s.Stage("swap", ctx.Plan.Assignments); err != nil {
		t.Fatalf("stage: %v", err)
	}

	locked := ctx.Plan.Clone()
	locked.State = model.PlanLocked
	if err := newApplier().Undo(s, &locked); !model.IsCode(err, model.CodePlanLockedNoUndo) {
		t.Fatalf("expected PLAN_LOCKED_NO_UNDO, got %v", err)
	}

	if err := newApplier().Undo(s, ctx.Plan); err != nil {
		t.Fatalf("undo on live plan: %v", err)
	}
}

func TestVerifyOutputHash(t *testing.T) {
	asn := []model.Assignment{{DriverID: "d1", Day: "2026-03-02", BlockID: "b1", TourIDs: []string{"t1"}}}
	h, err := canonical.OutputHash(asn)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if err := VerifyOutputHash(asn, h); err != nil {
		t.Fatalf("verify: %v", err)
	}

	asn[0].DriverID = "d2"
	err = VerifyOutputHash(asn, h)
	if !model.IsCode(err, model.CodeDeterminismFailure) {
		t.Fatalf("expected DETERMINISM_FAILURE, got %v", err)
	}
}

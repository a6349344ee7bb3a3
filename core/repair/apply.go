package repair

import (
	"time"

	"github.com/google/uuid"

	"github.com/kilianp07/rosterd/core/audit"
	"github.com/kilianp07/rosterd/core/canonical"
	"github.com/kilianp07/rosterd/core/logger"
	"github.com/kilianp07/rosterd/core/model"
	"github.com/kilianp07/rosterd/core/plan"
	"github.com/kilianp07/rosterd/core/policy"
)

// ApplyResult carries the committed outcome of a repair session.
type ApplyResult struct {
	Plan       *model.PlanVersion  `json:"plan"`
	Snapshot   *model.PlanSnapshot `json:"snapshot"`
	Audit      []audit.Result      `json:"audit"`
	EvidenceID string              `json:"evidence_id"`
	PolicyHash string              `json:"policy_hash"`
}

// Applier commits previewed repair sessions as new plan versions.
type Applier struct {
	lifecycle *plan.Lifecycle
	slots     *plan.SlotMachine
	auditor   *audit.Engine
	log       logger.Logger
}

// NewApplier returns an applier bound to the given lifecycle driver and slot
// machine. A nil machine falls back to one with no freeze gate.
func NewApplier(lc *plan.Lifecycle, slots *plan.SlotMachine, log logger.Logger) *Applier {
	if log == nil {
		log = logger.Nop{}
	}
	if slots == nil {
		slots = plan.NewSlotMachine(log, nil)
	}
	return &Applier{lifecycle: lc, slots: slots, auditor: audit.New(log), log: log}
}

// Apply re-audits the session's draft assignment set and, when clean of
// blocking violations, commits it as a new published plan version with a
// fresh snapshot. The superseded plan's struck slots move to ABORTED with the
// incident's reason; blocks without a candidate are carried as HOLD slots on
// the new version. The session becomes APPLIED and accepts no further
// operations.
func (a *Applier) Apply(s *Session, cur *model.PlanVersion, tours model.TourSet, limits policy.Limits) (*ApplyResult, error) {
	if cur.State == model.PlanLocked {
		return nil, model.E(model.CodeInvalidTransition, "plan %s is locked", cur.ID)
	}
	preview, err := s.PreviewResult()
	if err != nil {
		return nil, err
	}
	working := s.Working()

	results := a.auditor.Run(working, tours, limits)
	if blocking := audit.BlockingViolations(results); len(blocking) > 0 {
		return nil, model.E(model.CodeViolationsBlock, "repair apply blocked by %d violations", len(blocking)).
			WithDetail("blocking", len(blocking))
	}

	outputHash, err := canonical.OutputHash(working)
	if err != nil {
		return nil, err
	}
	if err := VerifyOutputHash(working, outputHash); err != nil {
		return nil, err
	}

	next := cur.Clone()
	next.ID = uuid.NewString()
	next.State = model.PlanDraft
	next.Assignments = working
	next.OutputHash = outputHash
	next.CreatedAt = time.Now().UTC()
	next.PublishedAt = nil
	next.CurrentSnapshotID = ""

	// The repair engine acts as the locking authority: the superseded days
	// sit inside their freeze window, which gates everyone else.
	slots, err := plan.ExpandSlots(a.slots, working, tours, true)
	if err != nil {
		return nil, err
	}
	for _, blockID := range preview.Delta.Held {
		held, err := a.holdSlot(cur, blockID, tours)
		if err != nil {
			return nil, err
		}
		slots = append(slots, held)
	}
	plan.SortSlots(slots)
	next.Slots = slots

	if err := a.lifecycle.Transition(&next, model.PlanSolved); err != nil {
		return nil, err
	}
	if err := a.lifecycle.RecordAudit(&next, results); err != nil {
		return nil, err
	}
	if err := a.lifecycle.Approve(&next); err != nil {
		return nil, err
	}
	snap, err := a.lifecycle.Publish(&next, results, tours, limits)
	if err != nil {
		return nil, err
	}
	if err := a.abortStruckSlots(cur, preview.Delta, model.AbortReasonFor(s.Incident.Type)); err != nil {
		return nil, err
	}
	if err := s.markApplied(); err != nil {
		return nil, err
	}

	a.log.Infof("repair session %s applied as plan %s (snapshot %s)", s.ID, next.ID, snap.ID)
	return &ApplyResult{
		Plan:       &next,
		Snapshot:   snap,
		Audit:      results,
		EvidenceID: uuid.NewString(),
		PolicyHash: next.PolicyConfigHash,
	}, nil
}

// holdSlot builds the HOLD slot a candidate-less block carries on the new
// plan version. Day and depot come from the superseded assignment.
func (a *Applier) holdSlot(cur *model.PlanVersion, blockID string, tours model.TourSet) (model.DailySlot, error) {
	s := model.DailySlot{ID: blockID, Status: model.SlotPlanned}
	for _, asn := range cur.Assignments {
		if asn.BlockID != blockID {
			continue
		}
		s.Day = asn.Day
		for _, id := range asn.TourIDs {
			if t, ok := tours[id]; ok {
				s.Depot = t.Depot
				break
			}
		}
		break
	}
	return a.slots.Transition(s, plan.SlotRequest{To: model.SlotHold, Authority: true})
}

// abortStruckSlots moves the superseded plan's reassigned and held slots to
// ABORTED. Slots already off ASSIGNED are left alone.
func (a *Applier) abortStruckSlots(cur *model.PlanVersion, d Delta, reason model.AbortReason) error {
	struck := make(map[string]bool, len(d.Reassigned)+len(d.Held))
	for _, c := range d.Reassigned {
		struck[c.BlockID] = true
	}
	for _, id := range d.Held {
		struck[id] = true
	}
	for i, s := range cur.Slots {
		if !struck[s.ID] || s.Status != model.SlotAssigned {
			continue
		}
		next, err := a.slots.Transition(s, plan.SlotRequest{To: model.SlotAborted, AbortReason: reason, Authority: true})
		if err != nil {
			return err
		}
		cur.Slots[i] = next
	}
	return nil
}

// Undo reverts the session's last draft mutation, honoring the plan-level
// guards: a locked plan refuses undo outright.
func (a *Applier) Undo(s *Session, p *model.PlanVersion) error {
	if p.State == model.PlanLocked {
		return model.E(model.CodePlanLockedNoUndo, "plan %s is locked, undo refused", p.ID)
	}
	return s.Undo()
}

// VerifyOutputHash recomputes the canonical output hash and compares it to
// the stored value. A mismatch is a release-blocking determinism defect and
// is never swallowed.
func VerifyOutputHash(assignments []model.Assignment, expected string) error {
	got, err := canonical.OutputHash(assignments)
	if err != nil {
		return err
	}
	if got != expected {
		return model.E(model.CodeDeterminismFailure, "output hash mismatch: recomputed %s, stored %s", got, expected).
			WithDetail("recomputed", got).WithDetail("stored", expected)
	}
	return nil
}

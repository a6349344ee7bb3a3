package plan

import (
	"time"

	"github.com/google/uuid"

	"github.com/kilianp07/rosterd/core/audit"
	"github.com/kilianp07/rosterd/core/logger"
	"github.com/kilianp07/rosterd/core/model"
	"github.com/kilianp07/rosterd/core/policy"
)

var planTransitions = map[model.PlanState][]model.PlanState{
	model.PlanDraft:     {model.PlanSolved, model.PlanFailed, model.PlanCancelled},
	model.PlanSolved:    {model.PlanAudited, model.PlanFailed},
	model.PlanAudited:   {model.PlanApproved, model.PlanRejected},
	model.PlanApproved:  {model.PlanPublished},
	model.PlanPublished: {model.PlanLocked},
}

// Lifecycle drives plan-version state transitions and the publish/lock gates.
type Lifecycle struct {
	log    logger.Logger
	freeze *FreezeWindow
	now    func() time.Time
}

// NewLifecycle returns a lifecycle driver. The freeze window may be nil when
// no post-publish freeze is configured.
func NewLifecycle(log logger.Logger, freeze *FreezeWindow) *Lifecycle {
	if log == nil {
		log = logger.Nop{}
	}
	return &Lifecycle{log: log, freeze: freeze, now: time.Now}
}

// Transition moves the plan to the target state if the transition is legal.
func (l *Lifecycle) Transition(p *model.PlanVersion, to model.PlanState) error {
	if p.State.Terminal() {
		return model.E(model.CodeInvalidTransition, "plan %s is terminal in %s", p.ID, p.State)
	}
	for _, t := range planTransitions[p.State] {
		if t == to {
			l.log.Infof("plan %s: %s -> %s", p.ID, p.State, to)
			p.State = to
			return nil
		}
	}
	return model.E(model.CodeInvalidTransition, "plan %s may not move %s -> %s", p.ID, p.State, to).
		WithDetail("plan_id", p.ID)
}

// RecordAudit stores the audit verdict counts on the plan and moves it to
// AUDITED.
func (l *Lifecycle) RecordAudit(p *model.PlanVersion, results []audit.Result) error {
	if err := l.Transition(p, model.PlanAudited); err != nil {
		return err
	}
	p.AuditPassedCount, p.AuditFailedCount = audit.Counts(results)
	return nil
}

// Approve moves an audited plan to APPROVED.
func (l *Lifecycle) Approve(p *model.PlanVersion) error {
	return l.Transition(p, model.PlanApproved)
}

// Reject moves an audited plan to REJECTED.
func (l *Lifecycle) Reject(p *model.PlanVersion) error {
	return l.Transition(p, model.PlanRejected)
}

// Fail marks the plan FAILED, preserving the underlying cause in the log.
func (l *Lifecycle) Fail(p *model.PlanVersion, cause error) error {
	if err := l.Transition(p, model.PlanFailed); err != nil {
		return err
	}
	l.log.Errorf("plan %s failed: %v", p.ID, cause)
	return nil
}

// Cancel marks an in-flight draft CANCELLED. No assignments from a cancelled
// solve are ever committed.
func (l *Lifecycle) Cancel(p *model.PlanVersion) error {
	return l.Transition(p, model.PlanCancelled)
}

// Publish gates APPROVED -> PUBLISHED: zero BLOCK-severity violations and
// tour coverage within the configured tolerance. On success it creates the
// immutable snapshot, wires it onto the plan and opens the freeze window for
// the snapshot's days.
func (l *Lifecycle) Publish(p *model.PlanVersion, results []audit.Result, tours model.TourSet, limits policy.Limits) (*model.PlanSnapshot, error) {
	if p.State != model.PlanApproved {
		return nil, model.E(model.CodeInvalidTransition, "plan %s may not publish from %s", p.ID, p.State)
	}
	if blocking := audit.BlockingViolations(results); len(blocking) > 0 {
		return nil, model.E(model.CodeViolationsBlock, "plan %s has %d blocking violations", p.ID, len(blocking)).
			WithDetail("blocking", len(blocking))
	}
	if cov := CoverageRatio(p.Assignments, tours); cov < 1-limits.CoverageTolerance {
		return nil, model.E(model.CodeDataQualityBlock, "plan %s covers %.1f%% of tours, %.1f%% required",
			p.ID, cov*100, (1-limits.CoverageTolerance)*100).
			WithDetail("coverage", cov)
	}
	if err := l.Transition(p, model.PlanPublished); err != nil {
		return nil, err
	}

	now := l.now()
	snap := &model.PlanSnapshot{
		ID:            uuid.NewString(),
		PlanVersionID: p.ID,
		Assignments:   model.CloneAssignments(p.Assignments),
		OutputHash:    p.OutputHash,
		PublishedAt:   now,
	}
	p.CurrentSnapshotID = snap.ID
	p.PublishedAt = &now
	if l.freeze != nil {
		l.freeze.MarkPublished(now, assignmentDays(p.Assignments)...)
	}
	return snap, nil
}

// Lock gates PUBLISHED -> LOCKED: all seven audit results must be PASS.
// LOCKED is terminal and irreversible.
func (l *Lifecycle) Lock(p *model.PlanVersion, results []audit.Result) error {
	if !audit.Passed(results) {
		passed, failed := audit.Counts(results)
		return model.E(model.CodeAuditGateBlocksLock, "plan %s: %d checks failed, lock requires all %d to pass",
			p.ID, failed, len(audit.Checks)).
			WithDetail("passed", passed).WithDetail("failed", failed)
	}
	return l.Transition(p, model.PlanLocked)
}

// CoverageRatio returns the fraction of tours covered by exactly one
// assignment.
func CoverageRatio(assignments []model.Assignment, tours model.TourSet) float64 {
	if len(tours) == 0 {
		return 1
	}
	covered := make(map[string]int)
	for _, a := range assignments {
		for _, tid := range a.TourIDs {
			covered[tid]++
		}
	}
	n := 0
	for id := range tours {
		if covered[id] == 1 {
			n++
		}
	}
	return float64(n) / float64(len(tours))
}

func assignmentDays(assignments []model.Assignment) []model.Day {
	seen := make(map[model.Day]bool)
	var days []model.Day
	for _, a := range assignments {
		if !seen[a.Day] {
			seen[a.Day] = true
			days = append(days, a.Day)
		}
	}
	return days
}

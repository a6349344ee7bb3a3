package model

import "time"

// PlanState enumerates the lifecycle states of a PlanVersion.
type PlanState string

const (
	PlanDraft     PlanState = "DRAFT"
	PlanSolved    PlanState = "SOLVED"
	PlanAudited   PlanState = "AUDITED"
	PlanApproved  PlanState = "APPROVED"
	PlanPublished PlanState = "PUBLISHED"
	PlanLocked    PlanState = "LOCKED"
	PlanFailed    PlanState = "FAILED"
	PlanRejected  PlanState = "REJECTED"
	PlanCancelled PlanState = "CANCELLED"
)

// Terminal reports whether the plan state permits no further transition.
func (s PlanState) Terminal() bool {
	switch s {
	case PlanLocked, PlanFailed, PlanRejected, PlanCancelled:
		return true
	}
	return false
}

// PlanVersion is one scheduling attempt for a scheduling unit and week.
type PlanVersion struct {
	ID               string    `json:"id"`
	TenantID         uint32    `json:"tenant_id"`
	SchedulingUnitID uint32    `json:"scheduling_unit_id"`
	WeekStart        Day       `json:"week_start"`
	State            PlanState `json:"plan_state"`

	Seed             int64  `json:"seed"`
	PolicyProfileID  string `json:"policy_profile_id"`
	PolicyConfigHash string `json:"policy_config_hash"`
	InputHash        string `json:"input_hash"`
	SolverConfigHash string `json:"solver_config_hash"`
	OutputHash       string `json:"output_hash"`

	AuditPassedCount  int    `json:"audit_passed_count"`
	AuditFailedCount  int    `json:"audit_failed_count"`
	CurrentSnapshotID string `json:"current_snapshot_id,omitempty"`

	Assignments []Assignment `json:"assignments"`
	Slots       []DailySlot  `json:"slots,omitempty"`
	CreatedAt   time.Time    `json:"created_at"`
	PublishedAt *time.Time   `json:"published_at,omitempty"`
}

// Clone returns a deep copy of the plan version.
func (p PlanVersion) Clone() PlanVersion {
	cp := p
	cp.Assignments = CloneAssignments(p.Assignments)
	cp.Slots = CloneSlots(p.Slots)
	if p.PublishedAt != nil {
		t := *p.PublishedAt
		cp.PublishedAt = &t
	}
	return cp
}

// PlanSnapshot is the immutable published copy of a plan version's
// assignments. During the freeze window following PublishedAt, direct slot
// mutation on the snapshot's days is refused.
type PlanSnapshot struct {
	ID            string       `json:"id"`
	PlanVersionID string       `json:"plan_version_id"`
	Assignments   []Assignment `json:"assignments"`
	OutputHash    string       `json:"output_hash"`
	PublishedAt   time.Time    `json:"published_at"`
}

// Pin fixes one (driver, day) cell against automated mutation by the solver
// and the repair orchestrator.
type Pin struct {
	DriverID   string `json:"driver_id"`
	Day        Day    `json:"day"`
	ReasonCode string `json:"reason_code"`
	Note       string `json:"note,omitempty"`
}

// PinSet indexes pins for conflict lookups.
type PinSet map[string]Pin

func pinKey(driverID string, day Day) string { return driverID + "@" + string(day) }

// NewPinSet builds a PinSet from a slice.
func NewPinSet(pins []Pin) PinSet {
	set := make(PinSet, len(pins))
	for _, p := range pins {
		set[pinKey(p.DriverID, p.Day)] = p
	}
	return set
}

// Pinned reports whether the given cell carries a pin.
func (s PinSet) Pinned(driverID string, day Day) bool {
	_, ok := s[pinKey(driverID, day)]
	return ok
}

package model

import "time"

// SlotStatus enumerates the lifecycle states of a DailySlot.
type SlotStatus string

const (
	SlotPlanned  SlotStatus = "PLANNED"
	SlotHold     SlotStatus = "HOLD"
	SlotReleased SlotStatus = "RELEASED"
	SlotAssigned SlotStatus = "ASSIGNED"
	SlotExecuted SlotStatus = "EXECUTED"
	SlotAborted  SlotStatus = "ABORTED"
)

// Terminal reports whether no further transition is permitted from s.
func (s SlotStatus) Terminal() bool {
	return s == SlotExecuted || s == SlotAborted
}

// AbortReason explains why a slot was aborted.
type AbortReason string

const (
	AbortSick      AbortReason = "SICK"
	AbortNoShow    AbortReason = "NO_SHOW"
	AbortCancelled AbortReason = "CANCELLED"
	AbortOperator  AbortReason = "OPERATOR"
)

// DailySlot is one driver-day unit of work capacity. Slots are expanded from
// a plan's assignment blocks and are never deleted; they only move through
// the state machine until a terminal state is reached.
type DailySlot struct {
	ID               string      `json:"id"`
	Day              Day         `json:"day"`
	Depot            string      `json:"depot"`
	Status           SlotStatus  `json:"status"`
	AssignedDriverID string      `json:"assigned_driver_id,omitempty"`
	ReleaseAt        *time.Time  `json:"release_at,omitempty"`
	AbortReason      AbortReason `json:"abort_reason,omitempty"`
}

// Clone returns a deep copy of the slot.
func (s DailySlot) Clone() DailySlot {
	cp := s
	if s.ReleaseAt != nil {
		t := *s.ReleaseAt
		cp.ReleaseAt = &t
	}
	return cp
}

// CloneSlots deep-copies a slot slice.
func CloneSlots(slots []DailySlot) []DailySlot {
	out := make([]DailySlot, len(slots))
	for i, s := range slots {
		out[i] = s.Clone()
	}
	return out
}

// AbortReasonFor maps an incident type to the abort reason recorded on the
// struck slots.
func AbortReasonFor(t IncidentType) AbortReason {
	switch t {
	case IncidentSick:
		return AbortSick
	case IncidentNoShow:
		return AbortNoShow
	default:
		return AbortOperator
	}
}

// Package plan enforces the slot and plan-version state machines. All slot
// mutation in the engine is funneled through SlotMachine.Transition; no other
// code path sets status or assigned_driver_id directly.
package plan

import (
	"time"

	"github.com/kilianp07/rosterd/core/logger"
	"github.com/kilianp07/rosterd/core/model"
)

var slotTransitions = map[model.SlotStatus][]model.SlotStatus{
	model.SlotPlanned:  {model.SlotHold, model.SlotAssigned},
	model.SlotHold:     {model.SlotReleased, model.SlotAborted},
	model.SlotReleased: {model.SlotAssigned, model.SlotHold, model.SlotAborted},
	model.SlotAssigned: {model.SlotExecuted, model.SlotAborted},
}

// SlotRequest describes one requested slot transition with the field values
// the target state requires.
type SlotRequest struct {
	To          model.SlotStatus
	DriverID    string
	ReleaseAt   *time.Time
	AbortReason model.AbortReason
	// Authority marks the locking authority, which alone may mutate slots
	// inside a freeze window.
	Authority bool
}

// FreezeGate reports whether a day currently rejects slot mutation.
type FreezeGate interface {
	Frozen(day model.Day, now time.Time) bool
}

// NoFreeze is a FreezeGate that never freezes.
type NoFreeze struct{}

func (NoFreeze) Frozen(model.Day, time.Time) bool { return false }

// SlotMachine validates and applies slot transitions.
type SlotMachine struct {
	log    logger.Logger
	freeze FreezeGate
	now    func() time.Time
}

// NewSlotMachine returns a slot machine. Nil arguments fall back to no
// logging and no freeze window.
func NewSlotMachine(log logger.Logger, freeze FreezeGate) *SlotMachine {
	if log == nil {
		log = logger.Nop{}
	}
	if freeze == nil {
		freeze = NoFreeze{}
	}
	return &SlotMachine{log: log, freeze: freeze, now: time.Now}
}

// Transition validates req against the legal transition table and the
// per-state invariants, then returns the updated slot. The input slot is
// never modified; a rejected transition returns the typed error and leaves
// the caller's state untouched.
func (m *SlotMachine) Transition(s model.DailySlot, req SlotRequest) (model.DailySlot, error) {
	if s.Status.Terminal() {
		return s, model.E(model.CodeGhostState, "slot %s is terminal in %s", s.ID, s.Status).
			WithDetail("slot_id", s.ID).WithDetail("status", string(s.Status))
	}
	if !legalSlotTransition(s.Status, req.To) {
		return s, model.E(model.CodeGhostState, "slot %s may not move %s -> %s", s.ID, s.Status, req.To).
			WithDetail("slot_id", s.ID)
	}
	if m.freeze.Frozen(s.Day, m.now()) && !req.Authority {
		return s, model.E(model.CodeFrozenDay, "day %s is inside the post-publish freeze window", s.Day).
			WithDetail("day", string(s.Day))
	}

	next := s.Clone()
	next.Status = req.To
	switch req.To {
	case model.SlotHold:
		next.AssignedDriverID = ""
	case model.SlotReleased:
		next.AssignedDriverID = ""
		if req.ReleaseAt != nil {
			next.ReleaseAt = req.ReleaseAt
		}
	case model.SlotAssigned:
		next.AssignedDriverID = req.DriverID
		if req.ReleaseAt != nil {
			next.ReleaseAt = req.ReleaseAt
		}
	case model.SlotAborted:
		next.AbortReason = req.AbortReason
	}

	if err := CheckSlotInvariants(next); err != nil {
		return s, err
	}
	m.log.Debugw("slot transition", map[string]any{
		"slot_id": s.ID,
		"from":    string(s.Status),
		"to":      string(req.To),
	})
	return next, nil
}

func legalSlotTransition(from, to model.SlotStatus) bool {
	for _, t := range slotTransitions[from] {
		if t == to {
			return true
		}
	}
	return false
}

// CheckSlotInvariants validates the per-state field invariants of a slot at
// rest. A RELEASED slot is awaiting assignment and therefore carries no
// driver.
func CheckSlotInvariants(s model.DailySlot) error {
	switch s.Status {
	case model.SlotHold:
		if s.AssignedDriverID != "" {
			return invariantErr(s, "HOLD slot must not carry a driver")
		}
	case model.SlotReleased:
		if s.ReleaseAt == nil {
			return invariantErr(s, "RELEASED slot requires release_at")
		}
		if s.AssignedDriverID != "" {
			return invariantErr(s, "RELEASED slot must not carry a driver")
		}
	case model.SlotAssigned:
		if s.AssignedDriverID == "" {
			return invariantErr(s, "ASSIGNED slot requires a driver")
		}
		if s.ReleaseAt == nil {
			return invariantErr(s, "ASSIGNED slot requires release_at")
		}
	}
	return nil
}

func invariantErr(s model.DailySlot, msg string) error {
	return model.E(model.CodeInvariantViolated, "slot %s: %s", s.ID, msg).
		WithDetail("slot_id", s.ID).WithDetail("status", string(s.Status))
}

// Package events defines the roster lifecycle events emitted on the event
// bus.
//
// Available event types:
//   - IncidentEvent: new incident received from intake
//   - PlanStateEvent: plan version state transition
//   - AuditEvent: audit engine verdict for a plan version
//   - RepairSessionEvent: repair session lifecycle step
package events

import (
	"time"

	"github.com/kilianp07/rosterd/core/model"
)

// IncidentEvent is published when an incident enters the system.
type IncidentEvent struct {
	Incident model.IncidentSpec
	Received time.Time
}

// PlanStateEvent is published on every plan-version state transition.
type PlanStateEvent struct {
	PlanID     string
	From       model.PlanState
	To         model.PlanState
	OutputHash string
}

// AuditEvent is published after an audit run.
type AuditEvent struct {
	PlanID string
	Passed int
	Failed int
}

// RepairSessionEvent is published on session create/preview/apply/undo.
// Action is one of "create", "preview", "apply", "undo", "abort".
type RepairSessionEvent struct {
	SessionID  string
	PlanID     string
	Action     string
	EvidenceID string
	PolicyHash string
	Err        error
}

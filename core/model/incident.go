package model

import "time"

// IncidentType enumerates mid-week disruption kinds.
type IncidentType string

const (
	IncidentSick   IncidentType = "SICK"
	IncidentNoShow IncidentType = "NO_SHOW"
	IncidentLate   IncidentType = "LATE"
)

// IncidentSpec is an external disruption event the repair orchestrator must
// resolve without violating compliance constraints.
type IncidentSpec struct {
	Type     IncidentType `json:"type"`
	DriverID string       `json:"driver_id"`
	From     time.Time    `json:"from"`
	To       time.Time    `json:"to"`
	Reason   string       `json:"reason,omitempty"`
}

// Covers reports whether the incident's time range intersects [start, end).
func (i IncidentSpec) Covers(start, end time.Time) bool {
	return start.Before(i.To) && i.From.Before(end)
}

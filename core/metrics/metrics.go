package metrics

import "time"

// AuditRunEvent records one audit engine run.
type AuditRunEvent struct {
	PlanID   string
	Passed   int
	Failed   int
	Duration time.Duration
	Time     time.Time
}

// SolveEvent records one solve attempt.
type SolveEvent struct {
	PlanID     string
	Seed       int64
	Tours      int
	Assigned   int
	Duration   time.Duration
	Failed     bool
	OutputHash string
	Time       time.Time
}

// RepairEvent records one repair session step.
type RepairEvent struct {
	SessionID string
	PlanID    string
	Action    string
	Strategy  string
	Feasible  bool
	Churn     int
	Duration  time.Duration
	Time      time.Time
}

// LockContentionEvent records a failed advisory lock acquisition.
type LockContentionEvent struct {
	TenantID         uint32
	SchedulingUnitID uint32
	Holder           string
	Time             time.Time
}

// Sink records roster engine events for observability purposes.
type Sink interface {
	RecordAuditRun(ev AuditRunEvent) error
	RecordSolve(ev SolveEvent) error
	RecordRepair(ev RepairEvent) error
	RecordLockContention(ev LockContentionEvent) error
}

// NopSink discards all events.
type NopSink struct{}

func (NopSink) RecordAuditRun(AuditRunEvent) error             { return nil }
func (NopSink) RecordSolve(SolveEvent) error                   { return nil }
func (NopSink) RecordRepair(RepairEvent) error                 { return nil }
func (NopSink) RecordLockContention(LockContentionEvent) error { return nil }

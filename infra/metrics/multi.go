package metrics

import coremetrics "github.com/kilianp07/rosterd/core/metrics"

// MultiSink fans events out to multiple sinks.
type MultiSink struct {
	Sinks []coremetrics.Sink
}

// NewMultiSink creates a MultiSink with the provided sinks.
func NewMultiSink(sinks ...coremetrics.Sink) *MultiSink {
	return &MultiSink{Sinks: sinks}
}

// RecordAuditRun forwards the event to all sinks, returning the first error.
func (m *MultiSink) RecordAuditRun(ev coremetrics.AuditRunEvent) error {
	for _, s := range m.Sinks {
		if err := s.RecordAuditRun(ev); err != nil {
			return err
		}
	}
	return nil
}

// RecordSolve forwards the event to all sinks.
func (m *MultiSink) RecordSolve(ev coremetrics.SolveEvent) error {
	for _, s := range m.Sinks {
		if err := s.RecordSolve(ev); err != nil {
			return err
		}
	}
	return nil
}

// RecordRepair forwards the event to all sinks.
func (m *MultiSink) RecordRepair(ev coremetrics.RepairEvent) error {
	for _, s := range m.Sinks {
		if err := s.RecordRepair(ev); err != nil {
			return err
		}
	}
	return nil
}

// RecordLockContention forwards the event to all sinks.
func (m *MultiSink) RecordLockContention(ev coremetrics.LockContentionEvent) error {
	for _, s := range m.Sinks {
		if err := s.RecordLockContention(ev); err != nil {
			return err
		}
	}
	return nil
}

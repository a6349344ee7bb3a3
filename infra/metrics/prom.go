package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	coremetrics "github.com/kilianp07/rosterd/core/metrics"
)

// PromSink records roster engine events in Prometheus metrics.
type PromSink struct {
	auditRuns      *prometheus.CounterVec
	auditDuration  prometheus.Histogram
	solves         *prometheus.CounterVec
	solveDuration  prometheus.Histogram
	repairs        *prometheus.CounterVec
	repairDuration prometheus.Histogram
	lockContention prometheus.Counter
}

// NewPromSink registers roster metrics on the default Prometheus registerer.
// The Prometheus server should be started separately via StartPromServer.
func NewPromSink(cfg coremetrics.Config) (coremetrics.Sink, error) {
	return NewPromSinkWithRegistry(cfg, prometheus.DefaultRegisterer)
}

// NewPromSinkWithRegistry registers metrics on the provided registerer.
// A nil registerer defaults to the global Prometheus registerer.
func NewPromSinkWithRegistry(cfg coremetrics.Config, reg prometheus.Registerer) (coremetrics.Sink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	s := &PromSink{
		auditRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "roster_audit_runs_total",
			Help: "Total number of audit engine runs",
		}, []string{"verdict"}),
		auditDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "roster_audit_duration_seconds",
			Help:    "Audit engine run duration",
			Buckets: prometheus.DefBuckets,
		}),
		solves: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "roster_solves_total",
			Help: "Total number of solve attempts",
		}, []string{"failed"}),
		solveDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "roster_solve_duration_seconds",
			Help:    "Solver run duration",
			Buckets: prometheus.DefBuckets,
		}),
		repairs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "roster_repair_actions_total",
			Help: "Total number of repair session actions",
		}, []string{"action", "strategy", "feasible"}),
		repairDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "roster_repair_duration_seconds",
			Help:    "Repair action duration",
			Buckets: prometheus.DefBuckets,
		}),
		lockContention: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "roster_lock_contention_total",
			Help: "Advisory lock acquisitions refused because the key was held",
		}),
	}

	collectors := []prometheus.Collector{
		s.auditRuns, s.auditDuration, s.solves, s.solveDuration,
		s.repairs, s.repairDuration, s.lockContention,
	}
	for i, col := range collectors {
		if err := reg.Register(col); err != nil {
			are, ok := err.(prometheus.AlreadyRegisteredError)
			if !ok {
				return nil, err
			}
			collectors[i] = are.ExistingCollector
		}
	}
	s.auditRuns = collectors[0].(*prometheus.CounterVec)
	s.auditDuration = collectors[1].(prometheus.Histogram)
	s.solves = collectors[2].(*prometheus.CounterVec)
	s.solveDuration = collectors[3].(prometheus.Histogram)
	s.repairs = collectors[4].(*prometheus.CounterVec)
	s.repairDuration = collectors[5].(prometheus.Histogram)
	s.lockContention = collectors[6].(prometheus.Counter)
	return s, nil
}

// RecordAuditRun implements coremetrics.Sink.
func (s *PromSink) RecordAuditRun(ev coremetrics.AuditRunEvent) error {
	verdict := "pass"
	if ev.Failed > 0 {
		verdict = "fail"
	}
	s.auditRuns.WithLabelValues(verdict).Inc()
	s.auditDuration.Observe(ev.Duration.Seconds())
	return nil
}

// RecordSolve implements coremetrics.Sink.
func (s *PromSink) RecordSolve(ev coremetrics.SolveEvent) error {
	s.solves.WithLabelValues(strconv.FormatBool(ev.Failed)).Inc()
	s.solveDuration.Observe(ev.Duration.Seconds())
	return nil
}

// RecordRepair implements coremetrics.Sink.
func (s *PromSink) RecordRepair(ev coremetrics.RepairEvent) error {
	s.repairs.WithLabelValues(ev.Action, ev.Strategy, strconv.FormatBool(ev.Feasible)).Inc()
	s.repairDuration.Observe(ev.Duration.Seconds())
	return nil
}

// RecordLockContention implements coremetrics.Sink.
func (s *PromSink) RecordLockContention(coremetrics.LockContentionEvent) error {
	s.lockContention.Inc()
	return nil
}

// Package audit implements the seven mandatory compliance checks gating the
// plan lock transition. Checks consume only the assignment set, the tour set
// and the effective policy limits; they share no state and never
// short-circuit each other.
package audit

import (
	"github.com/kilianp07/rosterd/core/logger"
	"github.com/kilianp07/rosterd/core/model"
	"github.com/kilianp07/rosterd/core/policy"
	"github.com/kilianp07/rosterd/core/violation"
)

// CheckName identifies one of the seven checks.
type CheckName string

const (
	CheckCoverage    CheckName = "coverage"
	CheckOverlap     CheckName = "overlap"
	CheckRest        CheckName = "rest"
	CheckSpanRegular CheckName = "span_regular"
	CheckSpanSplit   CheckName = "span_split"
	CheckFatigue     CheckName = "fatigue"
	CheckWeeklyMax   CheckName = "weekly_max"
)

// Checks lists the seven checks in canonical order.
var Checks = []CheckName{
	CheckCoverage,
	CheckOverlap,
	CheckRest,
	CheckSpanRegular,
	CheckSpanSplit,
	CheckFatigue,
	CheckWeeklyMax,
}

// Status is the per-check verdict.
type Status string

const (
	StatusPass Status = "PASS"
	StatusFail Status = "FAIL"
)

// Result is the recomputed outcome of one check for one plan version.
// Results are never patched; a re-audit replaces them wholesale.
type Result struct {
	Check      CheckName      `json:"check"`
	Status     Status         `json:"status"`
	Violations violation.List `json:"violations,omitempty"`
}

// Engine runs compliance checks.
type Engine struct {
	log logger.Logger
}

// New returns an audit engine. A nil logger falls back to no logging.
func New(log logger.Logger) *Engine {
	if log == nil {
		log = logger.Nop{}
	}
	return &Engine{log: log}
}

// RunCheck evaluates a single check.
func (e *Engine) RunCheck(name CheckName, assignments []model.Assignment, tours model.TourSet, limits policy.Limits) Result {
	var vs []violation.Violation
	switch name {
	case CheckCoverage:
		vs = violation.EvalCoverage(assignments, tours)
	case CheckOverlap:
		vs = violation.EvalOverlap(assignments, tours)
	case CheckRest:
		vs = violation.EvalRest(assignments, tours, limits)
	case CheckSpanRegular:
		vs = violation.EvalSpanRegular(assignments, tours, limits)
	case CheckSpanSplit:
		vs = violation.EvalSpanSplit(assignments, tours, limits)
	case CheckFatigue:
		vs = violation.EvalFatigue(assignments)
	case CheckWeeklyMax:
		vs = violation.EvalWeeklyMax(assignments, tours, limits)
	}
	status := StatusPass
	if len(vs) > 0 {
		status = StatusFail
	}
	return Result{Check: name, Status: status, Violations: vs}
}

// Run evaluates all seven checks unconditionally and returns one result per
// check in canonical order.
func (e *Engine) Run(assignments []model.Assignment, tours model.TourSet, limits policy.Limits) []Result {
	results := make([]Result, 0, len(Checks))
	failed := 0
	for _, name := range Checks {
		res := e.RunCheck(name, assignments, tours, limits)
		if res.Status == StatusFail {
			failed++
			e.log.Debugw("audit check failed", map[string]any{
				"check":      string(name),
				"violations": len(res.Violations),
			})
		}
		results = append(results, res)
	}
	e.log.Infof("audit complete: %d/%d checks passed", len(Checks)-failed, len(Checks))
	return results
}

// Passed reports whether every result is PASS. The plan is lockable iff this
// holds for all seven checks.
func Passed(results []Result) bool {
	if len(results) != len(Checks) {
		return false
	}
	for _, r := range results {
		if r.Status != StatusPass {
			return false
		}
	}
	return true
}

// Counts returns the number of passed and failed results.
func Counts(results []Result) (passed, failed int) {
	for _, r := range results {
		if r.Status == StatusPass {
			passed++
		} else {
			failed++
		}
	}
	return passed, failed
}

// BlockingViolations collects all BLOCK-severity violations across results.
func BlockingViolations(results []Result) []violation.Violation {
	var out []violation.Violation
	for _, r := range results {
		for _, v := range r.Violations {
			if v.Severity() == violation.SeverityBlock {
				out = append(out, v)
			}
		}
	}
	return out
}

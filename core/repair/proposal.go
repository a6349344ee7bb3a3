package repair

import (
	"github.com/kilianp07/rosterd/core/model"
	"github.com/kilianp07/rosterd/core/violation"
)

// Strategy selects how a repair proposal substitutes the affected slots.
type Strategy string

const (
	StrategyMinimalChurn Strategy = "MINIMAL_CHURN"
	StrategyReserveFirst Strategy = "RESERVE_FIRST"
	StrategyBestFit      Strategy = "BEST_FIT"
)

// DefaultStrategies is the configured strategy set in evaluation order.
var DefaultStrategies = []Strategy{StrategyMinimalChurn, StrategyReserveFirst, StrategyBestFit}

// Weights are the configurable scoring weights. Candidate weights rank
// replacement drivers; proposal weights combine churn, coverage and violation
// count into quality_score.
type Weights struct {
	// Candidate ranking.
	RestMargin float64 `json:"rest_margin"`
	HoursFit   float64 `json:"hours_fit"`
	Tier       float64 `json:"tier"`
	// Proposal quality.
	Churn      float64 `json:"churn"`
	Coverage   float64 `json:"coverage"`
	Violations float64 `json:"violations"`
}

// DefaultWeights returns the stock weights.
func DefaultWeights() Weights {
	return Weights{
		RestMargin: 0.4,
		HoursFit:   0.4,
		Tier:       0.2,
		Churn:      0.4,
		Coverage:   0.4,
		Violations: 0.2,
	}
}

// Change describes one reassigned block in a proposal.
type Change struct {
	BlockID    string    `json:"block_id"`
	Day        model.Day `json:"day"`
	FromDriver string    `json:"from_driver"`
	ToDriver   string    `json:"to_driver"`
}

// Delta summarizes what a proposal changes relative to the current plan.
type Delta struct {
	Changed    int      `json:"changed"`
	Reassigned []Change `json:"reassigned,omitempty"`
	// Held lists block IDs whose slots fall back to HOLD/RELEASED because no
	// eligible candidate exists.
	Held []string `json:"held,omitempty"`
}

// Proposal is one candidate resolution produced inside a repair session.
type Proposal struct {
	Label        string             `json:"label"`
	Strategy     Strategy           `json:"strategy"`
	Feasible     bool               `json:"feasible"`
	QualityScore float64            `json:"quality_score"`
	Delta        Delta              `json:"delta_summary"`
	Coverage     float64            `json:"coverage"`
	Violations   violation.List     `json:"violations,omitempty"`
	Assignments  []model.Assignment `json:"assignments"`
}

// qualityScore combines churn, coverage and violation count into [0,1].
// Each term is monotone: strictly lower churn, higher coverage or fewer
// violations can never lower the score, all else equal.
func qualityScore(w Weights, churn int, coverage float64, violations int) float64 {
	total := w.Churn + w.Coverage + w.Violations
	if total <= 0 {
		return 0
	}
	score := w.Churn/(1+float64(churn)) + w.Coverage*coverage + w.Violations/(1+float64(violations))
	return clamp01(score / total)
}

package repair

import (
	"fmt"
	"sort"

	"github.com/kilianp07/rosterd/core/audit"
	"github.com/kilianp07/rosterd/core/logger"
	"github.com/kilianp07/rosterd/core/model"
	"github.com/kilianp07/rosterd/core/plan"
	"github.com/kilianp07/rosterd/core/violation"
)

// DefaultTopK is the number of feasible proposals returned to the operator.
const DefaultTopK = 3

// Orchestrator assembles ranked repair proposals for an incident.
type Orchestrator struct {
	finder     *Finder
	auditor    *audit.Engine
	weights    Weights
	strategies []Strategy
	topK       int
	log        logger.Logger
}

// NewOrchestrator returns an orchestrator. Zero topK defaults to
// DefaultTopK; an empty strategy set defaults to DefaultStrategies.
func NewOrchestrator(weights Weights, strategies []Strategy, topK int, log logger.Logger) *Orchestrator {
	if log == nil {
		log = logger.Nop{}
	}
	if topK <= 0 {
		topK = DefaultTopK
	}
	if len(strategies) == 0 {
		strategies = DefaultStrategies
	}
	return &Orchestrator{
		finder:     NewFinder(weights, log),
		auditor:    audit.New(log),
		weights:    weights,
		strategies: strategies,
		topK:       topK,
		log:        log,
	}
}

// Affected returns the current-plan assignments of the incident driver whose
// block span intersects the incident time range. Pinned cells are never
// altered and are excluded.
func (o *Orchestrator) Affected(ctx Context, inc model.IncidentSpec) []model.Assignment {
	var out []model.Assignment
	for _, a := range ctx.Plan.Assignments {
		if a.DriverID != inc.DriverID {
			continue
		}
		if ctx.Pins.Pinned(a.DriverID, a.Day) {
			continue
		}
		if start, end, ok := a.Span(ctx.Tours); ok && inc.Covers(start, end) {
			out = append(out, a.Clone())
		}
	}
	model.SortAssignments(out)
	return out
}

// Propose builds one proposal per configured strategy, evaluates each against
// the violation evaluator and the audit engine, and returns the top-K
// feasible proposals ranked by quality score. When no proposal is feasible,
// the best-effort infeasible proposal is returned separately for operator
// inspection; it is never auto-applied.
func (o *Orchestrator) Propose(ctx Context, inc model.IncidentSpec) (feasible []Proposal, fallback *Proposal, err error) {
	affected := o.Affected(ctx, inc)
	if len(affected) == 0 {
		o.log.Infof("incident %s for driver %s touches no assigned slots", inc.Type, inc.DriverID)
		return nil, nil, nil
	}

	var proposals []Proposal
	for _, strategy := range o.strategies {
		p, serr := o.build(ctx, inc, affected, strategy)
		if serr != nil {
			o.log.Warnf("strategy %s failed: %v", strategy, serr)
			continue
		}
		proposals = append(proposals, p)
	}
	if len(proposals) == 0 {
		return nil, nil, model.E(model.CodeInfeasible, "no strategy produced a proposal for driver %s", inc.DriverID)
	}

	sort.SliceStable(proposals, func(i, j int) bool {
		if proposals[i].Feasible != proposals[j].Feasible {
			return proposals[i].Feasible
		}
		return proposals[i].QualityScore > proposals[j].QualityScore
	})
	for i := range proposals {
		proposals[i].Label = fmt.Sprintf("Proposal %c", 'A'+i)
	}

	for _, p := range proposals {
		if p.Feasible && len(feasible) < o.topK {
			feasible = append(feasible, p)
		}
	}
	if len(feasible) == 0 {
		best := proposals[0]
		fallback = &best
	}
	return feasible, fallback, nil
}

// build assembles the candidate assignment set for one strategy and scores it.
func (o *Orchestrator) build(ctx Context, inc model.IncidentSpec, affected []model.Assignment, strategy Strategy) (Proposal, error) {
	var replacements map[string]string // block ID -> new driver
	var err error
	if strategy == StrategyBestFit {
		replacements, err = o.bestFit(ctx, inc, affected)
		if err != nil {
			// LP infeasibility falls back to the greedy per-block pass.
			o.log.Warnf("best-fit LP failed, using greedy pass: %v", err)
			replacements = o.greedyReplacements(ctx, inc, affected, strategy)
		}
	} else {
		replacements = o.greedyReplacements(ctx, inc, affected, strategy)
	}

	delta := Delta{}
	affectedIDs := make(map[string]bool, len(affected))
	for _, a := range affected {
		affectedIDs[a.BlockID] = true
	}

	next := make([]model.Assignment, 0, len(ctx.Plan.Assignments))
	for _, a := range ctx.Plan.Assignments {
		if !affectedIDs[a.BlockID] {
			next = append(next, a.Clone())
			continue
		}
		newDriver, ok := replacements[a.BlockID]
		if !ok {
			// No eligible candidate: the block's slots fall back to
			// HOLD/RELEASED and the tours go uncovered.
			delta.Held = append(delta.Held, a.BlockID)
			delta.Changed++
			continue
		}
		repl := a.Clone()
		repl.DriverID = newDriver
		next = append(next, repl)
		delta.Reassigned = append(delta.Reassigned, Change{
			BlockID:    a.BlockID,
			Day:        a.Day,
			FromDriver: a.DriverID,
			ToDriver:   newDriver,
		})
		delta.Changed++
	}
	model.SortAssignments(next)
	sort.Strings(delta.Held)

	results := o.auditor.Run(next, ctx.Tours, ctx.Limits)
	var violations []violation.Violation
	for _, r := range results {
		violations = append(violations, r.Violations...)
	}
	blocking := violation.CountBlocking(violations)
	coverage := plan.CoverageRatio(next, ctx.Tours)

	return Proposal{
		Strategy:     strategy,
		Feasible:     blocking == 0,
		QualityScore: qualityScore(o.weights, delta.Changed, coverage, len(violations)),
		Delta:        delta,
		Coverage:     coverage,
		Violations:   violations,
		Assignments:  next,
	}, nil
}

// greedyReplacements picks the top-ranked eligible candidate per affected
// block, never double-booking a candidate across overlapping blocks.
func (o *Orchestrator) greedyReplacements(ctx Context, inc model.IncidentSpec, affected []model.Assignment, strategy Strategy) map[string]string {
	taken := make(map[string][]timeRange)
	replacements := make(map[string]string, len(affected))
	for _, a := range affected {
		start, end, ok := a.Span(ctx.Tours)
		if !ok {
			continue
		}
		cands := o.finder.Rank(ctx, a, o.finder.Eligible(ctx, a, inc.DriverID), strategy)
		for _, c := range cands {
			if overlapsAny(taken[c.Driver.ID], start, end) {
				continue
			}
			replacements[a.BlockID] = c.Driver.ID
			taken[c.Driver.ID] = append(taken[c.Driver.ID], timeRange{start, end})
			break
		}
	}
	return replacements
}

// Package repair turns an incident into ranked, feasible repair proposals
// and manages the bounded-lifetime sessions that preview, apply and undo
// them.
package repair

import (
	"math"
	"sort"
	"time"

	"github.com/kilianp07/rosterd/core/logger"
	"github.com/kilianp07/rosterd/core/model"
	"github.com/kilianp07/rosterd/core/policy"
)

// Context bundles the material a repair operates on. The plan's assignment
// set is the authoritative current state; tours and drivers are read-only.
type Context struct {
	Plan    *model.PlanVersion
	Tours   model.TourSet
	Drivers []model.Driver
	Pins    model.PinSet
	Limits  policy.Limits
}

// Candidate is an eligible replacement driver with its soft ranking score.
type Candidate struct {
	Driver model.Driver
	Score  float64
}

// Finder enumerates and ranks replacement drivers. Eligibility is a hard
// filter; scoring is an independent soft ranking pass.
type Finder struct {
	weights Weights
	log     logger.Logger
}

// NewFinder returns a candidate finder.
func NewFinder(weights Weights, log logger.Logger) *Finder {
	if log == nil {
		log = logger.Nop{}
	}
	return &Finder{weights: weights, log: log}
}

// Eligible filters the context's drivers down to those that may take over the
// affected block: not the incident driver, qualified for every tour of the
// block, stationed at the block's depot, free of competing assignments in the
// block's range, and not pinned on that day.
func (f *Finder) Eligible(ctx Context, affected model.Assignment, excludeDriverID string) []model.Driver {
	start, end, ok := affected.Span(ctx.Tours)
	if !ok {
		return nil
	}
	required := requiredQualifications(affected, ctx.Tours)
	depot := blockDepot(affected, ctx.Tours)
	busy := busyRanges(ctx)

	var out []model.Driver
	for _, d := range ctx.Drivers {
		if d.ID == excludeDriverID {
			continue
		}
		if depot != "" && d.Depot != depot {
			continue
		}
		if !d.Qualified(required) {
			continue
		}
		if ctx.Pins.Pinned(d.ID, affected.Day) {
			continue
		}
		if overlapsAny(busy[d.ID], start, end) {
			continue
		}
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Rank scores the eligible drivers for the affected block. Under
// RESERVE_FIRST, reserve drivers are ranked ahead of everyone else.
func (f *Finder) Rank(ctx Context, affected model.Assignment, eligible []model.Driver, strategy Strategy) []Candidate {
	start, end, ok := affected.Span(ctx.Tours)
	if !ok {
		return nil
	}
	blockHours := affected.WorkDuration(ctx.Tours).Hours()
	hours := weeklyHours(ctx)

	cands := make([]Candidate, 0, len(eligible))
	for _, d := range eligible {
		score := f.weights.RestMargin*restMarginFit(ctx, d.ID, start, end) +
			f.weights.HoursFit*hoursFit(d, hours[d.ID]+blockHours) +
			f.weights.Tier*tierScore(d, strategy)
		cands = append(cands, Candidate{Driver: d, Score: score})
	}
	sort.SliceStable(cands, func(i, j int) bool {
		if strategy == StrategyReserveFirst && cands[i].Driver.Reserve != cands[j].Driver.Reserve {
			return cands[i].Driver.Reserve
		}
		if cands[i].Score != cands[j].Score {
			return cands[i].Score > cands[j].Score
		}
		return cands[i].Driver.ID < cands[j].Driver.ID
	})
	return cands
}

func requiredQualifications(a model.Assignment, tours model.TourSet) []string {
	seen := make(map[string]bool)
	var out []string
	for _, tid := range a.TourIDs {
		for _, q := range tours[tid].Qualifications {
			if !seen[q] {
				seen[q] = true
				out = append(out, q)
			}
		}
	}
	sort.Strings(out)
	return out
}

func blockDepot(a model.Assignment, tours model.TourSet) string {
	for _, tid := range a.TourIDs {
		if t, ok := tours[tid]; ok {
			return t.Depot
		}
	}
	return ""
}

type timeRange struct{ start, end time.Time }

// busyRanges indexes every driver's assigned block spans.
func busyRanges(ctx Context) map[string][]timeRange {
	busy := make(map[string][]timeRange)
	for _, a := range ctx.Plan.Assignments {
		if start, end, ok := a.Span(ctx.Tours); ok {
			busy[a.DriverID] = append(busy[a.DriverID], timeRange{start, end})
		}
	}
	return busy
}

func overlapsAny(ranges []timeRange, start, end time.Time) bool {
	for _, r := range ranges {
		if r.start.Before(end) && start.Before(r.end) {
			return true
		}
	}
	return false
}

func weeklyHours(ctx Context) map[string]float64 {
	hours := make(map[string]float64)
	for _, a := range ctx.Plan.Assignments {
		hours[a.DriverID] += a.WorkDuration(ctx.Tours).Hours()
	}
	return hours
}

// restMarginFit returns how comfortably the block fits between the driver's
// neighboring blocks, normalized to [0,1] where 1 means at least double the
// minimum rest on both sides.
func restMarginFit(ctx Context, driverID string, start, end time.Time) float64 {
	min := time.Duration(ctx.Limits.MinRestHours * float64(time.Hour))
	margin := 2 * min
	for _, r := range busyRanges(ctx)[driverID] {
		if gap := start.Sub(r.end); gap >= 0 && gap < margin {
			margin = gap
		}
		if gap := r.start.Sub(end); gap >= 0 && gap < margin {
			margin = gap
		}
	}
	if min <= 0 {
		return 1
	}
	return clamp01(float64(margin) / float64(2*min))
}

// hoursFit rewards drivers whose projected weekly hours land near their
// target.
func hoursFit(d model.Driver, projected float64) float64 {
	if d.TargetWeeklyHours <= 0 {
		return 0.5
	}
	return clamp01(1 - math.Abs(projected-d.TargetWeeklyHours)/d.TargetWeeklyHours)
}

func tierScore(d model.Driver, strategy Strategy) float64 {
	if strategy == StrategyReserveFirst && d.Reserve {
		return 1
	}
	// Lower tier number means higher priority.
	return clamp01(1 - float64(d.PriorityTier)/10)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

package repair

import (
	"testing"
	"time"

	"github.com/kilianp07/rosterd/core/model"
	"github.com/kilianp07/rosterd/core/policy"
)

func repairTour(id string, day model.Day, startHour, endHour int) model.TourInstance {
	base := day.Time()
	return model.TourInstance{
		ID:    id,
		Day:   day,
		Start: base.Add(time.Duration(startHour) * time.Hour),
		End:   base.Add(time.Duration(endHour) * time.Hour),
		Depot: "north",
	}
}

// repairContext builds a published plan where d1 holds the Monday block b1
// and d2 holds the overlapping block b2; d3, d4 and the reserve d5 are idle.
func repairContext() Context {
	mon := model.Day("2026-03-02")
	tours := []model.TourInstance{
		repairTour("t1", mon, 7, 15),
		repairTour("t2", mon, 8, 16),
	}
	return Context{
		Plan: &model.PlanVersion{
			ID:    "plan-1",
			State: model.PlanPublished,
			Assignments: []model.Assignment{
				{DriverID: "d1", Day: mon, BlockID: "b1", BlockType: model.Block1er, TourIDs: []string{"t1"}},
				{DriverID: "d2", Day: mon, BlockID: "b2", BlockType: model.Block1er, TourIDs: []string{"t2"}},
			},
		},
		Tours: model.NewTourSet(tours),
		Drivers: []model.Driver{
			{ID: "d1", Depot: "north", TargetWeeklyHours: 40},
			{ID: "d2", Depot: "north", TargetWeeklyHours: 40},
			{ID: "d3", Depot: "north", TargetWeeklyHours: 40},
			{ID: "d4", Depot: "north", TargetWeeklyHours: 40, PriorityTier: 5},
			{ID: "d5", Depot: "north", TargetWeeklyHours: 40, Reserve: true},
		},
		Pins:   model.NewPinSet(nil),
		Limits: policy.DefaultLimits(),
	}
}

func TestEligibleFiltersHardConstraints(t *testing.T) {
	ctx := repairContext()
	f := NewFinder(DefaultWeights(), nil)
	b1 := ctx.Plan.Assignments[0]

	got := f.Eligible(ctx, b1, "d1")
	want := []string{"d3", "d4", "d5"}
	if len(got) != len(want) {
		t.Fatalf("eligible = %v, want %v", got, want)
	}
	for i, d := range got {
		if d.ID != want[i] {
			t.Fatalf("eligible[%d] = %s, want %s", i, d.ID, want[i])
		}
	}
}

func TestEligibleExcludesBusyAndPinned(t *testing.T) {
	ctx := repairContext()
	f := NewFinder(DefaultWeights(), nil)
	b1 := ctx.Plan.Assignments[0]

	// d2 is busy on the overlapping b2; pin d3 on Monday too.
	ctx.Pins = model.NewPinSet([]model.Pin{{DriverID: "d3", Day: b1.Day, ReasonCode: "vacation"}})
	got := f.Eligible(ctx, b1, "d1")
	for _, d := range got {
		if d.ID == "d2" || d.ID == "d3" {
			t.Fatalf("driver %s should be filtered out", d.ID)
		}
	}
}

func TestEligibleChecksQualifications(t *testing.T) {
	ctx := repairContext()
	f := NewFinder(DefaultWeights(), nil)

	tour := ctx.Tours["t1"]
	tour.Qualifications = []string{"articulated"}
	ctx.Tours["t1"] = tour
	for i := range ctx.Drivers {
		if ctx.Drivers[i].ID == "d4" {
			ctx.Drivers[i].Qualifications = []string{"articulated"}
		}
	}

	got := f.Eligible(ctx, ctx.Plan.Assignments[0], "d1")
	if len(got) != 1 || got[0].ID != "d4" {
		t.Fatalf("eligible = %v, want only d4", got)
	}
}

func TestRankReserveFirstPromotesReserves(t *testing.T) {
	ctx := repairContext()
	f := NewFinder(DefaultWeights(), nil)
	b1 := ctx.Plan.Assignments[0]

	cands := f.Rank(ctx, b1, f.Eligible(ctx, b1, "d1"), StrategyReserveFirst)
	if len(cands) == 0 {
		t.Fatal("no candidates ranked")
	}
	if !cands[0].Driver.Reserve {
		t.Fatalf("top candidate under RESERVE_FIRST is %s, not a reserve", cands[0].Driver.ID)
	}
}

func TestRankPrefersLowerTier(t *testing.T) {
	ctx := repairContext()
	f := NewFinder(DefaultWeights(), nil)
	b1 := ctx.Plan.Assignments[0]

	cands := f.Rank(ctx, b1, f.Eligible(ctx, b1, "d1"), StrategyMinimalChurn)
	pos := make(map[string]int)
	for i, c := range cands {
		pos[c.Driver.ID] = i
	}
	// d3 (tier 0) and d4 (tier 5) differ only in tier.
	if pos["d3"] > pos["d4"] {
		t.Fatalf("tier 0 driver ranked below tier 5: %v", cands)
	}
}

func TestQualityScoreMonotone(t *testing.T) {
	w := DefaultWeights()

	if qualityScore(w, 1, 0.9, 0) <= qualityScore(w, 3, 0.9, 0) {
		t.Fatal("lower churn must not lower the quality score")
	}
	if qualityScore(w, 1, 1.0, 0) <= qualityScore(w, 1, 0.5, 0) {
		t.Fatal("higher coverage must not lower the quality score")
	}
	if qualityScore(w, 1, 0.9, 0) <= qualityScore(w, 1, 0.9, 4) {
		t.Fatal("fewer violations must not lower the quality score")
	}
	if s := qualityScore(w, 0, 1, 0); s <= 0 || s > 1 {
		t.Fatalf("score %f out of range", s)
	}
	if qualityScore(Weights{}, 0, 1, 0) != 0 {
		t.Fatal("zero weights should yield a zero score")
	}
}

func TestHoursFitPeaksAtTarget(t *testing.T) {
	d := model.Driver{TargetWeeklyHours: 40}
	at := hoursFit(d, 40)
	under := hoursFit(d, 20)
	over := hoursFit(d, 60)
	if at != 1 {
		t.Fatalf("exact target fit = %f, want 1", at)
	}
	if under >= at || over >= at {
		t.Fatalf("fit should peak at target: at=%f under=%f over=%f", at, under, over)
	}
	if hoursFit(model.Driver{}, 40) != 0.5 {
		t.Fatal("driver without target should score neutral")
	}
}

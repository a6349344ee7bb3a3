package solver

import (
	"context"
	"testing"
	"time"

	"github.com/kilianp07/rosterd/core/canonical"
	"github.com/kilianp07/rosterd/core/model"
	"github.com/kilianp07/rosterd/core/policy"
)

func tourAt(id string, day model.Day, startHour, endHour int) model.TourInstance {
	base := day.Time()
	return model.TourInstance{
		ID:    id,
		Day:   day,
		Start: base.Add(time.Duration(startHour) * time.Hour),
		End:   base.Add(time.Duration(endHour) * time.Hour),
		Depot: "north",
	}
}

func weekInput() Input {
	mon := model.Day("2026-03-02")
	tue := mon.Next()
	return Input{
		WeekStart: mon,
		Tours: []model.TourInstance{
			tourAt("t1", mon, 7, 15),
			tourAt("t2", mon, 8, 16),
			tourAt("t3", tue, 7, 15),
			tourAt("t4", tue, 8, 16),
		},
		Drivers: []model.Driver{
			{ID: "d1", Depot: "north"},
			{ID: "d2", Depot: "north"},
			{ID: "d3", Depot: "north"},
		},
	}
}

func solveCfg(seed int64) Config {
	return Config{Seed: seed, Policy: policy.DefaultLimits()}
}

func TestGreedySameSeedSameOutput(t *testing.T) {
	g := NewGreedy(nil)
	in := weekInput()

	var first string
	for i := 0; i < 3; i++ {
		asn, err := g.Solve(context.Background(), in, solveCfg(42))
		if err != nil {
			t.Fatalf("solve %d: %v", i, err)
		}
		h, err := canonical.OutputHash(asn)
		if err != nil {
			t.Fatalf("hash: %v", err)
		}
		if first == "" {
			first = h
		} else if h != first {
			t.Fatalf("run %d produced hash %s, want %s", i, h, first)
		}
	}
}

func TestGreedyCoversAllCoverableTours(t *testing.T) {
	g := NewGreedy(nil)
	in := weekInput()

	asn, err := g.Solve(context.Background(), in, solveCfg(7))
	if err != nil {
		t.Fatalf("solve: %v", err)
	}
	covered := make(map[string]bool)
	for _, a := range asn {
		for _, id := range a.TourIDs {
			if covered[id] {
				t.Fatalf("tour %s assigned twice", id)
			}
			covered[id] = true
		}
	}
	for _, tour := range in.Tours {
		if !covered[tour.ID] {
			t.Fatalf("tour %s left uncovered with %d drivers available", tour.ID, len(in.Drivers))
		}
	}
}

func TestGreedyRespectsDepotAndQualifications(t *testing.T) {
	g := NewGreedy(nil)
	mon := model.Day("2026-03-02")
	tour := tourAt("t1", mon, 7, 15)
	tour.Qualifications = []string{"articulated"}

	in := Input{
		WeekStart: mon,
		Tours:     []model.TourInstance{tour},
		Drivers: []model.Driver{
			{ID: "wrong-depot", Depot: "south", Qualifications: []string{"articulated"}},
			{ID: "unqualified", Depot: "north"},
		},
	}
	asn, err := g.Solve(context.Background(), in, solveCfg(1))
	if err != nil {
		t.Fatalf("solve: %v", err)
	}
	if len(asn) != 0 {
		t.Fatalf("expected no assignments, got %v", asn)
	}

	in.Drivers = append(in.Drivers, model.Driver{ID: "ok", Depot: "north", Qualifications: []string{"articulated"}})
	asn, err = g.Solve(context.Background(), in, solveCfg(1))
	if err != nil {
		t.Fatalf("solve: %v", err)
	}
	if len(asn) != 1 || asn[0].DriverID != "ok" {
		t.Fatalf("expected single assignment to ok, got %v", asn)
	}
}

func TestGreedySkipsPinnedDrivers(t *testing.T) {
	g := NewGreedy(nil)
	mon := model.Day("2026-03-02")
	in := Input{
		WeekStart: mon,
		Tours:     []model.TourInstance{tourAt("t1", mon, 7, 15)},
		Drivers:   []model.Driver{{ID: "d1", Depot: "north"}},
		Pins:      []model.Pin{{DriverID: "d1", Day: mon}},
	}
	asn, err := g.Solve(context.Background(), in, solveCfg(1))
	if err != nil {
		t.Fatalf("solve: %v", err)
	}
	if len(asn) != 0 {
		t.Fatalf("pinned driver received work: %v", asn)
	}
}

func TestGreedyEnforcesOvernightRest(t *testing.T) {
	g := NewGreedy(nil)
	mon := model.Day("2026-03-02")
	tue := mon.Next()
	in := Input{
		WeekStart: mon,
		Tours: []model.TourInstance{
			tourAt("t1", mon, 15, 23),
			tourAt("t2", tue, 6, 14), // 7h after t1 ends, below the 11h floor
		},
		Drivers: []model.Driver{{ID: "d1", Depot: "north"}},
	}
	asn, err := g.Solve(context.Background(), in, solveCfg(1))
	if err != nil {
		t.Fatalf("solve: %v", err)
	}
	if len(asn) != 1 {
		t.Fatalf("expected one block, got %v", asn)
	}
	if got := asn[0].TourIDs; len(got) != 1 || got[0] != "t1" {
		t.Fatalf("expected only t1 assigned, got %v", got)
	}
}

func TestGreedyNeverBacktracksWithinDay(t *testing.T) {
	g := NewGreedy(nil)
	mon := model.Day("2026-03-02")
	in := Input{
		WeekStart: mon,
		Tours: []model.TourInstance{
			tourAt("t1", mon, 7, 15),
			tourAt("t2", mon, 8, 16), // overlaps t1, must go elsewhere
		},
		Drivers: []model.Driver{{ID: "d1", Depot: "north"}},
	}
	asn, err := g.Solve(context.Background(), in, solveCfg(1))
	if err != nil {
		t.Fatalf("solve: %v", err)
	}
	if len(asn) != 1 || len(asn[0].TourIDs) != 1 {
		t.Fatalf("overlapping tours stacked on one driver: %v", asn)
	}
}

func TestGreedyCancelledContext(t *testing.T) {
	g := NewGreedy(nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := g.Solve(ctx, weekInput(), solveCfg(1))
	if !model.IsCode(err, model.CodeSolverTimeout) {
		t.Fatalf("expected SOLVER_TIMEOUT, got %v", err)
	}
}

func TestClassifyBlock(t *testing.T) {
	mon := model.Day("2026-03-02")
	tours := model.NewTourSet([]model.TourInstance{
		tourAt("a", mon, 6, 10),
		tourAt("b", mon, 11, 15),  // 1h after a: regular pair
		tourAt("c", mon, 15, 19),  // 5h after a: split pair
		tourAt("d", mon, 20, 22),
	})

	cases := []struct {
		name    string
		tourIDs []string
		want    model.BlockType
	}{
		{"single", []string{"a"}, model.Block1er},
		{"regular pair", []string{"a", "b"}, model.Block2erReg},
		{"split pair", []string{"a", "c"}, model.Block2erSplit},
		{"triple", []string{"a", "b", "d"}, model.Block3er},
	}
	for _, tc := range cases {
		got := classifyBlock(model.Assignment{TourIDs: tc.tourIDs}, tours)
		if got != tc.want {
			t.Fatalf("%s: classified as %s, want %s", tc.name, got, tc.want)
		}
	}
}

func TestConfigHashCoversEveryTunable(t *testing.T) {
	base := solveCfg(42)
	h1, err := base.Hash()
	if err != nil {
		t.Fatalf("hash: %v", err)
	}

	changed := base
	changed.Seed = 43
	h2, err := changed.Hash()
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if h1 == h2 {
		t.Fatal("seed change did not alter the config hash")
	}

	changed = base
	changed.Policy.MaxWeeklyHours = 50
	h3, err := changed.Hash()
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if h1 == h3 {
		t.Fatal("policy change did not alter the config hash")
	}
}

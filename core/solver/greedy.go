package solver

import (
	"context"
	"fmt"
	"math/rand"
	"sort"
	"time"

	"github.com/kilianp07/rosterd/core/logger"
	"github.com/kilianp07/rosterd/core/model"
)

// Greedy is the deterministic reference solver. Tours are processed in a
// stable order; driver ties are broken by a permutation drawn from the
// explicit seed, never from a global random source.
type Greedy struct {
	log logger.Logger
}

// NewGreedy returns the reference solver.
func NewGreedy(log logger.Logger) *Greedy {
	if log == nil {
		log = logger.Nop{}
	}
	return &Greedy{log: log}
}

type driverState struct {
	driver    model.Driver
	tiebreak  int
	hours     float64
	blocks    map[model.Day]*model.Assignment
	lastEnd   map[model.Day]time.Time
	dayStarts map[model.Day]time.Time
}

// Solve implements Solver.
func (g *Greedy) Solve(ctx context.Context, in Input, cfg Config) ([]model.Assignment, error) {
	tours := append([]model.TourInstance(nil), in.Tours...)
	sort.Slice(tours, func(i, j int) bool {
		if tours[i].Day != tours[j].Day {
			return tours[i].Day < tours[j].Day
		}
		if !tours[i].Start.Equal(tours[j].Start) {
			return tours[i].Start.Before(tours[j].Start)
		}
		return tours[i].ID < tours[j].ID
	})

	drivers := append([]model.Driver(nil), in.Drivers...)
	sort.Slice(drivers, func(i, j int) bool { return drivers[i].ID < drivers[j].ID })
	rng := rand.New(rand.NewSource(cfg.Seed))
	perm := rng.Perm(len(drivers))

	states := make([]*driverState, len(drivers))
	for i, d := range drivers {
		states[i] = &driverState{
			driver:    d,
			tiebreak:  perm[i],
			blocks:    make(map[model.Day]*model.Assignment),
			lastEnd:   make(map[model.Day]time.Time),
			dayStarts: make(map[model.Day]time.Time),
		}
	}
	pins := model.NewPinSet(in.Pins)

	for _, tour := range tours {
		if err := ctx.Err(); err != nil {
			return nil, model.E(model.CodeSolverTimeout, "solve interrupted: %v", err)
		}
		best := g.pickDriver(states, pins, tour, cfg)
		if best == nil {
			g.log.Debugw("tour left uncovered", map[string]any{"tour_id": tour.ID, "day": string(tour.Day)})
			continue
		}
		appendTour(best, tour)
	}

	var out []model.Assignment
	for _, st := range states {
		for _, a := range st.blocks {
			a.BlockType = classifyBlock(*a, model.NewTourSet(in.Tours))
			out = append(out, *a)
		}
	}
	model.SortAssignments(out)
	g.log.Infof("greedy solve: %d tours, %d assignments, seed %d", len(tours), len(out), cfg.Seed)
	return out, nil
}

// pickDriver chooses the eligible driver with the fewest accumulated hours;
// ties fall back to the seeded permutation order.
func (g *Greedy) pickDriver(states []*driverState, pins model.PinSet, tour model.TourInstance, cfg Config) *driverState {
	var best *driverState
	for _, st := range states {
		if !eligible(st, pins, tour, cfg) {
			continue
		}
		if best == nil ||
			st.hours < best.hours ||
			(st.hours == best.hours && st.tiebreak < best.tiebreak) {
			best = st
		}
	}
	return best
}

func eligible(st *driverState, pins model.PinSet, tour model.TourInstance, cfg Config) bool {
	d := st.driver
	if d.Depot != tour.Depot || !d.Qualified(tour.Qualifications) {
		return false
	}
	if pins.Pinned(d.ID, tour.Day) {
		return false
	}
	if st.hours+tour.Duration().Hours() > cfg.Policy.MaxWeeklyHours {
		return false
	}
	if block, ok := st.blocks[tour.Day]; ok {
		if len(block.TourIDs) >= 3 {
			return false
		}
		if tour.Start.Before(st.lastEnd[tour.Day]) {
			return false
		}
		span := tour.End.Sub(st.dayStarts[tour.Day])
		if span > time.Duration(cfg.Policy.MaxSpanSplitHours*float64(time.Hour)) {
			return false
		}
	}
	// Rest against the previous day's block end.
	prevDay := model.DayOf(tour.Day.Time().Add(-24 * time.Hour))
	if end, ok := st.lastEnd[prevDay]; ok {
		if tour.Start.Sub(end) < time.Duration(cfg.Policy.MinRestHours*float64(time.Hour)) {
			return false
		}
	}
	return true
}

func appendTour(st *driverState, tour model.TourInstance) {
	block, ok := st.blocks[tour.Day]
	if !ok {
		block = &model.Assignment{
			DriverID: st.driver.ID,
			Day:      tour.Day,
			BlockID:  fmt.Sprintf("b-%s-%s", st.driver.ID, tour.Day),
		}
		st.blocks[tour.Day] = block
		st.dayStarts[tour.Day] = tour.Start
	}
	block.TourIDs = append(block.TourIDs, tour.ID)
	st.lastEnd[tour.Day] = tour.End
	st.hours += tour.Duration().Hours()
}

// classifyBlock derives the block type from its shape: tour count and, for
// pairs, whether the mid-day break reaches split length.
func classifyBlock(a model.Assignment, tours model.TourSet) model.BlockType {
	switch len(a.TourIDs) {
	case 1:
		return model.Block1er
	case 2:
		var parts []model.TourInstance
		for _, id := range a.TourIDs {
			if t, ok := tours[id]; ok {
				parts = append(parts, t)
			}
		}
		if len(parts) == 2 {
			sort.Slice(parts, func(i, j int) bool { return parts[i].Start.Before(parts[j].Start) })
			if parts[1].Start.Sub(parts[0].End) >= 4*time.Hour {
				return model.Block2erSplit
			}
		}
		return model.Block2erReg
	default:
		return model.Block3er
	}
}

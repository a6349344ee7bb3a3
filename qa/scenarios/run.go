package scenarios

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/kilianp07/rosterd/app"
	"github.com/kilianp07/rosterd/core/audit"
	coremetrics "github.com/kilianp07/rosterd/core/metrics"
	"github.com/kilianp07/rosterd/core/model"
	"github.com/kilianp07/rosterd/core/plan"
	"github.com/kilianp07/rosterd/core/policy"
	"github.com/kilianp07/rosterd/core/repair"
	"github.com/kilianp07/rosterd/core/solver"
	"github.com/kilianp07/rosterd/infra/metrics"
	"github.com/kilianp07/rosterd/infra/store"
)

// RunScenario solves and audits the scenario's roster, then resolves each
// declared incident end to end, asserting the expected verdicts.
func RunScenario(t *testing.T, sc *Scenario) {
	reg := prometheus.NewRegistry()
	sink, err := metrics.NewPromSinkWithRegistry(coremetrics.Config{}, reg)
	if err != nil {
		t.Fatalf("prom sink: %v", err)
	}

	weekStart, err := model.ParseDay(sc.WeekStart)
	if err != nil {
		t.Fatalf("week_start: %v", err)
	}
	drivers := make([]model.Driver, len(sc.Drivers))
	for i, d := range sc.Drivers {
		drivers[i] = d.ToModel()
	}
	tours := make([]model.TourInstance, len(sc.Tours))
	for i, td := range sc.Tours {
		tour, terr := td.ToModel()
		if terr != nil {
			t.Fatalf("tour: %v", terr)
		}
		tours[i] = tour
	}
	var pins []model.Pin
	for _, pd := range sc.Pins {
		day, derr := model.ParseDay(pd.Day)
		if derr != nil {
			t.Fatalf("pin day: %v", derr)
		}
		pins = append(pins, model.Pin{DriverID: pd.DriverID, Day: day, ReasonCode: pd.ReasonCode})
	}

	profile := policy.Profile{
		ID: "scenario", TenantID: 1, Pack: "standard", Version: 1,
		Limits: policy.DefaultLimits(), Bounds: policy.DefaultBounds(),
	}
	engine := app.NewEngine(app.EngineOptions{
		Profile:    profile,
		Freeze:     plan.NewFreezeWindow(12 * time.Hour),
		Weights:    repair.DefaultWeights(),
		Strategies: repair.DefaultStrategies,
		SessionTTL: time.Minute,
		Store:      store.NewMemStore(),
		Sink:       sink,
	})

	p := &model.PlanVersion{
		ID:               uuid.NewString(),
		TenantID:         1,
		SchedulingUnitID: 1,
		WeekStart:        weekStart,
		State:            model.PlanDraft,
		CreatedAt:        time.Now(),
	}
	seed := sc.Seed
	if seed == 0 {
		seed = 42
	}
	in := solver.Input{WeekStart: weekStart, Tours: tours, Drivers: drivers, Pins: pins}
	cfg := solver.Config{Seed: seed, TimeLimitSeconds: 10, Policy: profile.Limits}

	results, err := engine.Solve(context.Background(), p, in, cfg)
	if err != nil {
		t.Fatalf("solve: %v", err)
	}
	passed, failed := audit.Counts(results)
	if passed != sc.Expected.AuditPassed || failed != sc.Expected.AuditFailed {
		t.Errorf("scenario %s: expected audit %d/%d, got %d/%d",
			sc.Name, sc.Expected.AuditPassed, sc.Expected.AuditFailed, passed, failed)
	}

	tourSet := model.NewTourSet(tours)
	pinSet := model.NewPinSet(pins)
	for _, id := range sc.Incidents {
		inc, ierr := id.ToModel()
		if ierr != nil {
			t.Fatalf("incident: %v", ierr)
		}
		if id.Tour != "" {
			inc.DriverID = holderOf(p.Assignments, id.Tour)
			if inc.DriverID == "" {
				t.Fatalf("scenario %s: tour %s is unassigned", sc.Name, id.Tour)
			}
		}
		rc := repair.Context{
			Plan: p, Tours: tourSet, Drivers: drivers, Pins: pinSet,
			Limits: profile.Limits,
		}
		out, rerr := engine.Repair(context.Background(), rc, inc, uuid.New())
		if !sc.Expected.RepairFeasible {
			if rerr == nil && out != nil {
				t.Errorf("scenario %s: expected infeasible repair, got %s", sc.Name, out.Proposal.Label)
			}
			continue
		}
		if rerr != nil {
			t.Fatalf("scenario %s: repair: %v", sc.Name, rerr)
		}
		if out == nil {
			t.Fatalf("scenario %s: incident touched no assignments", sc.Name)
		}
		if sc.Expected.MaxChurn > 0 && out.Proposal.Delta.Changed > sc.Expected.MaxChurn {
			t.Errorf("scenario %s: churn %d exceeds %d", sc.Name, out.Proposal.Delta.Changed, sc.Expected.MaxChurn)
		}
		p = out.Result.Plan
	}
}

func holderOf(assignments []model.Assignment, tourID string) string {
	for _, a := range assignments {
		for _, id := range a.TourIDs {
			if id == tourID {
				return a.DriverID
			}
		}
	}
	return ""
}

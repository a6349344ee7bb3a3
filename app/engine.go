package app

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/kilianp07/rosterd/core/audit"
	"github.com/kilianp07/rosterd/core/canonical"
	"github.com/kilianp07/rosterd/core/idempotency"
	"github.com/kilianp07/rosterd/core/lock"
	"github.com/kilianp07/rosterd/core/logger"
	coremetrics "github.com/kilianp07/rosterd/core/metrics"
	"github.com/kilianp07/rosterd/core/model"
	"github.com/kilianp07/rosterd/core/plan"
	"github.com/kilianp07/rosterd/core/policy"
	"github.com/kilianp07/rosterd/core/repair"
	"github.com/kilianp07/rosterd/core/solver"
	"github.com/kilianp07/rosterd/infra/store"
)

// Engine drives the solve, audit, publish and repair pipelines over one
// shared advisory-lock table and idempotency store. All mutating entry
// points acquire the plan's scheduling-unit lock for the duration of the
// operation.
type Engine struct {
	Profile policy.Profile

	solver    solver.Solver
	auditor   *audit.Engine
	lifecycle *plan.Lifecycle
	slots     *plan.SlotMachine
	orch      *repair.Orchestrator
	sessions  *repair.SessionManager
	applier   *repair.Applier
	locks     *lock.Advisory
	idem      *idempotency.Store
	store     store.Store
	sink      coremetrics.Sink
	buses     *Buses
	log       logger.Logger
}

// EngineOptions bundles the collaborators an Engine is built from.
type EngineOptions struct {
	Profile    policy.Profile
	Solver     solver.Solver
	Freeze     *plan.FreezeWindow
	Weights    repair.Weights
	Strategies []repair.Strategy
	TopK       int
	SessionTTL time.Duration
	IdemTTL    time.Duration
	Store      store.Store
	Sink       coremetrics.Sink
	Buses      *Buses
	Log        logger.Logger
}

// NewEngine assembles an engine from its collaborators. Nil Sink, Store and
// Log fall back to no-op implementations.
func NewEngine(opts EngineOptions) *Engine {
	if opts.Log == nil {
		opts.Log = logger.Nop{}
	}
	if opts.Sink == nil {
		opts.Sink = coremetrics.NopSink{}
	}
	if opts.Store == nil {
		opts.Store = store.NewMemStore()
	}
	if opts.Solver == nil {
		opts.Solver = solver.NewGreedy(opts.Log)
	}
	if opts.Buses == nil {
		opts.Buses = NewBuses(defaultBusBuffer)
	}
	lc := plan.NewLifecycle(opts.Log, opts.Freeze)
	sm := plan.NewSlotMachine(opts.Log, opts.Freeze)
	return &Engine{
		Profile:   opts.Profile,
		solver:    opts.Solver,
		auditor:   audit.New(opts.Log),
		lifecycle: lc,
		slots:     sm,
		orch:      repair.NewOrchestrator(opts.Weights, opts.Strategies, opts.TopK, opts.Log),
		sessions:  repair.NewSessionManager(opts.SessionTTL),
		applier:   repair.NewApplier(lc, sm, opts.Log),
		locks:     lock.NewAdvisory(),
		idem:      idempotency.NewStore(opts.IdemTTL),
		store:     opts.Store,
		sink:      opts.Sink,
		buses:     opts.Buses,
		log:       opts.Log,
	}
}

// Lifecycle exposes the plan lifecycle driver for callers that manage state
// transitions directly (CLI, tests).
func (e *Engine) Lifecycle() *plan.Lifecycle { return e.lifecycle }

// Sessions exposes the repair session manager.
func (e *Engine) Sessions() *repair.SessionManager { return e.sessions }

// Store exposes the persistence backend.
func (e *Engine) Store() store.Store { return e.store }

func (e *Engine) acquire(p *model.PlanVersion, owner string) (func(), error) {
	key := lock.Compose(p.TenantID, p.SchedulingUnitID)
	release, err := e.locks.TryAcquire(key, owner)
	if err != nil {
		holder, _ := e.locks.Holder(key)
		_ = e.sink.RecordLockContention(coremetrics.LockContentionEvent{
			TenantID:         p.TenantID,
			SchedulingUnitID: p.SchedulingUnitID,
			Holder:           holder,
			Time:             time.Now(),
		})
		return nil, err
	}
	return release, nil
}

// Solve runs the full solve pipeline against a DRAFT plan: hash the input
// and solver config, invoke the solver under the unit lock, then audit the
// result. On success the plan leaves in AUDITED (or SOLVED with failed
// checks recorded); a timed-out or failed solve transitions it to FAILED.
func (e *Engine) Solve(ctx context.Context, p *model.PlanVersion, in solver.Input, cfg solver.Config) ([]audit.Result, error) {
	release, err := e.acquire(p, "solve:"+p.ID)
	if err != nil {
		return nil, err
	}
	defer release()

	inputHash, err := canonical.InputHash(in.Tours)
	if err != nil {
		return nil, err
	}
	cfgHash, err := cfg.Hash()
	if err != nil {
		return nil, err
	}
	p.Seed = cfg.Seed
	p.PolicyProfileID = e.Profile.ID
	p.PolicyConfigHash = mustPolicyHash(e.Profile)
	p.InputHash = inputHash
	p.SolverConfigHash = cfgHash

	start := time.Now()
	assignments, err := e.solver.Solve(ctx, in, cfg)
	if err != nil {
		_ = e.sink.RecordSolve(coremetrics.SolveEvent{
			PlanID: p.ID, Seed: cfg.Seed, Tours: len(in.Tours),
			Duration: time.Since(start), Failed: true, Time: time.Now(),
		})
		if ferr := e.lifecycle.Fail(p, err); ferr != nil {
			e.log.Errorf("plan %s: fail transition: %v", p.ID, ferr)
		}
		_ = e.store.SavePlan(ctx, *p)
		return nil, err
	}

	p.Assignments = assignments
	outputHash, err := canonical.OutputHash(assignments)
	if err != nil {
		return nil, err
	}
	p.OutputHash = outputHash

	tours := model.NewTourSet(in.Tours)
	slots, err := plan.ExpandSlots(e.slots, assignments, tours, false)
	if err != nil {
		if ferr := e.lifecycle.Fail(p, err); ferr != nil {
			e.log.Errorf("plan %s: fail transition: %v", p.ID, ferr)
		}
		_ = e.store.SavePlan(ctx, *p)
		return nil, err
	}
	p.Slots = slots

	if err := e.transition(p, model.PlanSolved); err != nil {
		return nil, err
	}
	_ = e.sink.RecordSolve(coremetrics.SolveEvent{
		PlanID: p.ID, Seed: cfg.Seed, Tours: len(in.Tours), Assigned: len(assignments),
		Duration: time.Since(start), OutputHash: outputHash, Time: time.Now(),
	})

	results, err := e.Audit(ctx, p, tours)
	if err != nil {
		return nil, err
	}
	return results, e.store.SavePlan(ctx, *p)
}

// Audit reruns all compliance checks against the plan's current assignment
// set, records the verdict on the plan version and persists the results.
func (e *Engine) Audit(ctx context.Context, p *model.PlanVersion, tours model.TourSet) ([]audit.Result, error) {
	start := time.Now()
	results := e.auditor.Run(p.Assignments, tours, e.Profile.Limits)
	if err := e.lifecycle.RecordAudit(p, results); err != nil {
		return results, err
	}
	passed, failed := audit.Counts(results)
	_ = e.sink.RecordAuditRun(coremetrics.AuditRunEvent{
		PlanID: p.ID, Passed: passed, Failed: failed,
		Duration: time.Since(start), Time: time.Now(),
	})
	e.buses.publishAudit(p.ID, passed, failed)
	if err := e.store.SaveAudit(ctx, p.ID, store.ToStoredResults(results)); err != nil {
		return results, err
	}
	return results, nil
}

// Publish approves and publishes an audited plan under the unit lock,
// persisting the snapshot and an evidence record.
func (e *Engine) Publish(ctx context.Context, p *model.PlanVersion, results []audit.Result, tours model.TourSet) (*model.PlanSnapshot, error) {
	release, err := e.acquire(p, "publish:"+p.ID)
	if err != nil {
		return nil, err
	}
	defer release()

	if p.State == model.PlanAudited {
		if err := e.transition(p, model.PlanApproved); err != nil {
			return nil, err
		}
	}
	from := p.State
	snap, err := e.lifecycle.Publish(p, results, tours, e.Profile.Limits)
	if err != nil {
		return nil, err
	}
	e.buses.publishPlanState(p, from)
	if err := e.store.SaveSnapshot(ctx, *snap); err != nil {
		return nil, err
	}
	if err := e.store.SavePlan(ctx, *p); err != nil {
		return nil, err
	}
	err = e.store.AppendEvidence(ctx, store.EvidenceRecord{
		ID:         uuid.NewString(),
		PlanID:     p.ID,
		Action:     "publish",
		TenantID:   p.TenantID,
		PolicyHash: p.PolicyConfigHash,
		OutputHash: p.OutputHash,
		Timestamp:  time.Now(),
	})
	return snap, err
}

// RepairOutcome is the result of a full incident-to-apply repair pass.
type RepairOutcome struct {
	SessionID string              `json:"session_id"`
	Proposal  repair.Proposal     `json:"proposal"`
	Result    *repair.ApplyResult `json:"result"`
}

// Repair resolves an incident end to end: open a session, build proposals,
// preview the best feasible one and apply it as a new plan version. The
// whole pass runs under the unit lock and is idempotent on actionID: a
// replay with the same incident body returns the recorded outcome.
func (e *Engine) Repair(ctx context.Context, rc repair.Context, inc model.IncidentSpec, actionID uuid.UUID) (*RepairOutcome, error) {
	body, err := canonical.Marshal(inc)
	if err != nil {
		return nil, err
	}
	key := idempotency.Key("repair.apply", actionID)
	status, cached, err := e.idem.Check(key, body)
	if err != nil {
		return nil, err
	}
	if status == idempotency.StatusHit {
		var out RepairOutcome
		if err := json.Unmarshal(cached, &out); err != nil {
			return nil, err
		}
		e.log.Infof("repair action %s replayed from idempotency store", actionID)
		return &out, nil
	}

	release, err := e.acquire(rc.Plan, "repair:"+actionID.String())
	if err != nil {
		return nil, err
	}
	defer release()

	s, err := e.sessions.Open(rc.Plan, inc)
	if err != nil {
		return nil, err
	}
	e.buses.publishSession(s, rc.Plan.ID, "create", "", nil)

	start := time.Now()
	feasible, fallback, err := e.orch.Propose(rc, inc)
	if err != nil {
		e.buses.publishSession(s, rc.Plan.ID, "abort", "", err)
		_ = s.Abort()
		return nil, err
	}
	if len(feasible) == 0 && fallback == nil {
		_ = s.Abort()
		return nil, nil
	}
	best := fallback
	if len(feasible) > 0 {
		best = &feasible[0]
	}
	if !best.Feasible {
		e.buses.publishSession(s, rc.Plan.ID, "abort", "", nil)
		_ = s.Abort()
		return nil, model.E(model.CodeInfeasible,
			"best proposal %s (%s) is infeasible for driver %s", best.Label, best.Strategy, inc.DriverID)
	}

	if err := e.previewAndApply(ctx, s, rc, best, start); err != nil {
		e.buses.publishSession(s, rc.Plan.ID, "abort", "", err)
		_ = s.Abort()
		return nil, err
	}
	out := &RepairOutcome{SessionID: s.ID, Proposal: *best}
	res, err := e.applier.Apply(s, rc.Plan, rc.Tours, rc.Limits)
	if err != nil {
		e.buses.publishSession(s, rc.Plan.ID, "apply", "", err)
		_ = s.Abort()
		return nil, err
	}
	out.Result = res
	e.buses.publishSession(s, res.Plan.ID, "apply", res.EvidenceID, nil)
	_ = e.sink.RecordRepair(coremetrics.RepairEvent{
		SessionID: out.SessionID, PlanID: res.Plan.ID, Action: "apply",
		Strategy: string(best.Strategy), Feasible: true,
		Churn: best.Delta.Changed, Duration: time.Since(start), Time: time.Now(),
	})

	if err := e.persistApply(ctx, res, inc); err != nil {
		return nil, err
	}
	response, err := json.Marshal(out)
	if err != nil {
		return nil, err
	}
	e.idem.Save(key, body, response)
	return out, nil
}

func (e *Engine) previewAndApply(_ context.Context, s *repair.Session, rc repair.Context, best *repair.Proposal, _ time.Time) error {
	if err := s.StageProposal(*best); err != nil {
		return err
	}
	preview := repair.Preview{
		SessionID:   s.ID,
		Delta:       best.Delta,
		Violations:  best.Violations,
		Coverage:    best.Coverage,
		Assignments: best.Assignments,
	}
	if err := s.Freeze(preview); err != nil {
		return err
	}
	e.buses.publishSession(s, rc.Plan.ID, "preview", "", nil)
	return nil
}

func (e *Engine) persistApply(ctx context.Context, res *repair.ApplyResult, inc model.IncidentSpec) error {
	if err := e.store.SavePlan(ctx, *res.Plan); err != nil {
		return err
	}
	if err := e.store.SaveAudit(ctx, res.Plan.ID, store.ToStoredResults(res.Audit)); err != nil {
		return err
	}
	if res.Snapshot != nil {
		if err := e.store.SaveSnapshot(ctx, *res.Snapshot); err != nil {
			return err
		}
	}
	return e.store.AppendEvidence(ctx, store.EvidenceRecord{
		ID:         res.EvidenceID,
		PlanID:     res.Plan.ID,
		Action:     "repair." + string(inc.Type),
		ActorID:    inc.DriverID,
		TenantID:   res.Plan.TenantID,
		PolicyHash: res.PolicyHash,
		OutputHash: res.Plan.OutputHash,
		Timestamp:  time.Now(),
	})
}

func (e *Engine) transition(p *model.PlanVersion, to model.PlanState) error {
	from := p.State
	if err := e.lifecycle.Transition(p, to); err != nil {
		return err
	}
	e.buses.publishPlanState(p, from)
	return nil
}

func mustPolicyHash(pr policy.Profile) string {
	h, err := pr.Hash()
	if err != nil {
		return ""
	}
	return h
}

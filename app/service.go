package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kilianp07/rosterd/config"
	coremetrics "github.com/kilianp07/rosterd/core/metrics"
	"github.com/kilianp07/rosterd/core/model"
	"github.com/kilianp07/rosterd/core/plan"
	"github.com/kilianp07/rosterd/core/repair"
	"github.com/kilianp07/rosterd/infra/logger"
	"github.com/kilianp07/rosterd/infra/metrics"
	"github.com/kilianp07/rosterd/infra/mqtt"
	"github.com/kilianp07/rosterd/infra/store"
)

// Service wires the engine to its infrastructure: metrics sinks, the
// persistence backend, the event buses and the MQTT incident intake.
type Service struct {
	Engine *Engine
	Buses  *Buses

	intake      *mqtt.IncidentIntake
	st          store.Store
	log         logger.Logger
	promEnabled bool
	promPort    int

	mu      sync.Mutex
	current *repair.Context
}

// New creates a Service from the configuration.
func New(cfg *config.Config) (*Service, error) {
	logg := logger.New("service")

	var sinks []coremetrics.Sink
	if cfg.Metrics.PrometheusEnabled {
		sink, err := metrics.NewPromSink(cfg.Metrics)
		if err != nil {
			return nil, fmt.Errorf("prom sink: %w", err)
		}
		sinks = append(sinks, sink)
	}
	if cfg.Metrics.InfluxEnabled {
		sink := metrics.NewInfluxSinkWithFallback(cfg.Metrics.InfluxURL, cfg.Metrics.InfluxToken, cfg.Metrics.InfluxOrg, cfg.Metrics.InfluxBucket)
		sinks = append(sinks, sink)
	}
	var sink coremetrics.Sink = coremetrics.NopSink{}
	if len(sinks) == 1 {
		sink = sinks[0]
	} else if len(sinks) > 1 {
		sink = metrics.NewMultiSink(sinks...)
	}

	var st store.Store
	var err error
	switch cfg.Store.Backend {
	case "memory":
		st = store.NewMemStore()
	default:
		st, err = store.NewSQLiteStore(cfg.Store.Path)
		if err != nil {
			return nil, fmt.Errorf("sqlite store: %w", err)
		}
	}

	buses := NewBuses(defaultBusBuffer)
	engine := NewEngine(EngineOptions{
		Profile:    cfg.Policy.Profile(),
		Freeze:     plan.NewFreezeWindow(time.Duration(cfg.Plan.FreezeWindowHours) * time.Hour),
		Weights:    cfg.Repair.Weights,
		Strategies: cfg.Repair.StrategyList(),
		TopK:       cfg.Repair.TopK,
		SessionTTL: time.Duration(cfg.Repair.SessionTTLMinutes) * time.Minute,
		IdemTTL:    time.Duration(cfg.Idempotency.TTLHours) * time.Hour,
		Store:      st,
		Sink:       sink,
		Buses:      buses,
		Log:        logg,
	})

	svc := &Service{
		Engine:      engine,
		Buses:       buses,
		st:          st,
		log:         logg,
		promEnabled: cfg.Metrics.PrometheusEnabled,
		promPort:    cfg.Metrics.PrometheusPort,
	}
	if cfg.MQTT.Broker != "" {
		intake, err := mqtt.NewIncidentIntake(cfg.MQTT, buses.Incidents)
		if err != nil {
			return nil, fmt.Errorf("incident intake: %w", err)
		}
		svc.intake = intake
	}
	return svc, nil
}

// Attach sets the roster material incidents are repaired against. The serve
// loop ignores incidents until a plan is attached.
func (s *Service) Attach(p *model.PlanVersion, tours model.TourSet, drivers []model.Driver, pins model.PinSet) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = &repair.Context{
		Plan:    p,
		Tours:   tours,
		Drivers: drivers,
		Pins:    pins,
		Limits:  s.Engine.Profile.Limits,
	}
}

func (s *Service) repairContext() *repair.Context {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// Run starts the service loop and blocks until the context is cancelled.
// Each incident from the bus triggers one end-to-end repair pass.
func (s *Service) Run(ctx context.Context) error {
	if s.promEnabled {
		go func() {
			addr := fmt.Sprintf(":%d", s.promPort)
			if err := metrics.StartPromServer(ctx, addr, s.log); err != nil {
				s.log.Errorf("prom server: %v", err)
			}
		}()
	}

	incidents := s.Buses.Incidents.Subscribe()
	defer s.Buses.Incidents.Unsubscribe(incidents)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-incidents:
			if !ok {
				return nil
			}
			rc := s.repairContext()
			if rc == nil {
				s.log.Warnf("incident %s for driver %s dropped: no plan attached", ev.Incident.Type, ev.Incident.DriverID)
				continue
			}
			out, err := s.Engine.Repair(ctx, *rc, ev.Incident, uuid.New())
			if err != nil {
				s.log.Errorf("repair for driver %s: %v", ev.Incident.DriverID, err)
				continue
			}
			if out == nil {
				s.log.Infof("incident %s for driver %s required no repair", ev.Incident.Type, ev.Incident.DriverID)
				continue
			}
			s.mu.Lock()
			s.current.Plan = out.Result.Plan
			s.mu.Unlock()
			s.log.Infof("incident resolved: session=%s strategy=%s plan=%s", out.SessionID, out.Proposal.Strategy, out.Result.Plan.ID)
		}
	}
}

// Close releases the service's resources.
func (s *Service) Close() error {
	if s.intake != nil {
		s.intake.Close()
	}
	s.Buses.Close()
	return s.st.Close()
}

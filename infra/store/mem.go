package store

import (
	"context"
	"sort"
	"sync"

	"github.com/kilianp07/rosterd/core/model"
)

// MemStore is an in-memory Store used in tests and short-lived commands.
type MemStore struct {
	mu        sync.RWMutex
	plans     map[string]model.PlanVersion
	audits    map[string][]StoredAuditResult
	snapshots map[string]model.PlanSnapshot
	evidence  []EvidenceRecord
}

// NewMemStore returns an empty MemStore.
func NewMemStore() *MemStore {
	return &MemStore{
		plans:     make(map[string]model.PlanVersion),
		audits:    make(map[string][]StoredAuditResult),
		snapshots: make(map[string]model.PlanSnapshot),
	}
}

func (s *MemStore) SavePlan(_ context.Context, p model.PlanVersion) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.plans[p.ID] = p.Clone()
	return nil
}

func (s *MemStore) GetPlan(_ context.Context, id string) (model.PlanVersion, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.plans[id]
	if !ok {
		return model.PlanVersion{}, model.E(model.CodeNotFound, "plan %s not found", id)
	}
	return p.Clone(), nil
}

func (s *MemStore) SaveAudit(_ context.Context, planID string, results []StoredAuditResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.audits[planID] = append([]StoredAuditResult(nil), results...)
	return nil
}

func (s *MemStore) GetAudit(_ context.Context, planID string) ([]StoredAuditResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	res, ok := s.audits[planID]
	if !ok {
		return nil, model.E(model.CodeNotFound, "no audit results for plan %s", planID)
	}
	return append([]StoredAuditResult(nil), res...), nil
}

func (s *MemStore) SaveSnapshot(_ context.Context, snap model.PlanSnapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshots[snap.ID] = snap
	return nil
}

func (s *MemStore) GetSnapshot(_ context.Context, id string) (model.PlanSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap, ok := s.snapshots[id]
	if !ok {
		return model.PlanSnapshot{}, model.E(model.CodeNotFound, "snapshot %s not found", id)
	}
	return snap, nil
}

func (s *MemStore) AppendEvidence(_ context.Context, rec EvidenceRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.evidence = append(s.evidence, rec)
	return nil
}

func (s *MemStore) QueryEvidence(_ context.Context, q EvidenceQuery) ([]EvidenceRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []EvidenceRecord
	for _, e := range s.evidence {
		if q.PlanID != "" && e.PlanID != q.PlanID {
			continue
		}
		if !q.Start.IsZero() && e.Timestamp.Before(q.Start) {
			continue
		}
		if !q.End.IsZero() && e.Timestamp.After(q.End) {
			continue
		}
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })
	return out, nil
}

func (s *MemStore) Close() error { return nil }

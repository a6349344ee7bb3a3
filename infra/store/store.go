// Package store persists plan versions, audit verdicts, snapshots and
// evidence records. The engine treats persistence as a collaborator behind
// the Store interface; SQLiteStore is the shipped implementation and MemStore
// backs the tests.
package store

import (
	"context"
	"time"

	"github.com/kilianp07/rosterd/core/audit"
	"github.com/kilianp07/rosterd/core/model"
	"github.com/kilianp07/rosterd/core/violation"
)

// StoredViolation is the persisted view of a violation variant.
type StoredViolation struct {
	Kind        violation.Kind     `json:"kind"`
	Severity    violation.Severity `json:"severity"`
	Description string             `json:"description"`
}

// StoredAuditResult is the persisted view of one audit check result.
type StoredAuditResult struct {
	Check      audit.CheckName   `json:"check"`
	Status     audit.Status      `json:"status"`
	Violations []StoredViolation `json:"violations,omitempty"`
}

// ToStoredResults converts engine results into their persisted view.
func ToStoredResults(results []audit.Result) []StoredAuditResult {
	out := make([]StoredAuditResult, len(results))
	for i, r := range results {
		sr := StoredAuditResult{Check: r.Check, Status: r.Status}
		for _, v := range r.Violations {
			sr.Violations = append(sr.Violations, StoredViolation{
				Kind:        v.Kind(),
				Severity:    v.Severity(),
				Description: v.Describe(),
			})
		}
		out[i] = sr
	}
	return out
}

// EvidenceRecord is one append-only audit-trail entry for artifact export.
type EvidenceRecord struct {
	ID         string    `json:"id"`
	PlanID     string    `json:"plan_id"`
	Action     string    `json:"action"`
	ActorID    string    `json:"actor_id,omitempty"`
	TenantID   uint32    `json:"tenant_id"`
	PolicyHash string    `json:"policy_hash"`
	OutputHash string    `json:"output_hash,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

// EvidenceQuery filters evidence retrieval.
type EvidenceQuery struct {
	PlanID string
	Start  time.Time
	End    time.Time
}

// Store persists the roster engine's durable state.
type Store interface {
	SavePlan(ctx context.Context, p model.PlanVersion) error
	GetPlan(ctx context.Context, id string) (model.PlanVersion, error)
	SaveAudit(ctx context.Context, planID string, results []StoredAuditResult) error
	GetAudit(ctx context.Context, planID string) ([]StoredAuditResult, error)
	SaveSnapshot(ctx context.Context, s model.PlanSnapshot) error
	GetSnapshot(ctx context.Context, id string) (model.PlanSnapshot, error)
	AppendEvidence(ctx context.Context, rec EvidenceRecord) error
	QueryEvidence(ctx context.Context, q EvidenceQuery) ([]EvidenceRecord, error)
	Close() error
}

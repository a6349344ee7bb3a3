package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/kilianp07/rosterd/core/model"
)

// SQLiteStore persists roster state to a SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens or creates the database at path and ensures schema.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	schema := `
    CREATE TABLE IF NOT EXISTS plan_versions (
        id TEXT PRIMARY KEY,
        state TEXT,
        record TEXT
    );
    CREATE TABLE IF NOT EXISTS audit_results (
        plan_id TEXT PRIMARY KEY,
        record TEXT
    );
    CREATE TABLE IF NOT EXISTS snapshots (
        id TEXT PRIMARY KEY,
        plan_id TEXT,
        record TEXT
    );
    CREATE TABLE IF NOT EXISTS evidence (
        id TEXT PRIMARY KEY,
        plan_id TEXT,
        ts INTEGER,
        record TEXT
    );`
	if _, err := db.Exec(schema); err != nil {
		if cerr := db.Close(); cerr != nil {
			return nil, fmt.Errorf("exec schema: %v, close: %v", err, cerr)
		}
		return nil, err
	}
	return &SQLiteStore{db: db}, nil
}

// SavePlan upserts a plan version record.
func (s *SQLiteStore) SavePlan(ctx context.Context, p model.PlanVersion) error {
	b, err := json.Marshal(p)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO plan_versions(id, state, record) VALUES(?, ?, ?)
         ON CONFLICT(id) DO UPDATE SET state=excluded.state, record=excluded.record`,
		p.ID, string(p.State), string(b))
	return err
}

// GetPlan loads a plan version by ID.
func (s *SQLiteStore) GetPlan(ctx context.Context, id string) (model.PlanVersion, error) {
	var rec string
	err := s.db.QueryRowContext(ctx, `SELECT record FROM plan_versions WHERE id = ?`, id).Scan(&rec)
	if err == sql.ErrNoRows {
		return model.PlanVersion{}, model.E(model.CodeNotFound, "plan %s not found", id)
	}
	if err != nil {
		return model.PlanVersion{}, err
	}
	var p model.PlanVersion
	if err := json.Unmarshal([]byte(rec), &p); err != nil {
		return model.PlanVersion{}, err
	}
	return p, nil
}

// SaveAudit replaces the audit results for a plan version wholesale.
func (s *SQLiteStore) SaveAudit(ctx context.Context, planID string, results []StoredAuditResult) error {
	b, err := json.Marshal(results)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO audit_results(plan_id, record) VALUES(?, ?)
         ON CONFLICT(plan_id) DO UPDATE SET record=excluded.record`,
		planID, string(b))
	return err
}

// GetAudit loads the stored audit results for a plan version.
func (s *SQLiteStore) GetAudit(ctx context.Context, planID string) ([]StoredAuditResult, error) {
	var rec string
	err := s.db.QueryRowContext(ctx, `SELECT record FROM audit_results WHERE plan_id = ?`, planID).Scan(&rec)
	if err == sql.ErrNoRows {
		return nil, model.E(model.CodeNotFound, "no audit results for plan %s", planID)
	}
	if err != nil {
		return nil, err
	}
	var out []StoredAuditResult
	if err := json.Unmarshal([]byte(rec), &out); err != nil {
		return nil, err
	}
	return out, nil
}

// SaveSnapshot stores an immutable published snapshot. Existing snapshots
// are never overwritten.
func (s *SQLiteStore) SaveSnapshot(ctx context.Context, snap model.PlanSnapshot) error {
	b, err := json.Marshal(snap)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO snapshots(id, plan_id, record) VALUES(?, ?, ?)`,
		snap.ID, snap.PlanVersionID, string(b))
	return err
}

// GetSnapshot loads a snapshot by ID.
func (s *SQLiteStore) GetSnapshot(ctx context.Context, id string) (model.PlanSnapshot, error) {
	var rec string
	err := s.db.QueryRowContext(ctx, `SELECT record FROM snapshots WHERE id = ?`, id).Scan(&rec)
	if err == sql.ErrNoRows {
		return model.PlanSnapshot{}, model.E(model.CodeNotFound, "snapshot %s not found", id)
	}
	if err != nil {
		return model.PlanSnapshot{}, err
	}
	var snap model.PlanSnapshot
	if err := json.Unmarshal([]byte(rec), &snap); err != nil {
		return model.PlanSnapshot{}, err
	}
	return snap, nil
}

// AppendEvidence appends one audit-trail entry.
func (s *SQLiteStore) AppendEvidence(ctx context.Context, rec EvidenceRecord) error {
	b, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO evidence(id, plan_id, ts, record) VALUES(?, ?, ?, ?)`,
		rec.ID, rec.PlanID, rec.Timestamp.UnixNano(), string(b))
	return err
}

// QueryEvidence retrieves evidence entries matching the query in
// chronological order.
func (s *SQLiteStore) QueryEvidence(ctx context.Context, q EvidenceQuery) ([]EvidenceRecord, error) {
	query := `SELECT record FROM evidence WHERE 1=1`
	var args []any
	if q.PlanID != "" {
		query += ` AND plan_id = ?`
		args = append(args, q.PlanID)
	}
	if !q.Start.IsZero() {
		query += ` AND ts >= ?`
		args = append(args, q.Start.UnixNano())
	}
	if !q.End.IsZero() {
		query += ` AND ts <= ?`
		args = append(args, q.End.UnixNano())
	}
	query += ` ORDER BY ts ASC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []EvidenceRecord
	for rows.Next() {
		var rec string
		if err := rows.Scan(&rec); err != nil {
			return nil, err
		}
		var e EvidenceRecord
		if err := json.Unmarshal([]byte(rec), &e); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// Close releases the database handle.
func (s *SQLiteStore) Close() error { return s.db.Close() }

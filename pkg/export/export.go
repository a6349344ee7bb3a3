package export

import (
	"encoding/csv"
	"encoding/json"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/kilianp07/rosterd/core/model"
	"github.com/kilianp07/rosterd/infra/store"
)

// WriteSnapshotJSON writes a published snapshot to w in JSON format.
func WriteSnapshotJSON(w io.Writer, snap model.PlanSnapshot) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(snap)
}

// WriteSnapshotCSV writes the snapshot's assignment rows to w.
func WriteSnapshotCSV(w io.Writer, snap model.PlanSnapshot) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"driver_id", "day", "block_id", "block_type", "tour_ids"}); err != nil {
		return err
	}
	for _, a := range snap.Assignments {
		rec := []string{
			a.DriverID,
			string(a.Day),
			a.BlockID,
			string(a.BlockType),
			strings.Join(a.TourIDs, "|"),
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteEvidenceJSON writes audit-trail records to w in JSON format.
func WriteEvidenceJSON(w io.Writer, records []store.EvidenceRecord) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(records)
}

// WriteEvidenceCSV writes audit-trail records to w in CSV format.
func WriteEvidenceCSV(w io.Writer, records []store.EvidenceRecord) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"id", "plan_id", "action", "actor_id", "tenant_id", "policy_hash", "output_hash", "timestamp"}); err != nil {
		return err
	}
	for _, r := range records {
		rec := []string{
			r.ID,
			r.PlanID,
			r.Action,
			r.ActorID,
			strconv.FormatUint(uint64(r.TenantID), 10),
			r.PolicyHash,
			r.OutputHash,
			r.Timestamp.Format(time.RFC3339),
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

package export

import (
	"bytes"
	"encoding/csv"
	"strings"
	"testing"
	"time"

	"github.com/kilianp07/rosterd/core/model"
	"github.com/kilianp07/rosterd/infra/store"
)

func sampleSnapshot() model.PlanSnapshot {
	return model.PlanSnapshot{
		ID:            "snap-1",
		PlanVersionID: "plan-1",
		OutputHash:    "abc",
		PublishedAt:   time.Date(2026, 3, 2, 18, 0, 0, 0, time.UTC),
		Assignments: []model.Assignment{
			{DriverID: "d1", Day: "2026-03-02", BlockID: "b-d1-2026-03-02", BlockType: model.Block1er, TourIDs: []string{"t1"}},
			{DriverID: "d2", Day: "2026-03-02", BlockID: "b-d2-2026-03-02", BlockType: model.Block2erReg, TourIDs: []string{"t2", "t3"}},
		},
	}
}

func TestWriteSnapshotCSV(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteSnapshotCSV(&buf, sampleSnapshot()); err != nil {
		t.Fatalf("write csv: %v", err)
	}
	rows, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected header + 2 rows, got %d", len(rows))
	}
	if rows[2][4] != "t2|t3" {
		t.Fatalf("expected joined tour ids, got %q", rows[2][4])
	}
}

func TestWriteSnapshotJSON(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteSnapshotJSON(&buf, sampleSnapshot()); err != nil {
		t.Fatalf("write json: %v", err)
	}
	if !strings.Contains(buf.String(), `"plan_version_id": "plan-1"`) {
		t.Fatalf("missing plan version id in %s", buf.String())
	}
}

func TestWriteEvidenceCSV(t *testing.T) {
	var buf bytes.Buffer
	records := []store.EvidenceRecord{
		{ID: "e1", PlanID: "plan-1", Action: "publish", TenantID: 7, PolicyHash: "p", OutputHash: "o", Timestamp: time.Unix(0, 0).UTC()},
	}
	if err := WriteEvidenceCSV(&buf, records); err != nil {
		t.Fatalf("write csv: %v", err)
	}
	rows, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected header + 1 row, got %d", len(rows))
	}
	if rows[1][4] != "7" {
		t.Fatalf("expected tenant 7, got %q", rows[1][4])
	}
}

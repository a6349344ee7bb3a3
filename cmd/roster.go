package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/kilianp07/rosterd/core/model"
	"github.com/kilianp07/rosterd/core/solver"
)

// rosterFile is the JSON input document for solve/repair runs: the week's
// tour set, the driver roster and any pinned cells.
type rosterFile struct {
	WeekStart string               `json:"week_start"`
	TenantID  uint32               `json:"tenant_id"`
	UnitID    uint32               `json:"scheduling_unit_id"`
	Drivers   []model.Driver       `json:"drivers"`
	Tours     []model.TourInstance `json:"tours"`
	Pins      []model.Pin          `json:"pins,omitempty"`
}

func loadRoster(path string) (*rosterFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var rf rosterFile
	if err := json.Unmarshal(data, &rf); err != nil {
		return nil, fmt.Errorf("parse roster %s: %w", path, err)
	}
	if _, err := model.ParseDay(rf.WeekStart); err != nil {
		return nil, fmt.Errorf("roster week_start: %w", err)
	}
	if rf.TenantID == 0 {
		rf.TenantID = 1
	}
	if rf.UnitID == 0 {
		rf.UnitID = 1
	}
	return &rf, nil
}

func (rf *rosterFile) solverInput() solver.Input {
	return solver.Input{
		WeekStart: model.Day(rf.WeekStart),
		Tours:     rf.Tours,
		Drivers:   rf.Drivers,
		Pins:      rf.Pins,
	}
}

func (rf *rosterFile) newPlan() *model.PlanVersion {
	return &model.PlanVersion{
		ID:               uuid.NewString(),
		TenantID:         rf.TenantID,
		SchedulingUnitID: rf.UnitID,
		WeekStart:        model.Day(rf.WeekStart),
		State:            model.PlanDraft,
		CreatedAt:        time.Now(),
	}
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

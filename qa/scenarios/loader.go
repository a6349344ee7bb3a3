package scenarios

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/kilianp07/rosterd/core/model"
)

type DriverDef struct {
	ID                string   `yaml:"id"`
	Depot             string   `yaml:"depot"`
	Qualifications    []string `yaml:"qualifications,omitempty"`
	TargetWeeklyHours float64  `yaml:"target_weekly_hours"`
	Reserve           bool     `yaml:"reserve,omitempty"`
	PriorityTier      int      `yaml:"priority_tier,omitempty"`
}

func (d DriverDef) ToModel() model.Driver {
	return model.Driver{
		ID:                d.ID,
		Depot:             d.Depot,
		Qualifications:    d.Qualifications,
		TargetWeeklyHours: d.TargetWeeklyHours,
		Reserve:           d.Reserve,
		PriorityTier:      d.PriorityTier,
	}
}

// TourDef declares a tour with wall-clock times. An end at or before the
// start rolls over to the next calendar day.
type TourDef struct {
	ID             string   `yaml:"id"`
	Day            string   `yaml:"day"`
	Start          string   `yaml:"start"`
	End            string   `yaml:"end"`
	Depot          string   `yaml:"depot"`
	Qualifications []string `yaml:"qualifications,omitempty"`
}

func (td TourDef) ToModel() (model.TourInstance, error) {
	day, err := model.ParseDay(td.Day)
	if err != nil {
		return model.TourInstance{}, fmt.Errorf("tour %s: %w", td.ID, err)
	}
	start, err := clockTime(day, td.Start)
	if err != nil {
		return model.TourInstance{}, fmt.Errorf("tour %s start: %w", td.ID, err)
	}
	end, err := clockTime(day, td.End)
	if err != nil {
		return model.TourInstance{}, fmt.Errorf("tour %s end: %w", td.ID, err)
	}
	if !end.After(start) {
		end = end.Add(24 * time.Hour)
	}
	return model.TourInstance{
		ID:             td.ID,
		Day:            day,
		Start:          start,
		End:            end,
		Depot:          td.Depot,
		Qualifications: td.Qualifications,
	}, nil
}

type PinDef struct {
	DriverID   string `yaml:"driver_id"`
	Day        string `yaml:"day"`
	ReasonCode string `yaml:"reason_code"`
}

// IncidentDef declares a disruption. The struck driver is named directly or
// resolved as the holder of a tour once the plan is solved.
type IncidentDef struct {
	Type     string `yaml:"type"`
	DriverID string `yaml:"driver_id,omitempty"`
	Tour     string `yaml:"tour,omitempty"`
	Day      string `yaml:"day"`
	From     string `yaml:"from,omitempty"`
	To       string `yaml:"to,omitempty"`
}

// ToModel builds an IncidentSpec. An incident without explicit from/to
// covers the whole day.
func (id IncidentDef) ToModel() (model.IncidentSpec, error) {
	day, err := model.ParseDay(id.Day)
	if err != nil {
		return model.IncidentSpec{}, fmt.Errorf("incident for %s: %w", id.DriverID, err)
	}
	from := day.Time()
	to := day.Next().Time()
	if id.From != "" {
		if from, err = clockTime(day, id.From); err != nil {
			return model.IncidentSpec{}, err
		}
	}
	if id.To != "" {
		if to, err = clockTime(day, id.To); err != nil {
			return model.IncidentSpec{}, err
		}
		if !to.After(from) {
			to = to.Add(24 * time.Hour)
		}
	}
	return model.IncidentSpec{
		Type:     parseIncidentType(id.Type),
		DriverID: id.DriverID,
		From:     from,
		To:       to,
	}, nil
}

type Expected struct {
	AuditPassed    int  `yaml:"audit_passed"`
	AuditFailed    int  `yaml:"audit_failed"`
	RepairFeasible bool `yaml:"repair_feasible,omitempty"`
	MaxChurn       int  `yaml:"max_churn,omitempty"`
}

type Scenario struct {
	Name        string        `yaml:"name"`
	Description string        `yaml:"description,omitempty"`
	WeekStart   string        `yaml:"week_start"`
	Seed        int64         `yaml:"seed,omitempty"`
	Drivers     []DriverDef   `yaml:"drivers"`
	Tours       []TourDef     `yaml:"tours"`
	Pins        []PinDef      `yaml:"pins,omitempty"`
	Incidents   []IncidentDef `yaml:"incidents,omitempty"`
	Expected    Expected      `yaml:"expected"`
}

func Load(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var sc Scenario
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return nil, err
	}
	return &sc, nil
}

func clockTime(day model.Day, clock string) (time.Time, error) {
	t, err := time.Parse("15:04", clock)
	if err != nil {
		return time.Time{}, err
	}
	base := day.Time()
	return base.Add(time.Duration(t.Hour())*time.Hour + time.Duration(t.Minute())*time.Minute), nil
}

func parseIncidentType(t string) model.IncidentType {
	switch t {
	case "NO_SHOW":
		return model.IncidentNoShow
	case "LATE":
		return model.IncidentLate
	default:
		return model.IncidentSick
	}
}

package scenarios

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/kilianp07/rosterd/core/model"
)

func TestScenario(t *testing.T) {
	files, err := filepath.Glob("*.yaml")
	if err != nil {
		t.Fatalf("glob: %v", err)
	}
	for _, f := range files {
		sc, err := Load(f)
		if err != nil {
			t.Fatalf("load %s: %v", f, err)
		}
		t.Run(sc.Name, func(t *testing.T) {
			RunScenario(t, sc)
		})
	}
}

func TestLoadInvalid(t *testing.T) {
	if _, err := Load("no-file.yaml"); err == nil {
		t.Fatal("expected error for missing file")
	}
	tmp, err := os.CreateTemp(t.TempDir(), "bad*.yaml")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := tmp.WriteString(":"); err != nil {
		t.Fatal(err)
	}
	if err := tmp.Close(); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(tmp.Name()); err == nil {
		t.Fatal("expected unmarshal error")
	}
}

func TestTourDefRollsOverMidnight(t *testing.T) {
	td := TourDef{ID: "n1", Day: "2026-03-02", Start: "22:00", End: "05:00", Depot: "north"}
	tour, err := td.ToModel()
	if err != nil {
		t.Fatalf("to model: %v", err)
	}
	if !tour.End.After(tour.Start) {
		t.Fatalf("expected cross-midnight end after start, got %v / %v", tour.Start, tour.End)
	}
	if got := tour.Duration(); got.Hours() != 7 {
		t.Fatalf("expected 7h tour, got %v", got)
	}
}

func TestIncidentDefWholeDay(t *testing.T) {
	id := IncidentDef{Type: "NO_SHOW", DriverID: "d1", Day: "2026-03-02"}
	inc, err := id.ToModel()
	if err != nil {
		t.Fatalf("to model: %v", err)
	}
	if inc.Type != model.IncidentNoShow {
		t.Fatalf("expected NO_SHOW, got %s", inc.Type)
	}
	if inc.To.Sub(inc.From).Hours() != 24 {
		t.Fatalf("expected whole-day coverage, got %v", inc.To.Sub(inc.From))
	}
}

func TestHolderOf(t *testing.T) {
	assignments := []model.Assignment{
		{DriverID: "d1", TourIDs: []string{"t1", "t2"}},
		{DriverID: "d2", TourIDs: []string{"t3"}},
	}
	if got := holderOf(assignments, "t3"); got != "d2" {
		t.Fatalf("expected d2, got %s", got)
	}
	if got := holderOf(assignments, "t9"); got != "" {
		t.Fatalf("expected no holder, got %s", got)
	}
}

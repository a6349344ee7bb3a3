package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/kilianp07/rosterd/app"
	"github.com/kilianp07/rosterd/config"
	"github.com/kilianp07/rosterd/core/model"
	"github.com/kilianp07/rosterd/core/repair"
	"github.com/kilianp07/rosterd/core/solver"
)

var (
	repairRoster   string
	repairIncident string
	repairActionID string
)

var repairCmd = &cobra.Command{
	Use:   "repair",
	Short: "Resolve an incident against a freshly solved plan",
	RunE:  runRepair,
}

func init() {
	repairCmd.Flags().StringVar(&repairRoster, "roster", "roster.json", "roster input file")
	repairCmd.Flags().StringVar(&repairIncident, "incident", "", "incident file (JSON IncidentSpec)")
	repairCmd.Flags().StringVar(&repairActionID, "action-id", "", "idempotency key; defaults to a fresh UUID")
	if err := repairCmd.MarkFlagRequired("incident"); err != nil {
		panic(err)
	}
	rootCmd.AddCommand(repairCmd)
}

func runRepair(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	svc, err := app.New(cfg)
	if err != nil {
		return err
	}
	defer svc.Close()

	rf, err := loadRoster(repairRoster)
	if err != nil {
		return err
	}
	data, err := os.ReadFile(repairIncident)
	if err != nil {
		return err
	}
	var inc model.IncidentSpec
	if err := json.Unmarshal(data, &inc); err != nil {
		return fmt.Errorf("parse incident %s: %w", repairIncident, err)
	}

	actionID := uuid.New()
	if repairActionID != "" {
		if actionID, err = uuid.Parse(repairActionID); err != nil {
			return fmt.Errorf("action-id: %w", err)
		}
	}

	p := rf.newPlan()
	scfg := solver.Config{Seed: 1, TimeLimitSeconds: 30, Policy: svc.Engine.Profile.Limits}
	solveCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if _, err := svc.Engine.Solve(solveCtx, p, rf.solverInput(), scfg); err != nil {
		return err
	}

	rc := repair.Context{
		Plan:    p,
		Tours:   model.NewTourSet(rf.Tours),
		Drivers: rf.Drivers,
		Pins:    model.NewPinSet(rf.Pins),
		Limits:  svc.Engine.Profile.Limits,
	}
	out, err := svc.Engine.Repair(ctx, rc, inc, actionID)
	if err != nil {
		return err
	}
	if out == nil {
		fmt.Println("incident touches no assigned slots; nothing to repair")
		return nil
	}
	return printJSON(out)
}

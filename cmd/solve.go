package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/kilianp07/rosterd/app"
	"github.com/kilianp07/rosterd/config"
	"github.com/kilianp07/rosterd/core/audit"
	"github.com/kilianp07/rosterd/core/solver"
)

var (
	solveRoster string
	solveSeed   int64
	solveLimit  int
)

var solveCmd = &cobra.Command{
	Use:   "solve",
	Short: "Solve a roster file into an audited plan version",
	RunE:  runSolve,
}

func init() {
	solveCmd.Flags().StringVar(&solveRoster, "roster", "roster.json", "roster input file")
	solveCmd.Flags().Int64Var(&solveSeed, "seed", 1, "solver seed")
	solveCmd.Flags().IntVar(&solveLimit, "time-limit", 30, "solver time limit in seconds")
	rootCmd.AddCommand(solveCmd)
}

func runSolve(cmd *cobra.Command, args []string) error {
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

	rf, err := loadRoster(solveRoster)
	if err != nil {
		return err
	}
	p := rf.newPlan()
	scfg := solver.Config{Seed: solveSeed, TimeLimitSeconds: solveLimit, Policy: svc.Engine.Profile.Limits}
	solveCtx, cancel := context.WithTimeout(ctx, time.Duration(solveLimit)*time.Second)
	defer cancel()

	results, err := svc.Engine.Solve(solveCtx, p, rf.solverInput(), scfg)
	if err != nil {
		return err
	}
	passed, failed := audit.Counts(results)
	return printJSON(map[string]any{
		"plan_id":            p.ID,
		"plan_state":         p.State,
		"assignments":        len(p.Assignments),
		"input_hash":         p.InputHash,
		"solver_config_hash": p.SolverConfigHash,
		"output_hash":        p.OutputHash,
		"audit_passed":       passed,
		"audit_failed":       failed,
	})
}

package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/kilianp07/rosterd/app"
	"github.com/kilianp07/rosterd/config"
	"github.com/kilianp07/rosterd/core/model"
)

var (
	auditPlanID string
	auditRoster string
)

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Re-run all compliance checks against a stored plan",
	RunE:  runAudit,
}

func init() {
	auditCmd.Flags().StringVar(&auditPlanID, "plan", "", "plan version id")
	auditCmd.Flags().StringVar(&auditRoster, "roster", "roster.json", "roster input file")
	if err := auditCmd.MarkFlagRequired("plan"); err != nil {
		panic(err)
	}
	rootCmd.AddCommand(auditCmd)
}

func runAudit(cmd *cobra.Command, args []string) error {
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

	rf, err := loadRoster(auditRoster)
	if err != nil {
		return err
	}
	p, err := svc.Engine.Store().GetPlan(ctx, auditPlanID)
	if err != nil {
		return err
	}
	// A fresh audit replaces the stored verdict wholesale.
	p.State = model.PlanSolved
	results, err := svc.Engine.Audit(ctx, &p, model.NewTourSet(rf.Tours))
	if err != nil {
		return err
	}
	return printJSON(results)
}

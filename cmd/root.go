package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/kilianp07/rosterd/app"
	"github.com/kilianp07/rosterd/config"
	"github.com/kilianp07/rosterd/core/model"
	"github.com/kilianp07/rosterd/core/solver"
	"github.com/kilianp07/rosterd/infra/logger"
)

var (
	cfgPath    string
	rosterPath string
)

var rootCmd = &cobra.Command{
	Use:   "rosterd",
	Short: "Roster compliance and repair service",
	RunE:  run,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "config.yaml", "configuration file")
	rootCmd.Flags().StringVar(&rosterPath, "roster", "", "roster file to solve and attach at startup")
}

// Execute runs the CLI.
func Execute() error { return rootCmd.Execute() }

func run(cmd *cobra.Command, args []string) error {
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
	defer func() {
		if err := svc.Close(); err != nil {
			logger.New("main").Errorf("service close: %v", err)
		}
	}()

	if rosterPath != "" {
		rf, err := loadRoster(rosterPath)
		if err != nil {
			return err
		}
		p := rf.newPlan()
		in := rf.solverInput()
		cfg := solver.Config{Seed: 1, TimeLimitSeconds: 30, Policy: svc.Engine.Profile.Limits}
		if _, err := svc.Engine.Solve(ctx, p, in, cfg); err != nil {
			return fmt.Errorf("initial solve: %w", err)
		}
		svc.Attach(p, model.NewTourSet(rf.Tours), rf.Drivers, model.NewPinSet(rf.Pins))
	}

	err = svc.Run(ctx)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

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
	"github.com/kilianp07/rosterd/infra/store"
	"github.com/kilianp07/rosterd/pkg/export"
)

var (
	exportSnapshot string
	exportEvidence string
	exportFormat   string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export a snapshot or a plan's audit evidence",
	RunE:  runExport,
}

func init() {
	exportCmd.Flags().StringVar(&exportSnapshot, "snapshot", "", "snapshot id to export")
	exportCmd.Flags().StringVar(&exportEvidence, "evidence", "", "plan id whose evidence records to export")
	exportCmd.Flags().StringVar(&exportFormat, "format", "json", "output format: json or csv")
	rootCmd.AddCommand(exportCmd)
}

func runExport(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if (exportSnapshot == "") == (exportEvidence == "") {
		return fmt.Errorf("exactly one of --snapshot and --evidence is required")
	}
	if exportFormat != "json" && exportFormat != "csv" {
		return fmt.Errorf("unknown format %q", exportFormat)
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	svc, err := app.New(cfg)
	if err != nil {
		return err
	}
	defer svc.Close()

	if exportSnapshot != "" {
		snap, err := svc.Engine.Store().GetSnapshot(ctx, exportSnapshot)
		if err != nil {
			return err
		}
		if exportFormat == "csv" {
			return export.WriteSnapshotCSV(os.Stdout, snap)
		}
		return export.WriteSnapshotJSON(os.Stdout, snap)
	}

	records, err := svc.Engine.Store().QueryEvidence(ctx, store.EvidenceQuery{PlanID: exportEvidence})
	if err != nil {
		return err
	}
	if exportFormat == "csv" {
		return export.WriteEvidenceCSV(os.Stdout, records)
	}
	return export.WriteEvidenceJSON(os.Stdout, records)
}

package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/snapcheck/internal/export"
	repo "github.com/joseph-ayodele/snapcheck/internal/repository"
	"github.com/joseph-ayodele/snapcheck/internal/server"
)

func newExportCommand() *cobra.Command {
	var activityID, out string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write an activity's graded submissions to an XLSX file",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			logger := slog.Default()
			db, err := server.ConnectDB(cmd.Context(), cfg.Database, logger)
			if err != nil {
				return err
			}
			defer db.Close()

			activities := repo.NewActivityRepository(db, logger)
			svc := export.NewService(activities, repo.NewSubmissionRepository(db, logger), logger)
			if out == "" {
				a, err := activities.GetByID(cmd.Context(), activityID)
				if err != nil {
					return err
				}
				out = export.Filename(a.Title, a.ID)
			}
			return writeExport(cmd, svc, activityID, out)
		},
	}
	cmd.Flags().StringVar(&activityID, "activity", "", "Activity ID (required)")
	cmd.Flags().StringVar(&out, "out", "", "Output XLSX path (defaults to grades-<title>.xlsx)")
	_ = cmd.MarkFlagRequired("activity")
	return cmd
}

func writeExport(cmd *cobra.Command, svc *export.Service, activityID, out string) error {
	data, err := svc.ExportGradesXLSX(cmd.Context(), activityID)
	if err != nil {
		return err
	}
	if err := os.WriteFile(out, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", out, err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "wrote %s (%d bytes)\n", out, len(data))
	return nil
}

package main

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/snapcheck/internal/server"
)

func newDBCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "db",
		Short: "Database maintenance",
	}

	var timeout time.Duration
	health := &cobra.Command{
		Use:   "health",
		Short: "Ping the database and report pool statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			logger := slog.Default()
			// ConnectDB pings and migrates, so a successful open is already healthy.
			db, err := server.ConnectDB(cmd.Context(), cfg.Database, logger)
			if err != nil {
				return fmt.Errorf("DB health: FAIL (%w)", err)
			}
			defer db.Close()
			if err := server.PingDB(cmd.Context(), db, logger, timeout); err != nil {
				return fmt.Errorf("DB health: FAIL (%w)", err)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "DB health: OK (%s)\n", db.Dialect())
			if total, idle, ok := db.Stats(); ok {
				fmt.Fprintf(out, "pool: %d conns, %d idle\n", total, idle)
			}
			return nil
		},
	}
	health.Flags().DurationVar(&timeout, "timeout", time.Second, "Ping timeout")

	migrate := &cobra.Command{
		Use:   "migrate",
		Short: "Create any missing tables",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			db, err := server.ConnectDB(cmd.Context(), cfg.Database, slog.Default())
			if err != nil {
				return err
			}
			db.Close()
			fmt.Fprintln(cmd.OutOrStdout(), "schema up to date")
			return nil
		},
	}

	cmd.AddCommand(health, migrate)
	return cmd
}

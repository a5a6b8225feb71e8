// Package main provides the snapcheck command line tool: local batch scans,
// grade exports, roster seeding and database maintenance.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/snapcheck/internal/common"
)

// Global flags.
var (
	debug bool
	inmem bool
)

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "snapcheck",
		Short: "Scan, grade and export handwritten essays",
		Long: `snapcheck runs essay batches outside the gRPC daemon.

Configuration is read from the YAML file named by SNAPCHECK_CONFIG and
environment overrides (DB_URL, DB_DRIVER, OPENAI_API_KEY, LLM_PROVIDER, ...).

COMMON WORKFLOWS:
  Try it locally:  snapcheck scan --inmem --seed roster.yaml --class c1 --activity a1 --dir ./scans
  Grade for real:  snapcheck scan --class c1 --activity a1 --dir ./scans --commit
  Spreadsheet:     snapcheck export --activity a1 --out grades.xlsx`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := slog.LevelInfo
			if debug {
				level = slog.LevelDebug
			}
			slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
		},
	}
	root.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug logging")
	root.PersistentFlags().BoolVar(&inmem, "inmem", false, "Use a private in-memory SQLite database")

	root.AddCommand(
		newScanCommand(),
		newExportCommand(),
		newSeedCommand(),
		newDBCommand(),
	)
	return root
}

func loadConfig() (*common.Config, error) {
	cfg, err := common.LoadConfig()
	if err != nil {
		return nil, err
	}
	if inmem {
		cfg.Database.Driver, cfg.Database.DSN = "sqlite", ""
	}
	return cfg, nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCommand().ExecuteContext(ctx); err != nil {
		if _, werr := fmt.Fprintf(os.Stderr, "Error: %v\n", err); werr != nil {
			fmt.Printf("Error: %v\n", err)
		}
		os.Exit(1)
	}
}

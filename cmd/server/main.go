package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/rpattn/testbed-analytics/internal/config"
	"github.com/rpattn/testbed-analytics/internal/db"
	"github.com/rpattn/testbed-analytics/internal/ioc"
	"github.com/rpattn/testbed-analytics/internal/logging"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var configDir string
	root := &cobra.Command{
		Use:           "analytics-server",
		Short:         "Testbed allocation analytics API",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&configDir, "config-dir", "configs", "directory containing config.yaml")

	root.AddCommand(newServeCommand(&configDir), newMigrateCommand(&configDir))
	return root
}

func newServeCommand(configDir *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the analytics HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			app, cleanup, err := InitApp(ctx, ioc.ConfigPath(*configDir))
			if err != nil {
				return fmt.Errorf("init app: %w", err)
			}
			defer cleanup()

			if err := app.Run(ctx); err != nil {
				app.Logger.Error("http server stopped", zap.Error(err))
				return err
			}
			return nil
		},
	}
}

func newMigrateCommand(configDir *string) *cobra.Command {
	return &cobra.Command{
		Use:       "migrate up|down",
		Short:     "Apply or roll back the inventory schema",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"up", "down"},
		RunE: func(_ *cobra.Command, args []string) error {
			var direction db.MigrationDirection
			switch args[0] {
			case "up":
				direction = db.MigrateUp
			case "down":
				direction = db.MigrateDown
			default:
				return fmt.Errorf("unknown migration direction %q", args[0])
			}

			cfg, err := config.Load(*configDir)
			if err != nil {
				return err
			}
			logger, err := logging.New(cfg.Log.Level, cfg.Log.Encoding)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()
			return db.RunMigrations(cfg.Database, direction, logger)
		},
	}
}

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"tollgate-hq/tollgate/pkg/config"
	"tollgate-hq/tollgate/pkg/meter"
	"tollgate-hq/tollgate/pkg/meter/retention"
	"tollgate-hq/tollgate/pkg/meter/storage"
	"tollgate-hq/tollgate/pkg/telemetry/logging"
)

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Prune aged usage records per the retention policy",
	Long: `Run one retention sweep against the configured usage database.

Records older than retention.record_retention_days are deleted. The
configuration must use the sqlite storage backend; in-memory state
belongs to the embedding process and is swept there on the configured
schedule.

Examples:
  tollgate sweep
  tollgate sweep --config /etc/tollgate/tollgate.yaml`,
	RunE: runSweep,
}

func init() {
	rootCmd.AddCommand(sweepCmd)
}

func runSweep(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfigWithEnvOverrides(cfgFile)
	if err != nil {
		return err
	}

	logLevel := cfg.Telemetry.Logging.Level
	if verbose {
		logLevel = "debug"
	}
	if _, err := logging.Setup(logging.Config{
		Level:  logLevel,
		Format: cfg.Telemetry.Logging.Format,
	}); err != nil {
		return err
	}

	if cfg.Storage.Backend != "sqlite" {
		return fmt.Errorf("sweep requires the sqlite storage backend, config uses %q", cfg.Storage.Backend)
	}

	store, err := storage.NewSQLiteStore(cfg.Storage.Path)
	if err != nil {
		return fmt.Errorf("open usage database: %w", err)
	}
	defer store.Close()

	engine, err := meter.New(meter.Options{
		Config: cfg.MeterConfig(),
		Store:  store,
	})
	if err != nil {
		return err
	}

	sweeper := retention.NewSweeper(engine, &retention.Config{
		RecordRetentionDays: cfg.Retention.RecordRetentionDays,
		AlertRetentionDays:  cfg.Retention.AlertRetentionDays,
	})

	removed, err := sweeper.Sweep(cmd.Context())
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Sweep complete: %d record(s) removed\n", removed)
	return nil
}

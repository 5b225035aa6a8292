package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"jobScope/internal/config"
	"jobScope/internal/storage/postgres"
)

func runMigrate(cmd *cobra.Command, args []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadMigrate(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if err := required("pg dsn", cfg.PGDSN); err != nil {
		return err
	}

	switch args[0] {
	case "up":
		if err := postgres.MigrateUp(cfg.PGDSN); err != nil {
			return err
		}
	case "down":
		if err := postgres.MigrateDown(cfg.PGDSN); err != nil {
			return err
		}
	case "version":
	default:
		return fmt.Errorf("unknown migrate action %q", args[0])
	}

	version, dirty, err := postgres.MigrationVersion(cfg.PGDSN)
	if err != nil {
		return err
	}
	logger.Info("schema version",
		zap.String("action", args[0]),
		zap.Uint("version", version),
		zap.Bool("dirty", dirty),
	)
	return nil
}

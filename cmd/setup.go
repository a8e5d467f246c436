package main

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/likedb/internal/shared"
)

// Setup creates the config file when missing, then initializes the database and runs migrations.
func (r *Runner) Setup(ctx context.Context, cmd *cli.Command) error {
	if _, err := os.Stat(r.configPath); err != nil {
		r.logger.Info("config file not found, creating from template", "path", r.configPath)
		if err := shared.CreateConfigFile(r.configPath); err != nil {
			return fmt.Errorf("failed to create config file: %w", err)
		}
		r.writePlain("%s\n", r.palette.OK("Config file created: "+r.configPath))
	}

	cfg := r.cfg().Database
	r.logger.Info("initializing database", "path", cfg.Path)

	db, err := shared.NewDatabase(cfg.Path)
	if err != nil {
		return err
	}
	defer db.Close()

	shared.ConfigureDatabase(db, cfg.MaxOpenConns, cfg.MaxIdleConns)

	r.logger.Info("running database migrations")
	applied, err := shared.RunMigrations(ctx, db)
	if err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	r.logger.Infof("setup complete for database: %v", cfg.Path)
	r.writePlain("%s\n", r.palette.OK(fmt.Sprintf("Database ready: %s (%d migrations applied)", cfg.Path, len(applied))))
	r.writePlainln("Next steps:")
	r.writePlain("1. Set YA_TOKEN in .env or [source] token in %s\n", r.configPath)
	r.writePlain("2. Run 'likedb run' to extract and load your liked tracks\n")
	return nil
}

// SetupRollback rolls back the most recent migration.
func (r *Runner) SetupRollback(ctx context.Context, cmd *cli.Command) error {
	cfg := r.cfg().Database

	db, err := shared.NewDatabase(cfg.Path)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := shared.RollbackMigration(ctx, db); err != nil {
		return fmt.Errorf("failed to roll back migration: %w", err)
	}

	r.writePlain("%s\n", r.palette.OK("Rolled back the latest migration"))
	return nil
}

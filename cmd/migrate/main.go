package main

import (
	"context"
	"fmt"
	"os"

	"dojo/internal/bootstrap"
	"dojo/internal/clock"
	"dojo/internal/config"
	"dojo/internal/database"
	"dojo/internal/logger"
	"dojo/internal/services"
)

func main() {
	logger.Init(os.Getenv("ENV"), os.Getenv("LOG_LEVEL"))
	defer logger.Sync()

	if err := run(); err != nil {
		logger.Get().Fatalf("Migration error: %v", err)
	}
}

func run() error {
	if len(os.Args) < 2 {
		return fmt.Errorf("usage: migrate <up|version|rebuild|verify>")
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	ctx := context.Background()
	command := os.Args[1]

	switch command {
	case "up":
		engine, err := bootstrap.Open(ctx, cfg, clock.System{})
		if err != nil {
			return fmt.Errorf("migration up failed: %w", err)
		}
		defer engine.Close()

		if engine.Migrated {
			logger.Get().Info("Migrations applied successfully")
		} else {
			logger.Get().Info("No pending migrations")
		}

	case "version":
		mgr, err := database.NewManager(cfg.Database)
		if err != nil {
			return err
		}
		defer mgr.Close()

		version, dirty, err := mgr.MigrationVersion()
		if err != nil {
			return fmt.Errorf("failed to get version: %w", err)
		}
		logger.Get().Infof("Version: %d, Dirty: %v", version, dirty)

	case "rebuild", "verify":
		engine, err := bootstrap.Open(ctx, cfg, clock.System{})
		if err != nil {
			return err
		}
		defer engine.Close()

		var report *services.CacheReport
		if command == "rebuild" {
			report, err = engine.Services.Cache.Rebuild(ctx, services.RebuildOptions{})
		} else {
			report, err = engine.Services.Cache.Verify(ctx)
		}
		if err != nil {
			return fmt.Errorf("cache %s failed: %w", command, err)
		}
		logger.Get().Infow("Cache "+command+" finished",
			"accounts_checked", report.AccountsChecked,
			"category_months_checked", report.CategoryMonthsChecked,
			"account_drift", len(report.AccountDrift),
			"category_drift", len(report.CategoryDrift),
		)
		if command == "verify" && !report.Clean() {
			return fmt.Errorf("cache drift found")
		}

	default:
		return fmt.Errorf("unknown command: %s (use up, version, rebuild or verify)", command)
	}

	return nil
}

// Package bootstrap opens a ledger store and brings it to a usable state.
package bootstrap

import (
	"context"
	"fmt"

	"dojo/internal/clock"
	"dojo/internal/config"
	"dojo/internal/database"
	"dojo/internal/logger"
	"dojo/internal/services"
)

// Engine is an opened, migrated and seeded ledger.
type Engine struct {
	Manager  *database.Manager
	Writer   *database.Writer
	Services *services.Registry
	Clock    clock.Clock
	Currency string

	// Migrated is true when this open applied at least one migration.
	Migrated bool
}

// Open connects to the configured store, checks its integrity, applies
// pending migrations and seeds the system categories. Caches are rebuilt from
// the ledger whenever the schema version changed. Any failure closes the
// store and is returned.
func Open(ctx context.Context, cfg *config.Config, clk clock.Clock) (*Engine, error) {
	log := logger.Get()

	mgr, err := database.NewManager(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to open ledger store: %w", err)
	}

	engine, err := prepare(ctx, mgr, cfg, clk)
	if err != nil {
		if closeErr := mgr.Close(); closeErr != nil {
			log.Warnw("Failed to close ledger store", "error", closeErr)
		}
		return nil, err
	}

	log.Infow("Ledger store ready",
		"driver", mgr.Driver(),
		"migrated", engine.Migrated,
	)
	return engine, nil
}

func prepare(ctx context.Context, mgr *database.Manager, cfg *config.Config, clk clock.Clock) (*Engine, error) {
	if err := mgr.CheckIntegrity(ctx); err != nil {
		return nil, err
	}

	migrated, err := mgr.RunMigrations()
	if err != nil {
		return nil, fmt.Errorf("failed to run database migrations: %w", err)
	}

	w := database.NewWriter(mgr.DB(), cfg.LockTimeout)
	reg := services.NewRegistry(w, clk, services.Options{
		MaxFutureDays:   cfg.MaxFutureDays,
		DefaultCurrency: cfg.DefaultCurrency,
	})

	if err := reg.Categories.SeedSystemCategories(ctx); err != nil {
		return nil, fmt.Errorf("failed to seed system categories: %w", err)
	}

	if migrated {
		report, err := reg.Cache.Rebuild(ctx, services.RebuildOptions{})
		if err != nil {
			return nil, fmt.Errorf("failed to rebuild caches after migration: %w", err)
		}
		logger.Get().Infow("Rebuilt caches after schema change",
			"accounts", report.AccountsChecked,
			"category_months", report.CategoryMonthsChecked,
		)
	}

	return &Engine{
		Manager:  mgr,
		Writer:   w,
		Services: reg,
		Clock:    clk,
		Currency: cfg.DefaultCurrency,
		Migrated: migrated,
	}, nil
}

// Close releases the store.
func (e *Engine) Close() error {
	return e.Manager.Close()
}

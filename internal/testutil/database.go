// Package testutil provides test helpers for setting up in-memory databases,
// creating fixtures, and making assertions.
package testutil

import (
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"dojo/internal/clock"
	"dojo/internal/database"
	"dojo/internal/logger"
)

var dbCounter atomic.Int64

// SetupTestDB creates a private in-memory SQLite database with the real
// migrations applied and the system categories seeded. Every call gets its
// own database so tests can run in parallel.
func SetupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	logger.Init("test", "")

	dsn := fmt.Sprintf("file:dojo_test_%d?mode=memory&cache=shared&_foreign_keys=1", dbCounter.Add(1))
	cfg := database.GormConfig()
	cfg.Logger = gormlogger.Default.LogMode(gormlogger.Silent)

	db, err := gorm.Open(sqlite.Open(dsn), cfg)
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed to get underlying DB: %v", err)
	}
	// A single connection keeps the shared-cache database alive and makes
	// writes strictly sequential.
	sqlDB.SetMaxOpenConns(1)

	if _, err := database.MigrateSQLite(sqlDB); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}
	if err := database.SeedSystemCategories(db, TestEpoch); err != nil {
		t.Fatalf("failed to seed system categories: %v", err)
	}

	return db
}

// TeardownTestDB closes the underlying database connection.
func TeardownTestDB(t *testing.T, db *gorm.DB) {
	t.Helper()

	sqlDB, err := db.DB()
	if err != nil {
		t.Errorf("failed to get underlying DB for teardown: %v", err)
		return
	}
	if err := sqlDB.Close(); err != nil {
		t.Errorf("failed to close test database: %v", err)
	}
}

// TestEpoch is the first reading of clocks made by NewTestClock.
var TestEpoch = time.Date(2025, time.January, 15, 9, 0, 0, 0, time.UTC)

// NewTestClock returns a deterministic clock starting at TestEpoch that
// advances one second per reading.
func NewTestClock() *clock.Ticking {
	return clock.NewTicking(TestEpoch, time.Second)
}

// NewTestWriter wraps db in a writer with a short lock timeout.
func NewTestWriter(db *gorm.DB) *database.Writer {
	return database.NewWriter(db, 2*time.Second)
}

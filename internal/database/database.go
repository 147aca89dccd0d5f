package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"dojo/internal/logger"
	"dojo/migrations"
)

// Manager handles database operations
type Manager struct {
	db     *gorm.DB
	config Config
}

// GormConfig is shared by every connection the engine opens. Constraint
// violations are translated to gorm.ErrDuplicatedKey and friends.
func GormConfig() *gorm.Config {
	return &gorm.Config{
		TranslateError: true,
		NowFunc:        func() time.Time { return time.Now().UTC().Truncate(time.Microsecond) },
	}
}

// NewManager creates a new database manager
func NewManager(config Config) (*Manager, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	var dialector gorm.Dialector
	if config.Driver == DriverPostgres {
		dialector = postgres.New(postgres.Config{
			DSN:                  config.DSN(),
			PreferSimpleProtocol: true,
		})
	} else {
		dialector = sqlite.Open(config.DSN())
	}

	db, err := gorm.Open(dialector, GormConfig())
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying DB: %w", err)
	}
	if config.Driver == DriverPostgres {
		sqlDB.SetMaxIdleConns(10)
		sqlDB.SetMaxOpenConns(100)
	} else {
		sqlDB.SetMaxIdleConns(4)
		sqlDB.SetMaxOpenConns(4)
	}
	sqlDB.SetConnMaxLifetime(time.Hour)

	return &Manager{db: db, config: config}, nil
}

// CheckIntegrity runs a quick consistency check before the store is used.
func (m *Manager) CheckIntegrity(ctx context.Context) error {
	if m.config.Driver == DriverPostgres {
		return m.db.WithContext(ctx).Exec("SELECT 1").Error
	}

	var result string
	if err := m.db.WithContext(ctx).Raw("PRAGMA quick_check").Scan(&result).Error; err != nil {
		return fmt.Errorf("integrity check failed: %w", err)
	}
	if result != "ok" {
		return fmt.Errorf("integrity check failed: %s", result)
	}
	return nil
}

// RunMigrations applies pending SQL migrations and reports whether the schema
// version changed.
func (m *Manager) RunMigrations() (bool, error) {
	logger.Get().Info("Running database migrations...")

	src, err := iofs.New(migrations.FS, ".")
	if err != nil {
		return false, fmt.Errorf("failed to open embedded migrations: %w", err)
	}

	mig, err := migrate.NewWithSourceInstance("iofs", src, m.config.MigrateURL())
	if err != nil {
		return false, fmt.Errorf("failed to create migrate instance: %w", err)
	}
	defer func() {
		srcErr, dbErr := mig.Close()
		if srcErr != nil {
			logger.Get().Warnf("migrate source close error: %v", srcErr)
		}
		if dbErr != nil {
			logger.Get().Warnf("migrate database close error: %v", dbErr)
		}
	}()

	applied, err := up(mig)
	if err != nil {
		return false, err
	}

	logger.Get().Infow("Database migrations completed successfully", "applied", applied)
	return applied, nil
}

// MigrationVersion reports the current schema version.
func (m *Manager) MigrationVersion() (uint, bool, error) {
	src, err := iofs.New(migrations.FS, ".")
	if err != nil {
		return 0, false, fmt.Errorf("failed to open embedded migrations: %w", err)
	}
	mig, err := migrate.NewWithSourceInstance("iofs", src, m.config.MigrateURL())
	if err != nil {
		return 0, false, fmt.Errorf("failed to create migrate instance: %w", err)
	}
	defer mig.Close()

	version, dirty, err := mig.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, nil
	}
	return version, dirty, err
}

// MigrateSQLite applies the embedded migrations over an already open SQLite
// handle, which stays owned by the caller. Used for in-memory stores.
func MigrateSQLite(sqlDB *sql.DB) (bool, error) {
	src, err := iofs.New(migrations.FS, ".")
	if err != nil {
		return false, fmt.Errorf("failed to open embedded migrations: %w", err)
	}
	driver, err := migratesqlite.WithInstance(sqlDB, &migratesqlite.Config{})
	if err != nil {
		return false, fmt.Errorf("failed to create migrate driver: %w", err)
	}
	// Closing the migrate instance would close sqlDB as well.
	mig, err := migrate.NewWithInstance("iofs", src, "sqlite3", driver)
	if err != nil {
		return false, fmt.Errorf("failed to create migrate instance: %w", err)
	}
	return up(mig)
}

func up(mig *migrate.Migrate) (bool, error) {
	before, _, err := mig.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return false, fmt.Errorf("failed to read schema version: %w", err)
	}

	if err := mig.Up(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			return false, nil
		}
		return false, fmt.Errorf("migration failed: %w", err)
	}

	after, dirty, err := mig.Version()
	if err != nil {
		return false, fmt.Errorf("failed to read schema version: %w", err)
	}
	if dirty {
		return false, fmt.Errorf("schema version %d is dirty", after)
	}
	return after != before, nil
}

// DB returns the underlying GORM database instance
func (m *Manager) DB() *gorm.DB {
	return m.db
}

// Driver returns the configured storage driver name.
func (m *Manager) Driver() string {
	return m.config.Driver
}

// Close releases the connection pool.
func (m *Manager) Close() error {
	sqlDB, err := m.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

package config

import (
	"errors"
	"io/fs"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"dojo/internal/database"
)

// Config holds application configuration
type Config struct {
	// Runtime
	Env      string
	LogLevel string

	// Server
	Port string

	// Database
	Database database.Config

	// Ledger
	LockTimeout     time.Duration
	MaxFutureDays   int
	DefaultCurrency string
	AllowTestDate   bool
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// A missing .env is normal; the CLI runs from arbitrary directories.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Printf("Warning: could not read .env: %v\n", err)
	}

	config := &Config{
		Env:      getEnv("ENV", "development"),
		LogLevel: getEnv("LOG_LEVEL", ""),

		Port: getEnv("PORT", "8080"),

		Database: database.Config{
			Driver:   getEnv("DB_DRIVER", database.DriverSQLite),
			Path:     getEnv("DB_PATH", "dojo.db"),
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "dojo"),
			Password: getEnv("DB_PASSWORD", "dojo"),
			DBName:   getEnv("DB_NAME", "dojo"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},

		DefaultCurrency: getEnv("DEFAULT_CURRENCY", "USD"),
		AllowTestDate:   getEnvBool("ALLOW_TEST_DATE", false),
	}

	lockStr := getEnv("LOCK_TIMEOUT", "5s")
	lockDur, err := time.ParseDuration(lockStr)
	if err != nil {
		log.Printf("Warning: invalid LOCK_TIMEOUT value '%s', falling back to 5s\n", lockStr)
		lockDur = 5 * time.Second
	}
	config.LockTimeout = lockDur

	daysStr := getEnv("MAX_FUTURE_DAYS", "5")
	days, err := strconv.Atoi(daysStr)
	if err != nil || days < 0 {
		log.Printf("Warning: invalid MAX_FUTURE_DAYS value '%s', falling back to 5\n", daysStr)
		days = 5
	}
	config.MaxFutureDays = days

	return config, nil
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	value, err := strconv.ParseBool(getEnv(key, strconv.FormatBool(defaultValue)))
	if err != nil {
		return defaultValue
	}
	return value
}

package main

import (
	"context"
	"fmt"

	"dojo/internal/bootstrap"
	"dojo/internal/clock"
	"dojo/internal/config"
	"dojo/internal/handlers"
	"dojo/internal/logger"
	"dojo/internal/validator"

	_ "dojo/internal/docs" // Import swagger docs
)

// @title           Dojo API
// @version         1.0
// @description     Dojo is an envelope-budgeting ledger that keeps the full edit history of every transaction and allocation.

// @host      localhost:8080
// @BasePath  /api/v1

func main() {
	appConfig, err := config.Load()
	if err != nil {
		logger.Init("development", "")
		logger.Get().Fatalf("Failed to load configuration: %v", err)
	}

	logger.Init(appConfig.Env, appConfig.LogLevel)
	defer logger.Sync()

	if err := run(appConfig); err != nil {
		logger.Get().Fatalf("Fatal error: %v", err)
	}
}

func run(appConfig *config.Config) error {
	log := logger.Get()

	validator.Register()

	engine, err := bootstrap.Open(context.Background(), appConfig, clock.System{})
	if err != nil {
		return fmt.Errorf("failed to open ledger: %w", err)
	}
	defer engine.Close()

	if appConfig.AllowTestDate {
		log.Warn("X-Test-Date header is honoured; do not enable this in production")
	}

	router := handlers.NewRouter(engine.Services, engine.Clock, handlers.RouterOptions{
		AllowTestDate: appConfig.AllowTestDate,
	})

	log.Infof("Starting Dojo ledger server on port %s", appConfig.Port)
	log.Infof("Swagger documentation available at http://localhost:%s/swagger/index.html", appConfig.Port)
	return router.Run(":" + appConfig.Port)
}

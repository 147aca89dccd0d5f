package main

import (
	"context"
	"flag"
	"os"
	"path"

	"github.com/google/subcommands"

	"dojo/internal/bootstrap"
	"dojo/internal/cli"
	"dojo/internal/clock"
	"dojo/internal/config"
	"dojo/internal/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.Init("development", "")
		logger.Get().Fatalf("Failed to load configuration: %v", err)
	}

	// Keep the terminal for command output unless asked otherwise.
	level := cfg.LogLevel
	if level == "" {
		level = "warn"
	}
	logger.Init(cfg.Env, level)
	defer logger.Sync()

	commander := subcommands.NewCommander(flag.CommandLine, path.Base(os.Args[0]))
	cli.Register(commander, &cli.App{
		Open: func(ctx context.Context) (*bootstrap.Engine, error) {
			return bootstrap.Open(ctx, cfg, clock.System{})
		},
		Stdout: os.Stdout,
		Stderr: os.Stderr,
	})

	flag.Parse()
	status := commander.Execute(context.Background())
	logger.Sync()
	os.Exit(int(status))
}

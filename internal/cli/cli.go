// Package cli implements the dojo operator commands on top of
// github.com/google/subcommands. Every command opens the ledger, does one
// thing and closes it again.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/google/subcommands"

	"dojo/internal/bootstrap"
	"dojo/internal/clock"
	"dojo/internal/dates"
	apperrors "dojo/internal/errors"
)

// Opener opens the ledger for one command invocation.
type Opener func(ctx context.Context) (*bootstrap.Engine, error)

// App carries what every command needs.
type App struct {
	Open   Opener
	Stdout io.Writer
	Stderr io.Writer
}

// Register adds the ledger commands to c.
func Register(c *subcommands.Commander, app *App) {
	c.Register(c.HelpCommand(), "")
	c.Register(c.FlagsCommand(), "")
	c.Register(c.CommandsCommand(), "")

	c.Register(&migrateCmd{app: app}, "maintenance")
	c.Register(&rebuildCacheCmd{app: app}, "maintenance")

	c.Register(&openAccountCmd{app: app}, "accounts")
	c.Register(&accountsCmd{app: app}, "accounts")
	c.Register(&balanceCmd{app: app}, "accounts")
	c.Register(&reconcileCmd{app: app}, "accounts")
	c.Register(&snapshotCmd{app: app}, "accounts")

	c.Register(&addTxCmd{app: app}, "ledger")
	c.Register(&transferCmd{app: app}, "ledger")

	c.Register(&addCategoryCmd{app: app}, "budget")
	c.Register(&allocateCmd{app: app}, "budget")
	c.Register(&rtaCmd{app: app}, "budget")
}

// run opens the ledger, hands it to fn and maps fn's error to an exit status.
func (a *App) run(ctx context.Context, fn func(e *bootstrap.Engine) error) subcommands.ExitStatus {
	engine, err := a.Open(ctx)
	if err != nil {
		fmt.Fprintf(a.Stderr, "Error opening ledger: %v\n", err)
		return subcommands.ExitFailure
	}
	defer engine.Close()

	if err := fn(engine); err != nil {
		a.printError(err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

func (a *App) printError(err error) {
	var appErr *apperrors.AppError
	if !errors.As(err, &appErr) {
		fmt.Fprintf(a.Stderr, "Error: %v\n", err)
		return
	}

	fmt.Fprintf(a.Stderr, "Error: %s: %s\n", appErr.Code, appErr.Message)
	keys := make([]string, 0, len(appErr.Details))
	for k := range appErr.Details {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(a.Stderr, "  %s: %v\n", k, appErr.Details[k])
	}
}

func (a *App) usageError(msg string) subcommands.ExitStatus {
	fmt.Fprintf(a.Stderr, "Error: %s\n", msg)
	return subcommands.ExitUsageError
}

// optionalDate parses a -date style flag; empty means the ledger's today.
func optionalDate(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	d, err := dates.ParseDate(s)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// monthOrCurrent parses a -month flag, defaulting to the month of today.
func monthOrCurrent(ctx context.Context, e *bootstrap.Engine, s string) (time.Time, error) {
	if s == "" {
		return dates.MonthStart(clock.Today(ctx, e.Clock)), nil
	}
	return dates.ParseMonth(s)
}

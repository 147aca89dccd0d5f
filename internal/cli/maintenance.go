package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"

	"github.com/google/subcommands"

	"dojo/internal/bootstrap"
	"dojo/internal/dates"
	"dojo/internal/services"
)

var errDrift = errors.New("cache drift found")

// --- migrate ---

type migrateCmd struct {
	app *App
}

func (*migrateCmd) Name() string     { return "migrate" }
func (*migrateCmd) Synopsis() string { return "apply pending schema migrations and report the version" }
func (*migrateCmd) Usage() string {
	return `dojo migrate

  Opens the ledger, which applies any pending migration, seeds the system
  categories and rebuilds the caches when the schema changed.
`
}

func (*migrateCmd) SetFlags(*flag.FlagSet) {}

func (c *migrateCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return c.app.run(ctx, func(e *bootstrap.Engine) error {
		version, dirty, err := e.Manager.MigrationVersion()
		if err != nil {
			return err
		}
		if e.Migrated {
			fmt.Fprintf(c.app.Stdout, "applied pending migrations, schema at version %d\n", version)
		} else {
			fmt.Fprintf(c.app.Stdout, "schema up to date at version %d\n", version)
		}
		if dirty {
			fmt.Fprintln(c.app.Stderr, "Warning: schema is marked dirty")
		}
		return nil
	})
}

// --- rebuild-cache ---

type rebuildCacheCmd struct {
	app            *App
	skipAccounts   bool
	skipCategories bool
	verify         bool
}

func (*rebuildCacheCmd) Name() string { return "rebuild-cache" }
func (*rebuildCacheCmd) Synopsis() string {
	return "recompute account balances and category months from the ledger"
}
func (*rebuildCacheCmd) Usage() string {
	return `dojo rebuild-cache [-skip-accounts] [-skip-categories] [-verify]

  Replays every active transaction and allocation and rewrites the cached
  account balances and category month states. With -verify nothing is
  written; the command lists the drift and fails if there is any.
`
}

func (c *rebuildCacheCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&c.skipAccounts, "skip-accounts", false, "Leave cached account balances untouched.")
	f.BoolVar(&c.skipCategories, "skip-categories", false, "Leave cached category month states untouched.")
	f.BoolVar(&c.verify, "verify", false, "Only report drift, do not write.")
}

func (c *rebuildCacheCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.verify && (c.skipAccounts || c.skipCategories) {
		return c.app.usageError("-verify cannot be combined with the skip flags")
	}

	return c.app.run(ctx, func(e *bootstrap.Engine) error {
		if c.verify {
			report, err := e.Services.Cache.Verify(ctx)
			if err != nil {
				return err
			}
			printReport(c.app.Stdout, report)
			if !report.Clean() {
				return errDrift
			}
			return nil
		}

		report, err := e.Services.Cache.Rebuild(ctx, services.RebuildOptions{
			SkipAccounts:   c.skipAccounts,
			SkipCategories: c.skipCategories,
		})
		if err != nil {
			return err
		}
		printReport(c.app.Stdout, report)
		return nil
	})
}

func printReport(w io.Writer, r *services.CacheReport) {
	fmt.Fprintf(w, "checked %d accounts and %d category months\n", r.AccountsChecked, r.CategoryMonthsChecked)
	for _, d := range r.AccountDrift {
		fmt.Fprintf(w, "  account %s: cached %d, ledger %d\n", d.AccountID, d.Cached, d.Expected)
	}
	for _, d := range r.CategoryDrift {
		fmt.Fprintf(w, "  category %s %s: cached available %d, ledger %d\n",
			d.CategoryID, dates.FormatMonth(d.Month), d.Cached.AvailableMinor, d.Expected.AvailableMinor)
	}
	switch {
	case r.Rebuilt:
		fmt.Fprintln(w, "caches rebuilt")
	case r.Clean():
		fmt.Fprintln(w, "no drift")
	}
}

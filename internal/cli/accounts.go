package cli

import (
	"context"
	"flag"
	"fmt"

	"github.com/google/subcommands"

	"dojo/internal/amount"
	"dojo/internal/bootstrap"
	"dojo/internal/clock"
	"dojo/internal/dates"
	"dojo/internal/models"
	"dojo/internal/services"
)

// --- open-account ---

type openAccountCmd struct {
	app      *App
	id       string
	name     string
	class    string
	role     string
	currency string
	opening  string
	openedOn string
}

func (*openAccountCmd) Name() string { return "open-account" }
func (*openAccountCmd) Synopsis() string {
	return "open a new account, optionally with a starting balance"
}
func (*openAccountCmd) Usage() string {
	return `dojo open-account -name <name> [-id <slug>] [-class cash|credit|...] [-role on_budget|tracking] [-currency <ISO>] [-opening <amount>] [-opened-on <date>]

  Cash accounts fund the budget, so their opening balance becomes money to
  assign. Credit accounts get a payment category.
`
}

func (c *openAccountCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.id, "id", "", "Stable account id. Generated when empty.")
	f.StringVar(&c.name, "name", "", "Display name.")
	f.StringVar(&c.class, "class", "cash", "Account class.")
	f.StringVar(&c.role, "role", "", "on_budget or tracking. Derived from the class when empty.")
	f.StringVar(&c.currency, "currency", "", "ISO 4217 code. Defaults to the ledger currency.")
	f.StringVar(&c.opening, "opening", "", "Opening balance, e.g. 1250.00.")
	f.StringVar(&c.openedOn, "opened-on", "", "Date of the opening balance (YYYY-MM-DD).")
}

func (c *openAccountCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.name == "" {
		return c.app.usageError("-name is required")
	}
	openedOn, err := optionalDate(c.openedOn)
	if err != nil {
		return c.app.usageError(err.Error())
	}

	return c.app.run(ctx, func(e *bootstrap.Engine) error {
		currency := c.currency
		if currency == "" {
			currency = e.Currency
		}
		var opening int64
		if c.opening != "" {
			if opening, err = amount.ParseMinor(c.opening, currency); err != nil {
				return err
			}
		}

		account, err := e.Services.Accounts.CreateAccount(ctx, services.AccountInput{
			ID:                  c.id,
			Name:                c.name,
			Class:               models.AccountClass(c.class),
			Role:                models.AccountRole(c.role),
			Currency:            currency,
			OpenedOn:            openedOn,
			OpeningBalanceMinor: opening,
		})
		if err != nil {
			return err
		}
		fmt.Fprintf(c.app.Stdout, "opened %s (%s %s, %s) with %s\n", account.ID, account.Type, account.Class,
			account.Role, amount.Format(account.CurrentBalanceMinor, account.Currency))
		return nil
	})
}

// --- accounts ---

type accountsCmd struct {
	app *App
	all bool
}

func (*accountsCmd) Name() string     { return "accounts" }
func (*accountsCmd) Synopsis() string { return "list accounts with their balances" }
func (*accountsCmd) Usage() string {
	return `dojo accounts [-all]

  Lists active accounts and the net worth. -all includes retired accounts.
`
}

func (c *accountsCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&c.all, "all", false, "Include retired accounts.")
}

func (c *accountsCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return c.app.run(ctx, func(e *bootstrap.Engine) error {
		accounts, err := e.Services.Accounts.ListAccounts(ctx, c.all)
		if err != nil {
			return err
		}
		for _, a := range accounts {
			status := ""
			if !a.IsActive {
				status = " (retired)"
			}
			fmt.Fprintf(c.app.Stdout, "%-20s %-24s %-10s %-10s %16s%s\n",
				a.ID, a.Name, a.Class, a.Role, amount.Format(a.CurrentBalanceMinor, a.Currency), status)
		}

		nw, err := e.Services.Accounts.NetWorth(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(c.app.Stdout, "net worth %s\n", amount.Format(nw.NetWorthMinor, e.Currency))
		return nil
	})
}

// --- balance ---

type balanceCmd struct {
	app     *App
	account string
}

func (*balanceCmd) Name() string     { return "balance" }
func (*balanceCmd) Synopsis() string { return "show an account's current, cleared and pending balance" }
func (*balanceCmd) Usage() string {
	return `dojo balance -account <id>
`
}

func (c *balanceCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.account, "account", "", "Account id.")
}

func (c *balanceCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.account == "" {
		return c.app.usageError("-account is required")
	}

	return c.app.run(ctx, func(e *bootstrap.Engine) error {
		bal, err := e.Services.Accounts.GetAccountBalance(ctx, c.account)
		if err != nil {
			return err
		}
		fmt.Fprintf(c.app.Stdout, "%s: current %s, cleared %s, pending %s\n", bal.AccountID,
			amount.Format(bal.CurrentBalanceMinor, bal.Currency),
			amount.Format(bal.ClearedBalanceMinor, bal.Currency),
			amount.Format(bal.PendingBalanceMinor, bal.Currency))
		return nil
	})
}

// --- reconcile ---

type reconcileCmd struct {
	app       *App
	account   string
	date      string
	statement string
}

func (*reconcileCmd) Name() string     { return "reconcile" }
func (*reconcileCmd) Synopsis() string { return "checkpoint an account against a bank statement" }
func (*reconcileCmd) Usage() string {
	return `dojo reconcile -account <id> -balance <amount> [-date <statement date>]

  Compares the statement balance with the cleared balance and records a
  checkpoint when they match. A mismatch writes nothing.
`
}

func (c *reconcileCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.account, "account", "", "Account id.")
	f.StringVar(&c.statement, "balance", "", "Statement balance, e.g. 842.17.")
	f.StringVar(&c.date, "date", "", "Statement date (YYYY-MM-DD). Defaults to today.")
}

func (c *reconcileCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.account == "" || c.statement == "" {
		return c.app.usageError("-account and -balance are required")
	}
	statementDate, err := optionalDate(c.date)
	if err != nil {
		return c.app.usageError(err.Error())
	}

	return c.app.run(ctx, func(e *bootstrap.Engine) error {
		account, err := e.Services.Accounts.GetAccount(ctx, c.account)
		if err != nil {
			return err
		}
		balance, err := amount.ParseMinor(c.statement, account.Currency)
		if err != nil {
			return err
		}

		in := services.CommitInput{AccountID: account.ID, StatementBalanceMinor: balance}
		if statementDate != nil {
			in.StatementDate = *statementDate
		} else {
			in.StatementDate = clock.Today(ctx, e.Clock)
		}

		rec, err := e.Services.Reconciliations.Commit(ctx, in)
		if err != nil {
			return err
		}
		fmt.Fprintf(c.app.Stdout, "reconciled %s at %s on %s (%s)\n", rec.AccountID,
			amount.Format(rec.StatementBalanceMinor, account.Currency), dates.FormatDate(rec.StatementDate), rec.ID)
		return nil
	})
}

// --- snapshot ---

type snapshotCmd struct {
	app  *App
	days int
}

func (*snapshotCmd) Name() string     { return "snapshot" }
func (*snapshotCmd) Synopsis() string { return "record today's net worth and show its recent history" }
func (*snapshotCmd) Usage() string {
	return `dojo snapshot [-days <n>]

  Records today's net worth from the account balances, replacing an earlier
  snapshot of the same day, then prints the net worth of the last n days.
`
}

func (c *snapshotCmd) SetFlags(f *flag.FlagSet) {
	f.IntVar(&c.days, "days", 0, "Also print this many days of history.")
}

func (c *snapshotCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.days < 0 || c.days > services.MaxHistoryDays {
		return c.app.usageError(fmt.Sprintf("-days must be between 0 and %d", services.MaxHistoryDays))
	}

	return c.app.run(ctx, func(e *bootstrap.Engine) error {
		snapshot, err := e.Services.Snapshots.RecordSnapshot(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(c.app.Stdout, "net worth on %s: %s (assets %s, liabilities %s)\n",
			dates.FormatDate(snapshot.SnapshotDate),
			amount.Format(snapshot.NetWorthMinor, e.Currency),
			amount.Format(snapshot.AssetsMinor, e.Currency),
			amount.Format(snapshot.LiabilitiesMinor, e.Currency))

		if c.days == 0 {
			return nil
		}
		to := snapshot.SnapshotDate
		points, err := e.Services.Snapshots.History(ctx, to.AddDate(0, 0, 1-c.days), to)
		if err != nil {
			return err
		}
		for _, p := range points {
			fmt.Fprintf(c.app.Stdout, "  %s %16s\n", dates.FormatDate(p.Date), amount.Format(p.NetWorthMinor, e.Currency))
		}
		return nil
	})
}

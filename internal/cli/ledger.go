package cli

import (
	"context"
	"flag"
	"fmt"

	"github.com/google/subcommands"

	"dojo/internal/amount"
	"dojo/internal/bootstrap"
	"dojo/internal/dates"
	"dojo/internal/models"
	"dojo/internal/services"
)

// --- add-tx ---

type addTxCmd struct {
	app      *App
	account  string
	category string
	amount   string
	date     string
	memo     string
	cleared  bool
}

func (*addTxCmd) Name() string     { return "add-tx" }
func (*addTxCmd) Synopsis() string { return "record a transaction" }
func (*addTxCmd) Usage() string {
	return `dojo add-tx -account <id> -category <id> -amount <amount> [-date <date>] [-memo <text>] [-cleared]

  Amounts are signed: -45.20 is money leaving the account, 1200 is money
  coming in. Use category available_to_budget for income.
`
}

func (c *addTxCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.account, "account", "", "Account id.")
	f.StringVar(&c.category, "category", "", "Category id.")
	f.StringVar(&c.amount, "amount", "", "Signed amount in the account currency.")
	f.StringVar(&c.date, "date", "", "Transaction date (YYYY-MM-DD). Defaults to today.")
	f.StringVar(&c.memo, "memo", "", "Free text.")
	f.BoolVar(&c.cleared, "cleared", false, "Mark the transaction as cleared.")
}

func (c *addTxCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.account == "" || c.category == "" || c.amount == "" {
		return c.app.usageError("-account, -category and -amount are required")
	}
	date, err := optionalDate(c.date)
	if err != nil {
		return c.app.usageError(err.Error())
	}

	return c.app.run(ctx, func(e *bootstrap.Engine) error {
		account, err := e.Services.Accounts.GetAccount(ctx, c.account)
		if err != nil {
			return err
		}
		minor, err := amount.ParseMinor(c.amount, account.Currency)
		if err != nil {
			return err
		}

		status := models.TransactionStatusPending
		if c.cleared {
			status = models.TransactionStatusCleared
		}

		txn, err := e.Services.Transactions.CreateTransaction(ctx, services.TransactionInput{
			AccountID:       account.ID,
			CategoryID:      c.category,
			AmountMinor:     minor,
			TransactionDate: date,
			Memo:            c.memo,
			Status:          status,
			Source:          models.SourceCLI,
		})
		if err != nil {
			return err
		}
		fmt.Fprintf(c.app.Stdout, "recorded %s %s on %s (%s)\n", txn.ConceptID,
			amount.Format(txn.AmountMinor, account.Currency), dates.FormatDate(txn.TransactionDate), txn.Status)
		return nil
	})
}

// --- transfer ---

type transferCmd struct {
	app      *App
	from     string
	to       string
	category string
	amount   string
	date     string
	memo     string
}

func (*transferCmd) Name() string     { return "transfer" }
func (*transferCmd) Synopsis() string { return "move money between two accounts" }
func (*transferCmd) Usage() string {
	return `dojo transfer -from <id> -to <id> -amount <amount> [-category <id>] [-date <date>] [-memo <text>]

  Writes both legs or neither. Paying a credit card draws on its payment
  category.
`
}

func (c *transferCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.from, "from", "", "Source account id.")
	f.StringVar(&c.to, "to", "", "Destination account id.")
	f.StringVar(&c.amount, "amount", "", "Positive amount in the source account currency.")
	f.StringVar(&c.category, "category", "", "Category for the source leg.")
	f.StringVar(&c.date, "date", "", "Transfer date (YYYY-MM-DD). Defaults to today.")
	f.StringVar(&c.memo, "memo", "", "Free text.")
}

func (c *transferCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.from == "" || c.to == "" || c.amount == "" {
		return c.app.usageError("-from, -to and -amount are required")
	}
	date, err := optionalDate(c.date)
	if err != nil {
		return c.app.usageError(err.Error())
	}

	return c.app.run(ctx, func(e *bootstrap.Engine) error {
		source, err := e.Services.Accounts.GetAccount(ctx, c.from)
		if err != nil {
			return err
		}
		minor, err := amount.ParseMinor(c.amount, source.Currency)
		if err != nil {
			return err
		}

		result, err := e.Services.Transfers.Transfer(ctx, services.TransferInput{
			FromAccountID:   source.ID,
			ToAccountID:     c.to,
			CategoryID:      c.category,
			AmountMinor:     minor,
			TransactionDate: date,
			Memo:            c.memo,
		})
		if err != nil {
			return err
		}
		fmt.Fprintf(c.app.Stdout, "transferred %s from %s to %s (%s)\n",
			amount.Format(minor, source.Currency), result.Source.AccountID, result.Destination.AccountID, result.ConceptID)
		return nil
	})
}

package cli

import (
	"context"
	"flag"
	"fmt"

	"github.com/google/subcommands"

	"dojo/internal/amount"
	"dojo/internal/bootstrap"
	"dojo/internal/dates"
	"dojo/internal/services"
)

// --- add-category ---

type addCategoryCmd struct {
	app   *App
	id    string
	name  string
	group string
}

func (*addCategoryCmd) Name() string     { return "add-category" }
func (*addCategoryCmd) Synopsis() string { return "create a budget category" }
func (*addCategoryCmd) Usage() string {
	return `dojo add-category -name <name> [-id <slug>] [-group <group id>]
`
}

func (c *addCategoryCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.id, "id", "", "Category id. Derived from the name when empty.")
	f.StringVar(&c.name, "name", "", "Display name.")
	f.StringVar(&c.group, "group", "", "Group id.")
}

func (c *addCategoryCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.name == "" {
		return c.app.usageError("-name is required")
	}

	return c.app.run(ctx, func(e *bootstrap.Engine) error {
		in := services.CategoryInput{ID: c.id, Name: c.name}
		if c.group != "" {
			in.GroupID = &c.group
		}
		category, err := e.Services.Categories.CreateCategory(ctx, in)
		if err != nil {
			return err
		}
		fmt.Fprintf(c.app.Stdout, "created category %s\n", category.ID)
		return nil
	})
}

// --- allocate ---

type allocateCmd struct {
	app    *App
	from   string
	to     string
	amount string
	month  string
	memo   string
}

func (*allocateCmd) Name() string     { return "allocate" }
func (*allocateCmd) Synopsis() string { return "assign money to a category" }
func (*allocateCmd) Usage() string {
	return `dojo allocate -to <category> -amount <amount> [-from <category>] [-month YYYY-MM] [-memo <text>]

  Without -from the money comes from Ready to Assign. The source must hold
  enough available money for the month.
`
}

func (c *allocateCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.to, "to", "", "Category receiving the money.")
	f.StringVar(&c.from, "from", "", "Category giving the money. Empty means Ready to Assign.")
	f.StringVar(&c.amount, "amount", "", "Positive amount.")
	f.StringVar(&c.month, "month", "", "Budget month (YYYY-MM). Defaults to the current month.")
	f.StringVar(&c.memo, "memo", "", "Free text.")
}

func (c *allocateCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.to == "" || c.amount == "" {
		return c.app.usageError("-to and -amount are required")
	}

	return c.app.run(ctx, func(e *bootstrap.Engine) error {
		minor, err := amount.ParseMinor(c.amount, e.Currency)
		if err != nil {
			return err
		}
		month, err := monthOrCurrent(ctx, e, c.month)
		if err != nil {
			return err
		}

		in := services.AllocationInput{
			ToCategoryID: c.to,
			AmountMinor:  minor,
			Month:        &month,
			Memo:         c.memo,
		}
		source := "ready to assign"
		if c.from != "" {
			in.FromCategoryID = &c.from
			source = c.from
		}

		alloc, err := e.Services.Budget.CreateAllocation(ctx, in)
		if err != nil {
			return err
		}
		fmt.Fprintf(c.app.Stdout, "assigned %s from %s to %s for %s\n", amount.Format(alloc.AmountMinor, e.Currency),
			source, alloc.ToCategoryID, dates.FormatMonth(alloc.MonthStart))
		return nil
	})
}

// --- rta ---

type rtaCmd struct {
	app   *App
	month string
}

func (*rtaCmd) Name() string     { return "rta" }
func (*rtaCmd) Synopsis() string { return "show Ready to Assign for a month" }
func (*rtaCmd) Usage() string {
	return `dojo rta [-month YYYY-MM]
`
}

func (c *rtaCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.month, "month", "", "Budget month (YYYY-MM). Defaults to the current month.")
}

func (c *rtaCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return c.app.run(ctx, func(e *bootstrap.Engine) error {
		month, err := monthOrCurrent(ctx, e, c.month)
		if err != nil {
			return err
		}
		rta, err := e.Services.Budget.GetReadyToAssign(ctx, month)
		if err != nil {
			return err
		}
		fmt.Fprintf(c.app.Stdout, "ready to assign %s: %s\n", dates.FormatMonth(rta.Month), amount.Format(rta.ReadyToAssignMinor, e.Currency))
		fmt.Fprintf(c.app.Stdout, "  on-budget cash %s\n", amount.Format(rta.OnBudgetCashMinor, e.Currency))
		fmt.Fprintf(c.app.Stdout, "  available      %s\n", amount.Format(rta.AvailableTotalMinor, e.Currency))
		return nil
	})
}

package services

import (
	"context"
	"testing"
	"time"

	"gorm.io/gorm"

	"dojo/internal/clock"
	"dojo/internal/dates"
	"dojo/internal/models"
	"dojo/internal/testutil"
)

// ledger bundles a migrated test database with every service wired to it.
type ledger struct {
	db    *gorm.DB
	clock *clock.Ticking
	*Registry
}

func setupLedger(t *testing.T) *ledger {
	t.Helper()

	db := testutil.SetupTestDB(t)
	t.Cleanup(func() { testutil.TeardownTestDB(t, db) })

	clk := testutil.NewTestClock()
	return &ledger{
		db:    db,
		clock: clk,
		Registry: NewRegistry(testutil.NewTestWriter(db), clk, Options{
			MaxFutureDays:   5,
			DefaultCurrency: "USD",
		}),
	}
}

// day parses a YYYY-MM-DD date for test inputs.
func day(t *testing.T, s string) *time.Time {
	t.Helper()
	d, err := dates.ParseDate(s)
	if err != nil {
		t.Fatalf("bad test date %q: %v", s, err)
	}
	return &d
}

// month parses a YYYY-MM month for test inputs.
func month(t *testing.T, s string) time.Time {
	t.Helper()
	m, err := dates.ParseMonth(s)
	if err != nil {
		t.Fatalf("bad test month %q: %v", s, err)
	}
	return m
}

// income records a cleared inflow to Ready to Assign.
func (l *ledger) income(t *testing.T, accountID string, amount int64, date string) *models.Transaction {
	t.Helper()
	txn, err := l.Transactions.CreateTransaction(context.Background(), TransactionInput{
		AccountID:       accountID,
		CategoryID:      models.CategoryReadyToAssign,
		AmountMinor:     amount,
		TransactionDate: day(t, date),
		Memo:            "paycheck",
		Status:          models.TransactionStatusCleared,
	})
	testutil.AssertNoError(t, err)
	return txn
}

// spend records a pending outflow of amount (given as a positive number).
func (l *ledger) spend(t *testing.T, accountID, categoryID string, amount int64, date string) *models.Transaction {
	t.Helper()
	txn, err := l.Transactions.CreateTransaction(context.Background(), TransactionInput{
		AccountID:       accountID,
		CategoryID:      categoryID,
		AmountMinor:     -amount,
		TransactionDate: day(t, date),
	})
	testutil.AssertNoError(t, err)
	return txn
}

// assign allocates amount from Ready to Assign to categoryID for month m.
func (l *ledger) assign(t *testing.T, categoryID string, amount int64, m string) *models.Allocation {
	t.Helper()
	mm := month(t, m)
	a, err := l.Budget.CreateAllocation(context.Background(), AllocationInput{
		ToCategoryID: categoryID,
		AmountMinor:  amount,
		Month:        &mm,
	})
	testutil.AssertNoError(t, err)
	return a
}

func (l *ledger) state(t *testing.T, categoryID, m string) *CategoryState {
	t.Helper()
	s, err := l.Budget.GetCategoryState(context.Background(), categoryID, month(t, m))
	testutil.AssertNoError(t, err)
	return s
}

func (l *ledger) rta(t *testing.T, m string) int64 {
	t.Helper()
	r, err := l.Budget.GetReadyToAssign(context.Background(), month(t, m))
	testutil.AssertNoError(t, err)
	if r.ReadyToAssignMinor+r.AvailableTotalMinor != r.OnBudgetCashMinor {
		t.Errorf("RTA identity broken for %s: %+v", m, r)
	}
	return r.ReadyToAssignMinor
}

func (l *ledger) balance(t *testing.T, accountID string) int64 {
	t.Helper()
	a, err := l.Accounts.GetAccount(context.Background(), accountID)
	testutil.AssertNoError(t, err)
	return a.CurrentBalanceMinor
}

// assertCachesMatchLedger replays the ledger and fails on any drift.
func (l *ledger) assertCachesMatchLedger(t *testing.T) {
	t.Helper()
	report, err := l.Cache.Verify(context.Background())
	testutil.AssertNoError(t, err)
	if !report.Clean() {
		t.Errorf("caches drifted from ledger: accounts=%+v categories=%+v", report.AccountDrift, report.CategoryDrift)
	}
}

func ptr[T any](v T) *T {
	return &v
}

package testutil_test

import (
	"testing"

	"dojo/internal/errors"
	"dojo/internal/models"
	"dojo/internal/testutil"
)

func TestSetupTestDB(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)

	var count int64
	for _, table := range []string{"accounts", "category_groups", "categories", "category_monthly_states", "transactions", "allocations", "reconciliations", "ledger_events", "net_worth_snapshots"} {
		if err := db.Table(table).Count(&count).Error; err != nil {
			t.Errorf("table %q should exist after migration: %v", table, err)
		}
	}

	if err := db.Model(&models.Category{}).Where("is_system = ?", true).Count(&count).Error; err != nil {
		t.Fatalf("count system categories: %v", err)
	}
	if count != int64(len(models.SystemCategories)) {
		t.Errorf("expected %d system categories, got %d", len(models.SystemCategories), count)
	}
}

func TestSetupTestDBIsolated(t *testing.T) {
	first := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, first)
	second := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, second)

	testutil.CreateTestCashAccount(t, first)

	var count int64
	if err := second.Model(&models.Account{}).Count(&count).Error; err != nil {
		t.Fatalf("count accounts: %v", err)
	}
	if count != 0 {
		t.Errorf("expected an empty second database, got %d accounts", count)
	}
}

func TestFixtures(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)

	cash := testutil.CreateTestCashAccount(t, db)
	if !cash.FundsBudget() {
		t.Errorf("expected cash fixture to fund the budget")
	}

	card := testutil.CreateTestCreditAccount(t, db)
	if !card.IsCredit() {
		t.Errorf("expected credit fixture to be a credit liability")
	}
	var payment models.Category
	if err := db.Where("category_id = ?", models.PaymentCategoryID(card.ID)).Take(&payment).Error; err != nil {
		t.Fatalf("expected payment category for %s: %v", card.ID, err)
	}
	if payment.GroupID == nil || *payment.GroupID != models.GroupCreditCardPayments {
		t.Errorf("expected payment category in %s group", models.GroupCreditCardPayments)
	}

	group := testutil.CreateTestGroup(t, db)
	category := testutil.CreateTestCategory(t, db)
	if category.ID == "" || group.ID == "" || category.IsSystem {
		t.Errorf("unexpected fixtures: %+v %+v", category, group)
	}
}

func TestTestClock(t *testing.T) {
	clk := testutil.NewTestClock()
	first, second := clk.Now(), clk.Now()
	if !first.Equal(testutil.TestEpoch) {
		t.Errorf("expected first reading %v, got %v", testutil.TestEpoch, first)
	}
	if !second.After(first) {
		t.Errorf("expected clock to advance, got %v then %v", first, second)
	}
}

func TestAssertAppError(t *testing.T) {
	err := errors.WithMessage(errors.ErrAccountNotFound, "custom message")
	appErr := testutil.AssertAppError(t, err, "ACCOUNT_NOT_FOUND")
	if appErr.Message != "custom message" {
		t.Errorf("expected custom message, got %q", appErr.Message)
	}

	withDetails := errors.WithDetails(errors.ErrInsufficientFunds, "short", map[string]any{"available_minor": int64(5)})
	testutil.AssertDetails(t, testutil.AssertAppError(t, withDetails, "INSUFFICIENT_FUNDS"), map[string]any{
		"available_minor": int64(5),
	})
}

func TestAssertNoError(t *testing.T) {
	testutil.AssertNoError(t, nil)
	testutil.AssertMinor(t, "zero", 0, 0)
}

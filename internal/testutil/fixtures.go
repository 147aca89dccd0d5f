package testutil

import (
	"fmt"
	"sync/atomic"
	"testing"

	"gorm.io/gorm"

	"dojo/internal/database"
	"dojo/internal/models"
)

// counter provides unique values across fixtures within a test run.
var counter atomic.Int64

func nextID() int64 {
	return counter.Add(1)
}

// CreateTestCashAccount creates an on-budget cash account with zero balance.
func CreateTestCashAccount(t *testing.T, db *gorm.DB) *models.Account {
	t.Helper()
	return CreateTestAccount(t, db, models.AccountClassCash, models.AccountRoleOnBudget)
}

// CreateTestCreditAccount creates an on-budget credit card with its payment category.
func CreateTestCreditAccount(t *testing.T, db *gorm.DB) *models.Account {
	t.Helper()
	return CreateTestAccount(t, db, models.AccountClassCredit, models.AccountRoleOnBudget)
}

// CreateTestAccount creates an account of the given class and role with zero balance.
func CreateTestAccount(t *testing.T, db *gorm.DB, class models.AccountClass, role models.AccountRole) *models.Account {
	t.Helper()

	accountType := models.AccountTypeAsset
	if class == models.AccountClassCredit || class == models.AccountClassLoan {
		accountType = models.AccountTypeLiability
	}

	n := nextID()
	account := &models.Account{
		ID:        fmt.Sprintf("acct_%d", n),
		Name:      fmt.Sprintf("Test Account %d", n),
		Type:      accountType,
		Class:     class,
		Role:      role,
		Currency:  "USD",
		IsActive:  true,
		CreatedAt: TestEpoch,
		UpdatedAt: TestEpoch,
	}
	if err := db.Create(account).Error; err != nil {
		t.Fatalf("failed to create test account: %v", err)
	}
	if account.IsCredit() {
		if err := database.EnsurePaymentCategory(db, account, TestEpoch); err != nil {
			t.Fatalf("failed to create payment category: %v", err)
		}
	}
	return account
}

// CreateTestCategory creates an active budget category with no group.
func CreateTestCategory(t *testing.T, db *gorm.DB) *models.Category {
	t.Helper()

	n := nextID()
	category := &models.Category{
		ID:        fmt.Sprintf("cat_%d", n),
		Name:      fmt.Sprintf("Test Category %d", n),
		IsActive:  true,
		CreatedAt: TestEpoch,
		UpdatedAt: TestEpoch,
	}
	if err := db.Create(category).Error; err != nil {
		t.Fatalf("failed to create test category: %v", err)
	}
	return category
}

// CreateTestGroup creates an active category group.
func CreateTestGroup(t *testing.T, db *gorm.DB) *models.CategoryGroup {
	t.Helper()

	n := nextID()
	group := &models.CategoryGroup{
		ID:        fmt.Sprintf("group_%d", n),
		Name:      fmt.Sprintf("Test Group %d", n),
		SortOrder: int(n),
		IsActive:  true,
		CreatedAt: TestEpoch,
		UpdatedAt: TestEpoch,
	}
	if err := db.Create(group).Error; err != nil {
		t.Fatalf("failed to create test group: %v", err)
	}
	return group
}

package models

import (
	"time"

	"gorm.io/gorm"

	"dojo/internal/uuid"
)

// AccountType is the accounting side of an account.
type AccountType string

const (
	AccountTypeAsset     AccountType = "asset"
	AccountTypeLiability AccountType = "liability"
)

// AccountClass describes what kind of money an account holds.
type AccountClass string

const (
	AccountClassCash       AccountClass = "cash"
	AccountClassCredit     AccountClass = "credit"
	AccountClassInvestment AccountClass = "investment"
	AccountClassLoan       AccountClass = "loan"
	AccountClassAccessible AccountClass = "accessible"
	AccountClassTangible   AccountClass = "tangible"
)

// AccountRole decides whether an account participates in the budget.
type AccountRole string

const (
	AccountRoleOnBudget AccountRole = "on_budget"
	AccountRoleTracking AccountRole = "tracking"
)

// Account represents a financial account. Accounts are retired, never deleted.
type Account struct {
	ID                  string       `gorm:"column:account_id;primaryKey" json:"account_id"`
	Name                string       `gorm:"not null" json:"name"`
	Type                AccountType  `gorm:"column:account_type;not null" json:"account_type"`
	Class               AccountClass `gorm:"column:account_class;not null" json:"account_class"`
	Role                AccountRole  `gorm:"column:account_role;not null" json:"account_role"`
	Currency            string       `gorm:"not null" json:"currency"`
	CurrentBalanceMinor int64        `gorm:"column:current_balance_minor;not null" json:"current_balance_minor"`
	IsActive            bool         `gorm:"not null" json:"is_active"`
	OpenedOn            *time.Time   `json:"opened_on,omitempty"`
	CreatedAt           time.Time    `json:"created_at"`
	UpdatedAt           time.Time    `json:"updated_at"`
}

// TableName implements gorm's Tabler.
func (Account) TableName() string { return "accounts" }

// BeforeCreate hook generates an id when the caller did not pick a slug.
func (a *Account) BeforeCreate(tx *gorm.DB) error {
	if a.ID == "" {
		a.ID = uuid.New()
	}
	return nil
}

// IsCredit reports whether purchases on the account are reserved into a
// payment category.
func (a *Account) IsCredit() bool {
	return a.Type == AccountTypeLiability && a.Class == AccountClassCredit
}

// FundsBudget reports whether the account balance is money to assign.
func (a *Account) FundsBudget() bool {
	return a.Role == AccountRoleOnBudget && a.Class == AccountClassCash
}

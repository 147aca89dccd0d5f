package models

import "time"

// System category ids. These are seeded at startup and never carry
// monthly envelope state.
const (
	CategoryReadyToAssign     = "available_to_budget"
	CategoryAccountTransfer   = "account_transfer"
	CategoryOpeningBalance    = "opening_balance"
	CategoryBalanceAdjustment = "balance_adjustment"
)

// GroupCreditCardPayments holds the payment reserve category of every credit account.
const GroupCreditCardPayments = "credit_card_payments"

// SystemCategories lists the seeded system categories with display names.
var SystemCategories = []Category{
	{ID: CategoryReadyToAssign, Name: "Ready to Assign"},
	{ID: CategoryAccountTransfer, Name: "Account Transfer"},
	{ID: CategoryOpeningBalance, Name: "Opening Balance"},
	{ID: CategoryBalanceAdjustment, Name: "Balance Adjustment"},
}

// PaymentCategoryPrefix starts the id of every credit card payment category.
const PaymentCategoryPrefix = "payment_"

// PaymentCategoryID returns the reserve category id of a credit account.
func PaymentCategoryID(accountID string) string {
	return PaymentCategoryPrefix + accountID
}

// GoalType selects how a category goal is measured.
type GoalType string

const (
	GoalTypeTargetDate GoalType = "target_date"
	GoalTypeRecurring  GoalType = "recurring"
)

// GoalFrequency is the period of a recurring goal.
type GoalFrequency string

const (
	GoalFrequencyMonthly   GoalFrequency = "monthly"
	GoalFrequencyQuarterly GoalFrequency = "quarterly"
	GoalFrequencyYearly    GoalFrequency = "yearly"
)

// Valid reports whether f is a known frequency.
func (f GoalFrequency) Valid() bool {
	switch f {
	case GoalFrequencyMonthly, GoalFrequencyQuarterly, GoalFrequencyYearly:
		return true
	}
	return false
}

// CategoryGroup orders categories for display.
type CategoryGroup struct {
	ID        string    `gorm:"column:group_id;primaryKey" json:"group_id"`
	Name      string    `gorm:"not null" json:"name"`
	SortOrder int       `gorm:"not null" json:"sort_order"`
	IsActive  bool      `gorm:"not null" json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName implements gorm's Tabler.
func (CategoryGroup) TableName() string { return "category_groups" }

// Category is a budget envelope, or a system category used for routing.
// Goal fields are informational and never move money.
type Category struct {
	ID              string         `gorm:"column:category_id;primaryKey" json:"category_id"`
	GroupID         *string        `gorm:"column:group_id" json:"group_id,omitempty"`
	Name            string         `gorm:"not null" json:"name"`
	IsActive        bool           `gorm:"not null" json:"is_active"`
	IsSystem        bool           `gorm:"not null" json:"is_system"`
	GoalType        *GoalType      `json:"goal_type,omitempty"`
	GoalAmountMinor *int64         `json:"goal_amount_minor,omitempty"`
	GoalTargetDate  *time.Time     `json:"goal_target_date,omitempty"`
	GoalFrequency   *GoalFrequency `json:"goal_frequency,omitempty"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
}

// TableName implements gorm's Tabler.
func (Category) TableName() string { return "categories" }

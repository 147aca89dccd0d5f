package models

import "time"

// CategoryMonthState caches one category's envelope figures for one month.
// ActivityMinor is spending-positive: an outflow of 500 adds 500 to activity.
type CategoryMonthState struct {
	CategoryID     string    `gorm:"column:category_id;primaryKey" json:"category_id"`
	MonthStart     time.Time `gorm:"column:month_start;primaryKey" json:"month_start"`
	AllocatedMinor int64     `gorm:"column:allocated_minor;not null" json:"allocated_minor"`
	InflowMinor    int64     `gorm:"column:inflow_minor;not null" json:"inflow_minor"`
	ActivityMinor  int64     `gorm:"column:activity_minor;not null" json:"activity_minor"`
	AvailableMinor int64     `gorm:"column:available_minor;not null" json:"available_minor"`
}

// TableName implements gorm's Tabler.
func (CategoryMonthState) TableName() string { return "category_monthly_states" }

// Rollover computes a month's available amount from the previous month's.
func Rollover(prevAvailable, allocated, inflow, activity int64) int64 {
	return prevAvailable + allocated + inflow - activity
}

// Allocation moves money into a category for a month, either from Ready to
// Assign (FromCategoryID nil) or from another category.
type Allocation struct {
	Version
	FromCategoryID *string   `gorm:"column:from_category_id" json:"from_category_id,omitempty"`
	ToCategoryID   string    `gorm:"column:to_category_id;not null" json:"to_category_id"`
	AmountMinor    int64     `gorm:"column:amount_minor;not null" json:"amount_minor"`
	AllocationDate time.Time `gorm:"column:allocation_date;not null" json:"allocation_date"`
	MonthStart     time.Time `gorm:"column:month_start;not null" json:"month_start"`
	Memo           string    `gorm:"not null" json:"memo"`
}

// TableName implements gorm's Tabler.
func (Allocation) TableName() string { return "allocations" }

// FromReadyToAssign reports whether the allocation draws on Ready to Assign.
func (a *Allocation) FromReadyToAssign() bool {
	return a.FromCategoryID == nil
}

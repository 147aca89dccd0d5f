package database

import (
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"dojo/internal/models"
)

// SeedSystemCategories inserts the system categories and the credit card
// payments group. Existing rows are left untouched.
func SeedSystemCategories(tx *gorm.DB, now time.Time) error {
	if err := ensurePaymentsGroup(tx, now); err != nil {
		return err
	}

	for _, c := range models.SystemCategories {
		c.IsActive = true
		c.IsSystem = true
		c.CreatedAt = now
		c.UpdatedAt = now
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&c).Error; err != nil {
			return err
		}
	}
	return nil
}

// EnsurePaymentCategory creates the reserve category of a credit account if
// it does not exist yet.
func EnsurePaymentCategory(tx *gorm.DB, account *models.Account, now time.Time) error {
	if err := ensurePaymentsGroup(tx, now); err != nil {
		return err
	}
	groupID := models.GroupCreditCardPayments
	category := models.Category{
		ID:        models.PaymentCategoryID(account.ID),
		GroupID:   &groupID,
		Name:      account.Name,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	return tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&category).Error
}

func ensurePaymentsGroup(tx *gorm.DB, now time.Time) error {
	group := models.CategoryGroup{
		ID:        models.GroupCreditCardPayments,
		Name:      "Credit Card Payments",
		SortOrder: -1000,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	return tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&group).Error
}

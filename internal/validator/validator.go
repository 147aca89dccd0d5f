// Package validator provides custom validation functions for Gin's binding engine.
package validator

import (
	"github.com/Rhymond/go-money"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"dojo/internal/dates"
	"dojo/internal/models"
)

// Register registers all custom validators with the Gin binding engine.
func Register() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		_ = v.RegisterValidation("iso4217", validateISO4217)
		_ = v.RegisterValidation("iso_date", validateISODate)
		_ = v.RegisterValidation("iso_month", validateISOMonth)
		_ = v.RegisterValidation("account_type", validateAccountType)
		_ = v.RegisterValidation("account_class", validateAccountClass)
		_ = v.RegisterValidation("account_role", validateAccountRole)
		_ = v.RegisterValidation("transaction_status", validateTransactionStatus)
	}
}

func validateISO4217(fl validator.FieldLevel) bool {
	return money.GetCurrency(fl.Field().String()) != nil
}

func validateISODate(fl validator.FieldLevel) bool {
	_, err := dates.ParseDate(fl.Field().String())
	return err == nil
}

// iso_month also accepts a full date, which is read as its month.
func validateISOMonth(fl validator.FieldLevel) bool {
	_, err := dates.ParseMonth(fl.Field().String())
	return err == nil
}

func validateAccountType(fl validator.FieldLevel) bool {
	switch models.AccountType(fl.Field().String()) {
	case models.AccountTypeAsset, models.AccountTypeLiability:
		return true
	}
	return false
}

func validateAccountClass(fl validator.FieldLevel) bool {
	switch models.AccountClass(fl.Field().String()) {
	case models.AccountClassCash, models.AccountClassCredit, models.AccountClassInvestment,
		models.AccountClassLoan, models.AccountClassAccessible, models.AccountClassTangible:
		return true
	}
	return false
}

func validateAccountRole(fl validator.FieldLevel) bool {
	switch models.AccountRole(fl.Field().String()) {
	case models.AccountRoleOnBudget, models.AccountRoleTracking:
		return true
	}
	return false
}

func validateTransactionStatus(fl validator.FieldLevel) bool {
	return models.TransactionStatus(fl.Field().String()).Valid()
}

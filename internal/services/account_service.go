package services

import (
	"context"
	"strings"

	"github.com/Rhymond/go-money"
	"gorm.io/gorm"

	"dojo/internal/clock"
	"dojo/internal/database"
	apperrors "dojo/internal/errors"
	"dojo/internal/logger"
	"dojo/internal/models"
	"dojo/internal/temporal"
)

// accountService handles account-related business logic.
type accountService struct {
	db              *database.Writer
	clock           clock.Clock
	store           *transactionStore
	defaultCurrency string
	maxFutureDays   int
}

// NewAccountService creates a new AccountServicer.
func NewAccountService(db *database.Writer, clk clock.Clock, defaultCurrency string, maxFutureDays int) AccountServicer {
	if defaultCurrency == "" {
		defaultCurrency = money.USD
	}
	return &accountService{
		db:              db,
		clock:           clk,
		store:           temporal.NewStore[models.Transaction](),
		defaultCurrency: defaultCurrency,
		maxFutureDays:   maxFutureDays,
	}
}

// CreateAccount opens an account. A non-zero opening balance is posted as a
// cleared ledger entry so the cached balance stays derivable from the ledger.
func (s *accountService) CreateAccount(ctx context.Context, in AccountInput) (*models.Account, error) {
	account, err := s.buildAccount(in)
	if err != nil {
		return nil, err
	}

	var opening *models.Transaction
	if in.OpeningBalanceMinor != 0 {
		date, err := resolveDate(ctx, s.clock, in.OpenedOn, s.maxFutureDays)
		if err != nil {
			return nil, err
		}
		category := models.CategoryOpeningBalance
		if account.FundsBudget() {
			category = models.CategoryReadyToAssign
		}
		opening = &models.Transaction{
			CategoryID:      category,
			AmountMinor:     in.OpeningBalanceMinor,
			TransactionDate: date,
			Memo:            "Opening balance",
			Status:          models.TransactionStatusCleared,
			Source:          models.SourceOpening,
		}
	}

	err = s.db.Transaction(ctx, func(tx *gorm.DB) error {
		if account.ID != "" {
			var count int64
			if err := tx.Model(&models.Account{}).Where("account_id = ?", account.ID).Count(&count).Error; err != nil {
				return err
			}
			if count > 0 {
				return apperrors.WithMessage(apperrors.ErrAccountExists, "account "+account.ID+" already exists")
			}
		}

		now := s.clock.Now()
		account.CreatedAt = now
		account.UpdatedAt = now
		if err := tx.Create(account).Error; err != nil {
			return err
		}
		if account.IsCredit() {
			if err := database.EnsurePaymentCategory(tx, account, now); err != nil {
				return err
			}
		}

		if opening != nil {
			category, err := loadCategory(tx, opening.CategoryID)
			if err != nil {
				return err
			}
			opening.AccountID = account.ID
			if err := postTransaction(tx, s.store, opening, account, category, now); err != nil {
				return err
			}
			account.CurrentBalanceMinor = opening.AmountMinor
		}

		return recordEvent(tx, EventAccountCreated, "account", account.ID, account, now)
	})
	if err != nil {
		return nil, mapError(err)
	}

	logger.Get().Infow("account created",
		"account_id", account.ID,
		"account_class", account.Class,
		"account_role", account.Role,
		"opening_balance_minor", in.OpeningBalanceMinor,
	)
	return account, nil
}

func (s *accountService) buildAccount(in AccountInput) (*models.Account, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "account name is required")
	}

	class := in.Class
	if class == "" {
		class = models.AccountClassCash
	}
	expectedType := models.AccountTypeAsset
	switch class {
	case models.AccountClassCredit, models.AccountClassLoan:
		expectedType = models.AccountTypeLiability
	case models.AccountClassCash, models.AccountClassInvestment, models.AccountClassAccessible, models.AccountClassTangible:
	default:
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "unknown account_class "+string(class))
	}
	accountType := in.Type
	if accountType == "" {
		accountType = expectedType
	}
	if accountType != expectedType {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput,
			"account_class "+string(class)+" requires account_type "+string(expectedType))
	}

	role := in.Role
	if role == "" {
		role = models.AccountRoleTracking
		if class == models.AccountClassCash || class == models.AccountClassCredit {
			role = models.AccountRoleOnBudget
		}
	}
	if role != models.AccountRoleOnBudget && role != models.AccountRoleTracking {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "unknown account_role "+string(role))
	}

	currency := strings.ToUpper(strings.TrimSpace(in.Currency))
	if currency == "" {
		currency = s.defaultCurrency
	}
	if money.GetCurrency(currency) == nil {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "unknown currency "+currency)
	}

	account := &models.Account{
		ID:       strings.TrimSpace(in.ID),
		Name:     name,
		Type:     accountType,
		Class:    class,
		Role:     role,
		Currency: currency,
		IsActive: true,
	}
	if in.OpenedOn != nil {
		opened := in.OpenedOn.UTC()
		account.OpenedOn = &opened
	}
	return account, nil
}

// GetAccount returns an account, retired or not.
func (s *accountService) GetAccount(ctx context.Context, accountID string) (*models.Account, error) {
	account, err := loadAccount(s.db.DB().WithContext(ctx), accountID)
	if err != nil {
		return nil, mapError(err)
	}
	return account, nil
}

// ListAccounts returns accounts ordered by name.
func (s *accountService) ListAccounts(ctx context.Context, includeInactive bool) ([]models.Account, error) {
	q := s.db.DB().WithContext(ctx).Model(&models.Account{})
	if !includeInactive {
		q = q.Where("is_active = ?", true)
	}

	var accounts []models.Account
	if err := q.Order("name, account_id").Find(&accounts).Error; err != nil {
		return nil, mapError(err)
	}
	return accounts, nil
}

// UpdateAccount changes display fields. Renaming a credit account renames
// its payment category too.
func (s *accountService) UpdateAccount(ctx context.Context, accountID string, upd AccountUpdate) (*models.Account, error) {
	var account *models.Account
	err := s.db.Transaction(ctx, func(tx *gorm.DB) error {
		var err error
		account, err = loadAccount(tx, accountID)
		if err != nil {
			return err
		}

		now := s.clock.Now()
		updates := map[string]any{"updated_at": now}
		if upd.Name != nil {
			name := strings.TrimSpace(*upd.Name)
			if name == "" {
				return apperrors.WithMessage(apperrors.ErrInvalidInput, "account name cannot be empty")
			}
			updates["name"] = name
			account.Name = name
		}
		if upd.OpenedOn != nil {
			opened := upd.OpenedOn.UTC()
			updates["opened_on"] = opened
			account.OpenedOn = &opened
		}
		account.UpdatedAt = now

		if err := tx.Model(&models.Account{}).Where("account_id = ?", accountID).Updates(updates).Error; err != nil {
			return err
		}
		if account.IsCredit() && upd.Name != nil {
			err := tx.Model(&models.Category{}).
				Where("category_id = ?", models.PaymentCategoryID(accountID)).
				Updates(map[string]any{"name": account.Name, "updated_at": now}).Error
			if err != nil {
				return err
			}
		}
		return recordEvent(tx, EventAccountUpdated, "account", accountID, account, now)
	})
	if err != nil {
		return nil, mapError(err)
	}
	return account, nil
}

// RetireAccount marks an account inactive. Its history stays addressable.
func (s *accountService) RetireAccount(ctx context.Context, accountID string) error {
	err := s.db.Transaction(ctx, func(tx *gorm.DB) error {
		account, err := loadAccount(tx, accountID)
		if err != nil {
			return err
		}
		if !account.IsActive {
			return nil
		}

		now := s.clock.Now()
		err = tx.Model(&models.Account{}).Where("account_id = ?", accountID).
			Updates(map[string]any{"is_active": false, "updated_at": now}).Error
		if err != nil {
			return err
		}
		return recordEvent(tx, EventAccountRetired, "account", accountID, map[string]any{
			"balance_minor": account.CurrentBalanceMinor,
		}, now)
	})
	if err != nil {
		return mapError(err)
	}

	logger.Get().Infow("account retired", "account_id", accountID)
	return nil
}

// GetAccountBalance returns the cached balance split into cleared and
// pending parts.
func (s *accountService) GetAccountBalance(ctx context.Context, accountID string) (*AccountBalance, error) {
	var balance AccountBalance
	err := s.db.Snapshot(ctx, func(tx *gorm.DB) error {
		account, err := loadAccount(tx, accountID)
		if err != nil {
			return err
		}
		balance = AccountBalance{
			AccountID:           account.ID,
			Currency:            account.Currency,
			CurrentBalanceMinor: account.CurrentBalanceMinor,
		}
		if balance.ClearedBalanceMinor, err = sumByStatus(tx, accountID, models.TransactionStatusCleared); err != nil {
			return err
		}
		balance.PendingBalanceMinor, err = sumByStatus(tx, accountID, models.TransactionStatusPending)
		return err
	})
	if err != nil {
		return nil, mapError(err)
	}
	return &balance, nil
}

// NetWorth sums cached balances of every account by side.
func (s *accountService) NetWorth(ctx context.Context) (*NetWorth, error) {
	nw, err := sumNetWorth(s.db.DB().WithContext(ctx))
	if err != nil {
		return nil, mapError(err)
	}
	return nw, nil
}

func sumNetWorth(tx *gorm.DB) (*NetWorth, error) {
	var rows []struct {
		AccountType models.AccountType
		Total       int64
	}
	err := tx.Model(&models.Account{}).
		Select("account_type, CAST(COALESCE(SUM(current_balance_minor), 0) AS BIGINT) AS total").
		Group("account_type").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	var nw NetWorth
	for _, row := range rows {
		switch row.AccountType {
		case models.AccountTypeAsset:
			nw.AssetsMinor = row.Total
		case models.AccountTypeLiability:
			nw.LiabilitiesMinor = row.Total
		}
	}
	nw.NetWorthMinor = nw.AssetsMinor + nw.LiabilitiesMinor
	return &nw, nil
}

package services

import (
	"context"
	"fmt"
	"iter"
	"time"

	"gorm.io/gorm"

	"dojo/internal/clock"
	"dojo/internal/database"
	"dojo/internal/dates"
	apperrors "dojo/internal/errors"
	"dojo/internal/logger"
	"dojo/internal/models"
	"dojo/internal/temporal"
)

// transactionService handles the ledger of transactions.
type transactionService struct {
	db            *database.Writer
	clock         clock.Clock
	store         *transactionStore
	maxFutureDays int
}

// NewTransactionService creates a new TransactionServicer.
func NewTransactionService(db *database.Writer, clk clock.Clock, maxFutureDays int) TransactionServicer {
	return &transactionService{
		db:            db,
		clock:         clk,
		store:         temporal.NewStore[models.Transaction](),
		maxFutureDays: maxFutureDays,
	}
}

// CreateTransaction records a new transaction and applies its effects.
func (s *transactionService) CreateTransaction(ctx context.Context, in TransactionInput) (*models.Transaction, error) {
	date, err := resolveDate(ctx, s.clock, in.TransactionDate, s.maxFutureDays)
	if err != nil {
		return nil, err
	}

	row := &models.Transaction{
		AccountID:       in.AccountID,
		CategoryID:      in.CategoryID,
		AmountMinor:     in.AmountMinor,
		TransactionDate: date,
		Memo:            in.Memo,
		Status:          in.Status,
		Source:          in.Source,
	}
	if row.Status == "" {
		row.Status = models.TransactionStatusPending
	}
	if row.Source == "" {
		row.Source = models.SourceAPI
	}
	if err := validateTransactionFields(row); err != nil {
		return nil, err
	}

	err = s.db.Transaction(ctx, func(tx *gorm.DB) error {
		account, err := loadUsableAccount(tx, row.AccountID, "")
		if err != nil {
			return err
		}
		category, err := loadUsableCategory(tx, row.CategoryID, "")
		if err != nil {
			return err
		}

		now := s.clock.Now()
		if err := postTransaction(tx, s.store, row, account, category, now); err != nil {
			return err
		}
		return recordEvent(tx, EventTransactionCreated, "transaction", row.ConceptID, row, now)
	})
	if err != nil {
		return nil, mapError(err)
	}

	logger.Get().Infow("transaction created",
		"concept_id", row.ConceptID,
		"account_id", row.AccountID,
		"category_id", row.CategoryID,
		"amount_minor", row.AmountMinor,
	)
	return row, nil
}

// UpdateTransaction replaces the active version of a transaction. The old
// version's effects are reversed and the new version's applied in the same
// database transaction, netted per account and per (category, month).
func (s *transactionService) UpdateTransaction(ctx context.Context, conceptID string, upd TransactionUpdate) (*models.Transaction, error) {
	var next models.Transaction
	err := s.db.Transaction(ctx, func(tx *gorm.DB) error {
		legs, err := s.store.ActiveLegs(tx, conceptID)
		if err != nil {
			return notFound(err, apperrors.ErrTransactionNotFound)
		}
		if len(legs) > 1 || legs[0].Source == models.SourceTransfer {
			return apperrors.ErrTransferNotEditable
		}
		current := legs[0]
		next = current

		if upd.AccountID != nil {
			next.AccountID = *upd.AccountID
		}
		if upd.CategoryID != nil {
			next.CategoryID = *upd.CategoryID
		}
		if upd.AmountMinor != nil {
			next.AmountMinor = *upd.AmountMinor
		}
		if upd.TransactionDate != nil {
			date, err := resolveDate(ctx, s.clock, upd.TransactionDate, s.maxFutureDays)
			if err != nil {
				return err
			}
			next.TransactionDate = date
		}
		if upd.Memo != nil {
			next.Memo = *upd.Memo
		}
		if upd.Status != nil {
			next.Status = *upd.Status
		}
		if err := validateTransactionFields(&next); err != nil {
			return err
		}

		oldAccount, err := loadAccount(tx, current.AccountID)
		if err != nil {
			return err
		}
		oldCategory, err := loadCategory(tx, current.CategoryID)
		if err != nil {
			return err
		}
		account, err := loadUsableAccount(tx, next.AccountID, current.AccountID)
		if err != nil {
			return err
		}
		category, err := loadUsableCategory(tx, next.CategoryID, current.CategoryID)
		if err != nil {
			return err
		}

		now := s.clock.Now()
		if _, err := s.store.Replace(tx, upd.ExpectedVersionID, &next, now); err != nil {
			return err
		}

		fx := newEffects()
		fx.transaction(&current, oldAccount, oldCategory, -1)
		fx.transaction(&next, account, category, 1)
		if err := fx.apply(tx, now); err != nil {
			return err
		}

		return recordEvent(tx, EventTransactionUpdated, "transaction", conceptID, map[string]any{
			"before": current,
			"after":  next,
		}, now)
	})
	if err != nil {
		return nil, mapError(err)
	}

	logger.Get().Infow("transaction updated", "concept_id", conceptID, "version_id", next.VersionID)
	return &next, nil
}

// DeleteTransaction closes every active leg of a concept and reverses their
// effects. Nothing is physically removed.
func (s *transactionService) DeleteTransaction(ctx context.Context, conceptID, expectedVersionID string) error {
	err := s.db.Transaction(ctx, func(tx *gorm.DB) error {
		legs, err := s.store.ActiveLegs(tx, conceptID)
		if err != nil {
			return notFound(err, apperrors.ErrTransactionNotFound)
		}

		now := s.clock.Now()
		fx := newEffects()
		for i := range legs {
			leg := &legs[i]
			expected := ""
			if i == 0 {
				expected = expectedVersionID
			}
			if _, err := s.store.CloseActive(tx, conceptID, leg.Leg, expected, now); err != nil {
				return err
			}

			account, err := loadAccount(tx, leg.AccountID)
			if err != nil {
				return err
			}
			category, err := loadCategory(tx, leg.CategoryID)
			if err != nil {
				return err
			}
			fx.transaction(leg, account, category, -1)
		}
		if err := fx.apply(tx, now); err != nil {
			return err
		}

		return recordEvent(tx, EventTransactionDeleted, "transaction", conceptID, legs, now)
	})
	if err != nil {
		return mapError(err)
	}

	logger.Get().Infow("transaction deleted", "concept_id", conceptID)
	return nil
}

// GetTransaction returns the active legs of a concept.
func (s *transactionService) GetTransaction(ctx context.Context, conceptID string) ([]models.Transaction, error) {
	legs, err := s.store.ActiveLegs(s.db.DB().WithContext(ctx), conceptID)
	if err != nil {
		return nil, mapError(notFound(err, apperrors.ErrTransactionNotFound))
	}
	return legs, nil
}

// GetTransactionHistory returns every version of a concept, including closed ones.
func (s *transactionService) GetTransactionHistory(ctx context.Context, conceptID string) ([]models.Transaction, error) {
	rows, err := s.store.History(s.db.DB().WithContext(ctx), conceptID)
	if err != nil {
		return nil, mapError(notFound(err, apperrors.ErrTransactionNotFound))
	}
	return rows, nil
}

// ListActive streams the active transactions matching filter, ordered by
// transaction date then recording time. Each range over the sequence runs a
// fresh query.
func (s *transactionService) ListActive(ctx context.Context, filter TransactionFilter) iter.Seq2[models.Transaction, error] {
	return func(yield func(models.Transaction, error) bool) {
		q := s.db.DB().WithContext(ctx).Model(&models.Transaction{}).Where("is_active = ?", true)
		if filter.AccountID != "" {
			q = q.Where("account_id = ?", filter.AccountID)
		}
		if filter.CategoryID != "" {
			q = q.Where("category_id = ?", filter.CategoryID)
		}
		if filter.FromDate != nil {
			q = q.Where("transaction_date >= ?", dates.Day(*filter.FromDate))
		}
		if filter.ToDate != nil {
			q = q.Where("transaction_date <= ?", dates.Day(*filter.ToDate))
		}
		if filter.Status != nil {
			q = q.Where("status = ?", *filter.Status)
		}

		streamRows(q.Order("transaction_date, recorded_at, leg"), yield)
	}
}

// streamRows yields one scanned row at a time from a prepared query.
func streamRows[T any](q *gorm.DB, yield func(T, error) bool) {
	var zero T
	rows, err := q.Rows()
	if err != nil {
		yield(zero, mapError(err))
		return
	}
	defer rows.Close()

	for rows.Next() {
		var row T
		if err := q.ScanRows(rows, &row); err != nil {
			yield(zero, mapError(err))
			return
		}
		if !yield(row, nil) {
			return
		}
	}
	if err := rows.Err(); err != nil {
		yield(zero, mapError(err))
	}
}

func validateTransactionFields(t *models.Transaction) error {
	if t.AmountMinor == 0 {
		return apperrors.WithMessage(apperrors.ErrInvalidInput, "amount_minor must be non-zero")
	}
	if t.AccountID == "" {
		return apperrors.WithMessage(apperrors.ErrInvalidInput, "account_id is required")
	}
	if t.CategoryID == "" {
		return apperrors.WithMessage(apperrors.ErrInvalidInput, "category_id is required")
	}
	if !t.Status.Valid() {
		return apperrors.WithMessage(apperrors.ErrInvalidInput, fmt.Sprintf("unknown status %q", t.Status))
	}
	return nil
}

// resolveDate defaults a missing date to today and rejects dates more than
// maxFutureDays ahead.
func resolveDate(ctx context.Context, clk clock.Clock, date *time.Time, maxFutureDays int) (time.Time, error) {
	today := clock.Today(ctx, clk)
	if date == nil {
		return today, nil
	}
	day := dates.Day(*date)
	if limit := today.AddDate(0, 0, maxFutureDays); day.After(limit) {
		return time.Time{}, apperrors.WithMessage(apperrors.ErrInvalidInput,
			fmt.Sprintf("date %s is more than %d days in the future", dates.FormatDate(day), maxFutureDays))
	}
	return day, nil
}

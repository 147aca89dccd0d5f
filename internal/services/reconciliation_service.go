package services

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"dojo/internal/clock"
	"dojo/internal/database"
	"dojo/internal/dates"
	apperrors "dojo/internal/errors"
	"dojo/internal/logger"
	"dojo/internal/models"
	"dojo/internal/uuid"
)

// reconciliationService checkpoints accounts against bank statements.
type reconciliationService struct {
	db    *database.Writer
	clock clock.Clock
}

// NewReconciliationService creates a new ReconciliationServicer.
func NewReconciliationService(db *database.Writer, clk clock.Clock) ReconciliationServicer {
	return &reconciliationService{db: db, clock: clk}
}

// GetWorksheet lists everything recorded since the last checkpoint together
// with every transaction still pending, however old.
func (s *reconciliationService) GetWorksheet(ctx context.Context, accountID string) (*Worksheet, error) {
	ws := &Worksheet{AccountID: accountID, Since: time.Unix(0, 0).UTC()}

	err := s.db.Snapshot(ctx, func(tx *gorm.DB) error {
		if _, err := loadAccount(tx, accountID); err != nil {
			return err
		}

		last, err := lastReconciliation(tx, accountID)
		if err != nil {
			return err
		}
		if last != nil {
			ws.LastReconciliation = last
			ws.Since = last.CreatedAt
		}

		err = tx.Where("account_id = ? AND is_active = ?", accountID, true).
			Where("recorded_at > ? OR status <> ?", ws.Since, models.TransactionStatusCleared).
			Order("transaction_date, recorded_at, leg").
			Find(&ws.Items).Error
		if err != nil {
			return err
		}
		if ws.Items == nil {
			ws.Items = []models.Transaction{}
		}

		ws.ClearedBalanceMinor, err = sumByStatus(tx, accountID, models.TransactionStatusCleared)
		if err != nil {
			return err
		}
		ws.PendingTotalMinor, err = sumByStatus(tx, accountID, models.TransactionStatusPending)
		return err
	})
	if err != nil {
		return nil, mapError(err)
	}
	return ws, nil
}

// Commit writes a checkpoint when the cleared balance equals the statement
// balance exactly. A mismatch writes nothing.
func (s *reconciliationService) Commit(ctx context.Context, in CommitInput) (*models.Reconciliation, error) {
	if in.AccountID == "" {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "account_id is required")
	}
	if in.StatementDate.IsZero() {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "statement_date is required")
	}

	var checkpoint models.Reconciliation
	err := s.db.Transaction(ctx, func(tx *gorm.DB) error {
		if _, err := loadAccount(tx, in.AccountID); err != nil {
			return err
		}

		cleared, err := sumByStatus(tx, in.AccountID, models.TransactionStatusCleared)
		if err != nil {
			return err
		}
		if cleared != in.StatementBalanceMinor {
			diff := in.StatementBalanceMinor - cleared
			return apperrors.WithDetails(apperrors.ErrBalanceMismatch,
				fmt.Sprintf("cleared balance %d differs from statement balance %d by %d", cleared, in.StatementBalanceMinor, diff),
				map[string]any{
					"account_id":              in.AccountID,
					"statement_balance_minor": in.StatementBalanceMinor,
					"cleared_balance_minor":   cleared,
					"difference_minor":        diff,
				})
		}

		pending, err := sumByStatus(tx, in.AccountID, models.TransactionStatusPending)
		if err != nil {
			return err
		}
		last, err := lastReconciliation(tx, in.AccountID)
		if err != nil {
			return err
		}

		now := s.clock.Now()
		checkpoint = models.Reconciliation{
			ID:                         uuid.NewAt(now),
			AccountID:                  in.AccountID,
			CreatedAt:                  now,
			StatementDate:              dates.Day(in.StatementDate),
			StatementBalanceMinor:      in.StatementBalanceMinor,
			StatementPendingTotalMinor: pending,
		}
		if last != nil {
			checkpoint.PreviousReconciliationID = &last.ID
		}
		if err := tx.Create(&checkpoint).Error; err != nil {
			return err
		}
		return recordEvent(tx, EventReconciliationCreated, "reconciliation", checkpoint.ID, checkpoint, now)
	})
	if err != nil {
		return nil, mapError(err)
	}

	logger.Get().Infow("reconciliation committed",
		"reconciliation_id", checkpoint.ID,
		"account_id", checkpoint.AccountID,
		"statement_balance_minor", checkpoint.StatementBalanceMinor,
	)
	return &checkpoint, nil
}

// ListReconciliations returns an account's checkpoints, newest first.
func (s *reconciliationService) ListReconciliations(ctx context.Context, accountID string) ([]models.Reconciliation, error) {
	db := s.db.DB().WithContext(ctx)
	if _, err := loadAccount(db, accountID); err != nil {
		return nil, mapError(err)
	}

	var rows []models.Reconciliation
	if err := db.Where("account_id = ?", accountID).Order("created_at DESC").Find(&rows).Error; err != nil {
		return nil, mapError(err)
	}
	return rows, nil
}

func lastReconciliation(tx *gorm.DB, accountID string) (*models.Reconciliation, error) {
	var rows []models.Reconciliation
	if err := tx.Where("account_id = ?", accountID).Order("created_at DESC").Limit(1).Find(&rows).Error; err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return &rows[0], nil
}

func sumByStatus(tx *gorm.DB, accountID string, status models.TransactionStatus) (int64, error) {
	var total int64
	err := tx.Model(&models.Transaction{}).
		Select("CAST(COALESCE(SUM(amount_minor), 0) AS BIGINT)").
		Where("account_id = ? AND is_active = ? AND status = ?", accountID, true, status).
		Scan(&total).Error
	return total, err
}

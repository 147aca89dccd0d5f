package services

import (
	"context"

	"gorm.io/gorm"

	"dojo/internal/clock"
	"dojo/internal/database"
	apperrors "dojo/internal/errors"
	"dojo/internal/logger"
	"dojo/internal/models"
	"dojo/internal/temporal"
	"dojo/internal/uuid"
)

// transferService moves money between two accounts as one two-leg concept.
type transferService struct {
	db            *database.Writer
	clock         clock.Clock
	store         *transactionStore
	maxFutureDays int
}

// NewTransferService creates a new TransferServicer.
func NewTransferService(db *database.Writer, clk clock.Clock, maxFutureDays int) TransferServicer {
	return &transferService{
		db:            db,
		clock:         clk,
		store:         temporal.NewStore[models.Transaction](),
		maxFutureDays: maxFutureDays,
	}
}

// Transfer writes both legs or neither. Leg 0 leaves the source account
// carrying the caller's category; leg 1 arrives on the destination under the
// account transfer category. A payment to a credit card draws the source leg
// from the card's payment category.
func (s *transferService) Transfer(ctx context.Context, in TransferInput) (*TransferResult, error) {
	if in.AmountMinor <= 0 {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "amount_minor must be positive")
	}
	if in.FromAccountID == "" || in.ToAccountID == "" {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "from_account_id and to_account_id are required")
	}
	if in.FromAccountID == in.ToAccountID {
		return nil, apperrors.ErrSameAccountTransfer
	}
	date, err := resolveDate(ctx, s.clock, in.TransactionDate, s.maxFutureDays)
	if err != nil {
		return nil, err
	}

	var result TransferResult
	err = s.db.Transaction(ctx, func(tx *gorm.DB) error {
		from, err := loadUsableAccount(tx, in.FromAccountID, "")
		if err != nil {
			return err
		}
		to, err := loadUsableAccount(tx, in.ToAccountID, "")
		if err != nil {
			return err
		}

		now := s.clock.Now()
		sourceCategoryID := in.CategoryID
		if to.IsCredit() {
			payment := models.PaymentCategoryID(to.ID)
			if sourceCategoryID != "" && sourceCategoryID != models.CategoryAccountTransfer && sourceCategoryID != payment {
				return apperrors.WithMessage(apperrors.ErrInvalidInput,
					"a payment to a credit account must use the account's payment category")
			}
			sourceCategoryID = payment
			if err := database.EnsurePaymentCategory(tx, to, now); err != nil {
				return err
			}
		} else if sourceCategoryID == "" {
			sourceCategoryID = models.CategoryAccountTransfer
		}
		sourceCategory, err := loadUsableCategory(tx, sourceCategoryID, "")
		if err != nil {
			return err
		}
		destCategory, err := loadCategory(tx, models.CategoryAccountTransfer)
		if err != nil {
			return err
		}

		conceptID := uuid.NewAt(now)
		source := models.Transaction{
			AccountID:       from.ID,
			CategoryID:      sourceCategory.ID,
			AmountMinor:     -in.AmountMinor,
			TransactionDate: date,
			Memo:            in.Memo,
			Status:          models.TransactionStatusCleared,
			Source:          models.SourceTransfer,
		}
		source.ConceptID = conceptID
		source.Leg = 0

		dest := source
		dest.AccountID = to.ID
		dest.CategoryID = destCategory.ID
		dest.AmountMinor = in.AmountMinor
		dest.Leg = 1

		if err := s.store.InsertNewVersion(tx, &source, now); err != nil {
			return err
		}
		if err := s.store.InsertNewVersion(tx, &dest, now); err != nil {
			return err
		}

		fx := newEffects()
		fx.transaction(&source, from, sourceCategory, 1)
		fx.transaction(&dest, to, destCategory, 1)
		if err := fx.apply(tx, now); err != nil {
			return err
		}

		result = TransferResult{ConceptID: conceptID, Source: source, Destination: dest}
		return recordEvent(tx, EventTransferCreated, "transaction", conceptID, result, now)
	})
	if err != nil {
		return nil, mapError(err)
	}

	logger.Get().Infow("transfer created",
		"concept_id", result.ConceptID,
		"from_account_id", in.FromAccountID,
		"to_account_id", in.ToAccountID,
		"amount_minor", in.AmountMinor,
	)
	return &result, nil
}

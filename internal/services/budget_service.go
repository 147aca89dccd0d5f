package services

import (
	"context"
	"errors"
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

// SourceReadyToAssign names the Ready to Assign pool in error details.
const SourceReadyToAssign = "ready_to_assign"

// budgetService handles allocations and envelope state.
type budgetService struct {
	db            *database.Writer
	clock         clock.Clock
	store         *allocationStore
	maxFutureDays int
}

// NewBudgetService creates a new BudgetServicer.
func NewBudgetService(db *database.Writer, clk clock.Clock, maxFutureDays int) BudgetServicer {
	return &budgetService{
		db:            db,
		clock:         clk,
		store:         temporal.NewStore[models.Allocation](),
		maxFutureDays: maxFutureDays,
	}
}

// CreateAllocation assigns money to a category for a month.
func (s *budgetService) CreateAllocation(ctx context.Context, in AllocationInput) (*models.Allocation, error) {
	date, err := resolveDate(ctx, s.clock, in.AllocationDate, s.maxFutureDays)
	if err != nil {
		return nil, err
	}
	month := dates.MonthStart(date)
	if in.Month != nil {
		month = dates.MonthStart(*in.Month)
	}

	row := &models.Allocation{
		FromCategoryID: in.FromCategoryID,
		ToCategoryID:   in.ToCategoryID,
		AmountMinor:    in.AmountMinor,
		AllocationDate: date,
		MonthStart:     month,
		Memo:           in.Memo,
	}
	if err := validateAllocationFields(row); err != nil {
		return nil, err
	}

	err = s.db.Transaction(ctx, func(tx *gorm.DB) error {
		if err := checkAllocationCategories(tx, row, nil); err != nil {
			return err
		}

		floor := s.guardFloor(ctx, row.MonthStart)
		before, err := fundsFrom(tx, row.FromCategoryID, floor)
		if err != nil {
			return err
		}

		now := s.clock.Now()
		if err := s.store.InsertNewVersion(tx, row, now); err != nil {
			return err
		}
		fx := newEffects()
		fx.allocation(row, 1)
		if err := fx.apply(tx, now); err != nil {
			return err
		}

		if err := guardFunds(tx, row, floor, before); err != nil {
			return err
		}
		return recordEvent(tx, EventAllocationCreated, "allocation", row.ConceptID, row, now)
	})
	if err != nil {
		return nil, mapError(err)
	}

	logger.Get().Infow("allocation created",
		"concept_id", row.ConceptID,
		"to_category_id", row.ToCategoryID,
		"amount_minor", row.AmountMinor,
		"month", dates.FormatMonth(row.MonthStart),
	)
	return row, nil
}

// UpdateAllocation replaces the active version of an allocation. The guard
// runs against the source of the new version after the old version has been
// reversed, so shrinking an allocation is always allowed.
func (s *budgetService) UpdateAllocation(ctx context.Context, conceptID string, upd AllocationUpdate) (*models.Allocation, error) {
	var next models.Allocation
	err := s.db.Transaction(ctx, func(tx *gorm.DB) error {
		current, err := s.store.Active(tx, conceptID, 0)
		if err != nil {
			return notFound(err, apperrors.ErrAllocationNotFound)
		}
		next = *current

		switch {
		case upd.FromReadyToAssign:
			next.FromCategoryID = nil
		case upd.FromCategoryID != nil:
			from := *upd.FromCategoryID
			next.FromCategoryID = &from
		}
		if upd.ToCategoryID != nil {
			next.ToCategoryID = *upd.ToCategoryID
		}
		if upd.AmountMinor != nil {
			next.AmountMinor = *upd.AmountMinor
		}
		if upd.AllocationDate != nil {
			date, err := resolveDate(ctx, s.clock, upd.AllocationDate, s.maxFutureDays)
			if err != nil {
				return err
			}
			next.AllocationDate = date
			if upd.Month == nil {
				next.MonthStart = dates.MonthStart(date)
			}
		}
		if upd.Month != nil {
			next.MonthStart = dates.MonthStart(*upd.Month)
		}
		if upd.Memo != nil {
			next.Memo = *upd.Memo
		}
		if err := validateAllocationFields(&next); err != nil {
			return err
		}
		if err := checkAllocationCategories(tx, &next, current); err != nil {
			return err
		}

		floor := s.guardFloor(ctx, next.MonthStart)
		before, err := fundsFrom(tx, next.FromCategoryID, floor)
		if err != nil {
			return err
		}

		now := s.clock.Now()
		if _, err := s.store.Replace(tx, upd.ExpectedVersionID, &next, now); err != nil {
			return err
		}
		fx := newEffects()
		fx.allocation(current, -1)
		fx.allocation(&next, 1)
		if err := fx.apply(tx, now); err != nil {
			return err
		}

		if err := guardFunds(tx, &next, floor, before); err != nil {
			return err
		}
		return recordEvent(tx, EventAllocationUpdated, "allocation", conceptID, map[string]any{
			"before": current,
			"after":  next,
		}, now)
	})
	if err != nil {
		return nil, mapError(err)
	}

	logger.Get().Infow("allocation updated", "concept_id", conceptID, "version_id", next.VersionID)
	return &next, nil
}

// DeleteAllocation closes the active version and gives the money back to its
// source.
func (s *budgetService) DeleteAllocation(ctx context.Context, conceptID, expectedVersionID string) error {
	err := s.db.Transaction(ctx, func(tx *gorm.DB) error {
		now := s.clock.Now()
		closed, err := s.store.CloseActive(tx, conceptID, 0, expectedVersionID, now)
		if err != nil {
			return notFound(err, apperrors.ErrAllocationNotFound)
		}
		fx := newEffects()
		fx.allocation(closed, -1)
		if err := fx.apply(tx, now); err != nil {
			return err
		}
		return recordEvent(tx, EventAllocationDeleted, "allocation", conceptID, closed, now)
	})
	if err != nil {
		return mapError(err)
	}

	logger.Get().Infow("allocation deleted", "concept_id", conceptID)
	return nil
}

// GetAllocation returns the active version of an allocation.
func (s *budgetService) GetAllocation(ctx context.Context, conceptID string) (*models.Allocation, error) {
	row, err := s.store.Active(s.db.DB().WithContext(ctx), conceptID, 0)
	if err != nil {
		return nil, mapError(notFound(err, apperrors.ErrAllocationNotFound))
	}
	return row, nil
}

// GetAllocationHistory returns every version of an allocation.
func (s *budgetService) GetAllocationHistory(ctx context.Context, conceptID string) ([]models.Allocation, error) {
	rows, err := s.store.History(s.db.DB().WithContext(ctx), conceptID)
	if err != nil {
		return nil, mapError(notFound(err, apperrors.ErrAllocationNotFound))
	}
	return rows, nil
}

// ListAllocations streams active allocations. A category filter matches
// either side of the move.
func (s *budgetService) ListAllocations(ctx context.Context, filter AllocationFilter) iter.Seq2[models.Allocation, error] {
	return func(yield func(models.Allocation, error) bool) {
		q := s.db.DB().WithContext(ctx).Model(&models.Allocation{}).Where("is_active = ?", true)
		if filter.Month != nil {
			q = q.Where("month_start = ?", dates.MonthStart(*filter.Month))
		}
		if filter.CategoryID != "" {
			q = q.Where("to_category_id = ? OR from_category_id = ?", filter.CategoryID, filter.CategoryID)
		}
		streamRows(q.Order("month_start, allocation_date, recorded_at"), yield)
	}
}

// GetCategoryState returns a category's envelope for month. Months without a
// row report the carried-forward available amount and zero flows. System
// categories always report zeros.
func (s *budgetService) GetCategoryState(ctx context.Context, categoryID string, month time.Time) (*CategoryState, error) {
	month = dates.MonthStart(month)
	state := &CategoryState{CategoryID: categoryID, Month: month}

	err := s.db.Snapshot(ctx, func(tx *gorm.DB) error {
		category, err := loadCategory(tx, categoryID)
		if err != nil {
			return err
		}
		if category.IsSystem {
			return nil
		}

		var row models.CategoryMonthState
		err = tx.Where("category_id = ? AND month_start = ?", categoryID, month).Take(&row).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			state.AvailableMinor, err = availableBefore(tx, categoryID, month)
			return err
		case err != nil:
			return err
		}
		state.AllocatedMinor = row.AllocatedMinor
		state.InflowMinor = row.InflowMinor
		state.ActivityMinor = row.ActivityMinor
		state.AvailableMinor = row.AvailableMinor
		state.Materialized = true
		return nil
	})
	if err != nil {
		return nil, mapError(err)
	}
	return state, nil
}

// RolloverMonth materializes a category's row for month from the previous
// month's available amount. An existing row is returned unchanged.
func (s *budgetService) RolloverMonth(ctx context.Context, categoryID string, month time.Time) (*models.CategoryMonthState, error) {
	month = dates.MonthStart(month)
	var state models.CategoryMonthState
	created := false

	err := s.db.Transaction(ctx, func(tx *gorm.DB) error {
		category, err := loadCategory(tx, categoryID)
		if err != nil {
			return err
		}
		if category.IsSystem {
			return apperrors.WithMessage(apperrors.ErrSystemCategory, "system categories carry no monthly state")
		}

		err = tx.Where("category_id = ? AND month_start = ?", categoryID, month).Take(&state).Error
		if err == nil {
			return nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		prev, err := availableBefore(tx, categoryID, month)
		if err != nil {
			return err
		}
		state = models.CategoryMonthState{
			CategoryID:     categoryID,
			MonthStart:     month,
			AvailableMinor: models.Rollover(prev, 0, 0, 0),
		}
		if err := tx.Create(&state).Error; err != nil {
			return err
		}
		created = true
		return recordEvent(tx, EventMonthRolledOver, "category", categoryID, state, s.clock.Now())
	})
	if err != nil {
		return nil, mapError(err)
	}

	if created {
		logger.Get().Infow("category month rolled over",
			"category_id", categoryID,
			"month", dates.FormatMonth(month),
			"available_minor", state.AvailableMinor,
		)
	}
	return &state, nil
}

// GetReadyToAssign computes the unassigned money for month.
func (s *budgetService) GetReadyToAssign(ctx context.Context, month time.Time) (*ReadyToAssign, error) {
	var rta *ReadyToAssign
	err := s.db.Snapshot(ctx, func(tx *gorm.DB) error {
		var err error
		rta, err = readyToAssign(tx, dates.MonthStart(month))
		return err
	})
	if err != nil {
		return nil, mapError(err)
	}
	return rta, nil
}

// GetBudgetMonth returns Ready to Assign together with every budget
// category's envelope for month. Retired categories are listed only while
// they still hold money.
func (s *budgetService) GetBudgetMonth(ctx context.Context, month time.Time) (*BudgetMonth, error) {
	month = dates.MonthStart(month)
	result := &BudgetMonth{}

	err := s.db.Snapshot(ctx, func(tx *gorm.DB) error {
		rta, err := readyToAssign(tx, month)
		if err != nil {
			return err
		}
		result.ReadyToAssign = *rta

		result.CashInflowMinor, err = cashInflow(tx, month)
		if err != nil {
			return err
		}

		var categories []models.Category
		if err := tx.Where("is_system = ?", false).Order("group_id, name").Find(&categories).Error; err != nil {
			return err
		}

		var latest []models.CategoryMonthState
		err = tx.Raw(`SELECT s.* FROM category_monthly_states s
			WHERE s.month_start = (
				SELECT MAX(s2.month_start) FROM category_monthly_states s2
				WHERE s2.category_id = s.category_id AND s2.month_start <= ?
			)`, month).Scan(&latest).Error
		if err != nil {
			return err
		}
		byCategory := make(map[string]models.CategoryMonthState, len(latest))
		for _, row := range latest {
			byCategory[row.CategoryID] = row
		}

		result.Categories = make([]CategoryState, 0, len(categories))
		for _, c := range categories {
			state := CategoryState{CategoryID: c.ID, Month: month}
			if row, ok := byCategory[c.ID]; ok {
				state.AvailableMinor = row.AvailableMinor
				if row.MonthStart.Equal(month) {
					state.AllocatedMinor = row.AllocatedMinor
					state.InflowMinor = row.InflowMinor
					state.ActivityMinor = row.ActivityMinor
					state.Materialized = true
				}
			}
			if !c.IsActive && state.AvailableMinor == 0 && !state.Materialized {
				continue
			}
			result.Categories = append(result.Categories, state)
		}
		return nil
	})
	if err != nil {
		return nil, mapError(err)
	}
	return result, nil
}

// MonthCashInflow returns the income received into on-budget cash accounts
// during month.
func (s *budgetService) MonthCashInflow(ctx context.Context, month time.Time) (int64, error) {
	total, err := cashInflow(s.db.DB().WithContext(ctx), dates.MonthStart(month))
	if err != nil {
		return 0, mapError(err)
	}
	return total, nil
}

func cashInflow(tx *gorm.DB, month time.Time) (int64, error) {
	var total int64
	err := tx.Model(&models.Transaction{}).
		Select("CAST(COALESCE(SUM(transactions.amount_minor), 0) AS BIGINT)").
		Joins("JOIN accounts a ON a.account_id = transactions.account_id").
		Where("transactions.is_active = ? AND transactions.category_id = ? AND transactions.amount_minor > 0",
			true, models.CategoryReadyToAssign).
		Where("a.account_role = ? AND a.account_class = ?", models.AccountRoleOnBudget, models.AccountClassCash).
		Where("transactions.transaction_date >= ? AND transactions.transaction_date < ?", month, dates.NextMonth(month)).
		Scan(&total).Error
	return total, err
}

func validateAllocationFields(a *models.Allocation) error {
	if a.AmountMinor <= 0 {
		return apperrors.WithMessage(apperrors.ErrInvalidInput, "amount_minor must be positive")
	}
	if a.ToCategoryID == "" {
		return apperrors.WithMessage(apperrors.ErrInvalidInput, "to_category_id is required")
	}
	if a.FromCategoryID != nil && *a.FromCategoryID == a.ToCategoryID {
		return apperrors.WithMessage(apperrors.ErrInvalidInput, "from_category_id and to_category_id must differ")
	}
	return nil
}

// checkAllocationCategories requires both ends of an allocation to be budget
// categories. Retired categories are accepted only where the previous version
// already used them.
func checkAllocationCategories(tx *gorm.DB, a *models.Allocation, previous *models.Allocation) error {
	prevTo, prevFrom := "", ""
	if previous != nil {
		prevTo = previous.ToCategoryID
		if previous.FromCategoryID != nil {
			prevFrom = *previous.FromCategoryID
		}
	}

	to, err := loadUsableCategory(tx, a.ToCategoryID, prevTo)
	if err != nil {
		return err
	}
	if to.IsSystem {
		return apperrors.WithMessage(apperrors.ErrInvalidInput, "cannot allocate to system category "+to.ID)
	}
	if a.FromCategoryID == nil {
		return nil
	}
	from, err := loadUsableCategory(tx, *a.FromCategoryID, prevFrom)
	if err != nil {
		return err
	}
	if from.IsSystem {
		return apperrors.WithMessage(apperrors.ErrInvalidInput, "cannot allocate from system category "+from.ID)
	}
	return nil
}

// guardFloor is the first month an allocation for month has to be covered
// in. A backdated allocation is checked from the current month on.
func (s *budgetService) guardFloor(ctx context.Context, month time.Time) time.Time {
	current := dates.MonthStart(clock.Today(ctx, s.clock))
	if month.Before(current) {
		return current
	}
	return month
}

// guardFunds rejects an allocation that leaves its source negative in floor
// or any later month, unless the source was already at least that far
// negative before the change.
func guardFunds(tx *gorm.DB, a *models.Allocation, floor time.Time, before int64) error {
	after, err := fundsFrom(tx, a.FromCategoryID, floor)
	if err != nil {
		return err
	}
	if after >= 0 || after >= before {
		return nil
	}

	source := SourceReadyToAssign
	if a.FromCategoryID != nil {
		source = *a.FromCategoryID
	}
	return apperrors.WithDetails(apperrors.ErrInsufficientFunds,
		fmt.Sprintf("%s has %d available, %d requested", source, after+a.AmountMinor, a.AmountMinor),
		map[string]any{
			"requested_minor": a.AmountMinor,
			"available_minor": after + a.AmountMinor,
			"source":          source,
			"month":           dates.FormatMonth(a.MonthStart),
		})
}

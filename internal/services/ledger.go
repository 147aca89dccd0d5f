package services

import (
	"errors"
	"sort"
	"time"

	"gorm.io/gorm"

	"dojo/internal/database"
	"dojo/internal/dates"
	apperrors "dojo/internal/errors"
	"dojo/internal/models"
	"dojo/internal/temporal"
)

type (
	transactionStore = temporal.Store[models.Transaction, *models.Transaction]
	allocationStore  = temporal.Store[models.Allocation, *models.Allocation]
)

// envelopeKey addresses one (category, month) cell. Months are kept as Unix
// seconds of their first day so keys compare reliably.
type envelopeKey struct {
	categoryID string
	month      int64
}

func newEnvelopeKey(categoryID string, month time.Time) envelopeKey {
	return envelopeKey{categoryID: categoryID, month: month.Unix()}
}

func (k envelopeKey) monthStart() time.Time {
	return time.Unix(k.month, 0).UTC()
}

type envelopeDelta struct {
	allocated int64
	inflow    int64
	activity  int64
}

func (d *envelopeDelta) available() int64 {
	return d.allocated + d.inflow - d.activity
}

func (d *envelopeDelta) zero() bool {
	return d.allocated == 0 && d.inflow == 0 && d.activity == 0
}

// effects accumulates the cache changes implied by ledger rows. Reversals
// and re-applications of the same cell net out before anything is written.
type effects struct {
	balances  map[string]int64
	envelopes map[envelopeKey]*envelopeDelta
	payments  map[string]*models.Account
}

func newEffects() *effects {
	return &effects{
		balances:  make(map[string]int64),
		envelopes: make(map[envelopeKey]*envelopeDelta),
		payments:  make(map[string]*models.Account),
	}
}

func (e *effects) envelope(categoryID string, month time.Time) *envelopeDelta {
	key := newEnvelopeKey(categoryID, month)
	d, ok := e.envelopes[key]
	if !ok {
		d = &envelopeDelta{}
		e.envelopes[key] = d
	}
	return d
}

// transaction adds sign times the effect of t: the account balance moves by
// the amount, a budget category records the outflow as activity, and a
// purchase on a credit account moves the same money into the account's
// payment category.
func (e *effects) transaction(t *models.Transaction, account *models.Account, category *models.Category, sign int64) {
	amount := sign * t.AmountMinor
	e.balances[account.ID] += amount
	if category.IsSystem {
		return
	}

	month := dates.MonthStart(t.TransactionDate)
	e.envelope(category.ID, month).activity -= amount

	payment := models.PaymentCategoryID(account.ID)
	if account.IsCredit() && category.ID != payment {
		e.envelope(payment, month).inflow -= amount
		e.payments[account.ID] = account
	}
}

// allocation adds sign times the effect of a: the destination gains the
// amount and a category source loses it.
func (e *effects) allocation(a *models.Allocation, sign int64) {
	amount := sign * a.AmountMinor
	e.envelope(a.ToCategoryID, a.MonthStart).allocated += amount
	if a.FromCategoryID != nil {
		e.envelope(*a.FromCategoryID, a.MonthStart).allocated -= amount
	}
}

// apply writes the accumulated effects in a deterministic order.
func (e *effects) apply(tx *gorm.DB, now time.Time) error {
	for _, id := range sortedKeys(e.payments) {
		if err := database.EnsurePaymentCategory(tx, e.payments[id], now); err != nil {
			return err
		}
	}

	for _, id := range sortedKeys(e.balances) {
		delta := e.balances[id]
		if delta == 0 {
			continue
		}
		err := tx.Model(&models.Account{}).Where("account_id = ?", id).Updates(map[string]any{
			"current_balance_minor": gorm.Expr("current_balance_minor + ?", delta),
			"updated_at":            now,
		}).Error
		if err != nil {
			return err
		}
	}

	keys := make([]envelopeKey, 0, len(e.envelopes))
	for k := range e.envelopes {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].categoryID != keys[j].categoryID {
			return keys[i].categoryID < keys[j].categoryID
		}
		return keys[i].month < keys[j].month
	})
	for _, k := range keys {
		if err := applyEnvelope(tx, k, e.envelopes[k]); err != nil {
			return err
		}
	}
	return nil
}

// applyEnvelope adds d to one cell, creating it from the carried-forward
// balance when missing, and shifts the available amount of every later month
// of the category by the same net change.
func applyEnvelope(tx *gorm.DB, key envelopeKey, d *envelopeDelta) error {
	if d.zero() {
		return nil
	}
	month := key.monthStart()

	var state models.CategoryMonthState
	err := tx.Where("category_id = ? AND month_start = ?", key.categoryID, month).Take(&state).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		prev, err := availableBefore(tx, key.categoryID, month)
		if err != nil {
			return err
		}
		state = models.CategoryMonthState{
			CategoryID:     key.categoryID,
			MonthStart:     month,
			AllocatedMinor: d.allocated,
			InflowMinor:    d.inflow,
			ActivityMinor:  d.activity,
			AvailableMinor: models.Rollover(prev, d.allocated, d.inflow, d.activity),
		}
		if err := tx.Create(&state).Error; err != nil {
			return err
		}
	case err != nil:
		return err
	default:
		err := tx.Model(&models.CategoryMonthState{}).
			Where("category_id = ? AND month_start = ?", key.categoryID, month).
			Updates(map[string]any{
				"allocated_minor": gorm.Expr("allocated_minor + ?", d.allocated),
				"inflow_minor":    gorm.Expr("inflow_minor + ?", d.inflow),
				"activity_minor":  gorm.Expr("activity_minor + ?", d.activity),
				"available_minor": gorm.Expr("available_minor + ?", d.available()),
			}).Error
		if err != nil {
			return err
		}
	}

	if delta := d.available(); delta != 0 {
		err := tx.Model(&models.CategoryMonthState{}).
			Where("category_id = ? AND month_start > ?", key.categoryID, month).
			Update("available_minor", gorm.Expr("available_minor + ?", delta)).Error
		if err != nil {
			return err
		}
	}
	return nil
}

// availableAt returns the category's available amount in month, carrying the
// latest earlier month forward when month has no row.
func availableAt(tx *gorm.DB, categoryID string, month time.Time) (int64, error) {
	return latestAvailable(tx, "category_id = ? AND month_start <= ?", categoryID, month)
}

// availableBefore returns the available amount carried into month.
func availableBefore(tx *gorm.DB, categoryID string, month time.Time) (int64, error) {
	return latestAvailable(tx, "category_id = ? AND month_start < ?", categoryID, month)
}

func latestAvailable(tx *gorm.DB, cond string, categoryID string, month time.Time) (int64, error) {
	var rows []models.CategoryMonthState
	if err := tx.Where(cond, categoryID, month).Order("month_start DESC").Limit(1).Find(&rows).Error; err != nil {
		return 0, err
	}
	if len(rows) == 0 {
		return 0, nil
	}
	return rows[0].AvailableMinor, nil
}

// readyToAssign computes RTA(month): on-budget cash balances minus what is
// available in every budget category as of month.
func readyToAssign(tx *gorm.DB, month time.Time) (*ReadyToAssign, error) {
	var cash int64
	err := tx.Model(&models.Account{}).
		Select("CAST(COALESCE(SUM(current_balance_minor), 0) AS BIGINT)").
		Where("account_role = ? AND account_class = ?", models.AccountRoleOnBudget, models.AccountClassCash).
		Scan(&cash).Error
	if err != nil {
		return nil, err
	}

	var envelopes int64
	err = tx.Raw(`SELECT CAST(COALESCE(SUM(s.available_minor), 0) AS BIGINT)
		FROM category_monthly_states s
		JOIN categories c ON c.category_id = s.category_id
		WHERE c.is_system = ? AND s.month_start = (
			SELECT MAX(s2.month_start) FROM category_monthly_states s2
			WHERE s2.category_id = s.category_id AND s2.month_start <= ?
		)`, false, month).Scan(&envelopes).Error
	if err != nil {
		return nil, err
	}

	return &ReadyToAssign{
		Month:               month,
		OnBudgetCashMinor:   cash,
		AvailableTotalMinor: envelopes,
		ReadyToAssignMinor:  cash - envelopes,
	}, nil
}

// fundsFrom returns the least an allocation source holds in floor or in any
// later month that already has envelope rows. Money moved out of floor is
// also gone from every month after it, so each of them must still cover it.
func fundsFrom(tx *gorm.DB, fromCategoryID *string, floor time.Time) (int64, error) {
	var later []models.CategoryMonthState
	q := tx.Model(&models.CategoryMonthState{}).Distinct("month_start").Where("month_start > ?", floor)
	if fromCategoryID != nil {
		q = q.Where("category_id = ?", *fromCategoryID)
	}
	if err := q.Order("month_start").Find(&later).Error; err != nil {
		return 0, err
	}

	least, err := fundsAt(tx, fromCategoryID, floor)
	if err != nil {
		return 0, err
	}
	for _, row := range later {
		funds, err := fundsAt(tx, fromCategoryID, row.MonthStart)
		if err != nil {
			return 0, err
		}
		least = min(least, funds)
	}
	return least, nil
}

// fundsAt returns what an allocation source has to give in month.
func fundsAt(tx *gorm.DB, fromCategoryID *string, month time.Time) (int64, error) {
	if fromCategoryID == nil {
		rta, err := readyToAssign(tx, month)
		if err != nil {
			return 0, err
		}
		return rta.ReadyToAssignMinor, nil
	}
	return availableAt(tx, *fromCategoryID, month)
}

// postTransaction inserts row as a new concept line and applies its effects.
func postTransaction(tx *gorm.DB, store *transactionStore, row *models.Transaction, account *models.Account, category *models.Category, now time.Time) error {
	if err := store.InsertNewVersion(tx, row, now); err != nil {
		return err
	}
	fx := newEffects()
	fx.transaction(row, account, category, 1)
	return fx.apply(tx, now)
}

func loadAccount(tx *gorm.DB, accountID string) (*models.Account, error) {
	var account models.Account
	if err := tx.Where("account_id = ?", accountID).Take(&account).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.WithMessage(apperrors.ErrAccountNotFound, "account "+accountID+" not found")
		}
		return nil, err
	}
	return &account, nil
}

func loadCategory(tx *gorm.DB, categoryID string) (*models.Category, error) {
	var category models.Category
	if err := tx.Where("category_id = ?", categoryID).Take(&category).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.WithMessage(apperrors.ErrCategoryNotFound, "category "+categoryID+" not found")
		}
		return nil, err
	}
	return &category, nil
}

// loadUsableAccount loads an account and requires it to be active unless it
// is the one the previous version already used.
func loadUsableAccount(tx *gorm.DB, accountID, previousID string) (*models.Account, error) {
	account, err := loadAccount(tx, accountID)
	if err != nil {
		return nil, err
	}
	if !account.IsActive && account.ID != previousID {
		return nil, apperrors.WithMessage(apperrors.ErrAccountInactive, "account "+accountID+" is retired")
	}
	return account, nil
}

// loadUsableCategory is loadUsableAccount for categories.
func loadUsableCategory(tx *gorm.DB, categoryID, previousID string) (*models.Category, error) {
	category, err := loadCategory(tx, categoryID)
	if err != nil {
		return nil, err
	}
	if !category.IsActive && category.ID != previousID {
		return nil, apperrors.WithMessage(apperrors.ErrCategoryInactive, "category "+categoryID+" is retired")
	}
	return category, nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

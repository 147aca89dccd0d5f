package services

import (
	"context"
	"fmt"
	"sort"

	"gorm.io/gorm"

	"dojo/internal/clock"
	"dojo/internal/database"
	"dojo/internal/logger"
	"dojo/internal/models"
)

// cacheService recomputes the materialized balances and envelope months from
// the active ledger rows.
type cacheService struct {
	db    *database.Writer
	clock clock.Clock
}

// NewCacheService creates a new CacheServicer.
func NewCacheService(db *database.Writer, clk clock.Clock) CacheServicer {
	return &cacheService{db: db, clock: clk}
}

// ledgerReplay is what the caches should hold according to the ledger.
type ledgerReplay struct {
	accounts []models.Account
	balances map[string]int64
	states   map[envelopeKey]models.CategoryMonthState
	payments map[string]*models.Account
}

// replayLedger folds every active transaction and allocation through the same
// effect rules the write path uses. Cached months without any flow are kept,
// carrying the available amount forward.
func replayLedger(tx *gorm.DB) (*ledgerReplay, error) {
	r := &ledgerReplay{
		balances: make(map[string]int64),
		states:   make(map[envelopeKey]models.CategoryMonthState),
	}

	if err := tx.Order("account_id").Find(&r.accounts).Error; err != nil {
		return nil, err
	}
	accounts := make(map[string]*models.Account, len(r.accounts))
	for i := range r.accounts {
		accounts[r.accounts[i].ID] = &r.accounts[i]
	}

	var categoryRows []models.Category
	if err := tx.Find(&categoryRows).Error; err != nil {
		return nil, err
	}
	categories := make(map[string]*models.Category, len(categoryRows))
	for i := range categoryRows {
		categories[categoryRows[i].ID] = &categoryRows[i]
	}

	fx := newEffects()

	var txns []models.Transaction
	if err := tx.Where("is_active = ?", true).Find(&txns).Error; err != nil {
		return nil, err
	}
	for i := range txns {
		t := &txns[i]
		account, ok := accounts[t.AccountID]
		if !ok {
			return nil, fmt.Errorf("transaction %s references unknown account %s", t.VersionID, t.AccountID)
		}
		category, ok := categories[t.CategoryID]
		if !ok {
			return nil, fmt.Errorf("transaction %s references unknown category %s", t.VersionID, t.CategoryID)
		}
		fx.transaction(t, account, category, 1)
	}

	var allocations []models.Allocation
	if err := tx.Where("is_active = ?", true).Find(&allocations).Error; err != nil {
		return nil, err
	}
	for i := range allocations {
		fx.allocation(&allocations[i], 1)
	}

	var cached []models.CategoryMonthState
	if err := tx.Select("category_id, month_start").Find(&cached).Error; err != nil {
		return nil, err
	}
	for _, row := range cached {
		if c, ok := categories[row.CategoryID]; ok && !c.IsSystem {
			fx.envelope(row.CategoryID, row.MonthStart)
		}
	}

	r.balances = fx.balances
	r.payments = fx.payments

	byCategory := make(map[string][]envelopeKey)
	for k := range fx.envelopes {
		byCategory[k.categoryID] = append(byCategory[k.categoryID], k)
	}
	for categoryID, keys := range byCategory {
		sort.Slice(keys, func(i, j int) bool { return keys[i].month < keys[j].month })
		var available int64
		for _, k := range keys {
			d := fx.envelopes[k]
			available = models.Rollover(available, d.allocated, d.inflow, d.activity)
			r.states[k] = models.CategoryMonthState{
				CategoryID:     categoryID,
				MonthStart:     k.monthStart(),
				AllocatedMinor: d.allocated,
				InflowMinor:    d.inflow,
				ActivityMinor:  d.activity,
				AvailableMinor: available,
			}
		}
	}
	return r, nil
}

// diff compares the replay with the caches currently stored.
func (r *ledgerReplay) diff(tx *gorm.DB, report *CacheReport) error {
	report.AccountsChecked = len(r.accounts)
	for _, a := range r.accounts {
		if expected := r.balances[a.ID]; a.CurrentBalanceMinor != expected {
			report.AccountDrift = append(report.AccountDrift, AccountDrift{
				AccountID: a.ID,
				Cached:    a.CurrentBalanceMinor,
				Expected:  expected,
			})
		}
	}

	var cached []models.CategoryMonthState
	if err := tx.Find(&cached).Error; err != nil {
		return err
	}
	seen := make(map[envelopeKey]bool, len(cached))
	for _, row := range cached {
		key := newEnvelopeKey(row.CategoryID, row.MonthStart)
		seen[key] = true
		expected := r.states[key]
		expected.CategoryID = row.CategoryID
		expected.MonthStart = key.monthStart()
		if !sameFigures(row, expected) {
			report.CategoryDrift = append(report.CategoryDrift, CategoryDrift{
				CategoryID: row.CategoryID,
				Month:      key.monthStart(),
				Cached:     row,
				Expected:   expected,
			})
		}
	}
	for key, expected := range r.states {
		if !seen[key] {
			report.CategoryDrift = append(report.CategoryDrift, CategoryDrift{
				CategoryID: key.categoryID,
				Month:      key.monthStart(),
				Cached:     models.CategoryMonthState{CategoryID: key.categoryID, MonthStart: key.monthStart()},
				Expected:   expected,
			})
		}
	}
	report.CategoryMonthsChecked = len(r.states)

	sort.Slice(report.CategoryDrift, func(i, j int) bool {
		a, b := report.CategoryDrift[i], report.CategoryDrift[j]
		if a.CategoryID != b.CategoryID {
			return a.CategoryID < b.CategoryID
		}
		return a.Month.Before(b.Month)
	})
	return nil
}

func sameFigures(a, b models.CategoryMonthState) bool {
	return a.AllocatedMinor == b.AllocatedMinor &&
		a.InflowMinor == b.InflowMinor &&
		a.ActivityMinor == b.ActivityMinor &&
		a.AvailableMinor == b.AvailableMinor
}

// Verify reports drift between the caches and the ledger without writing.
func (s *cacheService) Verify(ctx context.Context) (*CacheReport, error) {
	report := &CacheReport{}
	err := s.db.Snapshot(ctx, func(tx *gorm.DB) error {
		replay, err := replayLedger(tx)
		if err != nil {
			return err
		}
		return replay.diff(tx, report)
	})
	if err != nil {
		return nil, mapError(err)
	}
	return report, nil
}

// Rebuild recomputes the caches from the ledger in one write transaction. The
// report lists the drift that was repaired.
func (s *cacheService) Rebuild(ctx context.Context, opts RebuildOptions) (*CacheReport, error) {
	report := &CacheReport{}
	err := s.db.Transaction(ctx, func(tx *gorm.DB) error {
		replay, err := replayLedger(tx)
		if err != nil {
			return err
		}
		if err := replay.diff(tx, report); err != nil {
			return err
		}

		now := s.clock.Now()
		if !opts.SkipAccounts {
			for _, d := range report.AccountDrift {
				err := tx.Model(&models.Account{}).Where("account_id = ?", d.AccountID).
					Updates(map[string]any{"current_balance_minor": d.Expected, "updated_at": now}).Error
				if err != nil {
					return err
				}
			}
		}

		if !opts.SkipCategories {
			for _, id := range sortedKeys(replay.payments) {
				if err := database.EnsurePaymentCategory(tx, replay.payments[id], now); err != nil {
					return err
				}
			}
			if err := tx.Where("1 = 1").Delete(&models.CategoryMonthState{}).Error; err != nil {
				return err
			}
			rows := make([]models.CategoryMonthState, 0, len(replay.states))
			for _, row := range replay.states {
				rows = append(rows, row)
			}
			if len(rows) > 0 {
				if err := tx.CreateInBatches(rows, 200).Error; err != nil {
					return err
				}
			}
		}

		report.Rebuilt = true
		return recordEvent(tx, EventCacheRebuilt, "cache", "ledger", map[string]any{
			"accounts_checked":        report.AccountsChecked,
			"category_months_checked": report.CategoryMonthsChecked,
			"account_drift":           len(report.AccountDrift),
			"category_drift":          len(report.CategoryDrift),
			"skip_accounts":           opts.SkipAccounts,
			"skip_categories":         opts.SkipCategories,
		}, now)
	})
	if err != nil {
		return nil, mapError(err)
	}

	logger.Get().Infow("caches rebuilt",
		"accounts_checked", report.AccountsChecked,
		"category_months_checked", report.CategoryMonthsChecked,
		"account_drift", len(report.AccountDrift),
		"category_drift", len(report.CategoryDrift),
	)
	return report, nil
}

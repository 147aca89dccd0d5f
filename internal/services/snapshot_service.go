package services

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"dojo/internal/clock"
	"dojo/internal/database"
	"dojo/internal/dates"
	apperrors "dojo/internal/errors"
	"dojo/internal/logger"
	"dojo/internal/models"
	"dojo/internal/pagination"
)

// MaxHistoryDays bounds the span of one net worth history request.
const MaxHistoryDays = 366

// snapshotService records and reads net worth over time.
type snapshotService struct {
	db    *database.Writer
	clock clock.Clock
}

// NewSnapshotService creates a new SnapshotServicer.
func NewSnapshotService(db *database.Writer, clk clock.Clock) SnapshotServicer {
	return &snapshotService{db: db, clock: clk}
}

// RecordSnapshot stores today's net worth from the cached account balances,
// replacing an earlier snapshot of the same day.
func (s *snapshotService) RecordSnapshot(ctx context.Context) (*models.NetWorthSnapshot, error) {
	var snapshot models.NetWorthSnapshot
	err := s.db.Transaction(ctx, func(tx *gorm.DB) error {
		nw, err := sumNetWorth(tx)
		if err != nil {
			return err
		}

		now := s.clock.Now()
		snapshot = models.NetWorthSnapshot{
			SnapshotDate:     clock.Today(ctx, s.clock),
			AssetsMinor:      nw.AssetsMinor,
			LiabilitiesMinor: nw.LiabilitiesMinor,
			NetWorthMinor:    nw.NetWorthMinor,
			RecordedAt:       now,
		}
		err = tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "snapshot_date"}},
			DoUpdates: clause.AssignmentColumns([]string{"assets_minor", "liabilities_minor", "net_worth_minor", "recorded_at"}),
		}).Create(&snapshot).Error
		if err != nil {
			return err
		}

		return recordEvent(tx, EventNetWorthRecorded, "net_worth_snapshot", dates.FormatDate(snapshot.SnapshotDate), snapshot, now)
	})
	if err != nil {
		return nil, mapError(err)
	}

	logger.Get().Infow("net worth snapshot recorded",
		"snapshot_date", dates.FormatDate(snapshot.SnapshotDate),
		"net_worth_minor", snapshot.NetWorthMinor,
	)
	return &snapshot, nil
}

// ListSnapshots returns recorded snapshots, newest first. Nil bounds are open.
func (s *snapshotService) ListSnapshots(ctx context.Context, from, to *time.Time, page pagination.PageRequest) (*pagination.PageResponse[models.NetWorthSnapshot], error) {
	page.Defaults()

	base := s.db.DB().WithContext(ctx).Model(&models.NetWorthSnapshot{})
	if from != nil {
		base = base.Where("snapshot_date >= ?", dates.Day(*from))
	}
	if to != nil {
		base = base.Where("snapshot_date <= ?", dates.Day(*to))
	}

	var totalItems int64
	if err := base.Count(&totalItems).Error; err != nil {
		return nil, mapError(err)
	}

	var snapshots []models.NetWorthSnapshot
	if err := base.Order("snapshot_date DESC").Scopes(pagination.Paginate(page)).Find(&snapshots).Error; err != nil {
		return nil, mapError(err)
	}

	result := pagination.NewPageResponse(snapshots, page.Page, page.PageSize, totalItems)
	return &result, nil
}

// History replays active transactions into one net worth point per day from
// from to to, both inclusive.
func (s *snapshotService) History(ctx context.Context, from, to time.Time) ([]NetWorthPoint, error) {
	from, to = dates.Day(from), dates.Day(to)
	if to.Before(from) {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "from must not be after to")
	}
	if days := int(to.Sub(from).Hours()/24) + 1; days > MaxHistoryDays {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput,
			fmt.Sprintf("history spans %d days, at most %d are allowed", days, MaxHistoryDays))
	}

	var rows []struct {
		TransactionDate time.Time
		AmountMinor     int64
	}
	err := s.db.DB().WithContext(ctx).Model(&models.Transaction{}).
		Select("transaction_date, amount_minor").
		Where("is_active = ? AND transaction_date <= ?", true, to).
		Order("transaction_date").
		Scan(&rows).Error
	if err != nil {
		return nil, mapError(err)
	}

	points := make([]NetWorthPoint, 0, int(to.Sub(from).Hours()/24)+1)
	var running int64
	i := 0
	for d := from; !d.After(to); d = d.AddDate(0, 0, 1) {
		for i < len(rows) && !dates.Day(rows[i].TransactionDate).After(d) {
			running += rows[i].AmountMinor
			i++
		}
		points = append(points, NetWorthPoint{Date: d, NetWorthMinor: running})
	}
	return points, nil
}

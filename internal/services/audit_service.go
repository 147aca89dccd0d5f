package services

import (
	"context"
	"encoding/json"
	"time"

	"gorm.io/gorm"

	"dojo/internal/database"
	apperrors "dojo/internal/errors"
	"dojo/internal/logger"
	"dojo/internal/models"
	"dojo/internal/pagination"
	"dojo/internal/uuid"
)

// Event kinds.
const (
	EventTransactionCreated    = "transaction.created"
	EventTransactionUpdated    = "transaction.updated"
	EventTransactionDeleted    = "transaction.deleted"
	EventTransferCreated       = "transfer.created"
	EventAllocationCreated     = "allocation.created"
	EventAllocationUpdated     = "allocation.updated"
	EventAllocationDeleted     = "allocation.deleted"
	EventReconciliationCreated = "reconciliation.created"
	EventAccountCreated        = "account.created"
	EventAccountUpdated        = "account.updated"
	EventAccountRetired        = "account.retired"
	EventCategoryCreated       = "category.created"
	EventCategoryUpdated       = "category.updated"
	EventCategoryRetired       = "category.retired"
	EventGroupCreated          = "category_group.created"
	EventGroupUpdated          = "category_group.updated"
	EventGroupRetired          = "category_group.retired"
	EventMonthRolledOver       = "category_month.rolled_over"
	EventCacheRebuilt          = "cache.rebuilt"
	EventNetWorthRecorded      = "net_worth.recorded"
)

// recordEvent appends a change event inside the caller's transaction, so the
// feed never shows a change that was rolled back.
func recordEvent(tx *gorm.DB, kind, entityType, entityID string, payload any, at time.Time) error {
	payloadJSON := "{}"
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			logger.Get().Errorw("failed to marshal ledger event payload", "error", err, "kind", kind)
		} else {
			payloadJSON = string(data)
		}
	}

	return tx.Create(&models.LedgerEvent{
		ID:         uuid.NewAt(at),
		Kind:       kind,
		EntityType: entityType,
		EntityID:   entityID,
		Payload:    payloadJSON,
		RecordedAt: at,
	}).Error
}

// eventService reads the change feed.
type eventService struct {
	db *database.Writer
}

// NewEventService creates a new EventServicer.
func NewEventService(db *database.Writer) EventServicer {
	return &eventService{db: db}
}

// List returns change events oldest first.
func (s *eventService) List(ctx context.Context, filter EventFilter, page pagination.PageRequest) (*pagination.PageResponse[models.LedgerEvent], error) {
	page.Defaults()

	base := s.db.DB().WithContext(ctx).Model(&models.LedgerEvent{})
	if filter.Since != nil {
		base = base.Where("recorded_at > ?", *filter.Since)
	}
	if filter.EntityType != "" {
		base = base.Where("entity_type = ?", filter.EntityType)
	}
	if filter.EntityID != "" {
		base = base.Where("entity_id = ?", filter.EntityID)
	}

	var totalItems int64
	if err := base.Count(&totalItems).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrStorageFailure, err)
	}

	var events []models.LedgerEvent
	if err := base.Order("recorded_at, event_id").Scopes(pagination.Paginate(page)).Find(&events).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrStorageFailure, err)
	}

	result := pagination.NewPageResponse(events, page.Page, page.PageSize, totalItems)
	return &result, nil
}

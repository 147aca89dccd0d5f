package models

import "time"

// LedgerEvent is an append-only record of a committed ledger change.
type LedgerEvent struct {
	ID         string    `gorm:"column:event_id;primaryKey" json:"event_id"`
	Kind       string    `gorm:"not null" json:"kind"`
	EntityType string    `gorm:"column:entity_type;not null" json:"entity_type"`
	EntityID   string    `gorm:"column:entity_id;not null" json:"entity_id"`
	Payload    string    `gorm:"not null" json:"payload"`
	RecordedAt time.Time `gorm:"column:recorded_at;not null" json:"recorded_at"`
}

// TableName implements gorm's Tabler.
func (LedgerEvent) TableName() string { return "ledger_events" }

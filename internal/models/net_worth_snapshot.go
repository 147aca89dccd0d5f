package models

import "time"

// NetWorthSnapshot is the net worth recorded for one calendar day. Recording
// again on the same day overwrites the figures.
type NetWorthSnapshot struct {
	SnapshotDate     time.Time `gorm:"column:snapshot_date;primaryKey" json:"snapshot_date"`
	AssetsMinor      int64     `gorm:"column:assets_minor;not null" json:"assets_minor"`
	LiabilitiesMinor int64     `gorm:"column:liabilities_minor;not null" json:"liabilities_minor"`
	NetWorthMinor    int64     `gorm:"column:net_worth_minor;not null" json:"net_worth_minor"`
	RecordedAt       time.Time `gorm:"column:recorded_at;not null" json:"recorded_at"`
}

// TableName implements gorm's Tabler.
func (NetWorthSnapshot) TableName() string { return "net_worth_snapshots" }

package models

import (
	"time"
)

// Version holds the SCD2 columns shared by every versioned ledger row.
// A line is identified by (ConceptID, Leg); at most one version per line
// is active and the versions of a line form a contiguous chain where each
// ValidTo equals the next version's ValidFrom.
type Version struct {
	VersionID  string     `gorm:"column:version_id;primaryKey" json:"version_id"`
	ConceptID  string     `gorm:"column:concept_id;not null" json:"concept_id"`
	Leg        int        `gorm:"column:leg;not null" json:"leg"`
	IsActive   bool       `gorm:"column:is_active;not null" json:"is_active"`
	ValidFrom  time.Time  `gorm:"column:valid_from;not null" json:"valid_from"`
	ValidTo    *time.Time `gorm:"column:valid_to" json:"valid_to,omitempty"`
	RecordedAt time.Time  `gorm:"column:recorded_at;not null" json:"recorded_at"`
}

// Meta gives generic code access to the version columns of an embedding row.
func (v *Version) Meta() *Version { return v }

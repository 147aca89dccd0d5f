// Package temporal implements slowly-changing-dimension (type 2) storage for
// ledger rows. Rows are never updated in place or deleted: a correction
// closes the active version of a line and inserts its successor.
package temporal

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"dojo/internal/models"
	"dojo/internal/uuid"
)

var (
	// ErrNotFound means the line has no active version.
	ErrNotFound = errors.New("temporal: no active version")
	// ErrConcurrentModification means the active version changed underneath the caller.
	ErrConcurrentModification = errors.New("temporal: concurrent modification")
)

// ConflictError describes a failed compare-and-swap on a line.
type ConflictError struct {
	ConceptID string
	Leg       int
	Expected  string
	Actual    string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("temporal: line %s/%d expected version %s, active is %s", e.ConceptID, e.Leg, e.Expected, e.Actual)
}

// Is lets errors.Is match ErrConcurrentModification.
func (e *ConflictError) Is(target error) bool {
	return target == ErrConcurrentModification
}

// Row is a pointer to a gorm model that embeds models.Version.
type Row[T any] interface {
	*T
	Meta() *models.Version
}

// Store versions rows of type T. It holds no state besides the type; every
// method runs on the transaction it is given.
type Store[T any, P Row[T]] struct{}

// NewStore returns a store for T.
func NewStore[T any, P Row[T]]() *Store[T, P] {
	return &Store[T, P]{}
}

// Active returns the active version of the line (conceptID, leg).
func (s *Store[T, P]) Active(tx *gorm.DB, conceptID string, leg int) (*T, error) {
	var row T
	err := tx.Where("concept_id = ? AND leg = ? AND is_active = ?", conceptID, leg, true).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

// ActiveLegs returns every active line of a concept ordered by leg.
// ErrNotFound is returned when the concept has no active line.
func (s *Store[T, P]) ActiveLegs(tx *gorm.DB, conceptID string) ([]T, error) {
	var rows []T
	if err := tx.Where("concept_id = ? AND is_active = ?", conceptID, true).Order("leg").Find(&rows).Error; err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, ErrNotFound
	}
	return rows, nil
}

// History returns every version of a concept, oldest first within each leg.
func (s *Store[T, P]) History(tx *gorm.DB, conceptID string) ([]T, error) {
	var rows []T
	if err := tx.Where("concept_id = ?", conceptID).Order("leg, valid_from, recorded_at").Find(&rows).Error; err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, ErrNotFound
	}
	return rows, nil
}

// CloseActive ends the active version of a line at asOf. When expectedVersionID
// is set it must name the active version. The close is a conditional update,
// so a racing writer that already closed the version is detected even if it
// slipped past the read. The closed row is returned with its new metadata.
func (s *Store[T, P]) CloseActive(tx *gorm.DB, conceptID string, leg int, expectedVersionID string, asOf time.Time) (*T, error) {
	current, err := s.Active(tx, conceptID, leg)
	if err != nil {
		return nil, err
	}
	meta := P(current).Meta()
	if expectedVersionID != "" && meta.VersionID != expectedVersionID {
		return nil, &ConflictError{ConceptID: conceptID, Leg: leg, Expected: expectedVersionID, Actual: meta.VersionID}
	}

	asOf = s.after(meta.ValidFrom, asOf)
	res := tx.Model(new(T)).
		Where("version_id = ? AND is_active = ?", meta.VersionID, true).
		Updates(map[string]any{"is_active": false, "valid_to": asOf})
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, &ConflictError{ConceptID: conceptID, Leg: leg, Expected: meta.VersionID}
	}

	meta.IsActive = false
	meta.ValidTo = &asOf
	return current, nil
}

// InsertNewVersion stores row as the active version of its line, valid from
// validFrom. A new concept id is minted when the row has none.
func (s *Store[T, P]) InsertNewVersion(tx *gorm.DB, row P, validFrom time.Time) error {
	meta := row.Meta()
	validFrom = validFrom.UTC().Truncate(time.Microsecond)
	if meta.ConceptID == "" {
		meta.ConceptID = uuid.NewAt(validFrom)
	}
	meta.VersionID = uuid.NewAt(validFrom)
	meta.IsActive = true
	meta.ValidFrom = validFrom
	meta.ValidTo = nil
	meta.RecordedAt = validFrom

	if err := tx.Create(row).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return &ConflictError{ConceptID: meta.ConceptID, Leg: meta.Leg, Expected: "none"}
		}
		return err
	}
	return nil
}

// Replace closes the active version of next's line and inserts next as its
// successor. The old ValidTo and the new ValidFrom are the same instant.
func (s *Store[T, P]) Replace(tx *gorm.DB, expectedVersionID string, next P, asOf time.Time) (*T, error) {
	meta := next.Meta()
	prev, err := s.CloseActive(tx, meta.ConceptID, meta.Leg, expectedVersionID, asOf)
	if err != nil {
		return nil, err
	}
	if err := s.InsertNewVersion(tx, next, *P(prev).Meta().ValidTo); err != nil {
		return nil, err
	}
	return prev, nil
}

// after keeps versions of one line strictly ordered even when the clock
// stalls or steps backwards.
func (s *Store[T, P]) after(prevFrom, asOf time.Time) time.Time {
	asOf = asOf.UTC().Truncate(time.Microsecond)
	if !asOf.After(prevFrom) {
		return prevFrom.UTC().Add(time.Microsecond)
	}
	return asOf
}

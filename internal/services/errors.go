package services

import (
	"errors"

	"gorm.io/gorm"

	"dojo/internal/database"
	apperrors "dojo/internal/errors"
	"dojo/internal/temporal"
)

// mapError turns storage-level failures into AppErrors. AppErrors raised
// inside a write transaction pass through unchanged.
func mapError(err error) error {
	if err == nil {
		return nil
	}

	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return appErr
	}

	var conflict *temporal.ConflictError
	switch {
	case errors.As(err, &conflict):
		return apperrors.WithDetails(apperrors.ErrConcurrentModification, conflict.Error(), map[string]any{
			"concept_id":       conflict.ConceptID,
			"leg":              conflict.Leg,
			"expected_version": conflict.Expected,
			"active_version":   conflict.Actual,
		})
	case errors.Is(err, temporal.ErrConcurrentModification):
		return apperrors.Wrap(apperrors.ErrConcurrentModification, err)
	case database.IsBusy(err):
		return apperrors.Wrap(apperrors.ErrBusy, err)
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return apperrors.Wrap(apperrors.ErrConcurrentModification, err)
	default:
		return apperrors.Wrap(apperrors.ErrStorageFailure, err)
	}
}

// notFound maps a missing active version to the given sentinel.
func notFound(err error, sentinel *apperrors.AppError) error {
	if errors.Is(err, temporal.ErrNotFound) {
		return sentinel
	}
	return err
}

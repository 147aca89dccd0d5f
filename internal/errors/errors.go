// Package errors provides custom error types for the dojo ledger engine.
// All service-layer errors should use AppError so that callers get a stable
// code, a safe message and optional structured details, while storage errors
// stay attached as Internal and are never rendered to clients.
package errors

import "net/http"

// AppError represents a structured application error with an error code,
// human-readable message, HTTP status code, optional details and an
// optional internal error.
type AppError struct {
	Code       string         `json:"code"`
	Message    string         `json:"message"`
	Details    map[string]any `json:"details,omitempty"`
	StatusCode int            `json:"-"`
	Internal   error          `json:"-"`
}

// Error implements the error interface.
func (e *AppError) Error() string { return e.Message }

// Unwrap returns the internal error for use with errors.Is/As.
func (e *AppError) Unwrap() error { return e.Internal }

// Is reports whether target is an AppError carrying the same code, so that
// errors.Is(err, ErrInsufficientFunds) matches derived errors too.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	return ok && t.Code == e.Code
}

// Wrap creates a new AppError with the same code/message/status but wraps an internal error.
func Wrap(sentinel *AppError, internal error) *AppError {
	return &AppError{
		Code:       sentinel.Code,
		Message:    sentinel.Message,
		Details:    sentinel.Details,
		StatusCode: sentinel.StatusCode,
		Internal:   internal,
	}
}

// WithMessage creates a new AppError with a custom message.
func WithMessage(sentinel *AppError, message string) *AppError {
	return &AppError{
		Code:       sentinel.Code,
		Message:    message,
		Details:    sentinel.Details,
		StatusCode: sentinel.StatusCode,
		Internal:   sentinel.Internal,
	}
}

// WithDetails creates a new AppError with a custom message and structured details.
func WithDetails(sentinel *AppError, message string, details map[string]any) *AppError {
	return &AppError{
		Code:       sentinel.Code,
		Message:    message,
		Details:    details,
		StatusCode: sentinel.StatusCode,
		Internal:   sentinel.Internal,
	}
}

// General errors.
var (
	ErrInvalidInput   = &AppError{Code: "VALIDATION_ERROR", Message: "Invalid input", StatusCode: http.StatusBadRequest}
	ErrNotFound       = &AppError{Code: "NOT_FOUND", Message: "Resource not found", StatusCode: http.StatusNotFound}
	ErrInternalServer = &AppError{Code: "INTERNAL_ERROR", Message: "An internal error occurred", StatusCode: http.StatusInternalServerError}
)

// Storage and concurrency errors.
var (
	ErrStorageFailure         = &AppError{Code: "STORAGE_FAILURE", Message: "The ledger store failed to complete the operation", StatusCode: http.StatusInternalServerError}
	ErrBusy                   = &AppError{Code: "BUSY", Message: "The ledger is busy, retry shortly", StatusCode: http.StatusServiceUnavailable}
	ErrConcurrentModification = &AppError{Code: "CONCURRENT_MODIFICATION", Message: "The record was modified by another writer", StatusCode: http.StatusConflict}
	ErrVersionRequired        = &AppError{Code: "VERSION_REQUIRED", Message: "Send expected_version_id or an If-Match header naming the active version", StatusCode: http.StatusPreconditionRequired}
)

// Account errors.
var (
	ErrAccountNotFound = &AppError{Code: "ACCOUNT_NOT_FOUND", Message: "Account not found", StatusCode: http.StatusNotFound}
	ErrAccountInactive = &AppError{Code: "ACCOUNT_INACTIVE", Message: "Account is retired", StatusCode: http.StatusConflict}
	ErrAccountExists   = &AppError{Code: "ACCOUNT_EXISTS", Message: "An account with this id already exists", StatusCode: http.StatusConflict}
)

// Category errors.
var (
	ErrCategoryNotFound  = &AppError{Code: "CATEGORY_NOT_FOUND", Message: "Category not found", StatusCode: http.StatusNotFound}
	ErrCategoryInactive  = &AppError{Code: "CATEGORY_INACTIVE", Message: "Category is retired", StatusCode: http.StatusConflict}
	ErrCategoryExists    = &AppError{Code: "CATEGORY_EXISTS", Message: "A category with this id already exists", StatusCode: http.StatusConflict}
	ErrSystemCategory    = &AppError{Code: "SYSTEM_CATEGORY", Message: "System categories cannot be changed", StatusCode: http.StatusConflict}
	ErrGroupNotFound     = &AppError{Code: "GROUP_NOT_FOUND", Message: "Category group not found", StatusCode: http.StatusNotFound}
	ErrGroupExists       = &AppError{Code: "GROUP_EXISTS", Message: "A category group with this id already exists", StatusCode: http.StatusConflict}
	ErrInsufficientFunds = &AppError{Code: "INSUFFICIENT_FUNDS", Message: "Not enough money available to assign", StatusCode: http.StatusUnprocessableEntity}
)

// Ledger errors.
var (
	ErrTransactionNotFound = &AppError{Code: "TRANSACTION_NOT_FOUND", Message: "Transaction not found", StatusCode: http.StatusNotFound}
	ErrAllocationNotFound  = &AppError{Code: "ALLOCATION_NOT_FOUND", Message: "Allocation not found", StatusCode: http.StatusNotFound}
	ErrSameAccountTransfer = &AppError{Code: "VALIDATION_ERROR", Message: "Cannot transfer to the same account", StatusCode: http.StatusBadRequest}
	ErrTransferNotEditable = &AppError{Code: "VALIDATION_ERROR", Message: "Transfer legs cannot be edited individually; delete and recreate the transfer", StatusCode: http.StatusBadRequest}
)

// Reconciliation errors.
var (
	ErrBalanceMismatch = &AppError{Code: "BALANCE_MISMATCH", Message: "Cleared balance does not match the statement balance", StatusCode: http.StatusUnprocessableEntity}
)

package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mattn/go-sqlite3"
	"golang.org/x/sync/semaphore"
	"gorm.io/gorm"
)

// ErrBusy is returned when the writer lock cannot be taken in time.
var ErrBusy = errors.New("database: writer busy")

// Writer serialises every mutation of the ledger. All writes go through
// Transaction; reads may use DB directly.
type Writer struct {
	db      *gorm.DB
	sem     *semaphore.Weighted
	timeout time.Duration
}

// NewWriter wraps db with a single-writer lock. A zero timeout waits only as
// long as ctx allows.
func NewWriter(db *gorm.DB, timeout time.Duration) *Writer {
	return &Writer{db: db, sem: semaphore.NewWeighted(1), timeout: timeout}
}

// DB returns the handle for lock-free reads.
func (w *Writer) DB() *gorm.DB {
	return w.db
}

// Transaction takes the writer lock and runs fn inside one database
// transaction. fn's error rolls the transaction back and is returned as is.
func (w *Writer) Transaction(ctx context.Context, fn func(tx *gorm.DB) error) error {
	acquireCtx := ctx
	if w.timeout > 0 {
		var cancel context.CancelFunc
		acquireCtx, cancel = context.WithTimeout(ctx, w.timeout)
		defer cancel()
	}

	if err := w.sem.Acquire(acquireCtx, 1); err != nil {
		return fmt.Errorf("%w: %v", ErrBusy, err)
	}
	defer w.sem.Release(1)

	return w.db.WithContext(ctx).Transaction(fn)
}

// Snapshot runs fn inside a read transaction so multi-query reads see one
// consistent state.
func (w *Writer) Snapshot(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return w.db.WithContext(ctx).Transaction(fn)
}

// IsBusy reports whether err means the store was locked by someone else.
func IsBusy(err error) bool {
	if errors.Is(err, ErrBusy) {
		return true
	}
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.Code == sqlite3.ErrBusy || sqliteErr.Code == sqlite3.ErrLocked
	}
	return false
}

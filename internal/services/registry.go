package services

import (
	"dojo/internal/clock"
	"dojo/internal/database"
)

// Options tunes the services built by NewRegistry.
type Options struct {
	MaxFutureDays   int
	DefaultCurrency string
}

// Registry holds one instance of every service, all sharing one writer and
// one clock.
type Registry struct {
	Accounts        AccountServicer
	Categories      CategoryServicer
	Transactions    TransactionServicer
	Transfers       TransferServicer
	Budget          BudgetServicer
	Reconciliations ReconciliationServicer
	Cache           CacheServicer
	Events          EventServicer
	Snapshots       SnapshotServicer
}

// NewRegistry wires the services.
func NewRegistry(w *database.Writer, clk clock.Clock, opts Options) *Registry {
	return &Registry{
		Accounts:        NewAccountService(w, clk, opts.DefaultCurrency, opts.MaxFutureDays),
		Categories:      NewCategoryService(w, clk),
		Transactions:    NewTransactionService(w, clk, opts.MaxFutureDays),
		Transfers:       NewTransferService(w, clk, opts.MaxFutureDays),
		Budget:          NewBudgetService(w, clk, opts.MaxFutureDays),
		Reconciliations: NewReconciliationService(w, clk),
		Cache:           NewCacheService(w, clk),
		Events:          NewEventService(w),
		Snapshots:       NewSnapshotService(w, clk),
	}
}

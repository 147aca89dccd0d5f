package models

import "time"

// TransactionStatus tracks whether a transaction has posted at the bank.
type TransactionStatus string

const (
	TransactionStatusPending TransactionStatus = "pending"
	TransactionStatusCleared TransactionStatus = "cleared"
)

// Valid reports whether s is a known status.
func (s TransactionStatus) Valid() bool {
	return s == TransactionStatusPending || s == TransactionStatusCleared
}

// Sources of ledger entries.
const (
	SourceAPI      = "api"
	SourceTransfer = "transfer"
	SourceCLI      = "cli"
	SourceOpening  = "opening"
)

// Transaction is one version of a ledger line. AmountMinor is signed:
// inflows are positive, outflows negative.
type Transaction struct {
	Version
	AccountID       string            `gorm:"column:account_id;not null" json:"account_id"`
	CategoryID      string            `gorm:"column:category_id;not null" json:"category_id"`
	AmountMinor     int64             `gorm:"column:amount_minor;not null" json:"amount_minor"`
	TransactionDate time.Time         `gorm:"column:transaction_date;not null" json:"transaction_date"`
	Memo            string            `gorm:"not null" json:"memo"`
	Status          TransactionStatus `gorm:"not null" json:"status"`
	Source          string            `gorm:"not null" json:"source"`
}

// TableName implements gorm's Tabler.
func (Transaction) TableName() string { return "transactions" }

// Reconciliation is an immutable checkpoint of an account against a statement.
type Reconciliation struct {
	ID                         string    `gorm:"column:reconciliation_id;primaryKey" json:"reconciliation_id"`
	AccountID                  string    `gorm:"column:account_id;not null" json:"account_id"`
	CreatedAt                  time.Time `gorm:"column:created_at;not null" json:"created_at"`
	StatementDate              time.Time `gorm:"column:statement_date;not null" json:"statement_date"`
	StatementBalanceMinor      int64     `gorm:"column:statement_balance_minor;not null" json:"statement_balance_minor"`
	StatementPendingTotalMinor int64     `gorm:"column:statement_pending_total_minor;not null" json:"statement_pending_total_minor"`
	PreviousReconciliationID   *string   `gorm:"column:previous_reconciliation_id" json:"previous_reconciliation_id,omitempty"`
}

// TableName implements gorm's Tabler.
func (Reconciliation) TableName() string { return "reconciliations" }

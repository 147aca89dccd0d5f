package services

import (
	"context"
	"iter"
	"time"

	"dojo/internal/models"
	"dojo/internal/pagination"
)

// AccountInput holds the fields for opening an account.
type AccountInput struct {
	ID                  string
	Name                string
	Type                models.AccountType
	Class               models.AccountClass
	Role                models.AccountRole
	Currency            string
	OpenedOn            *time.Time
	OpeningBalanceMinor int64
}

// AccountUpdate holds the display fields that may change on an account.
type AccountUpdate struct {
	Name     *string
	OpenedOn *time.Time
}

// AccountBalance splits an account's cached balance by clearing status.
type AccountBalance struct {
	AccountID           string `json:"account_id"`
	Currency            string `json:"currency"`
	CurrentBalanceMinor int64  `json:"current_balance_minor"`
	ClearedBalanceMinor int64  `json:"cleared_balance_minor"`
	PendingBalanceMinor int64  `json:"pending_balance_minor"`
}

// NetWorth sums account balances by side. No valuation is applied.
type NetWorth struct {
	AssetsMinor      int64 `json:"assets_minor"`
	LiabilitiesMinor int64 `json:"liabilities_minor"`
	NetWorthMinor    int64 `json:"net_worth_minor"`
}

// AccountServicer defines the contract for account administration.
type AccountServicer interface {
	CreateAccount(ctx context.Context, in AccountInput) (*models.Account, error)
	GetAccount(ctx context.Context, accountID string) (*models.Account, error)
	ListAccounts(ctx context.Context, includeInactive bool) ([]models.Account, error)
	UpdateAccount(ctx context.Context, accountID string, upd AccountUpdate) (*models.Account, error)
	RetireAccount(ctx context.Context, accountID string) error
	GetAccountBalance(ctx context.Context, accountID string) (*AccountBalance, error)
	NetWorth(ctx context.Context) (*NetWorth, error)
}

// CategoryGoal is a savings target attached to a category. Target date
// goals need TargetDate; recurring goals need Frequency.
type CategoryGoal struct {
	Type        models.GoalType
	AmountMinor int64
	TargetDate  *time.Time
	Frequency   models.GoalFrequency
}

// CategoryInput holds the fields for creating a category.
type CategoryInput struct {
	ID      string
	GroupID *string
	Name    string
	Goal    *CategoryGoal
}

// CategoryUpdate holds the fields that may change on a category. Set
// ClearGoal to remove the goal.
type CategoryUpdate struct {
	Name      *string
	GroupID   *string
	Goal      *CategoryGoal
	ClearGoal bool
}

// CategoryFilter narrows category listings.
type CategoryFilter struct {
	GroupID         string
	IncludeInactive bool
	IncludeSystem   bool
}

// GroupInput holds the fields for creating a category group.
type GroupInput struct {
	ID        string
	Name      string
	SortOrder int
}

// GroupUpdate holds the fields that may change on a category group.
type GroupUpdate struct {
	Name      *string
	SortOrder *int
}

// CategoryServicer defines the contract for category administration.
type CategoryServicer interface {
	CreateCategory(ctx context.Context, in CategoryInput) (*models.Category, error)
	GetCategory(ctx context.Context, categoryID string) (*models.Category, error)
	ListCategories(ctx context.Context, filter CategoryFilter) ([]models.Category, error)
	UpdateCategory(ctx context.Context, categoryID string, upd CategoryUpdate) (*models.Category, error)
	RetireCategory(ctx context.Context, categoryID string) error
	CreateGroup(ctx context.Context, in GroupInput) (*models.CategoryGroup, error)
	ListGroups(ctx context.Context) ([]models.CategoryGroup, error)
	UpdateGroup(ctx context.Context, groupID string, upd GroupUpdate) (*models.CategoryGroup, error)
	RetireGroup(ctx context.Context, groupID string) error
	SeedSystemCategories(ctx context.Context) error
}

// TransactionInput holds the fields for recording a transaction.
// A nil TransactionDate means today; an empty Status means pending.
type TransactionInput struct {
	AccountID       string
	CategoryID      string
	AmountMinor     int64
	TransactionDate *time.Time
	Memo            string
	Status          models.TransactionStatus
	Source          string
}

// TransactionUpdate patches the active version of a transaction. Nil fields
// keep their current value. ExpectedVersionID, when set, must name the
// active version.
type TransactionUpdate struct {
	ExpectedVersionID string
	AccountID         *string
	CategoryID        *string
	AmountMinor       *int64
	TransactionDate   *time.Time
	Memo              *string
	Status            *models.TransactionStatus
}

// TransactionFilter holds optional filter parameters for listing transactions.
type TransactionFilter struct {
	AccountID  string
	CategoryID string
	FromDate   *time.Time
	ToDate     *time.Time
	Status     *models.TransactionStatus
}

// TransactionServicer defines the contract for the ledger.
type TransactionServicer interface {
	CreateTransaction(ctx context.Context, in TransactionInput) (*models.Transaction, error)
	UpdateTransaction(ctx context.Context, conceptID string, upd TransactionUpdate) (*models.Transaction, error)
	DeleteTransaction(ctx context.Context, conceptID, expectedVersionID string) error
	GetTransaction(ctx context.Context, conceptID string) ([]models.Transaction, error)
	GetTransactionHistory(ctx context.Context, conceptID string) ([]models.Transaction, error)
	ListActive(ctx context.Context, filter TransactionFilter) iter.Seq2[models.Transaction, error]
}

// TransferInput holds the fields for moving money between two accounts.
type TransferInput struct {
	FromAccountID   string
	ToAccountID     string
	CategoryID      string
	AmountMinor     int64
	TransactionDate *time.Time
	Memo            string
}

// TransferResult holds both legs of a transfer.
type TransferResult struct {
	ConceptID   string             `json:"concept_id"`
	Source      models.Transaction `json:"source"`
	Destination models.Transaction `json:"destination"`
}

// TransferServicer defines the contract for atomic two-leg transfers.
type TransferServicer interface {
	Transfer(ctx context.Context, in TransferInput) (*TransferResult, error)
}

// AllocationInput holds the fields for assigning money to a category.
// A nil FromCategoryID draws on Ready to Assign. Month defaults to the month
// of AllocationDate, which defaults to today.
type AllocationInput struct {
	FromCategoryID *string
	ToCategoryID   string
	AmountMinor    int64
	AllocationDate *time.Time
	Month          *time.Time
	Memo           string
}

// AllocationUpdate patches the active version of an allocation. Set
// FromReadyToAssign to switch the source back to Ready to Assign.
type AllocationUpdate struct {
	ExpectedVersionID string
	FromCategoryID    *string
	FromReadyToAssign bool
	ToCategoryID      *string
	AmountMinor       *int64
	AllocationDate    *time.Time
	Month             *time.Time
	Memo              *string
}

// AllocationFilter holds optional filter parameters for listing allocations.
type AllocationFilter struct {
	Month      *time.Time
	CategoryID string
}

// CategoryState is a category's envelope for one month. Materialized is
// false when no row exists and the figures were carried forward.
type CategoryState struct {
	CategoryID     string    `json:"category_id"`
	Month          time.Time `json:"month"`
	AllocatedMinor int64     `json:"allocated_minor"`
	InflowMinor    int64     `json:"inflow_minor"`
	ActivityMinor  int64     `json:"activity_minor"`
	AvailableMinor int64     `json:"available_minor"`
	Materialized   bool      `json:"materialized"`
}

// ReadyToAssign is the unassigned money for a month.
type ReadyToAssign struct {
	Month               time.Time `json:"month"`
	OnBudgetCashMinor   int64     `json:"on_budget_cash_minor"`
	AvailableTotalMinor int64     `json:"available_total_minor"`
	ReadyToAssignMinor  int64     `json:"ready_to_assign_minor"`
}

// BudgetMonth is the whole budget as seen in one month.
type BudgetMonth struct {
	ReadyToAssign
	CashInflowMinor int64           `json:"cash_inflow_minor"`
	Categories      []CategoryState `json:"categories"`
}

// BudgetServicer defines the contract for envelope budgeting.
type BudgetServicer interface {
	CreateAllocation(ctx context.Context, in AllocationInput) (*models.Allocation, error)
	UpdateAllocation(ctx context.Context, conceptID string, upd AllocationUpdate) (*models.Allocation, error)
	DeleteAllocation(ctx context.Context, conceptID, expectedVersionID string) error
	GetAllocation(ctx context.Context, conceptID string) (*models.Allocation, error)
	GetAllocationHistory(ctx context.Context, conceptID string) ([]models.Allocation, error)
	ListAllocations(ctx context.Context, filter AllocationFilter) iter.Seq2[models.Allocation, error]
	GetCategoryState(ctx context.Context, categoryID string, month time.Time) (*CategoryState, error)
	RolloverMonth(ctx context.Context, categoryID string, month time.Time) (*models.CategoryMonthState, error)
	GetReadyToAssign(ctx context.Context, month time.Time) (*ReadyToAssign, error)
	GetBudgetMonth(ctx context.Context, month time.Time) (*BudgetMonth, error)
	MonthCashInflow(ctx context.Context, month time.Time) (int64, error)
}

// Worksheet lists what still needs checking against a statement.
type Worksheet struct {
	AccountID           string                 `json:"account_id"`
	Since               time.Time              `json:"since"`
	LastReconciliation  *models.Reconciliation `json:"last_reconciliation,omitempty"`
	Items               []models.Transaction   `json:"items"`
	ClearedBalanceMinor int64                  `json:"cleared_balance_minor"`
	PendingTotalMinor   int64                  `json:"pending_total_minor"`
}

// CommitInput is a statement to reconcile an account against.
type CommitInput struct {
	AccountID             string
	StatementDate         time.Time
	StatementBalanceMinor int64
}

// ReconciliationServicer defines the contract for statement reconciliation.
type ReconciliationServicer interface {
	GetWorksheet(ctx context.Context, accountID string) (*Worksheet, error)
	Commit(ctx context.Context, in CommitInput) (*models.Reconciliation, error)
	ListReconciliations(ctx context.Context, accountID string) ([]models.Reconciliation, error)
}

// RebuildOptions selects which caches a rebuild recomputes.
type RebuildOptions struct {
	SkipAccounts   bool
	SkipCategories bool
}

// AccountDrift is a cached balance that disagrees with the ledger.
type AccountDrift struct {
	AccountID string `json:"account_id"`
	Cached    int64  `json:"cached_minor"`
	Expected  int64  `json:"expected_minor"`
}

// CategoryDrift is a cached envelope month that disagrees with the ledger.
type CategoryDrift struct {
	CategoryID string                    `json:"category_id"`
	Month      time.Time                 `json:"month"`
	Cached     models.CategoryMonthState `json:"cached"`
	Expected   models.CategoryMonthState `json:"expected"`
}

// CacheReport summarises a verify or rebuild pass.
type CacheReport struct {
	AccountsChecked       int             `json:"accounts_checked"`
	CategoryMonthsChecked int             `json:"category_months_checked"`
	AccountDrift          []AccountDrift  `json:"account_drift"`
	CategoryDrift         []CategoryDrift `json:"category_drift"`
	Rebuilt               bool            `json:"rebuilt"`
}

// Clean reports whether no drift was found.
func (r *CacheReport) Clean() bool {
	return len(r.AccountDrift) == 0 && len(r.CategoryDrift) == 0
}

// CacheServicer defines the contract for cache verification and repair.
type CacheServicer interface {
	Rebuild(ctx context.Context, opts RebuildOptions) (*CacheReport, error)
	Verify(ctx context.Context) (*CacheReport, error)
}

// EventFilter narrows the change feed.
type EventFilter struct {
	Since      *time.Time
	EntityType string
	EntityID   string
}

// EventServicer defines the contract for reading the change feed.
type EventServicer interface {
	List(ctx context.Context, filter EventFilter, page pagination.PageRequest) (*pagination.PageResponse[models.LedgerEvent], error)
}

// NetWorthPoint is the net worth at the end of one day.
type NetWorthPoint struct {
	Date          time.Time `json:"date"`
	NetWorthMinor int64     `json:"net_worth_minor"`
}

// SnapshotServicer defines the contract for net worth over time.
type SnapshotServicer interface {
	RecordSnapshot(ctx context.Context) (*models.NetWorthSnapshot, error)
	ListSnapshots(ctx context.Context, from, to *time.Time, page pagination.PageRequest) (*pagination.PageResponse[models.NetWorthSnapshot], error)
	History(ctx context.Context, from, to time.Time) ([]NetWorthPoint, error)
}

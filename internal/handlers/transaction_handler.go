package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "dojo/internal/errors"
	"dojo/internal/models"
	"dojo/internal/pagination"
	"dojo/internal/services"
)

// TransactionHandler handles ledger transaction and transfer requests.
type TransactionHandler struct {
	transactionService services.TransactionServicer
	transferService    services.TransferServicer
}

// NewTransactionHandler creates a new TransactionHandler.
func NewTransactionHandler(transactionService services.TransactionServicer, transferService services.TransferServicer) *TransactionHandler {
	return &TransactionHandler{transactionService: transactionService, transferService: transferService}
}

// CreateTransactionRequest represents the request payload for recording a transaction.
// AmountMinor is signed: inflows positive, outflows negative.
type CreateTransactionRequest struct {
	AccountID       string  `json:"account_id" binding:"required"`
	CategoryID      string  `json:"category_id" binding:"required"`
	AmountMinor     int64   `json:"amount_minor" binding:"required"`
	TransactionDate *string `json:"transaction_date" binding:"omitempty,iso_date"`
	Memo            string  `json:"memo" binding:"max=500"`
	Status          string  `json:"status" binding:"omitempty,transaction_status"`
}

// UpdateTransactionRequest patches a transaction. Omitted fields keep their value.
type UpdateTransactionRequest struct {
	ExpectedVersionID string  `json:"expected_version_id"`
	AccountID         *string `json:"account_id" binding:"omitempty,min=1"`
	CategoryID        *string `json:"category_id" binding:"omitempty,min=1"`
	AmountMinor       *int64  `json:"amount_minor"`
	TransactionDate   *string `json:"transaction_date" binding:"omitempty,iso_date"`
	Memo              *string `json:"memo" binding:"omitempty,max=500"`
	Status            *string `json:"status" binding:"omitempty,transaction_status"`
}

// TransferRequest moves money between two accounts.
type TransferRequest struct {
	FromAccountID   string  `json:"from_account_id" binding:"required"`
	ToAccountID     string  `json:"to_account_id" binding:"required"`
	CategoryID      string  `json:"category_id"`
	AmountMinor     int64   `json:"amount_minor" binding:"required,gt=0"`
	TransactionDate *string `json:"transaction_date" binding:"omitempty,iso_date"`
	Memo            string  `json:"memo" binding:"max=500"`
}

// CreateTransaction handles recording a new transaction
// @Summary     Create a transaction
// @Description Record a transaction. The account balance and the category's monthly envelope are updated in the same write.
// @Tags        transactions
// @Accept      json
// @Produce     json
// @Param       request body CreateTransactionRequest true "Transaction details"
// @Success     201 {object} models.Transaction "Transaction created"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     404 {object} ErrorResponse "Account or category not found"
// @Failure     409 {object} ErrorResponse "Account or category retired"
// @Failure     503 {object} ErrorResponse "Ledger busy"
// @Router      /transactions [post]
func (h *TransactionHandler) CreateTransaction(c *gin.Context) {
	var req CreateTransactionRequest
	if !bindJSON(c, &req) {
		return
	}

	date, err := parseOptionalDate("transaction_date", req.TransactionDate)
	if err != nil {
		respondWithError(c, err)
		return
	}

	txn, err := h.transactionService.CreateTransaction(c.Request.Context(), services.TransactionInput{
		AccountID:       req.AccountID,
		CategoryID:      req.CategoryID,
		AmountMinor:     req.AmountMinor,
		TransactionDate: date,
		Memo:            req.Memo,
		Status:          models.TransactionStatus(req.Status),
		Source:          models.SourceAPI,
	})
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"transaction": txn})
}

// ListTransactions returns active transactions in date order
// @Summary     List transactions
// @Tags        transactions
// @Produce     json
// @Param       account_id  query string false "Filter by account"
// @Param       category_id query string false "Filter by category"
// @Param       from_date   query string false "Earliest date (YYYY-MM-DD)"
// @Param       to_date     query string false "Latest date (YYYY-MM-DD)"
// @Param       status      query string false "pending or cleared"
// @Param       page        query int    false "Page number"
// @Param       page_size   query int    false "Items per page"
// @Success     200 {object} pagination.PageResponse[models.Transaction]
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Router      /transactions [get]
func (h *TransactionHandler) ListTransactions(c *gin.Context) {
	var page pagination.PageRequest
	if err := c.ShouldBindQuery(&page); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	filter := services.TransactionFilter{
		AccountID:  c.Query("account_id"),
		CategoryID: c.Query("category_id"),
	}

	var err error
	if filter.FromDate, err = queryDate(c, "from_date"); err != nil {
		respondWithError(c, err)
		return
	}
	if filter.ToDate, err = queryDate(c, "to_date"); err != nil {
		respondWithError(c, err)
		return
	}
	if v := c.Query("status"); v != "" {
		status := models.TransactionStatus(v)
		if !status.Valid() {
			respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, "Invalid status filter"))
			return
		}
		filter.Status = &status
	}

	result, err := pagination.Collect(h.transactionService.ListActive(c.Request.Context(), filter), page)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// GetTransaction returns the active legs of a transaction
// @Summary     Get a transaction
// @Description A transfer returns both of its legs.
// @Tags        transactions
// @Produce     json
// @Param       id path string true "Concept ID"
// @Success     200 {array} models.Transaction
// @Failure     404 {object} ErrorResponse "Transaction not found"
// @Router      /transactions/{id} [get]
func (h *TransactionHandler) GetTransaction(c *gin.Context) {
	legs, err := h.transactionService.GetTransaction(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"transaction": legs})
}

// GetTransactionHistory returns every version of a transaction
// @Summary     Get transaction history
// @Tags        transactions
// @Produce     json
// @Param       id path string true "Concept ID"
// @Success     200 {array} models.Transaction
// @Failure     404 {object} ErrorResponse "Transaction not found"
// @Router      /transactions/{id}/history [get]
func (h *TransactionHandler) GetTransactionHistory(c *gin.Context) {
	versions, err := h.transactionService.GetTransactionHistory(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"versions": versions})
}

// UpdateTransaction supersedes the active version of a transaction
// @Summary     Update a transaction
// @Description Closes the active version and records its successor. The active version must be named in expected_version_id or an If-Match header.
// @Tags        transactions
// @Accept      json
// @Produce     json
// @Param       id      path string                   true "Concept ID"
// @Param       request body UpdateTransactionRequest true "Fields to change"
// @Success     200 {object} models.Transaction
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     404 {object} ErrorResponse "Transaction not found"
// @Failure     409 {object} ErrorResponse "Concurrent modification"
// @Failure     428 {object} ErrorResponse "Version required"
// @Router      /transactions/{id} [put]
func (h *TransactionHandler) UpdateTransaction(c *gin.Context) {
	var req UpdateTransactionRequest
	if !bindJSON(c, &req) {
		return
	}
	version, ok := versionToken(c, req.ExpectedVersionID)
	if !ok {
		return
	}

	date, err := parseOptionalDate("transaction_date", req.TransactionDate)
	if err != nil {
		respondWithError(c, err)
		return
	}

	upd := services.TransactionUpdate{
		ExpectedVersionID: version,
		AccountID:         req.AccountID,
		CategoryID:        req.CategoryID,
		AmountMinor:       req.AmountMinor,
		TransactionDate:   date,
		Memo:              req.Memo,
	}
	if req.Status != nil {
		status := models.TransactionStatus(*req.Status)
		upd.Status = &status
	}

	txn, err := h.transactionService.UpdateTransaction(c.Request.Context(), c.Param("id"), upd)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"transaction": txn})
}

// DeleteTransaction closes every active leg of a transaction
// @Summary     Delete a transaction
// @Tags        transactions
// @Param       id                  path  string true  "Concept ID"
// @Param       expected_version_id query  string false "Active version the caller last saw"
// @Param       If-Match            header string false "Active version, when expected_version_id is not sent"
// @Success     204
// @Failure     404 {object} ErrorResponse "Transaction not found"
// @Failure     409 {object} ErrorResponse "Concurrent modification"
// @Failure     428 {object} ErrorResponse "Version required"
// @Router      /transactions/{id} [delete]
func (h *TransactionHandler) DeleteTransaction(c *gin.Context) {
	version, ok := versionToken(c, c.Query("expected_version_id"))
	if !ok {
		return
	}

	err := h.transactionService.DeleteTransaction(c.Request.Context(), c.Param("id"), version)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// CreateTransfer moves money between two accounts atomically
// @Summary     Transfer between accounts
// @Description Writes both legs in one transaction. Paying a credit card moves the reserve out of its payment category.
// @Tags        transactions
// @Accept      json
// @Produce     json
// @Param       request body TransferRequest true "Transfer details"
// @Success     201 {object} services.TransferResult
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     404 {object} ErrorResponse "Account not found"
// @Router      /transfers [post]
func (h *TransactionHandler) CreateTransfer(c *gin.Context) {
	var req TransferRequest
	if !bindJSON(c, &req) {
		return
	}

	date, err := parseOptionalDate("transaction_date", req.TransactionDate)
	if err != nil {
		respondWithError(c, err)
		return
	}

	result, err := h.transferService.Transfer(c.Request.Context(), services.TransferInput{
		FromAccountID:   req.FromAccountID,
		ToAccountID:     req.ToAccountID,
		CategoryID:      req.CategoryID,
		AmountMinor:     req.AmountMinor,
		TransactionDate: date,
		Memo:            req.Memo,
	})
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"transfer": result})
}

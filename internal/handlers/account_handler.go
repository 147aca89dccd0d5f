package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	apperrors "dojo/internal/errors"
	"dojo/internal/models"
	"dojo/internal/pagination"
	"dojo/internal/services"
)

// AccountHandler handles account-related requests.
type AccountHandler struct {
	accountService     services.AccountServicer
	transactionService services.TransactionServicer
}

// NewAccountHandler creates a new AccountHandler.
func NewAccountHandler(accountService services.AccountServicer, transactionService services.TransactionServicer) *AccountHandler {
	return &AccountHandler{accountService: accountService, transactionService: transactionService}
}

// CreateAccountRequest represents the request payload for opening an account.
// Type and role are derived from the class when omitted.
type CreateAccountRequest struct {
	ID                  string  `json:"account_id" binding:"omitempty,max=64"`
	Name                string  `json:"name" binding:"required,min=1,max=100"`
	Type                string  `json:"account_type" binding:"omitempty,account_type"`
	Class               string  `json:"account_class" binding:"omitempty,account_class"`
	Role                string  `json:"account_role" binding:"omitempty,account_role"`
	Currency            string  `json:"currency" binding:"omitempty,iso4217"`
	OpenedOn            *string `json:"opened_on" binding:"omitempty,iso_date"`
	OpeningBalanceMinor int64   `json:"opening_balance_minor"`
}

// UpdateAccountRequest represents the request payload for updating an account.
type UpdateAccountRequest struct {
	Name     *string `json:"name" binding:"omitempty,min=1,max=100"`
	OpenedOn *string `json:"opened_on" binding:"omitempty,iso_date"`
}

// CreateAccount handles opening a new account
// @Summary     Create an account
// @Description Open an account. Credit accounts get a payment category; a non-zero opening balance is posted as a cleared transaction.
// @Tags        accounts
// @Accept      json
// @Produce     json
// @Param       request body CreateAccountRequest true "Account details"
// @Success     201 {object} models.Account "Account created"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     409 {object} ErrorResponse "Account exists"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /accounts [post]
func (h *AccountHandler) CreateAccount(c *gin.Context) {
	var req CreateAccountRequest
	if !bindJSON(c, &req) {
		return
	}

	openedOn, err := parseOptionalDate("opened_on", req.OpenedOn)
	if err != nil {
		respondWithError(c, err)
		return
	}

	account, err := h.accountService.CreateAccount(c.Request.Context(), services.AccountInput{
		ID:                  req.ID,
		Name:                req.Name,
		Type:                models.AccountType(req.Type),
		Class:               models.AccountClass(req.Class),
		Role:                models.AccountRole(req.Role),
		Currency:            req.Currency,
		OpenedOn:            openedOn,
		OpeningBalanceMinor: req.OpeningBalanceMinor,
	})
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"account": account})
}

// ListAccounts returns the accounts of the ledger
// @Summary     List accounts
// @Tags        accounts
// @Produce     json
// @Param       include_inactive query bool false "Include retired accounts"
// @Success     200 {array} models.Account
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /accounts [get]
func (h *AccountHandler) ListAccounts(c *gin.Context) {
	includeInactive := false
	if v := c.Query("include_inactive"); v != "" {
		parsed, err := strconv.ParseBool(v)
		if err != nil {
			respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, "Invalid include_inactive value"))
			return
		}
		includeInactive = parsed
	}

	accounts, err := h.accountService.ListAccounts(c.Request.Context(), includeInactive)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"accounts": accounts})
}

// GetAccount returns one account
// @Summary     Get an account
// @Tags        accounts
// @Produce     json
// @Param       id path string true "Account ID"
// @Success     200 {object} models.Account
// @Failure     404 {object} ErrorResponse "Account not found"
// @Router      /accounts/{id} [get]
func (h *AccountHandler) GetAccount(c *gin.Context) {
	account, err := h.accountService.GetAccount(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"account": account})
}

// UpdateAccount changes an account's display fields
// @Summary     Update an account
// @Tags        accounts
// @Accept      json
// @Produce     json
// @Param       id      path string               true "Account ID"
// @Param       request body UpdateAccountRequest true "Fields to change"
// @Success     200 {object} models.Account
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     404 {object} ErrorResponse "Account not found"
// @Router      /accounts/{id} [put]
func (h *AccountHandler) UpdateAccount(c *gin.Context) {
	var req UpdateAccountRequest
	if !bindJSON(c, &req) {
		return
	}

	openedOn, err := parseOptionalDate("opened_on", req.OpenedOn)
	if err != nil {
		respondWithError(c, err)
		return
	}

	account, err := h.accountService.UpdateAccount(c.Request.Context(), c.Param("id"), services.AccountUpdate{
		Name:     req.Name,
		OpenedOn: openedOn,
	})
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"account": account})
}

// RetireAccount marks an account inactive
// @Summary     Retire an account
// @Description Retired accounts keep their history but accept no new entries.
// @Tags        accounts
// @Param       id path string true "Account ID"
// @Success     204
// @Failure     404 {object} ErrorResponse "Account not found"
// @Router      /accounts/{id} [delete]
func (h *AccountHandler) RetireAccount(c *gin.Context) {
	if err := h.accountService.RetireAccount(c.Request.Context(), c.Param("id")); err != nil {
		respondWithError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// GetAccountBalance returns the balance split by clearing status
// @Summary     Get account balance
// @Tags        accounts
// @Produce     json
// @Param       id path string true "Account ID"
// @Success     200 {object} services.AccountBalance
// @Failure     404 {object} ErrorResponse "Account not found"
// @Router      /accounts/{id}/balance [get]
func (h *AccountHandler) GetAccountBalance(c *gin.Context) {
	balance, err := h.accountService.GetAccountBalance(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, balance)
}

// GetAccountTransactions lists the active transactions of one account
// @Summary     List account transactions
// @Tags        accounts
// @Produce     json
// @Param       id        path  string true  "Account ID"
// @Param       page      query int    false "Page number"
// @Param       page_size query int    false "Items per page"
// @Success     200 {object} pagination.PageResponse[models.Transaction]
// @Failure     404 {object} ErrorResponse "Account not found"
// @Router      /accounts/{id}/transactions [get]
func (h *AccountHandler) GetAccountTransactions(c *gin.Context) {
	var page pagination.PageRequest
	if err := c.ShouldBindQuery(&page); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	ctx := c.Request.Context()
	accountID := c.Param("id")
	if _, err := h.accountService.GetAccount(ctx, accountID); err != nil {
		respondWithError(c, err)
		return
	}

	result, err := pagination.Collect(h.transactionService.ListActive(ctx, services.TransactionFilter{AccountID: accountID}), page)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// GetNetWorth sums all account balances
// @Summary     Get net worth
// @Tags        accounts
// @Produce     json
// @Success     200 {object} services.NetWorth
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /net-worth [get]
func (h *AccountHandler) GetNetWorth(c *gin.Context) {
	nw, err := h.accountService.NetWorth(c.Request.Context())
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, nw)
}

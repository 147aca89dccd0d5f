package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"dojo/internal/dates"
	apperrors "dojo/internal/errors"
	"dojo/internal/services"
)

// ReconciliationHandler handles statement reconciliation requests.
type ReconciliationHandler struct {
	reconciliationService services.ReconciliationServicer
}

// NewReconciliationHandler creates a new ReconciliationHandler.
func NewReconciliationHandler(reconciliationService services.ReconciliationServicer) *ReconciliationHandler {
	return &ReconciliationHandler{reconciliationService: reconciliationService}
}

// CommitReconciliationRequest is a bank statement to check the account against.
type CommitReconciliationRequest struct {
	StatementDate         string `json:"statement_date" binding:"required,iso_date"`
	StatementBalanceMinor *int64 `json:"statement_balance_minor" binding:"required"`
}

// GetWorksheet lists what is left to check since the last checkpoint
// @Summary     Get reconciliation worksheet
// @Description Items recorded after the last checkpoint plus every entry still pending.
// @Tags        reconciliation
// @Produce     json
// @Param       id path string true "Account ID"
// @Success     200 {object} services.Worksheet
// @Failure     404 {object} ErrorResponse "Account not found"
// @Router      /accounts/{id}/reconciliation [get]
func (h *ReconciliationHandler) GetWorksheet(c *gin.Context) {
	ws, err := h.reconciliationService.GetWorksheet(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, ws)
}

// CommitReconciliation records a checkpoint when the cleared balance matches
// @Summary     Commit a reconciliation
// @Tags        reconciliation
// @Accept      json
// @Produce     json
// @Param       id      path string                      true "Account ID"
// @Param       request body CommitReconciliationRequest true "Statement"
// @Success     201 {object} models.Reconciliation
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     404 {object} ErrorResponse "Account not found"
// @Failure     422 {object} ErrorResponse "Balance mismatch"
// @Router      /accounts/{id}/reconciliations [post]
func (h *ReconciliationHandler) CommitReconciliation(c *gin.Context) {
	var req CommitReconciliationRequest
	if !bindJSON(c, &req) {
		return
	}

	statementDate, err := dates.ParseDate(req.StatementDate)
	if err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	rec, err := h.reconciliationService.Commit(c.Request.Context(), services.CommitInput{
		AccountID:             c.Param("id"),
		StatementDate:         statementDate,
		StatementBalanceMinor: *req.StatementBalanceMinor,
	})
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"reconciliation": rec})
}

// ListReconciliations returns the checkpoints of an account, newest first
// @Summary     List reconciliations
// @Tags        reconciliation
// @Produce     json
// @Param       id path string true "Account ID"
// @Success     200 {array} models.Reconciliation
// @Failure     404 {object} ErrorResponse "Account not found"
// @Router      /accounts/{id}/reconciliations [get]
func (h *ReconciliationHandler) ListReconciliations(c *gin.Context) {
	rows, err := h.reconciliationService.ListReconciliations(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"reconciliations": rows})
}

package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"dojo/internal/clock"
	apperrors "dojo/internal/errors"
	"dojo/internal/pagination"
	"dojo/internal/services"
)

// BudgetHandler handles allocation and envelope requests.
type BudgetHandler struct {
	budgetService services.BudgetServicer
	clock         clock.Clock
}

// NewBudgetHandler creates a new BudgetHandler. The clock supplies the
// current month when a request omits it.
func NewBudgetHandler(budgetService services.BudgetServicer, clk clock.Clock) *BudgetHandler {
	return &BudgetHandler{budgetService: budgetService, clock: clk}
}

// CreateAllocationRequest assigns money to a category. An empty
// from_category_id draws on Ready to Assign.
type CreateAllocationRequest struct {
	FromCategoryID *string `json:"from_category_id"`
	ToCategoryID   string  `json:"to_category_id" binding:"required"`
	AmountMinor    int64   `json:"amount_minor" binding:"required"`
	AllocationDate *string `json:"allocation_date" binding:"omitempty,iso_date"`
	Month          *string `json:"month" binding:"omitempty,iso_month"`
	Memo           string  `json:"memo" binding:"max=500"`
}

// UpdateAllocationRequest patches an allocation. Set from_ready_to_assign to
// switch the source back to Ready to Assign.
type UpdateAllocationRequest struct {
	ExpectedVersionID string  `json:"expected_version_id"`
	FromCategoryID    *string `json:"from_category_id" binding:"omitempty,min=1"`
	FromReadyToAssign bool    `json:"from_ready_to_assign"`
	ToCategoryID      *string `json:"to_category_id" binding:"omitempty,min=1"`
	AmountMinor       *int64  `json:"amount_minor"`
	AllocationDate    *string `json:"allocation_date" binding:"omitempty,iso_date"`
	Month             *string `json:"month" binding:"omitempty,iso_month"`
	Memo              *string `json:"memo" binding:"omitempty,max=500"`
}

// CreateAllocation handles assigning money to a category
// @Summary     Create an allocation
// @Description Moves money from Ready to Assign, or from another category, into a category's envelope for a month.
// @Tags        budget
// @Accept      json
// @Produce     json
// @Param       request body CreateAllocationRequest true "Allocation details"
// @Success     201 {object} models.Allocation "Allocation created"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     404 {object} ErrorResponse "Category not found"
// @Failure     422 {object} ErrorResponse "Insufficient funds"
// @Router      /allocations [post]
func (h *BudgetHandler) CreateAllocation(c *gin.Context) {
	var req CreateAllocationRequest
	if !bindJSON(c, &req) {
		return
	}

	in := services.AllocationInput{
		ToCategoryID: req.ToCategoryID,
		AmountMinor:  req.AmountMinor,
		Memo:         req.Memo,
	}
	if req.FromCategoryID != nil && *req.FromCategoryID != "" {
		in.FromCategoryID = req.FromCategoryID
	}

	var err error
	if in.AllocationDate, err = parseOptionalDate("allocation_date", req.AllocationDate); err != nil {
		respondWithError(c, err)
		return
	}
	if in.Month, err = parseOptionalMonth("month", req.Month); err != nil {
		respondWithError(c, err)
		return
	}

	allocation, err := h.budgetService.CreateAllocation(c.Request.Context(), in)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"allocation": allocation})
}

// ListAllocations returns active allocations
// @Summary     List allocations
// @Tags        budget
// @Produce     json
// @Param       month       query string false "Budget month (YYYY-MM)"
// @Param       category_id query string false "Allocations into or out of this category"
// @Param       page        query int    false "Page number"
// @Param       page_size   query int    false "Items per page"
// @Success     200 {object} pagination.PageResponse[models.Allocation]
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Router      /allocations [get]
func (h *BudgetHandler) ListAllocations(c *gin.Context) {
	var page pagination.PageRequest
	if err := c.ShouldBindQuery(&page); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	filter := services.AllocationFilter{CategoryID: c.Query("category_id")}
	if v, ok := c.GetQuery("month"); ok {
		month, err := parseOptionalMonth("month", &v)
		if err != nil {
			respondWithError(c, err)
			return
		}
		filter.Month = month
	}

	result, err := pagination.Collect(h.budgetService.ListAllocations(c.Request.Context(), filter), page)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// GetAllocation returns the active version of an allocation
// @Summary     Get an allocation
// @Tags        budget
// @Produce     json
// @Param       id path string true "Concept ID"
// @Success     200 {object} models.Allocation
// @Failure     404 {object} ErrorResponse "Allocation not found"
// @Router      /allocations/{id} [get]
func (h *BudgetHandler) GetAllocation(c *gin.Context) {
	allocation, err := h.budgetService.GetAllocation(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"allocation": allocation})
}

// GetAllocationHistory returns every version of an allocation
// @Summary     Get allocation history
// @Tags        budget
// @Produce     json
// @Param       id path string true "Concept ID"
// @Success     200 {array} models.Allocation
// @Failure     404 {object} ErrorResponse "Allocation not found"
// @Router      /allocations/{id}/history [get]
func (h *BudgetHandler) GetAllocationHistory(c *gin.Context) {
	versions, err := h.budgetService.GetAllocationHistory(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"versions": versions})
}

// UpdateAllocation supersedes the active version of an allocation
// @Summary     Update an allocation
// @Tags        budget
// @Accept      json
// @Produce     json
// @Param       id      path string                  true "Concept ID"
// @Param       request body UpdateAllocationRequest true "Fields to change"
// @Success     200 {object} models.Allocation
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     404 {object} ErrorResponse "Allocation not found"
// @Failure     409 {object} ErrorResponse "Concurrent modification"
// @Failure     428 {object} ErrorResponse "Version required"
// @Failure     422 {object} ErrorResponse "Insufficient funds"
// @Router      /allocations/{id} [put]
func (h *BudgetHandler) UpdateAllocation(c *gin.Context) {
	var req UpdateAllocationRequest
	if !bindJSON(c, &req) {
		return
	}
	version, ok := versionToken(c, req.ExpectedVersionID)
	if !ok {
		return
	}

	upd := services.AllocationUpdate{
		ExpectedVersionID: version,
		FromCategoryID:    req.FromCategoryID,
		FromReadyToAssign: req.FromReadyToAssign,
		ToCategoryID:      req.ToCategoryID,
		AmountMinor:       req.AmountMinor,
		Memo:              req.Memo,
	}

	var err error
	if upd.AllocationDate, err = parseOptionalDate("allocation_date", req.AllocationDate); err != nil {
		respondWithError(c, err)
		return
	}
	if upd.Month, err = parseOptionalMonth("month", req.Month); err != nil {
		respondWithError(c, err)
		return
	}

	allocation, err := h.budgetService.UpdateAllocation(c.Request.Context(), c.Param("id"), upd)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"allocation": allocation})
}

// DeleteAllocation closes the active version of an allocation
// @Summary     Delete an allocation
// @Tags        budget
// @Param       id                  path  string true  "Concept ID"
// @Param       expected_version_id query  string false "Active version the caller last saw"
// @Param       If-Match            header string false "Active version, when expected_version_id is not sent"
// @Success     204
// @Failure     404 {object} ErrorResponse "Allocation not found"
// @Failure     409 {object} ErrorResponse "Concurrent modification"
// @Failure     428 {object} ErrorResponse "Version required"
// @Router      /allocations/{id} [delete]
func (h *BudgetHandler) DeleteAllocation(c *gin.Context) {
	version, ok := versionToken(c, c.Query("expected_version_id"))
	if !ok {
		return
	}

	err := h.budgetService.DeleteAllocation(c.Request.Context(), c.Param("id"), version)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// GetReadyToAssign returns the unassigned money for a month
// @Summary     Get Ready to Assign
// @Tags        budget
// @Produce     json
// @Param       month query string false "Budget month (YYYY-MM), defaults to the current month"
// @Success     200 {object} services.ReadyToAssign
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Router      /budget/ready-to-assign [get]
func (h *BudgetHandler) GetReadyToAssign(c *gin.Context) {
	ctx := c.Request.Context()
	month, err := monthOrCurrent("month", c.Query("month"), clock.Today(ctx, h.clock))
	if err != nil {
		respondWithError(c, err)
		return
	}

	rta, err := h.budgetService.GetReadyToAssign(ctx, month)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, rta)
}

// GetBudgetMonth returns every envelope for a month
// @Summary     Get a budget month
// @Tags        budget
// @Produce     json
// @Param       month path string true "Budget month (YYYY-MM)"
// @Success     200 {object} services.BudgetMonth
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Router      /budget/months/{month} [get]
func (h *BudgetHandler) GetBudgetMonth(c *gin.Context) {
	ctx := c.Request.Context()
	month, err := monthOrCurrent("month", c.Param("month"), clock.Today(ctx, h.clock))
	if err != nil {
		respondWithError(c, err)
		return
	}

	view, err := h.budgetService.GetBudgetMonth(ctx, month)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, view)
}

// GetCategoryState returns one category's envelope for a month
// @Summary     Get category month state
// @Tags        budget
// @Produce     json
// @Param       id    path string true "Category ID"
// @Param       month path string true "Budget month (YYYY-MM)"
// @Success     200 {object} services.CategoryState
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     404 {object} ErrorResponse "Category not found"
// @Router      /categories/{id}/months/{month} [get]
func (h *BudgetHandler) GetCategoryState(c *gin.Context) {
	ctx := c.Request.Context()
	month, err := monthOrCurrent("month", c.Param("month"), clock.Today(ctx, h.clock))
	if err != nil {
		respondWithError(c, err)
		return
	}

	state, err := h.budgetService.GetCategoryState(ctx, c.Param("id"), month)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, state)
}

// RolloverMonth materialises a category's envelope for a month
// @Summary     Roll a category into a month
// @Description Creates the month's state row carrying the previous available balance forward. Existing rows are returned unchanged.
// @Tags        budget
// @Produce     json
// @Param       id    path string true "Category ID"
// @Param       month path string true "Budget month (YYYY-MM)"
// @Success     200 {object} models.CategoryMonthState
// @Failure     404 {object} ErrorResponse "Category not found"
// @Failure     409 {object} ErrorResponse "System category"
// @Router      /categories/{id}/months/{month}/rollover [post]
func (h *BudgetHandler) RolloverMonth(c *gin.Context) {
	ctx := c.Request.Context()
	month, err := monthOrCurrent("month", c.Param("month"), clock.Today(ctx, h.clock))
	if err != nil {
		respondWithError(c, err)
		return
	}

	state, err := h.budgetService.RolloverMonth(ctx, c.Param("id"), month)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"state": state})
}

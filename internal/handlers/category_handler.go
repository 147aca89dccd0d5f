package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	apperrors "dojo/internal/errors"
	"dojo/internal/models"
	"dojo/internal/services"
)

// CategoryHandler handles category-related requests.
type CategoryHandler struct {
	categoryService services.CategoryServicer
}

// NewCategoryHandler creates a new CategoryHandler.
func NewCategoryHandler(categoryService services.CategoryServicer) *CategoryHandler {
	return &CategoryHandler{categoryService: categoryService}
}

// GoalFields carries an optional category goal. Leave every field out for no goal.
type GoalFields struct {
	GoalType        *string `json:"goal_type" binding:"omitempty,oneof=target_date recurring"`
	GoalAmountMinor *int64  `json:"goal_amount_minor" binding:"omitempty,gt=0"`
	GoalTargetDate  *string `json:"goal_target_date" binding:"omitempty,iso_date"`
	GoalFrequency   *string `json:"goal_frequency" binding:"omitempty,oneof=monthly quarterly yearly"`
}

func (g GoalFields) goal() (*services.CategoryGoal, error) {
	if g.GoalType == nil {
		if g.GoalAmountMinor != nil || g.GoalTargetDate != nil || g.GoalFrequency != nil {
			return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "goal_type is required when setting a goal")
		}
		return nil, nil
	}

	goal := &services.CategoryGoal{Type: models.GoalType(*g.GoalType)}
	if g.GoalAmountMinor != nil {
		goal.AmountMinor = *g.GoalAmountMinor
	}
	if g.GoalFrequency != nil {
		goal.Frequency = models.GoalFrequency(*g.GoalFrequency)
	}
	target, err := parseOptionalDate("goal_target_date", g.GoalTargetDate)
	if err != nil {
		return nil, err
	}
	goal.TargetDate = target
	return goal, nil
}

// CreateCategoryRequest represents the request payload for creating a category.
// The id defaults to a slug of the name.
type CreateCategoryRequest struct {
	ID      string  `json:"category_id" binding:"omitempty,max=64"`
	Name    string  `json:"name" binding:"required,min=1,max=100"`
	GroupID *string `json:"group_id" binding:"omitempty,min=1"`
	GoalFields
}

// UpdateCategoryRequest represents the request payload for updating a category.
// An empty group_id removes the category from its group. Goal fields replace
// the whole goal; clear_goal removes it.
type UpdateCategoryRequest struct {
	Name      *string `json:"name" binding:"omitempty,min=1,max=100"`
	GroupID   *string `json:"group_id"`
	ClearGoal bool    `json:"clear_goal"`
	GoalFields
}

// CreateGroupRequest represents the request payload for creating a category group.
type CreateGroupRequest struct {
	ID        string `json:"group_id" binding:"omitempty,max=64"`
	Name      string `json:"name" binding:"required,min=1,max=100"`
	SortOrder int    `json:"sort_order"`
}

// UpdateGroupRequest represents the request payload for updating a category group.
type UpdateGroupRequest struct {
	Name      *string `json:"name" binding:"omitempty,min=1,max=100"`
	SortOrder *int    `json:"sort_order"`
}

// CreateCategory handles the creation of a new category
// @Summary     Create a category
// @Tags        categories
// @Accept      json
// @Produce     json
// @Param       request body CreateCategoryRequest true "Category details"
// @Success     201 {object} models.Category "Category created"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     404 {object} ErrorResponse "Group not found"
// @Failure     409 {object} ErrorResponse "Category exists"
// @Router      /categories [post]
func (h *CategoryHandler) CreateCategory(c *gin.Context) {
	var req CreateCategoryRequest
	if !bindJSON(c, &req) {
		return
	}

	goal, err := req.goal()
	if err != nil {
		respondWithError(c, err)
		return
	}

	category, err := h.categoryService.CreateCategory(c.Request.Context(), services.CategoryInput{
		ID:      req.ID,
		Name:    req.Name,
		GroupID: req.GroupID,
		Goal:    goal,
	})
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"category": category})
}

// ListCategories returns categories ordered by group and name
// @Summary     List categories
// @Tags        categories
// @Produce     json
// @Param       group_id         query string false "Filter by group"
// @Param       include_inactive query bool   false "Include retired categories"
// @Param       include_system   query bool   false "Include system categories"
// @Success     200 {array} models.Category
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Router      /categories [get]
func (h *CategoryHandler) ListCategories(c *gin.Context) {
	filter := services.CategoryFilter{GroupID: c.Query("group_id")}

	for key, dst := range map[string]*bool{
		"include_inactive": &filter.IncludeInactive,
		"include_system":   &filter.IncludeSystem,
	} {
		v := c.Query(key)
		if v == "" {
			continue
		}
		parsed, err := strconv.ParseBool(v)
		if err != nil {
			respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, "Invalid "+key+" value"))
			return
		}
		*dst = parsed
	}

	categories, err := h.categoryService.ListCategories(c.Request.Context(), filter)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"categories": categories})
}

// GetCategory returns one category
// @Summary     Get a category
// @Tags        categories
// @Produce     json
// @Param       id path string true "Category ID"
// @Success     200 {object} models.Category
// @Failure     404 {object} ErrorResponse "Category not found"
// @Router      /categories/{id} [get]
func (h *CategoryHandler) GetCategory(c *gin.Context) {
	category, err := h.categoryService.GetCategory(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"category": category})
}

// UpdateCategory renames or regroups a category and sets or clears its goal
// @Summary     Update a category
// @Tags        categories
// @Accept      json
// @Produce     json
// @Param       id      path string                true "Category ID"
// @Param       request body UpdateCategoryRequest true "Fields to change"
// @Success     200 {object} models.Category
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     404 {object} ErrorResponse "Category not found"
// @Failure     409 {object} ErrorResponse "System category"
// @Router      /categories/{id} [put]
func (h *CategoryHandler) UpdateCategory(c *gin.Context) {
	var req UpdateCategoryRequest
	if !bindJSON(c, &req) {
		return
	}

	goal, err := req.goal()
	if err != nil {
		respondWithError(c, err)
		return
	}
	if goal != nil && req.ClearGoal {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, "clear_goal cannot be combined with goal fields"))
		return
	}

	category, err := h.categoryService.UpdateCategory(c.Request.Context(), c.Param("id"), services.CategoryUpdate{
		Name:      req.Name,
		GroupID:   req.GroupID,
		Goal:      goal,
		ClearGoal: req.ClearGoal,
	})
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"category": category})
}

// RetireCategory marks a category inactive
// @Summary     Retire a category
// @Tags        categories
// @Param       id path string true "Category ID"
// @Success     204
// @Failure     404 {object} ErrorResponse "Category not found"
// @Failure     409 {object} ErrorResponse "System category"
// @Router      /categories/{id} [delete]
func (h *CategoryHandler) RetireCategory(c *gin.Context) {
	if err := h.categoryService.RetireCategory(c.Request.Context(), c.Param("id")); err != nil {
		respondWithError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// CreateGroup handles the creation of a category group
// @Summary     Create a category group
// @Tags        categories
// @Accept      json
// @Produce     json
// @Param       request body CreateGroupRequest true "Group details"
// @Success     201 {object} models.CategoryGroup "Group created"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     409 {object} ErrorResponse "Group exists"
// @Router      /category-groups [post]
func (h *CategoryHandler) CreateGroup(c *gin.Context) {
	var req CreateGroupRequest
	if !bindJSON(c, &req) {
		return
	}

	group, err := h.categoryService.CreateGroup(c.Request.Context(), services.GroupInput{
		ID:        req.ID,
		Name:      req.Name,
		SortOrder: req.SortOrder,
	})
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"group": group})
}

// ListGroups returns the active category groups
// @Summary     List category groups
// @Tags        categories
// @Produce     json
// @Success     200 {array} models.CategoryGroup
// @Router      /category-groups [get]
func (h *CategoryHandler) ListGroups(c *gin.Context) {
	groups, err := h.categoryService.ListGroups(c.Request.Context())
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"groups": groups})
}

// UpdateGroup renames or reorders a category group
// @Summary     Update a category group
// @Tags        categories
// @Accept      json
// @Produce     json
// @Param       id      path string             true "Group ID"
// @Param       request body UpdateGroupRequest true "Fields to change"
// @Success     200 {object} models.CategoryGroup
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     404 {object} ErrorResponse "Group not found"
// @Router      /category-groups/{id} [put]
func (h *CategoryHandler) UpdateGroup(c *gin.Context) {
	var req UpdateGroupRequest
	if !bindJSON(c, &req) {
		return
	}

	group, err := h.categoryService.UpdateGroup(c.Request.Context(), c.Param("id"), services.GroupUpdate{
		Name:      req.Name,
		SortOrder: req.SortOrder,
	})
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"group": group})
}

// RetireGroup hides a category group
// @Summary     Retire a category group
// @Tags        categories
// @Param       id path string true "Group ID"
// @Success     204
// @Failure     404 {object} ErrorResponse "Group not found"
// @Failure     409 {object} ErrorResponse "Credit card payments group"
// @Router      /category-groups/{id} [delete]
func (h *CategoryHandler) RetireGroup(c *gin.Context) {
	if err := h.categoryService.RetireGroup(c.Request.Context(), c.Param("id")); err != nil {
		respondWithError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	apperrors "dojo/internal/errors"
	"dojo/internal/pagination"
	"dojo/internal/services"
)

// AdminHandler exposes the change feed and cache maintenance.
type AdminHandler struct {
	cacheService services.CacheServicer
	eventService services.EventServicer
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(cacheService services.CacheServicer, eventService services.EventServicer) *AdminHandler {
	return &AdminHandler{cacheService: cacheService, eventService: eventService}
}

// RebuildCacheRequest selects which caches a rebuild recomputes.
type RebuildCacheRequest struct {
	SkipAccounts   bool `json:"skip_accounts"`
	SkipCategories bool `json:"skip_categories"`
}

// ListEvents returns the change feed, oldest first
// @Summary     List change events
// @Tags        admin
// @Produce     json
// @Param       since       query string false "Only events recorded after this RFC 3339 timestamp"
// @Param       entity_type query string false "Filter by entity type"
// @Param       entity_id   query string false "Filter by entity id"
// @Param       page        query int    false "Page number"
// @Param       page_size   query int    false "Items per page"
// @Success     200 {object} pagination.PageResponse[models.LedgerEvent]
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Router      /events [get]
func (h *AdminHandler) ListEvents(c *gin.Context) {
	var page pagination.PageRequest
	if err := c.ShouldBindQuery(&page); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	filter := services.EventFilter{
		EntityType: c.Query("entity_type"),
		EntityID:   c.Query("entity_id"),
	}
	if v := c.Query("since"); v != "" {
		since, err := time.Parse(time.RFC3339Nano, v)
		if err != nil {
			respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, "since must be an RFC 3339 timestamp"))
			return
		}
		since = since.UTC()
		filter.Since = &since
	}

	result, err := h.eventService.List(c.Request.Context(), filter, page)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// RebuildCache recomputes balances and envelopes from the ledger
// @Summary     Rebuild caches
// @Tags        admin
// @Accept      json
// @Produce     json
// @Param       request body RebuildCacheRequest false "Rebuild options"
// @Success     200 {object} services.CacheReport
// @Failure     503 {object} ErrorResponse "Ledger busy"
// @Router      /admin/cache/rebuild [post]
func (h *AdminHandler) RebuildCache(c *gin.Context) {
	var req RebuildCacheRequest
	if c.Request.ContentLength > 0 && !bindJSON(c, &req) {
		return
	}

	report, err := h.cacheService.Rebuild(c.Request.Context(), services.RebuildOptions{
		SkipAccounts:   req.SkipAccounts,
		SkipCategories: req.SkipCategories,
	})
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, report)
}

// VerifyCache compares the caches with a replay of the ledger
// @Summary     Verify caches
// @Description Reports drift without changing anything.
// @Tags        admin
// @Produce     json
// @Success     200 {object} services.CacheReport
// @Router      /admin/cache/verify [get]
func (h *AdminHandler) VerifyCache(c *gin.Context) {
	report, err := h.cacheService.Verify(c.Request.Context())
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, report)
}

package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"dojo/internal/clock"
	apperrors "dojo/internal/errors"
	"dojo/internal/pagination"
	"dojo/internal/services"
)

// defaultHistoryDays is how far back history reaches when from is omitted.
const defaultHistoryDays = 30

// NetWorthHandler serves recorded snapshots and the replayed net worth history.
type NetWorthHandler struct {
	snapshotService services.SnapshotServicer
	clock           clock.Clock
}

// NewNetWorthHandler creates a new NetWorthHandler.
func NewNetWorthHandler(snapshotService services.SnapshotServicer, clk clock.Clock) *NetWorthHandler {
	return &NetWorthHandler{snapshotService: snapshotService, clock: clk}
}

// RecordSnapshot handles recording today's net worth
// @Summary     Record a net worth snapshot
// @Description Store today's net worth from the cached balances. Recording again on the same day replaces the figures.
// @Tags        net-worth
// @Produce     json
// @Success     201 {object} models.NetWorthSnapshot "Snapshot recorded"
// @Failure     503 {object} ErrorResponse "Ledger busy"
// @Router      /net-worth/snapshots [post]
func (h *NetWorthHandler) RecordSnapshot(c *gin.Context) {
	snapshot, err := h.snapshotService.RecordSnapshot(c.Request.Context())
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"snapshot": snapshot})
}

// ListSnapshots returns recorded snapshots, newest first
// @Summary     List net worth snapshots
// @Tags        net-worth
// @Produce     json
// @Param       from      query string false "Earliest snapshot date (YYYY-MM-DD)"
// @Param       to        query string false "Latest snapshot date (YYYY-MM-DD)"
// @Param       page      query int    false "Page number"
// @Param       page_size query int    false "Items per page"
// @Success     200 {object} pagination.PageResponse[models.NetWorthSnapshot]
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Router      /net-worth/snapshots [get]
func (h *NetWorthHandler) ListSnapshots(c *gin.Context) {
	var page pagination.PageRequest
	if err := c.ShouldBindQuery(&page); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	from, err := queryDate(c, "from")
	if err != nil {
		respondWithError(c, err)
		return
	}
	to, err := queryDate(c, "to")
	if err != nil {
		respondWithError(c, err)
		return
	}

	result, err := h.snapshotService.ListSnapshots(c.Request.Context(), from, to, page)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// GetHistory replays the ledger into a daily net worth series
// @Summary     Net worth history
// @Description One point per day from from to to, both inclusive. Defaults to the last 30 days.
// @Tags        net-worth
// @Produce     json
// @Param       from query string false "First day (YYYY-MM-DD)"
// @Param       to   query string false "Last day (YYYY-MM-DD), defaults to today"
// @Success     200 {array}  services.NetWorthPoint
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Router      /net-worth/history [get]
func (h *NetWorthHandler) GetHistory(c *gin.Context) {
	ctx := c.Request.Context()

	from, err := queryDate(c, "from")
	if err != nil {
		respondWithError(c, err)
		return
	}
	to, err := queryDate(c, "to")
	if err != nil {
		respondWithError(c, err)
		return
	}

	if to == nil {
		today := clock.Today(ctx, h.clock)
		to = &today
	}
	if from == nil {
		start := to.AddDate(0, 0, -defaultHistoryDays)
		from = &start
	}

	points, err := h.snapshotService.History(ctx, *from, *to)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"points": points})
}

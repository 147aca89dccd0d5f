package handlers

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"dojo/internal/clock"
	apperrors "dojo/internal/errors"
	"dojo/internal/models"
	"dojo/internal/pagination"
	"dojo/internal/services"
)

type mockSnapshotService struct {
	recordSnapshotFn func(ctx context.Context) (*models.NetWorthSnapshot, error)
	listSnapshotsFn  func(ctx context.Context, from, to *time.Time, page pagination.PageRequest) (*pagination.PageResponse[models.NetWorthSnapshot], error)
	historyFn        func(ctx context.Context, from, to time.Time) ([]services.NetWorthPoint, error)
}

func (m *mockSnapshotService) RecordSnapshot(ctx context.Context) (*models.NetWorthSnapshot, error) {
	if m.recordSnapshotFn != nil {
		return m.recordSnapshotFn(ctx)
	}
	return &models.NetWorthSnapshot{}, nil
}

func (m *mockSnapshotService) ListSnapshots(ctx context.Context, from, to *time.Time, page pagination.PageRequest) (*pagination.PageResponse[models.NetWorthSnapshot], error) {
	if m.listSnapshotsFn != nil {
		return m.listSnapshotsFn(ctx, from, to, page)
	}
	result := pagination.NewPageResponse([]models.NetWorthSnapshot{}, 1, 20, 0)
	return &result, nil
}

func (m *mockSnapshotService) History(ctx context.Context, from, to time.Time) ([]services.NetWorthPoint, error) {
	if m.historyFn != nil {
		return m.historyFn(ctx, from, to)
	}
	return []services.NetWorthPoint{}, nil
}

var _ services.SnapshotServicer = (*mockSnapshotService)(nil)

func setupNetWorthRouter(svc services.SnapshotServicer) *gin.Engine {
	handler := NewNetWorthHandler(svc, clock.NewTicking(handlerNow, time.Second))
	r := gin.New()
	r.POST("/net-worth/snapshots", handler.RecordSnapshot)
	r.GET("/net-worth/snapshots", handler.ListSnapshots)
	r.GET("/net-worth/history", handler.GetHistory)
	return r
}

func TestNetWorthHandler_RecordSnapshot(t *testing.T) {
	t.Run("returns 201 with the snapshot", func(t *testing.T) {
		svc := &mockSnapshotService{
			recordSnapshotFn: func(context.Context) (*models.NetWorthSnapshot, error) {
				return &models.NetWorthSnapshot{SnapshotDate: handlerNow, NetWorthMinor: 90000}, nil
			},
		}
		r := setupNetWorthRouter(svc)

		rec := doRequest(r, "POST", "/net-worth/snapshots", "")
		if rec.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
		}
		snapshot := parseJSON(t, rec)["snapshot"].(map[string]interface{})
		if snapshot["net_worth_minor"] != float64(90000) {
			t.Errorf("unexpected snapshot %v", snapshot)
		}
	})

	t.Run("busy ledger returns 503", func(t *testing.T) {
		svc := &mockSnapshotService{
			recordSnapshotFn: func(context.Context) (*models.NetWorthSnapshot, error) {
				return nil, apperrors.ErrBusy
			},
		}
		r := setupNetWorthRouter(svc)

		rec := doRequest(r, "POST", "/net-worth/snapshots", "")
		if rec.Code != http.StatusServiceUnavailable {
			t.Fatalf("expected 503, got %d", rec.Code)
		}
	})
}

func TestNetWorthHandler_ListSnapshots(t *testing.T) {
	var gotFrom, gotTo *time.Time
	svc := &mockSnapshotService{
		listSnapshotsFn: func(_ context.Context, from, to *time.Time, page pagination.PageRequest) (*pagination.PageResponse[models.NetWorthSnapshot], error) {
			gotFrom, gotTo = from, to
			result := pagination.NewPageResponse([]models.NetWorthSnapshot{{NetWorthMinor: 1}}, page.Page, page.PageSize, 1)
			return &result, nil
		},
	}
	r := setupNetWorthRouter(svc)

	rec := doRequest(r, "GET", "/net-worth/snapshots?from=2025-01-01&page=1&page_size=5", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if gotFrom == nil || !gotFrom.Equal(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)) || gotTo != nil {
		t.Errorf("unexpected bounds %v %v", gotFrom, gotTo)
	}
	if parseJSON(t, rec)["total_items"] != float64(1) {
		t.Error("expected total_items in body")
	}

	rec = doRequest(r, "GET", "/net-worth/snapshots?to=yesterday", "")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
}

func TestNetWorthHandler_GetHistory(t *testing.T) {
	t.Run("defaults to the last 30 days", func(t *testing.T) {
		var gotFrom, gotTo time.Time
		svc := &mockSnapshotService{
			historyFn: func(_ context.Context, from, to time.Time) ([]services.NetWorthPoint, error) {
				gotFrom, gotTo = from, to
				return []services.NetWorthPoint{{Date: to, NetWorthMinor: 500}}, nil
			},
		}
		r := setupNetWorthRouter(svc)

		rec := doRequest(r, "GET", "/net-worth/history", "")
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		if !gotTo.Equal(time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC)) {
			t.Errorf("expected today as to, got %v", gotTo)
		}
		if !gotFrom.Equal(time.Date(2025, 2, 12, 0, 0, 0, 0, time.UTC)) {
			t.Errorf("expected 30 days back as from, got %v", gotFrom)
		}
		points := parseJSON(t, rec)["points"].([]interface{})
		if len(points) != 1 {
			t.Errorf("expected 1 point, got %d", len(points))
		}
	})

	t.Run("explicit range is forwarded", func(t *testing.T) {
		var gotFrom, gotTo time.Time
		svc := &mockSnapshotService{
			historyFn: func(_ context.Context, from, to time.Time) ([]services.NetWorthPoint, error) {
				gotFrom, gotTo = from, to
				return nil, nil
			},
		}
		r := setupNetWorthRouter(svc)

		rec := doRequest(r, "GET", "/net-worth/history?from=2025-01-01&to=2025-01-31", "")
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		if gotFrom.Day() != 1 || gotTo.Day() != 31 {
			t.Errorf("unexpected range %v..%v", gotFrom, gotTo)
		}
	})

	t.Run("service validation returns 400", func(t *testing.T) {
		svc := &mockSnapshotService{
			historyFn: func(context.Context, time.Time, time.Time) ([]services.NetWorthPoint, error) {
				return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "from must not be after to")
			},
		}
		r := setupNetWorthRouter(svc)

		rec := doRequest(r, "GET", "/net-worth/history?from=2025-02-01&to=2025-01-01", "")
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
		assertErrorCode(t, parseJSON(t, rec), "VALIDATION_ERROR")
	})
}

package handlers

import (
	"context"
	"iter"
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	apperrors "dojo/internal/errors"
	"dojo/internal/models"
	"dojo/internal/services"
)

// --- mock transaction service ---

type mockTransactionService struct {
	createTransactionFn     func(ctx context.Context, in services.TransactionInput) (*models.Transaction, error)
	updateTransactionFn     func(ctx context.Context, conceptID string, upd services.TransactionUpdate) (*models.Transaction, error)
	deleteTransactionFn     func(ctx context.Context, conceptID, expectedVersionID string) error
	getTransactionFn        func(ctx context.Context, conceptID string) ([]models.Transaction, error)
	getTransactionHistoryFn func(ctx context.Context, conceptID string) ([]models.Transaction, error)
	listActiveFn            func(ctx context.Context, filter services.TransactionFilter) iter.Seq2[models.Transaction, error]
}

func (m *mockTransactionService) CreateTransaction(ctx context.Context, in services.TransactionInput) (*models.Transaction, error) {
	if m.createTransactionFn != nil {
		return m.createTransactionFn(ctx, in)
	}
	return &models.Transaction{}, nil
}

func (m *mockTransactionService) UpdateTransaction(ctx context.Context, conceptID string, upd services.TransactionUpdate) (*models.Transaction, error) {
	if m.updateTransactionFn != nil {
		return m.updateTransactionFn(ctx, conceptID, upd)
	}
	return &models.Transaction{}, nil
}

func (m *mockTransactionService) DeleteTransaction(ctx context.Context, conceptID, expectedVersionID string) error {
	if m.deleteTransactionFn != nil {
		return m.deleteTransactionFn(ctx, conceptID, expectedVersionID)
	}
	return nil
}

func (m *mockTransactionService) GetTransaction(ctx context.Context, conceptID string) ([]models.Transaction, error) {
	if m.getTransactionFn != nil {
		return m.getTransactionFn(ctx, conceptID)
	}
	return []models.Transaction{}, nil
}

func (m *mockTransactionService) GetTransactionHistory(ctx context.Context, conceptID string) ([]models.Transaction, error) {
	if m.getTransactionHistoryFn != nil {
		return m.getTransactionHistoryFn(ctx, conceptID)
	}
	return []models.Transaction{}, nil
}

func (m *mockTransactionService) ListActive(ctx context.Context, filter services.TransactionFilter) iter.Seq2[models.Transaction, error] {
	if m.listActiveFn != nil {
		return m.listActiveFn(ctx, filter)
	}
	return func(func(models.Transaction, error) bool) {}
}

// --- mock transfer service ---

type mockTransferService struct {
	transferFn func(ctx context.Context, in services.TransferInput) (*services.TransferResult, error)
}

func (m *mockTransferService) Transfer(ctx context.Context, in services.TransferInput) (*services.TransferResult, error) {
	if m.transferFn != nil {
		return m.transferFn(ctx, in)
	}
	return &services.TransferResult{}, nil
}

// verify interface compliance
var (
	_ services.TransactionServicer = (*mockTransactionService)(nil)
	_ services.TransferServicer    = (*mockTransferService)(nil)
)

func setupTransactionRouter(handler *TransactionHandler) *gin.Engine {
	r := gin.New()
	r.POST("/transactions", handler.CreateTransaction)
	r.GET("/transactions", handler.ListTransactions)
	r.GET("/transactions/:id", handler.GetTransaction)
	r.GET("/transactions/:id/history", handler.GetTransactionHistory)
	r.PUT("/transactions/:id", handler.UpdateTransaction)
	r.DELETE("/transactions/:id", handler.DeleteTransaction)
	r.POST("/transfers", handler.CreateTransfer)
	return r
}

func seqOf(rows ...models.Transaction) iter.Seq2[models.Transaction, error] {
	return func(yield func(models.Transaction, error) bool) {
		for _, row := range rows {
			if !yield(row, nil) {
				return
			}
		}
	}
}

func TestTransactionHandler_CreateTransaction(t *testing.T) {
	t.Run("returns 201 on success", func(t *testing.T) {
		var got services.TransactionInput
		svc := &mockTransactionService{
			createTransactionFn: func(_ context.Context, in services.TransactionInput) (*models.Transaction, error) {
				got = in
				return &models.Transaction{
					Version:     models.Version{ConceptID: "c1", VersionID: "v1", IsActive: true},
					AccountID:   in.AccountID,
					CategoryID:  in.CategoryID,
					AmountMinor: in.AmountMinor,
				}, nil
			},
		}
		r := setupTransactionRouter(NewTransactionHandler(svc, &mockTransferService{}))

		rec := doRequest(r, "POST", "/transactions",
			`{"account_id":"checking","category_id":"groceries","amount_minor":-4250,"transaction_date":"2025-01-10","status":"cleared"}`)

		if rec.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
		}
		txn := parseJSON(t, rec)["transaction"].(map[string]interface{})
		if txn["concept_id"] != "c1" || txn["amount_minor"] != float64(-4250) {
			t.Errorf("unexpected transaction %v", txn)
		}
		if got.TransactionDate == nil || !got.TransactionDate.Equal(time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC)) {
			t.Errorf("expected parsed date, got %v", got.TransactionDate)
		}
		if got.Status != models.TransactionStatusCleared || got.Source != models.SourceAPI {
			t.Errorf("expected cleared api entry, got %s/%s", got.Status, got.Source)
		}
	})

	t.Run("omitted date is left to the service", func(t *testing.T) {
		var got services.TransactionInput
		svc := &mockTransactionService{
			createTransactionFn: func(_ context.Context, in services.TransactionInput) (*models.Transaction, error) {
				got = in
				return &models.Transaction{}, nil
			},
		}
		r := setupTransactionRouter(NewTransactionHandler(svc, &mockTransferService{}))

		rec := doRequest(r, "POST", "/transactions", `{"account_id":"a","category_id":"c","amount_minor":100}`)
		if rec.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d", rec.Code)
		}
		if got.TransactionDate != nil || got.Status != "" {
			t.Errorf("expected defaults to be applied by the service, got %+v", got)
		}
	})

	tests := []struct {
		name string
		body string
	}{
		{"missing account", `{"category_id":"c","amount_minor":100}`},
		{"missing category", `{"account_id":"a","amount_minor":100}`},
		{"zero amount", `{"account_id":"a","category_id":"c","amount_minor":0}`},
		{"bad date", `{"account_id":"a","category_id":"c","amount_minor":1,"transaction_date":"01/10/2025"}`},
		{"bad status", `{"account_id":"a","category_id":"c","amount_minor":1,"status":"void"}`},
		{"malformed json", `{"account_id":`},
	}
	for _, tt := range tests {
		t.Run("returns 400 on "+tt.name, func(t *testing.T) {
			r := setupTransactionRouter(NewTransactionHandler(&mockTransactionService{}, &mockTransferService{}))
			rec := doRequest(r, "POST", "/transactions", tt.body)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d", rec.Code)
			}
			assertErrorCode(t, parseJSON(t, rec), "VALIDATION_ERROR")
		})
	}

	t.Run("returns 409 on retired account", func(t *testing.T) {
		svc := &mockTransactionService{
			createTransactionFn: func(context.Context, services.TransactionInput) (*models.Transaction, error) {
				return nil, apperrors.ErrAccountInactive
			},
		}
		r := setupTransactionRouter(NewTransactionHandler(svc, &mockTransferService{}))

		rec := doRequest(r, "POST", "/transactions", `{"account_id":"a","category_id":"c","amount_minor":1}`)
		if rec.Code != http.StatusConflict {
			t.Fatalf("expected 409, got %d", rec.Code)
		}
		assertErrorCode(t, parseJSON(t, rec), "ACCOUNT_INACTIVE")
	})
}

func TestTransactionHandler_ListTransactions(t *testing.T) {
	t.Run("passes filters and paginates", func(t *testing.T) {
		var got services.TransactionFilter
		svc := &mockTransactionService{
			listActiveFn: func(_ context.Context, filter services.TransactionFilter) iter.Seq2[models.Transaction, error] {
				got = filter
				return seqOf(
					models.Transaction{Memo: "one"},
					models.Transaction{Memo: "two"},
					models.Transaction{Memo: "three"},
				)
			},
		}
		r := setupTransactionRouter(NewTransactionHandler(svc, &mockTransferService{}))

		rec := doRequest(r, "GET",
			"/transactions?account_id=checking&from_date=2025-01-01&to_date=2025-01-31&status=pending&page=2&page_size=2", "")
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}

		if got.AccountID != "checking" || got.FromDate == nil || got.ToDate == nil || got.Status == nil {
			t.Fatalf("filters not passed: %+v", got)
		}
		if *got.Status != models.TransactionStatusPending || got.ToDate.Day() != 31 {
			t.Errorf("unexpected filter values %+v", got)
		}

		result := parseJSON(t, rec)
		data := result["data"].([]interface{})
		if result["total_items"] != float64(3) || len(data) != 1 {
			t.Fatalf("unexpected page %v", result)
		}
		if data[0].(map[string]interface{})["memo"] != "three" {
			t.Errorf("expected third item on page 2, got %v", data[0])
		}
	})

	t.Run("returns 400 on bad filters", func(t *testing.T) {
		r := setupTransactionRouter(NewTransactionHandler(&mockTransactionService{}, &mockTransferService{}))
		for _, path := range []string{
			"/transactions?status=void",
			"/transactions?from_date=yesterday",
			"/transactions?page_size=1000",
		} {
			rec := doRequest(r, "GET", path, "")
			if rec.Code != http.StatusBadRequest {
				t.Errorf("%s: expected 400, got %d", path, rec.Code)
			}
		}
	})
}

func TestTransactionHandler_UpdateAndDelete(t *testing.T) {
	t.Run("update passes only supplied fields", func(t *testing.T) {
		var gotID string
		var got services.TransactionUpdate
		svc := &mockTransactionService{
			updateTransactionFn: func(_ context.Context, conceptID string, upd services.TransactionUpdate) (*models.Transaction, error) {
				gotID, got = conceptID, upd
				return &models.Transaction{}, nil
			},
		}
		r := setupTransactionRouter(NewTransactionHandler(svc, &mockTransferService{}))

		rec := doRequest(r, "PUT", "/transactions/c1", `{"expected_version_id":"v1","amount_minor":-500,"status":"cleared"}`)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		if gotID != "c1" || got.ExpectedVersionID != "v1" {
			t.Errorf("unexpected target %s/%s", gotID, got.ExpectedVersionID)
		}
		if got.AmountMinor == nil || *got.AmountMinor != -500 || got.Status == nil || *got.Status != models.TransactionStatusCleared {
			t.Errorf("unexpected patch %+v", got)
		}
		if got.AccountID != nil || got.CategoryID != nil || got.Memo != nil || got.TransactionDate != nil {
			t.Errorf("expected omitted fields to stay nil, got %+v", got)
		}
	})

	t.Run("stale version returns 409 with details", func(t *testing.T) {
		svc := &mockTransactionService{
			updateTransactionFn: func(context.Context, string, services.TransactionUpdate) (*models.Transaction, error) {
				return nil, apperrors.WithDetails(apperrors.ErrConcurrentModification, "stale", map[string]any{
					"expected_version": "v1",
					"active_version":   "v2",
				})
			},
		}
		r := setupTransactionRouter(NewTransactionHandler(svc, &mockTransferService{}))

		rec := doRequest(r, "PUT", "/transactions/c1", `{"expected_version_id":"v1","memo":"x"}`)
		if rec.Code != http.StatusConflict {
			t.Fatalf("expected 409, got %d", rec.Code)
		}
		errObj := assertErrorCode(t, parseJSON(t, rec), "CONCURRENT_MODIFICATION")
		details := errObj["details"].(map[string]interface{})
		if details["active_version"] != "v2" {
			t.Errorf("unexpected details %v", details)
		}
	})

	t.Run("delete forwards expected version", func(t *testing.T) {
		var gotVersion string
		svc := &mockTransactionService{
			deleteTransactionFn: func(_ context.Context, _ string, expected string) error {
				gotVersion = expected
				return nil
			},
		}
		r := setupTransactionRouter(NewTransactionHandler(svc, &mockTransferService{}))

		rec := doRequest(r, "DELETE", "/transactions/c1?expected_version_id=v9", "")
		if rec.Code != http.StatusNoContent {
			t.Fatalf("expected 204, got %d", rec.Code)
		}
		if gotVersion != "v9" {
			t.Errorf("expected v9, got %q", gotVersion)
		}
	})

	t.Run("missing version returns 428", func(t *testing.T) {
		called := false
		svc := &mockTransactionService{
			updateTransactionFn: func(context.Context, string, services.TransactionUpdate) (*models.Transaction, error) {
				called = true
				return &models.Transaction{}, nil
			},
			deleteTransactionFn: func(context.Context, string, string) error {
				called = true
				return nil
			},
		}
		r := setupTransactionRouter(NewTransactionHandler(svc, &mockTransferService{}))

		for _, method := range []string{"PUT", "DELETE"} {
			rec := doRequest(r, method, "/transactions/c1", `{"memo":"x"}`)
			if rec.Code != http.StatusPreconditionRequired {
				t.Fatalf("%s: expected 428, got %d", method, rec.Code)
			}
			assertErrorCode(t, parseJSON(t, rec), "VERSION_REQUIRED")
		}
		if called {
			t.Error("expected the service not to be called")
		}
	})

	t.Run("unknown transaction returns 404", func(t *testing.T) {
		svc := &mockTransactionService{
			getTransactionFn: func(context.Context, string) ([]models.Transaction, error) {
				return nil, apperrors.ErrTransactionNotFound
			},
		}
		r := setupTransactionRouter(NewTransactionHandler(svc, &mockTransferService{}))

		rec := doRequest(r, "GET", "/transactions/nope", "")
		if rec.Code != http.StatusNotFound {
			t.Fatalf("expected 404, got %d", rec.Code)
		}
		assertErrorCode(t, parseJSON(t, rec), "TRANSACTION_NOT_FOUND")
	})
}

func TestTransactionHandler_CreateTransfer(t *testing.T) {
	t.Run("returns 201 with both legs", func(t *testing.T) {
		var got services.TransferInput
		transfers := &mockTransferService{
			transferFn: func(_ context.Context, in services.TransferInput) (*services.TransferResult, error) {
				got = in
				return &services.TransferResult{
					ConceptID:   "t1",
					Source:      models.Transaction{AccountID: in.FromAccountID, AmountMinor: -in.AmountMinor},
					Destination: models.Transaction{AccountID: in.ToAccountID, AmountMinor: in.AmountMinor},
				}, nil
			},
		}
		r := setupTransactionRouter(NewTransactionHandler(&mockTransactionService{}, transfers))

		rec := doRequest(r, "POST", "/transfers", `{"from_account_id":"checking","to_account_id":"visa","amount_minor":2500}`)
		if rec.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
		}
		transfer := parseJSON(t, rec)["transfer"].(map[string]interface{})
		if transfer["concept_id"] != "t1" {
			t.Errorf("unexpected transfer %v", transfer)
		}
		if got.FromAccountID != "checking" || got.ToAccountID != "visa" || got.CategoryID != "" {
			t.Errorf("unexpected input %+v", got)
		}
	})

	t.Run("returns 400 on non-positive amount", func(t *testing.T) {
		r := setupTransactionRouter(NewTransactionHandler(&mockTransactionService{}, &mockTransferService{}))
		rec := doRequest(r, "POST", "/transfers", `{"from_account_id":"a","to_account_id":"b","amount_minor":-5}`)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})
}

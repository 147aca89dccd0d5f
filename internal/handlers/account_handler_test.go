package handlers

import (
	"context"
	"iter"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"

	apperrors "dojo/internal/errors"
	"dojo/internal/models"
	"dojo/internal/services"
)

// --- mock account service ---

type mockAccountService struct {
	createAccountFn     func(ctx context.Context, in services.AccountInput) (*models.Account, error)
	getAccountFn        func(ctx context.Context, accountID string) (*models.Account, error)
	listAccountsFn      func(ctx context.Context, includeInactive bool) ([]models.Account, error)
	updateAccountFn     func(ctx context.Context, accountID string, upd services.AccountUpdate) (*models.Account, error)
	retireAccountFn     func(ctx context.Context, accountID string) error
	getAccountBalanceFn func(ctx context.Context, accountID string) (*services.AccountBalance, error)
	netWorthFn          func(ctx context.Context) (*services.NetWorth, error)
}

func (m *mockAccountService) CreateAccount(ctx context.Context, in services.AccountInput) (*models.Account, error) {
	if m.createAccountFn != nil {
		return m.createAccountFn(ctx, in)
	}
	return &models.Account{}, nil
}

func (m *mockAccountService) GetAccount(ctx context.Context, accountID string) (*models.Account, error) {
	if m.getAccountFn != nil {
		return m.getAccountFn(ctx, accountID)
	}
	return &models.Account{ID: accountID}, nil
}

func (m *mockAccountService) ListAccounts(ctx context.Context, includeInactive bool) ([]models.Account, error) {
	if m.listAccountsFn != nil {
		return m.listAccountsFn(ctx, includeInactive)
	}
	return []models.Account{}, nil
}

func (m *mockAccountService) UpdateAccount(ctx context.Context, accountID string, upd services.AccountUpdate) (*models.Account, error) {
	if m.updateAccountFn != nil {
		return m.updateAccountFn(ctx, accountID, upd)
	}
	return &models.Account{ID: accountID}, nil
}

func (m *mockAccountService) RetireAccount(ctx context.Context, accountID string) error {
	if m.retireAccountFn != nil {
		return m.retireAccountFn(ctx, accountID)
	}
	return nil
}

func (m *mockAccountService) GetAccountBalance(ctx context.Context, accountID string) (*services.AccountBalance, error) {
	if m.getAccountBalanceFn != nil {
		return m.getAccountBalanceFn(ctx, accountID)
	}
	return &services.AccountBalance{AccountID: accountID}, nil
}

func (m *mockAccountService) NetWorth(ctx context.Context) (*services.NetWorth, error) {
	if m.netWorthFn != nil {
		return m.netWorthFn(ctx)
	}
	return &services.NetWorth{}, nil
}

// verify interface compliance
var _ services.AccountServicer = (*mockAccountService)(nil)

func setupAccountRouter(handler *AccountHandler) *gin.Engine {
	r := gin.New()
	r.POST("/accounts", handler.CreateAccount)
	r.GET("/accounts", handler.ListAccounts)
	r.GET("/accounts/:id", handler.GetAccount)
	r.PUT("/accounts/:id", handler.UpdateAccount)
	r.DELETE("/accounts/:id", handler.RetireAccount)
	r.GET("/accounts/:id/balance", handler.GetAccountBalance)
	r.GET("/accounts/:id/transactions", handler.GetAccountTransactions)
	r.GET("/net-worth", handler.GetNetWorth)
	return r
}

func TestAccountHandler_CreateAccount(t *testing.T) {
	t.Run("returns 201 on success", func(t *testing.T) {
		var got services.AccountInput
		svc := &mockAccountService{
			createAccountFn: func(_ context.Context, in services.AccountInput) (*models.Account, error) {
				got = in
				return &models.Account{
					ID:                  "visa",
					Name:                in.Name,
					Type:                models.AccountTypeLiability,
					Class:               in.Class,
					Role:                models.AccountRoleOnBudget,
					Currency:            "USD",
					CurrentBalanceMinor: in.OpeningBalanceMinor,
					IsActive:            true,
				}, nil
			},
		}
		r := setupAccountRouter(NewAccountHandler(svc, &mockTransactionService{}))

		rec := doRequest(r, "POST", "/accounts",
			`{"account_id":"visa","name":"Visa","account_class":"credit","currency":"USD","opening_balance_minor":-12000,"opened_on":"2024-06-01"}`)

		if rec.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
		}
		acct := parseJSON(t, rec)["account"].(map[string]interface{})
		if acct["account_type"] != "liability" || acct["current_balance_minor"] != float64(-12000) {
			t.Errorf("unexpected account %v", acct)
		}
		if got.Class != models.AccountClassCredit || got.Type != "" || got.OpenedOn == nil {
			t.Errorf("unexpected input %+v", got)
		}
	})

	tests := []struct {
		name string
		body string
	}{
		{"missing name", `{"account_class":"cash"}`},
		{"invalid currency", `{"name":"x","currency":"ABC"}`},
		{"invalid class", `{"name":"x","account_class":"crypto"}`},
		{"invalid role", `{"name":"x","account_role":"hidden"}`},
		{"invalid opened_on", `{"name":"x","opened_on":"June 1st"}`},
	}
	for _, tt := range tests {
		t.Run("returns 400 on "+tt.name, func(t *testing.T) {
			r := setupAccountRouter(NewAccountHandler(&mockAccountService{}, &mockTransactionService{}))
			rec := doRequest(r, "POST", "/accounts", tt.body)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d", rec.Code)
			}
			assertErrorCode(t, parseJSON(t, rec), "VALIDATION_ERROR")
		})
	}

	t.Run("returns 409 on duplicate id", func(t *testing.T) {
		svc := &mockAccountService{
			createAccountFn: func(context.Context, services.AccountInput) (*models.Account, error) {
				return nil, apperrors.ErrAccountExists
			},
		}
		r := setupAccountRouter(NewAccountHandler(svc, &mockTransactionService{}))

		rec := doRequest(r, "POST", "/accounts", `{"account_id":"checking","name":"Checking"}`)
		if rec.Code != http.StatusConflict {
			t.Fatalf("expected 409, got %d", rec.Code)
		}
		assertErrorCode(t, parseJSON(t, rec), "ACCOUNT_EXISTS")
	})
}

func TestAccountHandler_ListAndRetire(t *testing.T) {
	t.Run("include_inactive is parsed", func(t *testing.T) {
		var got bool
		svc := &mockAccountService{
			listAccountsFn: func(_ context.Context, includeInactive bool) ([]models.Account, error) {
				got = includeInactive
				return []models.Account{{ID: "a"}, {ID: "b"}}, nil
			},
		}
		r := setupAccountRouter(NewAccountHandler(svc, &mockTransactionService{}))

		rec := doRequest(r, "GET", "/accounts?include_inactive=true", "")
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		if !got {
			t.Error("expected include_inactive to be true")
		}
		if n := len(parseJSON(t, rec)["accounts"].([]interface{})); n != 2 {
			t.Errorf("expected 2 accounts, got %d", n)
		}

		rec = doRequest(r, "GET", "/accounts?include_inactive=maybe", "")
		if rec.Code != http.StatusBadRequest {
			t.Errorf("expected 400, got %d", rec.Code)
		}
	})

	t.Run("retire returns 204", func(t *testing.T) {
		var got string
		svc := &mockAccountService{
			retireAccountFn: func(_ context.Context, accountID string) error {
				got = accountID
				return nil
			},
		}
		r := setupAccountRouter(NewAccountHandler(svc, &mockTransactionService{}))

		rec := doRequest(r, "DELETE", "/accounts/old", "")
		if rec.Code != http.StatusNoContent {
			t.Fatalf("expected 204, got %d", rec.Code)
		}
		if got != "old" {
			t.Errorf("expected old, got %s", got)
		}
	})

	t.Run("unknown account returns 404", func(t *testing.T) {
		svc := &mockAccountService{
			getAccountBalanceFn: func(context.Context, string) (*services.AccountBalance, error) {
				return nil, apperrors.ErrAccountNotFound
			},
			getAccountFn: func(context.Context, string) (*models.Account, error) {
				return nil, apperrors.ErrAccountNotFound
			},
		}
		r := setupAccountRouter(NewAccountHandler(svc, &mockTransactionService{}))

		for _, path := range []string{"/accounts/nope", "/accounts/nope/balance", "/accounts/nope/transactions"} {
			rec := doRequest(r, "GET", path, "")
			if rec.Code != http.StatusNotFound {
				t.Errorf("%s: expected 404, got %d", path, rec.Code)
				continue
			}
			assertErrorCode(t, parseJSON(t, rec), "ACCOUNT_NOT_FOUND")
		}
	})
}

func TestAccountHandler_Transactions(t *testing.T) {
	var got services.TransactionFilter
	txns := &mockTransactionService{
		listActiveFn: func(_ context.Context, filter services.TransactionFilter) iter.Seq2[models.Transaction, error] {
			got = filter
			return seqOf(models.Transaction{AccountID: filter.AccountID})
		},
	}
	r := setupAccountRouter(NewAccountHandler(&mockAccountService{}, txns))

	rec := doRequest(r, "GET", "/accounts/checking/transactions", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if got.AccountID != "checking" {
		t.Errorf("expected account filter, got %+v", got)
	}
	if parseJSON(t, rec)["total_items"] != float64(1) {
		t.Error("expected one transaction")
	}
}

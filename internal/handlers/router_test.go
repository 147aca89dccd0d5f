package handlers

import (
	"fmt"
	"net/http"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	_ "dojo/internal/docs"
	"dojo/internal/middleware"
	"dojo/internal/services"
	"dojo/internal/testutil"
)

func setupLedgerRouter(t *testing.T) *gin.Engine {
	t.Helper()
	db := testutil.SetupTestDB(t)
	t.Cleanup(func() { testutil.TeardownTestDB(t, db) })

	clk := testutil.NewTestClock()
	reg := services.NewRegistry(testutil.NewTestWriter(db), clk, services.Options{MaxFutureDays: 5, DefaultCurrency: "USD"})
	return NewRouter(reg, clk, RouterOptions{AllowTestDate: true})
}

func mustStatus(t *testing.T, got, want int, body string) {
	t.Helper()
	if got != want {
		t.Fatalf("expected %d, got %d: %s", want, got, body)
	}
}

func TestRouter_BudgetFlow(t *testing.T) {
	r := setupLedgerRouter(t)

	rec := doRequest(r, "GET", "/api/v1/health", "")
	mustStatus(t, rec.Code, http.StatusOK, rec.Body.String())

	rec = doRequest(r, "POST", "/api/v1/accounts", `{"account_id":"checking","name":"Checking","opening_balance_minor":100000}`)
	mustStatus(t, rec.Code, http.StatusCreated, rec.Body.String())

	rec = doRequest(r, "POST", "/api/v1/categories", `{"name":"Groceries"}`)
	mustStatus(t, rec.Code, http.StatusCreated, rec.Body.String())
	if id := parseJSON(t, rec)["category"].(map[string]interface{})["category_id"]; id != "groceries" {
		t.Fatalf("expected slug id, got %v", id)
	}

	rec = doRequest(r, "POST", "/api/v1/allocations", `{"to_category_id":"groceries","amount_minor":30000}`)
	mustStatus(t, rec.Code, http.StatusCreated, rec.Body.String())

	rec = doRequest(r, "POST", "/api/v1/transactions", `{"account_id":"checking","category_id":"groceries","amount_minor":-4500}`)
	mustStatus(t, rec.Code, http.StatusCreated, rec.Body.String())

	rec = doRequest(r, "GET", "/api/v1/categories/groceries/months/2025-01", "")
	mustStatus(t, rec.Code, http.StatusOK, rec.Body.String())
	state := parseJSON(t, rec)
	if state["available_minor"] != float64(25500) || state["activity_minor"] != float64(4500) {
		t.Errorf("unexpected envelope %v", state)
	}

	rec = doRequest(r, "GET", "/api/v1/budget/ready-to-assign?month=2025-01", "")
	mustStatus(t, rec.Code, http.StatusOK, rec.Body.String())
	if rta := parseJSON(t, rec)["ready_to_assign_minor"]; rta != float64(70000) {
		t.Errorf("expected 70000 ready to assign, got %v", rta)
	}

	rec = doRequest(r, "POST", "/api/v1/allocations", `{"to_category_id":"groceries","amount_minor":999999}`)
	mustStatus(t, rec.Code, http.StatusUnprocessableEntity, rec.Body.String())
	details := assertErrorCode(t, parseJSON(t, rec), "INSUFFICIENT_FUNDS")["details"].(map[string]interface{})
	if details["requested_minor"] != float64(999999) || details["source"] != "ready_to_assign" {
		t.Errorf("unexpected details %v", details)
	}

	rec = doRequest(r, "GET", "/api/v1/accounts/checking/balance", "")
	mustStatus(t, rec.Code, http.StatusOK, rec.Body.String())
	if bal := parseJSON(t, rec)["current_balance_minor"]; bal != float64(95500) {
		t.Errorf("expected 95500, got %v", bal)
	}

	rec = doRequest(r, "GET", "/api/v1/transactions?account_id=checking", "")
	mustStatus(t, rec.Code, http.StatusOK, rec.Body.String())
	if n := parseJSON(t, rec)["total_items"]; n != float64(2) {
		t.Errorf("expected opening balance and spend, got %v", n)
	}

	rec = doRequest(r, "GET", "/api/v1/admin/cache/verify", "")
	mustStatus(t, rec.Code, http.StatusOK, rec.Body.String())
	report := parseJSON(t, rec)
	if drift, _ := report["account_drift"].([]interface{}); len(drift) != 0 {
		t.Errorf("expected no drift, got %v", drift)
	}

	rec = doRequest(r, "GET", "/api/v1/events?entity_type=transaction", "")
	mustStatus(t, rec.Code, http.StatusOK, rec.Body.String())
	if n := parseJSON(t, rec)["total_items"]; n != float64(1) {
		t.Errorf("expected 1 transaction event, got %v", n)
	}
}

func TestRouter_TestDateHeader(t *testing.T) {
	r := setupLedgerRouter(t)

	rec := doRequest(r, "POST", "/api/v1/accounts", `{"account_id":"checking","name":"Checking"}`)
	mustStatus(t, rec.Code, http.StatusCreated, rec.Body.String())

	pinned := map[string]string{middleware.TestDateHeader: "2025-01-10"}
	rec = doRequestWithHeaders(r, "POST", "/api/v1/transactions",
		`{"account_id":"checking","category_id":"available_to_budget","amount_minor":500}`, pinned)
	mustStatus(t, rec.Code, http.StatusCreated, rec.Body.String())
	txn := parseJSON(t, rec)["transaction"].(map[string]interface{})
	if txn["transaction_date"] != "2025-01-10T00:00:00Z" {
		t.Errorf("expected pinned date, got %v", txn["transaction_date"])
	}

	// Five days past the pinned today is the last accepted date.
	early := map[string]string{middleware.TestDateHeader: "2025-01-01"}
	for day, want := range map[string]int{"2025-01-06": http.StatusCreated, "2025-01-07": http.StatusBadRequest} {
		body := fmt.Sprintf(`{"account_id":"checking","category_id":"available_to_budget","amount_minor":1,"transaction_date":%q}`, day)
		rec = doRequestWithHeaders(r, "POST", "/api/v1/transactions", body, early)
		mustStatus(t, rec.Code, want, rec.Body.String())
	}
}

func TestRouter_TransferAndReconciliation(t *testing.T) {
	r := setupLedgerRouter(t)

	for _, body := range []string{
		`{"account_id":"checking","name":"Checking","opening_balance_minor":50000}`,
		`{"account_id":"savings","name":"Savings"}`,
	} {
		rec := doRequest(r, "POST", "/api/v1/accounts", body)
		mustStatus(t, rec.Code, http.StatusCreated, rec.Body.String())
	}

	rec := doRequest(r, "POST", "/api/v1/transfers", `{"from_account_id":"checking","to_account_id":"savings","amount_minor":20000}`)
	mustStatus(t, rec.Code, http.StatusCreated, rec.Body.String())
	conceptID := parseJSON(t, rec)["transfer"].(map[string]interface{})["concept_id"].(string)

	rec = doRequest(r, "GET", "/api/v1/transactions/"+conceptID, "")
	mustStatus(t, rec.Code, http.StatusOK, rec.Body.String())
	if legs := parseJSON(t, rec)["transaction"].([]interface{}); len(legs) != 2 {
		t.Fatalf("expected 2 legs, got %d", len(legs))
	}

	rec = doRequestWithHeaders(r, "PUT", "/api/v1/transactions/"+conceptID, `{"memo":"edit"}`, map[string]string{"If-Match": conceptID})
	mustStatus(t, rec.Code, http.StatusBadRequest, rec.Body.String())

	rec = doRequest(r, "GET", "/api/v1/net-worth", "")
	mustStatus(t, rec.Code, http.StatusOK, rec.Body.String())
	if nw := parseJSON(t, rec)["net_worth_minor"]; nw != float64(50000) {
		t.Errorf("expected transfers to conserve net worth, got %v", nw)
	}

	rec = doRequest(r, "POST", "/api/v1/net-worth/snapshots", "")
	mustStatus(t, rec.Code, http.StatusCreated, rec.Body.String())

	rec = doRequest(r, "GET", "/api/v1/net-worth/history?from=2025-01-14", "")
	mustStatus(t, rec.Code, http.StatusOK, rec.Body.String())
	points := parseJSON(t, rec)["points"].([]interface{})
	if len(points) != 2 || points[1].(map[string]interface{})["net_worth_minor"] != float64(50000) {
		t.Errorf("unexpected history %v", points)
	}

	rec = doRequest(r, "POST", "/api/v1/accounts/checking/reconciliations", `{"statement_date":"2025-01-14","statement_balance_minor":31000}`)
	mustStatus(t, rec.Code, http.StatusUnprocessableEntity, rec.Body.String())
	details := assertErrorCode(t, parseJSON(t, rec), "BALANCE_MISMATCH")["details"].(map[string]interface{})
	if details["cleared_balance_minor"] != float64(30000) || details["difference_minor"] != float64(1000) {
		t.Errorf("unexpected details %v", details)
	}

	rec = doRequest(r, "POST", "/api/v1/accounts/checking/reconciliations", `{"statement_date":"2025-01-14","statement_balance_minor":30000}`)
	mustStatus(t, rec.Code, http.StatusCreated, rec.Body.String())

	rec = doRequest(r, "GET", "/api/v1/accounts/checking/reconciliation", "")
	mustStatus(t, rec.Code, http.StatusOK, rec.Body.String())
	ws := parseJSON(t, rec)
	if ws["last_reconciliation"] == nil {
		t.Error("expected worksheet to link the checkpoint")
	}
	if items, _ := ws["items"].([]interface{}); len(items) != 0 {
		t.Errorf("expected nothing left to check, got %d items", len(items))
	}

	rec = doRequest(r, "POST", "/api/v1/accounts/checking/reconciliations", `{"statement_balance_minor":30000}`)
	mustStatus(t, rec.Code, http.StatusBadRequest, rec.Body.String())
}

func TestRouter_SwaggerDoc(t *testing.T) {
	r := setupLedgerRouter(t)

	rec := doRequest(r, "GET", "/swagger/doc.json", "")
	mustStatus(t, rec.Code, http.StatusOK, rec.Body.String())
	body := rec.Body.String()
	if !strings.Contains(body, "Dojo API") || !strings.Contains(body, "/budget/ready-to-assign") {
		t.Errorf("unexpected swagger document: %.200s", body)
	}
}

func TestRouter_CategoryGoalsAndGroups(t *testing.T) {
	r := setupLedgerRouter(t)

	rec := doRequest(r, "POST", "/api/v1/category-groups", `{"name":"Savings Goals","sort_order":3}`)
	mustStatus(t, rec.Code, http.StatusCreated, rec.Body.String())

	rec = doRequest(r, "POST", "/api/v1/categories",
		`{"name":"Vacation","group_id":"savings_goals","goal_type":"target_date","goal_amount_minor":250000,"goal_target_date":"2025-07-01"}`)
	mustStatus(t, rec.Code, http.StatusCreated, rec.Body.String())
	category := parseJSON(t, rec)["category"].(map[string]interface{})
	if category["goal_type"] != "target_date" || category["goal_amount_minor"] != float64(250000) {
		t.Errorf("unexpected goal %v", category)
	}

	rec = doRequest(r, "PUT", "/api/v1/categories/vacation", `{"goal_type":"recurring","goal_amount_minor":20000,"goal_frequency":"monthly"}`)
	mustStatus(t, rec.Code, http.StatusOK, rec.Body.String())
	category = parseJSON(t, rec)["category"].(map[string]interface{})
	if category["goal_frequency"] != "monthly" || category["goal_target_date"] != nil {
		t.Errorf("unexpected goal %v", category)
	}

	for _, body := range []string{
		`{"goal_amount_minor":100}`,
		`{"goal_type":"weekly","goal_amount_minor":100}`,
		`{"clear_goal":true,"goal_type":"recurring","goal_amount_minor":1,"goal_frequency":"yearly"}`,
	} {
		rec = doRequest(r, "PUT", "/api/v1/categories/vacation", body)
		mustStatus(t, rec.Code, http.StatusBadRequest, rec.Body.String())
	}

	rec = doRequest(r, "PUT", "/api/v1/categories/vacation", `{"clear_goal":true}`)
	mustStatus(t, rec.Code, http.StatusOK, rec.Body.String())
	if _, ok := parseJSON(t, rec)["category"].(map[string]interface{})["goal_type"]; ok {
		t.Error("expected goal to be cleared")
	}

	rec = doRequest(r, "POST", "/api/v1/categories", `{"category_id":"payment_visa","name":"Visa"}`)
	mustStatus(t, rec.Code, http.StatusBadRequest, rec.Body.String())

	rec = doRequest(r, "PUT", "/api/v1/category-groups/savings_goals", `{"name":"Goals","sort_order":0}`)
	mustStatus(t, rec.Code, http.StatusOK, rec.Body.String())
	if g := parseJSON(t, rec)["group"].(map[string]interface{}); g["name"] != "Goals" || g["sort_order"] != float64(0) {
		t.Errorf("unexpected group %v", g)
	}

	rec = doRequest(r, "DELETE", "/api/v1/category-groups/savings_goals", "")
	mustStatus(t, rec.Code, http.StatusNoContent, rec.Body.String())

	rec = doRequest(r, "GET", "/api/v1/category-groups", "")
	mustStatus(t, rec.Code, http.StatusOK, rec.Body.String())
	if groups := parseJSON(t, rec)["groups"].([]interface{}); len(groups) != 0 {
		t.Errorf("expected retired group hidden, got %v", groups)
	}

	rec = doRequest(r, "DELETE", "/api/v1/category-groups/credit_card_payments", "")
	mustStatus(t, rec.Code, http.StatusConflict, rec.Body.String())
	assertErrorCode(t, parseJSON(t, rec), "SYSTEM_CATEGORY")

	rec = doRequest(r, "PUT", "/api/v1/category-groups/missing", `{"name":"x"}`)
	mustStatus(t, rec.Code, http.StatusNotFound, rec.Body.String())
}

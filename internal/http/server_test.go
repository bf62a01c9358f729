package http

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"monea/internal/auth"
	"monea/internal/log"
	"monea/internal/services"
	"monea/internal/storage"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	repo, err := storage.NewRepository(t.TempDir() + "/test.db")
	if err != nil {
		t.Fatalf("NewRepository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })

	logger := log.New(log.DefaultConfig())
	tokens := auth.NewTokenService("test-secret-key-0123456789", time.Hour)

	authSvc := services.NewAuthService(repo, tokens, logger)
	transactions := services.NewTransactionService(repo, nil, logger)
	budgets := services.NewBudgetService(repo, logger)
	creditCards := services.NewCreditCardService(repo, transactions, logger)
	recurring := services.NewRecurringService(repo, transactions, logger)
	alerts := services.NewAlertService(repo, budgets, creditCards, logger)
	goals := services.NewGoalService(repo, alerts, logger)
	analytics := services.NewAnalyticsService(repo, budgets, logger)
	canSpend := services.NewCanSpendService(repo, budgets, creditCards, analytics, logger)
	subscriptions := services.NewSubscriptionService(repo, logger)
	investments := services.NewInvestmentService(repo, logger)
	exports := services.NewExportService(repo, logger)

	srv := NewServer(":0", repo, tokens, Services{
		Auth:          authSvc,
		Transactions:  transactions,
		Budgets:       budgets,
		Goals:         goals,
		CreditCards:   creditCards,
		Recurring:     recurring,
		Alerts:        alerts,
		Analytics:     analytics,
		CanSpend:      canSpend,
		Subscriptions: subscriptions,
		Investments:   investments,
		Exports:       exports,
	}, logger)
	t.Cleanup(func() { srv.rateLimiter.stop() })
	return srv
}

func doJSON(t *testing.T, srv *Server, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal request: %v", err)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, req)
	return rr
}

func decodeMap(t *testing.T, rr *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var m map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &m); err != nil {
		t.Fatalf("decode response %q: %v", rr.Body.String(), err)
	}
	return m
}

func registerUser(t *testing.T, srv *Server, email string) string {
	t.Helper()
	rr := doJSON(t, srv, http.MethodPost, "/api/auth/register", "", map[string]any{
		"email":    email,
		"username": "u_" + email[:3],
		"password": "hunter2hunter2",
	})
	if rr.Code != http.StatusCreated {
		t.Fatalf("register status = %d, body %s", rr.Code, rr.Body.String())
	}
	token, _ := decodeMap(t, rr)["token"].(string)
	if token == "" {
		t.Fatal("register returned no token")
	}
	return token
}

func TestHealthAndIndex(t *testing.T) {
	srv := newTestServer(t)

	rr := doJSON(t, srv, http.MethodGet, "/health", "", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("health status = %d", rr.Code)
	}
	rr = doJSON(t, srv, http.MethodGet, "/", "", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("index status = %d", rr.Code)
	}
}

func TestAuthFlow(t *testing.T) {
	srv := newTestServer(t)
	registerUser(t, srv, "ana@example.com")

	// Duplicate email conflicts.
	rr := doJSON(t, srv, http.MethodPost, "/api/auth/register", "", map[string]any{
		"email":    "ana@example.com",
		"username": "other",
		"password": "hunter2hunter2",
	})
	if rr.Code != http.StatusConflict {
		t.Fatalf("duplicate register status = %d, body %s", rr.Code, rr.Body.String())
	}

	rr = doJSON(t, srv, http.MethodPost, "/api/auth/login", "", map[string]any{
		"email":    "ana@example.com",
		"password": "hunter2hunter2",
	})
	if rr.Code != http.StatusOK {
		t.Fatalf("login status = %d, body %s", rr.Code, rr.Body.String())
	}
	token, _ := decodeMap(t, rr)["token"].(string)

	rr = doJSON(t, srv, http.MethodGet, "/api/auth/me", token, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("me status = %d", rr.Code)
	}
	if got := decodeMap(t, rr)["email"]; got != "ana@example.com" {
		t.Fatalf("me email = %v", got)
	}

	rr = doJSON(t, srv, http.MethodPost, "/api/auth/login", "", map[string]any{
		"email":    "ana@example.com",
		"password": "wrong-password",
	})
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("bad login status = %d", rr.Code)
	}
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	srv := newTestServer(t)

	for _, path := range []string{"/api/accounts", "/api/transactions", "/api/analytics/dashboard"} {
		rr := doJSON(t, srv, http.MethodGet, path, "", nil)
		if rr.Code != http.StatusUnauthorized {
			t.Errorf("%s without token status = %d, want 401", path, rr.Code)
		}
	}

	rr := doJSON(t, srv, http.MethodGet, "/api/accounts", "not-a-real-token", nil)
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("garbage token status = %d, want 401", rr.Code)
	}
}

func TestTransactionLifecycle(t *testing.T) {
	srv := newTestServer(t)
	token := registerUser(t, srv, "ana@example.com")

	rr := doJSON(t, srv, http.MethodPost, "/api/accounts", token, map[string]any{
		"name":            "Débito BBVA",
		"type":            "debit",
		"initial_balance": "5000.00",
	})
	if rr.Code != http.StatusCreated {
		t.Fatalf("create account status = %d, body %s", rr.Code, rr.Body.String())
	}
	accountID := decodeMap(t, rr)["id"].(float64)

	rr = doJSON(t, srv, http.MethodPost, "/api/categories", token, map[string]any{
		"name": "Comida",
		"type": "expense",
	})
	if rr.Code != http.StatusCreated {
		t.Fatalf("create category status = %d, body %s", rr.Code, rr.Body.String())
	}
	categoryID := decodeMap(t, rr)["id"].(float64)

	rr = doJSON(t, srv, http.MethodPost, "/api/transactions", token, map[string]any{
		"account_id":  accountID,
		"category_id": categoryID,
		"type":        "expense",
		"amount":      "150.50",
		"date":        "2026-03-10",
		"merchant":    "Tacos El Güero",
	})
	if rr.Code != http.StatusCreated {
		t.Fatalf("create transaction status = %d, body %s", rr.Code, rr.Body.String())
	}
	created := decodeMap(t, rr)
	if created["amount"] != "150.50" {
		t.Fatalf("created amount = %v, want 150.50", created["amount"])
	}
	txID := int64(created["id"].(float64))

	rr = doJSON(t, srv, http.MethodGet, "/api/transactions?type=expense", token, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("list transactions status = %d", rr.Code)
	}
	var list []map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &list); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("list length = %d, want 1", len(list))
	}

	// Balance reflects the expense.
	rr = doJSON(t, srv, http.MethodGet, "/api/accounts/1/balance", token, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("balance status = %d", rr.Code)
	}
	if got := decodeMap(t, rr)["balance"]; got != "4849.50" {
		t.Fatalf("balance = %v, want 4849.50", got)
	}

	rr = doJSON(t, srv, http.MethodDelete, "/api/transactions/999", token, nil)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("delete missing status = %d, want 404", rr.Code)
	}

	rr = doJSON(t, srv, http.MethodDelete, fmt.Sprintf("/api/transactions/%d", txID), token, nil)
	if rr.Code != http.StatusNoContent {
		t.Fatalf("delete status = %d", rr.Code)
	}
}

func TestTransferValidation(t *testing.T) {
	srv := newTestServer(t)
	token := registerUser(t, srv, "ana@example.com")

	rr := doJSON(t, srv, http.MethodPost, "/api/accounts", token, map[string]any{
		"name": "Efectivo", "type": "cash", "initial_balance": "1000.00",
	})
	if rr.Code != http.StatusCreated {
		t.Fatalf("create account status = %d", rr.Code)
	}

	// A transfer into the same account is rejected.
	rr = doJSON(t, srv, http.MethodPost, "/api/transactions", token, map[string]any{
		"account_id":    1,
		"type":          "transfer",
		"amount":        "100.00",
		"date":          "2026-03-10",
		"to_account_id": 1,
	})
	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("same-account transfer status = %d, want 422, body %s", rr.Code, rr.Body.String())
	}
}

func TestDashboardAndCanSpend(t *testing.T) {
	srv := newTestServer(t)
	token := registerUser(t, srv, "ana@example.com")

	rr := doJSON(t, srv, http.MethodPost, "/api/accounts", token, map[string]any{
		"name": "Nómina", "type": "debit", "initial_balance": "20000.00",
	})
	if rr.Code != http.StatusCreated {
		t.Fatalf("create account status = %d", rr.Code)
	}

	rr = doJSON(t, srv, http.MethodGet, "/api/analytics/dashboard", token, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("dashboard status = %d, body %s", rr.Code, rr.Body.String())
	}
	dashboard := decodeMap(t, rr)
	if dashboard["liquid_balance"] != "20000.00" {
		t.Fatalf("liquid_balance = %v, want 20000.00", dashboard["liquid_balance"])
	}

	rr = doJSON(t, srv, http.MethodPost, "/api/can-i-spend", token, map[string]any{
		"amount": "500.00",
	})
	if rr.Code != http.StatusOK {
		t.Fatalf("can-i-spend status = %d, body %s", rr.Code, rr.Body.String())
	}
	if verdict := decodeMap(t, rr)["verdict"]; verdict != "yes" {
		t.Fatalf("verdict = %v, want yes", verdict)
	}

	// More than the liquid balance is a clear no.
	rr = doJSON(t, srv, http.MethodPost, "/api/can-i-spend", token, map[string]any{
		"amount": "50000.00",
	})
	if rr.Code != http.StatusOK {
		t.Fatalf("can-i-spend status = %d", rr.Code)
	}
	if verdict := decodeMap(t, rr)["verdict"]; verdict != "no" {
		t.Fatalf("verdict = %v, want no", verdict)
	}
}

func TestValidationErrors(t *testing.T) {
	srv := newTestServer(t)
	token := registerUser(t, srv, "ana@example.com")

	// Unknown fields are rejected.
	rr := doJSON(t, srv, http.MethodPost, "/api/accounts", token, map[string]any{
		"name": "X", "type": "debit", "bogus": true,
	})
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("unknown field status = %d, want 400", rr.Code)
	}

	// Invalid enum value.
	rr = doJSON(t, srv, http.MethodPost, "/api/accounts", token, map[string]any{
		"name": "X", "type": "checking",
	})
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("invalid type status = %d, want 400, body %s", rr.Code, rr.Body.String())
	}

	// Short password.
	rr = doJSON(t, srv, http.MethodPost, "/api/auth/register", "", map[string]any{
		"email": "b@example.com", "username": "b", "password": "short",
	})
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("short password status = %d, want 400", rr.Code)
	}
}

func TestUserIsolation(t *testing.T) {
	srv := newTestServer(t)
	anaToken := registerUser(t, srv, "ana@example.com")
	benToken := registerUser(t, srv, "ben@example.com")

	rr := doJSON(t, srv, http.MethodPost, "/api/accounts", anaToken, map[string]any{
		"name": "Privada", "type": "cash",
	})
	if rr.Code != http.StatusCreated {
		t.Fatalf("create account status = %d", rr.Code)
	}

	rr = doJSON(t, srv, http.MethodGet, "/api/accounts/1", benToken, nil)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("cross-user get status = %d, want 404", rr.Code)
	}
}

func TestExportCSV(t *testing.T) {
	srv := newTestServer(t)
	token := registerUser(t, srv, "ana@example.com")

	rr := doJSON(t, srv, http.MethodPost, "/api/accounts", token, map[string]any{
		"name": "Efectivo", "type": "cash", "initial_balance": "1000.00",
	})
	if rr.Code != http.StatusCreated {
		t.Fatalf("create account status = %d", rr.Code)
	}
	rr = doJSON(t, srv, http.MethodPost, "/api/transactions", token, map[string]any{
		"account_id": 1, "type": "expense", "amount": "25.00", "date": "2026-01-15",
	})
	if rr.Code != http.StatusCreated {
		t.Fatalf("create transaction status = %d", rr.Code)
	}

	rr = doJSON(t, srv, http.MethodGet, "/api/export/transactions.csv", token, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("export status = %d", rr.Code)
	}
	if ct := rr.Header().Get("Content-Type"); ct != "text/csv; charset=utf-8" {
		t.Fatalf("content type = %q", ct)
	}
	if !bytes.Contains(rr.Body.Bytes(), []byte("25.00")) {
		t.Fatalf("csv missing amount: %s", rr.Body.String())
	}
}

// Package http exposes the JSON API.
package http

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"net/http"
	"time"

	"monea/internal/auth"
	"monea/internal/log"
	"monea/internal/services"
	"monea/internal/storage"
)

// Services bundles everything the handlers need.
type Services struct {
	Auth          *services.AuthService
	Transactions  *services.TransactionService
	Budgets       *services.BudgetService
	Goals         *services.GoalService
	CreditCards   *services.CreditCardService
	Recurring     *services.RecurringService
	Alerts        *services.AlertService
	Analytics     *services.AnalyticsService
	CanSpend      *services.CanSpendService
	Subscriptions *services.SubscriptionService
	Investments   *services.InvestmentService
	Exports       *services.ExportService
}

type Server struct {
	http.Server
	repo        *storage.Repository
	tokens      *auth.TokenService
	svc         Services
	rateLimiter *rateLimiter
	logger      *log.Logger
}

// NewServer configures routes and middleware, returning a ready-to-run server.
func NewServer(addr string, repo *storage.Repository, tokens *auth.TokenService, svc Services, logger *log.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		Server:      http.Server{Addr: addr, Handler: mux},
		repo:        repo,
		tokens:      tokens,
		svc:         svc,
		rateLimiter: newRateLimiter(120),
		logger:      logger.WithComponent(log.ComponentHTTP),
	}

	mux.HandleFunc("GET /", s.handleIndex)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /docs", s.handleDocs)
	mux.HandleFunc("GET /redoc", s.handleDocs)
	mux.HandleFunc("OPTIONS /", s.handlePreflight)

	mux.HandleFunc("POST /api/auth/register", s.public(s.handleRegister))
	mux.HandleFunc("POST /api/auth/login", s.public(s.handleLogin))
	mux.HandleFunc("GET /api/auth/me", s.protected(s.handleMe))
	mux.HandleFunc("PUT /api/auth/settings", s.protected(s.handleUpdateSettings))

	mux.HandleFunc("POST /api/accounts", s.protected(s.handleCreateAccount))
	mux.HandleFunc("GET /api/accounts", s.protected(s.handleListAccounts))
	mux.HandleFunc("GET /api/accounts/{id}", s.protected(s.handleGetAccount))
	mux.HandleFunc("PUT /api/accounts/{id}", s.protected(s.handleUpdateAccount))
	mux.HandleFunc("DELETE /api/accounts/{id}", s.protected(s.handleArchiveAccount))
	mux.HandleFunc("GET /api/accounts/{id}/balance", s.protected(s.handleAccountBalance))

	mux.HandleFunc("POST /api/categories", s.protected(s.handleCreateCategory))
	mux.HandleFunc("GET /api/categories", s.protected(s.handleListCategories))
	mux.HandleFunc("PUT /api/categories/{id}", s.protected(s.handleUpdateCategory))
	mux.HandleFunc("DELETE /api/categories/{id}", s.protected(s.handleDeleteCategory))

	mux.HandleFunc("POST /api/transactions", s.protected(s.handleCreateTransaction))
	mux.HandleFunc("GET /api/transactions", s.protected(s.handleListTransactions))
	mux.HandleFunc("GET /api/transactions/{id}", s.protected(s.handleGetTransaction))
	mux.HandleFunc("PUT /api/transactions/{id}", s.protected(s.handleUpdateTransaction))
	mux.HandleFunc("DELETE /api/transactions/{id}", s.protected(s.handleDeleteTransaction))
	mux.HandleFunc("POST /api/transactions/installments", s.protected(s.handleCreateInstallmentPlan))

	mux.HandleFunc("POST /api/budgets", s.protected(s.handleCreateBudget))
	mux.HandleFunc("GET /api/budgets", s.protected(s.handleListBudgets))
	mux.HandleFunc("GET /api/budgets/progress", s.protected(s.handleBudgetProgressAll))
	mux.HandleFunc("GET /api/budgets/{id}", s.protected(s.handleGetBudget))
	mux.HandleFunc("GET /api/budgets/{id}/progress", s.protected(s.handleBudgetProgress))
	mux.HandleFunc("PUT /api/budgets/{id}", s.protected(s.handleUpdateBudget))
	mux.HandleFunc("DELETE /api/budgets/{id}", s.protected(s.handleDeleteBudget))

	mux.HandleFunc("POST /api/goals", s.protected(s.handleCreateGoal))
	mux.HandleFunc("GET /api/goals", s.protected(s.handleListGoals))
	mux.HandleFunc("GET /api/goals/{id}", s.protected(s.handleGetGoal))
	mux.HandleFunc("PUT /api/goals/{id}", s.protected(s.handleUpdateGoal))
	mux.HandleFunc("DELETE /api/goals/{id}", s.protected(s.handleDeleteGoal))
	mux.HandleFunc("POST /api/goals/{id}/contributions", s.protected(s.handleGoalContribute))
	mux.HandleFunc("GET /api/goals/{id}/contributions", s.protected(s.handleGoalContributions))
	mux.HandleFunc("POST /api/goals/{id}/withdrawals", s.protected(s.handleGoalWithdraw))
	mux.HandleFunc("GET /api/goals/{id}/projection", s.protected(s.handleGoalProjection))

	mux.HandleFunc("POST /api/credit-cards", s.protected(s.handleCreateCreditCard))
	mux.HandleFunc("GET /api/credit-cards", s.protected(s.handleListCreditCards))
	mux.HandleFunc("GET /api/credit-cards/summary", s.protected(s.handleCardSummaryAll))
	mux.HandleFunc("GET /api/credit-cards/{id}", s.protected(s.handleGetCreditCard))
	mux.HandleFunc("PUT /api/credit-cards/{id}", s.protected(s.handleUpdateCreditCard))
	mux.HandleFunc("DELETE /api/credit-cards/{id}", s.protected(s.handleDeleteCreditCard))
	mux.HandleFunc("GET /api/credit-cards/{id}/summary", s.protected(s.handleCardSummary))
	mux.HandleFunc("POST /api/credit-cards/{id}/payments", s.protected(s.handleCardPayment))
	mux.HandleFunc("GET /api/credit-cards/{id}/installments", s.protected(s.handleCardInstallments))
	mux.HandleFunc("GET /api/credit-cards/{id}/payoff-simulation", s.protected(s.handleCardPayoffSimulation))

	mux.HandleFunc("POST /api/recurring", s.protected(s.handleCreateRecurring))
	mux.HandleFunc("GET /api/recurring", s.protected(s.handleListRecurring))
	mux.HandleFunc("GET /api/recurring/upcoming", s.protected(s.handleRecurringUpcoming))
	mux.HandleFunc("GET /api/recurring/{id}", s.protected(s.handleGetRecurring))
	mux.HandleFunc("PUT /api/recurring/{id}", s.protected(s.handleUpdateRecurring))
	mux.HandleFunc("DELETE /api/recurring/{id}", s.protected(s.handleDeleteRecurring))
	mux.HandleFunc("POST /api/recurring/{id}/materialize", s.protected(s.handleMaterializeRecurring))

	mux.HandleFunc("GET /api/alerts", s.protected(s.handleListAlerts))
	mux.HandleFunc("POST /api/alerts", s.protected(s.handleCreateAlert))
	mux.HandleFunc("POST /api/alerts/read-all", s.protected(s.handleMarkAllAlertsRead))
	mux.HandleFunc("POST /api/alerts/{id}/read", s.protected(s.handleMarkAlertRead))
	mux.HandleFunc("DELETE /api/alerts/{id}", s.protected(s.handleDeleteAlert))

	mux.HandleFunc("GET /api/analytics/dashboard", s.protected(s.handleDashboard))
	mux.HandleFunc("GET /api/analytics/by-category", s.protected(s.handleByCategory))
	mux.HandleFunc("GET /api/analytics/monthly-trend", s.protected(s.handleMonthlyTrend))
	mux.HandleFunc("GET /api/analytics/small-expenses", s.protected(s.handleSmallExpenses))
	mux.HandleFunc("GET /api/analytics/net-worth", s.protected(s.handleNetWorth))
	mux.HandleFunc("GET /api/analytics/monthly-report", s.protected(s.handleMonthlyReport))

	mux.HandleFunc("POST /api/can-i-spend", s.protected(s.handleCanSpend))

	mux.HandleFunc("POST /api/subscriptions", s.protected(s.handleCreateSubscription))
	mux.HandleFunc("GET /api/subscriptions", s.protected(s.handleListSubscriptions))
	mux.HandleFunc("GET /api/subscriptions/summary", s.protected(s.handleSubscriptionSummary))
	mux.HandleFunc("POST /api/subscriptions/detect", s.protected(s.handleDetectSubscriptions))
	mux.HandleFunc("GET /api/subscriptions/{id}", s.protected(s.handleGetSubscription))
	mux.HandleFunc("PUT /api/subscriptions/{id}", s.protected(s.handleUpdateSubscription))
	mux.HandleFunc("DELETE /api/subscriptions/{id}", s.protected(s.handleDeleteSubscription))

	mux.HandleFunc("POST /api/investments", s.protected(s.handleCreateInvestment))
	mux.HandleFunc("GET /api/investments", s.protected(s.handleListInvestments))
	mux.HandleFunc("GET /api/investments/portfolio", s.protected(s.handlePortfolio))
	mux.HandleFunc("GET /api/investments/{id}", s.protected(s.handleGetInvestment))
	mux.HandleFunc("PUT /api/investments/{id}", s.protected(s.handleUpdateInvestment))
	mux.HandleFunc("DELETE /api/investments/{id}", s.protected(s.handleDeleteInvestment))
	mux.HandleFunc("PUT /api/investments/{id}/price", s.protected(s.handleUpdateInvestmentPrice))
	mux.HandleFunc("POST /api/investments/{id}/transactions", s.protected(s.handleCreateInvestmentTransaction))
	mux.HandleFunc("GET /api/investments/{id}/transactions", s.protected(s.handleListInvestmentTransactions))

	mux.HandleFunc("GET /api/export/transactions.csv", s.protected(s.handleExportCSV))
	mux.HandleFunc("GET /api/export/transactions.json", s.protected(s.handleExportJSON))

	return s
}

// Shutdown stops the rate limiter cleanup goroutine and the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.rateLimiter.stop()
	return s.Server.Shutdown(ctx)
}

// public wraps unauthenticated endpoints with the common middleware.
func (s *Server) public(next http.HandlerFunc) http.HandlerFunc {
	return s.withCommon(next)
}

// protected additionally requires a valid Bearer token and stores the user id
// in the request context.
func (s *Server) protected(next http.HandlerFunc) http.HandlerFunc {
	return s.withCommon(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if header == "" {
			writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "Authorization header required"})
			return
		}
		if len(header) < 8 || header[:7] != "Bearer " {
			writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "invalid Authorization header format"})
			return
		}
		userID, err := s.tokens.ParseToken(header[7:])
		if err != nil {
			writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "invalid or expired token"})
			return
		}
		ctx := context.WithValue(r.Context(), log.ContextKey(log.FieldUserID), userID)
		next(w, r.WithContext(ctx))
	})
}

// userID returns the authenticated user from the request context.
func userID(r *http.Request) int64 {
	id, _ := r.Context().Value(log.ContextKey(log.FieldUserID)).(int64)
	return id
}

// allowedOrigins is the browser CORS allow-list. Edited in source, not env.
var allowedOrigins = []string{
	"http://localhost:3000",
	"http://localhost:5173",
	"http://127.0.0.1:3000",
}

func originAllowed(origin string) bool {
	for _, o := range allowedOrigins {
		if o == origin {
			return true
		}
	}
	return false
}

func setCORSHeaders(w http.ResponseWriter, origin string) {
	w.Header().Set("Access-Control-Allow-Origin", origin)
	w.Header().Set("Access-Control-Allow-Credentials", "true")
	w.Header().Add("Vary", "Origin")
}

// handlePreflight answers CORS preflight for every API path.
func (s *Server) handlePreflight(w http.ResponseWriter, r *http.Request) {
	if origin := r.Header.Get("Origin"); originAllowed(origin) {
		setCORSHeaders(w, origin)
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type")
		w.Header().Set("Access-Control-Max-Age", "600")
	}
	w.WriteHeader(http.StatusNoContent)
}

// withCommon adds security headers, rate limiting, request IDs and logging.
func (s *Server) withCommon(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		clientIP := r.Header.Get("X-Forwarded-For")
		if clientIP == "" {
			clientIP = r.Header.Get("X-Real-IP")
		}
		if clientIP == "" {
			clientIP = r.RemoteAddr
		}

		requestID := generateRequestID()
		ctx := context.WithValue(r.Context(), log.ContextKey(log.FieldRequestID), requestID)
		r = r.WithContext(ctx)

		if r.Method != http.MethodGet && !s.rateLimiter.allow(clientIP) {
			s.logger.WarnContext(ctx, "Rate limit exceeded",
				log.FieldClientIP, clientIP, log.FieldMethod, r.Method, log.FieldPath, r.URL.Path)
			w.Header().Set("Retry-After", "60")
			writeJSON(w, http.StatusTooManyRequests, errorResponse{Error: "rate limit exceeded"})
			return
		}

		if origin := r.Header.Get("Origin"); originAllowed(origin) {
			setCORSHeaders(w, origin)
		}

		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		w.Header().Set("Cache-Control", "no-store")

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next(rw, r)

		s.logger.InfoContext(ctx, "Request completed",
			log.FieldRequestID, requestID,
			log.FieldMethod, r.Method,
			log.FieldPath, r.URL.Path,
			log.FieldStatusCode, rw.statusCode,
			log.FieldDuration, time.Since(start).Milliseconds(),
			log.FieldClientIP, clientIP)
	}
}

// responseWriter wraps http.ResponseWriter to capture the status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func generateRequestID() string {
	bytes := make([]byte, 8)
	if _, err := rand.Read(bytes); err != nil {
		return fmt.Sprintf("req_%d", time.Now().UnixNano())
	}
	return "req_" + hex.EncodeToString(bytes)
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "not found"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"service": "monea",
		"status":  "running",
		"docs":    "/docs",
	})
}

// handleDocs serves a machine-readable endpoint catalog at the conventional
// documentation paths.
func (s *Server) handleDocs(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"service": "monea",
		"auth":    "Bearer token from POST /api/auth/login",
		"resources": map[string][]string{
			"auth":          {"POST /api/auth/register", "POST /api/auth/login", "GET /api/auth/me", "PUT /api/auth/settings"},
			"accounts":      {"POST /api/accounts", "GET /api/accounts", "GET /api/accounts/{id}", "PUT /api/accounts/{id}", "DELETE /api/accounts/{id}", "GET /api/accounts/{id}/balance"},
			"categories":    {"POST /api/categories", "GET /api/categories", "PUT /api/categories/{id}", "DELETE /api/categories/{id}"},
			"transactions":  {"POST /api/transactions", "GET /api/transactions", "GET /api/transactions/{id}", "PUT /api/transactions/{id}", "DELETE /api/transactions/{id}", "POST /api/transactions/installments"},
			"budgets":       {"POST /api/budgets", "GET /api/budgets", "GET /api/budgets/progress", "GET /api/budgets/{id}", "GET /api/budgets/{id}/progress", "PUT /api/budgets/{id}", "DELETE /api/budgets/{id}"},
			"goals":         {"POST /api/goals", "GET /api/goals", "GET /api/goals/{id}", "PUT /api/goals/{id}", "DELETE /api/goals/{id}", "POST /api/goals/{id}/contributions", "GET /api/goals/{id}/contributions", "POST /api/goals/{id}/withdrawals", "GET /api/goals/{id}/projection"},
			"credit_cards":  {"POST /api/credit-cards", "GET /api/credit-cards", "GET /api/credit-cards/summary", "GET /api/credit-cards/{id}", "PUT /api/credit-cards/{id}", "DELETE /api/credit-cards/{id}", "GET /api/credit-cards/{id}/summary", "POST /api/credit-cards/{id}/payments", "GET /api/credit-cards/{id}/installments", "GET /api/credit-cards/{id}/payoff-simulation"},
			"recurring":     {"POST /api/recurring", "GET /api/recurring", "GET /api/recurring/upcoming", "GET /api/recurring/{id}", "PUT /api/recurring/{id}", "DELETE /api/recurring/{id}", "POST /api/recurring/{id}/materialize"},
			"alerts":        {"GET /api/alerts", "POST /api/alerts", "POST /api/alerts/read-all", "POST /api/alerts/{id}/read", "DELETE /api/alerts/{id}"},
			"analytics":     {"GET /api/analytics/dashboard", "GET /api/analytics/by-category", "GET /api/analytics/monthly-trend", "GET /api/analytics/small-expenses", "GET /api/analytics/net-worth", "GET /api/analytics/monthly-report", "POST /api/can-i-spend"},
			"subscriptions": {"POST /api/subscriptions", "GET /api/subscriptions", "GET /api/subscriptions/summary", "POST /api/subscriptions/detect", "GET /api/subscriptions/{id}", "PUT /api/subscriptions/{id}", "DELETE /api/subscriptions/{id}"},
			"investments":   {"POST /api/investments", "GET /api/investments", "GET /api/investments/portfolio", "GET /api/investments/{id}", "PUT /api/investments/{id}", "DELETE /api/investments/{id}", "PUT /api/investments/{id}/price", "POST /api/investments/{id}/transactions", "GET /api/investments/{id}/transactions"},
			"export":        {"GET /api/export/transactions.csv", "GET /api/export/transactions.json"},
		},
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.repo.Health(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "unhealthy", "database": err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

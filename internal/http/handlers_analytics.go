package http

import (
	"net/http"
	"time"

	"monea/internal/core"
)

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	dashboard, err := s.svc.Analytics.Dashboard(r.Context(), userID(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dashboard)
}

func (s *Server) handleByCategory(w http.ResponseWriter, r *http.Request) {
	from, ok := queryDate(r, "from")
	if !ok {
		badRequest(w, errInvalidDateParam("from").Error())
		return
	}
	to, ok := queryDate(r, "to")
	if !ok {
		badRequest(w, errInvalidDateParam("to").Error())
		return
	}
	txType := core.TransactionType(r.URL.Query().Get("type"))
	if txType == "" {
		txType = core.Expense
	}
	sums, err := s.svc.Analytics.ByCategory(r.Context(), userID(r), from, to, txType)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sums)
}

func (s *Server) handleMonthlyTrend(w http.ResponseWriter, r *http.Request) {
	months := queryInt(r, "months", 6)
	if months < 1 || months > 36 {
		months = 6
	}
	trend, err := s.svc.Analytics.MonthlyTrend(r.Context(), userID(r), months)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, trend)
}

func (s *Server) handleSmallExpenses(w http.ResponseWriter, r *http.Request) {
	from, ok := queryDate(r, "from")
	if !ok {
		badRequest(w, errInvalidDateParam("from").Error())
		return
	}
	to, ok := queryDate(r, "to")
	if !ok {
		badRequest(w, errInvalidDateParam("to").Error())
		return
	}
	threshold := core.Money{Cents: queryInt64(r, "threshold_cents")}
	sums, err := s.svc.Analytics.SmallExpenses(r.Context(), userID(r), from, to, threshold)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sums)
}

func (s *Server) handleNetWorth(w http.ResponseWriter, r *http.Request) {
	report, err := s.svc.Analytics.NetWorth(r.Context(), userID(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (s *Server) handleMonthlyReport(w http.ResponseWriter, r *http.Request) {
	month := r.URL.Query().Get("month")
	if month == "" {
		month = time.Now().UTC().Format("2006-01")
	}
	if _, err := time.Parse("2006-01", month); err != nil {
		badRequest(w, "invalid month, expected YYYY-MM")
		return
	}
	report, err := s.svc.Analytics.MonthlyReport(r.Context(), userID(r), month)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

type canSpendRequest struct {
	Amount     core.Money `json:"amount"`
	CategoryID int64      `json:"category_id"`
}

func (s *Server) handleCanSpend(w http.ResponseWriter, r *http.Request) {
	var req canSpendRequest
	if err := decodeJSON(r, &req); err != nil {
		badRequest(w, err.Error())
		return
	}
	answer, err := s.svc.CanSpend.Analyze(r.Context(), userID(r), req.Amount, req.CategoryID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, answer)
}

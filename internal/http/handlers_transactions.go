package http

import (
	"encoding/json"
	"net/http"
	"time"

	"monea/internal/core"
	"monea/internal/storage"
)

type splitRequest struct {
	CategoryID int64      `json:"category_id" validate:"required,gt=0"`
	Amount     core.Money `json:"amount"`
	Notes      string     `json:"notes" validate:"max=500"`
}

type transactionRequest struct {
	AccountID      int64          `json:"account_id" validate:"required,gt=0"`
	CategoryID     int64          `json:"category_id"`
	Type           string         `json:"type" validate:"required,oneof=expense income transfer"`
	Amount         core.Money     `json:"amount"`
	Currency       string         `json:"currency" validate:"omitempty,len=3"`
	Date           string         `json:"date" validate:"required,dateonly"`
	Merchant       string         `json:"merchant" validate:"max=200"`
	Notes          string         `json:"notes" validate:"max=1000"`
	Tags           []string       `json:"tags" validate:"max=20"`
	ToAccountID    int64          `json:"to_account_id"`
	IsReimbursable bool           `json:"is_reimbursable"`
	Reimbursed     bool           `json:"reimbursed"`
	Splits         []splitRequest `json:"splits" validate:"dive"`
}

func (req transactionRequest) toTransaction(uid int64) core.Transaction {
	date, _ := time.Parse(core.DateOnly, req.Date)
	currency := req.Currency
	if currency == "" {
		currency = core.DefaultCurrency
	}
	t := core.Transaction{
		UserID:         uid,
		AccountID:      req.AccountID,
		CategoryID:     req.CategoryID,
		Type:           core.TransactionType(req.Type),
		Amount:         req.Amount,
		Currency:       currency,
		Date:           date,
		Merchant:       req.Merchant,
		Notes:          req.Notes,
		ToAccountID:    req.ToAccountID,
		IsReimbursable: req.IsReimbursable,
		Reimbursed:     req.Reimbursed,
	}
	if len(req.Tags) > 0 {
		encoded, err := json.Marshal(req.Tags)
		if err == nil {
			t.Tags = string(encoded)
		}
	}
	for _, sp := range req.Splits {
		t.Splits = append(t.Splits, core.TransactionSplit{
			CategoryID: sp.CategoryID,
			Amount:     sp.Amount,
			Notes:      sp.Notes,
		})
	}
	return t
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	var req transactionRequest
	if err := decodeJSON(r, &req); err != nil {
		badRequest(w, err.Error())
		return
	}
	uid := userID(r)
	created, err := s.svc.Transactions.Create(r.Context(), req.toTransaction(uid))
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.svc.Analytics.Invalidate(uid)
	writeJSON(w, http.StatusCreated, created)
}

// transactionFilter reads list narrowing from query parameters.
func transactionFilter(r *http.Request) (storage.TransactionFilter, error) {
	f := storage.TransactionFilter{
		AccountID:  queryInt64(r, "account_id"),
		CategoryID: queryInt64(r, "category_id"),
		Type:       core.TransactionType(r.URL.Query().Get("type")),
		Tag:        r.URL.Query().Get("tag"),
		Search:     r.URL.Query().Get("q"),
		Limit:      queryInt(r, "limit", 50),
		Offset:     queryInt(r, "offset", 0),
	}
	from, ok := queryDate(r, "from")
	if !ok {
		return f, errInvalidDateParam("from")
	}
	to, ok := queryDate(r, "to")
	if !ok {
		return f, errInvalidDateParam("to")
	}
	f.From, f.To = from, to
	if f.Limit < 1 || f.Limit > 500 {
		f.Limit = 50
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
	return f, nil
}

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	f, err := transactionFilter(r)
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	transactions, err := s.svc.Transactions.List(r.Context(), userID(r), f)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, transactions)
}

func (s *Server) handleGetTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	t, err := s.svc.Transactions.Get(r.Context(), userID(r), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (s *Server) handleUpdateTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	var req transactionRequest
	if err := decodeJSON(r, &req); err != nil {
		badRequest(w, err.Error())
		return
	}
	uid := userID(r)
	t := req.toTransaction(uid)
	t.ID = id
	updated, err := s.svc.Transactions.Update(r.Context(), t)
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.svc.Analytics.Invalidate(uid)
	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	uid := userID(r)
	if err := s.svc.Transactions.Delete(r.Context(), uid, id); err != nil {
		writeError(w, r, err)
		return
	}
	s.svc.Analytics.Invalidate(uid)
	writeJSON(w, http.StatusNoContent, nil)
}

type installmentPlanRequest struct {
	CreditCardID         int64      `json:"credit_card_id" validate:"required,gt=0"`
	CategoryID           int64      `json:"category_id"`
	Description          string     `json:"description" validate:"required,notblank,max=200"`
	Merchant             string     `json:"merchant" validate:"max=200"`
	TotalAmount          core.Money `json:"total_amount"`
	NumberOfInstallments int        `json:"number_of_installments" validate:"required,gte=2,lte=60"`
	PurchaseDate         string     `json:"purchase_date" validate:"required,dateonly"`
}

type installmentPlanResponse struct {
	Purchase     core.InstallmentPurchase `json:"purchase"`
	Transactions []core.Transaction       `json:"transactions"`
}

func (s *Server) handleCreateInstallmentPlan(w http.ResponseWriter, r *http.Request) {
	var req installmentPlanRequest
	if err := decodeJSON(r, &req); err != nil {
		badRequest(w, err.Error())
		return
	}
	date, _ := time.Parse(core.DateOnly, req.PurchaseDate)
	uid := userID(r)
	purchase, transactions, err := s.svc.Transactions.CreateInstallmentPlan(r.Context(), core.InstallmentPurchase{
		CreditCardID:         req.CreditCardID,
		UserID:               uid,
		CategoryID:           req.CategoryID,
		Description:          req.Description,
		Merchant:             req.Merchant,
		TotalAmount:          req.TotalAmount,
		NumberOfInstallments: req.NumberOfInstallments,
		PurchaseDate:         date,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.svc.Analytics.Invalidate(uid)
	writeJSON(w, http.StatusCreated, installmentPlanResponse{Purchase: purchase, Transactions: transactions})
}

package http

import (
	"net/http"
	"time"

	"monea/internal/core"
)

type investmentRequest struct {
	Name          string     `json:"name" validate:"required,notblank,max=100"`
	Ticker        string     `json:"ticker" validate:"max=20"`
	Type          string     `json:"type" validate:"required,oneof=stock etf mutual_fund crypto bond real_estate other"`
	Quantity      float64    `json:"quantity" validate:"required,gt=0"`
	PurchasePrice core.Money `json:"purchase_price"`
	CurrentPrice  core.Money `json:"current_price"`
	PurchaseDate  string     `json:"purchase_date" validate:"omitempty,dateonly"`
	BrokerAccount string     `json:"broker_account" validate:"max=100"`
	Currency      string     `json:"currency" validate:"omitempty,len=3"`
	Notes         string     `json:"notes" validate:"max=1000"`
}

func (req investmentRequest) toInvestment(uid int64) core.Investment {
	inv := core.Investment{
		UserID:        uid,
		Name:          req.Name,
		Ticker:        req.Ticker,
		Type:          core.InvestmentType(req.Type),
		Quantity:      req.Quantity,
		PurchasePrice: req.PurchasePrice,
		CurrentPrice:  req.CurrentPrice,
		BrokerAccount: req.BrokerAccount,
		Currency:      req.Currency,
		Notes:         req.Notes,
		IsActive:      true,
	}
	if req.PurchaseDate != "" {
		inv.PurchaseDate, _ = time.Parse(core.DateOnly, req.PurchaseDate)
	}
	return inv
}

func (s *Server) handleCreateInvestment(w http.ResponseWriter, r *http.Request) {
	var req investmentRequest
	if err := decodeJSON(r, &req); err != nil {
		badRequest(w, err.Error())
		return
	}
	created, err := s.svc.Investments.Create(r.Context(), req.toInvestment(userID(r)))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleListInvestments(w http.ResponseWriter, r *http.Request) {
	investments, err := s.svc.Investments.List(r.Context(), userID(r), !queryBool(r, "include_inactive"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, investments)
}

func (s *Server) handleGetInvestment(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	inv, err := s.svc.Investments.Get(r.Context(), userID(r), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, inv)
}

func (s *Server) handleUpdateInvestment(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	uid := userID(r)
	existing, err := s.svc.Investments.Get(r.Context(), uid, id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req investmentRequest
	if err := decodeJSON(r, &req); err != nil {
		badRequest(w, err.Error())
		return
	}
	inv := req.toInvestment(uid)
	inv.ID = existing.ID
	inv.LastPriceUpdate = existing.LastPriceUpdate
	inv.IsActive = existing.IsActive
	updated, err := s.svc.Investments.Update(r.Context(), inv)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) handleDeleteInvestment(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	if err := s.svc.Investments.Delete(r.Context(), userID(r), id); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}

type priceUpdateRequest struct {
	Price core.Money `json:"price"`
}

func (s *Server) handleUpdateInvestmentPrice(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	var req priceUpdateRequest
	if err := decodeJSON(r, &req); err != nil {
		badRequest(w, err.Error())
		return
	}
	inv, err := s.svc.Investments.UpdatePrice(r.Context(), userID(r), id, req.Price)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, inv)
}

type investmentTxRequest struct {
	Type         string     `json:"type" validate:"required,oneof=buy sell dividend split adjustment"`
	Quantity     float64    `json:"quantity" validate:"gte=0"`
	PricePerUnit core.Money `json:"price_per_unit"`
	TotalAmount  core.Money `json:"total_amount"`
	Date         string     `json:"date" validate:"omitempty,dateonly"`
	Fees         core.Money `json:"fees"`
	Notes        string     `json:"notes" validate:"max=1000"`
}

func (s *Server) handleCreateInvestmentTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	var req investmentTxRequest
	if err := decodeJSON(r, &req); err != nil {
		badRequest(w, err.Error())
		return
	}
	t := core.InvestmentTransaction{
		InvestmentID: id,
		UserID:       userID(r),
		Type:         core.InvestmentTxType(req.Type),
		Quantity:     req.Quantity,
		PricePerUnit: req.PricePerUnit,
		TotalAmount:  req.TotalAmount,
		Fees:         req.Fees,
		Notes:        req.Notes,
	}
	if req.Date != "" {
		t.Date, _ = time.Parse(core.DateOnly, req.Date)
	}
	created, err := s.svc.Investments.RecordTransaction(r.Context(), t)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleListInvestmentTransactions(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	transactions, err := s.svc.Investments.Transactions(r.Context(), userID(r), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, transactions)
}

func (s *Server) handlePortfolio(w http.ResponseWriter, r *http.Request) {
	portfolio, err := s.svc.Investments.Portfolio(r.Context(), userID(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, portfolio)
}

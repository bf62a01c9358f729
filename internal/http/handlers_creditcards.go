package http

import (
	"net/http"
	"time"

	"monea/internal/core"
)

type creditCardRequest struct {
	AccountID                int64      `json:"account_id" validate:"required,gt=0"`
	CardName                 string     `json:"card_name" validate:"required,notblank,max=100"`
	LastFourDigits           string     `json:"last_four_digits" validate:"omitempty,len=4,number"`
	CreditLimit              core.Money `json:"credit_limit"`
	CutoffDay                int        `json:"cutoff_day" validate:"required,gte=1,lte=28"`
	PaymentDueDay            int        `json:"payment_due_day" validate:"required,gte=1,lte=28"`
	AnnualInterestRate       float64    `json:"annual_interest_rate" validate:"gte=0,lte=200"`
	MinimumPaymentPercentage float64    `json:"minimum_payment_percentage" validate:"gte=0,lte=100"`
	Color                    string     `json:"color" validate:"max=20"`
	Icon                     string     `json:"icon" validate:"max=50"`
	AlertDaysBeforeCutoff    int        `json:"alert_days_before_cutoff" validate:"gte=0,lte=28"`
	AlertDaysBeforePayment   int        `json:"alert_days_before_payment" validate:"gte=0,lte=28"`
	AlertWhenUsageExceeds    float64    `json:"alert_when_usage_exceeds" validate:"gte=0,lte=100"`
}

func (req creditCardRequest) toCard(uid int64) core.CreditCard {
	return core.CreditCard{
		UserID:                   uid,
		AccountID:                req.AccountID,
		CardName:                 req.CardName,
		LastFourDigits:           req.LastFourDigits,
		CreditLimit:              req.CreditLimit,
		CutoffDay:                req.CutoffDay,
		PaymentDueDay:            req.PaymentDueDay,
		AnnualInterestRate:       req.AnnualInterestRate,
		MinimumPaymentPercentage: req.MinimumPaymentPercentage,
		Color:                    req.Color,
		Icon:                     req.Icon,
		AlertDaysBeforeCutoff:    req.AlertDaysBeforeCutoff,
		AlertDaysBeforePayment:   req.AlertDaysBeforePayment,
		AlertWhenUsageExceeds:    req.AlertWhenUsageExceeds,
		IsActive:                 true,
	}
}

func (s *Server) handleCreateCreditCard(w http.ResponseWriter, r *http.Request) {
	var req creditCardRequest
	if err := decodeJSON(r, &req); err != nil {
		badRequest(w, err.Error())
		return
	}
	created, err := s.svc.CreditCards.Create(r.Context(), req.toCard(userID(r)))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleListCreditCards(w http.ResponseWriter, r *http.Request) {
	cards, err := s.svc.CreditCards.List(r.Context(), userID(r), !queryBool(r, "include_inactive"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, cards)
}

func (s *Server) handleGetCreditCard(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	card, err := s.svc.CreditCards.Get(r.Context(), userID(r), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, card)
}

func (s *Server) handleUpdateCreditCard(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	uid := userID(r)
	existing, err := s.svc.CreditCards.Get(r.Context(), uid, id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req creditCardRequest
	if err := decodeJSON(r, &req); err != nil {
		badRequest(w, err.Error())
		return
	}
	card := req.toCard(uid)
	card.ID = existing.ID
	card.IsActive = existing.IsActive
	updated, err := s.svc.CreditCards.Update(r.Context(), card)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) handleDeleteCreditCard(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	if err := s.svc.CreditCards.Delete(r.Context(), userID(r), id); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}

func (s *Server) handleCardSummary(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	summary, err := s.svc.CreditCards.Summary(r.Context(), userID(r), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (s *Server) handleCardSummaryAll(w http.ResponseWriter, r *http.Request) {
	summaries, err := s.svc.CreditCards.SummaryAll(r.Context(), userID(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, summaries)
}

type cardPaymentRequest struct {
	FromAccountID int64      `json:"from_account_id" validate:"required,gt=0"`
	Amount        core.Money `json:"amount"`
	Date          string     `json:"date" validate:"omitempty,dateonly"`
}

func (s *Server) handleCardPayment(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	var req cardPaymentRequest
	if err := decodeJSON(r, &req); err != nil {
		badRequest(w, err.Error())
		return
	}
	date := time.Now().UTC().Truncate(24 * time.Hour)
	if req.Date != "" {
		date, _ = time.Parse(core.DateOnly, req.Date)
	}
	uid := userID(r)
	payment, err := s.svc.CreditCards.RegisterPayment(r.Context(), uid, id, req.FromAccountID, req.Amount, date)
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.svc.Analytics.Invalidate(uid)
	writeJSON(w, http.StatusCreated, payment)
}

func (s *Server) handleCardInstallments(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	purchases, err := s.svc.CreditCards.InstallmentPurchases(r.Context(), userID(r), id, !queryBool(r, "include_completed"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, purchases)
}

func (s *Server) handleCardPayoffSimulation(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	simulation, err := s.svc.CreditCards.SimulateMinimumPayoff(r.Context(), userID(r), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, simulation)
}

package http

import (
	"net/http"
	"time"

	"monea/internal/core"
)

type subscriptionRequest struct {
	Name         string     `json:"name" validate:"required,notblank,max=100"`
	Amount       core.Money `json:"amount"`
	Currency     string     `json:"currency" validate:"omitempty,len=3"`
	Frequency    string     `json:"frequency" validate:"omitempty,oneof=daily weekly biweekly monthly bimonthly quarterly semiannual annual"`
	BillingDay   int        `json:"billing_day" validate:"omitempty,gte=1,lte=28"`
	CategoryID   int64      `json:"category_id"`
	AccountID    int64      `json:"account_id"`
	URL          string     `json:"url" validate:"omitempty,url,max=500"`
	Notes        string     `json:"notes" validate:"max=1000"`
	TrialEndDate string     `json:"trial_end_date" validate:"omitempty,dateonly"`
}

func (req subscriptionRequest) toSubscription(uid int64) core.Subscription {
	sub := core.Subscription{
		UserID:     uid,
		Name:       req.Name,
		Amount:     req.Amount,
		Currency:   req.Currency,
		Frequency:  core.RecurrenceFrequency(req.Frequency),
		BillingDay: req.BillingDay,
		CategoryID: req.CategoryID,
		AccountID:  req.AccountID,
		URL:        req.URL,
		Notes:      req.Notes,
		IsActive:   true,
	}
	if req.TrialEndDate != "" {
		sub.TrialEndDate, _ = time.Parse(core.DateOnly, req.TrialEndDate)
	}
	return sub
}

func (s *Server) handleCreateSubscription(w http.ResponseWriter, r *http.Request) {
	var req subscriptionRequest
	if err := decodeJSON(r, &req); err != nil {
		badRequest(w, err.Error())
		return
	}
	created, err := s.svc.Subscriptions.Create(r.Context(), req.toSubscription(userID(r)))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleListSubscriptions(w http.ResponseWriter, r *http.Request) {
	subs, err := s.svc.Subscriptions.List(r.Context(), userID(r), !queryBool(r, "include_inactive"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, subs)
}

func (s *Server) handleGetSubscription(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	sub, err := s.svc.Subscriptions.Get(r.Context(), userID(r), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sub)
}

func (s *Server) handleUpdateSubscription(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	uid := userID(r)
	existing, err := s.svc.Subscriptions.Get(r.Context(), uid, id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req subscriptionRequest
	if err := decodeJSON(r, &req); err != nil {
		badRequest(w, err.Error())
		return
	}
	sub := req.toSubscription(uid)
	sub.ID = existing.ID
	sub.RecurringID = existing.RecurringID
	sub.NextBillingDate = existing.NextBillingDate
	sub.IsActive = existing.IsActive
	sub.IsDetected = existing.IsDetected
	updated, err := s.svc.Subscriptions.Update(r.Context(), sub)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) handleDeleteSubscription(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	if err := s.svc.Subscriptions.Delete(r.Context(), userID(r), id); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}

func (s *Server) handleSubscriptionSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := s.svc.Subscriptions.Summary(r.Context(), userID(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (s *Server) handleDetectSubscriptions(w http.ResponseWriter, r *http.Request) {
	months := queryInt(r, "months", 3)
	if months < 1 {
		months = 1
	}
	if months > 24 {
		months = 24
	}
	detected, err := s.svc.Subscriptions.DetectFromHistory(r.Context(), userID(r), months)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"detected": detected})
}

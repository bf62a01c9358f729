package http

import (
	"net/http"
	"time"

	"monea/internal/core"
)

type recurringRequest struct {
	AccountID           int64      `json:"account_id" validate:"required,gt=0"`
	CategoryID          int64      `json:"category_id"`
	Name                string     `json:"name" validate:"required,notblank,max=100"`
	Type                string     `json:"type" validate:"required,oneof=expense income"`
	Amount              core.Money `json:"amount"`
	IsVariableAmount    bool       `json:"is_variable_amount"`
	Frequency           string     `json:"frequency" validate:"required,oneof=daily weekly biweekly monthly bimonthly quarterly semiannual annual custom"`
	CustomFrequencyDays int        `json:"custom_frequency_days" validate:"gte=0,lte=365"`
	DayOfMonth          int        `json:"day_of_month" validate:"gte=0,lte=31"`
	StartDate           string     `json:"start_date" validate:"required,dateonly"`
	EndDate             string     `json:"end_date" validate:"omitempty,dateonly"`
	AutoCreate          bool       `json:"auto_create"`
	NotifyBeforeDays    int        `json:"notify_before_days" validate:"gte=0,lte=28"`
	Merchant            string     `json:"merchant" validate:"max=200"`
	Notes               string     `json:"notes" validate:"max=1000"`
}

func (req recurringRequest) toRecurring(uid int64) core.RecurringTransaction {
	rec := core.RecurringTransaction{
		UserID:              uid,
		AccountID:           req.AccountID,
		CategoryID:          req.CategoryID,
		Name:                req.Name,
		Type:                core.TransactionType(req.Type),
		Amount:              req.Amount,
		IsVariableAmount:    req.IsVariableAmount,
		Frequency:           core.RecurrenceFrequency(req.Frequency),
		CustomFrequencyDays: req.CustomFrequencyDays,
		DayOfMonth:          req.DayOfMonth,
		AutoCreate:          req.AutoCreate,
		NotifyBeforeDays:    req.NotifyBeforeDays,
		Merchant:            req.Merchant,
		Notes:               req.Notes,
		IsActive:            true,
	}
	rec.StartDate, _ = time.Parse(core.DateOnly, req.StartDate)
	if req.EndDate != "" {
		rec.EndDate, _ = time.Parse(core.DateOnly, req.EndDate)
	}
	return rec
}

func (s *Server) handleCreateRecurring(w http.ResponseWriter, r *http.Request) {
	var req recurringRequest
	if err := decodeJSON(r, &req); err != nil {
		badRequest(w, err.Error())
		return
	}
	created, err := s.svc.Recurring.Create(r.Context(), req.toRecurring(userID(r)))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleListRecurring(w http.ResponseWriter, r *http.Request) {
	recs, err := s.svc.Recurring.List(r.Context(), userID(r), !queryBool(r, "include_inactive"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, recs)
}

func (s *Server) handleGetRecurring(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	rec, err := s.svc.Recurring.Get(r.Context(), userID(r), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) handleUpdateRecurring(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	uid := userID(r)
	existing, err := s.svc.Recurring.Get(r.Context(), uid, id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req recurringRequest
	if err := decodeJSON(r, &req); err != nil {
		badRequest(w, err.Error())
		return
	}
	rec := req.toRecurring(uid)
	rec.ID = existing.ID
	rec.IsActive = existing.IsActive
	rec.LastCreatedDate = existing.LastCreatedDate
	updated, err := s.svc.Recurring.Update(r.Context(), rec)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) handleDeleteRecurring(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	if err := s.svc.Recurring.Delete(r.Context(), userID(r), id); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}

func (s *Server) handleRecurringUpcoming(w http.ResponseWriter, r *http.Request) {
	days := queryInt(r, "days", 30)
	if days < 1 || days > 365 {
		days = 30
	}
	upcoming, err := s.svc.Recurring.Upcoming(r.Context(), userID(r), days)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, upcoming)
}

type materializeRequest struct {
	Amount core.Money `json:"amount"`
}

func (s *Server) handleMaterializeRecurring(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	var req materializeRequest
	if err := decodeJSON(r, &req); err != nil {
		badRequest(w, err.Error())
		return
	}
	uid := userID(r)
	t, err := s.svc.Recurring.MaterializeNow(r.Context(), uid, id, req.Amount)
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.svc.Analytics.Invalidate(uid)
	writeJSON(w, http.StatusCreated, t)
}

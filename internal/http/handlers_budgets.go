package http

import (
	"net/http"

	"monea/internal/core"
)

type budgetRequest struct {
	Name                    string     `json:"name" validate:"required,notblank,max=100"`
	Type                    string     `json:"type" validate:"required,oneof=category account tag global"`
	LimitAmount             core.Money `json:"limit_amount"`
	Period                  string     `json:"period" validate:"required,oneof=weekly biweekly monthly annual"`
	StartDay                int        `json:"start_day" validate:"omitempty,gte=1,lte=28"`
	EnableRollover          bool       `json:"enable_rollover"`
	RolloverMaxAccumulation core.Money `json:"rollover_max_accumulation"`
	AlertAtPercentage       float64    `json:"alert_at_percentage" validate:"omitempty,gt=0,lte=100"`
	AlertOnExceed           bool       `json:"alert_on_exceed"`
	CategoryID              int64      `json:"category_id"`
	AccountID               int64      `json:"account_id"`
	Tag                     string     `json:"tag" validate:"max=50"`
}

func (req budgetRequest) toBudget(uid int64) core.Budget {
	return core.Budget{
		UserID:                  uid,
		Name:                    req.Name,
		Type:                    core.BudgetType(req.Type),
		LimitAmount:             req.LimitAmount,
		Period:                  core.BudgetPeriod(req.Period),
		StartDay:                req.StartDay,
		EnableRollover:          req.EnableRollover,
		RolloverMaxAccumulation: req.RolloverMaxAccumulation,
		AlertAtPercentage:       req.AlertAtPercentage,
		AlertOnExceed:           req.AlertOnExceed,
		CategoryID:              req.CategoryID,
		AccountID:               req.AccountID,
		Tag:                     req.Tag,
		IsActive:                true,
	}
}

func (s *Server) handleCreateBudget(w http.ResponseWriter, r *http.Request) {
	var req budgetRequest
	if err := decodeJSON(r, &req); err != nil {
		badRequest(w, err.Error())
		return
	}
	created, err := s.svc.Budgets.Create(r.Context(), req.toBudget(userID(r)))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleListBudgets(w http.ResponseWriter, r *http.Request) {
	budgets, err := s.svc.Budgets.List(r.Context(), userID(r), !queryBool(r, "include_inactive"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, budgets)
}

func (s *Server) handleGetBudget(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	budget, err := s.svc.Budgets.Get(r.Context(), userID(r), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, budget)
}

func (s *Server) handleUpdateBudget(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	uid := userID(r)
	existing, err := s.svc.Budgets.Get(r.Context(), uid, id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req budgetRequest
	if err := decodeJSON(r, &req); err != nil {
		badRequest(w, err.Error())
		return
	}
	budget := req.toBudget(uid)
	budget.ID = existing.ID
	budget.CurrentRollover = existing.CurrentRollover
	budget.IsActive = existing.IsActive
	updated, err := s.svc.Budgets.Update(r.Context(), budget)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) handleDeleteBudget(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	if err := s.svc.Budgets.Delete(r.Context(), userID(r), id); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}

func (s *Server) handleBudgetProgress(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	progress, err := s.svc.Budgets.Progress(r.Context(), userID(r), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, progress)
}

func (s *Server) handleBudgetProgressAll(w http.ResponseWriter, r *http.Request) {
	progress, err := s.svc.Budgets.ProgressAll(r.Context(), userID(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, progress)
}

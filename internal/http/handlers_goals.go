package http

import (
	"net/http"
	"time"

	"monea/internal/core"
)

type goalRequest struct {
	Name                      string     `json:"name" validate:"required,notblank,max=100"`
	Description               string     `json:"description" validate:"max=500"`
	Type                      string     `json:"type" validate:"required,oneof=savings debt_payment investment net_worth"`
	TargetAmount              core.Money `json:"target_amount"`
	InitialAmount             core.Money `json:"initial_amount"`
	TargetDate                string     `json:"target_date" validate:"omitempty,dateonly"`
	LinkedAccountID           int64      `json:"linked_account_id"`
	AutoContributionAmount    core.Money `json:"auto_contribution_amount"`
	AutoContributionFrequency string     `json:"auto_contribution_frequency" validate:"omitempty,oneof=weekly biweekly monthly"`
	Priority                  string     `json:"priority" validate:"omitempty,oneof=low medium high"`
	Color                     string     `json:"color" validate:"max=20"`
	Icon                      string     `json:"icon" validate:"max=50"`
}

func (req goalRequest) toGoal(uid int64) core.Goal {
	g := core.Goal{
		UserID:                    uid,
		Name:                      req.Name,
		Description:               req.Description,
		Type:                      core.GoalType(req.Type),
		TargetAmount:              req.TargetAmount,
		InitialAmount:             req.InitialAmount,
		LinkedAccountID:           req.LinkedAccountID,
		AutoContributionAmount:    req.AutoContributionAmount,
		AutoContributionFrequency: core.RecurrenceFrequency(req.AutoContributionFrequency),
		Priority:                  core.Priority(req.Priority),
		Color:                     req.Color,
		Icon:                      req.Icon,
	}
	if req.TargetDate != "" {
		g.TargetDate, _ = time.Parse(core.DateOnly, req.TargetDate)
	}
	return g
}

func (s *Server) handleCreateGoal(w http.ResponseWriter, r *http.Request) {
	var req goalRequest
	if err := decodeJSON(r, &req); err != nil {
		badRequest(w, err.Error())
		return
	}
	created, err := s.svc.Goals.Create(r.Context(), req.toGoal(userID(r)))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleListGoals(w http.ResponseWriter, r *http.Request) {
	goals, err := s.svc.Goals.List(r.Context(), userID(r), queryBool(r, "include_archived"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, goals)
}

func (s *Server) handleGetGoal(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	goal, err := s.svc.Goals.Get(r.Context(), userID(r), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, goal)
}

func (s *Server) handleUpdateGoal(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	uid := userID(r)
	existing, err := s.svc.Goals.Get(r.Context(), uid, id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req goalRequest
	if err := decodeJSON(r, &req); err != nil {
		badRequest(w, err.Error())
		return
	}
	goal := req.toGoal(uid)
	goal.ID = existing.ID
	goal.CurrentAmount = existing.CurrentAmount
	goal.IsCompleted = existing.IsCompleted
	goal.CompletedAt = existing.CompletedAt
	goal.IsArchived = existing.IsArchived
	updated, err := s.svc.Goals.Update(r.Context(), goal)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) handleDeleteGoal(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	if err := s.svc.Goals.Delete(r.Context(), userID(r), id); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}

type contributionRequest struct {
	Amount core.Money `json:"amount"`
	Date   string     `json:"date" validate:"omitempty,dateonly"`
	Notes  string     `json:"notes" validate:"max=500"`
}

func (req contributionRequest) date() time.Time {
	if req.Date == "" {
		return time.Now().UTC().Truncate(24 * time.Hour)
	}
	d, _ := time.Parse(core.DateOnly, req.Date)
	return d
}

func (s *Server) handleGoalContribute(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	var req contributionRequest
	if err := decodeJSON(r, &req); err != nil {
		badRequest(w, err.Error())
		return
	}
	goal, err := s.svc.Goals.Contribute(r.Context(), userID(r), id, req.Amount, req.date(), req.Notes, false)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, goal)
}

func (s *Server) handleGoalWithdraw(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	var req contributionRequest
	if err := decodeJSON(r, &req); err != nil {
		badRequest(w, err.Error())
		return
	}
	goal, err := s.svc.Goals.Withdraw(r.Context(), userID(r), id, req.Amount, req.date(), req.Notes)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, goal)
}

func (s *Server) handleGoalContributions(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	contributions, err := s.svc.Goals.Contributions(r.Context(), userID(r), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, contributions)
}

func (s *Server) handleGoalProjection(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	projection, err := s.svc.Goals.Projection(r.Context(), userID(r), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, projection)
}

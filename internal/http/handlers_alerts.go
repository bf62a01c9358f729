package http

import (
	"net/http"

	"monea/internal/core"
)

func (s *Server) handleListAlerts(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 50)
	if limit < 1 || limit > 200 {
		limit = 50
	}
	alerts, err := s.svc.Alerts.List(r.Context(), userID(r), queryBool(r, "unread_only"), limit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, alerts)
}

type customAlertRequest struct {
	Title    string `json:"title" validate:"required,notblank,max=200"`
	Message  string `json:"message" validate:"max=1000"`
	Priority string `json:"priority" validate:"omitempty,oneof=low medium high"`
}

func (s *Server) handleCreateAlert(w http.ResponseWriter, r *http.Request) {
	var req customAlertRequest
	if err := decodeJSON(r, &req); err != nil {
		badRequest(w, err.Error())
		return
	}
	priority := core.Priority(req.Priority)
	if priority == "" {
		priority = core.PriorityMedium
	}
	alert, err := s.svc.Alerts.CreateCustom(r.Context(), userID(r), req.Title, req.Message, priority)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, alert)
}

func (s *Server) handleMarkAlertRead(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	if err := s.svc.Alerts.MarkRead(r.Context(), userID(r), id); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}

func (s *Server) handleMarkAllAlertsRead(w http.ResponseWriter, r *http.Request) {
	n, err := s.svc.Alerts.MarkAllRead(r.Context(), userID(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"marked_read": n})
}

func (s *Server) handleDeleteAlert(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	if err := s.svc.Alerts.Delete(r.Context(), userID(r), id); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}

package http

import (
	"net/http"
)

type registerRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Username string `json:"username" validate:"required,notblank,max=50"`
	Password string `json:"password" validate:"required,min=8,max=72"`
	FullName string `json:"full_name" validate:"max=100"`
}

type authResponse struct {
	Token string `json:"token"`
	User  any    `json:"user"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(r, &req); err != nil {
		badRequest(w, err.Error())
		return
	}
	user, token, err := s.svc.Auth.Register(r.Context(), req.Email, req.Username, req.Password, req.FullName)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, authResponse{Token: token, User: user})
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		badRequest(w, err.Error())
		return
	}
	user, token, err := s.svc.Auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, authResponse{Token: token, User: user})
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	user, err := s.svc.Auth.GetUser(r.Context(), userID(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

type settingsRequest struct {
	FullName               string `json:"full_name" validate:"max=100"`
	BaseCurrency           string `json:"base_currency" validate:"omitempty,len=3"`
	FinancialMonthStartDay int    `json:"financial_month_start_day" validate:"omitempty,gte=1,lte=28"`
	HideAmounts            *bool  `json:"hide_amounts"`
	EnableNotifications    *bool  `json:"enable_notifications"`
}

func (s *Server) handleUpdateSettings(w http.ResponseWriter, r *http.Request) {
	var req settingsRequest
	if err := decodeJSON(r, &req); err != nil {
		badRequest(w, err.Error())
		return
	}
	user, err := s.svc.Auth.GetUser(r.Context(), userID(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	if req.FullName != "" {
		user.FullName = req.FullName
	}
	if req.BaseCurrency != "" {
		user.BaseCurrency = req.BaseCurrency
	}
	if req.FinancialMonthStartDay != 0 {
		user.FinancialMonthStartDay = req.FinancialMonthStartDay
	}
	if req.HideAmounts != nil {
		user.HideAmounts = *req.HideAmounts
	}
	if req.EnableNotifications != nil {
		user.EnableNotifications = *req.EnableNotifications
	}
	updated, err := s.svc.Auth.UpdateSettings(r.Context(), user)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

package http

import (
	"net/http"

	"monea/internal/core"
)

type accountRequest struct {
	Name              string     `json:"name" validate:"required,notblank,max=100"`
	Type              string     `json:"type" validate:"required,oneof=cash debit credit savings investment loan receivable"`
	InitialBalance    core.Money `json:"initial_balance"`
	Currency          string     `json:"currency" validate:"omitempty,len=3"`
	Color             string     `json:"color" validate:"max=20"`
	Icon              string     `json:"icon" validate:"max=50"`
	IsDefault         bool       `json:"is_default"`
	ExcludeFromTotals bool       `json:"exclude_from_totals"`
	DebtorName        string     `json:"debtor_name" validate:"max=100"`
	DisplayOrder      int        `json:"display_order"`
}

func (req accountRequest) toAccount(uid int64) core.Account {
	currency := req.Currency
	if currency == "" {
		currency = core.DefaultCurrency
	}
	return core.Account{
		UserID:            uid,
		Name:              req.Name,
		Type:              core.AccountType(req.Type),
		InitialBalance:    req.InitialBalance,
		Currency:          currency,
		Color:             req.Color,
		Icon:              req.Icon,
		IsDefault:         req.IsDefault,
		ExcludeFromTotals: req.ExcludeFromTotals,
		DebtorName:        req.DebtorName,
		DisplayOrder:      req.DisplayOrder,
	}
}

func (s *Server) handleCreateAccount(w http.ResponseWriter, r *http.Request) {
	var req accountRequest
	if err := decodeJSON(r, &req); err != nil {
		badRequest(w, err.Error())
		return
	}
	account := req.toAccount(userID(r))
	if err := account.Validate(); err != nil {
		writeError(w, r, err)
		return
	}
	created, err := s.repo.CreateAccount(r.Context(), account)
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.svc.Analytics.Invalidate(account.UserID)
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleListAccounts(w http.ResponseWriter, r *http.Request) {
	accounts, err := s.repo.ListAccounts(r.Context(), userID(r), queryBool(r, "include_archived"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, accounts)
}

func (s *Server) handleGetAccount(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	account, err := s.repo.GetAccount(r.Context(), userID(r), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, account)
}

func (s *Server) handleUpdateAccount(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	uid := userID(r)
	existing, err := s.repo.GetAccount(r.Context(), uid, id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req accountRequest
	if err := decodeJSON(r, &req); err != nil {
		badRequest(w, err.Error())
		return
	}
	account := req.toAccount(uid)
	account.ID = existing.ID
	account.IsArchived = existing.IsArchived
	if err := account.Validate(); err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.repo.UpdateAccount(r.Context(), account); err != nil {
		writeError(w, r, err)
		return
	}
	s.svc.Analytics.Invalidate(uid)
	updated, err := s.repo.GetAccount(r.Context(), uid, id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) handleArchiveAccount(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	uid := userID(r)
	if err := s.repo.ArchiveAccount(r.Context(), uid, id); err != nil {
		writeError(w, r, err)
		return
	}
	s.svc.Analytics.Invalidate(uid)
	writeJSON(w, http.StatusNoContent, nil)
}

func (s *Server) handleAccountBalance(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	balance, err := s.svc.Transactions.AccountBalance(r.Context(), userID(r), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]core.Money{"balance": balance})
}

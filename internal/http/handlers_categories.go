package http

import (
	"net/http"

	"monea/internal/core"
)

type categoryRequest struct {
	Name         string `json:"name" validate:"required,notblank,max=100"`
	Type         string `json:"type" validate:"required,oneof=expense income"`
	ParentID     int64  `json:"parent_id"`
	Icon         string `json:"icon" validate:"max=50"`
	Color        string `json:"color" validate:"max=20"`
	IsHidden     bool   `json:"is_hidden"`
	DisplayOrder int    `json:"display_order"`
}

func (req categoryRequest) toCategory(uid int64) core.Category {
	return core.Category{
		UserID:       uid,
		ParentID:     req.ParentID,
		Name:         req.Name,
		Type:         core.CategoryType(req.Type),
		Icon:         req.Icon,
		Color:        req.Color,
		IsHidden:     req.IsHidden,
		DisplayOrder: req.DisplayOrder,
	}
}

func (s *Server) handleCreateCategory(w http.ResponseWriter, r *http.Request) {
	var req categoryRequest
	if err := decodeJSON(r, &req); err != nil {
		badRequest(w, err.Error())
		return
	}
	category := req.toCategory(userID(r))
	if err := category.Validate(); err != nil {
		writeError(w, r, err)
		return
	}
	created, err := s.repo.CreateCategory(r.Context(), category)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request) {
	categoryType := core.CategoryType(r.URL.Query().Get("type"))
	categories, err := s.repo.ListCategories(r.Context(), userID(r), categoryType)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, categories)
}

func (s *Server) handleUpdateCategory(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	uid := userID(r)
	existing, err := s.repo.GetCategory(r.Context(), uid, id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req categoryRequest
	if err := decodeJSON(r, &req); err != nil {
		badRequest(w, err.Error())
		return
	}
	category := req.toCategory(uid)
	category.ID = existing.ID
	category.IsSystem = existing.IsSystem
	if err := category.Validate(); err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.repo.UpdateCategory(r.Context(), category); err != nil {
		writeError(w, r, err)
		return
	}
	updated, err := s.repo.GetCategory(r.Context(), uid, id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) handleDeleteCategory(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	if err := s.repo.DeleteCategory(r.Context(), userID(r), id); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}

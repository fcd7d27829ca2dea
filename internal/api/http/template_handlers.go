package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/photolangage/photolangage/internal/domain/template"
)

func (s *Server) listTemplates(w http.ResponseWriter, r *http.Request) {
	templates, err := s.templateSvc.List(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", err.Error())
		return
	}
	respondJSON(w, http.StatusOK, templates)
}

func (s *Server) saveTemplate(w http.ResponseWriter, r *http.Request) {
	var tpl template.Template
	if err := decodeBody(r, &tpl); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_BODY", err.Error())
		return
	}
	if strings.TrimSpace(tpl.Title) == "" || strings.TrimSpace(tpl.Question) == "" {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", "title and question are required")
		return
	}
	saved, err := s.templateSvc.Save(r.Context(), tpl)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", err.Error())
		return
	}
	respondJSON(w, http.StatusCreated, saved)
}

func (s *Server) deleteTemplate(w http.ResponseWriter, r *http.Request) {
	err := s.templateSvc.Delete(r.Context(), chi.URLParam(r, "templateID"))
	if errors.Is(err, template.ErrNotFound) {
		respondError(w, http.StatusNotFound, "NOT_FOUND", "template not found")
		return
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"deleted": true})
}

func (s *Server) toggleArchiveTemplate(w http.ResponseWriter, r *http.Request) {
	tpl, err := s.templateSvc.ToggleArchive(r.Context(), chi.URLParam(r, "templateID"))
	if errors.Is(err, template.ErrNotFound) {
		respondError(w, http.StatusNotFound, "NOT_FOUND", "template not found")
		return
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", err.Error())
		return
	}
	respondJSON(w, http.StatusOK, tpl)
}

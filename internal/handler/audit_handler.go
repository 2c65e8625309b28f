package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"freelance-market/internal/model"
	"freelance-market/internal/service"
)

type AuditHandler struct {
	projects *service.ProjectService
}

func NewAuditHandler(projects *service.ProjectService) *AuditHandler {
	return &AuditHandler{projects: projects}
}

// ProjectHistory lists the audit trail of one project, newest first.
func (h *AuditHandler) ProjectHistory(w http.ResponseWriter, r *http.Request) {
	limit := parseIntOrDefault(r.URL.Query().Get("limit"), 100)

	items, err := h.projects.History(r.Context(), actorFromRequest(r), chi.URLParam(r, "id"), limit)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, items, &model.Meta{Page: 1, Limit: limit, Total: len(items), TotalPages: 1})
}

func parseIntOrDefault(raw string, fallback int) int {
	if strings.TrimSpace(raw) == "" {
		return fallback
	}

	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}

	return v
}

package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"freelance-market/internal/model"
	"freelance-market/internal/service"
)

type ProjectHandler struct {
	service *service.ProjectService
}

func NewProjectHandler(service *service.ProjectService) *ProjectHandler {
	return &ProjectHandler{service: service}
}

func (h *ProjectHandler) Create(w http.ResponseWriter, r *http.Request) {
	var payload model.CreateProjectRequest
	if err := decodeJSON(r, &payload); err != nil {
		writeError(w, err)
		return
	}

	project, err := h.service.Create(r.Context(), actorFromRequest(r), payload)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusCreated, project, nil)
}

// ListMine returns the projects the caller posted.
func (h *ProjectHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	projects, err := h.service.ListMine(r.Context(), actorFromRequest(r))
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, projects, nil)
}

func (h *ProjectHandler) ListOpen(w http.ResponseWriter, r *http.Request) {
	projects, err := h.service.ListOpen(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, projects, nil)
}

// ListAssigned returns the projects the calling seller was selected for.
func (h *ProjectHandler) ListAssigned(w http.ResponseWriter, r *http.Request) {
	projects, err := h.service.ListAssigned(r.Context(), actorFromRequest(r))
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, projects, nil)
}

func (h *ProjectHandler) Get(w http.ResponseWriter, r *http.Request) {
	project, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, project, nil)
}

func (h *ProjectHandler) AssignSeller(w http.ResponseWriter, r *http.Request) {
	var payload model.AssignSellerRequest
	if err := decodeJSON(r, &payload); err != nil {
		writeError(w, err)
		return
	}

	project, err := h.service.AssignSeller(r.Context(), actorFromRequest(r), chi.URLParam(r, "id"), payload.SellerID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, project, nil)
}

func (h *ProjectHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	var payload model.UpdateStatusRequest
	if err := decodeJSON(r, &payload); err != nil {
		writeError(w, err)
		return
	}

	project, err := h.service.UpdateStatus(r.Context(), actorFromRequest(r), chi.URLParam(r, "id"), payload.Status)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, project, nil)
}

func (h *ProjectHandler) Delete(w http.ResponseWriter, r *http.Request) {
	project, err := h.service.Delete(r.Context(), actorFromRequest(r), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, project, nil)
}

package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"freelance-market/internal/model"
	"freelance-market/internal/service"
)

type BidHandler struct {
	bids     *service.BidService
	projects *service.ProjectService
}

func NewBidHandler(bids *service.BidService, projects *service.ProjectService) *BidHandler {
	return &BidHandler{bids: bids, projects: projects}
}

func (h *BidHandler) Place(w http.ResponseWriter, r *http.Request) {
	var payload model.CreateBidRequest
	if err := decodeJSON(r, &payload); err != nil {
		writeError(w, err)
		return
	}

	bid, err := h.bids.Place(r.Context(), actorFromRequest(r), payload)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusCreated, bid, nil)
}

func (h *BidHandler) Mine(w http.ResponseWriter, r *http.Request) {
	bids, err := h.bids.Mine(r.Context(), actorFromRequest(r))
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, bids, nil)
}

// ListForProject runs behind the owner guard.
func (h *BidHandler) ListForProject(w http.ResponseWriter, r *http.Request) {
	bids, err := h.bids.ListForProject(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, bids, nil)
}

func (h *BidHandler) HasBid(w http.ResponseWriter, r *http.Request) {
	hasBid, err := h.bids.HasBid(r.Context(), actorFromRequest(r), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, map[string]bool{"hasBid": hasBid}, nil)
}

func (h *BidHandler) ProjectDetails(w http.ResponseWriter, r *http.Request) {
	details, err := h.projects.Details(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, details, nil)
}

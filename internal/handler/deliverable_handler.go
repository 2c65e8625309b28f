package handler

import (
	"errors"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"freelance-market/internal/service"
	"freelance-market/internal/util"
	"freelance-market/pkg/apierror"
)

const (
	deliverableFileField = "file"
	deliverableLinkField = "link"
	multipartMemory      = 8 << 20
	multipartOverhead    = 1 << 20
)

type DeliverableHandler struct {
	service       *service.DeliverableService
	maxUploadSize int64
}

func NewDeliverableHandler(service *service.DeliverableService, maxUploadSize int64) *DeliverableHandler {
	return &DeliverableHandler{service: service, maxUploadSize: maxUploadSize}
}

// Upload accepts a multipart form with an optional "file" part and an
// optional "link" field. At least one must be present.
func (h *DeliverableHandler) Upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadSize+multipartOverhead)

	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		if isPayloadTooLarge(err) {
			writeError(w, apierror.New("PAYLOAD_TOO_LARGE", "request body exceeds MAX_UPLOAD_SIZE", "MAX_UPLOAD_SIZE", http.StatusRequestEntityTooLarge))
			return
		}
		writeError(w, apierror.Validation("invalid multipart body", err.Error()))
		return
	}
	defer r.MultipartForm.RemoveAll()

	var upload *service.UploadedFile
	file, header, err := r.FormFile(deliverableFileField)
	switch {
	case err == nil:
		defer file.Close()
		upload = &service.UploadedFile{Field: deliverableFileField, Name: header.Filename, Reader: file}
	case !errors.Is(err, http.ErrMissingFile):
		writeError(w, apierror.Validation("invalid file part", err.Error()))
		return
	}

	deliverable, err := h.service.Upload(r.Context(), actorFromRequest(r), chi.URLParam(r, "id"), upload, r.FormValue(deliverableLinkField))
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusCreated, deliverable, nil)
}

func (h *DeliverableHandler) View(w http.ResponseWriter, r *http.Request) {
	view, err := h.service.View(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, view, nil)
}

// Download streams the latest deliverable file. Range requests are honoured.
func (h *DeliverableHandler) Download(w http.ResponseWriter, r *http.Request) {
	file, stored, err := h.service.OpenFile(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	defer file.Close()

	filename, err := util.SanitizeFilename(stored.Name)
	if err != nil {
		filename = "deliverable"
	}

	modified := time.Time{}
	if info, statErr := file.Stat(); statErr == nil {
		modified = info.ModTime()
	}

	w.Header().Set("Content-Type", stored.MimeType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": filename}))
	http.ServeContent(w, r, filename, modified, file)
}

func isPayloadTooLarge(err error) bool {
	var maxBytesErr *http.MaxBytesError
	if errors.As(err, &maxBytesErr) {
		return true
	}
	return strings.Contains(strings.ToLower(err.Error()), "request body too large")
}

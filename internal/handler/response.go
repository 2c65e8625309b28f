package handler

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"os"

	"freelance-market/internal/model"
	"freelance-market/pkg/apierror"
)

const maxJSONBody = 1 << 20

func writeSuccess(w http.ResponseWriter, status int, data any, meta *model.Meta) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(model.APIResponse{
		Success: true,
		Data:    data,
		Meta:    meta,
	})
}

// writeError renders err as an envelope. API errors keep their code and
// status; model sentinels that escape a service unmapped are classified
// here; anything else is a logged 500.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	body := &model.APIError{
		Code:    apierror.CodeInternal,
		Message: "Unexpected server error",
	}

	var apiErr *apierror.APIError
	switch {
	case errors.As(err, &apiErr):
		status = apiErr.HTTPStatus
		body.Code = apiErr.Code
		body.Message = apiErr.Message
		body.Details = apiErr.Details
	case errors.Is(err, model.ErrUserNotFound),
		errors.Is(err, model.ErrProjectNotFound),
		errors.Is(err, model.ErrSellerNotFound),
		errors.Is(err, model.ErrDeliverableNotFound):
		status = http.StatusNotFound
		body.Code = apierror.CodeNotFound
		body.Message = err.Error()
	case errors.Is(err, model.ErrEmailTaken), errors.Is(err, model.ErrBidAlreadyPlaced):
		status = http.StatusBadRequest
		body.Code = apierror.CodeConflict
		body.Message = err.Error()
	case errors.Is(err, model.ErrInvalidTransition),
		errors.Is(err, model.ErrNotAcceptingBids),
		errors.Is(err, model.ErrProjectNotDeletable):
		status = http.StatusBadRequest
		body.Code = apierror.CodeInvalidState
		body.Message = err.Error()
	case errors.Is(err, model.ErrInvalidCredentials), errors.Is(err, model.ErrUnauthorized), errors.Is(err, model.ErrMissingToken):
		status = http.StatusUnauthorized
		body.Code = apierror.CodeUnauthorized
		body.Message = err.Error()
	case errors.Is(err, model.ErrForbidden), errors.Is(err, model.ErrInvalidToken), errors.Is(err, model.ErrTokenMismatch):
		status = http.StatusForbidden
		body.Code = apierror.CodeForbidden
		body.Message = err.Error()
	case errors.Is(err, model.ErrInvalidInput):
		status = http.StatusBadRequest
		body.Code = apierror.CodeValidation
		body.Message = "Invalid input"
	case errors.Is(err, os.ErrNotExist):
		status = http.StatusNotFound
		body.Code = apierror.CodeNotFound
		body.Message = "File not found"
	default:
		slog.Error("unhandled error in writeError", "error", err.Error())
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(model.APIResponse{
		Success: false,
		Error:   body,
	})
}

// decodeJSON reads a bounded JSON body into payload and runs its validation tags.
func decodeJSON(r *http.Request, payload any) error {
	defer r.Body.Close()

	decoder := json.NewDecoder(io.LimitReader(r.Body, maxJSONBody))
	if err := decoder.Decode(payload); err != nil {
		if errors.Is(err, io.EOF) {
			return apierror.Validation("request body is required", "")
		}
		return apierror.Validation("invalid JSON body", err.Error())
	}

	return validateRequest(payload)
}

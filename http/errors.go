package http

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/sagarc03/boxgate"
)

// Error codes written in the "error" field of failed responses.
const (
	CodeUnauthorized        = "unauthorized"
	CodeRateLimited         = "rate_limited"
	CodeTooManyUnauthorized = "too_many_unauthorized"
	CodeInvalidBox          = "invalid_box"
	CodeNotFound            = "not_found"
	CodeMissingName         = "missing_name"
	CodeMissingKey          = "missing_key"
	CodeMissingAllFlag      = "missing_all_flag"
	CodeNoFiles             = "no_files"
	CodeNotMultipart        = "content_type_must_be_multipart"
	CodePayloadTooLarge     = "payload_too_large"
	CodeInvalidInput        = "invalid_input"
	CodeMethodNotAllowed    = "method_not_allowed"
	CodeInternal            = "internal_error"
)

// HandleError writes the response matching err. Unrecognized errors are
// logged and reported as internal_error without detail.
func HandleError(w http.ResponseWriter, r *http.Request, err error) {
	var maxBytes *http.MaxBytesError

	switch {
	case errors.Is(err, boxgate.ErrInvalidBox):
		WriteError(w, http.StatusBadRequest, CodeInvalidBox)
	case errors.Is(err, boxgate.ErrMissingName):
		WriteError(w, http.StatusBadRequest, CodeMissingName)
	case errors.Is(err, boxgate.ErrNoFiles):
		WriteError(w, http.StatusBadRequest, CodeNoFiles)
	case errors.Is(err, boxgate.ErrNotFound):
		WriteError(w, http.StatusNotFound, CodeNotFound)
	case errors.Is(err, boxgate.ErrPayloadTooLarge), errors.As(err, &maxBytes):
		WriteError(w, http.StatusRequestEntityTooLarge, CodePayloadTooLarge)
	case errors.Is(err, boxgate.ErrUnauthorized):
		WriteError(w, http.StatusUnauthorized, CodeUnauthorized)
	case errors.Is(err, boxgate.ErrLockedOut):
		WriteError(w, http.StatusTooManyRequests, CodeTooManyUnauthorized)
	case errors.Is(err, boxgate.ErrRateLimited):
		WriteError(w, http.StatusTooManyRequests, CodeRateLimited)
	case errors.Is(err, boxgate.ErrInvalidInput):
		WriteError(w, http.StatusBadRequest, CodeInvalidInput)
	default:
		slog.ErrorContext(r.Context(), "request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"err", err,
		)
		WriteError(w, http.StatusInternalServerError, CodeInternal)
	}
}

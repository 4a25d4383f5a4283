package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/BradenHooton/ticketdesk/internal/models"
	pkghttp "github.com/BradenHooton/ticketdesk/pkg/http"
)

// maxBodyBytes caps JSON request bodies
const maxBodyBytes = 1 << 20

// decodeJSON reads the request body into dst. An empty body decodes to the zero value
// so that required-field validation reports the missing fields.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return false
	}
	return true
}

// writeValidation writes a 422 with the field messages of verr
func writeValidation(w http.ResponseWriter, verr *models.ValidationError) {
	pkghttp.WriteValidationError(w, "Validation error", verr.Fields)
}

// writeServiceError maps service errors onto HTTP responses
func writeServiceError(w http.ResponseWriter, err error) {
	var verr *models.ValidationError
	switch {
	case errors.As(err, &verr):
		writeValidation(w, verr)
	case errors.Is(err, models.ErrInvalidTransition):
		pkghttp.WriteValidationError(w, "Validation error", map[string][]string{
			"status": {"The status transition is not allowed."},
		})
	case errors.Is(err, models.ErrInvalidToken):
		pkghttp.WriteBadRequest(w, "Invalid or expired reset token")
	case errors.Is(err, models.ErrNotFound):
		pkghttp.WriteNotFound(w, "Resource not found")
	case errors.Is(err, models.ErrUnauthorized):
		pkghttp.WriteUnauthorized(w, "Authentication failed")
	case errors.Is(err, models.ErrForbidden):
		pkghttp.WriteForbidden(w, "Access denied")
	case errors.Is(err, models.ErrConflict):
		pkghttp.WriteConflict(w, "The resource was modified concurrently, please retry")
	case errors.Is(err, models.ErrBadRequest):
		pkghttp.WriteBadRequest(w, "Invalid request")
	default:
		pkghttp.WriteInternalError(w, "Internal server error")
	}
}

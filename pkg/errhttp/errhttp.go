// Package errhttp maps domain sentinel errors to HTTP status codes.
// Add a case to mapErrorToStatus for each new domain sentinel error.
package errhttp

import (
	"errors"
	"net/http"

	"github.com/ghuser/hemotrack/pkg/httpx"
	inventorydomain "github.com/ghuser/hemotrack/services/inventory/domain"
)

// WriteError maps err to an HTTP status code and writes a JSON error response.
// Uses errors.Is() so wrapped sentinel errors are matched correctly.
// Defaults to 500 Internal Server Error for unrecognized errors.
func WriteError(w http.ResponseWriter, err error) {
	httpx.JSONError(w, mapErrorToStatus(err), err.Error())
}

func mapErrorToStatus(err error) int {
	switch {
	case errors.Is(err, inventorydomain.ErrUnitNotFound),
		errors.Is(err, inventorydomain.ErrDonorNotFound):
		return http.StatusNotFound // 404
	case errors.Is(err, inventorydomain.ErrValidation),
		errors.Is(err, inventorydomain.ErrDonorNotEligible):
		return http.StatusUnprocessableEntity // 422
	case errors.Is(err, inventorydomain.ErrIllegalTransition),
		errors.Is(err, inventorydomain.ErrStatusConflict):
		return http.StatusConflict // 409
	case errors.Is(err, inventorydomain.ErrPermissionDenied):
		return http.StatusForbidden // 403
	case errors.Is(err, inventorydomain.ErrStorageUnavailable):
		return http.StatusServiceUnavailable // 503
	default:
		return http.StatusInternalServerError // 500
	}
}

package errhttp

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	inventorydomain "github.com/ghuser/hemotrack/services/inventory/domain"
)

func TestWriteError_StatusCodes(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{"ErrUnitNotFound", inventorydomain.ErrUnitNotFound, http.StatusNotFound},
		{"ErrDonorNotFound", inventorydomain.ErrDonorNotFound, http.StatusNotFound},
		{"ErrValidation", inventorydomain.ErrValidation, http.StatusUnprocessableEntity},
		{"ErrDonorNotEligible", inventorydomain.ErrDonorNotEligible, http.StatusUnprocessableEntity},
		{"ErrIllegalTransition", inventorydomain.ErrIllegalTransition, http.StatusConflict},
		{"ErrStatusConflict", inventorydomain.ErrStatusConflict, http.StatusConflict},
		{"ErrPermissionDenied", inventorydomain.ErrPermissionDenied, http.StatusForbidden},
		{"ErrStorageUnavailable", inventorydomain.ErrStorageUnavailable, http.StatusServiceUnavailable},
		{"wrapped ErrUnitNotFound", fmt.Errorf("get unit: %w", inventorydomain.ErrUnitNotFound), http.StatusNotFound},
		{"wrapped ErrIllegalTransition", fmt.Errorf("%w: expired -> available", inventorydomain.ErrIllegalTransition), http.StatusConflict},
		{"unknown error", errors.New("something unexpected"), http.StatusInternalServerError},
		{"generic wrapped error", fmt.Errorf("context: %w", errors.New("db down")), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			WriteError(w, tt.err)

			if w.Code != tt.wantStatus {
				t.Fatalf("expected status %d, got %d", tt.wantStatus, w.Code)
			}
		})
	}
}

func TestWriteError_JSONBody(t *testing.T) {
	w := httptest.NewRecorder()
	WriteError(w, inventorydomain.ErrUnitNotFound)

	var body map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("response body is not valid JSON: %v", err)
	}
	if _, ok := body["error"]; !ok {
		t.Fatal("response body missing 'error' key")
	}
}

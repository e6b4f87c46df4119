package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/ghuser/hemotrack/pkg/auth"
	"github.com/ghuser/hemotrack/pkg/errhttp"
	"github.com/ghuser/hemotrack/pkg/httpx"
	appsvcs "github.com/ghuser/hemotrack/services/inventory/application/services"
	"github.com/ghuser/hemotrack/services/inventory/domain/models"
)

// AuditEntryResponse is one audit trail record.
type AuditEntryResponse struct {
	Action    string    `json:"action"     example:"status_changed"`
	Actor     string    `json:"actor"      example:"system"`
	Before    string    `json:"before"     example:"available"`
	After     string    `json:"after"      example:"expired"`
	Reason    string    `json:"reason"     example:"past expiry date"`
	CreatedAt time.Time `json:"created_at"`
} // @name AuditEntryResponse

// AuditResponse is a unit's full audit trail, oldest first.
type AuditResponse struct {
	UnitID  string               `json:"unit_id" example:"BU-20240101-a1b2c3d4"`
	Entries []AuditEntryResponse `json:"entries"`
} // @name AuditResponse

// GetAuditHandler handles GET /units/{unitID}/audit requests.
type GetAuditHandler struct {
	svc *appsvcs.Services
}

// NewGetAuditHandler returns a GetAuditHandler backed by the given services.
func NewGetAuditHandler(svc *appsvcs.Services) *GetAuditHandler {
	return &GetAuditHandler{svc: svc}
}

// Execute returns a unit's audit trail.
//
//	@Summary		Unit audit trail
//	@Description	Chronological, append-only audit trail for one unit; available for deleted units too
//	@Tags			units
//	@Produce		json
//	@Param			unitID	path		string	true	"Unit code"
//	@Success		200		{object}	AuditResponse
//	@Failure		401		{object}	ErrorResponse
//	@Failure		404		{object}	ErrorResponse
//	@Router			/units/{unitID}/audit [get]
func (h *GetAuditHandler) Execute(w http.ResponseWriter, r *http.Request) {
	if _, err := auth.ActorFromCtx(r.Context()); err != nil {
		httpx.JSONError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	unitID := chi.URLParam(r, "unitID")
	entries, err := h.svc.Inventory.Audit(r.Context(), unitID)
	if err != nil {
		errhttp.WriteError(w, err)
		return
	}

	httpx.JSON(w, http.StatusOK, AuditResponse{
		UnitID:  unitID,
		Entries: newAuditEntryResponses(entries),
	})
}

func newAuditEntryResponses(entries []models.AuditEntry) []AuditEntryResponse {
	out := make([]AuditEntryResponse, len(entries))
	for i, e := range entries {
		out[i] = AuditEntryResponse{
			Action:    string(e.Action),
			Actor:     e.Actor,
			Before:    e.BeforeValue,
			After:     e.AfterValue,
			Reason:    e.Reason,
			CreatedAt: e.CreatedAt,
		}
	}
	return out
}

package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ghuser/hemotrack/pkg/auth"
	"github.com/ghuser/hemotrack/pkg/errhttp"
	"github.com/ghuser/hemotrack/pkg/httpx"
	appsvcs "github.com/ghuser/hemotrack/services/inventory/application/services"
)

// GetUnitHandler handles GET /units/{unitID} requests.
type GetUnitHandler struct {
	svc *appsvcs.Services
}

// NewGetUnitHandler returns a GetUnitHandler backed by the given services.
func NewGetUnitHandler(svc *appsvcs.Services) *GetUnitHandler {
	return &GetUnitHandler{svc: svc}
}

// Execute returns one unit by its code.
//
//	@Summary		Get blood unit
//	@Description	Returns one unit by its unit code; an overdue unit is expired by this read
//	@Tags			units
//	@Produce		json
//	@Param			unitID	path		string	true	"Unit code"	example(BU-20240101-a1b2c3d4)
//	@Success		200		{object}	UnitResponse
//	@Failure		401		{object}	ErrorResponse
//	@Failure		404		{object}	ErrorResponse
//	@Router			/units/{unitID} [get]
func (h *GetUnitHandler) Execute(w http.ResponseWriter, r *http.Request) {
	actor, err := auth.ActorFromCtx(r.Context())
	if err != nil {
		httpx.JSONError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	view, err := h.svc.Inventory.Get(r.Context(), actor, chi.URLParam(r, "unitID"))
	if err != nil {
		errhttp.WriteError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, newUnitResponse(view))
}

package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ghuser/hemotrack/pkg/auth"
	"github.com/ghuser/hemotrack/pkg/errhttp"
	"github.com/ghuser/hemotrack/pkg/httpx"
	pkgvalidator "github.com/ghuser/hemotrack/pkg/validator"
	appsvcs "github.com/ghuser/hemotrack/services/inventory/application/services"
)

// DeleteUnitRequest is the request body for DELETE /units/{unitID}.
type DeleteUnitRequest struct {
	Reason string `json:"reason" validate:"required,min=3,max=500" example:"duplicate entry from intake batch"`
} // @name DeleteUnitRequest

// DeleteUnitHandler handles DELETE /units/{unitID} requests.
type DeleteUnitHandler struct {
	svc *appsvcs.Services
}

// NewDeleteUnitHandler returns a DeleteUnitHandler backed by the given services.
func NewDeleteUnitHandler(svc *appsvcs.Services) *DeleteUnitHandler {
	return &DeleteUnitHandler{svc: svc}
}

// Execute soft-deletes a unit.
//
//	@Summary		Delete blood unit
//	@Description	Marks a unit Deleted with a mandatory reason; the row and its audit trail are retained
//	@Tags			units
//	@Accept			json
//	@Produce		json
//	@Param			unitID	path	string				true	"Unit code"
//	@Param			request	body	DeleteUnitRequest	true	"Deletion reason"
//	@Success		204
//	@Failure		400	{object}	ErrorResponse
//	@Failure		401	{object}	ErrorResponse
//	@Failure		403	{object}	ErrorResponse
//	@Failure		404	{object}	ErrorResponse
//	@Failure		409	{object}	ErrorResponse
//	@Failure		422	{object}	ErrorResponse
//	@Router			/units/{unitID} [delete]
func (h *DeleteUnitHandler) Execute(w http.ResponseWriter, r *http.Request) {
	actor, err := auth.ActorFromCtx(r.Context())
	if err != nil {
		httpx.JSONError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	req, ok := pkgvalidator.ValidateRequest[DeleteUnitRequest](w, r)
	if !ok {
		return
	}

	if err := h.svc.Inventory.Delete(r.Context(), actor, chi.URLParam(r, "unitID"), req.Reason); err != nil {
		errhttp.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

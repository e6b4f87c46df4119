package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ghuser/hemotrack/pkg/auth"
	"github.com/ghuser/hemotrack/pkg/errhttp"
	"github.com/ghuser/hemotrack/pkg/httpx"
	pkgvalidator "github.com/ghuser/hemotrack/pkg/validator"
	appsvcs "github.com/ghuser/hemotrack/services/inventory/application/services"
	"github.com/ghuser/hemotrack/services/inventory/domain/models"
)

// UpdateStatusRequest is the request body for POST /units/{unitID}/status.
type UpdateStatusRequest struct {
	Status string `json:"status" validate:"required"                example:"used"`
	Reason string `json:"reason" validate:"omitempty,min=3,max=500" example:"issued to St. Mary's ER"`
} // @name UpdateStatusRequest

// PostStatusHandler handles POST /units/{unitID}/status requests.
type PostStatusHandler struct {
	svc *appsvcs.Services
}

// NewPostStatusHandler returns a PostStatusHandler backed by the given services.
func NewPostStatusHandler(svc *appsvcs.Services) *PostStatusHandler {
	return &PostStatusHandler{svc: svc}
}

// Execute applies a lifecycle transition to a unit.
//
//	@Summary		Update unit status
//	@Description	Applies one legal lifecycle transition; quarantining requires a reason, expiring is system-only
//	@Tags			units
//	@Accept			json
//	@Produce		json
//	@Param			unitID	path		string				true	"Unit code"
//	@Param			request	body		UpdateStatusRequest	true	"Target status and optional reason"
//	@Success		200		{object}	UnitResponse
//	@Failure		400		{object}	ErrorResponse
//	@Failure		401		{object}	ErrorResponse
//	@Failure		403		{object}	ErrorResponse
//	@Failure		404		{object}	ErrorResponse
//	@Failure		409		{object}	ErrorResponse
//	@Failure		422		{object}	ErrorResponse
//	@Router			/units/{unitID}/status [post]
func (h *PostStatusHandler) Execute(w http.ResponseWriter, r *http.Request) {
	actor, err := auth.ActorFromCtx(r.Context())
	if err != nil {
		httpx.JSONError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	req, ok := pkgvalidator.ValidateRequest[UpdateStatusRequest](w, r)
	if !ok {
		return
	}
	status, err := models.ParseStatus(req.Status)
	if err != nil {
		httpx.JSONError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	view, err := h.svc.Inventory.UpdateStatus(r.Context(), actor, chi.URLParam(r, "unitID"), status, req.Reason)
	if err != nil {
		errhttp.WriteError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, newUnitResponse(view))
}

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

// CorrectBloodTypeRequest is the request body for POST /units/{unitID}/blood-type.
type CorrectBloodTypeRequest struct {
	BloodType string `json:"blood_type" validate:"required" example:"AB-"`
} // @name CorrectBloodTypeRequest

// PostBloodTypeHandler handles POST /units/{unitID}/blood-type requests.
type PostBloodTypeHandler struct {
	svc *appsvcs.Services
}

// NewPostBloodTypeHandler returns a PostBloodTypeHandler backed by the given services.
func NewPostBloodTypeHandler(svc *appsvcs.Services) *PostBloodTypeHandler {
	return &PostBloodTypeHandler{svc: svc}
}

// Execute records an administrative blood-type correction.
//
//	@Summary		Correct blood type
//	@Description	Corrects a unit's recorded blood type after lab re-testing; the change is always audited
//	@Tags			units
//	@Accept			json
//	@Produce		json
//	@Param			unitID	path		string					true	"Unit code"
//	@Param			request	body		CorrectBloodTypeRequest	true	"Corrected blood type"
//	@Success		200		{object}	UnitResponse
//	@Failure		400		{object}	ErrorResponse
//	@Failure		401		{object}	ErrorResponse
//	@Failure		403		{object}	ErrorResponse
//	@Failure		404		{object}	ErrorResponse
//	@Failure		422		{object}	ErrorResponse
//	@Router			/units/{unitID}/blood-type [post]
func (h *PostBloodTypeHandler) Execute(w http.ResponseWriter, r *http.Request) {
	actor, err := auth.ActorFromCtx(r.Context())
	if err != nil {
		httpx.JSONError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	req, ok := pkgvalidator.ValidateRequest[CorrectBloodTypeRequest](w, r)
	if !ok {
		return
	}
	bloodType, err := models.ParseBloodType(req.BloodType)
	if err != nil {
		httpx.JSONError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	view, err := h.svc.Inventory.CorrectBloodType(r.Context(), actor, chi.URLParam(r, "unitID"), bloodType)
	if err != nil {
		errhttp.WriteError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, newUnitResponse(view))
}

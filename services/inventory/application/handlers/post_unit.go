package handlers

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/ghuser/hemotrack/pkg/auth"
	"github.com/ghuser/hemotrack/pkg/errhttp"
	"github.com/ghuser/hemotrack/pkg/httpx"
	pkgvalidator "github.com/ghuser/hemotrack/pkg/validator"
	appsvcs "github.com/ghuser/hemotrack/services/inventory/application/services"
)

// CreateUnitRequest is the request body for POST /units.
type CreateUnitRequest struct {
	DonorID         uuid.UUID `json:"donor_id"         validate:"required"               example:"550e8400-e29b-41d4-a716-446655440000"`
	CollectionDate  string    `json:"collection_date"  validate:"required,datetime=2006-01-02" example:"2024-01-01"`
	CollectionSite  string    `json:"collection_site"  validate:"required,min=2,max=255" example:"Central Blood Drive"`
	StorageLocation string    `json:"storage_location" validate:"omitempty,max=255"      example:"Fridge 2, Shelf B"`
	Notes           string    `json:"notes"            validate:"omitempty,max=2000"     example:"double red cell donation"`
} // @name CreateUnitRequest

// PostUnitHandler handles POST /units requests.
type PostUnitHandler struct {
	svc *appsvcs.Services
}

// NewPostUnitHandler returns a PostUnitHandler backed by the given services.
func NewPostUnitHandler(svc *appsvcs.Services) *PostUnitHandler {
	return &PostUnitHandler{svc: svc}
}

// Execute records a new blood unit collected from a donor.
//
//	@Summary		Create blood unit
//	@Description	Records a collection event from an eligible donor; the unit starts Available with a derived expiry date
//	@Tags			units
//	@Accept			json
//	@Produce		json
//	@Param			request	body		CreateUnitRequest	true	"Unit creation request"
//	@Success		201		{object}	UnitResponse
//	@Failure		400		{object}	ErrorResponse
//	@Failure		401		{object}	ErrorResponse
//	@Failure		403		{object}	ErrorResponse
//	@Failure		404		{object}	ErrorResponse
//	@Failure		422		{object}	ErrorResponse
//	@Router			/units [post]
func (h *PostUnitHandler) Execute(w http.ResponseWriter, r *http.Request) {
	actor, err := auth.ActorFromCtx(r.Context())
	if err != nil {
		httpx.JSONError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	req, ok := pkgvalidator.ValidateRequest[CreateUnitRequest](w, r)
	if !ok {
		return
	}
	collectionDate, err := time.Parse(dateLayout, req.CollectionDate)
	if err != nil {
		httpx.JSONError(w, http.StatusUnprocessableEntity, "collection_date must be YYYY-MM-DD")
		return
	}

	view, err := h.svc.Inventory.Create(r.Context(), actor, appsvcs.CreateUnitInput{
		DonorID:         req.DonorID,
		CollectionDate:  collectionDate,
		CollectionSite:  req.CollectionSite,
		StorageLocation: req.StorageLocation,
		Notes:           req.Notes,
	})
	if err != nil {
		errhttp.WriteError(w, err)
		return
	}

	httpx.JSON(w, http.StatusCreated, newUnitResponse(view))
}

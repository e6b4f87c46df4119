package handlers

import (
	"net/http"

	"github.com/ghuser/hemotrack/pkg/auth"
	"github.com/ghuser/hemotrack/pkg/errhttp"
	"github.com/ghuser/hemotrack/pkg/httpx"
	appsvcs "github.com/ghuser/hemotrack/services/inventory/application/services"
)

// ListUnitsResponse is one page of units plus pagination bookkeeping.
type ListUnitsResponse struct {
	Units      []UnitResponse     `json:"units"`
	Pagination PaginationResponse `json:"pagination"`
} // @name ListUnitsResponse

// ListUnitsHandler handles GET /units requests.
type ListUnitsHandler struct {
	svc *appsvcs.Services
}

// NewListUnitsHandler returns a ListUnitsHandler backed by the given services.
func NewListUnitsHandler(svc *appsvcs.Services) *ListUnitsHandler {
	return &ListUnitsHandler{svc: svc}
}

// Execute returns a filtered, paginated unit listing.
//
//	@Summary		List blood units
//	@Description	Filtered, paginated listing; status filtering matches effective status and deleted units are hidden unless asked for
//	@Tags			units
//	@Produce		json
//	@Param			blood_type		query		string	false	"Blood type filter"	example(O-)
//	@Param			status			query		string	false	"Status filter"		example(available)
//	@Param			collected_from	query		string	false	"Collection date lower bound"	example(2024-01-01)
//	@Param			collected_to	query		string	false	"Collection date upper bound"	example(2024-01-31)
//	@Param			search			query		string	false	"Substring match on unit code, donor name, donor reference"
//	@Param			page			query		int		false	"Page number"		example(1)
//	@Param			per_page		query		int		false	"Page size (10, 20, 50 or 100)"	example(20)
//	@Success		200				{object}	ListUnitsResponse
//	@Failure		401				{object}	ErrorResponse
//	@Router			/units [get]
func (h *ListUnitsHandler) Execute(w http.ResponseWriter, r *http.Request) {
	actor, err := auth.ActorFromCtx(r.Context())
	if err != nil {
		httpx.JSONError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	views, info, err := h.svc.Inventory.List(r.Context(), actor, parseFilter(r, h.svc.Log), parsePage(r))
	if err != nil {
		errhttp.WriteError(w, err)
		return
	}

	httpx.JSON(w, http.StatusOK, ListUnitsResponse{
		Units:      newUnitResponses(views),
		Pagination: newPaginationResponse(info),
	})
}

package handlers

import (
	"net/http"
	"time"

	"github.com/ghuser/hemotrack/pkg/auth"
	"github.com/ghuser/hemotrack/pkg/errhttp"
	"github.com/ghuser/hemotrack/pkg/httpx"
	appsvcs "github.com/ghuser/hemotrack/services/inventory/application/services"
)

// MonthPoint is one month of the trend series, month formatted as YYYY-MM.
type MonthPoint struct {
	Month     string `json:"month"     example:"2024-01"`
	Collected int    `json:"collected" example:"42"`
	Issued    int    `json:"issued"    example:"37"`
} // @name MonthPoint

// SummaryResponse is the dashboard payload.
type SummaryResponse struct {
	GeneratedAt  time.Time            `json:"generated_at"`
	Counts       []appsvcs.TypeCounts `json:"counts"`
	Totals       appsvcs.TypeCounts   `json:"totals"`
	Alerts       []appsvcs.StockAlert `json:"alerts"`
	ExpiringSoon []UnitResponse       `json:"expiring_soon"`
	Monthly      []MonthPoint         `json:"monthly"`
} // @name SummaryResponse

// GetSummaryHandler handles GET /units/summary requests.
type GetSummaryHandler struct {
	svc *appsvcs.Services
}

// NewGetSummaryHandler returns a GetSummaryHandler backed by the given services.
func NewGetSummaryHandler(svc *appsvcs.Services) *GetSummaryHandler {
	return &GetSummaryHandler{svc: svc}
}

// Execute returns the inventory dashboard summary.
//
//	@Summary		Inventory summary
//	@Description	Per-blood-type counts by effective status, low-stock alerts, expiring-soon units and a 12-month trend
//	@Tags			units
//	@Produce		json
//	@Param			blood_type		query		string	false	"Blood type filter"	example(O-)
//	@Param			collected_from	query		string	false	"Collection date lower bound"	example(2024-01-01)
//	@Param			collected_to	query		string	false	"Collection date upper bound"	example(2024-01-31)
//	@Param			search			query		string	false	"Substring match on unit code, donor name, donor reference"
//	@Success		200				{object}	SummaryResponse
//	@Failure		401				{object}	ErrorResponse
//	@Router			/units/summary [get]
func (h *GetSummaryHandler) Execute(w http.ResponseWriter, r *http.Request) {
	actor, err := auth.ActorFromCtx(r.Context())
	if err != nil {
		httpx.JSONError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	summary, err := h.svc.Aggregation.Summarize(r.Context(), actor, parseFilter(r, h.svc.Log))
	if err != nil {
		errhttp.WriteError(w, err)
		return
	}

	monthly := make([]MonthPoint, len(summary.Monthly))
	for i, b := range summary.Monthly {
		monthly[i] = MonthPoint{Month: b.Month.Format("2006-01"), Collected: b.Collected, Issued: b.Issued}
	}

	httpx.JSON(w, http.StatusOK, SummaryResponse{
		GeneratedAt:  summary.GeneratedAt,
		Counts:       summary.Counts,
		Totals:       summary.Totals,
		Alerts:       summary.Alerts,
		ExpiringSoon: newUnitResponses(summary.ExpiringSoon),
		Monthly:      monthly,
	})
}

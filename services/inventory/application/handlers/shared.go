package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/ghuser/hemotrack/pkg/logger"
	"github.com/ghuser/hemotrack/services/inventory/domain/models"
	"github.com/ghuser/hemotrack/services/inventory/domain/repositories"
	domainsvcs "github.com/ghuser/hemotrack/services/inventory/domain/services"
)

const dateLayout = time.DateOnly

// ErrorResponse is returned on all error responses.
type ErrorResponse struct {
	Error string `json:"error" example:"unit not found"`
} // @name ErrorResponse

// UnitResponse is the API shape of one blood unit. Donor fields arrive
// already redacted for the caller's role.
type UnitResponse struct {
	UnitID          string    `json:"unit_id"          example:"BU-20240101-a1b2c3d4"`
	DonorID         uuid.UUID `json:"donor_id"         example:"550e8400-e29b-41d4-a716-446655440000"`
	DonorName       string    `json:"donor_name"       example:"***"`
	DonorRef        string    `json:"donor_ref"        example:"***"`
	BloodType       string    `json:"blood_type"       example:"O-"`
	Status          string    `json:"status"           example:"available"`
	CollectionDate  string    `json:"collection_date"  example:"2024-01-01"`
	ExpiryDate      string    `json:"expiry_date"      example:"2024-02-05"`
	DaysRemaining   int       `json:"days_remaining"   example:"12"`
	Urgency         string    `json:"urgency"          example:"normal"`
	CollectionSite  string    `json:"collection_site"  example:"Central Blood Drive"`
	StorageLocation string    `json:"storage_location" example:"Fridge 2, Shelf B"`
	Notes           string    `json:"notes"            example:""`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
} // @name UnitResponse

func newUnitResponse(v *models.UnitView) UnitResponse {
	now := time.Now().UTC()
	return UnitResponse{
		UnitID:          v.UnitID,
		DonorID:         v.DonorID,
		DonorName:       v.DonorName,
		DonorRef:        v.DonorRef,
		BloodType:       string(v.BloodType),
		Status:          string(v.Status),
		CollectionDate:  v.CollectionDate.Format(dateLayout),
		ExpiryDate:      v.ExpiryDate.Format(dateLayout),
		DaysRemaining:   domainsvcs.DaysRemaining(v.ExpiryDate, now),
		Urgency:         string(domainsvcs.UrgencyOf(v.ExpiryDate, now)),
		CollectionSite:  v.CollectionSite,
		StorageLocation: v.StorageLocation,
		Notes:           v.Notes,
		CreatedAt:       v.CreatedAt,
		UpdatedAt:       v.UpdatedAt,
	}
}

func newUnitResponses(views []*models.UnitView) []UnitResponse {
	out := make([]UnitResponse, len(views))
	for i, v := range views {
		out[i] = newUnitResponse(v)
	}
	return out
}

// PaginationResponse mirrors repositories.PageInfo on the wire.
type PaginationResponse struct {
	Page          int `json:"page"           example:"1"`
	PerPage       int `json:"per_page"       example:"20"`
	TotalMatching int `json:"total_matching" example:"135"`
	TotalPages    int `json:"total_pages"    example:"7"`
	FromRow       int `json:"from_row"       example:"1"`
	ToRow         int `json:"to_row"         example:"20"`
} // @name PaginationResponse

func newPaginationResponse(info repositories.PageInfo) PaginationResponse {
	return PaginationResponse{
		Page:          info.Page,
		PerPage:       info.PerPage,
		TotalMatching: info.TotalMatching,
		TotalPages:    info.TotalPages,
		FromRow:       info.FromRow,
		ToRow:         info.ToRow,
	}
}

// parseFilter reads the shared filter query parameters. Unrecognized blood
// type or status values degrade to "no filter" rather than failing the
// request; they are logged because they usually indicate a stale client.
func parseFilter(r *http.Request, log logger.Logger) repositories.Filter {
	q := r.URL.Query()
	var f repositories.Filter

	if raw := q.Get("blood_type"); raw != "" {
		bt, err := models.ParseBloodType(raw)
		if err != nil {
			log.WarnContext(r.Context(), "ignoring unknown blood_type filter", "value", raw)
		} else {
			f.BloodType = bt
		}
	}
	if raw := q.Get("status"); raw != "" {
		st, err := models.ParseStatus(raw)
		if err != nil {
			log.WarnContext(r.Context(), "ignoring unknown status filter", "value", raw)
		} else {
			f.Status = st
		}
	}
	if raw := q.Get("collected_from"); raw != "" {
		if t, err := time.Parse(dateLayout, raw); err == nil {
			f.CollectedFrom = t
		} else {
			log.WarnContext(r.Context(), "ignoring malformed collected_from filter", "value", raw)
		}
	}
	if raw := q.Get("collected_to"); raw != "" {
		if t, err := time.Parse(dateLayout, raw); err == nil {
			f.CollectedTo = t
		} else {
			log.WarnContext(r.Context(), "ignoring malformed collected_to filter", "value", raw)
		}
	}
	f.Search = q.Get("search")
	return f
}

// parsePage reads pagination query parameters. Out-of-range values are
// normalized by the service layer, so parsing is forgiving here.
func parsePage(r *http.Request) repositories.PageRequest {
	q := r.URL.Query()
	var p repositories.PageRequest
	if n, err := strconv.Atoi(q.Get("page")); err == nil {
		p.Page = n
	}
	if n, err := strconv.Atoi(q.Get("per_page")); err == nil {
		p.PerPage = n
	}
	return p
}

package repositories

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/ghuser/hemotrack/services/inventory/domain/models"
)

// Filter is the validated query filter shared by listing, export and
// aggregation. Zero values mean "no filter". Status filtering matches the
// unit's effective status (lazy expiry applied conceptually), so a stale
// Available row past its expiry date matches status=expired, not available.
//
// Deleted units are excluded unless Status explicitly asks for them.
type Filter struct {
	BloodType     models.BloodType
	Status        models.Status
	CollectedFrom time.Time // inclusive; zero = open
	CollectedTo   time.Time // inclusive; zero = open
	// Search is a case-insensitive substring match across unit_id, donor
	// display name and donor reference code.
	Search string
}

// Allowed per-page sizes. Anything else falls back to DefaultPerPage.
var allowedPerPage = map[int]bool{10: true, 20: true, 50: true, 100: true}

// DefaultPerPage is used when the requested page size is not on the allow-list.
const DefaultPerPage = 20

// PageRequest is a raw pagination request from the boundary layer.
type PageRequest struct {
	Page    int
	PerPage int
}

// Normalize clamps Page to ≥1 and restricts PerPage to the allow-list.
func (p PageRequest) Normalize() PageRequest {
	if p.Page < 1 {
		p.Page = 1
	}
	if !allowedPerPage[p.PerPage] {
		p.PerPage = DefaultPerPage
	}
	return p
}

// Offset returns the row offset for the (normalized) request.
func (p PageRequest) Offset() int {
	return (p.Page - 1) * p.PerPage
}

// PageInfo describes one returned page. FromRow/ToRow are 1-based indexes of
// the rows shown; both are 0 for an empty result.
type PageInfo struct {
	Page          int
	PerPage       int
	TotalMatching int
	TotalPages    int
	FromRow       int
	ToRow         int
}

// NewPageInfo computes pagination bookkeeping for a normalized request and a
// total count taken from the same snapshot as the rows.
func NewPageInfo(p PageRequest, total, returned int) PageInfo {
	info := PageInfo{
		Page:          p.Page,
		PerPage:       p.PerPage,
		TotalMatching: total,
		TotalPages:    (total + p.PerPage - 1) / p.PerPage,
	}
	if returned > 0 {
		info.FromRow = p.Offset() + 1
		info.ToRow = p.Offset() + returned
	}
	return info
}

// Mutation is one atomic change to a unit. ExpectedStatus, when set, is the
// optimistic-concurrency guard: the store re-reads the row inside its
// transaction and fails with ErrStatusConflict if the status moved.
type Mutation struct {
	ExpectedStatus  *models.Status
	NewStatus       *models.Status
	BloodType       *models.BloodType
	StorageLocation *string
	AppendNote      string
}

// TypeStatusCount is one cell of the per-blood-type × effective-status grid.
type TypeStatusCount struct {
	BloodType models.BloodType
	Status    models.Status
	Count     int
}

// MonthBucket is one month of the trailing trend series.
type MonthBucket struct {
	Month     time.Time // first day of the calendar month, UTC
	Collected int       // units collected that month
	Issued    int       // units transitioned to Used that month
}

// UnitStore is durable storage for BloodUnit and AuditEntry records.
// Implementations must guarantee:
//   - ApplyTransition is atomic: re-read, guard check, unit write and audit
//     write succeed or fail together, and exactly one audit row is written
//     per successful mutation;
//   - Query rows and total come from one consistent snapshot, so pagination
//     and counts cannot diverge under concurrent inserts;
//   - audit rows are never updated or deleted.
type UnitStore interface {
	// GetByUnitID returns one unit by its human-facing code, regardless of
	// status (deleted units stay fetchable for audit continuity).
	GetByUnitID(ctx context.Context, unitID string) (*models.UnitView, error)

	// Query returns a filtered page ordered by created_at DESC, id DESC, plus
	// the total matching count from the same snapshot. limit <= 0 means no cap
	// (export path). today anchors effective-status filtering.
	Query(ctx context.Context, f Filter, limit, offset int, today time.Time) ([]*models.UnitView, int, error)

	// Insert persists a new unit plus its creation audit entry atomically.
	Insert(ctx context.Context, unit *models.BloodUnit, entry models.AuditEntry) error

	// ApplyTransition executes one atomic mutation + audit write and returns
	// the resulting row.
	ApplyTransition(ctx context.Context, unitID string, mut Mutation, entry models.AuditEntry) (*models.UnitView, error)

	// Summarize returns per-blood-type counts grouped by effective status for
	// the filtered view (Filter.Status is ignored here; the grid is the split).
	Summarize(ctx context.Context, f Filter, today time.Time) ([]TypeStatusCount, error)

	// ExpiringSoon returns Available/Quarantined units in the filtered view
	// whose remaining shelf life is within the given window, soonest first.
	ExpiringSoon(ctx context.Context, f Filter, today time.Time, windowDays int) ([]*models.UnitView, error)

	// MonthlySeries returns the trailing months ending at today's month, every
	// month present even when both counts are zero.
	MonthlySeries(ctx context.Context, months int, today time.Time) ([]MonthBucket, error)

	// ListAudit returns a unit's audit trail in chronological order.
	ListAudit(ctx context.Context, unitID string) ([]models.AuditEntry, error)
}

// DonorStore reads donor reference data. This context never writes donors.
type DonorStore interface {
	GetDonor(ctx context.Context, id uuid.UUID) (*models.Donor, error)
}

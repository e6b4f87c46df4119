package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"

	"github.com/ghuser/hemotrack/pkg/database"
	inventorydomain "github.com/ghuser/hemotrack/services/inventory/domain"
	"github.com/ghuser/hemotrack/services/inventory/domain/models"
)

// DonorRepository implements repositories.DonorStore. Donors are owned by an
// external donor-management system; this context only reads them.
type DonorRepository struct {
	db *database.Database
}

// NewDonorRepository returns a read-only donor store.
func NewDonorRepository(db *database.Database) *DonorRepository {
	return &DonorRepository{db: db}
}

// GetDonor returns one donor by ID. Returns ErrDonorNotFound if absent.
func (r *DonorRepository) GetDonor(ctx context.Context, id uuid.UUID) (*models.Donor, error) {
	var (
		d         models.Donor
		bloodType string
		status    string
	)
	err := r.db.DB().QueryRowContext(ctx,
		`SELECT id, reference_code, full_name, blood_type, status FROM donors WHERE id = $1`, id,
	).Scan(&d.ID, &d.ReferenceCode, &d.FullName, &bloodType, &status)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, inventorydomain.ErrDonorNotFound
		}
		return nil, storageErr("get donor", err)
	}
	d.BloodType = models.BloodType(bloodType)
	d.Status = models.DonorStatus(status)
	return &d, nil
}

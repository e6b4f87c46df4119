package postgres

import (
	"github.com/ghuser/hemotrack/services/inventory/domain/models"
)

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanUnitView(row rowScanner) (*models.UnitView, error) {
	var (
		v         models.UnitView
		bloodType string
		status    string
	)
	err := row.Scan(
		&v.ID, &v.UnitID, &v.DonorID, &bloodType, &v.CollectionDate, &v.ExpiryDate,
		&status, &v.CollectionSite, &v.StorageLocation, &v.Notes, &v.CreatedAt, &v.UpdatedAt,
		&v.DonorName, &v.DonorRef,
	)
	if err != nil {
		return nil, err
	}
	v.BloodType = models.BloodType(bloodType)
	v.Status = models.Status(status)
	return &v, nil
}

func scanUnitViewWithTotal(row rowScanner) (*models.UnitView, int, error) {
	var (
		v         models.UnitView
		bloodType string
		status    string
		total     int
	)
	err := row.Scan(
		&v.ID, &v.UnitID, &v.DonorID, &bloodType, &v.CollectionDate, &v.ExpiryDate,
		&status, &v.CollectionSite, &v.StorageLocation, &v.Notes, &v.CreatedAt, &v.UpdatedAt,
		&v.DonorName, &v.DonorRef, &total,
	)
	if err != nil {
		return nil, 0, err
	}
	v.BloodType = models.BloodType(bloodType)
	v.Status = models.Status(status)
	return &v, total, nil
}

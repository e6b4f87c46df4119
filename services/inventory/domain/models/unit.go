package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// BloodUnit is the core aggregate: one physical collected donation tracked as
// an inventory item. ExpiryDate is derived from CollectionDate by the expiry
// policy and is never set independently. Notes is append-only — status-change
// reasons accumulate, nothing is overwritten.
type BloodUnit struct {
	ID              uuid.UUID
	UnitID          string // human-facing code, unique, immutable once assigned
	DonorID         uuid.UUID
	BloodType       BloodType
	CollectionDate  time.Time // date precision, UTC
	ExpiryDate      time.Time // derived, date precision, UTC
	Status          Status
	CollectionSite  string
	StorageLocation string
	Notes           string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// NewBloodUnit constructs an Available unit for an eligible donor. The caller
// supplies the expiry date computed by the expiry policy so this package stays
// free of policy constants.
func NewBloodUnit(donor *Donor, collectionDate, expiryDate time.Time, site, location, notes string) (*BloodUnit, error) {
	if donor == nil {
		return nil, fmt.Errorf("donor is required")
	}
	if collectionDate.IsZero() {
		return nil, fmt.Errorf("collection date is required")
	}
	id := uuid.New()
	now := time.Now().UTC()
	return &BloodUnit{
		ID:              id,
		UnitID:          NewUnitCode(collectionDate, id),
		DonorID:         donor.ID,
		BloodType:       donor.BloodType,
		CollectionDate:  DateOnly(collectionDate),
		ExpiryDate:      DateOnly(expiryDate),
		Status:          StatusAvailable,
		CollectionSite:  strings.TrimSpace(site),
		StorageLocation: strings.TrimSpace(location),
		Notes:           strings.TrimSpace(notes),
		CreatedAt:       now,
		UpdatedAt:       now,
	}, nil
}

// NewUnitCode derives the human-facing unit code from the collection date and
// the unit's UUID: BU-YYYYMMDD-XXXXXXXX. The UUID prefix gives collision
// resistance; the unique index on blood_units.unit_id is the backstop.
func NewUnitCode(collectionDate time.Time, id uuid.UUID) string {
	hex := strings.ToUpper(strings.ReplaceAll(id.String(), "-", ""))
	return fmt.Sprintf("BU-%s-%s", collectionDate.UTC().Format("20060102"), hex[:8])
}

// AppendNote adds a line to the append-only notes field.
func (u *BloodUnit) AppendNote(note string) {
	note = strings.TrimSpace(note)
	if note == "" {
		return
	}
	if u.Notes == "" {
		u.Notes = note
		return
	}
	u.Notes = u.Notes + "\n" + note
}

// DateOnly truncates t to its UTC calendar date.
func DateOnly(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// UnitView is a BloodUnit joined with the donor fields the list, detail and
// export surfaces need. DonorName and DonorRef are subject to role-based
// redaction before leaving the application layer.
type UnitView struct {
	BloodUnit
	DonorName string
	DonorRef  string
}

package models

import (
	"strings"

	"github.com/google/uuid"
)

// DonorStatus is the donor's standing in the (external) donor-management
// workflow. Only approved or served donors may source a unit.
type DonorStatus string

const (
	DonorPending  DonorStatus = "pending"
	DonorApproved DonorStatus = "approved"
	DonorServed   DonorStatus = "served"
	DonorRejected DonorStatus = "rejected"
)

// Donor is a read-only reference entity. This context never mutates donors;
// it reads them to validate unit creation and to decorate unit views.
type Donor struct {
	ID            uuid.UUID
	ReferenceCode string
	FullName      string
	BloodType     BloodType
	Status        DonorStatus
}

// Eligible reports whether the donor may source a new unit.
func (d *Donor) Eligible() bool {
	switch DonorStatus(strings.ToLower(string(d.Status))) {
	case DonorApproved, DonorServed:
		return true
	}
	return false
}

package models

import (
	"fmt"
	"strings"
)

// BloodType is the ABO/Rh group of a unit or donor.
type BloodType string

const (
	BloodAPos BloodType = "A+"
	BloodANeg BloodType = "A-"
	BloodBPos BloodType = "B+"
	BloodBNeg BloodType = "B-"
	BloodABPos BloodType = "AB+"
	BloodABNeg BloodType = "AB-"
	BloodOPos BloodType = "O+"
	BloodONeg BloodType = "O-"
	BloodUnknown BloodType = "Unknown"
)

// AllBloodTypes lists every recognized group in display order.
// BloodUnknown is last so dashboards render it after the real groups.
func AllBloodTypes() []BloodType {
	return []BloodType{
		BloodAPos, BloodANeg,
		BloodBPos, BloodBNeg,
		BloodABPos, BloodABNeg,
		BloodOPos, BloodONeg,
		BloodUnknown,
	}
}

// ParseBloodType maps a label to a BloodType, case-insensitively.
// Returns an error for unrecognized labels; callers decide whether that is a
// validation failure (input) or a no-filter fallback (query strings).
func ParseBloodType(s string) (BloodType, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "A+":
		return BloodAPos, nil
	case "A-":
		return BloodANeg, nil
	case "B+":
		return BloodBPos, nil
	case "B-":
		return BloodBNeg, nil
	case "AB+":
		return BloodABPos, nil
	case "AB-":
		return BloodABNeg, nil
	case "O+":
		return BloodOPos, nil
	case "O-":
		return BloodONeg, nil
	case "UNKNOWN":
		return BloodUnknown, nil
	}
	return "", fmt.Errorf("unrecognized blood type %q", s)
}

// String returns the display label.
func (b BloodType) String() string {
	return string(b)
}

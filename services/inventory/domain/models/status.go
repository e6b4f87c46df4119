package models

import (
	"fmt"
	"strings"
)

// Status is a unit's lifecycle state. StatusDeleted is terminal: deleted units
// are excluded from active views but remain visible through the audit trail.
type Status string

const (
	StatusAvailable   Status = "available"
	StatusUsed        Status = "used"
	StatusExpired     Status = "expired"
	StatusQuarantined Status = "quarantined"
	StatusDeleted     Status = "deleted"
)

// ActiveStatuses lists the states a unit can be shown in without an explicit
// deleted filter.
func ActiveStatuses() []Status {
	return []Status{StatusAvailable, StatusUsed, StatusExpired, StatusQuarantined}
}

// ParseStatus maps a label to a Status, case-insensitively.
func ParseStatus(s string) (Status, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "available":
		return StatusAvailable, nil
	case "used":
		return StatusUsed, nil
	case "expired":
		return StatusExpired, nil
	case "quarantined":
		return StatusQuarantined, nil
	case "deleted":
		return StatusDeleted, nil
	}
	return "", fmt.Errorf("unrecognized status %q", s)
}

// String returns the stored label.
func (s Status) String() string {
	return string(s)
}

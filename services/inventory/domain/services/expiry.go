// Package services contains stateless domain services for the inventory
// bounded context. Domain services enforce business rules that operate purely
// on domain types and have zero external dependencies beyond stdlib and the
// domain layer.
package services

import (
	"time"

	"github.com/ghuser/hemotrack/services/inventory/domain/models"
)

// ShelfLifeDays is the canonical whole-blood shelf life. A unit collected on
// day D expires at the end of day D+35; from D+36 onward it must be treated
// as expired.
const ShelfLifeDays = 35

// ExpiringSoonWindowDays is the urgency window: a unit with 0–5 days
// remaining is flagged ExpiringSoon.
const ExpiringSoonWindowDays = 5

// Urgency classifies how close a unit is to its expiry date.
type Urgency string

const (
	UrgencyNormal       Urgency = "normal"
	UrgencyExpiringSoon Urgency = "expiring_soon"
	UrgencyExpired      Urgency = "expired"
)

// ExpiryDate computes the derived expiry date for a collection date.
// This is the only code path allowed to produce an expiry date.
func ExpiryDate(collectionDate time.Time) time.Time {
	return models.DateOnly(collectionDate).AddDate(0, 0, ShelfLifeDays)
}

// DaysRemaining returns whole days from today until expiry; negative once the
// unit is past its expiry date.
func DaysRemaining(expiryDate, today time.Time) int {
	d := models.DateOnly(expiryDate).Sub(models.DateOnly(today))
	return int(d.Hours() / 24)
}

// UrgencyOf classifies a unit's remaining shelf life as of today.
func UrgencyOf(expiryDate, today time.Time) Urgency {
	remaining := DaysRemaining(expiryDate, today)
	switch {
	case remaining < 0:
		return UrgencyExpired
	case remaining <= ExpiringSoonWindowDays:
		return UrgencyExpiringSoon
	default:
		return UrgencyNormal
	}
}

// Overdue reports whether a unit in the given status must be lazily expired:
// Available and Quarantined units past their expiry date may not be surfaced
// without first transitioning to Expired.
func Overdue(status models.Status, expiryDate, today time.Time) bool {
	if status != models.StatusAvailable && status != models.StatusQuarantined {
		return false
	}
	return DaysRemaining(expiryDate, today) < 0
}

// EffectiveStatus is the status a unit counts as today, with the lazy-expiry
// rule applied conceptually. Aggregations use this so dashboard counts never
// disagree with unit lists, even for rows no read has touched yet.
func EffectiveStatus(status models.Status, expiryDate, today time.Time) models.Status {
	if Overdue(status, expiryDate, today) {
		return models.StatusExpired
	}
	return status
}

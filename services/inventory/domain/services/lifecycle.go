package services

import (
	"fmt"
	"strings"
	"time"

	domain "github.com/ghuser/hemotrack/services/inventory/domain"
	"github.com/ghuser/hemotrack/services/inventory/domain/models"
)

// ActorKind distinguishes admin-initiated transitions from engine-initiated
// ones. Only the engine (lazy expiry) may move a unit to Expired.
type ActorKind int

const (
	ActorAdmin ActorKind = iota
	ActorSystem
)

// transitionRule is one row of the legal transition table.
type transitionRule struct {
	kind         ActorKind
	reasonNeeded bool
}

// legalTransitions is the complete transition table. A (from, to) pair absent
// from this map is illegal — in particular Expired → Available/Used: a unit
// past expiry never re-enters circulation.
var legalTransitions = map[models.Status]map[models.Status]transitionRule{
	models.StatusAvailable: {
		models.StatusUsed:        {kind: ActorAdmin},
		models.StatusQuarantined: {kind: ActorAdmin, reasonNeeded: true},
		models.StatusExpired:     {kind: ActorSystem},
		models.StatusDeleted:     {kind: ActorAdmin, reasonNeeded: true},
	},
	models.StatusQuarantined: {
		models.StatusAvailable: {kind: ActorAdmin, reasonNeeded: true}, // cleared screening
		models.StatusExpired:   {kind: ActorSystem},
		models.StatusDeleted:   {kind: ActorAdmin, reasonNeeded: true},
	},
	models.StatusUsed: {
		models.StatusDeleted: {kind: ActorAdmin, reasonNeeded: true},
	},
	models.StatusExpired: {
		models.StatusDeleted: {kind: ActorAdmin, reasonNeeded: true},
	},
}

// ValidateTransition checks one requested status change against the legal
// transition table. Returns ErrIllegalTransition when the (from, to, actor)
// combination is not allowed and ErrValidation when a mandatory reason is
// missing. System-detected expiry needs no reason.
func ValidateTransition(from, to models.Status, kind ActorKind, reason string) error {
	if from == to {
		return fmt.Errorf("%w: unit is already %s", domain.ErrIllegalTransition, from)
	}
	rules, ok := legalTransitions[from]
	if !ok {
		return fmt.Errorf("%w: no transitions allowed from %s", domain.ErrIllegalTransition, from)
	}
	rule, ok := rules[to]
	if !ok {
		return fmt.Errorf("%w: %s -> %s", domain.ErrIllegalTransition, from, to)
	}
	if rule.kind == ActorSystem && kind != ActorSystem {
		return fmt.Errorf("%w: %s -> %s is system-triggered only", domain.ErrIllegalTransition, from, to)
	}
	if rule.reasonNeeded && strings.TrimSpace(reason) == "" {
		return fmt.Errorf("%w: reason is required for %s -> %s", domain.ErrValidation, from, to)
	}
	return nil
}

// ValidateCreation guards the (none) → Available transition: the donor must
// be approved or served, and the collection date must not be in the future.
func ValidateCreation(donor *models.Donor, collectionDate, today time.Time) error {
	if donor == nil {
		return domain.ErrDonorNotFound
	}
	if !donor.Eligible() {
		return fmt.Errorf("%w: donor %s is %s", domain.ErrDonorNotEligible, donor.ReferenceCode, donor.Status)
	}
	if collectionDate.IsZero() {
		return fmt.Errorf("%w: collection date is required", domain.ErrValidation)
	}
	if models.DateOnly(collectionDate).After(models.DateOnly(today)) {
		return fmt.Errorf("%w: collection date is in the future", domain.ErrValidation)
	}
	return nil
}

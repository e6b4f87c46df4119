package services

import (
	"strings"

	"github.com/ghuser/hemotrack/services/inventory/domain/models"
)

// Role is an actor's role as threaded in from the session boundary. The core
// never reads ambient session state; handlers resolve the role and pass it
// explicitly.
type Role string

const (
	RoleSuperAdmin       Role = "super_admin"
	RoleInventoryManager Role = "inventory_manager"
	RoleMedicalStaff     Role = "medical_staff"
	RoleViewer           Role = "viewer"
)

// RedactedMask replaces donor-identifying fields for non-privileged roles.
const RedactedMask = "***"

// ParseRole normalizes a role label. Unknown labels collapse to RoleViewer —
// the least privileged role — so a stale or forged label can never widen
// access.
func ParseRole(s string) Role {
	switch Role(strings.ToLower(strings.TrimSpace(s))) {
	case RoleSuperAdmin:
		return RoleSuperAdmin
	case RoleInventoryManager:
		return RoleInventoryManager
	case RoleMedicalStaff:
		return RoleMedicalStaff
	}
	return RoleViewer
}

// Privileged reports whether the role may see donor identity and perform
// mutating actions.
func (r Role) Privileged() bool {
	switch r {
	case RoleSuperAdmin, RoleInventoryManager, RoleMedicalStaff:
		return true
	}
	return false
}

// RedactView returns a copy of v with donor-identifying fields masked for
// non-privileged roles. Non-identifying fields (blood type, status, dates)
// stay visible. Every unit leaving the application layer passes through here.
func RedactView(v *models.UnitView, role Role) *models.UnitView {
	if v == nil {
		return nil
	}
	out := *v
	if !role.Privileged() {
		out.DonorName = RedactedMask
		out.DonorRef = RedactedMask
	}
	return &out
}

// RedactViews applies RedactView to a slice, preserving order.
func RedactViews(vs []*models.UnitView, role Role) []*models.UnitView {
	out := make([]*models.UnitView, len(vs))
	for i, v := range vs {
		out[i] = RedactView(v, role)
	}
	return out
}

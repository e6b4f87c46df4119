package models

import "time"

// AuditAction identifies what happened to a unit.
type AuditAction string

const (
	AuditCreated            AuditAction = "created"
	AuditStatusChanged      AuditAction = "status_changed"
	AuditBloodTypeCorrected AuditAction = "blood_type_corrected"
	AuditDeleted            AuditAction = "deleted"
)

// SystemActor is recorded when a transition is applied by the engine itself
// (lazy expiry) rather than by an admin.
const SystemActor = "system"

// AuditEntry is one immutable record of one action on one unit. Entries are
// append-only and outlive their subject: deleting a unit never touches its
// audit trail.
type AuditEntry struct {
	ID          int64 // store-assigned, monotonic per audit_log
	UnitID      string
	Action      AuditAction
	Actor       string
	BeforeValue string
	AfterValue  string
	Reason      string
	CreatedAt   time.Time
}

// NewAuditEntry builds an entry for a pending write. The store assigns ID and
// CreatedAt when the entry is persisted inside the same transaction as the
// unit mutation it records.
func NewAuditEntry(unitID string, action AuditAction, actor, before, after, reason string) AuditEntry {
	return AuditEntry{
		UnitID:      unitID,
		Action:      action,
		Actor:       actor,
		BeforeValue: before,
		AfterValue:  after,
		Reason:      reason,
	}
}

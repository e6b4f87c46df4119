package events

import (
	"time"

	"github.com/google/uuid"
)

// Topics for inventory domain events. Published transactionally with the row
// writes they describe (outbox), consumed by cmd/worker.
const (
	TopicUnitCreated       = "inventory.unit.created"
	TopicUnitStatusChanged = "inventory.unit.status_changed"
)

// UnitCreatedEvent is emitted when a collection event is attached to a donor
// and a new Available unit enters the inventory.
type UnitCreatedEvent struct {
	EventID        uuid.UUID `json:"event_id"`
	Version        int       `json:"version"`
	UnitID         string    `json:"unit_id"`
	BloodType      string    `json:"blood_type"`
	CollectionDate time.Time `json:"collection_date"`
	ExpiryDate     time.Time `json:"expiry_date"`
	OccurredAt     time.Time `json:"occurred_at"`
}

// UnitStatusChangedEvent is emitted for every successful lifecycle transition,
// including system-triggered lazy expiry and terminal deletion.
type UnitStatusChangedEvent struct {
	EventID    uuid.UUID `json:"event_id"`
	Version    int       `json:"version"`
	UnitID     string    `json:"unit_id"`
	BloodType  string    `json:"blood_type"`
	FromStatus string    `json:"from_status"`
	ToStatus   string    `json:"to_status"`
	Actor      string    `json:"actor"`
	OccurredAt time.Time `json:"occurred_at"`
}

package domain

import (
	"time"

	"github.com/google/uuid"
)

// Lifecycle notification kinds published to downstream observers.
const (
	NotifyAssignmentCompleted = "assignment-completed"
	NotifyParcelPostponed     = "parcel-postponed"
	NotifySessionCompleted    = "session-completed"
)

// LifecycleNotification is a best-effort, fire-and-forget message to
// downstream observers. Failure to deliver one must not fail the courier
// operation that produced it.
type LifecycleNotification struct {
	Kind      string    `json:"kind"`
	EntityID  uuid.UUID `json:"entity_id"`
	ParcelID  uuid.UUID `json:"parcel_id,omitempty"`
	CourierID int64     `json:"courier_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

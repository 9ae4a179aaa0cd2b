package domain

import (
	"time"

	"github.com/google/uuid"
)

type (
	// ParcelStatus represents the delivery lifecycle state of a parcel.
	ParcelStatus string
	// EventType represents a requested parcel status change.
	EventType string
)

// Parcel represents a shipment tracked through delivery states. It is
// owned and mutated exclusively by the parcel state engine; other services
// hold it by id only.
type Parcel struct {
	ID          uuid.UUID
	Code        string
	Status      ParcelStatus
	WeightGrams int64
	ValueCents  int64
	WindowStart time.Time
	WindowEnd   time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
	DeliveredAt *time.Time
}

// StateChangeRequest is an asynchronous message asking the parcel state
// engine to apply one event to one parcel. Delivered at least once,
// ordered per parcel id.
type StateChangeRequest struct {
	EventID       uuid.UUID `json:"eventId"`
	ParcelID      uuid.UUID `json:"parcelId"`
	EventType     EventType `json:"eventType"`
	SourceService string    `json:"sourceService"`
	CreatedAt     time.Time `json:"createdAt"`
}

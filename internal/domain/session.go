package domain

import (
	"time"

	"github.com/google/uuid"
)

type (
	// SessionStatus represents the status of a courier work session.
	SessionStatus string
	// AssignmentStatus represents the status of a delivery assignment.
	AssignmentStatus string
)

// List of possible session statuses
const (
	SessionActive    SessionStatus = "active"
	SessionCompleted SessionStatus = "completed"
	SessionFailed    SessionStatus = "failed"
)

// List of possible assignment statuses
const (
	AssignmentPending   AssignmentStatus = "PENDING"
	AssignmentCompleted AssignmentStatus = "COMPLETED"
	AssignmentFailed    AssignmentStatus = "FAILED"
	AssignmentRefused   AssignmentStatus = "REFUSED"
)

// Terminal reports whether the assignment status admits no further mutation.
func (s AssignmentStatus) Terminal() bool {
	return s == AssignmentCompleted || s == AssignmentFailed || s == AssignmentRefused
}

// CourierWorkSession is a bounded period in which one courier carries a
// batch of parcels. A courier has at most one active session at a time.
type CourierWorkSession struct {
	ID        uuid.UUID
	CourierID int64
	Status    SessionStatus
	StartedAt time.Time
	EndedAt   *time.Time
}

// RouteInfo carries the recorded route of one delivery attempt.
type RouteInfo struct {
	DistanceMeters  int64    `json:"distance_meters"`
	DurationSeconds int64    `json:"duration_seconds"`
	Waypoints       []string `json:"waypoints,omitempty"`
}

// DeliveryAssignment is one attempt to deliver one parcel within a session.
// The parcel is referenced by id only; it is owned by the parcel service.
// Terminal statuses are immutable.
type DeliveryAssignment struct {
	ID         uuid.UUID
	SessionID  uuid.UUID
	TaskID     uuid.UUID
	ParcelID   uuid.UUID
	Status     AssignmentStatus
	Route      RouteInfo
	FailReason string
	ScannedAt  time.Time
}

// Task is the durable "this parcel must be delivered" record. It outlives
// individual assignment attempts and counts them.
type Task struct {
	ID       uuid.UUID
	ParcelID uuid.UUID
	Attempts int
}

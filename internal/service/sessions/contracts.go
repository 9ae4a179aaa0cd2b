package sessions

import (
	"context"
	"time"

	"github.com/google/uuid"

	"parcelflow/internal/domain"
)

// Tx abstracts the transactional subset of the session repository used by
// the assignment lifecycle operations. The outbox enqueue rides the same
// transaction so an assignment write and its emission commit together.
type Tx interface {
	FindOpenSession(ctx context.Context, courierID int64) (*domain.CourierWorkSession, error)
	GetSession(ctx context.Context, id uuid.UUID) (*domain.CourierWorkSession, error)
	InsertSession(ctx context.Context, s *domain.CourierWorkSession) error
	CloseSession(ctx context.Context, id uuid.UUID, status domain.SessionStatus, endedAt time.Time) error

	FindOrCreateTask(ctx context.Context, parcelID uuid.UUID) (*domain.Task, error)
	IncrementTaskAttempts(ctx context.Context, taskID uuid.UUID) error

	InsertAssignment(ctx context.Context, courierID int64, a *domain.DeliveryAssignment) error
	FindLatestAssignment(ctx context.Context, courierID int64, parcelID uuid.UUID) (*domain.DeliveryAssignment, error)
	FindPendingBySession(ctx context.Context, sessionID uuid.UUID) ([]domain.DeliveryAssignment, error)
	TerminateAssignment(ctx context.Context, id uuid.UUID, status domain.AssignmentStatus, route domain.RouteInfo, failReason string) (bool, error)

	EnqueueOutbox(ctx context.Context, topic, key string, payload []byte) error
}

// TxRunner abstracts running a function within a session transaction.
type TxRunner interface {
	WithTx(ctx context.Context, fn func(tx Tx) error) error
}

package handlers

import (
	"context"
	"time"

	"github.com/google/uuid"

	"parcelflow/internal/domain"
	"parcelflow/internal/service/parcels"
	"parcelflow/internal/service/sessions"
)

type parcelUsecase interface {
	Create(ctx context.Context, code string, weightGrams, valueCents int64, windowStart, windowEnd time.Time) (*domain.Parcel, error)
	Get(ctx context.Context, id uuid.UUID) (*domain.Parcel, error)
	GetByCode(ctx context.Context, code string) (*domain.Parcel, error)
	GetBulk(ctx context.Context, ids []uuid.UUID) ([]domain.Parcel, error)
}

// NewParcelUsecase wires a parcels.Service into a parcelUsecase.
func NewParcelUsecase(svc *parcels.Service) parcelUsecase {
	return svc
}

type sessionUsecase interface {
	AcceptParcel(ctx context.Context, courierID int64, parcelID uuid.UUID) (*domain.DeliveryAssignment, error)
	CompleteTask(ctx context.Context, courierID int64, parcelID uuid.UUID, route domain.RouteInfo) (*domain.DeliveryAssignment, error)
	FailDelivery(ctx context.Context, courierID int64, parcelID uuid.UUID, reason string, route domain.RouteInfo) (*domain.DeliveryAssignment, error)
	RefuseByCustomer(ctx context.Context, courierID int64, parcelID uuid.UUID, reason string) (*domain.DeliveryAssignment, error)
	CompleteSession(ctx context.Context, sessionID uuid.UUID) error
	FailSession(ctx context.Context, sessionID uuid.UUID, reason string) error
}

// NewSessionUsecase wires a sessions.Service into a sessionUsecase.
func NewSessionUsecase(svc *sessions.Service) sessionUsecase {
	return svc
}

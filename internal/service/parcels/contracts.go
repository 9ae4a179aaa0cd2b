//go:generate mockgen -source=contracts.go -destination=parcels_mocks_test.go -package=parcels_test

package parcels

import (
	"context"
	"time"

	"github.com/google/uuid"

	"parcelflow/internal/domain"
)

// Tx abstracts the transactional subset of the parcel repository used by
// ApplyEvent.
type Tx interface {
	GetForUpdate(ctx context.Context, id uuid.UUID) (*domain.Parcel, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status domain.ParcelStatus, deliveredAt *time.Time) error
}

// TxRunner abstracts running a function within a parcel transaction.
type TxRunner interface {
	WithTx(ctx context.Context, fn func(tx Tx) error) error
}

// Reader abstracts the read-only parcel query surface.
type Reader interface {
	Get(ctx context.Context, id uuid.UUID) (*domain.Parcel, error)
	GetByCode(ctx context.Context, code string) (*domain.Parcel, error)
	GetBulk(ctx context.Context, ids []uuid.UUID) ([]domain.Parcel, error)
}

// Writer abstracts parcel intake.
type Writer interface {
	Insert(ctx context.Context, p *domain.Parcel) error
}

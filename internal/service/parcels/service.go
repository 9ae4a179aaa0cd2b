package parcels

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"parcelflow/internal/apperr"
	"parcelflow/internal/domain"
	"parcelflow/internal/logx"
	"parcelflow/internal/repository"
)

// Service is the parcel state engine. It owns every parcel mutation:
// intake and event application. All other services hold parcels by id.
type Service struct {
	runner           TxRunner
	reader           Reader
	writer           Writer
	operationTimeout time.Duration
	logger           logx.Logger
	now              func() time.Time
}

// NewService creates a parcel Service from interfaces (handy for tests).
func NewService(runner TxRunner, reader Reader, writer Writer, timeout time.Duration, logger logx.Logger) *Service {
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	if logger == nil {
		logger = logx.Nop()
	}
	return &Service{
		runner:           runner,
		reader:           reader,
		writer:           writer,
		operationTimeout: timeout,
		logger:           logger,
		now:              func() time.Time { return time.Now().UTC() },
	}
}

type repoAdapter struct {
	r *repository.ParcelRepo
}

// WithTx opens a transaction and executes fn within it.
func (a repoAdapter) WithTx(ctx context.Context, fn func(tx Tx) error) error {
	return a.r.WithTx(ctx, func(tx *repository.ParcelTx) error { return fn(tx) })
}

// NewServiceWithRepo wires a Service to the Postgres parcel repository.
func NewServiceWithRepo(repo *repository.ParcelRepo, timeout time.Duration, logger logx.Logger) *Service {
	return NewService(repoAdapter{r: repo}, repo, repo, timeout, logger)
}

func (s *Service) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.operationTimeout)
}

// ApplyEvent validates and applies one state-change request to its parcel
// under a row-level lock. An event that does not move the status is a
// successful no-op, which is what makes at-least-once redelivery safe.
// apperr.ErrNotFound and apperr.ErrIllegalTransition are permanent:
// redelivering the same request can never make them succeed.
func (s *Service) ApplyEvent(ctx context.Context, req domain.StateChangeRequest) (*domain.Parcel, error) {
	if !req.EventType.Valid() {
		return nil, apperr.ErrInvalid
	}
	if req.ParcelID == uuid.Nil {
		return nil, apperr.ErrInvalid
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var result *domain.Parcel

	err := s.runner.WithTx(ctx, func(tx Tx) error {
		p, err := tx.GetForUpdate(ctx, req.ParcelID)
		if err != nil {
			return err
		}
		if p == nil {
			return apperr.ErrNotFound
		}

		next := p.Status.Next(req.EventType)
		if next == p.Status {
			result = p
			return nil
		}
		if !domain.CanTransition(p.Status, next) {
			return apperr.ErrIllegalTransition
		}

		var deliveredAt *time.Time
		if next == domain.StatusDelivered {
			t := s.now()
			deliveredAt = &t
		}

		if err := tx.UpdateStatus(ctx, p.ID, next, deliveredAt); err != nil {
			return err
		}

		updated := *p
		updated.Status = next
		updated.UpdatedAt = s.now()
		if deliveredAt != nil {
			updated.DeliveredAt = deliveredAt
		}
		result = &updated
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("parcel event applied",
		logx.String("event", "parcel_event_applied"),
		logx.String("event_id", req.EventID.String()),
		logx.String("parcel_id", req.ParcelID.String()),
		logx.String("event_type", string(req.EventType)),
		logx.String("status", string(result.Status)),
	)

	return result, nil
}

// Create performs parcel intake: a new parcel always starts IN_WAREHOUSE.
func (s *Service) Create(ctx context.Context, code string, weightGrams, valueCents int64, windowStart, windowEnd time.Time) (*domain.Parcel, error) {
	code = strings.TrimSpace(code)
	if code == "" || weightGrams < 0 || valueCents < 0 {
		return nil, apperr.ErrInvalid
	}
	if !windowEnd.After(windowStart) {
		return nil, apperr.ErrInvalid
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	now := s.now()
	p := &domain.Parcel{
		ID:          uuid.New(),
		Code:        code,
		Status:      domain.StatusInWarehouse,
		WeightGrams: weightGrams,
		ValueCents:  valueCents,
		WindowStart: windowStart,
		WindowEnd:   windowEnd,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.writer.Insert(ctx, p); err != nil {
		if repository.IsDuplicate(err) {
			return nil, apperr.ErrConflict
		}
		return nil, err
	}
	return p, nil
}

// Get returns a parcel by id.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*domain.Parcel, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	p, err := s.reader.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, apperr.ErrNotFound
	}
	return p, nil
}

// GetByCode returns a parcel by its human-readable code.
func (s *Service) GetByCode(ctx context.Context, code string) (*domain.Parcel, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, apperr.ErrInvalid
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	p, err := s.reader.GetByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, apperr.ErrNotFound
	}
	return p, nil
}

// GetBulk returns the parcels that exist among ids; missing ids are
// silently absent from the result.
func (s *Service) GetBulk(ctx context.Context, ids []uuid.UUID) ([]domain.Parcel, error) {
	if len(ids) == 0 {
		return nil, apperr.ErrInvalid
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	return s.reader.GetBulk(ctx, ids)
}

package sessions

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"parcelflow/internal/apperr"
	"parcelflow/internal/config"
	"parcelflow/internal/domain"
	"parcelflow/internal/logx"
	"parcelflow/internal/repository"
)

// SourceService tags every state-change request this service emits.
const SourceService = "courier-service"

// Service is the assignment lifecycle manager. Courier actions mutate
// sessions, tasks and assignments locally; each terminal assignment
// transition enqueues exactly one state-change request toward the parcel
// state engine through the transactional outbox. The parcel itself is
// never touched here.
type Service struct {
	runner           TxRunner
	stateTopic       string
	notifyTopic      string
	operationTimeout time.Duration
	logger           logx.Logger
	now              func() time.Time
}

// NewService creates a sessions Service from interfaces (handy for tests).
func NewService(runner TxRunner, kafka config.Kafka, timeout time.Duration, logger logx.Logger) *Service {
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	if logger == nil {
		logger = logx.Nop()
	}
	return &Service{
		runner:           runner,
		stateTopic:       kafka.StateTopic,
		notifyTopic:      kafka.NotifyTopic,
		operationTimeout: timeout,
		logger:           logger,
		now:              func() time.Time { return time.Now().UTC() },
	}
}

type repoAdapter struct {
	r *repository.SessionRepo
}

// WithTx opens a transaction and executes fn within it.
func (a repoAdapter) WithTx(ctx context.Context, fn func(tx Tx) error) error {
	return a.r.WithTx(ctx, func(tx *repository.SessionTx) error { return fn(tx) })
}

// NewServiceWithRepo wires a Service to the Postgres session repository.
func NewServiceWithRepo(repo *repository.SessionRepo, kafka config.Kafka, timeout time.Duration, logger logx.Logger) *Service {
	return NewService(repoAdapter{r: repo}, kafka, timeout, logger)
}

func (s *Service) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.operationTimeout)
}

// AcceptParcel records a courier scanning a parcel into their current work
// session, creating the session on first scan. Accepting alone does
// not move the parcel status; the ON_ROUTE transition is driven upstream
// by route start.
func (s *Service) AcceptParcel(ctx context.Context, courierID int64, parcelID uuid.UUID) (*domain.DeliveryAssignment, error) {
	if courierID <= 0 || parcelID == uuid.Nil {
		return nil, apperr.ErrInvalid
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var assignment *domain.DeliveryAssignment

	// Two concurrent accepts for one courier can both observe "no open
	// session"; the partial unique index rejects the second insert and we
	// retry once, finding the winner's session.
	var err error
	for attempt := 0; attempt < 2; attempt++ {
		err = s.runner.WithTx(ctx, func(tx Tx) error {
			session, err := tx.FindOpenSession(ctx, courierID)
			if err != nil {
				return err
			}
			if session == nil {
				session = &domain.CourierWorkSession{
					ID:        uuid.New(),
					CourierID: courierID,
					Status:    domain.SessionActive,
					StartedAt: s.now(),
				}
				if err := tx.InsertSession(ctx, session); err != nil {
					return err
				}
			}

			task, err := tx.FindOrCreateTask(ctx, parcelID)
			if err != nil {
				return err
			}
			if err := tx.IncrementTaskAttempts(ctx, task.ID); err != nil {
				return err
			}

			a := &domain.DeliveryAssignment{
				ID:        uuid.New(),
				SessionID: session.ID,
				TaskID:    task.ID,
				ParcelID:  parcelID,
				Status:    domain.AssignmentPending,
				ScannedAt: s.now(),
			}
			if err := tx.InsertAssignment(ctx, courierID, a); err != nil {
				return err
			}
			assignment = a
			return nil
		})
		if err == nil || !repository.IsDuplicate(err) {
			break
		}
	}
	if err != nil {
		if repository.IsDuplicate(err) {
			// The courier already has a pending assignment for this parcel.
			return nil, apperr.ErrConflict
		}
		return nil, err
	}

	s.logger.Info("parcel accepted",
		logx.String("event", "parcel_accepted"),
		logx.Int64("courier_id", courierID),
		logx.String("parcel_id", parcelID.String()),
		logx.String("session_id", assignment.SessionID.String()),
	)

	return assignment, nil
}

// CompleteTask marks the courier's pending assignment for the parcel as
// COMPLETED and emits a DELIVER request toward the parcel state engine.
func (s *Service) CompleteTask(ctx context.Context, courierID int64, parcelID uuid.UUID, route domain.RouteInfo) (*domain.DeliveryAssignment, error) {
	return s.terminate(ctx, courierID, parcelID, domain.AssignmentCompleted, route, "")
}

// FailDelivery marks the assignment FAILED with a reason and emits a FAIL
// request.
func (s *Service) FailDelivery(ctx context.Context, courierID int64, parcelID uuid.UUID, reason string, route domain.RouteInfo) (*domain.DeliveryAssignment, error) {
	if strings.TrimSpace(reason) == "" {
		return nil, apperr.ErrInvalid
	}
	return s.terminate(ctx, courierID, parcelID, domain.AssignmentFailed, route, reason)
}

// RefuseByCustomer marks the assignment REFUSED and emits a DISPUTE
// request: a refusal routes to DISPUTE, not FAILED, so it can be resolved
// later.
func (s *Service) RefuseByCustomer(ctx context.Context, courierID int64, parcelID uuid.UUID, reason string) (*domain.DeliveryAssignment, error) {
	if strings.TrimSpace(reason) == "" {
		reason = "refused by customer"
	}
	return s.terminate(ctx, courierID, parcelID, domain.AssignmentRefused, domain.RouteInfo{}, reason)
}

func (s *Service) terminate(ctx context.Context, courierID int64, parcelID uuid.UUID, status domain.AssignmentStatus, route domain.RouteInfo, reason string) (*domain.DeliveryAssignment, error) {
	if courierID <= 0 || parcelID == uuid.Nil {
		return nil, apperr.ErrInvalid
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var result *domain.DeliveryAssignment

	err := s.runner.WithTx(ctx, func(tx Tx) error {
		a, err := tx.FindLatestAssignment(ctx, courierID, parcelID)
		if err != nil {
			return err
		}
		if a == nil {
			return apperr.ErrNotFound
		}
		if a.Status.Terminal() {
			return apperr.ErrConflict
		}

		ok, err := tx.TerminateAssignment(ctx, a.ID, status, route, reason)
		if err != nil {
			return err
		}
		if !ok {
			return apperr.ErrConflict
		}

		if err := s.enqueueStateChange(ctx, tx, parcelID, eventFor(status)); err != nil {
			return err
		}
		if err := s.enqueueNotification(ctx, tx, notificationFor(status, a, courierID, s.now())); err != nil {
			return err
		}

		a.Status = status
		a.Route = route
		a.FailReason = reason
		result = a
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("assignment terminated",
		logx.String("event", "assignment_terminated"),
		logx.Int64("courier_id", courierID),
		logx.String("parcel_id", parcelID.String()),
		logx.String("status", string(status)),
	)

	return result, nil
}

// CompleteSession closes a session normally. Any still-pending assignments
// are individually failed with a session-level reason so no parcel is left
// stranded mid-transition.
func (s *Service) CompleteSession(ctx context.Context, sessionID uuid.UUID) error {
	return s.closeSession(ctx, sessionID, domain.SessionCompleted, "session completed with undelivered parcel")
}

// FailSession closes a session on a courier-reported failure.
func (s *Service) FailSession(ctx context.Context, sessionID uuid.UUID, reason string) error {
	if strings.TrimSpace(reason) == "" {
		return apperr.ErrInvalid
	}
	return s.closeSession(ctx, sessionID, domain.SessionFailed, reason)
}

func (s *Service) closeSession(ctx context.Context, sessionID uuid.UUID, status domain.SessionStatus, reason string) error {
	if sessionID == uuid.Nil {
		return apperr.ErrInvalid
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var failed int

	err := s.runner.WithTx(ctx, func(tx Tx) error {
		session, err := tx.GetSession(ctx, sessionID)
		if err != nil {
			return err
		}
		if session == nil {
			return apperr.ErrNotFound
		}
		if session.Status != domain.SessionActive {
			return apperr.ErrConflict
		}

		pending, err := tx.FindPendingBySession(ctx, sessionID)
		if err != nil {
			return err
		}
		for _, a := range pending {
			ok, err := tx.TerminateAssignment(ctx, a.ID, domain.AssignmentFailed, domain.RouteInfo{}, reason)
			if err != nil {
				return err
			}
			if !ok {
				continue
			}
			if err := s.enqueueStateChange(ctx, tx, a.ParcelID, domain.EventFail); err != nil {
				return err
			}
			failed++
		}

		if err := tx.CloseSession(ctx, sessionID, status, s.now()); err != nil {
			return err
		}

		return s.enqueueNotification(ctx, tx, domain.LifecycleNotification{
			Kind:      domain.NotifySessionCompleted,
			EntityID:  sessionID,
			CourierID: session.CourierID,
			CreatedAt: s.now(),
		})
	})
	if err != nil {
		return err
	}

	s.logger.Info("session closed",
		logx.String("event", "session_closed"),
		logx.String("session_id", sessionID.String()),
		logx.String("status", string(status)),
		logx.Int("failed_assignments", failed),
	)

	return nil
}

func eventFor(status domain.AssignmentStatus) domain.EventType {
	switch status {
	case domain.AssignmentCompleted:
		return domain.EventDeliver
	case domain.AssignmentRefused:
		return domain.EventDispute
	default:
		return domain.EventFail
	}
}

func notificationFor(status domain.AssignmentStatus, a *domain.DeliveryAssignment, courierID int64, now time.Time) domain.LifecycleNotification {
	kind := domain.NotifyAssignmentCompleted
	if status != domain.AssignmentCompleted {
		kind = domain.NotifyParcelPostponed
	}
	return domain.LifecycleNotification{
		Kind:      kind,
		EntityID:  a.ID,
		ParcelID:  a.ParcelID,
		CourierID: courierID,
		CreatedAt: now,
	}
}

func (s *Service) enqueueStateChange(ctx context.Context, tx Tx, parcelID uuid.UUID, event domain.EventType) error {
	req := domain.StateChangeRequest{
		EventID:       uuid.New(),
		ParcelID:      parcelID,
		EventType:     event,
		SourceService: SourceService,
		CreatedAt:     s.now(),
	}
	payload, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("marshal state change request: %w", err)
	}
	return tx.EnqueueOutbox(ctx, s.stateTopic, parcelID.String(), payload)
}

func (s *Service) enqueueNotification(ctx context.Context, tx Tx, n domain.LifecycleNotification) error {
	payload, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("marshal lifecycle notification: %w", err)
	}
	return tx.EnqueueOutbox(ctx, s.notifyTopic, n.EntityID.String(), payload)
}

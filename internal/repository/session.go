package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"parcelflow/internal/domain"
)

// SessionRepo persists courier work sessions, tasks and delivery assignments.
type SessionRepo struct {
	db *pgxpool.Pool
}

// NewSessionRepo creates a new SessionRepo.
func NewSessionRepo(db *pgxpool.Pool) *SessionRepo {
	return &SessionRepo{db: db}
}

// WithTx opens a transaction and executes fn within it.
func (r *SessionRepo) WithTx(ctx context.Context, fn func(tx *SessionTx) error) (err error) {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			err = tx.Rollback(ctx)
			if err != nil {
				panic(err)
			}
			panic(p)
		}
	}()

	wrapped := &SessionTx{tx: tx}

	if err := fn(wrapped); err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil {
			return fmt.Errorf("rollback tx: %w (original error: %s)", rbErr, err.Error())
		}
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}

	return nil
}

// SessionTx represents a session repository transaction.
type SessionTx struct {
	tx pgx.Tx
}

// FindOpenSession returns the courier's active session holding a row lock,
// or (nil, nil) when the courier has no active session.
func (r *SessionTx) FindOpenSession(ctx context.Context, courierID int64) (*domain.CourierWorkSession, error) {
	row := r.tx.QueryRow(ctx, `
        SELECT id, courier_id, status, started_at, ended_at
        FROM courier_sessions
        WHERE courier_id = $1 AND status = 'active'
        FOR UPDATE
    `, courierID)

	var s domain.CourierWorkSession
	if err := row.Scan(&s.ID, &s.CourierID, &s.Status, &s.StartedAt, &s.EndedAt); err != nil {
		if IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("find open session for courier %d: %w", courierID, err)
	}
	return &s, nil
}

// GetSession loads a session by id with a row lock, or (nil, nil) when absent.
func (r *SessionTx) GetSession(ctx context.Context, id uuid.UUID) (*domain.CourierWorkSession, error) {
	row := r.tx.QueryRow(ctx, `
        SELECT id, courier_id, status, started_at, ended_at
        FROM courier_sessions
        WHERE id = $1
        FOR UPDATE
    `, id)

	var s domain.CourierWorkSession
	if err := row.Scan(&s.ID, &s.CourierID, &s.Status, &s.StartedAt, &s.EndedAt); err != nil {
		if IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get session %s: %w", id, err)
	}
	return &s, nil
}

// InsertSession stores a new active session. A partial unique index on
// (courier_id) WHERE status = 'active' makes a concurrent second insert
// fail with a duplicate-key error; callers retry the find path on it.
func (r *SessionTx) InsertSession(ctx context.Context, s *domain.CourierWorkSession) error {
	_, err := r.tx.Exec(ctx, `
        INSERT INTO courier_sessions (id, courier_id, status, started_at)
        VALUES ($1, $2, $3, $4)
    `, s.ID, s.CourierID, string(s.Status), s.StartedAt)
	if err != nil {
		return fmt.Errorf("insert session for courier %d: %w", s.CourierID, err)
	}
	return nil
}

// CloseSession marks a session terminal.
func (r *SessionTx) CloseSession(ctx context.Context, id uuid.UUID, status domain.SessionStatus, endedAt time.Time) error {
	ct, err := r.tx.Exec(ctx, `
        UPDATE courier_sessions
        SET status = $2, ended_at = $3
        WHERE id = $1 AND status = 'active'
    `, id, string(status), endedAt)
	if err != nil {
		return fmt.Errorf("close session %s: %w", id, err)
	}
	if ct.RowsAffected() == 0 {
		return fmt.Errorf("session %s is not active", id)
	}
	return nil
}

// FindOrCreateTask returns the durable delivery task for a parcel,
// creating it on first sight.
func (r *SessionTx) FindOrCreateTask(ctx context.Context, parcelID uuid.UUID) (*domain.Task, error) {
	row := r.tx.QueryRow(ctx, `
        INSERT INTO delivery_tasks (id, parcel_id, attempts)
        VALUES ($1, $2, 0)
        ON CONFLICT (parcel_id) DO UPDATE SET parcel_id = EXCLUDED.parcel_id
        RETURNING id, parcel_id, attempts
    `, uuid.New(), parcelID)

	var t domain.Task
	if err := row.Scan(&t.ID, &t.ParcelID, &t.Attempts); err != nil {
		return nil, fmt.Errorf("find or create task for parcel %s: %w", parcelID, err)
	}
	return &t, nil
}

// IncrementTaskAttempts bumps the attempt counter of a task.
func (r *SessionTx) IncrementTaskAttempts(ctx context.Context, taskID uuid.UUID) error {
	ct, err := r.tx.Exec(ctx, `
        UPDATE delivery_tasks SET attempts = attempts + 1 WHERE id = $1
    `, taskID)
	if err != nil {
		return fmt.Errorf("increment task attempts %s: %w", taskID, err)
	}
	if ct.RowsAffected() == 0 {
		return fmt.Errorf("task %s not found", taskID)
	}
	return nil
}

// InsertAssignment stores a new delivery assignment.
func (r *SessionTx) InsertAssignment(ctx context.Context, courierID int64, a *domain.DeliveryAssignment) error {
	_, err := r.tx.Exec(ctx, `
        INSERT INTO delivery_assignments
            (id, session_id, task_id, courier_id, parcel_id, status, scanned_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7)
    `, a.ID, a.SessionID, a.TaskID, courierID, a.ParcelID, string(a.Status), a.ScannedAt)
	if err != nil {
		return fmt.Errorf("insert assignment for parcel %s: %w", a.ParcelID, err)
	}
	return nil
}

// FindLatestAssignment returns the courier's most recent assignment for a
// parcel (any status) holding a row lock, or (nil, nil) when there is none.
// Callers use the status to tell "already terminal" apart from "absent".
func (r *SessionTx) FindLatestAssignment(ctx context.Context, courierID int64, parcelID uuid.UUID) (*domain.DeliveryAssignment, error) {
	row := r.tx.QueryRow(ctx, `
        SELECT id, session_id, task_id, parcel_id, status,
               distance_meters, duration_seconds, waypoints, fail_reason, scanned_at
        FROM delivery_assignments
        WHERE courier_id = $1 AND parcel_id = $2
        ORDER BY scanned_at DESC, id DESC
        LIMIT 1
        FOR UPDATE
    `, courierID, parcelID)

	a, err := scanAssignment(row)
	if err != nil {
		if IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("find latest assignment courier=%d parcel=%s: %w", courierID, parcelID, err)
	}
	return a, nil
}

// FindPendingBySession returns all still-PENDING assignments of a session,
// locked, ordered by creation.
func (r *SessionTx) FindPendingBySession(ctx context.Context, sessionID uuid.UUID) ([]domain.DeliveryAssignment, error) {
	rows, err := r.tx.Query(ctx, `
        SELECT id, session_id, task_id, parcel_id, status,
               distance_meters, duration_seconds, waypoints, fail_reason, scanned_at
        FROM delivery_assignments
        WHERE session_id = $1 AND status = 'PENDING'
        ORDER BY scanned_at, id
        FOR UPDATE
    `, sessionID)
	if err != nil {
		return nil, fmt.Errorf("find pending assignments for session %s: %w", sessionID, err)
	}
	defer rows.Close()

	var out []domain.DeliveryAssignment
	for rows.Next() {
		a, err := scanAssignment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan assignment: %w", err)
		}
		out = append(out, *a)
	}
	return out, rows.Err()
}

// TerminateAssignment moves a PENDING assignment into a terminal status.
// The WHERE guard on status makes the terminal transition happen at most
// once even under concurrent terminations; zero affected rows means the
// assignment was already terminal (or absent).
func (r *SessionTx) TerminateAssignment(ctx context.Context, id uuid.UUID, status domain.AssignmentStatus, route domain.RouteInfo, failReason string) (bool, error) {
	waypoints, err := json.Marshal(route.Waypoints)
	if err != nil {
		return false, fmt.Errorf("marshal waypoints: %w", err)
	}

	ct, err := r.tx.Exec(ctx, `
        UPDATE delivery_assignments
        SET status = $2,
            distance_meters = $3,
            duration_seconds = $4,
            waypoints = $5,
            fail_reason = NULLIF($6, '')
        WHERE id = $1 AND status = 'PENDING'
    `, id, string(status), route.DistanceMeters, route.DurationSeconds, waypoints, failReason)
	if err != nil {
		return false, fmt.Errorf("terminate assignment %s: %w", id, err)
	}
	return ct.RowsAffected() == 1, nil
}

func scanAssignment(row pgx.Row) (*domain.DeliveryAssignment, error) {
	var (
		a          domain.DeliveryAssignment
		waypoints  []byte
		failReason *string
	)
	err := row.Scan(&a.ID, &a.SessionID, &a.TaskID, &a.ParcelID, &a.Status,
		&a.Route.DistanceMeters, &a.Route.DurationSeconds, &waypoints, &failReason, &a.ScannedAt)
	if err != nil {
		return nil, err
	}
	if len(waypoints) > 0 {
		if err := json.Unmarshal(waypoints, &a.Route.Waypoints); err != nil {
			return nil, fmt.Errorf("unmarshal waypoints: %w", err)
		}
	}
	if failReason != nil {
		a.FailReason = *failReason
	}
	return &a, nil
}

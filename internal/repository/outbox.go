package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// OutboxEvent is a pending message persisted in the same transaction as
// the business write that produced it. The relay publishes pending rows
// to Kafka and marks them processed.
type OutboxEvent struct {
	ID        uuid.UUID
	Topic     string
	Key       string
	Payload   []byte
	Attempts  int
	CreatedAt time.Time
}

// EnqueueOutbox stores a message in the outbox inside the current
// transaction, so the business mutation and the emission record commit or
// roll back together.
func (r *SessionTx) EnqueueOutbox(ctx context.Context, topic, key string, payload []byte) error {
	_, err := r.tx.Exec(ctx, `
        INSERT INTO outbox_events (id, topic, key, payload, status, attempts, created_at)
        VALUES ($1, $2, $3, $4, 'pending', 0, now())
    `, uuid.New(), topic, key, payload)
	if err != nil {
		return fmt.Errorf("enqueue outbox event (topic %s): %w", topic, err)
	}
	return nil
}

// OutboxRepo reads and settles outbox rows for the relay.
type OutboxRepo struct {
	db *pgxpool.Pool
}

// NewOutboxRepo creates a new OutboxRepo.
func NewOutboxRepo(db *pgxpool.Pool) *OutboxRepo {
	return &OutboxRepo{db: db}
}

// FetchPending returns up to limit pending events, oldest first. Rows are
// not locked: a second relay instance would not only publish duplicates
// (which the at-least-once channel tolerates) but could interleave sends
// for the same key out of order, so the relay runs as a single instance
// inside the courier service.
func (r *OutboxRepo) FetchPending(ctx context.Context, limit int) ([]OutboxEvent, error) {
	rows, err := r.db.Query(ctx, `
        SELECT id, topic, key, payload, attempts, created_at
        FROM outbox_events
        WHERE status = 'pending'
        ORDER BY created_at, id
        LIMIT $1
    `, limit)
	if err != nil {
		return nil, fmt.Errorf("fetch pending outbox events: %w", err)
	}
	defer rows.Close()

	var out []OutboxEvent
	for rows.Next() {
		var e OutboxEvent
		if err := rows.Scan(&e.ID, &e.Topic, &e.Key, &e.Payload, &e.Attempts, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan outbox event: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// MarkProcessed settles a published event.
func (r *OutboxRepo) MarkProcessed(ctx context.Context, id uuid.UUID) error {
	_, err := r.db.Exec(ctx, `
        UPDATE outbox_events
        SET status = 'processed', processed_at = now()
        WHERE id = $1
    `, id)
	if err != nil {
		return fmt.Errorf("mark outbox event %s processed: %w", id, err)
	}
	return nil
}

// MarkFailure records a publish failure. Once attempts reaches maxAttempts
// the row flips to 'failed' and leaves the relay loop; failed rows are an
// alerting signal, never silently dropped.
func (r *OutboxRepo) MarkFailure(ctx context.Context, id uuid.UUID, cause string, maxAttempts int) error {
	_, err := r.db.Exec(ctx, `
        UPDATE outbox_events
        SET attempts = attempts + 1,
            last_error = $2,
            status = CASE WHEN attempts + 1 >= $3 THEN 'failed' ELSE 'pending' END
        WHERE id = $1
    `, id, cause, maxAttempts)
	if err != nil {
		return fmt.Errorf("mark outbox event %s failure: %w", id, err)
	}
	return nil
}

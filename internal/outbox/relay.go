// Package outbox drains the transactional outbox: rows written alongside
// business mutations are published to Kafka by a background relay, so an
// emission survives crashes between the database commit and the send.
package outbox

import (
	"context"
	"time"

	"github.com/google/uuid"

	"parcelflow/internal/config"
	"parcelflow/internal/logx"
	"parcelflow/internal/repository"
)

type counter interface {
	Inc()
}

// Store reads and settles outbox rows.
type Store interface {
	FetchPending(ctx context.Context, limit int) ([]repository.OutboxEvent, error)
	MarkProcessed(ctx context.Context, id uuid.UUID) error
	MarkFailure(ctx context.Context, id uuid.UUID, cause string, maxAttempts int) error
}

// Publisher sends one message to a topic.
type Publisher interface {
	Publish(ctx context.Context, topic, key string, value []byte) error
}

// Relay polls the outbox and publishes pending events in order. Publishing
// is at-least-once: a crash after the send but before MarkProcessed means
// the event goes out again on the next pass.
type Relay struct {
	store     Store
	pub       Publisher
	logger    logx.Logger
	interval  time.Duration
	batchSize int
	maxTries  int
	published counter
	failed    counter
}

// RelayDeps carries the relay's collaborators.
type RelayDeps struct {
	Store     Store
	Publisher Publisher
	Published counter
	Failed    counter
}

// NewRelay creates a relay. Returns nil when there is no publisher, which
// happens when Kafka is not configured; a nil Relay runs as a no-op.
func NewRelay(logger logx.Logger, cfg config.Outbox, deps RelayDeps) *Relay {
	if deps.Publisher == nil {
		return nil
	}
	if logger == nil {
		logger = logx.Nop()
	}
	interval := cfg.PollInterval
	if interval <= 0 {
		interval = time.Second
	}
	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = 100
	}
	maxTries := cfg.MaxAttempts
	if maxTries <= 0 {
		maxTries = 1
	}
	return &Relay{
		store:     deps.Store,
		pub:       deps.Publisher,
		logger:    logger,
		interval:  interval,
		batchSize: batchSize,
		maxTries:  maxTries,
		published: deps.Published,
		failed:    deps.Failed,
	}
}

// Run polls until ctx is cancelled. An empty or failed pass waits for the
// next tick; a full batch is followed immediately by another pass so a
// backlog drains faster than one batch per interval.
func (r *Relay) Run(ctx context.Context) error {
	if r == nil {
		<-ctx.Done()
		return ctx.Err()
	}

	r.logger.Info("outbox relay started",
		logx.Duration("interval", r.interval),
		logx.Int("batch_size", r.batchSize),
	)

	t := time.NewTicker(r.interval)
	defer t.Stop()

	for {
		n, err := r.pass(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			r.logger.Error("outbox pass failed", logx.Any("err", err))
		}
		if n == r.batchSize {
			continue
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
		}
	}
}

type partitionKey struct {
	topic string
	key   string
}

// pass publishes one batch and returns how many rows it picked up. After a
// publish fails, later rows sharing its topic and key are held back until
// the failed row goes out, so events for one parcel never leave out of
// send order.
func (r *Relay) pass(ctx context.Context) (int, error) {
	events, err := r.store.FetchPending(ctx, r.batchSize)
	if err != nil {
		return 0, err
	}

	held := make(map[partitionKey]struct{})

	for _, e := range events {
		if ctx.Err() != nil {
			return len(events), ctx.Err()
		}
		pk := partitionKey{topic: e.Topic, key: e.Key}
		if _, ok := held[pk]; ok {
			continue
		}
		if err := r.pub.Publish(ctx, e.Topic, e.Key, e.Payload); err != nil {
			held[pk] = struct{}{}
			r.logger.Warn("outbox publish failed",
				logx.String("event_id", e.ID.String()),
				logx.String("topic", e.Topic),
				logx.Int("attempts", e.Attempts+1),
				logx.Any("err", err),
			)
			if r.failed != nil {
				r.failed.Inc()
			}
			if err := r.store.MarkFailure(ctx, e.ID, err.Error(), r.maxTries); err != nil {
				return len(events), err
			}
			continue
		}
		if err := r.store.MarkProcessed(ctx, e.ID); err != nil {
			return len(events), err
		}
		if r.published != nil {
			r.published.Inc()
		}
	}
	return len(events), nil
}

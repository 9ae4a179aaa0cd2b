package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/IBM/sarama"

	"parcelflow/internal/domain"
	"parcelflow/internal/logx"
)

// HandleFunc processes a single state-change request. A returned
// PermanentError sends the message to the dead-letter topic; any other
// error leaves it unacknowledged so the transport redelivers it.
type HandleFunc func(context.Context, domain.StateChangeRequest) error

// DeadLetterFunc publishes an unprocessable message to the dead-letter topic.
type DeadLetterFunc func(ctx context.Context, key string, value []byte, cause string) error

// injection point so tests don't need a broker
var newConsumerGroup = sarama.NewConsumerGroup

// Consumer wraps a Sarama consumer group and dispatches state-change
// requests to a handler. Sarama runs one ConsumeClaim goroutine per
// claimed partition: processing is strictly sequential within a partition
// (per-parcel order) and parallel across partitions.
type Consumer struct {
	group        sarama.ConsumerGroup
	topic        string
	handler      HandleFunc
	deadLetter   DeadLetterFunc
	logger       logx.Logger
	consumed     counter
	deadLettered counter
}

// ConsumerDeps carries the consumer's collaborators.
type ConsumerDeps struct {
	Handler      HandleFunc
	DeadLetter   DeadLetterFunc
	Consumed     counter
	DeadLettered counter
}

// NewConsumer creates a new Kafka consumer. Returns (nil, nil) when the
// channel is not configured; a nil Consumer is a no-op.
func NewConsumer(logger logx.Logger, brokers []string, groupID, topic string, deps ConsumerDeps) (*Consumer, error) {
	if len(brokers) == 0 || strings.TrimSpace(topic) == "" || strings.TrimSpace(groupID) == "" {
		return nil, nil
	}
	if logger == nil {
		logger = logx.Nop()
	}

	cfg := sarama.NewConfig()
	cfg.Consumer.Offsets.Initial = sarama.OffsetOldest

	group, err := newConsumerGroup(brokers, groupID, cfg)
	if err != nil {
		return nil, err
	}

	return &Consumer{
		group:        group,
		topic:        topic,
		handler:      deps.Handler,
		deadLetter:   deps.DeadLetter,
		logger:       logger,
		consumed:     deps.Consumed,
		deadLettered: deps.DeadLettered,
	}, nil
}

// Run starts the consumer until ctx is canceled.
func (c *Consumer) Run(ctx context.Context) error {
	if c == nil {
		return nil
	}

	h := &groupHandler{c: c}

	for {
		if err := c.group.Consume(ctx, []string{c.topic}, h); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			c.logger.Error("kafka consume error", logx.Any("err", err))
			time.Sleep(time.Second)
			continue
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
}

func (c *Consumer) Close() error {
	if c == nil {
		return nil
	}
	return c.group.Close()
}

type groupHandler struct{ c *Consumer }

func (h *groupHandler) Setup(sarama.ConsumerGroupSession) error {
	return nil
}

func (h *groupHandler) Cleanup(sarama.ConsumerGroupSession) error {
	return nil
}

// ConsumeClaim applies messages one by one; MarkMessage only happens
// after the handler succeeded or the message was routed to the
// dead-letter topic. Transient handler errors abort the claim without
// marking, so the same offset is delivered again.
func (h *groupHandler) ConsumeClaim(sess sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for msg := range claim.Messages() {
		if h.c.consumed != nil {
			h.c.consumed.Inc()
		}

		var dto EventDTO
		if err := json.Unmarshal(msg.Value, &dto); err != nil {
			if err := h.reject(sess, msg, "bad json: "+err.Error()); err != nil {
				return err
			}
			continue
		}

		req, err := ToDomain(dto)
		if err != nil {
			if err := h.reject(sess, msg, err.Error()); err != nil {
				return err
			}
			continue
		}

		if err := h.c.handler(sess.Context(), req); err != nil {
			var perm PermanentError
			if errors.As(err, &perm) {
				if err := h.reject(sess, msg, perm.Error()); err != nil {
					return err
				}
				continue
			}
			h.c.logger.Warn("event handling failed, will redeliver",
				logx.String("event_id", dto.EventID),
				logx.String("parcel_id", dto.ParcelID),
				logx.String("event_type", dto.EventType),
				logx.Any("err", err),
			)
			return err
		}

		sess.MarkMessage(msg, "")
	}
	return nil
}

// reject routes an unprocessable message to the dead-letter topic and
// acknowledges it: redelivering a permanently failing event can never
// succeed, but it must not vanish silently either. A dead-letter publish
// failure aborts the claim so the offset stays unmarked. With no
// dead-letter sink configured the message is still acknowledged and its
// payload survives only in the log and the counter.
func (h *groupHandler) reject(sess sarama.ConsumerGroupSession, msg *sarama.ConsumerMessage, cause string) error {
	h.c.logger.Error("event dead-lettered",
		logx.String("topic", msg.Topic),
		logx.Int64("offset", msg.Offset),
		logx.String("cause", cause),
	)
	if h.c.deadLettered != nil {
		h.c.deadLettered.Inc()
	}
	if h.c.deadLetter != nil {
		if err := h.c.deadLetter(sess.Context(), string(msg.Key), msg.Value, cause); err != nil {
			h.c.logger.Error("dead-letter publish failed", logx.Any("err", err))
			return err
		}
	}
	sess.MarkMessage(msg, "")
	return nil
}

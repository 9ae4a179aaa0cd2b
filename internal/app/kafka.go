package app

import (
	"context"
	"errors"

	"parcelflow/internal/apperr"
	"parcelflow/internal/config"
	"parcelflow/internal/domain"
	"parcelflow/internal/logx"
	"parcelflow/internal/metrics"
	"parcelflow/internal/service/parcels"
	"parcelflow/internal/transport/kafka"
)

// newStateHandler adapts the parcel state engine to the channel. Domain
// rejections can never succeed on redelivery, so they are permanent and
// end up in the dead-letter topic; anything else is transient.
func newStateHandler(svc *parcels.Service) kafka.HandleFunc {
	return func(ctx context.Context, req domain.StateChangeRequest) error {
		_, err := svc.ApplyEvent(ctx, req)
		switch {
		case err == nil:
			return nil
		case errors.Is(err, apperr.ErrIllegalTransition),
			errors.Is(err, apperr.ErrNotFound),
			errors.Is(err, apperr.ErrInvalid):
			return kafka.Permanent(err)
		default:
			return err
		}
	}
}

// newDeadLetter builds the dead-letter sink. Without it the consumer still
// acknowledges permanently failing events, but their payloads survive only
// in the log, so running a consuming binary this way is worth a warning.
func newDeadLetter(logger logx.Logger, producer *kafka.Producer, cfg *config.Config) kafka.DeadLetterFunc {
	if producer == nil || cfg.Kafka.DeadLetterTopic == "" {
		if cfg.Kafka.Enabled() {
			logger.Warn("no dead-letter sink, unprocessable event payloads are kept only in the log",
				logx.String("hint", "set KAFKA_DLQ_TOPIC"),
			)
		}
		return nil
	}
	return func(ctx context.Context, key string, payload []byte, _ string) error {
		return producer.Publish(ctx, cfg.Kafka.DeadLetterTopic, key, payload)
	}
}

func newConsumer(logger logx.Logger, cfg *config.Config, handler kafka.HandleFunc, deadLetter kafka.DeadLetterFunc) (*kafka.Consumer, error) {
	consumed := metrics.NewEventsConsumedTotal()
	deadLettered := metrics.NewEventsDeadLetteredTotal()
	registerCollector(consumed, deadLettered)

	return kafka.NewConsumer(logger, cfg.Kafka.Brokers, cfg.Kafka.GroupID, cfg.Kafka.StateTopic, kafka.ConsumerDeps{
		Handler:      handler,
		DeadLetter:   deadLetter,
		Consumed:     consumed,
		DeadLettered: deadLettered,
	})
}

package kafka

import (
	"context"
	"strings"
	"time"

	"github.com/IBM/sarama"

	"parcelflow/internal/config"
	"parcelflow/internal/logx"
)

type counter interface {
	Inc()
}

// injection point so tests don't need a broker
var newSyncProducer = sarama.NewSyncProducer

// Producer publishes messages keyed by parcel id, so the channel keeps
// per-parcel order. Sends are synchronous and bounded: transport errors
// are retried with backoff up to MaxSendRetries, then surfaced to the
// caller, never retried indefinitely.
type Producer struct {
	sp         sarama.SyncProducer
	logger     logx.Logger
	retries    counter
	maxRetries int
	baseDelay  time.Duration
}

// NewProducer creates a Kafka producer. Returns (nil, nil) when no brokers
// are configured; a nil Producer rejects every publish.
func NewProducer(logger logx.Logger, cfg config.Kafka, retries counter) (*Producer, error) {
	if !cfg.Enabled() {
		return nil, nil
	}

	sc := sarama.NewConfig()
	sc.Producer.RequiredAcks = sarama.WaitForAll
	sc.Producer.Return.Successes = true
	sc.Producer.Idempotent = true
	sc.Net.MaxOpenRequests = 1
	sc.Producer.Timeout = cfg.SendTimeout
	sc.Version = sarama.V2_6_0_0

	sp, err := newSyncProducer(cfg.Brokers, sc)
	if err != nil {
		return nil, err
	}
	return newProducerWithSync(sp, logger, cfg, retries), nil
}

func newProducerWithSync(sp sarama.SyncProducer, logger logx.Logger, cfg config.Kafka, retries counter) *Producer {
	if logger == nil {
		logger = logx.Nop()
	}
	maxRetries := cfg.MaxSendRetries
	if maxRetries <= 0 {
		maxRetries = 1
	}
	return &Producer{
		sp:         sp,
		logger:     logger,
		retries:    retries,
		maxRetries: maxRetries,
		baseDelay:  100 * time.Millisecond,
	}
}

// Publish sends one message and waits for the broker acknowledgment.
func (p *Producer) Publish(ctx context.Context, topic, key string, value []byte) error {
	if p == nil {
		return sarama.ErrClosedClient
	}
	if strings.TrimSpace(topic) == "" {
		return sarama.ErrInvalidTopic
	}

	msg := &sarama.ProducerMessage{
		Topic: topic,
		Key:   sarama.StringEncoder(key),
		Value: sarama.ByteEncoder(value),
	}

	var lastErr error
	for attempt := 1; attempt <= p.maxRetries; attempt++ {
		if _, _, err := p.sp.SendMessage(msg); err == nil {
			return nil
		} else {
			lastErr = err
		}

		if ctx.Err() != nil || attempt == p.maxRetries {
			break
		}
		if p.retries != nil {
			p.retries.Inc()
		}

		delay := p.baseDelay << (attempt - 1)
		p.logger.Warn("kafka publish retry",
			logx.String("topic", topic),
			logx.String("key", key),
			logx.Int("attempt", attempt),
			logx.Duration("delay", delay),
			logx.Any("err", lastErr),
		)
		if !sleepWithContext(ctx, delay) {
			break
		}
	}
	return lastErr
}

// Close releases the underlying sarama producer.
func (p *Producer) Close() error {
	if p == nil {
		return nil
	}
	return p.sp.Close()
}

func sleepWithContext(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

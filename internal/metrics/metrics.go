package metrics

import "github.com/prometheus/client_golang/prometheus"

// NewRateLimitExceededTotal returns a Prometheus counter for the number of rejected HTTP requests due to rate limiting
func NewRateLimitExceededTotal() prometheus.Counter {
	return prometheus.NewCounter(prometheus.CounterOpts{
		Name: "rate_limit_exceeded_total",
		Help: "Total number of rejected HTTP requests due to rate limiting",
	})
}

// NewEventsConsumedTotal returns a counter for state-change requests read from the channel
func NewEventsConsumedTotal() prometheus.Counter {
	return prometheus.NewCounter(prometheus.CounterOpts{
		Name: "parcel_events_consumed_total",
		Help: "Total number of state-change requests read from the synchronization channel",
	})
}

// NewEventsDeadLetteredTotal returns a counter for permanently failed events.
// A non-zero value is the primary alerting signal for the channel.
func NewEventsDeadLetteredTotal() prometheus.Counter {
	return prometheus.NewCounter(prometheus.CounterOpts{
		Name: "parcel_events_dead_lettered_total",
		Help: "Total number of state-change requests routed to the dead-letter topic",
	})
}

// NewProducerRetriesTotal returns a counter for Kafka publish retries
func NewProducerRetriesTotal() prometheus.Counter {
	return prometheus.NewCounter(prometheus.CounterOpts{
		Name: "kafka_producer_retries_total",
		Help: "Total number of retried Kafka publish attempts",
	})
}

// NewOutboxPublishedTotal returns a counter for outbox events published to Kafka
func NewOutboxPublishedTotal() prometheus.Counter {
	return prometheus.NewCounter(prometheus.CounterOpts{
		Name: "outbox_published_total",
		Help: "Total number of outbox events published to Kafka",
	})
}

// NewOutboxFailedTotal returns a counter for outbox events that exhausted their attempts
func NewOutboxFailedTotal() prometheus.Counter {
	return prometheus.NewCounter(prometheus.CounterOpts{
		Name: "outbox_failed_total",
		Help: "Total number of outbox events marked failed after exhausting publish attempts",
	})
}

package config

import "time"

const defaultPort = 8080

var defaultDB = DB{
	Host: "127.0.0.1",
	Port: "5432",
	User: "myuser",
	Pass: "mypassword",
	Name: "parcelflow",
}

var defaultKafka = Kafka{
	Brokers:         nil,
	GroupID:         "parcel-worker",
	StateTopic:      "parcel-state-requests",
	DeadLetterTopic: "parcel-state-requests-dlq",
	NotifyTopic:     "courier-lifecycle",
	SendTimeout:     5 * time.Second,
	MaxSendRetries:  4,
}

var defaultOutbox = Outbox{
	PollInterval: 500 * time.Millisecond,
	BatchSize:    50,
	MaxAttempts:  8,
}

var defaultRateLimit = RateLimit{
	Enabled:    false,
	Rate:       50,
	Burst:      100,
	TTL:        10 * time.Minute,
	MaxBuckets: 10000,
}

// DefaultPort returns the default port.
func DefaultPort() int {
	return defaultPort
}

// DefaultDB returns the default database settings.
func DefaultDB() DB {
	return defaultDB
}

// DefaultKafka returns the default synchronization channel settings.
func DefaultKafka() Kafka {
	return defaultKafka
}

// DefaultOutbox returns the default outbox relay settings.
func DefaultOutbox() Outbox {
	return defaultOutbox
}

// DefaultRateLimit returns the default rate limiter settings.
func DefaultRateLimit() RateLimit {
	return defaultRateLimit
}

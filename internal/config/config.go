package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
)

// DB stores Postgres connection settings.
type DB struct {
	Host string
	Port string
	User string
	Pass string
	Name string
}

// DSN builds a pgx connection string.
func (d DB) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable",
		d.User, d.Pass, d.Host, d.Port, d.Name)
}

// Kafka stores synchronization channel settings.
type Kafka struct {
	Brokers         []string
	GroupID         string
	StateTopic      string
	DeadLetterTopic string
	NotifyTopic     string
	SendTimeout     time.Duration
	MaxSendRetries  int
}

// Enabled reports whether Kafka is configured at all. Binaries that can
// run without a broker (local development) treat a missing broker list as
// "channel disabled" rather than a startup error.
func (k Kafka) Enabled() bool {
	return len(k.Brokers) > 0
}

// Outbox stores outbox relay settings.
type Outbox struct {
	PollInterval time.Duration
	BatchSize    int
	MaxAttempts  int
}

// RateLimit stores the courier API rate limiter settings.
type RateLimit struct {
	Enabled    bool
	Rate       float64
	Burst      int
	TTL        time.Duration
	MaxBuckets int
}

// Pprof stores the debug server settings. An empty Addr disables it.
type Pprof struct {
	Addr string
	User string
	Pass string
}

// Config stores service settings shared by all binaries.
type Config struct {
	Port      int
	DB        DB
	Kafka     Kafka
	Outbox    Outbox
	RateLimit RateLimit
	Pprof     Pprof
}

// Load reads configuration in order: .env (if present) → environment → flags.
func Load() (*Config, error) {
	if err := godotenv.Load(".env"); err != nil {
		log.Printf("warning: .env not loaded: %v", err)
	}

	cfg := &Config{
		Port:      envInt("PORT", DefaultPort()),
		DB:        loadDB(),
		Kafka:     loadKafka(),
		Outbox:    loadOutbox(),
		RateLimit: loadRateLimit(),
		Pprof: Pprof{
			Addr: envStr("PPROF_ADDR", ""),
			User: envStr("PPROF_USER", ""),
			Pass: envStr("PPROF_PASS", ""),
		},
	}

	pflag.IntVarP(&cfg.Port, "port", "p", cfg.Port, "port to listen on")
	pflag.Parse()

	if cfg.Port <= 0 || cfg.Port > 65535 {
		return nil, fmt.Errorf("invalid port: %d", cfg.Port)
	}
	if cfg.Outbox.BatchSize <= 0 {
		return nil, fmt.Errorf("invalid outbox batch size: %d", cfg.Outbox.BatchSize)
	}
	return cfg, nil
}

func loadDB() DB {
	db := DefaultDB()
	db.Host = envStr("DB_HOST", db.Host)
	db.Port = envStr("DB_PORT", db.Port)
	db.User = envStr("DB_USER", db.User)
	db.Pass = envStr("DB_PASS", db.Pass)
	db.Name = envStr("DB_NAME", db.Name)
	return db
}

func loadKafka() Kafka {
	k := DefaultKafka()
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		k.Brokers = splitCSV(v)
	}
	k.GroupID = envStr("KAFKA_GROUP_ID", k.GroupID)
	k.StateTopic = envStr("KAFKA_STATE_TOPIC", k.StateTopic)
	k.DeadLetterTopic = envStr("KAFKA_DLQ_TOPIC", k.DeadLetterTopic)
	k.NotifyTopic = envStr("KAFKA_NOTIFY_TOPIC", k.NotifyTopic)
	k.SendTimeout = envDuration("KAFKA_SEND_TIMEOUT", k.SendTimeout)
	k.MaxSendRetries = envInt("KAFKA_SEND_RETRIES", k.MaxSendRetries)
	return k
}

func loadOutbox() Outbox {
	o := DefaultOutbox()
	o.PollInterval = envDuration("OUTBOX_POLL_INTERVAL", o.PollInterval)
	o.BatchSize = envInt("OUTBOX_BATCH_SIZE", o.BatchSize)
	o.MaxAttempts = envInt("OUTBOX_MAX_ATTEMPTS", o.MaxAttempts)
	return o
}

func loadRateLimit() RateLimit {
	rl := DefaultRateLimit()
	if v := os.Getenv("RATE_LIMIT_ENABLED"); v != "" {
		rl.Enabled = v == "1" || strings.EqualFold(v, "true")
	}
	rl.Burst = envInt("RATE_LIMIT_BURST", rl.Burst)
	if v := os.Getenv("RATE_LIMIT_RATE"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f > 0 {
			rl.Rate = f
		}
	}
	return rl
}

func envStr(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			return d
		}
	}
	return fallback
}

func splitCSV(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

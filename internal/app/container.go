// Package app wires the three binaries: the parcel API, the courier API
// with its outbox relay, and the state-change worker. Each binary builds
// its own dig container from a shared core.
package app

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/dig"

	"parcelflow/internal/config"
	"parcelflow/internal/http/handlers"
	"parcelflow/internal/http/middleware/ratelimit"
	"parcelflow/internal/http/pprofserver"
	"parcelflow/internal/http/router"
	"parcelflow/internal/logx"
	"parcelflow/internal/metrics"
	"parcelflow/internal/outbox"
	"parcelflow/internal/repository"
	"parcelflow/internal/service/parcels"
	"parcelflow/internal/service/sessions"
	"parcelflow/internal/transport/kafka"
)

const dbOperationTimeout = 3 * time.Second

// ContainerBuilder is a dig container builder.
type ContainerBuilder struct {
	dbConnect func(context.Context, string, int, time.Duration) (*pgxpool.Pool, error)
	logFatalf func(string, ...interface{})
}

// NewContainerBuilder returns a new dig container builder
func NewContainerBuilder() *ContainerBuilder {
	return &ContainerBuilder{
		dbConnect: connectDbWithRetry,
		logFatalf: log.Fatalf,
	}
}

// WithDBConnect sets the database connection function
func (b *ContainerBuilder) WithDBConnect(
	fn func(context.Context, string, int, time.Duration) (*pgxpool.Pool, error),
) *ContainerBuilder {
	if fn != nil {
		b.dbConnect = fn
	}
	return b
}

// WithLogFatalf sets the log.Fatalf function
func (b *ContainerBuilder) WithLogFatalf(fn func(string, ...interface{})) *ContainerBuilder {
	if fn != nil {
		b.logFatalf = fn
	}
	return b
}

// MustBuildParcelAPI builds the container for the parcel service binary.
func (b *ContainerBuilder) MustBuildParcelAPI(ctx context.Context) *dig.Container {
	return b.mustBuild(ctx, registerParcelAPI)
}

// MustBuildCourierAPI builds the container for the courier service binary,
// including the outbox relay.
func (b *ContainerBuilder) MustBuildCourierAPI(ctx context.Context) *dig.Container {
	return b.mustBuild(ctx, registerCourierAPI)
}

// MustBuildWorker builds the container for the state-change worker binary.
func (b *ContainerBuilder) MustBuildWorker(ctx context.Context) *dig.Container {
	return b.mustBuild(ctx, registerWorker)
}

func (b *ContainerBuilder) mustBuild(ctx context.Context, role func(*dig.Container) error) *dig.Container {
	container, err := b.build(ctx, role)
	if err != nil {
		b.logFatalf("failed to build container: %v", err)
	}
	return container
}

func (b *ContainerBuilder) build(ctx context.Context, role func(*dig.Container) error) (*dig.Container, error) {
	container := dig.New()

	if err := registerCore(container, ctx); err != nil {
		return nil, fmt.Errorf("core: %w", err)
	}
	if err := registerDb(container, b.dbConnect); err != nil {
		return nil, fmt.Errorf("DB: %w", err)
	}
	if err := role(container); err != nil {
		return nil, fmt.Errorf("role: %w", err)
	}
	return container, nil
}

func provideAll(container *dig.Container, providers ...any) error {
	for _, provider := range providers {
		if err := container.Provide(provider); err != nil {
			return fmt.Errorf("provide %T: %w", provider, err)
		}
	}
	return nil
}

func registerCore(container *dig.Container, ctx context.Context) error {
	return provideAll(container,
		func() context.Context { return ctx },
		NewLogger,
		config.Load,
	)
}

func registerDb(
	container *dig.Container,
	dbConnect func(context.Context, string, int, time.Duration) (*pgxpool.Pool, error),
) error {
	providerDB := func(ctx context.Context, cfg *config.Config) (*pgxpool.Pool, error) {
		return dbConnect(ctx, cfg.DB.DSN(), 10, time.Second)
	}
	return provideAll(container, providerDB)
}

func registerParcelAPI(container *dig.Container) error {
	if err := provideAll(container,
		repository.NewParcelRepo,
		func(repo *repository.ParcelRepo, logger logx.Logger) *parcels.Service {
			return parcels.NewServiceWithRepo(repo, dbOperationTimeout, logger)
		},
		handlers.New,
		handlers.NewParcelUsecase,
		handlers.NewParcelHandler,
		router.NewParcel,
	); err != nil {
		return err
	}
	return registerHTTPServers(container)
}

func registerCourierAPI(container *dig.Container) error {
	if err := provideAll(container,
		repository.NewSessionRepo,
		func(repo *repository.SessionRepo, cfg *config.Config, logger logx.Logger) *sessions.Service {
			return sessions.NewServiceWithRepo(repo, cfg.Kafka, dbOperationTimeout, logger)
		},
		handlers.New,
		handlers.NewSessionUsecase,
		handlers.NewSessionHandler,
		newRateLimitClock,
		newRateLimiter,
		newRateLimitCounter,
		newRateLimitMiddleware,
		func(logger logx.Logger, h *handlers.Handlers, session *handlers.SessionHandler, rl *ratelimit.Middleware) http.Handler {
			return router.NewCourier(logger, h, session, rl.Handler())
		},
		repository.NewOutboxRepo,
		newProducer,
		newRelay,
	); err != nil {
		return err
	}
	return registerHTTPServers(container)
}

func registerWorker(container *dig.Container) error {
	return provideAll(container,
		repository.NewParcelRepo,
		func(repo *repository.ParcelRepo, logger logx.Logger) *parcels.Service {
			return parcels.NewServiceWithRepo(repo, dbOperationTimeout, logger)
		},
		newProducer,
		newStateHandler,
		newDeadLetter,
		newConsumer,
	)
}

type httpServersOut struct {
	dig.Out

	Server *http.Server
	Pprof  *http.Server `name:"pprof_server"`
}

func registerHTTPServers(container *dig.Container) error {
	serverProvider := func(cfg *config.Config, mux http.Handler) httpServersOut {
		out := httpServersOut{
			Server: &http.Server{
				Addr:              fmt.Sprintf(":%d", cfg.Port),
				Handler:           mux,
				ReadHeaderTimeout: 5 * time.Second,
				ReadTimeout:       15 * time.Second,
				WriteTimeout:      15 * time.Second,
				IdleTimeout:       60 * time.Second,
			},
		}
		if cfg.Pprof.Addr != "" {
			out.Pprof = &http.Server{
				Addr:              cfg.Pprof.Addr,
				Handler:           pprofserver.Handler(pprofserver.Config{User: cfg.Pprof.User, Pass: cfg.Pprof.Pass}),
				ReadHeaderTimeout: 5 * time.Second,
			}
		}
		return out
	}
	return provideAll(container, serverProvider)
}

func newProducer(logger logx.Logger, cfg *config.Config) (*kafka.Producer, error) {
	retries := metrics.NewProducerRetriesTotal()
	registerCollector(retries)
	return kafka.NewProducer(logger, cfg.Kafka, retries)
}

func newRelay(logger logx.Logger, cfg *config.Config, repo *repository.OutboxRepo, producer *kafka.Producer) *outbox.Relay {
	published := metrics.NewOutboxPublishedTotal()
	failed := metrics.NewOutboxFailedTotal()
	registerCollector(published, failed)

	deps := outbox.RelayDeps{
		Store:     repo,
		Published: published,
		Failed:    failed,
	}
	if producer != nil {
		deps.Publisher = producer
	}
	return outbox.NewRelay(logger, cfg.Outbox, deps)
}

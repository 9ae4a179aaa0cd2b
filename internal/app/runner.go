package app

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/dig"

	"parcelflow/internal/logx"
	"parcelflow/internal/outbox"
	"parcelflow/internal/transport/kafka"
)

// MustRun starts the HTTP server (plus relay and pprof when the container
// provides them) and blocks until shutdown.
func MustRun(container *dig.Container) {
	if err := run(container); err != nil {
		switch {
		case errors.Is(err, context.Canceled):
			log.Println("shutdown requested, exiting")
			return
		case errors.Is(err, context.DeadlineExceeded):
			log.Println("startup aborted: startup timeout exceeded")
			return
		default:
			log.Fatalf("run error: %v", err)
		}
	}
}

type runDeps struct {
	dig.In

	Ctx    context.Context
	Server *http.Server
	Pool   *pgxpool.Pool
	Logger logx.Logger

	Pprof    *http.Server    `name:"pprof_server" optional:"true"`
	Relay    *outbox.Relay   `optional:"true"`
	Producer *kafka.Producer `optional:"true"`
}

func run(container *dig.Container) error {
	return container.Invoke(func(d runDeps) error {
		ctx, cancel := context.WithCancel(d.Ctx)
		defer cancel()

		startServer(d.Server, d.Logger)
		if d.Pprof != nil {
			startPprof(d.Pprof, d.Logger)
		}

		relayDone := startRelay(ctx, d.Relay, d.Logger)

		<-ctx.Done()
		d.Logger.Info("shutting down")

		gracefulShutdown(d.Server, d.Logger, 15*time.Second)
		if d.Pprof != nil {
			gracefulShutdown(d.Pprof, d.Logger, time.Second)
		}
		if relayDone != nil {
			<-relayDone
		}
		closeResources(d, d.Logger)
		return nil
	})
}

func startServer(server *http.Server, logger logx.Logger) {
	go func() {
		logger.Info("http server listening", logx.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen error: %v", err)
		}
	}()
}

func startPprof(server *http.Server, logger logx.Logger) {
	go func() {
		logger.Info("pprof server listening", logx.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("pprof listen error", logx.Any("err", err))
		}
	}()
}

func startRelay(ctx context.Context, relay *outbox.Relay, logger logx.Logger) chan struct{} {
	if relay == nil {
		return nil
	}
	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := relay.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("relay stopped", logx.Any("err", err))
		}
	}()
	return done
}

func gracefulShutdown(srv *http.Server, logger logx.Logger, timeout time.Duration) {
	shCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := srv.Shutdown(shCtx); err != nil {
		logger.Error("graceful shutdown error", logx.Any("err", err))
	}
}

func closeResources(d runDeps, logger logx.Logger) {
	if err := d.Server.Close(); err != nil {
		logger.Error("server close error", logx.Any("err", err))
	}
	if d.Producer != nil {
		if err := d.Producer.Close(); err != nil {
			logger.Error("producer close error", logx.Any("err", err))
		}
	}
	d.Pool.Close()
}

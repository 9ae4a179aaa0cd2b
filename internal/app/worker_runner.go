package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/dig"

	"parcelflow/internal/logx"
	"parcelflow/internal/transport/kafka"
)

// WorkerRunner runs the state-change consumer.
type WorkerRunner struct {
	runFn func(*dig.Container) error
}

// NewWorkerRunner returns a new WorkerRunner
func NewWorkerRunner() *WorkerRunner {
	return &WorkerRunner{runFn: runWorker}
}

// MustRun consumes until the context is cancelled.
func (r *WorkerRunner) MustRun(container *dig.Container) {
	err := r.runFn(container)
	if err == nil || errors.Is(err, context.Canceled) {
		return
	}
	panic(err)
}

func runWorker(container *dig.Container) error {
	return container.Invoke(workerRun)
}

type workerDeps struct {
	dig.In

	Ctx      context.Context
	Pool     *pgxpool.Pool
	Logger   logx.Logger
	Consumer *kafka.Consumer
	Producer *kafka.Producer `optional:"true"`
}

func workerRun(d workerDeps) error {
	if d.Consumer == nil {
		return fmt.Errorf("kafka consumer is nil: worker container misconfigured")
	}
	defer closeWorker(d)

	d.Logger.Info("parcel-worker started")
	return d.Consumer.Run(d.Ctx)
}

func closeWorker(d workerDeps) {
	if err := d.Consumer.Close(); err != nil {
		d.Logger.Error("kafka consumer close error", logx.Any("err", err))
	}
	if d.Producer != nil {
		if err := d.Producer.Close(); err != nil {
			d.Logger.Error("kafka producer close error", logx.Any("err", err))
		}
	}
	if d.Pool != nil {
		d.Pool.Close()
	}
}

package service

import (
	"context"
	"errors"
	"time"

	"vectorsync/internal/application/common/slogger"
	"vectorsync/internal/port/inbound"

	"golang.org/x/sync/errgroup"
)

const workerShutdownTimeout = 30 * time.Second

// WorkerService ties the worker process's long-running components together:
// the queue consumer, the stale job reaper and the cron scheduler.
type WorkerService struct {
	consumer  inbound.Consumer
	reaper    *Reaper
	scheduler *Scheduler
}

// NewWorkerService creates a worker service.
func NewWorkerService(consumer inbound.Consumer, reaper *Reaper, scheduler *Scheduler) (*WorkerService, error) {
	if consumer == nil || reaper == nil || scheduler == nil {
		return nil, errors.New("worker service dependencies cannot be nil")
	}
	return &WorkerService{
		consumer:  consumer,
		reaper:    reaper,
		scheduler: scheduler,
	}, nil
}

// Run starts all components and blocks until the context is cancelled, then
// shuts them down in reverse order.
func (w *WorkerService) Run(ctx context.Context) error {
	// Start calls only spawn the component loops; those loops select on the
	// context they were started with, so it must be the caller's context,
	// which stays live until shutdown.
	var g errgroup.Group

	g.Go(func() error { return w.consumer.Start(ctx) })
	g.Go(func() error { return w.reaper.Start(ctx) })
	g.Go(func() error { return w.scheduler.Start(ctx) })

	if err := g.Wait(); err != nil {
		w.shutdown()
		return err
	}

	slogger.Info(ctx, "Worker started", nil)

	<-ctx.Done()
	slogger.InfoNoCtx("Worker shutting down", nil)

	w.shutdown()
	return nil
}

func (w *WorkerService) shutdown() {
	stopCtx, cancel := context.WithTimeout(context.Background(), workerShutdownTimeout)
	defer cancel()

	if err := w.scheduler.Stop(stopCtx); err != nil {
		slogger.ErrorNoCtx("Scheduler shutdown failed", slogger.Field("error", err.Error()))
	}
	if err := w.reaper.Stop(stopCtx); err != nil {
		slogger.ErrorNoCtx("Reaper shutdown failed", slogger.Field("error", err.Error()))
	}
	if err := w.consumer.Stop(stopCtx); err != nil {
		slogger.ErrorNoCtx("Consumer shutdown failed", slogger.Field("error", err.Error()))
	}
}

package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"vectorsync/internal/application/common/slogger"
	"vectorsync/internal/domain/entity"
	"vectorsync/internal/domain/valueobject"
	"vectorsync/internal/port/outbound"
)

// ReaperConfig tunes the stale-job sweep and terminal-job cleanup.
type ReaperConfig struct {
	StaleTimeout    time.Duration
	ReapInterval    time.Duration
	RetentionPeriod time.Duration
	CleanupInterval time.Duration
}

// Validate checks the reaper configuration.
func (c ReaperConfig) Validate() error {
	if c.StaleTimeout <= 0 {
		return errors.New("stale timeout must be positive")
	}
	if c.ReapInterval <= 0 {
		return errors.New("reap interval must be positive")
	}
	if c.RetentionPeriod <= 0 {
		return errors.New("retention period must be positive")
	}
	if c.CleanupInterval <= 0 {
		return errors.New("cleanup interval must be positive")
	}
	return nil
}

// Reaper is the out-of-band timeout mechanism: running jobs that stopped
// making progress are marked failed, and terminal jobs past the retention
// window are deleted. It runs independently of any job processor.
type Reaper struct {
	config     ReaperConfig
	jobs       outbound.SyncJobRepository
	syncErrors outbound.SyncErrorRepository

	mu      sync.Mutex
	running bool
	stop    chan struct{}
	done    sync.WaitGroup
}

// NewReaper creates a reaper.
func NewReaper(config ReaperConfig, jobs outbound.SyncJobRepository, syncErrors outbound.SyncErrorRepository) (*Reaper, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid reaper configuration: %w", err)
	}
	if jobs == nil || syncErrors == nil {
		return nil, errors.New("reaper dependencies cannot be nil")
	}
	return &Reaper{
		config:     config,
		jobs:       jobs,
		syncErrors: syncErrors,
	}, nil
}

// Start begins the periodic sweeps.
func (r *Reaper) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.running {
		return errors.New("reaper already running")
	}
	r.running = true
	r.stop = make(chan struct{})

	r.done.Add(1)
	go r.run(ctx)

	return nil
}

// Stop halts the sweeps.
func (r *Reaper) Stop(_ context.Context) error {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return nil
	}
	r.running = false
	close(r.stop)
	r.mu.Unlock()

	r.done.Wait()
	return nil
}

func (r *Reaper) run(ctx context.Context) {
	defer r.done.Done()

	reapTicker := time.NewTicker(r.config.ReapInterval)
	defer reapTicker.Stop()

	cleanupTicker := time.NewTicker(r.config.CleanupInterval)
	defer cleanupTicker.Stop()

	for {
		select {
		case <-r.stop:
			return
		case <-ctx.Done():
			return
		case <-reapTicker.C:
			r.reapStale(ctx)
		case <-cleanupTicker.C:
			r.cleanupTerminal(ctx)
		}
	}
}

// reapStale fails running jobs that have made no progress inside the timeout
// window.
func (r *Reaper) reapStale(ctx context.Context) {
	cutoff := time.Now().Add(-r.config.StaleTimeout)

	stale, err := r.jobs.FindStale(ctx, cutoff)
	if err != nil {
		slogger.Error(ctx, "Stale job sweep failed", slogger.Fields{
			"error": err.Error(),
		})
		return
	}

	for _, job := range stale {
		message := fmt.Sprintf("job timed out: no progress for %s", r.config.StaleTimeout)

		if err := r.jobs.UpdateStatus(ctx, job.ID(), valueobject.JobStatusFailed, &message); err != nil {
			slogger.Error(ctx, "Failed to reap stale job", slogger.Fields{
				"job_id": job.ID().String(),
				"error":  err.Error(),
			})
			continue
		}

		syncError := entity.NewSyncError(job.ID(), nil, valueobject.ErrorCategoryJob, message, nil)
		if err := r.syncErrors.Save(ctx, syncError); err != nil {
			slogger.Error(ctx, "Failed to persist timeout error", slogger.Fields{
				"job_id": job.ID().String(),
				"error":  err.Error(),
			})
		}

		slogger.Warn(ctx, "Reaped stale sync job", slogger.Fields{
			"job_id":     job.ID().String(),
			"started_at": job.StartedAt(),
		})
	}
}

// cleanupTerminal deletes completed and cancelled jobs older than the
// retention window.
func (r *Reaper) cleanupTerminal(ctx context.Context) {
	cutoff := time.Now().Add(-r.config.RetentionPeriod)

	deleted, err := r.jobs.DeleteTerminalBefore(ctx, cutoff)
	if err != nil {
		slogger.Error(ctx, "Terminal job cleanup failed", slogger.Fields{
			"error": err.Error(),
		})
		return
	}

	if deleted > 0 {
		slogger.Info(ctx, "Cleaned up terminal sync jobs", slogger.Fields{
			"deleted": deleted,
			"cutoff":  cutoff.UTC().Format(time.RFC3339),
		})
	}
}

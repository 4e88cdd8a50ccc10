package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"vectorsync/internal/application/common/slogger"
	"vectorsync/internal/port/outbound"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
)

const defaultScheduleRefreshInterval = time.Minute

// scheduledEntry tracks one registered cron entry so schedule changes can be
// diffed against the registry instead of guessing from cron internals.
type scheduledEntry struct {
	entryID cron.EntryID
	spec    string
}

// Scheduler registers cron-scheduled datasources and triggers incremental
// syncs for them. The datasource-to-entry registry is explicit: adding,
// removing and updating schedules goes through the map, never through
// scanning the cron runner's entry list.
type Scheduler struct {
	cron            *cron.Cron
	datasources     outbound.DatasourceRepository
	syncJobs        *SyncJobService
	refreshInterval time.Duration

	mu      sync.Mutex
	entries map[uuid.UUID]scheduledEntry
	stop    chan struct{}
	done    sync.WaitGroup
	running bool
}

// NewScheduler creates a scheduler.
func NewScheduler(
	datasources outbound.DatasourceRepository,
	syncJobs *SyncJobService,
	refreshInterval time.Duration,
) (*Scheduler, error) {
	if datasources == nil || syncJobs == nil {
		return nil, errors.New("scheduler dependencies cannot be nil")
	}
	if refreshInterval <= 0 {
		refreshInterval = defaultScheduleRefreshInterval
	}
	return &Scheduler{
		cron:            cron.New(),
		datasources:     datasources,
		syncJobs:        syncJobs,
		refreshInterval: refreshInterval,
		entries:         make(map[uuid.UUID]scheduledEntry),
	}, nil
}

// Start loads the scheduled datasources, starts the cron runner and keeps the
// registry in sync with configuration changes.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return errors.New("scheduler already running")
	}
	s.running = true
	s.stop = make(chan struct{})
	s.mu.Unlock()

	if err := s.refresh(ctx); err != nil {
		slogger.Warn(ctx, "Initial schedule load failed, will retry on refresh", slogger.Fields{
			"error": err.Error(),
		})
	}

	s.cron.Start()

	s.done.Add(1)
	go s.refreshLoop(ctx)

	return nil
}

// Stop halts the cron runner and waits for a running trigger to finish.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	close(s.stop)
	s.mu.Unlock()

	s.done.Wait()

	cronCtx := s.cron.Stop()
	select {
	case <-cronCtx.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Scheduler) refreshLoop(ctx context.Context) {
	defer s.done.Done()

	ticker := time.NewTicker(s.refreshInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.refresh(ctx); err != nil {
				slogger.Error(ctx, "Schedule refresh failed", slogger.Fields{
					"error": err.Error(),
				})
			}
		}
	}
}

// refresh reconciles the registry with the datasource table: new schedules are
// added, removed ones unregistered and changed specs re-registered.
func (s *Scheduler) refresh(ctx context.Context) error {
	scheduled, err := s.datasources.FindScheduled(ctx)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	seen := make(map[uuid.UUID]bool, len(scheduled))

	for _, ds := range scheduled {
		seen[ds.ID()] = true
		spec := ds.CronSchedule()

		if existing, ok := s.entries[ds.ID()]; ok {
			if existing.spec == spec {
				continue
			}
			s.cron.Remove(existing.entryID)
			delete(s.entries, ds.ID())
		}

		datasourceID := ds.ID()
		entryID, addErr := s.cron.AddFunc(spec, func() {
			s.fire(datasourceID)
		})
		if addErr != nil {
			slogger.Error(ctx, "Invalid cron expression, skipping datasource", slogger.Fields{
				"datasource_id": datasourceID.String(),
				"spec":          spec,
				"error":         addErr.Error(),
			})
			continue
		}

		s.entries[datasourceID] = scheduledEntry{entryID: entryID, spec: spec}
		slogger.Info(ctx, "Registered sync schedule", slogger.Fields{
			"datasource_id": datasourceID.String(),
			"spec":          spec,
		})
	}

	for datasourceID, entry := range s.entries {
		if !seen[datasourceID] {
			s.cron.Remove(entry.entryID)
			delete(s.entries, datasourceID)
			slogger.Info(ctx, "Unregistered sync schedule", slogger.Fields{
				"datasource_id": datasourceID.String(),
			})
		}
	}

	return nil
}

func (s *Scheduler) fire(datasourceID uuid.UUID) {
	ctx := slogger.WithCorrelationID(context.Background(), uuid.New().String())

	job, err := s.syncJobs.TriggerIncrementalSync(ctx, datasourceID)
	if err != nil {
		slogger.Error(ctx, "Scheduled sync trigger failed", slogger.Fields{
			"datasource_id": datasourceID.String(),
			"error":         err.Error(),
		})
		return
	}

	slogger.Info(ctx, "Scheduled sync triggered", slogger.Fields{
		"datasource_id": datasourceID.String(),
		"job_id":        job.ID().String(),
	})
}

// Entries returns a snapshot of the registered schedules, for diagnostics.
func (s *Scheduler) Entries() map[uuid.UUID]string {
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := make(map[uuid.UUID]string, len(s.entries))
	for datasourceID, entry := range s.entries {
		snapshot[datasourceID] = entry.spec
	}
	return snapshot
}

package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"cosmetics-shop-api/internal/catalog"
	"cosmetics-shop-api/internal/metrics"
	"cosmetics-shop-api/internal/model"
	"cosmetics-shop-api/internal/repository"
	"cosmetics-shop-api/internal/upstream"
)

// Sync triggers recorded in sync_runs.
const (
	TriggerStartup  = "startup"
	TriggerSchedule = "schedule"
	TriggerManual   = "manual"
)

// Fetcher reads the three upstream views.
type Fetcher interface {
	FetchCatalog(ctx context.Context) (*upstream.CategorySet, error)
	FetchNewItems(ctx context.Context) (*upstream.NewItems, error)
	FetchShop(ctx context.Context) (*upstream.Shop, error)
}

// Invalidator drops derived data after the catalog changed.
type Invalidator interface {
	Invalidate(ctx context.Context)
}

// SyncConfig holds configuration for the sync scheduler.
type SyncConfig struct {
	// Interval is how often a cycle runs. Default: 1 hour
	Interval time.Duration

	// StartupDelay is how long Start waits before the first cycle.
	StartupDelay time.Duration

	// CycleTimeout bounds one cycle including all upstream calls.
	// Default: 5 minutes
	CycleTimeout time.Duration
}

// DefaultSyncConfig returns default sync configuration.
func DefaultSyncConfig() SyncConfig {
	return SyncConfig{
		Interval:     time.Hour,
		StartupDelay: 10 * time.Second,
		CycleTimeout: 5 * time.Minute,
	}
}

// SyncScheduler periodically pulls the upstream catalog and reconciles the
// store with it. At most one cycle runs at a time.
type SyncScheduler struct {
	fetcher     Fetcher
	reconciler  *Reconciler
	runs        repository.SyncRunRepository
	invalidator Invalidator
	config      SyncConfig
	log         logrus.FieldLogger

	ctx    context.Context
	cancel context.CancelFunc

	ticker    *time.Ticker
	stopCh    chan struct{}
	stopOnce  sync.Once
	done      chan struct{}
	isRunning bool
	mu        sync.Mutex

	// cycleMu is held for the whole duration of a cycle.
	cycleMu sync.Mutex

	lastMu  sync.RWMutex
	lastRun *model.SyncRun
}

// NewSyncScheduler creates a new sync scheduler. runs and invalidator may be nil.
func NewSyncScheduler(fetcher Fetcher, reconciler *Reconciler, runs repository.SyncRunRepository, invalidator Invalidator, config SyncConfig, log logrus.FieldLogger) *SyncScheduler {
	defaults := DefaultSyncConfig()
	if config.Interval <= 0 {
		config.Interval = defaults.Interval
	}
	if config.CycleTimeout <= 0 {
		config.CycleTimeout = defaults.CycleTimeout
	}
	if config.StartupDelay < 0 {
		config.StartupDelay = 0
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &SyncScheduler{
		fetcher:     fetcher,
		reconciler:  reconciler,
		runs:        runs,
		invalidator: invalidator,
		config:      config,
		log:         log.WithField("component", "sync"),
		ctx:         ctx,
		cancel:      cancel,
		stopCh:      make(chan struct{}),
		done:        make(chan struct{}),
	}
}

// Start begins the sync scheduler: wait for the startup delay, run once,
// then run on every tick.
func (s *SyncScheduler) Start() {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return
	}
	s.isRunning = true
	s.mu.Unlock()

	s.log.WithFields(logrus.Fields{
		"interval":      s.config.Interval.String(),
		"startup_delay": s.config.StartupDelay.String(),
	}).Info("Sync scheduler started")

	go s.run()
}

// run is the main sync loop.
func (s *SyncScheduler) run() {
	defer close(s.done)

	if s.config.StartupDelay > 0 {
		timer := time.NewTimer(s.config.StartupDelay)
		select {
		case <-timer.C:
		case <-s.stopCh:
			timer.Stop()
			return
		}
	}
	s.runScheduled(TriggerStartup)

	s.mu.Lock()
	s.ticker = time.NewTicker(s.config.Interval)
	s.mu.Unlock()
	defer s.ticker.Stop()

	for {
		select {
		case <-s.ticker.C:
			s.runScheduled(TriggerSchedule)
			// A tick that arrived while the cycle ran is stale.
			select {
			case <-s.ticker.C:
			default:
			}
		case <-s.stopCh:
			s.log.Info("Sync scheduler stopped")
			return
		}
	}
}

// runScheduled runs a cycle and swallows its error; the next tick retries.
func (s *SyncScheduler) runScheduled(trigger string) {
	if _, err := s.RunNow(s.ctx, trigger); err != nil {
		if errors.Is(err, model.ErrSyncInProgress) {
			s.log.WithField("trigger", trigger).Info("Skipping cycle, another one is running")
			return
		}
		s.log.WithError(err).WithField("trigger", trigger).Error("Sync cycle failed")
	}
}

// Stop stops the scheduler and cancels a cycle in flight.
func (s *SyncScheduler) Stop() {
	s.stopOnce.Do(func() {
		s.mu.Lock()
		started := s.isRunning
		if s.ticker != nil {
			s.ticker.Stop()
		}
		s.isRunning = false
		s.mu.Unlock()

		close(s.stopCh)
		s.cancel()
		if started {
			<-s.done
		}
	})
}

// LastRun returns the most recent finished cycle, or nil before the first one.
func (s *SyncScheduler) LastRun() *model.SyncRun {
	s.lastMu.RLock()
	defer s.lastMu.RUnlock()
	if s.lastRun == nil {
		return nil
	}
	run := *s.lastRun
	return &run
}

// RunNow runs one cycle immediately. It returns model.ErrSyncInProgress
// without waiting if a cycle is already running.
func (s *SyncScheduler) RunNow(ctx context.Context, trigger string) (*model.SyncRun, error) {
	if !s.cycleMu.TryLock() {
		return nil, model.ErrSyncInProgress
	}
	defer s.cycleMu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, s.config.CycleTimeout)
	defer cancel()

	run := &model.SyncRun{
		Trigger:   trigger,
		Status:    model.SyncStatusRunning,
		StartedAt: time.Now().UTC(),
	}
	if s.runs != nil {
		id, err := s.runs.StartSyncRun(ctx, trigger, run.StartedAt)
		if err != nil {
			s.log.WithError(err).Warn("Failed to record sync run start")
		}
		run.ID = id
	}

	log := s.log.WithFields(logrus.Fields{"trigger": trigger, "run_id": run.ID})
	log.Info("Sync cycle started")

	stats, err := s.cycle(ctx, log)
	finished := time.Now().UTC()
	duration := finished.Sub(run.StartedAt)

	run.FinishedAt = &finished
	run.CatalogItems = stats.CatalogItems
	run.ShopItems = stats.ShopItems
	run.NewItems = stats.NewItems
	run.DroppedRecords = stats.DroppedRecords
	run.UnresolvedBundles = stats.UnresolvedBundles

	if err != nil {
		run.Status = model.SyncStatusFailed
		run.ErrorMessage = err.Error()
		metrics.RecordSyncCycle(model.SyncStatusFailed, duration)
	} else {
		run.Status = model.SyncStatusSuccess
		metrics.RecordSyncCycle(model.SyncStatusSuccess, duration)
		metrics.SetCatalogSize(stats.CatalogItems, stats.ShopItems)
		if s.invalidator != nil {
			s.invalidator.Invalidate(ctx)
		}
	}

	if s.runs != nil && run.ID != 0 {
		// The cycle context may be spent; recording the outcome must not depend on it.
		finishCtx, finishCancel := context.WithTimeout(context.Background(), 5*time.Second)
		if ferr := s.runs.FinishSyncRun(finishCtx, run); ferr != nil {
			log.WithError(ferr).Warn("Failed to record sync run result")
		}
		finishCancel()
	}

	s.lastMu.Lock()
	s.lastRun = run
	s.lastMu.Unlock()

	if err != nil {
		return run, err
	}

	log.WithFields(logrus.Fields{
		"catalog":     stats.CatalogItems,
		"shop":        stats.ShopItems,
		"new":         stats.NewItems,
		"dropped":     stats.DroppedRecords,
		"unresolved":  stats.UnresolvedBundles,
		"duration_ms": duration.Milliseconds(),
	}).Info("Sync cycle completed")
	return run, nil
}

// cycle fetches, normalizes, resolves and reconciles. Any fetch failure
// aborts before the store is touched.
func (s *SyncScheduler) cycle(ctx context.Context, log logrus.FieldLogger) (model.SyncStats, error) {
	var stats model.SyncStats

	rawCatalog, err := s.fetcher.FetchCatalog(ctx)
	if err != nil {
		return stats, fmt.Errorf("fetch catalog: %w", err)
	}
	rawNew, err := s.fetcher.FetchNewItems(ctx)
	if err != nil {
		return stats, fmt.Errorf("fetch new items: %w", err)
	}
	rawShop, err := s.fetcher.FetchShop(ctx)
	if err != nil {
		return stats, fmt.Errorf("fetch shop: %w", err)
	}

	items, report := catalog.NormalizeAll(rawCatalog.Records())
	for category, n := range report.Dropped {
		metrics.RecordDropped(string(category), n)
	}
	if dropped := report.DroppedTotal(); dropped > 0 {
		log.WithField("dropped", dropped).Warn("Dropped incomplete catalog records")
	}

	var newRecords []upstream.Record
	if rawNew != nil {
		newRecords = rawNew.Items.Records()
	}
	newItems, newReport := catalog.NormalizeAll(newRecords)

	var entries []upstream.ShopEntry
	if rawShop != nil {
		entries = rawShop.Entries
	}
	resolution := catalog.NewResolver(items, s.log).Resolve(entries)
	metrics.RecordUnresolvedBundles(resolution.Unresolved)

	stats.DroppedRecords = report.DroppedTotal() + newReport.DroppedTotal() + resolution.DroppedRecords
	stats.UnresolvedBundles = resolution.Unresolved

	if err := ctx.Err(); err != nil {
		return stats, err
	}

	applied, err := s.reconciler.Apply(ctx, Snapshot{
		Catalog:  items,
		Shop:     resolution,
		NewItems: newItems,
	})
	if err != nil {
		return stats, err
	}

	applied.DroppedRecords = stats.DroppedRecords
	applied.UnresolvedBundles = stats.UnresolvedBundles
	return applied, nil
}

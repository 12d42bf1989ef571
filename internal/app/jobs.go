package app

import (
	"context"
	"time"

	"github.com/garyellow/tucurso-bot/internal/config"
	"github.com/garyellow/tucurso-bot/internal/sentry"
)

// startBackgroundJobs starts all background goroutines tracked by the WaitGroup.
func (a *Application) startBackgroundJobs(ctx context.Context) {
	a.wg.Go(func() {
		a.loadModel(ctx)
	})
	a.wg.Go(func() {
		a.trackerCleanup(ctx)
	})
	a.wg.Go(func() {
		a.updateTrackerMetrics(ctx)
	})
}

// loadModel performs the initial bundle load, then polls R2 for new
// revisions when configured.
func (a *Application) loadModel(ctx context.Context) {
	defer a.recoverJob("model_loader")

	if err := a.manager.Load(ctx); err != nil {
		a.logger.WithError(err).Error("Initial model load failed")
		sentry.CaptureException(ctx, err)
	}

	if a.cfg.ModelSource != config.ModelSourceR2 || a.cfg.ModelPollInterval <= 0 {
		return
	}
	a.logger.WithField("interval", a.cfg.ModelPollInterval.String()).Info("Polling model bundle for updates")
	a.manager.Poll(ctx, a.cfg.ModelPollInterval)
}

// trackerCleanup deletes idle conversations after an initial delay and then
// every TrackerCleanupInterval.
func (a *Application) trackerCleanup(ctx context.Context) {
	defer a.recoverJob("tracker_cleanup")
	a.logger.Debug("Tracker cleanup job started")
	defer a.logger.Debug("Tracker cleanup job stopped")

	select {
	case <-ctx.Done():
		return
	case <-time.After(config.TrackerCleanupInitialDelay):
		a.runTrackerCleanup(ctx)
	}

	ticker := time.NewTicker(config.TrackerCleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			a.runTrackerCleanup(ctx)
		}
	}
}

func (a *Application) runTrackerCleanup(ctx context.Context) {
	start := time.Now()
	deleted, err := a.store.DeleteExpired(ctx, a.cfg.TrackerTTL)
	if err != nil {
		a.logger.WithError(err).Error("Failed to delete expired trackers")
		return
	}
	if a.metrics != nil {
		a.metrics.RecordTrackersExpired(deleted)
	}
	a.logger.WithField("deleted", deleted).
		WithField("duration_ms", time.Since(start).Milliseconds()).
		Info("Tracker cleanup completed")
}

// updateTrackerMetrics periodically records the number of stored trackers.
func (a *Application) updateTrackerMetrics(ctx context.Context) {
	defer a.recoverJob("tracker_metrics")

	ticker := time.NewTicker(config.MetricsUpdateInterval)
	defer ticker.Stop()
	for {
		a.recordTrackerMetrics(ctx)
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (a *Application) recordTrackerMetrics(ctx context.Context) {
	if a.metrics == nil {
		return
	}
	n, err := a.store.Count(ctx)
	if err != nil {
		a.logger.WithError(err).Debug("Failed to count trackers")
		return
	}
	a.metrics.SetTrackersActive(n)
}

func (a *Application) recoverJob(name string) {
	if r := recover(); r != nil {
		a.logger.WithField("job", name).WithField("panic", r).Error("Panic in background job")
	}
}

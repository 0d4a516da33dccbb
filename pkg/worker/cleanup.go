package worker

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/jwalitptl/bp-admin-api/internal/repository"
)

// CleanupWorker deletes processed outbox events once they are older than
// the retention window.
type CleanupWorker struct {
	repo      repository.OutboxRepository
	retention time.Duration
	interval  time.Duration
	logger    zerolog.Logger
	now       func() time.Time
}

func NewCleanupWorker(repo repository.OutboxRepository, retention, interval time.Duration, logger zerolog.Logger) *CleanupWorker {
	return &CleanupWorker{
		repo:      repo,
		retention: retention,
		interval:  interval,
		logger:    logger,
		now:       time.Now,
	}
}

func (w *CleanupWorker) Start(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.RunOnce(ctx)
		}
	}
}

// RunOnce performs a single cleanup pass and returns the number of deleted
// events.
func (w *CleanupWorker) RunOnce(ctx context.Context) int64 {
	cutoff := w.now().Add(-w.retention)
	deleted, err := w.repo.DeleteProcessedBefore(ctx, cutoff)
	if err != nil {
		w.logger.Error().Err(err).Msg("Failed to delete processed outbox events")
		return 0
	}
	if deleted > 0 {
		w.logger.Info().Int64("deleted", deleted).Time("cutoff", cutoff).Msg("Deleted processed outbox events")
	}
	return deleted
}

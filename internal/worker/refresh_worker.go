package worker

import (
	"context"

	"github.com/villagehub/bizdir/internal/logger"
	syncpkg "github.com/villagehub/bizdir/internal/sync"
)

// Syncer runs one cache reconciliation cycle. sync.Reconciler satisfies it.
type Syncer interface {
	SmartSync(ctx context.Context) syncpkg.Result
}

// RefreshWorker runs a sync cycle in the background so the cache stays warm
// between user-triggered loads. SmartSync never fails, so Process only
// reports what happened.
type RefreshWorker struct {
	reconciler Syncer
}

// NewRefreshWorker creates a refresh job for the scheduler.
func NewRefreshWorker(reconciler Syncer) *RefreshWorker {
	return &RefreshWorker{reconciler: reconciler}
}

// Process implements Job.
func (w *RefreshWorker) Process(ctx context.Context) error {
	log := logger.FromContext(ctx)
	log.Debug(LogMsgRefreshStarting)

	result := w.reconciler.SmartSync(ctx)

	log.Info(LogMsgRefreshCompleted,
		"action", string(result.Action),
		"from_cache", result.FromCache,
		"businesses", len(result.Businesses))
	return nil
}

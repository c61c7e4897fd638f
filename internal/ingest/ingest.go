package ingest

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/expiry-tracker/internal/async"
)

// Forward enqueues every path from events for owner until events closes or
// ctx is done. Watcher errors are logged and do not stop forwarding.
func Forward(ctx context.Context, events <-chan string, errs <-chan error, q async.Queue, owner string, logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}
	for {
		select {
		case <-ctx.Done():
			return
		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			logger.Warn("ingest.watch.error", "error", err)
		case path, ok := <-events:
			if !ok {
				return
			}
			job := async.Job{
				Path:        path,
				Owner:       owner,
				SubmittedAt: time.Now(),
				TraceID:     uuid.NewString(),
			}
			if err := q.Enqueue(ctx, job); err != nil {
				logger.Error("ingest.enqueue.failed", "path", path, "error", err)
				continue
			}
			logger.Info("ingest.enqueued", "path", path, "trace_id", job.TraceID)
		}
	}
}

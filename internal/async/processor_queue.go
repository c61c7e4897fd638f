package async

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/joseph-ayodele/expiry-tracker/internal/common"
	"github.com/joseph-ayodele/expiry-tracker/internal/pipeline"
)

// ErrQueueClosed is returned by Enqueue after Shutdown has started.
var ErrQueueClosed = errors.New("queue is shutting down")

// Scanner is the pipeline entry point the queue drives.
type Scanner interface {
	ScanImage(ctx context.Context, owner, path string) (pipeline.ScanResult, error)
}

// ProcessorQueue scans images on a fixed set of background workers.
type ProcessorQueue struct {
	proc    Scanner
	logger  *slog.Logger
	workers int
	timeout time.Duration
	onDone  func(Job, pipeline.ScanResult, error)

	ch   chan Job
	wg   sync.WaitGroup
	once sync.Once

	mu     sync.RWMutex
	closed bool
}

type Option func(*ProcessorQueue)

func WithWorkers(n int) Option {
	return func(q *ProcessorQueue) {
		if n > 0 {
			q.workers = n
		}
	}
}

func WithQueueSize(n int) Option {
	return func(q *ProcessorQueue) {
		if n > 0 {
			q.ch = make(chan Job, n)
		}
	}
}

func WithProcessTimeout(d time.Duration) Option {
	return func(q *ProcessorQueue) {
		if d > 0 {
			q.timeout = d
		}
	}
}

// WithCompletion registers a callback run on the worker after each job.
func WithCompletion(fn func(Job, pipeline.ScanResult, error)) Option {
	return func(q *ProcessorQueue) {
		q.onDone = fn
	}
}

func NewProcessorQueue(proc Scanner, logger *slog.Logger, opts ...Option) *ProcessorQueue {
	if logger == nil {
		logger = slog.Default()
	}
	q := &ProcessorQueue{
		proc:    proc,
		logger:  logger,
		workers: 4,
		timeout: 3 * time.Minute,
		ch:      make(chan Job, 256),
	}
	for _, o := range opts {
		o(q)
	}
	q.start()
	return q
}

func (q *ProcessorQueue) start() {
	q.once.Do(func() {
		for i := 0; i < q.workers; i++ {
			q.wg.Add(1)
			go q.worker(i + 1)
		}
	})
}

func (q *ProcessorQueue) worker(workerID int) {
	defer q.wg.Done()
	q.logger.Debug("worker started", "worker_id", workerID)

	for job := range q.ch {
		ctx, cancel := context.WithTimeout(context.Background(), q.timeout)
		if job.TraceID != "" {
			ctx = common.WithRequestID(ctx, job.TraceID)
		}
		res, err := q.proc.ScanImage(ctx, job.Owner, job.Path)
		cancel()

		if err != nil {
			q.logger.Error("processing failed", "worker_id", workerID, "path", job.Path, "error", err)
		} else {
			q.logger.Info("processed label", "worker_id", workerID, "path", job.Path,
				"status", res.Status, "wait_ms", time.Since(job.SubmittedAt).Milliseconds())
		}
		if q.onDone != nil {
			q.onDone(job, res, err)
		}
	}

	q.logger.Debug("worker stopped", "worker_id", workerID)
}

// Enqueue blocks while the queue is full, until ctx is done.
func (q *ProcessorQueue) Enqueue(ctx context.Context, job Job) error {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		q.logger.Warn("cannot enqueue: queue is shutting down", "path", job.Path)
		return ErrQueueClosed
	}
	if job.SubmittedAt.IsZero() {
		job.SubmittedAt = time.Now()
	}
	select {
	case q.ch <- job:
		q.logger.Debug("queued label for processing", "path", job.Path)
		return nil
	default:
	}

	q.logger.Warn("queue full, applying backpressure", "path", job.Path)
	select {
	case q.ch <- job:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Shutdown stops intake and waits for queued jobs until ctx is done.
func (q *ProcessorQueue) Shutdown(ctx context.Context) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	close(q.ch)
	q.mu.Unlock()

	done := make(chan struct{})
	go func() { defer close(done); q.wg.Wait() }()

	select {
	case <-ctx.Done():
		q.logger.Warn("shutdown interrupted by context")
	case <-done:
		q.logger.Info("queue drained, shutdown complete")
	}
}

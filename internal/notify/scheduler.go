package notify

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/joseph-ayodele/expiry-tracker/internal/extract"
)

// Runner is what the scheduler triggers.
type Runner interface {
	Run(ctx context.Context, now time.Time) (Report, error)
}

// Scheduler runs the job once a day at a fixed local time.
type Scheduler struct {
	job    Runner
	at     time.Duration
	tick   time.Duration
	now    func() time.Time
	logger *slog.Logger

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	lastRun extract.Date
}

// NewScheduler triggers job daily at the given offset from midnight.
func NewScheduler(job Runner, at time.Duration, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		job:    job,
		at:     at,
		tick:   time.Minute,
		now:    time.Now,
		logger: logger,
	}
}

// Start blocks until ctx is done or Stop is called, checking once per tick.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = true
	s.stopCh = make(chan struct{})
	stop := s.stopCh
	// a start after today's trigger time waits for tomorrow
	if now := s.now(); !now.Before(extract.DateOf(now).In(now.Location()).Add(s.at)) {
		s.lastRun = extract.DateOf(now)
	}
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		if s.stopCh == stop {
			s.running = false
		}
		s.mu.Unlock()
	}()

	s.logger.Info("notify scheduler started", "at", s.at.String())

	ticker := time.NewTicker(s.tick)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-stop:
			return nil
		case <-ticker.C:
			s.checkAndRun(ctx)
		}
	}
}

func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return
	}
	s.running = false
	close(s.stopCh)
}

// Due reports whether the job should run at now: past today's trigger time
// and not yet run today.
func (s *Scheduler) Due(now time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	today := extract.DateOf(now)
	if s.lastRun == today {
		return false
	}
	return !now.Before(today.In(now.Location()).Add(s.at))
}

func (s *Scheduler) checkAndRun(ctx context.Context) {
	now := s.now()
	if !s.Due(now) {
		return
	}
	s.mu.Lock()
	s.lastRun = extract.DateOf(now)
	s.mu.Unlock()

	rep, err := s.job.Run(ctx, now)
	if err != nil {
		s.logger.Error("notify run failed", "day", rep.Day.String(), "error", err)
		return
	}
	s.logger.Info("notify run complete", "day", rep.Day.String(), "products", rep.Products, "sent", rep.Sent)
}

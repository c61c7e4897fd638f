package worker

import (
	"context"
	"sync"
)

// Job represents a unit of work to be executed
type Job interface {
	Execute(ctx context.Context) Result
}

// Result represents the result of a job execution
type Result interface {
	GetError() error
}

// Pool runs jobs on a fixed number of goroutines. Results are drained as
// they are produced, so Submit never blocks on an unread result.
type Pool struct {
	workers     int
	jobQueue    chan Job
	results     chan Result
	collected   []Result
	collectDone chan struct{}
	wg          sync.WaitGroup
	ctx         context.Context
	cancelFunc  context.CancelFunc
	closeOnce   sync.Once
	startOnce   sync.Once
}

// NewPool creates a pool bound to parent; cancelling parent stops the workers.
func NewPool(parent context.Context, workers int) *Pool {
	if workers <= 0 {
		workers = 1
	}
	ctx, cancel := context.WithCancel(parent)

	return &Pool{
		workers:     workers,
		jobQueue:    make(chan Job, workers*2),
		results:     make(chan Result, workers*2),
		collectDone: make(chan struct{}),
		ctx:         ctx,
		cancelFunc:  cancel,
	}
}

// Start starts the workers and the result collector.
func (p *Pool) Start() {
	p.startOnce.Do(func() {
		go p.collect()
		for i := 0; i < p.workers; i++ {
			p.wg.Add(1)
			go p.worker()
		}
	})
}

func (p *Pool) collect() {
	defer close(p.collectDone)
	for r := range p.results {
		p.collected = append(p.collected, r)
	}
}

func (p *Pool) worker() {
	defer p.wg.Done()

	for {
		select {
		case <-p.ctx.Done():
			return
		case job, ok := <-p.jobQueue:
			if !ok {
				return
			}
			p.results <- job.Execute(p.ctx)
		}
	}
}

// Submit queues a job. It returns false once the pool has been cancelled.
func (p *Pool) Submit(job Job) bool {
	if p.ctx.Err() != nil {
		return false
	}
	select {
	case <-p.ctx.Done():
		return false
	case p.jobQueue <- job:
		return true
	}
}

// Wait closes intake, waits for the workers and returns every result.
func (p *Pool) Wait() []Result {
	close(p.jobQueue)
	p.wg.Wait()
	p.closeResults()
	<-p.collectDone
	p.cancelFunc()
	return p.collected
}

// Shutdown cancels in-flight jobs and returns what finished.
func (p *Pool) Shutdown() []Result {
	p.cancelFunc()
	p.wg.Wait()
	p.closeResults()
	<-p.collectDone
	return p.collected
}

func (p *Pool) closeResults() {
	p.closeOnce.Do(func() {
		close(p.results)
	})
}

package async

import (
	"context"
	"time"
)

// Job asks for one label image to be scanned for an owner.
type Job struct {
	Path        string
	Owner       string
	SubmittedAt time.Time
	TraceID     string
}

type Queue interface {
	Enqueue(ctx context.Context, job Job) error
	Shutdown(ctx context.Context)
}

package worker

import (
	"context"
	"log/slog"
	"sort"

	"github.com/joseph-ayodele/expiry-tracker/constants"
	"github.com/joseph-ayodele/expiry-tracker/internal/ingest"
	"github.com/joseph-ayodele/expiry-tracker/internal/pipeline"
)

// Scanner defines the interface for scanning one label image
type Scanner interface {
	ScanImage(ctx context.Context, owner, path string) (pipeline.ScanResult, error)
}

// ScanJob represents an image scan job
type ScanJob struct {
	index   int
	Path    string
	Owner   string
	Scanner Scanner
}

func (j *ScanJob) Execute(ctx context.Context) Result {
	res, err := j.Scanner.ScanImage(ctx, j.Owner, j.Path)
	return &ScanResult{index: j.index, Path: j.Path, Result: res, Error: err}
}

// ScanResult represents the result of a scan job
type ScanResult struct {
	index  int
	Path   string
	Result pipeline.ScanResult
	Error  error
}

func (r *ScanResult) GetError() error {
	return r.Error
}

// Summary counts batch outcomes by scan status.
type Summary struct {
	Total  int
	Counts map[constants.ScanStatus]int
}

func Summarize(results []*ScanResult) Summary {
	s := Summary{Total: len(results), Counts: map[constants.ScanStatus]int{}}
	for _, r := range results {
		st := r.Result.Status
		if r.Error != nil {
			st = constants.ScanStatusFailed
		}
		s.Counts[st]++
	}
	return s
}

// BatchProcessor scans many images concurrently
type BatchProcessor struct {
	scanner     Scanner
	concurrency int
	logger      *slog.Logger
}

func NewBatchProcessor(scanner Scanner, concurrency int, logger *slog.Logger) *BatchProcessor {
	if logger == nil {
		logger = slog.Default()
	}
	return &BatchProcessor{
		scanner:     scanner,
		concurrency: concurrency,
		logger:      logger,
	}
}

// ProcessPaths scans every path and returns results in input order. Paths not
// submitted before ctx is cancelled are absent from the result.
func (b *BatchProcessor) ProcessPaths(ctx context.Context, owner string, paths []string) []*ScanResult {
	if len(paths) == 0 {
		return []*ScanResult{}
	}

	pool := NewPool(ctx, b.concurrency)
	pool.Start()

	for i, path := range paths {
		if !pool.Submit(&ScanJob{index: i, Path: path, Owner: owner, Scanner: b.scanner}) {
			b.logger.Warn("batch cancelled", "submitted", i, "total", len(paths))
			break
		}
	}

	results := pool.Wait()
	out := make([]*ScanResult, len(results))
	for i, r := range results {
		out[i] = r.(*ScanResult)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].index < out[j].index })

	sum := Summarize(out)
	b.logger.Info("batch.done", "total", sum.Total,
		"parsed", sum.Counts[constants.ScanStatusParsed],
		"duplicate", sum.Counts[constants.ScanStatusDuplicate],
		"failed", sum.Counts[constants.ScanStatusFailed])
	return out
}

// ProcessDir scans the label images found under dir.
func (b *BatchProcessor) ProcessDir(ctx context.Context, owner, dir string, recursive bool) ([]*ScanResult, error) {
	paths, err := ingest.ListImages(dir, recursive)
	if err != nil {
		return nil, err
	}
	b.logger.Info("batch.start", "dir", dir, "images", len(paths), "concurrency", b.concurrency)
	return b.ProcessPaths(ctx, owner, paths), nil
}

package server

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/expiry-tracker/internal/async"
	"github.com/joseph-ayodele/expiry-tracker/internal/common"
	"github.com/joseph-ayodele/expiry-tracker/internal/ingest"
	"github.com/joseph-ayodele/expiry-tracker/internal/pipeline"
)

// maxTextBytes bounds ParseText input; label text is a few hundred bytes.
const maxTextBytes = 64 << 10

// LabelProcessor is the pipeline surface the label service needs.
type LabelProcessor interface {
	ScanImage(ctx context.Context, owner, path string) (pipeline.ScanResult, error)
	ParseText(ctx context.Context, owner, text string, persist bool) (pipeline.ScanResult, error)
}

type LabelService struct {
	processor    LabelProcessor
	queue        async.Queue
	defaultOwner string
	logger       *slog.Logger
}

// NewLabelService builds the label service. queue may be nil, in which case
// ScanDirectory is unavailable.
func NewLabelService(proc LabelProcessor, queue async.Queue, defaultOwner string, logger *slog.Logger) *LabelService {
	if logger == nil {
		logger = slog.Default()
	}
	return &LabelService{processor: proc, queue: queue, defaultOwner: defaultOwner, logger: logger}
}

// ParseText implements LabelServer.
func (s *LabelService) ParseText(ctx context.Context, req *ParseTextRequest) (*ScanResponse, error) {
	log := common.LoggerFromContext(ctx, s.logger)
	if len(req.Text) > maxTextBytes {
		log.Error("parse request text too large", "bytes", len(req.Text))
		return nil, common.InvalidArgumentErrorf("text must be at most %d bytes", maxTextBytes)
	}
	owner := common.OwnerFromContext(ctx)
	if req.Persist {
		var err error
		if owner, err = ownerOf(ctx, s.defaultOwner); err != nil {
			return nil, err
		}
	}

	res, err := s.processor.ParseText(ctx, owner, req.Text, req.Persist)
	if err != nil {
		log.Error("parse text failed", "persist", req.Persist, "error", err)
		return nil, common.ToGRPCError(err)
	}
	log.Info("label text parsed", "confidence", res.Record.Confidence, "has_expiry", res.Record.HasExpiry(), "persisted", res.Product != nil)
	return &ScanResponse{Result: res}, nil
}

// ScanImage implements LabelServer. The path is read on the server host.
func (s *LabelService) ScanImage(ctx context.Context, req *ScanImageRequest) (*ScanResponse, error) {
	log := common.LoggerFromContext(ctx, s.logger)
	path := strings.TrimSpace(req.Path)
	if err := common.ValidateAndReturnError(common.NewValidator().Field("path", path, common.Required)); err != nil {
		log.Error("scan request missing path")
		return nil, err
	}
	owner, err := ownerOf(ctx, s.defaultOwner)
	if err != nil {
		return nil, err
	}

	log.Info("starting image scan", "path", path)
	res, err := s.processor.ScanImage(ctx, owner, path)
	if err != nil {
		log.Error("pipeline.failed", "path", path, "err", err)
		if errors.Is(err, common.ErrInvalidInput) {
			return nil, common.ToGRPCError(err)
		}
		// the request was valid; the outcome travels in the response
		return &ScanResponse{Result: res, Error: err.Error()}, nil
	}
	log.Info("image scan succeeded", "path", path, "status", res.Status)
	return &ScanResponse{Result: res}, nil
}

// ScanDirectory implements LabelServer. Images are queued for background
// processing; the response only reports how many were accepted.
func (s *LabelService) ScanDirectory(ctx context.Context, req *ScanDirectoryRequest) (*ScanDirectoryResponse, error) {
	log := common.LoggerFromContext(ctx, s.logger)
	root := strings.TrimSpace(req.RootPath)
	if err := common.ValidateAndReturnError(common.NewValidator().Field("root_path", root, common.Required)); err != nil {
		log.Error("scan directory request missing root_path")
		return nil, err
	}
	owner, err := ownerOf(ctx, s.defaultOwner)
	if err != nil {
		return nil, err
	}
	if s.queue == nil {
		return nil, common.ToGRPCError(common.WrapError(common.ErrUnavailable, "scan queue"))
	}

	paths, err := ingest.ListImages(root, req.Recursive)
	if err != nil {
		log.Error("list label images failed", "root", root, "error", err)
		return nil, common.InvalidArgumentErrorf("scan directory: %v", err)
	}

	out := &ScanDirectoryResponse{Matched: len(paths)}
	for _, p := range paths {
		job := async.Job{Path: p, Owner: owner, SubmittedAt: time.Now(), TraceID: uuid.NewString()}
		if err := s.queue.Enqueue(ctx, job); err != nil {
			log.Warn("enqueue failed", "path", p, "error", err)
			out.Failed = append(out.Failed, p)
			continue
		}
		out.Queued++
	}
	log.Info("directory scan queued", "root", root, "matched", out.Matched, "queued", out.Queued)
	return out, nil
}

package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/joseph-ayodele/expiry-tracker/constants"
	"github.com/joseph-ayodele/expiry-tracker/internal/common"
	"github.com/joseph-ayodele/expiry-tracker/internal/entity"
	"github.com/joseph-ayodele/expiry-tracker/internal/extract"
	"github.com/joseph-ayodele/expiry-tracker/internal/ocr"
	"github.com/joseph-ayodele/expiry-tracker/internal/repository"
)

// ScanResult is the outcome of one image or text submission.
type ScanResult struct {
	Path    string                   `json:"path,omitempty"`
	Status  constants.ScanStatus     `json:"status"`
	Record  extract.ExtractionRecord `json:"record"`
	Product *entity.Product          `json:"product,omitempty"`
	OCR     *OCRInfo                 `json:"ocr,omitempty"`
}

// OCRInfo summarises the OCR run behind a scan.
type OCRInfo struct {
	Method     string   `json:"method"`
	Confidence float32  `json:"confidence"`
	DurationMS int64    `json:"duration_ms"`
	Cached     bool     `json:"cached"`
	Warnings   []string `json:"warnings,omitempty"`
}

// Processor coordinates OCR, parsing, storage and indexing of label scans.
type Processor struct {
	logger   *slog.Logger
	ocr      TextExtractor
	parser   *extract.Parser
	products repository.ProductRepository
	index    Indexer
}

type Option func(*Processor)

// WithIndexer mirrors every stored product into idx.
func WithIndexer(idx Indexer) Option {
	return func(p *Processor) {
		if idx != nil {
			p.index = idx
		}
	}
}

// NewProcessor wires the stages. products may be nil when nothing is persisted.
func NewProcessor(logger *slog.Logger, tx TextExtractor, products repository.ProductRepository, opts ...Option) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	p := &Processor{
		logger:   logger,
		ocr:      tx,
		parser:   extract.NewParser(logger),
		products: products,
		index:    noopIndexer{},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// ScanImage runs hash, dedup, OCR, parse, persist and index for one image.
// An image already stored for the owner is reported as a duplicate without
// running OCR again.
func (p *Processor) ScanImage(ctx context.Context, owner, path string) (ScanResult, error) {
	res := ScanResult{Path: path, Status: constants.ScanStatusQueued}
	if !constants.IsLabelImage(path) {
		res.Status = constants.ScanStatusFailed
		return res, fmt.Errorf("%w: %w: %s", common.ErrInvalidInput, ocr.ErrUnsupportedFormat, filepath.Ext(path))
	}

	hash, err := ocr.HashFile(path)
	if err != nil {
		res.Status = constants.ScanStatusFailed
		p.logger.Error("processor.hash.failed", "path", path, "err", err)
		return res, err
	}

	if p.products != nil {
		existing, err := p.products.FindByHash(ctx, owner, hash)
		switch {
		case err == nil:
			p.logger.Info("processor.duplicate", "path", path, "product_id", existing.ID)
			res.Status = constants.ScanStatusDuplicate
			res.Product = existing
			res.Record = recordOf(existing)
			return res, nil
		case !errors.Is(err, common.ErrNotFound):
			res.Status = constants.ScanStatusFailed
			return res, fmt.Errorf("dedup lookup: %w", err)
		}
	}

	ocrRes, err := p.ocr.Extract(ocr.WithContentHash(ctx, hash), path)
	if err != nil {
		res.Status = constants.ScanStatusFailed
		p.logger.Error("processor.ocr.failed", "path", path, "err", err)
		return res, err
	}
	res.Status = constants.ScanStatusOCROK
	res.OCR = &OCRInfo{
		Method:     ocrRes.Method,
		Confidence: ocrRes.Confidence,
		DurationMS: ocrRes.Duration.Milliseconds(),
		Cached:     ocrRes.Cached,
		Warnings:   ocrRes.Warnings,
	}
	p.logger.Debug("processor.ocr.ok",
		"path", path,
		"method", ocrRes.Method,
		"confidence", ocrRes.Confidence,
		"cached", ocrRes.Cached,
	)

	res.Record = p.parser.Parse(ocrRes.Text)
	if p.products == nil {
		res.Status = constants.ScanStatusParsed
		return res, nil
	}

	prod := entity.ProductFromRecord(owner, res.Record)
	src := path
	prod.SourcePath = &src
	prod.ContentHash = &hash
	stored, err := p.store(ctx, prod)
	if err != nil {
		res.Status = constants.ScanStatusFailed
		return res, err
	}
	res.Product = stored
	res.Status = constants.ScanStatusParsed
	p.logger.Info("processor.parse.ok", "path", path, "product_id", stored.ID, "confidence", stored.Confidence)
	return res, nil
}

// ParseText parses already recognised text and optionally stores the result.
func (p *Processor) ParseText(ctx context.Context, owner, text string, persist bool) (ScanResult, error) {
	res := ScanResult{Status: constants.ScanStatusParsed}
	res.Record = p.parser.Parse(text)
	if !persist {
		return res, nil
	}
	if p.products == nil {
		return res, fmt.Errorf("persist parsed text: %w: no product store", common.ErrUnavailable)
	}
	stored, err := p.store(ctx, entity.ProductFromRecord(owner, res.Record))
	if err != nil {
		res.Status = constants.ScanStatusFailed
		return res, err
	}
	res.Product = stored
	return res, nil
}

func (p *Processor) store(ctx context.Context, prod *entity.Product) (*entity.Product, error) {
	stored, err := p.products.Create(ctx, prod)
	if err != nil {
		p.logger.Error("processor.store.failed", "owner", prod.Owner, "err", err)
		return nil, fmt.Errorf("store product: %w", err)
	}
	// index failures are logged only; the store is authoritative
	if err := p.index.Index(ctx, stored); err != nil {
		p.logger.Warn("processor.index.failed", "product_id", stored.ID, "err", err)
	}
	return stored, nil
}

func recordOf(p *entity.Product) extract.ExtractionRecord {
	rec := extract.ExtractionRecord{
		ExpiryDate:   p.ExpiryDate,
		ProductName:  p.Name,
		Manufacturer: p.Manufacturer,
		BatchNumber:  p.BatchNumber,
		Confidence:   p.Confidence,
	}
	if p.RawText != nil {
		rec.RawText = *p.RawText
	}
	return rec
}

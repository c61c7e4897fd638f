package cli

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/joseph-ayodele/expiry-tracker/internal/cache"
	"github.com/joseph-ayodele/expiry-tracker/internal/common"
	"github.com/joseph-ayodele/expiry-tracker/internal/ocr"
	"github.com/joseph-ayodele/expiry-tracker/internal/pipeline"
	"github.com/joseph-ayodele/expiry-tracker/internal/repository"
	"github.com/joseph-ayodele/expiry-tracker/internal/search"
	"github.com/joseph-ayodele/expiry-tracker/internal/server"
)

// app holds the dependencies shared by the commands.
type app struct {
	cfg      *common.Config
	logger   *slog.Logger
	db       *repository.DB
	products repository.ProductRepository
	index    *search.Index
}

func newApp(ctx context.Context) (*app, error) {
	logger := setupLogger()
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	db, err := server.ConnectDB(ctx, cfg.Database, logger)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	a := &app{
		cfg:      cfg,
		logger:   logger,
		db:       db,
		products: repository.NewProductRepository(db, logger),
	}
	if cfg.Search.URL != "" {
		a.index = search.New(cfg.Search, logger)
		if err := a.index.Setup(ctx); err != nil {
			// the store's substring search still works without the index
			logger.Warn("search index unavailable", "url", cfg.Search.URL, "error", err)
		}
	}
	return a, nil
}

func (a *app) Close() {
	a.db.Close()
}

// requireOwner returns the configured owner or an error naming the flag.
func (a *app) requireOwner() (string, error) {
	if a.cfg.Owner == "" {
		return "", common.NewAppError("CONFIG_ERROR", "--owner or EXPIRY_OWNER is required", common.ErrInvalidInput)
	}
	return a.cfg.Owner, nil
}

func (a *app) extractor() *ocr.Extractor {
	c := a.cfg.OCR
	return ocr.NewExtractor(ocr.Config{
		TesseractLang:       c.Language,
		TessdataDir:         c.TessdataDir,
		HeicConverter:       c.HeicConverter,
		PSM:                 11,
		EnableTSVConfidence: true,
		MaxFileBytes:        c.MaxFileBytes,
		Timeout:             c.Timeout,
	}, a.logger,
		ocr.WithCache(cache.NewMemoryCache(c.CacheTTL, 0)),
		ocr.WithRateLimit(c.RatePerSecond, c.Burst),
	)
}

func (a *app) processor() *pipeline.Processor {
	var opts []pipeline.Option
	if a.index != nil {
		opts = append(opts, pipeline.WithIndexer(a.index))
	}
	return pipeline.NewProcessor(a.logger, a.extractor(), a.products, opts...)
}

// finder lists through the search index when one is configured.
func (a *app) finder() *search.Finder {
	if a.index == nil {
		return search.NewFinder(a.products, nil, a.logger)
	}
	return search.NewFinder(a.products, a.index, a.logger)
}

package ocr

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/time/rate"

	"github.com/joseph-ayodele/expiry-tracker/constants"
	"github.com/joseph-ayodele/expiry-tracker/internal/cache"
)

var (
	// ErrFileTooLarge is returned before OCR for images above Config.MaxFileBytes.
	ErrFileTooLarge = errors.New("ocr: file too large")
	// ErrNoText is returned when OCR ran but produced no text.
	ErrNoText = errors.New("ocr: no text was extracted")
	// ErrUnsupportedFormat is returned for files that are not label images.
	ErrUnsupportedFormat = errors.New("ocr: unsupported file format")
)

type Config struct {
	Tesseract     string // binary name or absolute path; if empty -> "tesseract"
	TesseractLang string // default "eng"
	TessdataDir   string
	HeicConverter string // "heif-convert" | "magick" | "sips"

	PSM int // 0 = tesseract default; 11 (sparse text) suits busy labels
	OEM int

	EnableTSVConfidence bool
	MaxFileBytes        int64         // 0 -> constants.MaxLabelFileBytes
	Timeout             time.Duration // per image; 0 = none
}

type Result struct {
	Text        string
	ContentHash string
	Method      string // "image-ocr" | "cache"
	Language    string
	Duration    time.Duration
	Warnings    []string
	Confidence  float32
	Cached      bool
}

// Extractor runs tesseract over label images. It is safe for concurrent use.
type Extractor struct {
	cfg     Config
	runner  Runner
	logger  *slog.Logger
	cache   cache.TextCache
	limiter *rate.Limiter
}

type Option func(*Extractor)

// WithRunner swaps the command runner, mainly for tests.
func WithRunner(r Runner) Option {
	return func(e *Extractor) { e.runner = r }
}

func WithCache(c cache.TextCache) Option {
	return func(e *Extractor) { e.cache = c }
}

// WithRateLimit caps tesseract invocations per second. perSecond <= 0 disables it.
func WithRateLimit(perSecond float64, burst int) Option {
	return func(e *Extractor) {
		if perSecond <= 0 {
			e.limiter = nil
			return
		}
		if burst <= 0 {
			burst = 1
		}
		e.limiter = rate.NewLimiter(rate.Limit(perSecond), burst)
	}
}

func NewExtractor(cfg Config, logger *slog.Logger, opts ...Option) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Tesseract == "" {
		cfg.Tesseract = "tesseract"
	}
	if cfg.TesseractLang == "" {
		cfg.TesseractLang = "eng"
	}
	if cfg.MaxFileBytes <= 0 {
		cfg.MaxFileBytes = constants.MaxLabelFileBytes
	}
	e := &Extractor{cfg: cfg, runner: execRunner{logger: logger}, logger: logger}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Extract reads the text printed on a label image.
func (e *Extractor) Extract(ctx context.Context, path string) (Result, error) {
	start := time.Now()
	ext := constants.NormalizeExt(filepath.Ext(path))
	e.logger.Debug("ocr.start", "path", path, "ext", ext)

	if !constants.IsLabelImage(path) {
		e.logger.Error("ocr.unsupported", "path", path, "ext", ext)
		return Result{}, fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}
	st, err := os.Stat(path)
	if err != nil {
		return Result{}, fmt.Errorf("stat %s: %w", path, err)
	}
	if st.Size() > e.cfg.MaxFileBytes {
		e.logger.Warn("ocr.too_large", "path", path, "size", st.Size(), "limit", e.cfg.MaxFileBytes)
		return Result{}, fmt.Errorf("%w: %d bytes (limit %d)", ErrFileTooLarge, st.Size(), e.cfg.MaxFileBytes)
	}

	hashHex, ok := ContentHashFromContext(ctx)
	if !ok {
		if hashHex, err = HashFile(path); err != nil {
			return Result{}, err
		}
	}

	key := cache.OCRKey(hashHex, e.cfg.TesseractLang)
	if e.cache != nil {
		if txt, hit := e.cache.Get(key); hit {
			e.logger.Debug("ocr.cache.hit", "path", path, "hash", hashHex)
			return Result{
				Text:        txt,
				ContentHash: hashHex,
				Method:      "cache",
				Language:    e.cfg.TesseractLang,
				Duration:    time.Since(start),
				Confidence:  heuristicConfidence(txt),
				Cached:      true,
			}, nil
		}
	}

	if e.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.cfg.Timeout)
		defer cancel()
	}
	if e.limiter != nil {
		if err := e.limiter.Wait(ctx); err != nil {
			return Result{}, fmt.Errorf("ocr rate limit: %w", err)
		}
	}

	var warns []string
	if constants.IsHEIC(ext) {
		out, w, cleanup, err := convertHEICtoPNG(ctx, e.runner, e.cfg.HeicConverter, path)
		if cleanup != nil {
			defer cleanup()
		}
		warns = append(warns, w...)
		if err != nil {
			e.logger.Error("ocr.heic.failed", "path", path, "error", err)
			return Result{Warnings: warns}, err
		}
		path = out
	}

	res, err := e.extractImage(ctx, path)
	res.ContentHash = hashHex
	res.Duration = time.Since(start)
	res.Warnings = append(warns, res.Warnings...)
	if err != nil {
		return res, err
	}
	if res.Text == "" {
		e.logger.Warn("ocr.empty", "path", path)
		return res, ErrNoText
	}
	if e.cache != nil {
		e.cache.Set(key, res.Text)
	}
	e.logger.Info("ocr.ok", "path", path, "chars", len(res.Text), "confidence", res.Confidence, "duration_ms", res.Duration.Milliseconds())
	return res, nil
}

// ExtractText is Extract without the metadata.
func (e *Extractor) ExtractText(ctx context.Context, path string) (string, error) {
	res, err := e.Extract(ctx, path)
	if err != nil {
		return "", err
	}
	return res.Text, nil
}

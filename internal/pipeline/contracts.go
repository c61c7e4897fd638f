package pipeline

import (
	"context"

	"github.com/joseph-ayodele/expiry-tracker/internal/entity"
	"github.com/joseph-ayodele/expiry-tracker/internal/ocr"
)

// TextExtractor turns a label image into text. *ocr.Extractor satisfies it.
type TextExtractor interface {
	Extract(ctx context.Context, path string) (ocr.Result, error)
}

// Indexer mirrors stored products into a search index. Indexing an existing
// product replaces its document.
type Indexer interface {
	Index(ctx context.Context, products ...*entity.Product) error
}

type noopIndexer struct{}

func (noopIndexer) Index(context.Context, ...*entity.Product) error { return nil }

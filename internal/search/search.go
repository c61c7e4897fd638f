package search

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/meilisearch/meilisearch-go"

	"github.com/joseph-ayodele/expiry-tracker/internal/common"
	"github.com/joseph-ayodele/expiry-tracker/internal/entity"
)

// Document is the indexed form of a product.
type Document struct {
	ID           string `json:"id"`
	Owner        string `json:"owner"`
	Name         string `json:"name"`
	Manufacturer string `json:"manufacturer,omitempty"`
	ExpiryDate   string `json:"expiry_date,omitempty"`
	Deleted      bool   `json:"deleted"`
}

func toDocument(p *entity.Product) Document {
	d := Document{
		ID:      p.ID.String(),
		Owner:   p.Owner,
		Deleted: p.Deleted,
	}
	if p.Name != nil {
		d.Name = *p.Name
	}
	if p.Manufacturer != nil {
		d.Manufacturer = *p.Manufacturer
	}
	if p.ExpiryDate != nil {
		d.ExpiryDate = p.ExpiryDate.String()
	}
	return d
}

// Index keeps product names searchable in Meilisearch. Soft-deleted products
// stay in the index flagged as deleted and are filtered out of results.
type Index struct {
	client meilisearch.ServiceManager
	uid    string
	logger *slog.Logger
}

// New connects to the Meilisearch instance at cfg.URL.
func New(cfg common.SearchConfig, logger *slog.Logger) *Index {
	if logger == nil {
		logger = slog.Default()
	}
	uid := cfg.Index
	if uid == "" {
		uid = "products"
	}
	return &Index{
		client: meilisearch.New(cfg.URL, meilisearch.WithAPIKey(cfg.APIKey)),
		uid:    uid,
		logger: logger,
	}
}

// Setup creates the index and its settings. An index that already exists is kept.
func (ix *Index) Setup(_ context.Context) error {
	if _, err := ix.client.CreateIndex(&meilisearch.IndexConfig{Uid: ix.uid, PrimaryKey: "id"}); err != nil {
		ix.logger.Warn("search.index.create", "index", ix.uid, "error", err)
	}
	settings := meilisearch.Settings{
		SearchableAttributes: []string{"name", "manufacturer"},
		FilterableAttributes: []string{"owner", "deleted"},
		SortableAttributes:   []string{"expiry_date"},
	}
	if _, err := ix.client.Index(ix.uid).UpdateSettings(&settings); err != nil {
		return fmt.Errorf("%w: search settings: %w", common.ErrUnavailable, err)
	}
	return nil
}

// Index adds or replaces the documents of products.
func (ix *Index) Index(_ context.Context, products ...*entity.Product) error {
	if len(products) == 0 {
		return nil
	}
	docs := make([]Document, 0, len(products))
	for _, p := range products {
		docs = append(docs, toDocument(p))
	}
	if _, err := ix.client.Index(ix.uid).AddDocuments(docs, nil); err != nil {
		return fmt.Errorf("%w: index documents: %w", common.ErrUnavailable, err)
	}
	ix.logger.Debug("search.indexed", "count", len(docs))
	return nil
}

// SearchIDs returns the IDs of the owner's live products matching query, best match first.
func (ix *Index) SearchIDs(_ context.Context, owner, query string, limit int) ([]string, error) {
	if limit <= 0 {
		limit = 1000
	}
	req := &meilisearch.SearchRequest{
		Limit:  int64(limit),
		Filter: fmt.Sprintf("owner = %s AND deleted = false", quote(owner)),
	}
	res, err := ix.client.Index(ix.uid).Search(query, req)
	if err != nil {
		return nil, fmt.Errorf("%w: search: %w", common.ErrUnavailable, err)
	}

	var hits []struct {
		ID string `json:"id"`
	}
	b, err := json.Marshal(res.Hits)
	if err != nil {
		return nil, fmt.Errorf("search hits: %w", err)
	}
	if err := json.Unmarshal(b, &hits); err != nil {
		return nil, fmt.Errorf("search hits: %w", err)
	}
	ids := make([]string, 0, len(hits))
	for _, h := range hits {
		ids = append(ids, h.ID)
	}
	return ids, nil
}

func quote(s string) string {
	return `"` + strings.ReplaceAll(strings.ReplaceAll(s, `\`, `\\`), `"`, `\"`) + `"`
}

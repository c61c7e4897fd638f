package search

import (
	"context"
	"log/slog"
	"strings"

	"github.com/joseph-ayodele/expiry-tracker/internal/entity"
	"github.com/joseph-ayodele/expiry-tracker/internal/repository"
)

// IDSearcher resolves a free-text query to product IDs.
type IDSearcher interface {
	SearchIDs(ctx context.Context, owner, query string, limit int) ([]string, error)
}

// Lister is the product store read used for listing.
type Lister interface {
	List(ctx context.Context, q repository.ListQuery) ([]*entity.Product, error)
}

// Finder answers product list queries. Name searches go to the search index
// when one is configured; if it is absent or failing, the store's substring
// match is used instead.
type Finder struct {
	store  Lister
	index  IDSearcher
	logger *slog.Logger
}

func NewFinder(store Lister, index IDSearcher, logger *slog.Logger) *Finder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Finder{store: store, index: index, logger: logger}
}

// List keeps the store's filter and ordering and narrows it to index hits.
func (f *Finder) List(ctx context.Context, q repository.ListQuery) ([]*entity.Product, error) {
	term := strings.TrimSpace(q.Search)
	if term == "" || f.index == nil {
		return f.store.List(ctx, q)
	}

	ids, err := f.index.SearchIDs(ctx, q.Owner, term, 0)
	if err != nil {
		f.logger.Warn("search.fallback", "owner", q.Owner, "error", err)
		return f.store.List(ctx, q)
	}
	hit := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		hit[id] = struct{}{}
	}

	// paging applies after narrowing
	all := q
	all.Search, all.Limit, all.Offset = "", 0, 0
	items, err := f.store.List(ctx, all)
	if err != nil {
		return nil, err
	}
	out := make([]*entity.Product, 0, len(ids))
	for _, p := range items {
		if _, ok := hit[p.ID.String()]; ok {
			out = append(out, p)
		}
	}
	return page(out, q.Offset, q.Limit), nil
}

func page(items []*entity.Product, offset, limit int) []*entity.Product {
	if offset > len(items) {
		return []*entity.Product{}
	}
	items = items[offset:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}

package search

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/expiry-tracker/internal/common"
	"github.com/joseph-ayodele/expiry-tracker/internal/entity"
	"github.com/joseph-ayodele/expiry-tracker/internal/extract"
	"github.com/joseph-ayodele/expiry-tracker/internal/repository"
)

var quietLog = slog.New(slog.DiscardHandler)

func named(name string) *entity.Product {
	return &entity.Product{ID: uuid.New(), Owner: "me@example.com", Name: &name}
}

type fakeStore struct {
	items []*entity.Product
	last  repository.ListQuery
}

func (s *fakeStore) List(_ context.Context, q repository.ListQuery) ([]*entity.Product, error) {
	s.last = q
	if q.Search == "" {
		return s.items, nil
	}
	var out []*entity.Product
	for _, p := range s.items {
		if strings.Contains(strings.ToLower(p.DisplayName()), strings.ToLower(q.Search)) {
			out = append(out, p)
		}
	}
	return out, nil
}

type fakeIndex struct {
	ids []string
	err error
}

func (f fakeIndex) SearchIDs(context.Context, string, string, int) ([]string, error) {
	return f.ids, f.err
}

func TestFinder_UsesIndexAndKeepsStoreOrder(t *testing.T) {
	milk, oat, bread := named("Milk"), named("Oat Drink"), named("Bread")
	store := &fakeStore{items: []*entity.Product{milk, oat, bread}}
	// the index matched "milk" to the oat drink too
	f := NewFinder(store, fakeIndex{ids: []string{oat.ID.String(), milk.ID.String()}}, quietLog)

	got, err := f.List(context.Background(), repository.ListQuery{Owner: "me@example.com", Search: "milk"})
	require.NoError(t, err)
	assert.Equal(t, []*entity.Product{milk, oat}, got)
	assert.Empty(t, store.last.Search)

	got, err = f.List(context.Background(), repository.ListQuery{Owner: "me@example.com", Search: "milk", Offset: 1, Limit: 5})
	require.NoError(t, err)
	assert.Equal(t, []*entity.Product{oat}, got)

	got, err = f.List(context.Background(), repository.ListQuery{Owner: "me@example.com", Search: "milk", Offset: 9})
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestFinder_FallsBackToStore(t *testing.T) {
	store := &fakeStore{items: []*entity.Product{named("Milk"), named("Bread")}}

	for _, idx := range []IDSearcher{nil, fakeIndex{err: common.ErrUnavailable}} {
		got, err := NewFinder(store, idx, quietLog).List(context.Background(), repository.ListQuery{Search: "bre"})
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, "Bread", got[0].DisplayName())
	}

	got, err := NewFinder(store, fakeIndex{err: errors.New("unused")}, quietLog).List(context.Background(), repository.ListQuery{})
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestToDocument(t *testing.T) {
	d := extract.NewDate(2026, 5, 1)
	p := named("Milk")
	p.ExpiryDate = &d
	p.Deleted = true

	doc := toDocument(p)
	assert.Equal(t, Document{ID: p.ID.String(), Owner: "me@example.com", Name: "Milk", ExpiryDate: "2026-05-01", Deleted: true}, doc)
	assert.Equal(t, `"a\"b\\c"`, quote(`a"b\c`))
}

// fakeMeili answers the document, settings, index and search endpoints.
func fakeMeili(t *testing.T, hitIDs []string) (*httptest.Server, *[]string, *sync.Mutex) {
	t.Helper()
	var (
		mu   sync.Mutex
		seen []string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		mu.Lock()
		seen = append(seen, r.Method+" "+r.URL.Path+" "+string(body))
		mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		if strings.HasSuffix(r.URL.Path, "/search") {
			hits := make([]map[string]any, 0, len(hitIDs))
			for _, id := range hitIDs {
				hits = append(hits, map[string]any{"id": id})
			}
			_ = json.NewEncoder(w).Encode(map[string]any{
				"hits":               hits,
				"query":              "milk",
				"processingTimeMs":   1,
				"limit":              1000,
				"offset":             0,
				"estimatedTotalHits": len(hits),
			})
			return
		}
		w.WriteHeader(http.StatusAccepted)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"taskUid":    1,
			"indexUid":   "products",
			"status":     "enqueued",
			"type":       "documentAdditionOrUpdate",
			"enqueuedAt": time.Now().UTC().Format(time.RFC3339Nano),
		})
	}))
	t.Cleanup(srv.Close)
	return srv, &seen, &mu
}

func TestIndex_AgainstFakeServer(t *testing.T) {
	want := uuid.NewString()
	srv, seen, mu := fakeMeili(t, []string{want})
	ix := New(common.SearchConfig{URL: srv.URL, APIKey: "key"}, quietLog)
	ctx := context.Background()

	require.NoError(t, ix.Setup(ctx))
	require.NoError(t, ix.Index(ctx, named("Milk")))
	require.NoError(t, ix.Index(ctx))

	ids, err := ix.SearchIDs(ctx, "me@example.com", "milk", 0)
	require.NoError(t, err)
	assert.Equal(t, []string{want}, ids)

	mu.Lock()
	defer mu.Unlock()
	joined := strings.Join(*seen, "\n")
	assert.Contains(t, joined, "/indexes/products/documents")
	assert.Contains(t, joined, `"name":"Milk"`)
	assert.Contains(t, joined, `owner = \"me@example.com\" AND deleted = false`)
}

package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/expiry-tracker/constants"
	"github.com/joseph-ayodele/expiry-tracker/internal/common"
	"github.com/joseph-ayodele/expiry-tracker/internal/entity"
	"github.com/joseph-ayodele/expiry-tracker/internal/extract"
	"github.com/joseph-ayodele/expiry-tracker/internal/ocr"
	"github.com/joseph-ayodele/expiry-tracker/internal/repository"
)

const owner = "me@example.com"

type fakeOCR struct {
	mu    sync.Mutex
	text  string
	err   error
	calls int
	hash  string
}

func (f *fakeOCR) Extract(ctx context.Context, path string) (ocr.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.hash, _ = ocr.ContentHashFromContext(ctx)
	if f.err != nil {
		return ocr.Result{}, f.err
	}
	return ocr.Result{Text: f.text, Method: "image-ocr", Confidence: 0.8}, nil
}

type recordingIndexer struct {
	indexed []*entity.Product
	err     error
}

func (r *recordingIndexer) Index(_ context.Context, ps ...*entity.Product) error {
	r.indexed = append(r.indexed, ps...)
	return r.err
}

func newRepo(t *testing.T) repository.ProductRepository {
	t.Helper()
	logger := slog.New(slog.DiscardHandler)
	db, err := repository.Open(context.Background(), repository.Config{SQLitePath: filepath.Join(t.TempDir(), "p.db")}, logger)
	require.NoError(t, err)
	t.Cleanup(db.Close)
	return repository.NewProductRepository(db, logger)
}

func writeImage(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

const labelText = "ORGANIC WHOLE MILK\nMFG BY: Happy Cow Dairy\nBATCH NO: L2231\nEXP: 12/05/2026"

func TestProcessor_ScanImage(t *testing.T) {
	repo := newRepo(t)
	fake := &fakeOCR{text: labelText}
	idx := &recordingIndexer{err: errors.New("index down")}
	p := NewProcessor(slog.New(slog.DiscardHandler), fake, repo, WithIndexer(idx))
	path := writeImage(t, "milk.jpg", "jpeg-bytes")

	res, err := p.ScanImage(context.Background(), owner, path)
	require.NoError(t, err)
	assert.Equal(t, constants.ScanStatusParsed, res.Status)
	require.NotNil(t, res.Product)
	assert.Equal(t, "ORGANIC WHOLE MILK", res.Product.DisplayName())
	assert.Equal(t, "2026-05-12", res.Product.ExpiryDate.String())
	assert.Equal(t, path, *res.Product.SourcePath)
	assert.Equal(t, fake.hash, *res.Product.ContentHash)
	assert.Equal(t, "image-ocr", res.OCR.Method)
	assert.Len(t, idx.indexed, 1, "index failure must not fail the scan")

	again, err := p.ScanImage(context.Background(), owner, writeImage(t, "copy.jpg", "jpeg-bytes"))
	require.NoError(t, err)
	assert.Equal(t, constants.ScanStatusDuplicate, again.Status)
	assert.Equal(t, res.Product.ID, again.Product.ID)
	assert.Equal(t, "L2231", *again.Record.BatchNumber)
	assert.Equal(t, 1, fake.calls)

	other, err := p.ScanImage(context.Background(), "you@example.com", path)
	require.NoError(t, err)
	assert.Equal(t, constants.ScanStatusParsed, other.Status)
	assert.Equal(t, 2, fake.calls)
}

func TestProcessor_ScanImageErrors(t *testing.T) {
	fake := &fakeOCR{err: ocr.ErrNoText}
	p := NewProcessor(nil, fake, newRepo(t))

	res, err := p.ScanImage(context.Background(), owner, writeImage(t, "blank.png", "x"))
	assert.ErrorIs(t, err, ocr.ErrNoText)
	assert.Equal(t, constants.ScanStatusFailed, res.Status)

	res, err = p.ScanImage(context.Background(), owner, writeImage(t, "notes.txt", "x"))
	assert.ErrorIs(t, err, common.ErrInvalidInput)
	assert.ErrorIs(t, err, ocr.ErrUnsupportedFormat)
	assert.Equal(t, constants.ScanStatusFailed, res.Status)

	_, err = p.ScanImage(context.Background(), owner, filepath.Join(t.TempDir(), "missing.jpg"))
	assert.Error(t, err)
	assert.Equal(t, 1, fake.calls)
}

func TestProcessor_ScanImageWithoutStore(t *testing.T) {
	p := NewProcessor(nil, &fakeOCR{text: "nothing useful here"}, nil)
	res, err := p.ScanImage(context.Background(), owner, writeImage(t, "a.webp", "x"))
	require.NoError(t, err)
	assert.Equal(t, constants.ScanStatusParsed, res.Status)
	assert.Nil(t, res.Product)
	assert.Nil(t, res.Record.ExpiryDate)
	assert.Equal(t, extract.ConfidenceNone, res.Record.Confidence)
}

func TestProcessor_ParseText(t *testing.T) {
	repo := newRepo(t)
	p := NewProcessor(nil, &fakeOCR{}, repo)
	ctx := context.Background()

	res, err := p.ParseText(ctx, owner, labelText, false)
	require.NoError(t, err)
	assert.Nil(t, res.Product)
	assert.Equal(t, "Happy Cow Dairy", *res.Record.Manufacturer)

	res, err = p.ParseText(ctx, owner, labelText, true)
	require.NoError(t, err)
	require.NotNil(t, res.Product)
	got, err := repo.Get(ctx, owner, res.Product.ID)
	require.NoError(t, err)
	assert.Equal(t, labelText, *got.RawText)
	assert.Nil(t, got.SourcePath)

	_, err = NewProcessor(nil, &fakeOCR{}, nil).ParseText(ctx, owner, labelText, true)
	assert.ErrorIs(t, err, common.ErrUnavailable)
}

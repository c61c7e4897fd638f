package worker

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/expiry-tracker/constants"
	"github.com/joseph-ayodele/expiry-tracker/internal/pipeline"
)

type fakeScanner struct{}

func (fakeScanner) ScanImage(_ context.Context, owner, path string) (pipeline.ScanResult, error) {
	switch {
	case strings.Contains(path, "dup"):
		return pipeline.ScanResult{Path: path, Status: constants.ScanStatusDuplicate}, nil
	case strings.Contains(path, "bad"):
		return pipeline.ScanResult{Path: path, Status: constants.ScanStatusFailed}, errors.New("ocr failed")
	}
	return pipeline.ScanResult{Path: path, Status: constants.ScanStatusParsed}, nil
}

func TestBatchProcessor_ProcessPathsKeepsOrder(t *testing.T) {
	b := NewBatchProcessor(fakeScanner{}, 3, slog.New(slog.DiscardHandler))
	paths := []string{"a.jpg", "dup.jpg", "b.jpg", "bad.png", "c.jpg", "d.jpg", "e.jpg"}

	results := b.ProcessPaths(context.Background(), "me@example.com", paths)
	require.Len(t, results, len(paths))
	for i, r := range results {
		assert.Equal(t, paths[i], r.Path)
	}

	sum := Summarize(results)
	assert.Equal(t, 7, sum.Total)
	assert.Equal(t, 5, sum.Counts[constants.ScanStatusParsed])
	assert.Equal(t, 1, sum.Counts[constants.ScanStatusDuplicate])
	assert.Equal(t, 1, sum.Counts[constants.ScanStatusFailed])

	assert.Empty(t, b.ProcessPaths(context.Background(), "me@example.com", nil))
}

func TestBatchProcessor_ProcessDir(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"one.jpg", "two.HEIC", "notes.txt"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644))
	}
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "sub", "three.png"), []byte("x"), 0o644))

	b := NewBatchProcessor(fakeScanner{}, 2, slog.New(slog.DiscardHandler))

	flat, err := b.ProcessDir(context.Background(), "", dir, false)
	require.NoError(t, err)
	assert.Len(t, flat, 2)

	deep, err := b.ProcessDir(context.Background(), "", dir, true)
	require.NoError(t, err)
	assert.Len(t, deep, 3)

	_, err = b.ProcessDir(context.Background(), "", filepath.Join(dir, "missing"), false)
	assert.Error(t, err)
}

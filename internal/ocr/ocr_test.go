package ocr

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/expiry-tracker/internal/cache"
)

type call struct {
	name string
	args []string
}

type fakeRunner struct {
	mu     sync.Mutex
	calls  []call
	stdout string
	err    error
}

func (f *fakeRunner) Run(_ context.Context, name string, args ...string) ([]byte, []byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call{name: name, args: args})
	if f.err != nil {
		return nil, []byte("boom"), f.err
	}
	switch name {
	case "magick", "heif-convert":
		if err := os.WriteFile(args[1], []byte("png"), 0o600); err != nil {
			return nil, nil, err
		}
		return nil, nil, nil
	}
	return []byte(f.stdout), nil, nil
}

func (f *fakeRunner) count(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if c.name == name {
			n++
		}
	}
	return n
}

func writeImage(t *testing.T, name string, size int) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(p, []byte(strings.Repeat("x", size)), 0o600))
	return p
}

func quietLogger() *slog.Logger { return slog.New(slog.DiscardHandler) }

func TestExtract(t *testing.T) {
	r := &fakeRunner{stdout: "BEST BEFORE: 15/08/2026\r\n\r\n\r\n\r\nCRUNCHY   CRACKERS  \n-----\n"}
	e := NewExtractor(Config{}, quietLogger(), WithRunner(r))
	img := writeImage(t, "label.jpg", 32)

	res, err := e.Extract(context.Background(), img)
	require.NoError(t, err)

	assert.Equal(t, "BEST BEFORE: 15/08/2026\n\nCRUNCHY CRACKERS", res.Text)
	assert.Equal(t, "image-ocr", res.Method)
	assert.Equal(t, "eng", res.Language)
	assert.False(t, res.Cached)
	assert.Greater(t, res.Confidence, float32(0.2))

	want, err := HashFile(img)
	require.NoError(t, err)
	assert.Equal(t, want, res.ContentHash)

	require.Len(t, r.calls, 1)
	assert.Equal(t, "tesseract", r.calls[0].name)
	assert.Equal(t, []string{img, "stdout", "-l", "eng"}, r.calls[0].args)
}

func TestExtract_Cache(t *testing.T) {
	r := &fakeRunner{stdout: "EXP 01/01/2030"}
	e := NewExtractor(Config{}, quietLogger(), WithRunner(r), WithCache(cache.NewMemoryCache(time.Hour, time.Minute)))
	img := writeImage(t, "label.png", 16)

	first, err := e.Extract(context.Background(), img)
	require.NoError(t, err)
	second, err := e.Extract(context.Background(), img)
	require.NoError(t, err)

	assert.Equal(t, first.Text, second.Text)
	assert.True(t, second.Cached)
	assert.Equal(t, "cache", second.Method)
	assert.Equal(t, 1, r.count("tesseract"))
}

func TestExtract_ContentHashFromContext(t *testing.T) {
	r := &fakeRunner{stdout: "EXP 01/01/2030"}
	e := NewExtractor(Config{}, quietLogger(), WithRunner(r))
	img := writeImage(t, "label.png", 16)

	res, err := e.Extract(WithContentHash(context.Background(), "abc123"), img)
	require.NoError(t, err)
	assert.Equal(t, "abc123", res.ContentHash)
}

func TestExtract_Errors(t *testing.T) {
	t.Run("too large", func(t *testing.T) {
		r := &fakeRunner{stdout: "x"}
		e := NewExtractor(Config{MaxFileBytes: 4}, quietLogger(), WithRunner(r))
		_, err := e.Extract(context.Background(), writeImage(t, "big.jpg", 10))
		assert.ErrorIs(t, err, ErrFileTooLarge)
		assert.Empty(t, r.calls)
	})
	t.Run("unsupported", func(t *testing.T) {
		e := NewExtractor(Config{}, quietLogger(), WithRunner(&fakeRunner{}))
		_, err := e.Extract(context.Background(), writeImage(t, "scan.pdf", 10))
		assert.ErrorIs(t, err, ErrUnsupportedFormat)
	})
	t.Run("missing file", func(t *testing.T) {
		e := NewExtractor(Config{}, quietLogger(), WithRunner(&fakeRunner{}))
		_, err := e.Extract(context.Background(), filepath.Join(t.TempDir(), "nope.jpg"))
		assert.ErrorIs(t, err, os.ErrNotExist)
	})
	t.Run("no text", func(t *testing.T) {
		e := NewExtractor(Config{}, quietLogger(), WithRunner(&fakeRunner{stdout: " \n\t\n"}))
		_, err := e.ExtractText(context.Background(), writeImage(t, "blank.png", 10))
		assert.ErrorIs(t, err, ErrNoText)
	})
	t.Run("tesseract fails", func(t *testing.T) {
		boom := errors.New("exit status 1")
		e := NewExtractor(Config{}, quietLogger(), WithRunner(&fakeRunner{err: boom}))
		res, err := e.Extract(context.Background(), writeImage(t, "label.png", 10))
		assert.ErrorIs(t, err, boom)
		assert.Contains(t, res.Warnings, "boom")
	})
}

func TestExtract_HEIC(t *testing.T) {
	r := &fakeRunner{stdout: "USE BY 10 Oct 2026"}
	e := NewExtractor(Config{HeicConverter: "magick"}, quietLogger(), WithRunner(r))

	text, err := e.ExtractText(context.Background(), writeImage(t, "IMG_0001.HEIC", 10))
	require.NoError(t, err)
	assert.Equal(t, "USE BY 10 Oct 2026", text)
	require.Len(t, r.calls, 2)
	assert.Equal(t, "magick", r.calls[0].name)
	assert.Equal(t, "label.png", filepath.Base(r.calls[1].args[0]))

	e = NewExtractor(Config{}, quietLogger(), WithRunner(r))
	_, err = e.Extract(context.Background(), writeImage(t, "IMG_0002.heic", 10))
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestExtract_RateLimitHonoursContext(t *testing.T) {
	r := &fakeRunner{stdout: "EXP 01/01/2030"}
	e := NewExtractor(Config{}, quietLogger(), WithRunner(r), WithRateLimit(0.001, 1))
	img := writeImage(t, "label.png", 10)

	_, err := e.Extract(context.Background(), img)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = e.Extract(ctx, img)
	assert.Error(t, err)
	assert.Equal(t, 1, r.count("tesseract"))
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, "", Normalize(""))
	assert.Equal(t, "EXP 03.04.2025\nLOT 01", Normalize("  EXP\t03.04.2025  \r\n_____\r\nLOT 01\f"))
	assert.Equal(t, "A\n\nB", Normalize("A\n\n\n\n\nB"))
}

func TestMeanTSVConfidence(t *testing.T) {
	tsv := "level\tpage_num\tblock_num\tpar_num\tline_num\tword_num\tleft\ttop\twidth\theight\tconf\ttext\n" +
		"1\t1\t0\t0\t0\t0\t0\t0\t100\t100\t-1\t\n" +
		"5\t1\t1\t1\t1\t1\t10\t10\t50\t20\t90\tEXP\n" +
		"5\t1\t1\t1\t1\t2\t70\t10\t80\t20\t70\t01/01/2030\n"
	assert.InDelta(t, 0.8, meanTSVConfidence(tsv), 0.0001)
	assert.Equal(t, float32(0), meanTSVConfidence(""))
}

func TestHeuristicConfidence(t *testing.T) {
	assert.Equal(t, float32(0), heuristicConfidence(""))
	plain := heuristicConfidence("hello")
	label := heuristicConfidence("BEST BEFORE 15/08/2026 CRUNCHY CRACKERS SUNRISE FOODS BATCH A123 net weight 200g")
	assert.Greater(t, label, plain)
	assert.LessOrEqual(t, label, float32(1))
}

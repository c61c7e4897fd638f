package ocr

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
)

type ctxKey string

const ctxKeyContentHash ctxKey = "ocr.content_hash_hex"

// WithContentHash stores the hex-encoded SHA256 for downstream reuse.
func WithContentHash(ctx context.Context, hex string) context.Context {
	return context.WithValue(ctx, ctxKeyContentHash, hex)
}

func ContentHashFromContext(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(ctxKeyContentHash).(string)
	return v, ok && v != ""
}

// HashFile returns the hex SHA256 of the file at path.
func HashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("hash %s: %w", path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

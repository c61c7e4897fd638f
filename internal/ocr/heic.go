package ocr

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// convertHEICtoPNG converts a HEIC/HEIF photo (the iPhone default) to a temporary PNG.
// converter: "heif-convert" | "magick" | "sips"
//
// Returns (outPath, warnings, cleanup, err). cleanup is non-nil whenever a temp dir was made.
func convertHEICtoPNG(ctx context.Context, r Runner, converter, in string) (string, []string, func(), error) {
	tmpDir, err := os.MkdirTemp("", "expiry-heic-*")
	if err != nil {
		return "", nil, nil, err
	}
	cleanup := func() { _ = os.RemoveAll(tmpDir) }
	out := filepath.Join(tmpDir, "label.png")

	var errb []byte
	switch converter {
	case "heif-convert":
		_, errb, err = r.Run(ctx, "heif-convert", in, out)
	case "magick":
		_, errb, err = r.Run(ctx, "magick", in, out)
	case "sips":
		_, errb, err = r.Run(ctx, "sips", "-s", "format", "png", in, "--out", out)
	default:
		return "", nil, cleanup, fmt.Errorf("%w: HEIC needs HEIC_CONVERTER set to heif-convert, magick or sips", ErrUnsupportedFormat)
	}
	if err != nil {
		return "", []string{string(errb)}, cleanup, fmt.Errorf("%s convert failed: %w", converter, err)
	}

	if _, statErr := os.Stat(out); statErr != nil {
		return "", nil, cleanup, fmt.Errorf("HEIC conversion produced no output: %w", statErr)
	}
	return out, nil, cleanup, nil
}

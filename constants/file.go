package constants

import (
	"path/filepath"
	"strings"
)

// MaxLabelFileBytes is the largest label image accepted for OCR.
const MaxLabelFileBytes int64 = 50 << 20

// ImageExtensions holds the label image formats accepted for scanning.
var ImageExtensions = map[string]struct{}{
	"jpg":  {},
	"jpeg": {},
	"png":  {},
	"tif":  {},
	"tiff": {},
	"bmp":  {},
	"webp": {},
	"heic": {},
	"heif": {},
}

// NormalizeExt lowercases and trims the dot from a file extension.
func NormalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}

// IsLabelImage reports whether path has an accepted image extension.
func IsLabelImage(path string) bool {
	_, ok := ImageExtensions[NormalizeExt(filepath.Ext(path))]
	return ok
}

// IsHEIC reports whether the extension needs conversion before OCR.
func IsHEIC(ext string) bool {
	switch NormalizeExt(ext) {
	case "heic", "heif":
		return true
	}
	return false
}

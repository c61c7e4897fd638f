package ingest

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/joseph-ayodele/expiry-tracker/constants"
)

// ListImages returns the label images under root, sorted. Hidden files and
// directories are skipped; subdirectories are entered only when recursive.
func ListImages(root string, recursive bool) ([]string, error) {
	if strings.TrimSpace(root) == "" {
		return nil, errors.New("root path is required")
	}
	st, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", root, err)
	}
	if !st.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", root)
	}

	var out []string
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if path == root {
			return nil
		}
		if IsHidden(path) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			if !recursive {
				return filepath.SkipDir
			}
			return nil
		}
		if constants.IsLabelImage(path) {
			out = append(out, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk: %w", err)
	}
	sort.Strings(out)
	return out, nil
}

// IsHidden checks if a file or directory is hidden (starts with '.').
func IsHidden(path string) bool {
	return strings.HasPrefix(filepath.Base(path), ".")
}

package pics

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/acm19/offload/internal/logger"
)

// FileStats defines the interface for source directory checks and discovery
type FileStats interface {
	// ValidateSource checks that the source directory exists
	ValidateSource(sourceDir string) error
	// ListCandidates returns the image files under dir in walk order
	ListCandidates(dir string) ([]string, error)
}

// fileStats implements the FileStats interface
type fileStats struct {
	extensions Extensions
}

// NewFileStats creates a new FileStats instance
func NewFileStats() FileStats {
	return &fileStats{extensions: NewExtensions()}
}

// ValidateSource checks that the source directory exists
func (f *fileStats) ValidateSource(sourceDir string) error {
	if info, err := os.Stat(sourceDir); err != nil || !info.IsDir() {
		return fmt.Errorf("SOURCE_DIR is not a valid directory: %s", sourceDir)
	}
	return nil
}

// ListCandidates walks dir in lexical order and returns every file on the
// image allow-list. Dot files and dot directories are skipped.
func (f *fileStats) ListCandidates(dir string) ([]string, error) {
	var candidates []string
	skippedDot := 0
	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		// Skip dot files (e.g. macOS ._IMG_0001.JPG) and dot directories
		if path != dir && strings.HasPrefix(info.Name(), ".") {
			if info.IsDir() {
				return filepath.SkipDir
			}
			if f.extensions.IsImage(path) {
				skippedDot++
			}
			return nil
		}

		if info.Mode().IsRegular() && f.extensions.IsImage(path) {
			candidates = append(candidates, path)
		}
		return nil
	})
	if skippedDot > 0 {
		logger.Debug("Skipped hidden image files", "dir", dir, "count", skippedDot)
	}
	return candidates, err
}

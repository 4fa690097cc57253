package pics

import (
	"path/filepath"
	"slices"
	"strings"
)

// Extensions defines the interface for file extension operations.
type Extensions interface {
	// IsImage returns true if the file extension is on the image allow-list.
	IsImage(filePath string) bool
	// IsRaw returns true if the file extension is a camera raw format.
	// Raw files never have their embedded metadata read.
	IsRaw(filePath string) bool
	// IsJPEG returns true if the file extension is JPEG (jpg or jpeg).
	IsJPEG(filePath string) bool
}

// extensions implements the Extensions interface.
type extensions struct {
	imageExts []string
	rawExts   []string
}

// NewExtensions creates a new Extensions instance.
func NewExtensions() Extensions {
	return &extensions{
		imageExts: []string{".jpg", ".jpeg", ".png", ".heic"},
		rawExts:   []string{".arw", ".cr2", ".cr3", ".nef", ".dng", ".raf", ".orf", ".rw2"},
	}
}

// IsImage returns true if the file extension is on the image allow-list.
func (e *extensions) IsImage(filePath string) bool {
	ext := normaliseExt(filePath)
	return slices.Contains(e.imageExts, ext) || slices.Contains(e.rawExts, ext)
}

// IsRaw returns true if the file extension is a camera raw format.
func (e *extensions) IsRaw(filePath string) bool {
	return slices.Contains(e.rawExts, normaliseExt(filePath))
}

// IsJPEG returns true if the file extension is JPEG (jpg or jpeg).
func (e *extensions) IsJPEG(filePath string) bool {
	ext := normaliseExt(filePath)
	return ext == ".jpg" || ext == ".jpeg"
}

func normaliseExt(filePath string) string {
	return strings.ToLower(filepath.Ext(filePath))
}

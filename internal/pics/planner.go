package pics

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// FolderLayout is the time layout of date folders (MM-DD-YYYY).
const FolderLayout = "01-02-2006"

// Plan is where a single source file is copied to.
type Plan struct {
	// Folder is the date folder under the destination root.
	Folder string
	// File is the target path inside Folder, keeping the source file name.
	File string
}

// Planner maps resolved dates to destination paths
type Planner struct {
	destRoot string
}

// NewPlanner creates a Planner rooted at destRoot.
func NewPlanner(destRoot string) *Planner {
	return &Planner{destRoot: destRoot}
}

// FolderName returns the date folder name for date.
func FolderName(date time.Time) string {
	return date.Format(FolderLayout)
}

// ParseFolderName reports whether name is a date folder and returns its date.
func ParseFolderName(name string) (time.Time, bool) {
	date, err := time.ParseInLocation(FolderLayout, name, time.Local)
	if err != nil {
		return time.Time{}, false
	}
	return date, true
}

// Plan computes the destination of srcPath for the given date. Files sharing
// a base name land on the same target regardless of their source folder.
func (p *Planner) Plan(date time.Time, srcPath string) Plan {
	folder := filepath.Join(p.destRoot, FolderName(date))
	return Plan{
		Folder: folder,
		File:   filepath.Join(folder, filepath.Base(srcPath)),
	}
}

// Prepare creates the plan's date folder and any missing parents.
func (p *Planner) Prepare(plan Plan) error {
	if err := os.MkdirAll(plan.Folder, 0755); err != nil {
		return fmt.Errorf("failed to create folder %s: %w", plan.Folder, err)
	}
	return nil
}

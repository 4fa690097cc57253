package pics

import (
	"fmt"
	"time"
)

// OffloadOptions holds the fixed configuration of a copy run.
type OffloadOptions struct {
	// SourceDir is the card folder scanned recursively for images.
	SourceDir string
	// DestDir is the root under which date folders are created.
	DestDir string
	// LogFileName is the run log kept in DestDir.
	LogFileName string
}

// DefaultOffloadOptions returns the default copy configuration.
func DefaultOffloadOptions() OffloadOptions {
	return OffloadOptions{
		SourceDir:   "I:/DCIM",
		DestDir:     "G:/2025",
		LogFileName: "copy_log.txt",
	}
}

// RunStats are the totals of one copy run.
type RunStats struct {
	// Total is the number of candidate files found.
	Total int
	// Copied is the number of files written to the destination.
	Copied int
	// Skipped is the number of collisions the user chose not to overwrite.
	Skipped int
	// Errored is the number of files that failed and were logged.
	Errored int
	// Start and End bound the run.
	Start time.Time
	End   time.Time
}

// Duration returns how long the run took.
func (s RunStats) Duration() time.Duration {
	return s.End.Sub(s.Start)
}

// Summary is the end-of-run message shown to the user.
func (s RunStats) Summary() string {
	msg := fmt.Sprintf("Copied %d of %d files", s.Copied, s.Total)
	if s.Skipped > 0 {
		msg += fmt.Sprintf(", skipped %d", s.Skipped)
	}
	if s.Errored > 0 {
		msg += fmt.Sprintf(", %d failed (see log)", s.Errored)
	}
	return msg + " in " + FormatDuration(s.Duration(), false)
}

// BackupEvent represents a progress update while backing up date folders.
type BackupEvent struct {
	// Current is the number of folders handled so far.
	Current int
	// Total is the number of folders to back up.
	Total int
	// Folder is the date folder just handled.
	Folder string
	// Err is set when the folder failed.
	Err error
}

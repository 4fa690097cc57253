package pics

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"
)

// RunLogTimeLayout is the ISO-8601 layout that prefixes every run log line.
const RunLogTimeLayout = "2006-01-02T15:04:05.000000"

// RunLog is the append-only, line-oriented record of copy runs kept in the
// destination root. Each line reads "<timestamp> - <event>".
type RunLog struct {
	w   io.Writer
	now func() time.Time
}

// NewRunLog writes run log lines to w, stamped with now.
func NewRunLog(w io.Writer, now func() time.Time) *RunLog {
	return &RunLog{w: w, now: now}
}

// OpenRunLog opens (or creates) the run log file for appending.
func OpenRunLog(destDir, fileName string, now func() time.Time) (*RunLog, io.Closer, error) {
	path := filepath.Join(destDir, fileName)
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open run log %s: %w", path, err)
	}
	return NewRunLog(f, now), f, nil
}

func (l *RunLog) write(format string, args ...any) error {
	line := fmt.Sprintf("%s - %s\n", l.now().Format(RunLogTimeLayout), fmt.Sprintf(format, args...))
	_, err := io.WriteString(l.w, line)
	return err
}

// Started records the start of a run.
func (l *RunLog) Started(sourceDir, destDir string) error {
	return l.write("Starting copy from %s to %s", sourceDir, destDir)
}

// CopyError records a file that could not be copied.
func (l *RunLog) CopyError(filePath string, err error) error {
	return l.write("Error copying %s: %v", filePath, err)
}

// Completed records the run totals.
func (l *RunLog) Completed(stats RunStats) error {
	return l.write("Completed. Files: %d, copied: %d, skipped: %d, Duration: %s",
		stats.Total, stats.Copied, stats.Skipped, FormatDuration(stats.Duration(), true))
}

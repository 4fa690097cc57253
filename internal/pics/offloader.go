package pics

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/acm19/offload/internal/logger"
)

// Offloader defines the interface for copying a card into date folders
type Offloader interface {
	// Run copies every image under sourceDir into date folders under destDir.
	//
	// Files are processed one at a time in discovery order. A file whose
	// target already exists goes through the collision prompt; a file that
	// cannot be placed or copied is recorded in the run log and the run
	// continues. Run only fails for problems that stop the whole run: an
	// invalid source, an unusable destination, or a failed prompt.
	Run(sourceDir, destDir string) (RunStats, error)
}

// offloader implements the Offloader interface
type offloader struct {
	stats       FileStats
	resolver    *DateResolver
	presenter   Presenter
	prompter    Prompter
	logFileName string
	now         func() time.Time
}

// NewOffloader creates a new Offloader. The presenter receives progress
// updates and the prompter answers collisions.
func NewOffloader(resolver *DateResolver, presenter Presenter, prompter Prompter, opts OffloadOptions) Offloader {
	return &offloader{
		stats:       NewFileStats(),
		resolver:    resolver,
		presenter:   presenter,
		prompter:    prompter,
		logFileName: opts.LogFileName,
		now:         time.Now,
	}
}

// Run copies every image under sourceDir into date folders under destDir
func (o *offloader) Run(sourceDir, destDir string) (RunStats, error) {
	if err := o.stats.ValidateSource(sourceDir); err != nil {
		return RunStats{}, err
	}
	if err := os.MkdirAll(destDir, 0755); err != nil {
		return RunStats{}, fmt.Errorf("failed to create destination %s: %w", destDir, err)
	}

	runLog, closer, err := OpenRunLog(destDir, o.logFileName, o.now)
	if err != nil {
		return RunStats{}, err
	}
	defer closer.Close()

	logger.Info("Discovering files", "source", sourceDir)
	candidates, err := o.stats.ListCandidates(sourceDir)
	if err != nil {
		return RunStats{}, fmt.Errorf("failed to scan %s: %w", sourceDir, err)
	}
	logger.Info("Discovery complete", "files", len(candidates))

	stats := RunStats{Total: len(candidates), Start: o.now()}
	o.writeLog(runLog.Started(sourceDir, destDir))

	planner := NewPlanner(destDir)
	collisions := NewCollisionResolver(o.prompter)

	for i, filePath := range candidates {
		current := i + 1
		o.presenter.ShowCurrent(filepath.Base(filepath.Dir(filePath)), filepath.Base(filePath))
		o.presenter.ShowProgress(current, stats.Total)
		elapsed := o.now().Sub(stats.Start)
		o.presenter.ShowTimes(elapsed, EstimateRemaining(elapsed, current, stats.Total))

		plan, err := o.place(planner, filePath)
		if err != nil {
			o.recordError(runLog, &stats, filePath, err)
			continue
		}

		outcome, err := collisions.Resolve(plan.File)
		if errors.Is(err, errTargetUnknown) {
			o.recordError(runLog, &stats, filePath, err)
			continue
		}
		if err != nil {
			return stats, fmt.Errorf("copy aborted at %s: %w", filePath, err)
		}
		if outcome == OutcomeSkip {
			logger.Debug("Skipping existing file", "file", plan.File, "policy", collisions.Policy())
			stats.Skipped++
			continue
		}

		if err := copyFilePreserveMetadata(filePath, plan.File); err != nil {
			o.recordError(runLog, &stats, filePath, err)
			continue
		}
		stats.Copied++
	}

	stats.End = o.now()
	o.writeLog(runLog.Completed(stats))
	logger.Info("Copy completed", "files", stats.Total, "copied", stats.Copied, "skipped", stats.Skipped, "errors", stats.Errored, "duration", stats.Duration())
	o.presenter.Notify(stats.Summary())
	return stats, nil
}

// place resolves the date of filePath and creates its date folder
func (o *offloader) place(planner *Planner, filePath string) (Plan, error) {
	date, err := o.resolver.ResolveDate(filePath)
	if err != nil {
		return Plan{}, fmt.Errorf("failed to resolve date: %w", err)
	}

	plan := planner.Plan(date, filePath)
	if err := planner.Prepare(plan); err != nil {
		return Plan{}, err
	}
	return plan, nil
}

func (o *offloader) recordError(runLog *RunLog, stats *RunStats, filePath string, err error) {
	logger.Error("Failed to copy file", "file", filePath, "error", err)
	stats.Errored++
	o.writeLog(runLog.CopyError(filePath, err))
}

// writeLog reports run log write failures without stopping the run
func (o *offloader) writeLog(err error) {
	if err != nil {
		logger.Warn("Failed to write run log", "error", err)
	}
}

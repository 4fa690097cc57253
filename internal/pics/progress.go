package pics

import (
	"fmt"
	"time"
)

// Presenter is the display side of a copy run. All calls are synchronous and
// made from the run's goroutine.
type Presenter interface {
	// ShowCurrent displays the file being processed and its source folder name.
	ShowCurrent(folder, file string)
	// ShowProgress displays current out of total files.
	ShowProgress(current, total int)
	// ShowTimes displays the elapsed and estimated remaining time.
	ShowTimes(elapsed, remaining time.Duration)
	// Notify displays the end-of-run summary.
	Notify(summary string)
}

// EstimateRemaining extrapolates the remaining time linearly from the
// average time per processed file.
func EstimateRemaining(elapsed time.Duration, processed, total int) time.Duration {
	if processed <= 0 || total <= processed {
		return 0
	}
	return elapsed / time.Duration(processed) * time.Duration(total-processed)
}

// FormatClock formats d as HH:MM:SS, truncating fractional seconds.
// Hours keep growing past 99.
func FormatClock(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	secs := int64(d / time.Second)
	return fmt.Sprintf("%02d:%02d:%02d", secs/3600, secs%3600/60, secs%60)
}

// FormatDuration formats d as H:MM:SS, followed by .ffffff when micros is set
// and d has a fractional second.
func FormatDuration(d time.Duration, micros bool) string {
	if d < 0 {
		d = 0
	}
	secs := int64(d / time.Second)
	out := fmt.Sprintf("%d:%02d:%02d", secs/3600, secs%3600/60, secs%60)
	if frac := (d % time.Second) / time.Microsecond; micros && frac > 0 {
		out += fmt.Sprintf(".%06d", int64(frac))
	}
	return out
}

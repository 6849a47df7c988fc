package progress

import (
	"fmt"
	"time"
)

// ETAEstimator derives elapsed time and a remaining-time estimate from
// completed work, either items of a fan-out or a job's percent complete.
type ETAEstimator struct {
	startTime  time.Time
	operation  string
	total      float64
	done       float64
	lastUpdate time.Time
}

// NewETAEstimator tracks total units of work.
func NewETAEstimator(operation string, total int) *ETAEstimator {
	now := time.Now()
	return &ETAEstimator{
		startTime:  now,
		operation:  operation,
		total:      float64(total),
		lastUpdate: now,
	}
}

// NewJobEstimator tracks a job reporting progress in percent.
func NewJobEstimator(operation string) *ETAEstimator {
	return NewETAEstimator(operation, 100)
}

// UpdateProgress sets the completed units.
func (e *ETAEstimator) UpdateProgress(done float64) {
	if done > e.total {
		done = e.total
	}
	e.done = done
	e.lastUpdate = time.Now()
}

// Elapsed returns the time since the estimator was created.
func (e *ETAEstimator) Elapsed() time.Duration {
	return time.Since(e.startTime)
}

// ETA estimates the remaining time from the average rate so far.
func (e *ETAEstimator) ETA() time.Duration {
	if e.done <= 0 || e.total == 0 {
		return 0
	}
	perUnit := float64(e.Elapsed()) / e.done
	return time.Duration(perUnit * (e.total - e.done))
}

// Percent returns completion in percent.
func (e *ETAEstimator) Percent() float64 {
	if e.total == 0 {
		return 0
	}
	return e.done / e.total * 100
}

// FormatETA renders the estimate, e.g. "~40m remaining".
func (e *ETAEstimator) FormatETA() string {
	eta := e.ETA()
	if eta == 0 {
		return "calculating..."
	}
	return "~" + FormatDuration(eta) + " remaining"
}

// FormatProgress renders "5/13 (38%)".
func (e *ETAEstimator) FormatProgress() string {
	return fmt.Sprintf("%.0f/%.0f (%.0f%%)", e.done, e.total, e.Percent())
}

// Status builds one status line for message.
func (e *ETAEstimator) Status(message string) string {
	if e.done <= 0 {
		return fmt.Sprintf("%s | Elapsed: %s", message, FormatDuration(e.Elapsed()))
	}
	return fmt.Sprintf("%s | %.0f%% | Elapsed: %s | ETA: %s",
		message, e.Percent(), FormatDuration(e.Elapsed()), e.FormatETA())
}

// FormatDuration renders d compactly: "< 1s", "45s", "3m 10s", "2h 30m".
func FormatDuration(d time.Duration) string {
	if d < time.Second {
		return "< 1s"
	}

	hours := int(d.Hours())
	minutes := int(d.Minutes()) % 60
	seconds := int(d.Seconds()) % 60

	if hours > 0 {
		if minutes > 0 {
			return fmt.Sprintf("%dh %dm", hours, minutes)
		}
		return fmt.Sprintf("%dh", hours)
	}

	if minutes > 0 {
		if seconds > 5 {
			return fmt.Sprintf("%dm %ds", minutes, seconds)
		}
		return fmt.Sprintf("%dm", minutes)
	}

	return fmt.Sprintf("%ds", seconds)
}

package metrics

import (
	"fmt"
	"sync"
	"time"

	"rbkoracle/internal/logger"
)

// JobMetrics describes one awaited appliance job.
type JobMetrics struct {
	Operation string        `json:"operation"`
	Database  string        `json:"database"`
	JobID     string        `json:"job_id"`
	Status    string        `json:"status"`
	StartTime time.Time     `json:"start_time"`
	Duration  time.Duration `json:"duration"`
	Polls     int           `json:"polls"`
	Success   bool          `json:"success"`
}

// Collector collects and reports job metrics
type Collector struct {
	jobs   []JobMetrics
	mu     sync.RWMutex
	logger logger.Logger
}

// NewCollector creates a new metrics collector
func NewCollector(log logger.Logger) *Collector {
	return &Collector{logger: log}
}

// Global is the process-wide collector
var Global *Collector

// InitGlobal initializes the process-wide collector
func InitGlobal(log logger.Logger) {
	Global = NewCollector(log)
}

// Record records m on the process-wide collector when one is set.
func Record(m JobMetrics) {
	if Global != nil {
		Global.RecordJob(m)
	}
}

// RecordJob records a job that reached a terminal state, timed out or
// failed to poll.
func (c *Collector) RecordJob(m JobMetrics) {
	if m.Duration == 0 && !m.StartTime.IsZero() {
		m.Duration = time.Since(m.StartTime)
	}

	c.mu.Lock()
	c.jobs = append(c.jobs, m)
	c.mu.Unlock()

	if c.logger == nil {
		return
	}
	fields := map[string]interface{}{
		"metric_type": "job_complete",
		"operation":   m.Operation,
		"database":    m.Database,
		"job_id":      m.JobID,
		"status":      m.Status,
		"duration_ms": m.Duration.Milliseconds(),
		"polls":       m.Polls,
		"success":     m.Success,
	}
	if m.Success {
		c.logger.WithFields(fields).Debug("Job completed successfully")
	} else {
		c.logger.WithFields(fields).Debug("Job did not succeed")
	}
}

// Jobs returns a copy of all collected metrics
func (c *Collector) Jobs() []JobMetrics {
	c.mu.RLock()
	defer c.mu.RUnlock()

	result := make([]JobMetrics, len(c.jobs))
	copy(result, c.jobs)
	return result
}

// Summary is the aggregate over all recorded jobs.
type Summary struct {
	Total     int
	Succeeded int
	Failed    int
	Elapsed   time.Duration
	Longest   JobMetrics
}

// Summary aggregates the recorded jobs.
func (c *Collector) Summary() Summary {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var s Summary
	for _, m := range c.jobs {
		s.Total++
		if m.Success {
			s.Succeeded++
		} else {
			s.Failed++
		}
		s.Elapsed += m.Duration
		if m.Duration > s.Longest.Duration {
			s.Longest = m
		}
	}
	return s
}

// String renders the one-line session summary.
func (s Summary) String() string {
	if s.Total == 0 {
		return "no jobs awaited"
	}
	line := fmt.Sprintf("%d job(s): %d succeeded, %d failed, %s waiting",
		s.Total, s.Succeeded, s.Failed, logger.FormatDuration(s.Elapsed))
	if s.Total > 1 {
		line += fmt.Sprintf(", longest %s %s (%s)", s.Longest.Operation, s.Longest.Database,
			logger.FormatDuration(s.Longest.Duration))
	}
	return line
}

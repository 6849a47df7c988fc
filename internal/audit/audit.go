// Package audit records mutating appliance requests and their outcomes.
package audit

import (
	"os"
	"time"

	"rbkoracle/internal/logger"
)

// Event is one auditable action.
type Event struct {
	Timestamp time.Time
	User      string
	Action    string
	Resource  string
	Result    string
	Details   map[string]interface{}
}

// Logger writes audit events through the application logger.
type Logger struct {
	log     logger.Logger
	user    string
	enabled bool
}

// New creates an audit logger attributing events to the current OS user.
func New(log logger.Logger, enabled bool) *Logger {
	return &Logger{
		log:     log,
		user:    CurrentUser(),
		enabled: enabled,
	}
}

// With returns a copy of a that writes through log.
func (a *Logger) With(log logger.Logger) *Logger {
	c := *a
	c.log = log
	return &c
}

// RequestSubmitted logs an accepted mutating request.
func (a *Logger) RequestSubmitted(operation, resource, jobID string, details map[string]interface{}) {
	if !a.enabled {
		return
	}

	fields := map[string]interface{}{
		"operation": operation,
		"job_id":    jobID,
	}
	for k, v := range details {
		fields[k] = v
	}

	a.logEvent(Event{
		Timestamp: time.Now(),
		User:      a.user,
		Action:    "REQUEST_SUBMITTED",
		Resource:  resource,
		Result:    "INITIATED",
		Details:   fields,
	})
}

// JobComplete logs a job that ended SUCCEEDED.
func (a *Logger) JobComplete(operation, resource, jobID string, duration time.Duration) {
	if !a.enabled {
		return
	}

	a.logEvent(Event{
		Timestamp: time.Now(),
		User:      a.user,
		Action:    "JOB_COMPLETE",
		Resource:  resource,
		Result:    "SUCCESS",
		Details: map[string]interface{}{
			"operation":        operation,
			"job_id":           jobID,
			"duration_seconds": duration.Seconds(),
		},
	})
}

// JobFailed logs a job that failed, timed out or could not be submitted.
func (a *Logger) JobFailed(operation, resource, jobID string, err error) {
	if !a.enabled {
		return
	}

	details := map[string]interface{}{
		"operation": operation,
		"job_id":    jobID,
	}
	if err != nil {
		details["error"] = err.Error()
	}

	a.logEvent(Event{
		Timestamp: time.Now(),
		User:      a.user,
		Action:    "JOB_FAILED",
		Resource:  resource,
		Result:    "FAILURE",
		Details:   details,
	})
}

// LocalAction logs a change made on the local Oracle host.
func (a *Logger) LocalAction(action, resource string, err error) {
	if !a.enabled {
		return
	}

	result := "SUCCESS"
	details := map[string]interface{}{}
	if err != nil {
		result = "FAILURE"
		details["error"] = err.Error()
	}

	a.logEvent(Event{
		Timestamp: time.Now(),
		User:      a.user,
		Action:    action,
		Resource:  resource,
		Result:    result,
		Details:   details,
	})
}

func (a *Logger) logEvent(event Event) {
	fields := map[string]interface{}{
		"audit":     true,
		"timestamp": event.Timestamp.Format(time.RFC3339),
		"user":      event.User,
		"action":    event.Action,
		"resource":  event.Resource,
		"result":    event.Result,
	}

	for k, v := range event.Details {
		fields[k] = v
	}

	a.log.WithFields(fields).Info("AUDIT")
}

// CurrentUser returns the login name of the invoking user.
func CurrentUser() string {
	if user := os.Getenv("USER"); user != "" {
		return user
	}
	if user := os.Getenv("USERNAME"); user != "" {
		return user
	}
	return "unknown"
}

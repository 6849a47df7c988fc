// Package wait polls asynchronous appliance jobs until they reach a
// terminal state or the caller's budget runs out.
package wait

import (
	"context"
	"net/url"
	"time"

	"rbkoracle/internal/errs"
	"rbkoracle/internal/logger"
	"rbkoracle/internal/rubrik"
)

// DefaultInterval is the pause between two polls.
const DefaultInterval = 10 * time.Second

// Default budgets per operation.
const (
	MountTimeout    = 20 * time.Minute
	CloneTimeout    = 12 * time.Minute
	JobTimeout      = 12 * time.Minute
	ValidateTimeout = 120 * time.Minute
	SLATimeout      = 15 * time.Minute
)

// Getter reads an appliance resource. *rubrik.Session implements it.
type Getter interface {
	Get(ctx context.Context, version, path string, out any) error
}

// Poll is what an observer sees after each poll.
type Poll struct {
	JobID    string
	Status   string
	Progress float64
	Elapsed  time.Duration
	Count    int
	Terminal bool
}

// Observer is called after every poll.
type Observer func(Poll)

// Waiter polls job status resources.
type Waiter struct {
	api      Getter
	interval time.Duration
	observer Observer
	log      logger.Logger
}

// Option configures a Waiter.
type Option func(*Waiter)

// WithInterval overrides the poll interval.
func WithInterval(d time.Duration) Option {
	return func(w *Waiter) {
		if d > 0 {
			w.interval = d
		}
	}
}

// WithObserver replaces the default progress log line.
func WithObserver(o Observer) Option {
	return func(w *Waiter) {
		if o != nil {
			w.observer = o
		}
	}
}

// New creates a waiter reading through api.
func New(api Getter, log logger.Logger, opts ...Option) *Waiter {
	if log == nil {
		log = logger.NewNullLogger()
	}
	w := &Waiter{api: api, interval: DefaultInterval, log: log}
	w.observer = w.logPoll
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Wait polls job id until it is terminal and returns the last state, whether
// it succeeded or not. When timeout elapses first it fails with Timeout
// carrying the last status; the job keeps running on the appliance. A failed
// poll is returned immediately.
func (w *Waiter) Wait(ctx context.Context, id string, timeout time.Duration) (*rubrik.AsyncRequest, error) {
	start := time.Now()
	path := "/oracle/request/" + url.PathEscape(id)

	for count := 1; ; count++ {
		job := &rubrik.AsyncRequest{}
		if err := w.api.Get(ctx, rubrik.Internal, path, job); err != nil {
			return nil, err
		}
		elapsed := time.Since(start)
		w.observer(Poll{
			JobID:    id,
			Status:   job.Status,
			Progress: job.Progress,
			Elapsed:  elapsed,
			Count:    count,
			Terminal: job.Terminal(),
		})

		if job.Terminal() {
			return job, nil
		}
		if elapsed >= timeout {
			return job, errs.Timeout(job.Status, "job %s did not finish within %s, last status %s; it is still running on the appliance",
				id, logger.FormatDuration(timeout), job.Status)
		}
		if err := w.sleep(ctx); err != nil {
			return job, err
		}
	}
}

// RequireSuccess turns a terminal non-success job into JobFailed.
func RequireSuccess(job *rubrik.AsyncRequest, operation string) error {
	if job == nil || job.Succeeded() {
		return nil
	}
	if msg := job.ErrorMessage(); msg != "" {
		return errs.JobFailed(job.Status, "%s did not complete successfully, ended with status %s: %s", operation, job.Status, msg)
	}
	return errs.JobFailed(job.Status, "%s did not complete successfully, ended with status %s", operation, job.Status)
}

// SLAExpectation is the protection state an SLA change should reach.
type SLAExpectation struct {
	// Name is the expected effective SLA domain name.
	Name string
	// Derived expects the assignment to be inherited instead.
	Derived bool
}

// Met reports whether db is in the expected state.
func (e SLAExpectation) Met(db *rubrik.OracleDB) bool {
	if e.Derived {
		return db.SLAAssignment == rubrik.AssignmentDerived
	}
	return db.SLAName() == e.Name
}

func (e SLAExpectation) String() string {
	if e.Derived {
		return "inherited SLA"
	}
	return "SLA " + e.Name
}

// Fetcher re-reads the database object.
type Fetcher func(ctx context.Context) (*rubrik.OracleDB, error)

// WaitForSLA re-fetches the database until its protection matches want.
func (w *Waiter) WaitForSLA(ctx context.Context, fetch Fetcher, want SLAExpectation, timeout time.Duration) (*rubrik.OracleDB, error) {
	start := time.Now()
	for count := 1; ; count++ {
		db, err := fetch(ctx)
		if err != nil {
			return nil, err
		}
		met := want.Met(db)
		elapsed := time.Since(start)
		w.observer(Poll{
			JobID:    db.ID,
			Status:   db.SLAName(),
			Elapsed:  elapsed,
			Count:    count,
			Terminal: met,
		})

		if met {
			return db, nil
		}
		if elapsed >= timeout {
			return db, errs.Timeout(db.SLAName(), "%s did not reach %s within %s, current SLA %q",
				db.Name, want, logger.FormatDuration(timeout), db.SLAName())
		}
		if err := w.sleep(ctx); err != nil {
			return db, err
		}
	}
}

func (w *Waiter) sleep(ctx context.Context) error {
	timer := time.NewTimer(w.interval)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (w *Waiter) logPoll(p Poll) {
	w.log.Info("Waiting for job", "job_id", p.JobID, "status", p.Status, "elapsed", logger.FormatDuration(p.Elapsed), "poll", p.Count)
}

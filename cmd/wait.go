package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/mattn/go-isatty"

	"rbkoracle/internal/logger"
	"rbkoracle/internal/metrics"
	"rbkoracle/internal/progress"
	"rbkoracle/internal/rubrik"
	"rbkoracle/internal/tui"
	"rbkoracle/internal/wait"
)

// interactive reports whether progress may redraw stderr in place.
func interactive() bool {
	fd := os.Stderr.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// await polls job until it is terminal, showing progress as configured,
// and records the outcome. A job that ends without success is JobFailed.
func (s *session) await(ctx context.Context, operation, database string, job *rubrik.AsyncRequest, timeout time.Duration) (*rubrik.AsyncRequest, error) {
	timeout = cfg.WaitTimeout(timeout)
	start := time.Now()
	title := fmt.Sprintf("%s %s", operation, database)

	var (
		final *rubrik.AsyncRequest
		polls int
		err   error
	)
	run := func(ctx context.Context, observe wait.Observer) (string, error) {
		counted := func(p wait.Poll) {
			polls = p.Count
			if observe != nil {
				observe(p)
			}
		}
		w := wait.New(s, log, wait.WithInterval(cfg.PollInterval), wait.WithObserver(counted))
		final, err = w.Wait(ctx, job.ID, timeout)
		if final != nil {
			return final.Status, err
		}
		return "", err
	}

	switch {
	case cfg.Progress == progress.KindTUI && interactive():
		err = tui.RunWait(ctx, os.Stderr, title, database, timeout, run)
	case cfg.Progress == progress.KindNone:
		_, err = run(ctx, func(p wait.Poll) {
			log.Info("Waiting for request", "job_id", p.JobID, "status", p.Status,
				"poll", p.Count, "elapsed", logger.FormatDuration(p.Elapsed))
		})
	default:
		ind := progress.NewIndicator(os.Stderr, interactive(), cfg.Progress)
		est := progress.NewJobEstimator(operation)
		ind.Start(fmt.Sprintf("Waiting for %s (job %s)", title, job.ID))
		_, err = run(ctx, func(p wait.Poll) {
			est.UpdateProgress(p.Progress)
			ind.Update(est.Status(fmt.Sprintf("%s: %s", title, p.Status)))
		})
		switch {
		case err != nil:
			ind.Fail(fmt.Sprintf("%s: %v", title, err))
		case final != nil && !final.Succeeded():
			ind.Fail(fmt.Sprintf("%s ended with status %s", title, final.Status))
		default:
			ind.Complete(fmt.Sprintf("%s completed", title))
		}
		ind.Stop()
	}

	s.recordJob(operation, database, job.ID, final, polls, start, err)
	if err != nil {
		return final, err
	}
	log.Warn("Async request completed", "operation", operation, "status", final.Status)
	return final, wait.RequireSuccess(final, operation)
}

func (s *session) recordJob(operation, database, jobID string, final *rubrik.AsyncRequest, polls int, start time.Time, err error) {
	status := ""
	if final != nil {
		status = final.Status
	}
	succeeded := err == nil && final != nil && final.Succeeded()
	metrics.Record(metrics.JobMetrics{
		Operation: operation,
		Database:  database,
		JobID:     jobID,
		Status:    status,
		StartTime: start,
		Polls:     polls,
		Success:   succeeded,
	})

	switch {
	case succeeded:
		auditLogger.JobComplete(operation, database, jobID, time.Since(start))
	case err != nil:
		auditLogger.JobFailed(operation, database, jobID, err)
	default:
		auditLogger.JobFailed(operation, database, jobID, fmt.Errorf("ended with status %s", status))
	}
}

// queued reports a request that is not waited for.
func (s *session) queued(operation, database string, job *rubrik.AsyncRequest) {
	fmt.Fprintf(stdout, "%s of %s queued: request %s, status %s, started at %s\n",
		operation, database, job.ID, job.Status, s.startedAt(job))
}

// awaitSLA waits for the database to reach want.
func (s *session) awaitSLA(ctx context.Context, dbID string, want wait.SLAExpectation) (*rubrik.OracleDB, error) {
	start := time.Now()
	w := wait.New(s, log, wait.WithInterval(cfg.PollInterval))
	db, err := w.WaitForSLA(ctx, func(ctx context.Context) (*rubrik.OracleDB, error) {
		return s.resolver.DatabaseInfo(ctx, dbID)
	}, want, cfg.WaitTimeout(wait.SLATimeout))

	name := dbID
	if db != nil && db.Name != "" {
		name = db.Name
	}
	metrics.Record(metrics.JobMetrics{
		Operation: "sla_change",
		Database:  name,
		Status:    want.String(),
		StartTime: start,
		Success:   err == nil,
	})
	return db, err
}

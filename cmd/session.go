package cmd

import (
	"context"
	"time"

	"rbkoracle/internal/config"
	"rbkoracle/internal/request"
	"rbkoracle/internal/resolve"
	"rbkoracle/internal/rubrik"
	"rbkoracle/internal/timeconv"
)

// session is one authenticated appliance connection plus the components
// every command builds on it.
type session struct {
	*rubrik.Session
	resolver *resolve.Resolver
	submit   *request.Submitter
}

// withSession connects, runs fn and tears the session down on every path,
// including cancellation.
func withSession(ctx context.Context, fn func(ctx context.Context, s *session) error) error {
	creds, err := config.LoadCredentials(cfg.Keyfile, cfg.CredentialFile)
	if err != nil {
		return err
	}
	log.Debug("Credentials loaded", "endpoint", creds.NodeIP, "auth", creds.Mode().String())

	rs, err := rubrik.Connect(ctx, creds, rubrik.Options{
		Insecure:    cfg.Insecure,
		HTTPTimeout: cfg.HTTPTimeout,
		UserAgent:   "rbkoracle/" + cfg.Version,
		Logger:      log,
	})
	if err != nil {
		return err
	}
	defer rs.Teardown(context.WithoutCancel(ctx))

	s := &session{
		Session:  rs,
		resolver: resolve.New(rs),
		submit:   request.New(rs, auditLogger),
	}
	return fn(ctx, s)
}

// database resolves a host:db argument and fetches the database object.
func (s *session) database(ctx context.Context, hostDB string) (resolve.DatabaseRef, *rubrik.OracleDB, error) {
	host, name, err := resolve.SplitHostDB(hostDB)
	if err != nil {
		return resolve.DatabaseRef{}, nil, err
	}
	ref, err := s.resolver.Database(ctx, name, host)
	if err != nil {
		return resolve.DatabaseRef{}, nil, err
	}
	db, err := s.resolver.DatabaseInfo(ctx, ref.ID)
	if err != nil {
		return ref, nil, err
	}
	log.Debug("Database resolved", "database", ref.Name, "id", ref.ID, "topology", ref.Topology.String())
	return ref, db, nil
}

// recoveryPoint converts --time_restore, or falls back to the latest
// recovery point of db, and says which one is used.
func (s *session) recoveryPoint(timeRestore string, db *rubrik.OracleDB) (request.RecoveryPoint, error) {
	rp, err := request.RecoveryPointFor(timeRestore, db, s.Location())
	if err != nil {
		return rp, err
	}
	if timeRestore == "" {
		log.Warn("Using most recent recovery point", "time", s.clusterTime(db.LatestRecoveryPoint))
	} else {
		log.Warn("Using requested recovery point", "time", timeRestore)
	}
	return rp, nil
}

// clusterTime renders an appliance timestamp in the cluster timezone, or
// returns it unchanged when it cannot be parsed.
func (s *session) clusterTime(iso string) string {
	local, err := timeconv.LocalDisplayIn(iso, s.Location())
	if err != nil {
		return iso
	}
	return local
}

// startedAt renders a job start time the way queued requests are reported.
func (s *session) startedAt(job *rubrik.AsyncRequest) string {
	t, err := timeconv.Parse(job.StartTime, time.UTC)
	if err != nil {
		return job.StartTime
	}
	return t.In(s.Location()).Format("2006-01-02 15:04:05 MST")
}

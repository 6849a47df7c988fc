package resolve

import (
	"context"
	"net/url"
	"slices"
	"strings"

	"rbkoracle/internal/errs"
	"rbkoracle/internal/rubrik"
)

// SLA resolves an SLA domain by exact name.
func (r *Resolver) SLA(ctx context.Context, name string) (rubrik.SLADomain, error) {
	var list rubrik.List[rubrik.SLADomain]
	if err := r.s.Get(ctx, rubrik.V1, "/sla_domain?name="+url.QueryEscape(name), &list); err != nil {
		return rubrik.SLADomain{}, err
	}

	var found []rubrik.SLADomain
	for _, sla := range list.Data {
		if sla.Name == name {
			found = append(found, sla)
		}
	}
	switch len(found) {
	case 0:
		return rubrik.SLADomain{}, errs.NotFound("no SLA domain named %s", name)
	case 1:
		return found[0], nil
	}
	ids := make([]string, 0, len(found))
	for _, sla := range found {
		ids = append(ids, sla.ID)
	}
	return rubrik.SLADomain{}, errs.Ambiguous(ids, "SLA domain name %s matches %d domains", name, len(found))
}

// LiveMounts lists the live mounts of dbName on targetHost (host or RAC).
func (r *Resolver) LiveMounts(ctx context.Context, dbName, targetHost string) ([]rubrik.OracleMount, error) {
	target, err := r.HostOrRAC(ctx, targetHost)
	if err != nil {
		return nil, err
	}

	mounts, err := r.MountsOf(ctx, dbName)
	if err != nil {
		return nil, err
	}

	want := bareID(target.ID)
	var out []rubrik.OracleMount
	for _, m := range mounts {
		if bareID(m.TargetHostID) == want || (m.TargetRacID != "" && bareID(m.TargetRacID) == want) {
			out = append(out, m)
		}
	}
	return out, nil
}

// MountsOf lists the live mounts whose source database is dbName.
func (r *Resolver) MountsOf(ctx context.Context, dbName string) ([]rubrik.OracleMount, error) {
	var list rubrik.List[rubrik.OracleMount]
	if err := r.s.Get(ctx, rubrik.Internal, "/oracle/db/mount?source_database_name="+url.QueryEscape(dbName), &list); err != nil {
		return nil, err
	}
	var out []rubrik.OracleMount
	for _, m := range list.Data {
		if m.SourceDatabaseName == "" || strings.EqualFold(m.SourceDatabaseName, dbName) {
			out = append(out, m)
		}
	}
	return out, nil
}

// DatabaseInfo fetches the full database object.
func (r *Resolver) DatabaseInfo(ctx context.Context, id string) (*rubrik.OracleDB, error) {
	var db rubrik.OracleDB
	if err := r.s.Get(ctx, rubrik.Internal, "/oracle/db/"+url.PathEscape(id), &db); err != nil {
		return nil, err
	}
	return &db, nil
}

// Databases lists every database object.
func (r *Resolver) Databases(ctx context.Context) ([]rubrik.OracleDB, error) {
	var list rubrik.List[rubrik.OracleDB]
	if err := r.s.Get(ctx, rubrik.Internal, "/oracle/db", &list); err != nil {
		return nil, err
	}
	return list.Data, nil
}

// Snapshots lists the backups of a database, oldest first.
func (r *Resolver) Snapshots(ctx context.Context, id string) ([]rubrik.Snapshot, error) {
	var list rubrik.List[rubrik.Snapshot]
	if err := r.s.Get(ctx, rubrik.Internal, "/oracle/db/"+url.PathEscape(id)+"/snapshot", &list); err != nil {
		return nil, err
	}
	slices.SortStableFunc(list.Data, func(a, b rubrik.Snapshot) int {
		return strings.Compare(a.Date, b.Date)
	})
	return list.Data, nil
}

// RecoverableRanges lists the point-in-time recovery windows of a database.
func (r *Resolver) RecoverableRanges(ctx context.Context, id string) ([]rubrik.RecoverableRange, error) {
	var list rubrik.List[rubrik.RecoverableRange]
	if err := r.s.Get(ctx, rubrik.Internal, "/oracle/db/"+url.PathEscape(id)+"/recoverable_range", &list); err != nil {
		return nil, err
	}
	return list.Data, nil
}

// LatestScheduledSLA returns the newest snapshot that was not taken on
// demand. Its SLA is the one protection resumes with.
func LatestScheduledSLA(snapshots []rubrik.Snapshot) (rubrik.Snapshot, bool) {
	for i := len(snapshots) - 1; i >= 0; i-- {
		if !snapshots[i].IsOnDemandSnapshot && snapshots[i].SLAID != "" {
			return snapshots[i], true
		}
	}
	return rubrik.Snapshot{}, false
}

// Package request submits mutating operations to the appliance and returns
// the pending job descriptors.
package request

import (
	"context"
	"net/url"
	"strconv"

	"rbkoracle/internal/audit"
	"rbkoracle/internal/errs"
	"rbkoracle/internal/logger"
	"rbkoracle/internal/rubrik"
)

// Submitter issues one appliance call per operation.
type Submitter struct {
	s     *rubrik.Session
	audit *audit.Logger
	log   logger.Logger
}

// New creates a submitter. A nil audit logger disables auditing.
func New(s *rubrik.Session, a *audit.Logger) *Submitter {
	if a == nil {
		a = audit.New(logger.NewNullLogger(), false)
	}
	return &Submitter{s: s, audit: a, log: s.Logger()}
}

type snapshotBody struct {
	SLAID             string `json:"slaId,omitempty"`
	ForceFullSnapshot bool   `json:"forceFullSnapshot"`
}

// Snapshot takes an on-demand backup under slaID (empty keeps the
// database's own SLA).
func (r *Submitter) Snapshot(ctx context.Context, dbID, slaID string, forceFull bool) (*rubrik.AsyncRequest, error) {
	body := snapshotBody{SLAID: slaID, ForceFullSnapshot: forceFull}
	return r.submit(ctx, "snapshot", dbID, rubrik.Internal, "/oracle/db/"+url.PathEscape(dbID)+"/snapshot", body,
		map[string]interface{}{"sla_id": slaID, "force_full": forceFull})
}

// LogBackup starts an archive log backup.
func (r *Submitter) LogBackup(ctx context.Context, dbID string) (*rubrik.AsyncRequest, error) {
	return r.submit(ctx, "log_backup", dbID, rubrik.Internal, "/oracle/db/"+url.PathEscape(dbID)+"/log_backup", nil, nil)
}

type mountBody struct {
	RecoveryPoint             RecoveryPoint     `json:"recoveryPoint"`
	TargetOracleHostOrRacID   string            `json:"targetOracleHostOrRacId"`
	TargetMountPath           string            `json:"targetMountPath,omitempty"`
	ShouldMountFilesOnly      bool              `json:"shouldMountFilesOnly"`
	CustomPfilePath           string            `json:"customPfilePath,omitempty"`
	AdvancedRecoveryConfigMap map[string]string `json:"advancedRecoveryConfigMap,omitempty"`
}

// LiveMount mounts a recovery point of dbID on a host or RAC cluster.
func (r *Submitter) LiveMount(ctx context.Context, dbID string, opts MountOptions) (*rubrik.AsyncRequest, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if opts.TargetID == "" {
		return nil, errs.Validation("a live mount needs a target host or RAC cluster")
	}

	aco, err := opts.ACO.WithOracleHome(opts.OracleHome)
	if err != nil {
		return nil, err
	}
	if len(aco) == 0 {
		aco = nil
	}

	body := mountBody{
		RecoveryPoint:             opts.RecoveryPoint,
		TargetOracleHostOrRacID:   opts.TargetID,
		TargetMountPath:           opts.MountPath,
		ShouldMountFilesOnly:      opts.FilesOnly,
		CustomPfilePath:           opts.Pfile,
		AdvancedRecoveryConfigMap: aco,
	}
	return r.submit(ctx, "mount", dbID, rubrik.Internal, "/oracle/db/"+url.PathEscape(dbID)+"/mount", body,
		map[string]interface{}{"target_id": opts.TargetID, "files_only": opts.FilesOnly, "recovery_point_ms": opts.RecoveryPoint.TimestampMs})
}

type cloneBody struct {
	RecoveryPoint                RecoveryPoint `json:"recoveryPoint"`
	TargetOracleHostOrRacID      string        `json:"targetOracleHostOrRacId"`
	ShouldRestoreFilesOnly       bool          `json:"shouldRestoreFilesOnly"`
	CloneDBName                  string        `json:"cloneDbName,omitempty"`
	CustomPfilePath              string        `json:"customPfilePath,omitempty"`
	AdvancedRecoveryConfigBase64 string        `json:"advancedRecoveryConfigBase64,omitempty"`
}

// Clone duplicates dbID onto a host or RAC cluster, optionally renaming it.
func (r *Submitter) Clone(ctx context.Context, dbID string, opts CloneOptions) (*rubrik.AsyncRequest, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if opts.TargetID == "" {
		return nil, errs.Validation("a clone needs a target host or RAC cluster")
	}

	aco := opts.ACO
	if opts.OracleHome != "" {
		merged, err := aco.WithOracleHome(opts.OracleHome)
		if err != nil {
			return nil, err
		}
		aco = withValues(aco, merged)
	}
	var encoded string
	if len(aco) > 0 {
		encoded = aco.Base64()
	}

	body := cloneBody{
		RecoveryPoint:                opts.RecoveryPoint,
		TargetOracleHostOrRacID:      opts.TargetID,
		CloneDBName:                  opts.NewName,
		CustomPfilePath:              opts.Pfile,
		AdvancedRecoveryConfigBase64: encoded,
	}
	return r.submit(ctx, "clone", dbID, rubrik.Internal, "/oracle/db/"+url.PathEscape(dbID)+"/export", body,
		map[string]interface{}{"target_id": opts.TargetID, "new_name": opts.NewName, "recovery_point_ms": opts.RecoveryPoint.TimestampMs})
}

// withValues rewrites aco in its original order from m and appends keys that
// only m has.
func withValues(aco ACO, m map[string]string) ACO {
	out := make(ACO, 0, len(m))
	seen := make(map[string]bool, len(m))
	for _, p := range aco {
		v, ok := m[p.Key]
		if !ok || seen[p.Key] {
			continue
		}
		seen[p.Key] = true
		out = append(out, Param{Key: p.Key, Value: v})
	}
	if v, ok := m[oracleHomeKey]; ok && !seen[oracleHomeKey] {
		out = append(out, Param{Key: oracleHomeKey, Value: v})
	}
	return out
}

// Unmount removes a live mount. force is passed through as given.
func (r *Submitter) Unmount(ctx context.Context, mountID string, force bool) (*rubrik.AsyncRequest, error) {
	path := "/oracle/db/mount/" + url.PathEscape(mountID) + "?force=" + strconv.FormatBool(force)
	job := &rubrik.AsyncRequest{}
	if err := r.s.Delete(ctx, rubrik.Internal, path, job); err != nil {
		r.audit.JobFailed("unmount", mountID, "", err)
		return nil, err
	}
	r.audit.RequestSubmitted("unmount", mountID, job.ID, map[string]interface{}{"force": force})
	r.log.Info("Request submitted", "operation", "unmount", "mount_id", mountID, "job_id", job.ID, "status", job.Status)
	return job, nil
}

type validateBody struct {
	RecoveryPoint           RecoveryPoint `json:"recoveryPoint"`
	TargetOracleHostOrRacID string        `json:"targetOracleHostOrRacId"`
}

// Validate checks that the backup pieces for a recovery point are usable
// from targetID.
func (r *Submitter) Validate(ctx context.Context, dbID, targetID string, rp RecoveryPoint) (*rubrik.AsyncRequest, error) {
	if !r.s.Capabilities().Validate {
		return nil, errs.Validation("backup validation needs cluster version 5.3 or later (cluster is %s)", r.s.Version())
	}
	body := validateBody{RecoveryPoint: rp, TargetOracleHostOrRacID: targetID}
	return r.submit(ctx, "validate", dbID, rubrik.Internal, "/oracle/db/"+url.PathEscape(dbID)+"/validate", body,
		map[string]interface{}{"target_id": targetID, "recovery_point_ms": rp.TimestampMs})
}

// RefreshDatabase refreshes the metadata of one database.
func (r *Submitter) RefreshDatabase(ctx context.Context, dbID string) (*rubrik.AsyncRequest, error) {
	if !r.s.Capabilities().DatabaseRefresh {
		return nil, errs.Validation("database refresh needs cluster version 6.0.2 or later (cluster is %s)", r.s.Version())
	}
	job, err := r.submit(ctx, "refresh", dbID, rubrik.V1, "/oracle/db/"+url.PathEscape(dbID)+"/refresh", nil, nil)
	if err == nil && len(job.Links) > 0 {
		r.log.Debug("Refresh status resource", "href", job.Links[0].Href)
	}
	return job, err
}

// RefreshHost refreshes a host synchronously.
func (r *Submitter) RefreshHost(ctx context.Context, hostID string) error {
	var out map[string]any
	if err := r.s.Post(ctx, rubrik.V1, "/host/"+url.PathEscape(hostID)+"/refresh", nil, &out); err != nil {
		r.audit.JobFailed("host_refresh", hostID, "", err)
		return err
	}
	r.audit.RequestSubmitted("host_refresh", hostID, "", nil)
	r.log.Debug("Host refresh response", "response", out)
	return nil
}

type assignBody struct {
	ManagedIDs                []string `json:"managedIds"`
	ExistingSnapshotRetention string   `json:"existingSnapshotRetention"`
}

// AssignSLA protects the objects with slaID, keeping existing snapshots, and
// returns the pending assignments. slaID may be rubrik.SLAUnprotected or
// rubrik.SLAInherit.
func (r *Submitter) AssignSLA(ctx context.Context, slaID string, managedIDs ...string) ([]rubrik.SLAAssignment, error) {
	if !r.s.Capabilities().ManageProtection {
		return nil, errs.Validation("managing protection needs cluster version 7.0 or later (cluster is %s)", r.s.Version())
	}
	if slaID == "" || len(managedIDs) == 0 {
		return nil, errs.Validation("an SLA id and at least one object id are required")
	}

	body := assignBody{ManagedIDs: managedIDs, ExistingSnapshotRetention: "RetainSnapshots"}
	var out []rubrik.SLAAssignment
	if err := r.s.Post(ctx, rubrik.V2, "/sla_domain/"+url.PathEscape(slaID)+"/assign", body, &out); err != nil {
		for _, id := range managedIDs {
			r.audit.JobFailed("assign_sla", id, "", err)
		}
		return nil, err
	}
	for _, id := range managedIDs {
		r.audit.RequestSubmitted("assign_sla", id, "", map[string]interface{}{"sla_id": slaID})
	}
	r.log.Info("SLA assignment submitted", "sla_id", slaID, "objects", len(managedIDs))
	r.log.Debug("SLA assignment response", "response", out)
	return out, nil
}

// Unprotect stops protection while retaining existing snapshots.
func (r *Submitter) Unprotect(ctx context.Context, managedIDs ...string) ([]rubrik.SLAAssignment, error) {
	return r.AssignSLA(ctx, rubrik.SLAUnprotected, managedIDs...)
}

// Inherit makes the objects inherit their SLA from the parent.
func (r *Submitter) Inherit(ctx context.Context, managedIDs ...string) ([]rubrik.SLAAssignment, error) {
	return r.AssignSLA(ctx, rubrik.SLAInherit, managedIDs...)
}

func (r *Submitter) submit(ctx context.Context, operation, dbID, version, path string, body any, details map[string]interface{}) (*rubrik.AsyncRequest, error) {
	if dbID == "" {
		return nil, errs.Validation("%s needs a database id", operation)
	}

	job := &rubrik.AsyncRequest{}
	if err := r.s.Post(ctx, version, path, body, job); err != nil {
		r.audit.JobFailed(operation, dbID, "", err)
		return nil, err
	}
	if job.ID == "" {
		return nil, errs.RequestFailed("decode", nil, "%s: response carried no job id", operation)
	}

	r.audit.RequestSubmitted(operation, dbID, job.ID, details)
	r.log.Info("Request submitted", "operation", operation, "database_id", dbID, "job_id", job.ID, "status", job.Status)
	return job, nil
}

package request

import (
	"slices"
	"strings"
	"time"

	"rbkoracle/internal/errs"
	"rbkoracle/internal/resolve"
	"rbkoracle/internal/rubrik"
	"rbkoracle/internal/timeconv"
)

// MaxDatabaseName is the longest DB_NAME Oracle accepts.
const MaxDatabaseName = 8

// RecoveryPoint is the point in time a mount, clone or validation targets.
type RecoveryPoint struct {
	TimestampMs int64 `json:"timestampMs"`
}

// RecoveryPointFor converts timeRestore in loc, or the database's latest
// recovery point when timeRestore is empty.
func RecoveryPointFor(timeRestore string, db *rubrik.OracleDB, loc *time.Location) (RecoveryPoint, error) {
	iso := strings.TrimSpace(timeRestore)
	if iso == "" {
		if db == nil || db.LatestRecoveryPoint == "" {
			return RecoveryPoint{}, errs.NotFound("database has no recovery point")
		}
		iso = db.LatestRecoveryPoint
	}
	ms, err := timeconv.EpochMillisIn(iso, loc)
	if err != nil {
		return RecoveryPoint{}, err
	}
	return RecoveryPoint{TimestampMs: ms}, nil
}

// MountOptions describes a live mount.
type MountOptions struct {
	TargetID      string
	RecoveryPoint RecoveryPoint
	FilesOnly     bool
	MountPath     string
	Pfile         string
	ACO           ACO
	OracleHome    string
}

// Validate checks the flag combination. It needs no session and runs before
// any request is made.
func (o *MountOptions) Validate() error {
	o.MountPath = SanitizePath(o.MountPath)
	o.Pfile = SanitizePath(o.Pfile)
	o.OracleHome = SanitizePath(o.OracleHome)

	switch {
	case o.FilesOnly && o.MountPath == "":
		return errs.Validation("a files only mount requires a mount path")
	case !o.FilesOnly && o.MountPath != "":
		return errs.Validation("a mount path is only valid with a files only mount: choose exactly one of a live database or files only")
	}
	return checkPfileACO(o.Pfile, o.ACO)
}

// ValidateFor checks the options against the source database and the
// cluster's capabilities.
func (o *MountOptions) ValidateFor(src resolve.Topology, caps rubrik.Capabilities) error {
	return checkOracleHome(o.OracleHome, o.ACO, src, caps)
}

// CloneOptions describes a database clone.
type CloneOptions struct {
	TargetID      string
	RecoveryPoint RecoveryPoint
	SourceName    string
	NewName       string
	Pfile         string
	ACO           ACO
	OracleHome    string
}

var (
	convertParams = []string{"db_file_name_convert", "log_file_name_convert", "parameter_value_convert"}
	placeParams   = []string{"control_files", "db_create_file_dest"}
)

// Validate checks the flag combination before any request is made.
func (o *CloneOptions) Validate() error {
	o.Pfile = SanitizePath(o.Pfile)
	o.OracleHome = SanitizePath(o.OracleHome)
	o.NewName = strings.TrimSpace(o.NewName)

	if o.NewName != "" {
		if err := ValidateDatabaseName(o.NewName, o.SourceName); err != nil {
			return err
		}
		if o.Pfile == "" && !o.ACO.Has(convertParams...) && !o.ACO.Has(placeParams...) {
			return errs.Validation("renaming the clone requires a custom pfile or an ACO file with %s or %s",
				strings.Join(convertParams, ", "), strings.Join(placeParams, ", "))
		}
	}
	return checkPfileACO(o.Pfile, o.ACO)
}

// ValidateFor checks the options against the source database and the
// cluster's capabilities.
func (o *CloneOptions) ValidateFor(src resolve.Topology, caps rubrik.Capabilities) error {
	return checkOracleHome(o.OracleHome, o.ACO, src, caps)
}

// ValidateDatabaseName checks a new Oracle database name.
func ValidateDatabaseName(name, source string) error {
	if len(name) > MaxDatabaseName {
		return errs.Validation("database name %s is longer than %d characters", name, MaxDatabaseName)
	}
	if source != "" && strings.EqualFold(name, source) {
		return errs.Validation("new database name %s is the same as the source", name)
	}
	return nil
}

func checkPfileACO(pfile string, aco ACO) error {
	if pfile == "" {
		return nil
	}
	for _, p := range aco {
		if !pfileCompatible(p.Key) {
			return errs.Validation("with a custom pfile the ACO file may only set ORACLE_HOME, SPFILE_LOCATION and DB_CREATE_ONLINE_LOG_DEST_*: found %s", p.Key)
		}
	}
	return nil
}

func checkOracleHome(home string, aco ACO, src resolve.Topology, caps rubrik.Capabilities) error {
	_, inACO := aco.Get(oracleHomeKey)
	if src == resolve.DataGuardGroup && home == "" && !inACO {
		return errs.Validation("the source is a Data Guard group: ORACLE_HOME must be given as an option or in the ACO file")
	}
	if home != "" && !caps.OracleHome {
		return errs.Validation("the ORACLE_HOME option needs cluster version 6.0 or later")
	}
	return nil
}

// SelectMounts picks the live mounts to remove. A single mount is used as is.
// Several mounts need all or an explicit id list.
func SelectMounts(mounts []rubrik.OracleMount, all bool, ids []string) ([]rubrik.OracleMount, error) {
	if len(mounts) == 0 {
		return nil, errs.NotFound("no live mounts found")
	}

	if len(ids) > 0 {
		var out []rubrik.OracleMount
		for _, id := range ids {
			i := slices.IndexFunc(mounts, func(m rubrik.OracleMount) bool { return m.ID == id })
			if i < 0 {
				return nil, errs.NotFound("no live mount with id %s", id)
			}
			out = append(out, mounts[i])
		}
		return out, nil
	}

	if len(mounts) == 1 || all {
		return mounts, nil
	}

	found := make([]string, 0, len(mounts))
	for _, m := range mounts {
		found = append(found, m.ID)
	}
	return nil, errs.Ambiguous(found, "%d live mounts found: use --all_mounts or --id_unmount", len(mounts))
}

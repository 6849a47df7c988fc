package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"rbkoracle/internal/checks"
	"rbkoracle/internal/errs"
	"rbkoracle/internal/logger"
	"rbkoracle/internal/oracle"
	"rbkoracle/internal/request"
	"rbkoracle/internal/resolve"
	"rbkoracle/internal/wait"
)

type backupCloneOptions struct {
	sourceHostDB string
	hostTarget   string
	mountPath    string
	newName      string
	configFile   string
	oracleHome   string
	timeRestore  string
	logPath      string
}

var backupCloneOpts backupCloneOptions

var backupCloneCmd = &cobra.Command{
	Use:   "backup-clone",
	Short: "Duplicate a database from its mounted RMAN backups",
	Long: `Mount the RMAN backup pieces of a database on this host and duplicate
them into a new database with RMAN, then unmount the backups.

This must run on the target host as the Oracle software owner. Without
--oracle_home the ORACLE_HOME of the source database is used. The optional
configuration file has a [parameters] section:

  [parameters]
  spfile = true
  no_file_name_check = false
  refresh_db = false
  drop_database = false
  parallelism = 4
  db_file_name_convert = '/u02/oradata/ORCL','/u02/oradata/DEV'
  log_file_name_convert = '/u03/fra/ORCL','/u03/fra/DEV'
  control_files = '/u02/oradata/DEV/control01.ctl'
  audit_file_dest = /u01/app/oracle/admin/DEV/adump

Examples:
  rbkoracle backup-clone -s db01:ORCL -h db02 -m /rubrik/mounts -n DEV -c dev.cfg`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runBackupClone(cmd.Context(), backupCloneOpts)
	},
}

func init() {
	f := backupCloneCmd.Flags()
	f.StringVarP(&backupCloneOpts.sourceHostDB, "source_host_db", "s", "", "The source <host or RAC cluster>:<database>")
	f.StringVarP(&backupCloneOpts.hostTarget, "host_target", "h", "", "This host, where the backup files are mounted")
	f.StringVarP(&backupCloneOpts.mountPath, "mount_path", "m", "", "The path used to mount the backup files")
	f.StringVarP(&backupCloneOpts.newName, "new_oracle_name", "n", "", "Name for the cloned database")
	f.StringVarP(&backupCloneOpts.configFile, "configuration_file", "c", "", "Duplicate configuration file")
	f.StringVarP(&backupCloneOpts.oracleHome, "oracle_home", "o", "", "ORACLE_HOME for the clone")
	f.StringVarP(&backupCloneOpts.timeRestore, "time_restore", "t", "", "Point in time for the clone, ISO 8601 such as 2024-01-31T13:45:00")
	f.StringVarP(&backupCloneOpts.logPath, "log_path", "l", "", "Directory for the clone log (default the mount path)")
	for _, name := range []string{"source_host_db", "host_target", "mount_path", "new_oracle_name"} {
		_ = backupCloneCmd.MarkFlagRequired(name)
	}
}

func runBackupClone(ctx context.Context, o backupCloneOptions) error {
	_, sourceName, err := resolve.SplitHostDB(o.sourceHostDB)
	if err != nil {
		return err
	}
	if err := oracle.RequireLocalHost(o.hostTarget); err != nil {
		return err
	}
	if err := request.ValidateDatabaseName(o.newName, sourceName); err != nil {
		return err
	}
	o.mountPath = request.SanitizePath(o.mountPath)

	if err := openCloneLog(o); err != nil {
		return err
	}

	cloneCfg, err := oracle.LoadCloneConfig(o.configFile)
	if err != nil {
		return err
	}
	log.Debug("Duplicate configuration loaded", "file", o.configFile, "config", fmt.Sprintf("%+v", cloneCfg))

	return withSession(ctx, func(ctx context.Context, s *session) error {
		ref, db, err := s.database(ctx, o.sourceHostDB)
		if err != nil {
			return err
		}
		target, err := s.resolver.Target(ctx, o.hostTarget, ref.Topology)
		if err != nil {
			return err
		}
		rp, err := s.recoveryPoint(o.timeRestore, db)
		if err != nil {
			return err
		}

		home := request.SanitizePath(o.oracleHome)
		if home == "" {
			home = db.OracleHome
		}
		exec, err := oracle.NewExecutor(home, o.newName, nil, log)
		if err != nil {
			return err
		}

		dir, err := mountBackupFiles(ctx, s, ref, target.ID, rp, o.mountPath)
		if err != nil {
			return err
		}
		log.Info("Using the live mount path", "path", dir.Path, "mount_id", dir.MountID)

		if err := duplicate(ctx, exec, cloneCfg, ref.Name, o.timeRestore, dir.Path); err != nil {
			return err
		}

		log.Warn("Unmounting backups", "mount_id", dir.MountID)
		if err := unmountBackupFiles(ctx, s, ref.Name, dir.MountID); err != nil {
			log.Warn("Unmount of backup files failed", "mount_id", dir.MountID, "error", err)
		} else {
			log.Warn("Live mount of backup files has been unmounted", "mount_id", dir.MountID)
		}

		fmt.Fprintf(stdout, "Database clone %s of %s complete.\n", o.newName, ref.Name)
		return nil
	})
}

// openCloneLog tees the log into <log_path>/<NEW>_Clone.log.
func openCloneLog(o backupCloneOptions) error {
	dir := request.SanitizePath(o.logPath)
	if dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errors.Wrapf(err, "creating log directory %s", dir)
		}
	} else {
		dir = o.mountPath
	}
	path := filepath.Join(dir, o.newName+"_Clone.log")
	l, err := logger.FileLogger(cfg.LogLevel, cfg.LogFormat, path)
	if err != nil {
		return err
	}
	log = l
	auditLogger = auditLogger.With(log)
	log.Debug("Clone log opened", "path", path)
	warnLowSpace(dir)
	return nil
}

// mountBackupFiles mounts the backup pieces under mountPath and finds the
// directory the mount created.
func mountBackupFiles(ctx context.Context, s *session, ref resolve.DatabaseRef, targetID string, rp request.RecoveryPoint, mountPath string) (oracle.MountDirectory, error) {
	before, err := oracle.ListDirectories(mountPath)
	if err != nil {
		return oracle.MountDirectory{}, err
	}

	log.Warn("Starting the mount of the backup pieces", "database", ref.Name, "path", mountPath)
	job, err := s.submit.LiveMount(ctx, ref.ID, request.MountOptions{
		TargetID:      targetID,
		RecoveryPoint: rp,
		FilesOnly:     true,
		MountPath:     mountPath,
	})
	if err != nil {
		return oracle.MountDirectory{}, err
	}
	if _, err := s.await(ctx, "mount", ref.Name, job, wait.MountTimeout); err != nil {
		return oracle.MountDirectory{}, err
	}
	log.Warn("Live mount of the backup files completed")

	after, err := oracle.ListDirectories(mountPath)
	if err != nil {
		return oracle.MountDirectory{}, err
	}
	return oracle.NewMountDirectory(mountPath, before, after)
}

// duplicate starts the auxiliary instance and runs the RMAN duplicate.
func duplicate(ctx context.Context, exec *oracle.Executor, cc oracle.CloneConfig, sourceName, untilTime, backupPath string) error {
	sid := exec.SID()

	if cc.DropDatabase {
		log.Warn("Dropping database before the refresh", "database", sid)
		err := exec.DropDatabase(ctx)
		auditLogger.LocalAction("drop_database", sid, err)
		if err != nil {
			return err
		}
	}

	initFile := ""
	if cc.SPFile {
		var err error
		if initFile, err = exec.WriteInitFile(); err != nil {
			return err
		}
	}

	log.Warn("Starting auxiliary instance", "sid", sid)
	if out, err := exec.StartupNomount(ctx, cc.Startup(initFile)); err != nil {
		if errors.Is(err, oracle.ErrInstanceRunning) {
			return errs.Validation("an instance of %s is already running on this host, aborting clone", sid)
		}
		explain(out)
		return err
	}
	if err := exec.VerifyInstance(ctx); err != nil {
		return err
	}

	if cc.AuditFileDest != "" {
		dest := strings.Trim(cc.AuditFileDest, `'"`)
		if err := os.MkdirAll(dest, 0o750); err != nil {
			return errors.Wrapf(err, "creating audit file destination %s", dest)
		}
		warnLowSpace(dest)
	}

	script, err := oracle.BuildDuplicateScript(cc.Duplicate(sourceName, sid, untilTime, backupPath))
	if err != nil {
		return err
	}
	log.Warn("Beginning duplicate", "source", sourceName, "clone", sid)
	log.Debug("Duplicate script", "script", script)

	op := log.StartOperation("RMAN duplicate " + sid)
	out, err := exec.RMAN(ctx, script, oracle.Auxiliary)
	auditLogger.LocalAction("rman_duplicate", sid, err)
	if err != nil {
		op.Fail(err.Error())
		explain(out)
		return err
	}
	op.Complete("clone database opened", "source", sourceName)
	log.Warn("Duplicate complete", "clone", sid)
	return nil
}

// explain logs what a known sqlplus or rman failure means.
func explain(output string) {
	if codes := checks.ErrorCodes(output); len(codes) > 0 {
		log.Error("Oracle reported errors", "codes", strings.Join(codes, ","))
	}
	if h := checks.ClassifyOracleOutput(output); h != nil {
		log.Error(h.Hint, "code", h.Code, "action", h.Action)
	}
}

// warnLowSpace warns when a clone destination is nearly full.
func warnLowSpace(path string) {
	c, err := checks.CheckDiskSpace(path)
	if err != nil {
		log.Debug("Disk space check skipped", "path", path, "error", err)
		return
	}
	switch {
	case c.Critical:
		log.Error("Clone destination is almost full", "space", c.String())
	case c.Warning:
		log.Warn("Clone destination is low on space", "space", c.String())
	default:
		log.Debug("Clone destination space", "space", c.String())
	}
}

func unmountBackupFiles(ctx context.Context, s *session, database, mountID string) error {
	job, err := s.submit.Unmount(ctx, mountID, false)
	if err != nil {
		return err
	}
	_, err = s.await(ctx, "unmount", database, job, wait.JobTimeout)
	return err
}

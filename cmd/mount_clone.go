package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"rbkoracle/internal/errs"
	"rbkoracle/internal/oracle"
	"rbkoracle/internal/request"
	"rbkoracle/internal/resolve"
	"rbkoracle/internal/wait"
)

type mountCloneOptions struct {
	sourceHostDB string
	hostTarget   string
	newName      string
	timeRestore  string
	oracleHome   string
	logPath      string
}

var mountCloneOpts mountCloneOptions

var mountCloneCmd = &cobra.Command{
	Use:   "mount-clone",
	Short: "Live mount a database on this host and rename it",
	Long: `Live mount a point in time of a database on this host, then change the
name of the mounted database with the Oracle NID utility. The renamed
database runs as the instance named -n.

A renamed live mount is not removed by a plain unmount: use clone-unmount,
which also drops the instance files under $ORACLE_HOME/dbs.

Examples:
  rbkoracle mount-clone -s db01:ORCL -h db02 -n DEV
  rbkoracle mount-clone -s db01:ORCL -h db02 -n DEV -t 2024-01-31T13:45:00`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runMountClone(cmd.Context(), mountCloneOpts)
	},
}

type backupMountCloneOptions struct {
	sourceHostDB string
	hostTarget   string
	mountPath    string
	newName      string
	filesDir     string
	oracleHome   string
	timeRestore  string
}

var backupMountCloneOpts backupMountCloneOptions

var backupMountCloneCmd = &cobra.Command{
	Use:   "backup-mount-clone",
	Short: "Open a renamed database directly on mounted backup files",
	Long: `Mount the RMAN backup pieces of a database on this host and open them as
a new database without copying the data files. The server parameter file
and control file are restored from the newest controlfile autobackup, the
data files are switched to the mounted copies, and redo logs and temp
files are written under <files_directory>/<new name>. The database is then
recovered, opened and renamed with NID.

Single instance databases only. Clean up with clone-unmount.

Examples:
  rbkoracle backup-mount-clone -s db01:ORCL -h db02 -m /rubrik/mounts -n DEV -f /u02/oradata`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runBackupMountClone(cmd.Context(), backupMountCloneOpts)
	},
}

func init() {
	f := mountCloneCmd.Flags()
	f.StringVarP(&mountCloneOpts.sourceHostDB, "source_host_db", "s", "", "The source <host or RAC cluster>:<database>")
	f.StringVarP(&mountCloneOpts.hostTarget, "host_target", "h", "", "This host, where the database is live mounted")
	f.StringVarP(&mountCloneOpts.newName, "new_oracle_name", "n", "", "Name for the renamed database")
	f.StringVarP(&mountCloneOpts.timeRestore, "time_restore", "t", "", "Point in time to mount, ISO 8601 such as 2024-01-31T13:45:00")
	f.StringVarP(&mountCloneOpts.oracleHome, "oracle_home", "o", "", "ORACLE_HOME on this host (default the source database's)")
	f.StringVarP(&mountCloneOpts.logPath, "log_path", "l", "", "Directory for the NID log (default the system temp directory)")
	for _, name := range []string{"source_host_db", "host_target", "new_oracle_name"} {
		_ = mountCloneCmd.MarkFlagRequired(name)
	}

	f = backupMountCloneCmd.Flags()
	f.StringVarP(&backupMountCloneOpts.sourceHostDB, "source_host_db", "s", "", "The source <host>:<database>")
	f.StringVarP(&backupMountCloneOpts.hostTarget, "host_target", "h", "", "This host, where the backup files are mounted")
	f.StringVarP(&backupMountCloneOpts.mountPath, "mount_path", "m", "", "The path used to mount the backup files")
	f.StringVarP(&backupMountCloneOpts.newName, "new_oracle_name", "n", "", "Name for the new database")
	f.StringVarP(&backupMountCloneOpts.filesDir, "files_directory", "f", "", "Directory for the control file, redo logs and temp files")
	f.StringVarP(&backupMountCloneOpts.oracleHome, "oracle_home", "o", "", "ORACLE_HOME on this host (default the source database's)")
	f.StringVarP(&backupMountCloneOpts.timeRestore, "time_restore", "t", "", "Point in time for the clone, ISO 8601 such as 2024-01-31T13:45:00")
	for _, name := range []string{"source_host_db", "host_target", "mount_path", "new_oracle_name", "files_directory"} {
		_ = backupMountCloneCmd.MarkFlagRequired(name)
	}
}

// checkLocalRename runs the checks shared by both rename commands before
// the appliance is contacted.
func checkLocalRename(hostDB, hostTarget, newName string) (string, error) {
	_, source, err := resolve.SplitHostDB(hostDB)
	if err != nil {
		return "", err
	}
	if newName == "" {
		return "", errs.Validation("a new database name is required")
	}
	if err := request.ValidateDatabaseName(newName, source); err != nil {
		return "", err
	}
	if err := oracle.RequireLocalHost(hostTarget); err != nil {
		return "", err
	}
	return source, nil
}

func rejectRAC(ref resolve.DatabaseRef) error {
	if ref.IsRAC() {
		return errs.Validation("%s is a RAC database: renaming a mount is supported for single instance databases only", ref.Name)
	}
	return nil
}

func runMountClone(ctx context.Context, o mountCloneOptions) error {
	if _, err := checkLocalRename(o.sourceHostDB, o.hostTarget, o.newName); err != nil {
		return err
	}
	logDir := request.SanitizePath(o.logPath)
	if logDir == "" {
		logDir = os.TempDir()
	}

	return withSession(ctx, func(ctx context.Context, s *session) error {
		ref, db, err := s.database(ctx, o.sourceHostDB)
		if err != nil {
			return err
		}
		if err := rejectRAC(ref); err != nil {
			return err
		}
		opts := request.MountOptions{OracleHome: request.SanitizePath(o.oracleHome)}
		if err := opts.ValidateFor(ref.Topology, s.Capabilities()); err != nil {
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

		home := opts.OracleHome
		if home == "" {
			home = db.OracleHome
		}
		// The live mount runs under the source database's name.
		exec, err := oracle.NewExecutor(home, ref.Name, nil, log)
		if err != nil {
			return err
		}

		opts.TargetID = target.ID
		opts.RecoveryPoint = rp
		log.Warn("Starting live mount", "database", ref.Name, "target", target.Name)
		job, err := s.submit.LiveMount(ctx, ref.ID, opts)
		if err != nil {
			return err
		}
		if _, err := s.await(ctx, "mount", ref.Name, job, wait.MountTimeout); err != nil {
			return err
		}

		log.Warn("Live mount complete, changing name", "database", ref.Name, "new_name", o.newName)
		op := log.StartOperation("Rename " + ref.Name + " to " + o.newName)
		_, out, err := oracle.RenameLiveMount(ctx, exec, o.newName, logDir)
		auditLogger.LocalAction("rename_database", o.newName, err)
		if err != nil {
			op.Fail(err.Error())
			explain(out)
			return err
		}
		op.Complete("database opened", "source", ref.Name)

		fmt.Fprintf(stdout, "Live mount of %s on %s renamed to %s.\n", ref.Name, target.Name, o.newName)
		return nil
	})
}

func runBackupMountClone(ctx context.Context, o backupMountCloneOptions) error {
	if _, err := checkLocalRename(o.sourceHostDB, o.hostTarget, o.newName); err != nil {
		return err
	}
	o.mountPath = request.SanitizePath(o.mountPath)
	o.filesDir = request.SanitizePath(o.filesDir)
	if o.mountPath == "" || o.filesDir == "" {
		return errs.Validation("both a mount path and a files directory are required")
	}

	return withSession(ctx, func(ctx context.Context, s *session) error {
		ref, db, err := s.database(ctx, o.sourceHostDB)
		if err != nil {
			return err
		}
		if err := rejectRAC(ref); err != nil {
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
		layout := oracle.NewFilesLayout(o.filesDir, o.newName)
		if err := layout.Create(); err != nil {
			return err
		}
		warnLowSpace(layout.Root)

		dir, err := mountBackupFiles(ctx, s, ref, target.ID, rp, o.mountPath)
		if err != nil {
			return err
		}
		log.Info("Using the live mount path", "path", dir.Path, "mount_id", dir.MountID)
		autobackup, err := oracle.LatestAutobackup(dir.Path)
		if err != nil {
			return err
		}
		log.Info("Using controlfile autobackup", "file", autobackup)

		steps := oracle.BackupCloneSteps(exec, oracle.BackupCloneOptions{
			SourceName: ref.Name,
			NewName:    o.newName,
			BackupPath: dir.Path,
			Autobackup: autobackup,
			Layout:     layout,
			UntilTime:  o.timeRestore,
			NIDLog:     filepath.Join(layout.Root, "nid_"+o.newName+".log"),
		})
		op := log.StartOperation("Open " + o.newName + " on backup files")
		for _, step := range steps {
			log.Warn(step.Name, "database", o.newName)
			op.Update(step.Name)
			if out, err := step.Run(ctx); err != nil {
				auditLogger.LocalAction("backup_mount_clone", o.newName, err)
				op.Fail(err.Error(), "step", step.Name)
				explain(out)
				return err
			}
		}
		auditLogger.LocalAction("backup_mount_clone", o.newName, nil)
		op.Complete("database opened", "source", ref.Name)

		fmt.Fprintf(stdout, "Database %s is open on the %s backup files mounted at %s.\n", o.newName, ref.Name, dir.Path)
		return nil
	})
}

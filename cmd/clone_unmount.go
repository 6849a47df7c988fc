package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"rbkoracle/internal/errs"
	"rbkoracle/internal/oracle"
	"rbkoracle/internal/request"
	"rbkoracle/internal/resolve"
	"rbkoracle/internal/wait"
)

type cloneUnmountOptions struct {
	hostDB     string
	cloneNames string
	oracleHome string
	all        bool
}

var cloneUnmountOpts cloneUnmountOptions

var cloneUnmountCmd = &cobra.Command{
	Use:   "clone-unmount",
	Short: "Unmount backup files used by a clone and drop the clone instance",
	Long: `Remove the live mount behind a renamed clone and clean up the clone
instance on this host.

-s names the host the backups are mounted on and the source database. The
clone instances listed with -n are shut down and their files under
$ORACLE_HOME/dbs removed. The source database name is refused.

Examples:
  rbkoracle clone-unmount -s db02:ORCL -n DEV -o /u01/app/oracle/product/19c/dbhome_1
  rbkoracle clone-unmount -s db02:ORCL -n DEV,TEST -o /u01/app/oracle/product/19c/dbhome_1 --all`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runCloneUnmount(cmd.Context(), cloneUnmountOpts)
	},
}

func init() {
	f := cloneUnmountCmd.Flags()
	f.StringVarP(&cloneUnmountOpts.hostDB, "source_host_db", "s", "", "The mount host and source database as <host>:<database>")
	f.StringVarP(&cloneUnmountOpts.cloneNames, "new_oracle_name", "n", "", "Clone database names, separated by commas")
	f.StringVarP(&cloneUnmountOpts.oracleHome, "oracle_home", "o", "", "ORACLE_HOME of the clone databases")
	f.BoolVarP(&cloneUnmountOpts.all, "all", "a", false, "Unmount every mount of the source database on the host")
	for _, name := range []string{"source_host_db", "new_oracle_name", "oracle_home"} {
		_ = cloneUnmountCmd.MarkFlagRequired(name)
	}
}

func runCloneUnmount(ctx context.Context, o cloneUnmountOptions) error {
	host, source, err := resolve.SplitHostDB(o.hostDB)
	if err != nil {
		return err
	}
	names := splitList(o.cloneNames)
	if len(names) == 0 {
		return errs.Validation("at least one clone database name is required")
	}
	for _, n := range names {
		if strings.EqualFold(n, source) {
			return errs.Validation("refusing to drop the source database %s: list only clone database names", source)
		}
	}
	if err := oracle.RequireLocalHost(host); err != nil {
		return err
	}
	// Executors are built up front so a bad ORACLE_HOME fails before unmounting.
	home := request.SanitizePath(o.oracleHome)
	execs := make([]*oracle.Executor, 0, len(names))
	for _, n := range names {
		e, err := oracle.NewExecutor(home, n, nil, log)
		if err != nil {
			return err
		}
		execs = append(execs, e)
	}

	return withSession(ctx, func(ctx context.Context, s *session) error {
		mounts, err := s.resolver.LiveMounts(ctx, source, host)
		if err != nil {
			return err
		}
		if len(mounts) == 0 {
			return errs.NotFound("no live mounts found for %s live mounted on %s", source, host)
		}
		if len(mounts) > 1 && !o.all {
			ids := make([]string, 0, len(mounts))
			for _, m := range mounts {
				ids = append(ids, m.ID)
			}
			return errs.Ambiguous(ids, "more than one backup of %s is live mounted on %s: use --all to unmount them all", source, host)
		}

		log.Warn("Unmounting backup files", "database", source, "host", host, "mounts", len(mounts))
		for _, m := range mounts {
			job, err := s.submit.Unmount(ctx, m.ID, true)
			if err == nil {
				_, err = s.await(ctx, "unmount", source, job, wait.MountTimeout)
			}
			switch {
			case err != nil && len(mounts) == 1:
				return err
			case err != nil:
				log.Warn("Unmount of backup files failed", "mount_id", m.ID, "error", err)
			default:
				log.Warn("Backup files have been unmounted", "mount_id", m.ID)
			}
		}

		for _, e := range execs {
			removed, err := oracle.CleanupClone(ctx, e)
			auditLogger.LocalAction("clone_cleanup", e.SID(), err)
			if err != nil {
				return err
			}
			log.Debug("Clone instance files removed", "sid", e.SID(), "files", removed)
			fmt.Fprintf(stdout, "Clone database %s has been dropped.\n", e.SID())
		}
		return nil
	})
}

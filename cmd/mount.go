package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"rbkoracle/internal/request"
	"rbkoracle/internal/timeconv"
	"rbkoracle/internal/wait"
)

type mountOptions struct {
	sourceHostDB string
	hostTarget   string
	timeRestore  string
	pfile        string
	acoFile      string
	oracleHome   string
	mountPath    string
	filesOnly    bool
	noWait       bool
}

var mountOpts mountOptions

var mountCmd = &cobra.Command{
	Use:   "mount",
	Short: "Live mount a database or its backup files",
	Long: `Live mount a point in time of a database on a host or RAC cluster.

Without --time_restore the latest recovery point is used. With --files_only
the backup pieces are mounted under --mount_path instead of a running
database. A Data Guard group source needs --oracle_home or ORACLE_HOME in
the ACO file.

Examples:
  rbkoracle mount -s db01:ORCL -h db02
  rbkoracle mount -s db01:ORCL -h db02 -t 2024-01-31T13:45:00 -a /tmp/orcl.aco
  rbkoracle mount -s db01:ORCL -h db02 --files_only -m /rubrik/mounts`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runMount(cmd.Context(), mountOpts)
	},
}

func init() {
	f := mountCmd.Flags()
	f.StringVarP(&mountOpts.sourceHostDB, "source_host_db", "s", "", "The source <host or RAC cluster>:<database>")
	f.StringVarP(&mountOpts.hostTarget, "host_target", "h", "", "Host or RAC cluster for the live mount (RAC target required if the source is RAC)")
	f.StringVarP(&mountOpts.timeRestore, "time_restore", "t", "", "Point in time to mount, ISO 8601 such as 2024-01-31T13:45:00")
	f.StringVarP(&mountOpts.pfile, "pfile", "p", "", "Custom pfile path on the target host")
	f.StringVarP(&mountOpts.acoFile, "aco_file_path", "a", "", "ACO file with parameter changes")
	f.StringVarP(&mountOpts.oracleHome, "oracle_home", "o", "", "ORACLE_HOME on the target host")
	f.BoolVar(&mountOpts.filesOnly, "files_only", false, "Mount the backup files only")
	f.StringVarP(&mountOpts.mountPath, "mount_path", "m", "", "Path for a files only mount")
	f.BoolVar(&mountOpts.noWait, "no_wait", false, "Queue the live mount and exit")
	_ = mountCmd.MarkFlagRequired("source_host_db")
	_ = mountCmd.MarkFlagRequired("host_target")
}

func runMount(ctx context.Context, o mountOptions) error {
	opts := request.MountOptions{
		FilesOnly:  o.filesOnly,
		MountPath:  o.mountPath,
		Pfile:      o.pfile,
		OracleHome: o.oracleHome,
	}
	if o.acoFile != "" {
		aco, err := request.LoadACO(o.acoFile)
		if err != nil {
			return err
		}
		opts.ACO = aco
	}
	// Flag combinations are checked before any request is made.
	if err := opts.Validate(); err != nil {
		return err
	}

	return withSession(ctx, func(ctx context.Context, s *session) error {
		ref, db, err := s.database(ctx, o.sourceHostDB)
		if err != nil {
			return err
		}
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
		opts.TargetID = target.ID
		opts.RecoveryPoint = rp

		what := "database"
		if opts.FilesOnly {
			what = "backup files"
		}
		log.Warn("Starting live mount", "what", what, "database", ref.Name, "target", target.Name,
			"recovery_point", timeconv.Describe(rp.TimestampMs, s.Location()))

		job, err := s.submit.LiveMount(ctx, ref.ID, opts)
		if err != nil {
			return err
		}
		if o.noWait {
			s.queued("Live mount", ref.Name, job)
			return nil
		}

		if _, err := s.await(ctx, "mount", ref.Name, job, wait.MountTimeout); err != nil {
			return err
		}
		if opts.FilesOnly {
			fmt.Fprintf(stdout, "Live mount of the %s backup files on %s under %s completed.\n", ref.Name, target.Name, opts.MountPath)
		} else {
			fmt.Fprintf(stdout, "Live mount of %s on %s completed.\n", ref.Name, target.Name)
		}
		return nil
	})
}

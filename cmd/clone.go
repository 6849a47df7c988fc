package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"rbkoracle/internal/request"
	"rbkoracle/internal/resolve"
	"rbkoracle/internal/timeconv"
	"rbkoracle/internal/wait"
)

type cloneOptions struct {
	sourceHostDB string
	hostTarget   string
	timeRestore  string
	newName      string
	pfile        string
	acoFile      string
	oracleHome   string
	noWait       bool
}

var cloneOpts cloneOptions

var cloneCmd = &cobra.Command{
	Use:   "clone",
	Short: "Clone (duplicate) a database onto a host or RAC cluster",
	Long: `Restore a point in time of a database as a new database on a host or
RAC cluster.

Renaming the clone with --new_name needs either a custom pfile or an ACO file
that relocates the files: db_file_name_convert, log_file_name_convert and
parameter_value_convert, or control_files and db_create_file_dest.

Examples:
  rbkoracle clone -s db01:ORCL -h db02 -n ORCLDEV -a /tmp/orcldev.aco`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runClone(cmd.Context(), cloneOpts)
	},
}

func init() {
	f := cloneCmd.Flags()
	f.StringVarP(&cloneOpts.sourceHostDB, "source_host_db", "s", "", "The source <host or RAC cluster>:<database>")
	f.StringVarP(&cloneOpts.hostTarget, "host_target", "h", "", "Host or RAC cluster for the clone (RAC target required if the source is RAC)")
	f.StringVarP(&cloneOpts.timeRestore, "time_restore", "t", "", "Point in time to clone, ISO 8601 such as 2024-01-31T13:45:00")
	f.StringVarP(&cloneOpts.newName, "new_name", "n", "", "Name for the cloned database")
	f.StringVarP(&cloneOpts.pfile, "pfile", "p", "", "Custom pfile path on the target host")
	f.StringVarP(&cloneOpts.acoFile, "aco_file_path", "a", "", "ACO file with parameter changes")
	f.StringVarP(&cloneOpts.oracleHome, "oracle_home", "o", "", "ORACLE_HOME on the target host")
	f.BoolVar(&cloneOpts.noWait, "no_wait", false, "Queue the clone and exit")
	_ = cloneCmd.MarkFlagRequired("source_host_db")
	_ = cloneCmd.MarkFlagRequired("host_target")
}

func runClone(ctx context.Context, o cloneOptions) error {
	_, sourceName, err := resolve.SplitHostDB(o.sourceHostDB)
	if err != nil {
		return err
	}
	opts := request.CloneOptions{
		SourceName: sourceName,
		NewName:    o.newName,
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

		name := ref.Name
		if opts.NewName != "" {
			name = opts.NewName
		}
		log.Warn("Starting clone", "database", ref.Name, "clone", name, "target", target.Name,
			"recovery_point", timeconv.Describe(rp.TimestampMs, s.Location()))

		job, err := s.submit.Clone(ctx, ref.ID, opts)
		if err != nil {
			return err
		}
		if o.noWait {
			s.queued("Clone", ref.Name, job)
			return nil
		}

		if _, err := s.await(ctx, "clone", ref.Name, job, wait.CloneTimeout); err != nil {
			return err
		}
		fmt.Fprintf(stdout, "Clone of %s as %s on %s completed.\n", ref.Name, name, target.Name)
		return nil
	})
}

package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"rbkoracle/internal/resolve"
	"rbkoracle/internal/timeconv"
	"rbkoracle/internal/wait"
)

type validateOptions struct {
	sourceHostDB string
	hostTarget   string
	timeRestore  string
	noWait       bool
}

var validateOpts validateOptions

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the backup pieces for a point in time",
	Long: `Check that the backups needed to restore a database to a point in time
are usable, on the source host or on --host_target. Needs CDM 5.3 or later.

Examples:
  rbkoracle validate -s db01:ORCL
  rbkoracle validate -s db01:ORCL -h db02 -t 2024-01-31T13:45:00`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runValidate(cmd.Context(), validateOpts)
	},
}

func init() {
	f := validateCmd.Flags()
	f.StringVarP(&validateOpts.sourceHostDB, "source_host_db", "s", "", "The source <host or RAC cluster>:<database>")
	f.StringVarP(&validateOpts.hostTarget, "host_target", "h", "", "Host or RAC cluster to validate on (default the source)")
	f.StringVarP(&validateOpts.timeRestore, "time_restore", "t", "", "Point in time to validate, ISO 8601 such as 2024-01-31T13:45:00")
	f.BoolVar(&validateOpts.noWait, "no_wait", false, "Queue the validation and exit")
	_ = validateCmd.MarkFlagRequired("source_host_db")
}

func runValidate(ctx context.Context, o validateOptions) error {
	host, _, err := resolve.SplitHostDB(o.sourceHostDB)
	if err != nil {
		return err
	}
	if o.hostTarget == "" {
		o.hostTarget = host
	}

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

		log.Warn("Starting the validation of the backup pieces", "database", ref.Name, "target", target.Name,
			"recovery_point", timeconv.Describe(rp.TimestampMs, s.Location()))
		job, err := s.submit.Validate(ctx, ref.ID, target.ID, rp)
		if err != nil {
			return err
		}
		if o.noWait {
			s.queued("Validation", ref.Name, job)
			return nil
		}

		if _, err := s.await(ctx, "validate", ref.Name, job, wait.ValidateTimeout); err != nil {
			return err
		}
		fmt.Fprintf(stdout, "Database validate job for %s completed.\n", ref.Name)
		return nil
	})
}

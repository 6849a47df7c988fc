package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"rbkoracle/internal/wait"
)

type snapshotOptions struct {
	sourceHostDB string
	sla          string
	force        bool
	wait         bool
}

var snapshotOpts snapshotOptions

var snapshotCmd = &cobra.Command{
	Use:   "snapshot",
	Short: "Take an on demand backup (snapshot) of a database",
	Long: `Initiate an on demand snapshot of the database.

The database keeps its assigned SLA unless --sla names another one. --force
takes a new full level 0 image backup.

Examples:
  rbkoracle snapshot -s db01:ORCL
  rbkoracle snapshot -s prodrac:HR --sla Gold --force --wait`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSnapshot(cmd.Context(), snapshotOpts)
	},
}

type logBackupOptions struct {
	sourceHostDB string
	wait         bool
}

var logBackupOpts logBackupOptions

var logBackupCmd = &cobra.Command{
	Use:   "log-backup",
	Short: "Take an on demand archive log backup of a database",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runLogBackup(cmd.Context(), logBackupOpts)
	},
}

func init() {
	snapshotCmd.Flags().StringVarP(&snapshotOpts.sourceHostDB, "source_host_db", "s", "", "The source <host or RAC cluster>:<database>")
	snapshotCmd.Flags().StringVar(&snapshotOpts.sla, "sla", "", "SLA domain to use instead of the assigned one")
	snapshotCmd.Flags().BoolVarP(&snapshotOpts.force, "force", "f", false, "Force a new full level 0 backup")
	snapshotCmd.Flags().BoolVar(&snapshotOpts.wait, "wait", false, "Wait for the backup to complete")
	_ = snapshotCmd.MarkFlagRequired("source_host_db")

	logBackupCmd.Flags().StringVarP(&logBackupOpts.sourceHostDB, "source_host_db", "s", "", "The source <host or RAC cluster>:<database>")
	logBackupCmd.Flags().BoolVar(&logBackupOpts.wait, "wait", false, "Wait for the backup to complete")
	_ = logBackupCmd.MarkFlagRequired("source_host_db")
}

func runSnapshot(ctx context.Context, o snapshotOptions) error {
	return withSession(ctx, func(ctx context.Context, s *session) error {
		ref, db, err := s.database(ctx, o.sourceHostDB)
		if err != nil {
			return err
		}

		slaID := db.EffectiveSLADomainID
		if o.sla != "" {
			sla, err := s.resolver.SLA(ctx, o.sla)
			if err != nil {
				return err
			}
			slaID = sla.ID
		}

		job, err := s.submit.Snapshot(ctx, ref.ID, slaID, o.force)
		if err != nil {
			return err
		}
		if !o.wait {
			s.queued("Snapshot", ref.Name, job)
			return nil
		}

		log.Warn("Starting backup (snapshot)", "database", ref.Name, "host", ref.HostOrCluster)
		if _, err := s.await(ctx, "snapshot", ref.Name, job, wait.JobTimeout); err != nil {
			return err
		}
		fmt.Fprintf(stdout, "Database backup (snapshot) of %s completed.\n", ref.Name)
		return nil
	})
}

func runLogBackup(ctx context.Context, o logBackupOptions) error {
	return withSession(ctx, func(ctx context.Context, s *session) error {
		ref, _, err := s.database(ctx, o.sourceHostDB)
		if err != nil {
			return err
		}

		job, err := s.submit.LogBackup(ctx, ref.ID)
		if err != nil {
			return err
		}
		if !o.wait {
			s.queued("Log backup", ref.Name, job)
			return nil
		}

		log.Warn("Starting archive log backup", "database", ref.Name, "host", ref.HostOrCluster)
		if _, err := s.await(ctx, "log_backup", ref.Name, job, wait.JobTimeout); err != nil {
			return err
		}
		fmt.Fprintf(stdout, "Archive log backup of %s completed.\n", ref.Name)
		return nil
	})
}

package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"rbkoracle/internal/errs"
	"rbkoracle/internal/resolve"
	"rbkoracle/internal/rubrik"
)

var infoSourceHostDB string

var infoCmd = &cobra.Command{
	Use:   "info",
	Short: "Show a database's protection, backups and recovery ranges",
	Long: `Print the protection settings of a database, its backups with their
dates in the cluster timezone, and the ranges it can be recovered to.

Examples:
  rbkoracle info -s db01:ORCL
  rbkoracle info -s rac-prod:ORCL`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runInfo(cmd.Context(), infoSourceHostDB)
	},
}

type mountInfoOptions struct {
	sourceHostDB string
	mountedHost  string
}

var mountInfoOpts mountInfoOptions

var mountInfoCmd = &cobra.Command{
	Use:   "mount-info",
	Short: "List the live mounts of a database",
	Long: `List the live mounts whose source is the database, optionally only
those on one host or RAC cluster.

Examples:
  rbkoracle mount-info -s db01:ORCL
  rbkoracle mount-info -s db01:ORCL -m db02`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runMountInfo(cmd.Context(), mountInfoOpts)
	},
}

func init() {
	infoCmd.Flags().StringVarP(&infoSourceHostDB, "source_host_db", "s", "", "The <host or RAC cluster>:<database>")
	_ = infoCmd.MarkFlagRequired("source_host_db")

	mountInfoCmd.Flags().StringVarP(&mountInfoOpts.sourceHostDB, "source_host_db", "s", "", "The source <host or RAC cluster>:<database>")
	mountInfoCmd.Flags().StringVarP(&mountInfoOpts.mountedHost, "mounted_host", "m", "", "Only list mounts on this host or RAC cluster")
	_ = mountInfoCmd.MarkFlagRequired("source_host_db")
}

func runInfo(ctx context.Context, hostDB string) error {
	return withSession(ctx, func(ctx context.Context, s *session) error {
		ref, db, err := s.database(ctx, hostDB)
		if err != nil {
			return err
		}
		snapshots, err := s.resolver.Snapshots(ctx, ref.ID)
		if err != nil {
			return err
		}
		ranges, err := s.resolver.RecoverableRanges(ctx, ref.ID)
		if err != nil {
			return err
		}
		s.printInfo(ref, db, snapshots, ranges)
		return nil
	})
}

func (s *session) printInfo(ref resolve.DatabaseRef, db *rubrik.OracleDB, snapshots []rubrik.Snapshot, ranges []rubrik.RecoverableRange) {
	w := stdout
	fmt.Fprintf(w, "Database:            %s (%s)\n", ref.Name, ref.ID)
	if ref.IsRAC() {
		fmt.Fprintf(w, "RAC cluster:         %s (%d instances)\n", ref.HostOrCluster, db.NumInstances)
	} else {
		fmt.Fprintf(w, "Host:                %s\n", ref.HostOrCluster)
	}
	if ref.Topology == resolve.DataGuardGroup {
		fmt.Fprintf(w, "Data Guard group:    %s\n", db.DataGuardGroupName)
	}
	fmt.Fprintf(w, "SLA domain:          %s\n", db.SLAName())
	if db.ConfiguredSLADomainName != "" && db.ConfiguredSLADomainName != db.SLAName() {
		fmt.Fprintf(w, "Configured SLA:      %s\n", db.ConfiguredSLADomainName)
	}
	fmt.Fprintf(w, "Log backup every:    %d minutes\n", db.LogBackupFrequencyInMinutes)
	fmt.Fprintf(w, "Log retention:       %d hours\n", db.LogRetentionHours)
	fmt.Fprintf(w, "Cluster timezone:    %s\n", s.Timezone())

	fmt.Fprintln(w)
	fmt.Fprintf(w, "Backups (%d):\n", len(snapshots))
	for _, snap := range snapshots {
		kind := snap.SLAName
		if snap.IsOnDemandSnapshot {
			kind += ", on demand"
		}
		fmt.Fprintf(w, "  %s  %s  (%s)\n", s.clusterTime(snap.Date), snap.ID, kind)
	}

	fmt.Fprintln(w)
	fmt.Fprintf(w, "Recoverable ranges (%d):\n", len(ranges))
	for _, r := range ranges {
		fmt.Fprintf(w, "  %s  to  %s\n", s.clusterTime(r.BeginTime), s.clusterTime(r.EndTime))
	}
}

func runMountInfo(ctx context.Context, o mountInfoOptions) error {
	host, name, err := resolve.SplitHostDB(o.sourceHostDB)
	if err != nil {
		return err
	}

	return withSession(ctx, func(ctx context.Context, s *session) error {
		var mounts []rubrik.OracleMount
		if o.mountedHost != "" {
			mounts, err = s.resolver.LiveMounts(ctx, name, o.mountedHost)
		} else {
			mounts, err = s.resolver.MountsOf(ctx, name)
		}
		if err != nil {
			return err
		}
		if len(mounts) == 0 {
			return errs.NotFound("no live mounts found for %s", name)
		}

		fmt.Fprintf(stdout, "Live mounts of %s (%d):\n", name, len(mounts))
		for _, m := range mounts {
			source := m.SourceDatabaseName
			if source == "" {
				source = name
			}
			kind := "database"
			if m.IsFilesOnlyMount {
				kind = "files only"
			}
			fmt.Fprintln(stdout)
			fmt.Fprintf(stdout, "  Source database:   %s\n", source)
			fmt.Fprintf(stdout, "  Source host:       %s\n", host)
			fmt.Fprintf(stdout, "  Mounted host:      %s\n", m.TargetHostName)
			fmt.Fprintf(stdout, "  Created:           %s\n", s.clusterTime(m.CreationDate))
			fmt.Fprintf(stdout, "  Status:            %s (%s)\n", m.Status, kind)
			fmt.Fprintf(stdout, "  Mount id:          %s\n", m.ID)
		}
		return nil
	})
}

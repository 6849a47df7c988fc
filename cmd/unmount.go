package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"rbkoracle/internal/errs"
	"rbkoracle/internal/request"
	"rbkoracle/internal/rubrik"
	"rbkoracle/internal/wait"
)

type unmountOptions struct {
	database   string
	targetHost string
	force      bool
	allMounts  bool
	idUnmount  string
	noWait     bool
}

var unmountOpts unmountOptions

var unmountCmd = &cobra.Command{
	Use:   "unmount",
	Short: "Remove live mounts of a database from a host",
	Long: `Unmount a live mounted database or mounted backup files.

--database is the source database, not the mounted object. When the target
host has more than one mount of it, choose all of them with --all_mounts or
list the mount ids with --id_unmount. mount-info lists the mounts.

Examples:
  rbkoracle unmount --database ORCL -m db02
  rbkoracle unmount --database ORCL -m db02 -i 1f2e...,9a8b...`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runUnmount(cmd.Context(), unmountOpts)
	},
}

func init() {
	f := unmountCmd.Flags()
	f.StringVar(&unmountOpts.database, "database", "", "The source database of the mount")
	f.StringVarP(&unmountOpts.targetHost, "target_host", "m", "", "The host or RAC cluster with the live mount to remove")
	f.BoolVarP(&unmountOpts.force, "force", "f", false, "Force the unmount")
	f.BoolVarP(&unmountOpts.allMounts, "all_mounts", "a", false, "Unmount all mounts of the database on the target host")
	f.StringVarP(&unmountOpts.idUnmount, "id_unmount", "i", "", "Mount ids to unmount, separated by commas")
	f.BoolVar(&unmountOpts.noWait, "no_wait", false, "Queue the unmount and exit")
	_ = unmountCmd.MarkFlagRequired("database")
	_ = unmountCmd.MarkFlagRequired("target_host")
}

// splitList splits a comma separated flag value, dropping blanks.
func splitList(v string) []string {
	var out []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func runUnmount(ctx context.Context, o unmountOptions) error {
	return withSession(ctx, func(ctx context.Context, s *session) error {
		log.Info("Checking for live mounts", "database", o.database, "host", o.targetHost)
		mounts, err := s.resolver.LiveMounts(ctx, o.database, o.targetHost)
		if err != nil {
			return err
		}
		if len(mounts) == 0 {
			return errs.NotFound("no live mounts found for %s live mounted on %s", o.database, o.targetHost)
		}
		selected, err := request.SelectMounts(mounts, o.allMounts, splitList(o.idUnmount))
		if err != nil {
			return err
		}

		var first error
		for _, m := range selected {
			if err := s.unmount(ctx, o.database, m, o.force, o.noWait); err != nil {
				log.Error("Unmount failed", "mount_id", m.ID, "error", err)
				if first == nil {
					first = err
				}
			}
		}
		return first
	})
}

func (s *session) unmount(ctx context.Context, database string, m rubrik.OracleMount, force, noWait bool) error {
	log.Warn("Deleting live mount", "mount_id", m.ID, "host", m.TargetHostName)
	job, err := s.submit.Unmount(ctx, m.ID, force)
	if err != nil {
		return err
	}
	if noWait {
		s.queued("Unmount", database, job)
		return nil
	}
	if _, err := s.await(ctx, "unmount", database, job, wait.JobTimeout); err != nil {
		return err
	}
	fmt.Fprintf(stdout, "Live mount %s of %s has been unmounted.\n", m.ID, database)
	return nil
}

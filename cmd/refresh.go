package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"rbkoracle/internal/resolve"
	"rbkoracle/internal/wait"
)

type refreshOptions struct {
	sourceHostDB string
	wait         bool
}

var refreshOpts refreshOptions

var refreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "Refresh the appliance's view of a database or host",
	Long: `Refresh the metadata the appliance holds for a database.

On CDM 6.0.2 and later a <host>:<database> argument refreshes the database.
Older clusters, or a bare <host> argument, refresh the whole host, which
completes synchronously.

Examples:
  rbkoracle refresh -s db01:ORCL
  rbkoracle refresh -s db01`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runRefresh(cmd.Context(), refreshOpts)
	},
}

func init() {
	refreshCmd.Flags().StringVarP(&refreshOpts.sourceHostDB, "source_host_db", "s", "", "<host or RAC cluster>:<database>, or <host> for a host refresh")
	refreshCmd.Flags().BoolVar(&refreshOpts.wait, "wait", false, "Wait for a database refresh to complete")
	_ = refreshCmd.MarkFlagRequired("source_host_db")
}

func runRefresh(ctx context.Context, o refreshOptions) error {
	host, database, _ := strings.Cut(strings.TrimSpace(o.sourceHostDB), ":")
	if err := resolve.RequireHostname(host); err != nil {
		return err
	}

	return withSession(ctx, func(ctx context.Context, s *session) error {
		if database == "" {
			return s.refreshHost(ctx, host)
		}
		if !s.Capabilities().DatabaseRefresh {
			log.Warn("Database refresh needs CDM 6.0.2, refreshing the host instead", "host", host, "version", s.Version().String())
			return s.refreshHost(ctx, host)
		}

		ref, _, err := s.database(ctx, o.sourceHostDB)
		if err != nil {
			return err
		}
		log.Warn("Refreshing database", "database", ref.Name)
		job, err := s.submit.RefreshDatabase(ctx, ref.ID)
		if err != nil {
			return err
		}
		if !o.wait {
			s.queued("Refresh", ref.Name, job)
			return nil
		}
		if _, err := s.await(ctx, "refresh", ref.Name, job, wait.JobTimeout); err != nil {
			return err
		}
		fmt.Fprintf(stdout, "Oracle database %s refresh completed.\n", ref.Name)
		return nil
	})
}

func (s *session) refreshHost(ctx context.Context, name string) error {
	host, err := s.resolver.Host(ctx, name)
	if err != nil {
		return err
	}
	log.Warn("Refreshing host", "host", host.Name, "id", host.ID)
	if err := s.submit.RefreshHost(ctx, host.ID); err != nil {
		return err
	}
	fmt.Fprintf(stdout, "Host %s refresh complete.\n", host.Name)
	return nil
}

package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"rbkoracle/internal/errs"
	"rbkoracle/internal/resolve"
	"rbkoracle/internal/rubrik"
	"rbkoracle/internal/wait"
)

type protectionOptions struct {
	sourceHostDB string
	inherit      bool
	action       string
	wait         bool
}

var protectionOpts protectionOptions

var protectionCmd = &cobra.Command{
	Use:   "protection",
	Short: "Pause or resume SLA protection of a database",
	Long: `Pause protection by making the database unprotected, keeping its
existing snapshots, or resume it with the SLA domain of the most recent
scheduled snapshot. With --inherit, resume makes the database inherit the
SLA domain of its host instead. Needs CDM 7.0 or later.

Examples:
  rbkoracle protection -s db01:ORCL -a pause --wait
  rbkoracle protection -s db01:ORCL -a resume
  rbkoracle protection -s db01:ORCL -a resume -i`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runProtection(cmd.Context(), protectionOpts)
	},
}

func init() {
	f := protectionCmd.Flags()
	f.StringVarP(&protectionOpts.sourceHostDB, "source_host_db", "s", "", "The <host or RAC cluster>:<database>")
	f.BoolVarP(&protectionOpts.inherit, "inherit", "i", false, "On resume, inherit the SLA domain from the parent object")
	f.StringVarP(&protectionOpts.action, "action", "a", "", "pause or resume")
	f.BoolVar(&protectionOpts.wait, "wait", false, "Wait for the SLA change to take effect")
	_ = protectionCmd.MarkFlagRequired("source_host_db")
	_ = protectionCmd.MarkFlagRequired("action")
}

func runProtection(ctx context.Context, o protectionOptions) error {
	action := strings.ToLower(strings.TrimSpace(o.action))
	if action != "pause" && action != "resume" {
		return errs.Validation("action must be pause or resume, got %q", o.action)
	}
	if action == "pause" && o.inherit {
		log.Warn("--inherit only applies to resume, ignoring it")
	}

	return withSession(ctx, func(ctx context.Context, s *session) error {
		ref, db, err := s.database(ctx, o.sourceHostDB)
		if err != nil {
			return err
		}
		if action == "pause" {
			return s.pause(ctx, ref, db, o.wait)
		}
		return s.resume(ctx, ref, o.inherit, o.wait)
	})
}

func (s *session) pause(ctx context.Context, ref resolve.DatabaseRef, db *rubrik.OracleDB, await bool) error {
	log.Warn("Pausing protection", "database", ref.Name, "configured_sla", db.ConfiguredSLADomainName,
		"effective_sla", db.SLAName())
	pending, err := s.submit.Unprotect(ctx, ref.ID)
	if err != nil {
		return err
	}

	want := wait.SLAExpectation{Name: "Unprotected"}
	if len(pending) > 0 && pending[0].PendingSLADomainName != "" {
		want.Name = pending[0].PendingSLADomainName
	}
	if !await {
		fmt.Fprintf(stdout, "Protection of %s paused, pending SLA %s.\n", ref.Name, want.Name)
		return nil
	}
	if _, err := s.awaitSLA(ctx, ref.ID, want); err != nil {
		return err
	}
	fmt.Fprintf(stdout, "Protection of %s paused, SLA is now %s.\n", ref.Name, want.Name)
	return nil
}

func (s *session) resume(ctx context.Context, ref resolve.DatabaseRef, inherit, await bool) error {
	if inherit {
		log.Warn("Resuming protection with the inherited SLA", "database", ref.Name)
		if _, err := s.submit.Inherit(ctx, ref.ID); err != nil {
			return err
		}
		if await {
			db, err := s.awaitSLA(ctx, ref.ID, wait.SLAExpectation{Derived: true})
			if err != nil {
				return err
			}
			fmt.Fprintf(stdout, "Protection of %s resumed with inherited SLA %s.\n", ref.Name, db.SLAName())
			return nil
		}
		fmt.Fprintf(stdout, "Protection of %s set to inherit its SLA.\n", ref.Name)
		return nil
	}

	snapshots, err := s.resolver.Snapshots(ctx, ref.ID)
	if err != nil {
		return err
	}
	last, ok := resolve.LatestScheduledSLA(snapshots)
	if !ok {
		return errs.NotFound("no scheduled snapshot of %s to take the SLA domain from, use --inherit or assign an SLA domain", ref.Name)
	}
	log.Warn("Resuming protection", "database", ref.Name, "sla", last.SLAName,
		"from_snapshot", s.clusterTime(last.Date))
	if _, err := s.submit.AssignSLA(ctx, last.SLAID, ref.ID); err != nil {
		return err
	}
	if await {
		if _, err := s.awaitSLA(ctx, ref.ID, wait.SLAExpectation{Name: last.SLAName}); err != nil {
			return err
		}
	}
	fmt.Fprintf(stdout, "Protection of %s resumed with SLA %s.\n", ref.Name, last.SLAName)
	return nil
}

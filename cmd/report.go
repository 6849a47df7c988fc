package cmd

import (
	"context"
	"os"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"rbkoracle/internal/cloud"
	"rbkoracle/internal/errs"
	"rbkoracle/internal/logger"
	"rbkoracle/internal/report"
)

type reportOptions struct {
	output  string
	upload  string
	workers int
}

var reportOpts reportOptions

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Report the protection status of every Oracle database",
	Long: `List every Oracle database known to the appliance with its SLA domain,
log backup frequency, last backup and last log backup. Data Guard groups are
reported once per member. Times are in the cluster timezone.

With --upload the report is also stored in object storage. A URI ending in
/ gets a timestamped file name. Credentials come from the usual provider
environment (AWS_*, AZURE_STORAGE_*, GOOGLE_APPLICATION_CREDENTIALS).

Examples:
  rbkoracle report
  rbkoracle report --output json --upload s3://reports/oracle/`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if !cmd.Flags().Changed("workers") {
			reportOpts.workers = cfg.ReportWorkers
		}
		return runReport(cmd.Context(), reportOpts)
	},
}

func init() {
	f := reportCmd.Flags()
	f.StringVar(&reportOpts.output, "output", report.FormatTable, "Output format: table or json")
	f.StringVar(&reportOpts.upload, "upload", "", "Also upload the report to s3://, azure:// or gs:// URI")
	f.IntVar(&reportOpts.workers, "workers", report.DefaultWorkers, "Concurrent database lookups")
}

func runReport(ctx context.Context, o reportOptions) error {
	if o.output != report.FormatTable && o.output != report.FormatJSON {
		return errs.Validation("output must be %s or %s, got %q", report.FormatTable, report.FormatJSON, o.output)
	}
	var target *cloud.URI
	if o.upload != "" {
		u, err := cloud.ParseURI(o.upload)
		if err != nil {
			return err
		}
		target = u
	}

	return withSession(ctx, func(ctx context.Context, s *session) error {
		start := time.Now()
		rows, err := report.NewBuilder(s.resolver, s.Location(), o.workers, log).Build(ctx)
		if err != nil {
			return err
		}
		log.Time("Report built", "rows", len(rows), "workers", o.workers, "cluster", s.ClusterName(),
			"duration", logger.FormatDuration(time.Since(start)))

		color := !cfg.NoColor && o.output == report.FormatTable && isatty.IsTerminal(os.Stdout.Fd())
		if err := report.Render(stdout, rows, o.output, color); err != nil {
			return err
		}

		if target == nil {
			return nil
		}
		backend, err := cloud.NewBackend(ctx, target.ToConfig())
		if err != nil {
			return err
		}
		key := target.Key(report.DefaultName(o.output, time.Now()))
		if err := report.Upload(ctx, backend, key, rows, o.output, log); err != nil {
			return err
		}
		auditLogger.LocalAction("report_upload", target.String(), nil)
		return nil
	})
}

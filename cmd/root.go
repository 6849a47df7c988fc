package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"rbkoracle/internal/audit"
	"rbkoracle/internal/config"
	"rbkoracle/internal/logger"
	"rbkoracle/internal/progress"
)

var (
	cfg         *config.Config
	log         logger.Logger
	auditLogger *audit.Logger

	// stdout receives command results; logs and progress go to stderr.
	stdout io.Writer = os.Stdout
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "rbkoracle",
	Short: "Oracle backup, live mount and clone orchestration for Rubrik CDM",
	Long: `Drive Oracle database operations on a Rubrik CDM appliance.

Every command resolves the database by <host or RAC cluster>:<database>,
submits one request to the appliance and, unless told otherwise, waits for
the request to finish.

Connection details are read from --keyfile, then the credential file
(--config_file, default ./config.json), then the environment variables
rubrik_cdm_node_ip, rubrik_cdm_username, rubrik_cdm_password and
rubrik_cdm_token.

Examples:
  # On demand backup with a different SLA
  rbkoracle snapshot -s db01:ORCL --sla Gold --wait

  # Live mount the latest recovery point on another host
  rbkoracle mount -s db01:ORCL -h db02

  # Remove every live mount of ORCL from db02
  rbkoracle unmount --database ORCL -m db02 --all_mounts`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cfg == nil {
			return nil
		}
		if err := cfg.Validate(); err != nil {
			return err
		}
		return setupLogging()
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute(ctx context.Context, config *config.Config, logger logger.Logger) error {
	cfg = config
	log = logger
	auditLogger = audit.New(logger, true)

	rootCmd.Version = fmt.Sprintf("%s (built: %s, commit: %s)",
		cfg.Version, cfg.BuildTime, cfg.GitCommit)

	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&cfg.LogLevel, "debug_level", "d", cfg.LogLevel, "Logging level: DEBUG, INFO, WARNING, ERROR or CRITICAL")
	pf.StringVar(&cfg.LogFormat, "log_format", cfg.LogFormat, "Log format (text|json)")
	pf.StringVar(&cfg.LogFile, "log_file", cfg.LogFile, "Also write the log to this file")
	pf.StringVarP(&cfg.Keyfile, "keyfile", "k", cfg.Keyfile, "Service account keyfile path")
	pf.StringVar(&cfg.CredentialFile, "config_file", cfg.CredentialFile, "Credential file path")
	pf.BoolVar(&cfg.Insecure, "insecure", cfg.Insecure, "Skip TLS certificate verification")
	pf.DurationVar(&cfg.HTTPTimeout, "http_timeout", cfg.HTTPTimeout, "Timeout for one appliance request")
	pf.DurationVar(&cfg.PollInterval, "poll_interval", cfg.PollInterval, "Pause between two job status polls")
	pf.DurationVar(&cfg.Timeout, "timeout", cfg.Timeout, "Override the default wait for the operation (0 keeps the default)")
	pf.StringVar(&cfg.Progress, "progress", cfg.Progress, "Progress display while waiting ("+strings.Join(progress.Kinds, "|")+")")
	pf.BoolVar(&cfg.NoColor, "no_color", cfg.NoColor, "Disable colored output")

	return rootCmd.ExecuteContext(ctx)
}

// setupLogging rebuilds the logger once flags are parsed.
func setupLogging() error {
	if cfg.LogFile != "" {
		l, err := logger.FileLogger(cfg.LogLevel, cfg.LogFormat, cfg.LogFile)
		if err != nil {
			return err
		}
		log = l
	} else {
		log = logger.New(cfg.LogLevel, cfg.LogFormat)
	}
	auditLogger = audit.New(log, true)
	return nil
}

func init() {
	rootCmd.AddCommand(snapshotCmd)
	rootCmd.AddCommand(logBackupCmd)
	rootCmd.AddCommand(mountCmd)
	rootCmd.AddCommand(cloneCmd)
	rootCmd.AddCommand(backupCloneCmd)
	rootCmd.AddCommand(mountCloneCmd)
	rootCmd.AddCommand(backupMountCloneCmd)
	rootCmd.AddCommand(unmountCmd)
	rootCmd.AddCommand(cloneUnmountCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(refreshCmd)
	rootCmd.AddCommand(protectionCmd)
	rootCmd.AddCommand(infoCmd)
	rootCmd.AddCommand(mountInfoCmd)
	rootCmd.AddCommand(reportCmd)
}

package config

import (
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"rbkoracle/internal/errs"
	"rbkoracle/internal/logger"
	"rbkoracle/internal/progress"
)

// CredentialFileName is the appliance credential file looked up when
// --config_file is not given.
const CredentialFileName = "config.json"

// Config holds all process-level options
type Config struct {
	// Version information
	Version   string
	BuildTime string
	GitCommit string

	// Appliance connection
	Keyfile        string
	CredentialFile string
	Insecure       bool
	HTTPTimeout    time.Duration

	// Async job polling
	PollInterval time.Duration
	Timeout      time.Duration // 0 = per-operation default

	// Output options
	LogLevel  string
	LogFormat string
	LogFile   string
	NoColor   bool
	Progress  string // indicator kind, see progress.Kinds

	// Report options
	ReportWorkers int
}

// New creates a new configuration with default values
func New() *Config {
	return &Config{
		Keyfile:        getEnvString("RBK_KEYFILE", ""),
		CredentialFile: getEnvString("RBK_CONFIG_FILE", defaultCredentialFile()),
		Insecure:       getEnvBool("RBK_INSECURE", false),
		HTTPTimeout:    time.Duration(getEnvInt("RBK_HTTP_TIMEOUT", 60)) * time.Second,

		PollInterval: time.Duration(getEnvInt("RBK_POLL_INTERVAL", 10)) * time.Second,

		LogLevel:  getEnvString("RBK_DEBUG_LEVEL", "WARNING"),
		LogFormat: getEnvString("RBK_LOG_FORMAT", "text"),
		LogFile:   getEnvString("RBK_LOG_FILE", ""),
		NoColor:   getEnvBool("NO_COLOR", false),
		Progress:  getEnvString("RBK_PROGRESS", "none"),

		ReportWorkers: getEnvInt("RBK_REPORT_WORKERS", 16),
	}
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if _, err := logger.ParseLevel(c.LogLevel); err != nil {
		return configError("debug_level", c.LogLevel, err.Error())
	}
	if c.LogFormat != "text" && c.LogFormat != "json" {
		return configError("log_format", c.LogFormat, "must be 'text' or 'json'")
	}
	if c.PollInterval <= 0 {
		return configError("poll_interval", c.PollInterval.String(), "must be positive")
	}
	if c.HTTPTimeout <= 0 {
		return configError("http_timeout", c.HTTPTimeout.String(), "must be positive")
	}
	if c.Timeout < 0 {
		return configError("timeout", c.Timeout.String(), "must not be negative")
	}
	if !slices.Contains(progress.Kinds, c.Progress) {
		return configError("progress", c.Progress, "must be one of "+strings.Join(progress.Kinds, ", "))
	}
	if c.ReportWorkers < 1 {
		return configError("workers", strconv.Itoa(c.ReportWorkers), "must be at least 1")
	}
	return nil
}

// WaitTimeout returns the --timeout override or the operation default.
func (c *Config) WaitTimeout(def time.Duration) time.Duration {
	if c.Timeout > 0 {
		return c.Timeout
	}
	return def
}

func configError(field, value, message string) error {
	return errs.Config("config error in field '%s' with value '%s': %s", field, value, message)
}

// defaultCredentialFile prefers ./config.json and falls back to the file
// next to the executable, where the scripts traditionally kept it.
func defaultCredentialFile() string {
	if _, err := os.Stat(CredentialFileName); err == nil {
		return CredentialFileName
	}
	if exe, err := os.Executable(); err == nil {
		return filepath.Join(filepath.Dir(exe), CredentialFileName)
	}
	return CredentialFileName
}

// Helper functions
func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

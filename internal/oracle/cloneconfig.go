package oracle

import (
	"bufio"
	"io"
	"os"
	"strconv"
	"strings"

	"rbkoracle/internal/errs"
)

// CloneSection is the only section read from a clone configuration file.
const CloneSection = "parameters"

// CloneConfig is the [parameters] section of a backup-clone configuration.
type CloneConfig struct {
	SPFile          bool
	NoFileNameCheck bool
	RefreshDB       bool
	DropDatabase    bool
	Parallelism     int

	DBFileNameConvert  string
	ControlFiles       string
	LogFileNameConvert string
	AuditFileDest      string
	CoreDumpDest       string
}

// DefaultCloneConfig duplicates the spfile and checks file names.
func DefaultCloneConfig() CloneConfig {
	return CloneConfig{SPFile: true}
}

// LoadCloneConfig reads path. An empty path yields the defaults.
func LoadCloneConfig(path string) (CloneConfig, error) {
	if path == "" {
		return DefaultCloneConfig(), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return CloneConfig{}, errs.Config("reading clone configuration %s: %v", path, err)
	}
	defer f.Close()
	return ParseCloneConfig(f)
}

// ParseCloneConfig reads an INI document. Keys outside [parameters] are
// ignored; unknown keys inside it are rejected.
func ParseCloneConfig(r io.Reader) (CloneConfig, error) {
	cfg := DefaultCloneConfig()
	section := ""
	scanner := bufio.NewScanner(r)
	lineNo := 0

	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, ";") {
			continue
		}
		if strings.HasPrefix(line, "[") && strings.HasSuffix(line, "]") {
			section = strings.ToLower(strings.TrimSpace(strings.Trim(line, "[]")))
			continue
		}
		if section != CloneSection {
			continue
		}

		key, value, ok := cutKeyValue(line)
		if !ok {
			return CloneConfig{}, errs.Config("clone configuration line %d: expected key = value", lineNo)
		}
		if err := cfg.set(strings.ToLower(key), value); err != nil {
			return CloneConfig{}, errs.Config("clone configuration line %d: %v", lineNo, err)
		}
	}
	if err := scanner.Err(); err != nil {
		return CloneConfig{}, errs.Config("reading clone configuration: %v", err)
	}
	return cfg, nil
}

func (c *CloneConfig) set(key, value string) error {
	var err error
	switch key {
	case "spfile":
		c.SPFile, err = parseBool(value)
	case "no_file_name_check":
		c.NoFileNameCheck, err = parseBool(value)
	case "refresh_db":
		c.RefreshDB, err = parseBool(value)
	case "drop_database":
		c.DropDatabase, err = parseBool(value)
	case "parallelism":
		c.Parallelism, err = strconv.Atoi(value)
		if err == nil && c.Parallelism < 0 {
			err = errs.Validation("parallelism must not be negative")
		}
	case "db_file_name_convert":
		c.DBFileNameConvert = value
	case "control_files":
		c.ControlFiles = value
	case "log_file_name_convert":
		c.LogFileNameConvert = value
	case "audit_file_dest":
		c.AuditFileDest = value
	case "core_dump_dest":
		c.CoreDumpDest = value
	default:
		return errs.Validation("unknown parameter %q", key)
	}
	if err != nil {
		return errs.Validation("invalid value %q for %s", value, key)
	}
	return nil
}

// Duplicate turns the configuration into duplicate options.
func (c CloneConfig) Duplicate(sourceName, newName, untilTime, backupLocation string) DuplicateOptions {
	return DuplicateOptions{
		NewName:            newName,
		SourceName:         sourceName,
		UntilTime:          untilTime,
		SPFile:             c.SPFile,
		DBFileNameConvert:  c.DBFileNameConvert,
		ControlFiles:       c.ControlFiles,
		LogFileNameConvert: c.LogFileNameConvert,
		AuditFileDest:      c.AuditFileDest,
		CoreDumpDest:       c.CoreDumpDest,
		BackupLocation:     backupLocation,
		NoFileNameCheck:    c.NoFileNameCheck,
		Channels:           c.Parallelism,
	}
}

// Startup picks the auxiliary instance startup for this configuration.
func (c CloneConfig) Startup(initFile string) StartupOptions {
	opts := StartupOptions{Restart: c.RefreshDB}
	if c.SPFile {
		opts.Pfile = initFile
	}
	return opts
}

func cutKeyValue(line string) (string, string, bool) {
	i := strings.IndexAny(line, "=:")
	if i <= 0 {
		return "", "", false
	}
	return strings.TrimSpace(line[:i]), strings.TrimSpace(line[i+1:]), true
}

// parseBool accepts the INI spellings yes/no and on/off as well.
func parseBool(v string) (bool, error) {
	switch strings.ToLower(v) {
	case "yes", "on":
		return true, nil
	case "no", "off":
		return false, nil
	}
	return strconv.ParseBool(v)
}

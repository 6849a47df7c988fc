package oracle

import (
	"fmt"
	"strings"

	"rbkoracle/internal/errs"
)

// DuplicateOptions describe an RMAN "duplicate database" from backup pieces.
type DuplicateOptions struct {
	NewName    string
	SourceName string

	// UntilTime is wall-clock "YYYY-MM-DD HH24:MI:SS"; an ISO "T" separator
	// is accepted.
	UntilTime string

	// SPFile duplicates the source spfile with parameter_value_convert.
	SPFile bool

	DBFileNameConvert  string
	ControlFiles       string
	LogFileNameConvert string
	AuditFileDest      string
	CoreDumpDest       string

	BackupLocation  string
	NoFileNameCheck bool

	// Channels allocates that many auxiliary disk channels inside a run block.
	Channels int
}

func (o DuplicateOptions) hasSets() bool {
	return o.DBFileNameConvert != "" || o.ControlFiles != "" || o.LogFileNameConvert != "" ||
		o.AuditFileDest != "" || o.CoreDumpDest != ""
}

// BuildDuplicateScript renders the rman script for o.
func BuildDuplicateScript(o DuplicateOptions) (string, error) {
	if o.NewName == "" || o.BackupLocation == "" {
		return "", errs.Validation("a duplicate needs a new database name and a backup location")
	}
	if o.hasSets() && !o.SPFile {
		return "", errs.Validation("parameter overrides require the spfile option")
	}
	if o.SPFile && o.SourceName == "" {
		return "", errs.Validation("spfile conversion needs the source database name")
	}

	parts := []string{"duplicate database to " + o.NewName}
	if o.UntilTime != "" {
		parts = append(parts, untilTime(o.UntilTime))
	}
	if o.SPFile {
		parts = append(parts, fmt.Sprintf("SPFILE parameter_value_convert ('%s','%s')", o.SourceName, o.NewName))
		for _, set := range []struct{ name, value string }{
			{"db_file_name_convert", o.DBFileNameConvert},
			{"control_files", o.ControlFiles},
			{"log_file_name_convert", o.LogFileNameConvert},
			{"audit_file_dest", quoted(o.AuditFileDest)},
			{"core_dump_dest", quoted(o.CoreDumpDest)},
		} {
			if set.value != "" {
				parts = append(parts, fmt.Sprintf("set %s = %s", set.name, set.value))
			}
		}
	}
	parts = append(parts, fmt.Sprintf("BACKUP LOCATION '%s'", o.BackupLocation))
	if o.NoFileNameCheck {
		parts = append(parts, "NOFILENAMECHECK")
	}
	duplicate := strings.Join(parts, " ") + ";"

	if o.Channels <= 0 {
		return duplicate, nil
	}
	var sb strings.Builder
	sb.WriteString("run {\n")
	for i := 1; i <= o.Channels; i++ {
		fmt.Fprintf(&sb, "allocate auxiliary channel aux%d device type disk;\n", i)
	}
	sb.WriteString(duplicate + "\n}")
	return sb.String(), nil
}

// untilTime renders an RMAN until time clause; an ISO "T" separator is
// accepted.
func untilTime(t string) string {
	return fmt.Sprintf(`until time "TO_DATE('%s','YYYY-MM-DD HH24:MI:SS')"`, strings.Replace(t, "T", " ", 1))
}

// quoted wraps a bare path in single quotes; already quoted values pass.
func quoted(v string) string {
	if v == "" || strings.HasPrefix(v, "'") {
		return v
	}
	return "'" + v + "'"
}

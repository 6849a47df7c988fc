package checks

import (
	"regexp"
	"slices"
)

// Hint explains a known Oracle or RMAN failure and what to do about it.
type Hint struct {
	Code     string
	Category string
	Hint     string
	Action   string
}

type pattern struct {
	re   *regexp.Regexp
	hint Hint
}

// Patterns are tried in order; the first match wins.
var patterns = []pattern{
	{regexp.MustCompile(`ORA-01081`), Hint{
		Category: "instance",
		Hint:     "An instance with this SID is already running",
		Action:   "Shut the instance down or pick another clone name",
	}},
	{regexp.MustCompile(`ORA-01017|ORA-01031`), Hint{
		Category: "permissions",
		Hint:     "Connecting as sysdba was refused",
		Action:   "Run as the Oracle software owner in the dba group",
	}},
	{regexp.MustCompile(`ORA-(19505|27037|19870)`), Hint{
		Category: "backup_files",
		Hint:     "A backup piece could not be opened",
		Action:   "Check the live mount of the backup files is still present and readable",
	}},
	{regexp.MustCompile(`RMAN-06054|RMAN-06025|ORA-01547`), Hint{
		Category: "recovery_point",
		Hint:     "Archive logs needed for the requested time are missing",
		Action:   "Choose a --time_restore inside a recoverable range (see the info command)",
	}},
	{regexp.MustCompile(`RMAN-05001|ORA-01276|ORA-19504`), Hint{
		Category: "file_names",
		Hint:     "Datafile names collide with an existing database",
		Action:   "Set db_file_name_convert and log_file_name_convert, or no_file_name_check in the configuration file",
	}},
	{regexp.MustCompile(`(?i)ORA-27040|permission denied`), Hint{
		Category: "permissions",
		Hint:     "A destination directory is not writable",
		Action:   "Create the directories and give the Oracle software owner write access",
	}},
	{regexp.MustCompile(`(?i)ORA-19502|ORA-27072|no space left`), Hint{
		Category: "disk_space",
		Hint:     "The destination filesystem is full",
		Action:   "Free space in the datafile and recovery destinations",
	}},
	{regexp.MustCompile(`ORA-00845|ORA-27102`), Hint{
		Category: "memory",
		Hint:     "The instance could not allocate its memory",
		Action:   "Lower sga_target and pga_aggregate_target or raise the host memory limits",
	}},
}

var codeRE = regexp.MustCompile(`(ORA|RMAN)-\d{5}`)

// ClassifyOracleOutput returns the hint for the first known failure in the
// output of sqlplus or rman, or nil.
func ClassifyOracleOutput(output string) *Hint {
	for _, p := range patterns {
		if loc := p.re.FindStringIndex(output); loc != nil {
			h := p.hint
			h.Code = codeRE.FindString(output[loc[0]:])
			return &h
		}
	}
	return nil
}

// ErrorCodes lists the distinct ORA- and RMAN- codes in output, in order.
func ErrorCodes(output string) []string {
	var codes []string
	for _, c := range codeRE.FindAllString(output, -1) {
		if !slices.Contains(codes, c) {
			codes = append(codes, c)
		}
	}
	return codes
}

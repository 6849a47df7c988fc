package oracle

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"

	"github.com/pkg/errors"

	"rbkoracle/internal/errs"
)

// autobackupName matches the default controlfile autobackup format
// c-<dbid>-<yyyymmdd>-<seq>.
var autobackupName = regexp.MustCompile(`^c-\d+-(\d{8})-([0-9a-fA-F]{2})$`)

// LatestAutobackup finds the newest controlfile autobackup under dir.
func LatestAutobackup(dir string) (string, error) {
	var best, bestKey string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		m := autobackupName.FindStringSubmatch(d.Name())
		if m == nil {
			return nil
		}
		if key := m[1] + m[2]; key > bestKey {
			best, bestKey = path, key
		}
		return nil
	})
	if err != nil {
		return "", errors.Wrapf(err, "searching %s for controlfile autobackups", dir)
	}
	if best == "" {
		return "", errs.NotFound("no controlfile autobackup found in %s", dir)
	}
	return best, nil
}

// FilesLayout is where a clone opened from mounted backup files keeps the
// files it writes itself.
type FilesLayout struct {
	Root         string
	AuditDest    string
	RecoveryArea string
	ControlFile  string
}

// NewFilesLayout is the layout under <dir>/<name>.
func NewFilesLayout(dir, name string) FilesLayout {
	root := filepath.Join(dir, name)
	return FilesLayout{
		Root:         root,
		AuditDest:    filepath.Join(root, "adump"),
		RecoveryArea: filepath.Join(root, "fast_recovery_area"),
		ControlFile:  filepath.Join(root, "control01.ctl"),
	}
}

// Create makes the layout's directories.
func (l FilesLayout) Create() error {
	for _, dir := range []string{l.Root, l.AuditDest, l.RecoveryArea} {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return errors.Wrapf(err, "creating %s", dir)
		}
	}
	return nil
}

// BackupCloneOptions describe opening a renamed database directly on
// mounted backup files.
type BackupCloneOptions struct {
	SourceName string
	NewName    string
	// BackupPath is the directory the files-only mount created.
	BackupPath string
	Autobackup string
	Layout     FilesLayout
	// UntilTime recovers to a point in time; empty recovers completely.
	UntilTime string
	NIDLog    string
}

// relocateSQL renames every file listed by view/column into dir, keeping
// the file names.
func relocateSQL(view, column, dir string) string {
	return fmt.Sprintf(`set serveroutput on
declare
  l_target varchar2(513);
begin
  for f in (select %[2]s src, substr(%[2]s, instr(%[2]s, '/', -1) + 1) base from %[1]s) loop
    l_target := '%[3]s' || '/' || f.base;
    dbms_output.put_line('rename ' || f.src || ' to ' || l_target);
    execute immediate 'alter database rename file ''' || f.src || ''' to ''' || l_target || '''';
  end loop;
end;
/`, view, column, dir)
}

// Step is one named stage of opening a clone on mounted backup files.
type Step struct {
	Name string
	run  func(context.Context) (string, error)
}

// BackupCloneSteps returns the stages that open the backup files mounted at
// o.BackupPath as database o.NewName. e must run the SID o.NewName.
func BackupCloneSteps(e *Executor, o BackupCloneOptions) []Step {
	rman := func(script string) func(context.Context) (string, error) {
		return func(ctx context.Context) (string, error) { return e.RMAN(ctx, script, Target) }
	}
	sql := func(stmts ...string) func(context.Context) (string, error) {
		return func(ctx context.Context) (string, error) { return e.sqlSteps(ctx, stmts...) }
	}
	recoverDB := "recover database;"
	if o.UntilTime != "" {
		recoverDB = "recover database " + untilTime(o.UntilTime) + ";"
	}
	spfile := filepath.Join(e.home, "dbs", "spfile"+e.sid+".ora")

	return []Step{
		{"Starting the instance from a temporary init file", func(ctx context.Context) (string, error) {
			pfile, err := e.WriteInitFileNamed(o.SourceName)
			if err != nil {
				return "", err
			}
			return e.SQLPlus(ctx, fmt.Sprintf("startup force nomount pfile='%s';", pfile))
		}},
		{"Restoring the server parameter file", rman(fmt.Sprintf("restore spfile to '%s' from '%s';", spfile, o.Autobackup))},
		{"Setting instance parameters", sql(
			"startup force nomount;",
			fmt.Sprintf("alter system set db_unique_name='%s' scope=spfile;", o.NewName),
			fmt.Sprintf("alter system set audit_file_dest='%s' scope=spfile;", o.Layout.AuditDest),
			"startup force nomount;",
		)},
		{"Restoring the control file", rman(fmt.Sprintf("restore controlfile to '%s' from '%s';", o.Layout.ControlFile, o.Autobackup))},
		{"Pointing the instance at the restored control file", sql(
			fmt.Sprintf("alter system set control_files='%s' scope=spfile;", o.Layout.ControlFile),
			fmt.Sprintf("alter system set db_recovery_file_dest='%s' scope=spfile;", o.Layout.RecoveryArea),
			"startup force mount;",
		)},
		{"Cataloging the backup files", rman(fmt.Sprintf(
			"crosscheck copy;\ncrosscheck backup;\ndelete noprompt expired copy;\ndelete noprompt expired backup;\ncatalog start with '%s' noprompt;",
			o.BackupPath))},
		{"Switching to the mounted data files", rman("switch database to copy;")},
		{"Relocating redo logs", sql(relocateSQL("v$logfile", "member", o.Layout.Root))},
		{"Relocating temp files", sql(relocateSQL("v$tempfile", "name", o.Layout.Root))},
		{"Recovering the database", rman(recoverDB)},
		{"Opening with resetlogs", sql(
			"alter database noarchivelog;",
			"alter database open resetlogs;",
			"shutdown immediate;",
			"startup mount;",
		)},
		{"Changing the database name", func(ctx context.Context) (string, error) {
			return e.NID(ctx, o.NewName, o.NIDLog)
		}},
		{"Opening the renamed database", func(ctx context.Context) (string, error) {
			return e.OpenRenamed(ctx, o.NewName)
		}},
	}
}

// Run executes the step.
func (s Step) Run(ctx context.Context) (string, error) { return s.run(ctx) }

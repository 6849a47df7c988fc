package oracle

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/pkg/errors"

	"rbkoracle/internal/errs"
)

// nidFailure matches DBNEWID error lines such as "NID-00135".
var nidFailure = regexp.MustCompile(`NID-\d{5}`)

// NID runs the DBNEWID utility against the mounted database, changing its
// name to dbName. The utility's log is written to logFile and returned.
func (e *Executor) NID(ctx context.Context, dbName, logFile string) (string, error) {
	e.log.Info("Running DBNEWID", "sid", e.sid, "dbname", dbName, "logfile", logFile)
	out, err := e.runner.Run(ctx, e.env(), "",
		filepath.Join(e.home, "bin", "nid"), "target=/", "dbname="+dbName, "logfile="+logFile)
	if data, rerr := os.ReadFile(logFile); rerr == nil {
		out += string(data)
	}
	e.log.Info(strings.TrimSpace(out))
	if err != nil {
		return out, err
	}
	if code := nidFailure.FindString(out); code != "" {
		return out, errs.Validation("DBNEWID failed to rename %s to %s (%s), see %s", e.sid, dbName, code, logFile)
	}
	return out, nil
}

// sqlSteps runs each statement in its own sqlplus session, stopping at the
// first failure.
func (e *Executor) sqlSteps(ctx context.Context, stmts ...string) (string, error) {
	for _, stmt := range stmts {
		if out, err := e.SQLPlus(ctx, stmt); err != nil {
			return out, err
		}
	}
	return "", nil
}

// OpenRenamed sets db_name in the spfile after DBNEWID and opens the
// database with resetlogs.
func (e *Executor) OpenRenamed(ctx context.Context, dbName string) (string, error) {
	return e.sqlSteps(ctx,
		"startup force nomount;",
		fmt.Sprintf("alter system set db_name='%s' scope=spfile;", dbName),
		"shutdown immediate;",
		"startup mount;",
		"alter database open resetlogs;",
	)
}

// RenameLiveMount renames the live mounted database run by e to newName.
// The database is reopened under an instance named newName, whose executor
// is returned. Instance files for the new SID land in $ORACLE_HOME/dbs.
func RenameLiveMount(ctx context.Context, e *Executor, newName, logDir string) (*Executor, string, error) {
	if strings.EqualFold(e.sid, newName) {
		return nil, "", errs.Validation("the live mount is already named %s", newName)
	}
	renamed := &Executor{home: e.home, sid: newName, runner: e.runner, log: e.log}

	if out, err := e.sqlSteps(ctx, "shutdown immediate;", "startup mount;"); err != nil {
		return nil, out, err
	}
	if out, err := e.NID(ctx, newName, filepath.Join(logDir, "nid_"+newName+".log")); err != nil {
		return nil, out, err
	}

	pfile := renamed.InitFile()
	out, err := e.sqlSteps(ctx,
		"startup force nomount;",
		fmt.Sprintf("alter system set db_name='%s' scope=spfile;", newName),
		fmt.Sprintf("alter system set db_unique_name='%s' scope=spfile;", newName),
		fmt.Sprintf("create pfile='%s' from spfile;", pfile),
		"shutdown immediate;",
	)
	if err != nil {
		return nil, out, err
	}
	e.log.Debug("Wrote init file for the renamed instance", "path", pfile)

	out, err = renamed.sqlSteps(ctx,
		fmt.Sprintf("create spfile from pfile='%s';", pfile),
		"startup mount;",
		"alter database open resetlogs;",
	)
	if err != nil {
		return nil, out, err
	}
	return renamed, "", nil
}

// WriteInitFileNamed writes a minimal pfile for the instance naming dbName.
func (e *Executor) WriteInitFileNamed(dbName string) (string, error) {
	path := e.InitFile()
	if err := os.WriteFile(path, []byte("db_name="+dbName+"\n"), 0644); err != nil {
		return "", errors.Wrapf(err, "writing %s", path)
	}
	e.log.Debug("Created temporary init file", "path", path)
	return path, nil
}

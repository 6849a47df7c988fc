package oracle

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"

	"rbkoracle/internal/errs"
	"rbkoracle/internal/logger"
)

// ErrInstanceRunning is returned when startup finds the instance already up.
var ErrInstanceRunning = errors.New("instance already running")

// instanceRunningSignature is what sqlplus prints for a second startup.
const instanceRunningSignature = "ORA-01081"

// Connection selects how rman attaches to the instance.
type Connection string

const (
	Target    Connection = "target"
	Auxiliary Connection = "auxiliary"
)

// Executor runs sqlplus and rman as SYSDBA against one instance.
type Executor struct {
	home   string
	sid    string
	runner Runner
	log    logger.Logger
}

// NewExecutor checks that home exists before anything is run from it.
func NewExecutor(home, sid string, runner Runner, log logger.Logger) (*Executor, error) {
	if home == "" {
		return nil, errs.Validation("ORACLE_HOME is not set")
	}
	if fi, err := os.Stat(home); err != nil || !fi.IsDir() {
		return nil, errs.Validation("the ORACLE_HOME %s does not exist on this host", home)
	}
	if sid == "" {
		return nil, errs.Validation("ORACLE_SID is not set")
	}
	if runner == nil {
		runner = ExecRunner{}
	}
	return &Executor{home: home, sid: sid, runner: runner, log: log}, nil
}

func (e *Executor) Home() string { return e.home }
func (e *Executor) SID() string  { return e.sid }

func (e *Executor) env() []string {
	return []string{"ORACLE_HOME=" + e.home, "ORACLE_SID=" + e.sid}
}

// SQLPlus runs sql through "sqlplus -S / as sysdba".
func (e *Executor) SQLPlus(ctx context.Context, sql string) (string, error) {
	e.log.Debug("sqlplus", "sid", e.sid, "sql", sql)
	out, err := e.runner.Run(ctx, e.env(), sql+"\nexit;\n",
		filepath.Join(e.home, "bin", "sqlplus"), "-S", "/ as sysdba")
	e.log.Info(strings.TrimSpace(out))
	return out, err
}

// RMAN runs script connected as target or auxiliary.
func (e *Executor) RMAN(ctx context.Context, script string, conn Connection) (string, error) {
	e.log.Debug("rman", "sid", e.sid, "connection", string(conn), "script", script)
	out, err := e.runner.Run(ctx, e.env(), script+"\nexit;\n",
		filepath.Join(e.home, "bin", "rman"), string(conn), "/")
	e.log.Info(strings.TrimSpace(out))
	return out, err
}

// StartupOptions pick the auxiliary instance startup variant.
type StartupOptions struct {
	// Pfile starts the instance from this parameter file.
	Pfile string
	// Restart shuts a running instance down first.
	Restart bool
}

// StartupNomount starts the instance in NOMOUNT.
func (e *Executor) StartupNomount(ctx context.Context, opts StartupOptions) (string, error) {
	if opts.Restart {
		if _, err := e.ShutdownImmediate(ctx); err != nil {
			return "", err
		}
	}

	stmt := "startup nomount"
	if opts.Pfile != "" {
		stmt = fmt.Sprintf("startup nomount pfile='%s'", opts.Pfile)
	}
	out, err := e.SQLPlus(ctx, stmt)
	if strings.Contains(out, instanceRunningSignature) {
		return out, errors.Wrapf(ErrInstanceRunning, "an instance of %s is already running on this host", e.sid)
	}
	return out, err
}

func (e *Executor) ShutdownImmediate(ctx context.Context) (string, error) {
	return e.SQLPlus(ctx, "shutdown immediate;")
}

func (e *Executor) ShutdownAbort(ctx context.Context) (string, error) {
	return e.SQLPlus(ctx, "shutdown abort;")
}

// DropDatabase mounts the instance exclusively and drops it.
func (e *Executor) DropDatabase(ctx context.Context) error {
	if _, err := e.SQLPlus(ctx, "startup force mount restrict exclusive;"); err != nil {
		return err
	}
	_, err := e.SQLPlus(ctx, "drop database;")
	return err
}

// VerifyInstance confirms the running instance is the one we started.
func (e *Executor) VerifyInstance(ctx context.Context) error {
	out, err := e.SQLPlus(ctx, "select instance_name from v$instance;")
	if err != nil {
		return err
	}
	if !strings.Contains(strings.ToUpper(out), strings.ToUpper(e.sid)) {
		return errs.Validation("instance check failed: the running instance is not %s", e.sid)
	}
	return nil
}

// InitFile is the pfile path for the instance under $ORACLE_HOME/dbs.
func (e *Executor) InitFile() string {
	return filepath.Join(e.home, "dbs", "init"+e.sid+".ora")
}

// WriteInitFile writes a minimal pfile naming only db_name.
func (e *Executor) WriteInitFile() (string, error) {
	return e.WriteInitFileNamed(e.sid)
}

package oracle

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"

	"rbkoracle/internal/errs"
)

// instanceFiles are the $ORACLE_HOME/dbs files an instance leaves behind.
func instanceFiles(sid string) []string {
	return []string{
		"init" + sid + ".ora",
		"spfile" + sid + ".ora",
		"orapw" + sid,
		"hc_" + sid + ".dat",
		"lk" + strings.ToUpper(sid),
	}
}

// CleanupClone aborts the clone instance and removes its instance files.
// It returns the files removed.
func CleanupClone(ctx context.Context, e *Executor) ([]string, error) {
	if _, err := e.ShutdownAbort(ctx); err != nil {
		e.log.Warn("Shutdown of clone instance failed, removing files anyway", "sid", e.sid, "error", err)
	}

	var removed []string
	for _, name := range instanceFiles(e.sid) {
		path := filepath.Join(e.home, "dbs", name)
		err := os.Remove(path)
		switch {
		case err == nil:
			removed = append(removed, path)
			e.log.Debug("Removed instance file", "path", path)
		case os.IsNotExist(err):
		default:
			return removed, errors.Wrapf(err, "removing %s", path)
		}
	}
	return removed, nil
}

// RequireLocalHost fails unless host names this machine, comparing short
// names.
func RequireLocalHost(host string) error {
	local, err := os.Hostname()
	if err != nil {
		return errors.Wrap(err, "reading local hostname")
	}
	if !strings.EqualFold(shortName(host), shortName(local)) {
		return errs.Validation("this command must be run on the target host %s (running on %s)", host, local)
	}
	return nil
}

func shortName(host string) string {
	name, _, _ := strings.Cut(host, ".")
	return name
}

// Package oracle runs the local Oracle-side steps that follow a mount or
// clone: sqlplus and rman scripts, the RMAN duplicate, and clone cleanup.
package oracle

import (
	"context"
	"os"
	"os/exec"
	"strings"

	"github.com/pkg/errors"
)

// Runner executes a program with extra environment and a script on stdin,
// returning the combined output.
type Runner interface {
	Run(ctx context.Context, env []string, stdin, name string, args ...string) (string, error)
}

// ExecRunner runs real subprocesses.
type ExecRunner struct{}

func (ExecRunner) Run(ctx context.Context, env []string, stdin, name string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Env = append(os.Environ(), env...)
	cmd.Stdin = strings.NewReader(stdin)
	setProcessGroup(cmd)

	out, err := cmd.CombinedOutput()
	if err != nil {
		return string(out), errors.Wrapf(err, "%s failed", name)
	}
	return string(out), nil
}

//go:build !windows

package oracle

import (
	"os/exec"
	"syscall"
	"time"
)

// setProcessGroup makes cmd a process group leader and, on cancellation,
// terminates the whole group so rman channel processes go with it.
func setProcessGroup(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		return killProcessGroup(cmd.Process.Pid)
	}
	cmd.WaitDelay = 10 * time.Second
}

func killProcessGroup(pid int) error {
	pgid, err := syscall.Getpgid(pid)
	if err != nil {
		// already gone
		return nil
	}
	if err := syscall.Kill(-pgid, syscall.SIGTERM); err != nil {
		return syscall.Kill(-pgid, syscall.SIGKILL)
	}
	return nil
}

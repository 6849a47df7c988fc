//go:build windows

package oracle

import "os/exec"

func setProcessGroup(cmd *exec.Cmd) {}

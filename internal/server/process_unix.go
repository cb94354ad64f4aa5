//go:build !windows

package server

import (
	"os/exec"
	"syscall"
)

func applyDetachedSysProcAttr(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{
		Setsid: true,
	}
}

//go:build windows

package server

import "os/exec"

func applyDetachedSysProcAttr(cmd *exec.Cmd) {}

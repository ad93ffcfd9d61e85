//go:build !windows

package process

import (
	"os/exec"
	"syscall"
)

func setGroupLeader(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
}

//go:build !windows

package process

import (
	"errors"
	"syscall"
)

// Chrome is launched as a process group leader, so signalling the
// negative PID reaches its helpers too.
func killTree(pid int) error {
	err := syscall.Kill(-pid, syscall.SIGKILL)
	if errors.Is(err, syscall.ESRCH) {
		return nil
	}
	return err
}

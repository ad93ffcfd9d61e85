// Package process stops the headless browser started for PDF export
// together with the renderer and GPU helpers it forks.
package process

import (
	"errors"
	"fmt"
)

// ErrInvalidPID is returned for PIDs that would address the caller's own
// process group or init.
var ErrInvalidPID = errors.New("invalid pid")

// KillTree force-kills pid and every process it spawned.
// A process that already exited is not an error.
func KillTree(pid int) error {
	if pid <= 1 {
		return fmt.Errorf("%w: %d", ErrInvalidPID, pid)
	}
	return killTree(pid)
}

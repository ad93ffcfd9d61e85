//go:build windows

package process

import "os/exec"

func setGroupLeader(*exec.Cmd) {}

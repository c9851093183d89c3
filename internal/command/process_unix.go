// ABOUTME: Unix process-group handling so a timed-out command takes its children with it
// ABOUTME: Commands run in their own group and the whole group gets SIGKILL

//go:build unix

package command

import (
	"os/exec"
	"syscall"
)

func setProcGroup(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
}

// killProcGroup signals the negative pid, i.e. every process in the group.
func killProcGroup(cmd *exec.Cmd) error {
	if cmd.Process == nil {
		return nil
	}
	return syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
}

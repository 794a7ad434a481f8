//go:build !windows

package execshell

import (
	"os/exec"
	"syscall"
)

func configureCommandForCancellation(command *exec.Cmd) {
	command.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
}

// terminateProcessTree kills the process group led by the child so grandchildren do not outlive it.
func terminateProcessTree(command *exec.Cmd) {
	if command.Process == nil {
		return
	}
	_ = syscall.Kill(-command.Process.Pid, syscall.SIGKILL)
}

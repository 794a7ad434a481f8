//go:build windows

package execshell

import (
	"os/exec"
	"strconv"
)

func configureCommandForCancellation(_ *exec.Cmd) {}

// terminateProcessTree asks taskkill to remove the process and its descendants, then kills the child directly.
func terminateProcessTree(command *exec.Cmd) {
	if command.Process == nil {
		return
	}
	processIdentifier := strconv.Itoa(command.Process.Pid)
	_ = exec.Command("taskkill", "/T", "/F", "/PID", processIdentifier).Run()
	_ = command.Process.Kill()
}

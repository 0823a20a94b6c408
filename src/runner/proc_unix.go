//go:build !windows

package runner

import (
	"os/exec"
	"syscall"
)

func shellCommand(command string) (string, []string) {
	return "sh", []string{"-c", command}
}

// setProcessGroup puts the child in its own process group so a timeout
// kills everything the shell started.
func setProcessGroup(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
}

func killProcessGroup(cmd *exec.Cmd) {
	if cmd.Process == nil {
		return
	}
	if err := syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL); err != nil {
		_ = cmd.Process.Kill()
	}
}

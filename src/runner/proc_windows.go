//go:build windows

package runner

import (
	"os/exec"
	"strconv"
	"syscall"
)

func shellCommand(command string) (string, []string) {
	return "cmd.exe", []string{"/C", command}
}

func setProcessGroup(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{CreationFlags: syscall.CREATE_NEW_PROCESS_GROUP}
}

func killProcessGroup(cmd *exec.Cmd) {
	if cmd.Process == nil {
		return
	}
	// taskkill /T takes the whole tree down; fall back to the direct child.
	kill := exec.Command("taskkill", "/T", "/F", "/PID", strconv.Itoa(cmd.Process.Pid))
	if err := kill.Run(); err != nil {
		_ = cmd.Process.Kill()
	}
}

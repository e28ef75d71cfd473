//go:build unix

package mcpclient

import (
	"os/exec"
	"syscall"
)

// configureProcess puts the server in its own process group, so launchers
// such as npx are killed together with the server they start.
func configureProcess(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
}

func killProcess(cmd *exec.Cmd) error {
	if err := syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL); err != nil {
		return cmd.Process.Kill()
	}
	return nil
}

//go:build windows

package providers

import "os/exec"

func setProcessGroup(cmd *exec.Cmd) {}

// terminateProcess kills the child; Windows has no SIGTERM.
func terminateProcess(cmd *exec.Cmd) error {
	if cmd.Process == nil {
		return nil
	}
	return cmd.Process.Kill()
}

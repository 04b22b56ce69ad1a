package daemon

import (
	"fmt"
	"os"
	"os/exec"
)

// StartBackground re-executes the current binary with args, detached from
// the terminal, and returns the child's pid.
func StartBackground(args ...string) (int, error) {
	execPath, err := os.Executable()
	if err != nil {
		return 0, fmt.Errorf("failed to get executable path: %w", err)
	}

	cmd := exec.Command(execPath, args...)
	cmd.Stdin = nil
	cmd.Stdout = nil
	cmd.Stderr = nil
	detach(cmd)

	if err := cmd.Start(); err != nil {
		return 0, fmt.Errorf("failed to start background process: %w", err)
	}

	pid := cmd.Process.Pid
	// the child outlives us; do not leave it as a zombie if we exit later
	if err := cmd.Process.Release(); err != nil {
		return pid, fmt.Errorf("failed to release background process: %w", err)
	}
	return pid, nil
}

//go:build unix

package hush

import (
	"errors"
	"os/exec"
	"syscall"
)

// exitStatus maps the result of exec.Cmd.Wait to a hush status.
func exitStatus(err error) int {
	if err == nil {
		return 0
	}
	var exitErr *exec.ExitError
	if !errors.As(err, &exitErr) {
		return statusSpawnFailure
	}
	if ws, ok := exitErr.Sys().(syscall.WaitStatus); ok && ws.Signaled() {
		return statusSignalBase + int(ws.Signal())
	}
	return exitErr.ExitCode()
}

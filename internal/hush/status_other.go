//go:build !unix

package hush

import (
	"errors"
	"os/exec"
)

func exitStatus(err error) int {
	if err == nil {
		return 0
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode()
	}
	return statusSpawnFailure
}

package orchestrator

import (
	"errors"
	"os/exec"
	"syscall"
)

// ExitCodeFrom derives a shell-style exit code from a completed exec.Cmd's
// Wait/Run error: a normal exit passes its code through unchanged, a
// signal death becomes 128+signo, and a child that never ran at all (a
// fork/exec failure) is reported as 1.
func ExitCodeFrom(err error) int {
	if err == nil {
		return 0
	}

	var exitErr *exec.ExitError
	if !errors.As(err, &exitErr) {
		// The process never ran at all (fork/exec failure) — an
		// orchestrator-internal failure, not a child exit status.
		return 1
	}

	if status, ok := exitErr.Sys().(syscall.WaitStatus); ok && status.Signaled() {
		return 128 + int(status.Signal())
	}

	return exitErr.ExitCode()
}

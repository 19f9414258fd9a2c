package orchestrator

import (
	"errors"
	"os/exec"
	"testing"
)

func TestExitCodeFrom_NilIsZero(t *testing.T) {
	if got := ExitCodeFrom(nil); got != 0 {
		t.Errorf("ExitCodeFrom(nil) = %d, want 0", got)
	}
}

func TestExitCodeFrom_NonExitErrorIsOne(t *testing.T) {
	if got := ExitCodeFrom(errors.New("boom")); got != 1 {
		t.Errorf("ExitCodeFrom(non-exit error) = %d, want 1", got)
	}
}

func TestExitCodeFrom_NormalExit(t *testing.T) {
	cmd := exec.Command("sh", "-c", "exit 7")
	err := cmd.Run()

	var exitErr *exec.ExitError
	if !errors.As(err, &exitErr) {
		t.Fatalf("expected *exec.ExitError, got %T: %v", err, err)
	}

	if got := ExitCodeFrom(err); got != 7 {
		t.Errorf("ExitCodeFrom(exit 7) = %d, want 7", got)
	}
}

func TestExitCodeFrom_SignalDeath(t *testing.T) {
	cmd := exec.Command("sh", "-c", "kill -TERM $$")
	err := cmd.Run()

	if err == nil {
		t.Fatal("expected an error from a self-terminating process")
	}

	// SIGTERM is signal 15, so the expected shell-style exit code is 143.
	if got := ExitCodeFrom(err); got != 128+15 {
		t.Errorf("ExitCodeFrom(signal death) = %d, want %d", got, 128+15)
	}
}

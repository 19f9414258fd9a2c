package orchestrator

import (
	"fmt"
	"os"
	"os/exec"
	"syscall"
)

const (
	cmdDataFD = 3
	cmdSyncFD = 4
)

// RunCmdinit is the RoleCmdinit entry point (spec.md step 10-11 of §4.4).
// It blocks until nsinit signals every mount point is live, re-resolves
// its working directory so no path lookup can be served from a
// pre-mount cache, then replaces itself with the target command —
// from here on this process IS the sandboxed command, not a wrapper
// around it.
func RunCmdinit() int {
	dataF := os.NewFile(cmdDataFD, "cmd-payload")
	syncF := os.NewFile(cmdSyncFD, "cmd-sync")

	if dataF == nil || syncF == nil {
		fmt.Fprintln(os.Stderr, "orchestrator: cmdinit: missing handoff fds")
		return 1
	}

	p, err := decodeCmdPayload(dataF)
	if err != nil {
		fmt.Fprintln(os.Stderr, "orchestrator:", err)
		return 1
	}
	_ = dataF.Close()

	// Block until nsinit has every Pass-Through Filesystem mounted.
	var b [1]byte
	if _, err := syncF.Read(b[:]); err != nil {
		fmt.Fprintln(os.Stderr, "orchestrator: cmdinit: waiting for mount readiness:", err)
		return 1
	}
	_ = syncF.Close()

	if len(p.TargetArgv) == 0 {
		fmt.Fprintln(os.Stderr, "orchestrator: cmdinit: empty target command")
		return 1
	}

	// chdir away and back so the kernel re-resolves the cwd dentry
	// against the now-mounted filesystem rather than serving it from a
	// reference cached before the mount (spec.md §9).
	if err := os.Chdir("/"); err != nil {
		fmt.Fprintln(os.Stderr, "orchestrator: cmdinit:", err)
		return 1
	}

	if err := os.Chdir(p.Cwd); err != nil {
		fmt.Fprintln(os.Stderr, "orchestrator: cmdinit: chdir", p.Cwd, ":", err)
		return 1
	}

	bin, err := exec.LookPath(p.TargetArgv[0])
	if err != nil {
		fmt.Fprintln(os.Stderr, "orchestrator: cmdinit:", err)
		return 1
	}

	err = syscall.Exec(bin, p.TargetArgv, os.Environ())
	// syscall.Exec only returns on failure — success replaces this
	// process image entirely.
	fmt.Fprintln(os.Stderr, "orchestrator: cmdinit: exec:", err)

	return 1
}

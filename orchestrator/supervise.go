package orchestrator

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"syscall"

	"github.com/denyfs/denyfs/mountplan"
	"github.com/denyfs/denyfs/rules"
)

// Config is everything the supervisor needs to run one invocation of the
// Isolation Orchestrator (spec.md §4.4).
type Config struct {
	RuleTexts  []string
	Cwd        string
	TargetArgv []string
	Quiet      bool
	LogFile    string

	Stdin          io.Reader
	Stdout, Stderr io.Writer
}

// Supervise is the RoleSupervisor entry point. It builds the rule set and
// mount plan; an empty plan takes the direct-exec fast path (runDirect),
// otherwise it re-execs itself into the nsinit role and waits on that one
// child, forwarding its exit code — the supervisor itself never enters a
// new namespace (spec.md step 1 of §4.4: the namespace is created by the
// child it launches, not by re-configuring itself).
func Supervise(ctx context.Context, cfg Config) (int, error) {
	access, err := rules.Build(cfg.RuleTexts, cfg.Cwd)
	if err != nil {
		return 1, fmt.Errorf("orchestrator: building rules: %w", err)
	}

	plan, err := mountplan.Plan(access)
	if err != nil {
		return 1, fmt.Errorf("orchestrator: computing mount plan: %w", err)
	}

	if len(plan) == 0 {
		return runDirect(ctx, cfg.TargetArgv, cfg.Stdin, cfg.Stdout, cfg.Stderr)
	}

	return runNamespaced(ctx, cfg)
}

// runNamespaced launches the nsinit child inside a fresh user+mount
// namespace and waits for it, per spec.md §4.4 steps 2-11.
//
// The UID/GID mapping maps the invoking user's own id to uid/gid 0 inside
// the new user namespace (the standard unprivileged-userns idiom also used
// by bubblewrap and similar tools): this is what grants the child the
// capabilities it needs, inside its own namespace only, to create the
// mount namespace and perform the mount(2) calls in nsinit.
func runNamespaced(ctx context.Context, cfg Config) (int, error) {
	self, err := selfPath()
	if err != nil {
		return 1, fmt.Errorf("orchestrator: resolving own executable: %w", err)
	}

	pr, pw, err := os.Pipe()
	if err != nil {
		return 1, fmt.Errorf("orchestrator: creating payload pipe: %w", err)
	}
	defer pr.Close()

	cmd := exec.Command(self, nsinitMarker)
	cmd.Stdin = cfg.Stdin
	cmd.Stdout = cfg.Stdout
	cmd.Stderr = cfg.Stderr
	cmd.Env = os.Environ()
	cmd.ExtraFiles = []*os.File{pr}
	cmd.SysProcAttr = &syscall.SysProcAttr{
		Cloneflags: syscall.CLONE_NEWUSER | syscall.CLONE_NEWNS,
		UidMappings: []syscall.SysProcIDMap{
			{ContainerID: 0, HostID: os.Getuid(), Size: 1},
		},
		GidMappings: []syscall.SysProcIDMap{
			{ContainerID: 0, HostID: os.Getgid(), Size: 1},
		},
		GidMappingsEnableSetgroups: false,
	}

	if err := cmd.Start(); err != nil {
		_ = pw.Close()
		return 1, fmt.Errorf("orchestrator: starting nsinit: %w", err)
	}

	_ = pr.Close() // the child holds its own copy; our end must close to see EOF handling correctly

	encodeErr := encodePayload(pw, payload{
		RuleTexts:  cfg.RuleTexts,
		Cwd:        cfg.Cwd,
		TargetArgv: cfg.TargetArgv,
		Quiet:      cfg.Quiet,
		LogFile:    cfg.LogFile,
	})
	_ = pw.Close()

	if encodeErr != nil {
		_ = cmd.Process.Kill()
		_ = cmd.Wait()
		return 1, encodeErr
	}

	done := make(chan struct{})

	go func() {
		select {
		case <-ctx.Done():
			if cmd.Process != nil {
				_ = cmd.Process.Signal(syscall.SIGTERM)
			}
		case <-done:
		}
	}()

	waitErr := cmd.Wait()
	close(done)

	return ExitCodeFrom(waitErr), nil
}

package orchestrator

import (
	"fmt"
	"os"
	"os/exec"
	"syscall"

	gofuse "github.com/hanwen/go-fuse/v2/fuse"
	"golang.org/x/sys/unix"

	"github.com/denyfs/denyfs/denylog"
	"github.com/denyfs/denyfs/fsys"
	"github.com/denyfs/denyfs/mountplan"
	"github.com/denyfs/denyfs/rules"
)

// payloadFD is the ExtraFiles index the supervisor passes the JSON payload
// pipe on; os/exec always places ExtraFiles starting at fd 3 (0-2 are
// stdin/stdout/stderr).
const payloadFD = 3

// RunNsinit is the RoleNsinit entry point (spec.md §4.4 steps 3-11). It
// runs already inside the fresh user+mount namespace the supervisor
// created via Cloneflags; its job is to make the namespace's mount
// propagation private, recompute the mount plan, mount the Pass-Through
// Filesystem at each planned directory, and supervise the cmdinit child
// that actually execs the target command.
func RunNsinit() int {
	pf := os.NewFile(payloadFD, "payload")
	if pf == nil {
		fmt.Fprintln(os.Stderr, "orchestrator: nsinit: missing payload fd")
		return 1
	}
	defer pf.Close()

	p, err := decodePayload(pf)
	if err != nil {
		fmt.Fprintln(os.Stderr, "orchestrator:", err)
		return 1
	}

	// Detach this namespace's mount tree from the host's propagation
	// group so that nothing we mount below ever leaks out to the host or
	// to sibling namespaces (spec.md step 3 of §4.4).
	if err := unix.Mount("none", "/", "", unix.MS_REC|unix.MS_PRIVATE, ""); err != nil {
		fmt.Fprintln(os.Stderr, "orchestrator: making mount tree private:", err)
		return 1
	}

	access, err := rules.Build(p.RuleTexts, p.Cwd)
	if err != nil {
		fmt.Fprintln(os.Stderr, "orchestrator:", err)
		return 1
	}

	plan, err := mountplan.Plan(access)
	if err != nil {
		fmt.Fprintln(os.Stderr, "orchestrator:", err)
		return 1
	}

	recorder := buildRecorder(p.Quiet, p.LogFile)

	self, err := selfPath()
	if err != nil {
		fmt.Fprintln(os.Stderr, "orchestrator:", err)
		return 1
	}

	dataR, dataW, err := os.Pipe()
	if err != nil {
		fmt.Fprintln(os.Stderr, "orchestrator: creating cmd payload pipe:", err)
		return 1
	}

	syncR, syncW, err := os.Pipe()
	if err != nil {
		fmt.Fprintln(os.Stderr, "orchestrator: creating sync pipe:", err)
		return 1
	}

	// Spawn cmdinit now, before any FUSE server goroutine exists, per the
	// fork-before-threads ordering spec.md's design notes call for. Go's
	// os/exec always forks straight into exec in the child, so this
	// ordering isn't load-bearing the way a raw fork(2) after threads
	// start would be — but preserving it keeps this code honest about
	// the model it is implementing.
	cmd := exec.Command(self, cmdinitMarker)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	cmd.Env = os.Environ()
	cmd.ExtraFiles = []*os.File{dataR, syncR}
	cmd.SysProcAttr = &syscall.SysProcAttr{}

	if err := cmd.Start(); err != nil {
		fmt.Fprintln(os.Stderr, "orchestrator: starting cmdinit:", err)
		return 1
	}

	_ = dataR.Close()
	_ = syncR.Close()

	if err := encodeCmdPayload(dataW, cmdPayload{Cwd: p.Cwd, TargetArgv: p.TargetArgv}); err != nil {
		_ = dataW.Close()
		_ = cmd.Process.Kill()
		_ = cmd.Wait()
		fmt.Fprintln(os.Stderr, "orchestrator:", err)
		return 1
	}
	_ = dataW.Close()

	servers := make([]*gofuse.Server, 0, len(plan))

	for _, dir := range plan {
		server, err := fsys.Mount(dir, dir, access, recorder, NewProcInfo())
		if err != nil {
			fmt.Fprintln(os.Stderr, "orchestrator: mounting", dir, ":", err)
			unmountAll(servers)
			_ = cmd.Process.Kill()
			_ = cmd.Wait()
			return 1
		}

		servers = append(servers, server)
	}

	// Every planned mount point is live; release cmdinit to exec the
	// target command.
	if _, err := syncW.Write([]byte{1}); err != nil {
		fmt.Fprintln(os.Stderr, "orchestrator: releasing cmdinit:", err)
	}
	_ = syncW.Close()

	waitErr := cmd.Wait()

	unmountAll(servers)

	return ExitCodeFrom(waitErr)
}

func unmountAll(servers []*gofuse.Server) {
	for _, s := range servers {
		if err := s.Unmount(); err != nil {
			fmt.Fprintln(os.Stderr, "orchestrator: unmount:", err)
		}
	}
}

func buildRecorder(quiet bool, logFile string) denylog.Recorder {
	var fileSink *os.File

	if logFile != "" {
		f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err == nil {
			fileSink = f
		} else {
			fmt.Fprintln(os.Stderr, "orchestrator: opening log file:", err)
		}
	}

	if fileSink == nil {
		return denylog.New(denylog.StderrSink(quiet), nil)
	}

	return denylog.New(denylog.StderrSink(quiet), fileSink)
}

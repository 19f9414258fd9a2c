package orchestrator

import (
	"os"
	"path/filepath"
)

// Hidden leading-argument markers (args[1]) used to route a re-exec'd copy of this binary into
// the namespace-side or command-side role instead of the ordinary CLI
// entry point. This mirrors cmd/agent-sandbox/run.go's own argv0-based
// multicall dispatch (there, argv[0] becomes the wrapped command's name;
// here, the hidden argument is never user-visible since nothing invokes
// this binary under these names except the orchestrator itself).
const (
	nsinitMarker  = "__denyfs_nsinit__"
	cmdinitMarker = "__denyfs_cmdinit__"
)

// Role identifies which of the three orchestrator processes this
// invocation should act as.
type Role int

const (
	RoleSupervisor Role = iota
	RoleNsinit
	RoleCmdinit
)

// DetectRole inspects args (as os.Args would appear) for one of the hidden
// markers in args[1], the same position run.go inspects args[0] at (there
// the marker replaces argv[0] via the mounted-binary trick; here, since we
// re-exec our own known path rather than being invoked under a borrowed
// name, the marker is a plain leading argument instead).
func DetectRole(args []string) Role {
	if len(args) < 2 {
		return RoleSupervisor
	}

	switch args[1] {
	case nsinitMarker:
		return RoleNsinit
	case cmdinitMarker:
		return RoleCmdinit
	default:
		return RoleSupervisor
	}
}

// selfPath resolves the absolute path to the currently running binary, so
// a re-exec always launches the exact same image regardless of how it was
// first invoked (PATH lookup, relative path, symlink).
func selfPath() (string, error) {
	exe, err := os.Executable()
	if err != nil {
		return "", err
	}

	return filepath.EvalSymlinks(exe)
}

package orchestrator

import (
	"context"
	"os"
	"strconv"
	"strings"

	gofuse "github.com/hanwen/go-fuse/v2/fuse"
)

// NewProcInfo returns a fsys.ProcInfoFunc that attributes a denial to the
// pid the kernel attached to the FUSE request. go-fuse's server passes a
// *fuse.Context down as the ctx argument of every InodeEmbedder method;
// that type carries the requesting Caller's pid (go-fuse reads this
// straight out of the FUSE request header, which the kernel itself fills
// in, so it cannot be spoofed by the calling process).
func NewProcInfo() func(ctx context.Context) (int, string) {
	return func(ctx context.Context) (int, string) {
		fc, ok := ctx.(*gofuse.Context)
		if !ok || fc == nil {
			return 0, ""
		}

		pid := int(fc.Caller.Pid)

		return pid, processName(pid)
	}
}

// processName resolves a pid to the short command name /proc reports,
// falling back to an empty string if the process has already exited by
// the time we look — a denial event still has the pid to go on.
func processName(pid int) string {
	if pid <= 0 {
		return ""
	}

	data, err := os.ReadFile("/proc/" + strconv.Itoa(pid) + "/comm")
	if err != nil {
		return ""
	}

	return strings.TrimSuffix(string(data), "\n")
}

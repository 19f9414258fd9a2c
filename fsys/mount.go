package fsys

import (
	"context"
	"fmt"

	gofusefs "github.com/hanwen/go-fuse/v2/fs"
	gofuse "github.com/hanwen/go-fuse/v2/fuse"
	"golang.org/x/sys/unix"

	"github.com/denyfs/denyfs/denylog"
	"github.com/denyfs/denyfs/rules"
)

// ProcInfoFunc resolves the pid/process-name to attribute a denial event
// to. The Isolation Orchestrator supplies an implementation that reads the
// FUSE request's caller pid (fuse.Context carried on ctx) and looks up its
// command name from /proc; fsys depends only on the function shape so it
// can be unit-tested without /proc.
type ProcInfoFunc func(ctx context.Context) (pid int, name string)

// Mount opens a BackingHandle on backingDir (spec.md step 5 of §4.4 — this
// must happen before the caller places anything over mountPoint) and
// starts a Pass-Through Filesystem serving it at mountPoint.
//
// The returned *gofuse.Server is ready: go-fuse's Mount performs the
// mount(2) syscall synchronously, so by the time this function returns
// without error the mount point is live (spec.md step 9's "wait for each
// mount to become ready").
func Mount(mountPoint, backingDir string, access *rules.AccessRules, recorder denylog.Recorder, procInfo ProcInfoFunc) (*gofuse.Server, error) {
	backingFD, err := unix.Open(backingDir, unix.O_DIRECTORY|unix.O_CLOEXEC, 0)
	if err != nil {
		return nil, fmt.Errorf("fsys: opening backing handle for %s: %w", backingDir, err)
	}

	root := newRoot(&mountState{
		rules:      access,
		recorder:   recorder,
		mountPoint: mountPoint,
		procInfo:   procInfo,
	})
	root.fd = backingFD

	server, err := gofusefs.Mount(mountPoint, root, &gofusefs.Options{
		MountOptions: gofuse.MountOptions{
			AllowOther: false,
			Debug:      false,
			FsName:     "denyfs",
			Name:       "denyfs",
		},
	})
	if err != nil {
		_ = unix.Close(backingFD)
		return nil, fmt.Errorf("fsys: mounting %s: %w", mountPoint, err)
	}

	return server, nil
}

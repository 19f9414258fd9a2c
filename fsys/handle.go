package fsys

import (
	"context"
	"syscall"

	gofusefs "github.com/hanwen/go-fuse/v2/fs"
	"github.com/hanwen/go-fuse/v2/fuse"
	"golang.org/x/sys/unix"
)

// fileHandle is the opaque handle Open/Create return. Reads and writes are
// positional (pread/pwrite), so a fileHandle needs no offset bookkeeping of
// its own and concurrent operations on it require no extra locking beyond
// what the kernel already provides for positional I/O on one descriptor
// (spec.md §4.3, §5). Open already gated the operation once; read/write
// themselves are never re-checked (spec.md §4.3).
type fileHandle struct {
	fd int
}

var _ gofusefs.FileHandle = (*fileHandle)(nil)
var _ gofusefs.FileReader = (*fileHandle)(nil)
var _ gofusefs.FileWriter = (*fileHandle)(nil)
var _ gofusefs.FileFlusher = (*fileHandle)(nil)
var _ gofusefs.FileReleaser = (*fileHandle)(nil)
var _ gofusefs.FileFsyncer = (*fileHandle)(nil)

func (h *fileHandle) Read(ctx context.Context, dest []byte, off int64) (fuse.ReadResult, syscall.Errno) {
	n, err := unix.Pread(h.fd, dest, off)
	if err != nil {
		return nil, errnoOf(err)
	}

	return fuse.ReadResultData(dest[:n]), 0
}

func (h *fileHandle) Write(ctx context.Context, data []byte, off int64) (uint32, syscall.Errno) {
	n, err := unix.Pwrite(h.fd, data, off)
	if err != nil {
		return 0, errnoOf(err)
	}

	return uint32(n), 0
}

func (h *fileHandle) Flush(ctx context.Context) syscall.Errno {
	// Mirrors the close(2)-on-dup convention real loopback filesystems use:
	// flush must not close the shared fd, since Flush may be called more
	// than once per open (e.g. after dup(2)).
	newFD, err := unix.Dup(h.fd)
	if err != nil {
		return errnoOf(err)
	}

	return errnoOf(unix.Close(newFD))
}

func (h *fileHandle) Release(ctx context.Context) syscall.Errno {
	return errnoOf(unix.Close(h.fd))
}

func (h *fileHandle) Fsync(ctx context.Context, flags uint32) syscall.Errno {
	return errnoOf(unix.Fsync(h.fd))
}

// Package fsys implements the Pass-Through Filesystem (spec.md §4.3): a
// FUSE filesystem, built on github.com/hanwen/go-fuse/v2's fs package, that
// forwards every operation to a BackingHandle captured before the mount was
// placed, consulting an *rules.AccessRules on operations that would expose
// or mutate content.
package fsys

import (
	"context"
	"strconv"
	"sync"
	"syscall"

	gofusefs "github.com/hanwen/go-fuse/v2/fs"
	"github.com/hanwen/go-fuse/v2/fuse"
	"golang.org/x/sys/unix"

	"github.com/denyfs/denyfs/denylog"
	"github.com/denyfs/denyfs/rules"
)

// node is one entry in the Pass-Through Filesystem's inode tree.
//
// Reference counting (the FUSE lookup-count protocol of spec.md §3, §9) is
// handled by the embedded gofusefs.Inode itself — go-fuse tracks a
// lookup-count per Inode and calls OnForget (below) when it reaches zero.
// node adds exactly the state that protocol doesn't give us: the parent
// link and basename needed to reconstruct an absolute path for rule
// queries, and a lazily-opened descriptor on the real backing object
// (spec.md's "each non-root inode holds: parent inode, basename bytes, and
// a lazily-populated descriptor"). The parent link is a plain back-pointer,
// never an ownership edge — node never holds a list of its children
// (spec.md §9's "flat table ... never a direct container of children");
// go-fuse's own Inode tree already owns that structure.
type node struct {
	gofusefs.Inode

	mount *mountState

	// parent and name are nil/empty only for the root node of a mount.
	parent *node
	name   string

	mu sync.Mutex
	fd int // -1 until first use; relative descriptor opened against parent.fd
}

// mountState is shared, read-only state for every node under one mount
// point: the rule set to consult, the Denial Logger to report to, and the
// absolute path this mount is rooted at (used for path reconstruction).
//
// It is immutable after the mount is established, so it needs no locking
// of its own (spec.md §5: "AccessRules — shared immutably across all
// workers").
type mountState struct {
	rules      *rules.AccessRules
	recorder   denylog.Recorder
	mountPoint string // absolute path this FS is mounted at

	// procInfo returns the pid/process-name to attribute a denial to. It is
	// a function rather than a fixed value because the caller issuing a
	// given FUSE request may be any descendant of the launched command.
	procInfo func(ctx context.Context) (pid int, name string)
}

var _ gofusefs.InodeEmbedder = (*node)(nil)
var _ gofusefs.NodeLookuper = (*node)(nil)
var _ gofusefs.NodeGetattrer = (*node)(nil)
var _ gofusefs.NodeAccesser = (*node)(nil)
var _ gofusefs.NodeOpener = (*node)(nil)
var _ gofusefs.NodeReaddirer = (*node)(nil)
var _ gofusefs.NodeUnlinker = (*node)(nil)
var _ gofusefs.NodeRmdirer = (*node)(nil)
var _ gofusefs.NodeRenamer = (*node)(nil)
var _ gofusefs.NodeSetattrer = (*node)(nil)
var _ gofusefs.NodeCreater = (*node)(nil)
var _ gofusefs.NodeOnForgetter = (*node)(nil)

func newRoot(mount *mountState) *node {
	return &node{mount: mount, fd: -1}
}

func newChild(parent *node, name string) *node {
	return &node{mount: parent.mount, parent: parent, name: name, fd: -1}
}

// absPath reconstructs this node's absolute path as seen inside the mount
// namespace, which equals its real backing path (spec.md §4.3). It walks
// the parent chain — never dereferencing symlinks, since rules are purely
// lexical (spec.md §9) — and joins with the mount's own absolute prefix.
func (n *node) absPath() string {
	if n.parent == nil {
		return n.mount.mountPoint
	}

	var names []string

	for cur := n; cur.parent != nil; cur = cur.parent {
		names = append(names, cur.name)
	}

	// names was built leaf-to-root; reverse it.
	for i, j := 0, len(names)-1; i < j; i, j = i+1, j-1 {
		names[i], names[j] = names[j], names[i]
	}

	path := n.mount.mountPoint
	for _, name := range names {
		path += "/" + name
	}

	return path
}

// dirFD returns the descriptor children of n should be opened relative to:
// n's own descriptor if n is a directory, or the mount's backing handle if
// n is the root.
func (n *node) dirFD() (int, error) {
	return n.openSelf()
}

// openSelf lazily opens (and caches) a descriptor for n itself, relative to
// its parent's descriptor. The root node's descriptor is the BackingHandle
// supplied at mount time and is always already open. Per-node locking
// guards the lazy-open slot only. A non-root descriptor is an O_PATH
// handle: it serves as the directory argument of *at calls and for fstat,
// never for reading or writing content, which goes through the descriptors
// Open and Create hand out.
func (n *node) openSelf() (int, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.fd >= 0 {
		return n.fd, nil
	}

	if n.parent == nil {
		return 0, unix.EINVAL // root's fd is set at construction, never lazily
	}

	parentFD, err := n.parent.openSelf()
	if err != nil {
		return 0, err
	}

	fd, err := unix.Openat(parentFD, n.name, unix.O_PATH|unix.O_CLOEXEC|unix.O_NOFOLLOW, 0)
	if err != nil {
		return 0, err
	}

	n.fd = fd

	return fd, nil
}

// Lookup resolves a child relative to the parent's descriptor. There is no
// rule check here: listing/existence is not concealed at this layer
// (spec.md §4.3).
func (n *node) Lookup(ctx context.Context, name string, out *fuse.EntryOut) (*gofusefs.Inode, syscall.Errno) {
	parentFD, err := n.dirFD()
	if err != nil {
		return nil, errnoOf(err)
	}

	var st unix.Stat_t

	err = unix.Fstatat(parentFD, name, &st, unix.AT_SYMLINK_NOFOLLOW)
	if err != nil {
		return nil, errnoOf(err)
	}

	fillAttr(&st, &out.Attr)

	child := newChild(n, name)
	stable := gofusefs.StableAttr{Mode: out.Attr.Mode}

	return n.NewInode(ctx, child, stable), 0
}

// Getattr stats the node via its descriptor; not rule-gated (spec.md §4.3).
func (n *node) Getattr(ctx context.Context, f gofusefs.FileHandle, out *fuse.AttrOut) syscall.Errno {
	var st unix.Stat_t

	if fd, err := n.openSelf(); err == nil {
		if err := unix.Fstat(fd, &st); err != nil {
			return errnoOf(err)
		}
	} else {
		return errnoOf(err)
	}

	fillAttr(&st, &out.Attr)

	return 0
}

// Access maps the requested mask to one or more Operations and denies if
// any of them is denied by the rule set, otherwise forwards (spec.md
// §4.3).
func (n *node) Access(ctx context.Context, mask uint32) syscall.Errno {
	for _, op := range classifyAccessMask(mask) {
		if n.checkDenied(ctx, op) {
			return syscall.EACCES
		}
	}

	fd, err := n.openSelf()
	if err != nil {
		return errnoOf(err)
	}

	return errnoOf(unix.Faccessat(unix.AT_FDCWD, "/proc/self/fd/"+strconv.Itoa(fd), mask, 0))
}

// Open computes the operation class from flags, consults the rule set, and
// either denies (logging the event) or opens a handle relative to the
// parent descriptor (spec.md §4.3).
func (n *node) Open(ctx context.Context, flags uint32) (gofusefs.FileHandle, uint32, syscall.Errno) {
	op := classifyOpenFlags(flags)

	if n.checkDenied(ctx, op) {
		return nil, 0, syscall.EACCES
	}

	parentFD, err := n.parent.openSelf()
	if err != nil {
		return nil, 0, errnoOf(err)
	}

	fd, err := unix.Openat(parentFD, n.name, int(flags)&^unix.O_CREAT, 0)
	if err != nil {
		return nil, 0, errnoOf(err)
	}

	return &fileHandle{fd: fd}, 0, 0
}

// checkDenied consults the rule set for op on n's path, and if denied,
// emits exactly one denial event (spec.md §8 invariant).
func (n *node) checkDenied(ctx context.Context, op rules.Operation) bool {
	path := n.absPath()

	if !n.mount.rules.IsDenied(path, op) {
		return false
	}

	pid, name := n.mount.procInfo(ctx)
	n.mount.recorder.Record(denylog.Event{
		Timestamp:    nowUTC(),
		PID:          pid,
		ProcessName:  name,
		Operation:    op,
		AbsolutePath: path,
	})

	return true
}

// Readdir enumerates via the descriptor; not rule-gated (spec.md §4.3).
func (n *node) Readdir(ctx context.Context) (gofusefs.DirStream, syscall.Errno) {
	fd, err := n.openSelf()
	if err != nil {
		return nil, errnoOf(err)
	}

	// Work on a fresh descriptor opened on "." relative to the cached one:
	// enumeration via os.File consumes the stream position of the fd it's
	// given, and a separate open has a position of its own, so the cached
	// descriptor other callers may be using concurrently is not disturbed
	// (a dup would share it; the cached O_PATH handle cannot be read at all).
	streamFD, err := unix.Openat(fd, ".", unix.O_RDONLY|unix.O_DIRECTORY|unix.O_CLOEXEC, 0)
	if err != nil {
		return nil, errnoOf(err)
	}

	return newLoopbackDirStream(streamFD)
}

// Unlink is gated as Write on the affected path (spec.md §4.3).
func (n *node) Unlink(ctx context.Context, name string) syscall.Errno {
	return n.gatedWriteOn(ctx, name, func(parentFD int) error {
		return unix.Unlinkat(parentFD, name, 0)
	})
}

// Rmdir is like Unlink but for directories.
func (n *node) Rmdir(ctx context.Context, name string) syscall.Errno {
	return n.gatedWriteOn(ctx, name, func(parentFD int) error {
		return unix.Unlinkat(parentFD, name, unix.AT_REMOVEDIR)
	})
}

func (n *node) gatedWriteOn(ctx context.Context, name string, do func(parentFD int) error) syscall.Errno {
	parentFD, err := n.dirFD()
	if err != nil {
		return errnoOf(err)
	}

	path := joinPath(n.absPath(), name)
	if n.mount.rules.IsDenied(path, rules.OperationWrite) {
		n.recordDenial(ctx, rules.OperationWrite, path)
		return syscall.EACCES
	}

	if err := do(parentFD); err != nil {
		return errnoOf(err)
	}

	return 0
}

// Rename gates both the source and destination paths as Write (spec.md
// §4.3).
func (n *node) Rename(ctx context.Context, name string, newParent gofusefs.InodeEmbedder, newName string, flags uint32) syscall.Errno {
	srcPath := joinPath(n.absPath(), name)

	dst, ok := newParent.(*node)
	if !ok {
		return syscall.EINVAL
	}

	dstPath := joinPath(dst.absPath(), newName)

	denied := false
	if n.mount.rules.IsDenied(srcPath, rules.OperationWrite) {
		n.recordDenial(ctx, rules.OperationWrite, srcPath)
		denied = true
	}

	if n.mount.rules.IsDenied(dstPath, rules.OperationWrite) {
		n.recordDenial(ctx, rules.OperationWrite, dstPath)
		denied = true
	}

	if denied {
		return syscall.EACCES
	}

	srcParentFD, err := n.dirFD()
	if err != nil {
		return errnoOf(err)
	}

	dstParentFD, err := dst.dirFD()
	if err != nil {
		return errnoOf(err)
	}

	if err := unix.Renameat(srcParentFD, name, dstParentFD, newName); err != nil {
		return errnoOf(err)
	}

	return 0
}

// Setattr is gated as Write when it changes size, mode, or owner (spec.md
// §4.3); other attribute changes (e.g. timestamps) are forwarded
// ungated.
func (n *node) Setattr(ctx context.Context, f gofusefs.FileHandle, in *fuse.SetAttrIn, out *fuse.AttrOut) syscall.Errno {
	mutating := in.Valid&(fuse.FATTR_SIZE|fuse.FATTR_MODE|fuse.FATTR_UID|fuse.FATTR_GID) != 0

	if mutating && n.checkDenied(ctx, rules.OperationWrite) {
		return syscall.EACCES
	}

	fd, err := n.openSelf()
	if err != nil {
		return errnoOf(err)
	}

	if in.Valid&fuse.FATTR_SIZE != 0 {
		if err := unix.Ftruncate(fd, int64(in.Size)); err != nil {
			return errnoOf(err)
		}
	}

	if in.Valid&fuse.FATTR_MODE != 0 {
		if err := unix.Fchmod(fd, in.Mode); err != nil {
			return errnoOf(err)
		}
	}

	if in.Valid&(fuse.FATTR_UID|fuse.FATTR_GID) != 0 {
		if err := unix.Fchown(fd, int(in.Uid), int(in.Gid)); err != nil {
			return errnoOf(err)
		}
	}

	if in.Valid&(fuse.FATTR_ATIME|fuse.FATTR_MTIME) != 0 {
		ts := []unix.Timespec{{Nsec: unix.UTIME_OMIT}, {Nsec: unix.UTIME_OMIT}}
		if atime, ok := in.GetATime(); ok {
			ts[0] = unix.NsecToTimespec(atime.UnixNano())
		}
		if mtime, ok := in.GetMTime(); ok {
			ts[1] = unix.NsecToTimespec(mtime.UnixNano())
		}
		if err := unix.UtimesNanoAt(unix.AT_FDCWD, "/proc/self/fd/"+strconv.Itoa(fd), ts, 0); err != nil {
			return errnoOf(err)
		}
	}

	var st unix.Stat_t
	if err := unix.Fstat(fd, &st); err != nil {
		return errnoOf(err)
	}

	fillAttr(&st, &out.Attr)

	return 0
}

// Create is gated as Write, then forwards to an O_CREAT openat (spec.md
// §4.3).
func (n *node) Create(ctx context.Context, name string, flags uint32, mode uint32, out *fuse.EntryOut) (*gofusefs.Inode, gofusefs.FileHandle, uint32, syscall.Errno) {
	path := joinPath(n.absPath(), name)
	if n.mount.rules.IsDenied(path, rules.OperationWrite) {
		n.recordDenial(ctx, rules.OperationWrite, path)
		return nil, nil, 0, syscall.EACCES
	}

	parentFD, err := n.dirFD()
	if err != nil {
		return nil, nil, 0, errnoOf(err)
	}

	fd, err := unix.Openat(parentFD, name, int(flags)|unix.O_CREAT, mode)
	if err != nil {
		return nil, nil, 0, errnoOf(err)
	}

	var st unix.Stat_t
	if err := unix.Fstat(fd, &st); err != nil {
		_ = unix.Close(fd)
		return nil, nil, 0, errnoOf(err)
	}

	fillAttr(&st, &out.Attr)

	child := newChild(n, name)
	stable := gofusefs.StableAttr{Mode: out.Attr.Mode}

	return n.NewInode(ctx, child, stable), &fileHandle{fd: fd}, 0, 0
}

// OnForget releases n's lazily-opened descriptor. go-fuse calls this once
// the kernel's lookup-count for this inode reaches zero (spec.md §3, §9);
// it never needs to happen earlier for correctness, only to bound resource
// usage, consistent with "correctness does not depend on retention."
func (n *node) OnForget() {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.fd >= 0 && n.parent != nil {
		_ = unix.Close(n.fd)
		n.fd = -1
	}
}

func (n *node) recordDenial(ctx context.Context, op rules.Operation, path string) {
	pid, name := n.mount.procInfo(ctx)
	n.mount.recorder.Record(denylog.Event{
		Timestamp:    nowUTC(),
		PID:          pid,
		ProcessName:  name,
		Operation:    op,
		AbsolutePath: path,
	})
}

func joinPath(dir, name string) string {
	if dir == "/" {
		return "/" + name
	}

	return dir + "/" + name
}

func errnoOf(err error) syscall.Errno {
	if err == nil {
		return 0
	}

	if errno, ok := err.(unix.Errno); ok {
		return syscall.Errno(errno)
	}

	return syscall.EIO
}

func fillAttr(st *unix.Stat_t, out *fuse.Attr) {
	out.Ino = st.Ino
	out.Size = uint64(st.Size)
	out.Mode = st.Mode
	out.Nlink = uint32(st.Nlink)
	out.Uid = st.Uid
	out.Gid = st.Gid
	out.Blocks = uint64(st.Blocks)
	out.Atime = uint64(st.Atim.Sec)
	out.Atimensec = uint32(st.Atim.Nsec)
	out.Mtime = uint64(st.Mtim.Sec)
	out.Mtimensec = uint32(st.Mtim.Nsec)
	out.Ctime = uint64(st.Ctim.Sec)
	out.Ctimensec = uint32(st.Ctim.Nsec)
}

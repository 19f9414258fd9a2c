package fsys

import (
	"golang.org/x/sys/unix"

	"github.com/denyfs/denyfs/rules"
)

// classifyOpenFlags computes the gated Operation for an open(2)-style flags
// word, per spec.md §4.3: write-or-create-or-truncate implies Write;
// otherwise Read.
//
// Linux's open(2) has no flag that means "this open is for exec" — an
// execve(2) on a FUSE-backed binary is permission-checked by the kernel via
// a separate FUSE_ACCESS request carrying X_OK (see classifyAccessMask),
// not through the flags open(2) itself receives. So Open only ever
// resolves to Read or Write; Execute is gated exclusively in Access. This
// mirrors how the kernel itself splits the check across the two FUSE
// operations, and is noted as a deliberate scope boundary rather than a gap
// (spec.md §9's open question about access(F_OK) is the same kind of
// kernel-contract subtlety).
func classifyOpenFlags(flags uint32) rules.Operation {
	const writeBits = unix.O_WRONLY | unix.O_RDWR | unix.O_CREAT | unix.O_TRUNC | unix.O_APPEND

	if flags&writeBits != 0 {
		return rules.OperationWrite
	}

	return rules.OperationRead
}

// classifyAccessMask maps an access(2)-style mask to the set of Operations
// it implies, per spec.md §4.3. F_OK (existence only, mask == 0) implies no
// operation — spec.md §9 flags this as an open question and the current
// design does not treat mere existence disclosure as gated.
func classifyAccessMask(mask uint32) []rules.Operation {
	var ops []rules.Operation

	if mask&unix.R_OK != 0 {
		ops = append(ops, rules.OperationRead)
	}

	if mask&unix.W_OK != 0 {
		ops = append(ops, rules.OperationWrite)
	}

	if mask&unix.X_OK != 0 {
		ops = append(ops, rules.OperationExecute)
	}

	return ops
}

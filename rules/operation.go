// Package rules parses deny-rule strings and answers access-control queries
// against them.
package rules

import "fmt"

// Operation is the closed set of syscall-level actions a DenyRule can gate.
type Operation int

const (
	// OperationRead covers open-for-read, metadata disclosure of file
	// contents, and positional reads.
	OperationRead Operation = iota + 1
	// OperationWrite covers open-for-write/create/truncate/append,
	// positional writes, unlink, rename-destination, chmod, chown and
	// truncate.
	OperationWrite
	// OperationExecute covers open-for-exec and operations with the exec
	// access bit requested.
	OperationExecute
)

// String renders the operation using the same spelling accepted by Parse.
func (o Operation) String() string {
	switch o {
	case OperationRead:
		return "Read"
	case OperationWrite:
		return "Write"
	case OperationExecute:
		return "Execute"
	default:
		return fmt.Sprintf("Operation(%d)", int(o))
	}
}

// LogString renders the operation the way the Denial Logger's wire format
// expects (spec.md §6): lowercase.
func (o Operation) LogString() string {
	switch o {
	case OperationRead:
		return "read"
	case OperationWrite:
		return "write"
	case OperationExecute:
		return "execute"
	default:
		return "unknown"
	}
}

func parseOperation(s string) (Operation, bool) {
	switch s {
	case "Read":
		return OperationRead, true
	case "Write":
		return OperationWrite, true
	case "Execute":
		return OperationExecute, true
	default:
		return 0, false
	}
}

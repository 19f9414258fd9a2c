// Package denylog implements the Denial Logger collaborator (spec.md §4.5):
// it receives structured denial events from the Pass-Through Filesystem and
// renders them to the sinks the CLI configures (stderr, a log file, or
// neither when quiet).
package denylog

import (
	"time"

	"github.com/denyfs/denyfs/rules"
)

// Event is emitted once per denied operation (spec.md §3).
type Event struct {
	Timestamp    time.Time
	PID          int
	ProcessName  string
	Operation    rules.Operation
	AbsolutePath string
}

// Recorder is the interface the Pass-Through Filesystem depends on. It must
// be safe to call from any filesystem worker goroutine (spec.md §4.5).
type Recorder interface {
	Record(Event)
}

package denylog

import (
	"fmt"
	"io"
	"os"
	"sync"
)

// Logger is a Recorder that writes denial events to zero or more sinks.
//
// It follows the same shape as cmd/agent-sandbox/debug.go's DebugLogger: a
// plain io.Writer sink where a nil writer means "disabled", rather than a
// logging framework. The wire format of a denial line
// (spec.md §6: "[DENIED] <timestamp> pid=<pid> proc=<name> op=<op>
// path=<path>") is a fixed external contract, so hand-formatting it with
// fmt.Fprintf keeps that contract explicit instead of routing it through a
// framework's own formatter.
//
// A Logger is safe for concurrent use from multiple filesystem workers
// (spec.md §4.5); writes to each sink are serialized with a mutex.
type Logger struct {
	mu     sync.Mutex
	stderr io.Writer // nil when --quiet
	file   io.Writer // nil when no --log-file
}

// New constructs a Logger. stderrSink is nil when the --quiet flag is set;
// fileSink is nil when no --log-file was configured.
func New(stderrSink, fileSink io.Writer) *Logger {
	return &Logger{stderr: stderrSink, file: fileSink}
}

// Record implements Recorder.
func (l *Logger) Record(e Event) {
	if l == nil {
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.stderr == nil && l.file == nil {
		return
	}

	line := formatLine(e)

	if l.stderr != nil {
		_, _ = fmt.Fprintln(l.stderr, line)
	}

	if l.file != nil {
		_, _ = fmt.Fprintln(l.file, line)
	}
}

// formatLine renders e in the CLI's documented on-disk/stderr format
// (spec.md §6):
//
//	[DENIED] <timestamp> pid=<pid> proc=<name> op=<read|write|execute> path=<absolute_path>
//
// <timestamp> is ISO-8601 UTC with second resolution, e.g.
// "2026-02-11T15:05:12Z".
func formatLine(e Event) string {
	return fmt.Sprintf(
		"[DENIED] %s pid=%d proc=%s op=%s path=%s",
		e.Timestamp.UTC().Format("2006-01-02T15:04:05Z"),
		e.PID,
		e.ProcessName,
		e.Operation.LogString(),
		e.AbsolutePath,
	)
}

// StderrSink returns os.Stderr unless quiet is set, in which case it
// returns nil (disabling that sink), matching the CLI's --quiet contract.
func StderrSink(quiet bool) io.Writer {
	if quiet {
		return nil
	}

	return os.Stderr
}

// Package driver defines the contract between the synchronization
// profiler's core and the external debugger integration that observes the
// target process and supplies trap data. The core only requires this
// interface; installing breakpoints, single-stepping, and talking to the
// actual debugger are the driver's concern.
package driver

import "github.com/SoftwareStartups/sync-prof/internal/event"

// Target is what a concrete debugger integration must expose about the
// thread currently stopped at a trap.
type Target interface {
	// ThreadID returns the logical thread id the debugger has assigned the
	// stopped thread.
	ThreadID() (int, error)

	// Arg resolves argument register n (0-indexed; two suffice on common
	// ABIs) to a symbol name where possible, or its raw textual form
	// otherwise.
	Arg(n int) (string, error)

	// SourceLocation returns the file and line of the current breakpoint,
	// or the sentinel "?" filename with line 0 when unavailable.
	SourceLocation() (filename string, line int)

	// Backtrace captures an opaque backtrace string for the stopped thread.
	Backtrace() (string, error)

	// ReadVariable returns the textual value of a watched expression, for
	// access-kind events.
	ReadVariable(expr string) (string, error)

	// NewChild reports a freshly observed child thread once a
	// thread-creation call's finish trap fires: its native handle and the
	// driver-assigned child thread id. ok is false when the current event
	// is not a thread-creation call.
	NewChild() (nt *event.NewThread, ok bool)
}

// Opaque reports whether name should suppress nested events while active.
type Opaque interface {
	Opaque(name string) bool
}

// OpaqueTable is the map-backed Opaque implementation loaded from
// spconfig.Config.OpaqueTable.
type OpaqueTable map[string]bool

func (t OpaqueTable) Opaque(name string) bool { return t[name] }

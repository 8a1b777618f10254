// Package view renders the model's stream of timestamps, links, groups and
// marks into a concrete trace format. The two implementations, Text and
// Chrome, share this capability interface; there is no inheritance, per the
// sum-type-over-{Text,Chrome} guidance in the design notes.
package view

import "github.com/SoftwareStartups/sync-prof/internal/event"

// Category labels a link or group's provenance. It is a defined string
// rather than an enum of constants-only because the Chrome view derives
// arbitrary categories from event name prefixes (e.g. "OpenMP").
type Category string

const (
	CategorySyncFlow        Category = "synchronization flow"
	CategoryWarning         Category = "WARNING"
	CategoryAccess          Category = "access"
	CategoryOpenMP          Category = "OpenMP"
	CategoryPOSIXThreads    Category = "POSIX threads"
	CategoryPOSIXSemaphores Category = "POSIX semaphores"
	CategoryUnknown         Category = "unknown"
)

// Scope qualifies a Mark's reach.
type Scope string

const (
	ScopeGlobal  Scope = "global"
	ScopeProcess Scope = "process"
	ScopeThread  Scope = "thread"
)

// ThreadSnapshot is the per-thread event stack as seen by a view at one
// timestamp tick, top-first. It is a read-only projection of the model's
// pend_events[thread].events — views never see locks or the native handle,
// since neither renderer needs them.
type ThreadSnapshot struct {
	Thread int
	Events []*event.Event
}

// View is the renderer contract the model drives on every transition.
type View interface {
	// Timestamp renders the current snapshot across all threads, sorted by
	// thread id ascending.
	Timestamp(threads []ThreadSnapshot) error

	// Link records a directed cross-thread arrow.
	Link(category Category, name string, startTime int64, startThread int, stopTime int64, stopThread int, args map[string]any) error

	// Group records a single-thread span.
	Group(category Category, name string, startTime int64, startThread int, stopTime int64, stopThread int, args map[string]any) error

	// Mark records an instant annotation.
	Mark(name string, category Category, scope Scope, time int64, thread int) error

	// Close flushes and releases the output.
	Close() error
}

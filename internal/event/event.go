// Package event defines the immutable-after-creation record describing one
// synchronization occurrence observed by the debugger driver, plus its
// mutable lifecycle status and timestamps.
package event

import "fmt"

// Kind distinguishes a breakpointed function call from a watched memory
// access.
type Kind string

const (
	KindFunction Kind = "function"
	KindAccess   Kind = "access"
)

// Status is the lifecycle of an event. A function event transitions
// started -> waiting -> finished|aborted; an access event transitions
// started -> finished atomically within one admission. finished and aborted
// are terminal.
type Status string

const (
	StatusStarted  Status = "started"
	StatusWaiting  Status = "waiting"
	StatusFinished Status = "finished"
	StatusAborted  Status = "aborted"
)

// NewThread carries the identity of a child thread, supplied by the driver
// once a thread-creation call (e.g. clone) has returned.
type NewThread struct {
	DriverTID    int
	NativeHandle string
}

// Event is one entry/exit into a traced synchronization primitive.
type Event struct {
	Name      string
	Kind      Kind
	Thread    int
	Arg1      string
	Arg2      string
	Value     string
	Filename  string
	Line      int
	Backtrace string
	Opaque    bool
	Generated bool

	Status    Status
	StartTime int64
	StopTime  int64

	// NewThread is set only for thread-creation events, once resolved at
	// the finish trap.
	NewThread *NewThread
}

// New constructs an Event in the started state. Callers are expected to set
// StartTime themselves before admitting the event onto a thread stack.
func New(name string, kind Kind, thread int, arg1, arg2, value, filename string, line int, backtrace string, opaque, generated bool) *Event {
	return &Event{
		Name:      name,
		Kind:      kind,
		Thread:    thread,
		Arg1:      arg1,
		Arg2:      arg2,
		Value:     value,
		Filename:  filename,
		Line:      line,
		Backtrace: backtrace,
		Opaque:    opaque,
		Generated: generated,
		Status:    StatusStarted,
	}
}

// String renders the diagnostic form used in debug logging:
// "<name> <arg1> thread <tid> time <start> status <status>".
func (e *Event) String() string {
	return fmt.Sprintf("%s %s thread %d time %d status %s", e.Name, e.Arg1, e.Thread, e.StartTime, e.Status)
}

// ShortString renders the compact "<name> <arg1>" form used by the text
// view to label a column.
func (e *Event) ShortString() string {
	return fmt.Sprintf("%s %s", e.Name, e.Arg1)
}

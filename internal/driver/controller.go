package driver

import (
	"fmt"

	"github.com/SoftwareStartups/sync-prof/internal/event"
	"github.com/SoftwareStartups/sync-prof/internal/logging"
	"github.com/SoftwareStartups/sync-prof/internal/model"
)

// Controller is the glue between a Target and the Model: it pulls the
// thread id, arguments, source location, backtrace and (for access events)
// watched value off the stopped thread and translates them into
// Model.StartEvent/StopEvent calls, handling the two driver-reported
// non-fatal conditions: MultiplePCs and OutOfScope.
type Controller struct {
	m      *model.Model
	logger logging.Logger
	opaque Opaque

	// breakpointPC remembers the first program counter observed for each
	// breakpoint symbol. A later entry at a different PC is the
	// MultiplePCs condition: the core ignores it and logs a warning,
	// rather than recording a second, nesting-breaking event.
	breakpointPC map[string]uint64
}

// NewController builds a Controller driving m, consulting opaque for each
// primitive's opacity.
func NewController(m *model.Model, logger logging.Logger, opaque Opaque) *Controller {
	return &Controller{
		m:            m,
		logger:       logger,
		opaque:       opaque,
		breakpointPC: make(map[string]uint64),
	}
}

// OnEntry handles an entry trap for a breakpointed primitive. watchExpr is
// only consulted for kind == event.KindAccess. pc is the program counter at
// which the breakpoint symbol resolved; when a later entry for the same
// name resolves to a different pc, the event is the MultiplePCs condition
// and is silently dropped after a warning, matching
// SPTraceFunction.stop's syncPC check in the original GDB extension.
//
// A nil, nil return means either MultiplePCs or opaque suppression; the
// caller must not arm a finish trap in either case.
func (c *Controller) OnEntry(name string, kind event.Kind, pc uint64, watchExpr string, t Target) (*event.Event, error) {
	if prev, seen := c.breakpointPC[name]; seen {
		if prev != pc {
			c.logger.Warn("breakpoint has multiple PCs", "name", name, "first_pc", prev, "pc", pc)
			return nil, nil
		}
	} else {
		c.breakpointPC[name] = pc
	}

	thread, err := t.ThreadID()
	if err != nil {
		return nil, fmt.Errorf("resolve thread id for %s: %w", name, err)
	}
	arg1, err := t.Arg(0)
	if err != nil {
		return nil, fmt.Errorf("resolve arg1 for %s: %w", name, err)
	}
	arg2, err := t.Arg(1)
	if err != nil {
		return nil, fmt.Errorf("resolve arg2 for %s: %w", name, err)
	}
	filename, line := t.SourceLocation()
	backtrace, err := t.Backtrace()
	if err != nil {
		return nil, fmt.Errorf("capture backtrace for %s: %w", name, err)
	}

	var value string
	if kind == event.KindAccess {
		value, err = t.ReadVariable(watchExpr)
		if err != nil {
			return nil, fmt.Errorf("read watched variable %s: %w", watchExpr, err)
		}
	}

	return c.m.StartEvent(model.StartEventRequest{
		Name:      name,
		Kind:      kind,
		Thread:    thread,
		Arg1:      arg1,
		Arg2:      arg2,
		Value:     value,
		Filename:  filename,
		Line:      line,
		Backtrace: backtrace,
		Opaque:    c.opaque.Opaque(name),
	})
}

// OnFinish handles the matching finish trap for ev, resolving the
// thread-creation child identity if applicable before stopping the event.
func (c *Controller) OnFinish(ev *event.Event, t Target) error {
	if nt, ok := t.NewChild(); ok {
		ev.NewThread = nt
	}
	return c.m.StopEvent(ev)
}

// OnOutOfScope handles a finish breakpoint that can never fire because the
// frame unwound past it (e.g. pthread_exit never returns). The driver must
// still deliver a terminal notification of some kind, but the core itself
// just logs and leaves the event pending for Flush to reap.
func (c *Controller) OnOutOfScope(ev *event.Event) {
	c.logger.Warn("breakpoint out of scope", "event", ev.String())
}

// Shutdown runs the end-of-trace sweep.
func (c *Controller) Shutdown() error {
	return c.m.Flush()
}

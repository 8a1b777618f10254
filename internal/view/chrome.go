package view

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/SoftwareStartups/sync-prof/internal/event"
)

// chromeEvent is one record of the Chrome Trace Event Format.
type chromeEvent struct {
	Cat  string         `json:"cat"`
	Name string         `json:"name"`
	PID  int            `json:"pid"`
	TID  int            `json:"tid"`
	Ph   string         `json:"ph"`
	ID   int            `json:"id"`
	TS   int64          `json:"ts"`
	Args map[string]any `json:"args"`
	S    string         `json:"s,omitempty"`
}

// Chrome renders a chromium-style trace-event document consumable by
// chrome://tracing and its derivatives. Records are streamed one at a time
// as they arrive rather than buffered in memory and written on Close, so a
// crashed or killed run still leaves a usable partial trace on disk.
type Chrome struct {
	w      io.Writer
	closer io.Closer
	nextID int
	wrote  bool
	closed bool
	err    error
}

// NewChrome wraps w as a Chrome view, writing the opening
// `{"traceEvents":[` preamble immediately and, if w also implements
// io.Closer, closing it on Close.
func NewChrome(w io.Writer) *Chrome {
	c := &Chrome{w: w}
	if cl, ok := w.(io.Closer); ok {
		c.closer = cl
	}
	if _, err := io.WriteString(w, `{"traceEvents":[`); err != nil {
		c.err = err
	}
	return c
}

func (c *Chrome) writeRecord(e chromeEvent) {
	if c.err != nil {
		return
	}
	b, err := json.Marshal(e)
	if err != nil {
		c.err = fmt.Errorf("marshal chrome event: %w", err)
		return
	}
	if c.wrote {
		if _, err := io.WriteString(c.w, ","); err != nil {
			c.err = err
			return
		}
	}
	if _, err := c.w.Write(b); err != nil {
		c.err = err
		return
	}
	c.wrote = true
}

func (c *Chrome) record(id int, name, category string, thread int, phase string, ts int64, args map[string]any, scope string) {
	c.writeRecord(chromeEvent{
		Cat:  category,
		Name: name,
		PID:  1,
		TID:  thread,
		Ph:   phase,
		ID:   id,
		TS:   ts,
		Args: args,
		S:    scope,
	})
}

func categoryFor(e *event.Event) Category {
	if e.Kind == event.KindAccess {
		return CategoryAccess
	}
	switch {
	case strings.HasPrefix(e.Name, "GOMP_"):
		return CategoryOpenMP
	case strings.HasPrefix(e.Name, "pthread_"):
		return CategoryPOSIXThreads
	case strings.HasPrefix(e.Name, "sem_"):
		return CategoryPOSIXSemaphores
	default:
		return CategoryUnknown
	}
}

func (c *Chrome) Timestamp(threads []ThreadSnapshot) error {
	for _, th := range threads {
		if len(th.Events) == 0 {
			continue
		}
		top := th.Events[0]
		if top.Status != event.StatusFinished && top.Status != event.StatusAborted {
			continue
		}
		args := map[string]any{
			"argument1":  top.Arg1,
			"argument2":  top.Arg2,
			"value":      top.Value,
			"source":     top.Filename,
			"line":       top.Line,
			"stacktrace": top.Backtrace,
		}
		if err := c.durationPair(string(categoryFor(top)), top.Thread, top.Thread, top.Name, top.StartTime, top.StopTime, args); err != nil {
			return err
		}
	}
	return c.err
}

// durationPair emits a B/E pair bracketing a synchronous duration on one
// thread. Both records share a single id, matching sp_view.py's jsonSlice,
// which allocates one slice id and reuses it for both emitted events.
func (c *Chrome) durationPair(category string, startThread, stopThread int, name string, start, stop int64, args map[string]any) error {
	if startThread != stopThread {
		return fmt.Errorf("chrome view: duration pair %q spans threads %d and %d", name, startThread, stopThread)
	}
	if stop < start {
		return fmt.Errorf("chrome view: %q stop %d precedes start %d", name, stop, start)
	}
	c.nextID++
	id := c.nextID
	c.record(id, name, category, startThread, "B", start, args, "")
	c.record(id, name, category, stopThread, "E", stop, map[string]any{}, "")
	return c.err
}

// Link emits an s/f pair sharing a single id, so a reader can match a
// source arrow to its destination the same way a duration's B/E pair is
// matched.
func (c *Chrome) Link(category Category, name string, startTime int64, startThread int, stopTime int64, stopThread int, args map[string]any) error {
	if stopTime < startTime {
		return fmt.Errorf("chrome view: link %q stop %d precedes start %d", name, stopTime, startTime)
	}
	c.nextID++
	id := c.nextID
	c.record(id, name, string(category), startThread, "s", startTime, args, "")
	c.record(id, name, string(category), stopThread, "f", stopTime, map[string]any{}, "")
	return c.err
}

func (c *Chrome) Group(category Category, name string, startTime int64, startThread int, stopTime int64, stopThread int, args map[string]any) error {
	return c.durationPair(string(category), startThread, stopThread, name, startTime, stopTime, args)
}

func (c *Chrome) Mark(name string, category Category, scope Scope, time int64, thread int) error {
	chromeScope := map[Scope]string{ScopeGlobal: "g", ScopeProcess: "p", ScopeThread: "t"}[scope]
	c.nextID++
	c.record(c.nextID, name, string(category), thread, "I", time, map[string]any{}, chromeScope)
	return c.err
}

func (c *Chrome) Close() error {
	if c.closed {
		return c.err
	}
	c.closed = true
	if c.err != nil {
		return c.err
	}
	if _, err := io.WriteString(c.w, "]}"); err != nil {
		return err
	}
	if c.closer != nil {
		return c.closer.Close()
	}
	return nil
}

// Package model implements the synchronization profiler's event state
// machine: it ingests start/stop/abort notifications from the debugger
// driver, maintains per-thread event and lock stacks, synthesizes derived
// condition-variable events, computes causal links between threads, detects
// lock-scoped regions, and drives a view renderer on every transition.
//
// The model is single-threaded cooperative: the driver serializes all traps
// because the target is stopped whenever one fires, so Model mutates state
// only on the calling goroutine. There are no internal locks and no
// suspension points inside model operations.
package model

import (
	"fmt"
	"sort"

	"github.com/SoftwareStartups/sync-prof/internal/alertbus"
	"github.com/SoftwareStartups/sync-prof/internal/event"
	"github.com/SoftwareStartups/sync-prof/internal/logging"
	"github.com/SoftwareStartups/sync-prof/internal/stack"
	"github.com/SoftwareStartups/sync-prof/internal/view"
)

// mainThreadID is the driver-assigned id of the process's initial thread.
// The shutdown-sweep "Event(s) aborted" mark is always attributed to it,
// matching sp_model.py's flushPendEvents, which hardcodes the mark's
// thread argument to 1.
const mainThreadID = 1

const timeDelta int64 = 1

var condWaitNames = []string{"pthread_cond_wait", "pthread_cond_timedwait"}
var semSrcNames = []string{"sem_post"}
var semDstNames = []string{"sem_wait"}
var condvarSrcNames = []string{"pthread_cond_broadcast", "pthread_cond_signal"}

type pendLinkDescriptor struct {
	name      string
	pendNames []string
	argName   string
}

var pendEventLinks = map[string]pendLinkDescriptor{
	"pthread_mutex_unlock": {name: "lock released", pendNames: []string{"pthread_mutex_lock", "pthread_mutex_trylock"}, argName: "lock"},
	"pthread_barrier_wait": {name: "barrier reached", pendNames: []string{"pthread_barrier_wait"}, argName: "barrier"},
}

// threadState is the per-thread record: its stack of unfinished events, its
// stack of held mutex locks, and its native thread handle (set once, when
// the creator's thread-start event resolves).
type threadState struct {
	thread       int
	events       *stack.Stack
	locks        *stack.Stack
	nativeHandle string
}

// StartEventRequest carries the fields the debugger driver supplies for one
// entry trap.
type StartEventRequest struct {
	Name      string
	Kind      event.Kind
	Thread    int
	Arg1      string
	Arg2      string
	Value     string
	Filename  string
	Line      int
	Backtrace string
	Opaque    bool
	// Generated bypasses opaque gating; set only by the model itself when
	// synthesizing derived condvar events.
	Generated bool
}

// Model is the synchronization-trace state machine.
type Model struct {
	logger logging.Logger
	view   view.View
	bus    *alertbus.Bus

	clock int64

	threads map[int]*threadState

	semPosts        rendezvousTable
	condvarSignals  rendezvousTable
	completedCounts map[string]int
}

// New constructs a Model driving v. bus may be nil, in which case warning
// marks are not published anywhere beyond the view.
func New(v view.View, logger logging.Logger, bus *alertbus.Bus) *Model {
	return &Model{
		logger:          logger,
		view:            v,
		bus:             bus,
		threads:         make(map[int]*threadState),
		semPosts:        make(rendezvousTable),
		condvarSignals:  make(rendezvousTable),
		completedCounts: make(map[string]int),
	}
}

// Summary returns the number of times each named primitive completed
// (finished, not aborted), for the end-of-run hit-count report
// sp_gdb_ctrl.printSummary produces.
func (m *Model) Summary() map[string]int {
	out := make(map[string]int, len(m.completedCounts))
	for k, v := range m.completedCounts {
		out[k] = v
	}
	return out
}

func (m *Model) ensureThread(thread int) *threadState {
	ts, ok := m.threads[thread]
	if !ok {
		ts = &threadState{thread: thread, events: stack.New(), locks: stack.New()}
		m.threads[thread] = ts
	}
	return ts
}

func (m *Model) threadOpaque(thread int) bool {
	ts, ok := m.threads[thread]
	if !ok || ts.events.Empty() {
		return false
	}
	top, err := ts.events.Top()
	if err != nil {
		return false
	}
	return top.Opaque
}

func (m *Model) sortedThreadIDs() []int {
	ids := make([]int, 0, len(m.threads))
	for id := range m.threads {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

// StartEvent admits a new event through its nine-step sequence: gate on
// opacity, construct and timestamp the event, push it onto the thread's
// stack, render a timestamp tick, synthesize any derived events, finish it
// immediately if it's an access, and finally compute causal links.
// It returns (nil, nil) when the event is refused by opaque gating — the
// none-sentinel the driver must check for before arming a finish trap.
func (m *Model) StartEvent(req StartEventRequest) (*event.Event, error) {
	if !req.Generated && m.threadOpaque(req.Thread) {
		return nil, nil
	}

	ev := event.New(req.Name, req.Kind, req.Thread, req.Arg1, req.Arg2, req.Value, req.Filename, req.Line, req.Backtrace, req.Opaque, req.Generated)
	ev.StartTime = m.clock
	m.logger.Debug("start_event", "event", ev.String())
	m.clock += timeDelta

	ts := m.ensureThread(req.Thread)
	ts.events.Push(ev)

	if err := m.emitTimestamp(); err != nil {
		return nil, err
	}
	if err := m.generateEvent(ev); err != nil {
		return nil, err
	}

	if ev.Kind == event.KindAccess {
		if err := m.StopEvent(ev); err != nil {
			return nil, err
		}
	} else {
		ev.Status = event.StatusWaiting
	}

	if err := m.links(ev); err != nil {
		return nil, err
	}
	return ev, nil
}

// StopEvent finishes ev: mark it finished, synthesize any derived events,
// advance the clock, render a timestamp tick, compute thread and lock
// links, and pop it off its thread's stack.
func (m *Model) StopEvent(ev *event.Event) error {
	if ev.Status == event.StatusFinished {
		return fmt.Errorf("stop_event %s: %w", ev.Name, ErrAlreadyFinished)
	}
	ev.Status = event.StatusFinished
	ev.StopTime = m.clock

	if err := m.generateEvent(ev); err != nil {
		return err
	}
	m.clock += timeDelta

	m.logger.Debug("stop_event", "event", ev.String())

	if err := m.emitTimestamp(); err != nil {
		return err
	}
	if err := m.linkThreads(ev); err != nil {
		return err
	}
	if err := m.lockBlocks(ev); err != nil {
		return err
	}
	if err := m.dropEvent(ev); err != nil {
		return err
	}
	m.completedCounts[ev.Name]++
	return nil
}

// AbortEvent force-terminates ev, e.g. because the driver hit a shutdown
// timeout. No causal links are emitted — an aborted event never completed.
func (m *Model) AbortEvent(ev *event.Event) error {
	if ev.Status == event.StatusAborted {
		return fmt.Errorf("abort_event %s: %w", ev.Name, ErrAlreadyAborted)
	}
	ev.Status = event.StatusAborted
	ev.StopTime = m.clock

	if err := m.generateEvent(ev); err != nil {
		return err
	}
	if err := m.emitTimestamp(); err != nil {
		return err
	}
	return m.dropEvent(ev)
}

// Flush performs the end-of-trace sweep: every still-pending event on every
// thread is aborted, every still-held lock is closed out as a group
// spanning to the current clock, and a single "Event(s) aborted" mark is
// emitted if anything was unfinished. Flush always closes the view, even on
// error, so partial output survives a failed sweep.
func (m *Model) Flush() error {
	abortedAny, sweepErr := m.sweep()

	if sweepErr == nil && abortedAny {
		sweepErr = m.view.Mark("Event(s) aborted", view.CategoryWarning, view.ScopeGlobal, m.clock, mainThreadID)
		if sweepErr == nil && m.bus != nil {
			m.bus.PublishMark("Event(s) aborted", string(view.CategoryWarning), string(view.ScopeGlobal), m.clock, mainThreadID)
		}
	}

	closeErr := m.view.Close()
	if sweepErr != nil {
		return sweepErr
	}
	return closeErr
}

// sweep aborts every pending event and closes out every held lock, across
// all threads, stopping at the first error.
func (m *Model) sweep() (abortedAny bool, err error) {
	for _, id := range m.sortedThreadIDs() {
		ts := m.threads[id]
		for _, ev := range ts.events.Items() {
			if err := m.AbortEvent(ev); err != nil {
				return abortedAny, err
			}
			if !abortedAny {
				m.logger.Warn("Unfinished events at the shutdown")
			}
			abortedAny = true
		}
		for _, lock := range ts.locks.Items() {
			if err := m.emitLockBlock(lock, m.clock); err != nil {
				return abortedAny, err
			}
		}
	}
	return abortedAny, nil
}

func (m *Model) dropEvent(ev *event.Event) error {
	ts := m.threads[ev.Thread]
	top, err := ts.events.Top()
	if err != nil {
		return fmt.Errorf("drop event %s on thread %d: %w", ev.Name, ev.Thread, ErrNestingBroken)
	}
	if top != ev {
		return fmt.Errorf("drop event %s on thread %d: top is %s: %w", ev.Name, ev.Thread, top.Name, ErrNestingBroken)
	}
	_, err = ts.events.Pop()
	return err
}

func (m *Model) emitTimestamp() error {
	ids := m.sortedThreadIDs()
	snapshots := make([]view.ThreadSnapshot, 0, len(ids))
	for _, id := range ids {
		snapshots = append(snapshots, view.ThreadSnapshot{Thread: id, Events: m.threads[id].events.Items()})
	}
	return m.view.Timestamp(snapshots)
}

// generateEvent synthesizes the hidden mutex operations a condvar wait
// implies: an unlock on entry, a re-lock on exit, both against the wait's
// associated mutex (arg2). Only pthread_cond_wait/_timedwait trigger this.
func (m *Model) generateEvent(ev *event.Event) error {
	if !contains(condWaitNames, ev.Name) {
		return nil
	}
	switch ev.Status {
	case event.StatusStarted:
		newEv, err := m.StartEvent(StartEventRequest{
			Name: "pthread_mutex_unlock", Kind: event.KindFunction, Thread: ev.Thread,
			Arg1: ev.Arg2, Arg2: "unknown", Value: "unknown",
			Filename: ev.Filename, Line: ev.Line, Backtrace: ev.Backtrace,
			Opaque: ev.Opaque, Generated: true,
		})
		if err != nil {
			return err
		}
		if newEv != nil {
			return m.StopEvent(newEv)
		}
	case event.StatusFinished:
		saved := m.clock
		m.clock -= timeDelta
		newEv, err := m.StartEvent(StartEventRequest{
			Name: "pthread_mutex_lock", Kind: event.KindFunction, Thread: ev.Thread,
			Arg1: ev.Arg2, Arg2: "unknown", Value: "unknown",
			Filename: ev.Filename, Line: ev.Line, Backtrace: ev.Backtrace,
			Opaque: ev.Opaque, Generated: true,
		})
		m.clock = saved
		if err != nil {
			return err
		}
		if newEv != nil {
			return m.StopEvent(newEv)
		}
	}
	return nil
}

// links publishes causal arrows for semaphore/condvar rendezvous and for
// unlock/barrier release of pending threads. Called on every StartEvent.
func (m *Model) links(ev *event.Event) error {
	switch {
	case contains(semSrcNames, ev.Name) || contains(semDstNames, ev.Name):
		return m.link(ev, "semaphore increment", "semaphore", semSrcNames, semDstNames, m.semPosts)
	case contains(condvarSrcNames, ev.Name) || contains(condWaitNames, ev.Name):
		return m.link(ev, "condition satisfied", "condition variable", condvarSrcNames, condWaitNames, m.condvarSignals)
	default:
		if d, ok := pendEventLinks[ev.Name]; ok {
			return m.pendEventsLink(ev, d)
		}
	}
	return nil
}

// link implements the semaphore/condvar rendezvous algorithm: a source
// event scans every thread's event stack (at any depth, not just the top)
// for a matching destination; if none is waiting, the source is remembered
// in table for a later destination to consume.
func (m *Model) link(ev *event.Event, name, argName string, srcNames, dstNames []string, table rendezvousTable) error {
	if contains(srcNames, ev.Name) {
		waitFound := false
		for _, id := range m.sortedThreadIDs() {
			for _, e := range m.threads[id].events.Items() {
				if contains(dstNames, e.Name) && e.Arg1 == ev.Arg1 {
					waitFound = true
					args := map[string]any{argName: e.Arg1}
					if err := m.view.Link(view.CategorySyncFlow, name, ev.StartTime, ev.Thread, m.clock, e.Thread, args); err != nil {
						return err
					}
				}
			}
		}
		if !waitFound {
			table[ev.Arg1] = ev
		}
		return nil
	}
	if contains(dstNames, ev.Name) {
		src, ok := table[ev.Arg1]
		if !ok {
			return nil
		}
		args := map[string]any{argName: ev.Arg1}
		if err := m.view.Link(view.CategorySyncFlow, name, src.StartTime, src.Thread, ev.StartTime, ev.Thread, args); err != nil {
			return err
		}
		delete(table, ev.Arg1)
	}
	return nil
}

// pendEventsLink links ev to every other thread whose top event is a
// matching pending primitive (mutex-lock for unlock; barrier-wait for
// barrier).
func (m *Model) pendEventsLink(ev *event.Event, d pendLinkDescriptor) error {
	for _, id := range m.sortedThreadIDs() {
		ts := m.threads[id]
		if ts.events.Empty() {
			continue
		}
		top, err := ts.events.Top()
		if err != nil {
			return err
		}
		if top == ev || !contains(d.pendNames, top.Name) || top.Arg1 != ev.Arg1 {
			continue
		}
		args := map[string]any{d.argName: ev.Arg1}
		stopTime := ev.StartTime + timeDelta
		if err := m.view.Link(view.CategorySyncFlow, d.name, ev.StartTime, ev.Thread, stopTime, top.Thread, args); err != nil {
			return err
		}
	}
	return nil
}

// linkThreads emits thread-start/thread-finish arrows at stop time.
func (m *Model) linkThreads(ev *event.Event) error {
	if ev.NewThread != nil {
		child := m.ensureThread(ev.NewThread.DriverTID)
		child.nativeHandle = ev.NewThread.NativeHandle
		args := map[string]any{"driver_tid": ev.NewThread.DriverTID, "native_handle": ev.NewThread.NativeHandle}
		return m.view.Link(view.CategorySyncFlow, "thread started", ev.StartTime, ev.Thread, m.clock, ev.NewThread.DriverTID, args)
	}
	if ev.Name == "pthread_join" && ev.Status == event.StatusFinished {
		var joined *threadState
		matches := 0
		for _, ts := range m.threads {
			if ts.nativeHandle != "" && ts.nativeHandle == ev.Arg1 {
				joined = ts
				matches++
			}
		}
		if matches != 1 {
			return fmt.Errorf("pthread_join handle %q: %w", ev.Arg1, ErrJoinTargetAmbiguous)
		}
		args := map[string]any{"native_handle": ev.Arg1}
		return m.view.Link(view.CategorySyncFlow, "thread finished", ev.StopTime-timeDelta, joined.thread, ev.StopTime, ev.Thread, args)
	}
	return nil
}

// lockBlocks tracks mutex acquisition on the holder's lock stack and, on
// release, emits a group slice spanning the lock's scope.
func (m *Model) lockBlocks(ev *event.Event) error {
	switch ev.Name {
	case "pthread_mutex_lock", "pthread_mutex_trylock":
		m.threads[ev.Thread].locks.Push(ev)
	case "pthread_mutex_unlock":
		ts := m.threads[ev.Thread]
		lastLock, err := ts.locks.Pop()
		if err != nil {
			return fmt.Errorf("unlock %s on thread %d: %w", ev.Arg1, ev.Thread, ErrNestingBroken)
		}
		if lastLock.Thread != ev.Thread || lastLock.Arg1 != ev.Arg1 {
			return fmt.Errorf("unlock %s on thread %d: held lock is %s: %w", ev.Arg1, ev.Thread, lastLock.Arg1, ErrNestingBroken)
		}
		return m.emitLockBlock(lastLock, ev.StartTime)
	}
	return nil
}

func (m *Model) emitLockBlock(lockEv *event.Event, unlockStart int64) error {
	args := map[string]any{"lock": lockEv.Arg1}
	name := "locked by " + lockEv.Arg1
	return m.view.Group(view.CategorySyncFlow, name, lockEv.StopTime, lockEv.Thread, unlockStart, lockEv.Thread, args)
}

func contains(names []string, name string) bool {
	for _, n := range names {
		if n == name {
			return true
		}
	}
	return false
}

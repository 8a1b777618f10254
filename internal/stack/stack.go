// Package stack implements the bounded-LIFO event container used by the
// model to track per-thread pending events and held locks.
package stack

import (
	"errors"

	"github.com/SoftwareStartups/sync-prof/internal/event"
)

// ErrEmpty is returned by Pop and Top when the stack has no elements.
var ErrEmpty = errors.New("stack: empty")

// Stack is a simple LIFO of events. It is not safe for concurrent use; the
// model drives it from a single goroutine, matching the debugger driver's
// guarantee that the target is stopped whenever a trap fires.
type Stack struct {
	items []*event.Event
}

// New returns an empty stack.
func New() *Stack {
	return &Stack{}
}

// Push adds e to the top of the stack.
func (s *Stack) Push(e *event.Event) {
	s.items = append(s.items, e)
}

// Pop removes and returns the top element.
func (s *Stack) Pop() (*event.Event, error) {
	e, err := s.Top()
	if err != nil {
		return nil, err
	}
	s.items = s.items[:len(s.items)-1]
	return e, nil
}

// Top returns the top element without removing it.
func (s *Stack) Top() (*event.Event, error) {
	if s.Empty() {
		return nil, ErrEmpty
	}
	return s.items[len(s.items)-1], nil
}

// Size returns the number of elements on the stack.
func (s *Stack) Size() int {
	return len(s.items)
}

// Empty reports whether the stack has no elements.
func (s *Stack) Empty() bool {
	return len(s.items) == 0
}

// Items returns a snapshot of the stack's elements, top first. The returned
// slice is safe to range over even while the stack is subsequently mutated.
func (s *Stack) Items() []*event.Event {
	n := len(s.items)
	result := make([]*event.Event, n)
	for i := 0; i < n; i++ {
		result[i] = s.items[n-1-i]
	}
	return result
}

package model

import "github.com/SoftwareStartups/sync-prof/internal/event"

// rendezvousTable maps an operand symbol (a semaphore or condition variable
// name) to the most recent pending source event awaiting a match.
//
// This is a single-slot-per-key design, not a FIFO queue: a second source
// for the same key silently overwrites the first, so a sequence like
// post, post, wait, wait only ever links the second post to the first wait
// and loses the first post entirely. sp_model.py carries the identical
// limitation and the same TODO; traces are assumed to keep at most one
// rendezvous in flight per key, so replacing this with a queue would
// change documented behavior rather than just fix a bug. Kept as is.
type rendezvousTable map[string]*event.Event

package model

import "errors"

// Fatal error kinds. Each indicates a violated invariant in the incoming
// trap stream or a double-terminated event; callers should treat them as
// unrecoverable for the affected trace and report them through the logger,
// while still flushing whatever the view has already written.
var (
	ErrAlreadyFinished     = errors.New("model: event already finished")
	ErrAlreadyAborted      = errors.New("model: event already aborted")
	ErrNestingBroken       = errors.New("model: nesting broken")
	ErrJoinTargetAmbiguous = errors.New("model: join target ambiguous")
)

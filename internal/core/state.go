package core

import (
	"context"
	"errors"
)

// State is the lifecycle state of a detection run.
type State string

const (
	StateIdle      State = "idle"
	StateRunning   State = "running"
	StateCompleted State = "completed"
	StateAborted   State = "aborted"
	StateRejected  State = "rejected"
	// StateFailed covers errors outside detection itself, such as a failed
	// article query.
	StateFailed State = "failed"
)

// Terminal reports whether no further transition can happen.
func (s State) Terminal() bool {
	switch s {
	case StateCompleted, StateAborted, StateRejected, StateFailed:
		return true
	}
	return false
}

// StateOf maps the error returned by Detect or FindSimilar to the state the
// run ended in.
func StateOf(err error) State {
	switch {
	case err == nil:
		return StateCompleted
	case errors.Is(err, ErrDetectionAborted),
		errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):
		return StateAborted
	case errors.Is(err, ErrInvalidArgument), errors.Is(err, ErrTooManyArticles):
		return StateRejected
	default:
		return StateFailed
	}
}

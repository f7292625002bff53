package domain

import (
	"errors"
	"fmt"
)

// ErrSessionNotFound is returned when a session ID cannot be found in the store.
var ErrSessionNotFound = errors.New("session not found")

// ErrUnresolvedTarget is reported when an action id matches no node in the rebuilt tree.
// It is never fatal: the current tree is rendered and no handler runs.
var ErrUnresolvedTarget = errors.New("unresolved action target")

// ErrUnknownForm is carried by the unresolved event of a scoped form submit naming a
// form the tree does not declare. It matches ErrUnresolvedTarget.
var ErrUnknownForm = fmt.Errorf("%w: unknown scoped form", ErrUnresolvedTarget)

// ErrHandlerFailure is the sentinel every HandlerError unwraps to.
var ErrHandlerFailure = errors.New("handler failed")

// ErrTimeoutExceeded is returned by one-shot mode when no submission arrives in time.
var ErrTimeoutExceeded = errors.New("timeout exceeded waiting for submission")

// ErrPortExhaustion is returned when no port in the configured range could be bound.
var ErrPortExhaustion = errors.New("no free port in range")

// ErrServiceUnavailable is returned when the shared multi-app listener cannot be reached.
var ErrServiceUnavailable = errors.New("service unavailable")

// ErrAlreadyCompleted is returned when a one-shot app receives a second submission.
var ErrAlreadyCompleted = errors.New("already completed")

// HandlerError wraps a failure raised by an action or commit handler.
type HandlerError struct {
	NodeID string
	Err    error
	Panic  any
}

func (e *HandlerError) Error() string {
	if e.Panic != nil {
		return fmt.Sprintf("handler %s panicked: %v", e.NodeID, e.Panic)
	}
	return fmt.Sprintf("handler %s: %v", e.NodeID, e.Err)
}

// Unwrap exposes both the sentinel and the underlying error to errors.Is.
func (e *HandlerError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrHandlerFailure}
	}
	return []error{ErrHandlerFailure, e.Err}
}

// Invoke runs h against s, converting a panic into a HandlerError.
func Invoke(nodeID string, h Handler, s Store) (err error) {
	if h == nil {
		return nil
	}
	defer func() {
		if r := recover(); r != nil {
			err = &HandlerError{NodeID: nodeID, Panic: r}
		}
	}()
	if herr := h(s); herr != nil {
		return &HandlerError{NodeID: nodeID, Err: herr}
	}
	return nil
}

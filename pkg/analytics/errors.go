// Package analytics provides a context-scoped event-logging core.
package analytics

import (
	"errors"
	"fmt"
)

// Sentinel errors for scope acquisition. Both signal wiring bugs to fix
// before shipping, not recoverable runtime conditions.
var (
	// ErrNoScope indicates a builder was requested outside any mounted scope.
	ErrNoScope = errors.New("no analytics scope mounted")

	// ErrScopeUnmounted indicates a builder was requested after the scope
	// was torn down.
	ErrScopeUnmounted = errors.New("analytics scope unmounted")
)

// Sentinel errors for builder finalization.
var (
	// ErrMissingAction indicates Log() was called before SetAction().
	ErrMissingAction = errors.New("action not set")

	// ErrInvalidAction indicates the action is not a taxonomy member.
	ErrInvalidAction = errors.New("action not in taxonomy")

	// ErrBuilderFinalized indicates Log() was called on an already-finalized
	// builder.
	ErrBuilderFinalized = errors.New("builder already finalized")
)

// InvalidActionError reports an action outside the taxonomy.
type InvalidActionError struct {
	// Action is the rejected value.
	Action Action
}

// Error implements the error interface.
func (e *InvalidActionError) Error() string {
	return fmt.Sprintf("action %q not in taxonomy", string(e.Action))
}

// Unwrap returns ErrInvalidAction for errors.Is support.
func (e *InvalidActionError) Unwrap() error {
	return ErrInvalidAction
}

// DeliveryError wraps a sink failure for one event. It flows only through
// the dispatcher's error callback, never back to the caller of Log.
type DeliveryError struct {
	// Event is the event that failed to deliver.
	Event *Event
	// Err is the underlying sink error.
	Err error
}

// Error implements the error interface.
func (e *DeliveryError) Error() string {
	return fmt.Sprintf("deliver event %s (%s): %v", e.Event.ID, e.Event.Action, e.Err)
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *DeliveryError) Unwrap() error {
	return e.Err
}

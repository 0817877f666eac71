// Package scerr defines the statechart engine's error taxonomy.
//
// Definition-time errors (InvalidInitial, malformed transitions) abort
// machine construction. Runtime errors raised from user closures during
// a transition propagate out of Transition; the state is not advanced.
package scerr

import "github.com/pkg/errors"

// Sentinel errors identifying the taxonomy. Use errors.Is against these,
// or errors.Cause (from github.com/pkg/errors) to recover the sentinel
// from a wrapped error.
var (
	// ErrUnknownState - transition targets a missing id or path.
	ErrUnknownState = errors.New("statecraft: unknown state")

	// ErrUnknownEvent - strict mode, unrecognized event.
	ErrUnknownEvent = errors.New("statecraft: unknown event")

	// ErrInvalidInitial - compound state's initial names a nonexistent child.
	ErrInvalidInitial = errors.New("statecraft: invalid initial state")

	// ErrGuardFailed - guard evaluation threw.
	ErrGuardFailed = errors.New("statecraft: guard evaluation failed")

	// ErrUnresolvedDelay - named delay not registered in options.
	ErrUnresolvedDelay = errors.New("statecraft: unresolved delay")

	// ErrUnknownActionRef - symbolic action name with no implementation.
	ErrUnknownActionRef = errors.New("statecraft: unknown action reference")

	// ErrUnknownGuardRef - symbolic guard name with no implementation.
	ErrUnknownGuardRef = errors.New("statecraft: unknown guard reference")

	// ErrUnknownServiceRef - symbolic service name with no implementation.
	ErrUnknownServiceRef = errors.New("statecraft: unknown service reference")

	// ErrInvalidTarget - transition target resolves outside the machine, or is malformed.
	ErrInvalidTarget = errors.New("statecraft: invalid transition target")
)

// GuardFailure carries the context SCXML-adjacent tooling expects when a
// named guard returns an error: the guard's symbolic type,
// the event being processed, and the id of the transition's source state.
type GuardFailure struct {
	GuardType string
	EventName string
	SourceID  string
	Cause     error
}

func (f *GuardFailure) Error() string {
	return errors.Wrapf(f.Cause, "guard %q failed evaluating event %q from state %q",
		f.GuardType, f.EventName, f.SourceID).Error()
}

func (f *GuardFailure) Unwrap() error { return f.Cause }

// Wrap annotates err with msg using github.com/pkg/errors, preserving
// the sentinel for errors.Is/errors.Cause.
func Wrap(err error, msg string) error {
	if err == nil {
		return nil
	}
	return errors.Wrap(err, msg)
}

// Wrapf is Wrap with Printf-style formatting.
func Wrapf(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return errors.Wrapf(err, format, args...)
}

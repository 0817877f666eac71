package statecraft

import "github.com/arborio/statecraft/internal/scerr"

// Error sentinels re-exported from the internal error taxonomy so
// callers can use errors.Is against a single stable package surface
//.
var (
	ErrUnknownState      = scerr.ErrUnknownState
	ErrUnknownEvent      = scerr.ErrUnknownEvent
	ErrInvalidInitial    = scerr.ErrInvalidInitial
	ErrGuardFailed       = scerr.ErrGuardFailed
	ErrUnresolvedDelay   = scerr.ErrUnresolvedDelay
	ErrUnknownActionRef  = scerr.ErrUnknownActionRef
	ErrUnknownGuardRef   = scerr.ErrUnknownGuardRef
	ErrUnknownServiceRef = scerr.ErrUnknownServiceRef
	ErrInvalidTarget     = scerr.ErrInvalidTarget
)

// GuardFailure is returned, wrapped, when a registered guard or guard
// evaluator itself returns an error rather than a boolean.
type GuardFailure = scerr.GuardFailure

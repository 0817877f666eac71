package model

// Context is the extended state carried alongside a configuration.
// It is treated as an immutable value: Assign actions receive the
// current Context and return a new one, never mutating in place.
type Context any

// Event is the internal, metadata-wrapped representation of an event
// delivered to the machine. Callers build an Event themselves and pass
// it to Machine.Transition; a bare string or record is not accepted or
// wrapped.
type Event struct {
	Name      string
	Data      any
	Origin    string
	SessionID string
}

// Null is the eventless (NULL) event used for transient transitions
// and the initial macrostep.
const Null = ""

// Wildcard is the reserved event pattern matching any concrete event,
// but never the null event.
const Wildcard = "*"

// Built-in event names.
const (
	EventInit = "xstate.init"
)

// MatchesPattern reports whether pattern (as declared on a TransitionDef)
// matches event name eventName, honoring null/wildcard semantics:
//   - an exact match always matches
//   - the wildcard matches any non-null event, but never the null event
//   - the null pattern matches only the null event
func MatchesPattern(pattern, eventName string) bool {
	if pattern == eventName {
		return true
	}
	if pattern == Wildcard && eventName != Null {
		return true
	}
	return false
}

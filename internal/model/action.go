package model

// ActionKind discriminates the Action tagged union.
type ActionKind int

const (
	ActionSend ActionKind = iota
	ActionRaise
	ActionLog
	ActionAssign
	ActionStart
	ActionStop
	ActionInvoke
	ActionCancel
	ActionPure
	ActionCustom
)

func (k ActionKind) String() string {
	switch k {
	case ActionSend:
		return "send"
	case ActionRaise:
		return "raise"
	case ActionLog:
		return "log"
	case ActionAssign:
		return "assign"
	case ActionStart:
		return "start"
	case ActionStop:
		return "stop"
	case ActionInvoke:
		return "invoke"
	case ActionCancel:
		return "cancel"
	case ActionPure:
		return "pure"
	case ActionCustom:
		return "custom"
	default:
		return "unknown"
	}
}

// AssignFn folds the pre-transition context and event into the next
// context. Must be pure: no observable side effects, same inputs
// produce the same output.
type AssignFn func(ctx Context, ev Event) Context

// PureFn computes a list of further actions given the pre-transition
// context and event. Expansion is not recursive: actions returned by a
// PureFn are spliced into the action list as-is.
type PureFn func(ctx Context, ev Event) []Action

// CustomExec is the optional inline implementation for a Custom action;
// when nil the action is resolved by symbolic Type through the
// machine's action options table at run time.
type CustomExec func(ctx Context, ev Event)

// Action is a single tagged-union action node. Only the fields relevant
// to Kind are populated; others are zero.
type Action struct {
	Kind ActionKind

	// Send / Cancel
	SendEvent string
	SendDelay string // symbolic delay name or a duration literal, resolved via DelayRef
	SendID    string // id used to correlate a later Cancel

	// Raise
	RaiseEvent string

	// Log
	LogLabel string
	LogExpr  func(ctx Context, ev Event) any

	// Assign
	Assign AssignFn

	// Start / Stop activity, Invoke
	ActivityID string
	InvokeSrc  string

	// Pure
	Pure PureFn

	// Custom
	CustomType string
	CustomExec CustomExec
}

// Send builds a Send action targeting a (possibly delayed) internal
// event. delay is a symbolic name resolved through the machine's delay
// options table; an empty delay sends immediately.
func Send(event, delay, sendID string) Action {
	return Action{Kind: ActionSend, SendEvent: event, SendDelay: delay, SendID: sendID}
}

// Cancel builds a Cancel action for a previously scheduled Send.
func Cancel(sendID string) Action {
	return Action{Kind: ActionCancel, SendID: sendID}
}

// Raise builds a Raise action enqueuing an internal event.
func Raise(event string) Action {
	return Action{Kind: ActionRaise, RaiseEvent: event}
}

// Assign builds an Assign action from a pure fold function.
func AssignAction(fn AssignFn) Action {
	return Action{Kind: ActionAssign, Assign: fn}
}

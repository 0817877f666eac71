// Package step implements the Step Engine: the
// run-to-completion macrostep loop that drains eventless (NULL-event)
// transitions and the internal event queue produced by Raise actions
// and done events, starting from one external event, until the
// configuration is stable.
package step

import (
	"strings"

	"github.com/arborio/statecraft/internal/configalg"
	"github.com/arborio/statecraft/internal/history"
	"github.com/arborio/statecraft/internal/model"
	"github.com/arborio/statecraft/internal/resolve"
	"github.com/arborio/statecraft/internal/scerr"
	"github.com/arborio/statecraft/internal/selector"
)

// Options bundles the selector's hook into the machine's registered
// guard implementations.
type Options struct {
	GuardResolver selector.GuardResolver
}

// State is the minimal machine state a macrostep operates over.
type State struct {
	Config     *configalg.Configuration
	Context    model.Context
	Activities map[string]bool // activity id -> running, folded from Start/Stop actions
}

// Outcome is the result of one full run-to-completion macrostep.
type Outcome struct {
	State       State
	Value       *model.StateValue
	Event       model.Event // the external event that triggered this macrostep
	Actions     []model.Action
	Transitions []*model.TransitionDef // every transition fired across all microsteps, in firing order
	Changed     bool                   // whether any microstep actually fired
}

// FoldActivities applies every Start/Stop action in actions to cur,
// returning an independent map: Start marks the action's ActivityID
// running, Stop marks it stopped. cur is never mutated in place.
func FoldActivities(cur map[string]bool, actions []model.Action) map[string]bool {
	out := make(map[string]bool, len(cur))
	for k, v := range cur {
		out[k] = v
	}
	for _, a := range actions {
		switch a.Kind {
		case model.ActionStart:
			out[a.ActivityID] = true
		case model.ActionStop:
			out[a.ActivityID] = false
		}
	}
	return out
}

// RunToCompletion feeds external into the internal FIFO and repeatedly
// selects and resolves microsteps — eventless transitions first, then
// the next queued internal event — until no transition is enabled and
// the queue is empty.
func RunToCompletion(def *model.Definition, cur State, external model.Event, hist *history.Store, opts Options) (*Outcome, error) {
	if err := requireKnownEvent(def, external); err != nil {
		return nil, err
	}

	queue := []model.Event{external}
	cfg := cur.Config
	ctx := cur.Context
	activities := FoldActivities(cur.Activities, nil)
	var actions []model.Action
	var transitions []*model.TransitionDef
	changed := false

	for {
		nullEvent := model.Event{Name: model.Null}
		ts, err := selectFor(def, cfg, ctx, nullEvent, opts.GuardResolver)
		if err != nil {
			return nil, err
		}
		ev := nullEvent
		if len(ts) == 0 {
			if len(queue) == 0 {
				break
			}
			ev = queue[0]
			queue = queue[1:]
			ts, err = selectFor(def, cfg, ctx, ev, opts.GuardResolver)
			if err != nil {
				return nil, err
			}
			if len(ts) == 0 {
				continue
			}
		}

		res := resolve.Microstep(def, cfg, ctx, ev, ts, hist)
		cfg = res.Config
		ctx = res.Context
		actions = append(actions, res.Actions...)
		transitions = append(transitions, res.Transitions...)
		activities = FoldActivities(activities, res.Actions)
		queue = append(queue, res.Internal...)
		changed = true
	}

	return &Outcome{
		State:       State{Config: cfg, Context: ctx, Activities: activities},
		Value:       configalg.ValueOf(cfg, def.Root),
		Event:       external,
		Actions:     actions,
		Transitions: transitions,
		Changed:     changed,
	}, nil
}

func selectFor(def *model.Definition, cfg *configalg.Configuration, ctx model.Context, ev model.Event, gr selector.GuardResolver) ([]*model.TransitionDef, error) {
	return selector.SelectMicrostep(selector.Input{
		Def:           def,
		Config:        cfg,
		Value:         configalg.ValueOf(cfg, def.Root),
		Context:       ctx,
		Event:         ev,
		GuardResolver: gr,
	})
}

// builtinEventPrefixes lists the event names the engine itself produces,
// which strict mode accepts without their being declared.
var builtinEventPrefixes = []string{model.EventInit, "xstate.after(", "done.state.", "done.invoke.", "error.platform."}

// requireKnownEvent enforces strict mode's declared-event check: an event name absent from the definition's declared set is
// rejected outright rather than silently producing a no-op macrostep.
// NULL and wildcard events and built-in event names are never subject
// to this check.
func requireKnownEvent(def *model.Definition, ev model.Event) error {
	if !def.Strict || len(def.Events) == 0 {
		return nil
	}
	if ev.Name == model.Null || ev.Name == model.Wildcard {
		return nil
	}
	if _, ok := def.Events[ev.Name]; ok {
		return nil
	}
	for _, prefix := range builtinEventPrefixes {
		if strings.HasPrefix(ev.Name, prefix) {
			return nil
		}
	}
	return scerr.Wrapf(scerr.ErrUnknownEvent, "event %q", ev.Name)
}

package step_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/arborio/statecraft/internal/configalg"
	"github.com/arborio/statecraft/internal/history"
	"github.com/arborio/statecraft/internal/model"
	"github.com/arborio/statecraft/internal/step"
)

func buildTrafficLight(t *testing.T, strict bool) *model.Definition {
	t.Helper()
	root := model.NewRoot("light", model.Compound)
	root.Initial = "red"
	red := model.AddChild(root, "red", model.Atomic)
	green := model.AddChild(root, "green", model.Atomic)
	yellow := model.AddChild(root, "yellow", model.Atomic)

	red.Transitions = append(red.Transitions, &model.TransitionDef{EventPattern: "TIMER", Targets: []*model.StateNode{green}})
	green.Transitions = append(green.Transitions, &model.TransitionDef{EventPattern: "TIMER", Targets: []*model.StateNode{yellow}})
	yellow.Transitions = append(yellow.Transitions, &model.TransitionDef{EventPattern: "TIMER", Targets: []*model.StateNode{red}})

	var declared map[string]struct{}
	if strict {
		declared = map[string]struct{}{"TIMER": {}}
	}
	def, err := model.Finalize(root, ".", strict, declared)
	require.NoError(t, err)
	return def
}

func initialState(t *testing.T, def *model.Definition) step.State {
	t.Helper()
	cfg, _ := configalg.InitialConfiguration(def, nil)
	return step.State{Config: cfg, Context: nil}
}

func TestRunToCompletion_AdvancesOnMatchingEvent(t *testing.T) {
	def := buildTrafficLight(t, false)
	cur := initialState(t, def)

	out, err := step.RunToCompletion(def, cur, model.Event{Name: "TIMER"}, history.NewStore(def), step.Options{})
	require.NoError(t, err)
	require.True(t, out.Changed)
	require.Equal(t, []string{"green"}, out.Value.ToStrings("."))
}

func TestRunToCompletion_NoMatchingEventIsNoop(t *testing.T) {
	def := buildTrafficLight(t, false)
	cur := initialState(t, def)

	out, err := step.RunToCompletion(def, cur, model.Event{Name: "UNRELATED"}, history.NewStore(def), step.Options{})
	require.NoError(t, err)
	require.False(t, out.Changed)
	require.Equal(t, []string{"red"}, out.Value.ToStrings("."))
}

func TestRunToCompletion_StrictModeRejectsUndeclaredEvent(t *testing.T) {
	def := buildTrafficLight(t, true)
	cur := initialState(t, def)

	_, err := step.RunToCompletion(def, cur, model.Event{Name: "BOGUS"}, history.NewStore(def), step.Options{})
	require.Error(t, err)
}

func TestRunToCompletion_EventlessTransitionDrainsBeforeQueueIsEmpty(t *testing.T) {
	root := model.NewRoot("machine", model.Compound)
	root.Initial = "a"
	a := model.AddChild(root, "a", model.Atomic)
	b := model.AddChild(root, "b", model.Atomic)
	c := model.AddChild(root, "c", model.Atomic)

	a.Transitions = append(a.Transitions, &model.TransitionDef{EventPattern: "GO", Targets: []*model.StateNode{b}})
	b.Transitions = append(b.Transitions, &model.TransitionDef{EventPattern: model.Null, Targets: []*model.StateNode{c}})

	def, err := model.Finalize(root, ".", false, nil)
	require.NoError(t, err)
	cur := initialState(t, def)

	out, err := step.RunToCompletion(def, cur, model.Event{Name: "GO"}, history.NewStore(def), step.Options{})
	require.NoError(t, err)
	require.Equal(t, []string{"c"}, out.Value.ToStrings("."))
}

func TestRunToCompletion_GuardGatesTransition(t *testing.T) {
	root := model.NewRoot("machine", model.Compound)
	root.Initial = "a"
	a := model.AddChild(root, "a", model.Atomic)
	b := model.AddChild(root, "b", model.Atomic)

	allow := false
	a.Transitions = append(a.Transitions, &model.TransitionDef{
		EventPattern: "GO",
		Targets:      []*model.StateNode{b},
		Guard: model.Guard{
			Kind: model.GuardPredicate,
			Predicate: func(ctx model.Context, eventData any, meta model.GuardMeta) bool {
				return allow
			},
		},
	})

	def, err := model.Finalize(root, ".", false, nil)
	require.NoError(t, err)
	cur := initialState(t, def)

	out, err := step.RunToCompletion(def, cur, model.Event{Name: "GO"}, history.NewStore(def), step.Options{})
	require.NoError(t, err)
	require.False(t, out.Changed)

	allow = true
	out, err = step.RunToCompletion(def, cur, model.Event{Name: "GO"}, history.NewStore(def), step.Options{})
	require.NoError(t, err)
	require.True(t, out.Changed)
	require.Equal(t, []string{"b"}, out.Value.ToStrings("."))
}

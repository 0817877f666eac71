package statecraft_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/arborio/statecraft"
	"github.com/arborio/statecraft/internal/model"
)

func buildTrafficLight(t *testing.T) *model.Definition {
	t.Helper()
	b := statecraft.NewBuilder("light")
	root := b.Root()
	root.Initial("red")
	root.Atomic("red").On("TIMER", []string{"light.green"})
	root.Atomic("green").On("TIMER", []string{"light.yellow"})
	root.Atomic("yellow").On("TIMER", []string{"light.red"})

	def, err := b.Build()
	require.NoError(t, err)
	return def
}

func TestBuilder_DotPathTargetResolvesNestedState(t *testing.T) {
	b := statecraft.NewBuilder("app")
	root := b.Root()
	root.Initial("home")
	home := root.Compound("home")
	home.Initial("list")
	home.Atomic("list").On("OPEN", []string{"app.home.detail"})
	home.Atomic("detail")

	def, err := b.Build()
	require.NoError(t, err)
	n, err := def.NodeByID("app.home.detail")
	require.NoError(t, err)
	require.NotNil(t, n)
}

func TestBuilder_UnknownTransitionTargetErrors(t *testing.T) {
	b := statecraft.NewBuilder("app")
	root := b.Root()
	root.Initial("a")
	root.Atomic("a").On("GO", []string{"app.nonexistent"})

	_, err := b.Build()
	require.Error(t, err)
}

func TestMachine_InitialStateAndTransition(t *testing.T) {
	def := buildTrafficLight(t)
	m := statecraft.NewMachine("light-1", def)

	state, err := m.InitialState(context.Background())
	require.NoError(t, err)
	require.Equal(t, []string{"red"}, state.ToStrings())
	require.True(t, state.Can("TIMER"))
	require.False(t, state.Can("BOGUS"))

	state, err = m.Transition(context.Background(), model.Event{Name: "TIMER"})
	require.NoError(t, err)
	require.Equal(t, []string{"green"}, state.ToStrings())
	require.True(t, state.Matches("green"))
}

func TestMachine_StrictModeRejectsUndeclaredEvent(t *testing.T) {
	b := statecraft.NewBuilder("light").WithStrict("TIMER")
	root := b.Root()
	root.Initial("red")
	root.Atomic("red").On("TIMER", []string{"light.green"})
	root.Atomic("green")

	def, err := b.Build()
	require.NoError(t, err)
	m := statecraft.NewMachine("light-1", def)
	_, err = m.InitialState(context.Background())
	require.NoError(t, err)

	_, err = m.Transition(context.Background(), model.Event{Name: "UNKNOWN"})
	require.Error(t, err)
}

func TestMachine_NamedGuardGatesTransition(t *testing.T) {
	b := statecraft.NewBuilder("door")
	root := b.Root()
	root.Initial("closed")
	root.Atomic("closed").On("OPEN", []string{"door.open"}, statecraft.WithNamedGuard("isUnlocked", nil))
	root.Atomic("open")

	def, err := b.Build()
	require.NoError(t, err)

	locked := true
	m := statecraft.NewMachine("door-1", def, statecraft.WithGuards(map[string]statecraft.GuardFn{
		"isUnlocked": func(ctx model.Context, eventData any, meta model.GuardMeta) (bool, error) {
			return !locked, nil
		},
	}))

	_, err = m.InitialState(context.Background())
	require.NoError(t, err)

	state, err := m.Transition(context.Background(), model.Event{Name: "OPEN"})
	require.NoError(t, err)
	require.Equal(t, []string{"closed"}, state.ToStrings())

	locked = false
	state, err = m.Transition(context.Background(), model.Event{Name: "OPEN"})
	require.NoError(t, err)
	require.Equal(t, []string{"open"}, state.ToStrings())
}

func TestMachine_ParallelRegionDoneCascadesToAncestorTransition(t *testing.T) {
	b := statecraft.NewBuilder("traffic")
	root := b.Root()
	root.Initial("red")
	red := root.Compound("red")
	red.Initial("crossing")
	crossing := red.Parallel("crossing")
	left := crossing.Compound("left")
	left.Initial("walk")
	left.Atomic("walk").On("DONE", []string{"traffic.red.crossing.left.done"})
	left.Final("done")

	right := crossing.Compound("right")
	right.Initial("done")
	right.Final("done")

	red.On("done.state.traffic.red.crossing", nil, statecraft.WithActions(model.Raise("ADVANCE")))
	red.On("ADVANCE", []string{"traffic.green"})
	root.Atomic("green")

	def, err := b.Build()
	require.NoError(t, err)
	m := statecraft.NewMachine("traffic-1", def)

	_, err = m.InitialState(context.Background())
	require.NoError(t, err)

	state, err := m.Transition(context.Background(), model.Event{Name: "DONE"})
	require.NoError(t, err)
	require.Equal(t, []string{"green"}, state.ToStrings())
}

func TestMachine_SnapshotRoundTrip(t *testing.T) {
	def := buildTrafficLight(t)
	m := statecraft.NewMachine("light-1", def)
	_, err := m.InitialState(context.Background())
	require.NoError(t, err)
	_, err = m.Transition(context.Background(), model.Event{Name: "TIMER"})
	require.NoError(t, err)

	snap := m.Snapshot()
	require.Equal(t, "light-1", snap.MachineID)
	require.Contains(t, snap.Active, "light.green")

	m2 := statecraft.NewMachine("light-1", def)
	require.NoError(t, m2.Restore(snap))
	require.Equal(t, []string{"green"}, m2.Current().ToStrings())
}

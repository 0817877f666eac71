package selector_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/arborio/statecraft/internal/configalg"
	"github.com/arborio/statecraft/internal/model"
	"github.com/arborio/statecraft/internal/selector"
)

func TestSelectMicrostep_InnerStatePreemptsOuterOnSameEvent(t *testing.T) {
	root := model.NewRoot("root", model.Compound)
	root.Initial = "on"
	on := model.AddChild(root, "on", model.Compound)
	on.Initial = "inner"
	inner := model.AddChild(on, "inner", model.Atomic)
	outerTarget := model.AddChild(root, "off", model.Atomic)
	innerTarget := model.AddChild(on, "otherInner", model.Atomic)

	on.Transitions = append(on.Transitions, &model.TransitionDef{EventPattern: "X", Targets: []*model.StateNode{outerTarget}})
	inner.Transitions = append(inner.Transitions, &model.TransitionDef{EventPattern: "X", Targets: []*model.StateNode{innerTarget}})

	def, err := model.Finalize(root, ".", false, nil)
	require.NoError(t, err)
	cfg, _ := configalg.InitialConfiguration(def, nil)

	selected, err := selector.SelectMicrostep(selector.Input{
		Def: def, Config: cfg, Value: configalg.ValueOf(cfg, def.Root),
		Event: model.Event{Name: "X"},
	})
	require.NoError(t, err)
	require.Len(t, selected, 1)
	require.Same(t, inner.Transitions[0], selected[0])
}

func TestSelectMicrostep_NamedGuardUsesResolver(t *testing.T) {
	root := model.NewRoot("root", model.Compound)
	root.Initial = "a"
	a := model.AddChild(root, "a", model.Atomic)
	b := model.AddChild(root, "b", model.Atomic)
	a.Transitions = append(a.Transitions, &model.TransitionDef{
		EventPattern: "GO",
		Targets:      []*model.StateNode{b},
		Guard:        model.Guard{Kind: model.GuardNamed, Type: "isReady"},
	})

	def, err := model.Finalize(root, ".", false, nil)
	require.NoError(t, err)
	cfg, _ := configalg.InitialConfiguration(def, nil)

	calls := 0
	resolver := func(g model.Guard, ctx model.Context, eventData any, meta model.GuardMeta) (bool, error) {
		calls++
		return g.Type == "isReady", nil
	}

	selected, err := selector.SelectMicrostep(selector.Input{
		Def: def, Config: cfg, Value: configalg.ValueOf(cfg, def.Root),
		Event: model.Event{Name: "GO"}, GuardResolver: resolver,
	})
	require.NoError(t, err)
	require.Len(t, selected, 1)
	require.Equal(t, 1, calls)
}

func TestSelectMicrostep_NamedGuardWithoutResolverErrors(t *testing.T) {
	root := model.NewRoot("root", model.Compound)
	root.Initial = "a"
	a := model.AddChild(root, "a", model.Atomic)
	b := model.AddChild(root, "b", model.Atomic)
	a.Transitions = append(a.Transitions, &model.TransitionDef{
		EventPattern: "GO",
		Targets:      []*model.StateNode{b},
		Guard:        model.Guard{Kind: model.GuardNamed, Type: "isReady"},
	})

	def, err := model.Finalize(root, ".", false, nil)
	require.NoError(t, err)
	cfg, _ := configalg.InitialConfiguration(def, nil)

	_, err = selector.SelectMicrostep(selector.Input{
		Def: def, Config: cfg, Value: configalg.ValueOf(cfg, def.Root),
		Event: model.Event{Name: "GO"},
	})
	require.Error(t, err)
}

func TestSelectMicrostep_CrossRegionConflictKeepsLowerOrderSource(t *testing.T) {
	root := model.NewRoot("root", model.Compound)
	root.Initial = "active"
	active := model.AddChild(root, "active", model.Parallel)

	left := model.AddChild(active, "left", model.Compound)
	left.Initial = "l1"
	l1 := model.AddChild(left, "l1", model.Atomic)
	outside := model.AddChild(root, "outside", model.Atomic)

	right := model.AddChild(active, "right", model.Compound)
	right.Initial = "r1"
	r1 := model.AddChild(right, "r1", model.Atomic)
	r2 := model.AddChild(right, "r2", model.Atomic)

	// left's transition exits the whole parallel region (conflicts with right's).
	l1.Transitions = append(l1.Transitions, &model.TransitionDef{EventPattern: "X", Targets: []*model.StateNode{outside}})
	// right's transition only exits r1, but left's root-level exit set covers every
	// active node under root, r1 included, so the two exit sets overlap.
	r1.Transitions = append(r1.Transitions, &model.TransitionDef{EventPattern: "X", Targets: []*model.StateNode{r2}})

	def, err := model.Finalize(root, ".", false, nil)
	require.NoError(t, err)
	cfg, _ := configalg.InitialConfiguration(def, nil)

	selected, err := selector.SelectMicrostep(selector.Input{
		Def: def, Config: cfg, Value: configalg.ValueOf(cfg, def.Root),
		Event: model.Event{Name: "X"},
	})
	require.NoError(t, err)
	// l1's transition has the lower source Order (left registered before right)
	// and wins; right's conflicting transition is discarded.
	require.Len(t, selected, 1)
	require.Same(t, l1.Transitions[0], selected[0])
}

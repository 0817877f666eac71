package configalg_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/arborio/statecraft/internal/configalg"
	"github.com/arborio/statecraft/internal/model"
)

// buildParallelDef builds:
//
//	root (compound, initial=active)
//	  active (parallel)
//	    left (compound, initial=a1)  -> a1, a2
//	    right (compound, initial=b1) -> b1, b2
//	  done (final)
func buildParallelDef(t *testing.T) (*model.Definition, map[string]*model.StateNode) {
	t.Helper()
	root := model.NewRoot("root", model.Compound)
	root.Initial = "active"

	active := model.AddChild(root, "active", model.Parallel)
	model.AddChild(root, "done", model.Final)

	left := model.AddChild(active, "left", model.Compound)
	left.Initial = "a1"
	a1 := model.AddChild(left, "a1", model.Atomic)
	a2 := model.AddChild(left, "a2", model.Atomic)

	right := model.AddChild(active, "right", model.Compound)
	right.Initial = "b1"
	b1 := model.AddChild(right, "b1", model.Atomic)
	b2 := model.AddChild(right, "b2", model.Atomic)

	def, err := model.Finalize(root, ".", false, nil)
	require.NoError(t, err)

	nodes := map[string]*model.StateNode{
		"root": def.ByID["root"], "active": def.ByID["root.active"],
		"left": def.ByID["root.active.left"], "a1": def.ByID["root.active.left.a1"], "a2": def.ByID["root.active.left.a2"],
		"right": def.ByID["root.active.right"], "b1": def.ByID["root.active.right.b1"], "b2": def.ByID["root.active.right.b2"],
		"done": def.ByID["root.done"],
	}
	for k, n := range nodes {
		require.NotNilf(t, n, "missing node %q", k)
	}
	return def, nodes
}

func TestAncestors_RootFirst(t *testing.T) {
	_, n := buildParallelDef(t)
	anc := configalg.Ancestors(n["a1"])
	require.Equal(t, []*model.StateNode{n["root"], n["active"], n["left"]}, anc)
}

func TestLCCA_AcrossParallelRegions(t *testing.T) {
	_, n := buildParallelDef(t)
	lcca := configalg.LCCA(n["root"], []*model.StateNode{n["a1"], n["b1"]})
	require.Same(t, n["root"], lcca)
}

func TestLCCA_SameRegion(t *testing.T) {
	_, n := buildParallelDef(t)
	lcca := configalg.LCCA(n["root"], []*model.StateNode{n["a1"], n["a2"]})
	require.Same(t, n["left"], lcca)
}

func TestInitialDescendants_ParallelEntersBothRegions(t *testing.T) {
	_, n := buildParallelDef(t)
	desc := configalg.InitialDescendants(n["active"], nil)
	require.ElementsMatch(t, []*model.StateNode{n["left"], n["a1"], n["right"], n["b1"]}, desc)
}

func TestGetConfiguration_ExpandsAncestorsAndInitial(t *testing.T) {
	def, n := buildParallelDef(t)
	cfg := configalg.GetConfiguration(def, []*model.StateNode{n["active"]}, nil)
	require.True(t, cfg.Has(n["root"]))
	require.True(t, cfg.Has(n["active"]))
	require.True(t, cfg.Has(n["left"]))
	require.True(t, cfg.Has(n["a1"]))
	require.True(t, cfg.Has(n["right"]))
	require.True(t, cfg.Has(n["b1"]))
	require.False(t, cfg.Has(n["a2"]))
}

func TestIsInFinalState_ParallelRequiresAllRegions(t *testing.T) {
	root := model.NewRoot("root", model.Parallel)
	left := model.AddChild(root, "left", model.Compound)
	left.Initial = "a1"
	a1 := model.AddChild(left, "a1", model.Atomic)
	aDone := model.AddChild(left, "a-done", model.Final)

	right := model.AddChild(root, "right", model.Compound)
	right.Initial = "b1"
	b1 := model.AddChild(right, "b1", model.Atomic)
	bDone := model.AddChild(right, "b-done", model.Final)

	def, err := model.Finalize(root, ".", false, nil)
	require.NoError(t, err)

	cfg := configalg.NewConfiguration(def)
	cfg.Add(root)
	cfg.Add(left)
	cfg.Add(a1)
	cfg.Add(right)
	cfg.Add(b1)
	require.False(t, configalg.IsInFinalState(cfg, root))

	cfg.Remove(a1)
	cfg.Add(aDone)
	require.False(t, configalg.IsInFinalState(cfg, root), "only one region final")

	cfg.Remove(b1)
	cfg.Add(bDone)
	require.True(t, configalg.IsInFinalState(cfg, root), "both regions final")
}

func TestInitialConfiguration_EntersRootAndInitialChild(t *testing.T) {
	def, n := buildParallelDef(t)
	cfg, entrySet := configalg.InitialConfiguration(def, nil)
	require.True(t, cfg.Has(n["root"]))
	require.True(t, cfg.Has(n["active"]))
	require.True(t, cfg.Has(n["a1"]))
	require.True(t, cfg.Has(n["b1"]))
	require.Equal(t, n["root"], entrySet[0])
}

func TestValueOf_ParallelProducesMapOfRegionValues(t *testing.T) {
	def, n := buildParallelDef(t)
	cfg, _ := configalg.InitialConfiguration(def, nil)
	val := configalg.ValueOf(cfg, n["active"])
	require.False(t, val.IsLeaf())

	strs := val.ToStrings(".")
	require.Contains(t, strs, "left.a1")
	require.Contains(t, strs, "right.b1")
}

func TestValueOf_CompoundAtomicChildCollapsesToLeaf(t *testing.T) {
	def, n := buildParallelDef(t)
	cfg, _ := configalg.InitialConfiguration(def, nil)
	val := configalg.ValueOf(cfg, n["left"])
	require.True(t, val.IsLeaf())
	require.Equal(t, []string{"a1"}, val.ToStrings("."))
}

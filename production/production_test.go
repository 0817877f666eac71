package production_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/arborio/statecraft"
	"github.com/arborio/statecraft/internal/model"
	"github.com/arborio/statecraft/production"
)

func sampleSnapshot(id string) statecraft.Snapshot {
	return statecraft.Snapshot{
		MachineID: id,
		Active:    []string{"light.green"},
		Context:   map[string]any{"cycles": float64(3)},
		Timestamp: time.Unix(1700000000, 0).UTC(),
	}
}

func TestJSONPersister_SaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	p, err := production.NewJSONPersister(dir)
	require.NoError(t, err)

	snap := sampleSnapshot("light-1")
	require.NoError(t, p.Save(context.Background(), snap))

	loaded, err := p.Load(context.Background(), "light-1")
	require.NoError(t, err)
	require.Equal(t, snap.Active, loaded.Active)
	require.Equal(t, snap.MachineID, loaded.MachineID)
}

func TestJSONPersister_LoadMissingMachineErrors(t *testing.T) {
	dir := t.TempDir()
	p, err := production.NewJSONPersister(dir)
	require.NoError(t, err)

	_, err = p.Load(context.Background(), "nonexistent")
	require.Error(t, err)
}

func TestYAMLPersister_SaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	p, err := production.NewYAMLPersister(dir)
	require.NoError(t, err)

	snap := sampleSnapshot("light-1")
	require.NoError(t, p.Save(context.Background(), snap))

	loaded, err := p.Load(context.Background(), "light-1")
	require.NoError(t, err)
	require.Equal(t, snap.Active, loaded.Active)
}

func TestChannelPublisher_DeliversAndDropsOnFullChannel(t *testing.T) {
	ch := make(chan production.PublishedEvent, 1)
	pub := production.NewChannelPublisher(ch)

	require.NoError(t, pub.Publish(context.Background(), model.Event{Name: "A"}, statecraft.Metadata{MachineID: "m"}))
	// channel now full; a second publish must not block.
	done := make(chan struct{})
	go func() {
		_ = pub.Publish(context.Background(), model.Event{Name: "B"}, statecraft.Metadata{MachineID: "m"})
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Publish blocked on a full channel")
	}

	got := <-ch
	require.Equal(t, "A", got.Event.Name)
}

func TestMemoryRegistry_VersioningAndListing(t *testing.T) {
	r := production.NewMemoryRegistry()
	ctx := context.Background()

	require.NoError(t, r.Register(ctx, "light-1", sampleSnapshot("light-1")))
	second := sampleSnapshot("light-1")
	second.Active = []string{"light.red"}
	require.NoError(t, r.Register(ctx, "light-1", second))

	latest, err := r.Latest(ctx, "light-1")
	require.NoError(t, err)
	require.Equal(t, []string{"light.red"}, latest.Active)

	versions, err := r.ListVersions(ctx, "light-1")
	require.NoError(t, err)
	require.Equal(t, []string{"v2", "v1"}, versions)

	v1, err := r.Version(ctx, "light-1", "v1")
	require.NoError(t, err)
	require.Equal(t, []string{"light.green"}, v1.Active)

	machines, err := r.ListMachines(ctx)
	require.NoError(t, err)
	require.Equal(t, []string{"light-1"}, machines)
}

func TestDefaultVisualizer_ExportDOTAndJSON(t *testing.T) {
	b := statecraft.NewBuilder("light")
	root := b.Root()
	root.Initial("red")
	root.Atomic("red").On("TIMER", []string{"light.green"})
	root.Atomic("green")

	def, err := b.Build()
	require.NoError(t, err)

	m := statecraft.NewMachine("light-1", def)
	_, err = m.InitialState(context.Background())
	require.NoError(t, err)

	v := &production.DefaultVisualizer{}
	dot := m.Visualize()
	require.Empty(t, dot, "no visualizer configured on m yet")

	m2 := statecraft.NewMachine("light-2", def, statecraft.WithVisualizer(v))
	_, err = m2.InitialState(context.Background())
	require.NoError(t, err)
	dot2 := m2.Visualize()
	require.Contains(t, dot2, "digraph Statechart")
	require.Contains(t, dot2, "light.red")

	out, err := v.ExportJSON(def)
	require.NoError(t, err)
	require.Contains(t, string(out), `"id": "light.red"`)
}

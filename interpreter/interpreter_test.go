package interpreter_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/arborio/statecraft"
	"github.com/arborio/statecraft/interpreter"
	"github.com/arborio/statecraft/internal/model"
)

func buildBulbDef(t *testing.T) *model.Definition {
	t.Helper()
	b := statecraft.NewBuilder("bulb")
	root := b.Root()
	root.Initial("on")
	root.Atomic("on").After("onTime", []string{"bulb.off"})
	root.Atomic("off")

	def, err := b.Build()
	require.NoError(t, err)
	return def
}

func TestInterpreter_AfterDelayFiresTransition(t *testing.T) {
	def := buildBulbDef(t)
	ip := interpreter.New(nil, nil)
	m := statecraft.NewMachine("bulb-1", def,
		statecraft.WithActionRunner(ip),
		statecraft.WithDelays(map[string]time.Duration{"onTime": 20 * time.Millisecond}),
	)
	ip.Attach(m)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	state, err := ip.Start(ctx)
	require.NoError(t, err)
	require.Equal(t, []string{"on"}, state.ToStrings())

	require.Eventually(t, func() bool {
		return m.Current().ToStrings()[0] == "off"
	}, time.Second, 5*time.Millisecond)

	require.NoError(t, ip.Stop())
}

func TestInterpreter_CancelStopsScheduledSend(t *testing.T) {
	b := statecraft.NewBuilder("machine")
	root := b.Root()
	root.Initial("waiting")
	root.Atomic("waiting").After("longDelay", []string{"machine.timedOut"}).On("CANCEL", []string{"machine.cancelled"})
	root.Atomic("timedOut")
	root.Atomic("cancelled")

	def, err := b.Build()
	require.NoError(t, err)

	ip := interpreter.New(nil, nil)
	m := statecraft.NewMachine("m-1", def,
		statecraft.WithActionRunner(ip),
		statecraft.WithDelays(map[string]time.Duration{"longDelay": time.Hour}),
	)
	ip.Attach(m)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	_, err = ip.Start(ctx)
	require.NoError(t, err)

	ip.Send(model.Event{Name: "CANCEL"})
	require.Eventually(t, func() bool {
		return m.Current().ToStrings()[0] == "cancelled"
	}, time.Second, 5*time.Millisecond)

	require.NoError(t, ip.Stop())
}

func TestInterpreter_ActivityErrorSurfacesOnErrsChannel(t *testing.T) {
	b := statecraft.NewBuilder("machine")
	root := b.Root()
	root.Initial("running")
	root.Atomic("running").Entry(model.Action{Kind: model.ActionStart, ActivityID: "failer"})

	def, err := b.Build()
	require.NoError(t, err)

	boom := errors.New("activity failed")
	activities := map[string]interpreter.Activity{
		"failer": func(ctx context.Context) error { return boom },
	}
	ip := interpreter.New(nil, activities)
	m := statecraft.NewMachine("m-1", def, statecraft.WithActionRunner(ip))
	ip.Attach(m)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	_, err = ip.Start(ctx)
	require.NoError(t, err)

	select {
	case got := <-ip.Errs():
		require.ErrorIs(t, got, boom)
	case <-time.After(time.Second):
		t.Fatal("expected activity error on Errs()")
	}
	require.NoError(t, ip.Stop())
}

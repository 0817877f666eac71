// Package interpreter is the external collaborator the core
// deliberately stays agnostic of: it owns real wall-clock
// timers for Send/Cancel actions, an event queue so Transition calls
// stay serialized even under concurrent Send, and errgroup-supervised
// invoked activities — all the things a synchronous, pure
// Transition(state, event) → state' core cannot own itself.
package interpreter

import (
	"context"
	"log"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/arborio/statecraft"
	"github.com/arborio/statecraft/internal/model"
	"github.com/arborio/statecraft/internal/scerr"
)

// Activity is a long-running invoked service. It runs until ctx is
// canceled (by a Stop action or interpreter shutdown); its error, if
// any, is sent on the Errs channel (and dropped when that channel is
// full). No error.platform.<id> event is raised for it.
type Activity func(ctx context.Context) error

// Interpreter drives a statecraft.Machine: it registers itself as the
// Machine's ActionRunner so Send/Cancel/Start/Stop/Invoke actions flow
// back here instead of being silently dropped.
type Interpreter struct {
	machine *statecraft.Machine

	mu     sync.Mutex
	timers map[string]*time.Timer

	activities map[string]Activity
	cancels    map[string]context.CancelFunc
	group      *errgroup.Group
	groupCtx   context.Context

	events chan model.Event
	errs   chan error
	done   chan struct{}
}

// New builds an Interpreter over machine. It does not register itself
// with the machine: callers pass the returned Interpreter to
// statecraft.WithActionRunner when building the Machine and then bind
// the two with Attach, e.g.:
//
//	ip := interpreter.New(nil, activities)
//	m := statecraft.NewMachine(id, def, statecraft.WithActionRunner(ip))
//	ip.Attach(m)
func New(machine *statecraft.Machine, activities map[string]Activity) *Interpreter {
	if activities == nil {
		activities = map[string]Activity{}
	}
	return &Interpreter{
		machine:    machine,
		timers:     make(map[string]*time.Timer),
		activities: activities,
		cancels:    make(map[string]context.CancelFunc),
		events:     make(chan model.Event, 256),
		errs:       make(chan error, 16),
		done:       make(chan struct{}),
	}
}

// Attach binds the Interpreter to a Machine constructed after New.
func (ip *Interpreter) Attach(m *statecraft.Machine) { ip.machine = m }

// Start enters the machine's initial state and launches the event
// loop that serializes every subsequent Send.
func (ip *Interpreter) Start(ctx context.Context) (*statecraft.State, error) {
	ctx, cancel := context.WithCancel(ctx)
	ip.group, ip.groupCtx = errgroup.WithContext(ctx)

	state, err := ip.machine.InitialState(ctx)
	if err != nil {
		cancel()
		return nil, err
	}
	go ip.loop(ctx, cancel)
	return state, nil
}

// Send enqueues an external event for processing by the loop
// goroutine. It never blocks the caller beyond the channel buffer.
func (ip *Interpreter) Send(ev model.Event) {
	select {
	case ip.events <- ev:
	case <-ip.done:
	}
}

// Errs surfaces activity and timer-send errors the loop could not
// raise as a statechart event.
func (ip *Interpreter) Errs() <-chan error { return ip.errs }

func (ip *Interpreter) loop(ctx context.Context, cancel context.CancelFunc) {
	defer close(ip.done)
	defer cancel()
	for {
		select {
		case ev := <-ip.events:
			if _, err := ip.machine.Transition(ctx, ev); err != nil {
				ip.reportErr(err)
			}
		case <-ctx.Done():
			ip.stopAllTimers()
			return
		}
	}
}

func (ip *Interpreter) reportErr(err error) {
	select {
	case ip.errs <- err:
	default:
	}
}

// Stop cancels every pending timer and invoked activity and waits for
// them to unwind.
func (ip *Interpreter) Stop() error {
	ip.mu.Lock()
	for _, c := range ip.cancels {
		c()
	}
	ip.mu.Unlock()
	ip.stopAllTimers()
	if ip.group != nil {
		return ip.group.Wait()
	}
	return nil
}

// Run implements statecraft.ActionRunner.
func (ip *Interpreter) Run(ctx model.Context, action model.Action, ev model.Event) error {
	switch action.Kind {
	case model.ActionSend:
		return ip.scheduleSend(action)
	case model.ActionCancel:
		ip.cancelSend(action.SendID)
		return nil
	case model.ActionLog:
		label := action.LogLabel
		if action.LogExpr != nil {
			log.Printf("[%s] %v", label, action.LogExpr(ctx, ev))
		} else {
			log.Printf("[%s]", label)
		}
		return nil
	case model.ActionCustom:
		if action.CustomExec != nil {
			action.CustomExec(ctx, ev)
			return nil
		}
		return scerr.Wrapf(scerr.ErrUnknownActionRef, "custom action %q", action.CustomType)
	case model.ActionStart:
		return ip.startActivity(action.ActivityID)
	case model.ActionStop:
		ip.stopActivity(action.ActivityID)
		return nil
	case model.ActionInvoke:
		return ip.startActivity(action.InvokeSrc)
	default:
		return nil
	}
}

func (ip *Interpreter) scheduleSend(action model.Action) error {
	delay, err := ip.resolveDelay(action.SendDelay)
	if err != nil {
		return err
	}
	ev := model.Event{Name: action.SendEvent}
	timer := time.AfterFunc(delay, func() { ip.Send(ev) })

	ip.mu.Lock()
	if action.SendID != "" {
		ip.timers[action.SendID] = timer
	}
	ip.mu.Unlock()
	return nil
}

func (ip *Interpreter) resolveDelay(name string) (time.Duration, error) {
	if name == "" {
		return 0, nil
	}
	if d, ok := ip.machine.Delay(name); ok {
		return d, nil
	}
	if d, err := time.ParseDuration(name); err == nil {
		return d, nil
	}
	return 0, scerr.Wrapf(scerr.ErrUnresolvedDelay, "delay %q", name)
}

func (ip *Interpreter) cancelSend(sendID string) {
	ip.mu.Lock()
	defer ip.mu.Unlock()
	if t, ok := ip.timers[sendID]; ok {
		t.Stop()
		delete(ip.timers, sendID)
	}
}

func (ip *Interpreter) stopAllTimers() {
	ip.mu.Lock()
	defer ip.mu.Unlock()
	for id, t := range ip.timers {
		t.Stop()
		delete(ip.timers, id)
	}
}

func (ip *Interpreter) startActivity(id string) error {
	fn, ok := ip.activities[id]
	if !ok {
		return scerr.Wrapf(scerr.ErrUnknownServiceRef, "activity %q", id)
	}
	actCtx, cancel := context.WithCancel(ip.groupCtx)
	ip.mu.Lock()
	ip.cancels[id] = cancel
	ip.mu.Unlock()
	ip.group.Go(func() error {
		err := fn(actCtx)
		if err != nil {
			ip.reportErr(err)
		}
		return nil
	})
	return nil
}

func (ip *Interpreter) stopActivity(id string) {
	ip.mu.Lock()
	cancel, ok := ip.cancels[id]
	if ok {
		delete(ip.cancels, id)
	}
	ip.mu.Unlock()
	if ok {
		cancel()
	}
}

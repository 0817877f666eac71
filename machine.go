// Package statecraft implements a hierarchical statechart interpreter:
// nested and parallel states, guarded transitions, history
// pseudostates, and run-to-completion event processing, following the
// Core API contract a Machine exposes to its embedders.
package statecraft

import (
	"context"
	"sync"
	"time"

	"github.com/arborio/statecraft/internal/configalg"
	"github.com/arborio/statecraft/internal/history"
	"github.com/arborio/statecraft/internal/model"
	"github.com/arborio/statecraft/internal/scerr"
	"github.com/arborio/statecraft/internal/selector"
	"github.com/arborio/statecraft/internal/step"
)

// ActionRunner executes the emitted, symbolically-typed actions a
// microstep could not resolve inline (Log, Custom, and the advisory
// Send/Cancel/Start/Stop/Invoke actions a caller may also want to
// observe). There is no default runner: a Machine built without
// WithActionRunner executes none of the emitted actions. An embedding
// interpreter that owns real timers and activity supervision runs
// Send/Cancel/Start/Stop/Invoke.
type ActionRunner interface {
	Run(ctx model.Context, action model.Action, ev model.Event) error
}

// GuardEvaluator resolves a named (symbolic) guard the definition did
// not supply an inline predicate for.
type GuardEvaluator interface {
	Eval(ctx model.Context, guard model.Guard, eventData any, meta model.GuardMeta) (bool, error)
}

// Metadata accompanies a published event with machine-level context.
type Metadata struct {
	MachineID  string
	Transition string
	Timestamp  time.Time
}

// EventPublisher is notified of xstate.init when a machine enters its
// initial state and of every external event a Transition call
// processes, whether or not anything handled it. Internal events raised
// during a macrostep are not published.
type EventPublisher interface {
	Publish(ctx context.Context, ev model.Event, meta Metadata) error
	Close() error
}

// Snapshot is the serializable shape of a machine's runtime state,
// following the Core API contract's persisted-state record (value,
// context, history_value, actions, activities, meta, children, _event).
// Active is kept alongside the documented fields as the configuration's
// serialized form, so Restore can reconstruct it without recomputing
// initial/history descendants from value alone.
type Snapshot struct {
	MachineID    string                         `json:"machineId" yaml:"machineId"`
	Active       []string                       `json:"active" yaml:"active"`
	Context      model.Context                  `json:"context" yaml:"context"`
	HistoryValue map[string]*model.HistoryValue `json:"historyValue,omitempty" yaml:"historyValue,omitempty"`
	Actions      []model.Action                 `json:"actions,omitempty" yaml:"actions,omitempty"`
	Activities   map[string]bool                `json:"activities,omitempty" yaml:"activities,omitempty"`
	Meta         map[string]any                 `json:"meta,omitempty" yaml:"meta,omitempty"`
	Children     map[string]string              `json:"children,omitempty" yaml:"children,omitempty"`
	Event        model.Event                    `json:"event" yaml:"event"`
	Timestamp    time.Time                      `json:"timestamp" yaml:"timestamp"`
}

// Persister saves and loads machine snapshots.
type Persister interface {
	Save(ctx context.Context, snapshot Snapshot) error
	Load(ctx context.Context, machineID string) (Snapshot, error)
}

// Visualizer renders a definition, optionally highlighting the active
// configuration.
type Visualizer interface {
	ExportDOT(def *model.Definition, cfg *configalg.Configuration) string
	ExportJSON(def *model.Definition) ([]byte, error)
}

// Registry manages versioned snapshots across many running machines.
type Registry interface {
	Register(ctx context.Context, machineID string, snapshot Snapshot) error
	Latest(ctx context.Context, machineID string) (Snapshot, error)
	Version(ctx context.Context, machineID, version string) (Snapshot, error)
	ListVersions(ctx context.Context, machineID string) ([]string, error)
	ListMachines(ctx context.Context) ([]string, error)
}

// Option configures a Machine via the functional options pattern.
type Option func(*Machine)

// Machine is a single running instance of a Definition. All exported
// methods are safe for concurrent use; the step engine itself runs
// single-threaded under mu, a single run-to-completion macrostep at a
// time, while still letting many goroutines drive one machine.
type Machine struct {
	id  string
	def *model.Definition

	mu      sync.RWMutex
	state   step.State
	hist    *history.Store
	last    model.Event
	initCtx model.Context

	lastActions     []model.Action
	lastTransitions []*model.TransitionDef

	actionRunner ActionRunner
	guardEval    GuardEvaluator
	publisher    EventPublisher
	persister    Persister
	visualizer   Visualizer
	registry     Registry

	guards map[string]GuardFn
	delays map[string]time.Duration
}

// GuardFn is a named guard implementation registered via WithGuards.
type GuardFn func(ctx model.Context, eventData any, meta model.GuardMeta) (bool, error)

// NewMachine builds a Machine over def. def must come from Builder.Build
// and is shared read-only; many machines may run over the same
// Definition concurrently.
func NewMachine(id string, def *model.Definition, opts ...Option) *Machine {
	m := &Machine{
		id:     id,
		def:    def,
		hist:   history.NewStore(def),
		guards: make(map[string]GuardFn),
		delays: make(map[string]time.Duration),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// ID returns the machine's instance identifier.
func (m *Machine) ID() string { return m.id }

// Definition returns the shared, immutable definition this machine runs.
func (m *Machine) Definition() *model.Definition { return m.def }

// DefinitionDocument returns the normalized, serializable projection of
// the whole definition tree — StateNode.definition() applied at the
// root — distinct from the live Definition above and from a
// Visualizer's rendering of it.
func (m *Machine) DefinitionDocument() *model.DefinitionDocument {
	return m.def.Root.Definition()
}

// Resolve expands a partial StateValue into one fully consistent with
// this machine's definition, filling in missing compound children and
// parallel regions with their initial state.
func (m *Machine) Resolve(partial *model.StateValue) *model.StateValue {
	return history.Resolve(m.def, partial)
}

// WithOptions returns a shallow clone of m: the same immutable
// Definition and initial context, a fresh history store and runtime
// state, with opts applied on top of m's current guard/delay tables and
// collaborators. Mirrors the functional-options construction path
// NewMachine itself uses, so overrides compose the same way.
func (m *Machine) WithOptions(opts ...Option) *Machine {
	m.mu.RLock()
	guards := make(map[string]GuardFn, len(m.guards))
	for k, v := range m.guards {
		guards[k] = v
	}
	delays := make(map[string]time.Duration, len(m.delays))
	for k, v := range m.delays {
		delays[k] = v
	}
	clone := &Machine{
		id:           m.id,
		def:          m.def,
		hist:         history.NewStore(m.def),
		initCtx:      m.initCtx,
		actionRunner: m.actionRunner,
		guardEval:    m.guardEval,
		publisher:    m.publisher,
		persister:    m.persister,
		visualizer:   m.visualizer,
		registry:     m.registry,
		guards:       guards,
		delays:       delays,
	}
	m.mu.RUnlock()
	for _, opt := range opts {
		opt(clone)
	}
	return clone
}

// WithContext returns a shallow clone of m whose InitialState begins
// from ctx instead of a nil context; every option and the shared
// Definition carry over unchanged.
func (m *Machine) WithContext(ctx model.Context) *Machine {
	clone := m.WithOptions()
	clone.initCtx = ctx
	return clone
}

// InitialState enters the definition's initial configuration, running
// every entry action along the way, and returns the resulting observable
// state.
func (m *Machine) InitialState(ctx context.Context) (*State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	cfg, entrySet := configalg.InitialConfiguration(m.def, m.hist.Resolver())
	machCtx := m.initCtx

	var actions []model.Action
	for _, n := range entrySet {
		actions = append(actions, n.Entry...)
	}
	actions, machCtx = m.runInitActions(actions, machCtx)

	m.state = step.State{Config: cfg, Context: machCtx, Activities: step.FoldActivities(nil, actions)}
	m.last = model.Event{Name: model.EventInit}
	m.lastActions = actions
	m.lastTransitions = nil

	if err := m.dispatchActions(ctx, actions); err != nil {
		return nil, err
	}
	m.publish(ctx, m.last)

	return m.observable(true), nil
}

func (m *Machine) runInitActions(actions []model.Action, ctx model.Context) ([]model.Action, model.Context) {
	var out []model.Action
	for _, a := range actions {
		switch a.Kind {
		case model.ActionAssign:
			if a.Assign != nil {
				ctx = a.Assign(ctx, model.Event{Name: model.EventInit})
			}
		case model.ActionPure:
			if a.Pure != nil {
				out = append(out, a.Pure(ctx, model.Event{Name: model.EventInit})...)
			}
		default:
			out = append(out, a)
		}
	}
	return out, ctx
}

// Transition runs one run-to-completion macrostep for ev and returns
// the resulting observable state. In strict mode, an event that is
// neither in the definition's declared set nor a built-in event name
// returns scerr.ErrUnknownEvent.
func (m *Machine) Transition(ctx context.Context, ev model.Event) (*State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	outcome, err := step.RunToCompletion(m.def, m.state, ev, m.hist, step.Options{GuardResolver: m.resolveGuard})
	if err != nil {
		return nil, err
	}

	m.state = outcome.State
	m.last = ev
	m.lastActions = outcome.Actions
	m.lastTransitions = outcome.Transitions

	if err := m.dispatchActions(ctx, outcome.Actions); err != nil {
		return nil, err
	}
	m.publish(ctx, ev)

	return &State{
		Value:        outcome.Value,
		Context:      outcome.State.Context,
		Event:        ev,
		Changed:      outcome.Changed,
		HistoryValue: m.hist.Value(),
		Actions:      outcome.Actions,
		Activities:   outcome.State.Activities,
		Meta:         metaOf(outcome.State.Config),
		Children:     childrenOf(outcome.State.Config),
		Transitions:  outcome.Transitions,
		def:          m.def,
		cfg:          outcome.State.Config,
	}, nil
}

// Current returns the last computed observable state without driving
// any further transition.
func (m *Machine) Current() *State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.observable(false)
}

func (m *Machine) observable(changed bool) *State {
	return &State{
		Value:        configalg.ValueOf(m.state.Config, m.def.Root),
		Context:      m.state.Context,
		Event:        m.last,
		Changed:      changed,
		HistoryValue: m.hist.Value(),
		Actions:      m.lastActions,
		Activities:   m.state.Activities,
		Meta:         metaOf(m.state.Config),
		Children:     childrenOf(m.state.Config),
		Transitions:  m.lastTransitions,
		def:          m.def,
		cfg:          m.state.Config,
	}
}

// GetStateNodeByID resolves a state id against the definition.
func (m *Machine) GetStateNodeByID(id string) (*model.StateNode, error) {
	return m.def.NodeByID(id)
}

func (m *Machine) resolveGuard(g model.Guard, ctx model.Context, eventData any, meta model.GuardMeta) (bool, error) {
	if g.Kind == model.GuardNamed {
		if fn, ok := m.guards[g.Type]; ok {
			return fn(ctx, eventData, meta)
		}
	}
	if m.guardEval != nil {
		return m.guardEval.Eval(ctx, g, eventData, meta)
	}
	return false, scerr.Wrapf(scerr.ErrUnknownGuardRef, "guard %q", g.Type)
}

func (m *Machine) dispatchActions(ctx context.Context, actions []model.Action) error {
	if m.actionRunner == nil {
		return nil
	}
	for _, a := range actions {
		if err := m.actionRunner.Run(m.state.Context, a, m.last); err != nil {
			return scerr.Wrapf(err, "action %q on event %q", a.Kind, m.last.Name)
		}
	}
	return nil
}

func (m *Machine) publish(ctx context.Context, ev model.Event) {
	if m.publisher == nil {
		return
	}
	_ = m.publisher.Publish(ctx, ev, Metadata{MachineID: m.id, Timestamp: time.Now()})
}

// Snapshot captures the machine's current configuration and context
// for a Persister or Registry to store.
func (m *Machine) Snapshot() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return Snapshot{
		MachineID:    m.id,
		Active:       idsOf(m.state.Config.NodesAsc()),
		Context:      m.state.Context,
		HistoryValue: m.hist.Value(),
		Actions:      m.lastActions,
		Activities:   m.state.Activities,
		Meta:         metaOf(m.state.Config),
		Children:     childrenOf(m.state.Config),
		Event:        m.last,
		Timestamp:    time.Now(),
	}
}

// Restore replaces the machine's runtime state from a snapshot taken
// over the same Definition.
func (m *Machine) Restore(snap Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if snap.MachineID != m.id {
		return scerr.Wrapf(scerr.ErrInvalidTarget, "snapshot machine id %q does not match %q", snap.MachineID, m.id)
	}
	cfg := configalg.NewConfiguration(m.def)
	for _, id := range snap.Active {
		n, err := m.def.NodeByID(id)
		if err != nil {
			return err
		}
		cfg.Add(n)
	}
	m.state = step.State{Config: cfg, Context: snap.Context, Activities: snap.Activities}
	m.last = snap.Event
	m.lastActions = snap.Actions
	return nil
}

func idsOf(nodes []*model.StateNode) []string {
	out := make([]string, len(nodes))
	for i, n := range nodes {
		out[i] = n.ID
	}
	return out
}

// Visualize renders the current configuration through the configured
// Visualizer.
func (m *Machine) Visualize() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.visualizer == nil {
		return ""
	}
	return m.visualizer.ExportDOT(m.def, m.state.Config)
}

var _ selector.GuardResolver = (*Machine)(nil).resolveGuard

package statecraft

import (
	"strings"

	"github.com/arborio/statecraft/internal/model"
	"github.com/arborio/statecraft/internal/scerr"
)

// Builder provides a fluent, dot-path API for constructing a
// Definition, mirroring the way the underlying tree is addressed at
// runtime. States are added one level at a time through their parent's
// StateBuilder and registered under their dot path; transition targets
// and history defaults name states by that path. A path never creates
// missing ancestors.
type Builder struct {
	delimiter string
	strict    bool
	events    map[string]struct{}
	root      *model.StateNode
	byPath    map[string]*model.StateNode
	pending   []pendingTransition
	pendingHist map[*model.StateNode]string
	err       error
}

type pendingTransition struct {
	def     *model.TransitionDef
	targets []string
}

// TransitionOption configures a transition beyond its event and targets.
type TransitionOption func(*model.TransitionDef)

// NewBuilder creates a Builder whose root compound state is keyed rootKey.
func NewBuilder(rootKey string) *Builder {
	root := model.NewRoot(rootKey, model.Compound)
	b := &Builder{
		delimiter:   ".",
		byPath:      map[string]*model.StateNode{rootKey: root},
		root:        root,
		pendingHist: map[*model.StateNode]string{},
	}
	return b
}

// WithDelimiter overrides the default "." path delimiter.
func (b *Builder) WithDelimiter(d string) *Builder {
	b.delimiter = d
	return b
}

// WithStrict enables strict mode: events outside the declared set
// passed here are rejected at Transition time.
func (b *Builder) WithStrict(events ...string) *Builder {
	b.strict = true
	b.events = make(map[string]struct{}, len(events))
	for _, e := range events {
		b.events[e] = struct{}{}
	}
	return b
}

// Root returns a StateBuilder for the root compound state.
func (b *Builder) Root() *StateBuilder {
	return &StateBuilder{b: b, node: b.root, path: []string{b.root.Key}}
}

// child creates (or reuses) typ under parent keyed key, registering it
// under parentPath+key.
func (b *Builder) child(parent *model.StateNode, parentPath []string, key string, typ model.StateType) *model.StateNode {
	if existing, ok := parent.ChildByKey(key); ok {
		return existing
	}
	n := model.AddChild(parent, key, typ)
	path := strings.Join(append(append([]string{}, parentPath...), key), b.delimiter)
	b.byPath[path] = n
	return n
}

// Build finalizes the definition, resolving deferred transition
// targets and history defaults by dot path.
func (b *Builder) Build() (*model.Definition, error) {
	if b.err != nil {
		return nil, b.err
	}
	for _, p := range b.pending {
		for _, path := range p.targets {
			n, ok := b.byPath[path]
			if !ok {
				return nil, scerr.Wrapf(scerr.ErrInvalidTarget, "unknown transition target %q", path)
			}
			p.def.Targets = append(p.def.Targets, n)
		}
	}
	for h, path := range b.pendingHist {
		n, ok := b.byPath[path]
		if !ok {
			return nil, scerr.Wrapf(scerr.ErrInvalidTarget, "unknown history default target %q", path)
		}
		h.HistoryTarget = n
	}
	return model.Finalize(b.root, b.delimiter, b.strict, b.events)
}

// StateBuilder configures a single StateNode and its children.
type StateBuilder struct {
	b    *Builder
	node *model.StateNode
	path []string
}

func (sb *StateBuilder) childPath(key string) []string {
	return append(append([]string{}, sb.path...), key)
}

// Compound adds a compound child state and returns its builder.
func (sb *StateBuilder) Compound(key string) *StateBuilder {
	cp := sb.childPath(key)
	return &StateBuilder{b: sb.b, node: sb.b.child(sb.node, sb.path, key, model.Compound), path: cp}
}

// Atomic adds a plain atomic leaf state and returns its builder.
func (sb *StateBuilder) Atomic(key string) *StateBuilder {
	cp := sb.childPath(key)
	return &StateBuilder{b: sb.b, node: sb.b.child(sb.node, sb.path, key, model.Atomic), path: cp}
}

// Parallel adds a parallel (orthogonal-regions) state and returns its builder.
func (sb *StateBuilder) Parallel(key string) *StateBuilder {
	cp := sb.childPath(key)
	return &StateBuilder{b: sb.b, node: sb.b.child(sb.node, sb.path, key, model.Parallel), path: cp}
}

// Final adds a final state and returns its builder.
func (sb *StateBuilder) Final(key string) *StateBuilder {
	cp := sb.childPath(key)
	return &StateBuilder{b: sb.b, node: sb.b.child(sb.node, sb.path, key, model.Final), path: cp}
}

// History adds a history pseudostate under this (compound or
// parallel) node. defaultTargetPath is the dot path entered the first
// time this history node is reached, before anything has been
// recorded.
func (sb *StateBuilder) History(key string, kind model.HistoryKind, defaultTargetPath string) *StateBuilder {
	n := sb.b.child(sb.node, sb.path, key, model.History)
	n.HistoryKind = kind
	if defaultTargetPath != "" {
		sb.b.pendingHist[n] = defaultTargetPath
	}
	return &StateBuilder{b: sb.b, node: n, path: sb.childPath(key)}
}

// Initial sets this compound state's declared initial child key.
func (sb *StateBuilder) Initial(childKey string) *StateBuilder {
	sb.node.Initial = childKey
	return sb
}

// Entry appends entry actions, run in declaration order whenever this
// state is entered.
func (sb *StateBuilder) Entry(actions ...model.Action) *StateBuilder {
	sb.node.Entry = append(sb.node.Entry, actions...)
	return sb
}

// Exit appends exit actions, run in declaration order whenever this
// state is exited.
func (sb *StateBuilder) Exit(actions ...model.Action) *StateBuilder {
	sb.node.Exit = append(sb.node.Exit, actions...)
	return sb
}

// On declares a transition for eventPattern to the given dot-path
// targets (zero targets is a valid actions-only internal transition).
func (sb *StateBuilder) On(eventPattern string, targets []string, opts ...TransitionOption) *StateBuilder {
	sb.addTransition(eventPattern, targets, opts)
	return sb
}

// Always declares an eventless (NULL-event) transition, evaluated
// before any queued event on every microstep.
func (sb *StateBuilder) Always(targets []string, opts ...TransitionOption) *StateBuilder {
	sb.addTransition(model.Null, targets, opts)
	return sb
}

// After declares a delayed transition: entering this state schedules a
// Send of a synthetic event after the named delay, cancelled if the
// state is exited first, and transitions on that synthetic event to
// targets.
func (sb *StateBuilder) After(delayName string, targets []string, opts ...TransitionOption) *StateBuilder {
	sendID := strings.Join(sb.path, sb.b.delimiter)
	syntheticEvent := "xstate.after(" + delayName + ")#" + sendID
	sb.node.Entry = append(sb.node.Entry, model.Send(syntheticEvent, delayName, sendID))
	sb.node.Exit = append(sb.node.Exit, model.Cancel(sendID))
	sb.addTransition(syntheticEvent, targets, opts)
	return sb
}

func (sb *StateBuilder) addTransition(eventPattern string, targets []string, opts []TransitionOption) {
	t := &model.TransitionDef{
		Source:       sb.node,
		EventPattern: eventPattern,
		DocOrder:     len(sb.node.Transitions),
	}
	for _, opt := range opts {
		opt(t)
	}
	sb.node.Transitions = append(sb.node.Transitions, t)
	sb.b.pending = append(sb.b.pending, pendingTransition{def: t, targets: targets})
}

// WithGuardFn attaches an inline predicate guard.
func WithGuardFn(fn model.PredicateFn) TransitionOption {
	return func(t *model.TransitionDef) {
		t.Guard = model.Guard{Kind: model.GuardPredicate, Predicate: fn}
	}
}

// WithNamedGuard attaches a symbolic guard resolved through the
// machine's guards table at run time.
func WithNamedGuard(name string, params map[string]any) TransitionOption {
	return func(t *model.TransitionDef) {
		t.Guard = model.Guard{Kind: model.GuardNamed, Type: name, Params: params}
	}
}

// WithActions attaches transition actions, run between the exit set
// and entry set in declaration order.
func WithActions(actions ...model.Action) TransitionOption {
	return func(t *model.TransitionDef) {
		t.Actions = append(t.Actions, actions...)
	}
}

// AsInternal marks the transition internal: it does not exit and
// re-enter its source when every target is a proper descendant of it.
func AsInternal() TransitionOption {
	return func(t *model.TransitionDef) { t.Internal = true }
}

// Forbidden marks a transition as an explicit no-op: the event is
// consumed (preempting any matching ancestor transition) but nothing
// is exited, entered, or run.
func Forbidden() TransitionOption {
	return func(t *model.TransitionDef) {
		t.Internal = true
		t.Forbidden = true
	}
}

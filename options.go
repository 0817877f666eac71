package statecraft

import "time"

// WithActionRunner configures the Machine with a custom ActionRunner.
func WithActionRunner(r ActionRunner) Option {
	return func(m *Machine) { m.actionRunner = r }
}

// WithGuardEvaluator configures a fallback GuardEvaluator consulted
// when a named guard is not found in the guards table.
func WithGuardEvaluator(e GuardEvaluator) Option {
	return func(m *Machine) { m.guardEval = e }
}

// WithGuards registers named guard implementations in bulk.
func WithGuards(guards map[string]GuardFn) Option {
	return func(m *Machine) {
		for name, fn := range guards {
			m.guards[name] = fn
		}
	}
}

// WithDelays registers symbolic delay names used by `after` transitions
// and Send actions.
func WithDelays(delays map[string]time.Duration) Option {
	return func(m *Machine) {
		for name, d := range delays {
			m.delays[name] = d
		}
	}
}

// WithPersister configures the Machine with a Persister.
func WithPersister(p Persister) Option {
	return func(m *Machine) { m.persister = p }
}

// WithPublisher configures the Machine with an EventPublisher.
func WithPublisher(p EventPublisher) Option {
	return func(m *Machine) { m.publisher = p }
}

// WithVisualizer configures the Machine with a Visualizer.
func WithVisualizer(v Visualizer) Option {
	return func(m *Machine) { m.visualizer = v }
}

// WithRegistry configures the Machine with a Registry for versioned snapshots.
func WithRegistry(r Registry) Option {
	return func(m *Machine) { m.registry = r }
}

// Delay resolves a symbolic delay name registered via WithDelays. ok is
// false when the name is unregistered, which callers should surface as
// scerr.ErrUnresolvedDelay. The delays table is fixed once the Machine
// is built, so Delay takes no lock and an ActionRunner may call it while
// InitialState or Transition holds the machine's lock.
func (m *Machine) Delay(name string) (time.Duration, bool) {
	d, ok := m.delays[name]
	return d, ok
}

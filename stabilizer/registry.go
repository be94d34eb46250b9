package stabilizer

import "fmt"

// Registry owns a set of uniquely named signals and the defaults new signals
// are created with. Defaults are copied into a signal when it is added, so
// changing them later never affects existing signals.
//
// A Registry performs no locking. Callers sharing one across goroutines must
// serialise every call.
type Registry struct {
	defaults Config
	signals  map[string]*Signal
	order    []string
}

// NewRegistry creates an empty registry whose defaults are DefaultConfig
// modified by opts.
func NewRegistry(opts ...Option) (*Registry, error) {
	defaults := DefaultConfig().Apply(opts...)
	if err := defaults.Validate(); err != nil {
		return nil, fmt.Errorf("registry defaults: %w", err)
	}
	return &Registry{
		defaults: defaults,
		signals:  make(map[string]*Signal),
	}, nil
}

// Defaults returns a copy of the registry defaults.
func (r *Registry) Defaults() Config { return r.defaults.clone() }

// SetDefaults applies opts to the defaults used by future Add calls.
// On validation failure the defaults are left unchanged.
func (r *Registry) SetDefaults(opts ...Option) error {
	next := r.defaults.Apply(opts...)
	if err := next.Validate(); err != nil {
		return fmt.Errorf("registry defaults: %w", err)
	}
	r.defaults = next
	return nil
}

// Add creates a signal from the registry defaults with opts applied on top.
// Options not given fall back to the defaults as they are at this moment.
func (r *Registry) Add(name string, opts ...Option) (*Signal, error) {
	if _, ok := r.signals[name]; ok {
		return nil, fmt.Errorf("%w: %q", ErrDuplicateSignal, name)
	}
	s, err := newSignal(name, r.defaults.Apply(opts...))
	if err != nil {
		return nil, err
	}
	r.signals[name] = s
	r.order = append(r.order, name)
	return s, nil
}

// Remove deletes the named signal. It reports whether the signal existed.
func (r *Registry) Remove(name string) bool {
	if _, ok := r.signals[name]; !ok {
		return false
	}
	delete(r.signals, name)
	for i, n := range r.order {
		if n == name {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return true
}

// Get returns the named signal.
func (r *Registry) Get(name string) (*Signal, bool) {
	s, ok := r.signals[name]
	return s, ok
}

func (r *Registry) lookup(name string) (*Signal, error) {
	s, ok := r.signals[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrSignalNotFound, name)
	}
	return s, nil
}

// Report feeds an observation to the named signal and returns its stabilized value.
func (r *Registry) Report(name string, v bool) (bool, error) {
	s, err := r.lookup(name)
	if err != nil {
		return false, err
	}
	return s.Report(v), nil
}

// Value returns the stabilized value of the named signal.
func (r *Registry) Value(name string) (bool, error) {
	s, err := r.lookup(name)
	if err != nil {
		return false, err
	}
	return s.Value(), nil
}

// Reset clears the named signal's pending challenge.
func (r *Registry) Reset(name string) error {
	s, err := r.lookup(name)
	if err != nil {
		return err
	}
	s.Reset()
	return nil
}

// ResetTo forces the named signal's stabilized value.
func (r *Registry) ResetTo(name string, v bool) error {
	s, err := r.lookup(name)
	if err != nil {
		return err
	}
	s.ResetTo(v)
	return nil
}

// AllValues returns a snapshot of every signal's stabilized value.
func (r *Registry) AllValues() map[string]bool {
	out := make(map[string]bool, len(r.signals))
	for name, s := range r.signals {
		out[name] = s.Value()
	}
	return out
}

// ResetAll clears every pending challenge. Stabilized values are kept.
func (r *Registry) ResetAll() {
	for _, s := range r.signals {
		s.Reset()
	}
}

// Len returns the number of signals.
func (r *Registry) Len() int { return len(r.signals) }

// Contains reports whether a signal with the given name exists.
func (r *Registry) Contains(name string) bool {
	_, ok := r.signals[name]
	return ok
}

// Names returns signal names in the order they were added.
func (r *Registry) Names() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// Snapshot returns the state of every signal in the order they were added.
func (r *Registry) Snapshot() []SignalState {
	out := make([]SignalState, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.signals[name].Snapshot())
	}
	return out
}

func (r *Registry) String() string {
	return fmt.Sprintf("Registry(count_threshold=%d, duration_threshold=%v, buffer_mode=%s, signals=%v)",
		r.defaults.CountThreshold, r.defaults.DurationThreshold, r.defaults.BufferMode, r.order)
}

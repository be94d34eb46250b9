package stabilizer

import (
	"fmt"
	"time"
)

// Signal tracks one boolean's stabilized value and the challenge, if any,
// currently accumulating against it.
//
// The three pending fields are set and cleared together: pendingCount > 0
// exactly when a pending value exists, and the pending value never equals
// the stabilized value.
type Signal struct {
	name  string
	value bool
	cfg   Config

	hasPending   bool
	pendingValue bool
	pendingCount int
	pendingSince time.Time
}

// NewSignal creates a signal with DefaultConfig modified by opts.
func NewSignal(name string, opts ...Option) (*Signal, error) {
	return newSignal(name, DefaultConfig().Apply(opts...))
}

func newSignal(name string, cfg Config) (*Signal, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("signal %q: %w", name, err)
	}
	if cfg.Clock == nil {
		cfg.Clock = SystemClock{}
	}
	return &Signal{
		name:  name,
		value: cfg.InitialValue,
		cfg:   cfg,
	}, nil
}

// Report feeds one observation and returns the stabilized value afterwards.
//
// An unbuffered transition commits immediately, even mid-challenge. Reporting
// the current value cancels any challenge. A differing value commits once it
// has been reported at least the resolved count threshold times in a row and
// the resolved duration has elapsed since it was first reported.
func (s *Signal) Report(v bool) bool {
	if !s.cfg.BufferMode.Buffers(s.value, v) {
		s.value = v
		s.clearPending()
		return s.value
	}

	if v == s.value {
		s.clearPending()
		return s.value
	}

	now := s.cfg.Clock.Now()
	if !s.hasPending || s.pendingValue != v {
		s.hasPending = true
		s.pendingValue = v
		s.pendingCount = 1
		s.pendingSince = now
	} else {
		s.pendingCount++
	}

	dir := DirectionOf(s.value, v)
	if s.pendingCount >= s.cfg.CountThresholdFor(dir) &&
		now.Sub(s.pendingSince) >= s.cfg.DurationThresholdFor(dir) {
		s.value = v
		s.clearPending()
	}
	return s.value
}

// Reset clears any pending challenge without touching the stabilized value.
func (s *Signal) Reset() {
	s.clearPending()
}

// ResetTo sets the stabilized value directly, bypassing all thresholds, and
// clears any pending challenge.
func (s *Signal) ResetTo(v bool) {
	s.value = v
	s.clearPending()
}

func (s *Signal) clearPending() {
	s.hasPending = false
	s.pendingValue = false
	s.pendingCount = 0
	s.pendingSince = time.Time{}
}

// Name returns the signal's name.
func (s *Signal) Name() string { return s.name }

// Value returns the stabilized value.
func (s *Signal) Value() bool { return s.value }

// PendingValue returns the value being accumulated, and false if there is none.
func (s *Signal) PendingValue() (value bool, ok bool) {
	return s.pendingValue, s.hasPending
}

// PendingCount returns how many consecutive times the pending value was reported.
func (s *Signal) PendingCount() int { return s.pendingCount }

// PendingDuration returns the time since the pending value was first
// reported, or 0 when nothing is pending.
func (s *Signal) PendingDuration() time.Duration {
	if !s.hasPending {
		return 0
	}
	return s.cfg.Clock.Now().Sub(s.pendingSince)
}

// CountThreshold returns the generic count threshold, ignoring per-direction overrides.
func (s *Signal) CountThreshold() int { return s.cfg.CountThreshold }

// DurationThreshold returns the generic duration threshold, ignoring per-direction overrides.
func (s *Signal) DurationThreshold() time.Duration { return s.cfg.DurationThreshold }

// CountThresholdFor returns the count threshold applied to transitions in dir.
func (s *Signal) CountThresholdFor(dir Direction) int { return s.cfg.CountThresholdFor(dir) }

// DurationThresholdFor returns the duration threshold applied to transitions in dir.
func (s *Signal) DurationThresholdFor(dir Direction) time.Duration {
	return s.cfg.DurationThresholdFor(dir)
}

// BufferMode returns the current buffer mode.
func (s *Signal) BufferMode() BufferMode { return s.cfg.BufferMode }

// SetBufferMode changes the buffer mode. A pending challenge is kept and is
// evaluated under the new mode on the next report.
func (s *Signal) SetBufferMode(m BufferMode) error {
	if !m.Valid() {
		return fmt.Errorf("%w: unknown buffer mode %d", ErrInvalidConfiguration, int(m))
	}
	s.cfg.BufferMode = m
	return nil
}

// Config returns a copy of the settings the signal was created with,
// reflecting any later SetBufferMode.
func (s *Signal) Config() Config { return s.cfg.clone() }

// Snapshot returns a copy of the signal's observable state.
func (s *Signal) Snapshot() SignalState {
	return SignalState{
		Name:         s.name,
		Value:        s.value,
		Pending:      s.hasPending,
		PendingValue: s.pendingValue,
		PendingCount: s.pendingCount,
		PendingFor:   s.PendingDuration(),
		BufferMode:   s.cfg.BufferMode,
	}
}

func (s *Signal) String() string {
	return fmt.Sprintf("Signal(name=%q, value=%t, count_threshold=%d, duration_threshold=%v, buffer_mode=%s)",
		s.name, s.value, s.cfg.CountThreshold, s.cfg.DurationThreshold, s.cfg.BufferMode)
}

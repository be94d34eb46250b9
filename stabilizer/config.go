package stabilizer

import (
	"fmt"
	"time"
)

// Config holds the settings a Signal is created with. The per-direction
// overrides are nil when unset, in which case the generic threshold applies.
type Config struct {
	InitialValue      bool
	CountThreshold    int
	DurationThreshold time.Duration
	BufferMode        BufferMode

	CountThresholdTrueToFalse    *int
	CountThresholdFalseToTrue    *int
	DurationThresholdTrueToFalse *time.Duration
	DurationThresholdFalseToTrue *time.Duration

	Clock Clock
}

// DefaultConfig returns count 1, duration 0, BufferBoth, initial value false
// and the system clock.
func DefaultConfig() Config {
	return Config{
		CountThreshold: 1,
		BufferMode:     BufferBoth,
		Clock:          SystemClock{},
	}
}

// Option modifies a Config.
type Option func(*Config)

// WithInitialValue sets the stabilized value a signal starts with.
func WithInitialValue(v bool) Option {
	return func(c *Config) { c.InitialValue = v }
}

// WithCountThreshold sets the generic repeated-report threshold.
func WithCountThreshold(n int) Option {
	return func(c *Config) { c.CountThreshold = n }
}

// WithDurationThreshold sets the generic elapsed-time threshold.
func WithDurationThreshold(d time.Duration) Option {
	return func(c *Config) { c.DurationThreshold = d }
}

// WithBufferMode sets which transition directions are buffered.
func WithBufferMode(m BufferMode) Option {
	return func(c *Config) { c.BufferMode = m }
}

// WithDirectionalCountThreshold overrides the count threshold for one direction.
func WithDirectionalCountThreshold(dir Direction, n int) Option {
	return func(c *Config) {
		if dir == TrueToFalse {
			c.CountThresholdTrueToFalse = &n
		} else {
			c.CountThresholdFalseToTrue = &n
		}
	}
}

// WithDirectionalDurationThreshold overrides the duration threshold for one direction.
func WithDirectionalDurationThreshold(dir Direction, d time.Duration) Option {
	return func(c *Config) {
		if dir == TrueToFalse {
			c.DurationThresholdTrueToFalse = &d
		} else {
			c.DurationThresholdFalseToTrue = &d
		}
	}
}

// WithClock sets the time source.
func WithClock(clock Clock) Option {
	return func(c *Config) { c.Clock = clock }
}

// Apply returns a copy of c with opts applied. c itself is not modified.
func (c Config) Apply(opts ...Option) Config {
	out := c.clone()
	for _, opt := range opts {
		opt(&out)
	}
	return out
}

// Validate checks threshold ranges and the buffer mode.
func (c Config) Validate() error {
	if c.CountThreshold < 1 {
		return fmt.Errorf("%w: count threshold must be at least 1, got %d", ErrInvalidConfiguration, c.CountThreshold)
	}
	if c.DurationThreshold < 0 {
		return fmt.Errorf("%w: duration threshold cannot be negative, got %v", ErrInvalidConfiguration, c.DurationThreshold)
	}
	if !c.BufferMode.Valid() {
		return fmt.Errorf("%w: unknown buffer mode %d", ErrInvalidConfiguration, int(c.BufferMode))
	}
	for _, dir := range []Direction{FalseToTrue, TrueToFalse} {
		if n := c.countOverride(dir); n != nil && *n < 1 {
			return fmt.Errorf("%w: %s count threshold must be at least 1, got %d", ErrInvalidConfiguration, dir, *n)
		}
		if d := c.durationOverride(dir); d != nil && *d < 0 {
			return fmt.Errorf("%w: %s duration threshold cannot be negative, got %v", ErrInvalidConfiguration, dir, *d)
		}
	}
	return nil
}

// CountThresholdFor resolves the count threshold for a transition direction.
func (c Config) CountThresholdFor(dir Direction) int {
	if n := c.countOverride(dir); n != nil {
		return *n
	}
	return c.CountThreshold
}

// DurationThresholdFor resolves the duration threshold for a transition direction.
func (c Config) DurationThresholdFor(dir Direction) time.Duration {
	if d := c.durationOverride(dir); d != nil {
		return *d
	}
	return c.DurationThreshold
}

func (c Config) countOverride(dir Direction) *int {
	if dir == TrueToFalse {
		return c.CountThresholdTrueToFalse
	}
	return c.CountThresholdFalseToTrue
}

func (c Config) durationOverride(dir Direction) *time.Duration {
	if dir == TrueToFalse {
		return c.DurationThresholdTrueToFalse
	}
	return c.DurationThresholdFalseToTrue
}

// clone copies the override pointers so a signal never shares them with the
// registry defaults it was built from.
func (c Config) clone() Config {
	out := c
	out.CountThresholdTrueToFalse = cloneIntPtr(c.CountThresholdTrueToFalse)
	out.CountThresholdFalseToTrue = cloneIntPtr(c.CountThresholdFalseToTrue)
	out.DurationThresholdTrueToFalse = cloneDurationPtr(c.DurationThresholdTrueToFalse)
	out.DurationThresholdFalseToTrue = cloneDurationPtr(c.DurationThresholdFalseToTrue)
	return out
}

func cloneIntPtr(p *int) *int {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func cloneDurationPtr(p *time.Duration) *time.Duration {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

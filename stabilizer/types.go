// Package stabilizer debounces noisy boolean signals.
// A Signal only changes its stabilized value after a differing observation has
// been reported enough times and for long enough. A Registry manages many
// independently configured signals under one set of defaults.
//
// This package has NO external dependencies and does no locking, logging or
// scheduling. Time is read from an injectable Clock.
package stabilizer

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	// ErrInvalidConfiguration is returned when thresholds or modes are out of range.
	ErrInvalidConfiguration = errors.New("invalid configuration")
	// ErrDuplicateSignal is returned when adding a name that is already registered.
	ErrDuplicateSignal = errors.New("duplicate signal")
	// ErrSignalNotFound is returned when operating on a name that is not registered.
	ErrSignalNotFound = errors.New("signal not found")
)

// BufferMode selects which transition directions are subject to buffering.
type BufferMode int

const (
	BufferBoth BufferMode = iota
	BufferTrueToFalse
	BufferFalseToTrue
	BufferNone
)

var bufferModeNames = map[BufferMode]string{
	BufferBoth:        "both",
	BufferTrueToFalse: "true_to_false",
	BufferFalseToTrue: "false_to_true",
	BufferNone:        "none",
}

func (m BufferMode) String() string {
	if s, ok := bufferModeNames[m]; ok {
		return s
	}
	return fmt.Sprintf("BufferMode(%d)", int(m))
}

// Valid reports whether m is one of the four defined modes.
func (m BufferMode) Valid() bool {
	_, ok := bufferModeNames[m]
	return ok
}

// Buffers reports whether a transition from the current value to the reported
// value must go through count/duration accumulation.
func (m BufferMode) Buffers(from, to bool) bool {
	switch m {
	case BufferNone:
		return false
	case BufferTrueToFalse:
		return from && !to
	case BufferFalseToTrue:
		return !from && to
	default:
		return true
	}
}

// ParseBufferMode accepts the names produced by String, case-insensitively.
// Hyphens are treated as underscores.
func ParseBufferMode(s string) (BufferMode, error) {
	norm := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "-", "_")
	for m, name := range bufferModeNames {
		if name == norm {
			return m, nil
		}
	}
	return BufferBoth, fmt.Errorf("%w: unknown buffer mode %q", ErrInvalidConfiguration, s)
}

// MarshalText implements encoding.TextMarshaler.
func (m BufferMode) MarshalText() ([]byte, error) {
	if !m.Valid() {
		return nil, fmt.Errorf("%w: unknown buffer mode %d", ErrInvalidConfiguration, int(m))
	}
	return []byte(m.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (m *BufferMode) UnmarshalText(text []byte) error {
	parsed, err := ParseBufferMode(string(text))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// Direction identifies a transition of the stabilized value.
type Direction int

const (
	FalseToTrue Direction = iota
	TrueToFalse
)

func (d Direction) String() string {
	if d == TrueToFalse {
		return "true_to_false"
	}
	return "false_to_true"
}

// DirectionOf returns the direction of a transition from one value to the other.
// The result is meaningless when from == to.
func DirectionOf(from, to bool) Direction {
	if from && !to {
		return TrueToFalse
	}
	return FalseToTrue
}

// SignalState is a point-in-time copy of a signal's observable state.
type SignalState struct {
	Name         string
	Value        bool
	Pending      bool // true when a challenge is in progress
	PendingValue bool
	PendingCount int
	PendingFor   time.Duration
	BufferMode   BufferMode
}

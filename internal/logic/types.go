// Package logic turns raw signal samples into published transition events.
// This package has NO external dependencies (no GPIO, MQTT, OS, or time.Sleep).
// Time is always injectable via time.Time parameters.
package logic

import (
	"strings"
	"time"
)

// State represents the logical state of a signal.
type State string

const (
	StateOn  State = "ON"
	StateOff State = "OFF"
)

// Event represents a stabilized transition to be published.
type Event struct {
	Timestamp time.Time
	Signal    string
	State     State
	// States holds every signal's stabilized state after this sample.
	States map[string]State
}

// Name returns the event name, e.g. "CH_ON".
func (e Event) Name() string {
	return strings.ToUpper(e.Signal) + "_" + string(e.State)
}

// Input represents a single sample of logical states.
type Input struct {
	Values map[string]bool
	Time   time.Time
}

// SignalCounts tracks transitions of one signal since startup.
type SignalCounts struct {
	On  int
	Off int
}

// EventCounts tracks transitions per signal since startup.
type EventCounts map[string]SignalCounts

// Clone returns an independent copy.
func (c EventCounts) Clone() EventCounts {
	out := make(EventCounts, len(c))
	for k, v := range c {
		out[k] = v
	}
	return out
}

// HeartbeatData contains information for a heartbeat event.
type HeartbeatData struct {
	Timestamp time.Time
	Uptime    time.Duration
	Counts    EventCounts
}

func boolToState(b bool) State {
	if b {
		return StateOn
	}
	return StateOff
}

package logic

import (
	"time"

	"github.com/sweeney/signal-stabilizer/stabilizer"
)

// Detector feeds samples through a stabilizer registry and reports the
// stabilized transitions.
//
// The first sample that covers every signal seeds the stabilized values and
// establishes the baseline; no events are emitted before that. The registry
// must have been built with clock, which the detector moves to each sample's
// time before reporting it.
type Detector struct {
	registry      *stabilizer.Registry
	clock         *stabilizer.ManualClock
	seeded        map[string]bool
	baselined     bool
	startTime     time.Time
	eventCounts   EventCounts
	lastHeartbeat time.Time
}

// NewDetector creates a detector over registry.
// The startTime is used for calculating uptime in heartbeat events.
func NewDetector(registry *stabilizer.Registry, clock *stabilizer.ManualClock, startTime time.Time) *Detector {
	return &Detector{
		registry:      registry,
		clock:         clock,
		seeded:        make(map[string]bool, registry.Len()),
		startTime:     startTime,
		eventCounts:   make(EventCounts, registry.Len()),
		lastHeartbeat: startTime,
	}
}

// Process takes a new input sample and returns any events that should be emitted.
// Events are ordered as the signals were configured. Values for names the
// registry does not know are ignored.
func (d *Detector) Process(input Input) []Event {
	d.clock.Set(input.Time)

	if !d.baselined {
		d.seed(input)
		return nil // No events until baseline established
	}

	var changed []string
	for _, name := range d.registry.Names() {
		v, ok := input.Values[name]
		if !ok {
			continue
		}
		s, _ := d.registry.Get(name)
		before := s.Value()
		if s.Report(v) != before {
			changed = append(changed, name)
		}
	}
	if len(changed) == 0 {
		return nil
	}

	states := d.CurrentState()
	events := make([]Event, 0, len(changed))
	for _, name := range changed {
		e := Event{
			Timestamp: input.Time,
			Signal:    name,
			State:     states[name],
			States:    states,
		}
		events = append(events, e)

		c := d.eventCounts[name]
		if e.State == StateOn {
			c.On++
		} else {
			c.Off++
		}
		d.eventCounts[name] = c
	}
	return events
}

func (d *Detector) seed(input Input) {
	for _, name := range d.registry.Names() {
		v, ok := input.Values[name]
		if !ok {
			continue
		}
		// ResetTo cannot fail for a name taken from Names.
		_ = d.registry.ResetTo(name, v)
		d.seeded[name] = true
	}
	for _, name := range d.registry.Names() {
		if !d.seeded[name] {
			return
		}
	}
	d.baselined = true
}

// IsBaselined returns whether the detector has established a baseline.
func (d *Detector) IsBaselined() bool {
	return d.baselined
}

// CurrentState returns the current stabilized state of every signal.
func (d *Detector) CurrentState() map[string]State {
	out := make(map[string]State, d.registry.Len())
	for name, v := range d.registry.AllValues() {
		out[name] = boolToState(v)
	}
	return out
}

// Signals returns per-signal state including any pending challenge, in
// configuration order. Pending durations are measured to the last sample.
func (d *Detector) Signals() []stabilizer.SignalState {
	return d.registry.Snapshot()
}

// EventCountsSnapshot returns a copy of the per-signal transition counts.
func (d *Detector) EventCountsSnapshot() EventCounts {
	return d.eventCounts.Clone()
}

// CheckHeartbeat returns heartbeat data if the interval has elapsed since the
// last heartbeat (or startup). Returns nil if not yet baselined, if the
// interval has not elapsed, or if interval is <= 0 (disabled).
func (d *Detector) CheckHeartbeat(now time.Time, interval time.Duration) *HeartbeatData {
	if interval <= 0 {
		return nil
	}

	if !d.baselined {
		return nil
	}

	if now.Sub(d.lastHeartbeat) < interval {
		return nil
	}

	d.lastHeartbeat = now
	return &HeartbeatData{
		Timestamp: now,
		Uptime:    now.Sub(d.startTime),
		Counts:    d.eventCounts.Clone(),
	}
}

// Package mqtt provides MQTT publishing with abstraction for testing.
package mqtt

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/sweeney/signal-stabilizer/internal/logic"
)

// Topics are the MQTT topics for signal and lifecycle events.
type Topics struct {
	Events string
	System string
}

// NewTopics derives "<prefix>/events" and "<prefix>/system".
func NewTopics(prefix string) Topics {
	prefix = strings.TrimRight(prefix, "/")
	return Topics{
		Events: prefix + "/events",
		System: prefix + "/system",
	}
}

// Publisher publishes events to MQTT.
type Publisher interface {
	// Publish sends a signal transition event to the broker.
	// Returns error if publishing fails (should not crash the process).
	Publish(event logic.Event) error

	// PublishSystem sends a system lifecycle event to the broker.
	PublishSystem(event SystemEvent) error

	// Close disconnects from the broker.
	Close() error
}

// ConnectionStatus reports whether the MQTT connection is active.
type ConnectionStatus interface {
	IsConnected() bool
}

// SystemEvent represents a system lifecycle event (e.g., startup, shutdown, heartbeat).
type SystemEvent struct {
	Timestamp  time.Time
	Event      string // e.g., "STARTUP", "SHUTDOWN", "HEARTBEAT"
	Reason     string // e.g., "SIGTERM", "SIGINT" (shutdown only)
	RawPayload []byte // Pre-formatted JSON payload; if set, FormatSystemPayload returns it directly
	Retained   bool   // Whether the message should be retained by the broker
}

// Payload represents the MQTT message payload structure.
type Payload struct {
	Signal SignalPayload `json:"signal"`
}

// SignalPayload contains the transition details.
type SignalPayload struct {
	Timestamp string            `json:"timestamp"`
	Event     string            `json:"event"`
	Name      string            `json:"name"`
	State     string            `json:"state"`
	States    map[string]string `json:"states"`
}

// FormatPayload creates the JSON payload for a signal event.
func FormatPayload(event logic.Event) ([]byte, error) {
	states := make(map[string]string, len(event.States))
	for name, s := range event.States {
		states[name] = string(s)
	}
	payload := Payload{
		Signal: SignalPayload{
			Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
			Event:     event.Name(),
			Name:      event.Signal,
			State:     string(event.State),
			States:    states,
		},
	}
	return json.Marshal(payload)
}

// SystemPayload represents the MQTT message payload for system events.
// Used for simple events (LWT, RECONNECTED) that don't carry a full status snapshot.
type SystemPayload struct {
	System SystemPayloadInner `json:"system"`
}

// SystemPayloadInner contains the system event details.
type SystemPayloadInner struct {
	Timestamp string `json:"timestamp"`
	Event     string `json:"event"`
	Reason    string `json:"reason,omitempty"`
}

// FormatSystemPayload creates the JSON payload for a system event.
// If event.RawPayload is set, it is returned directly (used for full status snapshots).
func FormatSystemPayload(event SystemEvent) ([]byte, error) {
	if event.RawPayload != nil {
		return event.RawPayload, nil
	}

	payload := SystemPayload{
		System: SystemPayloadInner{
			Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
			Event:     event.Event,
			Reason:    event.Reason,
		},
	}
	return json.Marshal(payload)
}

// WillPayload is the last-will message the broker publishes if the daemon
// disappears without a clean shutdown.
func WillPayload(connectedAt time.Time) []byte {
	data, _ := FormatSystemPayload(SystemEvent{
		Timestamp: connectedAt,
		Event:     "OFFLINE",
		Reason:    "CONNECTION_LOST",
	})
	return data
}

package status

import (
	"encoding/json"
	"time"
)

// StatusJSON is the top-level JSON envelope for status output.
type StatusJSON struct {
	Status StatusInner `json:"status"`
}

// StatusInner contains the status details.
type StatusInner struct {
	Event         string                `json:"event,omitempty"`
	Reason        string                `json:"reason,omitempty"`
	Ready         bool                  `json:"ready"`
	UptimeSeconds int64                 `json:"uptime_seconds"`
	StartTime     string                `json:"start_time"`
	Timestamp     string                `json:"timestamp"`
	MQTT          MQTTStatus            `json:"mqtt"`
	Signals       []SignalJSON          `json:"signals"`
	Counts        map[string]CountsJSON `json:"event_counts"`
	Network       *NetworkJSON          `json:"network,omitempty"`
	Config        ConfigJSON            `json:"config"`
}

// MQTTStatus reports MQTT connection state.
type MQTTStatus struct {
	Connected bool   `json:"connected"`
	Broker    string `json:"broker"`
}

// SignalJSON is one signal's stabilized value plus any open challenge.
type SignalJSON struct {
	Name         string `json:"name"`
	State        string `json:"state"`
	Pending      bool   `json:"pending"`
	PendingState string `json:"pending_state,omitempty"`
	PendingCount int    `json:"pending_count,omitempty"`
	PendingMs    int64  `json:"pending_ms,omitempty"`
	BufferMode   string `json:"buffer_mode"`
}

// CountsJSON is the JSON representation of one signal's transition counts.
type CountsJSON struct {
	On  int `json:"on"`
	Off int `json:"off"`
}

// NetworkJSON is the JSON representation of network info.
type NetworkJSON struct {
	Type       string `json:"type"`
	IP         string `json:"ip"`
	Status     string `json:"status"`
	Gateway    string `json:"gateway"`
	WifiStatus string `json:"wifi_status"`
	SSID       string `json:"ssid"`
}

// ConfigJSON is the JSON representation of daemon config.
type ConfigJSON struct {
	PollMs      int64  `json:"poll_ms"`
	HeartbeatMs int64  `json:"heartbeat_ms"`
	Broker      string `json:"broker"`
	TopicPrefix string `json:"topic_prefix"`
	HTTPAddr    string `json:"http_addr"`
}

func stateString(v bool) string {
	if v {
		return "ON"
	}
	return "OFF"
}

func buildInner(snap Snapshot) StatusInner {
	signals := make([]SignalJSON, 0, len(snap.Signals))
	for _, s := range snap.Signals {
		sj := SignalJSON{
			Name:       s.Name,
			State:      stateString(s.Value),
			Pending:    s.Pending,
			BufferMode: s.BufferMode.String(),
		}
		if s.Pending {
			sj.PendingState = stateString(s.PendingValue)
			sj.PendingCount = s.PendingCount
			sj.PendingMs = s.PendingFor.Milliseconds()
		}
		signals = append(signals, sj)
	}

	counts := make(map[string]CountsJSON, len(snap.Counts))
	for name, c := range snap.Counts {
		counts[name] = CountsJSON{On: c.On, Off: c.Off}
	}

	return StatusInner{
		Ready:         snap.Baselined,
		UptimeSeconds: int64(snap.Uptime().Truncate(time.Second).Seconds()),
		StartTime:     snap.StartTime.UTC().Format(time.RFC3339),
		Timestamp:     snap.Now.UTC().Format(time.RFC3339),
		MQTT:          MQTTStatus{Connected: snap.MQTTConnected, Broker: snap.Config.Broker},
		Signals:       signals,
		Counts:        counts,
		Config: ConfigJSON{
			PollMs:      snap.Config.PollMs,
			HeartbeatMs: snap.Config.HeartbeatMs,
			Broker:      snap.Config.Broker,
			TopicPrefix: snap.Config.TopicPrefix,
			HTTPAddr:    snap.Config.HTTPAddr,
		},
	}
}

func buildNetwork(snap Snapshot, inner *StatusInner) {
	if snap.Network != nil {
		inner.Network = &NetworkJSON{
			Type:       snap.Network.Type,
			IP:         snap.Network.IP,
			Status:     snap.Network.Status,
			Gateway:    snap.Network.Gateway,
			WifiStatus: snap.Network.WifiStatus,
			SSID:       snap.Network.SSID,
		}
	}
}

// FormatJSON returns the JSON status for the web endpoint (no event/reason).
func FormatJSON(snap Snapshot) []byte {
	inner := buildInner(snap)
	buildNetwork(snap, &inner)

	data, _ := json.MarshalIndent(StatusJSON{Status: inner}, "", "  ")
	return data
}

// FormatStatusEvent returns the JSON status for an MQTT system event.
func FormatStatusEvent(snap Snapshot, event, reason string) []byte {
	inner := buildInner(snap)
	inner.Event = event
	inner.Reason = reason
	buildNetwork(snap, &inner)

	data, _ := json.Marshal(StatusJSON{Status: inner})
	return data
}

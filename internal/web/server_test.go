package web

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/sweeney/signal-stabilizer/internal/logging"
	"github.com/sweeney/signal-stabilizer/internal/logic"
	"github.com/sweeney/signal-stabilizer/internal/status"
	"github.com/sweeney/signal-stabilizer/stabilizer"
)

func newTestServer(t *testing.T) (*httptest.Server, *status.Tracker) {
	t.Helper()
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	cfg := status.Config{
		PollMs:      100,
		HeartbeatMs: 900000,
		Broker:      "tcp://192.168.1.200:1883",
		TopicPrefix: "signals",
		HTTPAddr:    ":80",
	}
	tr := status.NewTracker(start, cfg)
	srv := New(":0", tr, logging.NewNop())
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts, tr
}

func signals(ch, hw bool) []stabilizer.SignalState {
	return []stabilizer.SignalState{
		{Name: "ch", Value: ch, BufferMode: stabilizer.BufferBoth},
		{Name: "hw", Value: hw, BufferMode: stabilizer.BufferBoth},
	}
}

func getStatus(t *testing.T, ts *httptest.Server) status.StatusJSON {
	t.Helper()
	resp, err := http.Get(ts.URL + "/index.json")
	if err != nil {
		t.Fatalf("GET /index.json: %v", err)
	}
	defer resp.Body.Close()

	var sj status.StatusJSON
	if err := json.NewDecoder(resp.Body).Decode(&sj); err != nil {
		t.Fatalf("decode JSON: %v", err)
	}
	return sj
}

func TestJSONEndpoint(t *testing.T) {
	ts, tr := newTestServer(t)
	tr.Update(signals(true, false), true, logic.EventCounts{"ch": {On: 5, Off: 2}})
	tr.SetMQTTConnected(true)

	resp, err := http.Get(ts.URL + "/index.json")
	if err != nil {
		t.Fatalf("GET /index.json: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		t.Errorf("status: got %d, want 200", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type: got %q, want application/json", ct)
	}

	var sj status.StatusJSON
	if err := json.NewDecoder(resp.Body).Decode(&sj); err != nil {
		t.Fatalf("decode JSON: %v", err)
	}

	if len(sj.Status.Signals) != 2 {
		t.Fatalf("expected 2 signals, got %d", len(sj.Status.Signals))
	}
	if sj.Status.Signals[0].Name != "ch" || sj.Status.Signals[0].State != "ON" {
		t.Errorf("ch: got %+v", sj.Status.Signals[0])
	}
	if sj.Status.Signals[1].State != "OFF" {
		t.Errorf("hw: got %q, want OFF", sj.Status.Signals[1].State)
	}
	if !sj.Status.Ready {
		t.Error("expected Ready=true")
	}
	if !sj.Status.MQTT.Connected {
		t.Error("expected MQTT.Connected=true")
	}
	if sj.Status.MQTT.Broker != "tcp://192.168.1.200:1883" {
		t.Errorf("MQTT.Broker: got %q, want tcp://192.168.1.200:1883", sj.Status.MQTT.Broker)
	}
	if sj.Status.Counts["ch"].On != 5 {
		t.Errorf("Counts[ch].On: got %d, want 5", sj.Status.Counts["ch"].On)
	}
	if sj.Status.Counts["ch"].Off != 2 {
		t.Errorf("Counts[ch].Off: got %d, want 2", sj.Status.Counts["ch"].Off)
	}
	if sj.Status.Config.PollMs != 100 {
		t.Errorf("Config.PollMs: got %d, want 100", sj.Status.Config.PollMs)
	}
}

func TestJSONNoSignalsBeforeBaseline(t *testing.T) {
	ts, _ := newTestServer(t)

	sj := getStatus(t, ts)
	if sj.Status.Ready {
		t.Error("expected Ready=false before baseline")
	}
	if len(sj.Status.Signals) != 0 {
		t.Errorf("expected no signals before baseline, got %d", len(sj.Status.Signals))
	}
}

func TestJSONNetworkInfo(t *testing.T) {
	ts, tr := newTestServer(t)
	tr.SetNetwork(&status.NetworkInfo{
		Type:   "wifi",
		IP:     "192.168.1.42",
		Status: "connected",
		SSID:   "MyNet",
	})

	sj := getStatus(t, ts)
	if sj.Status.Network == nil {
		t.Fatal("expected Network in JSON")
	}
	if sj.Status.Network.IP != "192.168.1.42" {
		t.Errorf("Network.IP: got %q, want 192.168.1.42", sj.Status.Network.IP)
	}
}

func TestHTMLEndpointRoot(t *testing.T) {
	ts, tr := newTestServer(t)
	tr.Update(signals(true, false), true, logic.EventCounts{"ch": {On: 7}})

	resp, err := http.Get(ts.URL + "/")
	if err != nil {
		t.Fatalf("GET /: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		t.Errorf("status: got %d, want 200", resp.StatusCode)
	}
	ct := resp.Header.Get("Content-Type")
	if !strings.HasPrefix(ct, "text/html") {
		t.Errorf("Content-Type: got %q, want text/html", ct)
	}

	body, _ := io.ReadAll(resp.Body)
	html := string(body)
	for _, want := range []string{`id="signal-ch"`, `id="signal-hw"`, "<td>7</td>", "both"} {
		if !strings.Contains(html, want) {
			t.Errorf("page should contain %q", want)
		}
	}
}

func TestHTMLShowsPendingChallenge(t *testing.T) {
	ts, tr := newTestServer(t)
	tr.Update([]stabilizer.SignalState{{
		Name:         "door",
		Value:        false,
		Pending:      true,
		PendingValue: true,
		PendingCount: 3,
		PendingFor:   450 * time.Millisecond,
		BufferMode:   stabilizer.BufferFalseToTrue,
	}}, true, nil)

	resp, err := http.Get(ts.URL + "/")
	if err != nil {
		t.Fatalf("GET /: %v", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	html := string(body)
	if !strings.Contains(html, "ON x3 (450ms)") {
		t.Errorf("page should describe the pending challenge, got:\n%s", html)
	}
	if !strings.Contains(html, "false_to_true") {
		t.Error("page should show the buffer mode")
	}
}

func TestHTMLWaitingBeforeBaseline(t *testing.T) {
	ts, _ := newTestServer(t)

	resp, err := http.Get(ts.URL + "/index.html")
	if err != nil {
		t.Fatalf("GET /index.html: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		t.Errorf("status: got %d, want 200", resp.StatusCode)
	}
	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), "Waiting for first complete sample") {
		t.Error("page should say it is waiting for a baseline")
	}
}

func TestNotFoundForUnknownPath(t *testing.T) {
	ts, _ := newTestServer(t)

	resp, err := http.Get(ts.URL + "/nonexistent")
	if err != nil {
		t.Fatalf("GET /nonexistent: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 404 {
		t.Errorf("status: got %d, want 404", resp.StatusCode)
	}
}

func TestStateChangesReflectedInResponse(t *testing.T) {
	ts, tr := newTestServer(t)

	if getStatus(t, ts).Status.Ready {
		t.Error("expected Ready=false initially")
	}

	tr.Update(signals(false, true), true, logic.EventCounts{"hw": {On: 1}})
	tr.SetMQTTConnected(true)

	sj := getStatus(t, ts)
	if !sj.Status.Ready {
		t.Error("expected Ready=true after update")
	}
	if sj.Status.Signals[1].State != "ON" {
		t.Errorf("hw: got %q, want ON", sj.Status.Signals[1].State)
	}
	if !sj.Status.MQTT.Connected {
		t.Error("expected MQTT connected after update")
	}
}

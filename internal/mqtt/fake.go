package mqtt

import (
	"sync"

	"github.com/sweeney/signal-stabilizer/internal/logic"
)

// FakePublisher records what would have been sent to the broker.
// It is safe for concurrent use; read the exported slices only after the
// publishing goroutine has finished, or use the accessor methods.
type FakePublisher struct {
	mu sync.Mutex

	Events         []logic.Event
	Payloads       [][]byte
	SystemEvents   []SystemEvent
	SystemPayloads [][]byte

	// Returned by Publish / PublishSystem when set; nothing is recorded.
	PublishError       error
	PublishSystemError error

	Closed bool

	// Connected is what IsConnected reports.
	Connected bool
}

func NewFakePublisher() *FakePublisher {
	return &FakePublisher{}
}

// Publish formats and records a signal event.
func (f *FakePublisher) Publish(event logic.Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.PublishError != nil {
		return f.PublishError
	}
	payload, err := FormatPayload(event)
	if err != nil {
		return err
	}
	f.Events = append(f.Events, event)
	f.Payloads = append(f.Payloads, payload)
	return nil
}

// PublishSystem formats and records a lifecycle event.
func (f *FakePublisher) PublishSystem(event SystemEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.PublishSystemError != nil {
		return f.PublishSystemError
	}
	payload, err := FormatSystemPayload(event)
	if err != nil {
		return err
	}
	f.SystemEvents = append(f.SystemEvents, event)
	f.SystemPayloads = append(f.SystemPayloads, payload)
	return nil
}

func (f *FakePublisher) Close() error {
	f.mu.Lock()
	f.Closed = true
	f.mu.Unlock()
	return nil
}

func (f *FakePublisher) IsConnected() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Connected
}

// EventNames returns the names of recorded signal events, e.g. "CH_ON".
func (f *FakePublisher) EventNames() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.Events))
	for i, e := range f.Events {
		out[i] = e.Name()
	}
	return out
}

// SystemEventsNamed returns recorded lifecycle events with the given name.
func (f *FakePublisher) SystemEventsNamed(name string) []SystemEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []SystemEvent
	for _, e := range f.SystemEvents {
		if e.Event == name {
			out = append(out, e)
		}
	}
	return out
}

// Reset clears recordings and injected errors.
func (f *FakePublisher) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Events = nil
	f.Payloads = nil
	f.SystemEvents = nil
	f.SystemPayloads = nil
	f.Closed = false
	f.PublishError = nil
	f.PublishSystemError = nil
	f.Connected = false
}

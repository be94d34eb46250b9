package mqtt

import (
	"log/slog"
	"sync"
)

// sendFunc delivers one message to the broker.
type sendFunc func(msg bufferedMsg) error

// outbox sends messages while connected and queues them in a ring buffer
// while not. Queued messages are replayed in order by flush.
type outbox struct {
	mu        sync.Mutex
	buf       *ringBuffer
	send      sendFunc
	connected func() bool
	log       *slog.Logger
}

func newOutbox(capacity int, send sendFunc, connected func() bool, log *slog.Logger) *outbox {
	return &outbox{
		buf:       newRingBuffer(capacity),
		send:      send,
		connected: connected,
		log:       log,
	}
}

// deliver sends msg, or queues it when disconnected or when sending fails.
// Queuing while disconnected is not an error; a failed send is returned and
// the message still goes out on the next flush.
func (o *outbox) deliver(msg bufferedMsg) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if !o.connected() {
		o.queue(msg)
		return nil
	}
	// Never overtake messages already queued.
	if _, err := o.flushLocked(); err != nil {
		o.queue(msg)
		return err
	}
	if err := o.send(msg); err != nil {
		o.queue(msg)
		return err
	}
	return nil
}

func (o *outbox) queue(msg bufferedMsg) {
	if o.buf.push(msg) {
		o.log.Warn("offline buffer full, dropping oldest", "capacity", o.buf.capacity)
	}
}

// flush replays queued messages oldest first. It stops at the first failure
// and re-queues what was not sent.
func (o *outbox) flush() (sent int, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.flushLocked()
}

func (o *outbox) flushLocked() (sent int, err error) {
	if n := o.buf.overwritten(); n > 0 {
		o.log.Warn("messages lost while offline", "dropped", n)
	}
	pending := o.buf.drainAll()
	for i, msg := range pending {
		if err := o.send(msg); err != nil {
			for _, rest := range pending[i:] {
				o.buf.push(rest)
			}
			return sent, err
		}
		sent++
	}
	return sent, nil
}

func (o *outbox) queued() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.buf.len()
}

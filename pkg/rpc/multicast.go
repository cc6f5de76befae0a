package rpc

import (
	"io"
	"sync"
)

////////////////////////////////////////////////////////////////////////////////
// TYPES

// Multicast fans a server-stream reply sequence out to any number of
// subscribers. A subscriber receives every message emitted after its
// subscription, at most once; there is no replay of earlier messages.
// The pump does not start draining the underlying stream until the first
// subscription, so an immediate subscriber observes the full sequence.
type Multicast struct {
	mu      sync.Mutex
	recv    func() ([]byte, error)
	cancel  func()
	subs    []*subscriber
	started bool
	closed  bool
	err     error
}

type subscriber struct {
	ch   chan []byte
	done chan struct{}
	once sync.Once
}

////////////////////////////////////////////////////////////////////////////////
// LIFECYCLE

// NewMulticast wraps a pull-based receive function. recv returns io.EOF on
// clean completion; cancel aborts the underlying call.
func NewMulticast(recv func() ([]byte, error), cancel func()) *Multicast {
	return &Multicast{recv: recv, cancel: cancel}
}

////////////////////////////////////////////////////////////////////////////////
// PUBLIC METHODS

// Subscribe returns a channel of messages and a function releasing the
// subscription. The channel is closed when the stream terminates; Err
// reports whether termination was clean.
func (m *Multicast) Subscribe() (<-chan []byte, func()) {
	sub := &subscriber{
		ch:   make(chan []byte),
		done: make(chan struct{}),
	}

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		close(sub.ch)
		return sub.ch, func() {}
	}
	m.subs = append(m.subs, sub)
	start := !m.started
	m.started = true
	m.mu.Unlock()

	if start {
		go m.pump()
	}

	return sub.ch, func() { sub.once.Do(func() { close(sub.done) }) }
}

// Err returns the terminal stream error, or nil if the stream completed
// cleanly or has not yet terminated.
func (m *Multicast) Err() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.err
}

// Close aborts the underlying call and terminates all subscriptions.
func (m *Multicast) Close() error {
	m.cancel()
	return nil
}

////////////////////////////////////////////////////////////////////////////////
// PRIVATE METHODS

func (m *Multicast) pump() {
	for {
		data, err := m.recv()
		if err != nil {
			if err == io.EOF {
				err = nil
			}
			m.terminate(err)
			return
		}

		m.mu.Lock()
		subs := make([]*subscriber, len(m.subs))
		copy(subs, m.subs)
		m.mu.Unlock()

		for _, sub := range subs {
			select {
			case sub.ch <- data:
			case <-sub.done:
				m.unsubscribe(sub)
			}
		}
	}
}

func (m *Multicast) terminate(err error) {
	m.mu.Lock()
	m.closed = true
	m.err = err
	subs := m.subs
	m.subs = nil
	m.mu.Unlock()

	for _, sub := range subs {
		close(sub.ch)
	}
}

func (m *Multicast) unsubscribe(sub *subscriber) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, s := range m.subs {
		if s == sub {
			m.subs = append(m.subs[:i], m.subs[i+1:]...)
			return
		}
	}
}

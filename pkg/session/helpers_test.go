package session

import (
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/crosstalk-dev/crosstalk/pkg/event"
)

var connSeq atomic.Int64

// fakeChannel records everything sent over it. It stands in for a websocket
// connection in tests.
type fakeChannel struct {
	id string

	mu     sync.Mutex
	events []sentEvent
	closed bool
}

type sentEvent struct {
	Name    string
	Payload any
}

func newFakeChannel(id string) *fakeChannel {
	return &fakeChannel{id: id}
}

func (f *fakeChannel) ID() string { return f.id }

func (f *fakeChannel) Send(name string, payload any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, sentEvent{name, payload})
	return nil
}

func (f *fakeChannel) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
}

func (f *fakeChannel) Closed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

// Events returns a copy of everything sent so far.
func (f *fakeChannel) Events() []sentEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]sentEvent, len(f.events))
	copy(out, f.events)
	return out
}

// Names returns the event names in send order.
func (f *fakeChannel) Names() []string {
	events := f.Events()
	names := make([]string, len(events))
	for i, e := range events {
		names[i] = e.Name
	}
	return names
}

// ByName returns all payloads sent under the given event name.
func (f *fakeChannel) ByName(name string) []any {
	var out []any
	for _, e := range f.Events() {
		if e.Name == name {
			out = append(out, e.Payload)
		}
	}
	return out
}

func (f *fakeChannel) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = nil
}

func newTestManager(t *testing.T, mutate ...func(*Config)) *Manager {
	t.Helper()

	cfg := DefaultConfig()
	// Keep the background machinery quiet; tests drive timers and sweeps
	// explicitly with short timeouts where needed.
	cfg.SweepInterval = time.Hour
	for _, fn := range mutate {
		fn(&cfg)
	}

	m := StartManager(cfg)
	t.Cleanup(m.Stop)
	return m
}

// register connects a fresh channel for the user and waits until the
// registration has been processed.
func register(t *testing.T, m *Manager, userID string) *fakeChannel {
	t.Helper()

	ch := newFakeChannel(fmt.Sprintf("conn-%s-%d", userID, connSeq.Add(1)))
	m.Register(ch, event.Register{UserID: userID})
	m.Snapshot() // barrier
	return ch
}

// startCall drives a call to the active state between two freshly registered
// users and clears the recorded events.
func startCall(t *testing.T, m *Manager, callID, caller, receiver string) (*fakeChannel, *fakeChannel) {
	t.Helper()

	callerCh := register(t, m, caller)
	receiverCh := register(t, m, receiver)

	m.InitiateCall(callerCh, event.CallInitiate{
		CallID:      callID,
		CallerID:    caller,
		ReceiverIDs: []string{receiver},
		CallType:    "audio",
	})
	m.AcceptCall(receiverCh, event.CallAccept{CallID: callID, ReceiverID: receiver})
	m.Snapshot() // barrier

	callerCh.Reset()
	receiverCh.Reset()
	return callerCh, receiverCh
}

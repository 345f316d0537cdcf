package routing_test

import (
	"encoding/json"
	"sync"
	"testing"

	"github.com/crosstalk-dev/crosstalk/pkg/event"
	"github.com/crosstalk-dev/crosstalk/pkg/routing"
	"github.com/crosstalk-dev/crosstalk/pkg/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingChannel struct {
	id string

	mu     sync.Mutex
	names  []string
	closed bool
}

func (c *recordingChannel) ID() string { return c.id }

func (c *recordingChannel) Send(name string, payload any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.names = append(c.names, name)
	return nil
}

func (c *recordingChannel) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
}

func (c *recordingChannel) Names() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.names))
	copy(out, c.names)
	return out
}

func newRouter(t *testing.T) (*routing.Router, *session.Manager) {
	t.Helper()
	sessions := session.StartManager(session.DefaultConfig())
	t.Cleanup(sessions.Stop)
	return routing.NewRouter(sessions), sessions
}

func envelope(t *testing.T, name string, payload any) event.Envelope {
	t.Helper()
	data, err := json.Marshal(payload)
	require.NoError(t, err)
	return event.Envelope{Event: name, Data: data}
}

func TestRouterDispatchesRegister(t *testing.T) {
	router, sessions := newRouter(t)
	ch := &recordingChannel{id: "conn-1"}

	router.HandleEvent(ch, envelope(t, event.TypeRegister, event.Register{UserID: "alice"}))

	snapshot := sessions.Snapshot()
	assert.Equal(t, []string{"alice"}, snapshot.ConnectedUsers)
	assert.Contains(t, ch.Names(), event.TypeRegistered)
}

func TestRouterRejectsMalformedPayload(t *testing.T) {
	router, sessions := newRouter(t)
	ch := &recordingChannel{id: "conn-1"}

	router.HandleEvent(ch, event.Envelope{
		Event: event.TypeRegister,
		Data:  json.RawMessage(`{"userId":`),
	})

	assert.Equal(t, []string{event.TypeError}, ch.Names())
	assert.Empty(t, sessions.Snapshot().ConnectedUsers)
}

func TestRouterIgnoresUnknownEvent(t *testing.T) {
	router, _ := newRouter(t)
	ch := &recordingChannel{id: "conn-1"}

	router.HandleEvent(ch, event.Envelope{Event: "no_such_event"})

	assert.Empty(t, ch.Names())
}

func TestRouterForwardsSignals(t *testing.T) {
	router, sessions := newRouter(t)
	chA := &recordingChannel{id: "conn-a"}
	chB := &recordingChannel{id: "conn-b"}

	router.HandleEvent(chA, envelope(t, event.TypeRegister, event.Register{UserID: "alice"}))
	router.HandleEvent(chB, envelope(t, event.TypeRegister, event.Register{UserID: "bob"}))
	router.HandleEvent(chA, envelope(t, event.TypeWebRTCOffer, event.Signal{
		CallID: "c1",
		From:   "alice",
		To:     "bob",
		SDP:    json.RawMessage(`{"type":"offer"}`),
	}))
	sessions.Snapshot()

	assert.Contains(t, chB.Names(), event.TypeWebRTCOffer)
}

func TestRouterDisconnect(t *testing.T) {
	router, sessions := newRouter(t)
	ch := &recordingChannel{id: "conn-1"}

	router.HandleEvent(ch, envelope(t, event.TypeRegister, event.Register{UserID: "alice"}))
	router.HandleDisconnect(ch)

	assert.Empty(t, sessions.Snapshot().ConnectedUsers)
}

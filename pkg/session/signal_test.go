package session

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/crosstalk-dev/crosstalk/pkg/event"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignalForwardStripsTo(t *testing.T) {
	m := newTestManager(t)
	chA, chB := startCall(t, m, "c1", "A", "B")

	sdp := json.RawMessage(`{"type":"offer","sdp":"v=0..."}`)
	m.ForwardSignal(chA, event.TypeWebRTCOffer, event.Signal{
		CallID: "c1",
		From:   "A",
		To:     "B",
		SDP:    sdp,
	})
	m.Snapshot()

	offers := chB.ByName(event.TypeWebRTCOffer)
	require.Len(t, offers, 1)
	forwarded := offers[0].(event.Signal)
	assert.Equal(t, "c1", forwarded.CallID)
	assert.Equal(t, "A", forwarded.From)
	assert.Empty(t, forwarded.To)
	assert.JSONEq(t, string(sdp), string(forwarded.SDP))
	assert.Empty(t, chA.Names())
}

func TestSignalDropsLoopbackAndMissingEndpoints(t *testing.T) {
	m := newTestManager(t)
	chA, chB := startCall(t, m, "c1", "A", "B")

	m.ForwardSignal(chA, event.TypeWebRTCOffer, event.Signal{CallID: "c1", From: "A", To: "A"})
	m.ForwardSignal(chA, event.TypeWebRTCOffer, event.Signal{CallID: "c1", From: "A"})
	m.ForwardSignal(chA, event.TypeWebRTCOffer, event.Signal{CallID: "c1", To: "B"})
	m.Snapshot()

	assert.Empty(t, chA.Names())
	assert.Empty(t, chB.Names())
}

func TestSignalWithoutCallRecordDeliveredDirectly(t *testing.T) {
	m := newTestManager(t)
	chA := register(t, m, "A")
	chB := register(t, m, "B")
	chB.Reset()

	m.ForwardSignal(chA, event.TypeWebRTCAnswer, event.Signal{
		CallID: "never-registered",
		From:   "A",
		To:     "B",
		SDP:    json.RawMessage(`{"type":"answer"}`),
	})
	m.Snapshot()

	answers := chB.ByName(event.TypeWebRTCAnswer)
	require.Len(t, answers, 1)
	assert.Empty(t, answers[0].(event.Signal).To)
}

func TestSignalEnqueuedForOfflineTargetKeepsOriginal(t *testing.T) {
	m := newTestManager(t)
	chA := register(t, m, "A")

	m.ForwardSignal(chA, event.TypeWebRTCOffer, event.Signal{
		CallID: "c1",
		From:   "A",
		To:     "D",
		SDP:    json.RawMessage(`{"type":"offer"}`),
	})
	m.Snapshot()

	// Delivery on registration replays the stored event verbatim, including
	// the routing field.
	chD := register(t, m, "D")
	require.Equal(t, []string{event.TypeRegistered, event.TypeWebRTCOffer}, chD.Names())
	replayed := chD.ByName(event.TypeWebRTCOffer)[0].(event.Signal)
	assert.Equal(t, "D", replayed.To)
	assert.Equal(t, "A", replayed.From)
}

func TestSignalPerTargetFIFO(t *testing.T) {
	m := newTestManager(t)
	chA := register(t, m, "A")

	m.ForwardSignal(chA, event.TypeWebRTCOffer, event.Signal{CallID: "c1", From: "A", To: "D"})
	m.ForwardSignal(chA, event.TypeICECandidate, event.Signal{
		CallID: "c1", From: "A", To: "D", Candidate: json.RawMessage(`{"candidate":"cand-1"}`),
	})
	m.ForwardSignal(chA, event.TypeWebRTCAnswer, event.Signal{CallID: "c1", From: "A", To: "D"})
	m.Snapshot()

	chD := register(t, m, "D")
	assert.Equal(t, []string{
		event.TypeRegistered,
		event.TypeWebRTCOffer,
		event.TypeICECandidate,
		event.TypeWebRTCAnswer,
	}, chD.Names())
}

func TestOfferAndAnswerTracking(t *testing.T) {
	m := newTestManager(t)
	chA, chB := startCall(t, m, "c1", "A", "B")

	m.ForwardSignal(chA, event.TypeWebRTCOffer, event.Signal{CallID: "c1", From: "A", To: "B"})
	m.ForwardSignal(chA, event.TypeWebRTCOffer, event.Signal{CallID: "c1", From: "A", To: "B"})
	m.Snapshot()
	require.NotNil(t, m.registry.get("c1"))
	assert.Equal(t, 2, m.registry.get("c1").offerAttempts)
	assert.False(t, m.registry.get("c1").lastOfferAt.IsZero())

	m.ForwardSignal(chB, event.TypeWebRTCAnswer, event.Signal{CallID: "c1", From: "B", To: "A"})
	m.Snapshot()
	assert.Equal(t, 0, m.registry.get("c1").offerAttempts)
}

func TestCandidateBuffered(t *testing.T) {
	m := newTestManager(t)
	chA, _ := startCall(t, m, "c1", "A", "B")

	m.ForwardSignal(chA, event.TypeICECandidate, event.Signal{
		CallID: "c1", From: "A", To: "B", Candidate: json.RawMessage(`{"candidate":"cand-1"}`),
	})
	m.Snapshot()

	c := m.registry.get("c1")
	require.NotNil(t, c)
	require.Len(t, c.iceBuffers["B"], 1)
	assert.Equal(t, "A", c.iceBuffers["B"][0].From)
}

func TestSweepTrimsExpiredCandidates(t *testing.T) {
	m := newTestManager(t, func(cfg *Config) {
		cfg.CandidateTTL = time.Millisecond
	})
	chA, _ := startCall(t, m, "c1", "A", "B")

	m.ForwardSignal(chA, event.TypeICECandidate, event.Signal{
		CallID: "c1", From: "A", To: "B", Candidate: json.RawMessage(`{"candidate":"cand-1"}`),
	})
	m.Snapshot()
	require.Len(t, m.registry.get("c1").iceBuffers["B"], 1)

	time.Sleep(10 * time.Millisecond)
	m.post(sweepTick{})
	m.Snapshot()

	assert.Empty(t, m.registry.get("c1").iceBuffers)
}

func TestSweepEndsStalledOffer(t *testing.T) {
	m := newTestManager(t, func(cfg *Config) {
		cfg.OfferStallTimeout = time.Millisecond
	})
	chA := register(t, m, "A")
	register(t, m, "B")

	m.InitiateCall(chA, event.CallInitiate{
		CallID: "c1", CallerID: "A", ReceiverIDs: []string{"B"}, CallType: "video",
	})
	m.ForwardSignal(chA, event.TypeWebRTCOffer, event.Signal{CallID: "c1", From: "A", To: "B"})
	m.Snapshot()
	chA.Reset()

	time.Sleep(10 * time.Millisecond)
	m.post(sweepTick{})
	snapshot := m.Snapshot()

	assert.Empty(t, snapshot.ActiveCalls)
	assert.Equal(t, StatusAvailable, snapshot.Presence["A"].Status)
	assert.Equal(t, StatusAvailable, snapshot.Presence["B"].Status)

	timeouts := chA.ByName(event.TypeCallTimeout)
	require.Len(t, timeouts, 1)
	assert.Equal(t, "No answer from receiver", timeouts[0].(event.CallTimeout).Reason)
	require.Len(t, chA.ByName(event.TypeCallEnded), 1)
}

func TestSweepIgnoresActiveCalls(t *testing.T) {
	m := newTestManager(t, func(cfg *Config) {
		cfg.OfferStallTimeout = time.Millisecond
	})
	chA, _ := startCall(t, m, "c1", "A", "B")

	m.ForwardSignal(chA, event.TypeWebRTCOffer, event.Signal{CallID: "c1", From: "A", To: "B"})
	m.Snapshot()

	time.Sleep(10 * time.Millisecond)
	m.post(sweepTick{})
	snapshot := m.Snapshot()

	require.Len(t, snapshot.ActiveCalls, 1)
	assert.Equal(t, CallActive, snapshot.ActiveCalls[0].Status)
}

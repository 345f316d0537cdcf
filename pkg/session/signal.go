package session

import (
	"github.com/crosstalk-dev/crosstalk/pkg/event"
	"github.com/sirupsen/logrus"
)

// handleSignal routes offer, answer and candidate events between call
// participants. Payloads are opaque: the router only strips the routing-only
// `to` field before forwarding and never touches the SDP/candidate bytes.
func (m *Manager) handleSignal(ch Channel, name string, req event.Signal) {
	logger := m.logger.WithFields(logrus.Fields{
		"event":   name,
		"call_id": req.CallID,
		"from":    req.From,
		"to":      req.To,
	})

	if req.From == "" || req.To == "" {
		logger.Warn("dropping signal without endpoints")
		return
	}
	if req.From == req.To {
		logger.Debug("dropping loopback signal")
		return
	}

	// Signals for an unknown call are still delivered or enqueued: the call
	// may be about to be created or resumed.
	c := m.registry.get(req.CallID)
	now := m.now()

	switch name {
	case event.TypeWebRTCOffer:
		if c != nil {
			c.offerAttempts++
			c.lastOfferAt = now
		}
	case event.TypeWebRTCAnswer:
		if c != nil {
			c.offerAttempts = 0
		}
	case event.TypeICECandidate:
		if c != nil {
			c.bufferCandidate(req.To, req.From, req.Candidate, now)
		}
	default:
		logger.Errorf("unknown signal event %q", name)
		return
	}

	var target Channel
	if c != nil {
		target = m.participantChannel(c, req.To)
	} else {
		target = m.directory.resolve(req.To)
	}

	if target != nil {
		m.emit(target, name, req.Stripped())
		return
	}

	// Target offline or channel stale: keep the original event for later.
	m.pending.enqueue(req.To, name, req)
	logger.Debug("signal enqueued for offline target")
}

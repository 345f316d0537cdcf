// Package routing decodes inbound transport envelopes and dispatches them to
// the session manager. It is the boundary where malformed input is rejected:
// decode failures produce an `error` event and never close the socket.
package routing

import (
	"encoding/json"

	"github.com/crosstalk-dev/crosstalk/pkg/event"
	"github.com/crosstalk-dev/crosstalk/pkg/session"
	"github.com/sirupsen/logrus"
)

// Router dispatches incoming events to the right session manager operation.
type Router struct {
	sessions *session.Manager
	logger   *logrus.Entry
}

func NewRouter(sessions *session.Manager) *Router {
	return &Router{
		sessions: sessions,
		logger:   logrus.WithField("component", "routing"),
	}
}

// HandleEvent routes a single decoded envelope coming from the channel.
func (r *Router) HandleEvent(ch session.Channel, envelope event.Envelope) {
	logger := r.logger.WithFields(logrus.Fields{
		"event":   envelope.Event,
		"conn_id": ch.ID(),
	})

	switch envelope.Event {
	case event.TypeRegister:
		var req event.Register
		if !r.decode(ch, logger, envelope.Data, &req) {
			return
		}
		r.sessions.Register(ch, req)

	case event.TypeUserStatus:
		var req event.UserStatus
		if !r.decode(ch, logger, envelope.Data, &req) {
			return
		}
		r.sessions.SetUserStatus(ch, req)

	case event.TypeCallInitiate:
		var req event.CallInitiate
		if !r.decode(ch, logger, envelope.Data, &req) {
			return
		}
		r.sessions.InitiateCall(ch, req)

	case event.TypeCallAccept:
		var req event.CallAccept
		if !r.decode(ch, logger, envelope.Data, &req) {
			return
		}
		r.sessions.AcceptCall(ch, req)

	case event.TypeCallReject:
		var req event.CallReject
		if !r.decode(ch, logger, envelope.Data, &req) {
			return
		}
		r.sessions.RejectCall(ch, req)

	case event.TypeCallEnd:
		var req event.CallEnd
		if !r.decode(ch, logger, envelope.Data, &req) {
			return
		}
		r.sessions.EndCall(ch, req)

	case event.TypeUserReady:
		var req event.UserReady
		if !r.decode(ch, logger, envelope.Data, &req) {
			return
		}
		r.sessions.UserReady(ch, req)

	case event.TypeWebRTCOffer, event.TypeWebRTCAnswer, event.TypeICECandidate:
		var req event.Signal
		if !r.decode(ch, logger, envelope.Data, &req) {
			return
		}
		r.sessions.ForwardSignal(ch, envelope.Event, req)

	default:
		logger.Warn("ignoring unexpected event")
	}
}

// HandleDisconnect informs the session manager that the channel closed.
func (r *Router) HandleDisconnect(ch session.Channel) {
	r.sessions.Disconnect(ch)
}

func (r *Router) decode(ch session.Channel, logger *logrus.Entry, data json.RawMessage, into any) bool {
	if err := json.Unmarshal(data, into); err != nil {
		logger.WithError(err).Warn("failed to decode event payload")
		if err := ch.Send(event.TypeError, event.Error{Message: "invalid payload"}); err != nil {
			logger.WithError(err).Warn("failed to report decode error")
		}
		return false
	}
	return true
}

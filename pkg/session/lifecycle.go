package session

import (
	"context"
	"errors"
	"strings"

	"github.com/crosstalk-dev/crosstalk/pkg/event"
	"github.com/crosstalk-dev/crosstalk/pkg/telemetry"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
)

func (m *Manager) handleRegister(ch Channel, req event.Register) {
	userID := strings.TrimSpace(req.UserID)
	if userID == "" {
		m.emitError(ch, ErrInvalidUser)
		return
	}

	logger := m.logger.WithField("user_id", userID).WithField("conn_id", ch.ID())

	// The same socket may re-register under a different user id; the old
	// identity is released as if it had disconnected.
	if prev, ok := m.directory.userOf(ch.ID()); ok && prev != userID {
		logger.WithField("previous_user_id", prev).Info("channel changed identity")
		m.releaseUser(prev)
	}

	if old := m.directory.bind(userID, ch); old != nil {
		logger.WithField("old_conn_id", old.ID()).Info("replacing existing channel")
		m.emit(old, event.TypeForceDisconnect, event.ForceDisconnect{
			Message: "Another connection was opened for this user",
		})
		old.Close()
	}

	// Presence is preserved when the user re-registers while a live call
	// still names them; the call's channel cache is refreshed in place.
	preserved := false
	if callID, ok := m.presence.inLiveCall(userID); ok {
		if c := m.registry.get(callID); c != nil && c.hasParticipant(userID) {
			c.bindChannel(userID, ch)
			preserved = true
		}
	}
	if !preserved {
		m.presence.set(userID, StatusAvailable, "")
	}

	m.emit(ch, event.TypeRegistered, event.Registered{Success: true})
	m.pending.drain(userID, ch, logger)
}

func (m *Manager) handleUserStatus(ch Channel, req event.UserStatus) {
	logger := m.logger.WithField("user_id", req.UserID)

	if m.directory.resolve(req.UserID) == nil {
		logger.Debug("ignoring user_status for unregistered user")
		return
	}

	status := PresenceStatus(req.Status)
	if status != StatusAvailable && status != StatusOffline {
		logger.Warnf("ignoring user_status with status %q", req.Status)
		return
	}
	if _, ok := m.presence.inLiveCall(req.UserID); ok {
		logger.Debug("ignoring user_status while in a call")
		return
	}

	m.presence.set(req.UserID, status, "")
}

func (m *Manager) handleInitiate(ch Channel, req event.CallInitiate) {
	if req.CallID == "" || req.CallerID == "" || len(req.ReceiverIDs) == 0 {
		m.emitError(ch, ErrInvalidCallData)
		return
	}

	callerCh := m.directory.resolve(req.CallerID)
	if callerCh == nil {
		m.emitError(ch, ErrCallerNotConnected)
		return
	}

	// Only the first receiver is rung; the full list stays on the record.
	receiverID := req.ReceiverIDs[0]
	switch m.presence.get(receiverID).Status {
	case StatusBusy, StatusInCall:
		m.emit(callerCh, event.TypeCallBusy, event.CallBusy{CallID: req.CallID, ReceiverID: receiverID})
		return
	}

	// A colliding call id replaces the stale record: its timer is reset and
	// no further transitions apply to it.
	if stale := m.registry.get(req.CallID); stale != nil {
		m.callLogger(stale).Warn("overwriting stale call record")
		m.removeCall(stale, "overwritten")
		for _, p := range stale.participants {
			if m.presence.get(p).CallID == stale.id {
				m.presence.set(p, StatusAvailable, "")
			}
		}
	}

	c := &call{
		id:          req.CallID,
		callerID:    req.CallerID,
		receiverIDs: req.ReceiverIDs,
		callType:    req.CallType,
		extraMeta:   req.ExtraMeta,
		status:      CallInitiated,
		channels:    make(map[string]Channel),
		iceBuffers:  make(map[string][]bufferedCandidate),
		trace: telemetry.NewTelemetry(context.Background(), "call",
			attribute.String("call_id", req.CallID),
			attribute.String("caller_id", req.CallerID),
			attribute.String("call_type", req.CallType)),
	}
	c.addParticipant(req.CallerID)
	for _, r := range req.ReceiverIDs {
		c.addParticipant(r)
	}
	c.bindChannel(req.CallerID, callerCh)
	m.registry.put(c)

	m.presence.set(req.CallerID, StatusBusy, c.id)
	if receiverCh := m.directory.resolve(receiverID); receiverCh != nil {
		m.presence.set(receiverID, StatusRinging, c.id)
		m.emit(receiverCh, event.TypeIncomingCall, req)
	} else {
		m.pending.enqueue(receiverID, event.TypeIncomingCall, req)
	}

	m.emit(callerCh, event.TypeCallRinging, event.CallRinging{CallID: c.id, ReceiverID: receiverID})
	m.armNoAnswerTimer(c.id)

	m.callLogger(c).WithField("receiver_id", receiverID).Info("call initiated")
}

func (m *Manager) handleAccept(ch Channel, req event.CallAccept) {
	c := m.registry.get(req.CallID)
	if c == nil {
		m.emitError(ch, ErrCallNotFound)
		return
	}
	if !c.hasParticipant(req.ReceiverID) {
		m.emitError(ch, ErrInvalidReceiver)
		return
	}

	receiverCh := m.directory.resolve(req.ReceiverID)
	if receiverCh == nil {
		m.emitError(ch, ErrReceiverNotConnected)
		return
	}

	if c.status == CallActive {
		// Re-accept of an active call only rebinds the sender's channel and
		// re-arms signaling for the sender.
		c.bindChannel(req.ReceiverID, receiverCh)
		m.emit(receiverCh, event.TypeStartSignaling, event.StartSignaling{CallID: c.id})
		return
	}

	m.cancelNoAnswerTimer(c.id)
	c.status = CallActive
	c.bindChannel(req.ReceiverID, receiverCh)
	c.trace.AddEvent("accepted")
	c.signaling = c.trace.CreateChild("signaling")

	for _, p := range c.participants {
		m.presence.set(p, StatusInCall, c.id)
	}

	// call_accepted must be observable before the first start_signaling.
	accepted := event.CallAccepted{CallID: c.id, ReceiverID: req.ReceiverID}
	for _, p := range c.participants {
		if p != req.ReceiverID {
			m.emitOrEnqueue(p, event.TypeCallAccepted, accepted)
		}
	}
	for _, p := range c.boundParticipants() {
		m.emit(m.participantChannel(c, p), event.TypeStartSignaling, event.StartSignaling{CallID: c.id})
	}

	m.callLogger(c).WithField("receiver_id", req.ReceiverID).Info("call accepted")
}

func (m *Manager) handleReject(ch Channel, req event.CallReject) {
	c := m.registry.get(req.CallID)
	if c == nil {
		m.logger.WithField("call_id", req.CallID).Debug("reject for unknown call")
		return
	}
	if c.status != CallInitiated {
		m.callLogger(c).Debug("ignoring reject for a call that is already active")
		return
	}

	m.emitOrEnqueue(c.callerID, event.TypeCallRejected, event.CallRejected{CallID: c.id, UserID: req.UserID})
	m.terminateCall(c, "rejected")

	m.callLogger(c).WithField("user_id", req.UserID).Info("call rejected")
}

func (m *Manager) handleEnd(ch Channel, req event.CallEnd) {
	c := m.registry.get(req.CallID)
	if c == nil {
		m.logger.WithField("call_id", req.CallID).Debug("end for unknown call")
		return
	}
	if !c.hasParticipant(req.UserID) {
		m.callLogger(c).WithField("user_id", req.UserID).Debug("end by non-participant")
		return
	}

	m.leaveCall(c, req.UserID, StatusAvailable, event.CallEnded{
		CallID: c.id,
		UserID: req.UserID,
		Reason: "User ended the call",
	})

	m.logger.WithField("call_id", req.CallID).WithField("user_id", req.UserID).Info("call ended")
}

func (m *Manager) handleUserReady(ch Channel, req event.UserReady) {
	c := m.registry.get(req.CallID)
	if c == nil {
		m.logger.WithField("call_id", req.CallID).Debug("user_ready for unknown call")
		return
	}
	if !c.hasParticipant(req.UserID) {
		m.callLogger(c).WithField("user_id", req.UserID).Debug("user_ready by non-participant")
		return
	}

	if live := m.directory.resolve(req.UserID); live != nil {
		c.bindChannel(req.UserID, live)
	}

	if c.everyParticipantBound() {
		for _, p := range c.participants {
			m.emit(m.participantChannel(c, p), event.TypeStartSignaling, event.StartSignaling{CallID: c.id})
		}
	}
}

func (m *Manager) handleDisconnect(ch Channel) {
	userID, wasBound := m.directory.unbind(ch)
	if !wasBound {
		// The closing channel was already superseded by a re-registration.
		return
	}

	m.releaseUser(userID)
	m.logger.WithField("user_id", userID).WithField("conn_id", ch.ID()).Debug("channel unbound")
}

// releaseUser detaches a user whose channel went away: the user leaves any
// live call and reads as offline afterwards.
func (m *Manager) releaseUser(userID string) {
	if callID, ok := m.presence.inLiveCall(userID); ok {
		if c := m.registry.get(callID); c != nil && c.hasParticipant(userID) {
			m.leaveCall(c, userID, StatusOffline, event.CallEnded{
				CallID: c.id,
				UserID: userID,
				Reason: "User disconnected",
			})
			m.logger.WithFields(logrus.Fields{
				"user_id": userID,
				"call_id": callID,
			}).Info("participant disconnected from call")
		}
	}

	m.presence.set(userID, StatusOffline, "")
}

func (m *Manager) handleNoAnswer(callID string) {
	delete(m.timers, callID)

	// The timer may have lost the race against accept/reject/end; in that
	// case the record is gone or no longer initiated and nothing happens.
	c := m.registry.get(callID)
	if c == nil || c.status != CallInitiated {
		return
	}

	m.timeoutCall(c, "No answer", "Timeout")
	m.callLogger(c).Info("call timed out without an answer")
}

// leaveCall removes a participant from the call, informs the remaining
// participants and tears the call down once it drops below two participants.
// A participant that never bound a channel (still ringing) or has gone
// offline gets the event through the directory or the pending queue.
func (m *Manager) leaveCall(c *call, userID string, leaverStatus PresenceStatus, ended event.CallEnded) {
	c.removeParticipant(userID)
	if m.presence.get(userID).CallID == c.id {
		m.presence.set(userID, leaverStatus, "")
	}

	for _, p := range c.participants {
		m.emitOrEnqueue(p, event.TypeCallEnded, ended)
	}

	if len(c.participants) < 2 {
		m.terminateCall(c, "ended")
	}
}

// timeoutCall ends an unanswered call: the caller learns the reason via
// call_timeout, every participant via call_ended. A ringing receiver was
// never bound to the call, so delivery goes through the directory or the
// pending queue.
func (m *Manager) timeoutCall(c *call, timeoutReason, endedReason string) {
	c.trace.Fail(errors.New(timeoutReason))
	m.emitOrEnqueue(c.callerID, event.TypeCallTimeout, event.CallTimeout{CallID: c.id, Reason: timeoutReason})

	ended := event.CallEnded{CallID: c.id, UserID: "system", Reason: endedReason}
	for _, p := range c.participants {
		m.emitOrEnqueue(p, event.TypeCallEnded, ended)
	}

	m.terminateCall(c, "timeout")
}

// terminateCall resets presence for every participant still attached to this
// call and removes the record. Terminal calls are never kept in the registry.
func (m *Manager) terminateCall(c *call, reason string) {
	for _, p := range c.participants {
		if m.presence.get(p).CallID == c.id {
			m.presence.set(p, StatusAvailable, "")
		}
	}
	m.removeCall(c, reason)
}

// removeCall cancels the call's timer, closes its trace span and drops the
// record from the registry.
func (m *Manager) removeCall(c *call, reason string) {
	m.cancelNoAnswerTimer(c.id)
	if c.signaling != nil {
		c.signaling.End()
	}
	c.trace.AddEvent(reason)
	c.trace.End()
	m.registry.remove(c.id)
}

// participantChannel resolves the channel to reach a participant on. The
// call's cached channel is used only while the directory still confirms it;
// otherwise the directory is authoritative.
func (m *Manager) participantChannel(c *call, userID string) Channel {
	if cached := c.channels[userID]; cached != nil {
		if bound, ok := m.directory.userOf(cached.ID()); ok && bound == userID {
			return cached
		}
	}
	return m.directory.resolve(userID)
}

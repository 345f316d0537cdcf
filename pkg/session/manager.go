package session

import (
	"time"

	"github.com/crosstalk-dev/crosstalk/pkg/common"
	"github.com/crosstalk-dev/crosstalk/pkg/event"
	"github.com/sirupsen/logrus"
)

const inboxSize = 512

// Manager owns the five state tables (user directory, presence, pending
// queue, call registry and call timers) and processes all mutations on a
// single goroutine. Public methods only post messages into the loop and are
// safe to call from any goroutine.
type Manager struct {
	config Config
	logger *logrus.Entry

	inbox common.Sender[any]
	done  chan struct{}

	// Everything below is owned by the main loop.
	recv      common.Receiver[any]
	directory *directory
	presence  *presenceTable
	pending   *pendingQueue
	registry  *registry
	timers    map[string]*time.Timer

	// Source of time, swappable in tests.
	now func() time.Time
}

// StartManager creates a manager and starts its main loop and sweeper.
func StartManager(config Config) *Manager {
	inbox, recv := common.NewChannel[any](inboxSize)

	m := &Manager{
		config:    config,
		logger:    logrus.WithField("component", "session"),
		inbox:     inbox,
		recv:      recv,
		done:      make(chan struct{}),
		directory: newDirectory(),
		presence:  newPresenceTable(),
		pending:   newPendingQueue(),
		registry:  newRegistry(),
		timers:    make(map[string]*time.Timer),
		now:       time.Now,
	}

	go m.processMessages()
	go m.runSweeper()
	return m
}

// Stop terminates the main loop and the sweeper. Pending messages that were
// already accepted are still processed before the loop exits.
func (m *Manager) Stop() {
	select {
	case <-m.done:
		return
	default:
		close(m.done)
	}
}

// Register binds the channel to the user id and drains any pending signals.
func (m *Manager) Register(ch Channel, req event.Register) {
	m.post(registerCmd{ch, req})
}

// SetUserStatus flips a user's presence between available and offline.
func (m *Manager) SetUserStatus(ch Channel, req event.UserStatus) {
	m.post(userStatusCmd{ch, req})
}

// InitiateCall creates a call record and rings the receiver.
func (m *Manager) InitiateCall(ch Channel, req event.CallInitiate) {
	m.post(initiateCmd{ch, req})
}

// AcceptCall transitions the call to active and starts signaling.
func (m *Manager) AcceptCall(ch Channel, req event.CallAccept) {
	m.post(acceptCmd{ch, req})
}

// RejectCall declines a ringing call. Unknown calls are a no-op.
func (m *Manager) RejectCall(ch Channel, req event.CallReject) {
	m.post(rejectCmd{ch, req})
}

// EndCall removes the user from the call. Unknown calls are a no-op.
func (m *Manager) EndCall(ch Channel, req event.CallEnd) {
	m.post(endCmd{ch, req})
}

// UserReady rebinds a reconnected participant's channel and re-arms
// signaling once every participant is reachable.
func (m *Manager) UserReady(ch Channel, req event.UserReady) {
	m.post(readyCmd{ch, req})
}

// ForwardSignal routes an offer, answer or ICE candidate to its target.
// name must be one of the three WebRTC event names.
func (m *Manager) ForwardSignal(ch Channel, name string, req event.Signal) {
	m.post(signalCmd{ch, name, req})
}

// Disconnect is called by the transport when a channel closes.
func (m *Manager) Disconnect(ch Channel) {
	m.post(disconnectCmd{ch})
}

// Snapshot returns a consistent view of the state tables. It blocks until
// every message posted before it has been processed.
func (m *Manager) Snapshot() Snapshot {
	reply := make(chan Snapshot, 1)
	if rejected := m.inbox.Send(snapshotReq{reply}); rejected != nil {
		return Snapshot{}
	}

	select {
	case snapshot := <-reply:
		return snapshot
	case <-m.done:
		return Snapshot{}
	}
}

func (m *Manager) post(msg any) {
	if rejected := m.inbox.Send(msg); rejected != nil {
		m.logger.Warnf("dropping message %T, manager is stopped", msg)
	}
}

// The manager's main loop: every mutation of the state tables happens here.
func (m *Manager) processMessages() {
	defer m.recv.Close()

	for {
		select {
		case msg := <-m.recv.Channel:
			m.dispatch(msg)
		case <-m.done:
			return
		}
	}
}

func (m *Manager) dispatch(msg any) {
	switch cmd := msg.(type) {
	case registerCmd:
		m.handleRegister(cmd.ch, cmd.req)
	case userStatusCmd:
		m.handleUserStatus(cmd.ch, cmd.req)
	case initiateCmd:
		m.handleInitiate(cmd.ch, cmd.req)
	case acceptCmd:
		m.handleAccept(cmd.ch, cmd.req)
	case rejectCmd:
		m.handleReject(cmd.ch, cmd.req)
	case endCmd:
		m.handleEnd(cmd.ch, cmd.req)
	case readyCmd:
		m.handleUserReady(cmd.ch, cmd.req)
	case signalCmd:
		m.handleSignal(cmd.ch, cmd.name, cmd.req)
	case disconnectCmd:
		m.handleDisconnect(cmd.ch)
	case noAnswerFired:
		m.handleNoAnswer(cmd.callID)
	case sweepTick:
		m.handleSweep()
	case snapshotReq:
		cmd.reply <- m.snapshot()
	default:
		m.logger.Errorf("unknown message type: %T", msg)
	}
}

func (m *Manager) runSweeper() {
	ticker := time.NewTicker(m.config.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.post(sweepTick{})
		case <-m.done:
			return
		}
	}
}

// emit sends an event to the channel, logging delivery failures. Sends are
// non-blocking at the transport level; a failed or dropped send is recovered
// by the client via user_ready or reconnection.
func (m *Manager) emit(ch Channel, name string, payload any) {
	if ch == nil {
		return
	}
	if err := ch.Send(name, payload); err != nil {
		m.logger.WithError(err).WithField("event", name).Warn("failed to send event")
	}
}

// emitOrEnqueue delivers the event to the user's live channel or stores it in
// the pending queue for delivery on reconnect.
func (m *Manager) emitOrEnqueue(userID, name string, payload any) {
	if ch := m.directory.resolve(userID); ch != nil {
		m.emit(ch, name, payload)
		return
	}
	m.pending.enqueue(userID, name, payload)
}

func (m *Manager) emitError(ch Channel, err error) {
	m.emit(ch, event.TypeError, event.Error{Message: err.Error()})
}

// armNoAnswerTimer (re)arms the per-call no-answer timer. An existing timer
// for the same call id is cancelled first.
func (m *Manager) armNoAnswerTimer(callID string) {
	m.cancelNoAnswerTimer(callID)
	m.timers[callID] = time.AfterFunc(m.config.NoAnswerTimeout, func() {
		m.post(noAnswerFired{callID})
	})
}

func (m *Manager) cancelNoAnswerTimer(callID string) {
	if timer, ok := m.timers[callID]; ok {
		timer.Stop()
		delete(m.timers, callID)
	}
}

func (m *Manager) callLogger(c *call) *logrus.Entry {
	return m.logger.WithFields(logrus.Fields{
		"call_id":   c.id,
		"caller_id": c.callerID,
	})
}

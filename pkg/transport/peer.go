// Package transport implements the websocket transport: one bidirectional
// event channel per connected client. Frames are JSON envelopes
// `{"event": name, "data": payload}` in both directions.
package transport

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/crosstalk-dev/crosstalk/pkg/common"
	"github.com/crosstalk-dev/crosstalk/pkg/event"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

const (
	// Time allowed to write a frame to the client.
	writeWait = 10 * time.Second
	// Time allowed to read the next pong from the client.
	pongWait = 60 * time.Second
	// Ping period, must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10
	// Maximum inbound frame size; SDP payloads can get large.
	maxMessageSize = 64 * 1024
	// Outbound frames buffered per client before drops kick in.
	sendQueueSize = 256
)

// Peer is one websocket connection. It satisfies session.Channel: sends are
// queued on a bounded writer worker and never block the caller; when the
// queue is full the frame is dropped and the client recovers via user_ready
// or reconnection.
type Peer struct {
	id        string
	conn      *websocket.Conn
	writer    *common.Worker[event.Envelope]
	logger    *logrus.Entry
	closeOnce sync.Once
}

func newPeer(conn *websocket.Conn) *Peer {
	p := &Peer{
		id:   uuid.NewString(),
		conn: conn,
	}
	p.logger = logrus.WithFields(logrus.Fields{
		"component": "transport",
		"conn_id":   p.id,
		"remote":    conn.RemoteAddr().String(),
	})

	// The writer worker serializes all writes to the connection and sends a
	// ping whenever the connection has been idle for a ping period.
	p.writer = common.StartWorker(common.WorkerConfig[event.Envelope]{
		ChannelSize: sendQueueSize,
		Timeout:     pingPeriod,
		OnTimeout:   p.writePing,
		OnTask:      p.writeEnvelope,
	})

	return p
}

// ID is the transport-assigned connection id, distinct from the user id.
func (p *Peer) ID() string {
	return p.id
}

// Send queues an event frame for delivery. It never blocks: a full queue
// drops the frame and reports the overload.
func (p *Peer) Send(name string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	return p.writer.Send(event.Envelope{Event: name, Data: data})
}

// Close stops the writer and tears the connection down. Frames queued before
// the close still reach the wire: the connection is only closed once the
// writer has drained. Safe to call more than once.
func (p *Peer) Close() {
	p.closeOnce.Do(func() {
		p.writer.Stop()
		p.writer.Wait()
		if err := p.conn.Close(); err != nil {
			p.logger.WithError(err).Debug("error closing connection")
		}
	})
}

func (p *Peer) writeEnvelope(envelope event.Envelope) {
	if err := p.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return
	}
	if err := p.conn.WriteJSON(envelope); err != nil {
		p.logger.WithError(err).WithField("event", envelope.Event).Debug("write failed")
	}
}

func (p *Peer) writePing() {
	if err := p.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return
	}
	if err := p.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
		p.logger.WithError(err).Debug("ping failed")
	}
}

package transport

import (
	"encoding/json"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/crosstalk-dev/crosstalk/pkg/event"
	"github.com/crosstalk-dev/crosstalk/pkg/routing"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Authentication happens at the event level; the upgrade is open.
	CheckOrigin: func(*http.Request) bool { return true },
}

// Handler upgrades HTTP requests to websocket connections and runs the read
// loop for each of them.
func Handler(router *routing.Router) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logrus.WithError(err).Warn("websocket upgrade failed")
			return
		}

		peer := newPeer(conn)
		peer.logger.Info("client connected")
		go peer.readPump(router)
	}
}

// readPump reads frames until the connection dies, dispatching each decoded
// envelope to the router. Malformed frames and handler panics are reported
// on the socket and logged; neither closes the connection.
func (p *Peer) readPump(router *routing.Router) {
	defer func() {
		router.HandleDisconnect(p)
		p.Close()
		p.logger.Info("client disconnected")
	}()

	p.conn.SetReadLimit(maxMessageSize)
	_ = p.conn.SetReadDeadline(time.Now().Add(pongWait))
	p.conn.SetPongHandler(func(string) error {
		return p.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := p.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				p.logger.WithError(err).Warn("read failed")
			}
			return
		}

		var envelope event.Envelope
		if err := json.Unmarshal(data, &envelope); err != nil {
			p.logger.WithError(err).Warn("discarding malformed frame")
			_ = p.Send(event.TypeError, event.Error{Message: "malformed frame"})
			continue
		}

		p.dispatch(router, envelope)
	}
}

// dispatch is the recovery boundary for event handlers: a panic is logged
// with its stack and the socket is kept open.
func (p *Peer) dispatch(router *routing.Router, envelope event.Envelope) {
	defer func() {
		if rec := recover(); rec != nil {
			p.logger.WithFields(logrus.Fields{
				"event": envelope.Event,
				"panic": rec,
				"stack": string(debug.Stack()),
			}).Error("panic in event handler")
		}
	}()

	router.HandleEvent(p, envelope)
}

// Package event defines the wire protocol spoken over the websocket
// transport: event names in both directions and the JSON payloads that go
// with them. SDP and ICE payloads are opaque to the server and are carried
// as raw JSON so that they are forwarded byte-for-byte.
package event

import "encoding/json"

// Events sent by clients.
const (
	TypeRegister     = "register"
	TypeUserStatus   = "user_status"
	TypeCallInitiate = "call_initiate"
	TypeCallAccept   = "call_accept"
	TypeCallReject   = "call_reject"
	TypeCallEnd      = "call_end"
	TypeUserReady    = "user_ready"
	TypeWebRTCOffer  = "webrtc_offer"
	TypeWebRTCAnswer = "webrtc_answer"
	TypeICECandidate = "ice_candidate"
)

// Events sent by the server. The WebRTC events above are used in both
// directions: forwarded signals keep their original name.
const (
	TypeRegistered      = "registered"
	TypeError           = "error"
	TypeForceDisconnect = "force_disconnect"
	TypeIncomingCall    = "incoming_call"
	TypeCallRinging     = "call_ringing"
	TypeCallBusy        = "call_busy"
	TypeCallAccepted    = "call_accepted"
	TypeCallRejected    = "call_rejected"
	TypeCallTimeout     = "call_timeout"
	TypeCallEnded       = "call_ended"
	TypeStartSignaling  = "start_signaling"
)

// Envelope is a single frame on the wire, in either direction.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

package event

import "encoding/json"

// Client → server payloads.

type Register struct {
	UserID string `json:"userId"`
}

type UserStatus struct {
	UserID string `json:"userId"`
	Status string `json:"status"`
}

// CallInitiate doubles as the content of the `incoming_call` event sent to
// the receiver: the receiver sees the full initiate payload.
type CallInitiate struct {
	CallID      string          `json:"callId"`
	CallerID    string          `json:"callerId"`
	ReceiverIDs []string        `json:"receiverIds"`
	CallType    string          `json:"callType,omitempty"`
	ExtraMeta   json.RawMessage `json:"extraMeta,omitempty"`
}

type CallAccept struct {
	CallID     string `json:"callId"`
	ReceiverID string `json:"receiverId"`
}

type CallReject struct {
	CallID string `json:"callId"`
	UserID string `json:"userId"`
}

type CallEnd struct {
	CallID string `json:"callId"`
	UserID string `json:"userId"`
}

type UserReady struct {
	CallID string `json:"callId"`
	UserID string `json:"userId"`
}

// Signal carries an SDP offer, an SDP answer or an ICE candidate between two
// participants of a call. Exactly one of SDP and Candidate is set, depending
// on the event name. Both are opaque to the server.
type Signal struct {
	CallID    string          `json:"callId"`
	From      string          `json:"from"`
	To        string          `json:"to,omitempty"`
	SDP       json.RawMessage `json:"sdp,omitempty"`
	Candidate json.RawMessage `json:"candidate,omitempty"`
}

// Stripped returns a copy of the signal without the routing-only `to` field,
// which is the form delivered to the recipient. The SDP/candidate bytes are
// passed through untouched.
func (s Signal) Stripped() Signal {
	s.To = ""
	return s
}

// Server → client payloads.

type Registered struct {
	Success bool `json:"success"`
}

type Error struct {
	Message string `json:"message"`
}

type ForceDisconnect struct {
	Message string `json:"message"`
}

type CallRinging struct {
	CallID     string `json:"callId"`
	ReceiverID string `json:"receiverId"`
}

type CallBusy struct {
	CallID     string `json:"callId"`
	ReceiverID string `json:"receiverId"`
}

type CallAccepted struct {
	CallID     string `json:"callId"`
	ReceiverID string `json:"receiverId"`
}

type CallRejected struct {
	CallID string `json:"callId"`
	UserID string `json:"userId"`
}

type CallTimeout struct {
	CallID string `json:"callId"`
	Reason string `json:"reason"`
}

type CallEnded struct {
	CallID string `json:"callId"`
	UserID string `json:"userId"`
	Reason string `json:"reason"`
}

type StartSignaling struct {
	CallID string `json:"callId"`
}

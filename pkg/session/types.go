// Package session implements the call session manager: the in-memory state
// that ties together connected users, their presence, active calls and the
// routing of opaque WebRTC signaling payloads between call participants.
//
// All state is owned by a single goroutine (the manager's main loop); every
// external entry point posts a message into that loop. Timers and the sweeper
// feed the same loop, so the state tables never need locking.
package session

// PresenceStatus describes the manager's view of a user's availability,
// independent of transport liveness.
type PresenceStatus string

const (
	StatusOffline   PresenceStatus = "offline"
	StatusAvailable PresenceStatus = "available"
	StatusRinging   PresenceStatus = "ringing"
	StatusBusy      PresenceStatus = "busy"
	StatusInCall    PresenceStatus = "in-call"
)

// CallStatus is the lifecycle state of a registered call. Terminated calls
// are never stored: terminal transitions remove the record from the registry.
type CallStatus string

const (
	CallInitiated CallStatus = "initiated"
	CallActive    CallStatus = "active"
)

// Channel is the transport-side handle for one connected client. At most one
// live channel is bound per user id. Send must not block the caller: a
// transport that cannot buffer the event drops it.
type Channel interface {
	// ID is the transport-assigned connection id, distinct from the user id.
	ID() string
	// Send emits a named event with a payload to the client.
	Send(event string, payload any) error
	// Close tears the connection down.
	Close()
}

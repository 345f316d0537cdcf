package session

import (
	"golang.org/x/exp/slices"
)

// Snapshot is a consistent view of the manager's state, exposed via the
// health endpoint.
type Snapshot struct {
	ConnectedUsers []string                    `json:"connectedUsers"`
	ActiveCalls    []CallSnapshot              `json:"activeCalls"`
	Presence       map[string]PresenceSnapshot `json:"presence"`
}

type CallSnapshot struct {
	ID                string     `json:"id"`
	Participants      []string   `json:"participants"`
	Status            CallStatus `json:"status"`
	BoundParticipants []string   `json:"boundParticipants"`
}

type PresenceSnapshot struct {
	Status PresenceStatus `json:"status"`
	CallID string         `json:"callId,omitempty"`
}

func (m *Manager) snapshot() Snapshot {
	calls := make([]CallSnapshot, 0, len(m.registry.calls))
	m.registry.each(func(c *call) {
		calls = append(calls, CallSnapshot{
			ID:                c.id,
			Participants:      slices.Clone(c.participants),
			Status:            c.status,
			BoundParticipants: c.boundParticipants(),
		})
	})
	slices.SortFunc(calls, func(a, b CallSnapshot) bool { return a.ID < b.ID })

	presence := make(map[string]PresenceSnapshot)
	for userID, entry := range m.presence.snapshot() {
		presence[userID] = PresenceSnapshot{Status: entry.Status, CallID: entry.CallID}
	}

	return Snapshot{
		ConnectedUsers: m.directory.connectedUsers(),
		ActiveCalls:    calls,
		Presence:       presence,
	}
}

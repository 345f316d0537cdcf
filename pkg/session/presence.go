package session

// presenceEntry is a user's availability and, for ringing/busy/in-call
// states, the call the user is attached to.
type presenceEntry struct {
	Status PresenceStatus
	CallID string
}

// presenceTable maps user id → presence. Users without an entry are offline.
// Only the manager's main loop touches it.
type presenceTable struct {
	entries map[string]presenceEntry
}

func newPresenceTable() *presenceTable {
	return &presenceTable{entries: make(map[string]presenceEntry)}
}

func (p *presenceTable) get(userID string) presenceEntry {
	if entry, ok := p.entries[userID]; ok {
		return entry
	}
	return presenceEntry{Status: StatusOffline}
}

// set records the presence of a user. Statuses without a call clear the call
// reference so that the available/offline invariant holds by construction.
func (p *presenceTable) set(userID string, status PresenceStatus, callID string) {
	if status == StatusAvailable || status == StatusOffline {
		callID = ""
	}
	p.entries[userID] = presenceEntry{Status: status, CallID: callID}
}

// inLiveCall reports whether the user's presence currently names a call.
func (p *presenceTable) inLiveCall(userID string) (string, bool) {
	entry := p.get(userID)
	switch entry.Status {
	case StatusRinging, StatusBusy, StatusInCall:
		return entry.CallID, entry.CallID != ""
	default:
		return "", false
	}
}

func (p *presenceTable) snapshot() map[string]presenceEntry {
	out := make(map[string]presenceEntry, len(p.entries))
	for userID, entry := range p.entries {
		out[userID] = entry
	}
	return out
}

package session

import (
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// directory is the authoritative mapping of user id → live channel, plus the
// reverse mapping of connection id → user id. It is only ever touched by the
// manager's main loop.
type directory struct {
	channels map[string]Channel
	users    map[string]string
}

func newDirectory() *directory {
	return &directory{
		channels: make(map[string]Channel),
		users:    make(map[string]string),
	}
}

// bind installs the channel for the user and returns the previously bound
// channel, if there was a different one. A channel that was bound to another
// user sheds that binding first, so a connection id never maps to two users.
func (d *directory) bind(userID string, ch Channel) Channel {
	old := d.channels[userID]
	if old != nil && old.ID() == ch.ID() {
		return nil
	}

	if prev, ok := d.users[ch.ID()]; ok && prev != userID {
		delete(d.channels, prev)
	}

	if old != nil {
		delete(d.users, old.ID())
	}

	d.channels[userID] = ch
	d.users[ch.ID()] = userID
	return old
}

// resolve returns the live channel for the user, or nil.
func (d *directory) resolve(userID string) Channel {
	return d.channels[userID]
}

// userOf returns the user bound to the given connection id, if any.
func (d *directory) userOf(connID string) (string, bool) {
	userID, ok := d.users[connID]
	return userID, ok
}

// unbind removes the mapping for the closing channel, but only if it is still
// the bound one: a re-registration may have superseded it already. Returns
// the user the channel was bound to.
func (d *directory) unbind(ch Channel) (string, bool) {
	userID, ok := d.users[ch.ID()]
	if !ok {
		return "", false
	}

	delete(d.users, ch.ID())
	if bound := d.channels[userID]; bound != nil && bound.ID() == ch.ID() {
		delete(d.channels, userID)
		return userID, true
	}

	return "", false
}

// connectedUsers returns the sorted ids of all currently bound users.
func (d *directory) connectedUsers() []string {
	users := maps.Keys(d.channels)
	slices.Sort(users)
	return users
}

package session

import (
	"encoding/json"
	"time"

	"github.com/crosstalk-dev/crosstalk/pkg/telemetry"
	"golang.org/x/exp/slices"
)

// bufferedCandidate is an ICE candidate retained for observability and
// retransmission, trimmed by the sweeper after the candidate TTL.
type bufferedCandidate struct {
	From      string
	Candidate json.RawMessage
	At        time.Time
}

// call is a single registered call. The channels map is a cache of the
// channel each participant had when it joined; it may lag behind the user
// directory, so lookups always validate against the directory before use.
type call struct {
	id          string
	callerID    string
	receiverIDs []string
	callType    string
	extraMeta   json.RawMessage

	participants []string
	channels     map[string]Channel
	status       CallStatus

	offerAttempts int
	lastOfferAt   time.Time

	iceBuffers map[string][]bufferedCandidate

	// trace spans the whole call; signaling is its child covering the time
	// from accept to termination.
	trace     *telemetry.Telemetry
	signaling *telemetry.Telemetry
}

func (c *call) hasParticipant(userID string) bool {
	return slices.Contains(c.participants, userID)
}

// addParticipant appends the user to the ordered participant set, keeping it
// free of duplicates.
func (c *call) addParticipant(userID string) {
	if !c.hasParticipant(userID) {
		c.participants = append(c.participants, userID)
	}
}

// removeParticipant detaches the user from the call entirely: participant
// set, channel binding and ICE buffer.
func (c *call) removeParticipant(userID string) {
	if i := slices.Index(c.participants, userID); i >= 0 {
		c.participants = slices.Delete(c.participants, i, i+1)
	}
	delete(c.channels, userID)
	delete(c.iceBuffers, userID)
}

func (c *call) bindChannel(userID string, ch Channel) {
	if ch != nil {
		c.channels[userID] = ch
	}
}

// boundParticipants returns the participants that currently have a cached
// channel, in participant order.
func (c *call) boundParticipants() []string {
	bound := make([]string, 0, len(c.channels))
	for _, userID := range c.participants {
		if c.channels[userID] != nil {
			bound = append(bound, userID)
		}
	}
	return bound
}

// everyParticipantBound reports whether all participants have a channel.
func (c *call) everyParticipantBound() bool {
	for _, userID := range c.participants {
		if c.channels[userID] == nil {
			return false
		}
	}
	return len(c.participants) > 0
}

func (c *call) bufferCandidate(to, from string, candidate json.RawMessage, now time.Time) {
	c.iceBuffers[to] = append(c.iceBuffers[to], bufferedCandidate{
		From:      from,
		Candidate: candidate,
		At:        now,
	})
}

// trimCandidates drops buffered candidates older than ttl.
func (c *call) trimCandidates(now time.Time, ttl time.Duration) {
	for userID, buffer := range c.iceBuffers {
		kept := buffer[:0]
		for _, entry := range buffer {
			if now.Sub(entry.At) <= ttl {
				kept = append(kept, entry)
			}
		}
		if len(kept) == 0 {
			delete(c.iceBuffers, userID)
			continue
		}
		c.iceBuffers[userID] = kept
	}
}

// registry maps call id → call record. Terminated calls are removed, never
// stored.
type registry struct {
	calls map[string]*call
}

func newRegistry() *registry {
	return &registry{calls: make(map[string]*call)}
}

func (r *registry) get(callID string) *call {
	return r.calls[callID]
}

func (r *registry) put(c *call) {
	r.calls[c.id] = c
}

func (r *registry) remove(callID string) {
	delete(r.calls, callID)
}

func (r *registry) each(fn func(*call)) {
	for _, c := range r.calls {
		fn(c)
	}
}

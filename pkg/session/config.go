package session

import "time"

// Config holds the wire-visible timeouts of the session manager.
type Config struct {
	// How long a call may stay unanswered before it times out.
	NoAnswerTimeout time.Duration
	// How long an offer may go unanswered before the sweeper ends the call.
	OfferStallTimeout time.Duration
	// How long buffered ICE candidates are retained.
	CandidateTTL time.Duration
	// How often the sweeper runs.
	SweepInterval time.Duration
}

// DefaultConfig returns the stock timeouts.
func DefaultConfig() Config {
	return Config{
		NoAnswerTimeout:   60 * time.Second,
		OfferStallTimeout: 10 * time.Second,
		CandidateTTL:      60 * time.Second,
		SweepInterval:     5 * time.Second,
	}
}

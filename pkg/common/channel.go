package common

import "sync/atomic"

// NewChannel creates a bounded channel and returns its two counterparts, where
// one can only send and the other can only receive. Unlike a plain Go channel,
// the receiver may mark the channel as closed, after which sends hand the
// message back to the caller instead of delivering it.
func NewChannel[M any](capacity int) (Sender[M], Receiver[M]) {
	channel := make(chan M, capacity)
	closed := &atomic.Bool{}
	sender := Sender[M]{channel, closed}
	receiver := Receiver[M]{channel, closed}
	return sender, receiver
}

type Sender[M any] struct {
	channel        chan<- M
	receiverClosed *atomic.Bool
}

// Send delivers the message unless the receiver has closed the channel.
// Returns the message back to the caller if the receiver is gone.
func (s *Sender[M]) Send(message M) *M {
	if s.receiverClosed.Load() {
		return &message
	}

	s.channel <- message
	return nil
}

// TrySend is like Send but never blocks: if the channel is full or the
// receiver is gone, the message is returned to the caller.
func (s *Sender[M]) TrySend(message M) *M {
	if s.receiverClosed.Load() {
		return &message
	}

	select {
	case s.channel <- message:
		return nil
	default:
		return &message
	}
}

type Receiver[M any] struct {
	Channel        <-chan M
	receiverClosed *atomic.Bool
}

// Close marks the channel as closed for the senders. Messages that are already
// buffered remain readable from `Channel`.
func (r *Receiver[M]) Close() {
	r.receiverClosed.Store(true)
}

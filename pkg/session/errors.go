package session

import "errors"

// Errors surfaced to clients via the `error` event. The error text is the
// wire-visible message.
var (
	ErrInvalidUser          = errors.New("invalid_user")
	ErrInvalidCallData      = errors.New("invalid_call_data")
	ErrCallerNotConnected   = errors.New("caller_not_connected")
	ErrCallNotFound         = errors.New("call_not_found")
	ErrReceiverNotConnected = errors.New("receiver_not_connected")
	ErrInvalidReceiver      = errors.New("invalid_receiver")
)

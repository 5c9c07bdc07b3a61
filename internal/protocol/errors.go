package protocol

import (
	"errors"
	"fmt"
)

// Error codes for the session error taxonomy. They appear in logs and in the
// session event stream; nothing is ever sent back to a requester.
const (
	// Decode-time structural failure; the message is dropped.
	ErrMalformedMessage = "E_MALFORMED_MESSAGE"

	// A request referenced a missing player/node, was out of range, unaffordable
	// or already maxed. Ignored silently.
	ErrValidationRejected = "E_VALIDATION_REJECTED"

	// Send/receive failure; forces a full session reset.
	ErrTransportFault = "E_TRANSPORT_FAULT"

	// Unreachable through valid operations; only checked by debug assertions.
	ErrInvariant = "E_INVARIANT"
)

var knownCodes = map[string]struct{}{
	ErrMalformedMessage:   {},
	ErrValidationRejected: {},
	ErrTransportFault:     {},
	ErrInvariant:          {},
}

func IsKnownCode(code string) bool {
	if code == "" {
		return true
	}
	_, ok := knownCodes[code]
	return ok
}

// ErrMalformed is wrapped by every *MalformedError.
var ErrMalformed = errors.New("malformed message")

// MalformedError describes why a buffer could not be decoded.
type MalformedError struct {
	Kind   Kind
	Offset int
	Reason string
}

func (e *MalformedError) Error() string {
	if !e.Kind.Valid() {
		return fmt.Sprintf("malformed message: %s", e.Reason)
	}
	return fmt.Sprintf("malformed %s message at byte %d: %s", e.Kind, e.Offset, e.Reason)
}

func (e *MalformedError) Unwrap() error { return ErrMalformed }

func (e *MalformedError) Code() string { return ErrMalformedMessage }

package room

import (
	"errors"

	"tilekeep/pkg/mapgrid"
)

// RejectReason identifies why a raw input message was not accepted.
type RejectReason string

const (
	RejectMalformed RejectReason = "malformed"
	RejectNoPlayer  RejectReason = "no-player"
	RejectStale     RejectReason = "stale"
)

var (
	// ErrMalformed means sequenceNumber or direction failed shape checks.
	ErrMalformed = errors.New("room: malformed input")
	// ErrNoPlayer means the session has no PlayerRecord in state, most
	// likely a race with onLeave.
	ErrNoPlayer = errors.New("room: no player for session")
	// ErrStale means sequenceNumber does not exceed the player's last
	// processed sequence.
	ErrStale = errors.New("room: stale sequence number")
)

// RawInput is the wire shape of a client INPUT message before validation.
type RawInput struct {
	SequenceNumber int
	Direction      string
}

// Validator checks a RawInput's shape and sequence-number freshness
// against a player's last processed sequence. It holds no state of its
// own; the session's presence and last processed sequence come from the
// room's State, passed in per call.
type Validator struct{}

// NewValidator returns a stateless input validator.
func NewValidator() *Validator {
	return &Validator{}
}

// Validate returns the accepted InputMessage, or an error identifying why
// the input was rejected. lastProcessed is the player's current
// lastProcessedSequenceNumber; knownSession reports whether the session
// currently has a PlayerRecord in state.
func (v *Validator) Validate(raw RawInput, knownSession bool, lastProcessed int) (InputMessage, error) {
	if raw.SequenceNumber <= 0 {
		return InputMessage{}, ErrMalformed
	}
	if !mapgrid.Direction(raw.Direction).Valid() {
		return InputMessage{}, ErrMalformed
	}
	if !knownSession {
		return InputMessage{}, ErrNoPlayer
	}
	if raw.SequenceNumber <= lastProcessed {
		return InputMessage{}, ErrStale
	}
	return InputMessage{SequenceNumber: raw.SequenceNumber, Direction: raw.Direction}, nil
}

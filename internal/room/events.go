package room

import "encoding/json"

// SignalKind tags a relayed negotiation message. Payloads are opaque; the
// coordinator never parses SDP or ICE candidate contents.
type SignalKind string

const (
	SignalOffer     SignalKind = "offer"
	SignalAnswer    SignalKind = "answer"
	SignalCandidate SignalKind = "candidate"
)

// ParseSignalKind maps a wire type string to a SignalKind.
func ParseSignalKind(s string) (SignalKind, bool) {
	switch SignalKind(s) {
	case SignalOffer, SignalAnswer, SignalCandidate:
		return SignalKind(s), true
	}
	return "", false
}

// Event is an outbound message produced by a roster transition or a relay.
// Writing it to the transport is a side effect performed by the
// participant's Sender; the coordinator never blocks on delivery.
type Event interface{ event() }

// Joined is delivered once, to the joining participant only. Participants
// holds the roster as it was before the join, so the receiver never sees
// its own entry; it is the sole initiator toward every entry listed.
type Joined struct {
	Room         string
	Self         Info
	Participants []Info
}

// PeerJoined is broadcast to the members that were present before a join.
// Recipients take no initiating action; the new peer's offer will follow.
type PeerJoined struct {
	Room        string
	Participant Info
}

// PeerLeft is broadcast to the members remaining after a leave, so each
// can tear down its peer link to the departed participant.
type PeerLeft struct {
	Room          string
	ParticipantID string
}

// Signal is a negotiation message relayed verbatim to one recipient.
type Signal struct {
	Room    string
	Kind    SignalKind
	From    string
	To      string
	Payload json.RawMessage
}

func (Joined) event()     {}
func (PeerJoined) event() {}
func (PeerLeft) event()   {}
func (Signal) event()     {}

// Sender delivers events to one participant's transport session.
//
// Send must not block. Implementations enqueue and report false when the
// session is gone or its queue is full (slow consumer). A false return is
// informational only; membership changes exclusively through Leave.
type Sender interface {
	Send(ev Event) bool
}

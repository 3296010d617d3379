package client

import (
	"encoding/json"
	"time"
)

// Wire message types exchanged with the signaling server.
const (
	TypeCreate      = "create"
	TypeJoin        = "join"
	TypeLeave       = "leave"
	TypeOffer       = "offer"
	TypeAnswer      = "answer"
	TypeCandidate   = "candidate"
	TypeRoomCreated = "room_created"
	TypeRoomJoined  = "room_joined"
	TypePeerJoined  = "peer_joined"
	TypePeerLeft    = "peer_left"
	TypeError       = "error"
)

// PeerInfo describes a room participant as reported by the server.
type PeerInfo struct {
	ID       string    `json:"id"`
	Name     string    `json:"name,omitempty"`
	Role     string    `json:"role"`
	JoinedAt time.Time `json:"joined_at"`
}

// Message is the envelope for every frame on the signaling socket. Fields
// are populated per type; unused fields are omitted on the wire.
type Message struct {
	Type string `json:"type"`
	Room string `json:"room,omitempty"`
	From string `json:"from,omitempty"`
	To   string `json:"to,omitempty"`

	Name string `json:"name,omitempty"`
	Role string `json:"role,omitempty"`

	// Self is this client's server-assigned participant ID, sent once in
	// the room_joined frame.
	Self         string     `json:"self,omitempty"`
	Participant  *PeerInfo  `json:"participant,omitempty"`
	Participants []PeerInfo `json:"participants,omitempty"`

	Payload json.RawMessage `json:"payload,omitempty"`

	Code   string `json:"code,omitempty"`
	Detail string `json:"message,omitempty"`
}

// sdpPayload carries a session description inside an offer or answer frame.
type sdpPayload struct {
	Type string `json:"type"`
	SDP  string `json:"sdp"`
}

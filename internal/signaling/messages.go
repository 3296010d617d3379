package signaling

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/quorumcall/mesh-signaling/internal/room"
)

type messageType string

const (
	// Client -> server.
	messageTypeCreate messageType = "create"
	messageTypeJoin   messageType = "join"
	messageTypeLeave  messageType = "leave"

	// Both directions: the server stamps From and relays verbatim.
	messageTypeOffer     messageType = "offer"
	messageTypeAnswer    messageType = "answer"
	messageTypeCandidate messageType = "candidate"

	// Server -> client.
	messageTypeRoomCreated messageType = "room_created"
	messageTypeRoomJoined  messageType = "room_joined"
	messageTypePeerJoined  messageType = "peer_joined"
	messageTypePeerLeft    messageType = "peer_left"
	messageTypeError       messageType = "error"
)

// Error codes carried by error messages. Stable; clients switch on them.
const (
	errCodeBadMessage       = "bad_message"
	errCodeRoomNotFound     = "room_not_found"
	errCodeRoomFull         = "room_full"
	errCodeTooManyRooms     = "too_many_rooms"
	errCodeAlreadyJoined    = "already_joined"
	errCodeNotJoined        = "not_joined"
	errCodeUnknownRecipient = "unknown_recipient"
	errCodeSelfTarget       = "self_target"
)

type participantInfo struct {
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	Role     string    `json:"role"`
	JoinedAt time.Time `json:"joined_at"`
}

func participantInfoFromRoom(info room.Info) participantInfo {
	return participantInfo{
		ID:       info.ID,
		Name:     info.Name,
		Role:     string(info.Role),
		JoinedAt: info.JoinedAt,
	}
}

type signalMessage struct {
	Type messageType `json:"type"`

	Room string `json:"room,omitempty"`
	From string `json:"from,omitempty"`
	To   string `json:"to,omitempty"`

	// Join fields.
	Name string `json:"name,omitempty"`
	Role string `json:"role,omitempty"`

	// Server -> client roster fields.
	Self         string            `json:"self,omitempty"`
	Participant  *participantInfo  `json:"participant,omitempty"`
	Participants []participantInfo `json:"participants,omitempty"`

	// Opaque negotiation payload, relayed untouched.
	Payload json.RawMessage `json:"payload,omitempty"`

	// Error fields.
	Code    string `json:"code,omitempty"`
	Message string `json:"message,omitempty"`
}

func parseClientMessage(data []byte) (signalMessage, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()

	var msg signalMessage
	if err := dec.Decode(&msg); err != nil {
		return signalMessage{}, err
	}
	if err := msg.validateClient(); err != nil {
		return signalMessage{}, err
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return signalMessage{}, fmt.Errorf("unexpected trailing data")
	}
	return msg, nil
}

func (m signalMessage) validateClient() error {
	switch m.Type {
	case messageTypeCreate:
		if m.Name == "" {
			return fmt.Errorf("create message missing name")
		}
		if _, ok := room.ParseRole(m.Role); !ok {
			return fmt.Errorf("create message has unsupported role %q", m.Role)
		}
		if m.Room != "" || m.From != "" || m.To != "" || m.Payload != nil || m.hasServerFields() {
			return fmt.Errorf("create message has unexpected fields")
		}
	case messageTypeJoin:
		if m.Room == "" {
			return fmt.Errorf("join message missing room")
		}
		if m.Name == "" {
			return fmt.Errorf("join message missing name")
		}
		if _, ok := room.ParseRole(m.Role); !ok {
			return fmt.Errorf("join message has unsupported role %q", m.Role)
		}
		if m.From != "" || m.To != "" || m.Payload != nil || m.hasServerFields() {
			return fmt.Errorf("join message has unexpected fields")
		}
	case messageTypeLeave:
		if m.Room != "" || m.From != "" || m.To != "" || m.Name != "" || m.Role != "" || m.Payload != nil || m.hasServerFields() {
			return fmt.Errorf("leave message has unexpected fields")
		}
	case messageTypeOffer, messageTypeAnswer, messageTypeCandidate:
		if m.To == "" {
			return fmt.Errorf("%s message missing to", m.Type)
		}
		if len(m.Payload) == 0 {
			return fmt.Errorf("%s message missing payload", m.Type)
		}
		// From is stamped server-side; clients cannot spoof a sender.
		if m.From != "" || m.Room != "" || m.Name != "" || m.Role != "" || m.hasServerFields() {
			return fmt.Errorf("%s message has unexpected fields", m.Type)
		}
	default:
		return fmt.Errorf("unsupported message type %q", m.Type)
	}
	return nil
}

func (m signalMessage) hasServerFields() bool {
	return m.Self != "" || m.Participant != nil || len(m.Participants) > 0 || m.Code != "" || m.Message != ""
}

// eventToWire converts a coordinator event into its wire representation.
func eventToWire(ev room.Event) signalMessage {
	switch ev := ev.(type) {
	case room.Joined:
		infos := make([]participantInfo, 0, len(ev.Participants))
		for _, p := range ev.Participants {
			infos = append(infos, participantInfoFromRoom(p))
		}
		return signalMessage{
			Type:         messageTypeRoomJoined,
			Room:         ev.Room,
			Self:         ev.Self.ID,
			Participants: infos,
		}
	case room.PeerJoined:
		info := participantInfoFromRoom(ev.Participant)
		return signalMessage{
			Type:        messageTypePeerJoined,
			Room:        ev.Room,
			Participant: &info,
		}
	case room.PeerLeft:
		return signalMessage{
			Type: messageTypePeerLeft,
			Room: ev.Room,
			From: ev.ParticipantID,
		}
	case room.Signal:
		return signalMessage{
			Type:    messageType(ev.Kind),
			Room:    ev.Room,
			From:    ev.From,
			To:      ev.To,
			Payload: ev.Payload,
		}
	default:
		// All coordinator events are enumerated above.
		panic(fmt.Sprintf("unhandled event type %T", ev))
	}
}

func errorMessage(code, msg string) signalMessage {
	return signalMessage{Type: messageTypeError, Code: code, Message: msg}
}

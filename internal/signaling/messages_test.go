package signaling

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/quorumcall/mesh-signaling/internal/room"
)

func TestParseClientMessageValid(t *testing.T) {
	cases := []string{
		`{"type":"create","name":"alice"}`,
		`{"type":"create","name":"alice","role":"host"}`,
		`{"type":"join","room":"feedc0de","name":"bob"}`,
		`{"type":"join","room":"feedc0de","name":"bob","role":"guest"}`,
		`{"type":"leave"}`,
		`{"type":"offer","to":"p1","payload":{"sdp":"v=0..."}}`,
		`{"type":"answer","to":"p1","payload":{"sdp":"v=0..."}}`,
		`{"type":"candidate","to":"p1","payload":{"candidate":"..."}}`,
	}
	for _, raw := range cases {
		if _, err := parseClientMessage([]byte(raw)); err != nil {
			t.Fatalf("parse %s: %v", raw, err)
		}
	}
}

func TestParseClientMessageInvalid(t *testing.T) {
	cases := []struct {
		raw  string
		want string
	}{
		{`{"type":"create"}`, "missing name"},
		{`{"type":"create","name":"a","role":"admin"}`, "unsupported role"},
		{`{"type":"create","name":"a","room":"x"}`, "unexpected fields"},
		{`{"type":"join","name":"a"}`, "missing room"},
		{`{"type":"join","room":"x"}`, "missing name"},
		{`{"type":"leave","room":"x"}`, "unexpected fields"},
		{`{"type":"offer","payload":{}}`, "missing to"},
		{`{"type":"offer","to":"p1"}`, "missing payload"},
		{`{"type":"offer","to":"p1","from":"p2","payload":{}}`, "unexpected fields"},
		{`{"type":"offer","to":"p1","payload":{},"self":"p9"}`, "unexpected fields"},
		{`{"type":"hello"}`, "unsupported message type"},
		{`{"type":"join","room":"x","name":"a","extra":1}`, "unknown field"},
		{`{"type":"leave"}{"type":"leave"}`, "trailing data"},
		{`not json`, "invalid character"},
	}
	for _, tc := range cases {
		_, err := parseClientMessage([]byte(tc.raw))
		if err == nil {
			t.Fatalf("parse accepted %s", tc.raw)
		}
		if !strings.Contains(err.Error(), tc.want) {
			t.Fatalf("parse %s: got %q want substring %q", tc.raw, err, tc.want)
		}
	}
}

func TestParseClientMessageDoesNotInspectPayload(t *testing.T) {
	raw := `{"type":"offer","to":"p1","payload":{"anything":["goes",42],"sdp":false}}`
	msg, err := parseClientMessage([]byte(raw))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if string(msg.Payload) != `{"anything":["goes",42],"sdp":false}` {
		t.Fatalf("payload not preserved verbatim: %s", msg.Payload)
	}
}

func TestEventToWire(t *testing.T) {
	at := time.Unix(1700000000, 0).UTC()
	joined := eventToWire(room.Joined{
		Room: "feedc0de",
		Self: room.Info{ID: "p2", Name: "bob", Role: room.RoleGuest, JoinedAt: at},
		Participants: []room.Info{
			{ID: "p1", Name: "alice", Role: room.RoleHost, JoinedAt: at},
		},
	})
	if joined.Type != messageTypeRoomJoined || joined.Self != "p2" {
		t.Fatalf("joined wire: %+v", joined)
	}
	if len(joined.Participants) != 1 || joined.Participants[0].ID != "p1" || joined.Participants[0].Role != "host" {
		t.Fatalf("joined participants: %+v", joined.Participants)
	}

	left := eventToWire(room.PeerLeft{Room: "feedc0de", ParticipantID: "p1"})
	if left.Type != messageTypePeerLeft || left.From != "p1" {
		t.Fatalf("left wire: %+v", left)
	}

	sig := eventToWire(room.Signal{
		Room: "feedc0de", Kind: room.SignalOffer,
		From: "p2", To: "p1", Payload: json.RawMessage(`{"sdp":"x"}`),
	})
	if sig.Type != messageTypeOffer || sig.From != "p2" || sig.To != "p1" {
		t.Fatalf("signal wire: %+v", sig)
	}
	if string(sig.Payload) != `{"sdp":"x"}` {
		t.Fatalf("signal payload: %s", sig.Payload)
	}
}

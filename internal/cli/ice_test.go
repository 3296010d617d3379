package cli

import "testing"

func TestICEServersFromFlags(t *testing.T) {
	if got := iceServersFromFlags(nil, nil, "", ""); got != nil {
		t.Fatalf("expected nil for no flags, got %+v", got)
	}

	stunOnly := iceServersFromFlags([]string{"stun:a:3478", "stun:b:3478"}, nil, "", "")
	if len(stunOnly) != 1 || len(stunOnly[0].URLs) != 2 {
		t.Fatalf("unexpected stun servers: %+v", stunOnly)
	}

	both := iceServersFromFlags([]string{"stun:a:3478"}, []string{"turn:t:3478"}, "user", "pass")
	if len(both) != 2 {
		t.Fatalf("expected stun and turn entries, got %+v", both)
	}
	if both[1].Username != "user" || both[1].Credential != "pass" {
		t.Fatalf("turn credentials not carried: %+v", both[1])
	}
}

func TestShortID(t *testing.T) {
	if got := shortID("0123456789abcdef"); got != "01234567" {
		t.Fatalf("got %q", got)
	}
	if got := shortID("abc"); got != "abc" {
		t.Fatalf("got %q", got)
	}
}

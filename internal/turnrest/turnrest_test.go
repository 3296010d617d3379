package turnrest

import (
	"crypto/hmac"
	"crypto/sha1"
	"encoding/base64"
	"strings"
	"testing"
	"time"
)

func fixedNow() time.Time {
	return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
}

func newTestGenerator(t *testing.T) *Generator {
	t.Helper()
	g, err := New(Config{
		SharedSecret:   "north-remembers",
		TTL:            time.Hour,
		UsernamePrefix: "mesh",
		Now:            fixedNow,
	})
	if err != nil {
		t.Fatalf("new generator: %v", err)
	}
	return g
}

func TestMint(t *testing.T) {
	g := newTestGenerator(t)

	creds, err := g.Mint("session-1")
	if err != nil {
		t.Fatalf("mint: %v", err)
	}

	wantExpiry := fixedNow().Add(time.Hour)
	if !creds.ExpiresAt.Equal(wantExpiry) {
		t.Fatalf("expiry = %v, want %v", creds.ExpiresAt, wantExpiry)
	}

	parts := strings.SplitN(creds.Username, ":", 3)
	if len(parts) != 3 || parts[1] != "mesh" || parts[2] != "session-1" {
		t.Fatalf("unexpected username %q", creds.Username)
	}

	// The credential must verify against the same secret, the way the TURN
	// server will recompute it.
	mac := hmac.New(sha1.New, []byte("north-remembers"))
	mac.Write([]byte(creds.Username))
	want := base64.StdEncoding.EncodeToString(mac.Sum(nil))
	if creds.Credential != want {
		t.Fatalf("credential = %q, want %q", creds.Credential, want)
	}
}

func TestMintAnonymousUnique(t *testing.T) {
	g := newTestGenerator(t)

	a, err := g.MintAnonymous()
	if err != nil {
		t.Fatalf("mint: %v", err)
	}
	b, err := g.MintAnonymous()
	if err != nil {
		t.Fatalf("mint: %v", err)
	}
	if a.Username == b.Username {
		t.Fatalf("anonymous usernames collided: %q", a.Username)
	}
}

func TestMintRejectsColons(t *testing.T) {
	g := newTestGenerator(t)
	if _, err := g.Mint("a:b"); err == nil {
		t.Fatal("expected error for session ID with colon")
	}
	if _, err := g.Mint(""); err == nil {
		t.Fatal("expected error for empty session ID")
	}
}

func TestNewValidation(t *testing.T) {
	cases := []Config{
		{TTL: time.Hour, UsernamePrefix: "mesh"},
		{SharedSecret: "s", UsernamePrefix: "mesh"},
		{SharedSecret: "s", TTL: time.Hour},
		{SharedSecret: "s", TTL: time.Hour, UsernamePrefix: "a:b"},
	}
	for i, cfg := range cases {
		if _, err := New(cfg); err == nil {
			t.Errorf("case %d: expected error for config %+v", i, cfg)
		}
	}
}

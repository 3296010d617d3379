// Package turnrest mints ephemeral TURN credentials compatible with
// coturn's REST API mode (draft-uberti-behave-turn-rest):
//
//	username   = <unix_expiry>:<prefix>:<session_id>
//	credential = base64(hmac_sha1(shared_secret, username))
//
// The TURN server re-derives the HMAC from the same shared secret and
// rejects usernames whose expiry has passed, so credentials need no
// server-side state or revocation.
package turnrest

import (
	"crypto/hmac"
	"crypto/sha1"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

type Config struct {
	// SharedSecret must match the TURN server's static-auth-secret.
	SharedSecret string
	// TTL is how long minted credentials stay valid.
	TTL time.Duration
	// UsernamePrefix tags minted usernames; must not contain ':'.
	UsernamePrefix string
	// Now overrides the clock in tests.
	Now func() time.Time
}

// Generator mints credentials for one shared secret.
type Generator struct {
	secret []byte
	ttl    time.Duration
	prefix string
	now    func() time.Time
}

func New(cfg Config) (*Generator, error) {
	if cfg.SharedSecret == "" {
		return nil, errors.New("shared secret is required")
	}
	if cfg.TTL <= 0 {
		return nil, errors.New("TTL must be positive")
	}
	if cfg.UsernamePrefix == "" {
		return nil, errors.New("username prefix is required")
	}
	if strings.ContainsRune(cfg.UsernamePrefix, ':') {
		return nil, errors.New("username prefix must not contain ':'")
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Generator{
		secret: []byte(cfg.SharedSecret),
		ttl:    cfg.TTL,
		prefix: cfg.UsernamePrefix,
		now:    cfg.Now,
	}, nil
}

// Credentials is one minted username/credential pair.
type Credentials struct {
	Username   string
	Credential string
	ExpiresAt  time.Time
}

// Mint derives credentials bound to the given session identifier.
func (g *Generator) Mint(sessionID string) (Credentials, error) {
	if sessionID == "" {
		return Credentials{}, errors.New("session ID is required")
	}
	if strings.ContainsRune(sessionID, ':') {
		return Credentials{}, errors.New("session ID must not contain ':'")
	}

	expiresAt := g.now().UTC().Add(g.ttl).Truncate(time.Second)
	username := fmt.Sprintf("%d:%s:%s", expiresAt.Unix(), g.prefix, sessionID)

	mac := hmac.New(sha1.New, g.secret)
	mac.Write([]byte(username))

	return Credentials{
		Username:   username,
		Credential: base64.StdEncoding.EncodeToString(mac.Sum(nil)),
		ExpiresAt:  expiresAt,
	}, nil
}

// MintAnonymous mints credentials with a random session identifier, for
// clients that have not joined a room yet.
func (g *Generator) MintAnonymous() (Credentials, error) {
	return g.Mint(uuid.NewString())
}

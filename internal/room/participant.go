package room

import (
	"time"

	"github.com/google/uuid"
)

// Role distinguishes the room creator from everyone else. It carries no
// signaling privileges: initiator selection is join-order based, never
// role based.
type Role string

const (
	RoleHost  Role = "host"
	RoleGuest Role = "guest"
)

// ParseRole maps a wire role string to a Role. An empty string means guest.
func ParseRole(s string) (Role, bool) {
	switch Role(s) {
	case RoleHost:
		return RoleHost, true
	case RoleGuest, Role(""):
		return RoleGuest, true
	}
	return "", false
}

// Participant is a live room member. Its ID is assigned at join time and is
// never reused by a later session, even one with the same display name.
type Participant struct {
	ID       string
	Name     string
	Role     Role
	JoinedAt time.Time

	sender Sender
}

func NewParticipant(name string, role Role, sender Sender) *Participant {
	return &Participant{
		ID:       uuid.NewString(),
		Name:     name,
		Role:     role,
		JoinedAt: time.Now().UTC(),
		sender:   sender,
	}
}

func (p *Participant) Info() Info {
	return Info{ID: p.ID, Name: p.Name, Role: p.Role, JoinedAt: p.JoinedAt}
}

// Info is the roster entry shared with other participants.
type Info struct {
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	Role     Role      `json:"role"`
	JoinedAt time.Time `json:"joined_at"`
}

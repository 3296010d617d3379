package room

import (
	"testing"

	"github.com/rs/zerolog"

	"github.com/quorumcall/mesh-signaling/internal/metrics"
)

func testManager(t *testing.T, cfg Config) *Manager {
	t.Helper()
	return NewManager(cfg, metrics.New(), zerolog.Nop())
}

func TestManagerLifecycle(t *testing.T) {
	mgr := testManager(t, Config{})

	r, err := mgr.CreateRoom()
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if r.Code() == "" {
		t.Fatalf("empty room code")
	}
	if mgr.RoomCount() != 1 {
		t.Fatalf("room count: got %d want 1", mgr.RoomCount())
	}

	a := NewParticipant("alice", RoleHost, &recordingSender{})
	if _, err := mgr.Join(r.Code(), a); err != nil {
		t.Fatalf("join: %v", err)
	}

	b := NewParticipant("bob", RoleGuest, &recordingSender{})
	if _, err := mgr.Join(r.Code(), b); err != nil {
		t.Fatalf("join: %v", err)
	}

	if !mgr.Leave(r, a.ID) {
		t.Fatalf("leave alice: got false")
	}
	if mgr.RoomCount() != 1 {
		t.Fatalf("room destroyed while occupied")
	}
	if !mgr.Leave(r, b.ID) {
		t.Fatalf("leave bob: got false")
	}
	if mgr.RoomCount() != 0 {
		t.Fatalf("room count after emptying: got %d want 0", mgr.RoomCount())
	}
	if got := mgr.Metrics().Get(metrics.EventRoomDestroyed); got != 1 {
		t.Fatalf("room_destroyed: got %d want 1", got)
	}

	// The code resolves to nothing once the room is gone.
	if _, err := mgr.Room(r.Code()); err != ErrRoomNotFound {
		t.Fatalf("resolve destroyed room: got %v want %v", err, ErrRoomNotFound)
	}
}

func TestManagerJoinUnknownRoom(t *testing.T) {
	mgr := testManager(t, Config{})
	p := NewParticipant("alice", RoleGuest, &recordingSender{})
	if _, err := mgr.Join("deadbeef", p); err != ErrRoomNotFound {
		t.Fatalf("join unknown room: got %v want %v", err, ErrRoomNotFound)
	}
	if mgr.RoomCount() != 0 {
		t.Fatalf("join implicitly created a room")
	}
}

func TestManagerJoinClosedRoom(t *testing.T) {
	mgr := testManager(t, Config{})
	r, err := mgr.CreateRoom()
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	a := NewParticipant("a", RoleGuest, &recordingSender{})
	if _, err := mgr.Join(r.Code(), a); err != nil {
		t.Fatalf("join: %v", err)
	}
	mgr.Leave(r, a.ID)

	// The stale *Room handle is closed; a join through it reports not found.
	b := NewParticipant("b", RoleGuest, &recordingSender{})
	if err := r.Join(b); err != ErrRoomClosed {
		t.Fatalf("join closed room: got %v want %v", err, ErrRoomClosed)
	}
}

func TestManagerLeaveAbsent(t *testing.T) {
	mgr := testManager(t, Config{})
	r, err := mgr.CreateRoom()
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	a := NewParticipant("a", RoleGuest, &recordingSender{})
	if _, err := mgr.Join(r.Code(), a); err != nil {
		t.Fatalf("join: %v", err)
	}
	if mgr.Leave(r, "nope") {
		t.Fatalf("leave absent: got true")
	}
	if mgr.RoomCount() != 1 {
		t.Fatalf("leave of absent id tore down the room")
	}
}

func TestManagerMaxRooms(t *testing.T) {
	mgr := testManager(t, Config{MaxRooms: 2})
	for i := 0; i < 2; i++ {
		if _, err := mgr.CreateRoom(); err != nil {
			t.Fatalf("create %d: %v", i, err)
		}
	}
	if _, err := mgr.CreateRoom(); err != ErrTooManyRooms {
		t.Fatalf("create over quota: got %v want %v", err, ErrTooManyRooms)
	}
	if got := mgr.Metrics().Get(metrics.EventTooManyRooms); got != 1 {
		t.Fatalf("too_many_rooms: got %d want 1", got)
	}
}

func TestManagerFreshRosterAfterTeardown(t *testing.T) {
	mgr := testManager(t, Config{})
	r1, err := mgr.CreateRoom()
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	a := NewParticipant("a", RoleGuest, &recordingSender{})
	if _, err := mgr.Join(r1.Code(), a); err != nil {
		t.Fatalf("join: %v", err)
	}
	mgr.Leave(r1, a.ID)

	r2, err := mgr.CreateRoom()
	if err != nil {
		t.Fatalf("create second: %v", err)
	}
	if r2.Len() != 0 {
		t.Fatalf("fresh room roster: got %d members want 0", r2.Len())
	}
	if r2 == r1 {
		t.Fatalf("manager resurrected a destroyed room")
	}
}

package room

import (
	"encoding/json"
	"sync"
	"testing"

	"github.com/rs/zerolog"
)

type recordingSender struct {
	mu     sync.Mutex
	events []Event
	full   bool
}

func (s *recordingSender) Send(ev Event) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.full {
		return false
	}
	s.events = append(s.events, ev)
	return true
}

func (s *recordingSender) all() []Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Event, len(s.events))
	copy(out, s.events)
	return out
}

func testRoom(t *testing.T, maxParticipants int) *Room {
	t.Helper()
	return newRoom("feedc0de", maxParticipants, nil, zerolog.Nop())
}

func join(t *testing.T, r *Room, name string) (*Participant, *recordingSender) {
	t.Helper()
	s := &recordingSender{}
	p := NewParticipant(name, RoleGuest, s)
	if err := r.Join(p); err != nil {
		t.Fatalf("join %s: %v", name, err)
	}
	return p, s
}

func TestJoinSequence(t *testing.T) {
	r := testRoom(t, 0)

	a, sa := join(t, r, "alice")

	joined, ok := sa.all()[0].(Joined)
	if !ok {
		t.Fatalf("first event to alice: got %T want Joined", sa.all()[0])
	}
	if len(joined.Participants) != 0 {
		t.Fatalf("alice snapshot: got %d entries want 0", len(joined.Participants))
	}
	if joined.Self.ID != a.ID {
		t.Fatalf("alice self: got %q want %q", joined.Self.ID, a.ID)
	}

	b, sb := join(t, r, "bob")

	joined, ok = sb.all()[0].(Joined)
	if !ok {
		t.Fatalf("first event to bob: got %T want Joined", sb.all()[0])
	}
	if len(joined.Participants) != 1 || joined.Participants[0].ID != a.ID {
		t.Fatalf("bob snapshot: got %+v want [alice]", joined.Participants)
	}

	evs := sa.all()
	if len(evs) != 2 {
		t.Fatalf("alice events: got %d want 2", len(evs))
	}
	pj, ok := evs[1].(PeerJoined)
	if !ok || pj.Participant.ID != b.ID {
		t.Fatalf("alice second event: got %#v want PeerJoined{bob}", evs[1])
	}
}

// The snapshot delivered to a joiner never contains its own id, for any
// join order.
func TestSnapshotExcludesSelf(t *testing.T) {
	r := testRoom(t, 0)
	for i := 0; i < 5; i++ {
		p, s := join(t, r, "p")
		joined := s.all()[0].(Joined)
		for _, info := range joined.Participants {
			if info.ID == p.ID {
				t.Fatalf("joiner %d saw itself in its snapshot", i)
			}
		}
	}
}

// Every unordered pair ends up with exactly one initiator: the later
// joiner, whose pre-join snapshot names the earlier one.
func TestOneInitiatorPerPair(t *testing.T) {
	r := testRoom(t, 0)

	const n = 6
	ids := make([]string, 0, n)
	initiates := make(map[string]map[string]bool) // initiator -> targets

	for i := 0; i < n; i++ {
		p, s := join(t, r, "p")
		ids = append(ids, p.ID)
		joined := s.all()[0].(Joined)
		targets := make(map[string]bool)
		for _, info := range joined.Participants {
			targets[info.ID] = true
		}
		initiates[p.ID] = targets
	}

	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			a, b := ids[i], ids[j]
			ab := initiates[a][b]
			ba := initiates[b][a]
			if ab == ba {
				t.Fatalf("pair (%d,%d): a->b=%v b->a=%v, want exactly one", i, j, ab, ba)
			}
			if ab {
				t.Fatalf("pair (%d,%d): earlier joiner initiates", i, j)
			}
		}
	}
}

func TestDuplicateJoinEmitsNothing(t *testing.T) {
	r := testRoom(t, 0)
	_, sa := join(t, r, "alice")

	dup := NewParticipant("alice-again", RoleGuest, &recordingSender{})
	dup.ID = r.Snapshot()[0].ID

	if err := r.Join(dup); err != ErrAlreadyJoined {
		t.Fatalf("duplicate join: got %v want %v", err, ErrAlreadyJoined)
	}
	if got := len(sa.all()); got != 1 {
		t.Fatalf("alice events after failed join: got %d want 1", got)
	}
	if r.Len() != 1 {
		t.Fatalf("roster len after failed join: got %d want 1", r.Len())
	}
}

func TestRoomFull(t *testing.T) {
	r := testRoom(t, 2)
	join(t, r, "a")
	join(t, r, "b")

	p := NewParticipant("c", RoleGuest, &recordingSender{})
	if err := r.Join(p); err != ErrRoomFull {
		t.Fatalf("join full room: got %v want %v", err, ErrRoomFull)
	}
}

func TestLeaveBroadcast(t *testing.T) {
	r := testRoom(t, 0)
	a, sa := join(t, r, "a")
	b, sb := join(t, r, "b")
	_, sc := join(t, r, "c")

	before := map[*recordingSender]int{sa: len(sa.all()), sb: len(sb.all()), sc: len(sc.all())}

	removed, empty := r.Leave(b.ID)
	if !removed || empty {
		t.Fatalf("leave: got removed=%v empty=%v", removed, empty)
	}

	for s, n := range map[*recordingSender]int{sa: before[sa], sc: before[sc]} {
		evs := s.all()
		if len(evs) != n+1 {
			t.Fatalf("remaining member events: got %d want %d", len(evs), n+1)
		}
		left, ok := evs[len(evs)-1].(PeerLeft)
		if !ok || left.ParticipantID != b.ID {
			t.Fatalf("last event: got %#v want PeerLeft{%s}", evs[len(evs)-1], b.ID)
		}
	}
	if len(sb.all()) != before[sb] {
		t.Fatalf("departed member received events after leaving")
	}

	// The departed id is no longer addressable.
	if err := r.Relay(SignalOffer, a.ID, b.ID, nil); err != ErrUnknownRecipient {
		t.Fatalf("relay to departed: got %v want %v", err, ErrUnknownRecipient)
	}
}

func TestLeaveAbsentIsNoop(t *testing.T) {
	r := testRoom(t, 0)
	_, sa := join(t, r, "a")
	n := len(sa.all())

	removed, empty := r.Leave("nope")
	if removed || empty {
		t.Fatalf("leave absent: got removed=%v empty=%v", removed, empty)
	}
	if len(sa.all()) != n {
		t.Fatalf("leave of absent id broadcast something")
	}
}

func TestRelay(t *testing.T) {
	r := testRoom(t, 0)
	a, sa := join(t, r, "a")
	b, sb := join(t, r, "b")
	_, sc := join(t, r, "c")

	payload := json.RawMessage(`{"sdp":"v=0..."}`)
	if err := r.Relay(SignalOffer, b.ID, a.ID, payload); err != nil {
		t.Fatalf("relay: %v", err)
	}
	if err := r.Relay(SignalCandidate, b.ID, a.ID, json.RawMessage(`{"candidate":"x"}`)); err != nil {
		t.Fatalf("relay candidate: %v", err)
	}

	evs := sa.all()
	var signals []Signal
	for _, ev := range evs {
		if s, ok := ev.(Signal); ok {
			signals = append(signals, s)
		}
	}
	if len(signals) != 2 {
		t.Fatalf("alice signals: got %d want 2", len(signals))
	}
	// FIFO per directed pair, payload verbatim.
	if signals[0].Kind != SignalOffer || string(signals[0].Payload) != string(payload) {
		t.Fatalf("first signal: got %#v", signals[0])
	}
	if signals[1].Kind != SignalCandidate {
		t.Fatalf("second signal: got %#v", signals[1])
	}
	if signals[0].From != b.ID || signals[0].To != a.ID {
		t.Fatalf("addressing: got from=%s to=%s", signals[0].From, signals[0].To)
	}

	// No delivery to anyone but the addressee.
	for _, ev := range sb.all() {
		if _, ok := ev.(Signal); ok {
			t.Fatalf("sender received its own signal")
		}
	}
	for _, ev := range sc.all() {
		if _, ok := ev.(Signal); ok {
			t.Fatalf("third party received a directed signal")
		}
	}
}

func TestRelayValidation(t *testing.T) {
	r := testRoom(t, 0)
	a, _ := join(t, r, "a")
	b, sb := join(t, r, "b")

	if err := r.Relay(SignalOffer, "ghost", a.ID, nil); err != ErrUnknownSender {
		t.Fatalf("unknown sender: got %v want %v", err, ErrUnknownSender)
	}
	if err := r.Relay(SignalOffer, a.ID, a.ID, nil); err != ErrSelfTarget {
		t.Fatalf("self target: got %v want %v", err, ErrSelfTarget)
	}
	if err := r.Relay(SignalOffer, a.ID, "ghost", nil); err != ErrUnknownRecipient {
		t.Fatalf("unknown recipient: got %v want %v", err, ErrUnknownRecipient)
	}

	// None of the failures produced a delivery.
	for _, ev := range sb.all() {
		if _, ok := ev.(Signal); ok {
			t.Fatalf("failed relay delivered to %s", b.ID)
		}
	}
}

func TestConcurrentJoinsSerialized(t *testing.T) {
	r := testRoom(t, 0)

	const n = 16
	senders := make([]*recordingSender, n)
	parts := make([]*Participant, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		senders[i] = &recordingSender{}
		parts[i] = NewParticipant("p", RoleGuest, senders[i])
		wg.Add(1)
		go func(p *Participant) {
			defer wg.Done()
			if err := r.Join(p); err != nil {
				t.Errorf("join: %v", err)
			}
		}(parts[i])
	}
	wg.Wait()

	// Whatever order the joins were serialized in, each pair has exactly
	// one initiator.
	initiates := make(map[string]map[string]bool)
	for i, s := range senders {
		joined := s.all()[0].(Joined)
		targets := make(map[string]bool)
		for _, info := range joined.Participants {
			targets[info.ID] = true
		}
		initiates[parts[i].ID] = targets
	}
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			a, b := parts[i].ID, parts[j].ID
			if initiates[a][b] == initiates[b][a] {
				t.Fatalf("pair (%d,%d): want exactly one initiator", i, j)
			}
		}
	}
}

func TestRoomWithoutMetricsRegistry(t *testing.T) {
	r := newRoom("feedc0de", 1, nil, zerolog.Nop())

	a, _ := join(t, r, "alice")

	// Every counting path must be safe when the caller supplied no registry.
	extra := NewParticipant("bob", RoleGuest, &recordingSender{})
	if err := r.Join(extra); err != ErrRoomFull {
		t.Fatalf("join past quota: got %v want %v", err, ErrRoomFull)
	}
	if err := r.Relay(SignalOffer, a.ID, "nobody", json.RawMessage(`{}`)); err != ErrUnknownRecipient {
		t.Fatalf("relay to absent recipient: got %v want %v", err, ErrUnknownRecipient)
	}
	if removed, _ := r.Leave(a.ID); !removed {
		t.Fatalf("leave: participant not removed")
	}
}

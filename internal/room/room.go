package room

import (
	"encoding/json"
	"sync"

	"github.com/rs/zerolog"

	"github.com/quorumcall/mesh-signaling/internal/metrics"
)

// Room coordinates one session's roster. Every operation runs under the
// room's own mutex: joins and leaves form a total order per room, and each
// join observes a frozen pre-join snapshot. Rooms never contend with each
// other.
type Room struct {
	code            string
	maxParticipants int
	metrics         *metrics.Metrics
	log             zerolog.Logger

	mu      sync.Mutex
	closed  bool
	members *roster
}

func newRoom(code string, maxParticipants int, m *metrics.Metrics, log zerolog.Logger) *Room {
	if m == nil {
		m = metrics.New()
	}
	return &Room{
		code:            code,
		maxParticipants: maxParticipants,
		metrics:         m,
		log:             log.With().Str("room", code).Logger(),
		members:         newRoster(),
	}
}

func (r *Room) Code() string { return r.code }

// Join admits p and runs the join sequence atomically: the roster snapshot
// is captured strictly before p is inserted, delivered to p alone, and the
// prior members are then notified. A failed join emits nothing.
func (r *Room) Join(p *Participant) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return ErrRoomClosed
	}
	if r.maxParticipants > 0 && r.members.len() >= r.maxParticipants {
		r.metrics.Inc(metrics.EventRoomFull)
		return ErrRoomFull
	}

	// Pre-insert snapshot: p never appears in its own peer list, so p is
	// the sole initiator toward every entry.
	snapshot := r.members.snapshot()
	prior := r.members.members()

	if err := r.members.add(p); err != nil {
		r.metrics.Inc(metrics.EventDuplicateJoin)
		return err
	}

	p.sender.Send(Joined{Room: r.code, Self: p.Info(), Participants: snapshot})

	ev := PeerJoined{Room: r.code, Participant: p.Info()}
	for _, m := range prior {
		m.sender.Send(ev)
	}

	r.metrics.Inc(metrics.EventParticipantJoined)
	r.log.Info().Str("participant", p.ID).Str("name", p.Name).Int("peers", len(prior)).Msg("participant joined")
	return nil
}

// Leave removes id and notifies the remaining members. Removing an absent
// id is a no-op: removed is false and nothing is broadcast. empty reports
// whether the roster is now empty, so the manager can tear the room down.
func (r *Room) Leave(id string) (removed, empty bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.members.remove(id) {
		return false, r.members.isEmpty()
	}

	ev := PeerLeft{Room: r.code, ParticipantID: id}
	for _, m := range r.members.members() {
		m.sender.Send(ev)
	}

	r.metrics.Inc(metrics.EventParticipantLeft)
	r.log.Info().Str("participant", id).Int("peers", r.members.len()).Msg("participant left")
	return true, r.members.isEmpty()
}

// Relay forwards one negotiation message from a current member to another
// current member. Validation failures are reported to the caller only; the
// message is dropped, never queued or retried.
func (r *Room) Relay(kind SignalKind, from, to string, payload json.RawMessage) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return ErrRoomClosed
	}
	if _, ok := r.members.get(from); !ok {
		r.metrics.Inc(metrics.EventSignalUnknownSender)
		return ErrUnknownSender
	}
	if from == to {
		r.metrics.Inc(metrics.EventSignalSelfTarget)
		return ErrSelfTarget
	}
	rcpt, ok := r.members.get(to)
	if !ok {
		r.metrics.Inc(metrics.EventSignalUnknownRecipient)
		return ErrUnknownRecipient
	}

	if !rcpt.sender.Send(Signal{Room: r.code, Kind: kind, From: from, To: to, Payload: payload}) {
		r.metrics.Inc(metrics.EventSlowConsumer)
	}
	r.metrics.Inc(metrics.EventSignalRelayed)
	return nil
}

// Snapshot returns the current roster in insertion order.
func (r *Room) Snapshot() []Info {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.members.snapshot()
}

func (r *Room) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.members.len()
}

// closeIfEmpty marks the room closed when its roster is empty, ending its
// lifetime. A join that raced in first keeps the room alive.
func (r *Room) closeIfEmpty() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed || !r.members.isEmpty() {
		return false
	}
	r.closed = true
	return true
}

package metrics

import "sync"

// Event counter names.
const (
	EventRoomCreated   = "room_created"
	EventRoomDestroyed = "room_destroyed"

	EventParticipantJoined = "participant_joined"
	EventParticipantLeft   = "participant_left"
	EventDuplicateJoin     = "duplicate_join"
	EventRoomFull          = "room_full"
	EventTooManyRooms      = "too_many_rooms"

	EventSignalRelayed          = "signal_relayed"
	EventSignalUnknownRecipient = "signal_unknown_recipient"
	EventSignalUnknownSender    = "signal_unknown_sender"
	EventSignalSelfTarget       = "signal_self_target"

	EventRateLimited  = "rate_limited"
	EventSlowConsumer = "slow_consumer_dropped"
)

// Metrics is a minimal, concurrency-safe counter registry.
//
// A production deployment is expected to plug into a real metrics backend;
// this type keeps the coordinator's bookkeeping testable while still being
// scrapable via the Prometheus text handler. The zero value is usable.
type Metrics struct {
	mu sync.Mutex
	m  map[string]uint64
}

func New() *Metrics {
	return &Metrics{
		m: make(map[string]uint64),
	}
}

func (m *Metrics) Inc(name string) {
	m.mu.Lock()
	if m.m == nil {
		m.m = make(map[string]uint64)
	}
	m.m[name]++
	m.mu.Unlock()
}

func (m *Metrics) Get(name string) uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.m[name]
}

// Snapshot returns a copy of all counters.
func (m *Metrics) Snapshot() map[string]uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]uint64, len(m.m))
	for k, v := range m.m {
		out[k] = v
	}
	return out
}

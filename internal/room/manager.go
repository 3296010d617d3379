package room

import (
	"errors"
	"sync"

	"github.com/rs/zerolog"

	"github.com/quorumcall/mesh-signaling/internal/metrics"
)

// Config carries the manager's quota knobs. Zero values mean unlimited.
type Config struct {
	// RoomCodeBytes is the entropy of generated room codes, in bytes.
	RoomCodeBytes int

	MaxRooms               int
	MaxParticipantsPerRoom int
}

// Manager owns the live rooms. Its mutex guards only the code -> Room map;
// room state is guarded by each room's own mutex, so traffic in one room
// never blocks another.
type Manager struct {
	cfg     Config
	metrics *metrics.Metrics
	log     zerolog.Logger

	mu    sync.Mutex
	rooms map[string]*Room
}

func NewManager(cfg Config, m *metrics.Metrics, log zerolog.Logger) *Manager {
	if m == nil {
		m = metrics.New()
	}
	if cfg.RoomCodeBytes <= 0 {
		cfg.RoomCodeBytes = defaultRoomCodeBytes
	}
	return &Manager{
		cfg:     cfg,
		metrics: m,
		log:     log,
		rooms:   make(map[string]*Room),
	}
}

func (mgr *Manager) Metrics() *metrics.Metrics { return mgr.metrics }

// CreateRoom allocates a room under a fresh code. Rooms are only ever
// created explicitly; joining an unknown code does not create one.
func (mgr *Manager) CreateRoom() (*Room, error) {
	for attempt := 0; attempt < 3; attempt++ {
		code, err := newRoomCode(mgr.cfg.RoomCodeBytes)
		if err != nil {
			return nil, err
		}

		mgr.mu.Lock()
		if mgr.cfg.MaxRooms > 0 && len(mgr.rooms) >= mgr.cfg.MaxRooms {
			mgr.mu.Unlock()
			mgr.metrics.Inc(metrics.EventTooManyRooms)
			return nil, ErrTooManyRooms
		}
		if _, ok := mgr.rooms[code]; ok {
			// Extremely unlikely at the default entropy. Try again.
			mgr.mu.Unlock()
			continue
		}
		r := newRoom(code, mgr.cfg.MaxParticipantsPerRoom, mgr.metrics, mgr.log)
		mgr.rooms[code] = r
		mgr.mu.Unlock()

		mgr.metrics.Inc(metrics.EventRoomCreated)
		mgr.log.Info().Str("room", code).Msg("room created")
		return r, nil
	}
	return nil, errors.New("failed to allocate unique room code")
}

// Room resolves a live room by code.
func (mgr *Manager) Room(code string) (*Room, error) {
	mgr.mu.Lock()
	r, ok := mgr.rooms[code]
	mgr.mu.Unlock()
	if !ok {
		return nil, ErrRoomNotFound
	}
	return r, nil
}

// Join admits p into the room identified by code.
func (mgr *Manager) Join(code string, p *Participant) (*Room, error) {
	r, err := mgr.Room(code)
	if err != nil {
		return nil, err
	}
	if err := r.Join(p); err != nil {
		if errors.Is(err, ErrRoomClosed) {
			// Torn down between lookup and join; indistinguishable from a
			// room that never existed.
			return nil, ErrRoomNotFound
		}
		return nil, err
	}
	return r, nil
}

// Leave removes id from r and tears the room down when it empties.
// Returns whether the id was actually present.
func (mgr *Manager) Leave(r *Room, id string) bool {
	removed, empty := r.Leave(id)
	if empty {
		mgr.reap(r)
	}
	return removed
}

func (mgr *Manager) reap(r *Room) {
	mgr.mu.Lock()
	defer mgr.mu.Unlock()
	if cur, ok := mgr.rooms[r.Code()]; !ok || cur != r {
		return
	}
	if !r.closeIfEmpty() {
		// A join won the race; the room stays.
		return
	}
	delete(mgr.rooms, r.Code())
	mgr.metrics.Inc(metrics.EventRoomDestroyed)
	mgr.log.Info().Str("room", r.Code()).Msg("room destroyed")
}

// RoomCount reports the number of live rooms.
func (mgr *Manager) RoomCount() int {
	mgr.mu.Lock()
	defer mgr.mu.Unlock()
	return len(mgr.rooms)
}

package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog"
)

// Config parameterizes a mesh participant.
type Config struct {
	// ServerURL is the signaling server base URL.
	ServerURL string
	// RoomCode joins an existing room; leave empty together with Create
	// set to open a new one.
	RoomCode string
	// Create requests a fresh room instead of joining RoomCode.
	Create bool
	// Name is the display name announced to other participants.
	Name string
	// Role is "host" or "guest"; the server defaults create to host and
	// join to guest when empty.
	Role string

	ICEServers []webrtc.ICEServer
	Logger     zerolog.Logger

	// OnMessage is invoked for every data channel message from a peer.
	OnMessage func(from PeerInfo, data []byte)
	// OnPeerConnected fires when a peer's data channel opens.
	OnPeerConnected func(peer PeerInfo)
	// OnPeerLeft fires when the server announces a departure.
	OnPeerLeft func(participantID string)
}

// Mesh connects to a room and maintains one peer connection per other
// participant. All signaling frames are processed by a single run loop;
// peer connection callbacks hop back through the signaling send queue.
type Mesh struct {
	cfg Config
	log zerolog.Logger
	sig *Signaling
	api *webrtc.API

	mu    sync.Mutex
	self  string
	room  string
	peers map[string]*peer

	runErr chan error
}

// ErrServerRejected wraps an error frame from the server.
var ErrServerRejected = errors.New("server rejected request")

// Connect dials the signaling server, enters the room and starts the run
// loop. It returns once the room_joined snapshot has been processed and
// offers to all existing participants are in flight.
func Connect(cfg Config) (*Mesh, error) {
	if cfg.ServerURL == "" {
		return nil, errors.New("server URL required")
	}
	if !cfg.Create && cfg.RoomCode == "" {
		return nil, errors.New("room code required unless creating")
	}

	log := cfg.Logger.With().Str("component", "mesh-client").Logger()

	sig, err := DialSignaling(cfg.ServerURL, log)
	if err != nil {
		return nil, err
	}

	m := &Mesh{
		cfg:    cfg,
		log:    log,
		sig:    sig,
		api:    newPeerAPI(log),
		peers:  make(map[string]*peer),
		runErr: make(chan error, 1),
	}

	if err := m.enterRoom(); err != nil {
		sig.Close()
		return nil, err
	}

	go m.run()
	return m, nil
}

// enterRoom performs the create/join handshake and connects to every
// participant already in the room.
func (m *Mesh) enterRoom() error {
	if m.cfg.Create {
		if err := m.sig.Send(Message{Type: TypeCreate, Name: m.cfg.Name, Role: m.cfg.Role}); err != nil {
			return err
		}
	} else {
		if err := m.sig.Send(Message{Type: TypeJoin, Room: m.cfg.RoomCode, Name: m.cfg.Name, Role: m.cfg.Role}); err != nil {
			return err
		}
	}

	for msg := range m.sig.Incoming() {
		switch msg.Type {
		case TypeRoomCreated:
			m.mu.Lock()
			m.room = msg.Room
			m.mu.Unlock()
		case TypeRoomJoined:
			m.mu.Lock()
			m.room = msg.Room
			m.self = msg.Self
			m.mu.Unlock()
			for _, info := range msg.Participants {
				if err := m.offerTo(info); err != nil {
					return err
				}
			}
			return nil
		case TypeError:
			return fmt.Errorf("%w: %s: %s", ErrServerRejected, msg.Code, msg.Detail)
		default:
			m.log.Debug().Str("type", msg.Type).Msg("unexpected frame during join")
		}
	}
	return ErrSignalingClosed
}

// run processes signaling frames until the connection drops.
func (m *Mesh) run() {
	for msg := range m.sig.Incoming() {
		if err := m.handle(msg); err != nil {
			m.log.Warn().Err(err).Str("type", msg.Type).Msg("frame handling failed")
		}
	}
	m.closeAllPeers()
	m.runErr <- ErrSignalingClosed
}

func (m *Mesh) handle(msg Message) error {
	switch msg.Type {
	case TypePeerJoined:
		// The newcomer saw us in its snapshot and will send the offer.
		if msg.Participant != nil {
			m.log.Info().Str("peer", msg.Participant.ID).Msg("peer joined, awaiting offer")
		}
		return nil
	case TypePeerLeft:
		m.dropPeer(msg.From)
		if m.cfg.OnPeerLeft != nil {
			m.cfg.OnPeerLeft(msg.From)
		}
		return nil
	case TypeOffer:
		return m.handleOffer(msg)
	case TypeAnswer:
		return m.handleAnswer(msg)
	case TypeCandidate:
		return m.handleCandidate(msg)
	case TypeError:
		return fmt.Errorf("%w: %s: %s", ErrServerRejected, msg.Code, msg.Detail)
	default:
		return fmt.Errorf("unexpected frame type %q", msg.Type)
	}
}

// offerTo creates the peer connection and data channel toward a
// participant from the join snapshot, then sends the offer.
func (m *Mesh) offerTo(info PeerInfo) error {
	p, err := m.newPeer(info)
	if err != nil {
		return err
	}

	dc, err := p.pc.CreateDataChannel(dataChannelLabel, nil)
	if err != nil {
		p.close()
		return fmt.Errorf("create data channel: %w", err)
	}
	m.wireDataChannel(p, dc)

	payload, err := p.createOffer()
	if err != nil {
		p.close()
		return err
	}

	m.addPeer(p)
	return m.sig.Send(Message{Type: TypeOffer, To: info.ID, Payload: payload})
}

// handleOffer answers an offer from a later joiner.
func (m *Mesh) handleOffer(msg Message) error {
	if m.peer(msg.From) != nil {
		return fmt.Errorf("duplicate offer from %s", msg.From)
	}

	p, err := m.newPeer(PeerInfo{ID: msg.From})
	if err != nil {
		return err
	}
	p.pc.OnDataChannel(func(dc *webrtc.DataChannel) {
		m.wireDataChannel(p, dc)
	})

	answer, err := p.acceptOffer(msg.Payload)
	if err != nil {
		p.close()
		return err
	}

	m.addPeer(p)
	return m.sig.Send(Message{Type: TypeAnswer, To: msg.From, Payload: answer})
}

func (m *Mesh) handleAnswer(msg Message) error {
	p := m.peer(msg.From)
	if p == nil {
		return fmt.Errorf("answer from unknown peer %s", msg.From)
	}
	return p.acceptAnswer(msg.Payload)
}

func (m *Mesh) handleCandidate(msg Message) error {
	p := m.peer(msg.From)
	if p == nil {
		return fmt.Errorf("candidate from unknown peer %s", msg.From)
	}
	return p.addCandidate(msg.Payload)
}

func (m *Mesh) newPeer(info PeerInfo) (*peer, error) {
	pc, err := newPeerConnection(m.api, m.cfg.ICEServers)
	if err != nil {
		return nil, err
	}

	p := &peer{
		info: info,
		pc:   pc,
		log:  m.log.With().Str("peer", info.ID).Logger(),
	}

	pc.OnICECandidate(func(c *webrtc.ICECandidate) {
		if c == nil {
			return
		}
		raw, err := marshalCandidate(c)
		if err != nil {
			p.log.Warn().Err(err).Msg("candidate encoding failed")
			return
		}
		if err := m.sig.Send(Message{Type: TypeCandidate, To: info.ID, Payload: raw}); err != nil {
			p.log.Debug().Err(err).Msg("candidate dropped, signaling closed")
		}
	})
	pc.OnConnectionStateChange(func(state webrtc.PeerConnectionState) {
		p.log.Debug().Str("state", state.String()).Msg("peer connection state")
		if state == webrtc.PeerConnectionStateFailed || state == webrtc.PeerConnectionStateClosed {
			m.dropPeer(info.ID)
		}
	})

	return p, nil
}

func (m *Mesh) wireDataChannel(p *peer, dc *webrtc.DataChannel) {
	p.setDataChannel(dc)
	dc.OnOpen(func() {
		p.log.Info().Msg("data channel open")
		if m.cfg.OnPeerConnected != nil {
			m.cfg.OnPeerConnected(p.info)
		}
	})
	dc.OnMessage(func(msg webrtc.DataChannelMessage) {
		if m.cfg.OnMessage != nil {
			m.cfg.OnMessage(p.info, msg.Data)
		}
	})
}

// Broadcast sends data to every peer with an open channel.
func (m *Mesh) Broadcast(data []byte) {
	for _, p := range m.allPeers() {
		dc := p.dataChannel()
		if dc == nil || dc.ReadyState() != webrtc.DataChannelStateOpen {
			continue
		}
		if err := dc.Send(data); err != nil {
			p.log.Warn().Err(err).Msg("broadcast send failed")
		}
	}
}

// Room returns the room code assigned by the server.
func (m *Mesh) Room() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.room
}

// Self returns this participant's server-assigned ID.
func (m *Mesh) Self() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.self
}

// Wait blocks until the signaling connection is gone.
func (m *Mesh) Wait() error {
	return <-m.runErr
}

// Leave announces departure and closes everything.
func (m *Mesh) Leave() {
	_ = m.sig.Send(Message{Type: TypeLeave})
	m.sig.Close()
	m.closeAllPeers()
}

func (m *Mesh) addPeer(p *peer) {
	m.mu.Lock()
	m.peers[p.info.ID] = p
	m.mu.Unlock()
}

func (m *Mesh) peer(id string) *peer {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.peers[id]
}

func (m *Mesh) allPeers() []*peer {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*peer, 0, len(m.peers))
	for _, p := range m.peers {
		out = append(out, p)
	}
	return out
}

func (m *Mesh) dropPeer(id string) {
	m.mu.Lock()
	p, ok := m.peers[id]
	if ok {
		delete(m.peers, id)
	}
	m.mu.Unlock()
	if ok {
		p.close()
	}
}

func (m *Mesh) closeAllPeers() {
	m.mu.Lock()
	peers := m.peers
	m.peers = make(map[string]*peer)
	m.mu.Unlock()
	for _, p := range peers {
		p.close()
	}
}

func marshalCandidate(c *webrtc.ICECandidate) (json.RawMessage, error) {
	raw, err := json.Marshal(c.ToJSON())
	if err != nil {
		return nil, fmt.Errorf("encode candidate: %w", err)
	}
	return raw, nil
}

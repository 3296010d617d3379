package client

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog"
)

// dataChannelLabel is the label both sides agree on for the mesh channel.
const dataChannelLabel = "mesh"

// peer tracks the WebRTC state for one remote participant.
type peer struct {
	info PeerInfo
	pc   *webrtc.PeerConnection
	log  zerolog.Logger

	mu      sync.Mutex
	dc      *webrtc.DataChannel
	pending []webrtc.ICECandidateInit
	remote  bool
}

func newPeerAPI(log zerolog.Logger) *webrtc.API {
	se := webrtc.SettingEngine{}
	se.LoggerFactory = newLoggerFactory(log)
	return webrtc.NewAPI(webrtc.WithSettingEngine(se))
}

func newPeerConnection(api *webrtc.API, iceServers []webrtc.ICEServer) (*webrtc.PeerConnection, error) {
	pc, err := api.NewPeerConnection(webrtc.Configuration{ICEServers: iceServers})
	if err != nil {
		return nil, fmt.Errorf("create peer connection: %w", err)
	}
	return pc, nil
}

// createOffer produces a local offer and returns it as an opaque payload
// for the signaling channel.
func (p *peer) createOffer() (json.RawMessage, error) {
	offer, err := p.pc.CreateOffer(nil)
	if err != nil {
		return nil, fmt.Errorf("create offer: %w", err)
	}
	if err := p.pc.SetLocalDescription(offer); err != nil {
		return nil, fmt.Errorf("set local description: %w", err)
	}
	return marshalDescription(p.pc.LocalDescription())
}

// acceptOffer applies a remote offer and returns the local answer payload.
func (p *peer) acceptOffer(payload json.RawMessage) (json.RawMessage, error) {
	desc, err := unmarshalDescription(payload, webrtc.SDPTypeOffer)
	if err != nil {
		return nil, err
	}
	if err := p.setRemoteDescription(desc); err != nil {
		return nil, err
	}
	answer, err := p.pc.CreateAnswer(nil)
	if err != nil {
		return nil, fmt.Errorf("create answer: %w", err)
	}
	if err := p.pc.SetLocalDescription(answer); err != nil {
		return nil, fmt.Errorf("set local description: %w", err)
	}
	return marshalDescription(p.pc.LocalDescription())
}

// acceptAnswer applies the remote answer to a previously sent offer.
func (p *peer) acceptAnswer(payload json.RawMessage) error {
	desc, err := unmarshalDescription(payload, webrtc.SDPTypeAnswer)
	if err != nil {
		return err
	}
	return p.setRemoteDescription(desc)
}

func (p *peer) setRemoteDescription(desc webrtc.SessionDescription) error {
	if err := p.pc.SetRemoteDescription(desc); err != nil {
		return fmt.Errorf("set remote description: %w", err)
	}

	p.mu.Lock()
	pending := p.pending
	p.pending = nil
	p.remote = true
	p.mu.Unlock()

	for _, c := range pending {
		if err := p.pc.AddICECandidate(c); err != nil {
			p.log.Warn().Err(err).Msg("buffered candidate rejected")
		}
	}
	return nil
}

// addCandidate applies a trickled remote candidate, buffering it when it
// arrives before the remote description.
func (p *peer) addCandidate(payload json.RawMessage) error {
	var init webrtc.ICECandidateInit
	if err := json.Unmarshal(payload, &init); err != nil {
		return fmt.Errorf("parse candidate: %w", err)
	}

	p.mu.Lock()
	if !p.remote {
		p.pending = append(p.pending, init)
		p.mu.Unlock()
		return nil
	}
	p.mu.Unlock()

	if err := p.pc.AddICECandidate(init); err != nil {
		return fmt.Errorf("add candidate: %w", err)
	}
	return nil
}

func (p *peer) setDataChannel(dc *webrtc.DataChannel) {
	p.mu.Lock()
	p.dc = dc
	p.mu.Unlock()
}

func (p *peer) dataChannel() *webrtc.DataChannel {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.dc
}

func (p *peer) close() {
	if p.pc != nil {
		p.pc.Close()
	}
}

func marshalDescription(desc *webrtc.SessionDescription) (json.RawMessage, error) {
	if desc == nil {
		return nil, fmt.Errorf("no local description")
	}
	raw, err := json.Marshal(sdpPayload{Type: desc.Type.String(), SDP: desc.SDP})
	if err != nil {
		return nil, fmt.Errorf("encode description: %w", err)
	}
	return raw, nil
}

func unmarshalDescription(payload json.RawMessage, want webrtc.SDPType) (webrtc.SessionDescription, error) {
	var sp sdpPayload
	if err := json.Unmarshal(payload, &sp); err != nil {
		return webrtc.SessionDescription{}, fmt.Errorf("parse description: %w", err)
	}
	got := webrtc.NewSDPType(sp.Type)
	if got != want {
		return webrtc.SessionDescription{}, fmt.Errorf("unexpected description type %q", sp.Type)
	}
	return webrtc.SessionDescription{Type: got, SDP: sp.SDP}, nil
}

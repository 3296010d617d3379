package client

import (
	"errors"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 * 1024
)

// ErrSignalingClosed is returned by Send after the connection has shut down.
var ErrSignalingClosed = errors.New("signaling connection closed")

// Signaling is the WebSocket connection to the mesh signaling server.
// Incoming frames are delivered on Incoming; the channel is closed when
// the connection dies.
type Signaling struct {
	conn     *websocket.Conn
	log      zerolog.Logger
	incoming chan Message
	outgoing chan Message
	done     chan struct{}
	once     sync.Once
}

// DialSignaling connects to the server's /ws endpoint. serverURL is the
// base URL (http, https, ws or wss); the path is appended if missing.
func DialSignaling(serverURL string, log zerolog.Logger) (*Signaling, error) {
	u, err := url.Parse(serverURL)
	if err != nil {
		return nil, fmt.Errorf("invalid server URL: %w", err)
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	case "ws", "wss":
	default:
		return nil, fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	if u.Path == "" || u.Path == "/" {
		u.Path = "/ws"
	}

	conn, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("connect signaling: %w", err)
	}

	s := &Signaling{
		conn:     conn,
		log:      log,
		incoming: make(chan Message, 16),
		outgoing: make(chan Message, 16),
		done:     make(chan struct{}),
	}

	conn.SetReadLimit(maxMessageSize)
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	go s.readPump()
	go s.writePump()

	return s, nil
}

// Send queues a frame for delivery. It never blocks indefinitely: if the
// connection is down the frame is dropped and an error returned.
func (s *Signaling) Send(msg Message) error {
	select {
	case s.outgoing <- msg:
		return nil
	case <-s.done:
		return ErrSignalingClosed
	}
}

// Incoming returns the stream of frames from the server.
func (s *Signaling) Incoming() <-chan Message {
	return s.incoming
}

// Close sends a close frame and tears down both pumps. Safe to call more
// than once.
func (s *Signaling) Close() {
	s.once.Do(func() { close(s.done) })
}

func (s *Signaling) readPump() {
	defer func() {
		s.Close()
		s.conn.Close()
		close(s.incoming)
	}()

	if err := s.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		return
	}

	for {
		var msg Message
		if err := s.conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.log.Debug().Err(err).Msg("signaling read failed")
			}
			return
		}
		select {
		case s.incoming <- msg:
		case <-s.done:
			return
		}
	}
}

func (s *Signaling) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		s.conn.Close()
	}()

	for {
		select {
		case msg := <-s.outgoing:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteJSON(msg); err != nil {
				return
			}
		case <-ticker.C:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-s.done:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			s.conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}

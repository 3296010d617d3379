package signaling

import (
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/quorumcall/mesh-signaling/internal/metrics"
	"github.com/quorumcall/mesh-signaling/internal/ratelimit"
	"github.com/quorumcall/mesh-signaling/internal/room"
)

const wsWriteWait = 10 * time.Second

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}

	c := &conn{
		srv:   s,
		ws:    ws,
		log:   s.log.With().Str("remote_addr", ws.RemoteAddr().String()).Logger(),
		sendq: make(chan []byte, s.cfg.SendQueueSize),
		done:  make(chan struct{}),
	}
	go c.writePump()
	c.readLoop()
}

// conn is one participant's transport session. The read loop owns the
// joined-room state; Send may be called from any room's coordinator.
type conn struct {
	srv *Server
	ws  *websocket.Conn
	log zerolog.Logger

	sendq     chan []byte
	done      chan struct{}
	closeOnce sync.Once

	// Owned by the read loop (and handlers invoked from it).
	room *room.Room
	self string
}

// Send implements room.Sender. It never blocks: a full queue marks the
// connection as a slow consumer and tears it down.
func (c *conn) Send(ev room.Event) bool {
	data, err := json.Marshal(eventToWire(ev))
	if err != nil {
		return false
	}
	return c.enqueue(data)
}

func (c *conn) sendMessage(msg signalMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		return
	}
	c.enqueue(data)
}

func (c *conn) sendError(code, message string) {
	c.sendMessage(errorMessage(code, message))
}

func (c *conn) enqueue(data []byte) bool {
	select {
	case <-c.done:
		return false
	case c.sendq <- data:
		return true
	default:
		c.srv.metrics.Inc(metrics.EventSlowConsumer)
		c.log.Warn().Msg("dropping slow consumer")
		c.shutdown()
		return false
	}
}

func (c *conn) shutdown() {
	c.closeOnce.Do(func() { close(c.done) })
}

func (c *conn) writePump() {
	ticker := time.NewTicker(c.srv.cfg.WSPingInterval)
	defer func() {
		ticker.Stop()
		_ = c.ws.Close()
	}()

	for {
		select {
		case data := <-c.sendq:
			_ = c.ws.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := c.ws.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.ws.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-c.done:
			_ = c.ws.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(wsWriteWait))
			return
		}
	}
}

func (c *conn) readLoop() {
	defer c.cleanup()

	c.ws.SetReadLimit(c.srv.cfg.MaxMessageBytes)
	_ = c.ws.SetReadDeadline(time.Now().Add(c.srv.cfg.JoinTimeout))
	c.ws.SetPongHandler(func(string) error {
		if c.room != nil {
			_ = c.ws.SetReadDeadline(time.Now().Add(c.srv.cfg.WSIdleTimeout))
		}
		return nil
	})

	rate := int64(c.srv.cfg.MaxMessagesPerSecond)
	limiter := ratelimit.NewTokenBucket(c.srv.cfg.Clock, rate, rate)

	for {
		msgType, data, err := c.ws.ReadMessage()
		if err != nil {
			return
		}
		if msgType != websocket.TextMessage {
			c.writeClose(websocket.CloseUnsupportedData, "expected text message")
			return
		}
		if !limiter.Allow() {
			c.srv.metrics.Inc(metrics.EventRateLimited)
			c.writeClose(websocket.ClosePolicyViolation, "rate limit exceeded")
			return
		}

		msg, err := parseClientMessage(data)
		if err != nil {
			// Malformed input is an error for this caller only; the
			// connection and any joined room are unaffected.
			c.sendError(errCodeBadMessage, err.Error())
			continue
		}
		c.dispatch(msg)
	}
}

// cleanup runs when the read loop ends for any reason. Transport loss is
// an implicit leave.
func (c *conn) cleanup() {
	if c.room != nil {
		c.srv.rooms.Leave(c.room, c.self)
		c.room, c.self = nil, ""
	}
	c.shutdown()
	_ = c.ws.Close()
}

func (c *conn) dispatch(msg signalMessage) {
	switch msg.Type {
	case messageTypeCreate:
		if c.room != nil {
			c.sendError(errCodeAlreadyJoined, "already in a room")
			return
		}
		rm, err := c.srv.rooms.CreateRoom()
		if err != nil {
			if errors.Is(err, room.ErrTooManyRooms) {
				c.sendError(errCodeTooManyRooms, "room quota exceeded")
			} else {
				c.sendError(errCodeBadMessage, "failed to create room")
			}
			return
		}
		c.sendMessage(signalMessage{Type: messageTypeRoomCreated, Room: rm.Code()})

		role := room.RoleHost
		if msg.Role != "" {
			role, _ = room.ParseRole(msg.Role)
		}
		c.join(rm.Code(), msg.Name, role)

	case messageTypeJoin:
		if c.room != nil {
			c.sendError(errCodeAlreadyJoined, "already in a room")
			return
		}
		role, _ := room.ParseRole(msg.Role)
		c.join(msg.Room, msg.Name, role)

	case messageTypeLeave:
		if c.room == nil {
			c.sendError(errCodeNotJoined, "not in a room")
			return
		}
		c.srv.rooms.Leave(c.room, c.self)
		c.room, c.self = nil, ""
		_ = c.ws.SetReadDeadline(time.Now().Add(c.srv.cfg.JoinTimeout))

	case messageTypeOffer, messageTypeAnswer, messageTypeCandidate:
		if c.room == nil {
			c.sendError(errCodeNotJoined, "not in a room")
			return
		}
		kind, _ := room.ParseSignalKind(string(msg.Type))
		if err := c.room.Relay(kind, c.self, msg.To, msg.Payload); err != nil {
			switch {
			case errors.Is(err, room.ErrSelfTarget):
				c.sendError(errCodeSelfTarget, "cannot signal yourself")
			case errors.Is(err, room.ErrUnknownRecipient):
				c.sendError(errCodeUnknownRecipient, "recipient is not in the room")
			default:
				// Sender no longer resolves: the room was torn down under us.
				c.sendError(errCodeNotJoined, "not in a room")
			}
		}
	}
}

func (c *conn) join(code, name string, role room.Role) {
	p := room.NewParticipant(name, role, c)
	rm, err := c.srv.rooms.Join(code, p)
	if err != nil {
		switch {
		case errors.Is(err, room.ErrRoomNotFound):
			c.sendError(errCodeRoomNotFound, "room not found")
		case errors.Is(err, room.ErrRoomFull):
			c.sendError(errCodeRoomFull, "room is full")
		case errors.Is(err, room.ErrAlreadyJoined):
			c.sendError(errCodeAlreadyJoined, "already in the room")
		default:
			c.sendError(errCodeBadMessage, "failed to join room")
		}
		return
	}

	c.room, c.self = rm, p.ID
	_ = c.ws.SetReadDeadline(time.Now().Add(c.srv.cfg.WSIdleTimeout))
}

func (c *conn) writeClose(code int, reason string) {
	_ = c.ws.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, reason), time.Now().Add(wsWriteWait))
}

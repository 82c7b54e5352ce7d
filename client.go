package main

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	writeWait         = 10 * time.Second
	pongWait          = 60 * time.Second
	pingPeriod        = (pongWait * 9) / 10
	maxMessageSize    = 4096
	sendBufSize       = 256
	maxMessagesPerSec = 120
	maxNameLen        = 16
)

// Client represents a WebSocket connection. id doubles as the player's
// entity id inside a room.
type Client struct {
	hub        *Hub
	conn       *websocket.Conn
	send       chan []byte
	closeOnce  sync.Once
	id         string
	remoteAddr string
	room       *Room
	msgCount   int
	msgResetAt time.Time
}

// NewClient creates a new Client
func NewClient(hub *Hub, conn *websocket.Conn, remoteAddr string) *Client {
	return &Client{
		hub:        hub,
		conn:       conn,
		send:       make(chan []byte, sendBufSize),
		id:         uuid.NewString(),
		remoteAddr: remoteAddr,
	}
}

// ReadPump reads messages from the WebSocket connection
func (c *Client) ReadPump() {
	defer func() {
		c.hub.TrackDisconnect(c.remoteAddr)
		c.hub.leave(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				slog.Warn("ws read error", "client", c.id, "err", err)
			}
			break
		}

		// Rate limiting
		now := time.Now()
		if now.After(c.msgResetAt) {
			c.msgCount = 0
			c.msgResetAt = now.Add(time.Second)
		}
		c.msgCount++
		if c.msgCount > maxMessagesPerSec {
			slog.Warn("rate limit exceeded, disconnecting", "client", c.id, "addr", c.remoteAddr)
			break
		}

		c.handleMessage(message)
	}
}

// WritePump writes messages to the WebSocket connection
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			// 0xFF prefix marks a binary frame queued by SendBinary
			var err error
			if len(message) > 0 && message[0] == 0xFF {
				err = c.conn.WriteMessage(websocket.BinaryMessage, message[1:])
			} else {
				err = c.conn.WriteMessage(websocket.TextMessage, message)
			}
			if err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// SendJSON sends a JSON message to the client
func (c *Client) SendJSON(msg interface{}) {
	data, err := json.Marshal(msg)
	if err != nil {
		slog.Error("marshal outbound message", "err", err)
		return
	}
	c.SendRaw(data)
}

// SendRaw queues pre-marshaled bytes as a text message
func (c *Client) SendRaw(data []byte) {
	defer func() { recover() }()
	select {
	case c.send <- data:
	default:
		// Client too slow, drop message
	}
}

// SendBinary queues pre-marshaled bytes as a binary WebSocket message
func (c *Client) SendBinary(data []byte) {
	defer func() { recover() }()
	msg := make([]byte, len(data)+1)
	msg[0] = 0xFF
	copy(msg[1:], data)
	select {
	case c.send <- msg:
	default:
	}
}

func (c *Client) closeSend() {
	c.closeOnce.Do(func() { close(c.send) })
}

// handleMessage routes incoming messages (single-pass decode via InEnvelope)
func (c *Client) handleMessage(raw []byte) {
	var env InEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		slog.Debug("unmarshal inbound message", "client", c.id, "err", err)
		return
	}

	switch env.T {
	case MsgJoinMatchmaking:
		c.handleJoinMatchmaking(env.D)
	case MsgPlayerMove:
		c.handleMove(env.D)
	case MsgPlayerShoot:
		if c.room != nil {
			c.room.Shoot(c.id)
		}
	case MsgPlayerReload:
		if c.room != nil {
			c.room.Reload(c.id)
		}
	case MsgBulletHit:
		c.handleBulletHit(env.D)
	case MsgLeaveRoom:
		c.handleLeave()
	}
}

func (c *Client) handleJoinMatchmaking(data json.RawMessage) {
	var msg JoinMatchmakingMsg
	if len(data) > 0 {
		if err := json.Unmarshal(data, &msg); err != nil {
			c.SendJSON(Envelope{T: MsgMatchmakingError, Data: MatchmakingErrorMsg{Reason: "malformed request"}})
			return
		}
	}
	c.handleLeave()

	room, _, err := c.hub.rooms.Matchmake(c.id, msg.Name, c)
	if err != nil {
		slog.Info("matchmaking failed", "client", c.id, "err", err)
		c.SendJSON(Envelope{T: MsgMatchmakingError, Data: MatchmakingErrorMsg{Reason: err.Error()}})
		return
	}
	c.room = room
}

func (c *Client) handleMove(data json.RawMessage) {
	if c.room == nil {
		return
	}
	var msg PlayerMoveMsg
	if err := json.Unmarshal(data, &msg); err != nil {
		return
	}
	c.room.Move(c.id, msg)
}

func (c *Client) handleBulletHit(data json.RawMessage) {
	if c.room == nil {
		return
	}
	var msg BulletHitMsg
	if err := json.Unmarshal(data, &msg); err != nil {
		return
	}
	c.room.ReportHit(c.id, msg)
}

func (c *Client) handleLeave() {
	if c.room != nil {
		c.room.Leave(c.id)
		c.room = nil
	}
}

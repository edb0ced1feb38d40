package main

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/mahaj/teamsync/pkg/auth"
	"github.com/mahaj/teamsync/pkg/realtime"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Client is a middleman between the websocket connection and the hub. It is the
// realtime.Sink of its Connection.
type Client struct {
	hub  *Hub
	conn *websocket.Conn

	// Buffered channel of outbound frames. Never closed; done signals shutdown.
	send chan []byte
	done chan struct{}
	once sync.Once
}

var _ realtime.Sink = (*Client)(nil)

// Send queues a frame without blocking. A full buffer means the peer is too slow
// and the caller drops the connection.
func (c *Client) Send(frame []byte) error {
	select {
	case <-c.done:
		return realtime.ErrConnectionClosed
	default:
	}
	select {
	case c.send <- frame:
		return nil
	default:
		return realtime.ErrSendBufferFull
	}
}

func (c *Client) Close() error {
	c.once.Do(func() { close(c.done) })
	return nil
}

// readPump pumps frames from the websocket connection to the dispatcher. Frames
// of one connection are handled in order, one at a time.
func (c *Client) readPump(ctx context.Context, conn *realtime.Connection) {
	defer func() {
		if r := recover(); r != nil {
			c.hub.log.Error("Read pump panic", "user_id", conn.UserID(), "panic", r)
		}
		c.hub.presence.Disconnect(ctx, conn)
		_ = c.Close()
		_ = c.conn.Close()
	}()
	settings := c.hub.settings
	c.conn.SetReadLimit(settings.maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(settings.pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(settings.pongWait))
	})
	for {
		_, frame, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				c.hub.log.Info("Socket closed unexpectedly", "user_id", conn.UserID(), "error", err)
			}
			return
		}
		c.hub.dispatcher.Dispatch(ctx, conn, frame)
	}
}

// writePump pumps frames from the send buffer to the websocket connection.
func (c *Client) writePump() {
	settings := c.hub.settings
	ticker := time.NewTicker(settings.pingPeriod())
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()
	for {
		select {
		case frame := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(settings.writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				return
			}
		case <-c.done:
			_ = c.conn.SetWriteDeadline(time.Now().Add(settings.writeWait))
			_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(settings.writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// serveWs authenticates before upgrading; a rejected handshake never becomes a
// connection.
func (h *Hub) serveWs(w http.ResponseWriter, r *http.Request) {
	principal, err := h.gate.Authenticate(r.Context(), auth.BearerToken(r))
	if err != nil {
		h.log.Info("Rejected websocket handshake", "remote", r.RemoteAddr, "error", err)
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("Websocket upgrade failed", "user_id", principal.ID, "error", err)
		return
	}

	client := &Client{
		hub:  h,
		conn: ws,
		send: make(chan []byte, h.settings.sendBuffer),
		done: make(chan struct{}),
	}
	conn := realtime.NewConnection(principal, client)
	h.presence.Connect(conn)

	// the request context ends when this handler returns
	ctx := context.WithoutCancel(r.Context())
	go client.writePump()
	go client.readPump(ctx, conn)
}

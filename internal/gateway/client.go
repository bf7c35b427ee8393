package gateway

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/nextlevelbuilder/opencompany/pkg/protocol"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 1 << 20 // 1MB
	sendBufferSize = 64
)

// Client is one WebSocket connection. Outbound frames go through a
// buffered channel serviced by a single write pump, so handlers and
// broadcasts never write the socket concurrently.
type Client struct {
	id     string
	conn   *websocket.Conn
	server *Server
	send   chan []byte
	done   chan struct{}
	once   sync.Once
	log    *slog.Logger
}

// NewClient wraps an upgraded connection.
func NewClient(conn *websocket.Conn, server *Server) *Client {
	id := uuid.NewString()
	return &Client{
		id:     id,
		conn:   conn,
		server: server,
		send:   make(chan []byte, sendBufferSize),
		done:   make(chan struct{}),
		log:    slog.Default().With("component", "gateway", "client", id),
	}
}

// ID returns the server-assigned connection id.
func (c *Client) ID() string { return c.id }

// Run services the connection until the peer disconnects or ctx ends.
func (c *Client) Run(ctx context.Context) {
	go c.writePump()
	c.readLoop(ctx)
}

// readLoop decodes request frames and dispatches them in order. Requests
// from one connection are handled sequentially so a client observes its
// own writes.
func (c *Client) readLoop(ctx context.Context) {
	defer c.Close()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.log.Debug("read error", "error", err)
			}
			return
		}

		frameType, err := protocol.ParseFrameType(data)
		if err != nil {
			c.SendResponse(protocol.NewErrorResponse("", protocol.ErrInvalidRequest, "malformed frame"))
			continue
		}
		if frameType != protocol.FrameTypeRequest {
			continue
		}

		var req protocol.RequestFrame
		if err := json.Unmarshal(data, &req); err != nil {
			c.SendResponse(protocol.NewErrorResponse("", protocol.ErrInvalidRequest, "malformed request frame"))
			continue
		}
		c.server.router.Dispatch(ctx, c, &req)
	}
}

// writePump owns all socket writes, interleaving queued frames with pings.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case data := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				c.Close()
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.Close()
				return
			}
		}
	}
}

// SendResponse queues a response frame.
func (c *Client) SendResponse(resp *protocol.ResponseFrame) {
	c.enqueue(resp)
}

// SendEvent queues an event frame.
func (c *Client) SendEvent(event protocol.EventFrame) {
	c.enqueue(event)
}

// enqueue marshals and queues one frame. A full buffer means the peer
// stopped reading; the frame is dropped and the ping timeout reaps the
// connection shortly after.
func (c *Client) enqueue(v interface{}) {
	data, err := json.Marshal(v)
	if err != nil {
		c.log.Error("marshal frame", "error", err)
		return
	}
	select {
	case <-c.done:
	case c.send <- data:
	default:
		c.log.Warn("send buffer full, dropping frame")
	}
}

// Close tears the connection down once. Safe to call from any goroutine.
func (c *Client) Close() {
	c.once.Do(func() {
		close(c.done)
		c.conn.Close()
	})
}

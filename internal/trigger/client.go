package trigger

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"

	"github.com/nextlevelbuilder/opencompany/pkg/protocol"
)

const (
	// agentCallTimeout bounds one outbound agent turn. The external
	// gateway answers asynchronously; a woken agent may think for minutes.
	agentCallTimeout = 300 * time.Second

	dialTimeout = 15 * time.Second
)

// GatewayCaller is the outbound surface the engine needs. Tests substitute
// a recorder; production uses *Client.
type GatewayCaller interface {
	WakeAgent(ctx context.Context, sessionKey, message string) error
}

// Client is an RPC client for the external LLM gateway. It dials lazily on
// first use, multiplexes concurrent calls over one connection correlated by
// request id, and redials on the next call after a connection failure.
type Client struct {
	url   string
	token string
	log   *slog.Logger

	mu      sync.Mutex
	conn    *websocket.Conn
	pending map[string]chan *protocol.ResponseFrame

	wmu sync.Mutex // serializes frame writes
}

// NewClient prepares a client for the gateway at url. No connection is
// opened until the first call.
func NewClient(url, token string) *Client {
	return &Client{
		url:     url,
		token:   token,
		log:     slog.Default().With("component", "trigger"),
		pending: make(map[string]chan *protocol.ResponseFrame),
	}
}

// agentParams is the wire shape of the external gateway's agent method.
type agentParams struct {
	SessionKey     string `json:"sessionKey"`
	Message        string `json:"message"`
	Deliver        bool   `json:"deliver"`
	IdempotencyKey string `json:"idempotencyKey"`
	TimeoutMs      int64  `json:"timeoutMs"`
}

// WakeAgent runs one agent turn under the given session key. Blocks until
// the turn is accepted and finishes, the gateway rejects it, or ctx expires.
func (c *Client) WakeAgent(ctx context.Context, sessionKey, message string) error {
	resp, err := c.Call(ctx, protocol.MethodAgent, agentParams{
		SessionKey:     sessionKey,
		Message:        message,
		Deliver:        false,
		IdempotencyKey: uuid.NewString(),
		TimeoutMs:      agentCallTimeout.Milliseconds(),
	})
	if err != nil {
		return err
	}
	if !resp.OK {
		if resp.Error != nil {
			return fmt.Errorf("agent call rejected: %s: %s", resp.Error.Code, resp.Error.Message)
		}
		return fmt.Errorf("agent call rejected")
	}
	return nil
}

// Call sends one request frame and waits for the matching response.
func (c *Client) Call(ctx context.Context, method string, params interface{}) (*protocol.ResponseFrame, error) {
	raw, err := json.Marshal(params)
	if err != nil {
		return nil, fmt.Errorf("marshal %s params: %w", method, err)
	}
	req := &protocol.RequestFrame{
		Type:   protocol.FrameTypeRequest,
		ID:     uuid.NewString(),
		Method: method,
		Params: raw,
	}
	data, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal %s request: %w", method, err)
	}

	conn, err := c.ensureConn(ctx)
	if err != nil {
		return nil, err
	}

	ch := make(chan *protocol.ResponseFrame, 1)
	c.mu.Lock()
	c.pending[req.ID] = ch
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		delete(c.pending, req.ID)
		c.mu.Unlock()
	}()

	if err := c.write(ctx, conn, data); err != nil {
		c.dropConn(conn)
		return nil, fmt.Errorf("write %s request: %w", method, err)
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case resp, ok := <-ch:
		if !ok {
			return nil, fmt.Errorf("connection closed awaiting %s response", method)
		}
		return resp, nil
	}
}

// Close tears the connection down. In-flight calls fail.
func (c *Client) Close() {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn != nil {
		c.dropConn(conn)
	}
}

func (c *Client) ensureConn(ctx context.Context) (*websocket.Conn, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn != nil {
		return c.conn, nil
	}

	dialCtx, cancel := context.WithTimeout(ctx, dialTimeout)
	defer cancel()
	opts := &websocket.DialOptions{}
	if c.token != "" {
		h := http.Header{}
		h.Set("Authorization", "Bearer "+c.token)
		opts.HTTPHeader = h
	}
	conn, _, err := websocket.Dial(dialCtx, c.url, opts)
	if err != nil {
		return nil, fmt.Errorf("dial llm gateway %s: %w", c.url, err)
	}
	conn.SetReadLimit(1 << 20) // 1MB

	c.conn = conn
	go c.readLoop(conn)
	c.log.Debug("connected to llm gateway", "url", c.url)
	return conn, nil
}

func (c *Client) write(ctx context.Context, conn *websocket.Conn, data []byte) error {
	c.wmu.Lock()
	defer c.wmu.Unlock()
	return conn.Write(ctx, websocket.MessageText, data)
}

// readLoop routes response frames to their waiting callers. Exits when the
// connection dies, failing everything still pending on it.
func (c *Client) readLoop(conn *websocket.Conn) {
	for {
		_, data, err := conn.Read(context.Background())
		if err != nil {
			c.dropConn(conn)
			return
		}
		frameType, err := protocol.ParseFrameType(data)
		if err != nil || frameType != protocol.FrameTypeResponse {
			continue // events and noise from the gateway are not ours
		}
		var resp protocol.ResponseFrame
		if err := json.Unmarshal(data, &resp); err != nil {
			c.log.Warn("malformed response from llm gateway", "error", err)
			continue
		}
		c.mu.Lock()
		ch, ok := c.pending[resp.ID]
		if ok {
			delete(c.pending, resp.ID)
		}
		c.mu.Unlock()
		if ok {
			ch <- &resp
		}
	}
}

// dropConn closes conn and, if it is still current, fails all pending
// calls so they can surface errors instead of hanging.
func (c *Client) dropConn(conn *websocket.Conn) {
	c.mu.Lock()
	var waiting map[string]chan *protocol.ResponseFrame
	if c.conn == conn {
		c.conn = nil
		waiting = c.pending
		c.pending = make(map[string]chan *protocol.ResponseFrame)
	}
	c.mu.Unlock()

	conn.Close(websocket.StatusNormalClosure, "")
	for _, ch := range waiting {
		close(ch)
	}
}

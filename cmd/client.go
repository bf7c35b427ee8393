package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/nextlevelbuilder/opencompany/internal/config"
	"github.com/nextlevelbuilder/opencompany/pkg/protocol"
)

// rpcClient is the thin WebSocket client behind the operator commands.
// One connection, one request at a time; event frames the server pushes
// between request and response are skipped.
type rpcClient struct {
	conn *websocket.Conn
}

// wireResponse mirrors protocol.ResponseFrame with a raw payload so each
// command decodes only the fields it renders.
type wireResponse struct {
	Type    string              `json:"type"`
	ID      string              `json:"id"`
	OK      bool                `json:"ok"`
	Payload json.RawMessage     `json:"payload"`
	Error   *protocol.ErrorInfo `json:"error"`
}

// dialGateway connects to the local serve process using the configured
// gateway address.
func dialGateway() (*rpcClient, error) {
	cfg, err := config.Load(resolveConfigPath())
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	host := cfg.Gateway.Host
	if host == "" || host == "0.0.0.0" {
		host = "127.0.0.1"
	}
	wsURL := fmt.Sprintf("ws://%s:%d/ws", host, cfg.Gateway.Port)

	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		return nil, fmt.Errorf("connect %s: %w (is `opencompany serve` running?)", wsURL, err)
	}
	return &rpcClient{conn: conn}, nil
}

func (c *rpcClient) Close() {
	c.conn.Close()
}

// Call sends one request and blocks for the matching response. A non-nil
// result receives the decoded payload.
func (c *rpcClient) Call(method string, params, result interface{}) error {
	reqID := uuid.NewString()[:8]

	var rawParams json.RawMessage
	if params != nil {
		data, err := json.Marshal(params)
		if err != nil {
			return fmt.Errorf("marshal params: %w", err)
		}
		rawParams = data
	}

	req := protocol.RequestFrame{
		Type:   protocol.FrameTypeRequest,
		ID:     reqID,
		Method: method,
		Params: rawParams,
	}
	if err := c.conn.WriteJSON(req); err != nil {
		return fmt.Errorf("send %s: %w", method, err)
	}

	for {
		_, rawMsg, err := c.conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("read response: %w", err)
		}

		frameType, _ := protocol.ParseFrameType(rawMsg)
		if frameType != protocol.FrameTypeResponse {
			continue // server push, not ours
		}

		var resp wireResponse
		if err := json.Unmarshal(rawMsg, &resp); err != nil {
			continue
		}
		if resp.ID != reqID {
			continue // response for a different request
		}
		if !resp.OK {
			if resp.Error != nil {
				return fmt.Errorf("%s: %s", resp.Error.Code, resp.Error.Message)
			}
			return fmt.Errorf("%s failed", method)
		}
		if result != nil && len(resp.Payload) > 0 {
			if err := json.Unmarshal(resp.Payload, result); err != nil {
				return fmt.Errorf("decode %s payload: %w", method, err)
			}
		}
		return nil
	}
}

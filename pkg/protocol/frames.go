package protocol

import "encoding/json"

// ProtocolVersion is bumped on breaking wire changes.
const ProtocolVersion = 1

// Frame type discriminators. Request and response frames carry a fixed
// type; event frames use the event name itself as the frame type, so the
// dashboard can switch on a single field.
const (
	FrameTypeRequest  = "req"
	FrameTypeResponse = "res"
)

// Error codes returned in ResponseFrame.Error.Code.
const (
	ErrInvalidRequest = "INVALID_REQUEST"
	ErrNotFound       = "NOT_FOUND"
	ErrAlreadyExists  = "ALREADY_EXISTS"
	ErrUnavailable    = "UNAVAILABLE"
)

// RequestFrame is a client-to-server RPC invocation.
type RequestFrame struct {
	Type   string          `json:"type"`
	ID     string          `json:"id"`
	Method string          `json:"method"`
	Params json.RawMessage `json:"params,omitempty"`
}

// ErrorInfo describes a failed request.
type ErrorInfo struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ResponseFrame answers exactly one RequestFrame, correlated by ID.
type ResponseFrame struct {
	Type    string      `json:"type"`
	ID      string      `json:"id"`
	OK      bool        `json:"ok"`
	Payload interface{} `json:"payload,omitempty"`
	Error   *ErrorInfo  `json:"error,omitempty"`
}

// EventFrame is a server-push notification. Type holds the event name
// (e.g. "channel.message") and Payload the fully-populated value object.
type EventFrame struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload,omitempty"`
}

// NewOKResponse builds a success response for the given request ID.
func NewOKResponse(id string, payload interface{}) *ResponseFrame {
	return &ResponseFrame{Type: FrameTypeResponse, ID: id, OK: true, Payload: payload}
}

// NewErrorResponse builds a failure response for the given request ID.
func NewErrorResponse(id, code, message string) *ResponseFrame {
	return &ResponseFrame{
		Type:  FrameTypeResponse,
		ID:    id,
		OK:    false,
		Error: &ErrorInfo{Code: code, Message: message},
	}
}

// NewEvent builds a broadcast frame for the given event name.
func NewEvent(name string, payload interface{}) *EventFrame {
	return &EventFrame{Type: name, Payload: payload}
}

// ParseFrameType extracts the type discriminator from a raw frame without
// decoding the full payload. Frames whose type is neither "req" nor "res"
// are event frames.
func ParseFrameType(raw []byte) (string, error) {
	var head struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(raw, &head); err != nil {
		return "", err
	}
	return head.Type, nil
}

// IsEventFrame reports whether the parsed frame type names an event.
func IsEventFrame(frameType string) bool {
	return frameType != FrameTypeRequest && frameType != FrameTypeResponse && frameType != ""
}

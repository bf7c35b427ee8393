package gateway

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"go.opentelemetry.io/otel/attribute"

	"github.com/nextlevelbuilder/opencompany/internal/tracing"
	"github.com/nextlevelbuilder/opencompany/pkg/protocol"
)

// HandlerFunc handles one RPC request. Implementations answer via
// client.SendResponse exactly once.
type HandlerFunc func(ctx context.Context, client *Client, req *protocol.RequestFrame)

// MethodRouter maps method names to handlers.
type MethodRouter struct {
	mu       sync.RWMutex
	handlers map[string]HandlerFunc
	log      *slog.Logger
}

// NewMethodRouter creates an empty router.
func NewMethodRouter() *MethodRouter {
	return &MethodRouter{
		handlers: make(map[string]HandlerFunc),
		log:      slog.Default().With("component", "gateway"),
	}
}

// Register binds a handler to a method name. Later registrations replace
// earlier ones.
func (r *MethodRouter) Register(method string, handler HandlerFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[method] = handler
}

// Dispatch routes one request to its handler under an rpc.<method> span.
// A panicking handler answers UNAVAILABLE instead of killing the
// connection's read loop.
func (r *MethodRouter) Dispatch(ctx context.Context, client *Client, req *protocol.RequestFrame) {
	r.mu.RLock()
	handler, ok := r.handlers[req.Method]
	r.mu.RUnlock()
	if !ok {
		client.SendResponse(protocol.NewErrorResponse(req.ID, protocol.ErrInvalidRequest,
			fmt.Sprintf("unknown method %q", req.Method)))
		return
	}

	spanCtx, span := tracing.StartSpan(ctx, "rpc."+req.Method,
		attribute.String("rpc.method", req.Method))
	defer span.End()

	defer func() {
		if rec := recover(); rec != nil {
			r.log.Error("handler panic", "method", req.Method, "panic", rec)
			client.SendResponse(protocol.NewErrorResponse(req.ID, protocol.ErrUnavailable, "internal error"))
		}
	}()
	handler(spanCtx, client, req)
}

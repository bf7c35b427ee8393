package gateway

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/nextlevelbuilder/opencompany/internal/bus"
	"github.com/nextlevelbuilder/opencompany/internal/config"
	"github.com/nextlevelbuilder/opencompany/internal/store"
	"github.com/nextlevelbuilder/opencompany/pkg/protocol"
)

// Server is the coordination gateway: a WebSocket JSON-RPC endpoint for
// agents plus read-only HTTP views for the dashboard.
type Server struct {
	cfg      *config.Config
	eventPub bus.EventPublisher
	channels store.ChannelStore
	tasks    store.TaskStore
	router   *MethodRouter

	upgrader websocket.Upgrader
	clients  map[string]*Client
	mu       sync.RWMutex

	httpServer *http.Server
	mux        *http.ServeMux
}

// NewServer wires the gateway against the stores and the event bus.
// Method handlers are registered separately via Router().
func NewServer(cfg *config.Config, eventPub bus.EventPublisher, channels store.ChannelStore, tasks store.TaskStore) *Server {
	s := &Server{
		cfg:      cfg,
		eventPub: eventPub,
		channels: channels,
		tasks:    tasks,
		clients:  make(map[string]*Client),
	}

	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     checkOrigin,
	}

	s.router = NewMethodRouter()
	return s
}

// Router returns the method router for handler registration.
func (s *Server) Router() *MethodRouter { return s.router }

// checkOrigin accepts non-browser clients (no Origin header) and browser
// connections from localhost, where the dashboard is served.
func checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true // CLI, SDK, agent processes
	}
	host := origin
	if i := strings.Index(origin, "://"); i >= 0 {
		host = origin[i+3:]
	}
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	switch host {
	case "localhost", "127.0.0.1", "::1", "[::1]":
		return true
	}
	slog.Warn("websocket origin rejected", "origin", origin)
	return false
}

// BuildMux creates and caches the HTTP mux with all routes registered.
// Call this before Start() if the same handler should back additional
// listeners (e.g. Tailscale).
func (s *Server) BuildMux() *http.ServeMux {
	if s.mux != nil {
		return s.mux
	}

	mux := http.NewServeMux()

	// Upgrades are GET by definition; the method pattern also keeps the
	// route from clashing with the root-file wildcard below.
	mux.HandleFunc("GET /ws", s.handleWebSocket)
	mux.HandleFunc("GET /health", s.handleHealth)

	// Dashboard data views.
	mux.HandleFunc("GET /agents-status.json", s.handleAgentsStatus)
	mux.HandleFunc("GET /tasks-data.json", s.handleTasksData)

	// Dashboard page and state-dir file serving.
	mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/workstream.html", http.StatusFound)
	})
	mux.HandleFunc("GET /workstream.html", s.handleWorkstream)
	mux.HandleFunc("GET /_ls/{dir...}", s.handleListDir)
	mux.HandleFunc("GET /company/{path...}", s.serveStatePrefix("company"))
	mux.HandleFunc("GET /workspace/{path...}", s.serveStatePrefix("workspace"))
	mux.HandleFunc("GET /{file}", s.handleRootFile)

	s.mux = mux
	return mux
}

// Start listens on the configured address until ctx is cancelled, then
// drains connections with a five-second grace.
func (s *Server) Start(ctx context.Context) error {
	mux := s.BuildMux()

	addr := fmt.Sprintf("%s:%d", s.cfg.Gateway.Host, s.cfg.Gateway.Port)
	s.httpServer = &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	slog.Info("gateway starting", "addr", addr)

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.httpServer.Shutdown(shutdownCtx)
	}()

	if err := s.httpServer.ListenAndServe(); err != http.ErrServerClosed {
		return fmt.Errorf("gateway server: %w", err)
	}
	return nil
}

// handleWebSocket upgrades the connection and services it until the peer
// goes away.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("websocket upgrade failed", "error", err)
		return
	}

	client := NewClient(conn, s)
	s.registerClient(client)

	defer func() {
		s.unregisterClient(client)
		client.Close()
	}()

	client.Run(r.Context())
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, `{"status":"ok","protocol":%d}`, protocol.ProtocolVersion)
}

// Broadcast fans one event frame out to every connected client. The
// trigger engine, docs watcher, and shutdown path call this directly.
func (s *Server) Broadcast(name string, payload interface{}) {
	event := protocol.NewEvent(name, payload)
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, client := range s.clients {
		client.SendEvent(*event)
	}
}

// ClientCount reports connected WebSocket clients.
func (s *Server) ClientCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.clients)
}

func (s *Server) registerClient(c *Client) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clients[c.id] = c

	// Relay task lifecycle events to this client. Channel events reach
	// the socket through the trigger engine's re-broadcast instead, so
	// each event name arrives exactly once.
	s.eventPub.Subscribe(c.id, func(event bus.Event) {
		if !strings.HasPrefix(event.Name, "task.") {
			return
		}
		c.SendEvent(*protocol.NewEvent(event.Name, event.Payload))
	})

	slog.Info("client connected", "id", c.id)
}

func (s *Server) unregisterClient(c *Client) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.clients, c.id)
	s.eventPub.Unsubscribe(c.id)
	slog.Info("client disconnected", "id", c.id)
}

// StartTestServer listens on a random loopback port and returns the
// actual address plus a blocking start function. Used by tests.
func StartTestServer(s *Server, ctx context.Context) (addr string, start func()) {
	mux := s.BuildMux()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		panic("listen: " + err.Error())
	}

	s.httpServer = &http.Server{Handler: mux}
	addr = ln.Addr().String()

	start = func() {
		go func() {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			s.httpServer.Shutdown(shutdownCtx)
		}()
		s.httpServer.Serve(ln)
	}

	return addr, start
}

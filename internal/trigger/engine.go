// Package trigger wakes agents when channels they belong to receive
// messages. It subscribes to channel events, resolves recipients from
// membership and the configured roster, gates each (agent, channel) pair
// behind a cooldown, and calls the external LLM gateway's agent method for
// everyone who passes. Wake-ups are best-effort: the post is durable before
// the engine ever sees it, so RPC failures are logged and swallowed.
package trigger

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/nextlevelbuilder/opencompany/internal/bus"
	"github.com/nextlevelbuilder/opencompany/internal/config"
	"github.com/nextlevelbuilder/opencompany/internal/sessions"
	"github.com/nextlevelbuilder/opencompany/internal/store"
	"github.com/nextlevelbuilder/opencompany/pkg/protocol"
)

const (
	subscriberID = "trigger-engine"

	// queueSize bounds buffered wake-up work. When the queue is full new
	// wake-ups are dropped; the messages themselves are already committed.
	queueSize = 256

	// wakeRatePerSec and wakeBurst bound the total outbound RPC rate
	// across all recipients. The cooldown gate handles per-pair dedup;
	// this limiter is the storm brake.
	wakeRatePerSec = 10
	wakeBurst      = 20
)

// Broadcaster pushes an event frame to connected WebSocket clients.
// Satisfied by the gateway server.
type Broadcaster interface {
	Broadcast(name string, payload interface{})
}

// Engine maps channel messages to agent wake-ups.
type Engine struct {
	cfg      *config.Config
	channels store.ChannelStore
	events   bus.EventPublisher
	gateway  GatewayCaller
	gate     *cooldownGate
	limiter  *rate.Limiter
	queue    chan *store.MessageEvent
	log      *slog.Logger

	mu        sync.Mutex
	broadcast Broadcaster

	wg sync.WaitGroup
}

// New builds an engine. The cooldown window comes from cfg.Trigger.
func New(cfg *config.Config, channels store.ChannelStore, events bus.EventPublisher, gateway GatewayCaller) *Engine {
	return &Engine{
		cfg:      cfg,
		channels: channels,
		events:   events,
		gateway:  gateway,
		gate:     newCooldownGate(time.Duration(cfg.Trigger.CooldownMs) * time.Millisecond),
		limiter:  rate.NewLimiter(rate.Limit(wakeRatePerSec), wakeBurst),
		queue:    make(chan *store.MessageEvent, queueSize),
		log:      slog.Default().With("component", "trigger"),
	}
}

// SetBroadcaster wires the WebSocket fan-out. The engine re-broadcasts
// every channel.* event it observes so dashboards refresh without polling.
func (e *Engine) SetBroadcaster(b Broadcaster) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.broadcast = b
}

func (e *Engine) broadcaster() Broadcaster {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.broadcast
}

// Run subscribes to the bus and processes wake-up work until ctx is
// cancelled. Dispatches run in their own goroutines so a slow agent turn
// never delays the next post.
func (e *Engine) Run(ctx context.Context) error {
	e.events.Subscribe(subscriberID, e.handleEvent)
	defer e.events.Unsubscribe(subscriberID)

	go e.gate.runPruner(ctx)
	e.log.Info("trigger engine started", "cooldownMs", e.cfg.Trigger.CooldownMs)

	for {
		select {
		case <-ctx.Done():
			e.wg.Wait()
			return ctx.Err()
		case ev := <-e.queue:
			e.wg.Add(1)
			go func() {
				defer e.wg.Done()
				e.dispatch(ctx, ev)
			}()
		}
	}
}

// handleEvent runs on the mutating goroutine. It must hand work off
// quickly: long RPC calls happen on the dispatch goroutines.
func (e *Engine) handleEvent(ev bus.Event) {
	if strings.HasPrefix(ev.Name, "channel.") {
		if b := e.broadcaster(); b != nil {
			b.Broadcast(ev.Name, ev.Payload)
		}
	}
	if ev.Name != protocol.EventChannelMessage {
		return
	}
	msg, ok := ev.Payload.(*store.MessageEvent)
	if !ok || msg.Message == nil {
		return
	}
	select {
	case e.queue <- msg:
	default:
		e.log.Warn("wake-up queue full, dropping",
			"channel", msg.ChannelName, "sender", msg.Message.SenderID)
	}
}

// dispatch wakes every eligible recipient of one message.
func (e *Engine) dispatch(ctx context.Context, ev *store.MessageEvent) {
	msg := ev.Message

	all, err := e.recipients(ctx, msg)
	if err != nil {
		e.log.Error("resolve recipients", "channel", ev.ChannelName, "error", err)
		return
	}

	now := time.Now()
	var woken []string
	for _, agentID := range all {
		if !e.gate.Allow(agentID, msg.ChannelID, now) {
			e.log.Debug("wake-up suppressed by cooldown",
				"agent", agentID, "channel", ev.ChannelName)
			continue
		}
		woken = append(woken, agentID)
	}
	if len(woken) == 0 {
		return
	}

	limit := transcriptLimit
	transcript, err := e.channels.GetMessages(ctx, msg.ChannelID, store.MessageQuery{Limit: &limit})
	if err != nil {
		e.log.Error("load transcript", "channel", ev.ChannelName, "error", err)
		transcript = nil
	}
	prompt := buildPrompt(ev.ChannelName, msg, transcript)

	g, gctx := errgroup.WithContext(ctx)
	for _, agentID := range woken {
		g.Go(func() error {
			e.wake(gctx, agentID, ev, prompt)
			return nil
		})
	}
	g.Wait()
}

// recipients returns every channel member that is on the configured
// roster, minus the sender.
func (e *Engine) recipients(ctx context.Context, msg *store.ChannelMessage) ([]string, error) {
	ch, err := e.channels.ResolveChannel(ctx, msg.ChannelID)
	if err != nil {
		return nil, err
	}
	if ch == nil {
		return nil, nil // channel deleted between post and dispatch
	}
	var out []string
	for _, m := range ch.Members {
		if m.MemberID == msg.SenderID || !e.cfg.IsKnownAgent(m.MemberID) {
			continue
		}
		out = append(out, m.MemberID)
	}
	return out, nil
}

// wake runs one agent turn. Failures are logged and swallowed.
func (e *Engine) wake(ctx context.Context, agentID string, ev *store.MessageEvent, prompt string) {
	if err := e.limiter.Wait(ctx); err != nil {
		return
	}
	callCtx, cancel := context.WithTimeout(ctx, agentCallTimeout)
	defer cancel()

	sessionKey := sessions.ChannelKey(agentID, ev.Message.ChannelID)
	if err := e.gateway.WakeAgent(callCtx, sessionKey, prompt); err != nil {
		e.log.Error("wake-up failed",
			"agent", agentID, "channel", ev.ChannelName, "error", err)
		return
	}
	e.log.Info("agent woken", "agent", agentID, "channel", ev.ChannelName)
}

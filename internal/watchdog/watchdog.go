// Package watchdog detects silently stalled tasks. A periodic scan pulls
// active and blocked tasks whose heartbeat is older than the threshold,
// appends an error log to each newly stalled task, and emits task.stale
// so dashboards light up. Recovered tasks re-arm their alert.
package watchdog

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/nextlevelbuilder/opencompany/internal/bus"
	"github.com/nextlevelbuilder/opencompany/internal/config"
	"github.com/nextlevelbuilder/opencompany/internal/store"
	"github.com/nextlevelbuilder/opencompany/pkg/protocol"
)

// watchdogAgentID is the agent name stamped on stale-alert log entries.
const watchdogAgentID = "watchdog"

const (
	defaultCheckInterval  = 2 * time.Minute
	defaultStaleThreshold = store.DefaultStaleThresholdMs
)

// Watchdog periodically scans for stale tasks and alerts once per stall.
type Watchdog struct {
	tasks     store.TaskStore
	events    bus.EventPublisher
	interval  time.Duration
	threshold int64
	log       *slog.Logger

	mu      sync.Mutex
	alerted map[string]struct{}
}

// New builds a watchdog from cfg.Watchdog, falling back to defaults for
// unset values.
func New(cfg *config.Config, tasks store.TaskStore, events bus.EventPublisher) *Watchdog {
	interval := time.Duration(cfg.Watchdog.CheckIntervalMs) * time.Millisecond
	if interval <= 0 {
		interval = defaultCheckInterval
	}
	threshold := cfg.Watchdog.StaleThresholdMs
	if threshold <= 0 {
		threshold = defaultStaleThreshold
	}
	return &Watchdog{
		tasks:     tasks,
		events:    events,
		interval:  interval,
		threshold: threshold,
		log:       slog.Default().With("component", "watchdog"),
		alerted:   make(map[string]struct{}),
	}
}

// Run scans on a ticker until ctx is cancelled.
func (w *Watchdog) Run(ctx context.Context) error {
	w.log.Info("watchdog started",
		"intervalMs", w.interval.Milliseconds(), "staleThresholdMs", w.threshold)
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info("watchdog stopped")
			return ctx.Err()
		case <-ticker.C:
			w.scan(ctx)
		}
	}
}

// scan alerts every newly stale task, then resets the alerted set to the
// current stale ids so a task that resumes heartbeating re-arms its alert.
func (w *Watchdog) scan(ctx context.Context) {
	stale, err := w.tasks.GetStaleTasks(ctx, w.threshold)
	if err != nil {
		w.log.Error("stale scan failed", "error", err)
		return
	}

	current := make(map[string]struct{}, len(stale))
	for i := range stale {
		task := &stale[i]
		current[task.ID] = struct{}{}
		w.mu.Lock()
		_, seen := w.alerted[task.ID]
		w.mu.Unlock()
		if seen {
			continue
		}
		w.alert(ctx, task)
	}

	w.mu.Lock()
	w.alerted = current
	w.mu.Unlock()
}

func (w *Watchdog) alert(ctx context.Context, task *store.Task) {
	msg := fmt.Sprintf("no heartbeat for over %s; task appears stalled",
		time.Duration(w.threshold)*time.Millisecond)
	if _, err := w.tasks.AppendLog(ctx, task.ID, watchdogAgentID, store.TaskLogError, msg, nil); err != nil {
		w.log.Error("append stale log", "task", task.ID, "error", err)
	}
	if w.events != nil {
		w.events.Broadcast(bus.Event{Name: protocol.EventTaskStale, Payload: task})
	}
	w.log.Warn("stale task detected",
		"task", task.ID, "agent", task.AgentID, "status", task.Status)
}

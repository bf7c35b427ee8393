package trigger

import (
	"context"
	"sync"
	"time"
)

// cooldownPruneInterval is how often stale cooldown entries are dropped.
const cooldownPruneInterval = 30 * time.Second

// cooldownGate suppresses repeat wake-ups for an (agent, channel) pair
// inside a fixed window. Safe for concurrent use.
type cooldownGate struct {
	mu       sync.Mutex
	window   time.Duration
	lastFire map[string]int64 // key → unix ms of the last allowed fire
}

func newCooldownGate(window time.Duration) *cooldownGate {
	return &cooldownGate{window: window, lastFire: make(map[string]int64)}
}

func cooldownKey(agentID, channelID string) string {
	return agentID + "\x00" + channelID
}

// Allow reports whether the pair may fire at now, and records the fire
// when allowed. Denied calls leave the window untouched so a burst of
// posts cannot push the next allowed fire further out.
func (g *cooldownGate) Allow(agentID, channelID string, now time.Time) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	key := cooldownKey(agentID, channelID)
	nowMs := now.UnixMilli()
	if last, ok := g.lastFire[key]; ok && nowMs-last < g.window.Milliseconds() {
		return false
	}
	g.lastFire[key] = nowMs
	return true
}

// prune drops entries old enough that they can no longer suppress.
func (g *cooldownGate) prune(now time.Time) {
	g.mu.Lock()
	defer g.mu.Unlock()

	cutoff := now.UnixMilli() - 2*g.window.Milliseconds()
	for key, last := range g.lastFire {
		if last < cutoff {
			delete(g.lastFire, key)
		}
	}
}

func (g *cooldownGate) size() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.lastFire)
}

// runPruner sweeps the gate until ctx is cancelled.
func (g *cooldownGate) runPruner(ctx context.Context) {
	ticker := time.NewTicker(cooldownPruneInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case t := <-ticker.C:
			g.prune(t)
		}
	}
}

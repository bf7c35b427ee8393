package config

import (
	"sync"
)

// Config is the root configuration for the company coordination core.
type Config struct {
	Agents     []AgentConfig    `json:"agents,omitempty"`
	Gateway    GatewayConfig    `json:"gateway"`
	LLMGateway LLMGatewayConfig `json:"llmGateway"`
	Trigger    TriggerConfig    `json:"trigger"`
	Watchdog   WatchdogConfig   `json:"watchdog"`
	Limits     LimitsConfig     `json:"limits"`
	Telemetry  TelemetryConfig  `json:"telemetry,omitempty"`
	Tailscale  TailscaleConfig  `json:"tailscale,omitempty"`
	mu         sync.RWMutex
}

// AgentConfig is one roster entry. The trigger engine wakes only ids
// listed here; humans appear as channel members but not as agents.
type AgentConfig struct {
	ID        string `json:"id"`
	Name      string `json:"name,omitempty"`
	Emoji     string `json:"emoji,omitempty"`
	Layer     string `json:"layer,omitempty"` // "exec", "lead", "worker"
	Role      string `json:"role,omitempty"`
	Heartbeat string `json:"heartbeat,omitempty"` // cron expression, empty = no schedule
	Default   bool   `json:"default,omitempty"`
}

// GatewayConfig configures the WebSocket/HTTP server this process runs.
type GatewayConfig struct {
	Host  string `json:"host"`
	Port  int    `json:"port"`
	Token string `json:"-"` // from env OPENCOMPANY_GATEWAY_TOKEN only
}

// LLMGatewayConfig points at the external gateway that executes agent
// turns. The core is a client of its `agent` method and nothing else.
type LLMGatewayConfig struct {
	URL   string `json:"url"`
	Token string `json:"-"` // from env OPENCOMPANY_LLM_GATEWAY_TOKEN only
}

// TriggerConfig tunes the wake-up engine.
type TriggerConfig struct {
	CooldownMs int64 `json:"cooldownMs,omitempty"`
}

// WatchdogConfig tunes the stale-task scanner.
type WatchdogConfig struct {
	StaleThresholdMs int64 `json:"staleThresholdMs,omitempty"`
	CheckIntervalMs  int64 `json:"checkIntervalMs,omitempty"`
}

// LimitsConfig holds the default list limits for reads.
type LimitsConfig struct {
	Messages int `json:"messages,omitempty"`
	Logs     int `json:"logs,omitempty"`
	Tasks    int `json:"tasks,omitempty"`
}

// TelemetryConfig configures OpenTelemetry export for traces.
type TelemetryConfig struct {
	Enabled     bool              `json:"enabled,omitempty"`
	Endpoint    string            `json:"endpoint,omitempty"` // e.g. "localhost:4317"
	Protocol    string            `json:"protocol,omitempty"` // "grpc" (default) or "http"
	Insecure    bool              `json:"insecure,omitempty"`
	ServiceName string            `json:"service_name,omitempty"`
	Headers     map[string]string `json:"headers,omitempty"`
}

// TailscaleConfig configures the optional tsnet listener.
// Auth key from env only (never persisted).
type TailscaleConfig struct {
	Enabled   bool   `json:"enabled,omitempty"`
	Hostname  string `json:"hostname,omitempty"`
	StateDir  string `json:"state_dir,omitempty"`
	AuthKey   string `json:"-"` // from env OPENCOMPANY_TSNET_AUTH_KEY only
	Ephemeral bool   `json:"ephemeral,omitempty"`
	EnableTLS bool   `json:"enable_tls,omitempty"`
}

// AgentIDs returns the roster ids in config order.
func (c *Config) AgentIDs() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	ids := make([]string, 0, len(c.Agents))
	for _, a := range c.Agents {
		ids = append(ids, a.ID)
	}
	return ids
}

// IsKnownAgent reports whether id appears on the roster.
func (c *Config) IsKnownAgent(id string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, a := range c.Agents {
		if a.ID == id {
			return true
		}
	}
	return false
}

// Agent returns the roster entry for id.
func (c *Config) Agent(id string) (AgentConfig, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, a := range c.Agents {
		if a.ID == id {
			return a, true
		}
	}
	return AgentConfig{}, false
}

// ResolveDefaultAgentID returns the agent marked default, or "main".
func (c *Config) ResolveDefaultAgentID() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, a := range c.Agents {
		if a.Default {
			return a.ID
		}
	}
	return DefaultAgentID
}

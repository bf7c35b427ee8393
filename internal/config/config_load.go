package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/titanous/json5"
)

// Default returns a Config with sensible defaults: a single CEO agent,
// a localhost gateway, and the standard trigger/watchdog windows.
func Default() *Config {
	return &Config{
		Agents: []AgentConfig{
			{ID: DefaultAgentID, Name: "CEO", Emoji: "🐺", Layer: "exec", Role: "ceo", Default: true},
		},
		Gateway: GatewayConfig{
			Host: "127.0.0.1",
			Port: 18791,
		},
		LLMGateway: LLMGatewayConfig{
			URL: "ws://127.0.0.1:18790/ws",
		},
		Trigger: TriggerConfig{
			CooldownMs: 5000,
		},
		Watchdog: WatchdogConfig{
			StaleThresholdMs: 900000,
			CheckIntervalMs:  120000,
		},
		Limits: LimitsConfig{
			Messages: 50,
			Logs:     100,
			Tasks:    200,
		},
	}
}

// Load reads config from a JSON5 file, then overlays env vars.
// A missing file is not an error; defaults apply.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.applyEnvOverrides()
			return cfg, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}

	if err := json5.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	cfg.applyEnvOverrides()
	return cfg, nil
}

// applyEnvOverrides overlays env vars onto the config.
// Env vars take precedence over file values.
func (c *Config) applyEnvOverrides() {
	envStr := func(key string, dst *string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	envStr("OPENCOMPANY_GATEWAY_TOKEN", &c.Gateway.Token)
	envStr("OPENCOMPANY_HOST", &c.Gateway.Host)
	if v := os.Getenv("OPENCOMPANY_GATEWAY_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil && port > 0 {
			c.Gateway.Port = port
		}
	}

	envStr("OPENCOMPANY_LLM_GATEWAY_URL", &c.LLMGateway.URL)
	envStr("OPENCOMPANY_LLM_GATEWAY_TOKEN", &c.LLMGateway.Token)

	// Telemetry
	envStr("OPENCOMPANY_TELEMETRY_ENDPOINT", &c.Telemetry.Endpoint)
	envStr("OPENCOMPANY_TELEMETRY_PROTOCOL", &c.Telemetry.Protocol)
	envStr("OPENCOMPANY_TELEMETRY_SERVICE_NAME", &c.Telemetry.ServiceName)
	if v := os.Getenv("OPENCOMPANY_TELEMETRY_ENABLED"); v != "" {
		c.Telemetry.Enabled = v == "true" || v == "1"
	}
	if v := os.Getenv("OPENCOMPANY_TELEMETRY_INSECURE"); v != "" {
		c.Telemetry.Insecure = v == "true" || v == "1"
	}

	// Tailscale (tsnet)
	envStr("OPENCOMPANY_TSNET_HOSTNAME", &c.Tailscale.Hostname)
	envStr("OPENCOMPANY_TSNET_AUTH_KEY", &c.Tailscale.AuthKey)
	envStr("OPENCOMPANY_TSNET_DIR", &c.Tailscale.StateDir)
}

// Save writes the config to a JSON file.
func Save(path string, cfg *Config) error {
	cfg.mu.RLock()
	defer cfg.mu.RUnlock()

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	return os.WriteFile(path, data, 0600)
}

const secretMask = "***"

// MaskedCopy returns a deep copy of the config with secret fields masked.
func (c *Config) MaskedCopy() *Config {
	c.mu.RLock()
	defer c.mu.RUnlock()

	data, err := json.Marshal(c)
	if err != nil {
		return &Config{}
	}
	cp := Default()
	if err := json.Unmarshal(data, cp); err != nil {
		return &Config{}
	}

	// Secrets are json:"-" and do not survive the round-trip; carry them
	// over so the mask shows which ones are set.
	cp.Gateway.Token = c.Gateway.Token
	cp.LLMGateway.Token = c.LLMGateway.Token
	cp.Tailscale.AuthKey = c.Tailscale.AuthKey

	maskNonEmpty(&cp.Gateway.Token)
	maskNonEmpty(&cp.LLMGateway.Token)
	maskNonEmpty(&cp.Tailscale.AuthKey)
	return cp
}

func maskNonEmpty(s *string) {
	if *s != "" {
		*s = secretMask
	}
}

// ExpandHome replaces leading ~ with the user home directory.
func ExpandHome(path string) string {
	if path == "" || path[0] != '~' {
		return path
	}
	home, _ := os.UserHomeDir()
	if len(path) > 1 && path[1] == '/' {
		return home + path[1:]
	}
	return home
}

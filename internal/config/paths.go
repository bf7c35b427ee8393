package config

import (
	"os"
	"path/filepath"
)

// DefaultAgentID is the CEO agent. Its workspace lives at
// <stateDir>/workspace rather than under workspaces/.
const DefaultAgentID = "main"

// StateDir returns the per-user state root: $HOME/.openclaw, or
// $HOME/.openclaw-<profile> when OPENCLAW_PROFILE is set.
func StateDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	if profile := os.Getenv("OPENCLAW_PROFILE"); profile != "" {
		return filepath.Join(home, ".openclaw-"+profile)
	}
	return filepath.Join(home, ".openclaw")
}

// CompanyDir holds the two databases, the company documents, and kb/.
func CompanyDir() string { return filepath.Join(StateDir(), "company") }

// ChannelsDBPath is the channels/members/messages database file.
func ChannelsDBPath() string { return filepath.Join(CompanyDir(), "channels.db") }

// TasksDBPath is the tasks/logs/dependencies database file.
func TasksDBPath() string { return filepath.Join(CompanyDir(), "tasks.db") }

// KnowledgeBaseDir holds free-form agent-written markdown.
func KnowledgeBaseDir() string { return filepath.Join(CompanyDir(), "kb") }

// WorkspacesDir holds per-agent workspaces, one directory per agent id.
func WorkspacesDir() string { return filepath.Join(StateDir(), "workspaces") }

// AgentWorkspaceDir returns the workspace for one agent. The default
// agent's workspace is the bare workspace/ directory.
func AgentWorkspaceDir(agentID string) string {
	if agentID == DefaultAgentID {
		return filepath.Join(StateDir(), "workspace")
	}
	return filepath.Join(WorkspacesDir(), agentID)
}

// SessionsDir is where the LLM gateway persists session files; the core
// only reads it for liveness reporting.
func SessionsDir() string { return filepath.Join(StateDir(), "sessions") }

// LogsDir holds append-only process logs.
func LogsDir() string { return filepath.Join(StateDir(), "logs") }

// LLMCallLogPath is the JSONL record of LLM requests, overridable with
// OPENCLAW_LLM_CALL_LOG_FILE.
func LLMCallLogPath() string {
	if v := os.Getenv("OPENCLAW_LLM_CALL_LOG_FILE"); v != "" {
		return v
	}
	return filepath.Join(LogsDir(), "llm-calls.jsonl")
}

// DefaultConfigPath resolves the config file location: the
// OPENCOMPANY_CONFIG env var, else <stateDir>/company.json5.
func DefaultConfigPath() string {
	if v := os.Getenv("OPENCOMPANY_CONFIG"); v != "" {
		return v
	}
	return filepath.Join(StateDir(), "company.json5")
}

// Package llmlog reads the append-only JSONL file of LLM call records
// the gateway writes. The coordination core never performs LLM calls
// itself; it only consumes this file for liveness reporting.
package llmlog

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/nextlevelbuilder/opencompany/internal/sessions"
)

// Record is one LLM request/usage line.
type Record struct {
	Timestamp    int64  `json:"timestamp"` // unix ms
	AgentID      string `json:"agentId,omitempty"`
	SessionKey   string `json:"sessionKey,omitempty"`
	Provider     string `json:"provider,omitempty"`
	Model        string `json:"model,omitempty"`
	InputTokens  int64  `json:"inputTokens,omitempty"`
	OutputTokens int64  `json:"outputTokens,omitempty"`
	DurationMs   int64  `json:"durationMs,omitempty"`
}

// agentID resolves the owning agent, falling back to the session key.
func (r Record) agentID() string {
	if r.AgentID != "" {
		return r.AgentID
	}
	return sessions.AgentID(r.SessionKey)
}

// LastCallByAgent scans the JSONL file at path and returns the newest
// call timestamp per agent id, in milliseconds. A missing file yields an
// empty map; malformed lines are skipped.
func LastCallByAgent(path string) map[string]int64 {
	result := map[string]int64{}

	f, err := os.Open(path)
	if err != nil {
		return result
	}
	defer f.Close()

	// Lines carry full prompts, so no fixed scanner buffer.
	r := bufio.NewReader(f)
	for {
		line, err := r.ReadBytes('\n')
		if len(line) > 0 {
			var rec Record
			if json.Unmarshal(line, &rec) == nil {
				if id := rec.agentID(); id != "" && rec.Timestamp > result[id] {
					result[id] = rec.Timestamp
				}
			}
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			break
		}
	}
	return result
}

// Append writes one record as a JSON line. Used by tooling and tests;
// the production writer is the LLM gateway.
func Append(path string, rec Record) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode llm call record: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open llm call log: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("append llm call record: %w", err)
	}
	return nil
}

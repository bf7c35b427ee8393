package sessions

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"
)

// AgentActivity summarizes one agent's session files on disk.
type AgentActivity struct {
	SessionCount int
	LastUpdated  time.Time
}

// sessionHeader is the subset of a session file the scanner needs. The
// LLM gateway owns the files; this side only reads them.
type sessionHeader struct {
	Key     string    `json:"key"`
	Updated time.Time `json:"updated"`
}

// Scan reads every session file under dir and aggregates activity per
// agent id. A missing directory yields an empty map; unreadable or
// malformed files are skipped.
func Scan(dir string) map[string]AgentActivity {
	result := map[string]AgentActivity{}

	files, err := os.ReadDir(dir)
	if err != nil {
		return result
	}

	for _, f := range files {
		if f.IsDir() || filepath.Ext(f.Name()) != ".json" {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, f.Name()))
		if err != nil {
			continue
		}
		var hdr sessionHeader
		if err := json.Unmarshal(data, &hdr); err != nil {
			continue
		}
		agentID := AgentID(hdr.Key)
		if agentID == "" {
			continue
		}

		activity := result[agentID]
		activity.SessionCount++
		if hdr.Updated.After(activity.LastUpdated) {
			activity.LastUpdated = hdr.Updated
		}
		result[agentID] = activity
	}
	return result
}

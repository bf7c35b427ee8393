package gateway

import (
	"net/http"
	"time"

	"github.com/adhocore/gronx"

	"github.com/nextlevelbuilder/opencompany/internal/config"
	"github.com/nextlevelbuilder/opencompany/internal/llmlog"
	"github.com/nextlevelbuilder/opencompany/internal/sessions"
	"github.com/nextlevelbuilder/opencompany/internal/store"
)

// Liveness buckets for /agents-status.json.
const (
	livenessActive  = "active"  // activity < 10 min ago
	livenessIdle    = "idle"    // 10–30 min
	livenessStale   = "stale"   // > 30 min
	livenessOffline = "offline" // no record at all
)

const (
	activeWindow = 10 * time.Minute
	idleWindow   = 30 * time.Minute
)

// agentStatus is one roster row of the status view.
type agentStatus struct {
	ID               string `json:"id"`
	Name             string `json:"name,omitempty"`
	Emoji            string `json:"emoji,omitempty"`
	Layer            string `json:"layer,omitempty"`
	Role             string `json:"role,omitempty"`
	Liveness         string `json:"liveness"`
	LastActivityAt   *int64 `json:"lastActivityAt,omitempty"`
	NextActivityAt   *int64 `json:"nextActivityAt,omitempty"`
	ActiveTasks      int    `json:"activeTasks"`
	BlockedTasks     int    `json:"blockedTasks"`
	DoneTasks        int    `json:"doneTasks"`
	SessionCount     int    `json:"sessionCount"`
	LastSessionAgeMs *int64 `json:"lastSessionAgeMs,omitempty"`
}

type statusTotals struct {
	Agents       int `json:"agents"`
	Active       int `json:"active"`
	Idle         int `json:"idle"`
	Stale        int `json:"stale"`
	Offline      int `json:"offline"`
	ActiveTasks  int `json:"activeTasks"`
	BlockedTasks int `json:"blockedTasks"`
	DoneTasks    int `json:"doneTasks"`
}

type heartbeatStatus struct {
	Configured  int    `json:"configured"`
	NextAgentID string `json:"nextAgentId,omitempty"`
	NextAt      *int64 `json:"nextAt,omitempty"`
}

type cronEntry struct {
	AgentID  string `json:"agentId"`
	Schedule string `json:"schedule"`
	NextAt   *int64 `json:"nextAt,omitempty"`
}

// handleAgentsStatus serves /agents-status.json: the config roster joined
// with per-agent task counts, session files, and the LLM call log.
func (s *Server) handleAgentsStatus(w http.ResponseWriter, r *http.Request) {
	now := time.Now()

	summaries := map[string]store.AgentTaskSummary{}
	if rows, err := s.tasks.GetAgentSummaries(r.Context()); err == nil {
		for _, row := range rows {
			summaries[row.AgentID] = row
		}
	} else {
		writeJSONError(w, http.StatusServiceUnavailable, err.Error())
		return
	}

	activity := sessions.Scan(config.SessionsDir())
	lastCalls := llmlog.LastCallByAgent(config.LLMCallLogPath())

	agents := make([]agentStatus, 0, len(s.cfg.Agents))
	totals := statusTotals{}
	heartbeat := heartbeatStatus{}
	crons := []cronEntry{}

	for _, a := range s.cfg.Agents {
		row := agentStatus{
			ID:    a.ID,
			Name:  a.Name,
			Emoji: a.Emoji,
			Layer: a.Layer,
			Role:  a.Role,
		}

		if sum, ok := summaries[a.ID]; ok {
			row.ActiveTasks = sum.ByStatus[store.TaskStatusActive]
			row.BlockedTasks = sum.ByStatus[store.TaskStatusBlocked]
			row.DoneTasks = sum.ByStatus[store.TaskStatusDone]
		}

		// Last activity is the newest of LLM call, session write, and
		// task heartbeat.
		var last int64
		if ts := lastCalls[a.ID]; ts > last {
			last = ts
		}
		if act, ok := activity[a.ID]; ok {
			row.SessionCount = act.SessionCount
			if !act.LastUpdated.IsZero() {
				age := now.Sub(act.LastUpdated).Milliseconds()
				row.LastSessionAgeMs = &age
				if ts := act.LastUpdated.UnixMilli(); ts > last {
					last = ts
				}
			}
		}
		if sum, ok := summaries[a.ID]; ok && sum.LastHeartbeatAt != nil && *sum.LastHeartbeatAt > last {
			last = *sum.LastHeartbeatAt
		}

		if last > 0 {
			row.LastActivityAt = &last
			switch age := now.Sub(time.UnixMilli(last)); {
			case age < activeWindow:
				row.Liveness = livenessActive
			case age < idleWindow:
				row.Liveness = livenessIdle
			default:
				row.Liveness = livenessStale
			}
		} else {
			row.Liveness = livenessOffline
		}

		if a.Heartbeat != "" {
			heartbeat.Configured++
			entry := cronEntry{AgentID: a.ID, Schedule: a.Heartbeat}
			if next, err := gronx.NextTick(a.Heartbeat, false); err == nil {
				ts := next.UnixMilli()
				entry.NextAt = &ts
				row.NextActivityAt = &ts
				if heartbeat.NextAt == nil || ts < *heartbeat.NextAt {
					heartbeat.NextAt = &ts
					heartbeat.NextAgentID = a.ID
				}
			}
			crons = append(crons, entry)
		}

		totals.Agents++
		switch row.Liveness {
		case livenessActive:
			totals.Active++
		case livenessIdle:
			totals.Idle++
		case livenessStale:
			totals.Stale++
		default:
			totals.Offline++
		}
		totals.ActiveTasks += row.ActiveTasks
		totals.BlockedTasks += row.BlockedTasks
		totals.DoneTasks += row.DoneTasks

		agents = append(agents, row)
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"timestamp":      now.UnixMilli(),
		"defaultAgentId": s.cfg.ResolveDefaultAgentID(),
		"agents":         agents,
		"totals":         totals,
		"heartbeat":      heartbeat,
		"cron":           crons,
	})
}

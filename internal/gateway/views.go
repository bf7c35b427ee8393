package gateway

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/nextlevelbuilder/opencompany/internal/store"
)

// writeJSON writes data as a JSON response body with the given status.
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeJSONError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]interface{}{"ok": false, "error": msg})
}

// handleTasksData serves /tasks-data.json. The view query parameter picks
// the store read: summary (default), list, detail, or logs.
func (s *Server) handleTasksData(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query()

	view := q.Get("view")
	if view == "" {
		view = "summary"
	}

	switch view {
	case "summary":
		summary, err := s.tasks.GetSummary(ctx)
		if err != nil {
			writeJSONError(w, http.StatusServiceUnavailable, err.Error())
			return
		}
		agents, err := s.tasks.GetAgentSummaries(ctx)
		if err != nil {
			writeJSONError(w, http.StatusServiceUnavailable, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"ok":      true,
			"summary": summary,
			"agents":  agents,
		})

	case "list":
		query := store.TaskQuery{
			AgentID:      q.Get("agent"),
			Status:       q.Get("status"),
			ParentTaskID: q.Get("parent"),
		}
		if raw := q.Get("limit"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n < 0 {
				writeJSONError(w, http.StatusBadRequest, "limit must be a non-negative integer")
				return
			}
			query.Limit = &n
		}
		tasks, err := s.tasks.ListTasks(ctx, query)
		if err != nil {
			writeJSONError(w, http.StatusServiceUnavailable, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"ok":    true,
			"tasks": tasks,
		})

	case "detail":
		id := q.Get("id")
		if id == "" {
			writeJSONError(w, http.StatusBadRequest, "id is required")
			return
		}
		task, err := s.tasks.GetTask(ctx, id)
		if err != nil {
			writeJSONError(w, http.StatusServiceUnavailable, err.Error())
			return
		}
		if task == nil {
			writeJSONError(w, http.StatusNotFound, fmt.Sprintf("task %s not found", id))
			return
		}
		subtasks, err := s.tasks.GetSubtasks(ctx, id)
		if err != nil {
			writeJSONError(w, http.StatusServiceUnavailable, err.Error())
			return
		}
		limit := 50
		logs, err := s.tasks.GetLogs(ctx, id, store.LogQuery{Limit: &limit})
		if err != nil {
			writeJSONError(w, http.StatusServiceUnavailable, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"ok":       true,
			"task":     task,
			"subtasks": subtasks,
			"logs":     logs,
		})

	case "logs":
		id := q.Get("id")
		if id == "" {
			writeJSONError(w, http.StatusBadRequest, "id is required")
			return
		}
		query := store.LogQuery{}
		if raw := q.Get("limit"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n < 0 {
				writeJSONError(w, http.StatusBadRequest, "limit must be a non-negative integer")
				return
			}
			query.Limit = &n
		}
		if raw := q.Get("before"); raw != "" {
			ts, err := strconv.ParseInt(raw, 10, 64)
			if err != nil {
				writeJSONError(w, http.StatusBadRequest, "before must be a unix-millis timestamp")
				return
			}
			query.Before = ts
		}
		logs, err := s.tasks.GetLogs(ctx, id, query)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				writeJSONError(w, http.StatusNotFound, fmt.Sprintf("task %s not found", id))
				return
			}
			writeJSONError(w, http.StatusServiceUnavailable, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"ok":   true,
			"logs": logs,
		})

	default:
		writeJSONError(w, http.StatusBadRequest, fmt.Sprintf("unknown view %q", view))
	}
}

package store

import (
	"context"
	"encoding/json"
)

// Task statuses. Done and failed are terminal.
const (
	TaskStatusActive  = "active"
	TaskStatusBlocked = "blocked"
	TaskStatusWaiting = "waiting"
	TaskStatusDone    = "done"
	TaskStatusFailed  = "failed"
)

// Task priorities.
const (
	TaskPriorityCritical = "critical"
	TaskPriorityHigh     = "high"
	TaskPriorityMedium   = "medium"
	TaskPriorityLow      = "low"
)

// Task log entry types.
const (
	TaskLogCreated    = "created"
	TaskLogUpdated    = "updated"
	TaskLogProgress   = "progress"
	TaskLogCheckpoint = "checkpoint"
	TaskLogError      = "error"
	TaskLogHeartbeat  = "heartbeat"
	TaskLogBlocked    = "blocked"
	TaskLogUnblocked  = "unblocked"
	TaskLogCompleted  = "completed"
	TaskLogFailed     = "failed"
	TaskLogReassigned = "reassigned"
)

// Default stale threshold used by GetSummary.
const DefaultStaleThresholdMs = 15 * 60 * 1000

// IsTerminalStatus reports whether status ends a task's lifecycle.
func IsTerminalStatus(status string) bool {
	return status == TaskStatusDone || status == TaskStatusFailed
}

// Task is one durable work thread. Dependencies holds prerequisite task
// ids in insertion order. LastHeartbeatAt and CompletedAt are nil until
// set; CompletedAt is non-nil exactly when the status is terminal.
type Task struct {
	ID              string          `json:"id"`
	AgentID         string          `json:"agentId"`
	ParentTaskID    string          `json:"parentTaskId,omitempty"`
	Objective       string          `json:"objective"`
	Status          string          `json:"status"`
	Priority        string          `json:"priority"`
	ProgressSummary string          `json:"progressSummary,omitempty"`
	Artifacts       []string        `json:"artifacts,omitempty"`
	Dependencies    []string        `json:"dependencies,omitempty"`
	Metadata        json.RawMessage `json:"metadata,omitempty"`
	LastHeartbeatAt *int64          `json:"lastHeartbeatAt,omitempty"`
	CreatedAt       int64           `json:"createdAt"`
	UpdatedAt       int64           `json:"updatedAt"`
	CompletedAt     *int64          `json:"completedAt,omitempty"`
}

// TaskLog is an immutable history entry on a task.
type TaskLog struct {
	ID        string          `json:"id"`
	TaskID    string          `json:"taskId"`
	AgentID   string          `json:"agentId"`
	Type      string          `json:"type"`
	Message   string          `json:"message"`
	Metadata  json.RawMessage `json:"metadata,omitempty"`
	Timestamp int64           `json:"timestamp"`
}

// CreateTaskParams describes a new task. Priority defaults to medium.
// Dependencies must name existing tasks.
type CreateTaskParams struct {
	AgentID      string
	Objective    string
	ParentTaskID string
	Priority     string
	Dependencies []string
	Metadata     json.RawMessage
}

// TaskPatch is a partial update. Nil fields are left unchanged.
type TaskPatch struct {
	Status          *string
	Priority        *string
	ProgressSummary *string
	Objective       *string
	AgentID         *string
	Artifacts       *[]string
	Metadata        json.RawMessage
}

// TaskQuery filters ListTasks. Empty strings match everything. Limit nil
// means the default (200); an explicit 0 returns nothing.
type TaskQuery struct {
	AgentID      string
	Status       string
	ParentTaskID string
	Limit        *int
}

// LogQuery bounds a GetLogs read. Limit nil means the default (100); an
// explicit 0 returns nothing. Before of 0 means no upper bound.
type LogQuery struct {
	Limit  *int
	Before int64
}

// TaskSummary aggregates counts across all tasks. Stale uses the default
// 15-minute threshold.
type TaskSummary struct {
	Total    int            `json:"total"`
	ByStatus map[string]int `json:"byStatus"`
	Stale    int            `json:"stale"`
}

// AgentTaskSummary is one agent's slice of the task table.
type AgentTaskSummary struct {
	AgentID         string         `json:"agentId"`
	Total           int            `json:"total"`
	ByStatus        map[string]int `json:"byStatus"`
	LastHeartbeatAt *int64         `json:"lastHeartbeatAt,omitempty"`
}

// TaskStore manages task threads, their logs, and dependency edges.
// Mutations emit events only after the write has committed. Tasks are
// never deleted.
type TaskStore interface {
	// CreateTask inserts the task, its dependency edges, and a created
	// log entry in one transaction.
	CreateTask(ctx context.Context, p CreateTaskParams) (*Task, error)

	// GetTask returns the full task or nil when unknown.
	GetTask(ctx context.Context, id string) (*Task, error)

	// UpdateTask applies the patch and bumps updated_at. A transition
	// into done or failed sets completed_at once (the first terminal
	// transition wins); leaving a terminal status clears it. Returns nil
	// when the task is unknown.
	UpdateTask(ctx context.Context, id string, patch TaskPatch) (*Task, error)

	// Heartbeat stamps last_heartbeat_at. A non-empty message also
	// appends a heartbeat log. Returns ErrNotFound for unknown ids.
	Heartbeat(ctx context.Context, taskID, agentID, message string) (*Task, error)

	// AppendLog appends one log entry. Returns ErrNotFound for unknown
	// task ids.
	AppendLog(ctx context.Context, taskID, agentID, logType, message string, metadata json.RawMessage) (*TaskLog, error)

	// GetLogs returns log entries in ascending timestamp order.
	GetLogs(ctx context.Context, taskID string, q LogQuery) ([]TaskLog, error)

	// ListTasks filters tasks ordered by updated_at descending.
	ListTasks(ctx context.Context, q TaskQuery) ([]Task, error)

	// GetStaleTasks returns active or blocked tasks whose last heartbeat
	// is older than the threshold (or missing), excluding tasks created
	// within the threshold. Oldest stalls first.
	GetStaleTasks(ctx context.Context, thresholdMs int64) ([]Task, error)

	GetDependencies(ctx context.Context, taskID string) ([]string, error)
	GetDependents(ctx context.Context, taskID string) ([]string, error)
	AddDependency(ctx context.Context, taskID, dependsOnTaskID string) error
	RemoveDependency(ctx context.Context, taskID, dependsOnTaskID string) error

	// GetSubtasks returns direct children ordered by creation.
	GetSubtasks(ctx context.Context, parentID string) ([]Task, error)

	GetSummary(ctx context.Context) (*TaskSummary, error)
	GetAgentSummaries(ctx context.Context) ([]AgentTaskSummary, error)

	Close() error
}

package methods

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nextlevelbuilder/opencompany/internal/gateway"
	"github.com/nextlevelbuilder/opencompany/internal/store"
	"github.com/nextlevelbuilder/opencompany/pkg/protocol"
)

// TaskMethods serves the tasks.* RPC surface.
type TaskMethods struct {
	store store.TaskStore
}

// NewTaskMethods creates the handler set over a task store.
func NewTaskMethods(s store.TaskStore) *TaskMethods {
	return &TaskMethods{store: s}
}

// Register binds every task method onto the router.
func (m *TaskMethods) Register(router *gateway.MethodRouter) {
	router.Register(protocol.MethodTasksCreate, m.handleCreate)
	router.Register(protocol.MethodTasksGet, m.handleGet)
	router.Register(protocol.MethodTasksUpdate, m.handleUpdate)
	router.Register(protocol.MethodTasksList, m.handleList)
	router.Register(protocol.MethodTasksLogs, m.handleLogs)
	router.Register(protocol.MethodTasksLog, m.handleLog)
	router.Register(protocol.MethodTasksHeartbeat, m.handleHeartbeat)
	router.Register(protocol.MethodTasksSummary, m.handleSummary)
}

func validStatus(s string) bool {
	switch s {
	case store.TaskStatusActive, store.TaskStatusBlocked, store.TaskStatusWaiting,
		store.TaskStatusDone, store.TaskStatusFailed:
		return true
	}
	return false
}

func validPriority(p string) bool {
	switch p {
	case store.TaskPriorityCritical, store.TaskPriorityHigh,
		store.TaskPriorityMedium, store.TaskPriorityLow:
		return true
	}
	return false
}

func (m *TaskMethods) handleCreate(ctx context.Context, client *gateway.Client, req *protocol.RequestFrame) {
	var params struct {
		AgentID      string          `json:"agentId"`
		Objective    string          `json:"objective"`
		ParentTaskID string          `json:"parentTaskId"`
		Priority     string          `json:"priority"`
		Dependencies []string        `json:"dependencies"`
		Metadata     json.RawMessage `json:"metadata"`
	}
	if req.Params != nil {
		json.Unmarshal(req.Params, &params)
	}
	if params.AgentID == "" {
		client.SendResponse(protocol.NewErrorResponse(req.ID, protocol.ErrInvalidRequest, "agentId is required"))
		return
	}
	if params.Objective == "" {
		client.SendResponse(protocol.NewErrorResponse(req.ID, protocol.ErrInvalidRequest, "objective is required"))
		return
	}
	if params.Priority != "" && !validPriority(params.Priority) {
		client.SendResponse(protocol.NewErrorResponse(req.ID, protocol.ErrInvalidRequest,
			fmt.Sprintf("priority %q is not one of critical, high, medium, low", params.Priority)))
		return
	}

	task, err := m.store.CreateTask(ctx, store.CreateTaskParams{
		AgentID:      params.AgentID,
		Objective:    params.Objective,
		ParentTaskID: params.ParentTaskID,
		Priority:     params.Priority,
		Dependencies: params.Dependencies,
		Metadata:     params.Metadata,
	})
	if err != nil {
		client.SendResponse(storeError(req.ID, err))
		return
	}

	client.SendResponse(protocol.NewOKResponse(req.ID, map[string]interface{}{
		"task": task,
	}))
}

func (m *TaskMethods) handleGet(ctx context.Context, client *gateway.Client, req *protocol.RequestFrame) {
	var params struct {
		ID string `json:"id"`
	}
	if req.Params != nil {
		json.Unmarshal(req.Params, &params)
	}
	if params.ID == "" {
		client.SendResponse(protocol.NewErrorResponse(req.ID, protocol.ErrInvalidRequest, "id is required"))
		return
	}

	task, err := m.store.GetTask(ctx, params.ID)
	if err != nil {
		client.SendResponse(storeError(req.ID, err))
		return
	}
	if task == nil {
		client.SendResponse(protocol.NewErrorResponse(req.ID, protocol.ErrInvalidRequest,
			fmt.Sprintf("task %q not found", params.ID)))
		return
	}

	client.SendResponse(protocol.NewOKResponse(req.ID, map[string]interface{}{
		"task": task,
	}))
}

func (m *TaskMethods) handleUpdate(ctx context.Context, client *gateway.Client, req *protocol.RequestFrame) {
	var params struct {
		ID              string          `json:"id"`
		Status          *string         `json:"status"`
		Priority        *string         `json:"priority"`
		ProgressSummary *string         `json:"progressSummary"`
		Objective       *string         `json:"objective"`
		AgentID         *string         `json:"agentId"`
		Artifacts       *[]string       `json:"artifacts"`
		Metadata        json.RawMessage `json:"metadata"`
	}
	if req.Params != nil {
		json.Unmarshal(req.Params, &params)
	}
	if params.ID == "" {
		client.SendResponse(protocol.NewErrorResponse(req.ID, protocol.ErrInvalidRequest, "id is required"))
		return
	}
	if params.Status != nil && !validStatus(*params.Status) {
		client.SendResponse(protocol.NewErrorResponse(req.ID, protocol.ErrInvalidRequest,
			fmt.Sprintf("status %q is not one of active, blocked, waiting, done, failed", *params.Status)))
		return
	}
	if params.Priority != nil && !validPriority(*params.Priority) {
		client.SendResponse(protocol.NewErrorResponse(req.ID, protocol.ErrInvalidRequest,
			fmt.Sprintf("priority %q is not one of critical, high, medium, low", *params.Priority)))
		return
	}
	if params.AgentID != nil && *params.AgentID == "" {
		client.SendResponse(protocol.NewErrorResponse(req.ID, protocol.ErrInvalidRequest, "agentId must not be empty"))
		return
	}
	if params.Objective != nil && *params.Objective == "" {
		client.SendResponse(protocol.NewErrorResponse(req.ID, protocol.ErrInvalidRequest, "objective must not be empty"))
		return
	}

	task, err := m.store.UpdateTask(ctx, params.ID, store.TaskPatch{
		Status:          params.Status,
		Priority:        params.Priority,
		ProgressSummary: params.ProgressSummary,
		Objective:       params.Objective,
		AgentID:         params.AgentID,
		Artifacts:       params.Artifacts,
		Metadata:        params.Metadata,
	})
	if err != nil {
		client.SendResponse(storeError(req.ID, err))
		return
	}
	if task == nil {
		client.SendResponse(protocol.NewErrorResponse(req.ID, protocol.ErrInvalidRequest,
			fmt.Sprintf("task %q not found", params.ID)))
		return
	}

	client.SendResponse(protocol.NewOKResponse(req.ID, map[string]interface{}{
		"task": task,
	}))
}

func (m *TaskMethods) handleList(ctx context.Context, client *gateway.Client, req *protocol.RequestFrame) {
	var params struct {
		AgentID      string `json:"agentId"`
		Status       string `json:"status"`
		ParentTaskID string `json:"parentTaskId"`
		Limit        *int   `json:"limit"`
	}
	if req.Params != nil {
		json.Unmarshal(req.Params, &params)
	}
	if params.Status != "" && !validStatus(params.Status) {
		client.SendResponse(protocol.NewErrorResponse(req.ID, protocol.ErrInvalidRequest,
			fmt.Sprintf("status %q is not one of active, blocked, waiting, done, failed", params.Status)))
		return
	}
	if params.Limit != nil && *params.Limit < 0 {
		client.SendResponse(protocol.NewErrorResponse(req.ID, protocol.ErrInvalidRequest, "limit must not be negative"))
		return
	}

	tasks, err := m.store.ListTasks(ctx, store.TaskQuery{
		AgentID:      params.AgentID,
		Status:       params.Status,
		ParentTaskID: params.ParentTaskID,
		Limit:        params.Limit,
	})
	if err != nil {
		client.SendResponse(storeError(req.ID, err))
		return
	}

	client.SendResponse(protocol.NewOKResponse(req.ID, map[string]interface{}{
		"tasks": tasks,
	}))
}

func (m *TaskMethods) handleLogs(ctx context.Context, client *gateway.Client, req *protocol.RequestFrame) {
	var params struct {
		TaskID string `json:"taskId"`
		Limit  *int   `json:"limit"`
		Before int64  `json:"before"`
	}
	if req.Params != nil {
		json.Unmarshal(req.Params, &params)
	}
	if params.TaskID == "" {
		client.SendResponse(protocol.NewErrorResponse(req.ID, protocol.ErrInvalidRequest, "taskId is required"))
		return
	}
	if params.Limit != nil && *params.Limit < 0 {
		client.SendResponse(protocol.NewErrorResponse(req.ID, protocol.ErrInvalidRequest, "limit must not be negative"))
		return
	}

	logs, err := m.store.GetLogs(ctx, params.TaskID, store.LogQuery{
		Limit:  params.Limit,
		Before: params.Before,
	})
	if err != nil {
		client.SendResponse(storeError(req.ID, err))
		return
	}

	client.SendResponse(protocol.NewOKResponse(req.ID, map[string]interface{}{
		"logs": logs,
	}))
}

func (m *TaskMethods) handleLog(ctx context.Context, client *gateway.Client, req *protocol.RequestFrame) {
	var params struct {
		TaskID   string          `json:"taskId"`
		AgentID  string          `json:"agentId"`
		Type     string          `json:"type"`
		Message  string          `json:"message"`
		Metadata json.RawMessage `json:"metadata"`
	}
	if req.Params != nil {
		json.Unmarshal(req.Params, &params)
	}
	if params.TaskID == "" {
		client.SendResponse(protocol.NewErrorResponse(req.ID, protocol.ErrInvalidRequest, "taskId is required"))
		return
	}
	if params.AgentID == "" {
		client.SendResponse(protocol.NewErrorResponse(req.ID, protocol.ErrInvalidRequest, "agentId is required"))
		return
	}
	if params.Type == "" {
		client.SendResponse(protocol.NewErrorResponse(req.ID, protocol.ErrInvalidRequest, "type is required"))
		return
	}
	if params.Message == "" {
		client.SendResponse(protocol.NewErrorResponse(req.ID, protocol.ErrInvalidRequest, "message is required"))
		return
	}

	log, err := m.store.AppendLog(ctx, params.TaskID, params.AgentID, params.Type, params.Message, params.Metadata)
	if err != nil {
		client.SendResponse(storeError(req.ID, err))
		return
	}

	client.SendResponse(protocol.NewOKResponse(req.ID, map[string]interface{}{
		"log": log,
	}))
}

func (m *TaskMethods) handleHeartbeat(ctx context.Context, client *gateway.Client, req *protocol.RequestFrame) {
	var params struct {
		TaskID  string `json:"taskId"`
		AgentID string `json:"agentId"`
		Message string `json:"message"`
	}
	if req.Params != nil {
		json.Unmarshal(req.Params, &params)
	}
	if params.TaskID == "" {
		client.SendResponse(protocol.NewErrorResponse(req.ID, protocol.ErrInvalidRequest, "taskId is required"))
		return
	}
	if params.AgentID == "" {
		client.SendResponse(protocol.NewErrorResponse(req.ID, protocol.ErrInvalidRequest, "agentId is required"))
		return
	}

	task, err := m.store.Heartbeat(ctx, params.TaskID, params.AgentID, params.Message)
	if err != nil {
		client.SendResponse(storeError(req.ID, err))
		return
	}

	client.SendResponse(protocol.NewOKResponse(req.ID, map[string]interface{}{
		"task": task,
	}))
}

func (m *TaskMethods) handleSummary(ctx context.Context, client *gateway.Client, req *protocol.RequestFrame) {
	summary, err := m.store.GetSummary(ctx)
	if err != nil {
		client.SendResponse(storeError(req.ID, err))
		return
	}
	agents, err := m.store.GetAgentSummaries(ctx)
	if err != nil {
		client.SendResponse(storeError(req.ID, err))
		return
	}

	client.SendResponse(protocol.NewOKResponse(req.ID, map[string]interface{}{
		"summary": summary,
		"agents":  agents,
	}))
}

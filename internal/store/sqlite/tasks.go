package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/nextlevelbuilder/opencompany/internal/bus"
	"github.com/nextlevelbuilder/opencompany/internal/store"
	"github.com/nextlevelbuilder/opencompany/pkg/protocol"
)

// SQLiteTaskStore implements store.TaskStore backed by tasks.db.
type SQLiteTaskStore struct {
	db     *sql.DB
	events bus.EventPublisher
}

func NewSQLiteTaskStore(db *sql.DB, events bus.EventPublisher) *SQLiteTaskStore {
	return &SQLiteTaskStore{db: db, events: events}
}

// --- Column constants ---

const taskSelectCols = `id, agent_id, parent_task_id, objective, status, priority, progress_summary, artifacts, metadata, last_heartbeat_at, created_at, updated_at, completed_at`

const taskLogSelectCols = `id, task_id, agent_id, type, message, metadata, timestamp`

const (
	defaultLogLimit  = 100
	defaultTaskLimit = 200
)

// ============================================================
// Task CRUD
// ============================================================

func (s *SQLiteTaskStore) CreateTask(ctx context.Context, p store.CreateTaskParams) (*store.Task, error) {
	if p.Priority == "" {
		p.Priority = store.TaskPriorityMedium
	}
	now := nowMillis()

	task := &store.Task{
		ID:           store.GenNewID(),
		AgentID:      p.AgentID,
		ParentTaskID: p.ParentTaskID,
		Objective:    p.Objective,
		Status:       store.TaskStatusActive,
		Priority:     p.Priority,
		Metadata:     p.Metadata,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	deps := make([]string, 0, len(p.Dependencies))
	seen := map[string]bool{}
	for _, id := range p.Dependencies {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		deps = append(deps, id)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("create task: %w", err)
	}
	defer tx.Rollback()

	if p.ParentTaskID != "" {
		ok, err := taskExistsTx(ctx, tx, p.ParentTaskID)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, fmt.Errorf("parent task %q: %w", p.ParentTaskID, store.ErrNotFound)
		}
	}
	for _, dep := range deps {
		ok, err := taskExistsTx(ctx, tx, dep)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, fmt.Errorf("dependency task %q: %w", dep, store.ErrNotFound)
		}
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO tasks (id, agent_id, parent_task_id, objective, status, priority, progress_summary, artifacts, metadata, last_heartbeat_at, created_at, updated_at, completed_at)
		 VALUES (?, ?, ?, ?, ?, ?, '', '[]', ?, NULL, ?, ?, NULL)`,
		task.ID, task.AgentID, nullString(task.ParentTaskID), task.Objective,
		task.Status, task.Priority, nullRaw(task.Metadata), now, now,
	)
	if err != nil {
		return nil, fmt.Errorf("create task: %w", err)
	}

	for _, dep := range deps {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO task_dependencies (task_id, depends_on_task_id) VALUES (?, ?)`,
			task.ID, dep,
		)
		if err != nil {
			return nil, fmt.Errorf("create task dependency %s: %w", dep, err)
		}
	}
	task.Dependencies = deps

	if _, err := insertLogTx(ctx, tx, task.ID, task.AgentID, store.TaskLogCreated, task.Objective, nil, now); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("create task: %w", err)
	}

	s.broadcast(protocol.EventTaskCreated, task)
	return task, nil
}

func (s *SQLiteTaskStore) GetTask(ctx context.Context, id string) (*store.Task, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+taskSelectCols+` FROM tasks WHERE id = ?`, id)
	task, err := scanTaskRow(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	task.Dependencies, err = s.GetDependencies(ctx, id)
	if err != nil {
		return nil, err
	}
	return task, nil
}

func (s *SQLiteTaskStore) UpdateTask(ctx context.Context, id string, patch store.TaskPatch) (*store.Task, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("update task: %w", err)
	}
	defer tx.Rollback()

	row := tx.QueryRowContext(ctx, `SELECT `+taskSelectCols+` FROM tasks WHERE id = ?`, id)
	task, err := scanTaskRow(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	prevStatus := task.Status
	prevAgent := task.AgentID

	if patch.Status != nil {
		task.Status = *patch.Status
	}
	if patch.Priority != nil {
		task.Priority = *patch.Priority
	}
	if patch.ProgressSummary != nil {
		task.ProgressSummary = *patch.ProgressSummary
	}
	if patch.Objective != nil {
		task.Objective = *patch.Objective
	}
	if patch.AgentID != nil {
		task.AgentID = *patch.AgentID
	}
	if patch.Artifacts != nil {
		task.Artifacts = *patch.Artifacts
	}
	if patch.Metadata != nil {
		task.Metadata = patch.Metadata
	}

	now := nowMillis()
	if now < task.UpdatedAt {
		now = task.UpdatedAt
	}
	task.UpdatedAt = now

	// completed_at is pinned to the first terminal transition and
	// cleared if the task leaves a terminal status.
	if store.IsTerminalStatus(task.Status) {
		if task.CompletedAt == nil {
			task.CompletedAt = &now
		}
	} else {
		task.CompletedAt = nil
	}

	artifactsJSON, err := json.Marshal(artifactsOrEmpty(task.Artifacts))
	if err != nil {
		return nil, fmt.Errorf("encode artifacts: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE tasks SET agent_id = ?, objective = ?, status = ?, priority = ?,
		 progress_summary = ?, artifacts = ?, metadata = ?, updated_at = ?, completed_at = ?
		 WHERE id = ?`,
		task.AgentID, task.Objective, task.Status, task.Priority,
		task.ProgressSummary, string(artifactsJSON), nullRaw(task.Metadata),
		task.UpdatedAt, nullInt64(task.CompletedAt), id,
	)
	if err != nil {
		return nil, fmt.Errorf("update task: %w", err)
	}

	statusChanged := task.Status != prevStatus
	enteredTerminal := statusChanged && store.IsTerminalStatus(task.Status)
	reassigned := task.AgentID != prevAgent

	if enteredTerminal {
		logType := store.TaskLogCompleted
		if task.Status == store.TaskStatusFailed {
			logType = store.TaskLogFailed
		}
		msg := fmt.Sprintf("%s -> %s", prevStatus, task.Status)
		if _, err := insertLogTx(ctx, tx, task.ID, task.AgentID, logType, msg, nil, now); err != nil {
			return nil, err
		}
	}
	if reassigned {
		msg := fmt.Sprintf("%s -> %s", prevAgent, task.AgentID)
		if _, err := insertLogTx(ctx, tx, task.ID, task.AgentID, store.TaskLogReassigned, msg, nil, now); err != nil {
			return nil, err
		}
	}

	deps, err := loadDependenciesTx(ctx, tx, task.ID)
	if err != nil {
		return nil, err
	}
	task.Dependencies = deps

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("update task: %w", err)
	}

	s.broadcast(protocol.EventTaskUpdated, task)
	if enteredTerminal {
		name := protocol.EventTaskCompleted
		if task.Status == store.TaskStatusFailed {
			name = protocol.EventTaskFailed
		}
		s.broadcast(name, task)
	}
	return task, nil
}

func (s *SQLiteTaskStore) Heartbeat(ctx context.Context, taskID, agentID, message string) (*store.Task, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("heartbeat: %w", err)
	}
	defer tx.Rollback()

	row := tx.QueryRowContext(ctx, `SELECT `+taskSelectCols+` FROM tasks WHERE id = ?`, taskID)
	task, err := scanTaskRow(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("task %q: %w", taskID, store.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}

	now := nowMillis()
	if now < task.UpdatedAt {
		now = task.UpdatedAt
	}
	task.LastHeartbeatAt = &now
	task.UpdatedAt = now

	_, err = tx.ExecContext(ctx,
		`UPDATE tasks SET last_heartbeat_at = ?, updated_at = ? WHERE id = ?`,
		now, now, taskID,
	)
	if err != nil {
		return nil, fmt.Errorf("heartbeat: %w", err)
	}

	if message != "" {
		if _, err := insertLogTx(ctx, tx, taskID, agentID, store.TaskLogHeartbeat, message, nil, now); err != nil {
			return nil, err
		}
	}

	deps, err := loadDependenciesTx(ctx, tx, taskID)
	if err != nil {
		return nil, err
	}
	task.Dependencies = deps

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("heartbeat: %w", err)
	}

	s.broadcast(protocol.EventTaskHeartbeat, task)
	return task, nil
}

// ============================================================
// Logs
// ============================================================

func (s *SQLiteTaskStore) AppendLog(ctx context.Context, taskID, agentID, logType, message string, metadata json.RawMessage) (*store.TaskLog, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("append log: %w", err)
	}
	defer tx.Rollback()

	ok, err := taskExistsTx(ctx, tx, taskID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("task %q: %w", taskID, store.ErrNotFound)
	}

	entry, err := insertLogTx(ctx, tx, taskID, agentID, logType, message, metadata, nowMillis())
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("append log: %w", err)
	}

	s.broadcast(protocol.EventTaskLog, entry)
	return entry, nil
}

func (s *SQLiteTaskStore) GetLogs(ctx context.Context, taskID string, q store.LogQuery) ([]store.TaskLog, error) {
	ok, err := s.taskExists(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("task %q: %w", taskID, store.ErrNotFound)
	}

	limit := defaultLogLimit
	if q.Limit != nil {
		limit = *q.Limit
	}
	if limit <= 0 {
		return []store.TaskLog{}, nil
	}

	query := `SELECT ` + taskLogSelectCols + ` FROM task_logs WHERE task_id = ?`
	args := []any{taskID}
	if q.Before > 0 {
		query += ` AND timestamp < ?`
		args = append(args, q.Before)
	}
	// Newest first so the limit keeps the most recent window; reversed
	// below to ascending.
	query += ` ORDER BY timestamp DESC, id DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	logs, err := scanLogRows(rows)
	if err != nil {
		return nil, err
	}
	for i, j := 0, len(logs)-1; i < j; i, j = i+1, j-1 {
		logs[i], logs[j] = logs[j], logs[i]
	}
	return logs, nil
}

// ============================================================
// Listing
// ============================================================

func (s *SQLiteTaskStore) ListTasks(ctx context.Context, q store.TaskQuery) ([]store.Task, error) {
	limit := defaultTaskLimit
	if q.Limit != nil {
		limit = *q.Limit
	}
	if limit <= 0 {
		return []store.Task{}, nil
	}

	query := `SELECT ` + taskSelectCols + ` FROM tasks WHERE 1=1`
	args := []any{}
	if q.AgentID != "" {
		query += ` AND agent_id = ?`
		args = append(args, q.AgentID)
	}
	if q.Status != "" {
		query += ` AND status = ?`
		args = append(args, q.Status)
	}
	if q.ParentTaskID != "" {
		query += ` AND parent_task_id = ?`
		args = append(args, q.ParentTaskID)
	}
	query += ` ORDER BY updated_at DESC, id DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tasks, err := scanTaskRows(rows)
	if err != nil {
		return nil, err
	}
	if err := s.attachDependencies(ctx, tasks); err != nil {
		return nil, err
	}
	return tasks, nil
}

func (s *SQLiteTaskStore) GetStaleTasks(ctx context.Context, thresholdMs int64) ([]store.Task, error) {
	cutoff := nowMillis() - thresholdMs

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+taskSelectCols+` FROM tasks
		 WHERE status IN (?, ?)
		   AND (last_heartbeat_at IS NULL OR last_heartbeat_at < ?)
		   AND created_at < ?
		 ORDER BY updated_at ASC, id ASC`,
		store.TaskStatusActive, store.TaskStatusBlocked, cutoff, cutoff)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tasks, err := scanTaskRows(rows)
	if err != nil {
		return nil, err
	}
	if err := s.attachDependencies(ctx, tasks); err != nil {
		return nil, err
	}
	return tasks, nil
}

func (s *SQLiteTaskStore) GetSubtasks(ctx context.Context, parentID string) ([]store.Task, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+taskSelectCols+` FROM tasks WHERE parent_task_id = ?
		 ORDER BY created_at, id`, parentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tasks, err := scanTaskRows(rows)
	if err != nil {
		return nil, err
	}
	if err := s.attachDependencies(ctx, tasks); err != nil {
		return nil, err
	}
	return tasks, nil
}

// ============================================================
// Dependencies
// ============================================================

func (s *SQLiteTaskStore) GetDependencies(ctx context.Context, taskID string) ([]string, error) {
	return s.queryEdgeIDs(ctx,
		`SELECT depends_on_task_id FROM task_dependencies WHERE task_id = ? ORDER BY rowid`, taskID)
}

func (s *SQLiteTaskStore) GetDependents(ctx context.Context, taskID string) ([]string, error) {
	return s.queryEdgeIDs(ctx,
		`SELECT task_id FROM task_dependencies WHERE depends_on_task_id = ? ORDER BY rowid`, taskID)
}

func (s *SQLiteTaskStore) AddDependency(ctx context.Context, taskID, dependsOnTaskID string) error {
	for _, id := range []string{taskID, dependsOnTaskID} {
		ok, err := s.taskExists(ctx, id)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("task %q: %w", id, store.ErrNotFound)
		}
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO task_dependencies (task_id, depends_on_task_id) VALUES (?, ?)
		 ON CONFLICT (task_id, depends_on_task_id) DO NOTHING`,
		taskID, dependsOnTaskID,
	)
	return err
}

func (s *SQLiteTaskStore) RemoveDependency(ctx context.Context, taskID, dependsOnTaskID string) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM task_dependencies WHERE task_id = ? AND depends_on_task_id = ?`,
		taskID, dependsOnTaskID,
	)
	return err
}

// ============================================================
// Summaries
// ============================================================

func (s *SQLiteTaskStore) GetSummary(ctx context.Context) (*store.TaskSummary, error) {
	summary := &store.TaskSummary{ByStatus: map[string]int{}}

	rows, err := s.db.QueryContext(ctx,
		`SELECT status, COUNT(*) FROM tasks GROUP BY status`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		summary.ByStatus[status] = count
		summary.Total += count
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	cutoff := nowMillis() - store.DefaultStaleThresholdMs
	err = s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM tasks
		 WHERE status IN (?, ?)
		   AND (last_heartbeat_at IS NULL OR last_heartbeat_at < ?)
		   AND created_at < ?`,
		store.TaskStatusActive, store.TaskStatusBlocked, cutoff, cutoff).
		Scan(&summary.Stale)
	if err != nil {
		return nil, err
	}
	return summary, nil
}

func (s *SQLiteTaskStore) GetAgentSummaries(ctx context.Context) ([]store.AgentTaskSummary, error) {
	byAgent := map[string]*store.AgentTaskSummary{}

	rows, err := s.db.QueryContext(ctx,
		`SELECT agent_id, status, COUNT(*) FROM tasks GROUP BY agent_id, status`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var agentID, status string
		var count int
		if err := rows.Scan(&agentID, &status, &count); err != nil {
			return nil, err
		}
		agg := byAgent[agentID]
		if agg == nil {
			agg = &store.AgentTaskSummary{AgentID: agentID, ByStatus: map[string]int{}}
			byAgent[agentID] = agg
		}
		agg.ByStatus[status] = count
		agg.Total += count
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	hbRows, err := s.db.QueryContext(ctx,
		`SELECT agent_id, MAX(last_heartbeat_at) FROM tasks
		 WHERE last_heartbeat_at IS NOT NULL GROUP BY agent_id`)
	if err != nil {
		return nil, err
	}
	defer hbRows.Close()
	for hbRows.Next() {
		var agentID string
		var hb int64
		if err := hbRows.Scan(&agentID, &hb); err != nil {
			return nil, err
		}
		if agg := byAgent[agentID]; agg != nil {
			v := hb
			agg.LastHeartbeatAt = &v
		}
	}
	if err := hbRows.Err(); err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(byAgent))
	for id := range byAgent {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	summaries := make([]store.AgentTaskSummary, 0, len(ids))
	for _, id := range ids {
		summaries = append(summaries, *byAgent[id])
	}
	return summaries, nil
}

func (s *SQLiteTaskStore) Close() error {
	return s.db.Close()
}

// ============================================================
// Helpers
// ============================================================

func (s *SQLiteTaskStore) broadcast(name string, payload interface{}) {
	if s.events != nil {
		s.events.Broadcast(bus.Event{Name: name, Payload: payload})
	}
}

func (s *SQLiteTaskStore) taskExists(ctx context.Context, id string) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM tasks WHERE id = ?`, id).Scan(&n)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func taskExistsTx(ctx context.Context, tx *sql.Tx, id string) (bool, error) {
	var n int
	err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM tasks WHERE id = ?`, id).Scan(&n)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func insertLogTx(ctx context.Context, tx *sql.Tx, taskID, agentID, logType, message string, metadata json.RawMessage, ts int64) (*store.TaskLog, error) {
	entry := &store.TaskLog{
		ID:        store.GenNewID(),
		TaskID:    taskID,
		AgentID:   agentID,
		Type:      logType,
		Message:   message,
		Metadata:  metadata,
		Timestamp: ts,
	}
	_, err := tx.ExecContext(ctx,
		`INSERT INTO task_logs (id, task_id, agent_id, type, message, metadata, timestamp)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		entry.ID, entry.TaskID, entry.AgentID, entry.Type, entry.Message,
		nullRaw(entry.Metadata), entry.Timestamp,
	)
	if err != nil {
		return nil, fmt.Errorf("append %s log: %w", logType, err)
	}
	return entry, nil
}

func loadDependenciesTx(ctx context.Context, tx *sql.Tx, taskID string) ([]string, error) {
	rows, err := tx.QueryContext(ctx,
		`SELECT depends_on_task_id FROM task_dependencies WHERE task_id = ? ORDER BY rowid`, taskID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (s *SQLiteTaskStore) queryEdgeIDs(ctx context.Context, query, arg string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, query, arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// attachDependencies batch-loads dependency edges for the given tasks.
func (s *SQLiteTaskStore) attachDependencies(ctx context.Context, tasks []store.Task) error {
	if len(tasks) == 0 {
		return nil
	}

	args := make([]any, len(tasks))
	for i := range tasks {
		args[i] = tasks[i].ID
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(tasks)), ",")

	rows, err := s.db.QueryContext(ctx,
		`SELECT task_id, depends_on_task_id FROM task_dependencies
		 WHERE task_id IN (`+placeholders+`) ORDER BY rowid`, args...)
	if err != nil {
		return err
	}
	defer rows.Close()

	deps := map[string][]string{}
	for rows.Next() {
		var taskID, dep string
		if err := rows.Scan(&taskID, &dep); err != nil {
			return err
		}
		deps[taskID] = append(deps[taskID], dep)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	for i := range tasks {
		tasks[i].Dependencies = deps[tasks[i].ID]
	}
	return nil
}

func artifactsOrEmpty(artifacts []string) []string {
	if artifacts == nil {
		return []string{}
	}
	return artifacts
}

// ============================================================
// Scan helpers
// ============================================================

func scanTaskRow(row rowScanner) (*store.Task, error) {
	var t store.Task
	var parentID, metadata sql.NullString
	var artifactsJSON string
	var heartbeat, completed sql.NullInt64

	err := row.Scan(
		&t.ID, &t.AgentID, &parentID, &t.Objective, &t.Status, &t.Priority,
		&t.ProgressSummary, &artifactsJSON, &metadata,
		&heartbeat, &t.CreatedAt, &t.UpdatedAt, &completed,
	)
	if err != nil {
		return nil, err
	}

	if parentID.Valid {
		t.ParentTaskID = parentID.String
	}
	if metadata.Valid {
		t.Metadata = []byte(metadata.String)
	}
	if heartbeat.Valid {
		v := heartbeat.Int64
		t.LastHeartbeatAt = &v
	}
	if completed.Valid {
		v := completed.Int64
		t.CompletedAt = &v
	}

	var artifacts []string
	if err := json.Unmarshal([]byte(artifactsJSON), &artifacts); err != nil {
		return nil, fmt.Errorf("decode artifacts for task %s: %w", t.ID, err)
	}
	if len(artifacts) > 0 {
		t.Artifacts = artifacts
	}
	return &t, nil
}

func scanTaskRows(rows *sql.Rows) ([]store.Task, error) {
	var tasks []store.Task
	for rows.Next() {
		t, err := scanTaskRow(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, *t)
	}
	return tasks, rows.Err()
}

func scanLogRows(rows *sql.Rows) ([]store.TaskLog, error) {
	var logs []store.TaskLog
	for rows.Next() {
		var l store.TaskLog
		var metadata sql.NullString
		if err := rows.Scan(&l.ID, &l.TaskID, &l.AgentID, &l.Type, &l.Message, &metadata, &l.Timestamp); err != nil {
			return nil, err
		}
		if metadata.Valid {
			l.Metadata = []byte(metadata.String)
		}
		logs = append(logs, l)
	}
	return logs, rows.Err()
}

func nullInt64(v *int64) interface{} {
	if v == nil {
		return nil
	}
	return *v
}

package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/nextlevelbuilder/opencompany/internal/store"
)

// backdateTask shifts a task's clock fields into the past.
func backdateTask(t *testing.T, db *sql.DB, id string, deltaMs int64) {
	t.Helper()
	_, err := db.Exec(
		`UPDATE tasks SET created_at = created_at - ?, updated_at = updated_at - ?,
		 last_heartbeat_at = last_heartbeat_at - ? WHERE id = ?`,
		deltaMs, deltaMs, deltaMs, id)
	if err != nil {
		t.Fatalf("backdate task %s: %v", id, err)
	}
}

func TestCreateTaskDefaults(t *testing.T) {
	s, _, _ := newTestTaskStore(t)
	ctx := context.Background()

	task, err := s.CreateTask(ctx, store.CreateTaskParams{AgentID: "builder", Objective: "ship v1"})
	if err != nil {
		t.Fatalf("CreateTask: %v", err)
	}

	if task.Status != store.TaskStatusActive {
		t.Errorf("status = %q, want active", task.Status)
	}
	if task.Priority != store.TaskPriorityMedium {
		t.Errorf("priority = %q, want medium", task.Priority)
	}
	if task.CompletedAt != nil {
		t.Errorf("completedAt = %v, want nil", *task.CompletedAt)
	}
	if task.LastHeartbeatAt != nil {
		t.Errorf("lastHeartbeatAt = %v, want nil", *task.LastHeartbeatAt)
	}

	logs, err := s.GetLogs(ctx, task.ID, store.LogQuery{})
	if err != nil {
		t.Fatalf("GetLogs: %v", err)
	}
	if len(logs) != 1 || logs[0].Type != store.TaskLogCreated {
		t.Errorf("initial logs = %+v, want one created entry", logs)
	}
	if logs[0].Message != "ship v1" {
		t.Errorf("created log message = %q, want the objective", logs[0].Message)
	}
}

func TestTaskLifecycle(t *testing.T) {
	s, _, rec := newTestTaskStore(t)
	ctx := context.Background()

	task, err := s.CreateTask(ctx, store.CreateTaskParams{
		AgentID: "builder", Objective: "ship v1", Priority: store.TaskPriorityHigh,
	})
	if err != nil {
		t.Fatalf("CreateTask: %v", err)
	}

	if _, err := s.Heartbeat(ctx, task.ID, "builder", "compiling"); err != nil {
		t.Fatalf("first Heartbeat: %v", err)
	}
	if _, err := s.Heartbeat(ctx, task.ID, "builder", "testing"); err != nil {
		t.Fatalf("second Heartbeat: %v", err)
	}

	done := store.TaskStatusDone
	summary := "shipped"
	updated, err := s.UpdateTask(ctx, task.ID, store.TaskPatch{Status: &done, ProgressSummary: &summary})
	if err != nil {
		t.Fatalf("UpdateTask: %v", err)
	}
	if updated.Status != store.TaskStatusDone {
		t.Errorf("status = %q, want done", updated.Status)
	}
	if updated.ProgressSummary != "shipped" {
		t.Errorf("progressSummary = %q, want shipped", updated.ProgressSummary)
	}
	if updated.CompletedAt == nil {
		t.Error("completedAt = nil after terminal transition, want set")
	}
	if updated.UpdatedAt < task.UpdatedAt {
		t.Errorf("updatedAt went backwards: %d -> %d", task.UpdatedAt, updated.UpdatedAt)
	}

	wantEvents := []string{"task.created", "task.heartbeat", "task.heartbeat", "task.updated", "task.completed"}
	gotEvents := rec.names()
	if len(gotEvents) != len(wantEvents) {
		t.Fatalf("events = %v, want %v", gotEvents, wantEvents)
	}
	for i := range wantEvents {
		if gotEvents[i] != wantEvents[i] {
			t.Errorf("event[%d] = %q, want %q", i, gotEvents[i], wantEvents[i])
		}
	}

	logs, err := s.GetLogs(ctx, task.ID, store.LogQuery{})
	if err != nil {
		t.Fatalf("GetLogs: %v", err)
	}
	wantTypes := []string{"created", "heartbeat", "heartbeat", "completed"}
	if len(logs) != len(wantTypes) {
		t.Fatalf("log count = %d, want %d", len(logs), len(wantTypes))
	}
	for i, want := range wantTypes {
		if logs[i].Type != want {
			t.Errorf("log[%d].Type = %q, want %q", i, logs[i].Type, want)
		}
	}
}

func TestUpdateTaskMissingReturnsNil(t *testing.T) {
	s, _, _ := newTestTaskStore(t)

	got, err := s.UpdateTask(context.Background(), "no-such-task", store.TaskPatch{})
	if err != nil {
		t.Fatalf("UpdateTask: %v", err)
	}
	if got != nil {
		t.Errorf("patching a missing task = %+v, want nil", got)
	}

	task, err := s.GetTask(context.Background(), "no-such-task")
	if err != nil {
		t.Fatalf("GetTask: %v", err)
	}
	if task != nil {
		t.Errorf("GetTask unknown = %+v, want nil", task)
	}
}

func TestCompletedAtFirstTerminalWins(t *testing.T) {
	s, db, rec := newTestTaskStore(t)
	ctx := context.Background()

	task, err := s.CreateTask(ctx, store.CreateTaskParams{AgentID: "builder", Objective: "ship"})
	if err != nil {
		t.Fatalf("CreateTask: %v", err)
	}

	done := store.TaskStatusDone
	first, err := s.UpdateTask(ctx, task.ID, store.TaskPatch{Status: &done})
	if err != nil {
		t.Fatalf("first terminal update: %v", err)
	}
	if first.CompletedAt == nil {
		t.Fatal("completedAt not set on terminal transition")
	}

	// Pin an observable value so a refresh would show up.
	pinned := *first.CompletedAt - 5000
	if _, err := db.Exec(`UPDATE tasks SET completed_at = ? WHERE id = ?`, pinned, task.ID); err != nil {
		t.Fatalf("pin completed_at: %v", err)
	}
	rec.reset()

	again, err := s.UpdateTask(ctx, task.ID, store.TaskPatch{Status: &done})
	if err != nil {
		t.Fatalf("repeat terminal update: %v", err)
	}
	if again.CompletedAt == nil || *again.CompletedAt != pinned {
		t.Errorf("completedAt after repeat = %v, want pinned %d", again.CompletedAt, pinned)
	}
	if names := rec.names(); len(names) != 1 || names[0] != "task.updated" {
		t.Errorf("repeat terminal events = %v, want only task.updated", names)
	}

	active := store.TaskStatusActive
	reopened, err := s.UpdateTask(ctx, task.ID, store.TaskPatch{Status: &active})
	if err != nil {
		t.Fatalf("reopen update: %v", err)
	}
	if reopened.CompletedAt != nil {
		t.Errorf("completedAt after reopen = %v, want nil", *reopened.CompletedAt)
	}

	rec.reset()
	failed := store.TaskStatusFailed
	failedTask, err := s.UpdateTask(ctx, task.ID, store.TaskPatch{Status: &failed})
	if err != nil {
		t.Fatalf("fail update: %v", err)
	}
	if failedTask.CompletedAt == nil {
		t.Error("completedAt not reset on second terminal transition")
	}
	names := rec.names()
	if len(names) != 2 || names[0] != "task.updated" || names[1] != "task.failed" {
		t.Errorf("fail transition events = %v, want [task.updated task.failed]", names)
	}
}

func TestHeartbeat(t *testing.T) {
	s, db, _ := newTestTaskStore(t)
	ctx := context.Background()

	task, err := s.CreateTask(ctx, store.CreateTaskParams{AgentID: "builder", Objective: "ship"})
	if err != nil {
		t.Fatalf("CreateTask: %v", err)
	}

	first, err := s.Heartbeat(ctx, task.ID, "builder", "")
	if err != nil {
		t.Fatalf("first Heartbeat: %v", err)
	}
	if first.LastHeartbeatAt == nil {
		t.Fatal("lastHeartbeatAt nil after heartbeat")
	}

	backdateTask(t, db, task.ID, 10_000)

	second, err := s.Heartbeat(ctx, task.ID, "builder", "")
	if err != nil {
		t.Fatalf("second Heartbeat: %v", err)
	}
	if second.LastHeartbeatAt == nil || *second.LastHeartbeatAt <= *first.LastHeartbeatAt-10_000 {
		t.Errorf("second heartbeat did not advance lastHeartbeatAt: %v", second.LastHeartbeatAt)
	}

	// A silent heartbeat appends no log.
	logs, err := s.GetLogs(ctx, task.ID, store.LogQuery{})
	if err != nil {
		t.Fatalf("GetLogs: %v", err)
	}
	if len(logs) != 1 || logs[0].Type != store.TaskLogCreated {
		t.Errorf("logs after silent heartbeats = %+v, want only created", logs)
	}

	if _, err := s.Heartbeat(ctx, "no-such-task", "builder", ""); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("heartbeat on unknown task error = %v, want ErrNotFound", err)
	}
}

func TestGetStaleTasks(t *testing.T) {
	s, db, _ := newTestTaskStore(t)
	ctx := context.Background()
	threshold := int64(60_000)

	fresh, err := s.CreateTask(ctx, store.CreateTaskParams{AgentID: "a", Objective: "fresh"})
	if err != nil {
		t.Fatalf("CreateTask fresh: %v", err)
	}

	oldest, err := s.CreateTask(ctx, store.CreateTaskParams{AgentID: "a", Objective: "oldest stall"})
	if err != nil {
		t.Fatalf("CreateTask oldest: %v", err)
	}
	backdateTask(t, db, oldest.ID, 3*threshold)

	blocked, err := s.CreateTask(ctx, store.CreateTaskParams{AgentID: "b", Objective: "blocked stall"})
	if err != nil {
		t.Fatalf("CreateTask blocked: %v", err)
	}
	blockedStatus := store.TaskStatusBlocked
	if _, err := s.UpdateTask(ctx, blocked.ID, store.TaskPatch{Status: &blockedStatus}); err != nil {
		t.Fatalf("block update: %v", err)
	}
	backdateTask(t, db, blocked.ID, 2*threshold)

	beating, err := s.CreateTask(ctx, store.CreateTaskParams{AgentID: "c", Objective: "beating"})
	if err != nil {
		t.Fatalf("CreateTask beating: %v", err)
	}
	backdateTask(t, db, beating.ID, 2*threshold)
	if _, err := s.Heartbeat(ctx, beating.ID, "c", ""); err != nil {
		t.Fatalf("Heartbeat beating: %v", err)
	}

	finished, err := s.CreateTask(ctx, store.CreateTaskParams{AgentID: "d", Objective: "finished"})
	if err != nil {
		t.Fatalf("CreateTask finished: %v", err)
	}
	done := store.TaskStatusDone
	if _, err := s.UpdateTask(ctx, finished.ID, store.TaskPatch{Status: &done}); err != nil {
		t.Fatalf("finish update: %v", err)
	}
	backdateTask(t, db, finished.ID, 2*threshold)

	stale, err := s.GetStaleTasks(ctx, threshold)
	if err != nil {
		t.Fatalf("GetStaleTasks: %v", err)
	}
	if len(stale) != 2 {
		ids := make([]string, len(stale))
		for i, task := range stale {
			ids[i] = task.Objective
		}
		t.Fatalf("stale tasks = %v, want [oldest stall, blocked stall]", ids)
	}
	if stale[0].ID != oldest.ID {
		t.Errorf("stale[0] = %s, want the oldest stall first", stale[0].Objective)
	}
	if stale[1].ID != blocked.ID {
		t.Errorf("stale[1] = %s, want the blocked stall", stale[1].Objective)
	}

	for _, task := range stale {
		if task.ID == fresh.ID {
			t.Error("task created within threshold reported stale")
		}
		if task.ID == beating.ID {
			t.Error("recently heartbeating task reported stale")
		}
		if task.ID == finished.ID {
			t.Error("terminal task reported stale")
		}
	}
}

func TestSubtasks(t *testing.T) {
	s, _, _ := newTestTaskStore(t)
	ctx := context.Background()

	parent, err := s.CreateTask(ctx, store.CreateTaskParams{AgentID: "main", Objective: "epic"})
	if err != nil {
		t.Fatalf("CreateTask parent: %v", err)
	}

	var children []string
	for _, obj := range []string{"part one", "part two"} {
		child, err := s.CreateTask(ctx, store.CreateTaskParams{
			AgentID: "builder", Objective: obj, ParentTaskID: parent.ID,
		})
		if err != nil {
			t.Fatalf("CreateTask child: %v", err)
		}
		children = append(children, child.ID)
	}

	subtasks, err := s.GetSubtasks(ctx, parent.ID)
	if err != nil {
		t.Fatalf("GetSubtasks: %v", err)
	}
	if len(subtasks) != 2 {
		t.Fatalf("subtask count = %d, want 2", len(subtasks))
	}
	for i, sub := range subtasks {
		if sub.ID != children[i] {
			t.Errorf("subtask[%d] = %s, want creation order", i, sub.Objective)
		}
		if sub.ParentTaskID != parent.ID {
			t.Errorf("subtask[%d].ParentTaskID = %q, want %q", i, sub.ParentTaskID, parent.ID)
		}
	}

	_, err = s.CreateTask(ctx, store.CreateTaskParams{
		AgentID: "builder", Objective: "orphan", ParentTaskID: "no-such-task",
	})
	if !errors.Is(err, store.ErrNotFound) {
		t.Errorf("create with unknown parent error = %v, want ErrNotFound", err)
	}
}

func TestDependencies(t *testing.T) {
	s, _, _ := newTestTaskStore(t)
	ctx := context.Background()

	a, err := s.CreateTask(ctx, store.CreateTaskParams{AgentID: "x", Objective: "a"})
	if err != nil {
		t.Fatalf("CreateTask a: %v", err)
	}
	b, err := s.CreateTask(ctx, store.CreateTaskParams{AgentID: "x", Objective: "b"})
	if err != nil {
		t.Fatalf("CreateTask b: %v", err)
	}

	c, err := s.CreateTask(ctx, store.CreateTaskParams{
		AgentID: "x", Objective: "c", Dependencies: []string{a.ID, b.ID, a.ID},
	})
	if err != nil {
		t.Fatalf("CreateTask c: %v", err)
	}
	if len(c.Dependencies) != 2 || c.Dependencies[0] != a.ID || c.Dependencies[1] != b.ID {
		t.Errorf("c.Dependencies = %v, want [a b] deduplicated in order", c.Dependencies)
	}

	dependents, err := s.GetDependents(ctx, a.ID)
	if err != nil {
		t.Fatalf("GetDependents: %v", err)
	}
	if len(dependents) != 1 || dependents[0] != c.ID {
		t.Errorf("dependents of a = %v, want [c]", dependents)
	}

	// Cycles are stored, not rejected.
	if err := s.AddDependency(ctx, a.ID, c.ID); err != nil {
		t.Fatalf("AddDependency cycle: %v", err)
	}
	if err := s.AddDependency(ctx, a.ID, c.ID); err != nil {
		t.Fatalf("duplicate AddDependency: %v", err)
	}
	deps, err := s.GetDependencies(ctx, a.ID)
	if err != nil {
		t.Fatalf("GetDependencies: %v", err)
	}
	if len(deps) != 1 || deps[0] != c.ID {
		t.Errorf("deps of a = %v, want [c] exactly once", deps)
	}

	if err := s.RemoveDependency(ctx, a.ID, c.ID); err != nil {
		t.Fatalf("RemoveDependency: %v", err)
	}
	deps, err = s.GetDependencies(ctx, a.ID)
	if err != nil {
		t.Fatalf("GetDependencies after remove: %v", err)
	}
	if len(deps) != 0 {
		t.Errorf("deps of a after remove = %v, want none", deps)
	}

	_, err = s.CreateTask(ctx, store.CreateTaskParams{
		AgentID: "x", Objective: "bad", Dependencies: []string{"no-such-task"},
	})
	if !errors.Is(err, store.ErrNotFound) {
		t.Errorf("create with unknown dependency error = %v, want ErrNotFound", err)
	}
}

func TestReassignLogsAndKeepsHistory(t *testing.T) {
	s, _, rec := newTestTaskStore(t)
	ctx := context.Background()

	task, err := s.CreateTask(ctx, store.CreateTaskParams{AgentID: "builder", Objective: "ship"})
	if err != nil {
		t.Fatalf("CreateTask: %v", err)
	}
	rec.reset()

	newOwner := "reviewer"
	updated, err := s.UpdateTask(ctx, task.ID, store.TaskPatch{AgentID: &newOwner})
	if err != nil {
		t.Fatalf("UpdateTask: %v", err)
	}
	if updated.AgentID != "reviewer" {
		t.Errorf("agentId = %q, want reviewer", updated.AgentID)
	}
	if names := rec.names(); len(names) != 1 || names[0] != "task.updated" {
		t.Errorf("reassign events = %v, want only task.updated", names)
	}

	logs, err := s.GetLogs(ctx, task.ID, store.LogQuery{})
	if err != nil {
		t.Fatalf("GetLogs: %v", err)
	}
	if len(logs) != 2 || logs[1].Type != store.TaskLogReassigned {
		t.Fatalf("logs = %+v, want created then reassigned", logs)
	}
	if logs[1].Message != "builder -> reviewer" {
		t.Errorf("reassigned log message = %q", logs[1].Message)
	}
}

func TestAppendAndGetLogs(t *testing.T) {
	s, _, rec := newTestTaskStore(t)
	ctx := context.Background()

	task, err := s.CreateTask(ctx, store.CreateTaskParams{AgentID: "builder", Objective: "ship"})
	if err != nil {
		t.Fatalf("CreateTask: %v", err)
	}
	rec.reset()

	for _, step := range []struct{ typ, msg string }{
		{store.TaskLogProgress, "step one"},
		{store.TaskLogCheckpoint, "half way"},
		{store.TaskLogProgress, "step two"},
	} {
		if _, err := s.AppendLog(ctx, task.ID, "builder", step.typ, step.msg, nil); err != nil {
			t.Fatalf("AppendLog %s: %v", step.msg, err)
		}
	}

	if names := rec.names(); len(names) != 3 || names[0] != "task.log" {
		t.Errorf("append events = %v, want three task.log", names)
	}

	logs, err := s.GetLogs(ctx, task.ID, store.LogQuery{})
	if err != nil {
		t.Fatalf("GetLogs: %v", err)
	}
	if len(logs) != 4 {
		t.Fatalf("log count = %d, want 4 (created + 3 appended)", len(logs))
	}
	if logs[1].Message != "step one" || logs[3].Message != "step two" {
		t.Errorf("log order = [%s %s %s %s], want append order", logs[0].Message, logs[1].Message, logs[2].Message, logs[3].Message)
	}

	zero := 0
	empty, err := s.GetLogs(ctx, task.ID, store.LogQuery{Limit: &zero})
	if err != nil {
		t.Fatalf("GetLogs limit=0: %v", err)
	}
	if len(empty) != 0 {
		t.Errorf("limit=0 returned %d logs, want 0", len(empty))
	}

	two := 2
	tail, err := s.GetLogs(ctx, task.ID, store.LogQuery{Limit: &two})
	if err != nil {
		t.Fatalf("GetLogs limit=2: %v", err)
	}
	if len(tail) != 2 || tail[1].Message != "step two" {
		t.Errorf("limited logs keep the most recent window, got %+v", tail)
	}

	if _, err := s.AppendLog(ctx, "no-such-task", "builder", store.TaskLogProgress, "lost", nil); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("append to unknown task error = %v, want ErrNotFound", err)
	}
	if _, err := s.GetLogs(ctx, "no-such-task", store.LogQuery{}); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("get logs of unknown task error = %v, want ErrNotFound", err)
	}
}

func TestListTasksFilters(t *testing.T) {
	s, db, _ := newTestTaskStore(t)
	ctx := context.Background()

	first, err := s.CreateTask(ctx, store.CreateTaskParams{AgentID: "builder", Objective: "first"})
	if err != nil {
		t.Fatalf("CreateTask first: %v", err)
	}
	backdateTask(t, db, first.ID, 30_000)

	second, err := s.CreateTask(ctx, store.CreateTaskParams{AgentID: "builder", Objective: "second"})
	if err != nil {
		t.Fatalf("CreateTask second: %v", err)
	}
	backdateTask(t, db, second.ID, 20_000)

	other, err := s.CreateTask(ctx, store.CreateTaskParams{AgentID: "reviewer", Objective: "other"})
	if err != nil {
		t.Fatalf("CreateTask other: %v", err)
	}
	backdateTask(t, db, other.ID, 10_000)
	done := store.TaskStatusDone
	if _, err := s.UpdateTask(ctx, other.ID, store.TaskPatch{Status: &done}); err != nil {
		t.Fatalf("finish other: %v", err)
	}

	t.Run("all newest first", func(t *testing.T) {
		tasks, err := s.ListTasks(ctx, store.TaskQuery{})
		if err != nil {
			t.Fatalf("ListTasks: %v", err)
		}
		if len(tasks) != 3 {
			t.Fatalf("task count = %d, want 3", len(tasks))
		}
		if tasks[0].ID != other.ID {
			t.Errorf("tasks[0] = %s, want the most recently updated", tasks[0].Objective)
		}
	})

	t.Run("by agent", func(t *testing.T) {
		tasks, err := s.ListTasks(ctx, store.TaskQuery{AgentID: "builder"})
		if err != nil {
			t.Fatalf("ListTasks: %v", err)
		}
		if len(tasks) != 2 {
			t.Fatalf("builder task count = %d, want 2", len(tasks))
		}
		for _, task := range tasks {
			if task.AgentID != "builder" {
				t.Errorf("leaked task for agent %q", task.AgentID)
			}
		}
	})

	t.Run("by status", func(t *testing.T) {
		tasks, err := s.ListTasks(ctx, store.TaskQuery{Status: store.TaskStatusDone})
		if err != nil {
			t.Fatalf("ListTasks: %v", err)
		}
		if len(tasks) != 1 || tasks[0].ID != other.ID {
			t.Errorf("done tasks = %+v, want just the finished one", tasks)
		}
	})

	t.Run("limit", func(t *testing.T) {
		one := 1
		tasks, err := s.ListTasks(ctx, store.TaskQuery{Limit: &one})
		if err != nil {
			t.Fatalf("ListTasks: %v", err)
		}
		if len(tasks) != 1 {
			t.Errorf("limited task count = %d, want 1", len(tasks))
		}

		zero := 0
		tasks, err = s.ListTasks(ctx, store.TaskQuery{Limit: &zero})
		if err != nil {
			t.Fatalf("ListTasks limit=0: %v", err)
		}
		if len(tasks) != 0 {
			t.Errorf("limit=0 task count = %d, want 0", len(tasks))
		}
	})
}

func TestSummaries(t *testing.T) {
	s, db, _ := newTestTaskStore(t)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if _, err := s.CreateTask(ctx, store.CreateTaskParams{AgentID: "builder", Objective: "work"}); err != nil {
			t.Fatalf("CreateTask builder: %v", err)
		}
	}
	finished, err := s.CreateTask(ctx, store.CreateTaskParams{AgentID: "builder", Objective: "done work"})
	if err != nil {
		t.Fatalf("CreateTask finished: %v", err)
	}
	done := store.TaskStatusDone
	if _, err := s.UpdateTask(ctx, finished.ID, store.TaskPatch{Status: &done}); err != nil {
		t.Fatalf("finish: %v", err)
	}

	beating, err := s.CreateTask(ctx, store.CreateTaskParams{AgentID: "main", Objective: "ceo work"})
	if err != nil {
		t.Fatalf("CreateTask main: %v", err)
	}
	if _, err := s.Heartbeat(ctx, beating.ID, "main", ""); err != nil {
		t.Fatalf("Heartbeat: %v", err)
	}

	stalled, err := s.CreateTask(ctx, store.CreateTaskParams{AgentID: "main", Objective: "stalled"})
	if err != nil {
		t.Fatalf("CreateTask stalled: %v", err)
	}
	backdateTask(t, db, stalled.ID, 2*store.DefaultStaleThresholdMs)

	summary, err := s.GetSummary(ctx)
	if err != nil {
		t.Fatalf("GetSummary: %v", err)
	}
	if summary.Total != 5 {
		t.Errorf("total = %d, want 5", summary.Total)
	}
	if summary.ByStatus[store.TaskStatusActive] != 4 || summary.ByStatus[store.TaskStatusDone] != 1 {
		t.Errorf("byStatus = %v, want 4 active / 1 done", summary.ByStatus)
	}
	if summary.Stale != 1 {
		t.Errorf("stale = %d, want 1", summary.Stale)
	}

	agents, err := s.GetAgentSummaries(ctx)
	if err != nil {
		t.Fatalf("GetAgentSummaries: %v", err)
	}
	if len(agents) != 2 {
		t.Fatalf("agent summary count = %d, want 2", len(agents))
	}
	if agents[0].AgentID != "builder" || agents[1].AgentID != "main" {
		t.Errorf("agent order = [%s %s], want sorted [builder main]", agents[0].AgentID, agents[1].AgentID)
	}
	if agents[0].Total != 3 || agents[0].ByStatus[store.TaskStatusDone] != 1 {
		t.Errorf("builder summary = %+v, want 3 tasks with 1 done", agents[0])
	}
	if agents[1].LastHeartbeatAt == nil {
		t.Error("main summary missing lastHeartbeatAt")
	}
	if agents[0].LastHeartbeatAt != nil {
		t.Error("builder summary has lastHeartbeatAt without any heartbeat")
	}
}

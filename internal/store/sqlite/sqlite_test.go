package sqlite

import (
	"database/sql"
	"path/filepath"
	"sync"
	"testing"

	"github.com/nextlevelbuilder/opencompany/internal/bus"
)

// eventRecorder captures broadcast events for assertions.
type eventRecorder struct {
	mu     sync.Mutex
	events []bus.Event
}

func (r *eventRecorder) record(ev bus.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *eventRecorder) names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	names := make([]string, len(r.events))
	for i, ev := range r.events {
		names[i] = ev.Name
	}
	return names
}

func (r *eventRecorder) reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = nil
}

func newTestChannelStore(t *testing.T) (*SQLiteChannelStore, *sql.DB, *eventRecorder) {
	t.Helper()

	db, err := Open(filepath.Join(t.TempDir(), "channels.db"))
	if err != nil {
		t.Fatalf("open channels db: %v", err)
	}
	if err := Migrate(db, SetChannels); err != nil {
		t.Fatalf("migrate channels db: %v", err)
	}

	rec := &eventRecorder{}
	b := bus.New()
	b.Subscribe("test-recorder", rec.record)

	s := NewSQLiteChannelStore(db, b)
	t.Cleanup(func() { s.Close() })
	return s, db, rec
}

func newTestTaskStore(t *testing.T) (*SQLiteTaskStore, *sql.DB, *eventRecorder) {
	t.Helper()

	db, err := Open(filepath.Join(t.TempDir(), "tasks.db"))
	if err != nil {
		t.Fatalf("open tasks db: %v", err)
	}
	if err := Migrate(db, SetTasks); err != nil {
		t.Fatalf("migrate tasks db: %v", err)
	}

	rec := &eventRecorder{}
	b := bus.New()
	b.Subscribe("test-recorder", rec.record)

	s := NewSQLiteTaskStore(db, b)
	t.Cleanup(func() { s.Close() })
	return s, db, rec
}

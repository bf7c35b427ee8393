package sessions

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestChannelKey(t *testing.T) {
	got := ChannelKey("builder", "ch-123")
	want := "agent:builder:webchat:channel:ch-123"
	if got != want {
		t.Errorf("ChannelKey = %q, want %q", got, want)
	}
}

func TestAgentID(t *testing.T) {
	tests := []struct {
		key  string
		want string
	}{
		{"agent:builder:webchat:channel:ch-123", "builder"},
		{"agent:main:cron:daily", "main"},
		{"bogus", ""},
		{"agent:only-two", ""},
		{"session:main:webchat", ""},
	}
	for _, tt := range tests {
		if got := AgentID(tt.key); got != tt.want {
			t.Errorf("AgentID(%q) = %q, want %q", tt.key, got, tt.want)
		}
	}
}

func writeSessionFile(t *testing.T, dir, key string, updated time.Time) {
	t.Helper()
	data, err := json.Marshal(map[string]any{"key": key, "updated": updated})
	if err != nil {
		t.Fatalf("marshal session: %v", err)
	}
	name := strings.ReplaceAll(key, ":", "_") + ".json"
	if err := os.WriteFile(filepath.Join(dir, name), data, 0o644); err != nil {
		t.Fatalf("write session file: %v", err)
	}
}

func TestScan(t *testing.T) {
	dir := t.TempDir()
	now := time.Now().UTC().Truncate(time.Second)

	writeSessionFile(t, dir, "agent:builder:webchat:channel:ch-1", now.Add(-time.Hour))
	writeSessionFile(t, dir, "agent:builder:webchat:channel:ch-2", now)
	writeSessionFile(t, dir, "agent:main:cron:daily", now.Add(-2*time.Hour))

	// Non-session noise must be skipped.
	if err := os.WriteFile(filepath.Join(dir, "junk.json"), []byte("{not json"), 0o644); err != nil {
		t.Fatalf("write junk: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("hi"), 0o644); err != nil {
		t.Fatalf("write notes: %v", err)
	}

	got := Scan(dir)

	builder, ok := got["builder"]
	if !ok {
		t.Fatal("builder missing from scan result")
	}
	if builder.SessionCount != 2 {
		t.Errorf("builder.SessionCount = %d, want 2", builder.SessionCount)
	}
	if !builder.LastUpdated.Equal(now) {
		t.Errorf("builder.LastUpdated = %v, want most recent %v", builder.LastUpdated, now)
	}

	main, ok := got["main"]
	if !ok {
		t.Fatal("main missing from scan result")
	}
	if main.SessionCount != 1 {
		t.Errorf("main.SessionCount = %d, want 1", main.SessionCount)
	}
}

func TestScanMissingDir(t *testing.T) {
	got := Scan(filepath.Join(t.TempDir(), "does-not-exist"))
	if len(got) != 0 {
		t.Errorf("scan of missing dir = %v, want empty", got)
	}
}

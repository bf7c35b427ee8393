package trigger

import (
	"context"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/nextlevelbuilder/opencompany/internal/bus"
	"github.com/nextlevelbuilder/opencompany/internal/config"
	"github.com/nextlevelbuilder/opencompany/internal/sessions"
	"github.com/nextlevelbuilder/opencompany/internal/store"
	"github.com/nextlevelbuilder/opencompany/internal/store/sqlite"
	"github.com/nextlevelbuilder/opencompany/pkg/protocol"
)

type wakeCall struct {
	sessionKey string
	message    string
}

type fakeGateway struct {
	mu    sync.Mutex
	calls []wakeCall
	err   error
}

func (f *fakeGateway) WakeAgent(ctx context.Context, sessionKey, message string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, wakeCall{sessionKey: sessionKey, message: message})
	return f.err
}

func (f *fakeGateway) sessionKeys() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	keys := make([]string, 0, len(f.calls))
	for _, c := range f.calls {
		keys = append(keys, c.sessionKey)
	}
	sort.Strings(keys)
	return keys
}

func (f *fakeGateway) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

type recordedFrame struct {
	name    string
	payload interface{}
}

type fakeBroadcaster struct {
	mu     sync.Mutex
	frames []recordedFrame
}

func (f *fakeBroadcaster) Broadcast(name string, payload interface{}) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.frames = append(f.frames, recordedFrame{name: name, payload: payload})
}

func (f *fakeBroadcaster) names() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.frames))
	for _, fr := range f.frames {
		out = append(out, fr.name)
	}
	return out
}

func newTestEngine(t *testing.T, cooldownMs int64, agents ...string) (*Engine, store.ChannelStore, *fakeGateway) {
	t.Helper()

	db, err := sqlite.Open(filepath.Join(t.TempDir(), "channels.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := sqlite.Migrate(db, sqlite.SetChannels); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	channels := sqlite.NewSQLiteChannelStore(db, nil)

	cfg := config.Default()
	cfg.Trigger.CooldownMs = cooldownMs
	cfg.Agents = nil
	for _, id := range agents {
		cfg.Agents = append(cfg.Agents, config.AgentConfig{ID: id})
	}

	gw := &fakeGateway{}
	return New(cfg, channels, bus.New(), gw), channels, gw
}

func mustCreateChannel(t *testing.T, channels store.ChannelStore, name, creator string, members ...string) *store.Channel {
	t.Helper()
	ch, err := channels.CreateChannel(context.Background(), store.CreateChannelParams{
		Name:      name,
		CreatedBy: creator,
		Members:   members,
	})
	if err != nil {
		t.Fatalf("create channel %s: %v", name, err)
	}
	return ch
}

func mustPost(t *testing.T, channels store.ChannelStore, channel, sender, text string) *store.MessageEvent {
	t.Helper()
	msg, err := channels.PostMessage(context.Background(), store.PostMessageParams{
		Channel:  channel,
		SenderID: sender,
		Text:     text,
	})
	if err != nil {
		t.Fatalf("post to %s: %v", channel, err)
	}
	return &store.MessageEvent{Message: msg, ChannelName: channel}
}

func TestDispatchWakesChannelAgents(t *testing.T) {
	eng, channels, gw := newTestEngine(t, 5000, "alice", "bob")
	ch := mustCreateChannel(t, channels, "dev", "human-pm", "human-pm", "alice", "bob")

	ev := mustPost(t, channels, "dev", "human-pm", "ship it today")
	eng.dispatch(context.Background(), ev)

	want := []string{
		sessions.ChannelKey("alice", ch.ID),
		sessions.ChannelKey("bob", ch.ID),
	}
	sort.Strings(want)
	got := gw.sessionKeys()
	if len(got) != len(want) {
		t.Fatalf("woke %d agents, want %d: %v", len(got), len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("session key %d = %q, want %q", i, got[i], want[i])
		}
	}

	gw.mu.Lock()
	prompt := gw.calls[0].message
	gw.mu.Unlock()
	if !strings.Contains(prompt, "New message in #dev from human-pm:") {
		t.Errorf("prompt missing header: %q", prompt)
	}
	if !strings.Contains(prompt, "ship it today") {
		t.Errorf("prompt missing message text: %q", prompt)
	}
}

func TestDispatchExcludesSenderAndNonAgents(t *testing.T) {
	eng, channels, gw := newTestEngine(t, 5000, "alice", "bob")
	ch := mustCreateChannel(t, channels, "dev", "alice", "alice", "bob", "human-pm")

	// alice sends: she is excluded as sender, human-pm is not on the roster.
	ev := mustPost(t, channels, "dev", "alice", "done with the parser")
	eng.dispatch(context.Background(), ev)

	got := gw.sessionKeys()
	if len(got) != 1 || got[0] != sessions.ChannelKey("bob", ch.ID) {
		t.Fatalf("woke %v, want only bob", got)
	}
}

func TestDispatchCooldownSuppressesRepeats(t *testing.T) {
	eng, channels, gw := newTestEngine(t, 200, "alice")
	mustCreateChannel(t, channels, "dev", "human-pm", "human-pm", "alice")

	eng.dispatch(context.Background(), mustPost(t, channels, "dev", "human-pm", "first"))
	eng.dispatch(context.Background(), mustPost(t, channels, "dev", "human-pm", "second"))
	if n := gw.callCount(); n != 1 {
		t.Fatalf("within cooldown window: %d wake-ups, want 1", n)
	}

	time.Sleep(250 * time.Millisecond)
	eng.dispatch(context.Background(), mustPost(t, channels, "dev", "human-pm", "third"))
	if n := gw.callCount(); n != 2 {
		t.Fatalf("after cooldown window: %d wake-ups, want 2", n)
	}
}

func TestDispatchPromptCarriesTranscript(t *testing.T) {
	eng, channels, gw := newTestEngine(t, 5000, "alice")
	mustCreateChannel(t, channels, "dev", "human-pm", "human-pm", "alice")

	mustPost(t, channels, "dev", "human-pm", "kickoff")
	mustPost(t, channels, "dev", "human-pm", "status?")
	ev := mustPost(t, channels, "dev", "human-pm", "anyone there")
	eng.dispatch(context.Background(), ev)

	if gw.callCount() != 1 {
		t.Fatalf("wake-ups = %d, want 1", gw.callCount())
	}
	gw.mu.Lock()
	prompt := gw.calls[0].message
	gw.mu.Unlock()

	for _, line := range []string{"[human-pm]: kickoff", "[human-pm]: status?", "[human-pm]: anyone there"} {
		if !strings.Contains(prompt, line) {
			t.Errorf("prompt missing transcript line %q", line)
		}
	}
	if strings.Index(prompt, "kickoff\n") > strings.Index(prompt, "[human-pm]: status?") {
		t.Error("transcript not in ascending order")
	}
	if !strings.Contains(prompt, "PASS") {
		t.Error("prompt missing PASS instruction")
	}
}

func TestDispatchSkipsDeletedChannel(t *testing.T) {
	eng, channels, gw := newTestEngine(t, 5000, "alice")
	mustCreateChannel(t, channels, "dev", "human-pm", "human-pm", "alice")
	ev := mustPost(t, channels, "dev", "human-pm", "going away")

	if _, err := channels.DeleteChannel(context.Background(), "dev"); err != nil {
		t.Fatalf("delete channel: %v", err)
	}
	eng.dispatch(context.Background(), ev)
	if n := gw.callCount(); n != 0 {
		t.Fatalf("woke %d agents for a deleted channel, want 0", n)
	}
}

func TestHandleEventRebroadcastsChannelEvents(t *testing.T) {
	eng, channels, _ := newTestEngine(t, 5000, "alice")
	mustCreateChannel(t, channels, "dev", "human-pm", "human-pm", "alice")

	b := &fakeBroadcaster{}
	eng.SetBroadcaster(b)

	ev := mustPost(t, channels, "dev", "human-pm", "hello")
	eng.handleEvent(bus.Event{Name: protocol.EventChannelCreated, Payload: struct{}{}})
	eng.handleEvent(bus.Event{Name: protocol.EventChannelMessage, Payload: ev})
	eng.handleEvent(bus.Event{Name: protocol.EventTaskCreated, Payload: struct{}{}})

	names := b.names()
	if len(names) != 2 {
		t.Fatalf("re-broadcast %d frames, want 2 (channel.* only): %v", len(names), names)
	}
	if names[0] != protocol.EventChannelCreated || names[1] != protocol.EventChannelMessage {
		t.Errorf("re-broadcast names = %v", names)
	}

	// The message event must also be queued for dispatch.
	select {
	case queued := <-eng.queue:
		if queued.Message.Text != "hello" {
			t.Errorf("queued text = %q, want hello", queued.Message.Text)
		}
	default:
		t.Error("channel.message was not queued for wake-up")
	}
}

func TestHandleEventIgnoresForeignPayloads(t *testing.T) {
	eng, _, _ := newTestEngine(t, 5000, "alice")
	eng.handleEvent(bus.Event{Name: protocol.EventChannelMessage, Payload: "not a message event"})
	select {
	case <-eng.queue:
		t.Fatal("malformed payload should not be queued")
	default:
	}
}

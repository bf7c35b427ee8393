package company

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/nextlevelbuilder/opencompany/internal/config"
	"github.com/nextlevelbuilder/opencompany/pkg/protocol"
)

// docsDebounce coalesces a burst of document writes into one frame.
const docsDebounce = 500 * time.Millisecond

// Broadcaster pushes one event frame to connected dashboards.
type Broadcaster interface {
	Broadcast(name string, payload interface{})
}

// DocsPayload is the company.docs.updated frame payload.
type DocsPayload struct {
	Paths []string `json:"paths"` // changed files, state-dir relative
	Ts    int64    `json:"ts"`
}

// DocsWatcher broadcasts company.docs.updated when markdown files under
// company/ or company/kb/ change, so dashboards refresh documents without
// polling. The two databases live in the same directory; non-markdown
// events are ignored to keep WAL churn out of the stream.
type DocsWatcher struct {
	stateDir  string
	dirs      []string
	broadcast Broadcaster
	log       *slog.Logger

	// Guards the debounce timer and the accumulated change set. Timer
	// callbacks signal the run loop instead of broadcasting directly.
	mu       sync.Mutex
	debounce *time.Timer
	changed  map[string]struct{}
	signals  chan struct{}
}

// NewDocsWatcher watches the company document tree under the state dir.
func NewDocsWatcher(broadcast Broadcaster) *DocsWatcher {
	return &DocsWatcher{
		stateDir:  config.StateDir(),
		dirs:      []string{config.CompanyDir(), config.KnowledgeBaseDir()},
		broadcast: broadcast,
		log:       slog.Default().With("component", "company"),
		changed:   make(map[string]struct{}),
		signals:   make(chan struct{}, 1),
	}
}

// Run watches until ctx is cancelled. The watched directories are created
// if missing so a fresh state dir works before bootstrap runs.
func (w *DocsWatcher) Run(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create docs watcher: %w", err)
	}
	defer watcher.Close()

	for _, dir := range w.dirs {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create %s: %w", dir, err)
		}
		if err := watcher.Add(dir); err != nil {
			return fmt.Errorf("watch %s: %w", dir, err)
		}
	}
	w.log.Info("watching company documents", "dirs", w.dirs)
	defer w.stopDebounce()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case <-w.signals:
			w.fire()

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Ext(event.Name) != ".md" {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) &&
				!event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
				continue
			}
			w.noteChange(event.Name)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			w.log.Warn("docs watcher error", "error", err)
		}
	}
}

func (w *DocsWatcher) noteChange(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if rel, err := filepath.Rel(w.stateDir, path); err == nil {
		w.changed[rel] = struct{}{}
	} else {
		w.changed[path] = struct{}{}
	}
	if w.debounce != nil {
		w.debounce.Stop()
	}
	w.debounce = time.AfterFunc(docsDebounce, w.sendSignal)
}

// sendSignal does a non-blocking send; a pending signal already covers
// every accumulated change.
func (w *DocsWatcher) sendSignal() {
	select {
	case w.signals <- struct{}{}:
	default:
	}
}

func (w *DocsWatcher) stopDebounce() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.debounce != nil {
		w.debounce.Stop()
	}
}

// fire pushes one frame covering every change since the last fire.
func (w *DocsWatcher) fire() {
	w.mu.Lock()
	paths := make([]string, 0, len(w.changed))
	for p := range w.changed {
		paths = append(paths, p)
	}
	w.changed = make(map[string]struct{})
	w.mu.Unlock()

	if len(paths) == 0 || w.broadcast == nil {
		return
	}
	sort.Strings(paths)
	w.broadcast.Broadcast(protocol.EventCompanyDocsUpdated, DocsPayload{
		Paths: paths,
		Ts:    time.Now().UnixMilli(),
	})
	w.log.Debug("company docs updated", "files", len(paths))
}
